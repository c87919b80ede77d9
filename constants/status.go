package constants

// ScanStatus is the canonical status for rows in scans.
type ScanStatus string

// Stable values (store these exact strings in DB).
const (
	ScanStatusQueued     ScanStatus = "QUEUED"
	ScanStatusRunning    ScanStatus = "RUNNING"
	ScanStatusOCROK      ScanStatus = "OCR_OK"    // text found
	ScanStatusOCREmpty   ScanStatus = "OCR_EMPTY" // every backend came back empty
	ScanStatusTranslated ScanStatus = "TRANSLATED"
	ScanStatusFailed     ScanStatus = "FAILED"
)

// Terminal reports whether no further transitions are expected.
func (s ScanStatus) Terminal() bool {
	switch s {
	case ScanStatusOCREmpty, ScanStatusTranslated, ScanStatusFailed:
		return true
	}
	return false
}
