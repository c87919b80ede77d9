package entity

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/phototranslate/constants"
)

// Scan is one processed image as stored in scan history.
type Scan struct {
	ID                  uuid.UUID            `json:"id"`
	ContentHash         string               `json:"content_hash"`
	FileName            string               `json:"file_name"`
	SourcePath          string               `json:"source_path,omitempty"`
	ArchivePath         *string              `json:"archive_path,omitempty"`
	PreferredModel      constants.OCRModel   `json:"preferred_model"`
	Model               string               `json:"model,omitempty"` // model that produced Text; "" when none did
	Status              constants.ScanStatus `json:"status"`
	OCRText             string               `json:"ocr_text"`
	DominantLanguage    string               `json:"dominant_language"`
	DominantTag         string               `json:"dominant_tag,omitempty"`
	PossibleLanguages   []string             `json:"possible_languages"`
	Attempts            json.RawMessage      `json:"attempts,omitempty"`
	TargetLanguage      *string              `json:"target_language,omitempty"`
	SourceLanguage      *string              `json:"source_language,omitempty"`
	Translation         *string              `json:"translation,omitempty"`
	TranslationProvider *string              `json:"translation_provider,omitempty"`
	ErrorMessage        *string              `json:"error_message,omitempty"`
	StartedAt           time.Time            `json:"started_at"`
	FinishedAt          *time.Time           `json:"finished_at,omitempty"`
	ElapsedMS           int64                `json:"elapsed_ms"`
}
