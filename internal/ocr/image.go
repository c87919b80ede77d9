package ocr

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"image"
	"image/png"
	"log/slog"

	_ "image/gif"
	_ "image/jpeg"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// Preparer turns an arbitrary upload into something every backend can read.
type Preparer struct {
	runner           Runner
	logger           *slog.Logger
	heicConverter    string
	artifactCacheDir string
}

func NewPreparer(cfg Config, runner Runner, logger *slog.Logger) *Preparer {
	if logger == nil {
		logger = slog.Default()
	}
	if runner == nil {
		runner = ExecRunner{Logger: logger}
	}
	return &Preparer{
		runner:           runner,
		logger:           logger,
		heicConverter:    cfg.HeicConverter,
		artifactCacheDir: cfg.ArtifactCacheDir,
	}
}

// Prepare validates img and normalizes it to PNG or JPEG.
// HEIC goes through the external converter; webp, bmp, tiff and gif are re-encoded.
func (p *Preparer) Prepare(ctx context.Context, img Image) (Image, error) {
	if len(img.Data) == 0 {
		return Image{}, ErrNoImageData
	}
	if isHEIC(img.Data) {
		data, err := convertHEIC(ctx, p.runner, p.logger, p.heicConverter, img.Data, p.artifactCacheDir, ContentHash(img.Data))
		if err != nil {
			return Image{}, err
		}
		return Image{Data: data, Format: "png", Name: img.Name}, nil
	}

	_, format, err := image.DecodeConfig(bytes.NewReader(img.Data))
	if err != nil {
		return Image{}, fmt.Errorf("%w: %v", ErrUnsupportedImage, err)
	}
	switch format {
	case "png", "jpeg":
		return Image{Data: img.Data, Format: format, Name: img.Name}, nil
	}

	decoded, _, err := image.Decode(bytes.NewReader(img.Data))
	if err != nil {
		return Image{}, fmt.Errorf("decode %s: %w", format, err)
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, decoded); err != nil {
		return Image{}, fmt.Errorf("encode png: %w", err)
	}
	p.logger.Debug("ocr.image.reencoded", "from", format, "bytes_in", len(img.Data), "bytes_out", buf.Len())
	return Image{Data: buf.Bytes(), Format: "png", Name: img.Name}, nil
}

// ContentHash returns the hex SHA256 of data.
func ContentHash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// isHEIC looks for an ISO-BMFF ftyp box with a HEIF brand.
func isHEIC(b []byte) bool {
	if len(b) < 12 || string(b[4:8]) != "ftyp" {
		return false
	}
	switch string(b[8:12]) {
	case "heic", "heix", "hevc", "hevx", "heim", "heis", "mif1", "msf1":
		return true
	}
	return false
}
