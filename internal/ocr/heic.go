package ocr

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// convertHEIC converts HEIC/HEIF bytes to PNG bytes with the chosen converter.
// converter: "heif-convert" | "magick" | "sips"
//
// When cacheDir and hashHex are set the PNG is kept at {cacheDir}/{hashHex}.png
// and reused, so a cascade that revisits an image converts it once.
func convertHEIC(
	ctx context.Context,
	r Runner,
	logger *slog.Logger,
	converter string,
	data []byte,
	cacheDir string,
	hashHex string,
) ([]byte, error) {
	var cached string
	if cacheDir != "" && hashHex != "" {
		cached = filepath.Join(cacheDir, hashHex+".png")
		if b, err := os.ReadFile(cached); err == nil && len(b) > 0 {
			logger.Debug("using cached heic->png", "cache", cached)
			return b, nil
		}
		if err := os.MkdirAll(cacheDir, 0o755); err != nil {
			return nil, err
		}
	}

	tmpDir, err := os.MkdirTemp("", "pt-heic-*")
	if err != nil {
		return nil, err
	}
	defer func() { _ = os.RemoveAll(tmpDir) }()
	in := filepath.Join(tmpDir, "in.heic")
	out := filepath.Join(tmpDir, "out.png")
	if err := os.WriteFile(in, data, 0o600); err != nil {
		return nil, err
	}

	switch converter {
	case "heif-convert":
		if _, errb, err2 := r.Run(ctx, "heif-convert", in, out); err2 != nil {
			return nil, fmt.Errorf("heif-convert failed: %w: %s", err2, truncate(string(errb), 512))
		}
	case "magick":
		if _, errb, err2 := r.Run(ctx, "magick", in, out); err2 != nil {
			return nil, fmt.Errorf("magick convert failed: %w: %s", err2, truncate(string(errb), 512))
		}
	case "sips":
		if _, errb, err2 := r.Run(ctx, "sips", "-s", "format", "png", in, "--out", out); err2 != nil {
			return nil, fmt.Errorf("sips convert failed: %w: %s", err2, truncate(string(errb), 512))
		}
	default:
		return nil, fmt.Errorf("%w: HEIC needs HEIC_CONVERTER set to one of: heif-convert | magick | sips", ErrUnsupportedImage)
	}

	png, err := os.ReadFile(out)
	if err != nil {
		return nil, fmt.Errorf("HEIC conversion produced no output: %w", err)
	}
	if cached != "" {
		if werr := os.WriteFile(cached, png, 0o644); werr != nil {
			logger.Warn("failed to cache heic->png", "cache", cached, "error", werr)
		} else {
			logger.Debug("cached heic->png", "cache", cached)
		}
	}
	return png, nil
}
