package server

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/google/go-cmp/cmp"
	"google.golang.org/grpc/codes"

	"github.com/joseph-ayodele/phototranslate/constants"
	"github.com/joseph-ayodele/phototranslate/internal/common"
	"github.com/joseph-ayodele/phototranslate/internal/pipeline"
	"github.com/joseph-ayodele/phototranslate/internal/translate"
)

func TestScanOptionsApply(t *testing.T) {
	tests := []struct {
		name    string
		opts    scanOptions
		want    pipeline.ScanInput
		wantErr bool
	}{
		{"empty", scanOptions{}, pipeline.ScanInput{}, false},
		{"model synonym and target", scanOptions{Model: " latin ", Target: " fr "},
			pipeline.ScanInput{Model: constants.OCRModelLatin, Target: "fr"}, false},
		{"translate without target uses default", scanOptions{Translate: "true"},
			pipeline.ScanInput{Target: "de"}, false},
		{"translate=false suppresses", scanOptions{Target: "en", Translate: "0"},
			pipeline.ScanInput{Target: "en", NoTranslate: true}, false},
		{"force", scanOptions{Force: "yes-ish"}, pipeline.ScanInput{}, false},
		{"force true", scanOptions{Force: "1"}, pipeline.ScanInput{Force: true}, false},
		{"unknown model", scanOptions{Model: "klingon"}, pipeline.ScanInput{}, true},
		{"unknown target", scanOptions{Target: "??"}, pipeline.ScanInput{}, true},
		{"bad translate", scanOptions{Translate: "maybe"}, pipeline.ScanInput{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got pipeline.ScanInput
			err := tt.opts.apply(&got, "de")
			if tt.wantErr {
				if !errors.Is(err, common.ErrInvalidInput) {
					t.Fatalf("err = %v, want ErrInvalidInput", err)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("input (-want +got):\n%s", diff)
			}
		})
	}
}

func TestTranslationFailureMapping(t *testing.T) {
	tests := []struct {
		err    error
		status int
		code   codes.Code
	}{
		{translate.ErrNoProvider, http.StatusServiceUnavailable, codes.Unavailable},
		{errors.New("upstream exploded"), http.StatusBadGateway, codes.Unavailable},
		{fmt.Errorf("openai: %w", common.ErrUnauthorized), http.StatusUnauthorized, codes.Unauthenticated},
		{fmt.Errorf("%w: text too long", common.ErrInvalidInput), http.StatusBadRequest, codes.InvalidArgument},
		{fmt.Errorf("%w: rate limited", common.ErrUnavailable), http.StatusServiceUnavailable, codes.Unavailable},
	}
	for _, tt := range tests {
		if got := translationFailureStatus(tt.err); got != tt.status {
			t.Errorf("status(%v) = %d, want %d", tt.err, got, tt.status)
		}
		if got := translationFailureCode(tt.err); got != tt.code {
			t.Errorf("code(%v) = %v, want %v", tt.err, got, tt.code)
		}
	}
}
