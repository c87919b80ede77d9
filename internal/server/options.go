package server

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"google.golang.org/grpc/codes"

	"github.com/joseph-ayodele/phototranslate/constants"
	"github.com/joseph-ayodele/phototranslate/internal/common"
	"github.com/joseph-ayodele/phototranslate/internal/pipeline"
	"github.com/joseph-ayodele/phototranslate/internal/translate"
)

// scanOptions are the per-request scan settings, sent as form fields over HTTP
// and as metadata over gRPC.
type scanOptions struct {
	Model     string
	Target    string
	Translate string
	Force     string
}

// apply validates o into in. translate=true without a target falls back to defaultTarget.
func (o scanOptions) apply(in *pipeline.ScanInput, defaultTarget string) error {
	if m := strings.TrimSpace(o.Model); m != "" {
		model, ok := constants.ParseOCRModel(m)
		if !ok {
			return fmt.Errorf("%w: unknown model %q", common.ErrInvalidInput, m)
		}
		in.Model = model
	}
	in.Target = strings.TrimSpace(o.Target)
	if in.Target != "" {
		if _, ok := translate.ParseLanguage(in.Target); !ok {
			return fmt.Errorf("%w: unknown target language %q", common.ErrInvalidInput, in.Target)
		}
	}
	if v := strings.TrimSpace(o.Translate); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%w: translate must be a boolean", common.ErrInvalidInput)
		}
		switch {
		case !b:
			in.NoTranslate = true
		case in.Target == "":
			in.Target = defaultTarget
		}
	}
	if v := strings.TrimSpace(o.Force); v != "" {
		in.Force, _ = strconv.ParseBool(v)
	}
	return nil
}

// translationFailureStatus is the HTTP status for a scan whose text was recognized
// but whose translation failed. Provider faults surface as 502.
func translationFailureStatus(err error) int {
	if errors.Is(err, translate.ErrNoProvider) {
		return http.StatusServiceUnavailable
	}
	status := common.HTTPStatus(err)
	if status == http.StatusInternalServerError {
		return http.StatusBadGateway
	}
	return status
}

// translationFailureCode is translationFailureStatus for gRPC.
func translationFailureCode(err error) codes.Code {
	switch translationFailureStatus(err) {
	case http.StatusBadRequest:
		return codes.InvalidArgument
	case http.StatusUnauthorized:
		return codes.Unauthenticated
	case http.StatusNotFound:
		return codes.NotFound
	default:
		return codes.Unavailable
	}
}
