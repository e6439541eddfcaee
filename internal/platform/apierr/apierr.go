package apierr

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/xwerkax/BloomlyApp/internal/domain/errs"
)

type Error struct {
	Status int
	Code   string
	Err    error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	if e.Code != "" {
		return e.Code
	}
	if e.Status != 0 {
		return fmt.Sprintf("api error (%d)", e.Status)
	}
	return "api error"
}

func (e *Error) Unwrap() error { return e.Err }

func New(status int, code string, err error) *Error {
	return &Error{Status: status, Code: code, Err: err}
}

// NoRecommendationMessage is the only text an end user sees when the engine has no answer.
const NoRecommendationMessage = "no recommendation yet - need more watering history"

// From maps domain errors onto HTTP-facing errors. Unknown errors become a bare 500
// so raw messages never leak into a response body.
func From(err error) *Error {
	if err == nil {
		return nil
	}
	var ae *Error
	if errors.As(err, &ae) {
		return ae
	}
	switch {
	case errors.Is(err, errs.ErrInsufficientData), errors.Is(err, errs.ErrUnavailable):
		return New(http.StatusUnprocessableEntity, "insufficient_data", errors.New(NoRecommendationMessage))
	case errors.Is(err, errs.ErrNotFound), errors.Is(err, errs.ErrArtifactNotFound):
		return New(http.StatusNotFound, "not_found", err)
	case errors.Is(err, errs.ErrInvalidArgument):
		return New(http.StatusBadRequest, "invalid_argument", err)
	case errors.Is(err, errs.ErrConflict):
		return New(http.StatusConflict, "conflict", err)
	default:
		return New(http.StatusInternalServerError, "internal_error", errors.New("internal error"))
	}
}
