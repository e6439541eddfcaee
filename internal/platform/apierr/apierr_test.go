package apierr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/xwerkax/BloomlyApp/internal/domain/errs"
)

func TestFrom(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"insufficient", fmt.Errorf("train: %w", errs.ErrInsufficientData), http.StatusUnprocessableEntity, "insufficient_data"},
		{"unavailable", errs.ErrUnavailable, http.StatusUnprocessableEntity, "insufficient_data"},
		{"not found", fmt.Errorf("plant: %w", errs.ErrNotFound), http.StatusNotFound, "not_found"},
		{"invalid", errs.ErrInvalidArgument, http.StatusBadRequest, "invalid_argument"},
		{"conflict", fmt.Errorf("job: %w", errs.ErrConflict), http.StatusConflict, "conflict"},
		{"unknown", errors.New("pq: connection refused"), http.StatusInternalServerError, "internal_error"},
	}
	for _, tc := range cases {
		got := From(tc.err)
		if got.Status != tc.status || got.Code != tc.code {
			t.Fatalf("%s: got %d/%s", tc.name, got.Status, got.Code)
		}
	}
	if msg := From(errs.ErrInsufficientData).Error(); msg != NoRecommendationMessage {
		t.Fatalf("user message: %q", msg)
	}
	if msg := From(errors.New("secret dsn")).Error(); msg != "internal error" {
		t.Fatalf("raw error leaked: %q", msg)
	}
}
