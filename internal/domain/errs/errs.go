// Package errs holds the sentinel errors shared across the care engine.
// Callers match them with errors.Is; everything else wraps with %w.
package errs

import "errors"

var (
	// ErrInsufficientData is a result kind, not a failure: the history is too short to answer.
	ErrInsufficientData = errors.New("insufficient watering history")
	// ErrUnavailable is reported by the predictor when no trustworthy model exists.
	ErrUnavailable = errors.New("prediction unavailable")

	ErrArtifactNotFound   = errors.New("model artifact not found")
	ErrArtifactUnreadable = errors.New("model artifact unreadable")

	ErrNotFound        = errors.New("not found")
	ErrInvalidArgument = errors.New("invalid argument")
	ErrConflict        = errors.New("conflict")
)
