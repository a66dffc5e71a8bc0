package domain

import "errors"

var (
	// ErrDataUnavailable is returned when neither the persisted nor the bundled catalog can be read.
	ErrDataUnavailable = errors.New("question data unavailable")
	// ErrInvalidQuestion indicates a question whose correct option is not among its options.
	ErrInvalidQuestion = errors.New("invalid question")
	// ErrUnknownPhase is returned when a persisted phase string is not recognised.
	ErrUnknownPhase = errors.New("unknown phase")
	// ErrSnapshotNotFound indicates no snapshot has been persisted yet.
	ErrSnapshotNotFound = errors.New("snapshot not found")
	// ErrMalformedSnapshot indicates a persisted snapshot field could not be decoded.
	ErrMalformedSnapshot = errors.New("malformed snapshot")
)
