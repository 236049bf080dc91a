package models

import "errors"

var (
	// ErrMeasurementAmbiguous means no configured pattern matched. Non-fatal.
	ErrMeasurementAmbiguous = errors.New("measurement not found")
	// ErrClassificationSkip marks a line dropped by the classifier. Informational.
	ErrClassificationSkip = errors.New("line skipped")
	// ErrUpstreamDecode means embedded or remote JSON could not be decoded. The
	// current product is abandoned.
	ErrUpstreamDecode = errors.New("upstream decode failed")
	// ErrRemoteFetchExhausted means every attempt returned an empty payload. The
	// combination is dropped.
	ErrRemoteFetchExhausted = errors.New("remote fetch exhausted")
	// ErrInvalidCombination means a combination could not be fully resolved. The
	// combination is dropped.
	ErrInvalidCombination = errors.New("invalid combination")
)
