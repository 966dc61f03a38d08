package extraction

import "errors"

// Sentinel errors for the extraction pipeline.
var (
	ErrInvalidInput      = errors.New("invalid listing url")
	ErrUpstreamRejected  = errors.New("extraction service rejected submission")
	ErrPoll              = errors.New("extraction status poll failed")
	ErrExtractionFailed  = errors.New("extraction failed with no salvageable data")
	ErrExtractionTimeout = errors.New("extraction poll budget exhausted")
)
