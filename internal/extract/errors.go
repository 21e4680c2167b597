package extract

import "errors"

var (
	// ErrInvalidPattern is returned when a rule or pattern file is malformed.
	ErrInvalidPattern = errors.New("invalid pattern")
	// ErrExtractionFailed is returned when extraction fails as a whole.
	ErrExtractionFailed = errors.New("extraction failed")
)
