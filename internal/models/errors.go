package models

import "errors"

// validation errors
var (
	ErrJobMissingRunAt     = errors.New("one-shot job requires run_at")
	ErrJobBadInterval      = errors.New("recurring job requires a known interval")
	ErrJobBadKind          = errors.New("unknown job kind")
	ErrJobMissingRecipient = errors.New("job recipient is required")
)
