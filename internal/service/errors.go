package service

import "errors"

// Missing, inactive and not-a-member all map to ErrNotFound so callers
// cannot probe conversation membership.
var (
	ErrNotFound        = errors.New("conversation not found")
	ErrInvalidArgument = errors.New("invalid argument")
	ErrForbidden       = errors.New("forbidden")
)
