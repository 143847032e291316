package cot

import "errors"

// Domain errors for event decoding.
var (
	// ErrEmptyMessage is returned when the message holds no document.
	ErrEmptyMessage = errors.New("cot: empty message")

	// ErrMalformed is returned when the document is not a well-formed event.
	ErrMalformed = errors.New("cot: malformed event")

	// ErrUnsupportedVersion is returned for events outside schema version 2.
	ErrUnsupportedVersion = errors.New("cot: unsupported version")

	// ErrMissingField is returned when a required event field is absent.
	ErrMissingField = errors.New("cot: missing required field")

	// ErrInvalidTime is returned when a timestamp attribute is not RFC 3339.
	ErrInvalidTime = errors.New("cot: invalid timestamp")
)
