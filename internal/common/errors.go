package common

import "errors"

var (
	// ErrRecordNotFound is returned by stores when a well-formed identifier matches nothing.
	ErrRecordNotFound = errors.New("record not found")

	// ErrInvalidID is returned by stores before any lookup when an identifier is malformed.
	ErrInvalidID = errors.New("malformatted id")
)
