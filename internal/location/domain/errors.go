package domain

import "errors"

var (
	// ErrNotFound covers both a missing location and one the caller may not see.
	ErrNotFound      = errors.New("location not found")
	ErrShareNotFound = errors.New("share link not found")
	ErrForbidden     = errors.New("user not authorized to perform this action")
	ErrAuthRequired  = errors.New("authentication required")
	ErrInvalidInput  = errors.New("invalid input")
	ErrDemoReadOnly  = errors.New("demo locations cannot be modified")
	// ErrImageUnavailable and ErrImageNotStored are what callers see for a
	// failed image; the underlying cause is logged only.
	ErrImageUnavailable = errors.New("image could not be fetched")
	ErrImageNotStored   = errors.New("image could not be stored")
	// ErrRemote marks a failure talking to the store itself (network, auth, driver).
	ErrRemote = errors.New("remote store unavailable")
)
