package domain

import "errors"

var (
	ErrNotFound        = errors.New("not found")
	ErrMalformedURN    = errors.New("malformed urn")
	ErrUnknownStrategy = errors.New("unknown boost strategy")
	ErrInvalidRoute    = errors.New("invalid route")
	ErrNotConnected    = errors.New("not connected")
)
