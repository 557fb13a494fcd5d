package domain

import "errors"

var (
	ErrNotFound      = errors.New("not found")
	ErrConflict      = errors.New("conflict")
	ErrValidation    = errors.New("validation failed")
	ErrNoData        = errors.New("no data")
	ErrProvider      = errors.New("rate provider failed")
	ErrQuotaExceeded = errors.New("rate provider quota exceeded")
	ErrMissingQuote  = errors.New("missing quote")
	ErrPersistence   = errors.New("persistence failed")
)
