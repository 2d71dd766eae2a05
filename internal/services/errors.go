package services

import "errors"

// Business error taxonomy shared by the reservation and payment services.
// Anything not wrapped in one of these is an infrastructure failure and is
// passed through untouched.
var (
	ErrInvalidInput = errors.New("invalid input")
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrForbidden    = errors.New("forbidden")
)
