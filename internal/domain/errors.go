package domain

import "errors"

var (
	ErrValidation = errors.New("validation error")
	ErrNotFound   = errors.New("not found")
	ErrConflict   = errors.New("conflict")
	// ErrUpstream marks failures of external collaborators such as the route optimizer.
	ErrUpstream = errors.New("upstream error")
)
