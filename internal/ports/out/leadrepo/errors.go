package leadrepo

import "errors"

var (
	// ErrNotFound indicates the requested lead does not exist.
	ErrNotFound = errors.New("lead not found")

	// ErrInvalidLead indicates a lead is missing its ID or identity.
	ErrInvalidLead = errors.New("invalid lead")
)
