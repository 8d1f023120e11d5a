package store

import "errors"

// Typed failures the state store surfaces; the REST surface maps these to
// status codes per spec §6/§7.
var (
	ErrNotFound  = errors.New("not found")
	ErrConflict  = errors.New("natural-key collision")
	ErrForbidden = errors.New("not a member of target group")
)
