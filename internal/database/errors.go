// Package database defines the sentinel errors shared by all storage
// backends. The service layer dispatches on these with errors.Is, so every
// backend must map its driver-specific failures onto them.
package database

import "errors"

var (
	// ErrShortCodeExists is returned when an attempt is made to create
	// a new shortened URL with a short code that already exists.
	ErrShortCodeExists = errors.New("short code exists")
	// ErrURLNotFound is returned when an attempt is made to retrieve
	// a URL using a short code that doesn't exist.
	ErrURLNotFound = errors.New("url not found")
	// ErrStoreUnavailable is returned when the storage backend cannot be
	// reached. It is never returned for logical failures such as a missing
	// record or a constraint violation.
	ErrStoreUnavailable = errors.New("store unavailable")
)
