package model

import "errors"

var (
	// Trash related errors
	ErrTrashItemNotFound = errors.New("trash item not found")
	ErrTrashItemExpired  = errors.New("trash item expired")
	ErrUnknownEntityType = errors.New("unknown entity type")

	// Entity related errors
	ErrEntityNotFound  = errors.New("entity not found")
	ErrRestoreConflict = errors.New("restore conflicts with a live row")

	// Sweep related errors
	ErrSweepInProgress  = errors.New("sweep already in progress")
	ErrSweepRunNotFound = errors.New("sweep run not found")

	// Permission/Access related errors
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")

	// Generic errors
	ErrInvalidInput = errors.New("invalid input")
)
