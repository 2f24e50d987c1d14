package apperrors

import "errors"

var (
	ErrNotFound           = errors.New("not found")
	ErrConflict           = errors.New("conflict")
	ErrImportActive       = errors.New("an import is already running for this user")
	ErrMissingCredentials = errors.New("source credentials are not configured")
	ErrUnknownToken       = errors.New("unknown webhook token")
)
