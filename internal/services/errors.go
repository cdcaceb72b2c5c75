package services

import (
	"errors"

	"github.com/restan/tethbox/internal/tethbox"
)

// Standard service errors
var (
	ErrInvalidInput    = errors.New("invalid input provided")
	ErrNotFound        = errors.New("resource not found")
	ErrArchiveDisabled = errors.New("archive disabled")
	ErrNoClipboard     = errors.New("no clipboard utility found")
	ErrUnsupportedOS   = errors.New("unsupported platform")
)

// IsRetryableError reports failures the next poll or a manual retry can fix
func IsRetryableError(err error) bool {
	return !IsPermanentError(err) && tethbox.IsTransient(err)
}

// IsPermanentError determines if an error is permanent and should not be retried
func IsPermanentError(err error) bool {
	return errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrArchiveDisabled) ||
		errors.Is(err, tethbox.ErrExpired) ||
		errors.Is(err, tethbox.ErrMessageNotFound) ||
		errors.Is(err, tethbox.ErrForbidden) ||
		tethbox.IsValidation(err)
}
