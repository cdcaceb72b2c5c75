package tethbox

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrExpired is returned by an inbox poll once the server forgot the account
	ErrExpired = errors.New("account expired")
	// ErrNoAccount is returned when an operation needs a live account and there is none
	ErrNoAccount = errors.New("no active account")
	// ErrMessageNotFound is returned for unknown message or attachment keys
	ErrMessageNotFound = errors.New("message not found")
	// ErrForbidden is returned when a key belongs to another account
	ErrForbidden = errors.New("access forbidden")
)

// StatusError carries an unexpected HTTP status
type StatusError struct {
	Op         string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("%s: unexpected status %d: %s", e.Op, e.StatusCode, e.Body)
	}
	return fmt.Sprintf("%s: unexpected status %d", e.Op, e.StatusCode)
}

// Unwrap maps well-known statuses onto the package sentinels
func (e *StatusError) Unwrap() error {
	switch e.StatusCode {
	case http.StatusGone:
		return ErrExpired
	case http.StatusNotFound:
		return ErrMessageNotFound
	case http.StatusForbidden:
		return ErrForbidden
	}
	return nil
}

// ValidationError is a 400 response carrying a human readable reason
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Reason
}

// IsExpired reports whether err signals a server-side account expiry
func IsExpired(err error) bool {
	return errors.Is(err, ErrExpired)
}

// IsValidation reports whether err is a server validation failure
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsTransient reports whether err is worth waiting out until the next poll
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if IsExpired(err) || IsValidation(err) ||
		errors.Is(err, ErrMessageNotFound) || errors.Is(err, ErrForbidden) || errors.Is(err, ErrNoAccount) {
		return false
	}
	var se *StatusError
	if errors.As(err, &se) {
		return se.StatusCode >= 500 || se.StatusCode == http.StatusTooManyRequests
	}
	return true
}
