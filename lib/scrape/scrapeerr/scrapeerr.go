// Package scrapeerr holds the failure taxonomy shared by every layer of the
// scraping stack. Callers are expected to dispatch with errors.Is against the
// sentinels here rather than matching message text.
package scrapeerr

import (
	"errors"
	"fmt"
)

var (
	// ErrBadCredentials is raised when a source explicitly rejects the
	// login or one-time code. It is never used for transport problems.
	ErrBadCredentials = errors.New("incorrect login or password")

	// ErrActionNeeded is raised when the source demands an out-of-band
	// user action (accept new terms, acknowledge a notice) before any
	// data can be reached. Not retried automatically.
	ErrActionNeeded = errors.New("user action needed on the website")

	// ErrExtraction covers a locator that matched nothing without a
	// declared default, and coercion failures. It signals a source
	// format regression and is fatal for the current operation.
	ErrExtraction = errors.New("extraction failed")

	// ErrUnknownPage is raised when no page kind matched a document.
	ErrUnknownPage = errors.New("page could not be classified")

	// ErrLoginLoop is raised when the login step limit is exceeded,
	// which bounds runaway loops from unexpected page kinds.
	ErrLoginLoop = errors.New("login did not converge")
)

// BadCredentials wraps the source's own error text so the caller can render
// it while still matching ErrBadCredentials.
func BadCredentials(msg string) error {
	if msg == "" {
		return ErrBadCredentials
	}
	return fmt.Errorf("%w: %s", ErrBadCredentials, msg)
}

// ActionNeeded carries the source's own message text.
func ActionNeeded(msg string) error {
	if msg == "" {
		return ErrActionNeeded
	}
	return fmt.Errorf("%w: %s", ErrActionNeeded, msg)
}

// StatusError is a transport failure passed through from the HTTP layer.
// Sources may translate specific codes into domain failures, see Translate.
type StatusError struct {
	Code int
	URL  string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d from %s", e.Code, e.URL)
}

// Translate maps unauthorized/forbidden responses to ErrBadCredentials and
// leaves every other status untouched.
func Translate(err error) error {
	var status *StatusError
	if errors.As(err, &status) && (status.Code == 401 || status.Code == 403) {
		return fmt.Errorf("%w: %v", ErrBadCredentials, err)
	}
	return err
}
