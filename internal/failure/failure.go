// Package failure maps raw generation errors to the user-facing error kinds
// returned by the generation endpoints.
package failure

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind is a user-facing error category
type Kind string

const (
	KindContentBlocked     Kind = "CONTENT_BLOCKED"
	KindServiceUnavailable Kind = "SERVICE_UNAVAILABLE"
	KindArtistReference    Kind = "ARTIST_REFERENCE_BLOCKED"
	KindGenerationFailed   Kind = "GENERATION_FAILED"
	KindUnexpected         Kind = "UNEXPECTED_ERROR"
)

// Error is a classified generation failure
type Error struct {
	Kind        Kind     `json:"errorType"`
	Status      int      `json:"-"`
	Text        string   `json:"error"`
	Message     string   `json:"message"`
	Suggestions []string `json:"suggestions,omitempty"`
	UserPrompt  string   `json:"userPrompt"`

	cause error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Text)
}

func (e *Error) Unwrap() error {
	return e.cause
}

// StatusCoder is implemented by provider errors carrying an HTTP status
type StatusCoder interface {
	HTTPStatus() int
}

// As extracts a classified error from err
func As(err error) (*Error, bool) {
	var fe *Error
	if errors.As(err, &fe) {
		return fe, true
	}
	return nil, false
}

// MissingPrompt is returned when a request arrives without a prompt
func MissingPrompt() *Error {
	return &Error{
		Kind:    KindGenerationFailed,
		Status:  http.StatusBadRequest,
		Text:    "Prompt is required",
		Message: "Please describe the music you want to generate.",
	}
}
