package apiclient

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrUnauthorized marks a 401 from the API. Callers force a logout.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrNetwork marks a request that never produced a usable response.
	ErrNetwork = errors.New("network error")
)

// Error is a response the API produced with a non-success outcome.
type Error struct {
	Status  int
	Message string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api returned status %d", e.Status)
	}
	return fmt.Sprintf("api returned status %d: %s", e.Status, e.Message)
}

func (e *Error) Unwrap() error {
	if e.Status == http.StatusUnauthorized {
		return ErrUnauthorized
	}
	return nil
}

type Kind int

const (
	KindNone Kind = iota
	KindAuth
	KindDomain
	KindNetwork
)

func (k Kind) String() string {
	switch k {
	case KindAuth:
		return "auth"
	case KindDomain:
		return "domain"
	case KindNetwork:
		return "network"
	default:
		return "none"
	}
}

// Classify maps err onto the client error taxonomy.
func Classify(err error) Kind {
	if err == nil {
		return KindNone
	}
	if errors.Is(err, ErrUnauthorized) {
		return KindAuth
	}
	if errors.Is(err, ErrNetwork) {
		return KindNetwork
	}
	var apiErr *Error
	if errors.As(err, &apiErr) {
		if apiErr.Status >= http.StatusInternalServerError {
			return KindNetwork
		}
		return KindDomain
	}
	return KindNetwork
}

// Message returns the server-supplied message for domain errors, fallback
// otherwise.
func Message(err error, fallback string) string {
	var apiErr *Error
	if Classify(err) != KindNetwork && errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return fallback
}

// Status returns the upstream HTTP status, or 0 when no response was read.
func Status(err error) int {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}
	return 0
}
