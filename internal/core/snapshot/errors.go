package snapshot

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	// ErrUndecodable is wrapped by a ServiceError whose body was neither an
	// image nor a service message.
	ErrUndecodable = errors.New("response is not a decodable image")
	// ErrRateLimited is wrapped by a ServiceError raised locally because the
	// token is still inside a 429 window.
	ErrRateLimited = errors.New("access token is rate limited")
)

// TransportError is a failure to complete the round trip at all.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string { return "snapshot transport: " + e.Err.Error() }

func (e *TransportError) Unwrap() error { return e.Err }

// ServiceError is a response the service sent that is not an image.
type ServiceError struct {
	StatusCode int
	// Message is the "message" field of a JSON error body.
	Message string
	// Reason and Suggestion are human readable. For 429 they are built from
	// the rate-limit headers.
	Reason     string
	Suggestion string
	Err        error
}

func (e *ServiceError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "static api status %d", e.StatusCode)
	switch {
	case e.Message != "":
		b.WriteString(": " + e.Message)
	case e.Reason != "":
		b.WriteString(": " + e.Reason)
	case e.Err != nil:
		b.WriteString(": " + e.Err.Error())
	default:
		if t := http.StatusText(e.StatusCode); t != "" {
			b.WriteString(": " + t)
		}
	}
	return b.String()
}

func (e *ServiceError) Unwrap() error { return e.Err }
