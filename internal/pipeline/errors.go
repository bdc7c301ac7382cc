package pipeline

import (
	"errors"
	"fmt"

	"github.com/kalambet/memoraxx/internal/metrics"
)

var (
	ErrEmptyPrompt     = errors.New("Empty prompt provided")
	ErrMissingResponse = errors.New("No 'response' field in API output")
)

// TransportError wraps a failure that produced no HTTP response.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string { return e.Err.Error() }
func (e *TransportError) Unwrap() error { return e.Err }

// StatusError is a terminal non-200 HTTP response.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string { return fmt.Sprintf("HTTP error: %d", e.Code) }

// ParseError means the response payload was not valid JSON.
type ParseError struct {
	Err error
}

func (e *ParseError) Error() string { return e.Err.Error() }
func (e *ParseError) Unwrap() error { return e.Err }

// failureText renders a terminal failure as the text handed back to the
// caller. Undecodable payloads are marked separately from other errors.
func failureText(err error) string {
	var pe *ParseError
	if errors.As(err, &pe) {
		return "JSON parse error: " + pe.Error()
	}
	return "Error: " + err.Error()
}

// outcome maps a terminal error to its metrics label.
func outcome(err error) string {
	var (
		te *TransportError
		se *StatusError
		pe *ParseError
	)
	switch {
	case err == nil:
		return metrics.OutcomeOK
	case errors.Is(err, ErrEmptyPrompt):
		return metrics.OutcomeInput
	case errors.As(err, &te):
		return metrics.OutcomeTransport
	case errors.As(err, &se):
		return metrics.OutcomeHTTP
	case errors.As(err, &pe), errors.Is(err, ErrMissingResponse):
		return metrics.OutcomePayload
	default:
		return metrics.OutcomeTransport
	}
}
