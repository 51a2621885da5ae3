package agent

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrMaxToolCalls is returned when the model keeps requesting tools.
	ErrMaxToolCalls = errors.New("exceeded maximum tool calls")

	// ErrEmptyResponse is returned when the model stops without any text.
	ErrEmptyResponse = errors.New("model returned an empty response")

	// ErrNoCandidates is returned when Gemini answers without a candidate.
	ErrNoCandidates = errors.New("model returned no candidates")
)

// StatusError is a non-success answer from a model API.
type StatusError struct {
	Provider string
	Code     int
	Body     string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s returned status %d: %s", e.Provider, e.Code, e.Body)
}

// retryable reports whether a failed model call is worth repeating.
// Rate limiting and server errors are; other status codes and cancellation
// are not. Transport errors are.
func retryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Code == http.StatusTooManyRequests || statusErr.Code >= 500
	}
	return true
}
