package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Generator turns a prompt into generated text. Every failure it returns
// is a *GenerationError.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// FailureKind classifies why a generation call failed.
type FailureKind int

const (
	// FailureTransport means the backend could not be reached or the
	// call's deadline expired.
	FailureTransport FailureKind = iota + 1
	// FailureRejected means the backend answered with a non-success status.
	FailureRejected
	// FailureEmpty means the backend succeeded but produced no text.
	FailureEmpty
)

func (k FailureKind) String() string {
	switch k {
	case FailureTransport:
		return "transport"
	case FailureRejected:
		return "rejected"
	case FailureEmpty:
		return "empty"
	default:
		return "unknown"
	}
}

// ErrEmptyResult is wrapped by every FailureEmpty error.
var ErrEmptyResult = errors.New("empty response from model backend")

// GenerationError is the typed failure of a Generator.
type GenerationError struct {
	Kind       FailureKind
	Backend    string
	Model      string
	StatusCode int    // set for FailureRejected
	Detail     string // backend error message, if any
	Err        error
}

func (e *GenerationError) Error() string {
	switch e.Kind {
	case FailureRejected:
		msg := fmt.Sprintf("%s rejected the request with status %d", e.Backend, e.StatusCode)
		if e.Detail != "" {
			msg += ": " + e.Detail
		}
		if e.ModelGone() {
			msg += fmt.Sprintf("; model %q is no longer available, set LLM_MODEL to a supported model identifier", e.Model)
		}
		return msg
	case FailureEmpty:
		return fmt.Sprintf("%s: %v", e.Backend, ErrEmptyResult)
	default:
		return fmt.Sprintf("%s request failed: %v", e.Backend, e.Err)
	}
}

func (e *GenerationError) Unwrap() error { return e.Err }

// ModelGone reports whether the backend said the configured model does not
// exist any more.
func (e *GenerationError) ModelGone() bool {
	return e.Kind == FailureRejected &&
		(e.StatusCode == http.StatusGone || e.StatusCode == http.StatusNotFound)
}

// IsFailure reports whether err is a GenerationError of the given kind.
func IsFailure(err error, kind FailureKind) bool {
	var gerr *GenerationError
	return errors.As(err, &gerr) && gerr.Kind == kind
}

func transportError(backend, model string, err error) *GenerationError {
	return &GenerationError{Kind: FailureTransport, Backend: backend, Model: model, Err: err}
}

func rejectedError(backend, model string, status int, detail string, err error) *GenerationError {
	return &GenerationError{
		Kind:       FailureRejected,
		Backend:    backend,
		Model:      model,
		StatusCode: status,
		Detail:     truncate(strings.TrimSpace(detail), 300),
		Err:        err,
	}
}

func emptyError(backend, model string) *GenerationError {
	return &GenerationError{Kind: FailureEmpty, Backend: backend, Model: model, Err: ErrEmptyResult}
}

// finish trims generated text and turns blank output into FailureEmpty.
func finish(backend, model, text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", emptyError(backend, model)
	}
	return text, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
