package analyzer

import "fmt"

// ValidationError rejects input that is not an analyzable http(s) URL.
// No probe runs for rejected input.
type ValidationError struct {
	Input  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid URL format: %s", e.Reason)
}

// InternalError wraps a panic or unexpected failure inside Analyze. It is
// logged and turned into an "unknown" result, never returned.
type InternalError struct {
	Stage string
	Cause error
}

func (e *InternalError) Error() string {
	return fmt.Sprintf("internal error during %s: %v", e.Stage, e.Cause)
}

func (e *InternalError) Unwrap() error { return e.Cause }
