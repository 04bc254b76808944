package actor

import "fmt"

// FailureCode categorizes invocation failures. Failures are values
// that unwind the invocation tree; they are never raised as panics.
type FailureCode string

const (
	// CodeNotFound indicates the target actor is not registered.
	CodeNotFound FailureCode = "NOT_FOUND"

	// CodeHandlerFailure indicates an actor-reported business failure.
	CodeHandlerFailure FailureCode = "HANDLER_FAILURE"

	// CodeStorageRead indicates a key that should load failed to.
	CodeStorageRead FailureCode = "STORAGE_READ"

	// CodePolicyViolation indicates a handler used the reply path in a
	// way the host disallows (e.g. scheduling sub-invocations from a
	// reply when the engine forbids it, or a reply policy naming an
	// actor without the reply capability).
	CodePolicyViolation FailureCode = "POLICY_VIOLATION"

	// CodeDepthExceeded indicates the invocation tree grew past the
	// engine's depth limit.
	CodeDepthExceeded FailureCode = "DEPTH_EXCEEDED"

	// CodeStepsExceeded indicates the flow exceeded its step quota.
	CodeStepsExceeded FailureCode = "STEPS_EXCEEDED"
)

// Outcome is the tagged Success/Failure result of one invocation node.
// The zero value is a Failure with no code; construct outcomes with
// Success or Fail.
type Outcome struct {
	ok     bool
	code   FailureCode
	reason string
}

// Success returns the success outcome.
func Success() Outcome {
	return Outcome{ok: true}
}

// Fail returns a failure outcome with the given code and reason.
func Fail(code FailureCode, reason string) Outcome {
	return Outcome{code: code, reason: reason}
}

// Failf returns a handler-reported business failure with a formatted
// reason. Shorthand for the most common failure actors produce.
func Failf(format string, args ...any) Outcome {
	return Fail(CodeHandlerFailure, fmt.Sprintf(format, args...))
}

// OK reports whether the outcome is Success.
func (o Outcome) OK() bool { return o.ok }

// Code returns the failure code, or "" for Success.
func (o Outcome) Code() FailureCode {
	if o.ok {
		return ""
	}
	return o.code
}

// Reason returns the failure reason, or "" for Success.
func (o Outcome) Reason() string {
	if o.ok {
		return ""
	}
	return o.reason
}

// String renders the outcome for logs and traces.
func (o Outcome) String() string {
	if o.ok {
		return "Success"
	}
	if o.reason == "" {
		return fmt.Sprintf("Failure(%s)", o.code)
	}
	return fmt.Sprintf("Failure(%s: %s)", o.code, o.reason)
}
