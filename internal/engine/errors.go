package engine

import (
	"errors"
	"fmt"

	"github.com/calyxlab/calyx/internal/actor"
)

// Failures inside an invocation tree travel as actor.Outcome values,
// never as Go errors: they unwind to the root as data. The error types
// here cover the query path and infrastructure faults, which are
// reported to the host as ordinary errors.

// NotFoundError reports a query against an unregistered actor.
type NotFoundError struct {
	Target actor.ID
}

// Error implements the error interface.
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("actor %s not registered", e.Target)
}

// NoCapabilityError reports a query against an actor that is
// registered but lacks the query capability.
type NoCapabilityError struct {
	Target     actor.ID
	Capability string
}

// Error implements the error interface.
func (e *NoCapabilityError) Error() string {
	return fmt.Sprintf("actor %s has no %s capability", e.Target, e.Capability)
}

// IsNotFound reports whether err is a NotFoundError.
// Uses errors.As to handle wrapped errors.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}
