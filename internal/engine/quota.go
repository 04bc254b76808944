package engine

import "fmt"

// StepQuota bounds the number of nodes one invocation tree may
// execute. It catches linear explosions and unbounded self-recursion
// alike: every node execution counts one step, so together with the
// depth limit it guarantees termination of any tree.
//
// Each flow gets its own StepQuota instance.
type StepQuota struct {
	maxSteps int
	current  int
}

// NewStepQuota creates a quota with the given limit.
func NewStepQuota(maxSteps int) *StepQuota {
	return &StepQuota{maxSteps: maxSteps}
}

// Check increments the step counter and validates against the limit.
// Called once per node execution, before the handler runs.
func (q *StepQuota) Check(flowToken string) error {
	q.current++
	if q.current > q.maxSteps {
		return &StepsExceededError{
			FlowToken: flowToken,
			Steps:     q.current,
			Limit:     q.maxSteps,
		}
	}
	return nil
}

// Current returns the current step count.
// Used for logging and diagnostics.
func (q *StepQuota) Current() int {
	return q.current
}

// MaxSteps returns the configured limit.
func (q *StepQuota) MaxSteps() int {
	return q.maxSteps
}

// StepsExceededError is returned when a flow exceeds its step quota.
// The executor converts it into a StepsExceeded failure outcome for
// the node that tripped it.
type StepsExceededError struct {
	FlowToken string
	Steps     int
	Limit     int
}

// Error implements the error interface.
func (e *StepsExceededError) Error() string {
	return fmt.Sprintf("flow %s exceeded max steps (%d > %d)", e.FlowToken, e.Steps, e.Limit)
}
