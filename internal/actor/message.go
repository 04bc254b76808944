package actor

// ReplyPolicy controls whether the engine delivers a reply to the
// originating actor after a sub-invocation resolves.
type ReplyPolicy int

const (
	// ReplyNever delivers no reply. A sub-failure propagates as the
	// parent's failure.
	ReplyNever ReplyPolicy = iota

	// ReplyOnSuccess delivers a reply only if the sub-invocation
	// succeeded; a sub-failure propagates without a reply.
	ReplyOnSuccess

	// ReplyOnFailure delivers a reply only if the sub-invocation
	// failed; a sub-success continues without a reply.
	ReplyOnFailure

	// ReplyAlways delivers a reply regardless of the sub-outcome.
	ReplyAlways
)

// String returns the policy name used in traces and scenario files.
func (p ReplyPolicy) String() string {
	switch p {
	case ReplyNever:
		return "never"
	case ReplyOnSuccess:
		return "on_success"
	case ReplyOnFailure:
		return "on_failure"
	case ReplyAlways:
		return "always"
	default:
		return "unknown"
	}
}

// Wants reports whether the policy calls for a reply given the
// sub-invocation's outcome.
func (p ReplyPolicy) Wants(sub Outcome) bool {
	switch p {
	case ReplyOnSuccess:
		return sub.OK()
	case ReplyOnFailure:
		return !sub.OK()
	case ReplyAlways:
		return true
	default:
		return false
	}
}

// Request is a sub-invocation an actor wants scheduled as part of its
// result. Requests execute strictly in emission order; each observes
// the cumulative snapshot state of all prior siblings.
//
// CorrelationID is caller-assigned and echoed back verbatim in the
// reply envelope; the engine attaches no meaning to it.
type Request struct {
	Target        ID
	Payload       []byte
	Policy        ReplyPolicy
	CorrelationID uint64
}

// Event is one ordered key/value attribute emitted by a handler.
// Events from committed nodes are preserved in emission order for
// observability; events from discarded subtrees are dropped.
type Event struct {
	Key   string
	Value string
}

// Result is what a handler (invocation or reply) returns: staged
// events and data, a tagged outcome, and the sub-invocations to
// schedule. Requests of a failed handler are never scheduled.
type Result struct {
	Events   []Event
	Data     []byte
	Outcome  Outcome
	Requests []Request
}

// Failure builds a Result that carries only a failure outcome.
func Failure(code FailureCode, reason string) Result {
	return Result{Outcome: Fail(code, reason)}
}

// Envelope reports a sub-invocation's outcome to the originating
// actor's reply handler. Events and Data are the sub-invocation's own;
// on sub-failure they are empty (the sub's effects were discarded).
type Envelope struct {
	CorrelationID uint64
	Outcome       Outcome
	Events        []Event
	Data          []byte
}
