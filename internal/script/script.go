package script

import (
	"context"
	"fmt"

	"github.com/calyxlab/calyx/internal/actor"
)

// Definition is the data form of one scripted actor. Reply and Query
// rule presence determines the built actor's capabilities: an actor
// with no Reply rules has no reply handler at all, which is how
// policy-violation scenarios are expressed.
type Definition struct {
	ID     string       `json:"id"`
	Invoke []InvokeRule `json:"invoke"`
	Reply  []ReplyRule  `json:"reply,omitempty"`
	Query  []QueryRule  `json:"query,omitempty"`
}

// Effect is the shared body of invoke and reply rules: the state
// mutations, events, data, outcome, and sub-requests the rule
// produces.
type Effect struct {
	Writes   []Write       `json:"writes,omitempty"`
	Deletes  []string      `json:"deletes,omitempty"`
	Events   []actor.Event `json:"events,omitempty"`
	Data     string        `json:"data,omitempty"`
	Fail     *Fail         `json:"fail,omitempty"`
	Requests []RequestSpec `json:"requests,omitempty"`
}

// Write is one key/value the rule stages into the actor's state.
type Write struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Fail marks a rule as producing a business failure.
type Fail struct {
	Reason string `json:"reason"`
}

// RequestSpec is the data form of a sub-invocation request. Policy is
// one of "never", "on_success", "on_failure", "always".
type RequestSpec struct {
	Target        string `json:"target"`
	Payload       string `json:"payload,omitempty"`
	Policy        string `json:"policy"`
	CorrelationID uint64 `json:"correlation_id,omitempty"`
}

// InvokeRule matches an invocation payload. Match is an exact string
// compare; the empty string is the catch-all and should come last.
type InvokeRule struct {
	Match string `json:"match,omitempty"`
	Effect
}

// ReplyRule matches a reply envelope. Correlation 0 matches any
// correlation ID; On is "success", "failure", or "" for either.
type ReplyRule struct {
	Correlation uint64 `json:"correlation,omitempty"`
	On          string `json:"on,omitempty"`
	Effect
}

// QueryRule matches a query payload and responds with either a stored
// key's value (ReadKey) or a literal (Respond).
type QueryRule struct {
	Match   string `json:"match,omitempty"`
	ReadKey string `json:"read_key,omitempty"`
	Respond string `json:"respond,omitempty"`
}

// ParsePolicy converts a scenario policy name to a ReplyPolicy.
func ParsePolicy(s string) (actor.ReplyPolicy, error) {
	switch s {
	case "never", "":
		return actor.ReplyNever, nil
	case "on_success":
		return actor.ReplyOnSuccess, nil
	case "on_failure":
		return actor.ReplyOnFailure, nil
	case "always":
		return actor.ReplyAlways, nil
	default:
		return 0, fmt.Errorf("unknown reply policy %q (want never, on_success, on_failure, always)", s)
	}
}

// Validate checks the definition for problems a scenario author can
// fix: missing ID, unparseable policies, bad reply/query rule shapes.
func (d Definition) Validate() error {
	if d.ID == "" {
		return fmt.Errorf("script actor has no id")
	}
	for i, rule := range d.Invoke {
		if err := rule.Effect.validate(); err != nil {
			return fmt.Errorf("actor %s: invoke rule %d: %w", d.ID, i, err)
		}
	}
	for i, rule := range d.Reply {
		switch rule.On {
		case "", "success", "failure":
		default:
			return fmt.Errorf("actor %s: reply rule %d: on must be success or failure, got %q", d.ID, i, rule.On)
		}
		if err := rule.Effect.validate(); err != nil {
			return fmt.Errorf("actor %s: reply rule %d: %w", d.ID, i, err)
		}
	}
	for i, rule := range d.Query {
		if rule.ReadKey == "" && rule.Respond == "" {
			return fmt.Errorf("actor %s: query rule %d: needs read_key or respond", d.ID, i)
		}
		if rule.ReadKey != "" && rule.Respond != "" {
			return fmt.Errorf("actor %s: query rule %d: read_key and respond are mutually exclusive", d.ID, i)
		}
	}
	return nil
}

func (e Effect) validate() error {
	for _, req := range e.Requests {
		if req.Target == "" {
			return fmt.Errorf("request has no target")
		}
		if _, err := ParsePolicy(req.Policy); err != nil {
			return err
		}
	}
	return nil
}

// Actor is the invoke-only scripted actor. New wraps it with reply
// and query capabilities when the definition declares those rules.
type Actor struct {
	def Definition
}

// New builds a registerable actor from a definition. The returned
// handler's concrete type carries exactly the capabilities the
// definition declares.
func New(def Definition) (actor.Handler, error) {
	if err := def.Validate(); err != nil {
		return nil, err
	}
	base := &Actor{def: def}
	switch {
	case len(def.Reply) > 0 && len(def.Query) > 0:
		return &fullActor{base}, nil
	case len(def.Reply) > 0:
		return &replyActor{base}, nil
	case len(def.Query) > 0:
		return &queryActor{base}, nil
	default:
		return base, nil
	}
}

// HandleInvocation applies the first invoke rule whose Match equals
// the payload, falling back to the catch-all (empty Match). A payload
// no rule covers is a business failure.
func (a *Actor) HandleInvocation(ctx context.Context, st actor.State, payload []byte) actor.Result {
	for _, rule := range a.def.Invoke {
		if rule.Match == string(payload) || rule.Match == "" {
			return rule.Effect.apply(st)
		}
	}
	return actor.Failure(actor.CodeHandlerFailure,
		fmt.Sprintf("actor %s has no rule for payload %q", a.def.ID, payload))
}

// handleReply applies the first reply rule matching the envelope's
// correlation ID and outcome class. With no matching rule the reply
// passes the sub-outcome through unchanged.
func (a *Actor) handleReply(st actor.State, env actor.Envelope) actor.Result {
	for _, rule := range a.def.Reply {
		if rule.Correlation != 0 && rule.Correlation != env.CorrelationID {
			continue
		}
		if rule.On == "success" && !env.Outcome.OK() {
			continue
		}
		if rule.On == "failure" && env.Outcome.OK() {
			continue
		}
		return rule.Effect.apply(st)
	}
	return actor.Result{Outcome: env.Outcome}
}

// handleQuery answers from the first matching query rule.
func (a *Actor) handleQuery(st actor.ReadState, payload []byte) ([]byte, error) {
	for _, rule := range a.def.Query {
		if rule.Match != string(payload) && rule.Match != "" {
			continue
		}
		if rule.Respond != "" {
			return []byte(rule.Respond), nil
		}
		v, ok, err := st.Get(rule.ReadKey)
		if err != nil {
			return nil, fmt.Errorf("actor %s: read %s: %w", a.def.ID, rule.ReadKey, err)
		}
		if !ok {
			return nil, fmt.Errorf("actor %s: key %s not set", a.def.ID, rule.ReadKey)
		}
		return v, nil
	}
	return nil, fmt.Errorf("actor %s has no query rule for payload %q", a.def.ID, payload)
}

// apply stages the effect's mutations and builds the handler result.
// Writes and deletes are staged even when the rule fails: the engine
// discards the snapshot of a failing handler, so scripts can exercise
// exactly that rollback.
func (e Effect) apply(st actor.State) actor.Result {
	for _, w := range e.Writes {
		st.Set(w.Key, []byte(w.Value))
	}
	for _, key := range e.Deletes {
		st.Delete(key)
	}

	if e.Fail != nil {
		return actor.Failure(actor.CodeHandlerFailure, e.Fail.Reason)
	}

	res := actor.Result{
		Events:  e.Events,
		Outcome: actor.Success(),
	}
	if e.Data != "" {
		res.Data = []byte(e.Data)
	}
	for _, req := range e.Requests {
		policy, err := ParsePolicy(req.Policy)
		if err != nil {
			// Validate catches this at build time; a direct Effect is
			// a programming error.
			return actor.Failure(actor.CodeHandlerFailure, err.Error())
		}
		res.Requests = append(res.Requests, actor.Request{
			Target:        actor.ID(req.Target),
			Payload:       []byte(req.Payload),
			Policy:        policy,
			CorrelationID: req.CorrelationID,
		})
	}
	return res
}

type replyActor struct {
	*Actor
}

func (a *replyActor) HandleReply(ctx context.Context, st actor.State, env actor.Envelope) actor.Result {
	return a.handleReply(st, env)
}

type queryActor struct {
	*Actor
}

func (a *queryActor) HandleQuery(ctx context.Context, st actor.ReadState, payload []byte) ([]byte, error) {
	return a.handleQuery(st, payload)
}

type fullActor struct {
	*Actor
}

func (a *fullActor) HandleReply(ctx context.Context, st actor.State, env actor.Envelope) actor.Result {
	return a.handleReply(st, env)
}

func (a *fullActor) HandleQuery(ctx context.Context, st actor.ReadState, payload []byte) ([]byte, error) {
	return a.handleQuery(st, payload)
}
