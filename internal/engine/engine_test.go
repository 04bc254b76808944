package engine

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/calyxlab/calyx/internal/actor"
	"github.com/calyxlab/calyx/internal/snap"
	"github.com/calyxlab/calyx/internal/store"
	"github.com/calyxlab/calyx/internal/wire"
)

// invokeActor is a test actor with only the invocation capability.
type invokeActor struct {
	fn func(ctx context.Context, st actor.State, payload []byte) actor.Result
}

func (a *invokeActor) HandleInvocation(ctx context.Context, st actor.State, payload []byte) actor.Result {
	return a.fn(ctx, st, payload)
}

// replyingActor adds the reply capability.
type replyingActor struct {
	invokeActor
	onReply func(ctx context.Context, st actor.State, env actor.Envelope) actor.Result
}

func (a *replyingActor) HandleReply(ctx context.Context, st actor.State, env actor.Envelope) actor.Result {
	return a.onReply(ctx, st, env)
}

// queryingActor adds the query capability.
type queryingActor struct {
	invokeActor
	onQuery func(ctx context.Context, st actor.ReadState, payload []byte) ([]byte, error)
}

func (a *queryingActor) HandleQuery(ctx context.Context, st actor.ReadState, payload []byte) ([]byte, error) {
	return a.onQuery(ctx, st, payload)
}

func setupStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(t.TempDir() + "/test.db")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

// seedState commits initial durable state outside any tested tree.
func seedState(t *testing.T, s *store.Store, id actor.ID, key, value string) {
	t.Helper()
	receipt := store.Receipt{FlowToken: "seed-" + string(id) + "-" + key, Target: id, Outcome: actor.Success()}
	require.NoError(t, s.Apply(context.Background(), receipt, []snap.Change{
		{Actor: id, Key: key, Value: []byte(value)},
	}, nil))
}

// fixedTokens returns a generator with enough flow tokens for a test.
func fixedTokens() *wire.FixedGenerator {
	return wire.NewFixedGenerator(
		"flow-1", "flow-2", "flow-3", "flow-4", "flow-5",
	)
}

func TestNew_Defaults(t *testing.T) {
	s := setupStore(t)
	eng := New(s, actor.NewRegistry(), fixedTokens())

	assert.Equal(t, DefaultMaxSteps, eng.maxSteps)
	assert.Equal(t, DefaultMaxDepth, eng.maxDepth)
	assert.True(t, eng.allowReplyRequests)
	assert.NotNil(t, eng.Clock())
}

func TestNew_Options(t *testing.T) {
	s := setupStore(t)
	eng := New(s, actor.NewRegistry(), fixedTokens(),
		WithMaxSteps(10),
		WithMaxDepth(3),
		WithReplyRequests(false),
	)

	assert.Equal(t, 10, eng.maxSteps)
	assert.Equal(t, 3, eng.maxDepth)
	assert.False(t, eng.allowReplyRequests)
}

func TestInvoke_SuccessCommitsWritesAndEvents(t *testing.T) {
	s := setupStore(t)
	reg := actor.NewRegistry()
	require.NoError(t, reg.Register("bank", &invokeActor{
		fn: func(ctx context.Context, st actor.State, payload []byte) actor.Result {
			st.Set("balance", []byte("90"))
			return actor.Result{
				Events:  []actor.Event{{Key: "action", Value: "debit"}},
				Data:    []byte("done"),
				Outcome: actor.Success(),
			}
		},
	}))
	eng := New(s, reg, fixedTokens())

	receipt, err := eng.Invoke(context.Background(), "bank", []byte("debit"))
	require.NoError(t, err)

	assert.Equal(t, "flow-1", receipt.FlowToken)
	assert.True(t, receipt.Outcome.OK())
	assert.Equal(t, []byte("done"), receipt.Data)
	assert.Equal(t, []actor.Event{{Key: "action", Value: "debit"}}, receipt.Events)

	v, ok, err := s.GetState(context.Background(), "bank", "balance")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte("90"), v)

	events, err := s.ReadEvents(context.Background(), "flow-1")
	require.NoError(t, err)
	assert.Equal(t, receipt.Events, events)
}

func TestInvoke_HandlerFailureRollsBack(t *testing.T) {
	s := setupStore(t)
	seedState(t, s, "bank", "balance", "100")

	reg := actor.NewRegistry()
	require.NoError(t, reg.Register("bank", &invokeActor{
		fn: func(ctx context.Context, st actor.State, payload []byte) actor.Result {
			st.Set("balance", []byte("0"))
			return actor.Failure(actor.CodeHandlerFailure, "insufficient funds")
		},
	}))
	eng := New(s, reg, fixedTokens())

	before, err := s.StateDigest(context.Background())
	require.NoError(t, err)

	receipt, err := eng.Invoke(context.Background(), "bank", []byte("debit"))
	require.NoError(t, err)

	assert.False(t, receipt.Outcome.OK())
	assert.Equal(t, actor.CodeHandlerFailure, receipt.Outcome.Code())
	assert.Equal(t, "insufficient funds", receipt.Outcome.Reason())
	assert.Empty(t, receipt.Events)
	assert.Nil(t, receipt.Data)

	after, err := s.StateDigest(context.Background())
	require.NoError(t, err)
	assert.Equal(t, before, after)

	// The failed root is journaled for observability.
	stored, err := s.ReadReceipt(context.Background(), "flow-1")
	require.NoError(t, err)
	assert.False(t, stored.Outcome.OK())
	assert.Equal(t, "insufficient funds", stored.Outcome.Reason())
}

func TestInvoke_UnknownActorIsFailureNotFault(t *testing.T) {
	s := setupStore(t)
	eng := New(s, actor.NewRegistry(), fixedTokens())

	receipt, err := eng.Invoke(context.Background(), "ghost", []byte("x"))
	require.NoError(t, err)

	assert.False(t, receipt.Outcome.OK())
	assert.Equal(t, actor.CodeNotFound, receipt.Outcome.Code())

	// Deterministic across call count.
	receipt2, err := eng.Invoke(context.Background(), "ghost", []byte("x"))
	require.NoError(t, err)
	assert.Equal(t, actor.CodeNotFound, receipt2.Outcome.Code())
}

func TestInvoke_PayloadPassedThroughUnmodified(t *testing.T) {
	s := setupStore(t)
	payload := []byte{0x00, 0xff, 0x10, 0x80}

	var got []byte
	reg := actor.NewRegistry()
	require.NoError(t, reg.Register("sink", &invokeActor{
		fn: func(ctx context.Context, st actor.State, p []byte) actor.Result {
			got = p
			return actor.Result{Outcome: actor.Success()}
		},
	}))
	eng := New(s, reg, fixedTokens())

	_, err := eng.Invoke(context.Background(), "sink", payload)
	require.NoError(t, err)
	assert.Equal(t, payload, got)
}

func TestQuery_ReadsCommittedState(t *testing.T) {
	s := setupStore(t)
	seedState(t, s, "bank", "balance", "100")

	reg := actor.NewRegistry()
	require.NoError(t, reg.Register("bank", &queryingActor{
		onQuery: func(ctx context.Context, st actor.ReadState, payload []byte) ([]byte, error) {
			v, ok, err := st.Get(string(payload))
			if err != nil {
				return nil, err
			}
			if !ok {
				return nil, errors.New("no such key")
			}
			return v, nil
		},
	}))
	eng := New(s, reg, fixedTokens())

	data, err := eng.Query(context.Background(), "bank", []byte("balance"))
	require.NoError(t, err)
	assert.Equal(t, []byte("100"), data)

	_, err = eng.Query(context.Background(), "bank", []byte("missing"))
	assert.Error(t, err)
}

func TestQuery_UnknownActor(t *testing.T) {
	s := setupStore(t)
	eng := New(s, actor.NewRegistry(), fixedTokens())

	_, err := eng.Query(context.Background(), "ghost", nil)
	assert.True(t, IsNotFound(err))
}

func TestQuery_ActorWithoutQueryCapability(t *testing.T) {
	s := setupStore(t)
	reg := actor.NewRegistry()
	require.NoError(t, reg.Register("bank", &invokeActor{
		fn: func(ctx context.Context, st actor.State, payload []byte) actor.Result {
			return actor.Result{Outcome: actor.Success()}
		},
	}))
	eng := New(s, reg, fixedTokens())

	_, err := eng.Query(context.Background(), "bank", nil)
	var nc *NoCapabilityError
	require.ErrorAs(t, err, &nc)
	assert.Equal(t, "query", nc.Capability)
}

func TestQuery_NeverObservesSpeculativeWrites(t *testing.T) {
	s := setupStore(t)
	seedState(t, s, "bank", "balance", "100")

	reg := actor.NewRegistry()
	var eng *Engine // captured by the handler below

	var midQuery []byte
	require.NoError(t, reg.Register("bank", &queryingActor{
		invokeActor: invokeActor{
			fn: func(ctx context.Context, st actor.State, payload []byte) actor.Result {
				st.Set("balance", []byte("0"))
				// A query from an external vantage point, issued while
				// this tree is still in flight, must see committed
				// state only.
				data, err := eng.Query(ctx, "bank", []byte("balance"))
				if err != nil {
					return actor.Result{Outcome: actor.Failf("mid-flight query: %v", err)}
				}
				midQuery = data
				return actor.Result{Outcome: actor.Success()}
			},
		},
		onQuery: func(ctx context.Context, st actor.ReadState, payload []byte) ([]byte, error) {
			v, _, err := st.Get(string(payload))
			return v, err
		},
	}))
	eng = New(s, reg, fixedTokens())

	receipt, err := eng.Invoke(context.Background(), "bank", []byte("zero"))
	require.NoError(t, err)
	require.True(t, receipt.Outcome.OK())

	assert.Equal(t, []byte("100"), midQuery)

	// After commit the query sees the new value.
	data, err := eng.Query(context.Background(), "bank", []byte("balance"))
	require.NoError(t, err)
	assert.Equal(t, []byte("0"), data)
}
