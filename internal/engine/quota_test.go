package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/calyxlab/calyx/internal/actor"
)

// recursiveActor schedules itself forever; only the engine's limits
// stop it.
func recursiveActor(self actor.ID) *invokeActor {
	return &invokeActor{
		fn: func(ctx context.Context, st actor.State, payload []byte) actor.Result {
			return actor.Result{
				Outcome:  actor.Success(),
				Requests: []actor.Request{{Target: self, Policy: actor.ReplyNever}},
			}
		},
	}
}

func TestStepQuota(t *testing.T) {
	q := NewStepQuota(2)
	assert.Equal(t, 2, q.MaxSteps())
	assert.Equal(t, 0, q.Current())

	require.NoError(t, q.Check("flow-1"))
	require.NoError(t, q.Check("flow-1"))
	assert.Equal(t, 2, q.Current())

	err := q.Check("flow-1")
	require.Error(t, err)

	var exceeded *StepsExceededError
	require.ErrorAs(t, err, &exceeded)
	assert.Equal(t, "flow-1", exceeded.FlowToken)
	assert.Equal(t, 3, exceeded.Steps)
	assert.Equal(t, 2, exceeded.Limit)
}

func TestInvoke_DepthLimit(t *testing.T) {
	s := setupStore(t)
	reg := actor.NewRegistry()
	require.NoError(t, reg.Register("loop", recursiveActor("loop")))

	eng := New(s, reg, fixedTokens(), WithMaxDepth(5))
	receipt, err := eng.Invoke(context.Background(), "loop", nil)
	require.NoError(t, err)

	assert.False(t, receipt.Outcome.OK())
	assert.Equal(t, actor.CodeDepthExceeded, receipt.Outcome.Code())

	// Root at depth 0 plus five nested calls ran; the sixth was cut
	// off before its handler.
	assert.Len(t, receipt.Trace, 7)
}

func TestInvoke_StepQuota(t *testing.T) {
	s := setupStore(t)
	reg := actor.NewRegistry()
	require.NoError(t, reg.Register("loop", recursiveActor("loop")))

	eng := New(s, reg, fixedTokens(), WithMaxDepth(100), WithMaxSteps(3))
	receipt, err := eng.Invoke(context.Background(), "loop", nil)
	require.NoError(t, err)

	assert.False(t, receipt.Outcome.OK())
	assert.Equal(t, actor.CodeStepsExceeded, receipt.Outcome.Code())
}

func TestInvoke_LimitFailureIsRolledBack(t *testing.T) {
	s := setupStore(t)
	reg := actor.NewRegistry()
	require.NoError(t, reg.Register("loop", &invokeActor{
		fn: func(ctx context.Context, st actor.State, payload []byte) actor.Result {
			st.Set("depth-marker", []byte("1"))
			return actor.Result{
				Outcome:  actor.Success(),
				Requests: []actor.Request{{Target: "loop", Policy: actor.ReplyNever}},
			}
		},
	}))

	eng := New(s, reg, fixedTokens(), WithMaxDepth(4))
	receipt, err := eng.Invoke(context.Background(), "loop", nil)
	require.NoError(t, err)
	require.False(t, receipt.Outcome.OK())

	_, ok, err := s.GetState(context.Background(), "loop", "depth-marker")
	require.NoError(t, err)
	assert.False(t, ok, "writes of a depth-limited tree must not commit")
}

func TestClock(t *testing.T) {
	c := NewClock()
	assert.Equal(t, int64(0), c.Current())
	assert.Equal(t, int64(1), c.Next())
	assert.Equal(t, int64(2), c.Next())
	assert.Equal(t, int64(2), c.Current())

	c = NewClockAt(41)
	assert.Equal(t, int64(42), c.Next())
}
