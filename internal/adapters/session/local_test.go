package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conclave-ai/conclave/internal/core"
)

// scriptedInvoker returns canned results per agent, optionally blocking
// until released or the context is cancelled.
type scriptedInvoker struct {
	mu      sync.Mutex
	results map[core.AgentID]string
	errs    map[core.AgentID]error
	block   chan struct{}
}

func (s *scriptedInvoker) Name() string { return "scripted" }

func (s *scriptedInvoker) Invoke(ctx context.Context, agentID core.AgentID, _ string) (string, error) {
	if s.block != nil {
		select {
		case <-s.block:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err, ok := s.errs[agentID]; ok {
		return "", err
	}
	return s.results[agentID], nil
}

func waitForTerminal(t *testing.T, rt *LocalRuntime, id core.SessionID) core.SessionState {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		state, err := rt.SessionStatus(context.Background(), id)
		require.NoError(t, err)
		if state.Status.IsTerminal() {
			return state
		}
		select {
		case <-deadline:
			t.Fatalf("session %s never reached a terminal status", id)
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func TestLocalRuntime_CompletedSession(t *testing.T) {
	invoker := &scriptedInvoker{results: map[core.AgentID]string{"claude": "the answer"}}
	rt := NewLocalRuntime(invoker, nil)
	defer rt.Close()

	id, err := rt.StartSession(context.Background(), "claude", "proj", "question")
	require.NoError(t, err)
	require.NotEmpty(t, id)

	state := waitForTerminal(t, rt, id)
	assert.Equal(t, core.SessionCompleted, state.Status)
	assert.Equal(t, "the answer", state.Result)
	assert.Equal(t, core.AgentID("claude"), state.AgentID)
}

func TestLocalRuntime_FailedSession(t *testing.T) {
	invoker := &scriptedInvoker{errs: map[core.AgentID]error{
		"gemini": core.ErrExecution(core.CodeSessionFailed, "agent crashed"),
	}}
	rt := NewLocalRuntime(invoker, nil)
	defer rt.Close()

	id, err := rt.StartSession(context.Background(), "gemini", "proj", "question")
	require.NoError(t, err)

	state := waitForTerminal(t, rt, id)
	assert.Equal(t, core.SessionFailed, state.Status)
	assert.Contains(t, state.Error, "agent crashed")
	assert.Empty(t, state.Result)
}

func TestLocalRuntime_StopSession(t *testing.T) {
	invoker := &scriptedInvoker{block: make(chan struct{})}
	rt := NewLocalRuntime(invoker, nil)
	defer rt.Close()

	id, err := rt.StartSession(context.Background(), "claude", "proj", "question")
	require.NoError(t, err)

	rt.StopSession(context.Background(), id)

	state := waitForTerminal(t, rt, id)
	assert.Equal(t, core.SessionStopped, state.Status)

	// Stopping again is a no-op.
	rt.StopSession(context.Background(), id)
	state, err = rt.SessionStatus(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, core.SessionStopped, state.Status)
}

func TestLocalRuntime_StopKeepsStatusOverLateResult(t *testing.T) {
	block := make(chan struct{})
	invoker := &scriptedInvoker{block: block, results: map[core.AgentID]string{"claude": "late"}}
	rt := NewLocalRuntime(invoker, nil)
	defer rt.Close()

	id, err := rt.StartSession(context.Background(), "claude", "proj", "question")
	require.NoError(t, err)

	rt.StopSession(context.Background(), id)
	close(block) // release the invoker after the stop

	time.Sleep(20 * time.Millisecond)
	state, err := rt.SessionStatus(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, core.SessionStopped, state.Status)
	assert.Empty(t, state.Result)
}

func TestLocalRuntime_UnknownSessionReportsFailed(t *testing.T) {
	rt := NewLocalRuntime(&scriptedInvoker{}, nil)
	defer rt.Close()

	state, err := rt.SessionStatus(context.Background(), "no-such-session")
	require.NoError(t, err)
	assert.Equal(t, core.SessionFailed, state.Status)
	assert.Equal(t, "session not found", state.Error)
}

func TestLocalRuntime_StartRejectsCancelledContext(t *testing.T) {
	rt := NewLocalRuntime(&scriptedInvoker{}, nil)
	defer rt.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := rt.StartSession(ctx, "claude", "proj", "question")
	require.Error(t, err)
}

func TestLocalRuntime_CloseStopsRunningSessions(t *testing.T) {
	invoker := &scriptedInvoker{block: make(chan struct{})}
	rt := NewLocalRuntime(invoker, nil)

	id1, err := rt.StartSession(context.Background(), "claude", "proj", "q")
	require.NoError(t, err)
	id2, err := rt.StartSession(context.Background(), "gemini", "proj", "q")
	require.NoError(t, err)

	rt.Close()

	for _, id := range []core.SessionID{id1, id2} {
		state := waitForTerminal(t, rt, id)
		assert.Equal(t, core.SessionStopped, state.Status)
	}
}
