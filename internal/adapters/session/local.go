package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/conclave-ai/conclave/internal/core"
	"github.com/conclave-ai/conclave/internal/logging"
)

// LocalRuntime runs sessions as in-process goroutines, one per session,
// and keeps their state in memory. Session state is intentionally not
// persisted: after a restart every in-flight session reads as failed,
// and the supervisor re-evaluates the launch from the durable stage.
type LocalRuntime struct {
	invoker core.AgentInvoker
	logger  *logging.Logger

	mu       sync.RWMutex
	sessions map[core.SessionID]*core.SessionState
	cancels  map[core.SessionID]context.CancelFunc
}

// NewLocalRuntime creates a runtime that executes sessions via invoker.
func NewLocalRuntime(invoker core.AgentInvoker, logger *logging.Logger) *LocalRuntime {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &LocalRuntime{
		invoker:  invoker,
		logger:   logger,
		sessions: make(map[core.SessionID]*core.SessionState),
		cancels:  make(map[core.SessionID]context.CancelFunc),
	}
}

// StartSession launches a goroutine invoking the agent and returns
// immediately with the new session's ID. The passed ctx gates only the
// start; the running session is detached so HTTP request cancellation
// does not kill it.
func (r *LocalRuntime) StartSession(ctx context.Context, agentID core.AgentID, projectID, prompt string) (core.SessionID, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	id := core.SessionID(uuid.NewString())
	runCtx, cancel := context.WithCancel(context.Background())

	r.mu.Lock()
	r.sessions[id] = &core.SessionState{
		ID:        id,
		AgentID:   agentID,
		Status:    core.SessionRunning,
		StartedAt: time.Now(),
	}
	r.cancels[id] = cancel
	r.mu.Unlock()

	go r.run(runCtx, id, agentID, prompt)

	r.logger.Debug("session: started",
		"session", id,
		"agent", agentID,
		"project", projectID,
	)
	return id, nil
}

func (r *LocalRuntime) run(ctx context.Context, id core.SessionID, agentID core.AgentID, prompt string) {
	result, err := r.invoker.Invoke(ctx, agentID, prompt)

	r.mu.Lock()
	defer r.mu.Unlock()

	state, ok := r.sessions[id]
	if !ok {
		return
	}
	// StopSession won the race; keep the stopped status.
	if state.Status == core.SessionStopped {
		return
	}
	if err != nil {
		state.Status = core.SessionFailed
		state.Error = err.Error()
	} else {
		state.Status = core.SessionCompleted
		state.Result = result
	}
	delete(r.cancels, id)
}

// SessionStatus returns the current state of a session. Unknown IDs
// report as failed rather than erroring, so the coordinator treats
// sessions lost to a restart as failed members.
func (r *LocalRuntime) SessionStatus(_ context.Context, id core.SessionID) (core.SessionState, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	state, ok := r.sessions[id]
	if !ok {
		return core.SessionState{
			ID:     id,
			Status: core.SessionFailed,
			Error:  "session not found",
		}, nil
	}
	return *state, nil
}

// StopSession cancels a running session. Stopping a terminal or unknown
// session is a no-op.
func (r *LocalRuntime) StopSession(_ context.Context, id core.SessionID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	state, ok := r.sessions[id]
	if !ok || state.Status.IsTerminal() {
		return
	}
	if cancel, ok := r.cancels[id]; ok {
		cancel()
		delete(r.cancels, id)
	}
	state.Status = core.SessionStopped
}

// Close cancels all running sessions.
func (r *LocalRuntime) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, cancel := range r.cancels {
		cancel()
		if state, ok := r.sessions[id]; ok && !state.Status.IsTerminal() {
			state.Status = core.SessionStopped
		}
	}
	r.cancels = make(map[core.SessionID]context.CancelFunc)
}
