package service

import (
	"context"
	"fmt"
	"sync"

	"github.com/conclave-ai/conclave/internal/core"
)

// fakeRuntime completes every session synchronously with the result of
// the respond function, so Step evaluations see finished sessions on
// the very next call.
type fakeRuntime struct {
	mu       sync.Mutex
	seq      int
	sessions map[core.SessionID]core.SessionState
	prompts  map[core.SessionID]string
	stopped  map[core.SessionID]bool
	startErr map[core.AgentID]error
	respond  func(agent core.AgentID, prompt string) (string, error)
}

func newFakeRuntime(respond func(agent core.AgentID, prompt string) (string, error)) *fakeRuntime {
	return &fakeRuntime{
		sessions: make(map[core.SessionID]core.SessionState),
		prompts:  make(map[core.SessionID]string),
		stopped:  make(map[core.SessionID]bool),
		startErr: make(map[core.AgentID]error),
		respond:  respond,
	}
}

func (r *fakeRuntime) StartSession(_ context.Context, agentID core.AgentID, _, prompt string) (core.SessionID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.startErr[agentID]; err != nil {
		return "", err
	}

	r.seq++
	id := core.SessionID(fmt.Sprintf("sess-%d", r.seq))
	r.prompts[id] = prompt

	state := core.SessionState{ID: id, AgentID: agentID}
	out, err := r.respond(agentID, prompt)
	if err != nil {
		state.Status = core.SessionFailed
		state.Error = err.Error()
	} else {
		state.Status = core.SessionCompleted
		state.Result = out
	}
	r.sessions[id] = state
	return id, nil
}

func (r *fakeRuntime) SessionStatus(_ context.Context, id core.SessionID) (core.SessionState, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	state, ok := r.sessions[id]
	if !ok {
		return core.SessionState{ID: id, Status: core.SessionFailed, Error: "session not found"}, nil
	}
	return state, nil
}

func (r *fakeRuntime) StopSession(_ context.Context, id core.SessionID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stopped[id] = true
}

func (r *fakeRuntime) stoppedCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.stopped)
}

type invokeReply struct {
	out string
	err error
}

// fakeInvoker replays a scripted sequence of replies, then falls back
// to a fixed reply.
type fakeInvoker struct {
	mu      sync.Mutex
	script  []invokeReply
	reply   string
	err     error
	calls   int
	prompts []string
	agents  []core.AgentID
}

func (f *fakeInvoker) Name() string { return "fake" }

func (f *fakeInvoker) Invoke(_ context.Context, agentID core.AgentID, prompt string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls++
	f.prompts = append(f.prompts, prompt)
	f.agents = append(f.agents, agentID)

	if len(f.script) > 0 {
		next := f.script[0]
		f.script = f.script[1:]
		return next.out, next.err
	}
	return f.reply, f.err
}

func (f *fakeInvoker) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func (f *fakeInvoker) lastAgent() core.AgentID {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.agents) == 0 {
		return ""
	}
	return f.agents[len(f.agents)-1]
}
