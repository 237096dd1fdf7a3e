package core

import (
	"context"
	"time"
)

// =============================================================================
// Session Runtime Port
// =============================================================================

// SessionStatus is the runtime state of one agent session.
type SessionStatus string

const (
	SessionRunning   SessionStatus = "running"
	SessionCompleted SessionStatus = "completed"
	SessionFailed    SessionStatus = "failed"
	SessionStopped   SessionStatus = "stopped"
)

// IsTerminal returns true once the session can no longer make progress.
func (s SessionStatus) IsTerminal() bool {
	return s == SessionCompleted || s == SessionFailed || s == SessionStopped
}

// SessionState is the observed state of a session: its status and, once
// terminal, its final text result.
type SessionState struct {
	ID        SessionID     `json:"id"`
	AgentID   AgentID       `json:"agent_id"`
	Status    SessionStatus `json:"status"`
	Result    string        `json:"result,omitempty"`
	Error     string        `json:"error,omitempty"`
	StartedAt time.Time     `json:"started_at"`
}

// SessionRuntime is the engine's narrow view of the external session
// collaborator. The engine never blocks on a session; it starts them
// and polls status.
type SessionRuntime interface {
	// StartSession creates and runs one session to completion in the
	// background, returning its ID immediately.
	StartSession(ctx context.Context, agentID AgentID, projectID, prompt string) (SessionID, error)

	// SessionStatus reports the current state of a session.
	SessionStatus(ctx context.Context, id SessionID) (SessionState, error)
}

// AgentInvoker executes a single prompt for one agent and returns its
// output. Adapters wrap CLI processes or APIs behind this contract.
type AgentInvoker interface {
	// Name returns the invoker identifier.
	Name() string

	// Invoke runs the prompt to completion.
	Invoke(ctx context.Context, agentID AgentID, prompt string) (string, error)
}

// =============================================================================
// Launch Store Port
// =============================================================================

// LaunchMutator applies in-place changes to a launch inside a
// conditional transition. Returning an error aborts the whole write.
type LaunchMutator func(*CouncilLaunch) error

// LaunchStore is the durable record of councils and launches. It is the
// single source of truth for stage; TryTransition is the only mutation
// path for it.
type LaunchStore interface {
	// Councils.
	SaveCouncil(ctx context.Context, c *Council) error
	GetCouncil(ctx context.Context, id CouncilID) (*Council, error)
	ListCouncils(ctx context.Context) ([]*Council, error)
	DeleteCouncil(ctx context.Context, id CouncilID) error

	// CreateLaunch persists a new launch with its member session IDs.
	CreateLaunch(ctx context.Context, l *CouncilLaunch) error

	// GetLaunch retrieves a launch by ID. Returns a not_found
	// DomainError if absent.
	GetLaunch(ctx context.Context, id LaunchID) (*CouncilLaunch, error)

	// ListLaunches returns all launches, optionally filtered by
	// council. Ordered by creation time, newest first.
	ListLaunches(ctx context.Context, councilID CouncilID) ([]*CouncilLaunch, error)

	// ListActiveLaunches returns all launches in a non-terminal stage.
	ListActiveLaunches(ctx context.Context) ([]*CouncilLaunch, error)

	// TryTransition atomically applies mutate to the launch iff its
	// current stage equals expected. The whole write is rejected with a
	// stale DomainError otherwise. This compare-and-set is the sole
	// serialization point for concurrent advance attempts.
	TryTransition(ctx context.Context, id LaunchID, expected Stage, mutate LaunchMutator) (*CouncilLaunch, error)

	// Append-only projections.
	AppendDiscussionMessage(ctx context.Context, msg *DiscussionMessage) error
	ListDiscussionMessages(ctx context.Context, id LaunchID) ([]*DiscussionMessage, error)
	AppendChatMessage(ctx context.Context, msg *ChatMessage) error
	ListChatMessages(ctx context.Context, id LaunchID) ([]*ChatMessage, error)
	AppendLog(ctx context.Context, entry *LogEntry) error
	ListLogs(ctx context.Context, id LaunchID) ([]*LogEntry, error)
}
