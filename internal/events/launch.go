package events

// Event type constants for launch events.
const (
	TypeLaunchCreated      = "launch_created"
	TypeStageChanged       = "stage_changed"
	TypeSessionsSpawned    = "sessions_spawned"
	TypeLaunchCompleted    = "launch_completed"
	TypeLaunchAborted      = "launch_aborted"
	TypeLaunchStuck        = "launch_stuck"
	TypeSynthesisRetried   = "synthesis_retried"
	TypeChatReplyProduced  = "chat_reply_produced"
	TypeDiscussionAdvanced = "discussion_advanced"
)

// LaunchCreatedEvent is emitted when a launch is created and its member
// sessions have been spawned.
type LaunchCreatedEvent struct {
	BaseEvent
	CouncilID  string   `json:"council_id"`
	SessionIDs []string `json:"session_ids"`
}

// NewLaunchCreatedEvent creates a new launch created event.
func NewLaunchCreatedEvent(launchID, councilID string, sessionIDs []string) LaunchCreatedEvent {
	return LaunchCreatedEvent{
		BaseEvent:  NewBaseEvent(TypeLaunchCreated, launchID),
		CouncilID:  councilID,
		SessionIDs: sessionIDs,
	}
}

// StageChangedEvent is emitted on every successful stage transition.
type StageChangedEvent struct {
	BaseEvent
	Stage string `json:"stage"`
}

// NewStageChangedEvent creates a new stage changed event.
func NewStageChangedEvent(launchID, stage string) StageChangedEvent {
	return StageChangedEvent{
		BaseEvent: NewBaseEvent(TypeStageChanged, launchID),
		Stage:     stage,
	}
}

// SessionsSpawnedEvent is emitted when a batch of sessions is started
// for a stage.
type SessionsSpawnedEvent struct {
	BaseEvent
	Stage      string   `json:"stage"`
	SessionIDs []string `json:"session_ids"`
}

// NewSessionsSpawnedEvent creates a new sessions spawned event.
func NewSessionsSpawnedEvent(launchID, stage string, sessionIDs []string) SessionsSpawnedEvent {
	return SessionsSpawnedEvent{
		BaseEvent:  NewBaseEvent(TypeSessionsSpawned, launchID),
		Stage:      stage,
		SessionIDs: sessionIDs,
	}
}

// LaunchCompletedEvent is emitted when a launch reaches complete.
type LaunchCompletedEvent struct {
	BaseEvent
	Chairman bool `json:"chairman"`
}

// NewLaunchCompletedEvent creates a new launch completed event.
func NewLaunchCompletedEvent(launchID string, chairman bool) LaunchCompletedEvent {
	return LaunchCompletedEvent{
		BaseEvent: NewBaseEvent(TypeLaunchCompleted, launchID),
		Chairman:  chairman,
	}
}

// LaunchAbortedEvent is emitted when a launch is aborted.
type LaunchAbortedEvent struct {
	BaseEvent
	FromStage string `json:"from_stage"`
}

// NewLaunchAbortedEvent creates a new launch aborted event.
func NewLaunchAbortedEvent(launchID, fromStage string) LaunchAbortedEvent {
	return LaunchAbortedEvent{
		BaseEvent: NewBaseEvent(TypeLaunchAborted, launchID),
		FromStage: fromStage,
	}
}

// LaunchStuckEvent is emitted when synthesis retries are exhausted and
// the launch remains in synthesizing for operator attention.
type LaunchStuckEvent struct {
	BaseEvent
	Stage    string `json:"stage"`
	Error    string `json:"error"`
	Attempts int    `json:"attempts"`
}

// NewLaunchStuckEvent creates a new launch stuck event.
func NewLaunchStuckEvent(launchID, stage, errMsg string, attempts int) LaunchStuckEvent {
	return LaunchStuckEvent{
		BaseEvent: NewBaseEvent(TypeLaunchStuck, launchID),
		Stage:     stage,
		Error:     errMsg,
		Attempts:  attempts,
	}
}

// SynthesisRetriedEvent is emitted on each synthesis retry.
type SynthesisRetriedEvent struct {
	BaseEvent
	Attempt int    `json:"attempt"`
	Error   string `json:"error"`
}

// NewSynthesisRetriedEvent creates a new synthesis retried event.
func NewSynthesisRetriedEvent(launchID string, attempt int, errMsg string) SynthesisRetriedEvent {
	return SynthesisRetriedEvent{
		BaseEvent: NewBaseEvent(TypeSynthesisRetried, launchID),
		Attempt:   attempt,
		Error:     errMsg,
	}
}

// DiscussionAdvancedEvent is emitted when a new discussion round starts.
type DiscussionAdvancedEvent struct {
	BaseEvent
	Round int `json:"round"`
}

// NewDiscussionAdvancedEvent creates a new discussion advanced event.
func NewDiscussionAdvancedEvent(launchID string, round int) DiscussionAdvancedEvent {
	return DiscussionAdvancedEvent{
		BaseEvent: NewBaseEvent(TypeDiscussionAdvanced, launchID),
		Round:     round,
	}
}

// ChatReplyProducedEvent is emitted when a post-completion chat turn
// produces a reply.
type ChatReplyProducedEvent struct {
	BaseEvent
}

// NewChatReplyProducedEvent creates a new chat reply event.
func NewChatReplyProducedEvent(launchID string) ChatReplyProducedEvent {
	return ChatReplyProducedEvent{
		BaseEvent: NewBaseEvent(TypeChatReplyProduced, launchID),
	}
}
