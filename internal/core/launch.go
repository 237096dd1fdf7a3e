package core

import (
	"time"

	"github.com/google/uuid"
)

// LaunchID uniquely identifies a council launch.
type LaunchID string

// SessionID identifies one agent session in the Session Runtime.
type SessionID string

// MemberOutput is the recorded result of one member or review session.
// A session that failed or never finished is recorded with Failed set
// and empty content; deliberation proceeds without it.
type MemberOutput struct {
	AgentID   AgentID   `json:"agent_id"`
	SessionID SessionID `json:"session_id"`
	Content   string    `json:"content,omitempty"`
	Failed    bool      `json:"failed,omitempty"`
}

// CouncilLaunch is one run of a council against one prompt, the
// engine's aggregate root. Stage moves only forward along the
// deliberation DAG; aborted is reachable from any non-terminal stage.
type CouncilLaunch struct {
	ID        LaunchID  `json:"id"`
	CouncilID CouncilID `json:"council_id"`
	ProjectID string    `json:"project_id"`
	Prompt    string    `json:"prompt"`

	Stage Stage `json:"stage"`

	MemberSessionIDs     []SessionID `json:"member_session_ids"`
	ReviewSessionIDs     []SessionID `json:"review_session_ids,omitempty"`
	DiscussionSessionIDs []SessionID `json:"discussion_session_ids,omitempty"`
	DiscussionRound      int         `json:"discussion_round,omitempty"`

	MemberAnswers []MemberOutput `json:"member_answers,omitempty"`
	Reviews       []MemberOutput `json:"reviews,omitempty"`

	// Synthesis is set exactly once, on the transition into complete,
	// and is immutable thereafter.
	Synthesis string `json:"synthesis,omitempty"`
	Error     string `json:"error,omitempty"`

	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
	StageEnteredAt time.Time `json:"stage_entered_at"`
}

// NewLaunch creates a launch in the responding stage. Session IDs are
// attached by the store once the member sessions have been spawned.
func NewLaunch(council *Council, projectID, prompt string) (*CouncilLaunch, error) {
	if err := council.Validate(); err != nil {
		return nil, err
	}
	if prompt == "" {
		return nil, ErrValidation(CodeEmptyPrompt, "launch prompt cannot be empty")
	}
	if len(prompt) > MaxPromptLength {
		return nil, ErrValidation(CodePromptTooLong, "launch prompt exceeds maximum length")
	}
	now := time.Now()
	return &CouncilLaunch{
		ID:             LaunchID(uuid.New().String()),
		CouncilID:      council.ID,
		ProjectID:      projectID,
		Prompt:         prompt,
		Stage:          StageResponding,
		CreatedAt:      now,
		UpdatedAt:      now,
		StageEnteredAt: now,
	}, nil
}

// IsTerminal returns true if the launch is complete or aborted.
func (l *CouncilLaunch) IsTerminal() bool {
	return l.Stage.IsTerminal()
}

// EnterStage records a stage transition on the aggregate. Callers are
// responsible for going through the store's conditional write.
func (l *CouncilLaunch) EnterStage(next Stage) {
	now := time.Now()
	l.Stage = next
	l.StageEnteredAt = now
	l.UpdatedAt = now
}

// Validate checks launch invariants.
func (l *CouncilLaunch) Validate() error {
	if l.ID == "" {
		return ErrValidation("LAUNCH_ID_REQUIRED", "launch ID cannot be empty")
	}
	if l.Prompt == "" {
		return ErrValidation(CodeEmptyPrompt, "launch prompt cannot be empty")
	}
	if !ValidStage(l.Stage) {
		return ErrValidation(CodeInvalidStage, "invalid stage: "+string(l.Stage))
	}
	if (l.Synthesis != "") != (l.Stage == StageComplete) {
		return ErrState(CodeStateCorrupted, "synthesis must be set exactly when stage is complete")
	}
	return nil
}

// DiscussionMessage is one entry in a launch's append-only discussion
// log, produced during the optional discussing stage.
type DiscussionMessage struct {
	ID        string    `json:"id"`
	LaunchID  LaunchID  `json:"launch_id"`
	Round     int       `json:"round"`
	AgentID   AgentID   `json:"agent_id"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// ChatMessage is one turn of the post-completion conversation. Chat is
// decoupled from the deliberation transcript and never mutates stage
// or synthesis.
type ChatMessage struct {
	ID        string    `json:"id"`
	LaunchID  LaunchID  `json:"launch_id"`
	Role      string    `json:"role"` // "user", "council"
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// LogEntry is a launch-scoped observability record.
type LogEntry struct {
	ID        string    `json:"id"`
	LaunchID  LaunchID  `json:"launch_id"`
	Level     string    `json:"level"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}

// NewLogEntry creates a launch log entry.
func NewLogEntry(launchID LaunchID, level, message string) *LogEntry {
	return &LogEntry{
		ID:        uuid.New().String(),
		LaunchID:  launchID,
		Level:     level,
		Message:   message,
		CreatedAt: time.Now(),
	}
}
