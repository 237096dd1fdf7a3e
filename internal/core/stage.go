package core

import "fmt"

// Stage represents a launch's position in the deliberation DAG.
type Stage string

const (
	// StageResponding is the first stage: every council member answers
	// the original prompt in its own session.
	StageResponding Stage = "responding"

	// StageDiscussing is an optional stage where members exchange
	// bounded rounds of peer discussion before formal review.
	StageDiscussing Stage = "discussing"

	// StageReviewing is the stage where each member critiques the
	// other members' answers.
	StageReviewing Stage = "reviewing"

	// StageSynthesizing is the stage where one agent (chairman or
	// fallback) condenses the transcript into a single decision.
	StageSynthesizing Stage = "synthesizing"

	// StageComplete is the terminal success stage. Synthesis is set
	// exactly once on entry and is immutable afterwards.
	StageComplete Stage = "complete"

	// StageAborted is the terminal cancellation stage, reachable from
	// any non-terminal stage.
	StageAborted Stage = "aborted"
)

// AllStages returns the forward stages in deliberation order.
func AllStages() []Stage {
	return []Stage{StageResponding, StageDiscussing, StageReviewing, StageSynthesizing, StageComplete}
}

// StageOrder returns the numeric order of a stage (0-indexed).
// Aborted is not part of the forward ordering and returns -1.
func StageOrder(s Stage) int {
	switch s {
	case StageResponding:
		return 0
	case StageDiscussing:
		return 1
	case StageReviewing:
		return 2
	case StageSynthesizing:
		return 3
	case StageComplete:
		return 4
	default:
		return -1
	}
}

// NextStage returns the stage following the given stage for a council
// with or without the discussion stage enabled.
// Returns empty string if the stage is terminal.
func NextStage(s Stage, withDiscussion bool) Stage {
	switch s {
	case StageResponding:
		if withDiscussion {
			return StageDiscussing
		}
		return StageReviewing
	case StageDiscussing:
		return StageReviewing
	case StageReviewing:
		return StageSynthesizing
	case StageSynthesizing:
		return StageComplete
	default:
		return ""
	}
}

// ValidStage checks if a stage string is valid.
func ValidStage(s Stage) bool {
	switch s {
	case StageResponding, StageDiscussing, StageReviewing, StageSynthesizing, StageComplete, StageAborted:
		return true
	default:
		return false
	}
}

// ParseStage converts a string to a Stage with validation.
func ParseStage(s string) (Stage, error) {
	st := Stage(s)
	if !ValidStage(st) {
		return "", fmt.Errorf("invalid stage: %s", s)
	}
	return st, nil
}

// IsTerminal returns true for complete and aborted.
func (s Stage) IsTerminal() bool {
	return s == StageComplete || s == StageAborted
}

// CanAdvanceTo reports whether a transition from s to next follows the
// deliberation DAG. Aborting is legal from any non-terminal stage.
func (s Stage) CanAdvanceTo(next Stage) bool {
	if next == StageAborted {
		return !s.IsTerminal()
	}
	from, to := StageOrder(s), StageOrder(next)
	if from < 0 || to < 0 {
		return false
	}
	return to > from
}

// String returns the string representation of the stage.
func (s Stage) String() string {
	return string(s)
}

// Description returns a human-readable description of the stage.
func (s Stage) Description() string {
	switch s {
	case StageResponding:
		return "Council members answer the prompt independently"
	case StageDiscussing:
		return "Members discuss each other's answers"
	case StageReviewing:
		return "Members write formal peer reviews"
	case StageSynthesizing:
		return "A single agent condenses the transcript into a decision"
	case StageComplete:
		return "Deliberation finished, synthesis recorded"
	case StageAborted:
		return "Deliberation cancelled"
	default:
		return "Unknown stage"
	}
}
