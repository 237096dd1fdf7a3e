package core

import (
	"strings"
	"time"
)

// ConcludeMarker in a discussion reply ends the discussing stage early.
const ConcludeMarker = "[CONCLUDE]"

// DecisionKind classifies a coordinator decision.
type DecisionKind string

const (
	// DecisionStay means the launch is not ready to advance.
	DecisionStay DecisionKind = "stay"

	// DecisionAdvance means the launch should transition to Next.
	DecisionAdvance DecisionKind = "advance"

	// DecisionNextRound means the discussing stage should spawn
	// another round of discussion sessions without changing stage.
	DecisionNextRound DecisionKind = "next_round"
)

// Decision is the outcome of one coordinator evaluation.
type Decision struct {
	Kind   DecisionKind
	Next   Stage
	Reason string
}

// Stay returns a no-advance decision with a reason.
func Stay(reason string) Decision {
	return Decision{Kind: DecisionStay, Reason: reason}
}

// AdvanceTo returns an advance decision.
func AdvanceTo(next Stage, reason string) Decision {
	return Decision{Kind: DecisionAdvance, Next: next, Reason: reason}
}

// CoordinatorPolicy tunes the pure decision logic.
type CoordinatorPolicy struct {
	// SessionTimeout is the ceiling after which a session still running
	// since stage entry is treated as failed, so a single hung session
	// cannot wedge the council.
	SessionTimeout time.Duration
}

// DefaultCoordinatorPolicy returns the default policy.
func DefaultCoordinatorPolicy() CoordinatorPolicy {
	return CoordinatorPolicy{SessionTimeout: 10 * time.Minute}
}

// Decide is the pure stage-advance rule. Given a launch, its council,
// and the observed session states, it reports whether the launch is
// ready to move and where to. It performs no I/O and reads no clocks;
// now is supplied by the caller.
func Decide(launch *CouncilLaunch, council *Council, sessions map[SessionID]SessionState, now time.Time, policy CoordinatorPolicy) Decision {
	if launch.IsTerminal() {
		return Stay("launch is terminal")
	}

	switch launch.Stage {
	case StageResponding:
		return decideResponding(launch, council, sessions, now, policy)
	case StageDiscussing:
		return decideDiscussing(launch, council, sessions, now, policy)
	case StageReviewing:
		return decideReviewing(launch, sessions, now, policy)
	case StageSynthesizing:
		// The synthesizing stage has no sessions to wait on up front;
		// the advance step runs the synthesizer and commits complete.
		return AdvanceTo(StageComplete, "ready to synthesize")
	default:
		return Stay("unknown stage")
	}
}

func decideResponding(launch *CouncilLaunch, council *Council, sessions map[SessionID]SessionState, now time.Time, policy CoordinatorPolicy) Decision {
	done, failed := tally(launch, launch.MemberSessionIDs, sessions, now, policy)
	if done < len(launch.MemberSessionIDs) {
		return Stay("waiting for member sessions")
	}
	if failed == len(launch.MemberSessionIDs) {
		// Every member failed. Skip discussion and review; the
		// synthesizer must still produce output from an empty answer set.
		return AdvanceTo(StageSynthesizing, "all member sessions failed")
	}
	if council.DiscussionEnabled() {
		return AdvanceTo(StageDiscussing, "all member sessions finished")
	}
	return AdvanceTo(StageReviewing, "all member sessions finished")
}

func decideDiscussing(launch *CouncilLaunch, council *Council, sessions map[SessionID]SessionState, now time.Time, policy CoordinatorPolicy) Decision {
	done, _ := tally(launch, launch.DiscussionSessionIDs, sessions, now, policy)
	if done < len(launch.DiscussionSessionIDs) {
		return Stay("waiting for discussion sessions")
	}
	for _, id := range launch.DiscussionSessionIDs {
		if st, ok := sessions[id]; ok && strings.Contains(st.Result, ConcludeMarker) {
			return AdvanceTo(StageReviewing, "discussion concluded by stop signal")
		}
	}
	if launch.DiscussionRound >= council.DiscussionRounds {
		return AdvanceTo(StageReviewing, "discussion round budget exhausted")
	}
	return Decision{Kind: DecisionNextRound, Reason: "discussion round finished"}
}

func decideReviewing(launch *CouncilLaunch, sessions map[SessionID]SessionState, now time.Time, policy CoordinatorPolicy) Decision {
	done, _ := tally(launch, launch.ReviewSessionIDs, sessions, now, policy)
	if done < len(launch.ReviewSessionIDs) {
		return Stay("waiting for review sessions")
	}
	return AdvanceTo(StageSynthesizing, "all review sessions finished")
}

// tally counts sessions that can no longer contribute: terminal ones,
// ones the runtime has no record of, and ones running past the timeout
// ceiling. The second return counts how many of those failed.
func tally(launch *CouncilLaunch, ids []SessionID, sessions map[SessionID]SessionState, now time.Time, policy CoordinatorPolicy) (done, failed int) {
	timedOut := policy.SessionTimeout > 0 && now.Sub(launch.StageEnteredAt) > policy.SessionTimeout
	for _, id := range ids {
		st, ok := sessions[id]
		if !ok {
			// A session that never started is treated like one that
			// never completed.
			if timedOut {
				done++
				failed++
			}
			continue
		}
		switch {
		case st.Status == SessionCompleted:
			done++
			if strings.TrimSpace(st.Result) == "" {
				failed++
			}
		case st.Status == SessionFailed, st.Status == SessionStopped:
			done++
			failed++
		case timedOut:
			done++
			failed++
		}
	}
	return done, failed
}

// CollectOutputs maps session states back onto the launch's member
// order, recording failed or missing sessions as failed outputs with
// empty content.
func CollectOutputs(agentIDs []AgentID, sessionIDs []SessionID, sessions map[SessionID]SessionState) []MemberOutput {
	outputs := make([]MemberOutput, 0, len(sessionIDs))
	for i, sid := range sessionIDs {
		var agent AgentID
		if i < len(agentIDs) {
			agent = agentIDs[i]
		}
		out := MemberOutput{AgentID: agent, SessionID: sid, Failed: true}
		if st, ok := sessions[sid]; ok && st.Status == SessionCompleted && strings.TrimSpace(st.Result) != "" {
			out.Content = st.Result
			out.Failed = false
		}
		outputs = append(outputs, out)
	}
	return outputs
}
