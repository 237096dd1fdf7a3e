package core

import (
	"testing"
	"time"
)

func coordLaunch(t *testing.T, council *Council) *CouncilLaunch {
	t.Helper()
	launch, err := NewLaunch(council, "", "question")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	launch.MemberSessionIDs = []SessionID{"s1", "s2", "s3"}
	return launch
}

func completedSession(id SessionID, result string) SessionState {
	return SessionState{ID: id, Status: SessionCompleted, Result: result}
}

func failedSession(id SessionID) SessionState {
	return SessionState{ID: id, Status: SessionFailed, Error: "boom"}
}

func runningSession(id SessionID) SessionState {
	return SessionState{ID: id, Status: SessionRunning}
}

func TestDecide_RespondingWaits(t *testing.T) {
	launch := coordLaunch(t, testCouncil())
	sessions := map[SessionID]SessionState{
		"s1": completedSession("s1", "answer one"),
		"s2": runningSession("s2"),
		"s3": completedSession("s3", "answer three"),
	}
	d := Decide(launch, testCouncil(), sessions, time.Now(), DefaultCoordinatorPolicy())
	if d.Kind != DecisionStay {
		t.Fatalf("expected stay while sessions run, got %s", d.Kind)
	}
}

func TestDecide_RespondingAdvancesToReviewing(t *testing.T) {
	launch := coordLaunch(t, testCouncil())
	sessions := map[SessionID]SessionState{
		"s1": completedSession("s1", "answer one"),
		"s2": failedSession("s2"),
		"s3": completedSession("s3", "answer three"),
	}
	d := Decide(launch, testCouncil(), sessions, time.Now(), DefaultCoordinatorPolicy())
	if d.Kind != DecisionAdvance || d.Next != StageReviewing {
		t.Fatalf("expected advance to reviewing, got %s/%s", d.Kind, d.Next)
	}
}

func TestDecide_RespondingAdvancesToDiscussing(t *testing.T) {
	council := testCouncil()
	council.DiscussionRounds = 2
	launch := coordLaunch(t, council)
	sessions := map[SessionID]SessionState{
		"s1": completedSession("s1", "a"),
		"s2": completedSession("s2", "b"),
		"s3": completedSession("s3", "c"),
	}
	d := Decide(launch, council, sessions, time.Now(), DefaultCoordinatorPolicy())
	if d.Kind != DecisionAdvance || d.Next != StageDiscussing {
		t.Fatalf("expected advance to discussing, got %s/%s", d.Kind, d.Next)
	}
}

func TestDecide_AllMembersFailedSkipsToSynthesizing(t *testing.T) {
	launch := coordLaunch(t, testCouncil())
	sessions := map[SessionID]SessionState{
		"s1": failedSession("s1"),
		"s2": failedSession("s2"),
		"s3": failedSession("s3"),
	}
	d := Decide(launch, testCouncil(), sessions, time.Now(), DefaultCoordinatorPolicy())
	if d.Kind != DecisionAdvance || d.Next != StageSynthesizing {
		t.Fatalf("expected advance to synthesizing, got %s/%s", d.Kind, d.Next)
	}
}

func TestDecide_EmptyResultCountsAsFailure(t *testing.T) {
	launch := coordLaunch(t, testCouncil())
	sessions := map[SessionID]SessionState{
		"s1": completedSession("s1", "   "),
		"s2": completedSession("s2", ""),
		"s3": completedSession("s3", "\n"),
	}
	d := Decide(launch, testCouncil(), sessions, time.Now(), DefaultCoordinatorPolicy())
	if d.Kind != DecisionAdvance || d.Next != StageSynthesizing {
		t.Fatalf("expected blank answers to count as failures, got %s/%s", d.Kind, d.Next)
	}
}

func TestDecide_TimeoutCeiling(t *testing.T) {
	launch := coordLaunch(t, testCouncil())
	sessions := map[SessionID]SessionState{
		"s1": completedSession("s1", "answer"),
		"s2": runningSession("s2"),
		// s3 never reported in; the runtime lost it.
	}

	policy := CoordinatorPolicy{SessionTimeout: 10 * time.Minute}
	now := launch.StageEnteredAt.Add(5 * time.Minute)
	d := Decide(launch, testCouncil(), sessions, now, policy)
	if d.Kind != DecisionStay {
		t.Fatalf("expected stay before the ceiling, got %s", d.Kind)
	}

	now = launch.StageEnteredAt.Add(11 * time.Minute)
	d = Decide(launch, testCouncil(), sessions, now, policy)
	if d.Kind != DecisionAdvance || d.Next != StageReviewing {
		t.Fatalf("expected hung sessions to be treated as failed after the ceiling, got %s/%s", d.Kind, d.Next)
	}
}

func TestDecide_DiscussionRounds(t *testing.T) {
	council := testCouncil()
	council.DiscussionRounds = 2

	launch := coordLaunch(t, council)
	launch.EnterStage(StageDiscussing)
	launch.DiscussionRound = 1
	launch.DiscussionSessionIDs = []SessionID{"d1", "d2", "d3"}

	sessions := map[SessionID]SessionState{
		"d1": completedSession("d1", "still disagree"),
		"d2": completedSession("d2", "me too"),
		"d3": completedSession("d3", "same"),
	}
	d := Decide(launch, council, sessions, time.Now(), DefaultCoordinatorPolicy())
	if d.Kind != DecisionNextRound {
		t.Fatalf("expected next round with budget remaining, got %s", d.Kind)
	}

	launch.DiscussionRound = 2
	d = Decide(launch, council, sessions, time.Now(), DefaultCoordinatorPolicy())
	if d.Kind != DecisionAdvance || d.Next != StageReviewing {
		t.Fatalf("expected advance once budget exhausted, got %s/%s", d.Kind, d.Next)
	}
}

func TestDecide_ConcludeMarkerEndsDiscussionEarly(t *testing.T) {
	council := testCouncil()
	council.DiscussionRounds = 5

	launch := coordLaunch(t, council)
	launch.EnterStage(StageDiscussing)
	launch.DiscussionRound = 1
	launch.DiscussionSessionIDs = []SessionID{"d1", "d2", "d3"}

	sessions := map[SessionID]SessionState{
		"d1": completedSession("d1", "we have converged "+ConcludeMarker),
		"d2": completedSession("d2", "agreed"),
		"d3": completedSession("d3", "agreed"),
	}
	d := Decide(launch, council, sessions, time.Now(), DefaultCoordinatorPolicy())
	if d.Kind != DecisionAdvance || d.Next != StageReviewing {
		t.Fatalf("expected conclude marker to end discussion, got %s/%s", d.Kind, d.Next)
	}
}

func TestDecide_Reviewing(t *testing.T) {
	launch := coordLaunch(t, testCouncil())
	launch.EnterStage(StageReviewing)
	launch.ReviewSessionIDs = []SessionID{"r1", "r2", "r3"}

	sessions := map[SessionID]SessionState{
		"r1": completedSession("r1", "review"),
		"r2": runningSession("r2"),
		"r3": completedSession("r3", "review"),
	}
	d := Decide(launch, testCouncil(), sessions, time.Now(), DefaultCoordinatorPolicy())
	if d.Kind != DecisionStay {
		t.Fatalf("expected stay while reviews run, got %s", d.Kind)
	}

	sessions["r2"] = failedSession("r2")
	d = Decide(launch, testCouncil(), sessions, time.Now(), DefaultCoordinatorPolicy())
	if d.Kind != DecisionAdvance || d.Next != StageSynthesizing {
		t.Fatalf("expected advance to synthesizing, got %s/%s", d.Kind, d.Next)
	}
}

func TestDecide_SynthesizingAndTerminal(t *testing.T) {
	launch := coordLaunch(t, testCouncil())
	launch.EnterStage(StageSynthesizing)

	d := Decide(launch, testCouncil(), nil, time.Now(), DefaultCoordinatorPolicy())
	if d.Kind != DecisionAdvance || d.Next != StageComplete {
		t.Fatalf("expected synthesizing to be ready immediately, got %s/%s", d.Kind, d.Next)
	}

	launch.Synthesis = "final"
	launch.EnterStage(StageComplete)
	d = Decide(launch, testCouncil(), nil, time.Now(), DefaultCoordinatorPolicy())
	if d.Kind != DecisionStay {
		t.Fatalf("expected terminal launch to stay, got %s", d.Kind)
	}
}

func TestCollectOutputs(t *testing.T) {
	agents := []AgentID{"claude", "gemini", "codex"}
	ids := []SessionID{"s1", "s2", "s3"}
	sessions := map[SessionID]SessionState{
		"s1": completedSession("s1", "answer one"),
		"s2": failedSession("s2"),
		// s3 missing entirely.
	}

	outputs := CollectOutputs(agents, ids, sessions)
	if len(outputs) != 3 {
		t.Fatalf("expected 3 outputs, got %d", len(outputs))
	}
	if outputs[0].Failed || outputs[0].Content != "answer one" || outputs[0].AgentID != "claude" {
		t.Fatalf("unexpected first output: %+v", outputs[0])
	}
	if !outputs[1].Failed || outputs[1].Content != "" {
		t.Fatalf("expected failed session to yield failed output: %+v", outputs[1])
	}
	if !outputs[2].Failed {
		t.Fatalf("expected missing session to yield failed output: %+v", outputs[2])
	}
}
