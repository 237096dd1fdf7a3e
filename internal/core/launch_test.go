package core

import (
	"strings"
	"testing"
)

func testCouncil() *Council {
	return &Council{
		ID:              "council-1",
		Name:            "architecture",
		MemberAgentIDs:  []AgentID{"claude", "gemini", "codex"},
		ChairmanAgentID: "claude",
	}
}

func TestCouncil_Validate(t *testing.T) {
	if err := testCouncil().Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	c := testCouncil()
	c.Name = ""
	if err := c.Validate(); err == nil {
		t.Fatalf("expected empty name to be rejected")
	}

	c = testCouncil()
	c.MemberAgentIDs = nil
	if err := c.Validate(); err == nil {
		t.Fatalf("expected empty member list to be rejected")
	}

	c = testCouncil()
	c.MemberAgentIDs = []AgentID{"claude", "claude"}
	if err := c.Validate(); err == nil {
		t.Fatalf("expected duplicate members to be rejected")
	}

	c = testCouncil()
	c.ChairmanAgentID = "stranger"
	if err := c.Validate(); err == nil {
		t.Fatalf("expected non-member chairman to be rejected")
	}

	c = testCouncil()
	c.DiscussionRounds = -1
	if err := c.Validate(); err == nil {
		t.Fatalf("expected negative discussion rounds to be rejected")
	}
}

func TestCouncil_Discussion(t *testing.T) {
	c := testCouncil()
	if c.DiscussionEnabled() {
		t.Fatalf("expected discussion disabled at zero rounds")
	}
	c.DiscussionRounds = 2
	if !c.DiscussionEnabled() {
		t.Fatalf("expected discussion enabled")
	}
}

func TestNewLaunch(t *testing.T) {
	launch, err := NewLaunch(testCouncil(), "proj", "what database should we use?")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if launch.Stage != StageResponding {
		t.Fatalf("expected new launch in responding, got %s", launch.Stage)
	}
	if launch.ID == "" {
		t.Fatalf("expected launch ID to be assigned")
	}
	if launch.StageEnteredAt.IsZero() {
		t.Fatalf("expected stage entry time to be set")
	}
}

func TestNewLaunch_Validation(t *testing.T) {
	if _, err := NewLaunch(testCouncil(), "proj", ""); err == nil {
		t.Fatalf("expected empty prompt to be rejected")
	}
	long := strings.Repeat("x", MaxPromptLength+1)
	if _, err := NewLaunch(testCouncil(), "proj", long); err == nil {
		t.Fatalf("expected oversized prompt to be rejected")
	}
	bad := testCouncil()
	bad.MemberAgentIDs = nil
	if _, err := NewLaunch(bad, "proj", "q"); err == nil {
		t.Fatalf("expected invalid council to be rejected")
	}
}

func TestLaunch_SynthesisInvariant(t *testing.T) {
	launch, err := NewLaunch(testCouncil(), "", "q")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Synthesis without complete is corruption.
	launch.Synthesis = "answer"
	if err := launch.Validate(); err == nil {
		t.Fatalf("expected synthesis outside complete to be rejected")
	}

	// Complete without synthesis is corruption.
	launch.Synthesis = ""
	launch.EnterStage(StageComplete)
	if err := launch.Validate(); err == nil {
		t.Fatalf("expected complete without synthesis to be rejected")
	}

	launch.Synthesis = "answer"
	if err := launch.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestLaunch_EnterStage(t *testing.T) {
	launch, err := NewLaunch(testCouncil(), "", "q")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	before := launch.StageEnteredAt
	launch.EnterStage(StageReviewing)
	if launch.Stage != StageReviewing {
		t.Fatalf("expected stage reviewing, got %s", launch.Stage)
	}
	if !launch.StageEnteredAt.After(before) && launch.StageEnteredAt != before {
		t.Fatalf("expected stage entry time to move forward")
	}
	if launch.IsTerminal() {
		t.Fatalf("expected reviewing launch to be non-terminal")
	}
}
