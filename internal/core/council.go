package core

import "time"

// CouncilID uniquely identifies a council.
type CouncilID string

// AgentID identifies a configured agent persona.
type AgentID string

// Council is a named, ordered set of agent identities plus an optional
// chairman. Deleting a council does not retroactively affect launches
// that already reference it.
type Council struct {
	ID              CouncilID `json:"id"`
	Name            string    `json:"name"`
	MemberAgentIDs  []AgentID `json:"member_agent_ids"`
	ChairmanAgentID AgentID   `json:"chairman_agent_id,omitempty"`
	// DiscussionRounds bounds the optional discussing stage.
	// Zero disables discussion entirely.
	DiscussionRounds int       `json:"discussion_rounds,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// HasChairman reports whether a chairman is configured.
func (c *Council) HasChairman() bool {
	return c.ChairmanAgentID != ""
}

// DiscussionEnabled reports whether launches of this council pass
// through the discussing stage.
func (c *Council) DiscussionEnabled() bool {
	return c.DiscussionRounds > 0
}

// IsMember reports whether the agent belongs to the council.
func (c *Council) IsMember(id AgentID) bool {
	for _, m := range c.MemberAgentIDs {
		if m == id {
			return true
		}
	}
	return false
}

// Validate checks council invariants.
func (c *Council) Validate() error {
	if c.Name == "" {
		return ErrValidation("COUNCIL_NAME_REQUIRED", "council name cannot be empty")
	}
	if len(c.MemberAgentIDs) == 0 {
		return ErrValidation(CodeNoMembers, "council must have at least one member")
	}
	seen := make(map[AgentID]bool, len(c.MemberAgentIDs))
	for _, m := range c.MemberAgentIDs {
		if m == "" {
			return ErrValidation(CodeNoMembers, "member agent ID cannot be empty")
		}
		if seen[m] {
			return ErrValidation(CodeDuplicateMember, "duplicate council member: "+string(m))
		}
		seen[m] = true
	}
	if c.ChairmanAgentID != "" && !c.IsMember(c.ChairmanAgentID) {
		return ErrValidation(CodeBadChairman, "chairman must be a council member: "+string(c.ChairmanAgentID))
	}
	if c.DiscussionRounds < 0 {
		return ErrValidation("BAD_DISCUSSION_ROUNDS", "discussion rounds cannot be negative")
	}
	return nil
}
