package service

import (
	"fmt"
	"strings"

	"github.com/conclave-ai/conclave/internal/core"
)

// Prompt builders for each deliberation stage. Kept together so the
// shape of what each agent sees is reviewable in one place.

// buildMemberPrompt is the initial prompt each council member answers
// independently.
func buildMemberPrompt(launch *core.CouncilLaunch) string {
	var b strings.Builder
	b.WriteString("You are one member of a council of AI agents. Answer the question below ")
	b.WriteString("independently and thoroughly. Other members are answering in parallel; ")
	b.WriteString("you will see their answers in a later stage.\n\n")
	b.WriteString("## Question\n\n")
	b.WriteString(launch.Prompt)
	return b.String()
}

// buildDiscussionPrompt shows an agent the other members' current
// positions and asks for a reply for the given round.
func buildDiscussionPrompt(launch *core.CouncilLaunch, agentID core.AgentID, round int, history []*core.DiscussionMessage) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are council member %q in round %d of a structured discussion.\n\n", agentID, round)
	b.WriteString("## Original question\n\n")
	b.WriteString(launch.Prompt)
	b.WriteString("\n\n## Initial answers\n\n")
	writeOutputs(&b, launch.MemberAnswers)
	if len(history) > 0 {
		b.WriteString("\n## Discussion so far\n\n")
		for _, msg := range history {
			fmt.Fprintf(&b, "### %s (round %d)\n\n%s\n\n", msg.AgentID, msg.Round, msg.Content)
		}
	}
	b.WriteString("\nRespond to the other members: refine your position, concede points, ")
	b.WriteString("or defend it. If you believe the council has converged and further ")
	fmt.Fprintf(&b, "discussion adds nothing, include the marker %s in your reply.", core.ConcludeMarker)
	return b.String()
}

// buildReviewPrompt asks an agent to rank and critique the anonymized
// answers of its peers.
func buildReviewPrompt(launch *core.CouncilLaunch) string {
	var b strings.Builder
	b.WriteString("You are reviewing the answers a council of AI agents gave to a question. ")
	b.WriteString("Evaluate each answer for accuracy, completeness, and insight. ")
	b.WriteString("One of the answers is your own; judge it as critically as the others.\n\n")
	b.WriteString("## Question\n\n")
	b.WriteString(launch.Prompt)
	b.WriteString("\n\n## Answers\n\n")
	for i, out := range launch.MemberAnswers {
		if out.Failed {
			continue
		}
		// Anonymized so reviewers judge content, not authorship.
		fmt.Fprintf(&b, "### Answer %d\n\n%s\n\n", i+1, out.Content)
	}
	b.WriteString("\nFor each answer, state its strengths and weaknesses, then rank them ")
	b.WriteString("from strongest to weakest with a short justification.")
	return b.String()
}

// buildSynthesisPrompt asks the chairman (or fallback agent) to produce
// the single final answer from the full deliberation record.
func buildSynthesisPrompt(launch *core.CouncilLaunch) string {
	var b strings.Builder
	b.WriteString("You are the chairman of a council of AI agents. The council has answered ")
	b.WriteString("a question and peer-reviewed its answers. Produce the single, definitive ")
	b.WriteString("final answer, synthesizing the strongest points and resolving disagreements. ")
	b.WriteString("Do not mention the council or the process; just answer the question.\n\n")
	b.WriteString("## Question\n\n")
	b.WriteString(launch.Prompt)
	b.WriteString("\n\n## Member answers\n\n")
	writeOutputs(&b, launch.MemberAnswers)
	if len(launch.Reviews) > 0 {
		b.WriteString("\n## Peer reviews\n\n")
		writeOutputs(&b, launch.Reviews)
	}
	return b.String()
}

// buildChatPrompt continues the conversation after completion. Chat
// sees the synthesis and prior chat turns, not the full deliberation.
func buildChatPrompt(launch *core.CouncilLaunch, history []*core.ChatMessage, userMessage string) string {
	var b strings.Builder
	b.WriteString("You are the voice of a council of AI agents that already answered a ")
	b.WriteString("question. Continue the conversation, staying consistent with the final ")
	b.WriteString("answer below.\n\n")
	b.WriteString("## Original question\n\n")
	b.WriteString(launch.Prompt)
	b.WriteString("\n\n## Final answer\n\n")
	b.WriteString(launch.Synthesis)
	if len(history) > 0 {
		b.WriteString("\n\n## Conversation\n\n")
		for _, msg := range history {
			fmt.Fprintf(&b, "**%s**: %s\n\n", msg.Role, msg.Content)
		}
	}
	b.WriteString("\n## New message\n\n")
	b.WriteString(userMessage)
	return b.String()
}

func writeOutputs(b *strings.Builder, outputs []core.MemberOutput) {
	for _, out := range outputs {
		if out.Failed {
			fmt.Fprintf(b, "### %s\n\n(no answer: session failed)\n\n", out.AgentID)
			continue
		}
		fmt.Fprintf(b, "### %s\n\n%s\n\n", out.AgentID, out.Content)
	}
}
