package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/conclave-ai/conclave/internal/core"
	"github.com/conclave-ai/conclave/internal/logging"
)

// Synthesizer produces the final answer for a launch. The chairman
// performs synthesis when the council has one; otherwise the configured
// fallback agent does, defaulting to the first member.
type Synthesizer struct {
	invoker       core.AgentInvoker
	retry         *RetryPolicy
	fallbackAgent string
	logger        *logging.Logger
}

// NewSynthesizer creates a synthesizer.
func NewSynthesizer(invoker core.AgentInvoker, retry *RetryPolicy, fallbackAgent string, logger *logging.Logger) *Synthesizer {
	if retry == nil {
		retry = DefaultRetryPolicy()
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Synthesizer{
		invoker:       invoker,
		retry:         retry,
		fallbackAgent: fallbackAgent,
		logger:        logger,
	}
}

// SelectAgent picks the agent that performs synthesis for a council.
// The second return reports whether it is the council's chairman.
func (s *Synthesizer) SelectAgent(council *core.Council) (core.AgentID, bool) {
	if council.HasChairman() {
		return council.ChairmanAgentID, true
	}
	if s.fallbackAgent != "" && council.IsMember(core.AgentID(s.fallbackAgent)) {
		return core.AgentID(s.fallbackAgent), false
	}
	return council.MemberAgentIDs[0], false
}

// Synthesize runs the synthesis step with bounded retries and returns
// the final answer. An empty reply counts as a retryable failure; an
// agent that returns nothing has not synthesized anything.
func (s *Synthesizer) Synthesize(ctx context.Context, launch *core.CouncilLaunch, council *core.Council, onRetry RetryNotifyFunc) (string, core.AgentID, error) {
	agentID, chairman := s.SelectAgent(council)
	prompt := buildSynthesisPrompt(launch)

	s.logger.Info("synthesis: starting",
		"launch", launch.ID,
		"agent", agentID,
		"chairman", chairman,
		"max_attempts", s.retry.MaxAttempts,
	)

	var result string
	err := s.retry.ExecuteWithNotify(ctx, func(ctx context.Context) error {
		out, err := s.invoker.Invoke(ctx, agentID, prompt)
		if err != nil {
			return err
		}
		if strings.TrimSpace(out) == "" {
			return core.ErrExecution(core.CodeEmptySynthesis,
				fmt.Sprintf("agent %s returned an empty synthesis", agentID))
		}
		result = out
		return nil
	}, onRetry)
	if err != nil {
		return "", agentID, err
	}
	return result, agentID, nil
}
