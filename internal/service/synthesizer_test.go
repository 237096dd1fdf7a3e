package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conclave-ai/conclave/internal/core"
)

func synthCouncil(chairman core.AgentID) *core.Council {
	return &core.Council{
		ID:              "council-1",
		Name:            "test council",
		MemberAgentIDs:  []core.AgentID{"claude", "gemini", "codex"},
		ChairmanAgentID: chairman,
	}
}

func synthLaunch(t *testing.T, council *core.Council) *core.CouncilLaunch {
	t.Helper()
	launch, err := core.NewLaunch(council, "", "what is the best approach?")
	require.NoError(t, err)
	launch.EnterStage(core.StageSynthesizing)
	launch.MemberAnswers = []core.MemberOutput{
		{AgentID: "claude", Content: "approach A"},
		{AgentID: "gemini", Content: "approach B"},
	}
	return launch
}

func TestSynthesizer_SelectAgent(t *testing.T) {
	s := NewSynthesizer(&fakeInvoker{}, fastRetryPolicy(1), "", nil)

	agent, chairman := s.SelectAgent(synthCouncil("gemini"))
	assert.Equal(t, core.AgentID("gemini"), agent)
	assert.True(t, chairman)

	// No chairman: configured fallback wins when it is a member.
	s = NewSynthesizer(&fakeInvoker{}, fastRetryPolicy(1), "codex", nil)
	agent, chairman = s.SelectAgent(synthCouncil(""))
	assert.Equal(t, core.AgentID("codex"), agent)
	assert.False(t, chairman)

	// Non-member fallback is ignored; first member serves.
	s = NewSynthesizer(&fakeInvoker{}, fastRetryPolicy(1), "stranger", nil)
	agent, chairman = s.SelectAgent(synthCouncil(""))
	assert.Equal(t, core.AgentID("claude"), agent)
	assert.False(t, chairman)
}

func TestSynthesizer_Success(t *testing.T) {
	invoker := &fakeInvoker{reply: "the definitive answer"}
	s := NewSynthesizer(invoker, fastRetryPolicy(3), "", nil)
	council := synthCouncil("claude")

	result, agent, err := s.Synthesize(context.Background(), synthLaunch(t, council), council, nil)
	require.NoError(t, err)
	assert.Equal(t, "the definitive answer", result)
	assert.Equal(t, core.AgentID("claude"), agent)
	assert.Equal(t, 1, invoker.callCount())
}

func TestSynthesizer_EmptyOutputRetries(t *testing.T) {
	invoker := &fakeInvoker{script: []invokeReply{
		{out: "   "},
		{out: "second attempt answer"},
	}}
	s := NewSynthesizer(invoker, fastRetryPolicy(3), "", nil)
	council := synthCouncil("claude")

	retries := 0
	result, _, err := s.Synthesize(context.Background(), synthLaunch(t, council), council,
		func(int, error, time.Duration) { retries++ })
	require.NoError(t, err)
	assert.Equal(t, "second attempt answer", result)
	assert.Equal(t, 2, invoker.callCount())
	assert.Equal(t, 1, retries)
}

func TestSynthesizer_Exhaustion(t *testing.T) {
	invoker := &fakeInvoker{err: core.ErrUpstream("RATE_LIMIT", "throttled")}
	s := NewSynthesizer(invoker, fastRetryPolicy(2), "", nil)
	council := synthCouncil("claude")

	_, _, err := s.Synthesize(context.Background(), synthLaunch(t, council), council, nil)
	require.Error(t, err)
	assert.True(t, IsRetryExhausted(err))
	assert.Equal(t, 2, invoker.callCount())
}

func TestSynthesizer_NonRetryableAborts(t *testing.T) {
	invoker := &fakeInvoker{err: core.ErrValidation(core.CodeAgentUnavailable, "not configured")}
	s := NewSynthesizer(invoker, fastRetryPolicy(5), "", nil)
	council := synthCouncil("claude")

	_, _, err := s.Synthesize(context.Background(), synthLaunch(t, council), council, nil)
	require.Error(t, err)
	assert.False(t, IsRetryExhausted(err))
	assert.Equal(t, 1, invoker.callCount())
}
