package session

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/conclave-ai/conclave/internal/config"
	"github.com/conclave-ai/conclave/internal/core"
	"github.com/conclave-ai/conclave/internal/logging"
)

// CLIInvoker runs council agents as external CLI processes.
//
// Agent names are aliases: the config entry's Path decides which binary
// runs, so the same CLI can appear under several names with different
// models.
type CLIInvoker struct {
	agents map[string]config.AgentConfig
	logger *logging.Logger
}

// NewCLIInvoker creates an invoker backed by the configured agent CLIs.
func NewCLIInvoker(agents map[string]config.AgentConfig, logger *logging.Logger) *CLIInvoker {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &CLIInvoker{agents: agents, logger: logger}
}

// Name identifies the invoker implementation.
func (i *CLIInvoker) Name() string { return "cli" }

// Invoke runs the agent's CLI with the prompt on stdin and returns its
// stdout. The caller owns the timeout via ctx.
func (i *CLIInvoker) Invoke(ctx context.Context, agentID core.AgentID, prompt string) (string, error) {
	cfg, ok := i.agents[string(agentID)]
	if !ok {
		return "", core.ErrValidation(core.CodeAgentUnavailable,
			fmt.Sprintf("agent not configured: %s", agentID))
	}
	if cfg.Path == "" {
		return "", core.ErrValidation(core.CodeAgentUnavailable,
			fmt.Sprintf("agent %s has no path configured", agentID))
	}

	args := append([]string(nil), cfg.Args...)
	if cfg.Model != "" {
		args = append(args, "--model", cfg.Model)
	}

	// Handle multi-word commands (e.g. "gh copilot").
	cmdPath := cfg.Path
	cmdParts := strings.Fields(cmdPath)
	if len(cmdParts) > 1 {
		cmdPath = cmdParts[0]
		args = append(cmdParts[1:], args...)
	}

	// #nosec G204 -- command path and args come from validated config
	cmd := exec.CommandContext(ctx, cmdPath, args...)
	cmd.Stdin = strings.NewReader(prompt)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	cmd.Env = os.Environ()
	cmd.Env = append(cmd.Env, "CONCLAVE_MANAGED=true", "CONCLAVE_AGENT="+string(agentID))

	i.logger.Info("session: invoking agent",
		"agent", agentID,
		"path", cmdPath,
		"args", args,
		"prompt_length", len(prompt),
	)

	err := cmd.Run()

	if ctx.Err() == context.DeadlineExceeded {
		return "", core.ErrTimeout(fmt.Sprintf("agent %s timed out", agentID))
	}
	if ctx.Err() == context.Canceled {
		return "", core.ErrState("CANCELLED", "session cancelled")
	}
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			i.logger.Error("session: agent failed",
				"agent", agentID,
				"exit_code", exitErr.ExitCode(),
				"stderr", truncate(stderr.String(), 2000),
			)
			return "", classifyError(exitErr.ExitCode(), stderr.String(), stdout.String())
		}
		return "", fmt.Errorf("running agent %s: %w", agentID, err)
	}

	return strings.TrimSpace(stdout.String()), nil
}

// CheckAvailability verifies the agent's CLI exists on PATH.
func (i *CLIInvoker) CheckAvailability(agentID core.AgentID) error {
	cfg, ok := i.agents[string(agentID)]
	if !ok || cfg.Path == "" {
		return core.ErrValidation(core.CodeAgentUnavailable,
			fmt.Sprintf("agent not configured: %s", agentID))
	}
	parts := strings.Fields(cfg.Path)
	if _, err := exec.LookPath(parts[0]); err != nil {
		return core.ErrNotFound("CLI", parts[0])
	}
	return nil
}

// classifyError converts a non-zero exit into a domain error.
func classifyError(exitCode int, stderr, stdout string) error {
	msg := strings.TrimSpace(stderr)
	if msg == "" {
		msg = extractErrorFromOutput(stdout)
	}
	if msg == "" {
		msg = "(no error message captured)"
	}

	lower := strings.ToLower(msg)
	switch {
	case containsAny(lower, "rate limit", "too many requests", "429", "quota"):
		return core.ErrUpstream("RATE_LIMIT", msg)
	case containsAny(lower, "unauthorized", "authentication", "api key"):
		return core.ErrUpstream("AUTH", msg)
	case containsAny(lower, "connection", "network", "unreachable"):
		return core.ErrUpstream("NETWORK", msg)
	}
	return core.ErrExecution(core.CodeSessionFailed,
		fmt.Sprintf("agent exited with code %d: %s", exitCode, truncate(msg, 500)))
}

// extractErrorFromOutput digs an error message out of JSON lines on
// stdout. Several agent CLIs report failures that way.
func extractErrorFromOutput(stdout string) string {
	lines := strings.Split(stdout, "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		line := strings.TrimSpace(lines[i])
		if !strings.HasPrefix(line, "{") {
			continue
		}
		var obj map[string]any
		if err := json.Unmarshal([]byte(line), &obj); err != nil {
			continue
		}
		if errMsg, ok := obj["error"].(string); ok && errMsg != "" {
			return errMsg
		}
		if errObj, ok := obj["error"].(map[string]any); ok {
			if m, ok := errObj["message"].(string); ok && m != "" {
				return m
			}
		}
	}
	for i := len(lines) - 1; i >= 0; i-- {
		line := strings.TrimSpace(lines[i])
		if line != "" && !strings.HasPrefix(line, "{") {
			return truncate(line, 200)
		}
	}
	return ""
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "...[truncated]"
}
