package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoader_Defaults(t *testing.T) {
	cfg, err := NewLoader().WithConfigFile(filepath.Join(t.TempDir(), "missing.yaml")).Load()
	if err == nil {
		t.Fatalf("expected error for explicit missing config file")
	}

	// No config file at all falls back to defaults.
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "conclave.yaml")
	if err := os.WriteFile(path, []byte("{}\n"), 0o644); err != nil {
		t.Fatalf("WriteFile error: %v", err)
	}
	cfg, err = NewLoader().WithConfigFile(path).Load()
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.State.Backend != "sqlite" {
		t.Fatalf("expected sqlite default backend, got %q", cfg.State.Backend)
	}
	if cfg.Server.Port != 8080 || cfg.Server.Host != "localhost" {
		t.Fatalf("unexpected server defaults: %+v", cfg.Server)
	}
	if cfg.Log.Level != "info" || cfg.Log.Format != "auto" {
		t.Fatalf("unexpected log defaults: %+v", cfg.Log)
	}
	if cfg.Supervisor.Concurrency != 8 {
		t.Fatalf("unexpected supervisor defaults: %+v", cfg.Supervisor)
	}
	if cfg.Synthesis.MaxAttempts != 3 {
		t.Fatalf("unexpected synthesis defaults: %+v", cfg.Synthesis)
	}
}

func TestLoader_ConfigFile(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "conclave.yaml")
	content := `
log:
  level: debug
state:
  backend: json
  path: /tmp/conclave-state.json
server:
  port: 9090
supervisor:
  tick_interval: 1s
  concurrency: 2
synthesis:
  fallback_agent: gemini
agents:
  claude:
    path: claude
    args: ["-p"]
    model: opus
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile error: %v", err)
	}

	cfg, err := NewLoader().WithConfigFile(path).Load()
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.Log.Level != "debug" {
		t.Fatalf("expected debug level, got %q", cfg.Log.Level)
	}
	if cfg.State.Backend != "json" || cfg.State.Path != "/tmp/conclave-state.json" {
		t.Fatalf("unexpected state config: %+v", cfg.State)
	}
	if cfg.Server.Port != 9090 {
		t.Fatalf("expected port 9090, got %d", cfg.Server.Port)
	}
	if cfg.Supervisor.TickIntervalDuration() != time.Second {
		t.Fatalf("expected 1s tick interval, got %s", cfg.Supervisor.TickIntervalDuration())
	}
	if cfg.Synthesis.FallbackAgent != "gemini" {
		t.Fatalf("expected gemini fallback, got %q", cfg.Synthesis.FallbackAgent)
	}
	agent, ok := cfg.Agents["claude"]
	if !ok || agent.Path != "claude" || agent.Model != "opus" || len(agent.Args) != 1 {
		t.Fatalf("unexpected agent config: %+v", cfg.Agents)
	}
}

func TestLoader_EnvOverride(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "conclave.yaml")
	if err := os.WriteFile(path, []byte("server:\n  port: 9090\n"), 0o644); err != nil {
		t.Fatalf("WriteFile error: %v", err)
	}

	t.Setenv("CONCLAVE_SERVER_PORT", "7070")
	t.Setenv("CONCLAVE_LOG_LEVEL", "warn")

	cfg, err := NewLoader().WithConfigFile(path).Load()
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.Server.Port != 7070 {
		t.Fatalf("expected env to override file, got port %d", cfg.Server.Port)
	}
	if cfg.Log.Level != "warn" {
		t.Fatalf("expected env log level, got %q", cfg.Log.Level)
	}
}

func TestLoader_Validation(t *testing.T) {
	tmpDir := t.TempDir()

	badBackend := filepath.Join(tmpDir, "backend.yaml")
	if err := os.WriteFile(badBackend, []byte("state:\n  backend: mongodb\n"), 0o644); err != nil {
		t.Fatalf("WriteFile error: %v", err)
	}
	if _, err := NewLoader().WithConfigFile(badBackend).Load(); err == nil {
		t.Fatalf("expected unknown backend to be rejected")
	}

	badPort := filepath.Join(tmpDir, "port.yaml")
	if err := os.WriteFile(badPort, []byte("server:\n  port: 99999\n"), 0o644); err != nil {
		t.Fatalf("WriteFile error: %v", err)
	}
	if _, err := NewLoader().WithConfigFile(badPort).Load(); err == nil {
		t.Fatalf("expected out of range port to be rejected")
	}
}

func TestDurationHelpers(t *testing.T) {
	sup := SupervisorConfig{}
	if sup.TickIntervalDuration() != 5*time.Second {
		t.Fatalf("expected 5s default tick interval")
	}
	if sup.SessionTimeoutDuration() != 10*time.Minute {
		t.Fatalf("expected 10m default session timeout")
	}
	if sup.ChatTimeoutDuration() != 2*time.Minute {
		t.Fatalf("expected 2m default chat timeout")
	}

	sup = SupervisorConfig{TickInterval: "bogus", SessionTimeout: "-5s"}
	if sup.TickIntervalDuration() != 5*time.Second {
		t.Fatalf("expected fallback on unparseable duration")
	}
	if sup.SessionTimeoutDuration() != 10*time.Minute {
		t.Fatalf("expected fallback on non-positive duration")
	}

	syn := SynthesisConfig{BaseDelay: "250ms"}
	if syn.BaseDelayDuration() != 250*time.Millisecond {
		t.Fatalf("expected parsed base delay")
	}
}
