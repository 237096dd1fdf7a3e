package config

import "time"

// Config holds all application configuration.
type Config struct {
	Log        LogConfig              `mapstructure:"log"`
	State      StateConfig            `mapstructure:"state"`
	Server     ServerConfig           `mapstructure:"server"`
	Supervisor SupervisorConfig       `mapstructure:"supervisor"`
	Synthesis  SynthesisConfig        `mapstructure:"synthesis"`
	Agents     map[string]AgentConfig `mapstructure:"agents"`
}

// LogConfig configures logging behavior.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// StateConfig configures launch persistence.
type StateConfig struct {
	Backend string `mapstructure:"backend"` // sqlite, json
	Path    string `mapstructure:"path"`
}

// ServerConfig configures the HTTP API server.
type ServerConfig struct {
	Host   string `mapstructure:"host"`
	Port   int    `mapstructure:"port"`
	NoCORS bool   `mapstructure:"no_cors"`
}

// SupervisorConfig configures the auto-advance loop.
type SupervisorConfig struct {
	TickInterval   string `mapstructure:"tick_interval"`
	Concurrency    int    `mapstructure:"concurrency"`
	SessionTimeout string `mapstructure:"session_timeout"`
	ChatTimeout    string `mapstructure:"chat_timeout"`
}

// SynthesisConfig configures the synthesis step.
type SynthesisConfig struct {
	MaxAttempts int    `mapstructure:"max_attempts"`
	BaseDelay   string `mapstructure:"base_delay"`
	// FallbackAgent performs synthesis for councils without a chairman.
	// When empty, the first council member is used.
	FallbackAgent string `mapstructure:"fallback_agent"`
}

// AgentConfig configures a single agent invoker.
type AgentConfig struct {
	Path  string   `mapstructure:"path"`
	Args  []string `mapstructure:"args"`
	Model string   `mapstructure:"model"`
}

// TickIntervalDuration parses the supervisor tick interval.
func (c SupervisorConfig) TickIntervalDuration() time.Duration {
	return parseDuration(c.TickInterval, 5*time.Second)
}

// SessionTimeoutDuration parses the hung-session ceiling.
func (c SupervisorConfig) SessionTimeoutDuration() time.Duration {
	return parseDuration(c.SessionTimeout, 10*time.Minute)
}

// ChatTimeoutDuration parses the synchronous chat turn timeout.
func (c SupervisorConfig) ChatTimeoutDuration() time.Duration {
	return parseDuration(c.ChatTimeout, 2*time.Minute)
}

// BaseDelayDuration parses the synthesis retry base delay.
func (c SynthesisConfig) BaseDelayDuration() time.Duration {
	return parseDuration(c.BaseDelay, time.Second)
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	if s == "" {
		return fallback
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}
