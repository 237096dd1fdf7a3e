package config

import "github.com/spf13/viper"

// setDefaults registers default values on the viper instance.
func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "auto")

	v.SetDefault("state.backend", "sqlite")
	v.SetDefault("state.path", ".conclave/state.db")

	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.no_cors", false)

	v.SetDefault("supervisor.tick_interval", "5s")
	v.SetDefault("supervisor.concurrency", 8)
	v.SetDefault("supervisor.session_timeout", "10m")
	v.SetDefault("supervisor.chat_timeout", "2m")

	v.SetDefault("synthesis.max_attempts", 3)
	v.SetDefault("synthesis.base_delay", "1s")
	v.SetDefault("synthesis.fallback_agent", "")
}
