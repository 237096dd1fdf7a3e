package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/conclave-ai/conclave/internal/config"
)

var initForce bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a starter .conclave.yaml in the current directory",
	RunE:  runInit,
}

func init() {
	initCmd.Flags().BoolVarP(&initForce, "force", "f", false,
		"overwrite an existing config file")
	rootCmd.AddCommand(initCmd)
}

// starterConfig is the scaffold written by `conclave init`. Agent
// entries are examples; paths must point at installed CLIs.
func starterConfig() map[string]interface{} {
	return map[string]interface{}{
		"log": map[string]interface{}{
			"level":  "info",
			"format": "auto",
		},
		"state": map[string]interface{}{
			"backend": "sqlite",
			"path":    ".conclave/state.db",
		},
		"server": map[string]interface{}{
			"host": "localhost",
			"port": 8080,
		},
		"supervisor": map[string]interface{}{
			"tick_interval":   "5s",
			"concurrency":     8,
			"session_timeout": "10m",
			"chat_timeout":    "2m",
		},
		"synthesis": map[string]interface{}{
			"max_attempts": 3,
			"base_delay":   "1s",
		},
		"agents": map[string]interface{}{
			"claude": map[string]interface{}{
				"path": "claude",
				"args": []string{"-p"},
			},
			"gemini": map[string]interface{}{
				"path": "gemini",
				"args": []string{"-p"},
			},
		},
	}
}

func runInit(_ *cobra.Command, _ []string) error {
	const path = ".conclave.yaml"

	if _, err := os.Stat(path); err == nil && !initForce {
		return fmt.Errorf("%s already exists (use --force to overwrite)", path)
	}

	data, err := yaml.Marshal(starterConfig())
	if err != nil {
		return fmt.Errorf("marshaling starter config: %w", err)
	}
	if err := config.AtomicWrite(path, data); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}

	fmt.Printf("Wrote %s\n", path)
	fmt.Println("Edit the agents section to point at your installed agent CLIs,")
	fmt.Println("then run 'conclave serve'.")
	return nil
}
