package cmd

import (
	"fmt"
	"os/exec"
	"strings"

	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/spf13/cobra"

	"github.com/conclave-ai/conclave/internal/adapters/state"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check configuration, agent CLIs, and system resources",
	RunE:  runDoctor,
}

func init() {
	rootCmd.AddCommand(doctorCmd)
}

func runDoctor(_ *cobra.Command, _ []string) error {
	fmt.Println("Checking configuration...")
	fmt.Println()

	cfg, err := loadConfig()
	if err != nil {
		fmt.Printf("  ✗ config: %v\n", err)
		return fmt.Errorf("configuration check failed")
	}
	fmt.Printf("  ✓ config loaded (backend=%s, state=%s)\n", cfg.State.Backend, cfg.State.Path)

	store, err := state.NewLaunchStore(cfg.State.Backend, cfg.State.Path)
	if err != nil {
		fmt.Printf("  ✗ launch store: %v\n", err)
		return fmt.Errorf("launch store check failed")
	}
	_ = state.CloseLaunchStore(store)
	fmt.Println("  ✓ launch store opens")

	fmt.Println()
	fmt.Println("Checking agent CLIs...")
	fmt.Println()

	allOk := true
	if len(cfg.Agents) == 0 {
		fmt.Println("  ○ no agents configured (run 'conclave init')")
	}
	for name, agent := range cfg.Agents {
		parts := strings.Fields(agent.Path)
		if len(parts) == 0 {
			fmt.Printf("  ✗ %s: no path configured\n", name)
			allOk = false
			continue
		}
		if _, err := exec.LookPath(parts[0]); err != nil {
			fmt.Printf("  ✗ %s: %s not found on PATH\n", name, parts[0])
			allOk = false
			continue
		}
		fmt.Printf("  ✓ %s (%s)\n", name, agent.Path)
	}

	fmt.Println()
	fmt.Println("System resources...")
	fmt.Println()

	if info, err := host.Info(); err == nil {
		fmt.Printf("  host: %s %s (%s)\n", info.Platform, info.PlatformVersion, info.KernelArch)
	}
	if vm, err := mem.VirtualMemory(); err == nil {
		fmt.Printf("  memory: %.1f GiB total, %.1f%% used\n",
			float64(vm.Total)/(1<<30), vm.UsedPercent)
		// Parallel agent sessions are memory hungry.
		if vm.UsedPercent > 90 {
			fmt.Println("  ⚠ memory usage is high; concurrent sessions may fail")
		}
	}

	fmt.Println()
	if !allOk {
		fmt.Println("Some configured agents are unavailable.")
		return fmt.Errorf("agent check failed")
	}
	fmt.Println("All checks passed.")
	return nil
}
