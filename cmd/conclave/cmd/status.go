package cmd

import (
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/conclave-ai/conclave/internal/adapters/state"
	"github.com/conclave-ai/conclave/internal/core"
)

var statusCouncil string

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show councils and recent launches",
	RunE:  runStatus,
}

func init() {
	statusCmd.Flags().StringVar(&statusCouncil, "council", "",
		"only show launches of this council ID")
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	store, err := state.NewLaunchStore(cfg.State.Backend, cfg.State.Path)
	if err != nil {
		return fmt.Errorf("opening launch store: %w", err)
	}
	defer func() { _ = state.CloseLaunchStore(store) }()

	ctx := cmd.Context()

	councils, err := store.ListCouncils(ctx)
	if err != nil {
		return err
	}
	bold := color.New(color.Bold)
	bold.Println("Councils")
	if len(councils) == 0 {
		fmt.Println("  (none)")
	}
	for _, c := range councils {
		chairman := "none"
		if c.HasChairman() {
			chairman = string(c.ChairmanAgentID)
		}
		fmt.Printf("  %s  %s  members=%d chairman=%s rounds=%d\n",
			c.ID, c.Name, len(c.MemberAgentIDs), chairman, c.DiscussionRounds)
	}

	launches, err := store.ListLaunches(ctx, core.CouncilID(statusCouncil))
	if err != nil {
		return err
	}
	fmt.Println()
	bold.Println("Launches")
	if len(launches) == 0 {
		fmt.Println("  (none)")
	}
	for _, l := range launches {
		fmt.Printf("  %s  %s  %s  %s\n",
			l.ID, stageColor(l.Stage), l.CreatedAt.Format(time.RFC3339), truncatePrompt(l.Prompt))
	}
	return nil
}

func stageColor(s core.Stage) string {
	switch s {
	case core.StageComplete:
		return color.GreenString("%-12s", s)
	case core.StageAborted:
		return color.RedString("%-12s", s)
	case core.StageSynthesizing:
		return color.CyanString("%-12s", s)
	default:
		return color.YellowString("%-12s", s)
	}
}

func truncatePrompt(p string) string {
	if len(p) > 60 {
		return p[:57] + "..."
	}
	return p
}
