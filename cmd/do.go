package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/LexiestLeszek/LocalComputerUse/internal/observability"
)

func newDoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "do <goal>",
		Short: "Carry out a single goal and exit",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			goal := strings.TrimSpace(strings.Join(args, " "))
			if goal == "" {
				return fmt.Errorf("goal must not be empty")
			}
			cfg, err := configFrom(cmd)
			if err != nil {
				return err
			}

			p, err := buildPipeline(cmd.Context(), cfg, observability.GetLogger())
			if err != nil {
				return err
			}
			defer p.Close()

			report, err := p.orch.RunGoal(cmd.Context(), goal)
			if report != nil {
				fmt.Fprint(cmd.OutOrStdout(), report.Summary())
			}
			return err
		},
	}
}
