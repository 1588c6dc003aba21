package cmd

import (
	"fmt"
	"strings"
	"time"

	json "github.com/json-iterator/go"
	"github.com/spf13/cobra"

	"github.com/LexiestLeszek/LocalComputerUse/internal/action"
	"github.com/LexiestLeszek/LocalComputerUse/internal/observability"
)

// groundOutput is the machine-readable form of a dry grounding.
type groundOutput struct {
	Instruction string          `json:"instruction"`
	Raw         string          `json:"raw"`
	Action      action.Action   `json:"action"`
	Resolved    action.Resolved `json:"resolved"`
	LatencyMS   int64           `json:"latency_ms"`
	Error       string          `json:"error,omitempty"`
}

func newGroundCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "ground <instruction>",
		Short: "Capture the screen, ground one instruction and print the target without clicking",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			instruction := strings.TrimSpace(strings.Join(args, " "))
			cfg, err := configFrom(cmd)
			if err != nil {
				return err
			}
			if err := cfg.Display.Validate(); err != nil {
				return fmt.Errorf("display configuration invalid: %w", err)
			}
			if err := cfg.Grounding.Validate(); err != nil {
				return fmt.Errorf("grounding configuration invalid: %w", err)
			}

			p, err := buildGrounding(cfg, observability.GetLogger())
			if err != nil {
				return err
			}
			defer p.Close()

			ctx := cmd.Context()
			screenshot, err := p.display.Capture(ctx)
			if err != nil {
				return fmt.Errorf("screen capture failed: %w", err)
			}
			res := p.grounder.Ground(ctx, screenshot, instruction)
			w, h, err := p.display.Size(ctx)
			if err != nil {
				return fmt.Errorf("display size query failed: %w", err)
			}

			result := groundOutput{
				Instruction: instruction,
				Raw:         res.Raw,
				Action:      res.Action,
				Resolved:    action.Resolve(res.Action, action.Geometry{Width: w, Height: h}),
				LatencyMS:   res.Latency.Milliseconds(),
			}
			if res.Err != nil {
				result.Error = res.Err.Error()
			}

			out := cmd.OutOrStdout()
			if asJSON {
				data, err := json.MarshalIndent(result, "", "  ")
				if err != nil {
					return err
				}
				_, err = fmt.Fprintln(out, string(data))
				return err
			}
			fmt.Fprintf(out, "Instruction: %s\n", result.Instruction)
			fmt.Fprintf(out, "Raw output: %s\n", result.Raw)
			fmt.Fprintf(out, "Parsed action: %s\n", result.Action)
			if result.Action.IsClick() {
				fmt.Fprintf(out, "Screen target: %s on %dx%d\n", result.Resolved.Pixel, w, h)
			}
			fmt.Fprintf(out, "Latency: %s\n", time.Duration(result.LatencyMS)*time.Millisecond)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the result as JSON")
	return cmd
}
