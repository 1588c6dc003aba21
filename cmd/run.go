package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/term"

	"github.com/LexiestLeszek/LocalComputerUse/internal/metrics"
	"github.com/LexiestLeszek/LocalComputerUse/internal/observability"
	"github.com/LexiestLeszek/LocalComputerUse/internal/orchestrator"
)

// goalPrompt is shown before each interactive goal.
const goalPrompt = "\nEnter your goal (or 'quit' to exit): "

// goalRunner is the part of the orchestrator the prompt loop needs.
type goalRunner interface {
	RunGoal(ctx context.Context, goal string) (*orchestrator.Report, error)
}

func newRunCmd() *cobra.Command {
	var forcePrompt bool
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Read goals from stdin and carry each one out",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := configFrom(cmd)
			if err != nil {
				return err
			}
			logger := observability.GetLogger()

			p, err := buildPipeline(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			defer p.Close()

			prompt := forcePrompt || isTerminal(cmd.InOrStdin())
			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()
			g, gctx := errgroup.WithContext(ctx)

			if p.prom != nil {
				srv := metrics.NewServer(cfg.Metrics.ListenAddr, p.prom, logger)
				g.Go(func() error { return srv.Serve(gctx) })
			}
			g.Go(func() error {
				defer cancel()
				return promptLoop(gctx, cmd.InOrStdin(), cmd.OutOrStdout(), p.orch, prompt, logger)
			})

			err = g.Wait()
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}
	cmd.Flags().BoolVar(&forcePrompt, "prompt", false, "print the goal prompt even when stdin is not a terminal")
	return cmd
}

func isTerminal(r io.Reader) bool {
	f, ok := r.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// promptLoop runs one goal per input line until quit, EOF or cancellation.
// Blank lines are ignored.
func promptLoop(ctx context.Context, in io.Reader, out io.Writer, runner goalRunner, prompt bool, logger *zap.Logger) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	lines := make(chan string)
	readErr := make(chan error, 1)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		readErr <- scanner.Err()
	}()

	for {
		if prompt {
			fmt.Fprint(out, goalPrompt)
		}

		var line string
		var ok bool
		select {
		case <-ctx.Done():
			return ctx.Err()
		case line, ok = <-lines:
		}
		if !ok {
			select {
			case err := <-readErr:
				if err != nil {
					return fmt.Errorf("failed to read goal: %w", err)
				}
			default:
			}
			return nil
		}

		goal := strings.TrimSpace(line)
		if goal == "" {
			continue
		}
		if strings.EqualFold(goal, "quit") {
			return nil
		}

		report, err := runner.RunGoal(ctx, goal)
		if report != nil {
			fmt.Fprint(out, report.Summary())
		}
		if err != nil {
			return err
		}
		logger.Debug("Goal complete", zap.String("run_id", report.RunID))
	}
}
