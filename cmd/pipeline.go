package cmd

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/LexiestLeszek/LocalComputerUse/api/schemas"
	"github.com/LexiestLeszek/LocalComputerUse/internal/config"
	"github.com/LexiestLeszek/LocalComputerUse/internal/display"
	"github.com/LexiestLeszek/LocalComputerUse/internal/executor"
	"github.com/LexiestLeszek/LocalComputerUse/internal/grounding"
	"github.com/LexiestLeszek/LocalComputerUse/internal/llmclient"
	"github.com/LexiestLeszek/LocalComputerUse/internal/metrics"
	"github.com/LexiestLeszek/LocalComputerUse/internal/orchestrator"
	"github.com/LexiestLeszek/LocalComputerUse/internal/planner"
)

// Constructors are variables so tests can substitute fakes for hardware and models.
var (
	newDisplay        = display.New
	newGroundingModel = grounding.NewModel
	newLLMClient      = llmclient.NewClient
)

// pipeline owns every component built for one command invocation.
type pipeline struct {
	display  schemas.Display
	model    schemas.GroundingModel
	llm      schemas.LLMClient
	grounder *grounding.Client
	executor *executor.Executor
	orch     *orchestrator.Orchestrator
	recorder metrics.Recorder
	// prom is set when metrics are enabled.
	prom *metrics.PrometheusRecorder
}

// buildGrounding opens the display and grounding model only.
func buildGrounding(cfg *config.Config, logger *zap.Logger) (*pipeline, error) {
	p := &pipeline{recorder: metrics.NopRecorder{}}
	if cfg.Metrics.Enabled {
		p.prom = metrics.NewPrometheusRecorder()
		p.recorder = p.prom
	}

	var err error
	if p.display, err = newDisplay(cfg.Display, logger); err != nil {
		return nil, fmt.Errorf("failed to open display: %w", err)
	}
	if p.model, err = newGroundingModel(cfg.Grounding, logger); err != nil {
		_ = p.Close()
		return nil, fmt.Errorf("failed to create grounding model: %w", err)
	}
	p.grounder = grounding.NewClient(p.model, logger, grounding.WithRecorder(p.recorder))
	return p, nil
}

// buildPipeline wires the full goal pipeline described by cfg.
func buildPipeline(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*pipeline, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	p, err := buildGrounding(cfg, logger)
	if err != nil {
		return nil, err
	}

	deps := orchestrator.Dependencies{
		Grounder: p.grounder,
		Display:  p.display,
		Recorder: p.recorder,
	}
	if !cfg.Orchestrator.Direct {
		if p.llm, err = newLLMClient(ctx, cfg.Planner, logger); err != nil {
			_ = p.Close()
			return nil, fmt.Errorf("failed to create planner client: %w", err)
		}
		deps.Planner = planner.New(p.llm, logger,
			planner.WithRecorder(p.recorder),
			planner.WithMaxTokens(cfg.Planner.MaxTokens),
		)
	}
	p.executor = executor.New(p.display, logger, executor.WithConfig(cfg.Executor))
	deps.Executor = p.executor

	if p.orch, err = orchestrator.New(deps, cfg.Orchestrator, logger); err != nil {
		_ = p.Close()
		return nil, err
	}
	return p, nil
}

// Close releases components in reverse order of creation.
func (p *pipeline) Close() error {
	var errs []error
	if p.orch != nil {
		p.orch.Close()
	}
	if p.llm != nil {
		errs = append(errs, p.llm.Close())
	}
	if p.model != nil {
		errs = append(errs, p.model.Close())
	}
	if p.display != nil {
		errs = append(errs, p.display.Close())
	}
	return errors.Join(errs...)
}
