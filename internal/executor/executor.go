// Package executor performs resolved actions on a display.
package executor

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/LexiestLeszek/LocalComputerUse/api/schemas"
	"github.com/LexiestLeszek/LocalComputerUse/internal/action"
	"github.com/LexiestLeszek/LocalComputerUse/internal/config"
	"github.com/LexiestLeszek/LocalComputerUse/internal/humanoid"
)

// Reasons reported for actions that were not performed.
const (
	ReasonNoAction    = "no action"
	ReasonInertTarget = "inert target"
	ReasonDisplay     = "display error"
	ReasonDryRun      = "dry run"
)

// Outcome describes what happened to one resolved action.
type Outcome struct {
	Success bool
	Reason  string
	// Target is the pixel the click was aimed at, after re-clamping.
	Target action.Point
	Err    error
}

// Executor clicks resolved targets, gliding the pointer there first.
type Executor struct {
	display    schemas.Display
	logger     *zap.Logger
	glider     *humanoid.Glider
	clickPause time.Duration
	dryRun     bool
	sleep      humanoid.SleepFunc
}

// Option configures an Executor.
type Option func(*Executor)

// WithConfig applies movement timing and dry-run settings.
func WithConfig(cfg config.ExecutorConfig) Option {
	return func(e *Executor) {
		e.glider = humanoid.NewGlider(cfg.MoveDuration, cfg.MoveSteps, humanoid.WithSleep(e.sleepFn))
		e.clickPause = cfg.ClickPause
		e.dryRun = cfg.DryRun
	}
}

// WithSleep replaces the pacing function used for gliding and pausing.
func WithSleep(fn humanoid.SleepFunc) Option {
	return func(e *Executor) { e.sleep = fn }
}

// WithGlider replaces the pointer trajectory generator.
func WithGlider(g *humanoid.Glider) Option {
	return func(e *Executor) { e.glider = g }
}

// New creates an executor over display with the default timings.
func New(display schemas.Display, logger *zap.Logger, opts ...Option) *Executor {
	def := config.NewDefaultConfig().Executor
	e := &Executor{
		display:    display,
		logger:     logger.Named("executor"),
		clickPause: def.ClickPause,
		sleep:      humanoid.Sleep,
	}
	e.glider = humanoid.NewGlider(def.MoveDuration, def.MoveSteps, humanoid.WithSleep(e.sleepFn))
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// sleepFn defers to the current sleep so WithSleep applies regardless of option order.
func (e *Executor) sleepFn(ctx context.Context, d time.Duration) error {
	return e.sleep(ctx, d)
}

// Execute performs r. It never returns an error; failures are reported in
// the Outcome. A click resolved to exactly the origin is treated as inert
// and nothing is injected.
func (e *Executor) Execute(ctx context.Context, r action.Resolved) (out Outcome) {
	if !r.Action.IsClick() {
		return Outcome{Reason: ReasonNoAction}
	}
	if r.Pixel.IsZero() {
		e.logger.Info("Skipping click at origin", zap.String("reason", r.Action.Reason))
		return Outcome{Reason: ReasonInertTarget}
	}

	defer func() {
		if p := recover(); p != nil {
			e.logger.Error("Recovered from panic during execution", zap.Any("panic", p))
			out = Outcome{Reason: ReasonDisplay, Target: out.Target, Err: fmt.Errorf("panic during execution: %v", p)}
		}
	}()

	w, h, err := e.display.Size(ctx)
	if err != nil {
		return e.fail(out, fmt.Errorf("failed to query display size: %w", err))
	}
	out.Target = action.Clamp(r.Pixel, action.Geometry{Width: w, Height: h})

	if e.dryRun {
		e.logger.Info("Dry run, not clicking", zap.Stringer("target", out.Target))
		out.Success, out.Reason = true, ReasonDryRun
		return out
	}

	cx, cy, err := e.display.CursorPosition(ctx)
	if err != nil {
		return e.fail(out, fmt.Errorf("failed to read cursor position: %w", err))
	}
	if err := e.glider.Glide(ctx, e.display, humanoid.V(cx, cy), humanoid.V(out.Target.X, out.Target.Y)); err != nil {
		return e.fail(out, fmt.Errorf("pointer move failed: %w", err))
	}
	if err := e.sleep(ctx, e.clickPause); err != nil {
		return e.fail(out, err)
	}
	if err := e.display.Click(ctx, out.Target.X, out.Target.Y, schemas.ButtonLeft); err != nil {
		return e.fail(out, fmt.Errorf("click failed: %w", err))
	}

	e.logger.Debug("Clicked", zap.Stringer("target", out.Target))
	out.Success = true
	return out
}

func (e *Executor) fail(out Outcome, err error) Outcome {
	e.logger.Warn("Action failed", zap.Stringer("target", out.Target), zap.Error(err))
	out.Success = false
	out.Reason = ReasonDisplay
	out.Err = err
	return out
}
