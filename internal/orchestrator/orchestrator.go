// File: internal/orchestrator/orchestrator.go
// Description: Drives one goal through planning, then capture, grounding and
// execution for every step. Components are injected as interfaces.

package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"image"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/LexiestLeszek/LocalComputerUse/api/schemas"
	"github.com/LexiestLeszek/LocalComputerUse/internal/action"
	"github.com/LexiestLeszek/LocalComputerUse/internal/config"
	"github.com/LexiestLeszek/LocalComputerUse/internal/executor"
	"github.com/LexiestLeszek/LocalComputerUse/internal/grounding"
	"github.com/LexiestLeszek/LocalComputerUse/internal/humanoid"
	"github.com/LexiestLeszek/LocalComputerUse/internal/metrics"
	"github.com/LexiestLeszek/LocalComputerUse/internal/planner"
)

// Step failure reasons raised before the executor is reached.
const (
	ReasonCaptureFailed = "capture failed"
	ReasonSizeFailed    = "size query failed"
)

// ErrClosed is returned by RunGoal after Close.
var ErrClosed = errors.New("orchestrator is closed")

// State is the orchestrator's position in the goal lifecycle.
type State int32

const (
	StateAwaitingGoal State = iota
	StatePlanning
	StateCapturing
	StateGrounding
	StateExecuting
	StateExit
)

func (s State) String() string {
	switch s {
	case StateAwaitingGoal:
		return "awaiting_goal"
	case StatePlanning:
		return "planning"
	case StateCapturing:
		return "capturing"
	case StateGrounding:
		return "grounding"
	case StateExecuting:
		return "executing"
	case StateExit:
		return "exit"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// GoalPlanner decomposes a goal into instructions.
type GoalPlanner interface {
	Plan(ctx context.Context, goal string) (planner.Plan, error)
}

// Grounder maps an instruction on a screenshot to an action.
type Grounder interface {
	Ground(ctx context.Context, screenshot image.Image, instruction string) grounding.Result
}

// ActionExecutor performs a resolved action.
type ActionExecutor interface {
	Execute(ctx context.Context, r action.Resolved) executor.Outcome
}

// Dependencies are the components the orchestrator drives. Planner may be
// nil, in which case every goal is run as a single instruction.
type Dependencies struct {
	Planner  GoalPlanner
	Grounder Grounder
	Executor ActionExecutor
	Display  schemas.Display
	Recorder metrics.Recorder
	// Sleep paces the configured delays. Defaults to humanoid.Sleep.
	Sleep humanoid.SleepFunc
}

// Orchestrator runs goals one at a time.
type Orchestrator struct {
	deps   Dependencies
	cfg    config.OrchestratorConfig
	logger *zap.Logger

	state atomic.Int32
	runMu sync.Mutex
}

// New validates deps and creates an orchestrator in StateAwaitingGoal.
func New(deps Dependencies, cfg config.OrchestratorConfig, logger *zap.Logger) (*Orchestrator, error) {
	if deps.Grounder == nil || deps.Executor == nil || deps.Display == nil || logger == nil {
		return nil, fmt.Errorf("cannot initialize orchestrator with nil dependencies")
	}
	if deps.Recorder == nil {
		deps.Recorder = metrics.NopRecorder{}
	}
	if deps.Sleep == nil {
		deps.Sleep = humanoid.Sleep
	}
	if deps.Planner == nil {
		cfg.Direct = true
	}
	return &Orchestrator{deps: deps, cfg: cfg, logger: logger.Named("orchestrator")}, nil
}

// State reports the current lifecycle state.
func (o *Orchestrator) State() State { return State(o.state.Load()) }

func (o *Orchestrator) setState(s State) {
	for {
		cur := o.state.Load()
		if State(cur) == StateExit {
			return
		}
		if o.state.CompareAndSwap(cur, int32(s)) {
			return
		}
	}
}

// Close moves the orchestrator to StateExit. Later RunGoal calls fail with
// ErrClosed; a goal already running finishes its current stage.
func (o *Orchestrator) Close() {
	o.state.Store(int32(StateExit))
}

// RunGoal plans goal and attempts every step in order. Step failures are
// recorded in the report and never stop the run. An error is returned only
// when ctx ends or the orchestrator is closed; the partial report is still
// returned alongside it.
func (o *Orchestrator) RunGoal(ctx context.Context, goal string) (*Report, error) {
	o.runMu.Lock()
	defer o.runMu.Unlock()

	if o.State() == StateExit {
		return nil, ErrClosed
	}
	defer o.setState(StateAwaitingGoal)

	report := &Report{RunID: uuid.NewString(), Goal: goal, Started: time.Now()}
	logger := o.logger.With(zap.String("run_id", report.RunID))
	defer func() {
		report.Finished = time.Now()
		o.deps.Recorder.ObserveGoal(report.Succeeded, report.Failed, report.Finished.Sub(report.Started))
	}()

	report.Plan = o.plan(ctx, goal, report, logger)
	if err := ctx.Err(); err != nil {
		return report, err
	}
	if len(report.Plan) == 0 {
		logger.Warn("No steps to execute", zap.String("goal", goal))
		return report, nil
	}

	for i, instruction := range report.Plan {
		if o.State() == StateExit {
			return report, ErrClosed
		}
		step, err := o.runStep(ctx, i, instruction, logger)
		if err != nil {
			return report, err
		}
		report.add(step)
	}

	logger.Info("Goal finished",
		zap.Int("steps", len(report.Plan)),
		zap.Int("succeeded", report.Succeeded),
		zap.Int("failed", report.Failed),
	)
	return report, nil
}

// plan produces the step list. A planner failure is logged and yields an
// empty plan.
func (o *Orchestrator) plan(ctx context.Context, goal string, report *Report, logger *zap.Logger) planner.Plan {
	if o.cfg.Direct {
		return planner.Direct(goal)
	}
	o.setState(StatePlanning)
	steps, err := o.deps.Planner.Plan(ctx, goal)
	if err != nil {
		report.PlanErr = err
		logger.Error("Planning failed", zap.String("goal", goal), zap.Error(err))
		return nil
	}
	return steps
}

// runStep carries one instruction through capture, grounding and execution.
// The returned error is non-nil only when ctx ended during a wait.
func (o *Orchestrator) runStep(ctx context.Context, index int, instruction string, logger *zap.Logger) (StepResult, error) {
	started := time.Now()
	step := StepResult{Index: index, Instruction: instruction}
	logger = logger.With(zap.Int("step", index+1), zap.String("instruction", instruction))
	finish := func(success bool, reason string, err error) (StepResult, error) {
		step.Success, step.Reason, step.Err = success, reason, err
		step.Duration = time.Since(started)
		o.deps.Recorder.ObserveStep(success, reason)
		if success {
			logger.Info("Action executed successfully", zap.Stringer("pixel", step.Resolved.Pixel))
		} else {
			logger.Warn("Failed to execute action", zap.String("reason", reason), zap.Error(err))
		}
		return step, nil
	}

	o.setState(StateCapturing)
	if err := o.deps.Sleep(ctx, o.cfg.CaptureDelay); err != nil {
		return step, err
	}
	screenshot, err := o.deps.Display.Capture(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return step, ctx.Err()
		}
		return finish(false, ReasonCaptureFailed, fmt.Errorf("screen capture failed: %w", err))
	}

	o.setState(StateGrounding)
	res := o.deps.Grounder.Ground(ctx, screenshot, instruction)
	step.Action, step.Raw, step.Captured = res.Action, res.Raw, res.Size
	logger.Info("Grounded instruction", zap.Stringer("action", res.Action), zap.Duration("latency", res.Latency))
	if err := ctx.Err(); err != nil {
		return step, err
	}
	if err := o.deps.Sleep(ctx, o.cfg.PostGroundingDwell); err != nil {
		return step, err
	}

	w, h, err := o.deps.Display.Size(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return step, ctx.Err()
		}
		return finish(false, ReasonSizeFailed, fmt.Errorf("display size query failed: %w", err))
	}
	current := action.Geometry{Width: w, Height: h}
	if current != res.Size {
		logger.Warn("Display geometry changed since capture",
			zap.Int("captured_width", res.Size.Width), zap.Int("captured_height", res.Size.Height),
			zap.Int("width", w), zap.Int("height", h))
	}
	step.Resolved = action.Resolve(res.Action, current)

	if err := o.deps.Sleep(ctx, o.cfg.PreExecutionSettle); err != nil {
		return step, err
	}

	o.setState(StateExecuting)
	out := o.deps.Executor.Execute(ctx, step.Resolved)
	if out.Success {
		step.Resolved.Pixel = out.Target
	}
	err = out.Err
	if err == nil {
		err = res.Err
	}
	return finish(out.Success, out.Reason, err)
}
