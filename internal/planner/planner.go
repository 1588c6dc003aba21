// Package planner decomposes a high-level goal into ordered GUI instructions
// using a chat model.
package planner

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/LexiestLeszek/LocalComputerUse/api/schemas"
	"github.com/LexiestLeszek/LocalComputerUse/internal/llmutil"
	"github.com/LexiestLeszek/LocalComputerUse/internal/metrics"
)

// StepTag delimits one instruction in the chat model's answer.
const StepTag = "step"

// SystemPrompt instructs the chat model how to lay out a plan.
const SystemPrompt = `You are a planner that controls a computer through a mouse.
Break the user's goal into a short sequence of atomic GUI actions that can each be performed with a single left click on the current screen.
Rules:
- Each step describes exactly one click target in plain words, such as "Click the Settings icon in the taskbar".
- Steps must be sequential; a later step may rely on the screen produced by an earlier one.
- Never propose steps that require typing, keyboard shortcuts, dragging or scrolling.
- Never propose destructive or irreversible actions unless the goal explicitly asks for them.
- Wrap every step in <step></step> tags and output nothing else.`

// Plan is an ordered list of instructions. It is not modified after creation.
type Plan []string

// Planner turns goals into plans.
type Planner struct {
	llm       schemas.LLMClient
	logger    *zap.Logger
	recorder  metrics.Recorder
	maxTokens int
}

// Option configures a Planner.
type Option func(*Planner)

// WithRecorder reports planning outcomes.
func WithRecorder(r metrics.Recorder) Option {
	return func(p *Planner) { p.recorder = r }
}

// WithMaxTokens bounds the planner's answer. Zero keeps the provider default.
func WithMaxTokens(n int) Option {
	return func(p *Planner) { p.maxTokens = n }
}

// New creates a planner backed by llm.
func New(llm schemas.LLMClient, logger *zap.Logger, opts ...Option) *Planner {
	p := &Planner{
		llm:      llm,
		logger:   logger.Named("planner"),
		recorder: metrics.NopRecorder{},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// BuildUserPrompt embeds the goal in the planning request.
func BuildUserPrompt(goal string) string {
	return fmt.Sprintf("Goal: %s\n\nList the steps needed to accomplish this goal.", strings.TrimSpace(goal))
}

// Plan asks the chat model for the steps of goal. An answer without step tags
// yields an empty Plan and no error; only a failed chat call returns one.
func (p *Planner) Plan(ctx context.Context, goal string) (Plan, error) {
	req := schemas.GenerationRequest{
		SystemPrompt: SystemPrompt,
		UserPrompt:   BuildUserPrompt(goal),
		Tier:         schemas.TierPowerful,
		Options: schemas.GenerationOptions{
			Temperature: 0,
			MaxTokens:   p.maxTokens,
		},
	}

	start := time.Now()
	text, err := p.llm.Generate(ctx, req)
	if err != nil {
		p.recorder.ObservePlanning(false, 0, time.Since(start))
		return nil, fmt.Errorf("planner chat call failed: %w", err)
	}

	plan := ExtractSteps(text)
	p.recorder.ObservePlanning(len(plan) > 0, len(plan), time.Since(start))
	if len(plan) == 0 {
		p.logger.Warn("Planner response contained no steps", zap.String("response", llmutil.Truncate(text, 300)))
		return plan, nil
	}
	p.logger.Info("Plan created", zap.String("goal", goal), zap.Int("steps", len(plan)))
	return plan, nil
}

// ExtractSteps returns every <step>...</step> body in order, trimmed. Nothing
// is merged, dropped or deduplicated; an empty body is still a step.
func ExtractSteps(text string) Plan {
	spans := llmutil.ExtractTaggedSpans(llmutil.StripCodeFence(text), StepTag)
	return Plan(spans)
}

// Direct wraps a single instruction as a one-step plan.
func Direct(instruction string) Plan {
	return Plan{strings.TrimSpace(instruction)}
}
