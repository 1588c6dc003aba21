// Package grounding turns a screenshot and a natural-language instruction into
// an action by querying a vision-language model and parsing its output.
package grounding

import (
	"context"
	"errors"
	"image"
	"image/color"
	"image/draw"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/LexiestLeszek/LocalComputerUse/api/schemas"
	"github.com/LexiestLeszek/LocalComputerUse/internal/action"
	"github.com/LexiestLeszek/LocalComputerUse/internal/llmutil"
	"github.com/LexiestLeszek/LocalComputerUse/internal/metrics"
)

// PromptPrefix is prepended to every instruction before lowercasing.
const PromptPrefix = "What to do to execute the command? "

// Reasons attached to a NoAction produced before parsing.
const (
	ReasonEmptyOutput     = "empty inference result"
	ReasonInferenceFailed = "inference failed"
)

// ErrEmptyOutput marks a model call that succeeded but produced no text.
var ErrEmptyOutput = errors.New("grounding model returned no output")

// Result is the outcome of grounding one instruction.
type Result struct {
	Action action.Action
	// Raw is the undecoded model output, special tokens included.
	Raw string
	// Size is the screenshot geometry the model saw.
	Size    action.Geometry
	Latency time.Duration
	// Err is set when inference failed or returned nothing; Action is then NoAction.
	Err error
}

// Client wraps a GroundingModel with prompt construction and output parsing.
type Client struct {
	model    schemas.GroundingModel
	logger   *zap.Logger
	recorder metrics.Recorder
}

// Option configures a Client.
type Option func(*Client)

// WithRecorder reports grounding latency and outcome.
func WithRecorder(r metrics.Recorder) Option {
	return func(c *Client) { c.recorder = r }
}

// NewClient creates a grounding client over model.
func NewClient(model schemas.GroundingModel, logger *zap.Logger, opts ...Option) *Client {
	c := &Client{
		model:    model,
		logger:   logger.Named("grounding"),
		recorder: metrics.NopRecorder{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BuildPrompt renders the model prompt for an instruction.
func BuildPrompt(instruction string) string {
	return strings.ToLower(PromptPrefix + strings.TrimSpace(instruction))
}

// Ground asks the model what to do on screenshot to carry out instruction.
// Failures never escape as errors: they yield a NoAction with Err set.
// No timeout is applied beyond the one carried by ctx.
func (c *Client) Ground(ctx context.Context, screenshot image.Image, instruction string) Result {
	rgb := ToRGB(screenshot)
	b := rgb.Bounds()
	res := Result{Size: action.Geometry{Width: b.Dx(), Height: b.Dy()}}

	prompt := BuildPrompt(instruction)
	start := time.Now()
	raw, err := c.model.Infer(ctx, rgb, prompt)
	res.Latency = time.Since(start)
	res.Raw = raw

	switch {
	case err != nil:
		res.Err = err
		res.Action = action.None(ReasonInferenceFailed + ": " + err.Error())
		c.logger.Warn("Grounding inference failed", zap.String("instruction", instruction), zap.Error(err))
		c.recorder.ObserveGrounding("error", res.Latency)
		return res
	case strings.TrimSpace(raw) == "":
		res.Err = ErrEmptyOutput
		res.Action = action.None(ReasonEmptyOutput)
		c.logger.Warn("Grounding model returned no output", zap.String("instruction", instruction))
		c.recorder.ObserveGrounding("error", res.Latency)
		return res
	}

	res.Action = action.Parse(raw)
	c.logger.Debug("Grounded instruction",
		zap.String("instruction", instruction),
		zap.String("raw", llmutil.Truncate(raw, 200)),
		zap.Stringer("action", res.Action),
		zap.Duration("latency", res.Latency),
	)
	c.recorder.ObserveGrounding(res.Action.Kind.String(), res.Latency)
	return res
}

// ToRGB returns an opaque copy of img anchored at the origin. Transparent
// pixels are composited onto black.
func ToRGB(img image.Image) *image.RGBA {
	b := img.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), image.NewUniform(color.Black), image.Point{}, draw.Src)
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Over)
	return dst
}
