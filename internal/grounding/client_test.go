package grounding

import (
	"context"
	"errors"
	"image"
	"image/color"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"

	"github.com/LexiestLeszek/LocalComputerUse/internal/action"
	"github.com/LexiestLeszek/LocalComputerUse/internal/mocks"
)

type recordedGrounding struct {
	outcomes []string
}

func (r *recordedGrounding) ObservePlanning(bool, int, time.Duration) {}
func (r *recordedGrounding) ObserveGrounding(outcome string, _ time.Duration) {
	r.outcomes = append(r.outcomes, outcome)
}
func (r *recordedGrounding) ObserveStep(bool, string) {}
func (r *recordedGrounding) ObserveGoal(int, int, time.Duration) {}

func screen(w, h int) image.Image {
	return image.NewRGBA(image.Rect(0, 0, w, h))
}

func TestBuildPrompt(t *testing.T) {
	assert.Equal(t, "what to do to execute the command? click on the submit button",
		BuildPrompt("  Click on the SUBMIT button \n"))
	assert.Equal(t, "what to do to execute the command? ", BuildPrompt(""))
}

func TestGround_Click(t *testing.T) {
	model := new(mocks.MockGroundingModel)
	model.On("Infer", mock.Anything, mock.AnythingOfType("*image.RGBA"), "what to do to execute the command? open settings").
		Return("</s><s>click <loc_500><loc_250>", nil).Once()

	rec := &recordedGrounding{}
	client := NewClient(model, zaptest.NewLogger(t), WithRecorder(rec))
	res := client.Ground(context.Background(), screen(200, 100), "Open settings")

	assert.Equal(t, action.Click(action.Point{X: 500, Y: 250}), res.Action)
	assert.Equal(t, action.Geometry{Width: 200, Height: 100}, res.Size)
	assert.Equal(t, "</s><s>click <loc_500><loc_250>", res.Raw)
	assert.NoError(t, res.Err)
	assert.Equal(t, []string{"click"}, rec.outcomes)
	model.AssertExpectations(t)
}

func TestGround_UnparseableOutputIsNoAction(t *testing.T) {
	model := new(mocks.MockGroundingModel)
	model.On("Infer", mock.Anything, mock.Anything, mock.Anything).Return("I cannot help with that", nil)

	res := NewClient(model, zap.NewNop()).Ground(context.Background(), screen(10, 10), "x")
	assert.Equal(t, action.KindNone, res.Action.Kind)
	assert.Equal(t, action.ReasonNoTerminator, res.Action.Reason)
	assert.NoError(t, res.Err)
}

func TestGround_InferenceErrorIsNoAction(t *testing.T) {
	model := new(mocks.MockGroundingModel)
	model.On("Infer", mock.Anything, mock.Anything, mock.Anything).Return("", errors.New("gpu on fire"))

	core, logs := observer.New(zap.WarnLevel)
	rec := &recordedGrounding{}
	res := NewClient(model, zap.New(core), WithRecorder(rec)).Ground(context.Background(), screen(10, 10), "x")

	assert.Equal(t, action.KindNone, res.Action.Kind)
	assert.Contains(t, res.Action.Reason, ReasonInferenceFailed)
	assert.Contains(t, res.Action.Reason, "gpu on fire")
	require.Error(t, res.Err)
	assert.Equal(t, 1, logs.FilterMessage("Grounding inference failed").Len())
	assert.Equal(t, []string{"error"}, rec.outcomes)
}

func TestGround_EmptyOutputIsNoAction(t *testing.T) {
	model := new(mocks.MockGroundingModel)
	model.On("Infer", mock.Anything, mock.Anything, mock.Anything).Return("  \n", nil)

	res := NewClient(model, zap.NewNop()).Ground(context.Background(), screen(10, 10), "x")
	assert.Equal(t, action.None(ReasonEmptyOutput), res.Action)
	assert.ErrorIs(t, res.Err, ErrEmptyOutput)
}

func TestGround_DegradedClickKeepsReason(t *testing.T) {
	model := new(mocks.MockGroundingModel)
	model.On("Infer", mock.Anything, mock.Anything, mock.Anything).Return("</s><s>click <loc_5>", nil)

	res := NewClient(model, zap.NewNop()).Ground(context.Background(), screen(10, 10), "x")
	assert.True(t, res.Action.IsClick())
	assert.True(t, res.Action.Point.IsZero())
	assert.Equal(t, action.ReasonMalformedLoc, res.Action.Reason)
}

func TestToRGB(t *testing.T) {
	t.Run("flattens alpha onto black", func(t *testing.T) {
		src := image.NewNRGBA(image.Rect(0, 0, 2, 1))
		src.SetNRGBA(0, 0, color.NRGBA{R: 255, G: 255, B: 255, A: 0})
		src.SetNRGBA(1, 0, color.NRGBA{R: 200, G: 100, B: 50, A: 255})

		out := ToRGB(src)
		assert.Equal(t, color.RGBA{A: 255}, out.RGBAAt(0, 0))
		assert.Equal(t, color.RGBA{R: 200, G: 100, B: 50, A: 255}, out.RGBAAt(1, 0))
	})

	t.Run("every pixel is opaque", func(t *testing.T) {
		src := image.NewNRGBA(image.Rect(0, 0, 4, 4))
		for i := range src.Pix {
			src.Pix[i] = uint8(i * 7)
		}
		out := ToRGB(src)
		for y := 0; y < 4; y++ {
			for x := 0; x < 4; x++ {
				assert.Equal(t, uint8(255), out.RGBAAt(x, y).A)
			}
		}
	})

	t.Run("rebases to the origin", func(t *testing.T) {
		src := image.NewGray(image.Rect(10, 20, 13, 22))
		src.SetGray(10, 20, color.Gray{Y: 128})

		out := ToRGB(src)
		assert.Equal(t, image.Rect(0, 0, 3, 2), out.Bounds())
		assert.Equal(t, color.RGBA{R: 128, G: 128, B: 128, A: 255}, out.RGBAAt(0, 0))
	})
}
