package executor

import (
	"context"
	"errors"
	"image"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/LexiestLeszek/LocalComputerUse/api/schemas"
	"github.com/LexiestLeszek/LocalComputerUse/internal/action"
	"github.com/LexiestLeszek/LocalComputerUse/internal/config"
	"github.com/LexiestLeszek/LocalComputerUse/internal/mocks"
)

func noSleep(ctx context.Context, _ time.Duration) error { return ctx.Err() }

func resolvedClick(x, y, w, h int) action.Resolved {
	return action.Resolved{
		Action: action.Click(action.Point{X: 500, Y: 500}),
		Pixel:  action.Point{X: x, Y: y},
		Bounds: action.Geometry{Width: w, Height: h},
	}
}

func TestExecute_NoActionTouchesNothing(t *testing.T) {
	d := new(mocks.MockDisplay)
	e := New(d, zaptest.NewLogger(t), WithSleep(noSleep))

	out := e.Execute(context.Background(), action.Resolve(action.None("no match"), action.Geometry{Width: 100, Height: 100}))

	assert.False(t, out.Success)
	assert.Equal(t, ReasonNoAction, out.Reason)
	d.AssertNotCalled(t, "Size", mock.Anything)
	d.AssertNotCalled(t, "Click", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestExecute_OriginIsInert(t *testing.T) {
	d := new(mocks.MockDisplay)
	e := New(d, zaptest.NewLogger(t), WithSleep(noSleep))

	degraded := action.Click(action.Point{})
	degraded.Reason = action.ReasonMalformedLoc
	out := e.Execute(context.Background(), action.Resolve(degraded, action.Geometry{Width: 1920, Height: 1080}))

	assert.False(t, out.Success)
	assert.Equal(t, ReasonInertTarget, out.Reason)
	d.AssertExpectations(t)
}

func TestExecute_GlidesThenClicks(t *testing.T) {
	d := mocks.NewFakeDisplay(1920, 1080)
	var slept []time.Duration
	sleep := func(ctx context.Context, dur time.Duration) error {
		slept = append(slept, dur)
		return nil
	}
	cfg := config.ExecutorConfig{MoveDuration: 200 * time.Millisecond, MoveSteps: 10, ClickPause: 50 * time.Millisecond}
	e := New(d, zaptest.NewLogger(t), WithConfig(cfg), WithSleep(sleep))

	out := e.Execute(context.Background(), resolvedClick(960, 540, 1920, 1080))

	require.True(t, out.Success, "unexpected failure: %v", out.Err)
	assert.Equal(t, action.Point{X: 960, Y: 540}, out.Target)
	require.NotEmpty(t, d.Moves)
	assert.Equal(t, image.Pt(960, 540), d.Moves[len(d.Moves)-1])
	assert.Equal(t, []image.Point{image.Pt(960, 540)}, d.Clicks)
	require.NotEmpty(t, slept)
	assert.Equal(t, 50*time.Millisecond, slept[len(slept)-1], "click pause comes last")
}

func TestExecute_ReclampsToCurrentSize(t *testing.T) {
	// The screen shrank between resolution and execution.
	d := mocks.NewFakeDisplay(800, 600)
	e := New(d, zaptest.NewLogger(t), WithSleep(noSleep))

	out := e.Execute(context.Background(), resolvedClick(1500, 900, 1920, 1080))

	require.True(t, out.Success)
	assert.Equal(t, action.Point{X: 799, Y: 599}, out.Target)
	assert.Equal(t, []image.Point{image.Pt(799, 599)}, d.Clicks)
}

func TestExecute_DryRun(t *testing.T) {
	d := mocks.NewFakeDisplay(1920, 1080)
	cfg := config.NewDefaultConfig().Executor
	cfg.DryRun = true
	e := New(d, zaptest.NewLogger(t), WithConfig(cfg), WithSleep(noSleep))

	out := e.Execute(context.Background(), resolvedClick(10, 20, 1920, 1080))

	assert.True(t, out.Success)
	assert.Equal(t, ReasonDryRun, out.Reason)
	assert.Empty(t, d.Moves)
	assert.Zero(t, d.ClickCount())
}

func TestExecute_DisplayErrors(t *testing.T) {
	boom := errors.New("display went away")
	ctx := context.Background()

	t.Run("size", func(t *testing.T) {
		d := new(mocks.MockDisplay)
		d.On("Size", ctx).Return(0, 0, boom)
		out := New(d, zaptest.NewLogger(t), WithSleep(noSleep)).Execute(ctx, resolvedClick(5, 5, 10, 10))
		assert.False(t, out.Success)
		assert.Equal(t, ReasonDisplay, out.Reason)
		assert.ErrorIs(t, out.Err, boom)
	})

	t.Run("click", func(t *testing.T) {
		d := new(mocks.MockDisplay)
		d.On("Size", ctx).Return(100, 100, nil)
		d.On("CursorPosition", ctx).Return(5, 5, nil)
		d.On("MoveTo", ctx, 5, 5).Return(nil)
		d.On("Click", ctx, 5, 5, schemas.ButtonLeft).Return(boom)
		out := New(d, zaptest.NewLogger(t), WithSleep(noSleep)).Execute(ctx, resolvedClick(5, 5, 100, 100))
		assert.False(t, out.Success)
		assert.ErrorIs(t, out.Err, boom)
		assert.Equal(t, action.Point{X: 5, Y: 5}, out.Target)
		d.AssertExpectations(t)
	})

	t.Run("panic is recovered", func(t *testing.T) {
		d := new(mocks.MockDisplay)
		d.On("Size", ctx).Return(100, 100, nil)
		d.On("CursorPosition", ctx).Return(5, 5, nil)
		d.On("MoveTo", ctx, 5, 5).Return(nil)
		d.On("Click", ctx, 5, 5, schemas.ButtonLeft).Run(func(mock.Arguments) { panic("native crash") })
		out := New(d, zaptest.NewLogger(t), WithSleep(noSleep)).Execute(ctx, resolvedClick(5, 5, 100, 100))
		assert.False(t, out.Success)
		require.Error(t, out.Err)
		assert.Contains(t, out.Err.Error(), "native crash")
	})
}

func TestExecute_CancelledDuringGlide(t *testing.T) {
	d := mocks.NewFakeDisplay(1920, 1080)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	e := New(d, zaptest.NewLogger(t), WithSleep(noSleep))

	out := e.Execute(ctx, resolvedClick(900, 900, 1920, 1080))

	assert.False(t, out.Success)
	assert.ErrorIs(t, out.Err, context.Canceled)
	assert.Zero(t, d.ClickCount())
}
