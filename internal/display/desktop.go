// Package display implements the screen-capture and pointer-injection
// boundary for the real desktop and for a Chrome page viewport.
package display

import (
	"context"
	"fmt"
	"image"

	"github.com/go-vgo/robotgo"
	"go.uber.org/zap"

	"github.com/LexiestLeszek/LocalComputerUse/api/schemas"
)

// Desktop drives the primary monitor through robotgo.
type Desktop struct {
	logger *zap.Logger
}

func NewDesktop(logger *zap.Logger) *Desktop {
	return &Desktop{logger: logger.Named("display.desktop")}
}

// guard converts a panic from the native layer into an error.
func guard(op string, fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%s panicked: %v", op, r)
		}
	}()
	return fn()
}

func (d *Desktop) Capture(ctx context.Context) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var img image.Image
	err := guard("capture", func() error {
		bitmap := robotgo.CaptureScreen()
		if bitmap == nil {
			return fmt.Errorf("screen capture returned no bitmap")
		}
		defer robotgo.FreeBitmap(bitmap)
		img = robotgo.ToImage(bitmap)
		return nil
	})
	if err != nil {
		return nil, err
	}
	if img == nil || img.Bounds().Empty() {
		return nil, fmt.Errorf("screen capture returned an empty image")
	}
	return img, nil
}

// Size reports the logical screen size, the space pointer coordinates live in.
func (d *Desktop) Size(ctx context.Context) (int, int, error) {
	if err := ctx.Err(); err != nil {
		return 0, 0, err
	}
	var w, h int
	err := guard("screen size", func() error {
		w, h = robotgo.GetScreenSize()
		return nil
	})
	if err == nil && (w <= 0 || h <= 0) {
		err = fmt.Errorf("screen reported size %dx%d", w, h)
	}
	return w, h, err
}

func (d *Desktop) CursorPosition(ctx context.Context) (int, int, error) {
	if err := ctx.Err(); err != nil {
		return 0, 0, err
	}
	var x, y int
	err := guard("cursor position", func() error {
		x, y = robotgo.Location()
		return nil
	})
	return x, y, err
}

func (d *Desktop) MoveTo(ctx context.Context, x, y int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return guard("move", func() error {
		robotgo.Move(x, y)
		return nil
	})
}

func (d *Desktop) Click(ctx context.Context, x, y int, button schemas.MouseButton) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return guard("click", func() error {
		robotgo.Move(x, y)
		robotgo.Click(string(button), false)
		d.logger.Debug("Clicked", zap.Int("x", x), zap.Int("y", y), zap.String("button", string(button)))
		return nil
	})
}

func (d *Desktop) Close() error { return nil }
