package display

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"strings"
	"sync"

	"github.com/chromedp/cdproto/input"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/LexiestLeszek/LocalComputerUse/api/schemas"
	"github.com/LexiestLeszek/LocalComputerUse/internal/config"
)

// Browser treats the viewport of a Chrome tab as the screen. Pointer events
// are dispatched through the DevTools protocol, so the real cursor is untouched.
type Browser struct {
	ctx         context.Context
	cancelTab   context.CancelFunc
	cancelAlloc context.CancelFunc
	logger      *zap.Logger

	mu     sync.Mutex
	cursor image.Point
}

// execOptions builds the allocator options for cfg.
func execOptions(cfg config.BrowserConfig) []chromedp.ExecAllocatorOption {
	opts := []chromedp.ExecAllocatorOption{
		chromedp.NoFirstRun,
		chromedp.NoDefaultBrowserCheck,
		chromedp.WindowSize(cfg.Width, cfg.Height),
	}
	if cfg.Headless {
		opts = append(opts, chromedp.Headless, chromedp.DisableGPU)
	}
	for _, arg := range cfg.Args {
		key, value, found := strings.Cut(strings.TrimLeft(arg, "-"), "=")
		if key == "" {
			continue
		}
		if found {
			opts = append(opts, chromedp.Flag(key, value))
		} else {
			opts = append(opts, chromedp.Flag(key, true))
		}
	}
	return opts
}

// NewBrowser launches Chrome, sizes the viewport and opens cfg.StartURL.
// The browser lives until Close.
func NewBrowser(cfg config.BrowserConfig, logger *zap.Logger) (*Browser, error) {
	logger = logger.Named("display.browser")
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.Background(), execOptions(cfg)...)
	tabCtx, cancelTab := chromedp.NewContext(allocCtx, chromedp.WithLogf(logger.Sugar().Debugf))

	b := &Browser{ctx: tabCtx, cancelTab: cancelTab, cancelAlloc: cancelAlloc, logger: logger}

	err := chromedp.Run(tabCtx,
		chromedp.EmulateViewport(int64(cfg.Width), int64(cfg.Height)),
		chromedp.Navigate(cfg.StartURL),
	)
	if err != nil {
		_ = b.Close()
		return nil, fmt.Errorf("failed to start browser: %w", err)
	}
	logger.Info("Browser ready", zap.String("url", cfg.StartURL), zap.Int("width", cfg.Width), zap.Int("height", cfg.Height))
	return b, nil
}

// run executes actions on the tab, bounded by both the tab and the caller's context.
func (b *Browser) run(ctx context.Context, actions ...chromedp.Action) error {
	runCtx, cancel := context.WithCancel(b.ctx)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()
	return chromedp.Run(runCtx, actions...)
}

func (b *Browser) Capture(ctx context.Context) (image.Image, error) {
	var buf []byte
	if err := b.run(ctx, chromedp.CaptureScreenshot(&buf)); err != nil {
		return nil, fmt.Errorf("screenshot failed: %w", err)
	}
	img, err := png.Decode(bytes.NewReader(buf))
	if err != nil {
		return nil, fmt.Errorf("failed to decode screenshot: %w", err)
	}
	return img, nil
}

// Size reports the CSS viewport size, the space mouse events are dispatched in.
func (b *Browser) Size(ctx context.Context) (int, int, error) {
	var w, h int
	err := b.run(ctx, chromedp.ActionFunc(func(c context.Context) error {
		_, _, _, _, cssVisualViewport, _, err := page.GetLayoutMetrics().Do(c)
		if err != nil {
			return err
		}
		w, h = int(cssVisualViewport.ClientWidth), int(cssVisualViewport.ClientHeight)
		return nil
	}))
	if err != nil {
		return 0, 0, fmt.Errorf("layout metrics failed: %w", err)
	}
	return w, h, nil
}

// CursorPosition returns the last position a mouse event was dispatched at.
func (b *Browser) CursorPosition(ctx context.Context) (int, int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.cursor.X, b.cursor.Y, nil
}

func (b *Browser) MoveTo(ctx context.Context, x, y int) error {
	if err := b.run(ctx, chromedp.MouseEvent(input.MouseMoved, float64(x), float64(y))); err != nil {
		return err
	}
	b.setCursor(x, y)
	return nil
}

func (b *Browser) Click(ctx context.Context, x, y int, button schemas.MouseButton) error {
	fx, fy := float64(x), float64(y)
	err := b.run(ctx,
		chromedp.MouseEvent(input.MouseMoved, fx, fy),
		chromedp.MouseEvent(input.MousePressed, fx, fy, chromedp.Button(string(button)), chromedp.ClickCount(1)),
		chromedp.MouseEvent(input.MouseReleased, fx, fy, chromedp.Button(string(button)), chromedp.ClickCount(1)),
	)
	if err != nil {
		return err
	}
	b.setCursor(x, y)
	return nil
}

func (b *Browser) setCursor(x, y int) {
	b.mu.Lock()
	b.cursor = image.Pt(x, y)
	b.mu.Unlock()
}

// Close shuts the tab and the browser process down.
func (b *Browser) Close() error {
	if err := chromedp.Cancel(b.ctx); err != nil {
		b.logger.Debug("Browser cancel reported an error", zap.Error(err))
	}
	b.cancelTab()
	b.cancelAlloc()
	return nil
}
