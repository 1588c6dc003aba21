// Package humanoid moves the pointer along smooth, slightly curved paths
// instead of teleporting it to its target.
package humanoid

import (
	"context"
	"math"
	"math/rand"
	"time"
)

// Mover places the pointer at a pixel.
type Mover interface {
	MoveTo(ctx context.Context, x, y int) error
}

// SleepFunc waits for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Sleep is the default SleepFunc.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// computeEaseInOutCubic gives a smooth acceleration and deceleration profile.
func computeEaseInOutCubic(t float64) float64 {
	if t < 0.5 {
		return 4 * t * t * t
	}
	return 1 - math.Pow(-2*t+2, 3)/2
}

// BezierPath samples a cubic Bezier from start to end in steps points. bow
// pushes both control points sideways by that fraction of the distance, so 0
// is a straight line. The first point is start and the last is end.
func BezierPath(start, end Vector2D, bow float64, steps int) []Vector2D {
	if steps < 2 || start.Dist(end) < 1.0 {
		return []Vector2D{end}
	}

	p0, p3 := start, end
	mainVec := end.Sub(start)
	offset := mainVec.Perp().Normalize().Mul(bow * mainVec.Mag())
	p1 := start.Add(mainVec.Mul(1.0 / 3.0)).Add(offset)
	p2 := start.Add(mainVec.Mul(2.0 / 3.0)).Add(offset)

	path := make([]Vector2D, steps)
	for i := 0; i < steps; i++ {
		t := float64(i) / float64(steps-1)
		omt := 1.0 - t
		omt2 := omt * omt
		t2 := t * t
		path[i] = p0.Mul(omt2 * omt).Add(p1.Mul(3 * omt2 * t)).Add(p2.Mul(3 * omt * t2)).Add(p3.Mul(t2 * t))
	}
	path[steps-1] = end
	return path
}

// Glider walks the pointer along a Bezier path over a fixed duration.
type Glider struct {
	duration time.Duration
	steps    int
	maxBow   float64
	sleep    SleepFunc
	rng      *rand.Rand
}

// GlideOption configures a Glider.
type GlideOption func(*Glider)

// WithSleep replaces the pacing function, mainly for tests.
func WithSleep(fn SleepFunc) GlideOption {
	return func(g *Glider) { g.sleep = fn }
}

// WithRand fixes the source of path curvature.
func WithRand(rng *rand.Rand) GlideOption {
	return func(g *Glider) { g.rng = rng }
}

// WithMaxBow bounds path curvature as a fraction of the travel distance.
func WithMaxBow(b float64) GlideOption {
	return func(g *Glider) { g.maxBow = math.Abs(b) }
}

// NewGlider creates a glider that takes duration to cover any distance in
// steps positions. steps below 2 collapse to a single jump.
func NewGlider(duration time.Duration, steps int, opts ...GlideOption) *Glider {
	g := &Glider{
		duration: duration,
		steps:    steps,
		maxBow:   0.12,
		sleep:    Sleep,
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Path returns the positions a glide from start to end would visit, with
// time-based easing applied so points bunch up near both ends.
func (g *Glider) Path(start, end Vector2D) []Vector2D {
	bow := (g.rng.Float64()*2 - 1) * g.maxBow
	ideal := BezierPath(start, end, bow, g.steps)
	if len(ideal) < 2 {
		return ideal
	}

	eased := make([]Vector2D, len(ideal))
	last := len(ideal) - 1
	for i := range eased {
		t := computeEaseInOutCubic(float64(i) / float64(last))
		eased[i] = ideal[int(math.Round(t*float64(last)))]
	}
	return eased
}

// Glide moves m from start to end. It always finishes exactly on end unless
// ctx is cancelled or a move fails.
func (g *Glider) Glide(ctx context.Context, m Mover, start, end Vector2D) error {
	path := g.Path(start, end)

	var interval time.Duration
	if len(path) > 1 {
		interval = g.duration / time.Duration(len(path)-1)
	}

	lastX, lastY := start.Pixel()
	moved := false
	for i, p := range path {
		if i > 0 {
			if err := g.sleep(ctx, interval); err != nil {
				return err
			}
		}
		x, y := p.Pixel()
		if x == lastX && y == lastY {
			continue
		}
		if err := m.MoveTo(ctx, x, y); err != nil {
			return err
		}
		lastX, lastY = x, y
		moved = true
	}

	ex, ey := end.Pixel()
	if !moved || lastX != ex || lastY != ey {
		return m.MoveTo(ctx, ex, ey)
	}
	return nil
}
