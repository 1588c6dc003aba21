package action

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolve(t *testing.T) {
	fullHD := Geometry{Width: 1920, Height: 1080}

	tests := []struct {
		name  string
		point Point
		geo   Geometry
		want  Point
	}{
		{"center", Point{500, 500}, fullHD, Point{960, 540}},
		{"origin", Point{0, 0}, fullHD, Point{0, 0}},
		{"floor not round", Point{999, 999}, fullHD, Point{1918, 1078}},
		{"upper edge clamps", Point{1000, 1000}, fullHD, Point{1919, 1079}},
		{"far out of range clamps", Point{-5, 1 << 40}, fullHD, Point{0, 1079}},
		{"tiny display", Point{999, 500}, Geometry{Width: 1, Height: 2}, Point{0, 1}},
		{"degenerate display", Point{500, 500}, Geometry{}, Point{0, 0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := Resolve(Click(tt.point), tt.geo)
			assert.Equal(t, tt.want, r.Pixel)
			assert.Equal(t, tt.geo, r.Bounds)
			assert.True(t, r.Action.IsClick())
		})
	}
}

func TestResolve_NoActionStaysNone(t *testing.T) {
	r := Resolve(None(ReasonNoMatch), Geometry{Width: 800, Height: 600})
	assert.False(t, r.Action.IsClick())
	assert.Equal(t, Point{}, r.Pixel)
}

func TestResolve_AlwaysInBounds(t *testing.T) {
	geometries := []Geometry{
		{1, 1}, {3, 7}, {640, 480}, {1366, 768}, {1920, 1080}, {2560, 1440}, {3840, 2160}, {1000, 1000},
	}
	for _, g := range geometries {
		for x := 0; x < NormalizedRange; x += 37 {
			for y := 0; y < NormalizedRange; y += 41 {
				p := Resolve(Click(Point{x, y}), g).Pixel
				if p.X < 0 || p.X > g.Width-1 || p.Y < 0 || p.Y > g.Height-1 {
					t.Fatalf("point %v on %v resolved out of bounds: %v", Point{x, y}, g, p)
				}
			}
		}
	}
}

func TestClamp_Idempotent(t *testing.T) {
	g := Geometry{Width: 1280, Height: 720}
	for _, p := range []Point{{-10, -10}, {0, 0}, {640, 360}, {1279, 719}, {5000, 5000}} {
		once := Clamp(p, g)
		assert.Equal(t, once, Clamp(once, g), "clamp of %v", p)
	}
}
