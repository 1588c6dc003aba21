// Package action holds the typed result of grounding an instruction against a
// screenshot, the parser that produces it from raw model output, and the
// mapping from the model's normalized coordinate space to screen pixels.
package action

import "fmt"

// Kind discriminates the Action variants.
type Kind int

const (
	// KindNone means there is nothing to do: the output did not match or declared a non-click verb.
	KindNone Kind = iota
	// KindClick is a left click at a normalized point.
	KindClick
)

func (k Kind) String() string {
	switch k {
	case KindClick:
		return "click"
	default:
		return "none"
	}
}

// MarshalText renders the kind by name in JSON and YAML output.
func (k Kind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

// UnmarshalText accepts the names produced by MarshalText.
func (k *Kind) UnmarshalText(b []byte) error {
	switch string(b) {
	case "click":
		*k = KindClick
	case "none":
		*k = KindNone
	default:
		return fmt.Errorf("unknown action kind %q", b)
	}
	return nil
}

// Point is an integer coordinate pair. Whether it lives in model space or
// pixel space depends on where it is carried.
type Point struct {
	X int `json:"x" yaml:"x"`
	Y int `json:"y" yaml:"y"`
}

// IsZero reports whether p is the origin.
func (p Point) IsZero() bool { return p.X == 0 && p.Y == 0 }

func (p Point) String() string { return fmt.Sprintf("(%d,%d)", p.X, p.Y) }

// Action is the tagged union produced by the parser.
type Action struct {
	Kind Kind `json:"kind"`
	// Point is the normalized model-space target. Only meaningful for KindClick.
	Point Point `json:"point"`
	// Reason explains a KindNone or a degraded click. Empty for a clean click.
	Reason string `json:"reason,omitempty"`
}

// None builds a no-op action.
func None(reason string) Action {
	return Action{Kind: KindNone, Reason: reason}
}

// Click builds a click at a normalized point.
func Click(p Point) Action {
	return Action{Kind: KindClick, Point: p}
}

// IsClick reports whether the action is a click.
func (a Action) IsClick() bool { return a.Kind == KindClick }

func (a Action) String() string {
	if a.IsClick() {
		if a.Reason != "" {
			return fmt.Sprintf("click%s [%s]", a.Point, a.Reason)
		}
		return "click" + a.Point.String()
	}
	if a.Reason == "" {
		return "none"
	}
	return "none: " + a.Reason
}
