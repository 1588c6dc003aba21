package action

import (
	"fmt"
	"strings"
)

// Reasons attached to actions produced by Parse.
const (
	ReasonNoTerminator     = "missing terminator"
	ReasonNoMatch          = "no match"
	ReasonMalformedLoc     = "malformed location tokens"
	ReasonUnsupportedVerbF = "unsupported action %q"
)

// Parse turns a raw grounding completion into an Action. It never fails:
// output that does not follow the answer grammar is NoAction, a non-click
// verb is NoAction, and a click whose location tokens cannot be read
// degrades to an inert click at the origin.
//
// The click target is the first location pair in the whole text, which is not
// necessarily the pair that follows the matched verb.
func Parse(raw string) Action {
	if !strings.Contains(raw, Terminator) {
		return None(ReasonNoTerminator)
	}
	keyword, ok := findAnswer(raw)
	if !ok {
		return None(ReasonNoMatch)
	}
	if keyword != ClickKeyword {
		return None(fmt.Sprintf(ReasonUnsupportedVerbF, keyword))
	}

	pair, ok := firstLocPair(raw)
	if !ok {
		return degraded()
	}
	p, err := pair.Point()
	if err != nil {
		return degraded()
	}
	return Click(p)
}

func degraded() Action {
	a := Click(Point{})
	a.Reason = ReasonMalformedLoc
	return a
}
