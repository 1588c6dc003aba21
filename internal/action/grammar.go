package action

import (
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

// The grounding model answers in a small markup language:
//
//	answer   := TERMINATOR keyword free loc rest
//	keyword  := tag | word
//	free     := space* (word | space)*     -- never crosses a '<'
//	loc      := "<loc_" digits ">"
//	tag      := "<" [^>]+ ">"
//	word     := [^<\s]+
//
// Everything before TERMINATOR is decoding scaffolding. The scanners below
// each consume one production starting at byte offset i and report where it
// ends; they never allocate and never panic on malformed input.

const (
	// Terminator separates the decoder's scaffolding from the answer.
	Terminator = "</s><s>"
	// ClickKeyword is the only action verb that produces a click.
	ClickKeyword = "click"

	locPrefix = "<loc_"
)

// scanTag matches "<" [^>]+ ">" at i.
func scanTag(s string, i int) (end int, ok bool) {
	if i >= len(s) || s[i] != '<' {
		return i, false
	}
	j := strings.IndexByte(s[i+1:], '>')
	if j < 1 {
		return i, false
	}
	return i + 1 + j + 1, true
}

// scanWord matches a maximal run of runes that are neither '<' nor whitespace.
func scanWord(s string, i int) (end int, ok bool) {
	end = i
	for end < len(s) {
		r, size := utf8.DecodeRuneInString(s[end:])
		if r == '<' || unicode.IsSpace(r) {
			break
		}
		end += size
	}
	return end, end > i
}

// skipSpace consumes whitespace.
func skipSpace(s string, i int) int {
	for i < len(s) {
		r, size := utf8.DecodeRuneInString(s[i:])
		if !unicode.IsSpace(r) {
			break
		}
		i += size
	}
	return i
}

// skipFree consumes everything up to the next '<'.
func skipFree(s string, i int) int {
	j := strings.IndexByte(s[i:], '<')
	if j < 0 {
		return len(s)
	}
	return i + j
}

// scanDigits matches one or more ASCII digits.
func scanDigits(s string, i int) (end int, ok bool) {
	end = i
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	return end, end > i
}

// scanLoc matches "<loc_" digits ">" at i and returns the digit span.
func scanLoc(s string, i int) (digits string, end int, ok bool) {
	if !strings.HasPrefix(s[i:], locPrefix) {
		return "", i, false
	}
	start := i + len(locPrefix)
	stop, ok := scanDigits(s, start)
	if !ok || stop >= len(s) || s[stop] != '>' {
		return "", i, false
	}
	return s[start:stop], stop + 1, true
}

// matchAnswer tries the answer production right after a terminator that ends
// at i, and returns the action keyword.
func matchAnswer(s string, i int) (keyword string, ok bool) {
	var end int
	if end, ok = scanTag(s, i); !ok {
		if end, ok = scanWord(s, i); !ok {
			return "", false
		}
	}
	keyword = s[i:end]

	// free text runs to the first '<', which must open a location token.
	next := skipFree(s, skipSpace(s, end))
	if _, _, ok = scanLoc(s, next); !ok {
		return "", false
	}
	return keyword, true
}

// findAnswer locates the leftmost terminator whose answer production matches.
func findAnswer(s string) (keyword string, found bool) {
	for off := 0; off < len(s); {
		j := strings.Index(s[off:], Terminator)
		if j < 0 {
			return "", false
		}
		at := off + j + len(Terminator)
		if kw, ok := matchAnswer(s, at); ok {
			return kw, true
		}
		off += j + 1
	}
	return "", false
}

// locPair is one "<loc_X><loc_Y>" occurrence, still in decimal text form.
type locPair struct {
	X, Y string
}

// firstLocPair returns the leftmost adjacent pair of location tokens anywhere in s.
func firstLocPair(s string) (locPair, bool) {
	for off := 0; off < len(s); {
		j := strings.Index(s[off:], locPrefix)
		if j < 0 {
			break
		}
		at := off + j
		if x, end, ok := scanLoc(s, at); ok {
			if y, _, ok := scanLoc(s, end); ok {
				return locPair{X: x, Y: y}, true
			}
		}
		off = at + 1
	}
	return locPair{}, false
}

// Point converts the pair to integers. It fails when either value overflows int.
func (p locPair) Point() (Point, error) {
	x, err := strconv.Atoi(p.X)
	if err != nil {
		return Point{}, err
	}
	y, err := strconv.Atoi(p.Y)
	if err != nil {
		return Point{}, err
	}
	return Point{X: x, Y: y}, nil
}
