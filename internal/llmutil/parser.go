// internal/llmutil/parser.go
package llmutil

import (
	"fmt"
	"regexp"
	"strings"
	"sync"
	"unicode/utf8"
)

// codeFenceRegex unwraps content a chat model wrapped in a markdown fence.
// \x60 is a backtick; Go raw strings cannot contain one.
var codeFenceRegex = regexp.MustCompile("(?s)^\x60\x60\x60[a-zA-Z]*\\s*(.*?)\\s*\x60\x60\x60$")

var (
	spanMu    sync.Mutex
	spanCache = map[string]*regexp.Regexp{}
)

func spanRegex(tag string) *regexp.Regexp {
	spanMu.Lock()
	defer spanMu.Unlock()
	if re, ok := spanCache[tag]; ok {
		return re
	}
	t := regexp.QuoteMeta(tag)
	re := regexp.MustCompile(fmt.Sprintf(`(?s)<%s>(.*?)</%s>`, t, t))
	spanCache[tag] = re
	return re
}

// ExtractTaggedSpans returns the body of every <tag>...</tag> span in text, in
// order of appearance, with surrounding whitespace trimmed. Spans are matched
// lazily and may cross lines. Empty bodies are kept.
func ExtractTaggedSpans(text, tag string) []string {
	matches := spanRegex(tag).FindAllStringSubmatch(text, -1)
	if len(matches) == 0 {
		return nil
	}
	spans := make([]string, 0, len(matches))
	for _, m := range matches {
		spans = append(spans, strings.TrimSpace(m[1]))
	}
	return spans
}

// StripCodeFence removes a surrounding ```lang fence, if any.
func StripCodeFence(content string) string {
	content = strings.TrimSpace(content)
	if m := codeFenceRegex.FindStringSubmatch(content); len(m) > 1 {
		return m[1]
	}
	return content
}

// Truncate shortens s to at most maxLen bytes for logging, without splitting a rune.
func Truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 0 {
		return ""
	}
	cut := maxLen
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}
