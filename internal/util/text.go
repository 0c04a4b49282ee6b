package util

import (
	"regexp"
	"strings"
	"unicode"
)

var whitespace = regexp.MustCompile(`\s+`)

// NormalizeWhitespace trims and collapses whitespace to single spaces.
func NormalizeWhitespace(s string) string {
	return strings.TrimSpace(whitespace.ReplaceAllString(s, " "))
}

// ContainsAnyCaseInsensitive returns true if text contains any of the needles (case-insensitive).
func ContainsAnyCaseInsensitive(text string, needles []string) bool {
	lt := strings.ToLower(text)
	for _, n := range needles {
		if strings.Contains(lt, strings.ToLower(n)) {
			return true
		}
	}
	return false
}

// Tokenize splits on spaces and punctuation.
func Tokenize(s string) []string {
	s = strings.ToLower(s)
	repl := strings.NewReplacer(
		",", " ", ".", " ", "!", " ", "?", " ", ":", " ", ";", " ",
		"\n", " ", "\t", " ", "\r", " ", "(", " ", ")", " ", "[", " ", "]", " ",
		"\"", " ", "'", " ",
	)
	s = repl.Replace(s)
	return strings.Fields(s)
}

var hashtag = regexp.MustCompile(`#\w+`)

// Hashtags returns the hashtags in s, lowercased, without the leading '#'.
func Hashtags(s string) []string {
	found := hashtag.FindAllString(s, -1)
	out := make([]string, 0, len(found))
	for _, h := range found {
		out = append(out, strings.ToLower(strings.TrimPrefix(h, "#")))
	}
	return out
}

// CountHashtags counts hashtags in s.
func CountHashtags(s string) int {
	return len(hashtag.FindAllString(s, -1))
}

// CountEmoji counts emoji-like runes in s. Covers the common emoji blocks,
// which is enough for frequency bucketing.
func CountEmoji(s string) int {
	n := 0
	for _, r := range s {
		if isEmoji(r) {
			n++
		}
	}
	return n
}

func isEmoji(r rune) bool {
	switch {
	case r >= 0x1F300 && r <= 0x1FAFF: // pictographs, transport, supplemental
		return true
	case r >= 0x2600 && r <= 0x27BF: // misc symbols, dingbats
		return true
	case r == 0x2764 || r == 0x2B50:
		return true
	}
	return false
}

// RuneLen returns the character count of s (runes, not bytes).
func RuneLen(s string) int {
	n := 0
	for range s {
		n++
	}
	return n
}

// TruncateRunes cuts s to at most n runes, appending an ellipsis so the
// result is exactly n runes long when a cut happened.
func TruncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n-1]) + "…"
}

// StripControl removes control runes other than newline.
func StripControl(s string) string {
	return strings.Map(func(r rune) rune {
		if r == '\n' {
			return r
		}
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, s)
}
