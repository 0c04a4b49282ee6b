package gen

import (
	"encoding/json"
	"regexp"
	"strings"

	"plume/internal/model"
	"plume/internal/util"
)

// listMarker matches leading bullets, numbering ("1.", "2)"), and thread
// markers ("2/5", "2/5:") that models prepend despite instructions.
var listMarker = regexp.MustCompile(`^\s*(?:[-*•]|\d+\s*/\s*\d+[:.\-]?|\d+[.)\-:])\s*`)

// cleanSingle normalizes a single-post completion: control characters and
// wrapping quotes stripped, whitespace collapsed, then hard-truncated so the
// result never exceeds the platform limit. A truncated result is exactly
// MaxPostLen runes and ends with an ellipsis.
func cleanSingle(raw string) string {
	s := util.NormalizeWhitespace(util.StripControl(raw))
	s = stripWrappingQuotes(s)
	return util.TruncateRunes(s, model.MaxPostLen)
}

func stripWrappingQuotes(s string) string {
	for _, pair := range [][2]string{{`"`, `"`}, {"'", "'"}, {"“", "”"}} {
		if strings.HasPrefix(s, pair[0]) && strings.HasSuffix(s, pair[1]) && len(s) > len(pair[0])+len(pair[1]) {
			return strings.TrimSpace(s[len(pair[0]) : len(s)-len(pair[1])])
		}
	}
	return s
}

// parseList splits a completion into at most count items, one per line.
// Oversized items are dropped, not truncated: a mid-sentence cut-off in a
// batch is worse than one fewer option.
func parseList(raw string, count int) []string {
	out := make([]string, 0, count)
	for _, line := range strings.Split(raw, "\n") {
		line = listMarker.ReplaceAllString(line, "")
		line = stripWrappingQuotes(strings.TrimSpace(line))
		if line == "" {
			continue
		}
		if util.RuneLen(line) > model.MaxPostLen {
			continue
		}
		out = append(out, line)
		if len(out) == count {
			break
		}
	}
	return out
}

// parseThread splits a completion into ordered thread parts, stripping "k/N"
// markers and assigning sequential order from 1. Oversized parts are dropped.
func parseThread(raw string) []model.ThreadPart {
	var out []model.ThreadPart
	order := 1
	for _, line := range strings.Split(raw, "\n") {
		line = listMarker.ReplaceAllString(line, "")
		line = stripWrappingQuotes(strings.TrimSpace(line))
		if line == "" {
			continue
		}
		if util.RuneLen(line) > model.MaxPostLen {
			continue
		}
		out = append(out, model.ThreadPart{Content: line, Order: order})
		order++
	}
	return out
}

var jsonBlock = regexp.MustCompile(`\{[^{}]*\}`)

// parseSentiment reads a {"score":..,"label":..} completion. Sentiment is
// advisory, so any malformed output degrades to the neutral default instead
// of surfacing an error.
func parseSentiment(raw string) model.Sentiment {
	neutral := model.Sentiment{Score: 0, Label: model.SentimentNeutral}
	payload := strings.TrimSpace(raw)
	if !strings.HasPrefix(payload, "{") {
		// Models sometimes wrap the JSON in prose or code fences.
		if m := jsonBlock.FindString(payload); m != "" {
			payload = m
		}
	}
	var parsed struct {
		Score float64 `json:"score"`
		Label string  `json:"label"`
	}
	if err := json.Unmarshal([]byte(payload), &parsed); err != nil {
		return neutral
	}
	if parsed.Score < -1 || parsed.Score > 1 {
		return neutral
	}
	label := model.SentimentLabel(strings.ToLower(parsed.Label))
	switch label {
	case model.SentimentPositive, model.SentimentNeutral, model.SentimentNegative:
	default:
		// Derive the label from the score when the model invents one.
		label = labelFor(parsed.Score)
	}
	return model.Sentiment{Score: parsed.Score, Label: label}
}

func labelFor(score float64) model.SentimentLabel {
	switch {
	case score > 0.2:
		return model.SentimentPositive
	case score < -0.2:
		return model.SentimentNegative
	default:
		return model.SentimentNeutral
	}
}
