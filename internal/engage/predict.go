package engage

import (
	"strings"

	"plume/internal/config"
	"plume/internal/util"
)

// ctaVocab are phrases that read as a call to action.
var ctaVocab = []string{
	"retweet", "repost", "share this", "comment below", "follow for",
	"what do you think", "let me know", "drop a", "tag someone", "check out",
	"link in bio", "thread below",
}

// Category buckets a score for user-facing display.
type Category string

const (
	CategoryHigh   Category = "high"
	CategoryMedium Category = "medium"
	CategoryLow    Category = "low"
)

// Predict scores expected engagement for a post as a deterministic function
// of the text and media flag. No model call: the weights are configuration,
// not learned parameters, so the score is reproducible and tunable.
func Predict(text string, hasMedia bool, w config.EngagementWeights) int {
	score := w.Baseline
	n := util.RuneLen(text)
	if n >= w.OptimalLenMin && n <= w.OptimalLenMax {
		score += w.LengthBonus
	} else if n < 30 {
		score -= w.ShortPenalty
	}
	tags := util.CountHashtags(text)
	if tags >= 1 && tags <= 3 {
		score += w.HashtagBonus
	} else if tags > 3 {
		score -= w.HashtagPenalty
	}
	if strings.Contains(text, "?") {
		score += w.QuestionBonus
	}
	if util.ContainsAnyCaseInsensitive(text, ctaVocab) {
		score += w.CTABonus
	}
	if hasMedia {
		score += w.MediaBonus
	}
	emoji := util.CountEmoji(text)
	if emoji >= 1 && emoji <= 3 {
		score += w.EmojiBonus
	} else if emoji > 5 {
		score -= w.EmojiPenalty
	}
	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}
	return score
}

// Categorize maps a score to high/medium/low using configured thresholds.
func Categorize(score int, w config.EngagementWeights) Category {
	switch {
	case score >= w.HighThreshold:
		return CategoryHigh
	case score >= w.MediumThreshold:
		return CategoryMedium
	default:
		return CategoryLow
	}
}
