package gen

import (
	"fmt"
	"strings"

	"plume/internal/model"
)

// toneDescriptions expands the closed tone enum into prompt instructions.
var toneDescriptions = map[model.Tone]string{
	model.ToneProfessional:  "Write in a professional, polished voice. No slang, minimal emoji.",
	model.ToneCasual:        "Write in a relaxed, conversational voice, like talking to a friend.",
	model.ToneFriendly:      "Write in a warm, approachable, encouraging voice.",
	model.ToneAuthoritative: "Write in a confident, expert voice. Make clear, definitive statements.",
	model.ToneHumorous:      "Write with wit and light humor. Clever, never mean.",
}

// refinementInstructions expands the named refinement directives.
var refinementInstructions = map[string]string{
	"shorter":      "Make it shorter and punchier while keeping the core message.",
	"funnier":      "Make it funnier. Add wit without losing the point.",
	"professional": "Rewrite it in a more professional, polished voice.",
	"casual":       "Rewrite it in a more casual, conversational voice.",
	"add_question": "End it with an engaging question to invite replies.",
	"spicier":      "Make it bolder and more provocative, but keep it respectful.",
}

// buildSystem assembles the system prompt from tone, optional style profile,
// and optional free-text context.
func buildSystem(tone model.Tone, profile *model.StyleProfile, context string) string {
	var b strings.Builder
	b.WriteString("You are a social media ghostwriter for X (Twitter). ")
	b.WriteString(fmt.Sprintf("Every post must be at most %d characters. ", model.MaxPostLen))
	if tone != "" {
		b.WriteString(toneDescriptions[tone])
		b.WriteString(" ")
	}
	if profile != nil && !profile.AnalyzedAt.IsZero() {
		b.WriteString("Match the author's established style: ")
		if tone == "" && profile.Tone != "" {
			b.WriteString(fmt.Sprintf("%s tone, ", profile.Tone))
		}
		if profile.AvgLength > 0 {
			b.WriteString(fmt.Sprintf("around %d characters, ", profile.AvgLength))
		}
		b.WriteString(fmt.Sprintf("%s emoji usage, %s hashtag usage. ", orDefault(profile.EmojiUsage, "light"), orDefault(profile.HashtagStyle, "light")))
		if len(profile.Topics) > 0 {
			b.WriteString("The author usually writes about: " + strings.Join(profile.Topics, ", ") + ". ")
		}
	}
	if context != "" {
		b.WriteString("Additional context: " + context)
	}
	return strings.TrimSpace(b.String())
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

func listPrompt(task string, count int) string {
	return fmt.Sprintf("%s Return exactly %d options, one per line, with no numbering, bullets, or commentary.", task, count)
}

func threadPrompt(topic string, length int) string {
	return fmt.Sprintf(
		"Write a compelling X thread about: %s. Produce exactly %d posts, one per line, in order. Each post stands alone under %d characters. No numbering like 1/%d.",
		topic, length, model.MaxPostLen, length)
}

const sentimentPrompt = `Analyze the sentiment of the following text. Respond with only a JSON object of the form {"score": <float between -1 and 1>, "label": "positive"|"neutral"|"negative"} and nothing else.`
