package model

import "time"

// MaxPostLen is the platform's hard character limit for a single post.
const MaxPostLen = 280

// Tone is the closed set of voices the pipeline can write in.
type Tone string

const (
	ToneProfessional  Tone = "professional"
	ToneCasual        Tone = "casual"
	ToneFriendly      Tone = "friendly"
	ToneAuthoritative Tone = "authoritative"
	ToneHumorous      Tone = "humorous"
)

// Tones lists every valid tone.
var Tones = []Tone{ToneProfessional, ToneCasual, ToneFriendly, ToneAuthoritative, ToneHumorous}

// Valid reports whether t is a known tone. The empty tone is valid and means
// "no preference".
func (t Tone) Valid() bool {
	if t == "" {
		return true
	}
	for _, k := range Tones {
		if t == k {
			return true
		}
	}
	return false
}

// Tier is a subscription level determining quota limits.
type Tier string

const (
	TierFree     Tier = "free"
	TierPro      Tier = "pro"
	TierAdvanced Tier = "advanced"
)

// Feature names a quota-gated capability.
type Feature string

const (
	FeatureGeneration Feature = "generation"
	FeatureScheduling Feature = "scheduling"
	FeatureAnalytics  Feature = "analytics"
)

// StyleProfile summarizes a user's writing habits, derived from imported posts
// and likes. Replaced wholesale on each analysis, never partially updated.
type StyleProfile struct {
	Tone         Tone
	EmojiUsage   string // none, light, heavy
	AvgLength    int
	HashtagStyle string // none, light, heavy
	Topics       []string
	AnalyzedAt   time.Time // zero until the first successful analysis
}

// ImportedItem is one post or like pulled into a user's style corpus.
type ImportedItem struct {
	SourceID   string
	Kind       string // post or like
	Content    string
	Author     string
	Likes      int
	Reposts    int
	Replies    int
	CreatedAt  time.Time
	ImportedAt time.Time
}

// Suggestion is a generated piece of content plus identifying metadata. It is
// never persisted; the ID is minted at generation time so feedback can refer
// to it without re-deriving identity from the text.
type Suggestion struct {
	ID        string
	Content   string
	Model     string
	CreatedAt time.Time
}

// ThreadPart is one post of a generated thread. Order starts at 1.
type ThreadPart struct {
	Content string
	Order   int
}

// SentimentLabel classifies a sentiment score.
type SentimentLabel string

const (
	SentimentPositive SentimentLabel = "positive"
	SentimentNeutral  SentimentLabel = "neutral"
	SentimentNegative SentimentLabel = "negative"
)

// Sentiment is a score in [-1,1] with its label.
type Sentiment struct {
	Score float64
	Label SentimentLabel
}

// FeedbackType names the generation surface a feedback record belongs to.
type FeedbackType string

const (
	FeedbackReply       FeedbackType = "reply"
	FeedbackQuote       FeedbackType = "quote"
	FeedbackStyledTweet FeedbackType = "styled_tweet"
)

// FeedbackTypes lists every valid feedback type.
var FeedbackTypes = []FeedbackType{FeedbackReply, FeedbackQuote, FeedbackStyledTweet}

// Valid reports whether t is a known feedback type.
func (t FeedbackType) Valid() bool {
	for _, k := range FeedbackTypes {
		if t == k {
			return true
		}
	}
	return false
}

// StyleSnapshot is the slice of a style profile captured at generation time
// and stored alongside feedback for later correlation.
type StyleSnapshot struct {
	Tone   Tone
	Topics []string
}

// FeedbackRecord is one stored user reaction to a generated suggestion.
// Rating is +1 or -1 once set, 0 while unrated; it is written at most once.
type FeedbackRecord struct {
	ID           int64
	UserID       string
	Type         FeedbackType
	InputText    string
	InputImage   bool
	Output       string
	SuggestionID string
	Rating       int
	WasCopied    bool
	Style        StyleSnapshot
	Model        string
	CreatedAt    time.Time
}

// FeedbackStats is the per-type rollup of stored feedback.
type FeedbackStats struct {
	Total    int
	Positive int
	Negative int
	Copied   int
}

// UsageCounter tracks consumption of one feature by one user since LastReset.
type UsageCounter struct {
	UserID    string
	Feature   Feature
	Used      int
	LastReset time.Time
}
