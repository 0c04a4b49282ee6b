package gen

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"plume/internal/apperr"
	"plume/internal/config"
	"plume/internal/engage"
	"plume/internal/metrics"
	"plume/internal/model"
	"plume/internal/provider"
)

const (
	defaultCreativity = 0.7
	maxBatchCount     = 10
	maxThreadLen      = 25

	singleTokens    = 120
	perItemTokens   = 80
	sentimentTokens = 60
)

// Pipeline turns typed generation intents into platform-valid content. One
// instance per process, constructed at startup with its provider handle.
type Pipeline struct {
	provider provider.Completer
	weights  config.EngagementWeights
	now      func() time.Time
}

func NewPipeline(p provider.Completer, weights config.EngagementWeights) *Pipeline {
	return &Pipeline{provider: p, weights: weights, now: func() time.Time { return time.Now().UTC() }}
}

// TweetParams are the normalized inputs for single-tweet generation.
type TweetParams struct {
	Prompt     string
	Tone       model.Tone
	Creativity float64 // [0,1]; negative means default
	Context    string
	Style      *model.StyleProfile
}

// ReplyParams are the normalized inputs for reply and quote batches.
type ReplyParams struct {
	TweetText string
	ImageURL  string // screenshot of the tweet, when text is unavailable
	Style     *model.StyleProfile
	Count     int
	Guidance  string
}

// RefineParams describe a follow-up transformation of an existing suggestion.
type RefineParams struct {
	Original    string
	Type        string // named directive, or "custom"
	Instruction string // required when Type is "custom"
	Context     string
}

func (p *Pipeline) mint(content string) model.Suggestion {
	return model.Suggestion{
		ID:        uuid.NewString(),
		Content:   content,
		Model:     p.provider.ModelID(),
		CreatedAt: p.now(),
	}
}

// complete invokes the provider and maps any failure to the abstracted
// generation error so provider shapes never leak to callers.
func (p *Pipeline) complete(ctx context.Context, intent string, req provider.Request) (string, error) {
	metrics.IncGeneration(intent)
	raw, err := p.provider.Complete(ctx, req)
	if err != nil {
		metrics.IncGenerationError(intent)
		logrus.WithFields(logrus.Fields{"intent": intent, "error": err.Error()}).Error("provider call failed")
		return "", apperr.Generationf(err, "%s", intent)
	}
	return raw, nil
}

func temperature(creativity float64) float64 {
	if creativity < 0 {
		creativity = defaultCreativity
	}
	if creativity > 1 {
		creativity = 1
	}
	return creativity
}

// GenerateTweet produces a single tweet from a prompt.
func (p *Pipeline) GenerateTweet(ctx context.Context, params TweetParams) (model.Suggestion, error) {
	if strings.TrimSpace(params.Prompt) == "" {
		return model.Suggestion{}, apperr.Validationf("prompt is required")
	}
	if !params.Tone.Valid() {
		return model.Suggestion{}, apperr.Validationf("unknown tone %q", params.Tone)
	}
	raw, err := p.complete(ctx, "tweet", provider.Request{
		System:      buildSystem(params.Tone, params.Style, params.Context),
		User:        "Write a single tweet about: " + params.Prompt,
		Temperature: temperature(params.Creativity),
		MaxTokens:   singleTokens,
	})
	if err != nil {
		return model.Suggestion{}, err
	}
	return p.mint(cleanSingle(raw)), nil
}

// GenerateVariations produces up to count alternative phrasings of a tweet.
func (p *Pipeline) GenerateVariations(ctx context.Context, tweet string, count int, tone model.Tone) ([]string, error) {
	if strings.TrimSpace(tweet) == "" {
		return nil, apperr.Validationf("tweet text is required")
	}
	if err := checkCount(count); err != nil {
		return nil, err
	}
	if !tone.Valid() {
		return nil, apperr.Validationf("unknown tone %q", tone)
	}
	raw, err := p.complete(ctx, "variations", provider.Request{
		System:      buildSystem(tone, nil, ""),
		User:        listPrompt("Rewrite this tweet in fresh ways, keeping its meaning: "+tweet+".", count),
		Temperature: temperature(-1),
		MaxTokens:   perItemTokens*count + perItemTokens,
	})
	if err != nil {
		return nil, err
	}
	return parseList(raw, count), nil
}

// RewriteTweet rewrites a tweet in a target tone.
func (p *Pipeline) RewriteTweet(ctx context.Context, tweet string, target model.Tone) (model.Suggestion, error) {
	if strings.TrimSpace(tweet) == "" {
		return model.Suggestion{}, apperr.Validationf("tweet text is required")
	}
	if target == "" || !target.Valid() {
		return model.Suggestion{}, apperr.Validationf("target tone is required")
	}
	raw, err := p.complete(ctx, "rewrite", provider.Request{
		System:      buildSystem(target, nil, ""),
		User:        "Rewrite this tweet in the requested voice, preserving its meaning: " + tweet,
		Temperature: 0.5,
		MaxTokens:   singleTokens,
	})
	if err != nil {
		return model.Suggestion{}, err
	}
	return p.mint(cleanSingle(raw)), nil
}

// GenerateThread produces an ordered thread about a topic.
func (p *Pipeline) GenerateThread(ctx context.Context, topic string, length int, tone model.Tone) ([]model.ThreadPart, error) {
	if strings.TrimSpace(topic) == "" {
		return nil, apperr.Validationf("topic is required")
	}
	if length < 2 || length > maxThreadLen {
		return nil, apperr.Validationf("thread length must be 2-%d, got %d", maxThreadLen, length)
	}
	if !tone.Valid() {
		return nil, apperr.Validationf("unknown tone %q", tone)
	}
	raw, err := p.complete(ctx, "thread", provider.Request{
		System:      buildSystem(tone, nil, ""),
		User:        threadPrompt(topic, length),
		Temperature: temperature(-1),
		MaxTokens:   perItemTokens * length,
	})
	if err != nil {
		return nil, err
	}
	return parseThread(raw), nil
}

// GenerateIdeas produces up to count tweet ideas for a niche.
func (p *Pipeline) GenerateIdeas(ctx context.Context, niche string, count int) ([]string, error) {
	if strings.TrimSpace(niche) == "" {
		return nil, apperr.Validationf("niche is required")
	}
	if err := checkCount(count); err != nil {
		return nil, err
	}
	raw, err := p.complete(ctx, "ideas", provider.Request{
		System:      buildSystem("", nil, ""),
		User:        listPrompt(fmt.Sprintf("Suggest tweet ideas for an account in the %s niche.", niche), count),
		Temperature: temperature(-1),
		MaxTokens:   perItemTokens*count + perItemTokens,
	})
	if err != nil {
		return nil, err
	}
	return parseList(raw, count), nil
}

// GenerateReplies produces up to count replies to a tweet, optionally from a
// screenshot and biased by the user's style profile.
func (p *Pipeline) GenerateReplies(ctx context.Context, params ReplyParams) ([]model.Suggestion, error) {
	return p.replyLike(ctx, "replies", "Write distinct replies to this tweet. Be specific, add something to the conversation", params)
}

// GenerateQuotes produces up to count quote-tweet takes on a tweet.
func (p *Pipeline) GenerateQuotes(ctx context.Context, params ReplyParams) ([]model.Suggestion, error) {
	return p.replyLike(ctx, "quotes", "Write distinct quote-tweet takes on this tweet. Add your own perspective", params)
}

func (p *Pipeline) replyLike(ctx context.Context, intent, task string, params ReplyParams) ([]model.Suggestion, error) {
	if strings.TrimSpace(params.TweetText) == "" && params.ImageURL == "" {
		return nil, apperr.Validationf("tweet text or image is required")
	}
	if err := checkCount(params.Count); err != nil {
		return nil, err
	}
	var user string
	if strings.TrimSpace(params.TweetText) != "" {
		user = task + ": " + params.TweetText
	} else {
		user = task + " (shown in the attached screenshot)."
	}
	raw, err := p.complete(ctx, intent, provider.Request{
		System:      buildSystem("", params.Style, params.Guidance),
		User:        listPrompt(user, params.Count),
		Temperature: temperature(-1),
		MaxTokens:   perItemTokens*params.Count + perItemTokens,
		ImageURL:    params.ImageURL,
	})
	if err != nil {
		return nil, err
	}
	items := parseList(raw, params.Count)
	out := make([]model.Suggestion, 0, len(items))
	for _, it := range items {
		out = append(out, p.mint(it))
	}
	return out, nil
}

// RefineSuggestion replaces an existing suggestion per a refinement
// directive. The result carries a fresh ID; feedback recorded against the
// old text stays keyed to the old text and does not transfer.
func (p *Pipeline) RefineSuggestion(ctx context.Context, params RefineParams) (model.Suggestion, error) {
	if strings.TrimSpace(params.Original) == "" {
		return model.Suggestion{}, apperr.Validationf("original suggestion is required")
	}
	instruction, ok := refinementInstructions[params.Type]
	if !ok {
		if params.Type != "custom" {
			return model.Suggestion{}, apperr.Validationf("unknown refinement type %q", params.Type)
		}
		if strings.TrimSpace(params.Instruction) == "" {
			return model.Suggestion{}, apperr.Validationf("custom refinement needs an instruction")
		}
		instruction = params.Instruction
	}
	raw, err := p.complete(ctx, "refine", provider.Request{
		System:      buildSystem("", nil, params.Context),
		User:        fmt.Sprintf("Here is a draft tweet:\n%s\n\n%s Return only the revised tweet.", params.Original, instruction),
		Temperature: temperature(-1),
		MaxTokens:   singleTokens,
	})
	if err != nil {
		return model.Suggestion{}, err
	}
	return p.mint(cleanSingle(raw)), nil
}

// AnalyzeSentiment classifies the sentiment of a text. Provider failures are
// real errors; malformed provider output degrades to the neutral default.
func (p *Pipeline) AnalyzeSentiment(ctx context.Context, text string) (model.Sentiment, error) {
	if strings.TrimSpace(text) == "" {
		return model.Sentiment{}, apperr.Validationf("text is required")
	}
	raw, err := p.complete(ctx, "sentiment", provider.Request{
		System:      sentimentPrompt,
		User:        text,
		Temperature: 0,
		MaxTokens:   sentimentTokens,
	})
	if err != nil {
		return model.Sentiment{}, err
	}
	return parseSentiment(raw), nil
}

// PredictEngagement scores a tweet's engagement potential. Deterministic,
// never a provider call.
func (p *Pipeline) PredictEngagement(text string, hasMedia bool) (int, engage.Category) {
	score := engage.Predict(text, hasMedia, p.weights)
	return score, engage.Categorize(score, p.weights)
}

func checkCount(count int) error {
	if count < 1 || count > maxBatchCount {
		return apperr.Validationf("count must be 1-%d, got %d", maxBatchCount, count)
	}
	return nil
}
