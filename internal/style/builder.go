package style

import (
	"math"
	"sort"
	"strings"
	"time"

	"github.com/montanaflynn/stats"

	"plume/internal/apperr"
	"plume/internal/config"
	"plume/internal/model"
	"plume/internal/util"
)

// Builder derives style profiles from a corpus of short texts. It holds no
// mutable state; callers persist the returned profile.
type Builder struct {
	cfg config.StyleConfig
	now func() time.Time
}

func NewBuilder(cfg config.StyleConfig) *Builder {
	return &Builder{cfg: cfg, now: func() time.Time { return time.Now().UTC() }}
}

// Analyze derives a profile from authored posts and liked posts. Either
// collection may be empty, but not both. The corpus is bounded by the
// configured limit; posts are taken before likes since authored text is the
// stronger signal.
func (b *Builder) Analyze(posts, likes []string) (model.StyleProfile, error) {
	var p model.StyleProfile
	corpus := boundCorpus(posts, likes, b.cfg.CorpusLimit)
	if len(corpus) == 0 {
		return p, apperr.ErrInsufficientData
	}

	lengths := make([]float64, 0, len(corpus))
	totalEmoji, totalTags := 0, 0
	for _, c := range corpus {
		lengths = append(lengths, float64(util.RuneLen(c)))
		totalEmoji += util.CountEmoji(c)
		totalTags += util.CountHashtags(c)
	}
	mean, err := stats.Mean(lengths)
	if err != nil {
		return p, err
	}

	p.AvgLength = int(math.Round(mean))
	p.EmojiUsage = bucket(float64(totalEmoji) / float64(len(corpus)))
	p.HashtagStyle = bucket(float64(totalTags) / float64(len(corpus)))
	p.Tone = dominantTone(corpus)
	maxTopics := b.cfg.MaxTopics
	if maxTopics <= 0 {
		maxTopics = 5
	}
	p.Topics = extractTopics(corpus, maxTopics)
	p.AnalyzedAt = b.now()
	return p, nil
}

// NeedsRefresh reports whether a new analysis should run given an existing
// profile. Inside the cooldown window the cached profile is reused, unless
// the corpus grew enough since the analysis to force a rebuild.
func (b *Builder) NeedsRefresh(p model.StyleProfile, newItems int) bool {
	if p.AnalyzedAt.IsZero() {
		return true
	}
	cooldown := time.Duration(b.cfg.CooldownDays) * 24 * time.Hour
	if b.now().Sub(p.AnalyzedAt) >= cooldown {
		return true
	}
	// Enough fresh data overrides the cooldown.
	return newItems >= b.cfg.MinPosts
}

// MeetsThreshold reports whether the corpus is large enough for a first
// analysis.
func (b *Builder) MeetsThreshold(postCount, likeCount int) bool {
	return postCount >= b.cfg.MinPosts || likeCount >= b.cfg.MinLikes
}

func boundCorpus(posts, likes []string, limit int) []string {
	out := make([]string, 0, len(posts)+len(likes))
	for _, s := range posts {
		if strings.TrimSpace(s) != "" {
			out = append(out, s)
		}
	}
	for _, s := range likes {
		if strings.TrimSpace(s) != "" {
			out = append(out, s)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// bucket maps a per-item frequency to a categorical descriptor.
func bucket(perItem float64) string {
	switch {
	case perItem == 0:
		return "none"
	case perItem < 1:
		return "light"
	default:
		return "heavy"
	}
}

var toneSignals = map[model.Tone][]string{
	model.ToneHumorous:      {"lol", "haha", "lmao", "joke", "funny", "😂", "🤣"},
	model.ToneProfessional:  {"strategy", "insights", "analysis", "data", "research", "growth", "significant", "therefore", "roi"},
	model.ToneAuthoritative: {"must", "never", "always", "the key is", "here's how", "stop doing", "the truth is"},
	model.ToneFriendly:      {"thanks", "thank you", "love", "awesome", "congrats", "welcome", "great to"},
	model.ToneCasual:        {"tbh", "kinda", "gonna", "pretty much", "honestly", "just", "stuff"},
}

// dominantTone picks the tone whose vocabulary signal appears most often.
// Ties and silence fall back to casual, the platform's default register.
func dominantTone(corpus []string) model.Tone {
	counts := make(map[model.Tone]int)
	for _, c := range corpus {
		lc := strings.ToLower(c)
		for tone, sigs := range toneSignals {
			for _, s := range sigs {
				if strings.Contains(lc, s) {
					counts[tone]++
				}
			}
		}
		// Heavy exclamation reads as casual energy.
		if strings.Count(c, "!") >= 2 {
			counts[model.ToneCasual]++
		}
	}
	best := model.ToneCasual
	bestN := 0
	for _, tone := range model.Tones {
		if counts[tone] > bestN {
			best = tone
			bestN = counts[tone]
		}
	}
	return best
}

var stopwords = map[string]bool{
	"the": true, "a": true, "an": true, "and": true, "or": true, "but": true,
	"to": true, "of": true, "in": true, "on": true, "for": true, "with": true,
	"is": true, "are": true, "was": true, "be": true, "it": true, "this": true,
	"that": true, "i": true, "you": true, "we": true, "they": true, "my": true,
	"your": true, "at": true, "as": true, "so": true, "if": true, "not": true,
	"just": true, "have": true, "has": true, "do": true, "can": true, "will": true,
	"about": true, "all": true, "more": true, "when": true, "what": true, "how": true,
}

// extractTopics ranks non-stopword tokens by frequency, counting hashtags
// double since they are explicit topic labels, and returns the top max.
func extractTopics(corpus []string, max int) []string {
	freq := make(map[string]int)
	for _, c := range corpus {
		for _, tag := range util.Hashtags(c) {
			freq[tag] += 2
		}
		for _, tok := range util.Tokenize(c) {
			if len(tok) < 4 || stopwords[tok] || strings.HasPrefix(tok, "#") || strings.HasPrefix(tok, "@") || strings.HasPrefix(tok, "http") {
				continue
			}
			freq[tok]++
		}
	}
	type kv struct {
		word string
		n    int
	}
	ranked := make([]kv, 0, len(freq))
	for w, n := range freq {
		if n >= 2 {
			ranked = append(ranked, kv{w, n})
		}
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].n != ranked[j].n {
			return ranked[i].n > ranked[j].n
		}
		return ranked[i].word < ranked[j].word
	})
	out := make([]string, 0, max)
	for _, r := range ranked {
		if len(out) == max {
			break
		}
		out = append(out, r.word)
	}
	return out
}
