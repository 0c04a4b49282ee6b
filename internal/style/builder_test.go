package style

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"plume/internal/apperr"
	"plume/internal/config"
	"plume/internal/model"
)

func testBuilder(at time.Time) *Builder {
	b := NewBuilder(config.Default().Style)
	b.now = func() time.Time { return at }
	return b
}

func TestAnalyzeEmptyCorpus(t *testing.T) {
	b := testBuilder(time.Now())
	_, err := b.Analyze(nil, nil)
	assert.ErrorIs(t, err, apperr.ErrInsufficientData)

	_, err = b.Analyze([]string{"", "   "}, nil)
	assert.ErrorIs(t, err, apperr.ErrInsufficientData)
}

func TestAnalyzeAvgLength(t *testing.T) {
	b := testBuilder(time.Now())
	p, err := b.Analyze([]string{strings.Repeat("a", 100), strings.Repeat("b", 200)}, nil)
	require.NoError(t, err)
	assert.Equal(t, 150, p.AvgLength)
}

func TestAnalyzeBuckets(t *testing.T) {
	b := testBuilder(time.Now())

	p, err := b.Analyze([]string{"plain text", "more plain text"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "none", p.EmojiUsage)
	assert.Equal(t, "none", p.HashtagStyle)

	p, err = b.Analyze([]string{"one 🚀 here", "nothing", "nothing else"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "light", p.EmojiUsage)

	p, err = b.Analyze([]string{"#a #b rocket", "#c also"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "heavy", p.HashtagStyle)
}

func TestAnalyzeDominantTone(t *testing.T) {
	b := testBuilder(time.Now())
	p, err := b.Analyze([]string{"lol that was funny", "haha good joke", "lmao"}, nil)
	require.NoError(t, err)
	assert.Equal(t, model.ToneHumorous, p.Tone)

	p, err = b.Analyze([]string{"some ordinary text", "plain words here"}, nil)
	require.NoError(t, err)
	assert.Equal(t, model.ToneCasual, p.Tone, "silence falls back to casual")
}

func TestAnalyzeTopics(t *testing.T) {
	b := testBuilder(time.Now())
	posts := []string{
		"shipping #golang services again",
		"more #golang content and shipping notes",
		"shipping thoughts on distributed systems",
	}
	p, err := b.Analyze(posts, nil)
	require.NoError(t, err)
	require.NotEmpty(t, p.Topics)
	// Hashtags count double, so golang outranks the plain word.
	assert.Equal(t, "golang", p.Topics[0])
	assert.Contains(t, p.Topics, "shipping")
	assert.LessOrEqual(t, len(p.Topics), 5)
}

func TestAnalyzeSetsAnalyzedAt(t *testing.T) {
	at := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	b := testBuilder(at)
	p, err := b.Analyze([]string{"hello world"}, nil)
	require.NoError(t, err)
	assert.Equal(t, at, p.AnalyzedAt)
}

func TestAnalyzeCorpusBounded(t *testing.T) {
	cfg := config.Default().Style
	cfg.CorpusLimit = 2
	b := NewBuilder(cfg)
	// Only the first two items count: both 10 runes, the long like is cut off.
	p, err := b.Analyze([]string{strings.Repeat("a", 10), strings.Repeat("b", 10)}, []string{strings.Repeat("c", 200)})
	require.NoError(t, err)
	assert.Equal(t, 10, p.AvgLength)
}

func TestNeedsRefresh(t *testing.T) {
	now := time.Date(2026, 8, 15, 0, 0, 0, 0, time.UTC)
	b := testBuilder(now)

	assert.True(t, b.NeedsRefresh(model.StyleProfile{}, 0), "never analyzed")

	fresh := model.StyleProfile{AnalyzedAt: now.Add(-3 * 24 * time.Hour)}
	assert.False(t, b.NeedsRefresh(fresh, 0), "inside cooldown")

	stale := model.StyleProfile{AnalyzedAt: now.Add(-8 * 24 * time.Hour)}
	assert.True(t, b.NeedsRefresh(stale, 0), "past cooldown")

	assert.True(t, b.NeedsRefresh(fresh, b.cfg.MinPosts), "enough new data overrides cooldown")
}

func TestMeetsThreshold(t *testing.T) {
	b := testBuilder(time.Now())
	assert.False(t, b.MeetsThreshold(0, 0))
	assert.False(t, b.MeetsThreshold(9, 19))
	assert.True(t, b.MeetsThreshold(10, 0))
	assert.True(t, b.MeetsThreshold(0, 20))
}
