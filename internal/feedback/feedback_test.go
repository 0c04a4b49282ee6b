package feedback

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"plume/internal/apperr"
	"plume/internal/model"
	"plume/internal/store/sqlitestore"
)

func testService(t *testing.T) *Service {
	t.Helper()
	db, err := sqlitestore.Open(filepath.Join(t.TempDir(), "feedback.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewService(db)
}

func TestRecordRatingValidation(t *testing.T) {
	s := testService(t)
	ctx := context.Background()

	_, err := s.RecordRating(ctx, "u1", model.FeedbackReply, Input{}, "", "", 1, model.StyleSnapshot{}, "m")
	assert.ErrorIs(t, err, apperr.ErrValidation)

	_, err = s.RecordRating(ctx, "u1", "banana", Input{}, "out", "", 1, model.StyleSnapshot{}, "m")
	assert.ErrorIs(t, err, apperr.ErrValidation)

	_, err = s.RecordRating(ctx, "u1", model.FeedbackReply, Input{}, "out", "", 0, model.StyleSnapshot{}, "m")
	assert.ErrorIs(t, err, apperr.ErrValidation)

	_, err = s.RecordRating(ctx, "u1", model.FeedbackReply, Input{}, "out", "", 2, model.StyleSnapshot{}, "m")
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestFirstRatingWins(t *testing.T) {
	s := testService(t)
	ctx := context.Background()

	first, err := s.RecordRating(ctx, "u1", model.FeedbackReply, Input{Text: "hot take"}, "nice reply", "id-1", 1, model.StyleSnapshot{}, "m")
	require.NoError(t, err)
	assert.Equal(t, 1, first.Rating)

	// A contradictory second rating for the same key is a no-op.
	second, err := s.RecordRating(ctx, "u1", model.FeedbackReply, Input{Text: "hot take"}, "nice reply", "id-1", -1, model.StyleSnapshot{}, "m")
	require.NoError(t, err)
	assert.Equal(t, 1, second.Rating, "stored rating must not change")
}

func TestFirstRatingWinsNegativeFirst(t *testing.T) {
	s := testService(t)
	ctx := context.Background()

	_, err := s.RecordRating(ctx, "u1", model.FeedbackQuote, Input{}, "weak quote", "", -1, model.StyleSnapshot{}, "m")
	require.NoError(t, err)
	rec, err := s.RecordRating(ctx, "u1", model.FeedbackQuote, Input{}, "weak quote", "", 1, model.StyleSnapshot{}, "m")
	require.NoError(t, err)
	assert.Equal(t, -1, rec.Rating)
}

func TestRatingsKeyedByTypeAndOutput(t *testing.T) {
	s := testService(t)
	ctx := context.Background()

	// Same output under a different type is a separate record.
	_, err := s.RecordRating(ctx, "u1", model.FeedbackReply, Input{}, "same text", "", 1, model.StyleSnapshot{}, "m")
	require.NoError(t, err)
	rec, err := s.RecordRating(ctx, "u1", model.FeedbackQuote, Input{}, "same text", "", -1, model.StyleSnapshot{}, "m")
	require.NoError(t, err)
	assert.Equal(t, -1, rec.Rating)
}

func TestRecordCopyIndependentOfRating(t *testing.T) {
	s := testService(t)
	ctx := context.Background()

	// Copy before any rating creates the record.
	rec, err := s.RecordCopy(ctx, "u1", model.FeedbackStyledTweet, Input{}, "copied text", "", model.StyleSnapshot{}, "m")
	require.NoError(t, err)
	assert.True(t, rec.WasCopied)
	assert.Equal(t, 0, rec.Rating)

	// Rating afterwards still lands.
	rec, err = s.RecordRating(ctx, "u1", model.FeedbackStyledTweet, Input{}, "copied text", "", 1, model.StyleSnapshot{}, "m")
	require.NoError(t, err)
	assert.Equal(t, 1, rec.Rating)
	assert.True(t, rec.WasCopied)

	// Copying again is harmless.
	rec, err = s.RecordCopy(ctx, "u1", model.FeedbackStyledTweet, Input{}, "copied text", "", model.StyleSnapshot{}, "m")
	require.NoError(t, err)
	assert.True(t, rec.WasCopied)
	assert.Equal(t, 1, rec.Rating)
}

func TestStats(t *testing.T) {
	s := testService(t)
	ctx := context.Background()

	mustRate := func(user string, typ model.FeedbackType, output string, rating int) {
		t.Helper()
		_, err := s.RecordRating(ctx, user, typ, Input{}, output, "", rating, model.StyleSnapshot{}, "m")
		require.NoError(t, err)
	}
	mustRate("u1", model.FeedbackReply, "r1", 1)
	mustRate("u1", model.FeedbackReply, "r2", -1)
	mustRate("u1", model.FeedbackQuote, "q1", 1)
	mustRate("u2", model.FeedbackReply, "r3", 1)
	_, err := s.RecordCopy(ctx, "u1", model.FeedbackReply, Input{}, "r1", "", model.StyleSnapshot{}, "m")
	require.NoError(t, err)

	stats, err := s.Stats(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, model.FeedbackStats{Total: 2, Positive: 1, Negative: 1, Copied: 1}, stats[model.FeedbackReply])
	assert.Equal(t, model.FeedbackStats{Total: 1, Positive: 1}, stats[model.FeedbackQuote])

	all, err := s.Stats(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, 3, all[model.FeedbackReply].Total, "empty user aggregates everyone")
}

func TestExportTrainingData(t *testing.T) {
	s := testService(t)
	ctx := context.Background()

	_, err := s.RecordRating(ctx, "u1", model.FeedbackReply, Input{Text: "in"}, "good one", "", 1, model.StyleSnapshot{Tone: model.ToneCasual, Topics: []string{"golang"}}, "gpt-4o-mini")
	require.NoError(t, err)
	_, err = s.RecordRating(ctx, "u1", model.FeedbackReply, Input{}, "bad one", "", -1, model.StyleSnapshot{}, "m")
	require.NoError(t, err)
	_, err = s.RecordCopy(ctx, "u1", model.FeedbackReply, Input{}, "unrated copy", "", model.StyleSnapshot{}, "m")
	require.NoError(t, err)

	recs, err := s.ExportTrainingData(ctx, 1)
	require.NoError(t, err)
	require.Len(t, recs, 1, "only records rated at or above the floor")
	assert.Equal(t, "good one", recs[0].Output)
	assert.Equal(t, model.ToneCasual, recs[0].Style.Tone)
	assert.Equal(t, []string{"golang"}, recs[0].Style.Topics)

	recs, err = s.ExportTrainingData(ctx, -1)
	require.NoError(t, err)
	assert.Len(t, recs, 2, "unrated records are never exported")
}
