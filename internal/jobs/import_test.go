package jobs

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"plume/internal/model"
	"plume/internal/store/sqlitestore"
	"plume/internal/xclient"
)

// fakeXClient serves canned API responses.
type fakeXClient struct {
	user  xclient.User
	posts []xclient.Post
	likes []xclient.Post
}

func (f *fakeXClient) GetUserByUsername(context.Context, string) (xclient.User, error) {
	return f.user, nil
}
func (f *fakeXClient) GetUserTweets(context.Context, string, int) ([]xclient.Post, error) {
	return f.posts, nil
}
func (f *fakeXClient) GetLikedTweets(context.Context, string, int) ([]xclient.Post, error) {
	return f.likes, nil
}

// fakeAnalyzer drives the importer's branches and counts Analyze calls.
type fakeAnalyzer struct {
	profile      model.StyleProfile
	analyzeErr   error
	needsRefresh bool
	threshold    bool
	analyzed     int
}

func (f *fakeAnalyzer) Analyze(posts, likes []string) (model.StyleProfile, error) {
	f.analyzed++
	if f.analyzeErr != nil {
		return model.StyleProfile{}, f.analyzeErr
	}
	return f.profile, nil
}

func (f *fakeAnalyzer) NeedsRefresh(model.StyleProfile, int) bool { return f.needsRefresh }
func (f *fakeAnalyzer) MeetsThreshold(int, int) bool              { return f.threshold }

func testImporter(t *testing.T, fa *fakeAnalyzer) (*Importer, *sqlitestore.DB) {
	t.Helper()
	db, err := sqlitestore.Open(filepath.Join(t.TempDir(), "import.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewImporter(db, fa, 100), db
}

func items(kind string, ids ...string) []model.ImportedItem {
	now := time.Now().UTC()
	out := make([]model.ImportedItem, 0, len(ids))
	for _, id := range ids {
		out = append(out, model.ImportedItem{SourceID: id, Kind: kind, Content: "content " + id, CreatedAt: now, ImportedAt: now})
	}
	return out
}

func TestImportBuildsProfile(t *testing.T) {
	fa := &fakeAnalyzer{
		profile:   model.StyleProfile{Tone: model.ToneCasual, AnalyzedAt: time.Now().UTC()},
		threshold: true,
	}
	im, db := testImporter(t, fa)
	ctx := context.Background()

	res, err := im.ImportItems(ctx, "u1", items(KindPost, "1", "2", "3"))
	require.NoError(t, err)
	assert.Equal(t, 3, res.Added)
	assert.False(t, res.AlreadyImported)
	assert.True(t, res.HasProfile)
	assert.Equal(t, 1, fa.analyzed)

	_, found, err := db.LoadProfile(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, found, "profile persisted")
}

func TestImportCooldownSkipsAnalysis(t *testing.T) {
	fa := &fakeAnalyzer{threshold: true, needsRefresh: false}
	im, db := testImporter(t, fa)
	ctx := context.Background()

	existing := model.StyleProfile{Tone: model.ToneProfessional, AnalyzedAt: time.Now().UTC().Add(-3 * 24 * time.Hour)}
	require.NoError(t, db.SaveProfile(ctx, "u1", existing))

	res, err := im.ImportItems(ctx, "u1", items(KindPost, "1", "2"))
	require.NoError(t, err)
	assert.Equal(t, 2, res.Added, "import still merges during cooldown")
	assert.True(t, res.AlreadyImported)
	assert.True(t, res.HasProfile)
	assert.Equal(t, model.ToneProfessional, res.Profile.Tone, "cached profile returned")
	assert.Equal(t, 0, fa.analyzed, "analysis must not run inside cooldown")
}

func TestImportBelowThreshold(t *testing.T) {
	fa := &fakeAnalyzer{threshold: false}
	im, _ := testImporter(t, fa)

	res, err := im.ImportItems(context.Background(), "u1", items(KindPost, "1"))
	require.NoError(t, err)
	assert.Equal(t, 1, res.Added)
	assert.False(t, res.HasProfile)
	assert.Equal(t, 0, fa.analyzed)
}

func TestImportAnalysisFailureKeepsImport(t *testing.T) {
	fa := &fakeAnalyzer{threshold: true, analyzeErr: errors.New("corpus unusable")}
	im, db := testImporter(t, fa)
	ctx := context.Background()

	res, err := im.ImportItems(ctx, "u1", items(KindPost, "1", "2"))
	require.NoError(t, err, "failed analysis must not fail the import")
	assert.Equal(t, 2, res.Added)
	assert.False(t, res.HasProfile)

	n, err := db.CountImported(ctx, "u1", KindPost)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestImportFromAPIStoresUnderCallerKey(t *testing.T) {
	fa := &fakeAnalyzer{
		profile:   model.StyleProfile{Tone: model.ToneCasual, AnalyzedAt: time.Now().UTC()},
		threshold: true,
	}
	im, db := testImporter(t, fa)
	ctx := context.Background()

	now := time.Now().UTC()
	client := &fakeXClient{
		user: xclient.User{ID: "1234567890", Username: "alice"},
		posts: []xclient.Post{
			{ID: "p1", Text: "first post", CreatedAt: now},
			{ID: "p2", Text: "second post", CreatedAt: now},
		},
		likes: []xclient.Post{{ID: "l1", Text: "a like", CreatedAt: now}},
	}

	res, err := im.ImportFromAPI(ctx, client, "alice", "alice", 50)
	require.NoError(t, err)
	assert.Equal(t, 3, res.Added)
	assert.True(t, res.HasProfile)

	// Corpus and profile live under the key every other command resolves,
	// not under the platform's numeric ID.
	_, found, err := db.LoadProfile(ctx, "alice")
	require.NoError(t, err)
	assert.True(t, found, "profile must be visible under the caller's user key")

	_, found, err = db.LoadProfile(ctx, "1234567890")
	require.NoError(t, err)
	assert.False(t, found, "numeric platform id must not become a storage key")

	n, err := db.CountImported(ctx, "alice", "")
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	// A later file import under the same user continues the same corpus.
	res, err = im.ImportItems(ctx, "alice", items(KindPost, "p2", "p3"))
	require.NoError(t, err)
	assert.Equal(t, 1, res.Added)
}

func TestImportDedupesAcrossRuns(t *testing.T) {
	fa := &fakeAnalyzer{threshold: false}
	im, _ := testImporter(t, fa)
	ctx := context.Background()

	res, err := im.ImportItems(ctx, "u1", items(KindPost, "1", "2"))
	require.NoError(t, err)
	assert.Equal(t, 2, res.Added)

	res, err = im.ImportItems(ctx, "u1", items(KindPost, "2", "3"))
	require.NoError(t, err)
	assert.Equal(t, 1, res.Added)
}
