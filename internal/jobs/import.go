package jobs

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"plume/internal/model"
	"plume/internal/store/sqlitestore"
	"plume/internal/xclient"
)

const (
	KindPost = "post"
	KindLike = "like"
)

// Analyzer is the slice of the style builder the importer needs.
type Analyzer interface {
	Analyze(posts, likes []string) (model.StyleProfile, error)
	NeedsRefresh(p model.StyleProfile, newItems int) bool
	MeetsThreshold(postCount, likeCount int) bool
}

// ImportResult reports what one import run did.
type ImportResult struct {
	Added int
	// AlreadyImported is set when the cooldown window returned the cached
	// profile without invoking analysis.
	AlreadyImported bool
	Profile         model.StyleProfile
	HasProfile      bool
}

// Importer merges content into a user's corpus and keeps the style profile
// fresh. One authoritative writer path per user for the profile.
type Importer struct {
	db       *sqlitestore.DB
	analyzer Analyzer
	corpus   int
	now      func() time.Time
}

func NewImporter(db *sqlitestore.DB, analyzer Analyzer, corpusLimit int) *Importer {
	if corpusLimit <= 0 {
		corpusLimit = 100
	}
	return &Importer{db: db, analyzer: analyzer, corpus: corpusLimit, now: func() time.Time { return time.Now().UTC() }}
}

// ImportFromAPI pulls an account's recent tweets and liked tweets and imports
// them under userID, the same key every other read path uses. The X numeric ID
// resolved from the username is only an API routing detail and is never used
// as a storage key. Posts and likes are fetched concurrently.
func (im *Importer) ImportFromAPI(ctx context.Context, client xclient.Client, userID, username string, limit int) (ImportResult, error) {
	me, err := client.GetUserByUsername(ctx, username)
	if err != nil {
		return ImportResult{}, err
	}
	var posts, likes []xclient.Post
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		posts, err = client.GetUserTweets(gctx, me.ID, limit)
		return err
	})
	g.Go(func() error {
		var err error
		likes, err = client.GetLikedTweets(gctx, me.ID, limit)
		return err
	})
	if err := g.Wait(); err != nil {
		return ImportResult{}, err
	}
	items := make([]model.ImportedItem, 0, len(posts)+len(likes))
	for _, p := range posts {
		items = append(items, toItem(p, KindPost, im.now()))
	}
	for _, p := range likes {
		items = append(items, toItem(p, KindLike, im.now()))
	}
	return im.ImportItems(ctx, userID, items)
}

// ImportItems merges items into the user's corpus (dropping source ids
// already present) and then rebuilds the style profile when warranted. A
// failed analysis is recoverable: the import itself still succeeds without
// a profile.
func (im *Importer) ImportItems(ctx context.Context, userID string, items []model.ImportedItem) (ImportResult, error) {
	var res ImportResult
	added, err := im.db.MergeImported(ctx, userID, items)
	if err != nil {
		return res, err
	}
	res.Added = added
	logrus.WithFields(logrus.Fields{"user": userID, "offered": len(items), "added": added}).Info("content imported")

	existing, found, err := im.db.LoadProfile(ctx, userID)
	if err != nil {
		return res, err
	}
	if found && !im.analyzer.NeedsRefresh(existing, added) {
		res.AlreadyImported = true
		res.Profile = existing
		res.HasProfile = true
		return res, nil
	}

	postCount, err := im.db.CountImported(ctx, userID, KindPost)
	if err != nil {
		return res, err
	}
	likeCount, err := im.db.CountImported(ctx, userID, KindLike)
	if err != nil {
		return res, err
	}
	if !im.analyzer.MeetsThreshold(postCount, likeCount) {
		if found {
			res.Profile = existing
			res.HasProfile = true
		}
		return res, nil
	}

	posts, err := im.recentTexts(ctx, userID, KindPost)
	if err != nil {
		return res, err
	}
	likes, err := im.recentTexts(ctx, userID, KindLike)
	if err != nil {
		return res, err
	}
	profile, err := im.analyzer.Analyze(posts, likes)
	if err != nil {
		logrus.WithFields(logrus.Fields{"user": userID, "error": err.Error()}).Warn("style analysis failed, import kept")
		if found {
			res.Profile = existing
			res.HasProfile = true
		}
		return res, nil
	}
	if err := im.db.SaveProfile(ctx, userID, profile); err != nil {
		return res, err
	}
	res.Profile = profile
	res.HasProfile = true
	return res, nil
}

func (im *Importer) recentTexts(ctx context.Context, userID, kind string) ([]string, error) {
	items, err := im.db.RecentImported(ctx, userID, kind, im.corpus)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(items))
	for _, it := range items {
		out = append(out, it.Content)
	}
	return out, nil
}

func toItem(p xclient.Post, kind string, now time.Time) model.ImportedItem {
	return model.ImportedItem{
		SourceID:   p.ID,
		Kind:       kind,
		Content:    p.Text,
		Author:     p.AuthorID,
		Likes:      p.LikeCount,
		Reposts:    p.RetweetCount,
		Replies:    p.ReplyCount,
		CreatedAt:  p.CreatedAt,
		ImportedAt: now,
	}
}
