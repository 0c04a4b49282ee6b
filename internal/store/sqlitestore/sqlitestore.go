package sqlitestore

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	_ "modernc.org/sqlite"

	"plume/internal/model"
)

// DB wraps the SQLite database holding imported content, style profiles,
// feedback records, and usage counters.
type DB struct{ sql *sql.DB }

func Open(path string) (*DB, error) {
	d, err := sql.Open("sqlite", path)
	if err != nil { return nil, err }
	if _, err := d.Exec(`PRAGMA journal_mode=WAL; PRAGMA synchronous=NORMAL;`); err != nil { return nil, err }
	db := &DB{sql: d}
	if err := db.migrate(); err != nil { _ = d.Close(); return nil, err }
	return db, nil
}

func (d *DB) Close() error { return d.sql.Close() }

func (d *DB) migrate() error {
	_, err := d.sql.Exec(`
	CREATE TABLE IF NOT EXISTS imported_content (
	  id INTEGER PRIMARY KEY AUTOINCREMENT,
	  user_id TEXT NOT NULL,
	  source_id TEXT NOT NULL,
	  kind TEXT NOT NULL,
	  content TEXT NOT NULL,
	  author TEXT,
	  likes INTEGER NOT NULL DEFAULT 0,
	  reposts INTEGER NOT NULL DEFAULT 0,
	  replies INTEGER NOT NULL DEFAULT 0,
	  created_at INTEGER,
	  imported_at INTEGER NOT NULL,
	  UNIQUE(user_id, source_id)
	);
	CREATE INDEX IF NOT EXISTS idx_imported_user_kind ON imported_content(user_id, kind);
	CREATE TABLE IF NOT EXISTS style_profiles (
	  user_id TEXT PRIMARY KEY,
	  tone TEXT NOT NULL,
	  emoji_usage TEXT NOT NULL,
	  avg_length INTEGER NOT NULL,
	  hashtag_style TEXT NOT NULL,
	  topics TEXT NOT NULL,
	  analyzed_at INTEGER NOT NULL
	);
	CREATE TABLE IF NOT EXISTS feedback (
	  id INTEGER PRIMARY KEY AUTOINCREMENT,
	  user_id TEXT NOT NULL,
	  type TEXT NOT NULL,
	  input_text TEXT,
	  input_image INTEGER NOT NULL DEFAULT 0,
	  output TEXT NOT NULL,
	  suggestion_id TEXT,
	  rating INTEGER NOT NULL DEFAULT 0,
	  was_copied INTEGER NOT NULL DEFAULT 0,
	  style_tone TEXT,
	  style_topics TEXT,
	  model TEXT,
	  created_at INTEGER NOT NULL,
	  UNIQUE(user_id, type, output)
	);
	CREATE TABLE IF NOT EXISTS usage_counters (
	  user_id TEXT NOT NULL,
	  feature TEXT NOT NULL,
	  used INTEGER NOT NULL DEFAULT 0,
	  last_reset INTEGER NOT NULL,
	  PRIMARY KEY(user_id, feature)
	);
	`)
	return err
}

// --- imported content ---

// MergeImported inserts items, dropping any whose source id is already
// present for the user. Returns how many were actually added.
func (d *DB) MergeImported(ctx context.Context, userID string, items []model.ImportedItem) (int, error) {
	added := 0
	for _, it := range items {
		res, err := d.sql.ExecContext(ctx,
			`INSERT OR IGNORE INTO imported_content(user_id, source_id, kind, content, author, likes, reposts, replies, created_at, imported_at)
			 VALUES(?,?,?,?,?,?,?,?,?,?)`,
			userID, it.SourceID, it.Kind, it.Content, it.Author, it.Likes, it.Reposts, it.Replies, it.CreatedAt.Unix(), it.ImportedAt.Unix())
		if err != nil { return added, err }
		n, _ := res.RowsAffected()
		added += int(n)
	}
	return added, nil
}

// CountImported counts a user's items of one kind ("" for all).
func (d *DB) CountImported(ctx context.Context, userID, kind string) (int, error) {
	var row *sql.Row
	if kind == "" {
		row = d.sql.QueryRowContext(ctx, `SELECT COUNT(*) FROM imported_content WHERE user_id=?`, userID)
	} else {
		row = d.sql.QueryRowContext(ctx, `SELECT COUNT(*) FROM imported_content WHERE user_id=? AND kind=?`, userID, kind)
	}
	var n int
	err := row.Scan(&n)
	return n, err
}

// RecentImported returns up to limit items of one kind, newest first.
func (d *DB) RecentImported(ctx context.Context, userID, kind string, limit int) ([]model.ImportedItem, error) {
	rows, err := d.sql.QueryContext(ctx,
		`SELECT source_id, kind, content, author, likes, reposts, replies, created_at, imported_at
		 FROM imported_content WHERE user_id=? AND kind=? ORDER BY created_at DESC LIMIT ?`,
		userID, kind, limit)
	if err != nil { return nil, err }
	defer rows.Close()
	var out []model.ImportedItem
	for rows.Next() {
		var it model.ImportedItem
		var created, imported int64
		if err := rows.Scan(&it.SourceID, &it.Kind, &it.Content, &it.Author, &it.Likes, &it.Reposts, &it.Replies, &created, &imported); err != nil {
			return nil, err
		}
		it.CreatedAt = time.Unix(created, 0).UTC()
		it.ImportedAt = time.Unix(imported, 0).UTC()
		out = append(out, it)
	}
	return out, rows.Err()
}

// --- style profiles ---

// SaveProfile replaces a user's profile wholesale.
func (d *DB) SaveProfile(ctx context.Context, userID string, p model.StyleProfile) error {
	tb, _ := json.Marshal(p.Topics)
	_, err := d.sql.ExecContext(ctx,
		`INSERT INTO style_profiles(user_id, tone, emoji_usage, avg_length, hashtag_style, topics, analyzed_at)
		 VALUES(?,?,?,?,?,?,?)
		 ON CONFLICT(user_id) DO UPDATE SET
		   tone=excluded.tone, emoji_usage=excluded.emoji_usage, avg_length=excluded.avg_length,
		   hashtag_style=excluded.hashtag_style, topics=excluded.topics, analyzed_at=excluded.analyzed_at`,
		userID, string(p.Tone), p.EmojiUsage, p.AvgLength, p.HashtagStyle, string(tb), p.AnalyzedAt.Unix())
	return err
}

// LoadProfile returns the user's profile and whether one exists.
func (d *DB) LoadProfile(ctx context.Context, userID string) (model.StyleProfile, bool, error) {
	row := d.sql.QueryRowContext(ctx,
		`SELECT tone, emoji_usage, avg_length, hashtag_style, topics, analyzed_at FROM style_profiles WHERE user_id=?`, userID)
	var p model.StyleProfile
	var tone, topics string
	var analyzed int64
	if err := row.Scan(&tone, &p.EmojiUsage, &p.AvgLength, &p.HashtagStyle, &topics, &analyzed); err != nil {
		if err == sql.ErrNoRows {
			return p, false, nil
		}
		return p, false, err
	}
	p.Tone = model.Tone(tone)
	_ = json.Unmarshal([]byte(topics), &p.Topics)
	p.AnalyzedAt = time.Unix(analyzed, 0).UTC()
	return p, true, nil
}

// --- feedback ---

// PutRating stores a rating for (user, type, output). The first stored rating
// wins: an existing non-zero rating is never overwritten.
func (d *DB) PutRating(ctx context.Context, rec model.FeedbackRecord) error {
	tb, _ := json.Marshal(rec.Style.Topics)
	_, err := d.sql.ExecContext(ctx,
		`INSERT INTO feedback(user_id, type, input_text, input_image, output, suggestion_id, rating, was_copied, style_tone, style_topics, model, created_at)
		 VALUES(?,?,?,?,?,?,?,0,?,?,?,?)
		 ON CONFLICT(user_id, type, output) DO UPDATE SET
		   rating = CASE WHEN feedback.rating = 0 THEN excluded.rating ELSE feedback.rating END`,
		rec.UserID, string(rec.Type), rec.InputText, boolInt(rec.InputImage), rec.Output, rec.SuggestionID,
		rec.Rating, string(rec.Style.Tone), string(tb), rec.Model, rec.CreatedAt.Unix())
	return err
}

// PutCopied marks (user, type, output) as copied, creating the record if the
// suggestion was copied before it was ever rated.
func (d *DB) PutCopied(ctx context.Context, rec model.FeedbackRecord) error {
	tb, _ := json.Marshal(rec.Style.Topics)
	_, err := d.sql.ExecContext(ctx,
		`INSERT INTO feedback(user_id, type, input_text, input_image, output, suggestion_id, rating, was_copied, style_tone, style_topics, model, created_at)
		 VALUES(?,?,?,?,?,?,0,1,?,?,?,?)
		 ON CONFLICT(user_id, type, output) DO UPDATE SET was_copied = 1`,
		rec.UserID, string(rec.Type), rec.InputText, boolInt(rec.InputImage), rec.Output, rec.SuggestionID,
		string(rec.Style.Tone), string(tb), rec.Model, rec.CreatedAt.Unix())
	return err
}

// GetFeedback returns the stored record for (user, type, output).
func (d *DB) GetFeedback(ctx context.Context, userID string, typ model.FeedbackType, output string) (model.FeedbackRecord, bool, error) {
	row := d.sql.QueryRowContext(ctx,
		`SELECT id, user_id, type, input_text, input_image, output, suggestion_id, rating, was_copied, style_tone, style_topics, model, created_at
		 FROM feedback WHERE user_id=? AND type=? AND output=?`, userID, string(typ), output)
	rec, err := scanFeedback(row)
	if err == sql.ErrNoRows {
		return rec, false, nil
	}
	if err != nil {
		return rec, false, err
	}
	return rec, true, nil
}

// FeedbackStats rolls up stored feedback grouped by type. Empty userID
// aggregates across all users.
func (d *DB) FeedbackStats(ctx context.Context, userID string) (map[model.FeedbackType]model.FeedbackStats, error) {
	q := `SELECT type, COUNT(*),
	        SUM(CASE WHEN rating = 1 THEN 1 ELSE 0 END),
	        SUM(CASE WHEN rating = -1 THEN 1 ELSE 0 END),
	        SUM(was_copied)
	      FROM feedback`
	args := []any{}
	if userID != "" {
		q += ` WHERE user_id=?`
		args = append(args, userID)
	}
	q += ` GROUP BY type`
	rows, err := d.sql.QueryContext(ctx, q, args...)
	if err != nil { return nil, err }
	defer rows.Close()
	out := make(map[model.FeedbackType]model.FeedbackStats)
	for rows.Next() {
		var typ string
		var s model.FeedbackStats
		if err := rows.Scan(&typ, &s.Total, &s.Positive, &s.Negative, &s.Copied); err != nil {
			return nil, err
		}
		out[model.FeedbackType(typ)] = s
	}
	return out, rows.Err()
}

// ExportFeedback returns rated records with rating >= minRating, oldest first.
// Read-only.
func (d *DB) ExportFeedback(ctx context.Context, minRating int) ([]model.FeedbackRecord, error) {
	rows, err := d.sql.QueryContext(ctx,
		`SELECT id, user_id, type, input_text, input_image, output, suggestion_id, rating, was_copied, style_tone, style_topics, model, created_at
		 FROM feedback WHERE rating != 0 AND rating >= ? ORDER BY created_at`, minRating)
	if err != nil { return nil, err }
	defer rows.Close()
	var out []model.FeedbackRecord
	for rows.Next() {
		rec, err := scanFeedback(rows)
		if err != nil { return nil, err }
		out = append(out, rec)
	}
	return out, rows.Err()
}

type scanner interface{ Scan(dest ...any) error }

func scanFeedback(s scanner) (model.FeedbackRecord, error) {
	var rec model.FeedbackRecord
	var typ, tone, topics string
	var img, copied int
	var created int64
	var inputText, suggestionID, mdl sql.NullString
	err := s.Scan(&rec.ID, &rec.UserID, &typ, &inputText, &img, &rec.Output, &suggestionID,
		&rec.Rating, &copied, &tone, &topics, &mdl, &created)
	if err != nil {
		return rec, err
	}
	rec.Type = model.FeedbackType(typ)
	rec.InputText = inputText.String
	rec.SuggestionID = suggestionID.String
	rec.Model = mdl.String
	rec.InputImage = img != 0
	rec.WasCopied = copied != 0
	rec.Style.Tone = model.Tone(tone)
	_ = json.Unmarshal([]byte(topics), &rec.Style.Topics)
	rec.CreatedAt = time.Unix(created, 0).UTC()
	return rec, nil
}

// --- usage counters ---

// EnsureCounter creates the (user, feature) row if missing.
func (d *DB) EnsureCounter(ctx context.Context, userID string, feature model.Feature, now time.Time) error {
	_, err := d.sql.ExecContext(ctx,
		`INSERT OR IGNORE INTO usage_counters(user_id, feature, used, last_reset) VALUES(?,?,0,?)`,
		userID, string(feature), now.Unix())
	return err
}

// LoadCounter returns the counter for (user, feature); zero value if absent.
func (d *DB) LoadCounter(ctx context.Context, userID string, feature model.Feature) (model.UsageCounter, error) {
	c := model.UsageCounter{UserID: userID, Feature: feature}
	row := d.sql.QueryRowContext(ctx,
		`SELECT used, last_reset FROM usage_counters WHERE user_id=? AND feature=?`, userID, string(feature))
	var reset int64
	if err := row.Scan(&c.Used, &reset); err != nil {
		if err == sql.ErrNoRows {
			return c, nil
		}
		return c, err
	}
	c.LastReset = time.Unix(reset, 0).UTC()
	return c, nil
}

// IncrementIfBelow bumps the counter by one only if it is currently under
// limit, in a single statement so concurrent callers cannot both land over
// the limit. Returns whether the increment happened.
func (d *DB) IncrementIfBelow(ctx context.Context, userID string, feature model.Feature, limit int) (bool, error) {
	res, err := d.sql.ExecContext(ctx,
		`UPDATE usage_counters SET used = used + 1 WHERE user_id=? AND feature=? AND used < ?`,
		userID, string(feature), limit)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// ResetCounters zeroes every counter and stamps last_reset.
func (d *DB) ResetCounters(ctx context.Context, now time.Time) error {
	_, err := d.sql.ExecContext(ctx, `UPDATE usage_counters SET used = 0, last_reset = ?`, now.Unix())
	return err
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
