package feedback

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"plume/internal/apperr"
	"plume/internal/metrics"
	"plume/internal/model"
	"plume/internal/store/sqlitestore"
)

// Service records user reactions to generated suggestions and serves the
// read-side rollups. Records are keyed by (user, type, output); the first
// rating for a key is final.
type Service struct {
	db  *sqlitestore.DB
	now func() time.Time
}

func NewService(db *sqlitestore.DB) *Service {
	return &Service{db: db, now: func() time.Time { return time.Now().UTC() }}
}

// Input is the generation input a reaction refers to.
type Input struct {
	Text     string
	HasImage bool
}

// RecordRating stores a +1/-1 rating. A second rating for the same
// (user, type, output) is a no-op; the stored value never changes. Returns
// the stored record, which reflects the first rating on duplicates.
func (s *Service) RecordRating(ctx context.Context, userID string, typ model.FeedbackType, in Input, output string, suggestionID string, rating int, snap model.StyleSnapshot, modelID string) (model.FeedbackRecord, error) {
	var rec model.FeedbackRecord
	if output == "" {
		return rec, apperr.Validationf("feedback output is required")
	}
	if !typ.Valid() {
		return rec, apperr.Validationf("unknown feedback type %q", typ)
	}
	if rating != 1 && rating != -1 {
		return rec, apperr.Validationf("rating must be +1 or -1, got %d", rating)
	}
	rec = model.FeedbackRecord{
		UserID:       userID,
		Type:         typ,
		InputText:    in.Text,
		InputImage:   in.HasImage,
		Output:       output,
		SuggestionID: suggestionID,
		Rating:       rating,
		Style:        snap,
		Model:        modelID,
		CreatedAt:    s.now(),
	}
	if err := s.db.PutRating(ctx, rec); err != nil {
		return rec, err
	}
	metrics.IncFeedback("rating")
	stored, _, err := s.db.GetFeedback(ctx, userID, typ, output)
	if err != nil {
		return rec, err
	}
	return stored, nil
}

// RecordCopy notes that the user copied a suggestion. Independent of rating
// state: it may arrive before, after, or without a rating, any number of
// times.
func (s *Service) RecordCopy(ctx context.Context, userID string, typ model.FeedbackType, in Input, output string, suggestionID string, snap model.StyleSnapshot, modelID string) (model.FeedbackRecord, error) {
	var rec model.FeedbackRecord
	if output == "" {
		return rec, apperr.Validationf("feedback output is required")
	}
	if !typ.Valid() {
		return rec, apperr.Validationf("unknown feedback type %q", typ)
	}
	rec = model.FeedbackRecord{
		UserID:       userID,
		Type:         typ,
		InputText:    in.Text,
		InputImage:   in.HasImage,
		Output:       output,
		SuggestionID: suggestionID,
		Style:        snap,
		Model:        modelID,
		CreatedAt:    s.now(),
	}
	if err := s.db.PutCopied(ctx, rec); err != nil {
		return rec, err
	}
	metrics.IncFeedback("copy")
	stored, _, err := s.db.GetFeedback(ctx, userID, typ, output)
	if err != nil {
		return rec, err
	}
	return stored, nil
}

// Stats returns the per-type rollup. Empty userID aggregates all users.
// Pure read, no mutation.
func (s *Service) Stats(ctx context.Context, userID string) (map[model.FeedbackType]model.FeedbackStats, error) {
	return s.db.FeedbackStats(ctx, userID)
}

// ExportTrainingData returns rated records with rating >= minRating for
// offline quality review. Read-only.
func (s *Service) ExportTrainingData(ctx context.Context, minRating int) ([]model.FeedbackRecord, error) {
	recs, err := s.db.ExportFeedback(ctx, minRating)
	if err != nil {
		return nil, err
	}
	logrus.WithFields(logrus.Fields{"min_rating": minRating, "records": len(recs)}).Info("training data exported")
	return recs, nil
}
