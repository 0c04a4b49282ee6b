package quota

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"plume/internal/apperr"
	"plume/internal/config"
	"plume/internal/metrics"
	"plume/internal/model"
	"plume/internal/store/sqlitestore"
)

// Governor enforces per-user, per-feature consumption quotas from the
// configured tier table. Checks run before the gated operation; the counter
// moves only after the operation succeeds, so a failed downstream call never
// costs quota.
type Governor struct {
	db   *sqlitestore.DB
	cfg  *config.Config
	tier model.Tier
	now  func() time.Time
}

func NewGovernor(db *sqlitestore.DB, cfg *config.Config, tier model.Tier) *Governor {
	return &Governor{db: db, cfg: cfg, tier: tier, now: func() time.Time { return time.Now().UTC() }}
}

// Allow is the pre-check: it denies with ErrQuotaExceeded once the counter
// has reached the tier's limit. Unlimited tiers bypass entirely.
func (g *Governor) Allow(ctx context.Context, userID string, feature model.Feature) error {
	limit := g.cfg.Limit(g.tier, feature)
	if limit == config.Unlimited {
		return nil
	}
	if err := g.db.EnsureCounter(ctx, userID, feature, g.now()); err != nil {
		return err
	}
	c, err := g.db.LoadCounter(ctx, userID, feature)
	if err != nil {
		return err
	}
	if c.Used >= limit {
		metrics.IncQuotaDenial(string(feature))
		return apperr.QuotaExceededf("%s limit %d reached for tier %s", feature, limit, g.tier)
	}
	return nil
}

// Commit records one successful use. The increment is a single conditional
// update, so two concurrent requests that both passed Allow cannot both land
// past the limit: the loser gets ErrQuotaExceeded and its result should be
// discarded.
func (g *Governor) Commit(ctx context.Context, userID string, feature model.Feature) error {
	limit := g.cfg.Limit(g.tier, feature)
	if limit == config.Unlimited {
		return nil
	}
	ok, err := g.db.IncrementIfBelow(ctx, userID, feature, limit)
	if err != nil {
		return err
	}
	if !ok {
		metrics.IncQuotaDenial(string(feature))
		return apperr.QuotaExceededf("%s limit %d reached for tier %s", feature, limit, g.tier)
	}
	return nil
}

// Remaining returns how many uses are left, or Unlimited.
func (g *Governor) Remaining(ctx context.Context, userID string, feature model.Feature) (int, error) {
	limit := g.cfg.Limit(g.tier, feature)
	if limit == config.Unlimited {
		return config.Unlimited, nil
	}
	c, err := g.db.LoadCounter(ctx, userID, feature)
	if err != nil {
		return 0, err
	}
	left := limit - c.Used
	if left < 0 {
		left = 0
	}
	return left, nil
}

// Reset zeroes every counter at period rollover.
func (g *Governor) Reset(ctx context.Context) error {
	now := g.now()
	if err := g.db.ResetCounters(ctx, now); err != nil {
		return err
	}
	logrus.WithField("at", now.Format(time.RFC3339)).Info("usage counters reset")
	return nil
}

// Gated wraps op with the Allow / op / Commit-on-success discipline.
func (g *Governor) Gated(ctx context.Context, userID string, feature model.Feature, op func() error) error {
	if err := g.Allow(ctx, userID, feature); err != nil {
		return err
	}
	if err := op(); err != nil {
		return err
	}
	return g.Commit(ctx, userID, feature)
}
