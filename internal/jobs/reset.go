package jobs

import (
	"context"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"plume/internal/quota"
)

// StartResetJob runs the quota rollover on the given cron spec (e.g.
// "0 0 1 * *" for the first of each month). The returned cron is already
// started; callers stop it on shutdown.
func StartResetJob(spec string, gov *quota.Governor) (*cron.Cron, error) {
	c := cron.New()
	_, err := c.AddFunc(spec, func() {
		if err := gov.Reset(context.Background()); err != nil {
			logrus.WithField("error", err.Error()).Error("quota reset failed")
		}
	})
	if err != nil {
		return nil, err
	}
	c.Start()
	return c, nil
}
