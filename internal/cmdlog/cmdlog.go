package cmdlog

import (
	"github.com/sirupsen/logrus"

	"plume/internal/metrics"
)

// Run executes a CLI command body, counting runs and errors and logging the
// outcome.
func Run(cmd string, f func() error) error {
	metrics.IncCommandRun(cmd)
	err := f()
	if err != nil {
		metrics.IncCommandError(cmd)
		logrus.WithFields(logrus.Fields{"command": cmd, "error": err.Error()}).Error("command failed")
	} else {
		logrus.WithField("command", cmd).Debug("command ok")
	}
	return err
}
