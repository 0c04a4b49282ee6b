package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"plume/internal/apperr"
	"plume/internal/config"
	"plume/internal/model"
)

func writeTestConfig(t *testing.T, mutate func(*config.Config)) string {
	t.Helper()
	dir := t.TempDir()
	cfg := config.Default()
	cfg.Account.Username = "alice"
	cfg.Storage.DBPath = filepath.Join(dir, "plume.db")
	if mutate != nil {
		mutate(&cfg)
	}
	path := filepath.Join(dir, "plume.yaml")
	require.NoError(t, config.Save(path, cfg))
	return path
}

func withArgs(t *testing.T, args ...string) {
	t.Helper()
	old := os.Args
	os.Args = append([]string{"plume"}, args...)
	t.Cleanup(func() { os.Args = old })
}

func TestSentimentIsQuotaGated(t *testing.T) {
	path := writeTestConfig(t, func(c *config.Config) {
		c.Tiers[string(model.TierFree)][string(model.FeatureGeneration)] = 0
	})
	withArgs(t, "sentiment", "-config", path, "-text", "hello there")

	err := cmdSentiment()
	assert.ErrorIs(t, err, apperr.ErrQuotaExceeded, "sentiment must be denied before any provider call")
}

func TestGenerateIsQuotaGated(t *testing.T) {
	path := writeTestConfig(t, func(c *config.Config) {
		c.Tiers[string(model.TierFree)][string(model.FeatureGeneration)] = 0
	})
	withArgs(t, "generate", "-config", path, "-prompt", "anything")

	err := cmdGenerate()
	assert.ErrorIs(t, err, apperr.ErrQuotaExceeded)
}
