package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"plume/internal/model"
)

// Unlimited is the sentinel limit meaning "no quota" for a tier/feature cell.
const Unlimited = -1

// Config is the application's configuration model.
// It captures credentials, provider settings, tier quotas, and the
// style/engagement heuristics.
type Config struct {
	Account     AccountConfig     `yaml:"account"`
	Credentials CredentialsConfig `yaml:"credentials"`
	Provider    ProviderConfig    `yaml:"provider"`
	Tiers       TierConfig        `yaml:"tiers"`
	Style       StyleConfig       `yaml:"style"`
	Engagement  EngagementWeights `yaml:"engagement"`
	Reset       ResetConfig       `yaml:"reset"`
	Storage     StorageConfig     `yaml:"storage"`
	Metrics     MetricsConfig     `yaml:"metrics"`
}

type AccountConfig struct {
	Username string `yaml:"username"`
	Tier     string `yaml:"tier"`
}

type CredentialsConfig struct {
	// X/Twitter API bearer token. If empty, read from env X_BEARER_TOKEN
	BearerToken string `yaml:"bearerToken"`
}

type ProviderConfig struct {
	Name  string `yaml:"name"` // "openai" or "none"
	Model string `yaml:"model"`
	// If empty, read from env OPENAI_API_KEY
	APIKey  string `yaml:"apiKey"`
	BaseURL string `yaml:"baseURL"`
	// Request timeout in seconds; provider timeouts surface as generation failures.
	TimeoutSeconds int     `yaml:"timeoutSeconds"`
	RPS            float64 `yaml:"rps"`
	Burst          int     `yaml:"burst"`
}

// TierConfig maps tier -> feature -> limit. Unlimited (-1) bypasses the check.
type TierConfig map[string]map[string]int

type StyleConfig struct {
	// Days to wait before re-analyzing an existing profile.
	CooldownDays int `yaml:"cooldownDays"`
	// Corpus thresholds before the first analysis runs.
	MinPosts int `yaml:"minPosts"`
	MinLikes int `yaml:"minLikes"`
	// Most recent items fed into one analysis.
	CorpusLimit int `yaml:"corpusLimit"`
	MaxTopics   int `yaml:"maxTopics"`
}

// EngagementWeights are the tunable feature weights of the engagement
// predictor. They are configuration, not model parameters.
type EngagementWeights struct {
	Baseline        int `yaml:"baseline"`
	OptimalLenMin   int `yaml:"optimalLenMin"`
	OptimalLenMax   int `yaml:"optimalLenMax"`
	LengthBonus     int `yaml:"lengthBonus"`
	ShortPenalty    int `yaml:"shortPenalty"`
	HashtagBonus    int `yaml:"hashtagBonus"`
	HashtagPenalty  int `yaml:"hashtagPenalty"`
	QuestionBonus   int `yaml:"questionBonus"`
	CTABonus        int `yaml:"ctaBonus"`
	MediaBonus      int `yaml:"mediaBonus"`
	EmojiBonus      int `yaml:"emojiBonus"`
	EmojiPenalty    int `yaml:"emojiPenalty"`
	HighThreshold   int `yaml:"highThreshold"`
	MediumThreshold int `yaml:"mediumThreshold"`
}

type ResetConfig struct {
	// Cron spec for the quota rollover, e.g. "0 0 1 * *" for monthly.
	Cron string `yaml:"cron"`
}

type StorageConfig struct {
	DBPath string `yaml:"dbPath"`
}

type MetricsConfig struct {
	Addr string `yaml:"addr"`
}

// Default returns a sensible default configuration.
func Default() Config {
	return Config{
		Account: AccountConfig{Username: "", Tier: string(model.TierFree)},
		Provider: ProviderConfig{
			Name:           "openai",
			Model:          "gpt-4o-mini",
			BaseURL:        "https://api.openai.com/v1",
			TimeoutSeconds: 30,
			RPS:            2,
			Burst:          5,
		},
		Tiers: TierConfig{
			string(model.TierFree):     {string(model.FeatureGeneration): 10, string(model.FeatureScheduling): 5, string(model.FeatureAnalytics): 3},
			string(model.TierPro):      {string(model.FeatureGeneration): 200, string(model.FeatureScheduling): 100, string(model.FeatureAnalytics): 50},
			string(model.TierAdvanced): {string(model.FeatureGeneration): Unlimited, string(model.FeatureScheduling): Unlimited, string(model.FeatureAnalytics): Unlimited},
		},
		Style: StyleConfig{CooldownDays: 7, MinPosts: 10, MinLikes: 20, CorpusLimit: 100, MaxTopics: 5},
		Engagement: EngagementWeights{
			Baseline:        50,
			OptimalLenMin:   80,
			OptimalLenMax:   200,
			LengthBonus:     10,
			ShortPenalty:    5,
			HashtagBonus:    8,
			HashtagPenalty:  5,
			QuestionBonus:   7,
			CTABonus:        6,
			MediaBonus:      8,
			EmojiBonus:      5,
			EmojiPenalty:    4,
			HighThreshold:   70,
			MediumThreshold: 40,
		},
		Reset:   ResetConfig{Cron: "0 0 1 * *"},
		Storage: StorageConfig{DBPath: "./plume.db"},
		Metrics: MetricsConfig{Addr: ""},
	}
}

// ResolveEnv fills in config fields from environment variables if not set.
func (c *Config) ResolveEnv() {
	if c.Credentials.BearerToken == "" {
		c.Credentials.BearerToken = os.Getenv("X_BEARER_TOKEN")
	}
	if c.Provider.APIKey == "" && c.Provider.Name == "openai" {
		c.Provider.APIKey = os.Getenv("OPENAI_API_KEY")
	}
}

// Validate checks the parts that must fail at startup rather than at request
// time: the tier table has to cover every tier/feature cell and contain no
// unknown keys, and the account tier has to exist.
func (c *Config) Validate() error {
	known := map[string]bool{
		string(model.FeatureGeneration): true,
		string(model.FeatureScheduling): true,
		string(model.FeatureAnalytics):  true,
	}
	for _, tier := range []model.Tier{model.TierFree, model.TierPro, model.TierAdvanced} {
		feats, ok := c.Tiers[string(tier)]
		if !ok {
			return fmt.Errorf("tiers: missing tier %q", tier)
		}
		for f := range known {
			if _, ok := feats[f]; !ok {
				return fmt.Errorf("tiers: tier %q missing feature %q", tier, f)
			}
		}
		for f, limit := range feats {
			if !known[f] {
				return fmt.Errorf("tiers: tier %q has unknown feature %q", tier, f)
			}
			if limit < Unlimited {
				return fmt.Errorf("tiers: tier %q feature %q has invalid limit %d", tier, f, limit)
			}
		}
	}
	for tier := range c.Tiers {
		switch model.Tier(tier) {
		case model.TierFree, model.TierPro, model.TierAdvanced:
		default:
			return fmt.Errorf("tiers: unknown tier %q", tier)
		}
	}
	if _, ok := c.Tiers[c.Account.Tier]; !ok {
		return fmt.Errorf("account: unknown tier %q", c.Account.Tier)
	}
	if c.Style.CorpusLimit <= 0 {
		return errors.New("style: corpusLimit must be positive")
	}
	return nil
}

// Limit returns the configured limit for a tier/feature cell. Validate has
// already guaranteed the cell exists for known tiers.
func (c *Config) Limit(tier model.Tier, feature model.Feature) int {
	if feats, ok := c.Tiers[string(tier)]; ok {
		if v, ok := feats[string(feature)]; ok {
			return v
		}
	}
	return 0
}

// Load reads YAML config from path.
func Load(path string) (Config, error) {
	var cfg Config
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return cfg, err
	}
	cfg.ResolveEnv()
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Save writes YAML config to path, creating directories as needed.
func Save(path string, cfg Config) error {
	if path == "" {
		return errors.New("empty path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	b, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o644)
}
