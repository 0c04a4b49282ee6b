package config

import (
	"path/filepath"
	"testing"

	"plume/internal/model"
)

func TestDefaultValidates(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
}

func TestValidateMissingTier(t *testing.T) {
	cfg := Default()
	delete(cfg.Tiers, string(model.TierPro))
	if err := cfg.Validate(); err == nil {
		t.Error("missing tier should fail validation")
	}
}

func TestValidateMissingFeature(t *testing.T) {
	cfg := Default()
	delete(cfg.Tiers[string(model.TierFree)], string(model.FeatureAnalytics))
	if err := cfg.Validate(); err == nil {
		t.Error("missing feature cell should fail validation")
	}
}

func TestValidateUnknownFeature(t *testing.T) {
	cfg := Default()
	cfg.Tiers[string(model.TierFree)]["teleportation"] = 5
	if err := cfg.Validate(); err == nil {
		t.Error("unknown feature should fail validation")
	}
}

func TestValidateUnknownTier(t *testing.T) {
	cfg := Default()
	cfg.Tiers["platinum"] = map[string]int{
		string(model.FeatureGeneration): 1,
		string(model.FeatureScheduling): 1,
		string(model.FeatureAnalytics):  1,
	}
	if err := cfg.Validate(); err == nil {
		t.Error("unknown tier should fail validation")
	}
}

func TestValidateInvalidLimit(t *testing.T) {
	cfg := Default()
	cfg.Tiers[string(model.TierFree)][string(model.FeatureGeneration)] = -2
	if err := cfg.Validate(); err == nil {
		t.Error("limit below the unlimited sentinel should fail validation")
	}
}

func TestValidateAccountTier(t *testing.T) {
	cfg := Default()
	cfg.Account.Tier = "platinum"
	if err := cfg.Validate(); err == nil {
		t.Error("account on an unconfigured tier should fail validation")
	}
}

func TestLimit(t *testing.T) {
	cfg := Default()
	if got := cfg.Limit(model.TierFree, model.FeatureGeneration); got != 10 {
		t.Errorf("free generation limit = %d, want 10", got)
	}
	if got := cfg.Limit(model.TierAdvanced, model.FeatureGeneration); got != Unlimited {
		t.Errorf("advanced generation limit = %d, want Unlimited", got)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "plume.yaml")
	cfg := Default()
	cfg.Account.Username = "someone"
	cfg.Account.Tier = string(model.TierPro)
	cfg.Provider.APIKey = "k"
	if err := Save(path, cfg); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.Account.Username != "someone" || got.Account.Tier != string(model.TierPro) {
		t.Errorf("account did not round-trip: %+v", got.Account)
	}
	if got.Limit(model.TierPro, model.FeatureGeneration) != 200 {
		t.Errorf("tier table did not round-trip")
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plume.yaml")
	cfg := Default()
	delete(cfg.Tiers, string(model.TierFree))
	cfg.Account.Tier = string(model.TierPro)
	if err := Save(path, cfg); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("load should reject a config failing validation")
	}
}
