package migrate

import (
	"testing"

	"github.com/casamarket/casa-backend/pkg/config"
)

func TestAutoRunSkip(t *testing.T) {
	cfg := func(env string, flag bool) *config.Config {
		return &config.Config{
			App:          config.AppConfig{Env: env},
			FeatureFlags: config.FeatureFlagsConfig{AutoMigrate: flag},
		}
	}

	cases := []struct {
		name    string
		cfg     *config.Config
		dialect string
		runs    bool
	}{
		{"dev postgres", cfg("dev", true), "postgres", true},
		{"flag off", cfg("dev", false), "postgres", false},
		{"prod", cfg("prod", true), "postgres", false},
		{"sqlite", cfg("dev", true), "sqlite", false},
	}
	for _, tc := range cases {
		reason := autoRunSkip(tc.cfg, tc.dialect)
		if (reason == "") != tc.runs {
			t.Fatalf("%s: reason %q, want runs=%v", tc.name, reason, tc.runs)
		}
	}
}
