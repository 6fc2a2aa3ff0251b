package config

import (
	"errors"
	"os"
	"testing"

	"github.com/Nicotcy/arb-scanner/pkg/types"
)

func TestLoadFromEnv_Defaults(t *testing.T) {
	cfg, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if cfg.Mode != "lab" {
		t.Errorf("expected default Mode to be lab, got %q", cfg.Mode)
	}
	if !cfg.UseCross || !cfg.UseInternal {
		t.Errorf("expected both UseCross and UseInternal to default true")
	}
	if cfg.StorageMode != "sqlite" {
		t.Errorf("expected default StorageMode to be sqlite, got %q", cfg.StorageMode)
	}
	if cfg.NearMissEdgeCeilingSet {
		t.Errorf("expected NearMissEdgeCeilingSet to default false")
	}
	if !cfg.DryRun {
		t.Errorf("expected DryRun to default true")
	}
	if cfg.RequireMapping {
		t.Errorf("expected RequireMapping to default false")
	}
}

func TestLoadFromEnv_NearMissEdgeCeiling(t *testing.T) {
	t.Run("unset_leaves_ceiling_unset", func(t *testing.T) {
		cfg, err := LoadFromEnv()
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if cfg.NearMissEdgeCeilingSet {
			t.Errorf("expected NearMissEdgeCeilingSet to be false")
		}
	})

	t.Run("set_parses_float", func(t *testing.T) {
		os.Setenv("NEAR_MISS_EDGE_CEILING", "0.015")
		t.Cleanup(func() {
			os.Unsetenv("NEAR_MISS_EDGE_CEILING")
		})

		cfg, err := LoadFromEnv()
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !cfg.NearMissEdgeCeilingSet {
			t.Fatalf("expected NearMissEdgeCeilingSet to be true")
		}
		if cfg.NearMissEdgeCeiling != 0.015 {
			t.Errorf("expected NearMissEdgeCeiling 0.015, got %f", cfg.NearMissEdgeCeiling)
		}
	})

	t.Run("malformed_value_leaves_ceiling_unset", func(t *testing.T) {
		os.Setenv("NEAR_MISS_EDGE_CEILING", "not-a-float")
		t.Cleanup(func() {
			os.Unsetenv("NEAR_MISS_EDGE_CEILING")
		})

		cfg, err := LoadFromEnv()
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if cfg.NearMissEdgeCeilingSet {
			t.Errorf("expected NearMissEdgeCeilingSet to remain false on malformed input")
		}
	})
}

func TestLoadFromEnv_OverridesDefaults(t *testing.T) {
	os.Setenv("MODE", "safe")
	os.Setenv("BATCH_SIZE", "25")
	os.Setenv("STORAGE_MODE", "console")
	t.Cleanup(func() {
		os.Unsetenv("MODE")
		os.Unsetenv("BATCH_SIZE")
		os.Unsetenv("STORAGE_MODE")
	})

	cfg, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if cfg.Mode != "safe" {
		t.Errorf("expected Mode safe, got %q", cfg.Mode)
	}
	if cfg.BatchSize != 25 {
		t.Errorf("expected BatchSize 25, got %d", cfg.BatchSize)
	}
	if cfg.StorageMode != "console" {
		t.Errorf("expected StorageMode console, got %q", cfg.StorageMode)
	}
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		cfg, err := LoadFromEnv()
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		return cfg
	}

	t.Run("valid_defaults_pass", func(t *testing.T) {
		if err := base().Validate(); err != nil {
			t.Errorf("expected valid config, got %v", err)
		}
	})

	t.Run("bad_mode_rejected", func(t *testing.T) {
		cfg := base()
		cfg.Mode = "yolo"
		if err := cfg.Validate(); err == nil {
			t.Errorf("expected error for invalid Mode")
		}
	})

	t.Run("both_cross_and_internal_disabled_rejected", func(t *testing.T) {
		cfg := base()
		cfg.UseCross = false
		cfg.UseInternal = false
		if err := cfg.Validate(); err == nil {
			t.Errorf("expected error when both UseCross and UseInternal are disabled")
		}
	})

	t.Run("sqlite_without_db_path_rejected", func(t *testing.T) {
		cfg := base()
		cfg.StorageMode = "sqlite"
		cfg.DBPath = ""
		if err := cfg.Validate(); err == nil {
			t.Errorf("expected error for sqlite storage with empty DBPath")
		}
	})

	t.Run("invalid_backoff_rejected", func(t *testing.T) {
		cfg := base()
		cfg.BackoffFactor = 1
		if err := cfg.Validate(); err == nil {
			t.Errorf("expected error for backoff factor <= 1")
		}
	})

	t.Run("non_positive_bankroll_rejected", func(t *testing.T) {
		cfg := base()
		cfg.PaperBankroll = 0
		if err := cfg.Validate(); err == nil {
			t.Errorf("expected error for non-positive PaperBankroll")
		}
	})

	t.Run("dry_run_disabled_rejected_with_sentinel", func(t *testing.T) {
		cfg := base()
		cfg.DryRun = false
		err := cfg.Validate()
		if !errors.Is(err, types.ErrDryRunDisabled) {
			t.Errorf("expected ErrDryRunDisabled, got %v", err)
		}
	})
}
