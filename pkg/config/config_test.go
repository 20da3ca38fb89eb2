package config

import "testing"

func TestDefaultPassesValidate(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatalf("Default().Validate() = %v, want nil", err)
	}
}

func TestDevelopmentAndProductionPassValidate(t *testing.T) {
	for name, cfg := range map[string]*Config{
		"development": Development(),
		"production":  Production(),
		"testing":     Testing(),
	} {
		if err := cfg.Validate(); err != nil {
			t.Errorf("%s config failed Validate(): %v", name, err)
		}
	}
}

func TestValidateRejectsNonPositiveMaxWorkers(t *testing.T) {
	cfg := Default()
	cfg.MaxWorkers = 0
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected Validate() to reject MaxWorkers=0")
	}
}

func TestValidateRejectsNonPositiveRetryAttempts(t *testing.T) {
	cfg := Default()
	cfg.LLMRetryMaxAttempts = 0
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected Validate() to reject LLMRetryMaxAttempts=0")
	}

	cfg = Default()
	cfg.HTTPRetryMaxAttempts = -1
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected Validate() to reject negative HTTPRetryMaxAttempts")
	}
}

func TestValidateRejectsNegativeTimeout(t *testing.T) {
	cfg := Default()
	cfg.HTTPTimeout = -1
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected Validate() to reject negative HTTPTimeout")
	}
}

// TestClampWorkers exercises spec.md §4.6's "capped at 25" rule.
func TestClampWorkers(t *testing.T) {
	cases := []struct {
		in, want int
	}{
		{0, 1},
		{-5, 1},
		{1, 1},
		{25, 25},
		{26, 25},
		{1000, 25},
	}
	for _, tc := range cases {
		cfg := Default()
		cfg.MaxWorkers = tc.in
		if got := cfg.ClampWorkers(); got != tc.want {
			t.Errorf("ClampWorkers() with MaxWorkers=%d = %d, want %d", tc.in, got, tc.want)
		}
	}
}

func TestDevelopmentHasShorterWallClockThanDefault(t *testing.T) {
	if Development().LLMRetryWallClockCap >= Default().LLMRetryWallClockCap {
		t.Error("expected Development() to cap the retry wall clock below Default()'s 5 minutes")
	}
}

func TestProductionAllowsMoreWorkersThanDefault(t *testing.T) {
	if Production().MaxWorkers <= Default().MaxWorkers {
		t.Error("expected Production() to raise MaxWorkers above Default()'s single-worker baseline")
	}
}
