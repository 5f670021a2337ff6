package config

import "testing"

func TestLoadDefaults(t *testing.T) {
	rt, err := Load(nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rt.Port != "3000" {
		t.Fatalf("got port %q, want 3000", rt.Port)
	}
	if rt.DefaultPolicy != "minimizer" {
		t.Fatalf("got default policy %q, want minimizer", rt.DefaultPolicy)
	}
}

func TestLoadPortPrecedence(t *testing.T) {
	t.Setenv("PORT", "4000")
	rt, err := Load(nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rt.Port != "4000" {
		t.Fatalf("PORT env var should override the 3000 default, got %q", rt.Port)
	}

	rt, err = Load([]string{"5000"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rt.Port != "5000" {
		t.Fatalf("CLI positional argument should override PORT, got %q", rt.Port)
	}
}

func TestLoadRejectsInvalidPoolSize(t *testing.T) {
	t.Setenv("RAYON_NUM_THREADS", "not-a-number")
	if _, err := Load(nil); err == nil {
		t.Fatalf("expected an error for a non-numeric RAYON_NUM_THREADS")
	}
}

func TestLoadRejectsNonPositiveRate(t *testing.T) {
	t.Setenv("SOLVE_RATE_RPS", "0")
	if _, err := Load(nil); err == nil {
		t.Fatalf("expected an error for a non-positive SOLVE_RATE_RPS")
	}
}
