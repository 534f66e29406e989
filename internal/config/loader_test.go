package config

import (
	"context"
	"os"
	"testing"
	"time"
)

func TestLoadDefaultsOnly(t *testing.T) {
	cfg, err := Load(context.Background())
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Addr != New().Addr {
		t.Errorf("addr = %q, want default %q", cfg.Addr, New().Addr)
	}
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("CADENCE_ADDR", ":7070")
	t.Setenv("CADENCE_WORKER_COUNT", "2")
	t.Setenv("CADENCE_CLASSIFIER_TIMEOUT", "5s")

	cfg, err := Load(context.Background())
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Addr != ":7070" {
		t.Errorf("addr = %q, want :7070", cfg.Addr)
	}
	if cfg.WorkerCount != 2 {
		t.Errorf("worker count = %d, want 2", cfg.WorkerCount)
	}
	if cfg.ClassifierTimeout != 5*time.Second {
		t.Errorf("classifier timeout = %v, want 5s", cfg.ClassifierTimeout)
	}
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := dir + "/cadence.yaml"
	if err := os.WriteFile(path, []byte("addr: \":6060\"\nqueue_size: 16\n"), 0o600); err != nil {
		t.Fatalf("write config file: %v", err)
	}
	t.Setenv("CADENCE_CONFIG", path)

	cfg, err := Load(context.Background())
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Addr != ":6060" {
		t.Errorf("addr = %q, want :6060", cfg.Addr)
	}
	if cfg.QueueSize != 16 {
		t.Errorf("queue size = %d, want 16", cfg.QueueSize)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	t.Setenv("CADENCE_ADDR", "")
	if _, err := Load(context.Background()); err == nil {
		t.Error("expected error for empty addr")
	}
}
