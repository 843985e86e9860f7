package config

import (
	"testing"
)

func TestDefaults(t *testing.T) {
	Reset()
	t.Cleanup(Reset)

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig() failed: %v", err)
	}
	if cfg.FrameChannel != "video-frames" {
		t.Errorf("FrameChannel = %q, want video-frames", cfg.FrameChannel)
	}
	if cfg.Collection != "video_frames" {
		t.Errorf("Collection = %q, want video_frames", cfg.Collection)
	}
	if cfg.TopK != 5 {
		t.Errorf("TopK = %d, want 5", cfg.TopK)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestEnvOverride(t *testing.T) {
	Reset()
	t.Cleanup(Reset)
	t.Setenv("STORE", "pgvector")
	t.Setenv("TOP_K", "3")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig() failed: %v", err)
	}
	if cfg.Store != "pgvector" {
		t.Errorf("Store = %q, want pgvector", cfg.Store)
	}
	if cfg.TopK != 3 {
		t.Errorf("TopK = %d, want 3", cfg.TopK)
	}
}

func TestValidateRejectsUnknownBackend(t *testing.T) {
	cfg := defaults()
	cfg.Store = "chroma"
	if err := cfg.Validate(); err == nil {
		t.Error("expected validation error for unknown store backend")
	}
}

func TestHasValidAPI(t *testing.T) {
	cfg := defaults()
	if cfg.HasValidAPI() {
		t.Error("config without api key should not report a valid API")
	}
	cfg.APIKey = "k"
	if !cfg.HasValidAPI() {
		t.Error("config with api key and base url should report a valid API")
	}
}
