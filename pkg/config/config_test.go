package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfig_IsValid(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("DefaultConfig() should validate, got: %v", err)
	}

	if cfg.Chat.MinSendInterval != time.Second {
		t.Errorf("chat.min_send_interval = %v, want 1s", cfg.Chat.MinSendInterval)
	}
	if cfg.Viewer.PollInterval != 2*time.Second {
		t.Errorf("viewer.poll_interval = %v, want 2s", cfg.Viewer.PollInterval)
	}
	if cfg.Viewer.FlushInterval != 60*time.Second {
		t.Errorf("viewer.flush_interval = %v, want 60s", cfg.Viewer.FlushInterval)
	}
	if cfg.Recording.ResourceExpiry != 72*time.Hour {
		t.Errorf("recording.resource_expiry = %v, want 72h", cfg.Recording.ResourceExpiry)
	}
	if cfg.Recording.CredentialTTL != time.Hour {
		t.Errorf("recording.credential_ttl = %v, want 1h", cfg.Recording.CredentialTTL)
	}
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nonexistent.yaml"))
	if err != nil {
		t.Fatalf("Load() with missing file should use defaults, got: %v", err)
	}
	if cfg.Signaling.LoginAttempts != 3 {
		t.Errorf("signaling.login_attempts = %d, want 3", cfg.Signaling.LoginAttempts)
	}
}

func TestLoad_FromFile(t *testing.T) {
	yaml := `
signaling:
  app_id: test-app
  endpoint: ws://signal.test/ws
chat:
  min_send_interval: 2s
recording:
  bucket: test-bucket
  token_secret: test-secret
`
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.Signaling.AppID != "test-app" {
		t.Errorf("signaling.app_id = %q, want %q", cfg.Signaling.AppID, "test-app")
	}
	if cfg.Chat.MinSendInterval != 2*time.Second {
		t.Errorf("chat.min_send_interval = %v, want 2s", cfg.Chat.MinSendInterval)
	}
	if cfg.Recording.Bucket != "test-bucket" {
		t.Errorf("recording.bucket = %q, want %q", cfg.Recording.Bucket, "test-bucket")
	}
	// Untouched sections keep defaults
	if cfg.Viewer.PollInterval != 2*time.Second {
		t.Errorf("viewer.poll_interval = %v, want default 2s", cfg.Viewer.PollInterval)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("LIVECLASS_SIGNALING_APP_ID", "env-app")
	t.Setenv("LIVECLASS_LOG_LEVEL", "debug")

	cfg, err := Load(filepath.Join(t.TempDir(), "nonexistent.yaml"))
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.Signaling.AppID != "env-app" {
		t.Errorf("signaling.app_id = %q, want env override %q", cfg.Signaling.AppID, "env-app")
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("logging.level = %q, want %q", cfg.Logging.Level, "debug")
	}
}

func TestValidate_Failures(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty app id", func(c *Config) { c.Signaling.AppID = "" }},
		{"zero min send interval", func(c *Config) { c.Chat.MinSendInterval = 0 }},
		{"zero poll interval", func(c *Config) { c.Viewer.PollInterval = 0 }},
		{"empty bucket", func(c *Config) { c.Recording.Bucket = "" }},
		{"empty token secret", func(c *Config) { c.Recording.TokenSecret = "" }},
		{"redis enabled without address", func(c *Config) { c.Redis.Enabled = true; c.Redis.Address = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("Validate() should fail")
			}
		})
	}
}
