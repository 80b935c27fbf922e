package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestLoadMissingSecrets(t *testing.T) {
	tests := []struct {
		name    string
		token   string
		siteID  string
		wantKey string
	}{
		{
			name:    "missingToken",
			token:   "",
			siteID:  "site-123",
			wantKey: EnvAPIToken,
		},
		{
			name:    "missingSiteID",
			token:   "tok-abc",
			siteID:  "",
			wantKey: EnvSiteID,
		},
		{
			name:    "missingBoth",
			token:   "",
			siteID:  "",
			wantKey: EnvAPIToken,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Chdir(t.TempDir())
			t.Setenv(EnvAPIToken, tt.token)
			t.Setenv(EnvSiteID, tt.siteID)

			_, err := Load()
			if err == nil {
				t.Fatal("Load() should fail when a secret is missing")
			}

			var missing *MissingKeyError
			if !errors.As(err, &missing) {
				t.Fatalf("Load() error = %v, want MissingKeyError", err)
			}
			if missing.Key != tt.wantKey {
				t.Errorf("missing key = %q, want %q", missing.Key, tt.wantKey)
			}
		})
	}
}

func TestLoadWithSecrets(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv(EnvAPIToken, "tok-abc")
	t.Setenv(EnvSiteID, "site-123")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.APIToken != "tok-abc" {
		t.Errorf("APIToken = %q, want %q", cfg.APIToken, "tok-abc")
	}
	if cfg.SiteID != "site-123" {
		t.Errorf("SiteID = %q, want %q", cfg.SiteID, "site-123")
	}
}

func TestLoadLocalDefaults(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv(EnvAPIToken, "")
	t.Setenv(EnvSiteID, "")

	cfg := LoadLocal()

	if cfg.Encoder.FFmpegPath != "ffmpeg" {
		t.Errorf("FFmpegPath = %q, want %q", cfg.Encoder.FFmpegPath, "ffmpeg")
	}
	if cfg.Encoder.OutputDir != "compressed" {
		t.Errorf("OutputDir = %q, want %q", cfg.Encoder.OutputDir, "compressed")
	}
	if cfg.Encoder.CRF != defaultCRF {
		t.Errorf("CRF = %d, want %d", cfg.Encoder.CRF, defaultCRF)
	}
	if cfg.Webflow.APIBase != defaultAPIBase {
		t.Errorf("APIBase = %q, want %q", cfg.Webflow.APIBase, defaultAPIBase)
	}
	if cfg.Webflow.FolderName != "Video Uploads" {
		t.Errorf("FolderName = %q, want %q", cfg.Webflow.FolderName, "Video Uploads")
	}
	if cfg.Webflow.PollAttempts != defaultPollAttempts {
		t.Errorf("PollAttempts = %d, want %d", cfg.Webflow.PollAttempts, defaultPollAttempts)
	}
}

func TestLoadLocalYAMLOverrides(t *testing.T) {
	dir := t.TempDir()
	yaml := `encoder:
  output_dir: ./out
  crf: 40
  threads: 8
webflow:
  folder_name: Clips
  poll_attempts: 3
`
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644); err != nil {
		t.Fatalf("write config.yaml: %v", err)
	}

	t.Chdir(dir)
	t.Setenv(EnvAPIToken, "")
	t.Setenv(EnvSiteID, "")

	cfg := LoadLocal()

	if cfg.Encoder.OutputDir != "./out" {
		t.Errorf("OutputDir = %q, want %q", cfg.Encoder.OutputDir, "./out")
	}
	if cfg.Encoder.CRF != 40 {
		t.Errorf("CRF = %d, want 40", cfg.Encoder.CRF)
	}
	if cfg.Encoder.Threads != 8 {
		t.Errorf("Threads = %d, want 8", cfg.Encoder.Threads)
	}
	if cfg.Webflow.FolderName != "Clips" {
		t.Errorf("FolderName = %q, want %q", cfg.Webflow.FolderName, "Clips")
	}
	if cfg.Webflow.PollAttempts != 3 {
		t.Errorf("PollAttempts = %d, want 3", cfg.Webflow.PollAttempts)
	}
	// Untouched keys still get defaults.
	if cfg.Encoder.FFmpegPath != "ffmpeg" {
		t.Errorf("FFmpegPath = %q, want %q", cfg.Encoder.FFmpegPath, "ffmpeg")
	}
}

func TestLoadReadsDotEnv(t *testing.T) {
	dir := t.TempDir()
	env := EnvAPIToken + "=env-token\n" + EnvSiteID + "=env-site\n"
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte(env), 0644); err != nil {
		t.Fatalf("write .env: %v", err)
	}

	t.Chdir(dir)
	t.Setenv(EnvAPIToken, "")
	t.Setenv(EnvSiteID, "")
	os.Unsetenv(EnvAPIToken)
	os.Unsetenv(EnvSiteID)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.APIToken != "env-token" {
		t.Errorf("APIToken = %q, want %q", cfg.APIToken, "env-token")
	}
	if cfg.SiteID != "env-site" {
		t.Errorf("SiteID = %q, want %q", cfg.SiteID, "env-site")
	}
}

func TestWebflowDurations(t *testing.T) {
	cfg := WebflowConfig{HTTPTimeoutSec: 30, UploadTimeoutSec: 600, PollIntervalSec: 5}

	if got := cfg.HTTPTimeout().Seconds(); got != 30 {
		t.Errorf("HTTPTimeout = %vs, want 30s", got)
	}
	if got := cfg.UploadTimeout().Seconds(); got != 600 {
		t.Errorf("UploadTimeout = %vs, want 600s", got)
	}
	if got := cfg.PollInterval().Seconds(); got != 5 {
		t.Errorf("PollInterval = %vs, want 5s", got)
	}
}
