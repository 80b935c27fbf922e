package config

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	EnvAPIToken = "WEBFLOW_API_TOKEN"
	EnvSiteID   = "SITE_ID"
)

const (
	defaultConfigPath       = "config.yaml"
	defaultFFmpegPath       = "ffmpeg"
	defaultFFprobePath      = "ffprobe"
	defaultOutputDir        = "compressed"
	defaultCRF              = 32
	defaultAudioBitrate     = "96k"
	defaultThreads          = 4
	defaultEncodeTimeoutSec = 1800
	defaultAPIBase          = "https://api.webflow.com/v2"
	defaultFolderName       = "Video Uploads"
	defaultHTTPTimeoutSec   = 30
	defaultUploadTimeoutSec = 600
	defaultPollAttempts     = 20
	defaultPollIntervalSec  = 5
	defaultMaxRetries       = 3
)

// MissingKeyError reports a required secret that was absent from the
// environment and .env file.
type MissingKeyError struct {
	Key string
}

func (e *MissingKeyError) Error() string {
	return fmt.Sprintf("missing required configuration: %s", e.Key)
}

type Config struct {
	APIToken string
	SiteID   string

	Encoder EncoderConfig `yaml:"encoder"`
	Webflow WebflowConfig `yaml:"webflow"`
}

type EncoderConfig struct {
	FFmpegPath       string `yaml:"ffmpeg_path"`
	FFprobePath      string `yaml:"ffprobe_path"`
	OutputDir        string `yaml:"output_dir"`
	CRF              int    `yaml:"crf"`
	AudioBitrate     string `yaml:"audio_bitrate"`
	Threads          int    `yaml:"threads"`
	EncodeTimeoutSec int    `yaml:"encode_timeout_seconds"`
}

type WebflowConfig struct {
	APIBase          string `yaml:"api_base"`
	FolderName       string `yaml:"folder_name"`
	HTTPTimeoutSec   int    `yaml:"http_timeout_seconds"`
	UploadTimeoutSec int    `yaml:"upload_timeout_seconds"`
	PollAttempts     int    `yaml:"poll_attempts"`
	PollIntervalSec  int    `yaml:"poll_interval_seconds"`
	MaxRetries       int    `yaml:"max_retries"`
}

func (c EncoderConfig) EncodeTimeout() time.Duration {
	return time.Duration(c.EncodeTimeoutSec) * time.Second
}

func (c WebflowConfig) HTTPTimeout() time.Duration {
	return time.Duration(c.HTTPTimeoutSec) * time.Second
}

func (c WebflowConfig) UploadTimeout() time.Duration {
	return time.Duration(c.UploadTimeoutSec) * time.Second
}

func (c WebflowConfig) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalSec) * time.Second
}

// Load reads .env, the environment and config.yaml. It fails with a
// MissingKeyError if either secret is absent, before anything else runs.
func Load() (*Config, error) {
	cfg := LoadLocal()

	if cfg.APIToken == "" {
		return nil, &MissingKeyError{Key: EnvAPIToken}
	}
	if cfg.SiteID == "" {
		return nil, &MissingKeyError{Key: EnvSiteID}
	}

	return cfg, nil
}

// LoadLocal loads configuration without requiring the Webflow secrets.
// Used by commands that never touch the remote API.
func LoadLocal() *Config {
	if err := godotenv.Load(); err != nil {
		slog.Debug("No .env file found, relying on environment variables")
	}

	cfg := &Config{
		APIToken: os.Getenv(EnvAPIToken),
		SiteID:   os.Getenv(EnvSiteID),
	}

	loadYAMLConfig(cfg)
	applyDefaults(cfg)

	return cfg
}

func loadYAMLConfig(cfg *Config) {
	data, err := os.ReadFile(defaultConfigPath)
	if err != nil {
		slog.Debug("No config.yaml found, using defaults")
		return
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		slog.Error("Failed to parse config.yaml", "error", err)
	}
}

func applyDefaults(cfg *Config) {
	applyEncoderDefaults(cfg)
	applyWebflowDefaults(cfg)
}

func applyEncoderDefaults(cfg *Config) {
	if cfg.Encoder.FFmpegPath == "" {
		cfg.Encoder.FFmpegPath = defaultFFmpegPath
	}
	if cfg.Encoder.FFprobePath == "" {
		cfg.Encoder.FFprobePath = defaultFFprobePath
	}
	if cfg.Encoder.OutputDir == "" {
		cfg.Encoder.OutputDir = defaultOutputDir
	}
	if cfg.Encoder.CRF == 0 {
		cfg.Encoder.CRF = defaultCRF
	}
	if cfg.Encoder.AudioBitrate == "" {
		cfg.Encoder.AudioBitrate = defaultAudioBitrate
	}
	if cfg.Encoder.Threads == 0 {
		cfg.Encoder.Threads = defaultThreads
	}
	if cfg.Encoder.EncodeTimeoutSec == 0 {
		cfg.Encoder.EncodeTimeoutSec = defaultEncodeTimeoutSec
	}
}

func applyWebflowDefaults(cfg *Config) {
	if cfg.Webflow.APIBase == "" {
		cfg.Webflow.APIBase = defaultAPIBase
	}
	if cfg.Webflow.FolderName == "" {
		cfg.Webflow.FolderName = defaultFolderName
	}
	if cfg.Webflow.HTTPTimeoutSec == 0 {
		cfg.Webflow.HTTPTimeoutSec = defaultHTTPTimeoutSec
	}
	if cfg.Webflow.UploadTimeoutSec == 0 {
		cfg.Webflow.UploadTimeoutSec = defaultUploadTimeoutSec
	}
	if cfg.Webflow.PollAttempts == 0 {
		cfg.Webflow.PollAttempts = defaultPollAttempts
	}
	if cfg.Webflow.PollIntervalSec == 0 {
		cfg.Webflow.PollIntervalSec = defaultPollIntervalSec
	}
	if cfg.Webflow.MaxRetries == 0 {
		cfg.Webflow.MaxRetries = defaultMaxRetries
	}
}
