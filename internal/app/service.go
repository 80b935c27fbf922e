package app

import (
	"context"

	"clipship/internal/encoder"
	"clipship/internal/webflow"
	"clipship/pkg/config"
)

// DurationProber reports a video's duration for the run summary. Optional:
// the pipeline works without one.
type DurationProber interface {
	Duration(ctx context.Context, path string) (float64, error)
}

type Service struct {
	cfg        *config.Config
	compressor encoder.Compressor
	host       webflow.AssetHost
	prober     DurationProber
}

func NewService(cfg *config.Config, compressor encoder.Compressor, host webflow.AssetHost) *Service {
	service := &Service{
		cfg:        cfg,
		compressor: compressor,
		host:       host,
	}
	if prober, ok := compressor.(DurationProber); ok {
		service.prober = prober
	}
	return service
}

// BuildService wires the real components from configuration.
func BuildService(cfg *config.Config) *Service {
	ffmpeg := encoder.NewFFmpeg(encoder.Options{
		FFmpegPath:   cfg.Encoder.FFmpegPath,
		FFprobePath:  cfg.Encoder.FFprobePath,
		OutputDir:    cfg.Encoder.OutputDir,
		AudioBitrate: cfg.Encoder.AudioBitrate,
		Threads:      cfg.Encoder.Threads,
	})

	host := webflow.NewClient(webflow.ClientOptions{
		APIBase:       cfg.Webflow.APIBase,
		Token:         cfg.APIToken,
		SiteID:        cfg.SiteID,
		HTTPTimeout:   cfg.Webflow.HTTPTimeout(),
		UploadTimeout: cfg.Webflow.UploadTimeout(),
		PollAttempts:  cfg.Webflow.PollAttempts,
		PollInterval:  cfg.Webflow.PollInterval(),
		UploadRetries: cfg.Webflow.MaxRetries,
	})

	return NewService(cfg, ffmpeg, host)
}

func (s *Service) Config() *config.Config {
	return s.cfg
}
