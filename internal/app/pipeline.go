package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"clipship/internal/encoder"
	"clipship/internal/webflow"
)

// Pipeline runs the fixed sequence: validate, compress, resolve folder,
// upload. No stage is revisited; the first failure ends the run and names
// its stage. A compressed artifact is always left on disk, so a failed
// upload can be retried by hand.
type Pipeline struct {
	service *Service
}

type Request struct {
	SourcePath string
	CRF        int
}

type CompressResult struct {
	Artifact     encoder.Artifact
	OriginalSize int64
	// Duration of the compressed video in seconds; zero when probing is
	// unavailable.
	Duration float64
}

type PublishResult struct {
	FolderID string
	Asset    webflow.Asset
}

type Result struct {
	CompressResult
	PublishResult
}

func NewPipeline(service *Service) *Pipeline {
	return &Pipeline{service: service}
}

// Run executes the whole pipeline and returns the hosted asset.
func (p *Pipeline) Run(ctx context.Context, req Request) (*Result, error) {
	compressed, err := p.Compress(ctx, req)
	if err != nil {
		return nil, err
	}

	published, err := p.Publish(ctx, compressed.Artifact.Path)
	if err != nil {
		return nil, err
	}

	return &Result{CompressResult: *compressed, PublishResult: *published}, nil
}

// Compress validates the request and produces the artifact. Validation
// happens first, so a bad path or quality level never spawns the encoder.
func (p *Pipeline) Compress(ctx context.Context, req Request) (*CompressResult, error) {
	if err := encoder.ValidateRequest(encoder.Request{SourcePath: req.SourcePath, CRF: req.CRF}); err != nil {
		return nil, err
	}

	sourceInfo, err := os.Stat(req.SourcePath)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", req.SourcePath, encoder.ErrSourceNotFound)
	}

	encodeCtx := ctx
	if timeout := p.service.cfg.Encoder.EncodeTimeout(); timeout > 0 {
		var cancel context.CancelFunc
		encodeCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	slog.Info("Compressing video...", "source", req.SourcePath, "crf", req.CRF)
	artifact, err := p.service.compressor.Compress(encodeCtx, encoder.Request{
		SourcePath: req.SourcePath,
		CRF:        req.CRF,
	})
	if err != nil {
		return nil, &StageError{Stage: StageCompress, Err: err}
	}

	result := &CompressResult{
		Artifact:     *artifact,
		OriginalSize: sourceInfo.Size(),
	}

	if p.service.prober != nil {
		duration, err := p.service.prober.Duration(ctx, artifact.Path)
		if err != nil {
			slog.Debug("Failed to probe artifact duration", "error", err)
		} else {
			result.Duration = duration
		}
	}

	return result, nil
}

// Publish resolves the destination folder and uploads the artifact.
func (p *Pipeline) Publish(ctx context.Context, artifactPath string) (*PublishResult, error) {
	info, err := os.Stat(artifactPath)
	if err != nil {
		return nil, &StageError{Stage: StageUpload, Err: fmt.Errorf("artifact missing: %w", err)}
	}
	if info.Size() == 0 {
		return nil, &StageError{Stage: StageUpload, Err: fmt.Errorf("artifact %s is empty", artifactPath)}
	}

	folderName := p.service.cfg.Webflow.FolderName
	slog.Info("Resolving asset folder...", "name", folderName)
	folderID, err := p.service.host.ResolveFolder(ctx, folderName)
	if err != nil {
		return nil, &StageError{Stage: StageResolveFolder, Err: err}
	}

	slog.Info("Uploading artifact...", "path", artifactPath, "folder_id", folderID)
	asset, err := p.service.host.Upload(ctx, artifactPath, folderID)
	if err != nil {
		return nil, &StageError{Stage: StageUpload, Err: err}
	}

	return &PublishResult{FolderID: folderID, Asset: *asset}, nil
}
