package app

import (
	"context"
	"errors"
	"fmt"

	"clipship/internal/encoder"
	"clipship/pkg/config"
)

// Stage names the pipeline step an error came from. Stages run strictly in
// order and the first failure is terminal for the run.
type Stage string

const (
	StageValidate      Stage = "validate"
	StageCompress      Stage = "compress"
	StageResolveFolder Stage = "resolve folder"
	StageUpload        Stage = "upload"
)

type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// Exit codes, one per failure class.
const (
	ExitOK               = 0
	ExitFailure          = 1
	ExitInvalidArgument  = 2
	ExitConfigMissing    = 3
	ExitSourceNotFound   = 4
	ExitCompressionError = 5
	ExitFolderError      = 6
	ExitUploadError      = 7
	ExitTimeout          = 8
)

// ExitCode maps an error to its process exit code.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}

	var missingKey *config.MissingKeyError
	if errors.As(err, &missingKey) {
		return ExitConfigMissing
	}

	var invalidCRF *encoder.InvalidCRFError
	if errors.As(err, &invalidCRF) {
		return ExitInvalidArgument
	}

	if errors.Is(err, encoder.ErrSourceNotFound) || errors.Is(err, encoder.ErrSourceEmpty) {
		return ExitSourceNotFound
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return ExitTimeout
	}

	var stageErr *StageError
	if errors.As(err, &stageErr) {
		switch stageErr.Stage {
		case StageValidate:
			return ExitInvalidArgument
		case StageCompress:
			return ExitCompressionError
		case StageResolveFolder:
			return ExitFolderError
		case StageUpload:
			return ExitUploadError
		}
	}

	return ExitFailure
}
