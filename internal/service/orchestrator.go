package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"dubbot/internal/core/domain"
	"dubbot/internal/core/ports"
)

// Orchestrator turns a collected Job into a translated artifact.
type Orchestrator struct {
	storage    ports.ArtifactStore
	translator ports.Translator
	downloader ports.Downloader
	muxer      ports.Muxer
	validate   *validator.Validate
	logger     zerolog.Logger
}

// NewOrchestrator creates a new Orchestrator.
func NewOrchestrator(
	storage ports.ArtifactStore,
	translator ports.Translator,
	downloader ports.Downloader,
	muxer ports.Muxer,
	logger zerolog.Logger,
) *Orchestrator {
	return &Orchestrator{
		storage:    storage,
		translator: translator,
		downloader: downloader,
		muxer:      muxer,
		validate:   validator.New(validator.WithRequiredStructEnabled()),
		logger:     logger,
	}
}

// Run executes the pipeline for job.Mode. On success the caller owns result.Dir and
// must clean it after delivery; on failure nothing allocated by Run is left behind.
func (o *Orchestrator) Run(ctx context.Context, job domain.Job) (*domain.Result, error) {
	if err := o.validate.Struct(job); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}

	var (
		result *domain.Result
		err    error
	)
	switch job.Mode {
	case domain.ModeText, domain.ModeAudio:
		result, err = o.translate(ctx, job, job.Mode, o.logger, "job_id")
	case domain.ModeVideo:
		result, err = o.dub(ctx, job)
	}
	if err != nil {
		return nil, err
	}
	result.CompletedAt = time.Now().UTC()
	return result, nil
}

// translate runs the translation tool into a fresh directory under the root for mode.
// Transcripts are requested with the subtitle flag. The directory token is logged under idField.
func (o *Orchestrator) translate(ctx context.Context, job domain.Job, mode domain.Mode, logger zerolog.Logger, idField string) (*domain.Result, error) {
	dir, err := o.storage.Allocate(mode)
	if err != nil {
		return nil, fmt.Errorf("failed to allocate %s directory: %w", mode, err)
	}
	log := logger.With().Str(idField, dir.JobID).Str("mode", string(mode)).Logger()
	log.Info().Str("url", job.SourceURL).Str("source_lang", job.SourceLang).Str("target_lang", job.TargetLang).Msg("Running translation")

	err = o.translator.Translate(ctx, ports.TranslateRequest{
		SourceURL:  job.SourceURL,
		SourceLang: job.SourceLang,
		TargetLang: job.TargetLang,
		Subtitles:  mode == domain.ModeText,
		OutputDir:  dir.Path,
	})
	if err != nil {
		o.storage.Cleanup(dir)
		log.Error().Err(err).Str("step", "translate").Msg("Translation failed")
		return nil, err
	}

	path, err := o.storage.LocateOutput(dir)
	if err != nil {
		o.storage.Cleanup(dir)
		log.Error().Err(err).Str("step", "locate").Msg("Translation produced no file")
		if errors.Is(err, domain.ErrArtifactNotFound) {
			return nil, &domain.ToolError{Tool: "vot-cli", Err: err}
		}
		return nil, err
	}

	log.Info().Str("output", path).Msg("Translation completed")
	return &domain.Result{JobID: dir.JobID, Mode: mode, OutputPath: path, Dir: dir}, nil
}

// dub produces a copy of the original video whose audio track is the translated one.
// The intermediate audio directory and the downloaded original never outlive the call.
func (o *Orchestrator) dub(ctx context.Context, job domain.Job) (result *domain.Result, err error) {
	dir, err := o.storage.Allocate(domain.ModeVideo)
	if err != nil {
		return nil, fmt.Errorf("failed to allocate video directory: %w", err)
	}
	defer func() {
		if err != nil {
			o.storage.Cleanup(dir)
		}
	}()
	log := o.logger.With().Str("job_id", dir.JobID).Logger()

	audio, err := o.translate(ctx, job, domain.ModeAudio, log, "audio_job_id")
	if err != nil {
		return nil, err
	}
	defer o.storage.Cleanup(audio.Dir)

	log = log.With().Str("mode", string(domain.ModeVideo)).Logger()

	original := o.storage.TempFile("_original.mp4")
	defer func() {
		if err := os.Remove(original); err != nil && !errors.Is(err, os.ErrNotExist) {
			log.Warn().Err(err).Str("file", original).Msg("Failed to remove downloaded original")
		}
	}()

	log.Info().Str("url", job.SourceURL).Msg("Downloading original video")
	if err := o.downloader.Download(ctx, job.SourceURL, original); err != nil {
		log.Error().Err(err).Str("step", "download").Msg("Video download failed")
		return nil, err
	}

	output := filepath.Join(dir.Path, dir.JobID+".mp4")
	log.Info().Str("output", output).Msg("Replacing audio track")
	if err := o.muxer.ReplaceAudio(ctx, original, audio.OutputPath, output); err != nil {
		log.Error().Err(err).Str("step", "mux").Msg("Audio replacement failed")
		return nil, err
	}

	log.Info().Msg("Dubbed video ready")
	return &domain.Result{JobID: dir.JobID, Mode: domain.ModeVideo, OutputPath: output, Dir: dir}, nil
}
