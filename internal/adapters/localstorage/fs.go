package localstorage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"dubbot/internal/core/domain"
)

// LocalStorage implements ports.ArtifactStore on the local filesystem.
// Every mode has its own root under BaseDir: text/, audio/ and video/.
type LocalStorage struct {
	BaseDir string
	logger  zerolog.Logger
}

// NewLocalStorage creates the base directory and the per-mode roots.
func NewLocalStorage(baseDir string, logger zerolog.Logger) (*LocalStorage, error) {
	s := &LocalStorage{BaseDir: baseDir, logger: logger}
	for _, mode := range []domain.Mode{domain.ModeText, domain.ModeAudio, domain.ModeVideo} {
		path := s.ModeRoot(mode)
		if err := os.MkdirAll(path, 0755); err != nil {
			return nil, fmt.Errorf("failed to create artifact root %s: %w", path, err)
		}
	}
	return s, nil
}

// ModeRoot returns the directory holding all job directories of mode.
func (s *LocalStorage) ModeRoot(mode domain.Mode) string {
	return filepath.Join(s.BaseDir, string(mode))
}

// Allocate creates a job directory named by a random uuid token.
func (s *LocalStorage) Allocate(mode domain.Mode) (domain.ArtifactDirectory, error) {
	if !mode.Valid() {
		return domain.ArtifactDirectory{}, fmt.Errorf("%w: unknown mode %q", domain.ErrInvalidInput, mode)
	}
	token := newToken()
	path := filepath.Join(s.ModeRoot(mode), token)
	// Mkdir, not MkdirAll: an existing directory must be reported, never shared.
	if err := os.Mkdir(path, 0755); err != nil {
		return domain.ArtifactDirectory{}, fmt.Errorf("failed to create job directory %s: %w", path, err)
	}
	return domain.ArtifactDirectory{Path: path, JobID: token}, nil
}

// LocateOutput returns the first regular file in dir.
func (s *LocalStorage) LocateOutput(dir domain.ArtifactDirectory) (string, error) {
	entries, err := os.ReadDir(dir.Path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("%w in %s", domain.ErrArtifactNotFound, dir.Path)
		}
		return "", fmt.Errorf("failed to read job directory %s: %w", dir.Path, err)
	}
	for _, e := range entries {
		if e.Type().IsRegular() {
			return filepath.Join(dir.Path, e.Name()), nil
		}
	}
	return "", fmt.Errorf("%w in %s", domain.ErrArtifactNotFound, dir.Path)
}

// Cleanup deletes the regular files of dir, then dir itself.
func (s *LocalStorage) Cleanup(dir domain.ArtifactDirectory) {
	if dir.Path == "" {
		return
	}
	log := s.logger.With().Str("job_id", dir.JobID).Str("dir", dir.Path).Logger()

	entries, err := os.ReadDir(dir.Path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			log.Debug().Msg("Artifact directory already gone")
		} else {
			log.Warn().Err(err).Msg("Failed to list artifact directory")
		}
		return
	}
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		if err := os.Remove(filepath.Join(dir.Path, e.Name())); err != nil {
			log.Warn().Err(err).Str("file", e.Name()).Msg("Failed to remove artifact")
		}
	}
	if err := os.Remove(dir.Path); err != nil {
		log.Warn().Err(err).Msg("Failed to remove artifact directory")
	}
}

// TempFile returns a unique path directly under BaseDir. The file is not created.
func (s *LocalStorage) TempFile(suffix string) string {
	return filepath.Join(s.BaseDir, newToken()+suffix)
}

func newToken() string {
	id := uuid.New()
	return fmt.Sprintf("%x", id[:])
}
