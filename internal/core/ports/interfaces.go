package ports

import (
	"context"

	"dubbot/internal/core/domain"
)

// ToolOutput is the captured result of one external process.
type ToolOutput struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// ToolRunner defines the contract for invoking external executables.
type ToolRunner interface {
	// Run blocks until the process exits. A non-zero exit code is not an error;
	// the error is reserved for processes that could not start or were killed.
	Run(ctx context.Context, name string, args ...string) (ToolOutput, error)
}

// ArtifactStore manages the per-job temporary filesystem area.
type ArtifactStore interface {
	// Allocate creates a fresh directory under the root for mode.
	Allocate(mode domain.Mode) (domain.ArtifactDirectory, error)

	// LocateOutput returns the first regular file in dir.
	// Returns domain.ErrArtifactNotFound if there is none.
	LocateOutput(dir domain.ArtifactDirectory) (string, error)

	// Cleanup removes dir and the files in it. Failures are logged, never returned.
	Cleanup(dir domain.ArtifactDirectory)

	// TempFile returns a unique, not yet existing path in the temp root.
	TempFile(suffix string) string
}

// TranslateRequest describes one run of the translation tool.
type TranslateRequest struct {
	SourceURL  string
	SourceLang string
	TargetLang string
	Subtitles  bool
	OutputDir  string
}

// Translator produces a translated audio track or transcript for a video URL.
type Translator interface {
	Translate(ctx context.Context, req TranslateRequest) error
}

// Downloader fetches the original video to a local path.
type Downloader interface {
	Download(ctx context.Context, videoURL, path string) error
}

// Muxer combines a video stream with a replacement audio track.
type Muxer interface {
	ReplaceAudio(ctx context.Context, videoPath, audioPath, outputPath string) error
}

// UserStore is the persistence surface used by the quota gate and the bot.
type UserStore interface {
	// AddUserIfAbsent registers a user on first interaction.
	AddUserIfAbsent(ctx context.Context, id int64, name string) error

	// AppendHistory records a completed job.
	AppendHistory(ctx context.Context, rec domain.HistoryRecord) error

	// GetStats returns nil when the user is unknown.
	GetStats(ctx context.Context, id int64) (*domain.Stats, error)

	// GetUser returns nil when the user is unknown.
	GetUser(ctx context.Context, id int64) (*domain.User, error)

	// CanTranslate reports whether the user may run a job on day today.
	// Unknown users are denied.
	CanTranslate(ctx context.Context, id int64, today string, dailyLimit int) (bool, error)

	// RecordSuccess counts one completed job on day today, resetting a stale counter.
	RecordSuccess(ctx context.Context, id int64, today string) error

	IsPremium(ctx context.Context, id int64) (bool, error)
	SetPremium(ctx context.Context, id int64, premium bool) error

	Close() error
}

// Messenger delivers replies to a user through the chat transport.
type Messenger interface {
	Send(ctx context.Context, userID int64, reply domain.Reply) error
}
