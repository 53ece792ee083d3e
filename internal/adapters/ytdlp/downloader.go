package ytdlp

import (
	"context"
	"fmt"
	"os"

	"dubbot/internal/core/domain"
	"dubbot/internal/core/ports"
)

// YtDlpDownloader uses the local yt-dlp binary to fetch original videos.
type YtDlpDownloader struct {
	runner     ports.ToolRunner
	binaryPath string
}

// NewYtDlpDownloader creates a new downloader. An empty binaryPath picks
// yt-dlp.exe from the working directory when present, yt-dlp from PATH otherwise.
func NewYtDlpDownloader(runner ports.ToolRunner, binaryPath string) *YtDlpDownloader {
	if binaryPath == "" {
		binaryPath = "yt-dlp" // Assumes yt-dlp is in PATH
		if _, err := os.Stat("yt-dlp.exe"); err == nil {
			binaryPath = ".\\yt-dlp.exe"
		}
	}
	return &YtDlpDownloader{runner: runner, binaryPath: binaryPath}
}

// Download saves videoURL to path with `yt-dlp -o <path> <url>`.
func (d *YtDlpDownloader) Download(ctx context.Context, videoURL, path string) error {
	out, err := d.runner.Run(ctx, d.binaryPath, "-o", path, videoURL)
	if err != nil {
		return &domain.ToolError{Tool: "yt-dlp", ExitCode: out.ExitCode, Stderr: out.Stderr, Err: err}
	}
	if out.ExitCode != 0 {
		return &domain.ToolError{Tool: "yt-dlp", ExitCode: out.ExitCode, Stderr: out.Stderr}
	}

	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() {
		return &domain.ToolError{
			Tool:   "yt-dlp",
			Stderr: out.Stderr,
			Err:    fmt.Errorf("%w: expected download at %s", domain.ErrArtifactNotFound, path),
		}
	}
	return nil
}
