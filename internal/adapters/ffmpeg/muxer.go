package ffmpeg

import (
	"context"
	"fmt"
	"os"

	"dubbot/internal/core/domain"
	"dubbot/internal/core/ports"
)

// Muxer replaces the audio track of a video with ffmpeg.
type Muxer struct {
	runner     ports.ToolRunner
	binaryPath string
}

// NewMuxer creates a Muxer running binaryPath, ffmpeg when empty.
func NewMuxer(runner ports.ToolRunner, binaryPath string) *Muxer {
	if binaryPath == "" {
		binaryPath = "ffmpeg"
	}
	return &Muxer{runner: runner, binaryPath: binaryPath}
}

// ReplaceAudioArgs copies the first video stream of videoPath, takes the first audio
// stream of audioPath and stops at the end of the shorter one.
func ReplaceAudioArgs(videoPath, audioPath, outputPath string) []string {
	return []string{
		"-i", videoPath,
		"-i", audioPath,
		"-c:v", "copy",
		"-map", "0:v:0",
		"-map", "1:a:0",
		"-shortest", outputPath,
		"-y",
	}
}

// ReplaceAudio writes outputPath and fails with a ToolError when ffmpeg fails or writes nothing.
func (m *Muxer) ReplaceAudio(ctx context.Context, videoPath, audioPath, outputPath string) error {
	out, err := m.runner.Run(ctx, m.binaryPath, ReplaceAudioArgs(videoPath, audioPath, outputPath)...)
	if err != nil {
		return &domain.ToolError{Tool: "ffmpeg", ExitCode: out.ExitCode, Stderr: out.Stderr, Err: err}
	}
	if out.ExitCode != 0 {
		return &domain.ToolError{Tool: "ffmpeg", ExitCode: out.ExitCode, Stderr: out.Stderr}
	}
	if _, err := os.Stat(outputPath); err != nil {
		return &domain.ToolError{
			Tool:   "ffmpeg",
			Stderr: out.Stderr,
			Err:    fmt.Errorf("%w: expected output at %s", domain.ErrArtifactNotFound, outputPath),
		}
	}
	return nil
}
