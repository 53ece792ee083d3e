package vot

import (
	"context"

	"dubbot/internal/core/domain"
	"dubbot/internal/core/ports"
)

// Client drives the vot-cli voice-over translation tool.
type Client struct {
	runner     ports.ToolRunner
	binaryPath string
}

// NewClient creates a Client running binaryPath, vot-cli when empty.
func NewClient(runner ports.ToolRunner, binaryPath string) *Client {
	if binaryPath == "" {
		binaryPath = "vot-cli"
	}
	return &Client{runner: runner, binaryPath: binaryPath}
}

// Args builds the command line for req. The URL is always the last argument.
func Args(req ports.TranslateRequest) []string {
	args := []string{
		"--lang=" + req.SourceLang,
		"--reslang=" + req.TargetLang,
	}
	if req.Subtitles {
		args = append(args, "--subs")
	}
	return append(args, "--output="+req.OutputDir, req.SourceURL)
}

// Translate runs vot-cli and succeeds only on exit code 0.
// Locating the produced file is left to the caller.
func (c *Client) Translate(ctx context.Context, req ports.TranslateRequest) error {
	out, err := c.runner.Run(ctx, c.binaryPath, Args(req)...)
	if err != nil {
		return &domain.ToolError{Tool: "vot-cli", ExitCode: out.ExitCode, Stderr: out.Stderr, Err: err}
	}
	if out.ExitCode != 0 {
		return &domain.ToolError{Tool: "vot-cli", ExitCode: out.ExitCode, Stderr: out.Stderr}
	}
	return nil
}
