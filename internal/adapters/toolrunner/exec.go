package toolrunner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"time"

	"github.com/rs/zerolog"

	"dubbot/internal/core/domain"
	"dubbot/internal/core/ports"
)

// waitDelay bounds how long Run waits for the output pipes after the process was killed.
const waitDelay = 5 * time.Second

// ExecRunner implements ports.ToolRunner with os/exec.
type ExecRunner struct {
	timeout time.Duration
	logger  zerolog.Logger
}

// NewExecRunner creates a runner that kills every process after timeout.
// A zero timeout leaves only the caller's context in charge.
func NewExecRunner(timeout time.Duration, logger zerolog.Logger) *ExecRunner {
	return &ExecRunner{timeout: timeout, logger: logger}
}

// Run executes name with args and captures both output streams.
func (r *ExecRunner) Run(ctx context.Context, name string, args ...string) (ports.ToolOutput, error) {
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, name, args...)
	cmd.WaitDelay = waitDelay
	killProcessGroup(cmd)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	out := ports.ToolOutput{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		ExitCode: cmd.ProcessState.ExitCode(),
	}

	log := r.logger.With().Str("tool", name).Dur("duration", time.Since(start)).Logger()

	if ctxErr := ctx.Err(); ctxErr != nil {
		log.Warn().Err(ctxErr).Msg("External tool killed")
		if errors.Is(ctxErr, context.DeadlineExceeded) {
			return out, fmt.Errorf("%w: %s after %s", domain.ErrToolTimeout, name, r.timeout)
		}
		return out, fmt.Errorf("%s interrupted: %w", name, ctxErr)
	}

	var exitErr *exec.ExitError
	if err != nil && !errors.As(err, &exitErr) {
		log.Error().Err(err).Msg("External tool could not be started")
		return out, fmt.Errorf("failed to run %s: %w", name, err)
	}

	log.Debug().Int("exit_code", out.ExitCode).Msg("External tool finished")
	return out, nil
}
