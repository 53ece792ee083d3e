package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidInput is returned for a malformed URL, an unknown mode label or an invalid job.
	ErrInvalidInput = errors.New("invalid input")
	// ErrQuotaExceeded is returned when a non-premium user used up today's jobs.
	ErrQuotaExceeded = errors.New("quota exceeded")
	// ErrJobInProgress is returned when the user already has a running job.
	ErrJobInProgress = errors.New("job already in progress")
	// ErrArtifactNotFound is returned when a tool exited 0 but wrote no file.
	ErrArtifactNotFound = errors.New("artifact not found")
	// ErrStorage marks failures of the persistence layer.
	ErrStorage = errors.New("storage error")
	// ErrToolTimeout is returned when an external tool was killed after its deadline.
	ErrToolTimeout = errors.New("external tool timed out")
)

// ToolError reports a failed external tool invocation.
type ToolError struct {
	Tool     string
	ExitCode int
	Stderr   string
	Err      error
}

func (e *ToolError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s failed", e.Tool)
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	} else {
		fmt.Fprintf(&b, " with exit code %d", e.ExitCode)
	}
	if s := strings.TrimSpace(e.Stderr); s != "" {
		fmt.Fprintf(&b, ", stderr: %s", s)
	}
	return b.String()
}

func (e *ToolError) Unwrap() error {
	return e.Err
}

// StorageError wraps err so that errors.Is(err, ErrStorage) holds.
func StorageError(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %s: %w", ErrStorage, op, err)
}
