package console

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"dubbot/internal/core/domain"
)

// Messenger implements ports.Messenger for a terminal session. Text goes to the
// writer; artifacts are copied into OutboxDir before the bot cleans them up.
type Messenger struct {
	OutboxDir string

	mu  sync.Mutex
	out io.Writer
}

// NewMessenger creates the outbox directory if needed.
func NewMessenger(out io.Writer, outboxDir string) (*Messenger, error) {
	if err := os.MkdirAll(outboxDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create outbox %s: %w", outboxDir, err)
	}
	return &Messenger{OutboxDir: outboxDir, out: out}, nil
}

// Send prints the reply for userID; artifacts are copied to the outbox first.
func (m *Messenger) Send(ctx context.Context, userID int64, reply domain.Reply) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	var b strings.Builder
	if reply.Artifact != nil {
		path, err := m.copyArtifact(userID, reply.Artifact.Path)
		if err != nil {
			return err
		}
		fmt.Fprintf(&b, "[%s] %s\n", reply.Artifact.Mode, path)
	} else {
		fmt.Fprintf(&b, "%s\n", reply.Text)
	}
	for _, row := range reply.Keyboard {
		for i, label := range row {
			if i > 0 {
				b.WriteString(" ")
			}
			fmt.Fprintf(&b, "[%s]", label)
		}
		b.WriteString("\n")
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	_, err := io.WriteString(m.out, b.String())
	return err
}

func (m *Messenger) copyArtifact(userID int64, src string) (string, error) {
	dst := filepath.Join(m.OutboxDir, fmt.Sprintf("%d_%s", userID, filepath.Base(src)))

	in, err := os.Open(src)
	if err != nil {
		return "", fmt.Errorf("failed to open artifact: %w", err)
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return "", fmt.Errorf("failed to create outbox file %s: %w", dst, err)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(dst)
		return "", fmt.Errorf("failed to write outbox file: %w", err)
	}
	if err := out.Close(); err != nil {
		return "", fmt.Errorf("failed to close outbox file: %w", err)
	}
	return dst, nil
}
