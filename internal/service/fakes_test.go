package service

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/rs/zerolog"

	"dubbot/internal/adapters/ffmpeg"
	"dubbot/internal/adapters/localstorage"
	"dubbot/internal/adapters/vot"
	"dubbot/internal/adapters/ytdlp"
	"dubbot/internal/core/domain"
	"dubbot/internal/core/ports"
)

// memStore is an in-memory ports.UserStore.
type memStore struct {
	mu      sync.Mutex
	users   map[int64]domain.User
	history []domain.HistoryRecord
	err     error
}

func newMemStore() *memStore {
	return &memStore{users: make(map[int64]domain.User)}
}

func (s *memStore) AddUserIfAbsent(ctx context.Context, id int64, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	if _, ok := s.users[id]; !ok {
		s.users[id] = domain.User{ID: id, Name: name}
	}
	return nil
}

func (s *memStore) AppendHistory(ctx context.Context, rec domain.HistoryRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	rec.ID = int64(len(s.history) + 1)
	s.history = append(s.history, rec)
	return nil
}

func (s *memStore) GetStats(ctx context.Context, id int64) (*domain.Stats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	u, ok := s.users[id]
	if !ok {
		return nil, nil
	}
	stats := &domain.Stats{IsPremium: u.IsPremium}
	for _, rec := range s.history {
		if rec.UserID == id {
			stats.TotalJobs++
		}
	}
	return stats, nil
}

func (s *memStore) GetUser(ctx context.Context, id int64) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	u, ok := s.users[id]
	if !ok {
		return nil, nil
	}
	return &u, nil
}

func (s *memStore) CanTranslate(ctx context.Context, id int64, today string, dailyLimit int) (bool, error) {
	u, err := s.GetUser(ctx, id)
	if err != nil || u == nil {
		return false, err
	}
	return u.CanTranslate(today, dailyLimit), nil
}

func (s *memStore) RecordSuccess(ctx context.Context, id int64, today string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	u, ok := s.users[id]
	if !ok {
		return errors.New("user not found")
	}
	s.users[id] = u.AfterSuccess(today)
	return nil
}

func (s *memStore) IsPremium(ctx context.Context, id int64) (bool, error) {
	u, err := s.GetUser(ctx, id)
	if err != nil || u == nil {
		return false, err
	}
	return u.IsPremium, nil
}

func (s *memStore) SetPremium(ctx context.Context, id int64, premium bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return errors.New("user not found")
	}
	u.IsPremium = premium
	s.users[id] = u
	return nil
}

func (s *memStore) Close() error { return nil }

// scriptedRunner plays the external tools: it writes the files the real tools
// would write unless told to fail or to stay silent.
type scriptedRunner struct {
	mu       sync.Mutex
	calls    [][]string
	fail     map[string]ports.ToolOutput
	noOutput map[string]bool
}

func newScriptedRunner() *scriptedRunner {
	return &scriptedRunner{fail: make(map[string]ports.ToolOutput), noOutput: make(map[string]bool)}
}

func (r *scriptedRunner) Run(ctx context.Context, name string, args ...string) (ports.ToolOutput, error) {
	r.mu.Lock()
	r.calls = append(r.calls, append([]string{name}, args...))
	out, failing := r.fail[name]
	silent := r.noOutput[name]
	r.mu.Unlock()

	if failing {
		return out, nil
	}
	if silent {
		return ports.ToolOutput{}, nil
	}

	var path, content string
	switch name {
	case "vot-cli":
		var dir string
		subs := false
		for _, a := range args {
			if v, ok := strings.CutPrefix(a, "--output="); ok {
				dir = v
			}
			if a == "--subs" {
				subs = true
			}
		}
		path, content = filepath.Join(dir, "translated.mp3"), "translated audio"
		if subs {
			path, content = filepath.Join(dir, "translated.txt"), "Привет, мир"
		}
	case "yt-dlp":
		path, content = args[1], "original video"
	case "ffmpeg":
		path, content = args[len(args)-2], "dubbed video"
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return ports.ToolOutput{}, err
	}
	return ports.ToolOutput{Stdout: "done"}, nil
}

func (r *scriptedRunner) toolCalls(name string) [][]string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out [][]string
	for _, c := range r.calls {
		if c[0] == name {
			out = append(out, c)
		}
	}
	return out
}

type pipeline struct {
	storage      *localstorage.LocalStorage
	runner       *scriptedRunner
	orchestrator *Orchestrator
}

func newPipeline(t *testing.T) *pipeline {
	t.Helper()
	return newPipelineWithLogger(t, zerolog.Nop())
}

func newPipelineWithLogger(t *testing.T, logger zerolog.Logger) *pipeline {
	t.Helper()
	storage, err := localstorage.NewLocalStorage(t.TempDir(), zerolog.Nop())
	if err != nil {
		t.Fatalf("NewLocalStorage: %v", err)
	}
	runner := newScriptedRunner()
	o := NewOrchestrator(
		storage,
		vot.NewClient(runner, "vot-cli"),
		ytdlp.NewYtDlpDownloader(runner, "yt-dlp"),
		ffmpeg.NewMuxer(runner, "ffmpeg"),
		logger,
	)
	return &pipeline{storage: storage, runner: runner, orchestrator: o}
}

func entries(t *testing.T, dir string) []string {
	t.Helper()
	list, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir %s: %v", dir, err)
	}
	var names []string
	for _, e := range list {
		names = append(names, e.Name())
	}
	return names
}

// recordingMessenger collects every reply.
type recordingMessenger struct {
	mu      sync.Mutex
	replies []domain.Reply
	// contents of delivered artifacts, read at delivery time
	delivered map[string]string
	err       error
	// failArtifacts fails artifact replies only
	failArtifacts error
}

func (m *recordingMessenger) Send(ctx context.Context, userID int64, reply domain.Reply) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	if reply.Artifact != nil {
		if m.failArtifacts != nil {
			return m.failArtifacts
		}
		data, err := os.ReadFile(reply.Artifact.Path)
		if err != nil {
			return err
		}
		if m.delivered == nil {
			m.delivered = make(map[string]string)
		}
		m.delivered[reply.Artifact.Path] = string(data)
	}
	m.replies = append(m.replies, reply)
	return nil
}

func (m *recordingMessenger) texts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for _, r := range m.replies {
		if r.Artifact == nil {
			out = append(out, r.Text)
		}
	}
	return out
}
