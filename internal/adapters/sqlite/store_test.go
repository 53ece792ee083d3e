package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"dubbot/internal/core/domain"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(filepath.Join(t.TempDir(), "db", "users.db"))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestAddUserIfAbsentIsIdempotent(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	if err := s.AddUserIfAbsent(ctx, 42, "alice"); err != nil {
		t.Fatalf("AddUserIfAbsent: %v", err)
	}
	if err := s.RecordSuccess(ctx, 42, "2026-10-16"); err != nil {
		t.Fatalf("RecordSuccess: %v", err)
	}
	if err := s.AddUserIfAbsent(ctx, 42, "renamed"); err != nil {
		t.Fatalf("second AddUserIfAbsent: %v", err)
	}

	u, err := s.GetUser(ctx, 42)
	if err != nil {
		t.Fatalf("GetUser: %v", err)
	}
	if u == nil || u.Name != "alice" || u.TranslationsToday != 1 {
		t.Fatalf("existing user must be left untouched, got %+v", u)
	}
}

func TestGetUserUnknown(t *testing.T) {
	s := newTestStore(t)
	u, err := s.GetUser(context.Background(), 7)
	if err != nil {
		t.Fatalf("GetUser: %v", err)
	}
	if u != nil {
		t.Fatalf("expected nil for unknown user, got %+v", u)
	}
}

func TestQuotaScenario(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	const today = "2026-10-16"

	if err := s.AddUserIfAbsent(ctx, 42, "bob"); err != nil {
		t.Fatal(err)
	}
	u, _ := s.GetUser(ctx, 42)
	if u.LastUsedDate != "" {
		t.Fatalf("new user must have no last used date, got %q", u.LastUsedDate)
	}

	ok, err := s.CanTranslate(ctx, 42, today, 1)
	if err != nil || !ok {
		t.Fatalf("first CanTranslate = %v, %v; want true", ok, err)
	}
	if err := s.RecordSuccess(ctx, 42, today); err != nil {
		t.Fatal(err)
	}
	u, _ = s.GetUser(ctx, 42)
	if u.TranslationsToday != 1 || u.LastUsedDate != today {
		t.Fatalf("after commit got %+v", u)
	}
	ok, err = s.CanTranslate(ctx, 42, today, 1)
	if err != nil || ok {
		t.Fatalf("same-day CanTranslate = %v, %v; want false", ok, err)
	}
	ok, err = s.CanTranslate(ctx, 42, "2026-10-17", 1)
	if err != nil || !ok {
		t.Fatalf("next-day CanTranslate = %v, %v; want true", ok, err)
	}
}

func TestRecordSuccessResetsStaleCounter(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	if err := s.AddUserIfAbsent(ctx, 1, "carol"); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 3; i++ {
		if err := s.RecordSuccess(ctx, 1, "2026-10-15"); err != nil {
			t.Fatal(err)
		}
	}
	if err := s.RecordSuccess(ctx, 1, "2026-10-16"); err != nil {
		t.Fatal(err)
	}
	u, _ := s.GetUser(ctx, 1)
	if u.TranslationsToday != 1 || u.LastUsedDate != "2026-10-16" {
		t.Fatalf("expected counter reset to 1 on a new day, got %+v", u)
	}
}

func TestRecordSuccessUnknownUser(t *testing.T) {
	s := newTestStore(t)
	if err := s.RecordSuccess(context.Background(), 99, "2026-10-16"); err == nil {
		t.Fatal("expected error for unknown user")
	}
}

func TestCanTranslateUnknownUserIsDenied(t *testing.T) {
	s := newTestStore(t)
	ok, err := s.CanTranslate(context.Background(), 99, "2026-10-16", 1)
	if err != nil || ok {
		t.Fatalf("CanTranslate = %v, %v; want false, nil", ok, err)
	}
}

func TestPremiumAndStats(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	stats, err := s.GetStats(ctx, 5)
	if err != nil || stats != nil {
		t.Fatalf("GetStats for unknown user = %+v, %v; want nil, nil", stats, err)
	}
	if premium, err := s.IsPremium(ctx, 5); err != nil || premium {
		t.Fatalf("IsPremium for unknown user = %v, %v", premium, err)
	}

	if err := s.AddUserIfAbsent(ctx, 5, "dave"); err != nil {
		t.Fatal(err)
	}
	if err := s.SetPremium(ctx, 5, true); err != nil {
		t.Fatalf("SetPremium: %v", err)
	}
	for _, mode := range []domain.Mode{domain.ModeText, domain.ModeVideo} {
		rec := domain.HistoryRecord{UserID: 5, Name: "dave", SourceURL: "https://youtu.be/x", Mode: mode}
		if err := s.AppendHistory(ctx, rec); err != nil {
			t.Fatalf("AppendHistory: %v", err)
		}
	}

	stats, err = s.GetStats(ctx, 5)
	if err != nil {
		t.Fatalf("GetStats: %v", err)
	}
	if stats.TotalJobs != 2 || !stats.IsPremium {
		t.Fatalf("unexpected stats %+v", stats)
	}

	for i := 0; i < 5; i++ {
		if err := s.RecordSuccess(ctx, 5, "2026-10-16"); err != nil {
			t.Fatal(err)
		}
	}
	if ok, _ := s.CanTranslate(ctx, 5, "2026-10-16", 1); !ok {
		t.Fatal("premium user must always be allowed")
	}
}
