package domain

import "time"

// Mode is the kind of artifact a job produces.
type Mode string

const (
	ModeVideo Mode = "video"
	ModeAudio Mode = "audio"
	ModeText  Mode = "text"
)

// Valid reports whether m is one of the three output modes.
func (m Mode) Valid() bool {
	switch m {
	case ModeVideo, ModeAudio, ModeText:
		return true
	}
	return false
}

// DateLayout is the layout of date keys stored for quota accounting.
const DateLayout = "2006-01-02"

// DateKey returns the calendar date of t as a quota date key.
func DateKey(t time.Time) string {
	return t.Format(DateLayout)
}

// User is a bot user as tracked for quota purposes.
type User struct {
	ID                int64  `json:"user_id"`
	Name              string `json:"username"`
	LastUsedDate      string `json:"last_used"` // "" when the user never completed a job
	TranslationsToday int    `json:"translations_today"`
	IsPremium         bool   `json:"is_premium"`
}

// CanTranslate decides whether the user may start a job on the given day.
// A stale LastUsedDate means a fresh day, whatever TranslationsToday says.
func (u User) CanTranslate(today string, dailyLimit int) bool {
	if u.IsPremium {
		return true
	}
	if u.LastUsedDate == today {
		return u.TranslationsToday < dailyLimit
	}
	return true
}

// AfterSuccess returns the user's counters after one more completed job on the given day.
func (u User) AfterSuccess(today string) User {
	if u.LastUsedDate == today {
		u.TranslationsToday++
	} else {
		u.TranslationsToday = 1
	}
	u.LastUsedDate = today
	return u
}

// HistoryRecord is one completed job.
type HistoryRecord struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	Name      string    `json:"username"`
	SourceURL string    `json:"video_url"`
	Mode      Mode      `json:"translation_mode"`
	Timestamp time.Time `json:"timestamp"`
}

// Stats is what a user sees when asking for their statistics.
type Stats struct {
	TotalJobs int
	IsPremium bool
}

// Job is a fully collected translation request.
type Job struct {
	SourceURL  string `json:"url" validate:"required,startswith=http://|startswith=https://"`
	SourceLang string `json:"source_lang" validate:"required"`
	TargetLang string `json:"target_lang" validate:"required"`
	Mode       Mode   `json:"mode" validate:"required,oneof=video audio text"`
}

// ArtifactDirectory is an isolated directory holding the output of one tool invocation.
type ArtifactDirectory struct {
	Path  string
	JobID string
}

// Result holds the outcome of a completed job.
type Result struct {
	JobID      string
	Mode       Mode
	OutputPath string
	// Dir contains OutputPath and must be cleaned by the caller after delivery.
	Dir         ArtifactDirectory
	CompletedAt time.Time
}

// ConversationState is the main job-collection state of a user's session.
type ConversationState int

const (
	StateIdle ConversationState = iota
	StateAwaitingURL
	StateAwaitingMode
)

func (s ConversationState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAwaitingURL:
		return "awaiting_url"
	case StateAwaitingMode:
		return "awaiting_mode"
	}
	return "unknown"
}

// ConversationSession is the transient per-user state of the conversation.
type ConversationSession struct {
	State      ConversationState
	URL        string
	SourceLang string
	TargetLang string
	UpdatedAt  time.Time
}

// Message is a plain text update from the chat transport.
type Message struct {
	UserID int64
	Name   string
	Text   string
}

// Artifact is a produced file handed to the transport for delivery.
type Artifact struct {
	Mode Mode
	Path string
}

// Reply is one outgoing message. Exactly one of Text or Artifact is set.
type Reply struct {
	Text     string
	Keyboard [][]string
	Artifact *Artifact
}
