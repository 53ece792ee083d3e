package service

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/rs/zerolog"

	"dubbot/internal/core/domain"
	"dubbot/internal/core/ports"
)

// maxMessageRunes is the longest text a single chat message may carry.
const maxMessageRunes = 4096

// JobRunner executes a collected job.
type JobRunner interface {
	Run(ctx context.Context, job domain.Job) (*domain.Result, error)
}

// Bot applies routed decisions: it talks to the store, the quota gate and the
// pipeline, delivers artifacts and cleans them up.
type Bot struct {
	sessions  *SessionStore
	quota     *QuotaGate
	jobs      JobRunner
	storage   ports.ArtifactStore
	store     ports.UserStore
	messenger ports.Messenger
	defaults  Languages
	logger    zerolog.Logger
}

// NewBot creates a Bot answering with defaults as the initial language pair.
func NewBot(
	sessions *SessionStore,
	quota *QuotaGate,
	jobs JobRunner,
	storage ports.ArtifactStore,
	store ports.UserStore,
	messenger ports.Messenger,
	defaults Languages,
	logger zerolog.Logger,
) *Bot {
	return &Bot{
		sessions:  sessions,
		quota:     quota,
		jobs:      jobs,
		storage:   storage,
		store:     store,
		messenger: messenger,
		defaults:  defaults,
		logger:    logger,
	}
}

// Handle processes one incoming message. Pipeline failures are reported to the
// user and logged; the returned error only reports replies that could not be sent.
func (b *Bot) Handle(ctx context.Context, msg domain.Message) error {
	log := b.logger.With().Int64("user_id", msg.UserID).Logger()

	d := Route(b.sessions.Get(msg.UserID), msg.Text, b.defaults)
	b.sessions.Put(msg.UserID, d.Session)
	if d.Err != nil {
		log.Debug().Err(d.Err).Str("state", d.Session.State.String()).Msg("Rejected input")
	}

	var errs []error
	for _, r := range d.Replies {
		errs = append(errs, b.send(ctx, msg.UserID, r))
	}

	switch d.Action {
	case ActionRegister:
		if err := b.store.AddUserIfAbsent(ctx, msg.UserID, msg.Name); err != nil {
			log.Error().Err(err).Msg("Failed to register user")
			errs = append(errs, b.send(ctx, msg.UserID, domain.Reply{Text: failureMessage(domain.StorageError("add user", err))}))
		}
	case ActionShowStats:
		errs = append(errs, b.showStats(ctx, msg.UserID, log))
	case ActionShowPremium:
		errs = append(errs, b.showPremium(ctx, msg.UserID, log))
	case ActionRunJob:
		errs = append(errs, b.runJob(ctx, msg, *d.Job, log))
	}
	return errors.Join(errs...)
}

func (b *Bot) runJob(ctx context.Context, msg domain.Message, job domain.Job, log zerolog.Logger) error {
	lease, err := b.quota.Begin(ctx, msg.UserID)
	if err != nil {
		log.Info().Err(err).Msg("Job not started")
		return b.send(ctx, msg.UserID, domain.Reply{Text: failureMessage(err), Keyboard: MainMenuKeyboard})
	}
	defer lease.Release()

	if err := b.send(ctx, msg.UserID, domain.Reply{Text: "Processing your request. This may take some time..."}); err != nil {
		return err
	}

	result, err := b.jobs.Run(ctx, job)
	if err != nil {
		log.Error().Err(err).Str("url", job.SourceURL).Str("mode", string(job.Mode)).Msg("Job failed")
		return b.send(ctx, msg.UserID, domain.Reply{Text: failureMessage(err), Keyboard: MainMenuKeyboard})
	}
	defer b.storage.Cleanup(result.Dir)

	log = log.With().Str("job_id", result.JobID).Logger()
	if err := b.deliver(ctx, msg.UserID, result); err != nil {
		log.Error().Err(err).Msg("Failed to deliver artifact")
		return err
	}

	rec := domain.HistoryRecord{UserID: msg.UserID, Name: msg.Name, SourceURL: job.SourceURL, Mode: job.Mode}
	if err := b.store.AppendHistory(ctx, rec); err != nil {
		log.Error().Err(err).Msg("Failed to append history")
	}
	if err := lease.Commit(ctx); err != nil {
		log.Error().Err(err).Msg("Failed to record quota usage")
	}
	log.Info().Str("mode", string(result.Mode)).Msg("Job delivered")
	return nil
}

func (b *Bot) deliver(ctx context.Context, userID int64, result *domain.Result) error {
	if result.Mode != domain.ModeText {
		return b.send(ctx, userID, domain.Reply{
			Artifact: &domain.Artifact{Mode: result.Mode, Path: result.OutputPath},
			Keyboard: MainMenuKeyboard,
		})
	}

	content, err := os.ReadFile(result.OutputPath)
	if err != nil {
		return fmt.Errorf("failed to read transcript: %w", err)
	}
	chunks := splitRunes(string(content), maxMessageRunes)
	if len(chunks) == 0 {
		chunks = []string{"The transcript is empty."}
	}
	for i, chunk := range chunks {
		r := domain.Reply{Text: chunk}
		if i == len(chunks)-1 {
			r.Keyboard = MainMenuKeyboard
		}
		if err := b.send(ctx, userID, r); err != nil {
			return err
		}
	}
	return nil
}

func (b *Bot) showStats(ctx context.Context, userID int64, log zerolog.Logger) error {
	stats, err := b.store.GetStats(ctx, userID)
	if err != nil {
		log.Error().Err(err).Msg("Failed to load stats")
		return b.send(ctx, userID, domain.Reply{Text: failureMessage(domain.StorageError("get stats", err))})
	}
	if stats == nil {
		return b.send(ctx, userID, domain.Reply{Text: "You have no translation history."})
	}
	return b.send(ctx, userID, domain.Reply{
		Text: fmt.Sprintf("Total translations: %d\nPremium status: %s", stats.TotalJobs, yesNo(stats.IsPremium)),
	})
}

func (b *Bot) showPremium(ctx context.Context, userID int64, log zerolog.Logger) error {
	premium, err := b.store.IsPremium(ctx, userID)
	if err != nil {
		log.Error().Err(err).Msg("Failed to load premium status")
		return b.send(ctx, userID, domain.Reply{Text: failureMessage(domain.StorageError("is premium", err))})
	}
	if premium {
		return b.send(ctx, userID, domain.Reply{Text: "You have unlimited translations as a Premium user."})
	}
	return b.send(ctx, userID, domain.Reply{
		Text: fmt.Sprintf("You are on the free plan: %d translation(s) per day. Upgrade to Premium for unlimited translations.", b.quota.dailyLimit),
	})
}

func (b *Bot) send(ctx context.Context, userID int64, r domain.Reply) error {
	if err := b.messenger.Send(ctx, userID, r); err != nil {
		b.logger.Error().Err(err).Int64("user_id", userID).Msg("Failed to send reply")
		return err
	}
	return nil
}

// failureMessage maps an internal error to a user-safe text. Tool output and
// paths never reach the user.
func failureMessage(err error) string {
	var toolErr *domain.ToolError
	switch {
	case errors.Is(err, domain.ErrQuotaExceeded):
		return "You’ve reached your free translation limit for today. Upgrade to Premium for unlimited translations."
	case errors.Is(err, domain.ErrJobInProgress):
		return "Your previous request is still being processed. Please wait for it to finish."
	case errors.Is(err, domain.ErrInvalidInput):
		return "This request could not be processed. Please check the link and the selected languages."
	case errors.Is(err, domain.ErrToolTimeout):
		return "Processing took too long and was stopped. Please try a shorter video."
	case errors.As(err, &toolErr):
		return "Sorry, we couldn't translate this video. Please check the link or try again later."
	case errors.Is(err, domain.ErrStorage):
		return "Something went wrong on our side. Please try again later."
	}
	return "Something went wrong. Please try again later."
}

func splitRunes(s string, size int) []string {
	runes := []rune(s)
	var chunks []string
	for len(runes) > 0 {
		n := min(size, len(runes))
		chunks = append(chunks, string(runes[:n]))
		runes = runes[n:]
	}
	return chunks
}

func yesNo(v bool) string {
	if v {
		return "Yes"
	}
	return "No"
}
