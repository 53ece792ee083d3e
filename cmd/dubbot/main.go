package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"dubbot/internal/adapters/console"
	"dubbot/internal/adapters/ffmpeg"
	"dubbot/internal/adapters/localstorage"
	"dubbot/internal/adapters/postgres"
	"dubbot/internal/adapters/sqlite"
	"dubbot/internal/adapters/toolrunner"
	"dubbot/internal/adapters/vot"
	"dubbot/internal/adapters/ytdlp"
	"dubbot/internal/config"
	"dubbot/internal/core/domain"
	"dubbot/internal/core/ports"
	"dubbot/internal/logger"
	"dubbot/internal/service"
)

func main() {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		// Environment variables might be set manually
		fmt.Fprintln(os.Stderr, "No .env file found")
	}

	userID := flag.Int64("user-id", 1, "Chat user id the console session speaks as")
	name := flag.String("name", "console", "Username recorded for the console session")
	grantPremium := flag.Bool("grant-premium", false, "Mark -user-id as premium and exit")
	revokePremium := flag.Bool("revoke-premium", false, "Remove premium from -user-id and exit")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		bootLog := logger.New("")
		bootLog.Fatal().Err(err).Msg("Failed to load config")
	}
	log := logger.New(cfg.Env)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := openStore(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.StoreDriver).Msg("Failed to open user store")
	}
	defer store.Close()

	if *grantPremium || *revokePremium {
		if err := store.SetPremium(ctx, *userID, *grantPremium); err != nil {
			log.Fatal().Err(err).Int64("user_id", *userID).Msg("Failed to update premium status")
		}
		log.Info().Int64("user_id", *userID).Bool("premium", *grantPremium).Msg("Premium status updated")
		return
	}

	bot, sessions, err := buildBot(cfg, store, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize bot")
	}
	go sessions.Run(ctx)

	log.Info().
		Str("temp_dir", cfg.TempDir).
		Str("store", cfg.StoreDriver).
		Int64("user_id", *userID).
		Msg("Bot started, type /start")

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("Received interrupt signal, shutting down")
			return
		case line, ok := <-lines:
			if !ok {
				return
			}
			msg := domain.Message{UserID: *userID, Name: *name, Text: line}
			if err := bot.Handle(ctx, msg); err != nil {
				log.Error().Err(err).Msg("Failed to handle message")
			}
		}
	}
}

func openStore(ctx context.Context, cfg *config.Config) (ports.UserStore, error) {
	switch cfg.StoreDriver {
	case "sqlite":
		store, err := sqlite.New(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		return store, nil
	case "postgres":
		if cfg.DatabaseURL == "" {
			return nil, fmt.Errorf("DATABASE_URL is required for the postgres store")
		}
		store, err := postgres.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		return store, nil
	}
	return nil, fmt.Errorf("unknown STORE_DRIVER %q", cfg.StoreDriver)
}

func buildBot(cfg *config.Config, store ports.UserStore, log zerolog.Logger) (*service.Bot, *service.SessionStore, error) {
	storage, err := localstorage.NewLocalStorage(cfg.TempDir, log)
	if err != nil {
		return nil, nil, err
	}

	runner := toolrunner.NewExecRunner(cfg.ToolTimeout, log)
	orchestrator := service.NewOrchestrator(
		storage,
		vot.NewClient(runner, cfg.TranslatorBin),
		ytdlp.NewYtDlpDownloader(runner, cfg.DownloaderBin),
		ffmpeg.NewMuxer(runner, cfg.MuxerBin),
		log,
	)

	messenger, err := console.NewMessenger(os.Stdout, cfg.OutboxDir)
	if err != nil {
		return nil, nil, err
	}

	sessions := service.NewSessionStore(cfg.SessionTTL)
	defaults := service.Languages{Source: cfg.DefaultSourceLang, Target: cfg.DefaultTargetLang}
	bot := service.NewBot(
		sessions,
		service.NewQuotaGate(store, cfg.DailyLimit),
		orchestrator,
		storage,
		store,
		messenger,
		defaults,
		log,
	)
	return bot, sessions, nil
}
