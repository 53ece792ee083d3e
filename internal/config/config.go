package config

import (
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config is the process configuration read from the environment.
type Config struct {
	Env string `envconfig:"ENV" default:"production"`

	// Temporary artifact area
	TempDir string `envconfig:"TEMP_DIR" default:"temp"`

	// Persistence
	StoreDriver string `envconfig:"STORE_DRIVER" default:"sqlite"`
	SQLitePath  string `envconfig:"SQLITE_PATH" default:"data/users.db"`
	DatabaseURL string `envconfig:"DATABASE_URL"`

	// External tools
	TranslatorBin string        `envconfig:"TRANSLATOR_BIN" default:"vot-cli"`
	DownloaderBin string        `envconfig:"DOWNLOADER_BIN"`
	MuxerBin      string        `envconfig:"MUXER_BIN" default:"ffmpeg"`
	ToolTimeout   time.Duration `envconfig:"TOOL_TIMEOUT" default:"30m"`

	// Conversation and quota
	DailyLimit        int           `envconfig:"DAILY_LIMIT" default:"1"`
	DefaultSourceLang string        `envconfig:"DEFAULT_SOURCE_LANG" default:"en"`
	DefaultTargetLang string        `envconfig:"DEFAULT_TARGET_LANG" default:"ru"`
	SessionTTL        time.Duration `envconfig:"SESSION_TTL" default:"1h"`

	// Console transport
	OutboxDir string `envconfig:"OUTBOX_DIR" default:"outbox"`
}

// Load reads Config from the environment, applying defaults.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
