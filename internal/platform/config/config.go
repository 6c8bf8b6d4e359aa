package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

const (
	StorageJSONFile = "jsonfile"
	StoragePostgres = "postgres"
	StorageMemory   = "memory"
)

// Config is centralized process configuration.
// Keep infra values here and pass typed config into builders.
type Config struct {
	Env         string         `yaml:"env" env:"ENV" env-default:"local"`
	ServiceName string         `yaml:"service_name" env:"SERVICE_NAME" env-default:"slothsafe-voting"`
	HTTP        HTTPConfig     `yaml:"http"`
	Telegram    TelegramConfig `yaml:"telegram"`
	Ledger      LedgerConfig   `yaml:"ledger"`
	Storage     StorageConfig  `yaml:"storage"`
	Workers     WorkersConfig  `yaml:"workers"`
	Polls       []PollConfig   `yaml:"polls"`

	KafkaBrokers []string `yaml:"kafka_brokers" env:"KAFKA_BROKERS" env-separator:","`

	EnableTelegram    bool `yaml:"-"`
	EnableOutboxRelay bool `yaml:"-"`
}

type HTTPConfig struct {
	Port            string        `yaml:"port" env:"HTTP_PORT" env-default:"8080"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"HTTP_SHUTDOWN_TIMEOUT" env-default:"10s"`
	AllowedOrigins  []string      `yaml:"allowed_origins" env:"HTTP_ALLOWED_ORIGINS" env-separator:","`
}

type TelegramConfig struct {
	Token         string `yaml:"token" env:"TELEGRAM_BOT_TOKEN"`
	GroupID       int64  `yaml:"group_id" env:"SLOTHSAFE_GROUP_ID" env-default:"-1001234567890"`
	PollTimeout   int    `yaml:"poll_timeout" env:"TELEGRAM_POLL_TIMEOUT" env-default:"60"`
	MaxInFlight   int64  `yaml:"max_in_flight" env:"TELEGRAM_MAX_IN_FLIGHT" env-default:"32"`
	DebugRequests bool   `yaml:"debug_requests" env:"TELEGRAM_DEBUG" env-default:"false"`
}

type LedgerConfig struct {
	MirrorURL       string        `yaml:"mirror_url" env:"MIRROR_NODE_URL" env-default:"https://mainnet-public.mirrornode.hedera.com"`
	ReceivingWallet string        `yaml:"receiving_wallet" env:"RECEIVING_WALLET" env-default:"0.0.8063721"`
	VotePrice       int64         `yaml:"vote_price" env:"VOTE_PRICE" env-default:"1"`
	TokenDecimals   int           `yaml:"token_decimals" env:"TOKEN_DECIMALS" env-default:"8"`
	TokenSymbol     string        `yaml:"token_symbol" env:"TOKEN_SYMBOL" env-default:"SLOTHBAR"`
	QueryLimit      int           `yaml:"query_limit" env:"MIRROR_QUERY_LIMIT" env-default:"5"`
	Timeout         time.Duration `yaml:"timeout" env:"MIRROR_TIMEOUT" env-default:"10s"`
}

type StorageConfig struct {
	Driver      string `yaml:"driver" env:"STORAGE_DRIVER" env-default:"jsonfile"`
	Path        string `yaml:"path" env:"STORAGE_PATH" env-default:"user_votes.json"`
	PostgresDSN string `yaml:"postgres_dsn" env:"POSTGRES_DSN"`
}

type WorkersConfig struct {
	OutboxPollInterval time.Duration `yaml:"outbox_poll_interval" env:"OUTBOX_POLL_INTERVAL" env-default:"2s"`
	OutboxBatchSize    int           `yaml:"outbox_batch_size" env:"OUTBOX_BATCH_SIZE" env-default:"100"`
}

type PollConfig struct {
	Name string `yaml:"name"`
	Link string `yaml:"link"`
	ID   string `yaml:"id"`
}

// DefaultPolls is the catalog used when configuration does not list polls.
func DefaultPolls() []PollConfig {
	return []PollConfig{
		{Name: "Poll 1", Link: "https://t.me/c/2366575867/5", ID: "poll_1"},
		{Name: "Poll 2", Link: "https://t.me/c/2366575867/6", ID: "poll_2"},
	}
}

// Load reads an optional .env file, then the YAML file at path (env vars
// override it), or env vars alone when path is empty.
func Load(path string) (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}
	if strings.TrimSpace(path) == "" {
		path = strings.TrimSpace(os.Getenv("CONFIG_PATH"))
	}

	var cfg Config
	if path != "" {
		if err := cleanenv.ReadConfig(path, &cfg); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
	} else if err := cleanenv.ReadEnv(&cfg); err != nil {
		return Config{}, fmt.Errorf("read config from env: %w", err)
	}

	if len(cfg.Polls) == 0 {
		cfg.Polls = DefaultPolls()
	}
	if len(cfg.KafkaBrokers) == 0 {
		cfg.KafkaBrokers = []string{"localhost:9092"}
	}
	cfg.EnableTelegram = envBool("ENABLE_TELEGRAM", strings.TrimSpace(cfg.Telegram.Token) != "")
	// Postgres outboxes are drained by cmd/worker.
	cfg.EnableOutboxRelay = envBool("ENABLE_OUTBOX_RELAY", cfg.Storage.Driver != StoragePostgres)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	switch c.Storage.Driver {
	case StorageJSONFile:
		if strings.TrimSpace(c.Storage.Path) == "" {
			return errors.New("storage path is required for the jsonfile driver")
		}
	case StoragePostgres:
		if strings.TrimSpace(c.Storage.PostgresDSN) == "" {
			return errors.New("POSTGRES_DSN is required for the postgres driver")
		}
	case StorageMemory:
	default:
		return fmt.Errorf("unknown storage driver %q", c.Storage.Driver)
	}
	if c.EnableTelegram && strings.TrimSpace(c.Telegram.Token) == "" {
		return errors.New("TELEGRAM_BOT_TOKEN is required when telegram is enabled")
	}
	if strings.TrimSpace(c.Ledger.ReceivingWallet) == "" {
		return errors.New("receiving wallet is required")
	}
	if c.Ledger.VotePrice <= 0 {
		return errors.New("vote price must be positive")
	}
	if c.Ledger.TokenDecimals < 0 || c.Ledger.TokenDecimals > 18 {
		return fmt.Errorf("token decimals out of range: %d", c.Ledger.TokenDecimals)
	}
	return nil
}

func envBool(name string, fallback bool) bool {
	raw := strings.TrimSpace(strings.ToLower(os.Getenv(name)))
	if raw == "" {
		return fallback
	}
	switch raw {
	case "1", "true", "t", "yes", "y", "on":
		return true
	case "0", "false", "f", "no", "n", "off":
		return false
	default:
		return fallback
	}
}
