package bootstrap

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	gatedvoting "slothsafe/contexts/governance/gated-voting"
	"slothsafe/contexts/governance/gated-voting/adapters/jsonfile"
	"slothsafe/contexts/governance/gated-voting/adapters/memory"
	"slothsafe/contexts/governance/gated-voting/adapters/mirrornode"
	postgresadapter "slothsafe/contexts/governance/gated-voting/adapters/postgres"
	"slothsafe/contexts/governance/gated-voting/adapters/telegram"
	"slothsafe/contexts/governance/gated-voting/application/workers"
	"slothsafe/contexts/governance/gated-voting/domain/entities"
	"slothsafe/contexts/governance/gated-voting/ports"
	"slothsafe/internal/platform/config"
	"slothsafe/internal/platform/db"
	"slothsafe/internal/platform/httpserver"
	"slothsafe/internal/platform/logger"
	"slothsafe/internal/platform/messaging"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"golang.org/x/sync/errgroup"
)

// Package bootstrap is the composition root.
// Keep construction/wiring here so module code stays framework-agnostic.

type BotApp struct {
	server          *httpserver.Server
	transport       *telegram.Transport
	relay           workers.OutboxRelay
	relayEnabled    bool
	audit           *workers.GrantAuditConsumer
	postgres        *db.Postgres
	pollInterval    time.Duration
	shutdownTimeout time.Duration
	logger          *slog.Logger
}

type WorkerApp struct {
	postgres     *db.Postgres
	outboxRelay  workers.OutboxRelay
	audit        *workers.GrantAuditConsumer
	pollInterval time.Duration
	logger       *slog.Logger
}

type outboxStore interface {
	ports.OutboxWriter
	ports.OutboxRepository
}

// ledgerBackend is the storage selected by configuration. outbox, clock and
// ids fall back to the in-memory session store when the ledger has none.
// grants is set only when the ledger and the outbox share one store.
type ledgerBackend struct {
	ledger   ports.VoteLedger
	outbox   outboxStore
	grants   ports.GrantRecorder
	clock    ports.Clock
	ids      ports.IDGenerator
	postgres *db.Postgres
}

// BuildBot wires the conversation, the HTTP API, the optional Telegram
// transport and the grant outbox relay into one process. An unreadable vote
// ledger fails the build.
func BuildBot(configPath string) (*BotApp, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	log := logger.New(cfg.Env, cfg.ServiceName).With("process", "bot")
	slog.SetDefault(log)

	sessions := memory.NewStore(nil)
	backend, err := openLedger(cfg, sessions, log)
	if err != nil {
		return nil, err
	}

	var (
		bot      *tgbotapi.BotAPI
		client   *telegram.Client
		progress ports.ProgressNotifier
	)
	if cfg.EnableTelegram {
		bot, err = tgbotapi.NewBotAPI(cfg.Telegram.Token)
		if err != nil {
			_ = backend.postgres.Close()
			return nil, err
		}
		bot.Debug = cfg.Telegram.DebugRequests
		client = telegram.NewClient(bot, log)
		progress = client
		log.Info("telegram bot authorized",
			"event", "bootstrap_telegram_authorized",
			"module", "internal/app/bootstrap",
			"layer", "platform",
			"bot_username", bot.Self.UserName,
		)
	}

	mirror := mirrornode.NewClient(
		cfg.Ledger.MirrorURL,
		&http.Client{Timeout: cfg.Ledger.Timeout},
		log,
	)
	module, err := gatedvoting.NewModule(gatedvoting.Dependencies{
		Polls:        toPolls(cfg.Polls),
		Ledger:       backend.ledger,
		Sessions:     sessions,
		Transactions: mirror,
		Outbox:       backend.outbox,
		Grants:       backend.grants,
		Progress:     progress,
		Clock:        backend.clock,
		IDGen:        backend.ids,
		Terms: entities.PaymentTerms{
			ReceivingWallet: cfg.Ledger.ReceivingWallet,
			VotePrice:       cfg.Ledger.VotePrice,
			TokenSymbol:     cfg.Ledger.TokenSymbol,
		},
		GroupID:             cfg.Telegram.GroupID,
		TokenDecimals:       cfg.Ledger.TokenDecimals,
		VerificationWindow:  cfg.Ledger.QueryLimit,
		VerificationTimeout: cfg.Ledger.Timeout,
		Logger:              log,
	})
	if err != nil {
		_ = backend.postgres.Close()
		return nil, err
	}

	bus, err := messaging.NewKafka(cfg.KafkaBrokers, log)
	if err != nil {
		_ = backend.postgres.Close()
		return nil, err
	}

	app := &BotApp{
		server: httpserver.New(
			module,
			sessions,
			cfg.HTTP.AllowedOrigins,
			log,
			normalizeAddr(cfg.HTTP.Port),
		),
		relay: workers.OutboxRelay{
			Outbox:    backend.outbox,
			Publisher: bus,
			Clock:     backend.clock,
			BatchSize: cfg.Workers.OutboxBatchSize,
			Logger:    log,
		},
		relayEnabled:    cfg.EnableOutboxRelay,
		audit:           workers.NewGrantAuditConsumer(bus, log),
		postgres:        backend.postgres,
		pollInterval:    cfg.Workers.OutboxPollInterval,
		shutdownTimeout: cfg.HTTP.ShutdownTimeout,
		logger:          log,
	}
	if bot != nil {
		app.transport = telegram.NewTransport(
			bot,
			client,
			module.Sessions,
			cfg.Telegram.PollTimeout,
			cfg.Telegram.MaxInFlight,
			log,
		)
	}
	return app, nil
}

// BuildWorker wires a standalone relay for deployments that keep the outbox
// in Postgres.
func BuildWorker(configPath string) (*WorkerApp, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	log := logger.New(cfg.Env, cfg.ServiceName).With("process", "worker")
	slog.SetDefault(log)
	if cfg.Storage.Driver != config.StoragePostgres || strings.TrimSpace(cfg.Storage.PostgresDSN) == "" {
		return nil, errors.New("worker requires the postgres storage driver and POSTGRES_DSN")
	}

	pg, err := db.Connect(cfg.Storage.PostgresDSN, postgresOptions())
	if err != nil {
		return nil, err
	}

	bus, err := messaging.NewKafka(cfg.KafkaBrokers, log)
	if err != nil {
		_ = pg.Close()
		return nil, err
	}

	repo := postgresadapter.NewRepository(pg.DB, log)
	return &WorkerApp{
		postgres: pg,
		outboxRelay: workers.OutboxRelay{
			Outbox:    repo,
			Publisher: bus,
			Clock:     postgresadapter.SystemClock{},
			BatchSize: cfg.Workers.OutboxBatchSize,
			Logger:    log,
		},
		audit:        workers.NewGrantAuditConsumer(bus, log),
		pollInterval: cfg.Workers.OutboxPollInterval,
		logger:       log,
	}, nil
}

func (a *BotApp) Run(ctx context.Context) error {
	a.logger.Info("bot app started",
		"event", "bootstrap_bot_started",
		"module", "internal/app/bootstrap",
		"layer", "platform",
		"telegram", a.transport != nil,
		"outbox_relay", a.relayEnabled,
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(a.server.Start)
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.shutdownTimeout)
		defer cancel()
		return a.server.Shutdown(shutdownCtx)
	})
	if a.transport != nil {
		g.Go(func() error {
			return a.transport.Run(gctx)
		})
	}
	if a.relayEnabled {
		if err := a.audit.Start(gctx); err != nil {
			return err
		}
		g.Go(func() error {
			runRelay(gctx, a.relay, a.pollInterval)
			return nil
		})
	}
	return g.Wait()
}

func (a *BotApp) Close() error {
	if a.postgres != nil {
		return a.postgres.Close()
	}
	return nil
}

func (w *WorkerApp) Run(ctx context.Context) error {
	if err := w.audit.Start(ctx); err != nil {
		return err
	}

	ticker := time.NewTicker(resolveInterval(w.pollInterval))
	defer ticker.Stop()

	w.logger.Info("worker app started",
		"event", "bootstrap_worker_started",
		"module", "internal/app/bootstrap",
		"layer", "platform",
		"poll_interval", w.pollInterval.String(),
	)

	for {
		if _, err := w.outboxRelay.RunOnce(ctx); err != nil {
			return err
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func (w *WorkerApp) Close() error {
	if w.postgres != nil {
		return w.postgres.Close()
	}
	return nil
}

// runRelay keeps relaying until ctx ends. Failed cycles are retried on the
// next tick.
func runRelay(ctx context.Context, relay workers.OutboxRelay, interval time.Duration) {
	ticker := time.NewTicker(resolveInterval(interval))
	defer ticker.Stop()
	for {
		_, _ = relay.RunOnce(ctx)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func openLedger(cfg config.Config, sessions *memory.Store, log *slog.Logger) (ledgerBackend, error) {
	backend := ledgerBackend{
		ledger: sessions,
		outbox: sessions,
		grants: sessions,
		clock:  sessions,
		ids:    sessions,
	}
	switch cfg.Storage.Driver {
	case config.StorageJSONFile:
		ledger, err := jsonfile.Open(cfg.Storage.Path, log)
		if err != nil {
			return ledgerBackend{}, err
		}
		backend.ledger = ledger
		backend.grants = nil
	case config.StoragePostgres:
		pg, err := db.Connect(cfg.Storage.PostgresDSN, postgresOptions())
		if err != nil {
			return ledgerBackend{}, err
		}
		repo := postgresadapter.NewRepository(pg.DB, log)
		backend.ledger = repo
		backend.outbox = repo
		backend.grants = repo
		backend.clock = postgresadapter.SystemClock{}
		backend.ids = postgresadapter.UUIDGenerator{}
		backend.postgres = pg
	case config.StorageMemory:
	}
	log.Info("vote ledger selected",
		"event", "bootstrap_ledger_selected",
		"module", "internal/app/bootstrap",
		"layer", "platform",
		"driver", cfg.Storage.Driver,
	)
	return backend, nil
}

func toPolls(items []config.PollConfig) []entities.Poll {
	polls := make([]entities.Poll, 0, len(items))
	for _, item := range items {
		polls = append(polls, entities.Poll{
			Name: item.Name,
			Link: item.Link,
			ID:   item.ID,
		})
	}
	return polls
}

func postgresOptions() db.Options {
	return db.Options{
		MaxOpenConns:    10,
		MaxIdleConns:    5,
		ConnMaxLifetime: 30 * time.Minute,
	}
}

func resolveInterval(interval time.Duration) time.Duration {
	if interval <= 0 {
		return 2 * time.Second
	}
	return interval
}

func normalizeAddr(port string) string {
	value := strings.TrimSpace(port)
	if value == "" {
		return ":8080"
	}
	if strings.HasPrefix(value, ":") {
		return value
	}
	return ":" + value
}
