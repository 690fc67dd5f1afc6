package app

import (
	"context"
	"errors"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"piggyvault-indexer/internal/alerting"
	"piggyvault-indexer/internal/config"
	"piggyvault-indexer/internal/fetcher"
	"piggyvault-indexer/internal/indexer"
	"piggyvault-indexer/internal/logging"
	"piggyvault-indexer/internal/scheduler"
	"piggyvault-indexer/internal/server"
	"piggyvault-indexer/internal/storage"
)

// App aggregates configuration and shared dependencies for the CLI commands.
type App struct {
	Config *config.Config
	Logger zerolog.Logger
}

// NewApp constructs a new application handle.
func NewApp(cfg *config.Config, logger zerolog.Logger) *App {
	logger = logging.WithService(logger, cfg.App.Name, cfg.App.Environment)
	return &App{Config: cfg, Logger: logger.With().Str("component", "app").Logger()}
}

func (a *App) newFetcher() (*fetcher.Ledger, error) {
	return fetcher.NewLedger(fetcher.Options{
		RPCURL:    a.Config.Solana.RPCURL,
		ProgramID: a.Config.Solana.ProgramID,
		PageLimit: a.Config.Solana.QueryLimit,
		Timeout:   a.Config.Solana.RequestTimeout,
	}, a.Logger)
}

func (a *App) openStore(ctx context.Context) (*storage.Store, func(), error) {
	pool, err := storage.NewPool(ctx, a.Config.Database)
	if err != nil {
		return nil, nil, err
	}

	store := storage.NewStore(pool)
	closer := func() {
		store.Close()
	}
	return store, closer, nil
}

func (a *App) newNotifier() alerting.Notifier {
	if !a.Config.Alerting.Enabled || !a.Config.Alerting.Telegram.Enabled {
		return nil
	}
	cfg := a.Config.Alerting.Telegram
	return alerting.NewTelegramNotifier(cfg.BotToken, cfg.ChatID, cfg.APIBase, 10*time.Second, a.Logger)
}

func (a *App) newIndexer(store *storage.Store) (*indexer.Indexer, error) {
	ledger, err := a.newFetcher()
	if err != nil {
		return nil, err
	}

	return indexer.New(ledger, store, store, indexer.Options{
		AdvanceOnError: a.Config.Indexer.AdvanceOnError,
		Notifier:       a.newNotifier(),
	}, a.Logger), nil
}

func (a *App) newScheduler() *scheduler.Scheduler {
	return scheduler.New(scheduler.Options{
		ActiveInterval: a.Config.Indexer.ActiveInterval,
		IdleInterval:   a.Config.Indexer.IdleInterval,
		StartupDelay:   a.Config.Indexer.StartupDelay,
	}, a.Logger)
}

// Run starts the full service: the ingestion loop plus the HTTP query
// surface, stopping both on SIGINT/SIGTERM.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	ix, err := a.newIndexer(store)
	if err != nil {
		return err
	}

	srv := server.New(server.Options{
		Host: a.Config.Server.Host,
		Port: a.Config.Server.Port,
	}, store, a.Logger)

	errCh := make(chan error, 2)
	go func() {
		errCh <- a.newScheduler().Run(ctx, ix.RunCycle)
	}()
	go func() {
		errCh <- srv.Start()
	}()

	a.Logger.Info().Msg("starting indexer service")

	err = <-errCh
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if shutdownErr := srv.Shutdown(shutdownCtx); shutdownErr != nil {
		a.Logger.Warn().Err(shutdownErr).Msg("http shutdown failed")
	}
	<-errCh

	if err != nil && !errors.Is(err, context.Canceled) {
		a.Logger.Error().Err(err).Msg("service terminated with error")
		return err
	}

	a.Logger.Info().Msg("indexer service stopped")
	return nil
}

// Index runs the ingestion loop without the HTTP surface.
func (a *App) Index(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	ix, err := a.newIndexer(store)
	if err != nil {
		return err
	}

	a.Logger.Info().Msg("starting ingestion loop")
	err = a.newScheduler().Run(ctx, ix.RunCycle)
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// Serve runs the HTTP query surface without the ingestion loop.
func (a *App) Serve(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	srv := server.New(server.Options{
		Host: a.Config.Server.Host,
		Port: a.Config.Server.Port,
	}, store, a.Logger)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	select {
	case err = <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}

// InitDB applies the SQL migrations from the configured directory.
func (a *App) InitDB(ctx context.Context) error {
	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	if err := store.RunMigrations(ctx, a.Config.Database.MigrationsPath); err != nil {
		return err
	}
	a.Logger.Info().Str("path", a.Config.Database.MigrationsPath).Msg("migrations applied")
	return nil
}

// ExportOptions hold parameters for exporting a bank's balance history.
type ExportOptions struct {
	BankID    string
	PNGPath   string
	CSVPath   string
	MaxPoints int
}

// RepairOptions configure the balance repair job.
type RepairOptions struct {
	BankID string
}
