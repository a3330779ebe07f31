package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"binance-futures-export/internal/api"
	"binance-futures-export/internal/config"
	"binance-futures-export/internal/core"
	"binance-futures-export/internal/logger"
	"binance-futures-export/internal/market"
	"binance-futures-export/internal/metrics"
	"binance-futures-export/internal/model"
	"binance-futures-export/internal/repository"
	"binance-futures-export/internal/service"
)

func main() {
	checkpointPath := flag.String("checkpoint", "", "previous export to resume from (overrides CHECKPOINT_PATH)")
	envFile := flag.String("env", ".env", "env file with the API keys")
	flag.Parse()

	cfg, err := config.Load(*envFile)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if *checkpointPath != "" {
		cfg.CheckpointPath = *checkpointPath
	}

	logger.Init(logger.Options{Level: cfg.LogLevel, File: cfg.LogFile})
	logger.Info("Starting Futures History Export...",
		"base_url", cfg.BaseURL,
		"export_dir", cfg.ExportDir,
		"checkpoint", cfg.CheckpointPath,
		"max_retries", cfg.MaxRetries,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, cfg)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, cfg *config.Config) int {
	started := time.Now()
	tracker := metrics.NewTracker()
	defer tracker.LogSummary()

	creds := api.Credentials{APIKey: cfg.BinanceApiKey, SecretKey: cfg.BinanceSecretKey}
	session, err := api.VerifyCredentials(ctx, creds,
		api.WithBaseURL(cfg.BaseURL),
		api.WithTimeout(cfg.HTTPTimeout),
		api.WithRetries(cfg.MaxRetries, cfg.RetryDelay),
		api.WithTracker(tracker),
	)
	if err != nil {
		logger.Error("❌ Credential verification failed", "error", err, "creds", creds)
		fmt.Fprintln(os.Stderr, verificationMessage(err))
		return 1
	}

	repo := repository.NewDatasetRepository(repository.NewStorage(), cfg.ExportDir)
	checkpoint, err := loadCheckpoint(repo, cfg.CheckpointPath)
	if err != nil {
		logger.Error("❌ Cannot read checkpoint", "error", err)
		fmt.Fprintln(os.Stderr, "Cannot read checkpoint:", err)
		return 1
	}

	telegram := service.NewTelegramService(cfg)
	progress := []core.ProgressFunc{logProgress}

	if cfg.ProgressAddr != "" {
		hub := service.NewProgressHub()
		srv := startProgressServer(cfg.ProgressAddr, hub)
		defer func() {
			hub.Close()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
		progress = append(progress, hub.Publish)
	}

	syncer := core.NewSyncer(session.Client, market.NewCatalog(session.Client),
		core.WithClock(session.Client.ServerTime),
		core.WithTracker(tracker),
		core.WithProgress(func(p core.Progress) {
			for _, fn := range progress {
				fn(p)
			}
		}),
	)

	dataset, err := syncer.Run(ctx, session.Alias, checkpoint)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Export failed, no file written:", err)
		notify(ctx, func(ctx context.Context) error {
			return telegram.SendFailureNotification(ctx, session.Alias, err)
		})
		return 1
	}

	path, err := repo.Export(dataset)
	if err != nil {
		logger.Error("❌ Failed to write export", "error", err)
		fmt.Fprintln(os.Stderr, "Failed to write export:", err)
		return 1
	}

	notify(ctx, func(ctx context.Context) error {
		return telegram.SendExportNotification(ctx, service.ExportSummary{
			Alias:    session.Alias,
			Path:     path,
			Trades:   len(dataset.Trades),
			Orders:   len(dataset.Orders),
			Resumed:  checkpoint != nil,
			Duration: time.Since(started),
		})
	})

	fmt.Println(path)
	return 0
}

// loadCheckpoint returns nil when no checkpoint was asked for or the file is
// not a usable export.
func loadCheckpoint(repo *repository.DatasetRepository, path string) (*model.Dataset, error) {
	if path == "" {
		return nil, nil
	}
	ds, err := repo.LoadCheckpoint(path)
	if err != nil {
		var formatErr *repository.CheckpointFormatError
		if errors.As(err, &formatErr) {
			logger.Warn("⚠️ Checkpoint is not a valid export, fetching everything", "error", err)
			return nil, nil
		}
		return nil, err
	}
	return ds, nil
}

func verificationMessage(err error) string {
	var serverErr *api.ServerError
	var authErr *api.AuthenticationError
	var netErr *api.TransientNetworkError
	switch {
	case errors.As(err, &serverErr):
		return "Server side error, try again later"
	case errors.As(err, &authErr):
		return "Keys are not valid"
	case errors.As(err, &netErr):
		return "Binance is unreachable, check the connection"
	case errors.Is(err, context.Canceled):
		return "Cancelled"
	default:
		return "Verification failed: " + err.Error()
	}
}

func logProgress(p core.Progress) {
	if p.Done {
		logger.Info("📊 Progress", "run_id", p.RunID, "percent", 100)
		return
	}
	logger.Info("📊 Progress", "run_id", p.RunID, "symbol", p.Symbol, "percent", fmt.Sprintf("%.2f", p.Percent))
}

func startProgressServer(addr string, hub *service.ProgressHub) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/progress", hub)

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		logger.Info("📡 Progress feed listening", "addr", addr, "path", "/progress")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("❌ Progress feed stopped", "error", err)
		}
	}()
	return srv
}

// notify sends a notification even after the run context was cancelled.
func notify(ctx context.Context, send func(context.Context) error) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 15*time.Second)
	defer cancel()
	if err := send(ctx); err != nil {
		logger.Warn("⚠️ Telegram notification failed", "error", err)
	}
}
