package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/MrJamesThe3rd/offertory/internal/auth"
	"github.com/MrJamesThe3rd/offertory/internal/config"
	"github.com/MrJamesThe3rd/offertory/internal/database"
	offertoryHttp "github.com/MrJamesThe3rd/offertory/internal/http"
	activityHandler "github.com/MrJamesThe3rd/offertory/internal/http/activity"
	ledgerHandler "github.com/MrJamesThe3rd/offertory/internal/http/ledger"
	receiptHandler "github.com/MrJamesThe3rd/offertory/internal/http/receipt"
	"github.com/MrJamesThe3rd/offertory/internal/importer"
	"github.com/MrJamesThe3rd/offertory/internal/ledger"
	ledgerStore "github.com/MrJamesThe3rd/offertory/internal/ledger/store"
	"github.com/MrJamesThe3rd/offertory/internal/matching"
	"github.com/MrJamesThe3rd/offertory/internal/metrics"
	"github.com/MrJamesThe3rd/offertory/internal/receipt"
	receiptStore "github.com/MrJamesThe3rd/offertory/internal/receipt/store"
	"github.com/MrJamesThe3rd/offertory/internal/reconcile"
	reconcileStore "github.com/MrJamesThe3rd/offertory/internal/reconcile/store"
	"github.com/MrJamesThe3rd/offertory/internal/storage"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("failed to load .env", "error", err)
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	loc, err := cfg.Location()
	if err != nil {
		slog.Error("invalid timezone", "error", err)
		os.Exit(1)
	}

	db, err := database.New(context.Background(), cfg.DatabaseOptions())
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		slog.Error("failed to migrate database", "error", err)
		os.Exit(1)
	}

	var (
		ledgerService  = ledger.NewService(ledgerStore.New(db, loc))
		receiptService = receipt.NewService(receiptStore.New(db))
		importService  = importer.NewService(loc, ledgerService)
		engine         = reconcile.NewEngine(ledgerService, receiptService, reconcileStore.New(db), matching.NewMatcher(loc))
		signer         = storage.NewSigner(cfg.Storage.BaseURL, cfg.Storage.SigningKey, cfg.Storage.URLTTL)
		authenticator  = auth.New(cfg.Auth.Secret, cfg.Auth.Issuer)
	)

	var (
		activityH = activityHandler.NewHandler(engine, receiptService, signer, loc)
		receiptH  = receiptHandler.NewHandler(engine, receiptService, signer)
		ledgerH   = ledgerHandler.NewHandler(engine, importService, loc)
	)

	opts := offertoryHttp.Options{
		Timeout:        cfg.Server.Timeout,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		Auth:           authenticator.Middleware,
		Files:          signer.FileServer(storage.DirFS(cfg.Storage.Dir)),
	}

	if cfg.Metrics.Enabled {
		if err := metrics.Register(prometheus.DefaultRegisterer); err != nil {
			slog.Error("failed to register metrics", "error", err)
			os.Exit(1)
		}

		opts.Metrics = metrics.Handler()
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.App.Port),
		Handler:           offertoryHttp.New(opts, activityH, receiptH, ledgerH),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.Timeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown failed", "error", err)
		}
	}()

	slog.Info("starting server", "app", cfg.App.Name, "addr", srv.Addr, "timezone", loc.String())

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}
