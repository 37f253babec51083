package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/tinoosan/tripledger/internal/httpapi"
	"github.com/tinoosan/tripledger/internal/ingest"
	"github.com/tinoosan/tripledger/internal/ledger"
	"github.com/tinoosan/tripledger/internal/storage/memory"
	pgstore "github.com/tinoosan/tripledger/internal/storage/postgres"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Logger (slog to stdout). Level via LOG_LEVEL; format via LOG_FORMAT (json|text, default json)
	logger := buildLoggerFromEnv()
	slog.SetDefault(logger)

	// Optional extraction collaborator; endpoints return 503 when unset.
	var extractor ingest.Extractor
	var narrator ingest.Summarizer
	if client := ingest.FromEnv(); client != nil {
		extractor = client
		narrator = ingest.NewMemo(client)
		logger.Info("extractor configured", "url", os.Getenv("EXTRACTOR_URL"))
	}

	var store httpapi.Store
	var closeFn func()

	if dsn := strings.TrimSpace(os.Getenv("DATABASE_URL")); dsn != "" {
		// Use Postgres store when DATABASE_URL is provided
		pg, err := pgstore.Open(ctx, dsn)
		if err != nil {
			logger.Error("failed to connect to postgres", "err", err)
			os.Exit(1)
		}
		closeFn = func() { pg.Close() }
		if devSeedEnabled() {
			trip, users, err := pg.SeedDev(ctx)
			if err != nil {
				logger.Error("dev seed failed", "err", err)
			} else {
				logDevSeed(logger, "postgres", trip, users)
				printDevSeedBanner(trip, users)
			}
		}
		store = pg
		logger.Info("storage backend: postgres")
	} else {
		// Default to in-memory store with a small dev seed
		mem := memory.New()
		now := time.Now().UTC()
		ana := ledger.User{ID: uuid.New(), Handle: "ana", Name: "Ana", PasswordHash: "!dev", CreatedAt: now}
		beto := ledger.User{ID: uuid.New(), Handle: "beto", Name: "Beto", PasswordHash: "!dev", CreatedAt: now}
		mem.SeedUser(ana)
		mem.SeedUser(beto)
		trip := ledger.Trip{ID: uuid.New(), Name: "Demo Trip", Currency: "COP", CreatedBy: ana.ID, CreatedAt: now}
		mem.SeedTrip(trip, []uuid.UUID{ana.ID, beto.ID})
		logDevSeed(logger, "memory", trip, []ledger.User{ana, beto})
		printDevSeedBanner(trip, []ledger.User{ana, beto})
		store = mem
		logger.Info("storage backend: memory")
	}

	srv := &http.Server{
		Addr:              listenAddr(),
		Handler:           httpapi.New(store, extractor, narrator, logger).Handler(),
		ReadTimeout:       5 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("trip ledger service listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctxShutdown); err != nil {
			logger.Error("server shutdown error", "err", err)
		}
	case err := <-errCh:
		logger.Error("server error", "err", err)
	}
	if closeFn != nil {
		closeFn()
	}
}

func listenAddr() string {
	if addr := strings.TrimSpace(os.Getenv("ADDR")); addr != "" {
		return addr
	}
	return ":8080"
}

func devSeedEnabled() bool {
	dev := strings.ToLower(strings.TrimSpace(os.Getenv("DEV_SEED")))
	return dev == "1" || dev == "true" || dev == "yes"
}

// logDevSeed emits structured logs with useful IDs
func logDevSeed(l *slog.Logger, backend string, trip ledger.Trip, users []ledger.User) {
	ids := map[string]string{"trip_id": trip.ID.String()}
	for _, u := range users {
		ids[u.Name+"_user_id"] = u.ID.String()
	}
	l.Info("DEV seed ("+backend+")", "ids", ids)
}

// printDevSeedBanner prints a simple banner to stdout for easy copy/paste of IDs
func printDevSeedBanner(trip ledger.Trip, users []ledger.User) {
	fmt.Println("==================== DEV SEED ====================")
	fmt.Printf("trip_id: %s (%s)\n", trip.ID.String(), trip.Currency)
	for _, u := range users {
		fmt.Printf("%s_user_id: %s\n", strings.ToLower(u.Name), u.ID.String())
	}
	fmt.Println("==================================================")
}

// parseLogLevel maps env values to slog.Leveler
func parseLogLevel(s string) slog.Leveler {
	switch s {
	case "DEBUG", "debug":
		return slog.LevelDebug
	case "WARN", "WARNING", "warn", "warning":
		return slog.LevelWarn
	case "ERROR", "ERR", "error", "err":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func buildLoggerFromEnv() *slog.Logger {
	level := parseLogLevel(os.Getenv("LOG_LEVEL"))
	format := strings.ToLower(strings.TrimSpace(os.Getenv("LOG_FORMAT")))
	if format == "text" {
		return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	}
	// default to JSON
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
}
