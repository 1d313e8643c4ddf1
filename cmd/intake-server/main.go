package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/damjan1996/scanintake/internal/config"
	"github.com/damjan1996/scanintake/internal/db"
	"github.com/damjan1996/scanintake/internal/httpapi"
	"github.com/damjan1996/scanintake/internal/intake/classify"
	"github.com/damjan1996/scanintake/internal/intake/service"
	"github.com/damjan1996/scanintake/internal/intake/store"
	"github.com/damjan1996/scanintake/internal/intake/store/memory"
	"github.com/damjan1996/scanintake/internal/intake/store/postgres"
	"github.com/damjan1996/scanintake/internal/intake/store/sqlite"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg := config.FromEnv()
	logger := log.New(os.Stdout, "intake-server ", log.LstdFlags|log.LUTC)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	identities, sessions, scanEvents, cleanup, err := buildStores(ctx, cfg, logger)
	if err != nil {
		logger.Fatalf("store init: %v", err)
	}
	defer cleanup()

	policy, err := classify.ParseSlotPolicy(cfg.DelimitedSlots)
	if err != nil {
		logger.Fatalf("bad INTAKE_DELIMITED_SLOTS: %v", err)
	}
	classifier := classify.New(policy)

	detector := service.NewDuplicateDetector(scanEvents, service.DetectorConfig{
		ShortWindow:   time.Duration(cfg.ShortWindowMinutes) * time.Minute,
		ConfirmWindow: time.Duration(cfg.ConfirmWindowMinutes) * time.Minute,
		Retention:     time.Duration(cfg.IndexRetentionHours) * time.Hour,
		SweepInterval: time.Duration(cfg.SweepIntervalMinutes) * time.Minute,
	}, logger)
	detector.Start(ctx)
	defer detector.Stop()

	feed := service.NewScanFeed(cfg.FeedBuffer, logger)
	defer feed.Close()

	// Single subscriber for the accepted-scan feed.  The dev host just
	// logs; a production host hands these to the station display.
	go func() {
		for ev := range feed.Events() {
			logger.Printf("feed: scan %s (%s) %q", ev.Event.ID, ev.Event.Format, ev.Payload.Display())
		}
	}()

	sessionSvc := service.NewSessionService(identities, sessions, logger)
	scanSvc := service.NewScanService(sessions, scanEvents, detector, classifier, feed, logger)

	srv := httpapi.NewServer(httpapi.Dependencies{
		Logger:         logger,
		Addr:           cfg.HTTPAddr,
		SessionService: sessionSvc,
		ScanService:    scanSvc,
	})

	go func() {
		logger.Printf("listening on %s (store=%s)", cfg.HTTPAddr, cfg.StoreDriver)
		if err := srv.Start(); err != nil {
			logger.Printf("server error: %v", err)
			stop()
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
}

// buildStores wires the configured store driver and returns the three
// store interfaces plus a cleanup for whatever was opened.
func buildStores(ctx context.Context, cfg config.Config, logger *log.Logger) (
	store.IdentityStore, store.SessionStore, store.ScanEventStore, func(), error,
) {
	switch cfg.StoreDriver {
	case "memory":
		ids := make([]store.IdentityRecord, 0, len(cfg.SeedBadgeCodes))
		for _, code := range cfg.SeedBadgeCodes {
			ids = append(ids, store.IdentityRecord{
				ID:        code,
				BadgeCode: code,
				Name:      "Operator " + code,
				Active:    true,
			})
		}
		return memory.NewIdentityStore(ids), memory.NewSessionStore(), memory.NewScanEventStore(), func() {}, nil

	case "postgres":
		conn, err := postgres.Open(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, nil, nil, nil, err
		}
		cleanup := func() { _ = conn.Close() }
		return postgres.NewIdentityStore(conn), postgres.NewSessionStore(conn), postgres.NewScanEventStore(conn), cleanup, nil

	default: // sqlite
		conn, err := db.Open(ctx, db.Config{Path: cfg.DBPath, Env: cfg.Env})
		if err != nil {
			return nil, nil, nil, nil, err
		}
		if cfg.Env == "dev" {
			if err := db.SeedDev(ctx, conn, db.SeedDevOptions{BadgeCodes: cfg.SeedBadgeCodes}); err != nil {
				logger.Printf("dev seed: %v", err)
			}
		}
		writer := db.NewWorker(conn)
		cleanup := func() {
			writer.Close()
			_ = conn.Close()
		}
		return sqlite.NewIdentityStore(conn), sqlite.NewSessionStore(conn, writer), sqlite.NewScanEventStore(conn, writer), cleanup, nil
	}
}
