package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"casedesk/internal/api"
	"casedesk/internal/apiclient"
	"casedesk/internal/app"
	"casedesk/internal/config"
	"casedesk/internal/credstore"
	"casedesk/internal/db"
	"casedesk/internal/ops"
	"casedesk/internal/rating"
	"casedesk/internal/version"
)

const purgeInterval = time.Hour

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	target := cfg.ClientStorePath
	if cfg.ClientStoreDriver != "sqlite" {
		target = cfg.ClientStoreDSN
	}
	sqdb, err := db.Open(cfg.ClientStoreDriver, target, cfg.DBMaxOpenConns, cfg.DBMaxIdleConns, cfg.DBConnMaxLifetime)
	if err != nil {
		log.Fatalf("open client store: %v", err)
	}
	defer sqdb.Close()
	if err := db.ApplyMigrationFile(sqdb, cfg.MigrationPath); err != nil {
		log.Fatalf("migration: %v", err)
	}
	clients := credstore.NewSQL(sqdb, cfg.ClientStoreDriver, cfg.SessionEncryptKey)

	scale, err := rating.NewScale(cfg.RatingScaleMax)
	if err != nil {
		log.Fatalf("rating scale: %v", err)
	}
	upstream := apiclient.New(cfg.APIBaseURL, cfg.APITimeout())
	reg := app.NewRegistry(upstream, clients.ForClient, app.Options{
		PageSize:  cfg.PageSize,
		Scale:     scale,
		Images:    ops.ImageLimits{MaxBytes: cfg.MaxImageBytes, MaxCount: cfg.MaxImages},
		QueueSize: cfg.NotifyQueueSize,
		Idle:      cfg.SessionIdleDuration(),
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go app.RunJanitor(ctx, clients, purgeInterval, cfg.ClientLifetime())

	r := api.NewRouter(cfg, reg, map[string]api.Pinger{"client_store": clients})
	hsrv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           r,
		ReadTimeout:       time.Duration(cfg.HTTPReadTimeoutSec) * time.Second,
		ReadHeaderTimeout: time.Duration(cfg.HTTPReadHeaderTimeoutSec) * time.Second,
		WriteTimeout:      time.Duration(cfg.HTTPWriteTimeoutSec) * time.Second,
		IdleTimeout:       time.Duration(cfg.HTTPIdleTimeoutSec) * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := hsrv.Shutdown(shutdownCtx); err != nil {
			log.Printf("shutdown: %v", err)
		}
	}()

	log.Printf("casedesk %s listening on %s upstream=%s scale=%d", version.Current(), cfg.ListenAddr, upstream.BaseURL(), scale.Max)
	if err := hsrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("server: %v", err)
	}
}
