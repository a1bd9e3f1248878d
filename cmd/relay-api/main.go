package main

import (
	"context"
	"net/http"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Saurabh272/HomeSharp-sub002/internal/config"
	"github.com/Saurabh272/HomeSharp-sub002/internal/destination"
	"github.com/Saurabh272/HomeSharp-sub002/internal/dispatch"
	"github.com/Saurabh272/HomeSharp-sub002/internal/enrich"
	"github.com/Saurabh272/HomeSharp-sub002/internal/identity"
	"github.com/Saurabh272/HomeSharp-sub002/internal/logging"
	"github.com/Saurabh272/HomeSharp-sub002/internal/metrics"
	"github.com/Saurabh272/HomeSharp-sub002/internal/profile"
	"github.com/Saurabh272/HomeSharp-sub002/internal/savedsearch"
	spg "github.com/Saurabh272/HomeSharp-sub002/internal/storage/postgres"
	transport "github.com/Saurabh272/HomeSharp-sub002/internal/transport/http"
	"github.com/Saurabh272/HomeSharp-sub002/internal/version"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		l := logging.Logger()
		l.Fatal().Err(err).Msg("config")
	}

	logging.Init(logging.Config{Level: "info", Format: "json"})
	log := logging.Logger()
	log.Info().Str("version", version.Version).Str("environment", cfg.Environment).Msg("starting")

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	db, err := spg.Connect(ctx, cfg.Postgres.DSN)
	if err != nil {
		log.Fatal().Err(err).Msg("db connect")
	}
	defer db.Close()

	mig := filepath.Join("migrations", "0001_init.sql")
	if err := db.RunMigration(ctx, mig); err != nil {
		log.Fatal().Err(err).Msg("migration")
	}
	log.Info().Msg("db ready")

	var profiles identity.ProfileStore = profile.NewStore(db.Pool)
	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password})
		profiles = profile.NewCachedStore(profiles, rdb, cfg.Redis.TTL, log)
		log.Info().Str("addr", cfg.Redis.Addr).Msg("profile cache enabled")
	}

	m := metrics.New()
	resolver := identity.NewResolver(profiles, log)
	enricher := enrich.New(cfg.Geo.Path, version.Version, log)
	defer enricher.Close()

	var adapters []destination.Adapter
	if cfg.GA.Enabled {
		adapters = append(adapters, destination.NewGA(cfg.GA, cfg.Dispatch.Timeout))
	}
	if cfg.CleverTap.Enabled {
		adapters = append(adapters, destination.NewCleverTap(cfg.CleverTap, cfg.Dispatch.Timeout))
	}
	if cfg.Facebook.Enabled {
		adapters = append(adapters, destination.NewFacebook(cfg.Facebook, cfg.Dispatch.Timeout, profiles, cfg.Production(), log))
	}
	log.Info().Int("destinations", len(adapters)).Msg("fan-out configured")

	dispatcher := dispatch.New(adapters, resolver, spg.NewTrackerStore(db), m)

	server := &transport.Server{
		Cfg:      cfg,
		Enricher: enricher,
		Pipeline: dispatcher,
		Searches: savedsearch.NewStore(db.Pool),
		DB:       db,
		Metrics:  m.Handler(),
		Log:      log,
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           server.Router(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info().Str("addr", srv.Addr).Msg("listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("http server")
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel2 := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel2()
	_ = srv.Shutdown(shutdownCtx)
	log.Info().Msg("stopped")
}
