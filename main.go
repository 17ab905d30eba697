package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "time/tzdata"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/usv-planning/matchboard/internal/config"
	dbpkg "github.com/usv-planning/matchboard/internal/db"
	"github.com/usv-planning/matchboard/internal/live"
	"github.com/usv-planning/matchboard/internal/logger"
	"github.com/usv-planning/matchboard/internal/matches"
	"github.com/usv-planning/matchboard/internal/proxy"
	"github.com/usv-planning/matchboard/internal/refresh"
	"github.com/usv-planning/matchboard/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("config: %v", err)
	}
	loc, err := cfg.Location()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	l, err := logger.New(cfg.Debug)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = l.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	remote, err := newBackend(ctx, cfg, loc)
	if err != nil {
		log.Fatalf("store: %v", err)
	}

	// Remote backends are mirrored into a local SQLite cache so the board
	// still renders while the remote is unreachable.
	st := remote
	var cache *store.Cache
	if cfg.Backend != config.BackendMemory {
		d, err := dbpkg.OpenMigrated(cfg.CachePath)
		if err != nil {
			log.Fatalf("cache: %v", err)
		}
		if sqlDB, err := d.DB(); err == nil {
			defer sqlDB.Close()
		}
		cache = store.NewCache(d, "")
		st = store.NewMirrored(remote, cache, l)
	}

	repo := matches.NewRepository(st, loc, l)
	hub := live.NewHub(l)

	g, gctx := errgroup.WithContext(ctx)

	watcher := refresh.New(remote, cfg.PollInterval, l, func(v string) {
		l.Info("upstream change", zap.String("version", v))
		hub.Refresh(gctx, repo)
	})
	repo.OnChange(func() {
		go func() {
			if v, err := remote.Version(gctx); err == nil {
				watcher.Seen(v)
			}
			hub.Refresh(gctx, repo)
		}()
	})

	// HTTP
	if !cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(logger.Gin(l), gin.Recovery())
	// Default trusts only loopback addresses; override via TRUSTED_PROXIES
	if err := r.SetTrustedProxies(cfg.TrustedProxies); err != nil {
		log.Fatalf("trusted proxies: %v", err)
	}

	matches.RegisterRoutes(r, repo)
	proxy.Register(r, repo, cfg.CORSOrigins, l)
	r.GET("/ws/week", hub.ServeWeek(repo))
	r.GET("/healthz", func(c *gin.Context) {
		body := gin.H{"status": "ok", "backend": cfg.Backend}
		if cache != nil {
			if at, err := cache.UpdatedAt(c.Request.Context()); err == nil {
				body["cachedAt"] = at
			}
		}
		c.JSON(http.StatusOK, body)
	})

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g.Go(func() error {
		l.Info("listening", zap.String("addr", cfg.Addr), zap.String("backend", cfg.Backend))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	g.Go(func() error { return hub.Run(gctx) })
	g.Go(func() error { return watcher.Run(gctx) })

	if err := g.Wait(); err != nil {
		l.Fatal("server exited", zap.Error(err))
	}
	l.Info("stopped")
}

func newBackend(ctx context.Context, cfg *config.Config, loc *time.Location) (store.Store, error) {
	switch cfg.Backend {
	case config.BackendGitHub:
		return store.NewGitHub(store.GitHubConfig{
			Token:    cfg.GitHubToken,
			Repo:     cfg.GitHubRepo,
			Path:     cfg.GitHubFile,
			Branch:   cfg.GitHubBranch,
			BaseURL:  cfg.GitHubAPIURL,
			Timeout:  cfg.HTTPTimeout,
			Location: loc,
		}), nil
	case config.BackendJSONBin:
		return store.NewJSONBin(store.JSONBinConfig{
			BinID:     cfg.JSONBinID,
			MasterKey: cfg.JSONBinKey,
			BaseURL:   cfg.JSONBinURL,
			Timeout:   cfg.HTTPTimeout,
		}), nil
	case config.BackendS3:
		return store.NewS3(ctx, store.S3Config{
			AccountID:       cfg.S3AccountID,
			Endpoint:        cfg.S3Endpoint,
			Region:          cfg.S3Region,
			AccessKeyID:     cfg.S3AccessKeyID,
			SecretAccessKey: cfg.S3SecretAccessKey,
			Bucket:          cfg.S3Bucket,
			Key:             cfg.S3Key,
		})
	case config.BackendProxy:
		return store.NewProxy(cfg.ProxyURL, cfg.HTTPTimeout), nil
	case config.BackendMemory:
		return store.NewMemory(nil), nil
	}
	return nil, fmt.Errorf("unknown backend %q", cfg.Backend)
}
