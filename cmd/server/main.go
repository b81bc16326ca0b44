package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"warungpos/internal/backup"
	"warungpos/internal/cache"
	"warungpos/internal/config"
	"warungpos/internal/httpapi"
	"warungpos/internal/sequence"
	"warungpos/internal/service"
	"warungpos/internal/store"
	pgstore "warungpos/internal/store/postgres"
	"warungpos/internal/store/sqlite"
	enginesync "warungpos/internal/sync"
)

func main() {
	cfg := config.Load()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var kv store.KV
	closers := make([]func() error, 0, 2)

	if cfg.DatabaseURL != "" {
		pg, err := pgstore.New(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("postgres unavailable (%v) and DATABASE_URL is set; refusing to start with a local fallback", err)
		}
		kv = pg
		log.Println("store: postgres")
	} else {
		db, err := sqlite.Open(cfg.DataPath)
		if err != nil {
			log.Fatalf("sqlite open %s: %v", cfg.DataPath, err)
		}
		kv = db
		log.Printf("store: sqlite (%s)", cfg.DataPath)
	}
	closers = append(closers, kv.Close)

	st := store.New(kv)
	seq := sequence.New(st)
	bk := backup.New(st)
	engine := enginesync.New(st, bk, nil, cfg.SyncAPIBaseURL, cfg.SyncContentBaseURL)

	cacheStore := cache.CollectionCache(cache.NoopCollectionCache{})
	if cfg.RedisAddr != "" {
		redisCache := cache.NewRedisCollectionCache(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err := redisCache.Ping(ctx); err != nil {
			log.Printf("redis unavailable (%v), using noop cache", err)
		} else {
			cacheStore = redisCache
			closers = append(closers, redisCache.Close)
			log.Println("cache: redis")
		}
	} else {
		log.Println("cache: noop")
	}

	svc := service.New(st, seq, engine, cacheStore, time.Duration(cfg.MenuCacheTTLSeconds)*time.Second)
	auth := httpapi.NewAuthManager(cfg.AuthSecret, time.Duration(cfg.AccessTokenTTLMinutes)*time.Minute, st)
	api := httpapi.New(svc, auth, bk, engine, cfg.AllowedOrigin)

	// Adopt the remote snapshot on startup when sync is configured. A missing
	// remote file or transport failure leaves local data untouched.
	go func() {
		pullCtx, pullCancel := context.WithTimeout(context.Background(), 60*time.Second)
		defer pullCancel()
		if err := engine.Pull(pullCtx); err != nil {
			log.Printf("[sync] WARN: startup pull failed: %v", err)
		}
	}()

	server := &http.Server{
		Addr:              cfg.Address(),
		Handler:           api.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Printf("POS backend listening on %s", cfg.Address())
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 8*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown error: %v", err)
	}

	for _, closeFn := range closers {
		if err := closeFn(); err != nil {
			log.Printf("close error: %v", err)
		}
	}

	log.Println("server stopped")
}
