package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "go.uber.org/automaxprocs"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"go-user-admin/internal/core/auth"
	"go-user-admin/internal/core/cache"
	"go-user-admin/internal/core/config"
	"go-user-admin/internal/core/database"
	"go-user-admin/internal/core/logger"
	"go-user-admin/internal/core/server"
	"go-user-admin/internal/domain"
	"go-user-admin/internal/service"
	"go-user-admin/internal/store"
	"go-user-admin/internal/transport/http/router"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load(os.Getenv("CONFIG_PATH"))

	var log *zap.Logger
	var cleanup func()
	if cfg.Log.File != "" {
		log, cleanup = logger.NewWithRotate(cfg.Log.Level, cfg.Log.JSON,
			cfg.Log.File, cfg.Log.MaxSizeMB, cfg.Log.MaxBackups, cfg.Log.MaxAgeDays, cfg.Log.Compress)
	} else {
		log, cleanup = logger.New(cfg.Log.Level, cfg.Log.JSON)
	}
	defer cleanup()

	st := mustOpenStore(cfg, log)
	log.Info("user store ready", zap.String("driver", storeDriver(cfg)))

	// JWT
	jwter := &auth.JWTer{
		Secret:   []byte(cfg.JWT.Secret),
		Issuer:   cfg.JWT.Issuer,
		Audience: cfg.JWT.Audience,
		TTL:      time.Duration(cfg.JWT.AccessTokenTTLMin) * time.Minute,
	}

	svc := service.NewUserService(st, log)
	if cfg.Redis.Addr != "" {
		svc = svc.WithCache(cache.New(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB),
			time.Duration(cfg.Redis.UserTTLSec)*time.Second)
		log.Info("redis cache enabled", zap.String("addr", cfg.Redis.Addr))
	}

	r := router.NewAPIEngine(log, svc, jwter)

	// HTTP Server
	addr := server.Addr(cfg.App.HTTP.Host, cfg.App.HTTP.Port)
	srv := server.BuildServer(
		addr, r,
		time.Duration(cfg.App.HTTP.ReadTimeoutSec)*time.Second,
		time.Duration(cfg.App.HTTP.WriteTimeoutSec)*time.Second,
		time.Duration(cfg.App.HTTP.IdleTimeoutSec)*time.Second,
	)

	host4human := cfg.App.HTTP.Host
	if host4human == "" || host4human == "0.0.0.0" {
		host4human = "127.0.0.1"
	}
	baseURL := "http://" + host4human + ":" + fmt.Sprint(cfg.App.HTTP.Port)
	log.Info("user api starting",
		zap.String("addr", addr),
		zap.String("open", baseURL),
		zap.String("health", baseURL+"/health"),
		zap.String("api_v1", baseURL+"/api/v1/users"),
	)

	// 异步启动
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("user api start FAILED", zap.Error(err))
		}
	}()
	log.Info("user api started SUCCESS")

	// 优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(ctx)
	log.Info("user api stopped gracefully")
}

func storeDriver(cfg *config.Config) string {
	if cfg.Store.Driver == "" {
		return "memory"
	}
	return cfg.Store.Driver
}

func mustOpenStore(cfg *config.Config, l *zap.Logger) domain.UserStore {
	switch storeDriver(cfg) {
	case "memory":
		return store.NewMemory()
	case "mysql", "postgres":
		db, err := database.NewGorm(database.Opts{
			Driver:             cfg.Store.Driver,
			DSN:                cfg.Store.DSN,
			Username:           cfg.Store.Username,
			Password:           cfg.Store.Password,
			MaxOpenConns:       cfg.Store.MaxOpenConns,
			MaxIdleConns:       cfg.Store.MaxIdleConns,
			ConnMaxLifetimeMin: cfg.Store.ConnMaxLifetimeMin,
			LogLevel:           cfg.Store.LogLevel,
		})
		if err != nil {
			l.Fatal("db open", zap.Error(err))
		}
		st, err := store.NewGormStore(db, cfg.Store.AutoMigrate)
		if err != nil {
			l.Fatal("store init", zap.Error(err))
		}
		return st
	default:
		l.Fatal("unknown store driver", zap.String("driver", cfg.Store.Driver))
		return nil
	}
}
