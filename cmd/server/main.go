package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/weiwei-tsao/complaint-portal/internal/platform/config"
	apirouter "github.com/weiwei-tsao/complaint-portal/internal/platform/http"
	"github.com/weiwei-tsao/complaint-portal/internal/platform/logger"
	"github.com/weiwei-tsao/complaint-portal/internal/platform/store"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	_ = godotenv.Load(".env.local", ".env")

	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("config load: %v", err)
	}

	log := logger.New(logger.Options{Level: cfg.LogLevel, Format: cfg.LogFormat, File: cfg.LogFile})
	gin.SetMode(cfg.GinMode)

	backend, err := store.Open(ctx, cfg, log)
	if err != nil {
		log.Fatalf("store open: %v", err)
	}
	defer func() {
		if err := backend.Close(); err != nil {
			log.WithError(err).Warn("store close")
		}
	}()

	statsService, err := store.NewStatsService(cfg, backend, log)
	if err != nil {
		log.Fatalf("stats service: %v", err)
	}

	router := apirouter.NewRouter(statsService, backend.Pinger, apirouter.Options{
		AllowedOrigins: cfg.AllowedOrigins,
		StatsTimeout:   cfg.StatsTimeout,
		RateLimitRPS:   cfg.RateLimitRPS,
		RateLimitBurst: cfg.RateLimitBurst,
		Logger:         log,
	})

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()
	log.WithFields(logrus.Fields{"port": cfg.Port, "backend": cfg.StoreBackend}).Info("server listening")

	<-ctx.Done()
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("server shutdown")
	}
	log.Info("server exited")
}
