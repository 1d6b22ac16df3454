// Command stats-snapshot prints the current dashboard snapshot as JSON using
// the same configuration as the API server.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/weiwei-tsao/complaint-portal/internal/platform/config"
	"github.com/weiwei-tsao/complaint-portal/internal/platform/logger"
	"github.com/weiwei-tsao/complaint-portal/internal/platform/store"
)

func main() {
	timeout := flag.Duration("timeout", 30*time.Second, "overall deadline for the snapshot")
	verbose := flag.Bool("v", false, "log connection details to stderr")
	flag.Parse()

	_ = godotenv.Load(".env.local", ".env")

	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("config load: %v", err)
	}

	log := logger.Discard()
	if *verbose {
		log = logger.New(logger.Options{Level: "debug", Format: cfg.LogFormat})
		log.SetOutput(os.Stderr)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	backend, err := store.Open(ctx, cfg, log)
	if err != nil {
		logrus.Fatalf("store open: %v", err)
	}
	defer backend.Close()

	svc, err := store.NewStatsService(cfg, backend, log)
	if err != nil {
		logrus.Fatalf("stats service: %v", err)
	}

	snap, err := svc.Snapshot(ctx)
	if err != nil {
		logrus.Fatalf("snapshot: %v", err)
	}

	out, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		logrus.Fatalf("marshal: %v", err)
	}
	fmt.Println(string(out))
}
