package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"diversifia/ordersync/internal/app"
	"diversifia/ordersync/internal/config"
	"diversifia/ordersync/internal/constants"
	"diversifia/ordersync/internal/logging"
)

// syncnow runs a single draft order pass and exits. Exit status is 1 on failure.
func main() {
	envFile := flag.String("env", ".env", "optional env file")
	flag.Parse()

	cfg, err := config.Load(*envFile)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if err := logging.Init(cfg.AppEnv); err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer logging.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	deps, err := app.InitDependencies(ctx, cfg, nil)
	if err != nil {
		log.Fatalf("init dependencies: %v", err)
	}
	defer deps.Close()

	result, err := deps.Sync.SyncDrafts(ctx, constants.TriggerCLI)
	if err != nil {
		fmt.Fprintf(os.Stderr, "sync failed: %v\n", err)
		deps.Close()
		logging.Close()
		os.Exit(1)
	}

	fmt.Printf("Imported %d of %d draft orders into %s (skipped: %v)\n",
		result.Imported, result.Drafts, cfg.Sync.DocumentKey, result.Skipped)
}
