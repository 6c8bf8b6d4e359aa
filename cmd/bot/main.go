package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"slothsafe/internal/app/bootstrap"
)

// Bot process entrypoint.
// Data flow:
// 1) Load config and open the vote ledger (an unreadable ledger stops here).
// 2) Build app wiring (ports + adapters + use cases).
// 3) Serve Telegram updates and the HTTP API until interrupted.
func main() {
	configPath := flag.String("config", "", "path to the YAML config file")
	flag.Parse()

	log.Println("slothsafe bot starting")
	app, err := bootstrap.BuildBot(*configPath)
	if err != nil {
		log.Fatalf("bootstrap bot failed: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	runErr := app.Run(ctx)
	stop()

	if err := app.Close(); err != nil {
		log.Printf("bot shutdown close failed: %v", err)
	}
	if runErr != nil {
		log.Fatalf("slothsafe bot stopped with error: %v", runErr)
	}
}
