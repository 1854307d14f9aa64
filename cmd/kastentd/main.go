package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/kastent/kastentd/internal/api"
	"github.com/kastent/kastentd/internal/config"
	"github.com/kastent/kastentd/internal/db"
	"github.com/kastent/kastentd/internal/hub"
	"github.com/kastent/kastentd/internal/kaspad"
	"github.com/kastent/kastentd/internal/mail"
	"github.com/kastent/kastentd/internal/tent"
	"github.com/kastent/kastentd/internal/verify"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Connect to database
	database, err := db.New(context.Background(), cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close()

	// Run migrations
	if err := database.RunMigrations(context.Background()); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	// Ledger client with failover
	ledger := kaspad.New(cfg.KaspadRPCURL, cfg.KaspadRPCFallbackURL, cfg.KaspaRESTURL)

	// Optional outbound invites
	var mailer tent.Mailer
	if cfg.SMTPHost != "" {
		mailer = mail.NewSMTP(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPFrom, cfg.SMTPUser, cfg.SMTPPass)
	}

	// Services
	broadcast := hub.New()
	tents := tent.NewService(db.NewTentStore(database), broadcast, mailer)
	verifier := verify.NewService(ledger)

	// Start API server
	apiServer := api.New(cfg, tents, verifier, ledger, broadcast)
	go func() {
		if err := apiServer.Start(); err != nil {
			log.Printf("API server error: %v", err)
		}
	}()

	// Wait for signal to stop
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	log.Println("Shutting down...")
}
