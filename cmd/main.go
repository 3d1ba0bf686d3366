package main

import (
	"log"

	"github.com/reportmill/internal/api"
	"github.com/reportmill/internal/auth"
	"github.com/reportmill/internal/config"
	"github.com/reportmill/internal/database"
	"github.com/reportmill/internal/mailer"
	"github.com/reportmill/internal/notify"
	"github.com/reportmill/internal/report"
	"github.com/reportmill/internal/scheduler"
	"github.com/reportmill/internal/tracker"
)

func main() {
	// Initialize configuration
	cfg := config.LoadConfig()
	auth.SetSecret(cfg.Auth.JWTSecret)

	// Initialize database
	if err := database.Initialize(cfg.Database.Path); err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer database.Close()

	store := database.NewStore(database.GetDB())

	// Initialize issue tracker client
	trackerClient, err := tracker.NewClient(cfg.Jira.BaseURL, cfg.Jira.Email, cfg.Jira.APIToken)
	if err != nil {
		log.Fatalf("Failed to create issue tracker client: %v", err)
	}

	builder := report.NewBuilder(trackerClient)
	gateway := mailer.New(cfg.Email)
	notifier := notify.NewSlackNotifier(cfg.Notify.SlackToken, cfg.Notify.SlackChannel)

	// Initialize scheduler
	sched, err := scheduler.New(store, builder, trackerClient, gateway, schedulerNotifier(notifier))
	if err != nil {
		log.Fatalf("Failed to create scheduler: %v", err)
	}
	defer sched.StopAll()

	// Arm every enabled report; a failed preflight leaves the API up so the
	// operator can fix configuration and start the scheduler by hand.
	if err := sched.StartAll(); err != nil {
		log.Printf("Warning: scheduler not started: %v", err)
	}

	// Initialize and start API server
	server := api.NewServer(sched, trackerClient, gateway)
	if err := server.Start(cfg.Server.Port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

// schedulerNotifier keeps a nil *SlackNotifier from becoming a non-nil
// interface value inside the scheduler.
func schedulerNotifier(n *notify.SlackNotifier) scheduler.RunNotifier {
	if n == nil {
		return nil
	}
	return n
}
