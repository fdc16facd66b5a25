package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/dvukovic/teamline-api/internal/config"
	"github.com/dvukovic/teamline-api/internal/database"
	"github.com/dvukovic/teamline-api/internal/services"
)

// One-shot sweep for cron use: marks overdue pending invitations as
// expired and prints how many were affected.
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	ctx := context.Background()

	db, err := database.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	svc := services.NewTeamService(db, cfg.InviteTTL)

	n, err := svc.ExpireStale(ctx)
	if err != nil {
		log.Fatalf("Failed to expire invitations: %v", err)
	}

	fmt.Printf("Expired %d stale invitation(s)\n", n)
	os.Exit(0)
}
