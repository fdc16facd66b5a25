package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/dvukovic/teamline-api/internal/config"
	"github.com/dvukovic/teamline-api/internal/database"
	"github.com/dvukovic/teamline-api/internal/models"
)

// Grants the super_admin global role to an existing user. There is no
// HTTP endpoint for this on purpose; it is an operator action.
func main() {
	if len(os.Args) != 2 {
		fmt.Fprintln(os.Stderr, "usage: promote-admin <email>")
		os.Exit(1)
	}

	email := strings.ToLower(strings.TrimSpace(os.Args[1]))

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

	result, err := db.Pool.Exec(ctx, `
		UPDATE users SET global_role = $1, updated_at = NOW()
		WHERE LOWER(email) = $2
	`, models.GlobalRoleSuperAdmin, email)
	if err != nil {
		log.Fatalf("Failed to update user: %v", err)
	}

	if result.RowsAffected() == 0 {
		log.Fatalf("No user found with email %s", email)
	}

	fmt.Printf("%s is now a super admin\n", email)
}
