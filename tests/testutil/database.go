package testutil

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/dvukovic/teamline-api/internal/database"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// SetupTestDB starts a postgres container, runs migrations and returns a
// connected DB. The container is terminated when the test finishes.
func SetupTestDB(t *testing.T) *database.DB {
	t.Helper()

	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "postgres:16-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "test",
			"POSTGRES_PASSWORD": "test",
			"POSTGRES_DB":       "teamline_test",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)

	host, err := container.Host(ctx)
	require.NoError(t, err)

	port, err := container.MappedPort(ctx, "5432")
	require.NoError(t, err)

	dsn := fmt.Sprintf("postgres://test:test@%s:%s/teamline_test?sslmode=disable", host, port.Port())

	db, err := database.New(ctx, dsn)
	require.NoError(t, err)

	require.NoError(t, db.Migrate(ctx))

	t.Cleanup(func() {
		db.Close()
		_ = container.Terminate(context.Background())
	})

	return db
}

// CleanTables truncates all application tables between tests
func CleanTables(t *testing.T, db *database.DB) {
	t.Helper()

	tables := []string{
		"team_invitations",
		"projects",
		"team_members",
		"teams",
		"users",
	}

	for _, table := range tables {
		_, err := db.Pool.Exec(context.Background(), "TRUNCATE TABLE "+table+" CASCADE")
		require.NoError(t, err)
	}
}
