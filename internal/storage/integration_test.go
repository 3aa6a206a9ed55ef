//go:build integration

package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/seunghun2/daedaesonson/internal/config"
)

func startPostgres(t *testing.T) config.DatabaseConfig {
	t.Helper()
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:17-alpine",
		postgres.WithDatabase("price_engine_test"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Logf("Failed to terminate postgres container: %v", err)
		}
	})

	dsn, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	return config.DatabaseConfig{
		Driver:   "postgres",
		Postgres: config.PostgresConfig{DSN: dsn, MaxOpenConns: 5},
	}
}

func TestPostgres_PriceTableRoundTrip(t *testing.T) {
	ctx := context.Background()
	db, err := Open(ctx, startPostgres(t))
	require.NoError(t, err)
	defer db.Close()

	applied, err := Migrate(ctx, db)
	require.NoError(t, err)
	assert.Len(t, applied, 2)

	repos := NewRepositories(db)
	want := sampleTable("F001")
	require.NoError(t, repos.PriceTables.Replace(ctx, want))
	require.NoError(t, repos.PriceTables.Replace(ctx, want))

	got, err := repos.PriceTables.Get(ctx, "F001")
	require.NoError(t, err)
	assert.Equal(t, want, got)

	list, err := repos.PriceTables.ListFacilities(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, 3, list[0].ItemCount)
}

func TestPostgres_StructuredItems(t *testing.T) {
	ctx := context.Background()
	db, err := Open(ctx, startPostgres(t))
	require.NoError(t, err)
	defer db.Close()

	_, err = Migrate(ctx, db)
	require.NoError(t, err)

	repo := NewStructuredItemRepository(db)
	table := sampleTable("F009")
	require.NoError(t, repo.Replace(ctx, "F009", table.Categories[0].Items))

	items, err := repo.ListByFacility(ctx, "F009")
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "관리비", items[0].Name)
}
