package store

import (
	"context"
	"fmt"
	"testing"
	"time"

	"shoestore/internal/models"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// setupTestStore starts a throwaway Postgres, applies the migrations and
// returns a store bound to it.
func setupTestStore(t *testing.T) *Store {
	t.Helper()
	if testing.Short() {
		t.Skip("Integration test - requires docker")
	}

	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "postgres:14-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "testuser",
			"POSTGRES_PASSWORD": "testpass",
			"POSTGRES_DB":       "testdb",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}

	postgres, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err, "start postgres container")
	t.Cleanup(func() {
		if err := postgres.Terminate(ctx); err != nil {
			t.Logf("Failed to terminate container: %v", err)
		}
	})

	host, err := postgres.Host(ctx)
	require.NoError(t, err)
	port, err := postgres.MappedPort(ctx, "5432")
	require.NoError(t, err)

	dsn := fmt.Sprintf("postgres://testuser:testpass@%s:%s/testdb?sslmode=disable", host, port.Port())
	db, err := sqlx.Connect("postgres", dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	_, err = Migrate(ctx, db, "up")
	require.NoError(t, err)

	return New(db)
}

type fixture struct {
	manufacturerA, manufacturerB int64
	supplier                     int64
	category                     int64
	client, otherClient, manager *models.User
}

func seedFixture(t *testing.T, s *Store) fixture {
	t.Helper()
	ctx := context.Background()

	var f fixture
	var err error
	f.manufacturerA, err = s.CreateManufacturer(ctx, "Kari")
	require.NoError(t, err)
	f.manufacturerB, err = s.CreateManufacturer(ctx, "Alessio Nesca")
	require.NoError(t, err)
	f.supplier, err = s.CreateSupplier(ctx, "Obuv Trade")
	require.NoError(t, err)
	f.category, err = s.CreateCategory(ctx, "Women's shoes")
	require.NoError(t, err)

	f.client = seedUser(t, s, "client1", models.RoleClient)
	f.otherClient = seedUser(t, s, "client2", models.RoleClient)
	f.manager = seedUser(t, s, "manager1", models.RoleManager)
	return f
}

func seedUser(t *testing.T, s *Store, login, role string) *models.User {
	t.Helper()
	u := &models.User{Login: login, PasswordHash: "x", FullName: login + " name"}
	require.NoError(t, s.CreateUser(context.Background(), u, role))
	return u
}

func seedProduct(t *testing.T, s *Store, p models.Product) *models.Product {
	t.Helper()
	if p.Name == "" {
		p.Name = p.Article
	}
	require.NoError(t, s.CreateProduct(context.Background(), &p))
	return &p
}

func strPtr(s string) *string { return &s }
