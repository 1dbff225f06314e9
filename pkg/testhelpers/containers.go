// Package testhelpers starts the PostgreSQL container shared by integration tests.
package testhelpers

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// PostgresImage is the image started for integration tests.
const PostgresImage = "postgres:16-alpine"

// SalesSchema seeds the "sales" schema: customers is referenced by orders
// through customer_id, and the public schema is left empty.
var SalesSchema = []string{
	`CREATE SCHEMA sales`,
	`CREATE TABLE sales.customers (customer_id integer PRIMARY KEY, name text)`,
	`CREATE TABLE sales.orders (order_id bigint, customer_id integer, amount numeric(10,2), placed_at timestamptz)`,
	`INSERT INTO sales.customers VALUES (10, 'Ada'), (20, 'Grace')`,
	`INSERT INTO sales.orders VALUES (1, 10, 9.50, now()), (2, 10, 12.00, NULL), (3, 20, 9.50, NULL)`,
}

// TestDB holds a shared test database container and connection pool.
type TestDB struct {
	Container *postgres.PostgresContainer
	Pool      *pgxpool.Pool
	ConnStr   string
}

var (
	sharedTestDB     *TestDB
	sharedTestDBOnce sync.Once
	sharedTestDBErr  error
)

// GetTestDB returns a shared PostgreSQL container seeded with SalesSchema.
// The container is created once and reused across all tests in the run.
// Tests must not modify the seeded tables.
func GetTestDB(t *testing.T) *TestDB {
	t.Helper()

	if testing.Short() {
		t.Skip("Skipping integration test in short mode (requires Docker)")
	}

	sharedTestDBOnce.Do(func() {
		sharedTestDB, sharedTestDBErr = setupTestDB()
	})

	if sharedTestDBErr != nil {
		t.Fatalf("Failed to setup test database: %v", sharedTestDBErr)
	}

	return sharedTestDB
}

func setupTestDB() (*TestDB, error) {
	ctx := context.Background()

	container, err := postgres.Run(ctx, PostgresImage,
		postgres.WithDatabase("shop"),
		postgres.WithUsername("erd"),
		postgres.WithPassword("erd_password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to start test container: %w", err)
	}

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		return nil, fmt.Errorf("failed to get connection string: %w", err)
	}

	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	for _, stmt := range SalesSchema {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			pool.Close()
			return nil, fmt.Errorf("failed to seed schema (%s): %w", stmt, err)
		}
	}

	return &TestDB{
		Container: container,
		Pool:      pool,
		ConnStr:   connStr,
	}, nil
}
