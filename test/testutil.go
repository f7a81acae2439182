//go:build integration
// +build integration

package test

import (
	"context"
	"fmt"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/coregx/querygov"
	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/mysql"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	_ "modernc.org/sqlite" // Pure Go SQLite driver (no CGO required)
)

// DatabaseSetup encapsulates a governed session and its cleanup.
type DatabaseSetup struct {
	DB        *querygov.DB
	Container testcontainers.Container
	Engine    string
}

// Close cleans up database resources.
func (ds *DatabaseSetup) Close() {
	if ds.DB != nil {
		ds.DB.Close() //nolint:errcheck
	}
	if ds.Container != nil {
		ds.Container.Terminate(context.Background()) //nolint:errcheck
	}
}

// SetupPostgreSQLTestDB opens a governed session against PostgreSQL.
// Uses testcontainers if available, falls back to env DSN.
func SetupPostgreSQLTestDB(t *testing.T, opts ...querygov.Option) *DatabaseSetup {
	ctx := context.Background()

	// Check for manual DSN first (allows testing without Docker)
	if dsn := os.Getenv("POSTGRES_TEST_DSN"); dsn != "" {
		db, err := querygov.Open("postgres", dsn, opts...)
		require.NoError(t, err)
		return &DatabaseSetup{DB: db, Engine: "postgres"}
	}

	// Start PostgreSQL in Docker via testcontainers
	pgContainer, err := postgres.Run(
		ctx,
		"postgres:15-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("user"),
		postgres.WithPassword("password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		t.Skip("Docker not available for PostgreSQL integration tests: " + err.Error())
	}

	dsn, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := querygov.Open("postgres", dsn, opts...)
	require.NoError(t, err)

	return &DatabaseSetup{
		DB:        db,
		Container: pgContainer,
		Engine:    "postgres",
	}
}

// SetupMySQLTestDB opens a governed session against MySQL.
// Uses testcontainers if available, falls back to env DSN.
func SetupMySQLTestDB(t *testing.T, opts ...querygov.Option) *DatabaseSetup {
	ctx := context.Background()

	// Check for manual DSN first
	if dsn := os.Getenv("MYSQL_TEST_DSN"); dsn != "" {
		// Ensure parseTime=true is set for time.Time support
		if !strings.Contains(dsn, "parseTime=true") {
			if strings.Contains(dsn, "?") {
				dsn += "&parseTime=true"
			} else {
				dsn += "?parseTime=true"
			}
		}
		db, err := querygov.Open("mysql", dsn, opts...)
		require.NoError(t, err)
		return &DatabaseSetup{DB: db, Engine: "mysql"}
	}

	// Start MySQL in Docker via testcontainers
	mysqlContainer, err := mysql.Run(
		ctx,
		"mysql:8.0",
		mysql.WithDatabase("testdb"),
		mysql.WithUsername("user"),
		mysql.WithPassword("password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("port: 3306  MySQL Community Server").
				WithStartupTimeout(60*time.Second),
		),
	)
	if err != nil {
		t.Skip("Docker not available for MySQL integration tests: " + err.Error())
	}

	dsn, err := mysqlContainer.ConnectionString(ctx)
	require.NoError(t, err)

	// Add parseTime=true to enable time.Time parsing for DATETIME/TIMESTAMP columns
	// Without this, MySQL driver returns []uint8 instead of time.Time
	// See: https://github.com/go-sql-driver/mysql#parsetime
	dsn += "?parseTime=true"

	db, err := querygov.Open("mysql", dsn, opts...)
	require.NoError(t, err)

	return &DatabaseSetup{
		DB:        db,
		Container: mysqlContainer,
		Engine:    "mysql",
	}
}

// SetupSQLiteTestDB opens a governed session over an in-memory SQLite
// database. Always works, no external dependencies.
func SetupSQLiteTestDB(t *testing.T, opts ...querygov.Option) *DatabaseSetup {
	// modernc's :memory: DSN gives every pool connection its own database,
	// so the pool must stay at a single connection.
	opts = append([]querygov.Option{querygov.WithMaxOpenConns(1)}, opts...)

	db, err := querygov.Open("sqlite", ":memory:", opts...)
	require.NoError(t, err)

	return &DatabaseSetup{
		DB:     db,
		Engine: "sqlite",
	}
}

// CreateOrdersTable creates the orders table the workbench scenarios query.
func CreateOrdersTable(t *testing.T, db *querygov.DB, engine string) {
	var createSQL string

	switch engine {
	case "postgres":
		createSQL = `
			CREATE TABLE IF NOT EXISTS orders (
				id SERIAL PRIMARY KEY,
				customer_id INTEGER NOT NULL,
				status VARCHAR(20) NOT NULL,
				total INTEGER NOT NULL,
				created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
			)
		`
	case "mysql":
		createSQL = `
			CREATE TABLE IF NOT EXISTS orders (
				id INT AUTO_INCREMENT PRIMARY KEY,
				customer_id INT NOT NULL,
				status VARCHAR(20) NOT NULL,
				total INT NOT NULL,
				created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
			)
		`
	case "sqlite":
		createSQL = `
			CREATE TABLE IF NOT EXISTS orders (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				customer_id INTEGER NOT NULL,
				status VARCHAR(20) NOT NULL,
				total INTEGER NOT NULL,
				created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
			)
		`
	}

	// Schema statements go through the raw handle; the governor only manages
	// statements submitted by workbench users.
	_, err := db.Unwrap().ExecContext(context.Background(), createSQL)
	require.NoError(t, err)
}

// SeedOrders bulk-inserts count orders in chunks so large fixtures stay fast
// over a container connection. Values cycle deterministically: customer_id
// is i%100, status rotates pending/shipped/cancelled, total is i.
func SeedOrders(t *testing.T, db *querygov.DB, count int) {
	ctx := context.Background()
	statuses := [...]string{"pending", "shipped", "cancelled"}

	const chunk = 1000
	for lo := 1; lo <= count; lo += chunk {
		hi := lo + chunk - 1
		if hi > count {
			hi = count
		}

		var sb strings.Builder
		sb.WriteString("INSERT INTO orders (customer_id, status, total) VALUES ")
		for i := lo; i <= hi; i++ {
			if i > lo {
				sb.WriteByte(',')
			}
			fmt.Fprintf(&sb, "(%d, '%s', %d)", i%100, statuses[i%3], i)
		}

		_, err := db.Unwrap().ExecContext(ctx, sb.String())
		require.NoError(t, err)
	}
}

// RefreshStatistics updates planner statistics so estimates and plans reflect
// the seeded data instead of the empty table the engine first saw.
func RefreshStatistics(t *testing.T, db *querygov.DB, engine string) {
	var stmt string
	switch engine {
	case "postgres":
		stmt = "ANALYZE orders"
	case "mysql":
		stmt = "ANALYZE TABLE orders"
	case "sqlite":
		stmt = "ANALYZE"
	}

	_, err := db.Unwrap().ExecContext(context.Background(), stmt)
	require.NoError(t, err)
}

// CountOrders counts rows through the raw handle, outside the governor.
func CountOrders(t *testing.T, db *querygov.DB) int {
	var n int
	err := db.Unwrap().QueryRowContext(context.Background(), "SELECT COUNT(*) FROM orders").Scan(&n)
	require.NoError(t, err)
	return n
}

// DrainIDs consumes a governed row stream whose first column is an integer
// id, closes it, and returns the ids in order.
func DrainIDs(t *testing.T, rows *querygov.Rows) []int {
	t.Helper()
	defer rows.Close()

	var ids []int
	for rows.Next() {
		var id int
		require.NoError(t, rows.Scan(&id))
		ids = append(ids, id)
	}
	require.NoError(t, rows.Err())
	return ids
}
