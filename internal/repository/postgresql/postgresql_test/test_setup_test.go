package postgresql_test

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"testing"

	"github.com/cmlabs-hris/payroll-tax-engine/internal/pkg/database"
	"github.com/stretchr/testify/require"
)

// TestDatabaseSetup holds the shared connection for repository tests.
type TestDatabaseSetup struct {
	DB *database.DB
}

var (
	setupOnce sync.Once
	setup     *TestDatabaseSetup
	setupErr  error
)

// NewTestDatabase connects to TEST_DATABASE_URL and applies the schema once.
// Tests are skipped when the variable is not set.
func NewTestDatabase(t *testing.T) *TestDatabaseSetup {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	setupOnce.Do(func() {
		ctx := context.Background()
		db, err := database.NewPostgreSQLDB(ctx, dsn, database.PoolOptions{MaxConns: 5})
		if err != nil {
			setupErr = fmt.Errorf("failed to connect to test database: %w", err)
			return
		}
		if err := applySchema(ctx, db); err != nil {
			db.Close()
			setupErr = err
			return
		}
		setup = &TestDatabaseSetup{DB: db}
	})
	require.NoError(t, setupErr)

	require.NoError(t, setup.TruncateAllTables(context.Background()))
	return setup
}

func applySchema(ctx context.Context, db *database.DB) error {
	_, file, _, _ := runtime.Caller(0)
	path := filepath.Join(filepath.Dir(file), "..", "..", "..", "..", "migrations", "0001_payroll_tax.up.sql")
	schema, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read schema: %w", err)
	}
	if _, err := db.Exec(ctx, string(schema)); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

// TruncateAllTables empties every table the repositories write to.
func (t *TestDatabaseSetup) TruncateAllTables(ctx context.Context) error {
	tx, err := t.DB.BeginTx(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	tables := []string{
		"outbox_events",
		"payouts",
		"attendance_summaries",
		"taxations",
		"tax_declarations",
		"salary_changes",
		"salary_structures",
		"employee_profiles",
	}

	for _, table := range tables {
		_, err := tx.Exec(ctx, fmt.Sprintf("TRUNCATE TABLE %s CASCADE", table))
		if err != nil {
			return fmt.Errorf("failed to truncate table %s: %w", table, err)
		}
	}

	return tx.Commit(ctx)
}

func (t *TestDatabaseSetup) createProfile(tb testing.TB, employeeID string) {
	tb.Helper()
	_, err := t.DB.Exec(context.Background(), `
		INSERT INTO employee_profiles (employee_id, full_name, date_of_birth, is_government, preferred_regime)
		VALUES ($1, 'Test Employee', '1990-05-10', FALSE, 'old')
	`, employeeID)
	require.NoError(tb, err)
}
