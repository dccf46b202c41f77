package migrate_test

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/angelmondragon/partstrack-backend/pkg/migrate"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"
)

func readMigration(t *testing.T, pattern string) string {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join("migrations", pattern))
	require.NoError(t, err)
	require.NotEmpty(t, matches, "no migration matching %s", pattern)

	data, err := os.ReadFile(matches[0])
	require.NoError(t, err)
	return string(data)
}

func assertContainsAll(t *testing.T, content string, checks []string) {
	t.Helper()
	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestSerialsMigrationEnforcesUniqueness(t *testing.T) {
	content := readMigration(t, "*_create_serials.sql")
	assertContainsAll(t, content, []string{
		"CREATE TABLE IF NOT EXISTS serials",
		"CONSTRAINT uq_serials_serial_number UNIQUE (serial_number)",
		"REFERENCES bills(id) ON DELETE RESTRICT",
		"REFERENCES parts(id) ON DELETE RESTRICT",
		"'RETURN_PENDING', 'PENDING_TO_CHECK'",
		"DROP TABLE IF EXISTS serials",
	})
}

func TestMasterDataMigrationEnforcesCodes(t *testing.T) {
	content := readMigration(t, "*_create_master_data.sql")
	assertContainsAll(t, content, []string{
		"CONSTRAINT uq_parts_code UNIQUE (code)",
		"CHECK (code = upper(code))",
		"CONSTRAINT uq_suppliers_name UNIQUE (name)",
	})

	bills := readMigration(t, "*_create_bills.sql")
	assertContainsAll(t, bills, []string{
		"CONSTRAINT uq_bills_voucher_number UNIQUE (voucher_number)",
	})
}

func TestMovementsMigrationIsAppendOnly(t *testing.T) {
	content := readMigration(t, "*_create_serial_movements.sql")
	assertContainsAll(t, content, []string{
		"CREATE TABLE IF NOT EXISTS serial_movements",
		"BEFORE UPDATE OR DELETE ON serial_movements",
		"DROP TABLE IF EXISTS serial_movements",
	})
	if strings.Contains(content, "REFERENCES serials") {
		t.Fatalf("serial_movements must not reference serials")
	}
}

func TestValidateDirAcceptsShippedMigrations(t *testing.T) {
	require.NoError(t, migrate.ValidateDir("migrations"))
}

func TestCreateSQLMigrationSanitizesName(t *testing.T) {
	dir := t.TempDir()
	path, err := migrate.CreateSQLMigration(dir, "Add Part Aliases!", time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Equal(t, "20260501100000_add_part_aliases.sql", filepath.Base(path))
	require.NoError(t, migrate.ValidateDir(dir))
}

func TestCreateSQLMigrationSortsAfterExisting(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "20270101000000_future.sql"), []byte("-- +goose Up\n-- +goose Down\n"), 0o644))

	path, err := migrate.CreateSQLMigration(dir, "next", time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Equal(t, "20270101000001_next.sql", filepath.Base(path))
}

func TestCreateSQLMigrationRejectsEmptyName(t *testing.T) {
	_, err := migrate.CreateSQLMigration(t.TempDir(), "!!!", time.Now())
	require.Error(t, err)
}

func TestValidateDirReportsEveryProblem(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad-name.sql"), []byte(""), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "20260101000000_no_down.sql"), []byte("-- +goose Up\n"), 0o644))

	err := migrate.ValidateDir(dir)
	require.Error(t, err)
	require.Len(t, multierr.Errors(err), 2)
	require.ErrorContains(t, err, "bad-name.sql")
	require.ErrorContains(t, err, "missing \"-- +goose Down\"")
}

func TestEmbeddedMigrationsMatchDisk(t *testing.T) {
	embedded, err := fs.Glob(migrate.Embedded(), "migrations/*.sql")
	require.NoError(t, err)
	onDisk, err := filepath.Glob(filepath.Join("migrations", "*.sql"))
	require.NoError(t, err)
	require.Len(t, embedded, len(onDisk))
}
