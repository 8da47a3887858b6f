package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"salonpay-be/internal/config"
)

func TestExtractMigrationPart(t *testing.T) {
	content := `
-- +migrate Up
CREATE TABLE payments (id bigserial);
ALTER TABLE payments ADD COLUMN status text;

-- +migrate Down
DROP TABLE payments;
`
	t.Run("Extract Up", func(t *testing.T) {
		up := extractMigrationPart(content, "Up")
		assert.Contains(t, up, "CREATE TABLE payments")
		assert.Contains(t, up, "ALTER TABLE payments")
		assert.NotContains(t, up, "DROP TABLE payments")
		assert.NotContains(t, up, "-- +migrate Up")
	})

	t.Run("Extract Down", func(t *testing.T) {
		down := extractMigrationPart(content, "Down")
		assert.Contains(t, down, "DROP TABLE payments")
		assert.NotContains(t, down, "CREATE TABLE payments")
	})
}

func TestShippedMigrationsHaveBothParts(t *testing.T) {
	files, err := filepath.Glob(filepath.Join("..", "..", "migrations", "*.sql"))
	require.NoError(t, err)
	require.NotEmpty(t, files)

	for _, f := range files {
		content, err := os.ReadFile(f)
		require.NoError(t, err)

		assert.NotEmpty(t, extractMigrationPart(string(content), "Up"), f)
		assert.NotEmpty(t, extractMigrationPart(string(content), "Down"), f)
	}
}

func TestDSN(t *testing.T) {
	cfg := &config.Config{DBHost: "db", DBUser: "salon", DBPassword: "pw", DBName: "salonpay", DBPort: "5432"}

	t.Run("Built From Config", func(t *testing.T) {
		t.Setenv("DB_URL", "")
		assert.Equal(t, "host=db user=salon password=pw dbname=salonpay port=5432 sslmode=disable", dsn(cfg))
	})

	t.Run("DB_URL Wins", func(t *testing.T) {
		t.Setenv("DB_URL", "postgres://salon:pw@db:5432/salonpay?sslmode=disable")
		assert.Equal(t, "postgres://salon:pw@db:5432/salonpay?sslmode=disable", dsn(cfg))
	})
}

func writeMigration(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestRunMigrationsUp(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	tmpDir := t.TempDir()
	applied := writeMigration(t, tmpDir, "0001_payments.sql", "-- +migrate Up\nCREATE TABLE payments (id int);")
	pending := writeMigration(t, tmpDir, "0002_history.sql", "-- +migrate Up\nCREATE TABLE payment_status_history (id int);")

	mock.ExpectQuery("SELECT EXISTS.*schema_migrations").
		WithArgs("0001_payments.sql").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	mock.ExpectQuery("SELECT EXISTS.*schema_migrations").
		WithArgs("0002_history.sql").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectBegin()
	mock.ExpectExec("CREATE TABLE payment_status_history").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("INSERT INTO schema_migrations").
		WithArgs("0002_history.sql").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	require.NoError(t, runMigrationsUp(db, []string{applied, pending}))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRunMigrationsUp_ExecError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	file := writeMigration(t, t.TempDir(), "0001_payments.sql", "-- +migrate Up\nCREATE TABLE payments (id int);")

	mock.ExpectQuery("SELECT EXISTS.*schema_migrations").
		WithArgs("0001_payments.sql").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectBegin()
	mock.ExpectExec("CREATE TABLE payments").WillReturnError(assert.AnError)
	mock.ExpectRollback()

	err = runMigrationsUp(db, []string{file})

	assert.ErrorIs(t, err, assert.AnError)
	assert.Contains(t, err.Error(), "0001_payments.sql")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRunMigrationsDown(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	file := writeMigration(t, t.TempDir(), "0001_payments.sql",
		"-- +migrate Up\nCREATE TABLE payments (id int);\n-- +migrate Down\nDROP TABLE payments;")

	mock.ExpectQuery("SELECT version FROM schema_migrations").
		WillReturnRows(sqlmock.NewRows([]string{"version"}).AddRow("0001_payments.sql"))
	mock.ExpectBegin()
	mock.ExpectExec("DROP TABLE payments").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("DELETE FROM schema_migrations").
		WithArgs("0001_payments.sql").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, runMigrationsDown(db, []string{file}))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRunMigrationsDown_NothingApplied(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT version FROM schema_migrations").
		WillReturnRows(sqlmock.NewRows([]string{"version"}))

	assert.NoError(t, runMigrationsDown(db, nil))
}

func TestRun_UnknownMode(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS schema_migrations").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err = run(db, "sideways", t.TempDir())

	assert.EqualError(t, err, "unknown mode: sideways (use 'up' or 'down')")
}
