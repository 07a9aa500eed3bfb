package migrate_test

import (
	"context"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/coursevault-backend/pkg/migrate"
)

func TestEmbeddedMigrationsMatchSourceDir(t *testing.T) {
	require.NoError(t, migrate.Validate(migrate.Migrations()))
	require.NoError(t, migrate.ValidateDir("migrations"))

	embedded, err := fs.ReadDir(migrate.Migrations(), ".")
	require.NoError(t, err)
	onDisk, err := filepath.Glob(filepath.Join("migrations", "*.sql"))
	require.NoError(t, err)
	assert.Len(t, embedded, len(onDisk))
}

func TestValidateRejectsDownBeforeUp(t *testing.T) {
	fsys := fstest.MapFS{
		"20250101000000_swap.sql": {Data: []byte("-- +goose Down\n-- +goose Up\n")},
	}
	assert.ErrorContains(t, migrate.Validate(fsys), "precedes")
}

func TestExecRejectsUnknownCommand(t *testing.T) {
	assert.Error(t, migrate.Exec(context.Background(), nil, "up", "", io.Discard))
}

func TestValidateDirRejectsBadFilename(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "create_things.sql"), []byte("-- +goose Up\n-- +goose Down\n"), 0o644))
	assert.Error(t, migrate.ValidateDir(dir))
}

func TestValidateDirRejectsEmptyDir(t *testing.T) {
	assert.Error(t, migrate.ValidateDir(t.TempDir()))
}

func TestCreateSQLMigrationWritesGooseTemplate(t *testing.T) {
	dir := t.TempDir()
	path, err := migrate.CreateSQLMigration(dir, "Add Course Tags!")
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(path, "_add_course_tags.sql"))
	require.NoError(t, migrate.ValidateDir(dir))

	_, err = migrate.CreateSQLMigration(dir, "!!!")
	assert.Error(t, err)
}

func TestCoreMigrationsCarryIntegrityConstraints(t *testing.T) {
	checks := map[string][]string{
		"*_create_payments_and_entitlements.sql": {
			"CONSTRAINT ck_payments_single_target CHECK ((course_id IS NULL) <> (pack_id IS NULL))",
			"CREATE UNIQUE INDEX IF NOT EXISTS ux_payments_transaction_id",
			"CREATE UNIQUE INDEX IF NOT EXISTS ux_user_courses_user_course",
		},
		"*_create_course_progress.sql": {
			"CREATE UNIQUE INDEX IF NOT EXISTS ux_course_progress_user_course",
			"CREATE UNIQUE INDEX IF NOT EXISTS ux_course_progress_certificate_id",
			"CREATE UNIQUE INDEX IF NOT EXISTS ux_course_progress_videos_progress_video",
			"CHECK (NOT certificate_issued OR is_completed)",
		},
	}

	for pattern, statements := range checks {
		matches, err := filepath.Glob(filepath.Join("migrations", pattern))
		require.NoError(t, err)
		require.Len(t, matches, 1, pattern)

		data, err := os.ReadFile(matches[0])
		require.NoError(t, err)
		for _, stmt := range statements {
			assert.Contains(t, string(data), stmt)
		}
	}
}
