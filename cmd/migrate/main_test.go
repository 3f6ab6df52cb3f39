package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrationFilenamePattern(t *testing.T) {
	tests := []struct {
		filename string
		valid    bool
		version  string
		name     string
	}{
		{"0001_init_schema_migrations.sql", true, "0001", "init_schema_migrations"},
		{"001_invalid.sql", false, "", ""},
		{"0001_test", false, "", ""},
		{"0001.sql", false, "", ""},
		{"invalid_0001_test.sql", false, "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.filename, func(t *testing.T) {
			matches := migrationPattern.FindStringSubmatch(tt.filename)
			if !tt.valid {
				assert.Nil(t, matches)
				return
			}
			require.NotNil(t, matches)
			assert.Equal(t, tt.version, matches[1])
			assert.Equal(t, tt.name, matches[2])
		})
	}
}

func writeMigration(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func TestReadMigrations(t *testing.T) {
	dir := t.TempDir()
	writeMigration(t, dir, "0002_create_runs.sql", "CREATE TABLE `{{PROJECT_ID}}.{{DATASET_ID}}.runs` (id INT64);")
	writeMigration(t, dir, "0001_init.sql", "CREATE TABLE `{{PROJECT_ID}}.{{DATASET_ID}}.init` (id INT64);")
	writeMigration(t, dir, "README.md", "not a migration")
	require.NoError(t, os.Mkdir(filepath.Join(dir, "0003_dir.sql"), 0o755))

	migrations, err := readMigrations(dir, dataset{ProjectID: "proj", DatasetID: "ds"})
	require.NoError(t, err)
	require.Len(t, migrations, 2)

	assert.Equal(t, 1, migrations[0].Version)
	assert.Equal(t, "init", migrations[0].Name)
	assert.Equal(t, "CREATE TABLE `proj.ds.init` (id INT64);", migrations[0].SQL)
	assert.Equal(t, 2, migrations[1].Version)
	assert.Len(t, migrations[1].Checksum, 64)
}

func TestReadMigrations_ChecksumIgnoresPlaceholders(t *testing.T) {
	dir := t.TempDir()
	writeMigration(t, dir, "0001_init.sql", "CREATE TABLE `{{PROJECT_ID}}.{{DATASET_ID}}.t` (id INT64);")

	a, err := readMigrations(dir, dataset{ProjectID: "a", DatasetID: "x"})
	require.NoError(t, err)
	b, err := readMigrations(dir, dataset{ProjectID: "b", DatasetID: "y"})
	require.NoError(t, err)

	assert.Equal(t, a[0].Checksum, b[0].Checksum)
	assert.NotEqual(t, a[0].SQL, b[0].SQL)
}

func TestRepositoryMigrations(t *testing.T) {
	migrations, err := readMigrations(filepath.Join("..", "..", "migrations", "bigquery"), dataset{ProjectID: "p", DatasetID: "d"})
	require.NoError(t, err)
	require.NotEmpty(t, migrations)

	for i, m := range migrations {
		assert.Equal(t, i+1, m.Version, "migrations must be numbered without gaps")
		assert.NotContains(t, m.SQL, "{{")
	}
}

func TestPendingMigrations(t *testing.T) {
	migrations := []Migration{{Version: 1, Name: "a"}, {Version: 2, Name: "b"}, {Version: 3, Name: "c"}}
	applied := []AppliedMigration{{Version: 1}, {Version: 3}}

	pending := pendingMigrations(migrations, applied)
	require.Len(t, pending, 1)
	assert.Equal(t, 2, pending[0].Version)

	assert.Empty(t, pendingMigrations(migrations[:1], applied))
}

func TestChecksumMismatches(t *testing.T) {
	migrations := []Migration{{Version: 1, Checksum: "aaa"}, {Version: 2, Checksum: "bbb"}, {Version: 3, Checksum: "ccc"}}
	applied := []AppliedMigration{{Version: 1, Checksum: "aaa"}, {Version: 2, Checksum: "old"}, {Version: 3}}

	changed := checksumMismatches(migrations, applied)
	require.Len(t, changed, 1)
	assert.Equal(t, 2, changed[0].Version)
}

func TestFindMigrationsDir(t *testing.T) {
	dir, err := findMigrationsDir(filepath.Join("migrations", "bigquery"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("..", "..", "migrations", "bigquery"), dir)

	_, err = findMigrationsDir("does-not-exist")
	assert.Error(t, err)
}
