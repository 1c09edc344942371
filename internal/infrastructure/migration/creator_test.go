package migration

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeName(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"add reservation index", "add_reservation_index"},
		{"Add-Batch-Expiry", "add_batch_expiry"},
		{"ORDER__ITEMS", "order_items"},
		{"   spaces   ", "spaces"},
		{"special!@#$chars", "specialchars"},
		{"_leading_and_trailing_", "leading_and_trailing"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, sanitizeName(tt.input))
		})
	}
}

func TestCreateMigration(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "migrations")
	now := time.Date(2026, 10, 1, 9, 5, 0, 0, time.FixedZone("BRT", -3*3600))

	mf, err := CreateMigration(dir, "Add reservation index", "Speeds up active reservation lookups", now)
	require.NoError(t, err)

	assert.Equal(t, "20261001120500", mf.Version, "version uses UTC")
	assert.Equal(t, filepath.Join(dir, "20261001120500_add_reservation_index.up.sql"), mf.UpPath)
	assert.Equal(t, filepath.Join(dir, "20261001120500_add_reservation_index.down.sql"), mf.DownPath)

	up, err := os.ReadFile(mf.UpPath)
	require.NoError(t, err)
	assert.Contains(t, string(up), "Speeds up active reservation lookups")
	assert.Contains(t, string(up), "row security policy")

	t.Run("existing version is not overwritten", func(t *testing.T) {
		_, err := CreateMigration(dir, "add reservation index", "again", now)
		assert.Error(t, err)

		up, err := os.ReadFile(mf.UpPath)
		require.NoError(t, err)
		assert.Contains(t, string(up), "Speeds up active reservation lookups")
	})

	t.Run("name without usable characters", func(t *testing.T) {
		_, err := CreateMigration(dir, "!!!", "", now)
		assert.Error(t, err)
	})
}

func TestListMigrations(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{
		"20261001090100_create_inventory_ledger.up.sql",
		"20261001090100_create_inventory_ledger.down.sql",
		"20261001090000_create_catalog.up.sql",
		"20261001090000_create_catalog.down.sql",
		"README.md",
	} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), nil, 0o644))
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "20261001090200_dir.up.sql"), 0o755))

	names, err := ListMigrations(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"20261001090000_create_catalog", "20261001090100_create_inventory_ledger"}, names)

	missing, err := ListMigrations(filepath.Join(dir, "nope"))
	require.NoError(t, err)
	assert.Empty(t, missing)
}

func TestVersionOf(t *testing.T) {
	v, err := VersionOf("20261001090000_create_catalog")
	require.NoError(t, err)
	assert.Equal(t, uint64(20261001090000), v)

	_, err = VersionOf("create_catalog")
	assert.Error(t, err)
}

func TestRepositoryMigrationsArePaired(t *testing.T) {
	dir := filepath.Join("..", "..", "..", "migrations")
	names, err := ListMigrations(dir)
	require.NoError(t, err)
	require.NotEmpty(t, names)

	for _, name := range names {
		_, err := VersionOf(name)
		assert.NoError(t, err)
		_, err = os.Stat(filepath.Join(dir, name+".down.sql"))
		assert.NoError(t, err, "%s has no down migration", name)
	}
}
