package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 4, cfg.Indexer.Workers)
	assert.Equal(t, "file", cfg.Storage.Backend)
	assert.Equal(t, "index.spdx", cfg.Storage.Destination)
	assert.Equal(t, 3, cfg.Storage.Retry.MaxAttempts)
	assert.Equal(t, "pidx", cfg.Redis.KeyPrefix)
}

func TestLoadYAMLAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yamlDoc := `
indexer:
  workers: 8
  fileExtensions: [".txt", ".md"]
storage:
  backend: sql
  destination: corpus-2024
  retry:
    maxAttempts: 5
    initialDelay: 50ms
database:
  driver: sqlite
  database: /tmp/idx.db
`
	require.NoError(t, os.WriteFile(path, []byte(yamlDoc), 0o644))
	t.Setenv("SP_LOGGING_LEVEL", "debug")
	t.Setenv("SP_INDEXER_WORKERS", "2")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 2, cfg.Indexer.Workers)
	assert.Equal(t, []string{".txt", ".md"}, cfg.Indexer.FileExtensions)
	assert.Equal(t, "sql", cfg.Storage.Backend)
	assert.Equal(t, "corpus-2024", cfg.Storage.Destination)
	assert.Equal(t, 5, cfg.Storage.Retry.MaxAttempts)
	assert.Equal(t, 50*time.Millisecond, cfg.Storage.Retry.InitialDelay)
	assert.Equal(t, "/tmp/idx.db", cfg.Database.DataSourceName())
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoadRejectsInvalid(t *testing.T) {
	t.Run("workers", func(t *testing.T) {
		t.Setenv("SP_INDEXER_WORKERS", "0")
		_, err := Load("")
		assert.ErrorContains(t, err, "indexer.workers")
	})
	t.Run("backend", func(t *testing.T) {
		t.Setenv("SP_STORAGE_BACKEND", "s3")
		_, err := Load("")
		assert.ErrorContains(t, err, "unknown storage backend")
	})
	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
		assert.ErrorContains(t, err, "reading config file")
	})
}

func TestDataSourceName(t *testing.T) {
	pg := Default().Database
	assert.Equal(t,
		"host=localhost port=5432 user=indexer password=localdev dbname=positional_index sslmode=disable",
		pg.DataSourceName())

	my := DatabaseConfig{Driver: "mysql", User: "u", Password: "p", Host: "db", Port: 3306, Database: "idx"}
	assert.Equal(t, "u:p@tcp(db:3306)/idx", my.DataSourceName())

	explicit := DatabaseConfig{Driver: "postgres", DSN: "postgres://x"}
	assert.Equal(t, "postgres://x", explicit.DataSourceName())
}
