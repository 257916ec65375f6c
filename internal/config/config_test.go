package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()

	t.Run("Missing file falls back to defaults", func(t *testing.T) {
		cfg, err := LoadConfig(filepath.Join(dir, "absent.yaml"))
		require.NoError(t, err)
		assert.Equal(t, []string{"c", "cpp"}, cfg.Analysis.Languages)
		assert.Zero(t, cfg.Analysis.Workers)
	})

	t.Run("YAML file", func(t *testing.T) {
		path := filepath.Join(dir, "config.yaml")
		content := `
analysis:
  languages: ["c"]
  workers: 4
storage:
  db_path: graphs.db
`
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

		cfg, err := LoadConfig(path)
		require.NoError(t, err)
		assert.Equal(t, []string{"c"}, cfg.Analysis.Languages)
		assert.Equal(t, 4, cfg.Analysis.Workers)
		assert.Equal(t, "graphs.db", cfg.Storage.DBPath)
	})

	t.Run("Environment overrides", func(t *testing.T) {
		t.Setenv("RELEX_DB_PATH", "env.db")
		t.Setenv("RELEX_WORKERS", "8")
		t.Setenv("RELEX_RULE_FILE", "extra.yaml")

		cfg, err := LoadConfig(filepath.Join(dir, "absent.yaml"))
		require.NoError(t, err)
		assert.Equal(t, "env.db", cfg.Storage.DBPath)
		assert.Equal(t, 8, cfg.Analysis.Workers)
		assert.Contains(t, cfg.Analysis.RuleFiles, "extra.yaml")
	})

	t.Run("Invalid worker env ignored", func(t *testing.T) {
		t.Setenv("RELEX_WORKERS", "lots")
		cfg, err := LoadConfig(filepath.Join(dir, "absent.yaml"))
		require.NoError(t, err)
		assert.Zero(t, cfg.Analysis.Workers)
	})

	t.Run("Malformed YAML", func(t *testing.T) {
		path := filepath.Join(dir, "broken.yaml")
		require.NoError(t, os.WriteFile(path, []byte("analysis: ["), 0o644))
		_, err := LoadConfig(path)
		assert.Error(t, err)
	})
}
