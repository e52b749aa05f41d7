package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "app", cfg.Analysis.PreferredDir)
	assert.Contains(t, cfg.Scan.IgnoredDirs, "__pycache__")
	assert.Contains(t, cfg.Scan.ConfigFiles, "requirements.txt")

	d, err := cfg.ParseTimeout()
	require.NoError(t, err)
	assert.Equal(t, 2*time.Second, d)
}

func TestLoadConfig_FileAndEnvOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dockagent.yaml")
	yaml := `
scan:
  workers: 2
analysis:
  preferred_dir: src
  parse_timeout: 500ms
output:
  history_db: runs.db
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))
	t.Setenv("DOCKAGENT_PREFERRED_DIR", "service")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 2, cfg.Scan.Workers)
	assert.Equal(t, "service", cfg.Analysis.PreferredDir, "env should win over file")
	assert.Equal(t, "runs.db", cfg.Output.HistoryDB)
	assert.Equal(t, int64(1<<20), cfg.Scan.MaxFileBytes, "unset keys keep defaults")
}

func TestLoadConfig_RejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"bad timeout", "analysis:\n  parse_timeout: soon\n"},
		{"zero workers", "scan:\n  workers: 0\n"},
		{"negative size", "scan:\n  max_file_bytes: -1\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "c.yaml")
			require.NoError(t, os.WriteFile(path, []byte(tt.yaml), 0o644))
			_, err := LoadConfig(path)
			assert.Error(t, err)
		})
	}
}
