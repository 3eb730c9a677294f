package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alvmarrod/harvester/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadSettings_FileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")
	require.NoError(t, os.WriteFile(path, []byte("config_dir: /tmp/cfgs\nlog_format: json\nrequest_timeout: 3s\n"), 0644))

	t.Setenv("HARVESTER_LOG_LEVEL", "debug")

	s, err := config.LoadSettings(config.NewViper(path))
	require.NoError(t, err)

	assert.Equal(t, "/tmp/cfgs", s.ConfigDir)
	assert.Equal(t, "json", s.LogFormat)
	assert.Equal(t, "debug", s.LogLevel)
	assert.Equal(t, 3*time.Second, s.RequestTimeout)
	assert.Equal(t, "harvester.db", s.DBPath)
}

func TestLoadSettings_MissingExplicitFile(t *testing.T) {
	_, err := config.LoadSettings(config.NewViper(filepath.Join(t.TempDir(), "missing.yaml")))
	assert.Error(t, err)
}

func TestLoadSettings_RejectsUnknownLogFormat(t *testing.T) {
	t.Setenv("HARVESTER_LOG_FORMAT", "xml")

	path := filepath.Join(t.TempDir(), "settings.yaml")
	require.NoError(t, os.WriteFile(path, []byte("db_path: x.db\n"), 0644))

	_, err := config.LoadSettings(config.NewViper(path))
	assert.Error(t, err)
}
