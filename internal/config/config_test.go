package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/filedash/filedash/internal/config"
)

const validSecret = "0123456789abcdef0123456789abcdef"

func TestLoadDefaultsPlusSecretValidates(t *testing.T) {
	t.Setenv("FILEDASH_AUTH__JWT_SECRET", validSecret)
	cfg, err := config.Load("")
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, validSecret, cfg.Auth.JWTSecret)
}

func TestLoadRejectsShortSecret(t *testing.T) {
	t.Setenv("FILEDASH_AUTH__JWT_SECRET", "too-short")
	_, err := config.Load("")
	assert.Error(t, err)
}

func TestLoadFromTOMLFile(t *testing.T) {
	t.Setenv("FILEDASH_AUTH__JWT_SECRET", validSecret)
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	contents := `
[server]
host = "127.0.0.1"
port = 9090

[files]
home_directory = "/srv/files"
max_upload_size = 1048576
`
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1", cfg.Server.Host)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "/srv/files", cfg.Files.HomeDirectory)
	assert.EqualValues(t, 1048576, cfg.Files.MaxUploadSize)
}

func TestEnvOverrideWinsOverTOML(t *testing.T) {
	t.Setenv("FILEDASH_AUTH__JWT_SECRET", validSecret)
	t.Setenv("FILEDASH_SERVER__PORT", "7070")

	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("[server]\nport = 9090\n"), 0o644))

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, 7070, cfg.Server.Port)
}

func TestLoadRejectsMissingHomeDirectory(t *testing.T) {
	t.Setenv("FILEDASH_AUTH__JWT_SECRET", validSecret)
	t.Setenv("FILEDASH_FILES__HOME_DIRECTORY", "")
	_, err := config.Load("")
	assert.Error(t, err)
}
