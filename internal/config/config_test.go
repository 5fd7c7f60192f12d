package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/asad/azstorage/internal/storage/azure"
)

func loadFresh(t *testing.T) *Config {
	t.Helper()
	v := viper.New()
	SetDefaults(v)
	cfg, err := Load(v)
	require.NoError(t, err)
	return cfg
}

func TestLoadDefaults(t *testing.T) {
	cfg := loadFresh(t)
	assert.Equal(t, 8080, cfg.HTTPPort)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, azure.DefaultMaxUploadSize, cfg.MaxUploadSize)
	assert.Error(t, cfg.Validate(), "missing account settings must fail validation")
}

func TestLoadProcessWideNames(t *testing.T) {
	t.Setenv("AZURE_ACCOUNT_NAME", "acct")
	t.Setenv("AZURE_ACCOUNT_KEY", "k")
	t.Setenv("AZURE_CONTAINER", "media")
	t.Setenv("MEDIA_URL", "https://cdn.example/")

	cfg := loadFresh(t)
	require.NoError(t, cfg.Validate())
	assert.Equal(t, azure.Config{
		AccountName:   "acct",
		AccountKey:    "k",
		Container:     "media",
		MediaURL:      "https://cdn.example/",
		MaxUploadSize: azure.DefaultMaxUploadSize,
	}, cfg.Azure())
}

func TestPrefixedEnvWins(t *testing.T) {
	t.Setenv("AZURE_CONTAINER", "legacy")
	t.Setenv("AZSTORAGE_CONTAINER", "prefixed")
	t.Setenv("AZSTORAGE_HTTP_PORT", "9090")
	t.Setenv("AZSTORAGE_LOG_LEVEL", "debug")

	cfg := loadFresh(t)
	assert.Equal(t, "prefixed", cfg.Container)
	assert.Equal(t, 9090, cfg.HTTPPort)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestReadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "azstorage.yaml")
	content := "account_name: fileacct\naccount_key: filekey\ncontainer: files\nmedia_url: https://files.example/\nmax_upload_size: 1024\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	v := viper.New()
	SetDefaults(v)
	require.NoError(t, ReadFile(v, path))
	cfg, err := Load(v)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "fileacct", cfg.AccountName)
	assert.Equal(t, int64(1024), cfg.MaxUploadSize)
}

func TestReadFileMissingExplicitPath(t *testing.T) {
	v := viper.New()
	SetDefaults(v)
	assert.Error(t, ReadFile(v, filepath.Join(t.TempDir(), "nope.yaml")))
}

func TestValidatePort(t *testing.T) {
	cfg := &Config{
		AccountName: "acct",
		AccountKey:  "k",
		Container:   "media",
		MediaURL:    "https://cdn.example/",
		HTTPPort:    70000,
	}
	assert.Error(t, cfg.Validate())
	cfg.HTTPPort = 8080
	assert.NoError(t, cfg.Validate())
}
