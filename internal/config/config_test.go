package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadMainConfig_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadMainConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "./input", cfg.InputDir)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "console", cfg.LogFormat)
	assert.Equal(t, "quickbooks_import_{timestamp}.csv", cfg.OutputNameFormat)
	assert.Equal(t, 4, cfg.MaxConcurrency)
	assert.True(t, cfg.ContinueOnError)
	assert.False(t, cfg.StrictFilenames)
	assert.Equal(t, "Linhas de Lavanderia:Services", cfg.Invoice.ItemProductService)
	assert.Equal(t, 4, cfg.Invoice.DueDays)
	assert.Equal(t, []string{"Delivery", "Production", "Open"}, cfg.Invoice.AllowedStatuses)
	assert.Equal(t, ":5000", cfg.Server.ListenAddr)
	assert.Equal(t, int64(16<<20), cfg.Server.MaxUploadBytes)
}

func TestLoadMainConfig_File(t *testing.T) {
	path := writeFile(t, "config.yaml", `
input_dir: /data/in
log_format: json
continue_on_error: false
strict_filenames: true
csv:
  delimiter: ";"
invoice:
  due_days: 15
  allowed_statuses: [Delivery]
server:
  listen_addr: "127.0.0.1:8080"
`)

	cfg, err := LoadMainConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "/data/in", cfg.InputDir)
	assert.Equal(t, "./output", cfg.OutputDir)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.False(t, cfg.ContinueOnError)
	assert.True(t, cfg.StrictFilenames)
	assert.Equal(t, ";", cfg.CSV.Delimiter)
	assert.Equal(t, 15, cfg.Invoice.DueDays)
	assert.Equal(t, []string{"Delivery"}, cfg.Invoice.AllowedStatuses)
	assert.Equal(t, "127.0.0.1:8080", cfg.Server.ListenAddr)
}

func TestLoadMainConfig_EnvOverrides(t *testing.T) {
	t.Setenv(EnvLogLevel, "debug")
	t.Setenv(EnvListenAddr, ":9000")
	t.Setenv(EnvStrictFilenames, "true")

	cfg, err := LoadMainConfig("")
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, ":9000", cfg.Server.ListenAddr)
	assert.True(t, cfg.StrictFilenames)
}

func TestLoadMainConfig_Invalid(t *testing.T) {
	_, err := LoadMainConfig(writeFile(t, "bad.yaml", "log_format: xml\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "log_format")

	_, err = LoadMainConfig(writeFile(t, "neg.yaml", "max_concurrency: -1\n"))
	require.Error(t, err)

	_, err = LoadMainConfig(writeFile(t, "broken.yaml", "input_dir: [\n"))
	require.Error(t, err)

	t.Setenv(EnvStrictFilenames, "maybe")
	_, err = LoadMainConfig("")
	require.Error(t, err)
}

func TestOverrides_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "names.yaml")
	customers := []string{"Zed", "José, Lda", "true", "123"}

	require.NoError(t, WriteOverridesTemplate(path, customers))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "# Customer display names")

	overrides, err := LoadOverrides(path)
	require.NoError(t, err)
	for _, c := range customers {
		assert.Equal(t, c, overrides[c])
	}
}

func TestLoadOverrides_DropsEmpty(t *testing.T) {
	path := writeFile(t, "names.yaml", "alice s.: Alice Smith\nBob: \"\"\n")

	overrides, err := LoadOverrides(path)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"alice s.": "Alice Smith"}, overrides)

	_, err = LoadOverrides(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}
