package configutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

type testConfig struct {
	Endpoint string `json:"endpoint"`
	Debug    bool   `json:"debug"`
}

func TestReadConfigMergesLocalOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json5")

	require.NoError(t, os.WriteFile(path, []byte(`{
		// checked-in defaults
		endpoint: "https://example.com",
		debug: false,
	}`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.local.json5"), []byte(`{
		debug: true,
	}`), 0o644))

	config, err := ReadConfig[testConfig](path)
	require.NoError(t, err)
	require.Equal(t, "https://example.com", config.Endpoint)
	require.True(t, config.Debug)
}

func TestReadConfigLocalOnly(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.local.json5"), []byte(`{
		endpoint: "https://local.example.com",
	}`), 0o644))

	config, err := ReadConfig[testConfig](filepath.Join(dir, "config.json5"))
	require.NoError(t, err)
	require.Equal(t, "https://local.example.com", config.Endpoint)
}

func TestReadConfigMissing(t *testing.T) {
	_, err := ReadConfig[testConfig](filepath.Join(t.TempDir(), "config.json5"))
	require.True(t, os.IsNotExist(err))
}

func TestReadConfigMalformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json5")
	require.NoError(t, os.WriteFile(path, []byte(`{endpoint:`), 0o644))

	_, err := ReadConfig[testConfig](path)
	require.Error(t, err)
	require.Contains(t, err.Error(), path)
}

func TestLocalPath(t *testing.T) {
	require.Equal(t, "config.local.json5", localPath("config.json5"))
	require.Equal(t, filepath.Join("etc", "telemetry.local.json5"), localPath(filepath.Join("etc", "telemetry.json5")))
}
