package config

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() Config {
	cfg := Default()
	cfg.InputRoot = "/photos/in"
	cfg.OutputRoot = "/photos/out"
	return cfg
}

func TestDefault(t *testing.T) {
	t.Parallel()

	cfg := Default()
	assert.Equal(t, runtime.NumCPU(), cfg.Workers)
	assert.Equal(t, DefaultReportName, cfg.ReportName)
	assert.Equal(t, CodecOpenCV, cfg.Codec)
	assert.Equal(t, 25.0, cfg.NoiseScale)
	assert.Equal(t, 20.0, cfg.EdgeThreshold)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, DefaultExtensions, cfg.Extensions)

	cfg.Extensions[0] = ".xyz"
	assert.Equal(t, ".jpg", DefaultExtensions[0])
}

func TestLoadKeepsDefaultsForOmittedFields(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "clean.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
  "input_root": "/data/in",
  "output_root": "/data/out",
  "workers": 3,
  "codec": "go",
  "extensions": ["JPG", ".png"]
}`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	want := Default()
	want.InputRoot = "/data/in"
	want.OutputRoot = "/data/out"
	want.Workers = 3
	want.Codec = CodecGo
	want.Extensions = []string{"JPG", ".png"}
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Errorf("Load() mismatch (-want +got):\n%s", diff)
	}

	require.NoError(t, cfg.Validate())
	assert.Equal(t, []string{".jpg", ".png"}, cfg.Extensions)
	assert.True(t, cfg.AcceptsExt(".JPG"))
	assert.False(t, cfg.AcceptsExt(".gif"))
	assert.Equal(t, filepath.Join("/data/out", DefaultReportName), cfg.ReportPath())
}

func TestDefaultExtensionsFollowCodec(t *testing.T) {
	t.Parallel()

	opencvCfg := validConfig()
	require.NoError(t, opencvCfg.Validate())
	assert.True(t, opencvCfg.AcceptsExt(".webp"))

	goCfg := validConfig()
	goCfg.Codec = CodecGo
	require.NoError(t, goCfg.Validate())
	assert.False(t, goCfg.AcceptsExt(".webp"))
	assert.True(t, goCfg.AcceptsExt(".jpg"))
	assert.Contains(t, DefaultExtensions, ".webp")

	explicit := validConfig()
	explicit.Codec = CodecGo
	explicit.Extensions = []string{".webp", ".png"}
	require.NoError(t, explicit.Validate())
	assert.Equal(t, []string{".webp", ".png"}, explicit.Extensions)
}

func TestLoadErrors(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	_, err := Load(filepath.Join(dir, "config.yaml"))
	assert.ErrorContains(t, err, ".json extension")

	_, err = Load(filepath.Join(dir, "missing.json"))
	assert.ErrorContains(t, err, "failed to stat")

	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte("{not json"), 0o644))
	_, err = Load(bad)
	assert.ErrorContains(t, err, "failed to parse")

	big := filepath.Join(dir, "big.json")
	require.NoError(t, os.WriteFile(big, make([]byte, maxFileSize+1), 0o644))
	_, err = Load(big)
	assert.ErrorContains(t, err, "too large")
}

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(*Config) {}, ""},
		{"warning level", func(c *Config) { c.LogLevel = "WARNING" }, ""},
		{"no input", func(c *Config) { c.InputRoot = "" }, "input_root"},
		{"no output", func(c *Config) { c.OutputRoot = "" }, "output_root"},
		{"same roots", func(c *Config) { c.OutputRoot = c.InputRoot + "/" }, "must differ"},
		{"report path", func(c *Config) { c.ReportName = "a/b.txt" }, "report_name"},
		{"zero workers", func(c *Config) { c.Workers = 0 }, "workers"},
		{"negative queue", func(c *Config) { c.QueueSize = -1 }, "queue_size"},
		{"no extensions", func(c *Config) { c.Extensions = nil }, "extension"},
		{"blank extension", func(c *Config) { c.Extensions = []string{" "} }, "empty"},
		{"codec", func(c *Config) { c.Codec = "magick" }, "codec"},
		{"quality", func(c *Config) { c.JPEGQuality = 101 }, "jpeg_quality"},
		{"noise scale", func(c *Config) { c.NoiseScale = 0 }, "noise_scale"},
		{"edge threshold", func(c *Config) { c.EdgeThreshold = -1 }, "edge_threshold"},
		{"log level", func(c *Config) { c.LogLevel = "verbose" }, "log_level"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := validConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}
