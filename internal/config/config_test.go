package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
	return p
}

func TestParse_Defaults(t *testing.T) {
	cfg, err := Parse([]byte("version: v1\n"))
	require.NoError(t, err)

	assert.Equal(t, ":8000", cfg.Server.Addr)
	assert.Equal(t, 64, cfg.Server.MaxUploadMB)
	assert.Equal(t, int64(64<<20), cfg.Server.MaxUploadBytes())
	assert.Equal(t, []string{".xes", ".xes.gz", ".xes.zst"}, cfg.Server.AllowedExtensions)
	assert.Equal(t, 4, cfg.Engine.Workers)
	assert.Equal(t, 64, cfg.Engine.QueueDepth)
	assert.Equal(t, 30000, cfg.Engine.TimeoutMs)
	assert.Equal(t, "fail", cfg.Analysis.TracePolicy)
	assert.NoError(t, Validate(cfg))
}

func TestParse_Full(t *testing.T) {
	cfg, err := Parse([]byte(`
version: v1
server:
  addr: ":9000"
  max_upload_mb: 8
  allowed_extensions: [".xes"]
  cors:
    allowed_origins: ["http://localhost:3000"]
engine:
  workers: 2
  queue_depth: 10
  timeout_ms: 500
analysis:
  trace_policy: skip
  timestamp_layouts: ["02/01/2006 15:04"]
`))
	require.NoError(t, err)
	require.NoError(t, Validate(cfg))

	assert.Equal(t, ":9000", cfg.Server.Addr)
	assert.Equal(t, []string{"http://localhost:3000"}, cfg.Server.CORS.AllowedOrigins)
	assert.Equal(t, 2, cfg.Engine.Workers)
	assert.Equal(t, "skip", cfg.Analysis.TracePolicy)
	assert.Equal(t, []string{"02/01/2006 15:04"}, cfg.Analysis.TimestampLayouts)
}

func TestValidate(t *testing.T) {
	base := func() *ServiceConfig {
		cfg, err := Parse([]byte("version: v1\n"))
		require.NoError(t, err)
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*ServiceConfig)
		wantMsg string
	}{
		{"missing version", func(c *ServiceConfig) { c.Version = "" }, "version is required"},
		{"negative upload", func(c *ServiceConfig) { c.Server.MaxUploadMB = -1 }, "max_upload_mb must be positive"},
		{"bad extension", func(c *ServiceConfig) { c.Server.AllowedExtensions = []string{"xes"} }, "must start with a dot"},
		{"zero workers", func(c *ServiceConfig) { c.Engine.Workers = -2 }, "engine.workers must be positive"},
		{"unknown policy", func(c *ServiceConfig) { c.Analysis.TracePolicy = "ignore" }, "trace_policy must be fail or skip"},
		{"bad layout", func(c *ServiceConfig) { c.Analysis.TimestampLayouts = []string{"not a layout"} }, "does not round-trip"},
		{"empty origin", func(c *ServiceConfig) { c.Server.CORS.AllowedOrigins = []string{""} }, "allowed_origins[0]"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(cfg)
			err := Validate(cfg)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}
}

func TestLoader_EnvOverrides(t *testing.T) {
	dir := t.TempDir()
	p := writeFile(t, dir, "server.yaml", "version: v1\nserver:\n  addr: \":9000\"\n")

	t.Setenv(EnvAddr, ":7000")
	t.Setenv(EnvMaxUploadMB, "16")
	t.Setenv(EnvWorkers, "9")
	t.Setenv(EnvCORSOrigins, "http://a.test, http://b.test,")

	l, err := NewLoader(p)
	require.NoError(t, err)
	cfg := l.Config()
	assert.Equal(t, ":7000", cfg.Server.Addr)
	assert.Equal(t, 16, cfg.Server.MaxUploadMB)
	assert.Equal(t, 9, cfg.Engine.Workers)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.Server.CORS.AllowedOrigins)
}

func TestLoader_BadEnvValue(t *testing.T) {
	p := writeFile(t, t.TempDir(), "server.yaml", "version: v1\n")
	t.Setenv(EnvWorkers, "many")
	_, err := NewLoader(p)
	require.Error(t, err)
	assert.Contains(t, err.Error(), EnvWorkers)
}

func TestLoader_Reload(t *testing.T) {
	dir := t.TempDir()
	p := writeFile(t, dir, "server.yaml", "version: v1\nanalysis:\n  trace_policy: fail\n")

	l, err := NewLoader(p)
	require.NoError(t, err)

	var seen []string
	l.OnChange(func(c *ServiceConfig) { seen = append(seen, c.Analysis.TracePolicy) })

	writeFile(t, dir, "server.yaml", "version: v1\nanalysis:\n  trace_policy: skip\n")
	cfg, err := l.Reload()
	require.NoError(t, err)
	assert.Equal(t, "skip", cfg.Analysis.TracePolicy)
	assert.Equal(t, "skip", l.Config().Analysis.TracePolicy)
	assert.Equal(t, []string{"skip"}, seen)

	// An invalid file keeps the previous config and fires no callback.
	writeFile(t, dir, "server.yaml", "version: v1\nanalysis:\n  trace_policy: maybe\n")
	_, err = l.Reload()
	require.Error(t, err)
	assert.Equal(t, "skip", l.Config().Analysis.TracePolicy)
	assert.Len(t, seen, 1)
}

func TestLoader_MissingFile(t *testing.T) {
	_, err := NewLoader(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	p := writeFile(t, dir, "test.env", "XES_TEST_DOTENV_KEY=from-file\n")
	t.Setenv("XES_TEST_DOTENV_KEY", "")
	require.NoError(t, os.Unsetenv("XES_TEST_DOTENV_KEY"))

	require.NoError(t, LoadDotEnv(p))
	assert.Equal(t, "from-file", os.Getenv("XES_TEST_DOTENV_KEY"))

	// Missing files are not an error.
	require.NoError(t, LoadDotEnv(filepath.Join(dir, "missing.env")))
}
