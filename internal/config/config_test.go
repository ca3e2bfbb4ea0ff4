package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func isolate(t *testing.T) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	for _, k := range []string{"INSIGHT_API_KEY", "INSIGHT_PROVIDER", "INSIGHT_CONTAMINATION", "INSIGHT_MODEL"} {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
}

func TestLoadDefaults(t *testing.T) {
	isolate(t)
	c, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "openrouter", c.Provider)
	assert.Equal(t, 0.1, c.Contamination)
	assert.Equal(t, 100, c.Estimators)
	assert.Equal(t, 256, c.MaxSamples)
	assert.EqualValues(t, 42, c.Seed)
	assert.Equal(t, 10000, c.InferRows)
	assert.Equal(t, []string{"md", "html", "json"}, c.Formats)
	assert.Equal(t, filepath.Join("reports", ".runs"), c.RunsDir)
	assert.Equal(t, 30*time.Second, c.NarrativeTimeout())
	require.NoError(t, c.Validate())
	assert.NotEmpty(t, c.Warnings())
	assert.False(t, c.NarrativeEnabled())
}

func TestLoadFileAndEnvPrecedence(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("contamination: 0.2\nmodel: file-model\nformats: [json, xlsx]\n"), 0o600))
	t.Setenv("INSIGHT_MODEL", "env-model")
	t.Setenv("INSIGHT_API_KEY", "sk-test")

	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 0.2, c.Contamination)
	assert.Equal(t, "env-model", c.Model)
	assert.Equal(t, "sk-test", c.APIKey)
	require.NoError(t, c.Validate())
	assert.Equal(t, []string{"json", "xlsx"}, c.Formats)
	assert.Empty(t, c.Warnings())
	assert.True(t, c.NarrativeEnabled())
}

func TestMissingExplicitFileFallsBackToDefaults(t *testing.T) {
	isolate(t)
	c, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, 0.1, c.Contamination)
}

func TestValidateRejectsBadValues(t *testing.T) {
	isolate(t)
	cases := map[string]func(*Global){
		"contamination zero":  func(c *Global) { c.Contamination = 0 },
		"contamination large": func(c *Global) { c.Contamination = 0.6 },
		"estimators":          func(c *Global) { c.Estimators = 0 },
		"infer rows":          func(c *Global) { c.InferRows = 50 },
		"workers":             func(c *Global) { c.Workers = 0 },
		"format":              func(c *Global) { c.Formats = []string{"pdf"} },
		"provider":            func(c *Global) { c.Provider = "nope" },
		"timeout":             func(c *Global) { c.NarrativeTimeoutSec = 0 },
		"temperature":         func(c *Global) { c.Temperature = 3 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			c, err := Load("")
			require.NoError(t, err)
			mutate(c)
			assert.Error(t, c.Validate())
		})
	}
}

func TestSaveRoundTrip(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	c, err := Load("")
	require.NoError(t, err)
	c.Model = "saved-model"
	c.Estimators = 50
	require.NoError(t, Save(c, path))

	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "saved-model", got.Model)
	assert.Equal(t, 50, got.Estimators)
}

func TestRuntimeAndAnomalyConfig(t *testing.T) {
	isolate(t)
	c, err := Load("")
	require.NoError(t, err)
	rc := c.RuntimeConfig()
	assert.Equal(t, 60*time.Second, rc.HTTPTimeout)
	assert.Equal(t, 3, rc.Retry.Attempts)
	assert.Equal(t, 500*time.Millisecond, rc.Retry.BaseDelay)
	ac := c.AnomalyConfig()
	assert.EqualValues(t, 42, ac.Seed)
	assert.Equal(t, 0.1, ac.Contamination)
}
