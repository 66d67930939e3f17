package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManager_LoadJSON(t *testing.T) {
	tempDir := t.TempDir()
	mgr := NewManager(tempDir)

	jsonConfig := `{
		"host": "0.0.0.0",
		"port": 8080,
		"proxy_url": "http://127.0.0.1:10809",
		"model_map": {
			"claude-3-opus": "zenmux/claude-3-opus-v2"
		},
		"web_search": {
			"enabled": true,
			"max_uses": 3
		}
	}`

	err := os.WriteFile(filepath.Join(tempDir, DefaultJSONFilename), []byte(jsonConfig), 0o644)
	require.NoError(t, err)

	cfg, err := mgr.Load()
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0", cfg.Host)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "http://127.0.0.1:10809", cfg.ProxyURL)
	assert.Equal(t, "zenmux/claude-3-opus-v2", cfg.ModelMap["claude-3-opus"])
	assert.True(t, cfg.WebSearch.Enabled)
	assert.Equal(t, 3, cfg.WebSearch.MaxUses)

	// Defaults fill the gaps
	assert.Equal(t, DefaultOpenAIBase, cfg.Upstreams.OpenAI)
	assert.Equal(t, DefaultAnthropicBase, cfg.Upstreams.Anthropic)
	assert.Equal(t, ConflictSkip, cfg.WebSearch.OnConflict)
}

func TestManager_LoadYAML(t *testing.T) {
	tempDir := t.TempDir()
	mgr := NewManager(tempDir)

	yamlConfig := `
host: "0.0.0.0"
port: 9090
upstreams:
  openai: "https://example.com/v1"
model_map:
  claude-3-opus: "zenmux/claude-3-opus-v2"
web_search:
  enabled: true
  on_conflict: replace
  user_location:
    city: Berlin
`

	err := os.WriteFile(filepath.Join(tempDir, DefaultYAMLFilename), []byte(yamlConfig), 0o644)
	require.NoError(t, err)

	cfg, err := mgr.Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, "https://example.com/v1", cfg.Upstreams.OpenAI)
	assert.Equal(t, DefaultAnthropicBase, cfg.Upstreams.Anthropic)
	assert.Equal(t, ConflictReplace, cfg.WebSearch.OnConflict)
	require.NotNil(t, cfg.WebSearch.UserLocation)
	assert.Equal(t, "Berlin", cfg.WebSearch.UserLocation.City)
}

func TestManager_YAMLTakesPrecedence(t *testing.T) {
	tempDir := t.TempDir()
	mgr := NewManager(tempDir)

	require.NoError(t, os.WriteFile(filepath.Join(tempDir, DefaultJSONFilename), []byte(`{"port": 1111}`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(tempDir, DefaultYAMLFilename), []byte("port: 2222"), 0o644))

	cfg, err := mgr.Load()
	require.NoError(t, err)

	assert.Equal(t, 2222, cfg.Port)
	assert.Equal(t, filepath.Join(tempDir, DefaultYAMLFilename), mgr.GetPath())
}

func TestManager_MissingConfig(t *testing.T) {
	mgr := NewManager(t.TempDir())

	_, err := mgr.Load()
	assert.Error(t, err)

	// Get falls back to defaults instead of failing
	cfg := mgr.Get()
	require.NotNil(t, cfg)
	assert.Equal(t, DefaultHost, cfg.Host)
	assert.Equal(t, DefaultPort, cfg.Port)
}

func TestManager_SaveRoundTrip(t *testing.T) {
	tempDir := t.TempDir()
	mgr := NewManager(tempDir)

	cfg := &Config{
		Host: "127.0.0.1",
		Port: 11731,
		ModelMap: map[string]string{
			"claude-3-opus": "zenmux/claude-3-opus-v2",
		},
		WebSearch: WebSearch{OnConflict: ConflictSkip},
	}

	require.NoError(t, mgr.Save(cfg))
	assert.True(t, mgr.Exists())

	loaded, err := mgr.Load()
	require.NoError(t, err)
	assert.Equal(t, cfg.ModelMap, loaded.ModelMap)
}

func TestValidate(t *testing.T) {
	cfg := &Config{WebSearch: WebSearch{OnConflict: "merge"}}
	assert.Error(t, cfg.Validate())

	cfg = &Config{WebSearch: WebSearch{
		OnConflict:     ConflictSkip,
		AllowedDomains: []string{"a.com"},
		BlockedDomains: []string{"b.com"},
	}}
	assert.Error(t, cfg.Validate())

	cfg = &Config{WebSearch: WebSearch{OnConflict: ConflictReplace}}
	assert.NoError(t, cfg.Validate())
}
