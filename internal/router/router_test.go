package router

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zenrelay/zenrelay/internal/config"
	"github.com/zenrelay/zenrelay/internal/rules"
)

func testConfig() *config.Config {
	return &config.Config{
		Upstreams: config.Upstreams{
			OpenAI:    "https://zenmux.ai/api/v1",
			Anthropic: "https://zenmux.ai/api/anthropic/",
		},
		ModelMap: map[string]string{"claude-3-opus": "zenmux/claude-3-opus-v2"},
	}
}

func TestMatch_OpenAIRoutes(t *testing.T) {
	table := New(testConfig())

	for _, path := range []string{"/v1/chat/completions", "/chat/completions"} {
		route, ok := table.Match(path)
		require.True(t, ok, path)
		assert.Equal(t, rules.FlavorOpenAI, route.Flavor)
		assert.Equal(t, "https://zenmux.ai/api/v1/chat/completions", route.Upstream)
		assert.Len(t, route.Rules, 1)
	}
}

func TestMatch_AnthropicRoutes(t *testing.T) {
	table := New(testConfig())

	for _, path := range []string{"/v1/messages", "/messages"} {
		route, ok := table.Match(path)
		require.True(t, ok, path)
		assert.Equal(t, rules.FlavorAnthropic, route.Flavor)
		assert.Equal(t, "https://zenmux.ai/api/anthropic/v1/messages", route.Upstream)
	}
}

func TestMatch_UnknownPath(t *testing.T) {
	table := New(testConfig())

	for _, path := range []string{"/foo", "/v1/embeddings", "/", "/v1/messages/extra"} {
		_, ok := table.Match(path)
		assert.False(t, ok, path)
	}
}

func TestPaths_SortedAndComplete(t *testing.T) {
	table := New(testConfig())

	assert.Equal(t, []string{
		"/chat/completions",
		"/messages",
		"/v1/chat/completions",
		"/v1/messages",
	}, table.Paths())
}

func TestNew_WebSearchToggleControlsRuleSet(t *testing.T) {
	cfg := testConfig()
	table := New(cfg)
	route, _ := table.Match("/v1/messages")
	assert.Len(t, route.Rules, 1, "disabled web search adds no rule")

	cfg.WebSearch.Enabled = true
	cfg.WebSearch.MaxUses = 3
	table = New(cfg)
	route, _ = table.Match("/v1/messages")
	assert.Len(t, route.Rules, 2)
}

func TestSearchSpec_UserLocationDefaultsType(t *testing.T) {
	spec := searchSpec(config.WebSearch{
		UserLocation: &config.UserLocation{City: "Berlin"},
	})

	require.NotNil(t, spec.UserLocation)
	assert.Equal(t, "approximate", spec.UserLocation["type"])
	assert.Equal(t, "Berlin", spec.UserLocation["city"])
}

func TestSearchSpec_ConflictPolicy(t *testing.T) {
	assert.False(t, searchSpec(config.WebSearch{OnConflict: config.ConflictSkip}).Replace)
	assert.True(t, searchSpec(config.WebSearch{OnConflict: config.ConflictReplace}).Replace)
}
