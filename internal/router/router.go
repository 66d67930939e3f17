// Package router maps inbound paths to protocol flavors, upstream
// endpoints, and the ordered rule set each flavor receives.
package router

import (
	"sort"
	"strings"

	"github.com/zenrelay/zenrelay/internal/config"
	"github.com/zenrelay/zenrelay/internal/rules"
)

// Route is the dispatch decision for one inbound path.
type Route struct {
	Flavor   rules.Flavor
	Upstream string
	Rules    []rules.Rule
}

// Table is built once at startup and read concurrently without locking.
type Table struct {
	routes map[string]Route
}

// New builds the dispatch table. The OpenAI-compatible chat completion
// paths get the usage flag injector; the Anthropic-compatible message
// paths get the model rewriter and, when enabled, the web search injector.
func New(cfg *config.Config) *Table {
	openai := Route{
		Flavor:   rules.FlavorOpenAI,
		Upstream: joinURL(cfg.Upstreams.OpenAI, "/chat/completions"),
		Rules:    []rules.Rule{rules.UsageFlag()},
	}

	anthropicRules := []rules.Rule{rules.ModelRewrite(cfg.ModelMap)}
	if cfg.WebSearch.Enabled {
		anthropicRules = append(anthropicRules, rules.WebSearchTool(searchSpec(cfg.WebSearch)))
	}

	anthropic := Route{
		Flavor:   rules.FlavorAnthropic,
		Upstream: joinURL(cfg.Upstreams.Anthropic, "/v1/messages"),
		Rules:    anthropicRules,
	}

	return &Table{
		routes: map[string]Route{
			"/v1/chat/completions": openai,
			"/chat/completions":    openai,
			"/v1/messages":         anthropic,
			"/messages":            anthropic,
		},
	}
}

// Match returns the route for path. A false return means the proxy answers
// 404 locally; no upstream connection is attempted.
func (t *Table) Match(path string) (Route, bool) {
	route, ok := t.routes[path]
	return route, ok
}

// Paths returns the registered inbound paths in sorted order.
func (t *Table) Paths() []string {
	paths := make([]string, 0, len(t.routes))
	for p := range t.routes {
		paths = append(paths, p)
	}

	sort.Strings(paths)

	return paths
}

func searchSpec(ws config.WebSearch) rules.WebSearchSpec {
	spec := rules.WebSearchSpec{
		MaxUses:        ws.MaxUses,
		AllowedDomains: ws.AllowedDomains,
		BlockedDomains: ws.BlockedDomains,
		Replace:        ws.OnConflict == config.ConflictReplace,
	}

	if loc := ws.UserLocation; loc != nil {
		userLocation := map[string]any{"type": loc.Type}
		if loc.Type == "" {
			userLocation["type"] = "approximate"
		}

		if loc.City != "" {
			userLocation["city"] = loc.City
		}

		if loc.Region != "" {
			userLocation["region"] = loc.Region
		}

		if loc.Country != "" {
			userLocation["country"] = loc.Country
		}

		if loc.Timezone != "" {
			userLocation["timezone"] = loc.Timezone
		}

		spec.UserLocation = userLocation
	}

	return spec
}

func joinURL(base, path string) string {
	return strings.TrimSuffix(base, "/") + path
}
