package rules

import (
	"fmt"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// Anthropic's server-side web search tool. The model runs searches
// upstream instead of round-tripping a tool_use block to the client.
const (
	WebSearchToolType = "web_search_20250305"
	WebSearchToolName = "web_search"
)

// WebSearchSpec configures the injected tool declaration.
type WebSearchSpec struct {
	MaxUses        int
	AllowedDomains []string
	BlockedDomains []string
	UserLocation   map[string]any
	// Replace controls what happens when the request already declares a
	// tool named "web_search": true swaps it for the configured one,
	// false keeps the client's declaration.
	Replace bool
}

func (s WebSearchSpec) tool() map[string]any {
	t := map[string]any{
		"type": WebSearchToolType,
		"name": WebSearchToolName,
	}

	if s.MaxUses > 0 {
		t["max_uses"] = s.MaxUses
	}

	if len(s.AllowedDomains) > 0 {
		t["allowed_domains"] = s.AllowedDomains
	}

	if len(s.BlockedDomains) > 0 {
		t["blocked_domains"] = s.BlockedDomains
	}

	if len(s.UserLocation) > 0 {
		t["user_location"] = s.UserLocation
	}

	return t
}

// WebSearchTool returns the rule that appends the web search tool to an
// Anthropic-compatible request. Existing tools keep their order; a missing
// `tools` array is created with the search tool as its only entry.
func WebSearchTool(spec WebSearchSpec) Rule {
	return func(body []byte) ([]byte, error) {
		if !validJSONObject(body) {
			return nil, ErrInvalidBody
		}

		tools := gjson.GetBytes(body, "tools")
		if tools.Exists() && !tools.IsArray() {
			return nil, fmt.Errorf("tools field is not an array: %w", ErrInvalidBody)
		}

		existing := -1

		for i, t := range tools.Array() {
			if t.Get("name").String() == WebSearchToolName {
				existing = i
				break
			}
		}

		if existing >= 0 {
			if !spec.Replace {
				return body, nil
			}

			return sjson.SetBytes(body, fmt.Sprintf("tools.%d", existing), spec.tool())
		}

		return sjson.SetBytes(body, "tools.-1", spec.tool())
	}
}
