// Package rules implements the request body rewrites applied before a
// request is forwarded upstream. Each rule is a pure function over raw JSON
// bytes; fields a rule does not touch are preserved byte for byte.
package rules

import (
	"errors"

	"github.com/tidwall/gjson"
)

// Flavor tags the wire protocol of an inbound request.
type Flavor string

const (
	FlavorOpenAI    Flavor = "openai"
	FlavorAnthropic Flavor = "anthropic"
)

// ErrInvalidBody is returned when a rule expects JSON and the body is not
// valid JSON. A request failing any rule is never forwarded.
var ErrInvalidBody = errors.New("request body is not valid JSON")

// Rule rewrites a JSON request body. Rules either fully apply or return the
// body unchanged; a partial rewrite is never produced.
type Rule func(body []byte) ([]byte, error)

// Apply runs rules in order over body. The first failing rule aborts the
// chain.
func Apply(body []byte, rs []Rule) ([]byte, error) {
	for _, r := range rs {
		next, err := r(body)
		if err != nil {
			return nil, err
		}

		body = next
	}

	return body, nil
}

func validJSONObject(body []byte) bool {
	return gjson.ValidBytes(body) && gjson.ParseBytes(body).IsObject()
}
