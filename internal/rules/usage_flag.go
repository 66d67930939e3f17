package rules

import (
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// UsageFlag returns the rule that asks an OpenAI-compatible upstream to
// report token accounting on streamed responses. When `stream` is true it
// sets `stream_options.include_usage` to true, creating `stream_options` if
// absent and leaving its other fields alone. Non-streamed bodies pass
// through untouched.
func UsageFlag() Rule {
	return func(body []byte) ([]byte, error) {
		if !validJSONObject(body) {
			return nil, ErrInvalidBody
		}

		stream := gjson.GetBytes(body, "stream")
		if !stream.Exists() || stream.Type != gjson.True {
			return body, nil
		}

		return sjson.SetBytes(body, "stream_options.include_usage", true)
	}
}
