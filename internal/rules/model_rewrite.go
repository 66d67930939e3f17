package rules

import (
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// ModelRewrite returns the rule that maps the client-facing `model` name to
// the provider's internal identifier. Lookup is exact string equality; a
// miss leaves the body untouched. No fuzzy or prefix matching, so unrelated
// model families are never rewritten by accident.
func ModelRewrite(aliases map[string]string) Rule {
	return func(body []byte) ([]byte, error) {
		if !validJSONObject(body) {
			return nil, ErrInvalidBody
		}

		model := gjson.GetBytes(body, "model")
		if model.Type != gjson.String {
			return body, nil
		}

		alias, ok := aliases[model.String()]
		if !ok {
			return body, nil
		}

		return sjson.SetBytes(body, "model", alias)
	}
}
