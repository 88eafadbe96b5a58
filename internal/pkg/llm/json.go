package llm

import (
	"encoding/json"
	"strings"

	"bitbucket.org/airenas/slidego/internal/pkg/errs"
)

// DecodeJSON extracts and parses the JSON object from a model answer,
// tolerating markdown code fences around it
func DecodeJSON(answer string, res interface{}) error {
	s := strings.TrimSpace(answer)
	if i := strings.Index(s, "```"); i > -1 {
		s = s[i+3:]
		s = strings.TrimPrefix(s, "json")
		if i = strings.Index(s, "```"); i > -1 {
			s = s[:i]
		}
	}
	s = strings.TrimSpace(s)
	if i := strings.Index(s, "{"); i > 0 {
		s = s[i:]
	}
	if err := json.Unmarshal([]byte(s), res); err != nil {
		return errs.Wrap(errs.ProviderUnavailable, err, "can't parse model json")
	}
	return nil
}
