package llm

import (
	"encoding/json"
	"errors"
	"regexp"
	"strings"
)

var codeBlockRe = regexp.MustCompile("(?s)```(?:json)?\\s*\\n?(.*?)\\n?```")

// ErrNoJSON is returned when a model answer holds no decodable JSON object.
var ErrNoJSON = errors.New("llm: no JSON object in response")

// ExtractJSON decodes the JSON object in raw into v. It accepts a bare
// object, one wrapped in a markdown code block, or one embedded in prose.
func ExtractJSON(raw string, v any) error {
	if err := json.Unmarshal([]byte(strings.TrimSpace(raw)), v); err == nil {
		return nil
	}

	if matches := codeBlockRe.FindStringSubmatch(raw); len(matches) > 1 {
		if err := json.Unmarshal([]byte(strings.TrimSpace(matches[1])), v); err == nil {
			return nil
		}
	}

	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start >= 0 && end > start {
		if err := json.Unmarshal([]byte(raw[start:end+1]), v); err == nil {
			return nil
		}
	}

	return ErrNoJSON
}
