package extract

import (
	"encoding/json"
	"strings"

	"github.com/rotisserie/eris"
)

// ParseExtraction decodes the extractor's JSON answer. Model output is
// fence-tolerant: a leading ```json fence or prose around the object is
// stripped before decoding.
func ParseExtraction(text string) (*PageExtraction, error) {
	cleaned := cleanJSON(text)
	if cleaned == "" {
		return nil, eris.New("extract: empty extraction response")
	}

	var ext PageExtraction
	if err := json.Unmarshal([]byte(cleaned), &ext); err != nil {
		return nil, eris.Wrap(err, "extract: parse extraction JSON")
	}
	if ext.Fields == nil {
		ext.Fields = map[string]ExtractedField{}
	}
	return &ext, nil
}

// cleanJSON strips markdown fences and surrounding prose, keeping the
// outermost JSON object.
func cleanJSON(text string) string {
	text = strings.TrimSpace(text)

	if strings.HasPrefix(text, "```json") {
		text = strings.TrimPrefix(text, "```json")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
	} else if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
	}

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start >= 0 && end > start {
		text = text[start : end+1]
	}

	return strings.TrimSpace(text)
}
