package vision

import (
	"fmt"
	"strings"

	"github.com/zombor/receipt-forensics/internal/analysis"
)

// ExtractJSON returns the JSON object embedded in a model answer, dropping
// markdown code fences and any chatter around the object.
func ExtractJSON(text string) (string, error) {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(strings.TrimSpace(text), "```")
	text = strings.TrimSpace(text)
	if text == "" {
		return "", analysis.ErrEmptyModelResponse
	}

	start := strings.Index(text, "{")
	if start == -1 {
		return "", fmt.Errorf("%w: no JSON object found in response", analysis.ErrSchemaViolation)
	}
	end := strings.LastIndex(text, "}")
	if end < start {
		return "", fmt.Errorf("%w: invalid JSON object in response", analysis.ErrSchemaViolation)
	}
	return text[start : end+1], nil
}
