package analysis

import (
	"strings"

	apperrors "github.com/healthsnap/backend/pkg/errors"
)

// extractJSON pulls the JSON object out of a model response. Responses
// sometimes arrive wrapped in Markdown code fences or with prose around the
// object, so the fences are stripped and the outermost brace pair is taken.
func extractJSON(content string) (string, error) {
	cleaned := strings.TrimSpace(content)
	if strings.HasPrefix(cleaned, "```json") {
		cleaned = strings.TrimPrefix(cleaned, "```json")
		cleaned = strings.TrimSuffix(cleaned, "```")
	} else if strings.HasPrefix(cleaned, "```") {
		cleaned = strings.TrimPrefix(cleaned, "```")
		cleaned = strings.TrimSuffix(cleaned, "```")
	}
	cleaned = strings.TrimSpace(cleaned)

	start := strings.Index(cleaned, "{")
	end := strings.LastIndex(cleaned, "}")
	if start < 0 || end < start {
		return "", apperrors.NewExternalError("no JSON object found in model response", nil)
	}
	return cleaned[start : end+1], nil
}
