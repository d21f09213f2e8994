package classifier

import (
	"encoding/json"
	"regexp"
	"strings"
)

var jsonFenceRe = regexp.MustCompile("(?s)```json\\s*(\\{.*?\\})\\s*```")

type modelAnswer struct {
	Label          string `json:"label"`
	SuggestedLabel string `json:"suggested_label"`
	Rationale      string `json:"rationale"`
	Reasoning      string `json:"reasoning"`
}

// parseSuggestion extracts a label and rationale from raw model output.
// JSON is preferred, with or without a markdown code fence; as a last resort
// a "label:" line is scanned. ok is false when no label can be recovered.
func parseSuggestion(raw string) (label, rationale string, ok bool) {
	content := strings.TrimSpace(raw)
	if content == "" {
		return "", "", false
	}

	if m := jsonFenceRe.FindStringSubmatch(content); m != nil {
		content = m[1]
	} else if strings.Contains(content, "```") {
		content = strings.TrimSpace(strings.ReplaceAll(content, "```", ""))
	}

	var answer modelAnswer
	if err := json.Unmarshal([]byte(content), &answer); err == nil {
		label = strings.TrimSpace(answer.Label)
		if label == "" {
			label = strings.TrimSpace(answer.SuggestedLabel)
		}
		if label != "" {
			rationale = strings.TrimSpace(answer.Rationale)
			if rationale == "" {
				rationale = strings.TrimSpace(answer.Reasoning)
			}
			return label, rationale, true
		}
	}

	// Heuristic fallback: find a line like `label: X` or `"label": "X"`.
	for _, line := range strings.Split(content, "\n") {
		key, val, found := strings.Cut(line, ":")
		if !found {
			continue
		}
		switch strings.ToLower(strings.TrimSpace(key)) {
		case "label", `"label"`, "suggested_label", `"suggested_label"`:
			val = strings.TrimSpace(val)
			val = strings.TrimSuffix(val, ",")
			val = strings.Trim(val, `"`)
			val = strings.TrimSpace(val)
			if val != "" {
				return val, "", true
			}
		}
	}

	return "", "", false
}
