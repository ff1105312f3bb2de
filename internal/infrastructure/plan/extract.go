package plan

import (
	"encoding/json"
	"regexp"
)

// ExtractionFailure is the JSON object synthesized when no plan object can
// be pulled out of the model text.
const ExtractionFailure = `{"error": "Failed to extract JSON from AI response."}`

var (
	fencedJSONRe    = regexp.MustCompile("(?is)```json\\s*(\\{[\\s\\S]*?\\})\\s*```")
	fencedGenericRe = regexp.MustCompile("(?s)```\\s*(\\{[\\s\\S]*?\\})\\s*```")
)

// ExtractJSON pulls the first top-level JSON object out of free-form model
// text. Preference order: a fenced block tagged json, any fenced block, a
// balanced top-level brace group outside string literals. When nothing is
// found it returns ExtractionFailure rather than an error, so the result is
// always parseable by Parse.
func ExtractJSON(text string) string {
	if m := fencedJSONRe.FindStringSubmatch(text); m != nil {
		return m[1]
	}
	if m := fencedGenericRe.FindStringSubmatch(text); m != nil {
		return m[1]
	}
	if obj := balancedBraces(text); obj != "" {
		return obj
	}
	return ExtractionFailure
}

// Extracted reports whether jsonText carries an error field — i.e. whether
// extraction (or the source itself) failed. A non-JSON input counts as
// failed too.
func Extracted(jsonText string) bool {
	var envelope struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal([]byte(jsonText), &envelope); err != nil {
		return false
	}
	return envelope.Error == ""
}

// balancedBraces scans for the first balanced top-level {...} group,
// ignoring braces inside string literals and escape sequences.
func balancedBraces(text string) string {
	var (
		inString bool
		escaped  bool
		depth    int
		start    = -1
	)
	for i, ch := range text {
		if escaped {
			escaped = false
			continue
		}
		switch ch {
		case '\\':
			if inString {
				escaped = true
			}
		case '"':
			inString = !inString
		case '{':
			if inString {
				continue
			}
			if depth == 0 {
				start = i
			}
			depth++
		case '}':
			if inString {
				continue
			}
			if depth == 0 {
				continue
			}
			depth--
			if depth == 0 && start != -1 {
				return text[start : i+1]
			}
		}
	}
	return ""
}
