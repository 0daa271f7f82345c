package ai

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// Pre-compiled patterns; compiling per parse is far slower.
var (
	// Matches ```json ... ``` fences anywhere in the text
	codeFenceRegex = regexp.MustCompile("(?s)`{3}(?:json)?\\s*\\n?([\\s\\S]*?)\\n?`{3}")

	trailingCommaRegex = regexp.MustCompile(`,(\s*[}\]])`)

	// Extraction patterns; greedy to keep nested structures intact
	objectRegex = regexp.MustCompile(`(?s)\{[\s\S]*\}`)
	arrayRegex  = regexp.MustCompile(`(?s)\[[\s\S]*\]`)
)

// parseJSON decodes a model response into T, tolerating the formatting
// quirks vision models habitually produce.
//
// Strategy sequence:
//  1. Direct JSON parse
//  2. Strip markdown code fences and retry
//  3. Remove trailing commas and retry
//  4. Extract the JSON object/array from surrounding prose and retry
func parseJSON[T any](text, context string) (T, error) {
	var zero T

	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return zero, fmt.Errorf("%s: empty response", context)
	}

	if result, err := tryDecode[T](trimmed); err == nil {
		return result, nil
	}

	withoutFences := strings.TrimSpace(codeFenceRegex.ReplaceAllString(trimmed, "$1"))
	if withoutFences != trimmed {
		if result, err := tryDecode[T](withoutFences); err == nil {
			return result, nil
		}
	}

	cleaned := trailingCommaRegex.ReplaceAllString(withoutFences, "$1")
	if result, err := tryDecode[T](cleaned); err == nil {
		return result, nil
	}

	if extracted := extractJSON(cleaned); extracted != "" {
		if result, err := tryDecode[T](extracted); err == nil {
			return result, nil
		}
	}

	return zero, fmt.Errorf("%s: no parsing strategy succeeded, response: %s", context, truncate(text, 500))
}

func tryDecode[T any](text string) (T, error) {
	var result T
	err := json.Unmarshal([]byte(text), &result)
	return result, err
}

// extractJSON pulls the first JSON object or array out of mixed prose.
// The leading-character check keeps an array response from being
// truncated to its first element.
func extractJSON(text string) string {
	trimmed := strings.TrimSpace(text)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		return arrayRegex.FindString(text)
	}
	if match := objectRegex.FindString(text); match != "" {
		return match
	}
	return arrayRegex.FindString(text)
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
