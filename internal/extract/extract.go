// Package extract recovers a JSON object candidate from free-form model output.
package extract

import "strings"

const fence = "```"

// JSON returns the span from the first '{' to the last '}' of text, after
// dropping markdown fence lines when the text opens with one. Text without
// such a span is returned as is and will usually fail to parse.
//
// The match is greedy: two sibling objects in one response come back as a
// single span.
func JSON(text string) string {
	if text == "" {
		return text
	}

	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, fence) {
		text = stripFences(text)
	}

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start != -1 && end > start {
		return text[start : end+1]
	}
	return text
}

// stripFences removes every line that is a fence marker, language tag included.
func stripFences(text string) string {
	lines := strings.Split(text, "\n")
	kept := lines[:0]
	for _, line := range lines {
		if strings.HasPrefix(strings.TrimSpace(line), fence) {
			continue
		}
		kept = append(kept, strings.TrimSuffix(line, "\r"))
	}
	return strings.Join(kept, "\n")
}
