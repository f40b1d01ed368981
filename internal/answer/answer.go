// Package answer extracts and validates the final answer of a benchmark run.
//
// The validator uses a suffix rule: the marker is expected to END the checked
// string, and the payload is the text preceding its last occurrence. Callers
// holding an already extracted answer build the candidate with Suffixed. A
// string without any marker is checked as a bare payload.
package answer

import (
	"strings"
	"unicode"
)

// Marker delimits the model's reasoning from its terminal answer.
const Marker = "FINAL ANSWER:"

const (
	ReasonValid            = "valid"
	ReasonEmpty            = "answer is empty"
	ReasonEmptyFinalAnswer = "final answer is empty"
	ReasonInvalidElements  = "answer contains invalid elements"
)

// Extract returns the trimmed text following the last occurrence of Marker.
// The boolean is false when content carries no marker.
func Extract(content string) (string, bool) {
	idx := strings.LastIndex(content, Marker)
	if idx < 0 {
		return "", false
	}
	return strings.TrimSpace(content[idx+len(Marker):]), true
}

// Suffixed renders payload in the marker-suffixed form Validate expects.
func Suffixed(payload string) string {
	return payload + " " + Marker + " "
}

// Validate reports whether candidate satisfies the final-answer grammar.
// It never panics and is a pure function of its input.
func Validate(candidate string) (bool, string) {
	trimmed := strings.TrimSpace(candidate)
	if trimmed == "" {
		return false, ReasonEmpty
	}

	payload := trimmed
	if idx := strings.LastIndex(trimmed, Marker); idx >= 0 {
		payload = trimmed[:idx]
	}
	payload = strings.TrimSpace(payload)
	if payload == "" {
		return false, ReasonEmptyFinalAnswer
	}

	if isDigits(payload) {
		return true, ReasonValid
	}

	for _, part := range strings.Split(payload, ",") {
		part = strings.TrimSpace(part)
		if isDigits(part) || isDecimal(part) {
			continue
		}
		if !isAlpha(strings.ReplaceAll(part, " ", "")) {
			return false, ReasonInvalidElements
		}
	}

	return true, ReasonValid
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

// isDecimal accepts digits with at most one decimal point.
func isDecimal(s string) bool {
	return isDigits(strings.Replace(s, ".", "", 1))
}

func isAlpha(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !unicode.IsLetter(r) {
			return false
		}
	}
	return true
}
