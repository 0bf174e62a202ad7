// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package llm

import (
	"encoding/json"

	"github.com/pdiddy/paper-writer/pkg/types"
)

// DecodeJSONObject decodes the first balanced {...} span of text into v.
// Models often wrap JSON in prose or code fences; the span search skips
// that wrapping and respects braces inside string literals. Any failure is
// a collaborator_response *types.Failure.
func DecodeJSONObject(text string, v any) error {
	span, ok := FirstJSONObject(text)
	if !ok {
		return types.NewFailure(types.FailureCollaboratorResponse, "no JSON object in response: %q", preview(text))
	}
	if err := json.Unmarshal([]byte(span), v); err != nil {
		return types.NewFailure(types.FailureCollaboratorResponse, "invalid JSON object: %v", err)
	}
	return nil
}

// FirstJSONObject returns the first brace-balanced span of text that starts
// with '{'. Braces inside JSON strings, including escaped quotes, do not
// count. A '{' that never closes is skipped in favour of a later one.
func FirstJSONObject(text string) (string, bool) {
	for start := 0; start < len(text); start++ {
		if text[start] != '{' {
			continue
		}
		if end, ok := balancedEnd(text, start); ok {
			return text[start:end], true
		}
	}
	return "", false
}

// balancedEnd returns the index just past the brace closing text[start].
func balancedEnd(text string, start int) (int, bool) {
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		c := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i + 1, true
			}
		}
	}
	return 0, false
}

func preview(s string) string {
	const n = 120
	r := []rune(s)
	if len(r) > n {
		return string(r[:n]) + "..."
	}
	return s
}
