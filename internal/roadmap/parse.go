package roadmap

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

var (
	codeFenceRe     = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)(?:```|$)")
	trailingCommaRe = regexp.MustCompile(`,\s*([}\]])`)
)

// Parse decodes JSON-ish model output tolerantly. Models wrap JSON in
// markdown fences, prepend prose, emit trailing commas, and truncate
// mid-document when they hit token limits; each repair step below
// targets one of those failure modes. Returns an error only when even
// the repaired form fails to decode.
func Parse(text string) (any, error) {
	if v, err := decode(text); err == nil {
		return v, nil
	}

	content := strings.TrimSpace(text)
	if m := codeFenceRe.FindStringSubmatch(content); m != nil && strings.TrimSpace(m[1]) != "" {
		content = strings.TrimSpace(m[1])
	} else {
		content = sliceToOuter(content)
	}
	content = trailingCommaRe.ReplaceAllString(content, "$1")

	if v, err := decode(content); err == nil {
		return v, nil
	}

	repaired := closeUnbalanced(content)
	v, err := decode(repaired)
	if err != nil {
		return nil, fmt.Errorf("model output is not recoverable JSON: %w", err)
	}
	return v, nil
}

// ParseObject is Parse restricted to a top-level JSON object.
func ParseObject(text string) (map[string]any, error) {
	v, err := Parse(text)
	if err != nil {
		return nil, err
	}
	obj, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("model output is not a JSON object")
	}
	return obj, nil
}

func decode(text string) (any, error) {
	var v any
	if err := json.Unmarshal([]byte(text), &v); err != nil {
		return nil, err
	}
	return v, nil
}

// sliceToOuter cuts the text down to the outermost brace or bracket
// pair, dropping surrounding prose.
func sliceToOuter(content string) string {
	firstBrace := strings.IndexByte(content, '{')
	firstBracket := strings.IndexByte(content, '[')

	start := -1
	switch {
	case firstBrace != -1 && firstBracket != -1:
		start = min(firstBrace, firstBracket)
	case firstBrace != -1:
		start = firstBrace
	case firstBracket != -1:
		start = firstBracket
	}
	if start == -1 {
		return content
	}

	end := max(strings.LastIndexByte(content, '}'), strings.LastIndexByte(content, ']'))
	if end > start {
		return content[start : end+1]
	}
	return content[start:]
}

// closeUnbalanced appends the closers a truncated document is missing,
// tracking string and escape state so braces inside values don't
// count.
func closeUnbalanced(content string) string {
	var stack []byte
	inString := false
	escaped := false

	for i := 0; i < len(content); i++ {
		c := content[i]
		if escaped {
			escaped = false
			continue
		}
		switch c {
		case '\\':
			escaped = true
		case '"':
			inString = !inString
		case '{':
			if !inString {
				stack = append(stack, '}')
			}
		case '[':
			if !inString {
				stack = append(stack, ']')
			}
		case '}', ']':
			if !inString && len(stack) > 0 && stack[len(stack)-1] == c {
				stack = stack[:len(stack)-1]
			}
		}
	}

	var b strings.Builder
	b.WriteString(content)
	if inString {
		b.WriteByte('"')
	}
	for i := len(stack) - 1; i >= 0; i-- {
		b.WriteByte(stack[i])
	}
	return b.String()
}
