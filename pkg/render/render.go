// Package render substitutes {{ data.KEY }} placeholders in job script
// templates from a flat parameter mapping.
package render

import (
	"fmt"
	"regexp"
	"strings"
)

// placeholderPattern matches {{ data.KEY }} with optional whitespace inside
// the braces. The single capture group holds the key name.
var placeholderPattern = regexp.MustCompile(`\{\{\s*data\.([A-Za-z_][A-Za-z0-9_]*)\s*\}\}`)

// MissingKeyError reports a placeholder whose key is absent from the
// parameter mapping.
type MissingKeyError struct {
	Key string
}

func (e MissingKeyError) Error() string {
	return fmt.Sprintf("render: template references unknown parameter %q", e.Key)
}

// Render substitutes every placeholder in text from params. A placeholder
// whose key is absent fails with a MissingKeyError rather than rendering an
// empty string, so configuration mistakes surface at render time. Text
// without placeholders is returned unchanged.
func Render(text string, params map[string]any) (string, error) {
	matches := placeholderPattern.FindAllStringSubmatchIndex(text, -1)
	if len(matches) == 0 {
		return text, nil
	}

	var builder strings.Builder
	builder.Grow(len(text))

	last := 0
	for _, match := range matches {
		builder.WriteString(text[last:match[0]])

		key := text[match[2]:match[3]]
		value, ok := params[key]
		if !ok {
			return "", MissingKeyError{Key: key}
		}
		builder.WriteString(formatValue(value))

		last = match[1]
	}
	builder.WriteString(text[last:])

	return builder.String(), nil
}

func formatValue(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}
