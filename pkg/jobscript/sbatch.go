package jobscript

import "strings"

// SbatchMarker prefixes scheduler directive lines in submission scripts.
const SbatchMarker = "#SBATCH"

// escapedNewline is how a newline appears inside a JSON-encoded body.
const escapedNewline = `\n`

// InjectSbatchParams inserts one marker-prefixed line per parameter, in
// order, immediately after the line holding the first SbatchMarker in
// body. The function operates on the serialized body string: in a
// JSON-encoded body the line terminator is the two-character \n escape, and
// inserted lines reuse whichever newline representation follows the
// marker. Everything outside the insertion point is preserved byte for
// byte.
//
// An empty parameter list returns body unchanged. When body holds no
// marker at all, the insertion point is computed as if the marker sat at
// offset 0, so the lines land after the body's first line (or at the end
// of a body without newlines).
func InjectSbatchParams(body string, sbatchParams []string) string {
	if len(sbatchParams) == 0 {
		return body
	}

	markerAt := strings.Index(body, SbatchMarker)
	if markerAt < 0 {
		markerAt = 0
	}

	insertAt, newline, terminated := endOfLine(body, markerAt)

	var builder strings.Builder
	if !terminated {
		// The insertion point line has no terminator; close it first so
		// the directives start on their own lines.
		builder.WriteString(newline)
	}
	for _, param := range sbatchParams {
		builder.WriteString(SbatchMarker)
		builder.WriteString(" ")
		builder.WriteString(param)
		builder.WriteString(newline)
	}

	return body[:insertAt] + builder.String() + body[insertAt:]
}

// endOfLine finds the first newline after from, preferring whichever of
// the escaped and literal representations occurs first, and returns the
// offset just past it, the representation, and whether a newline was
// found at all. Without one the offset is the end of the string and the
// representation is inferred from the rest of the body.
func endOfLine(body string, from int) (int, string, bool) {
	rest := body[from:]
	escapedAt := strings.Index(rest, escapedNewline)
	literalAt := strings.Index(rest, "\n")

	switch {
	case escapedAt >= 0 && (literalAt < 0 || escapedAt < literalAt):
		return from + escapedAt + len(escapedNewline), escapedNewline, true
	case literalAt >= 0:
		return from + literalAt + 1, "\n", true
	case strings.Contains(body, escapedNewline):
		return len(body), escapedNewline, false
	default:
		return len(body), "\n", false
	}
}
