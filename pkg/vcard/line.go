package vcard

import (
	"regexp"
	"strings"
)

// Optional RFC grouping label in front of a property name, e.g.
// "item1.TEL:...". Groups are informational only and discarded.
var groupPrefix = regexp.MustCompile(`^[0-9A-Za-z]+\.`)

// logicalLines canonicalizes line endings and unfolds wrapped property
// lines per RFC 2425 §5.8.1. Folds are removed before splitting, since the
// continuation marker ("\n" followed by space or tab) spans the line
// boundary. Lines are trimmed and empties dropped.
func logicalLines(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	text = strings.ReplaceAll(text, "\n ", "")
	text = strings.ReplaceAll(text, "\n\t", "")

	var lines []string
	for _, l := range strings.Split(text, "\n") {
		l = strings.TrimSpace(l)
		if l != "" {
			lines = append(lines, l)
		}
	}
	return lines
}

// property is one tokenized logical line: upper-cased property name, the
// normalized parameter list and the still-raw value.
type property struct {
	name   string
	params []string
	value  string
}

// splitLine tokenizes a single logical property line. The value is
// everything after the first ':'; a line without ':' yields an empty value.
func splitLine(line string) property {
	line = groupPrefix.ReplaceAllString(line, "")

	head, value, _ := strings.Cut(line, ":")
	fields := strings.Split(head, ";")

	p := property{name: strings.ToUpper(fields[0]), value: value}
	for _, f := range fields[1:] {
		p.params = append(p.params, normalizeParam(f))
	}
	return p
}

// normalizeParam strips a leading "type=" marker so that a type-tag reads
// the same whether written bare ("WORK") or explicit ("TYPE=WORK").
func normalizeParam(s string) string {
	if len(s) >= 5 && strings.EqualFold(s[:5], "type=") {
		return s[5:]
	}
	return s
}

// joinKey builds the map key for a multi-valued property from its residual
// parameters, falling back to the property-specific default.
func joinKey(params []string, def string) string {
	if len(params) == 0 {
		return def
	}
	return strings.Join(params, ";")
}
