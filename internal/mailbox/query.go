package mailbox

import "strings"

// ParsedQuery is a provider-neutral reading of a label query, used by
// sources whose servers do not understand the Gmail search syntax.
type ParsedQuery struct {
	Labels []string
	// Terms are the unprefixed words, to be matched against message bodies.
	Terms []string
}

// ParseQuery reads a query such as `{label:a label:"b c"} invoice`.
// Grouping braces are ignored; every label: term becomes a label filter.
func ParseQuery(query string) ParsedQuery {
	var parsed ParsedQuery

	for _, part := range splitQueryParts(query) {
		part = strings.Trim(part, "{}")
		if part == "" {
			continue
		}

		if strings.HasPrefix(strings.ToLower(part), "label:") {
			label := strings.Trim(part[len("label:"):], `"`)
			if label != "" {
				parsed.Labels = append(parsed.Labels, label)
			}
			continue
		}
		parsed.Terms = append(parsed.Terms, strings.Trim(part, `"`))
	}

	return parsed
}

// splitQueryParts splits a query string respecting quoted strings.
// "hello world" label:x becomes ["hello world", "label:x"]
func splitQueryParts(query string) []string {
	var parts []string
	var current strings.Builder
	inQuotes := false

	for i := 0; i < len(query); i++ {
		c := query[i]
		switch {
		case c == '"':
			inQuotes = !inQuotes
			current.WriteByte(c)
		case (c == ' ' || c == '\t') && !inQuotes:
			if current.Len() > 0 {
				parts = append(parts, current.String())
				current.Reset()
			}
		default:
			current.WriteByte(c)
		}
	}

	if current.Len() > 0 {
		parts = append(parts, current.String())
	}

	return parts
}
