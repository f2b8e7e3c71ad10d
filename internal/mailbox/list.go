package mailbox

import (
	"context"
	"fmt"
	"strings"
)

// ListMatching enumerates every message matching query, following page
// tokens until the provider stops returning one. Refs keep the order in
// which pages arrived; a ref seen on an earlier page is not repeated.
//
// On failure the refs gathered before the failing page are returned along
// with the error, so callers can decide to continue with a partial list.
func ListMatching(ctx context.Context, l Lister, query string) ([]MessageRef, error) {
	var refs []MessageRef
	seen := make(map[MessageRef]struct{})
	tokens := make(map[string]struct{})

	pageToken := ""
	for pageNum := 1; ; pageNum++ {
		if err := ctx.Err(); err != nil {
			return refs, err
		}

		page, err := l.ListPage(ctx, query, pageToken)
		if err != nil {
			return refs, fmt.Errorf("failed to list page %d: %w", pageNum, err)
		}

		for _, ref := range page.Refs {
			if _, dup := seen[ref]; dup {
				continue
			}
			seen[ref] = struct{}{}
			refs = append(refs, ref)
		}

		if page.NextPageToken == "" {
			return refs, nil
		}
		if _, loop := tokens[page.NextPageToken]; loop {
			return refs, fmt.Errorf("page token %q repeated after page %d", page.NextPageToken, pageNum)
		}
		tokens[page.NextPageToken] = struct{}{}
		pageToken = page.NextPageToken
	}
}

// BuildLabelQuery combines label filters into a single provider query that
// matches messages carrying any of the labels: {label:a label:b}.
// Labels containing spaces are quoted. No labels yields an empty query.
func BuildLabelQuery(labels []string) string {
	var terms []string
	for _, label := range labels {
		label = strings.TrimSpace(label)
		if label == "" {
			continue
		}
		if strings.ContainsAny(label, " \t") {
			label = `"` + label + `"`
		}
		terms = append(terms, "label:"+label)
	}

	if len(terms) == 0 {
		return ""
	}
	return "{" + strings.Join(terms, " ") + "}"
}
