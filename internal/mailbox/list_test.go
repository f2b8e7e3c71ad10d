package mailbox

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"testing"
)

// pagedLister serves pages of refs, failing on page failAt (1-based) if set.
type pagedLister struct {
	pages  [][]MessageRef
	failAt int
	calls  []string
}

func (l *pagedLister) ListPage(_ context.Context, query, pageToken string) (*Page, error) {
	l.calls = append(l.calls, pageToken)

	idx := 0
	if pageToken != "" {
		n, err := strconv.Atoi(pageToken)
		if err != nil {
			return nil, fmt.Errorf("bad token %q", pageToken)
		}
		idx = n
	}

	if l.failAt == idx+1 {
		return nil, errors.New("backend unavailable")
	}

	page := &Page{}
	if idx < len(l.pages) {
		page.Refs = l.pages[idx]
	}
	if idx+1 < len(l.pages) {
		page.NextPageToken = strconv.Itoa(idx + 1)
	}
	return page, nil
}

func makePages(n, size int) [][]MessageRef {
	pages := make([][]MessageRef, n)
	id := 0
	for i := range pages {
		for j := 0; j < size; j++ {
			pages[i] = append(pages[i], MessageRef(fmt.Sprintf("m%03d", id)))
			id++
		}
	}
	return pages
}

func TestListMatchingExhaustive(t *testing.T) {
	tests := []struct {
		name  string
		pages [][]MessageRef
		want  int
	}{
		{"no messages", [][]MessageRef{nil}, 0},
		{"single page", makePages(1, 5), 5},
		{"three full pages", makePages(3, 4), 12},
		{"short last page", append(makePages(2, 3), []MessageRef{"last"}), 7},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := &pagedLister{pages: tt.pages}

			refs, err := ListMatching(context.Background(), l, "q")
			if err != nil {
				t.Fatalf("ListMatching() error = %v", err)
			}
			if len(refs) != tt.want {
				t.Fatalf("len(refs) = %d, want %d", len(refs), tt.want)
			}

			var flat []MessageRef
			for _, p := range tt.pages {
				flat = append(flat, p...)
			}
			if len(flat) > 0 && !reflect.DeepEqual(refs, flat) {
				t.Errorf("refs = %v, want %v", refs, flat)
			}
			if len(l.calls) != len(tt.pages) {
				t.Errorf("ListPage called %d times, want %d", len(l.calls), len(tt.pages))
			}
		})
	}
}

func TestListMatchingDropsDuplicates(t *testing.T) {
	l := &pagedLister{pages: [][]MessageRef{
		{"a", "b"},
		{"b", "c"},
	}}

	refs, err := ListMatching(context.Background(), l, "")
	if err != nil {
		t.Fatalf("ListMatching() error = %v", err)
	}

	want := []MessageRef{"a", "b", "c"}
	if !reflect.DeepEqual(refs, want) {
		t.Errorf("refs = %v, want %v", refs, want)
	}
}

func TestListMatchingPartialOnError(t *testing.T) {
	l := &pagedLister{pages: makePages(3, 2), failAt: 2}

	refs, err := ListMatching(context.Background(), l, "")
	if err == nil {
		t.Fatal("expected error from failing page")
	}
	if len(refs) != 2 {
		t.Errorf("len(refs) = %d, want 2 refs from the first page", len(refs))
	}
}

type loopLister struct{}

func (loopLister) ListPage(_ context.Context, _, _ string) (*Page, error) {
	return &Page{Refs: []MessageRef{"x"}, NextPageToken: "same"}, nil
}

func TestListMatchingStopsOnRepeatedToken(t *testing.T) {
	refs, err := ListMatching(context.Background(), loopLister{}, "")
	if err == nil {
		t.Fatal("expected error for repeated page token")
	}
	if len(refs) != 1 {
		t.Errorf("len(refs) = %d, want 1", len(refs))
	}
}

func TestListMatchingCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := ListMatching(ctx, &pagedLister{pages: makePages(2, 1)}, "")
	if !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", err)
	}
}

func TestBuildLabelQuery(t *testing.T) {
	tests := []struct {
		name   string
		labels []string
		want   string
	}{
		{"none", nil, ""},
		{"blank only", []string{" ", ""}, ""},
		{"single", []string{"jobs-2018-rejections"}, "{label:jobs-2018-rejections}"},
		{"two", []string{"a", "b"}, "{label:a label:b}"},
		{"quoted", []string{"job offers"}, `{label:"job offers"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := BuildLabelQuery(tt.labels); got != tt.want {
				t.Errorf("BuildLabelQuery(%v) = %q, want %q", tt.labels, got, tt.want)
			}
		})
	}
}

func TestParseQuery(t *testing.T) {
	tests := []struct {
		name       string
		query      string
		wantLabels []string
		wantTerms  []string
	}{
		{"empty", "", nil, nil},
		{"built query", "{label:a label:b}", []string{"a", "b"}, nil},
		{"quoted label", `{label:"job offers"}`, []string{"job offers"}, nil},
		{"mixed", `{label:a} invoice "thank you"`, []string{"a"}, []string{"invoice", "thank you"}},
		{"upper prefix", "LABEL:x", []string{"x"}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseQuery(tt.query)
			if !reflect.DeepEqual(got.Labels, tt.wantLabels) {
				t.Errorf("Labels = %v, want %v", got.Labels, tt.wantLabels)
			}
			if !reflect.DeepEqual(got.Terms, tt.wantTerms) {
				t.Errorf("Terms = %v, want %v", got.Terms, tt.wantTerms)
			}
		})
	}
}

func TestBuildThenParseRoundTrip(t *testing.T) {
	labels := []string{"jobs-2018-rejections", "job offers"}
	got := ParseQuery(BuildLabelQuery(labels))
	if !reflect.DeepEqual(got.Labels, labels) {
		t.Errorf("Labels = %v, want %v", got.Labels, labels)
	}
}
