package output

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/bscott/mailcloud/internal/frequency"
	"github.com/bscott/mailcloud/internal/pipeline"
)

// RunSummary is what `mailcloud run` reports once the outputs are written.
// ImageSkipped is set when no word survived filtering.
type RunSummary struct {
	RunID        string            `json:"run_id"`
	Query        string            `json:"query"`
	Stats        pipeline.Stats    `json:"stats"`
	Distinct     int               `json:"distinct_tokens"`
	ReportPath   string            `json:"report_path"`
	ImagePath    string            `json:"image_path,omitempty"`
	ImageSkipped bool              `json:"image_skipped,omitempty"`
	ListError    string            `json:"list_error,omitempty"`
	Top          []frequency.Entry `json:"top,omitempty"`
}

func (f *Formatter) PrintRunSummary(s RunSummary) error {
	if f.JSON {
		return f.Success(s)
	}

	if s.ListError != "" {
		f.Warnf("message listing ended early: %s", s.ListError)
	}
	if s.Stats.FetchFailed > 0 {
		f.Warnf("%d message(s) could not be fetched", s.Stats.FetchFailed)
	}
	if s.Stats.PartsSkipped > 0 {
		f.Warnf("%d text part(s) could not be decoded", s.Stats.PartsSkipped)
	}

	if len(s.Top) > 0 {
		f.PrintTop(s.Top)
	}

	if f.Quiet {
		return nil
	}

	fmt.Fprintf(f.Writer, "Read %d/%d messages", s.Stats.Processed, s.Stats.Total)
	var extra []string
	if s.Stats.Empty > 0 {
		extra = append(extra, fmt.Sprintf("%d without plain text", s.Stats.Empty))
	}
	if s.Stats.CacheHits > 0 {
		extra = append(extra, fmt.Sprintf("%d from cache", s.Stats.CacheHits))
	}
	if len(extra) > 0 {
		fmt.Fprintf(f.Writer, " (%s)", strings.Join(extra, ", "))
	}
	fmt.Fprintln(f.Writer)

	f.Verbosef("Run %s, query %q", s.RunID, s.Query)
	f.PrintSuccess(fmt.Sprintf("Wrote %d distinct tokens (%d total) to %s", s.Distinct, s.Stats.Tokens, s.ReportPath))
	switch {
	case s.ImageSkipped:
		fmt.Fprintln(f.Writer, f.MutedText("No words to draw, image not written"))
	case s.ImagePath != "":
		f.PrintSuccess("Wrote word cloud to " + s.ImagePath)
	}
	return nil
}

// PrintTop prints entries as a ranked table.
func (f *Formatter) PrintTop(entries []frequency.Entry) {
	table := f.NewTable("#", "TOKEN", "COUNT")
	for i, e := range entries {
		table.AddRow(strconv.Itoa(i+1), e.Token, strconv.Itoa(e.Count))
	}
	table.Flush()
}
