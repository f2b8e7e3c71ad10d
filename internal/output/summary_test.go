package output

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/bscott/mailcloud/internal/frequency"
	"github.com/bscott/mailcloud/internal/pipeline"
)

func sampleSummary() RunSummary {
	return RunSummary{
		RunID: "7d5c0e7e-0000-4000-8000-000000000000",
		Query: "{label:jobs-2018-rejections}",
		Stats: pipeline.Stats{
			Total:       7,
			Processed:   5,
			Empty:       1,
			FetchFailed: 2,
			Tokens:      120,
		},
		Distinct:   48,
		ReportPath: "output.txt",
		ImagePath:  "output.png",
	}
}

func TestPrintRunSummaryText(t *testing.T) {
	var out, errOut bytes.Buffer
	f := New(false, false, false, true)
	f.Writer, f.ErrWriter = &out, &errOut

	if err := f.PrintRunSummary(sampleSummary()); err != nil {
		t.Fatalf("PrintRunSummary() error = %v", err)
	}

	s := out.String()
	for _, want := range []string{"Read 5/7 messages", "1 without plain text", "48 distinct tokens", "output.txt", "output.png"} {
		if !strings.Contains(s, want) {
			t.Errorf("output missing %q:\n%s", want, s)
		}
	}
	if !strings.Contains(errOut.String(), "2 message(s) could not be fetched") {
		t.Errorf("stderr = %q, want fetch warning", errOut.String())
	}
}

func TestPrintRunSummaryImageSkipped(t *testing.T) {
	var out bytes.Buffer
	f := New(false, false, false, true)
	f.Writer, f.ErrWriter = &out, &bytes.Buffer{}

	s := sampleSummary()
	s.Stats = pipeline.Stats{}
	s.Distinct = 0
	s.ImageSkipped = true

	if err := f.PrintRunSummary(s); err != nil {
		t.Fatalf("PrintRunSummary() error = %v", err)
	}
	if !strings.Contains(out.String(), "Read 0/0 messages") {
		t.Errorf("output = %q", out.String())
	}
	if !strings.Contains(out.String(), "image not written") {
		t.Errorf("output = %q, want skipped image note", out.String())
	}
	if strings.Contains(out.String(), "Wrote word cloud") {
		t.Error("claimed to write a skipped image")
	}
}

func TestPrintRunSummaryJSON(t *testing.T) {
	var out bytes.Buffer
	f := New(true, false, false, false)
	f.Writer = &out

	s := sampleSummary()
	s.Top = []frequency.Entry{{Token: "unfortunately", Count: 9}}
	if err := f.PrintRunSummary(s); err != nil {
		t.Fatalf("PrintRunSummary() error = %v", err)
	}

	var resp struct {
		Success bool       `json:"success"`
		Data    RunSummary `json:"data"`
	}
	if err := json.Unmarshal(out.Bytes(), &resp); err != nil {
		t.Fatalf("invalid JSON: %v\n%s", err, out.String())
	}
	if !resp.Success {
		t.Error("success = false")
	}
	if resp.Data.Stats.FetchFailed != 2 {
		t.Errorf("fetch_failed = %d, want 2", resp.Data.Stats.FetchFailed)
	}
	if len(resp.Data.Top) != 1 || resp.Data.Top[0].Token != "unfortunately" {
		t.Errorf("top = %v", resp.Data.Top)
	}
}

func TestPrintRunSummaryQuietStillPrintsTop(t *testing.T) {
	var out bytes.Buffer
	f := New(false, false, true, true)
	f.Writer, f.ErrWriter = &out, &bytes.Buffer{}

	s := sampleSummary()
	s.Top = []frequency.Entry{{Token: "position", Count: 4}, {Token: "role", Count: 2}}
	if err := f.PrintRunSummary(s); err != nil {
		t.Fatalf("PrintRunSummary() error = %v", err)
	}

	got := out.String()
	if !strings.Contains(got, "position") || !strings.Contains(got, "role") {
		t.Errorf("output = %q, want top tokens", got)
	}
	if strings.Contains(got, "Read ") {
		t.Errorf("quiet mode printed the summary line: %q", got)
	}
}
