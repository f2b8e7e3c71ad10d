package output

import (
	"bytes"
	"strings"
	"testing"

	"github.com/bscott/mailcloud/internal/pipeline"
)

func TestProgressSkipsEmptyRun(t *testing.T) {
	var buf bytes.Buffer
	p := NewProgress(&buf, New(false, false, false, true))

	p.Observe(pipeline.Event{Kind: pipeline.EventListed, Total: 0})
	p.Finish()

	if buf.Len() != 0 {
		t.Errorf("output = %q, want nothing", buf.String())
	}
}

func TestProgressDrawsBar(t *testing.T) {
	var buf bytes.Buffer
	p := NewProgress(&buf, New(false, false, false, true))

	p.Observe(pipeline.Event{Kind: pipeline.EventListed, Total: 4})
	p.Observe(pipeline.Event{Kind: pipeline.EventProcessed, Done: 1, Total: 4})
	p.Observe(pipeline.Event{Kind: pipeline.EventFetchFailed, Done: 2, Total: 4})
	p.Observe(pipeline.Event{Kind: pipeline.EventProcessed, Done: 4, Total: 4})
	p.Finish()

	out := buf.String()
	if !strings.Contains(out, "0/4   0%") {
		t.Errorf("missing initial state in %q", out)
	}
	if !strings.Contains(out, "4/4 100%") {
		t.Errorf("missing final state in %q", out)
	}
	if !strings.Contains(out, "(1 failed)") {
		t.Errorf("missing failure count in %q", out)
	}
	if !strings.HasSuffix(out, "\n") {
		t.Error("Finish() did not end the line")
	}
	if strings.Count(out, "\n") != 1 {
		t.Errorf("bar should redraw in place, got %d newlines", strings.Count(out, "\n"))
	}
}

func TestIsTerminalBuffer(t *testing.T) {
	if IsTerminal(&bytes.Buffer{}) {
		t.Error("IsTerminal(buffer) = true, want false")
	}
}
