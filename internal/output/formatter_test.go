package output

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

// capture returns a formatter whose streams are separate buffers.
func capture(jsonOutput, verbose, quiet bool) (*Formatter, *bytes.Buffer, *bytes.Buffer) {
	var out, errOut bytes.Buffer
	f := New(jsonOutput, verbose, quiet, true)
	f.Writer, f.ErrWriter = &out, &errOut
	return f, &out, &errOut
}

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		json    bool
		verbose bool
		quiet   bool
		noColor bool
	}{
		{"default", false, false, false, false},
		{"json", true, false, false, false},
		{"verbose without color", false, true, false, true},
		{"quiet", false, false, true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := New(tt.json, tt.verbose, tt.quiet, tt.noColor)
			got := [4]bool{f.JSON, f.Verbose, f.Quiet, f.NoColor}
			want := [4]bool{tt.json, tt.verbose, tt.quiet, tt.noColor}
			if got != want {
				t.Errorf("flags = %v, want %v", got, want)
			}
			if f.Writer == nil || f.ErrWriter == nil {
				t.Error("expected Writer and ErrWriter to be set")
			}
		})
	}
}

func TestPrintJSON(t *testing.T) {
	f, out, _ := capture(true, false, false)

	labels := []map[string]any{
		{"name": "jobs-2019-rejections", "messages": 12},
		{"name": "INBOX", "messages": 340},
	}
	if err := f.PrintJSON(map[string]any{"count": len(labels), "labels": labels}); err != nil {
		t.Fatalf("PrintJSON() error = %v", err)
	}

	var got struct {
		Count  int `json:"count"`
		Labels []struct {
			Name     string `json:"name"`
			Messages int    `json:"messages"`
		} `json:"labels"`
	}
	if err := json.Unmarshal(out.Bytes(), &got); err != nil {
		t.Fatalf("invalid JSON output: %v", err)
	}
	if got.Count != 2 || got.Labels[0].Name != "jobs-2019-rejections" || got.Labels[1].Messages != 340 {
		t.Errorf("decoded = %+v", got)
	}
	if !strings.Contains(out.String(), "\n  ") {
		t.Error("expected indented JSON")
	}
}

func TestPrintError(t *testing.T) {
	errToken := errors.New("no token - run 'mailcloud auth'")

	t.Run("text goes to ErrWriter", func(t *testing.T) {
		f, out, errOut := capture(false, false, false)
		f.PrintError(errToken)

		if out.Len() != 0 {
			t.Errorf("Writer = %q, want empty", out.String())
		}
		if got, want := errOut.String(), "Error: no token - run 'mailcloud auth'\n"; got != want {
			t.Errorf("ErrWriter = %q, want %q", got, want)
		}
	})

	t.Run("json", func(t *testing.T) {
		f, out, _ := capture(true, false, false)
		f.PrintError(errToken)

		var result map[string]any
		if err := json.Unmarshal(out.Bytes(), &result); err != nil {
			t.Fatalf("invalid JSON: %v", err)
		}
		if result["error"] != true {
			t.Errorf("error = %v, want true", result["error"])
		}
		if result["message"] != errToken.Error() {
			t.Errorf("message = %v, want %q", result["message"], errToken.Error())
		}
	})
}

func TestPrintSuccess(t *testing.T) {
	const msg = "Removed 3 cached message(s) for gmail:me"

	tests := []struct {
		name  string
		json  bool
		quiet bool
		want  string
	}{
		{"text", false, false, "✓ " + msg + "\n"},
		{"quiet", false, true, ""},
		{"json", true, false, `"message": "` + msg + `"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, out, _ := capture(tt.json, false, tt.quiet)
			f.PrintSuccess(msg)

			if tt.want == "" {
				if out.Len() != 0 {
					t.Errorf("output = %q, want empty", out.String())
				}
				return
			}
			if !strings.Contains(out.String(), tt.want) {
				t.Errorf("output = %q, want to contain %q", out.String(), tt.want)
			}
		})
	}
}

func TestVerbosef(t *testing.T) {
	tests := []struct {
		name    string
		verbose bool
		quiet   bool
		want    string
	}{
		{"verbose", true, false, "Query: {label:a label:b}\n"},
		{"not verbose", false, false, ""},
		{"quiet wins", true, true, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, out, _ := capture(false, tt.verbose, tt.quiet)
			f.Verbosef("Query: %s", "{label:a label:b}")
			if out.String() != tt.want {
				t.Errorf("output = %q, want %q", out.String(), tt.want)
			}
		})
	}
}

func TestTableWriter(t *testing.T) {
	f, out, _ := capture(false, false, false)

	table := f.NewTable("NAME", "TYPE", "MESSAGES")
	table.AddRow("jobs-2018-rejections", "user", "7")
	table.AddRow("INBOX", "system", "340")
	table.Flush()

	lines := strings.Split(strings.TrimSuffix(out.String(), "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("lines = %d, want 3: %q", len(lines), out.String())
	}
	// Columns are aligned on the longest cell.
	if col := strings.Index(lines[0], "TYPE"); col != strings.Index(lines[2], "system") {
		t.Errorf("TYPE column at %d, system at %d", col, strings.Index(lines[2], "system"))
	}

	f, out, _ = capture(false, false, false)
	table = f.NewTable()
	table.AddRow("unfortunately", "2")
	table.Flush()
	if !strings.HasPrefix(out.String(), "unfortunately") {
		t.Errorf("headerless table = %q", out.String())
	}
}

func TestSuccess(t *testing.T) {
	t.Run("json wraps data", func(t *testing.T) {
		f, out, _ := capture(true, false, false)
		if err := f.Success(map[string]int{"entries": 4}); err != nil {
			t.Fatalf("Success() error = %v", err)
		}

		var result struct {
			Success bool           `json:"success"`
			Data    map[string]int `json:"data"`
		}
		if err := json.Unmarshal(out.Bytes(), &result); err != nil {
			t.Fatalf("invalid JSON: %v", err)
		}
		if !result.Success || result.Data["entries"] != 4 {
			t.Errorf("result = %+v", result)
		}
	})

	t.Run("text prints nothing", func(t *testing.T) {
		f, out, _ := capture(false, false, false)
		if err := f.Success("ignored"); err != nil {
			t.Fatalf("Success() error = %v", err)
		}
		if out.Len() != 0 {
			t.Errorf("output = %q, want empty", out.String())
		}
	})
}

func TestJSONResponseFailure(t *testing.T) {
	data, err := json.Marshal(JSONResponse{Error: "invalid configuration: workers must be at least 1"})
	if err != nil {
		t.Fatal(err)
	}
	if got, want := string(data), `{"success":false,"error":"invalid configuration: workers must be at least 1"}`; got != want {
		t.Errorf("JSON = %s, want %s", got, want)
	}
}

func TestWarnf(t *testing.T) {
	tests := []struct {
		name       string
		json       bool
		quiet      bool
		wantOutput bool
	}{
		{"text", false, false, true},
		{"quiet", false, true, false},
		{"json", true, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, out, errOut := capture(tt.json, false, tt.quiet)

			f.Warnf("%d message(s) could not be fetched", 2)

			if out.Len() != 0 {
				t.Errorf("warning leaked to Writer: %q", out.String())
			}
			got := strings.Contains(errOut.String(), "2 message(s) could not be fetched")
			if got != tt.wantOutput {
				t.Errorf("warning printed = %v, want %v (%q)", got, tt.wantOutput, errOut.String())
			}
		})
	}
}

func TestColor(t *testing.T) {
	if got := New(false, false, false, false).SuccessText("ok"); got != Green+"ok"+Reset {
		t.Errorf("SuccessText() = %q, want colored", got)
	}
	if got := New(false, false, false, true).SuccessText("ok"); got != "ok" {
		t.Errorf("SuccessText() with NoColor = %q, want plain", got)
	}
	if got := New(true, false, false, false).ErrorText("bad"); got != "bad" {
		t.Errorf("ErrorText() in JSON mode = %q, want plain", got)
	}
}
