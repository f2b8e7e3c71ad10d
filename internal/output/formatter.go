// Package output formats command results for the terminal or as JSON.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
)

// ANSI color codes
const (
	Reset  = "\033[0m"
	Bold   = "\033[1m"
	Red    = "\033[31m"
	Green  = "\033[32m"
	Yellow = "\033[33m"
	Gray   = "\033[90m"
)

type Formatter struct {
	JSON    bool
	Verbose bool
	Quiet   bool
	NoColor bool
	// Writer receives results; ErrWriter receives errors, warnings and
	// progress so results stay pipeable.
	Writer    io.Writer
	ErrWriter io.Writer
}

func New(jsonOutput, verbose, quiet, noColor bool) *Formatter {
	return &Formatter{
		JSON:      jsonOutput,
		Verbose:   verbose,
		Quiet:     quiet,
		NoColor:   noColor,
		Writer:    os.Stdout,
		ErrWriter: os.Stderr,
	}
}

// Color wraps text in ANSI color codes if colors are enabled
func (f *Formatter) Color(color, text string) string {
	if f.NoColor || f.JSON {
		return text
	}
	return color + text + Reset
}

func (f *Formatter) Bold(text string) string {
	return f.Color(Bold, text)
}

func (f *Formatter) SuccessText(text string) string {
	return f.Color(Green, text)
}

func (f *Formatter) ErrorText(text string) string {
	return f.Color(Red, text)
}

func (f *Formatter) WarningText(text string) string {
	return f.Color(Yellow, text)
}

func (f *Formatter) MutedText(text string) string {
	return f.Color(Gray, text)
}

func (f *Formatter) PrintJSON(v any) error {
	enc := json.NewEncoder(f.Writer)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (f *Formatter) PrintError(err error) {
	if f.JSON {
		f.PrintJSON(map[string]any{
			"error":   true,
			"message": err.Error(),
		})
		return
	}
	fmt.Fprintf(f.ErrWriter, "%s %s\n", f.ErrorText("Error:"), err)
}

func (f *Formatter) PrintSuccess(message string) {
	if f.Quiet {
		return
	}
	if f.JSON {
		f.PrintJSON(map[string]any{
			"success": true,
			"message": message,
		})
		return
	}
	fmt.Fprintln(f.Writer, f.SuccessText("✓")+" "+message)
}

// Warnf prints a warning to ErrWriter. JSON mode and quiet mode drop it;
// the same condition is reported in the structured result.
func (f *Formatter) Warnf(format string, args ...any) {
	if f.Quiet || f.JSON {
		return
	}
	fmt.Fprintf(f.ErrWriter, "%s %s\n", f.WarningText("Warning:"), fmt.Sprintf(format, args...))
}

func (f *Formatter) Verbosef(format string, args ...any) {
	if f.Verbose && !f.Quiet {
		msg := fmt.Sprintf(format, args...)
		fmt.Fprintln(f.Writer, f.MutedText(msg))
	}
}

type TableWriter struct {
	w *tabwriter.Writer
}

func (f *Formatter) NewTable(headers ...string) *TableWriter {
	tw := &TableWriter{
		w: tabwriter.NewWriter(f.Writer, 0, 0, 2, ' ', 0),
	}
	if len(headers) > 0 {
		coloredHeaders := make([]string, len(headers))
		for i, h := range headers {
			coloredHeaders[i] = f.Bold(h)
		}
		fmt.Fprintln(tw.w, strings.Join(coloredHeaders, "\t"))
	}
	return tw
}

func (t *TableWriter) AddRow(values ...string) {
	fmt.Fprintln(t.w, strings.Join(values, "\t"))
}

func (t *TableWriter) Flush() {
	t.w.Flush()
}

// JSONResponse wraps command results in JSON mode.
type JSONResponse struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
	Message string `json:"message,omitempty"`
}

func (f *Formatter) Success(data any) error {
	if f.JSON {
		return f.PrintJSON(JSONResponse{
			Success: true,
			Data:    data,
		})
	}
	return nil
}
