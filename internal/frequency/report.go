package frequency

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// WriteReport writes one "<token> <count>" line per entry in presentation
// order. Lines are separated by a newline with none after the last, so an
// empty table produces zero bytes.
func (t *Table) WriteReport(w io.Writer) error {
	bw := bufio.NewWriter(w)
	for i, e := range t.Entries() {
		if i > 0 {
			if err := bw.WriteByte('\n'); err != nil {
				return err
			}
		}
		if _, err := fmt.Fprintf(bw, "%s %d", e.Token, e.Count); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// WriteReportFile writes the report to path, creating parent directories.
func (t *Table) WriteReportFile(path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create report directory: %w", err)
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create report: %w", err)
	}

	if err := t.WriteReport(f); err != nil {
		f.Close()
		return fmt.Errorf("failed to write report: %w", err)
	}
	return f.Close()
}
