// Package dataset reads seed URL lists and writes or loads labeled feature
// tables in CSV form.
package dataset

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"

	"github.com/csaibalakrishna/URL-DETECTOR/pkg/features"
)

// Header returns the column layout of a feature table: url, every
// canonical feature in order, label.
func Header() []string {
	h := make([]string, 0, features.Count()+2)
	h = append(h, "url")
	h = append(h, features.Names()...)
	return append(h, "label")
}

// Writer appends labeled vectors to a CSV file.
type Writer struct {
	file   *os.File
	writer *csv.Writer
}

// NewWriter opens path in append mode, creating it if needed. The header is
// written only when the file is new or empty.
func NewWriter(path string) (*Writer, error) {
	info, err := os.Stat(path)
	isNew := os.IsNotExist(err) || (err == nil && info.Size() == 0)

	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open or create CSV file: %w", err)
	}

	w := &Writer{file: file, writer: csv.NewWriter(file)}
	if isNew {
		if err := w.writer.Write(Header()); err != nil {
			_ = file.Close()
			return nil, fmt.Errorf("failed to write CSV header: %w", err)
		}
	}
	return w, nil
}

// WriteRow appends one sample. rawURL may be empty for synthetic rows.
func (w *Writer) WriteRow(rawURL string, v features.Vector, label int) error {
	if err := v.Validate(); err != nil {
		return fmt.Errorf("refusing to write row for %q: %w", rawURL, err)
	}
	row := make([]string, 0, len(v)+2)
	row = append(row, rawURL)
	for _, x := range v {
		row = append(row, strconv.FormatFloat(x, 'f', -1, 64))
	}
	row = append(row, strconv.Itoa(label))
	return w.writer.Write(row)
}

// Close flushes buffered rows and closes the file.
func (w *Writer) Close() error {
	w.writer.Flush()
	flushErr := w.writer.Error()
	closeErr := w.file.Close()

	if flushErr != nil {
		return fmt.Errorf("error flushing CSV writer: %w", flushErr)
	}
	if closeErr != nil {
		return fmt.Errorf("error closing CSV file: %w", closeErr)
	}
	return nil
}
