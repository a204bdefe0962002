// Package utils holds small helpers shared by the binary.
package utils

import (
	"fmt"
	"io"
	"sync"
)

// DeferredWriter buffers writes while another component owns the terminal
// and replays them later. Each Write is kept as one record so line based
// writers such as zerolog.ConsoleWriter see whole events.
type DeferredWriter struct {
	mu      sync.Mutex
	records [][]byte
}

func (d *DeferredWriter) Write(p []byte) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	rec := make([]byte, len(p))
	copy(rec, p)
	d.records = append(d.records, rec)
	return len(p), nil
}

// Len returns the number of buffered records.
func (d *DeferredWriter) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.records)
}

// Flush writes the buffered records to w in order and empties the buffer.
// Records that fail to write are dropped; the first error is returned.
func (d *DeferredWriter) Flush(w io.Writer) error {
	d.mu.Lock()
	records := d.records
	d.records = nil
	d.mu.Unlock()

	var firstErr error
	for _, rec := range records {
		if _, err := w.Write(rec); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("flush deferred record: %w", err)
		}
	}
	return firstErr
}
