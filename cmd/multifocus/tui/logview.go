package tui

import (
	"fmt"
	"strings"

	"github.com/jamesainslie/multifocus/pkg/multifocus/logging"
)

// logRingBuffer keeps the newest records shown in the log pane.
type logRingBuffer struct {
	records    []logging.Record
	maxRecords int
}

func newLogRingBuffer(maxRecords int) *logRingBuffer {
	if maxRecords < 1 {
		maxRecords = 1
	}
	return &logRingBuffer{
		records:    make([]logging.Record, 0, maxRecords),
		maxRecords: maxRecords,
	}
}

// Add appends a record, evicting the oldest if at capacity.
func (rb *logRingBuffer) Add(rec logging.Record) {
	if len(rb.records) >= rb.maxRecords {
		rb.records = rb.records[1:]
	}
	rb.records = append(rb.records, rec)
}

// Records returns the records in chronological order.
func (rb *logRingBuffer) Records() []logging.Record {
	out := make([]logging.Record, len(rb.records))
	copy(out, rb.records)
	return out
}

// Len returns the number of buffered records.
func (rb *logRingBuffer) Len() int {
	return len(rb.records)
}

// filterRecordsByLevel returns records at or above minLevel.
func filterRecordsByLevel(records []logging.Record, minLevel logging.Level) []logging.Record {
	result := make([]logging.Record, 0, len(records))
	for _, r := range records {
		if r.Level >= minLevel {
			result = append(result, r)
		}
	}
	return result
}

// tailRecords returns the last n records at or above minLevel.
func tailRecords(records []logging.Record, minLevel logging.Level, n int) []logging.Record {
	filtered := filterRecordsByLevel(records, minLevel)
	if n <= 0 {
		return nil
	}
	if len(filtered) > n {
		filtered = filtered[len(filtered)-n:]
	}
	return filtered
}

// nextLevel cycles the pane's minimum level.
func nextLevel(l logging.Level) logging.Level {
	if l >= logging.LevelError {
		return logging.LevelDebug
	}
	return l + 1
}

// renderRecord formats one log line, truncated to width.
func renderRecord(r logging.Record, width int) string {
	var b strings.Builder
	b.WriteString(r.Time.Format("15:04:05"))
	b.WriteByte(' ')
	b.WriteString(logLevelChar(r.Level))
	b.WriteByte(' ')
	if r.Component != "" {
		b.WriteString("[" + r.Component + "] ")
	}
	b.WriteString(r.Message)
	for i := 0; i+1 < len(r.Fields); i += 2 {
		fmt.Fprintf(&b, " %v=%v", r.Fields[i], r.Fields[i+1])
	}
	return logLevelStyle(r.Level).Render(truncate(b.String(), width))
}

// truncate shortens s to width runes, marking the cut with an ellipsis.
func truncate(s string, width int) string {
	if width <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= width {
		return s
	}
	if width <= 3 {
		return string(runes[:width])
	}
	return string(runes[:width-3]) + "..."
}
