package output

import (
	"bytes"
	"fmt"
	"text/tabwriter"
)

// PlainFormatter writes aligned key/value lines and a scan table with no
// styling, for scripts and pipes.
type PlainFormatter struct{}

// Format writes the formatted output to the buffer.
func (f *PlainFormatter) Format(w *bytes.Buffer, r *Result) error {
	tw := tabwriter.NewWriter(w, 0, 0, 1, ' ', 0)

	if s := r.Status; s != nil {
		fmt.Fprintf(tw, "STATE\t%s\n", s.State)
		fmt.Fprintf(tw, "WORK\t%t\n", s.Work)
		fmt.Fprintf(tw, "DISABLED\t%t\n", s.Disabled)
		fmt.Fprintf(tw, "PLANS\t%s\n", s.PlansText)
		fmt.Fprintf(tw, "LATENCY\t%d\n", s.Latency)
		fmt.Fprintf(tw, "FRAMES\t%d\n", s.Frames)
		if s.Calibration != nil {
			fmt.Fprintf(tw, "CALIBRATION\t%s\n", calibrationSummary(*s.Calibration))
		}
		if len(r.Scans) > 0 {
			fmt.Fprintln(tw)
		}
	}

	if len(r.Scans) > 0 {
		fmt.Fprint(tw, "ID\tMODE\tFINISHED\tFRAMES\tLATENCY\tPLANS\n")
		for _, sc := range r.Scans {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%s\n",
				shortID(sc.ID), sc.Mode, formatTime(sc.FinishedAt), sc.Frames, sc.Latency, formatPositions(sc.Plans))
		}
	}

	return tw.Flush()
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func init() {
	Register("plain", func() Formatter {
		return &PlainFormatter{}
	})
}

var _ Formatter = (*PlainFormatter)(nil)
