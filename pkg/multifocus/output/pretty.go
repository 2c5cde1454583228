package output

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/jamesainslie/multifocus/pkg/multifocus/engine"
)

// PrettyFormatter renders a styled status box and scan table for a
// terminal.
type PrettyFormatter struct{}

// Format writes the formatted output to the buffer.
func (f *PrettyFormatter) Format(w *bytes.Buffer, r *Result) error {
	now := r.now()

	if r.Status != nil {
		w.WriteString(f.formatHeader(r))
		w.WriteString("\n")
	}

	if r.Scans != nil || r.Status == nil {
		w.WriteString(f.formatScans(r.Scans, now))
	}

	if len(r.Calibrations) > 0 {
		w.WriteString("\n")
		w.WriteString(f.formatCalibrations(r.Calibrations, now))
	}

	w.WriteString(f.formatFooter(r))
	w.WriteString("\n")
	return nil
}

func (f *PrettyFormatter) formatHeader(r *Result) string {
	s := r.Status
	label := func(name, value string) string {
		return LabelStyle.Render(name+":") + " " + value
	}

	var lines []string
	lines = append(lines, strings.Join([]string{
		label("State", StateStyle(s.State).Render(s.State)),
		label("Work", onOff(s.Work)),
		f.formatActuator(s.Disabled),
	}, "  "))

	plans := PlanStyle.Render(formatPositions(s.Plans))
	if len(s.Plans) > 0 && s.State == engine.Steady.String() {
		plans += MutedStyle.Render(fmt.Sprintf("  (showing #%d)", s.CycleIndex+1))
	}
	lines = append(lines, label("Plans", plans))

	lines = append(lines, strings.Join([]string{
		label("Latency", ValueStyle.Render(fmt.Sprintf("%d frames", s.Latency))),
		label("Frames", ValueStyle.Render(humanize.Comma(int64(s.Frames)))),
		label("Score", ValueStyle.Render(humanize.Comma(s.LastScore))),
	}, "  "))

	if s.Calibration != nil {
		c := *s.Calibration
		style := SuccessStyle
		if c.Aborted {
			style = WarningStyle
		}
		lines = append(lines, label("Calibration", style.Render(calibrationSummary(c))+
			MutedStyle.Render(" "+formatAge(c.Finished, r.now()))))
	}

	return HeaderBox.Render(strings.Join(lines, "\n"))
}

func (f *PrettyFormatter) formatActuator(disabled bool) string {
	if disabled {
		return ErrorStyle.Render("actuator: disabled")
	}
	return LabelStyle.Render("actuator: ") + SuccessStyle.Render("ok")
}

func (f *PrettyFormatter) formatScans(scans []engine.ScanReport, now time.Time) string {
	if len(scans) == 0 {
		return MutedStyle.Render("  No scans recorded") + "\n"
	}

	var sb strings.Builder
	headers := []string{"ID", "MODE", "FINISHED", "TOOK", "FRAMES", "PLANS"}
	widths := []int{8, 6, 16, 8, 6, 0}
	sb.WriteString(" ")
	for i, h := range headers {
		sb.WriteString(" " + TableHeaderStyle.Render(padRight(h, widths[i])))
	}
	sb.WriteString("\n")

	for _, sc := range scans {
		mode := sc.Mode
		if sc.Mode == engine.ModeManual {
			mode = fmt.Sprintf("%s#%d", sc.Mode[:3], sc.Slot+1)
		}
		cells := []string{
			MutedStyle.Render(padRight(shortID(sc.ID), widths[0])),
			ValueStyle.Render(padRight(mode, widths[1])),
			MutedStyle.Render(padRight(formatAge(sc.FinishedAt, now), widths[2])),
			ValueStyle.Render(padLeft(formatDuration(sc.Duration.Seconds()), widths[3])),
			ValueStyle.Render(padLeft(fmt.Sprintf("%d", sc.Frames), widths[4])),
			PlanStyle.Render(formatPositions(sc.Plans)),
		}
		sb.WriteString(" ")
		for _, c := range cells {
			sb.WriteString(" " + TableRowStyle.Render(c))
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

func (f *PrettyFormatter) formatCalibrations(cals []engine.CalibrationResult, now time.Time) string {
	var sb strings.Builder
	sb.WriteString(TitleStyle.Render("Calibrations"))
	sb.WriteString("\n")
	for _, c := range cals {
		style := SuccessStyle
		if c.Aborted {
			style = WarningStyle
		}
		sb.WriteString("  " + style.Render(padRight(calibrationSummary(c), 28)) + " " +
			MutedStyle.Render(formatAge(c.Finished, now)) + "\n")
	}
	return sb.String()
}

func (f *PrettyFormatter) formatFooter(r *Result) string {
	var parts []string
	if r.DaemonUp {
		parts = append(parts, LabelStyle.Render("daemon: ")+SuccessStyle.Render("up"))
	} else {
		parts = append(parts, MutedStyle.Render("daemon: off"))
	}
	if r.Source != "" {
		parts = append(parts, LabelStyle.Render("Source:")+" "+ValueStyle.Render(r.Source))
	}
	if len(r.Scans) > 0 {
		parts = append(parts, LabelStyle.Render("Scans:")+" "+ValueStyle.Render(fmt.Sprintf("%d", len(r.Scans))))
	}
	parts = append(parts, MutedStyle.Render("Use -o plain for unformatted output"))
	return FooterBox.Render(strings.Join(parts, "  "))
}

func onOff(on bool) string {
	if on {
		return SuccessStyle.Render("on")
	}
	return WarningStyle.Render("off")
}

// padRight pads s with spaces on the right to width.
func padRight(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return s + strings.Repeat(" ", width-len(s))
}

// padLeft pads s with spaces on the left to width.
func padLeft(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return strings.Repeat(" ", width-len(s)) + s
}

// formatDuration formats a duration in a human-friendly way.
func formatDuration(sec float64) string {
	if sec < 1 {
		return fmt.Sprintf("%.0fms", sec*1000)
	}
	if sec < 60 {
		return fmt.Sprintf("%.1fs", sec)
	}
	minutes := int(sec) / 60
	seconds := int(sec) % 60
	if minutes < 60 {
		return fmt.Sprintf("%dm %ds", minutes, seconds)
	}
	return fmt.Sprintf("%dh %dm", minutes/60, minutes%60)
}

func init() {
	Register("pretty", func() Formatter {
		return &PrettyFormatter{}
	})
}

var _ Formatter = (*PrettyFormatter)(nil)
