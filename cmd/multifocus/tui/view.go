package tui

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/jamesainslie/multifocus/pkg/multifocus/engine"
	"github.com/jamesainslie/multifocus/pkg/multifocus/output"
)

var sparkBlocks = []rune("▁▂▃▄▅▆▇█")

// renderHeader renders the title line with the engine state.
func (m Model) renderHeader() string {
	header := " ◎ " + titleStyle.Render("MULTIFOCUS")
	if m.options.Source != "" {
		header += mutedTextStyle.Render("  " + m.options.Source)
	}

	switch {
	case m.statusErr != nil:
		header += errorTextStyle.Render("  ● offline")
	case m.status != nil:
		state := output.StateStyle(m.status.State).Render(m.status.State)
		if busy(m.status.State) {
			state = m.spinner.View() + state
		}
		header += "  " + state
		if !m.status.Work {
			header += warningTextStyle.Render("  ⏸ paused")
		}
		if m.status.Disabled {
			header += errorTextStyle.Render("  ✗ actuator disabled")
		}
	}
	if m.watching {
		header += successTextStyle.Render("  ● LIVE")
	}
	return header
}

// busy reports whether the state is a scan or calibration.
func busy(state string) bool {
	return strings.HasPrefix(state, "scanning") || state == "calibrating"
}

func (m Model) renderStatus(width int) string {
	if m.statusErr != nil {
		return errorTextStyle.Render(truncate(m.statusErr.Error(), width))
	}
	st := m.status
	if st == nil {
		return mutedTextStyle.Render("waiting for status...")
	}

	lines := []string{
		labelStyle.Render("Plans") + renderPlans(st),
		labelStyle.Render("Latency") + fmt.Sprintf("%d frames", st.Latency),
		labelStyle.Render("Frames") + humanize.Comma(int64(st.Frames)) +
			mutedTextStyle.Render(fmt.Sprintf("  score %s", humanize.Comma(st.LastScore))),
	}
	if busy(st.State) && st.SweepStep > 0 {
		lines = append(lines, labelStyle.Render("Sweep")+fmt.Sprintf("step %d", st.SweepStep))
	}
	if st.Waiting {
		lines = append(lines, warningTextStyle.Render("press n to confirm this plane"))
	}
	if scan := st.LastScan; scan != nil {
		lines = append(lines,
			labelStyle.Render("Last scan")+fmt.Sprintf("%s, %d frames, %d candidates",
				scan.Mode, scan.Frames, len(scan.Candidates)),
			labelStyle.Render("")+renderSamples(scan.Samples, scan.Candidates, width-12),
		)
	}
	if cal := st.Calibration; cal != nil {
		result := fmt.Sprintf("latency %d", cal.Latency)
		if cal.Aborted {
			result = "aborted"
		}
		lines = append(lines, labelStyle.Render("Calibrated")+result+
			mutedTextStyle.Render(" "+humanize.Time(cal.Finished)))
	}
	return strings.Join(lines, "\n")
}

// renderPlans shows each plane, highlighting the one in view.
func renderPlans(st *engine.Status) string {
	if len(st.Plans) == 0 {
		return mutedTextStyle.Render("none")
	}
	parts := make([]string, len(st.Plans))
	for i, p := range st.Plans {
		text := strconv.Itoa(p)
		if st.State == "steady" && i == st.PlanIndex {
			parts[i] = currentPlanStyle.Render(text)
		} else {
			parts[i] = planStyle.Render(text)
		}
	}
	return strings.Join(parts, " ")
}

// renderSamples draws the sweep's sharpness curve as a sparkline, one cell
// per sample, with candidate peaks highlighted.
func renderSamples(samples []int64, candidates []int, width int) string {
	if len(samples) == 0 || width <= 0 {
		return ""
	}
	if len(samples) > width {
		samples = downsample(samples, width)
		candidates = nil
	}

	lo, hi := samples[0], samples[0]
	for _, s := range samples {
		lo = min(lo, s)
		hi = max(hi, s)
	}
	peak := make(map[int]bool, len(candidates))
	for _, c := range candidates {
		peak[c] = true
	}

	var b strings.Builder
	for i, s := range samples {
		idx := 0
		if hi > lo {
			idx = int((s - lo) * int64(len(sparkBlocks)-1) / (hi - lo))
		}
		cell := string(sparkBlocks[idx])
		if peak[i] {
			b.WriteString(candidateStyle.Render(cell))
		} else {
			b.WriteString(sampleStyle.Render(cell))
		}
	}
	return b.String()
}

// downsample keeps the maximum of each bucket so peaks survive.
func downsample(samples []int64, n int) []int64 {
	out := make([]int64, n)
	for i := range out {
		start := i * len(samples) / n
		end := (i + 1) * len(samples) / n
		best := samples[start]
		for _, s := range samples[start:end] {
			best = max(best, s)
		}
		out[i] = best
	}
	return out
}

func (m Model) renderEvents(width int) string {
	if len(m.events) == 0 {
		return mutedTextStyle.Render("no events yet")
	}
	lines := make([]string, 0, len(m.events))
	for _, ev := range m.events {
		line := fmt.Sprintf("%s  %-14s %s", ev.Time.Format("15:04:05"), ev.Kind, describeEvent(ev))
		lines = append(lines, truncate(line, width))
	}
	return strings.Join(lines, "\n")
}

// describeEvent is the detail column of the event list.
func describeEvent(ev engine.Event) string {
	switch ev.Kind {
	case engine.EventPlansUpdated:
		return ev.PlansText
	case engine.EventScanCompleted:
		if ev.Scan != nil {
			return fmt.Sprintf("%s scan, %d candidates", ev.Scan.Mode, len(ev.Scan.Candidates))
		}
	case engine.EventCalibrated:
		if ev.Calibration != nil {
			if ev.Calibration.Aborted {
				return "calibration aborted"
			}
			return fmt.Sprintf("latency %d", ev.Calibration.Latency)
		}
	}
	return ev.State
}

func (m Model) renderLogs(width int) string {
	rows := max(m.height/4, 3)
	records := tailRecords(m.logs.Records(), m.logLevel, rows)
	title := mutedTextStyle.Render(fmt.Sprintf("logs (%s+)", m.logLevel))
	if len(records) == 0 {
		return title + "\n" + mutedTextStyle.Render("(empty)")
	}
	lines := []string{title}
	for _, r := range records {
		lines = append(lines, renderRecord(r, width))
	}
	return strings.Join(lines, "\n")
}

func (m Model) renderHelp() string {
	keys := []struct{ key, desc string }{
		{"r", "reset"},
		{"n", "next"},
		{"c", "calibrate"},
		{"w", "work"},
		{"+/-", "planes"},
		{"[/]", "latency"},
	}
	if m.options.Logs {
		keys = append(keys, struct{ key, desc string }{"l", "logs"}, struct{ key, desc string }{"v", "level"})
	}
	keys = append(keys, struct{ key, desc string }{"q", "quit"})

	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = helpKeyStyle.Render(k.key) + " " + helpDescStyle.Render(k.desc)
	}
	return strings.Join(parts, "  ")
}
