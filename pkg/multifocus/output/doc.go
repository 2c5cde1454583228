package output

import (
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/jamesainslie/multifocus/pkg/multifocus/engine"
)

// document is the shape shared by the json and yaml formatters. Durations
// and times are rendered as strings so both encodings read the same.
type document struct {
	Meta         docMeta          `json:"meta" yaml:"meta"`
	Status       *docStatus       `json:"status,omitempty" yaml:"status,omitempty"`
	Scans        []docScan        `json:"scans,omitempty" yaml:"scans,omitempty"`
	Calibrations []docCalibration `json:"calibrations,omitempty" yaml:"calibrations,omitempty"`
}

type docMeta struct {
	Source   string `json:"source" yaml:"source"`
	DaemonUp bool   `json:"daemon_up" yaml:"daemon_up"`
}

type docStatus struct {
	State         string          `json:"state" yaml:"state"`
	Disabled      bool            `json:"disabled" yaml:"disabled"`
	Work          bool            `json:"work" yaml:"work"`
	Plans         []int           `json:"plans" yaml:"plans"`
	PlansText     string          `json:"plans_text" yaml:"plans_text"`
	NumberOfPlans int             `json:"number_of_plans" yaml:"number_of_plans"`
	Latency       int             `json:"latency" yaml:"latency"`
	CycleIndex    int             `json:"cycle_index" yaml:"cycle_index"`
	SweepStep     int             `json:"sweep_step" yaml:"sweep_step"`
	Frames        uint64          `json:"frames" yaml:"frames"`
	LastScore     int64           `json:"last_score" yaml:"last_score"`
	LastScan      *docScan        `json:"last_scan,omitempty" yaml:"last_scan,omitempty"`
	Calibration   *docCalibration `json:"calibration,omitempty" yaml:"calibration,omitempty"`
	UpdatedAt     string          `json:"updated_at,omitempty" yaml:"updated_at,omitempty"`
}

type docScan struct {
	ID         string `json:"id" yaml:"id"`
	Mode       string `json:"mode" yaml:"mode"`
	Slot       int    `json:"slot,omitempty" yaml:"slot,omitempty"`
	FinishedAt string `json:"finished_at" yaml:"finished_at"`
	Duration   string `json:"duration" yaml:"duration"`
	Frames     int    `json:"frames" yaml:"frames"`
	Latency    int    `json:"latency" yaml:"latency"`
	Requested  int    `json:"requested" yaml:"requested"`
	Candidates []int  `json:"candidates" yaml:"candidates"`
	Plans      []int  `json:"plans" yaml:"plans"`
}

type docCalibration struct {
	Latency  int    `json:"latency" yaml:"latency"`
	Frames   int    `json:"frames" yaml:"frames"`
	Aborted  bool   `json:"aborted" yaml:"aborted"`
	Finished string `json:"finished,omitempty" yaml:"finished,omitempty"`
}

func buildDocument(r *Result) document {
	doc := document{Meta: docMeta{Source: r.Source, DaemonUp: r.DaemonUp}}
	if s := r.Status; s != nil {
		doc.Status = &docStatus{
			State:         s.State,
			Disabled:      s.Disabled,
			Work:          s.Work,
			Plans:         nonNil(s.Plans),
			PlansText:     s.PlansText,
			NumberOfPlans: s.NumberOfPlans,
			Latency:       s.Latency,
			CycleIndex:    s.CycleIndex,
			SweepStep:     s.SweepStep,
			Frames:        s.Frames,
			LastScore:     s.LastScore,
			UpdatedAt:     formatTime(s.UpdatedAt),
		}
		if s.LastScan != nil {
			sc := scanDoc(*s.LastScan)
			doc.Status.LastScan = &sc
		}
		if s.Calibration != nil {
			c := calibrationDoc(*s.Calibration)
			doc.Status.Calibration = &c
		}
	}
	for _, sc := range r.Scans {
		doc.Scans = append(doc.Scans, scanDoc(sc))
	}
	for _, c := range r.Calibrations {
		doc.Calibrations = append(doc.Calibrations, calibrationDoc(c))
	}
	return doc
}

func scanDoc(sc engine.ScanReport) docScan {
	return docScan{
		ID:         sc.ID,
		Mode:       sc.Mode,
		Slot:       sc.Slot,
		FinishedAt: formatTime(sc.FinishedAt),
		Duration:   formatDurationString(sc.Duration),
		Frames:     sc.Frames,
		Latency:    sc.Latency,
		Requested:  sc.Requested,
		Candidates: nonNil(sc.Candidates),
		Plans:      nonNil(sc.Plans),
	}
}

func calibrationDoc(c engine.CalibrationResult) docCalibration {
	return docCalibration{
		Latency:  c.Latency,
		Frames:   c.Frames,
		Aborted:  c.Aborted,
		Finished: formatTime(c.Finished),
	}
}

func nonNil(s []int) []int {
	if s == nil {
		return []int{}
	}
	return s
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

// formatDurationString formats a duration for machine-readable output.
func formatDurationString(d time.Duration) string {
	if d == 0 {
		return ""
	}
	return d.String()
}

// formatAge renders t relative to now, e.g. "3 minutes ago".
func formatAge(t, now time.Time) string {
	if t.IsZero() {
		return "never"
	}
	return humanize.RelTime(t, now, "ago", "from now")
}

// formatPositions renders positions as "100, 310, 550".
func formatPositions(p []int) string {
	if len(p) == 0 {
		return "none"
	}
	parts := make([]string, len(p))
	for i, v := range p {
		parts[i] = strconv.Itoa(v)
	}
	return strings.Join(parts, ", ")
}

func calibrationSummary(c engine.CalibrationResult) string {
	if c.Aborted {
		return "aborted after " + strconv.Itoa(c.Frames) + " frames"
	}
	return strconv.Itoa(c.Latency) + " frames"
}
