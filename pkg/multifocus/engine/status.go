package engine

import "time"

// ScanReport describes a finished sweep.
type ScanReport struct {
	ID         string        `json:"id" yaml:"id"`
	Mode       string        `json:"mode" yaml:"mode"`
	Slot       int           `json:"slot,omitempty" yaml:"slot,omitempty"`
	StartedAt  time.Time     `json:"started_at" yaml:"started_at"`
	FinishedAt time.Time     `json:"finished_at" yaml:"finished_at"`
	Duration   time.Duration `json:"duration" yaml:"duration"`
	Frames     int           `json:"frames" yaml:"frames"`
	Latency    int           `json:"latency" yaml:"latency"`
	Samples    []int64       `json:"samples" yaml:"samples"`
	Candidates []int         `json:"candidates" yaml:"candidates"`
	Requested  int           `json:"requested" yaml:"requested"`
	Plans      []int         `json:"plans" yaml:"plans"`
}

// Scan modes recorded in ScanReport.Mode.
const (
	ModeAuto   = "auto"
	ModeManual = "manual"
)

// CalibrationResult is the outcome of a latency measurement.
type CalibrationResult struct {
	Latency  int       `json:"latency" yaml:"latency"`
	Frames   int       `json:"frames" yaml:"frames"`
	Aborted  bool      `json:"aborted" yaml:"aborted"`
	Finished time.Time `json:"finished" yaml:"finished"`
}

// Status is a snapshot of the engine published after every frame.
type Status struct {
	State         string             `json:"state" yaml:"state"`
	Kind          Kind               `json:"-" yaml:"-"`
	PlanIndex     int                `json:"plan_index" yaml:"plan_index"`
	Waiting       bool               `json:"waiting" yaml:"waiting"`
	Disabled      bool               `json:"disabled" yaml:"disabled"`
	Work          bool               `json:"work" yaml:"work"`
	Plans         []int              `json:"plans" yaml:"plans"`
	PlansText     string             `json:"plans_text" yaml:"plans_text"`
	NumberOfPlans int                `json:"number_of_plans" yaml:"number_of_plans"`
	Latency       int                `json:"latency" yaml:"latency"`
	CycleIndex    int                `json:"cycle_index" yaml:"cycle_index"`
	SweepStep     int                `json:"sweep_step" yaml:"sweep_step"`
	Frames        uint64             `json:"frames" yaml:"frames"`
	LastScore     int64              `json:"last_score" yaml:"last_score"`
	LastScan      *ScanReport        `json:"last_scan,omitempty" yaml:"last_scan,omitempty"`
	Calibration   *CalibrationResult `json:"calibration,omitempty" yaml:"calibration,omitempty"`
	UpdatedAt     time.Time          `json:"updated_at" yaml:"updated_at"`
}

// EventKind classifies engine events.
type EventKind string

const (
	EventStateChanged  EventKind = "state_changed"
	EventPlansUpdated  EventKind = "plans_updated"
	EventScanCompleted EventKind = "scan_completed"
	EventCalibrated    EventKind = "calibrated"
)

// Event is delivered to the observer from the frame goroutine. Observers
// must not block.
type Event struct {
	Kind        EventKind          `json:"kind"`
	Time        time.Time          `json:"time"`
	State       string             `json:"state"`
	Plans       []int              `json:"plans,omitempty"`
	PlansText   string             `json:"plans_text,omitempty"`
	Scan        *ScanReport        `json:"scan,omitempty"`
	Calibration *CalibrationResult `json:"calibration,omitempty"`
}

// Observer receives engine events.
type Observer func(Event)
