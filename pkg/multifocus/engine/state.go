package engine

import "fmt"

// Kind enumerates the engine states.
type Kind int

const (
	Idle Kind = iota
	ScanningAuto
	ScanningManual
	Steady
	Calibrating
)

var kindNames = [...]string{"idle", "scanning-auto", "scanning-manual", "steady", "calibrating"}

func (k Kind) String() string {
	if k < Idle || k > Calibrating {
		return fmt.Sprintf("kind(%d)", int(k))
	}
	return kindNames[k]
}

// State is the engine state. PlanIndex and Waiting only apply to
// ScanningManual: the slot being scanned, and whether its scan finished
// and the operator's next trigger is awaited.
type State struct {
	Kind      Kind
	PlanIndex int
	Waiting   bool
}

func (s State) String() string {
	if s.Kind != ScanningManual {
		return s.Kind.String()
	}
	if s.Waiting {
		return fmt.Sprintf("%s[%d] waiting", s.Kind, s.PlanIndex)
	}
	return fmt.Sprintf("%s[%d]", s.Kind, s.PlanIndex)
}

// Scanning reports whether a sweep is in progress or awaiting confirmation.
func (s State) Scanning() bool {
	return s.Kind == ScanningAuto || s.Kind == ScanningManual
}
