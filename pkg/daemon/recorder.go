package daemon

import (
	"sync"
	"sync/atomic"

	"github.com/jamesainslie/multifocus/pkg/daemon/store"
	"github.com/jamesainslie/multifocus/pkg/multifocus/engine"
	"github.com/jamesainslie/multifocus/pkg/multifocus/logging"
)

// recorderBuffer is the number of events queued for the store.
const recorderBuffer = 256

// Recorder persists engine events to the store on its own goroutine so the
// frame path never waits on disk.
type Recorder struct {
	store *store.Store
	keep  int
	log   *logging.Logger

	events  chan engine.Event
	done    chan struct{}
	dropped atomic.Uint64

	mu     sync.Mutex
	closed bool
}

// NewRecorder starts a recorder writing to s. When keep is positive only
// the newest keep scans are retained.
func NewRecorder(s *store.Store, keep int) *Recorder {
	r := &Recorder{
		store:  s,
		keep:   keep,
		log:    logging.Get("recorder"),
		events: make(chan engine.Event, recorderBuffer),
		done:   make(chan struct{}),
	}
	go r.run()
	return r
}

// Observe queues ev. It never blocks; events arriving while the queue is
// full are counted and dropped.
func (r *Recorder) Observe(ev engine.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	select {
	case r.events <- ev:
	default:
		r.dropped.Add(1)
	}
}

// Dropped returns the number of events lost to a full queue.
func (r *Recorder) Dropped() uint64 {
	return r.dropped.Load()
}

// Close stops accepting events and waits for queued ones to be written.
func (r *Recorder) Close() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	close(r.events)
	r.mu.Unlock()
	<-r.done
}

func (r *Recorder) run() {
	defer close(r.done)
	for ev := range r.events {
		r.record(ev)
	}
}

func (r *Recorder) record(ev engine.Event) {
	switch ev.Kind {
	case engine.EventPlansUpdated:
		rec := store.PlanRecord{
			Text:          ev.PlansText,
			Positions:     ev.Plans,
			NumberOfPlans: len(ev.Plans),
			UpdatedAt:     ev.Time,
		}
		if err := r.store.SavePlans(rec); err != nil {
			r.log.Error("failed to save plans", "error", err)
		}
	case engine.EventScanCompleted:
		if ev.Scan == nil {
			return
		}
		if err := r.store.AddScan(ev.Scan); err != nil {
			r.log.Error("failed to record scan", "id", ev.Scan.ID, "error", err)
			return
		}
		if r.keep > 0 {
			if n, err := r.store.PruneScans(r.keep); err != nil {
				r.log.Warn("failed to prune scans", "error", err)
			} else if n > 0 {
				r.log.Debug("pruned scans", "removed", n)
			}
		}
	case engine.EventCalibrated:
		if ev.Calibration == nil {
			return
		}
		if err := r.store.AddCalibration(*ev.Calibration); err != nil {
			r.log.Error("failed to record calibration", "error", err)
		}
	}
}
