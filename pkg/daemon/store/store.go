// Package store persists focus plans, scan reports and calibration results
// in a Badger database under the daemon's data directory.
package store

import (
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/jamesainslie/multifocus/pkg/multifocus/engine"
)

// Key prefixes
const (
	prefixScan        = "s:"
	prefixCalibration = "c:"
	prefixMeta        = "m:"
	keyPlans          = "p:current"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("not found")

// PlanRecord is the persisted plan list.
type PlanRecord struct {
	Text          string    `json:"text"`
	Positions     []int     `json:"positions"`
	NumberOfPlans int       `json:"number_of_plans"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Store wraps a Badger database.
type Store struct {
	db *badger.DB
}

// Open opens or creates the database in dir and stamps its schema.
func Open(dir string) (*Store, error) {
	opts := badger.DefaultOptions(dir)
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("opening store: %w", err)
	}
	s := &Store{db: db}
	if err := s.ensureSchema(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// OpenInMemory returns a store that lives only as long as the process.
func OpenInMemory() (*Store, error) {
	db, err := badger.Open(badger.DefaultOptions("").WithInMemory(true).WithLogger(nil))
	if err != nil {
		return nil, fmt.Errorf("opening in-memory store: %w", err)
	}
	s := &Store{db: db}
	if err := s.ensureSchema(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// SavePlans replaces the stored plan list.
func (s *Store) SavePlans(rec PlanRecord) error {
	if rec.UpdatedAt.IsZero() {
		rec.UpdatedAt = time.Now()
	}
	return s.putJSON([]byte(keyPlans), rec)
}

// LoadPlans returns the stored plan list or ErrNotFound.
func (s *Store) LoadPlans() (*PlanRecord, error) {
	var rec PlanRecord
	if err := s.getJSON([]byte(keyPlans), &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// AddScan stores a scan report keyed by its finish time.
func (s *Store) AddScan(r *engine.ScanReport) error {
	if r.ID == "" {
		return errors.New("scan report has no id")
	}
	return s.putJSON(timeKey(prefixScan, r.FinishedAt, r.ID), r)
}

// Scans returns up to limit scan reports, newest first. A limit of zero
// or less returns all of them.
func (s *Store) Scans(limit int) ([]*engine.ScanReport, error) {
	var out []*engine.ScanReport
	err := s.eachNewest(prefixScan, limit, func(val []byte) error {
		var r engine.ScanReport
		if err := json.Unmarshal(val, &r); err != nil {
			return fmt.Errorf("decoding scan report: %w", err)
		}
		out = append(out, &r)
		return nil
	})
	return out, err
}

// Scan looks up a report by id.
func (s *Store) Scan(id string) (*engine.ScanReport, error) {
	all, err := s.Scans(0)
	if err != nil {
		return nil, err
	}
	for _, r := range all {
		if r.ID == id {
			return r, nil
		}
	}
	return nil, fmt.Errorf("scan %s: %w", id, ErrNotFound)
}

// AddCalibration stores a calibration result.
func (s *Store) AddCalibration(r engine.CalibrationResult) error {
	return s.putJSON(timeKey(prefixCalibration, r.Finished, ""), r)
}

// Calibrations returns up to limit results, newest first.
func (s *Store) Calibrations(limit int) ([]engine.CalibrationResult, error) {
	var out []engine.CalibrationResult
	err := s.eachNewest(prefixCalibration, limit, func(val []byte) error {
		var r engine.CalibrationResult
		if err := json.Unmarshal(val, &r); err != nil {
			return fmt.Errorf("decoding calibration: %w", err)
		}
		out = append(out, r)
		return nil
	})
	return out, err
}

// PruneScans keeps the newest keep reports and deletes the rest.
func (s *Store) PruneScans(keep int) (int, error) {
	var stale [][]byte
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Reverse = true
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(prefixScan)
		seen := 0
		for it.Seek(seekLast(prefixScan)); it.ValidForPrefix(prefix); it.Next() {
			seen++
			if seen > keep {
				stale = append(stale, it.Item().KeyCopy(nil))
			}
		}
		return nil
	})
	if err != nil || len(stale) == 0 {
		return 0, err
	}

	wb := s.db.NewWriteBatch()
	defer wb.Cancel()
	for _, k := range stale {
		if err := wb.Delete(k); err != nil {
			return 0, fmt.Errorf("pruning scans: %w", err)
		}
	}
	if err := wb.Flush(); err != nil {
		return 0, fmt.Errorf("pruning scans: %w", err)
	}
	return len(stale), nil
}

// timeKey sorts records chronologically: prefix + big-endian nanos + id.
func timeKey(prefix string, t time.Time, id string) []byte {
	var ts [8]byte
	binary.BigEndian.PutUint64(ts[:], uint64(t.UnixNano()))
	key := prefix + hex.EncodeToString(ts[:])
	if id != "" {
		key += ":" + id
	}
	return []byte(key)
}

func seekLast(prefix string) []byte {
	return append([]byte(prefix), 0xff)
}

func (s *Store) eachNewest(prefix string, limit int, fn func(val []byte) error) error {
	return s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		it := txn.NewIterator(opts)
		defer it.Close()

		n := 0
		p := []byte(prefix)
		for it.Seek(seekLast(prefix)); it.ValidForPrefix(p); it.Next() {
			if limit > 0 && n >= limit {
				break
			}
			if err := it.Item().Value(fn); err != nil {
				return err
			}
			n++
		}
		return nil
	})
}

func (s *Store) putJSON(key []byte, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding %s: %w", key, err)
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, data)
	})
}

func (s *Store) getJSON(key []byte, v any) error {
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, v)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return fmt.Errorf("%s: %w", key, ErrNotFound)
	}
	return err
}
