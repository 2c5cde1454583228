package focusv1

import (
	"encoding/json"
	"fmt"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/jamesainslie/multifocus/pkg/multifocus/engine"
)

// ToStruct converts any JSON-encodable value to a Struct by way of its
// JSON form, so json tags decide the field names.
func ToStruct(v any) (*structpb.Struct, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode %T: %w", v, err)
	}
	s := &structpb.Struct{}
	if err := protojson.Unmarshal(data, s); err != nil {
		return nil, fmt.Errorf("convert %T to struct: %w", v, err)
	}
	return s, nil
}

// FromStruct decodes s into v, the inverse of ToStruct.
func FromStruct(s *structpb.Struct, v any) error {
	if s == nil {
		return fmt.Errorf("decode %T: nil struct", v)
	}
	data, err := protojson.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode struct: %w", err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode %T: %w", v, err)
	}
	return nil
}

// PlansResult answers SetPlans.
type PlansResult struct {
	// Parsed is the number of positions read from the text.
	Parsed int `json:"parsed"`
	// Plans is the stored text after parsing.
	Plans string `json:"plans"`
	// Adopted is false when nothing was parsed and the list is unchanged.
	Adopted bool `json:"adopted"`
}

// DaemonStatus answers GetDaemonStatus.
type DaemonStatus struct {
	Running       bool   `json:"running"`
	PID           int    `json:"pid"`
	UptimeSeconds int64  `json:"uptime_seconds"`
	MemoryBytes   uint64 `json:"memory_bytes"`
	Subscribers   int    `json:"subscribers"`
	Source        string `json:"source"`
	Actuator      string `json:"actuator"`
	Disabled      bool   `json:"disabled"`
	FramesIn      uint64 `json:"frames_in"`
	Panics        uint64 `json:"panics"`
	ConfigFile    string `json:"config_file,omitempty"`
}

// History answers GetHistory, newest first.
type History struct {
	Scans        []engine.ScanReport        `json:"scans"`
	Calibrations []engine.CalibrationResult `json:"calibrations"`
}
