package main

import (
	"strings"
	"testing"
	"time"

	"github.com/jamesainslie/multifocus/pkg/multifocus/engine"
)

func TestParseAssignments(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		want    map[string]any
		wantErr bool
	}{
		{
			name: "single",
			args: []string{"latency=4"},
			want: map[string]any{"latency": "4"},
		},
		{
			name: "value containing equals and semicolons",
			args: []string{"number_of_plans=2", "plans=120;480;"},
			want: map[string]any{"number_of_plans": "2", "plans": "120;480;"},
		},
		{
			name: "empty value",
			args: []string{"plans="},
			want: map[string]any{"plans": ""},
		},
		{name: "missing equals", args: []string{"latency"}, wantErr: true},
		{name: "missing key", args: []string{"=4"}, wantErr: true},
		{name: "duplicate", args: []string{"latency=1", "latency=2"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseAssignments(tt.args)
			if tt.wantErr {
				if err == nil {
					t.Errorf("parseAssignments(%v) should fail", tt.args)
				}
				return
			}
			if err != nil {
				t.Fatalf("parseAssignments(%v) error = %v", tt.args, err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("parseAssignments(%v) = %v, want %v", tt.args, got, tt.want)
			}
			for k, v := range tt.want {
				if got[k] != v {
					t.Errorf("%s = %v, want %v", k, got[k], v)
				}
			}
		})
	}
}

func TestParseOnOff(t *testing.T) {
	for _, s := range []string{"on", "ON", "true", "1", "yes"} {
		if on, err := parseOnOff(s); err != nil || !on {
			t.Errorf("parseOnOff(%q) = %v, %v; want true", s, on, err)
		}
	}
	for _, s := range []string{"off", "false", "0", "no"} {
		if on, err := parseOnOff(s); err != nil || on {
			t.Errorf("parseOnOff(%q) = %v, %v; want false", s, on, err)
		}
	}
	if _, err := parseOnOff("maybe"); err == nil {
		t.Error("parseOnOff(maybe) should fail")
	}
}

func TestFormatEvent(t *testing.T) {
	ts := time.Date(2024, 1, 1, 10, 0, 0, 0, time.Local)
	tests := []struct {
		name string
		ev   engine.Event
		want []string
	}{
		{
			name: "plans",
			ev:   engine.Event{Kind: engine.EventPlansUpdated, Time: ts, State: "steady", PlansText: "100;310;"},
			want: []string{"10:00:00.000", "plans_updated", "steady", "plans=100;310;"},
		},
		{
			name: "scan",
			ev: engine.Event{Kind: engine.EventScanCompleted, Time: ts, State: "scanning-auto",
				Scan: &engine.ScanReport{Mode: "auto", Frames: 40, Candidates: []int{3, 9}}},
			want: []string{"mode=auto", "frames=40", "candidates=[3 9]"},
		},
		{
			name: "calibration",
			ev: engine.Event{Kind: engine.EventCalibrated, Time: ts, State: "steady",
				Calibration: &engine.CalibrationResult{Latency: 4}},
			want: []string{"latency=4", "aborted=false"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := formatEvent(tt.ev)
			for _, w := range tt.want {
				if !strings.Contains(got, w) {
					t.Errorf("formatEvent() = %q, missing %q", got, w)
				}
			}
		})
	}
}

func TestEnvOverrides(t *testing.T) {
	got := envOverrides([]string{"HOME=/root", "MULTIFOCUS_ENGINE_LATENCY=4", "PATH=/bin", "MULTIFOCUS_SOURCE_KIND=dir"})
	if len(got) != 2 || got[0] != "MULTIFOCUS_ENGINE_LATENCY=4" || got[1] != "MULTIFOCUS_SOURCE_KIND=dir" {
		t.Errorf("envOverrides() = %v", got)
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{45 * time.Second, "45s"},
		{5*time.Minute + 3*time.Second, "5m 3s"},
		{2*time.Hour + 10*time.Minute, "2h 10m"},
		{50 * time.Hour, "2d 2h"},
	}
	for _, tt := range tests {
		if got := formatDuration(tt.d); got != tt.want {
			t.Errorf("formatDuration(%v) = %q, want %q", tt.d, got, tt.want)
		}
	}
}
