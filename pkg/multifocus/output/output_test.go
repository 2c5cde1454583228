package output

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/jamesainslie/multifocus/pkg/multifocus/engine"
)

var testNow = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func sampleResult() *Result {
	scan := engine.ScanReport{
		ID:         "4f1c2a9e-0000-4000-8000-000000000001",
		Mode:       engine.ModeAuto,
		StartedAt:  testNow.Add(-2*time.Minute - 3*time.Second),
		FinishedAt: testNow.Add(-2 * time.Minute),
		Duration:   3 * time.Second,
		Frames:     90,
		Latency:    3,
		Candidates: []int{100, 310, 550},
		Requested:  3,
		Plans:      []int{100, 310, 550},
	}
	cal := engine.CalibrationResult{Latency: 4, Frames: 10, Finished: testNow.Add(-time.Hour)}
	return &Result{
		Status: &engine.Status{
			State:         "steady",
			Work:          true,
			Plans:         []int{100, 310, 550},
			PlansText:     "100;310;550;",
			NumberOfPlans: 3,
			Latency:       3,
			CycleIndex:    1,
			Frames:        12345,
			LastScore:     987,
			LastScan:      &scan,
			Calibration:   &cal,
			UpdatedAt:     testNow,
		},
		Scans:        []engine.ScanReport{scan},
		Calibrations: []engine.CalibrationResult{cal, {Aborted: true, Frames: 60, Finished: testNow}},
		Source:       "/run/multifocus.sock",
		DaemonUp:     true,
		Now:          testNow,
	}
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	_, err := r.Get("missing")
	require.Error(t, err)

	r.Register("b", func() Formatter { return &PlainFormatter{} })
	r.Register("a", func() Formatter { return &JSONFormatter{} })
	assert.Equal(t, []string{"a", "b"}, r.Available())

	f, err := r.Get("a")
	require.NoError(t, err)
	assert.IsType(t, &JSONFormatter{}, f)
}

func TestDefaultRegistry(t *testing.T) {
	for _, name := range []string{"json", "jsonl", "plain", "pretty", "template", "yaml"} {
		t.Run(name, func(t *testing.T) {
			f, err := Get(name)
			require.NoError(t, err)

			var buf bytes.Buffer
			require.NoError(t, f.Format(&buf, sampleResult()))
			assert.NotEmpty(t, buf.String())
		})
	}
}

func TestJSONFormatter(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, (&JSONFormatter{}).Format(&buf, sampleResult()))

	var parsed map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &parsed))

	assert.Contains(t, parsed, "meta")
	status := parsed["status"].(map[string]any)
	assert.Equal(t, "steady", status["state"])
	assert.Equal(t, "100;310;550;", status["plans_text"])
	assert.Equal(t, []any{float64(100), float64(310), float64(550)}, status["plans"])

	scans := parsed["scans"].([]any)
	require.Len(t, scans, 1)
	scan := scans[0].(map[string]any)
	assert.Equal(t, "3s", scan["duration"])
	assert.Equal(t, "2024-05-01T11:58:00Z", scan["finished_at"])
}

func TestJSONFormatter_EmptyPlans(t *testing.T) {
	var buf bytes.Buffer
	r := &Result{Status: &engine.Status{State: "idle"}}
	require.NoError(t, (&JSONFormatter{}).Format(&buf, r))

	assert.Contains(t, buf.String(), `"plans": []`)
	assert.NotContains(t, buf.String(), `"scans"`)
}

func TestJSONLFormatter(t *testing.T) {
	r := sampleResult()
	second := r.Scans[0]
	second.ID = "second"
	r.Scans = append(r.Scans, second)

	var buf bytes.Buffer
	require.NoError(t, (&JSONLFormatter{}).Format(&buf, r))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	for _, line := range lines {
		var obj map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &obj))
		assert.Contains(t, obj, "plans")
	}
}

func TestYAMLFormatter(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, (&YAMLFormatter{}).Format(&buf, sampleResult()))

	var parsed map[string]any
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &parsed))

	status := parsed["status"].(map[string]any)
	assert.Equal(t, "steady", status["state"])
	assert.Equal(t, 3, status["latency"])

	cals := parsed["calibrations"].([]any)
	assert.Len(t, cals, 2)
}

func TestPlainFormatter(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, (&PlainFormatter{}).Format(&buf, sampleResult()))
	out := buf.String()

	assert.Contains(t, out, "STATE")
	assert.Contains(t, out, "steady")
	assert.Contains(t, out, "100;310;550;")
	assert.Contains(t, out, "CALIBRATION")
	assert.Contains(t, out, "4 frames")
	assert.Contains(t, out, "4f1c2a9e")
	assert.NotContains(t, out, "4f1c2a9e-0000")
	assert.Contains(t, out, "100, 310, 550")
	assert.NotContains(t, out, "\x1b[")
}

func TestPlainFormatter_HistoryOnly(t *testing.T) {
	r := sampleResult()
	r.Status = nil

	var buf bytes.Buffer
	require.NoError(t, (&PlainFormatter{}).Format(&buf, r))

	assert.NotContains(t, buf.String(), "STATE")
	assert.True(t, strings.HasPrefix(buf.String(), "ID"))
}

func TestPrettyFormatter(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, (&PrettyFormatter{}).Format(&buf, sampleResult()))
	out := buf.String()

	assert.Contains(t, out, "State:")
	assert.Contains(t, out, "steady")
	assert.Contains(t, out, "100, 310, 550")
	assert.Contains(t, out, "showing #2")
	assert.Contains(t, out, "12,345")
	assert.Contains(t, out, "2 minutes ago")
	assert.Contains(t, out, "aborted after 60 frames")
	assert.Contains(t, out, "daemon:")
}

func TestPrettyFormatter_NoScans(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, (&PrettyFormatter{}).Format(&buf, &Result{Scans: []engine.ScanReport{}}))
	assert.Contains(t, buf.String(), "No scans recorded")
}

func TestPrettyFormatter_DisabledActuator(t *testing.T) {
	r := sampleResult()
	r.Status.Disabled = true

	var buf bytes.Buffer
	require.NoError(t, (&PrettyFormatter{}).Format(&buf, r))
	assert.Contains(t, buf.String(), "actuator: disabled")
}

func TestTemplateFormatter(t *testing.T) {
	f := NewTemplateFormatter(`{{with .Status}}{{.State}} {{positions .Plans}}{{end}}|{{range .Scans}}{{ago .FinishedAt}}{{end}}|{{comma 1234567}}`)

	var buf bytes.Buffer
	require.NoError(t, f.Format(&buf, sampleResult()))
	assert.Equal(t, "steady 100, 310, 550|2 minutes ago|1,234,567", buf.String())

	f.SetTemplate(`{{len .Scans}}`)
	buf.Reset()
	require.NoError(t, f.Format(&buf, sampleResult()))
	assert.Equal(t, "1", buf.String())
}

func TestTemplateFormatter_ParseError(t *testing.T) {
	f := NewTemplateFormatter(`{{.Status`)
	var buf bytes.Buffer
	assert.Error(t, f.Format(&buf, sampleResult()))
}

func TestStateStyle(t *testing.T) {
	assert.Equal(t, SuccessStyle.Render("x"), StateStyle("steady").Render("x"))
	assert.Equal(t, WarningStyle.Render("x"), StateStyle("scanning-manual[0]").Render("x"))
	assert.Equal(t, WarningStyle.Render("x"), StateStyle("calibrating").Render("x"))
	assert.Equal(t, MutedStyle.Render("x"), StateStyle("idle").Render("x"))
}
