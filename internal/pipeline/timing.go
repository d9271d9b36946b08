package pipeline

import (
	"encoding/json"
	"os"
	"sync"
	"time"
)

type timingEvent struct {
	RunID      string  `json:"run_id"`
	Phase      string  `json:"phase"`
	Kind       string  `json:"kind"`
	Pass       string  `json:"pass,omitempty"`
	Status     string  `json:"status,omitempty"`
	StartMS    float64 `json:"start_ms"`
	DurationMS float64 `json:"duration_ms"`
	EndMS      float64 `json:"end_ms"`
}

type timingRecorder struct {
	enabled bool
	runID   string
	start   time.Time
	mu      sync.Mutex
	events  []timingEvent
	file    *os.File
	enc     *json.Encoder
	err     error
}

func newTimingRecorder(runID string, start time.Time, path string) *timingRecorder {
	tr := &timingRecorder{runID: runID, start: start}
	if path == "" {
		return tr
	}
	f, err := os.Create(path)
	if err != nil {
		tr.err = err
		return tr
	}
	tr.enabled = true
	tr.file = f
	tr.enc = json.NewEncoder(f)
	return tr
}

func (tr *timingRecorder) Enabled() bool {
	return tr != nil && tr.enabled
}

func (tr *timingRecorder) Err() error {
	if tr == nil {
		return nil
	}
	return tr.err
}

func (tr *timingRecorder) Close() error {
	if tr == nil || tr.file == nil {
		return nil
	}
	err := tr.file.Close()
	tr.file = nil
	return err
}

func (tr *timingRecorder) record(phase, kind, pass, status string, start time.Time, duration time.Duration) {
	if tr == nil || !tr.enabled {
		return
	}
	startMS := durationToMS(start.Sub(tr.start))
	durationMS := durationToMS(duration)
	event := timingEvent{
		RunID:      tr.runID,
		Phase:      phase,
		Kind:       kind,
		Pass:       pass,
		Status:     status,
		StartMS:    startMS,
		DurationMS: durationMS,
		EndMS:      startMS + durationMS,
	}
	tr.mu.Lock()
	tr.events = append(tr.events, event)
	if tr.enc != nil {
		if err := tr.enc.Encode(event); err != nil && tr.err == nil {
			tr.err = err
		}
	}
	tr.mu.Unlock()
}

// RecordStage records a pipeline stage such as "validate" or "policy".
func (tr *timingRecorder) RecordStage(phase string, start time.Time, duration time.Duration, status string) {
	tr.record(phase, "stage", "", status, start, duration)
}

// RecordPass records one pass run; status is "ok" or "failed".
func (tr *timingRecorder) RecordPass(pass, status string, start time.Time, duration time.Duration) {
	tr.record("pass", "pass", pass, status, start, duration)
}

func durationToMS(d time.Duration) float64 {
	return float64(d.Nanoseconds()) / 1_000_000.0
}
