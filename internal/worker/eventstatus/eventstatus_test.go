package eventstatus

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/hitoshi/eventhub/internal/metrics"
)

type mockCompleter struct {
	mu    sync.Mutex
	calls []time.Time
	n     int64
	err   error
}

func (m *mockCompleter) CompletePastEvents(_ context.Context, now time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, now)
	return m.n, m.err
}

func (m *mockCompleter) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

type countingRecorder struct {
	metrics.Nop
	completed []int64
}

func (r *countingRecorder) RecordEventsCompleted(n int64) {
	r.completed = append(r.completed, n)
}

func newTestLogger(buf *bytes.Buffer) *slog.Logger {
	return slog.New(slog.NewJSONHandler(buf, &slog.HandlerOptions{Level: slog.LevelInfo}))
}

func TestJob_Run_CompletesPastEvents(t *testing.T) {
	var buf bytes.Buffer
	completer := &mockCompleter{n: 3}
	rec := &countingRecorder{}
	job := NewJob(completer, newTestLogger(&buf), rec)

	fixed := time.Date(2026, 10, 19, 12, 0, 0, 0, time.FixedZone("JST", 9*60*60))
	job.now = func() time.Time { return fixed }

	n, err := job.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if n != 3 {
		t.Errorf("n = %d, want 3", n)
	}
	if len(completer.calls) != 1 || !completer.calls[0].Equal(fixed) || completer.calls[0].Location() != time.UTC {
		t.Errorf("calls = %v, want one UTC call at %v", completer.calls, fixed)
	}
	if len(rec.completed) != 1 || rec.completed[0] != 3 {
		t.Errorf("recorded = %v", rec.completed)
	}

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("failed to parse log: %v", err)
	}
	if entry["completed_count"] != float64(3) {
		t.Errorf("completed_count = %v", entry["completed_count"])
	}
}

func TestJob_Run_PropagatesError(t *testing.T) {
	var buf bytes.Buffer
	rec := &countingRecorder{}
	job := NewJob(&mockCompleter{err: errors.New("connection refused")}, newTestLogger(&buf), rec)

	if _, err := job.Run(context.Background()); err == nil {
		t.Fatal("expected error")
	}
	if len(rec.completed) != 0 {
		t.Error("nothing should be recorded on failure")
	}
	if !strings.Contains(buf.String(), "connection refused") {
		t.Errorf("error should be logged, got %s", buf.String())
	}
}

func TestJob_Start_RunsImmediatelyAndStopsOnCancel(t *testing.T) {
	var buf bytes.Buffer
	completer := &mockCompleter{}
	job := NewJob(completer, newTestLogger(&buf), nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		job.Start(ctx, 10*time.Millisecond)
		close(done)
	}()

	deadline := time.After(2 * time.Second)
	for completer.callCount() < 2 {
		select {
		case <-deadline:
			t.Fatalf("expected repeated runs, got %d", completer.callCount())
		case <-time.After(5 * time.Millisecond):
		}
	}
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Start did not return after cancel")
	}
}
