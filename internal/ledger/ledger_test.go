package ledger

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"skilltrack_backend/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)

func TestRecordOnUnknownAttemptReturnsFalse(t *testing.T) {
	l := New()

	assert.False(t, l.RecordInput("nope", model.InputRecord{}))
	assert.False(t, l.RecordError("nope", model.ErrorRecord{}))
	assert.False(t, l.RecordTelemetry("nope", model.TelemetryRecord{}))
	_, ok := l.Take("nope")
	assert.False(t, ok)
}

func TestRecordsAppendInCallOrder(t *testing.T) {
	l := New()
	l.Open(model.NewAttempt("a1", "u1", "s1", t0))

	for i := 1; i <= 3; i++ {
		require.True(t, l.RecordInput("a1", model.InputRecord{StepNumber: i}))
		require.True(t, l.RecordError("a1", model.ErrorRecord{StepNumber: i, ErrorType: "e"}))
	}
	require.True(t, l.RecordError("a1", model.ErrorRecord{StepNumber: 1, ErrorType: "e"}))
	require.True(t, l.RecordTelemetry("a1", model.TelemetryRecord{StepNumber: 2}))

	a, ok := l.Get("a1")
	require.True(t, ok)
	require.Len(t, a.StepInputs, 3)
	require.Len(t, a.StepErrors, 4)
	for i, rec := range a.StepInputs {
		assert.Equal(t, i+1, rec.StepNumber)
	}
	assert.Equal(t, 1, a.StepErrors[3].StepNumber)
	assert.Len(t, a.StepTelemetry, 1)
}

func TestGetReturnsCopy(t *testing.T) {
	l := New()
	l.Open(model.NewAttempt("a1", "u1", "s1", t0))

	a, _ := l.Get("a1")
	a.StepErrors = append(a.StepErrors, model.ErrorRecord{})

	b, _ := l.Get("a1")
	assert.Empty(t, b.StepErrors)
}

func TestTakeIsExactlyOnce(t *testing.T) {
	l := New()
	l.Open(model.NewAttempt("a1", "u1", "s1", t0))

	var wins atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, ok := l.Take("a1"); ok {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), wins.Load())
	assert.Equal(t, 0, l.Len())
}

func TestRestoreReopens(t *testing.T) {
	l := New()
	l.Open(model.NewAttempt("a1", "u1", "s1", t0))

	a, ok := l.Take("a1")
	require.True(t, ok)
	l.Restore(a)

	assert.True(t, l.RecordInput("a1", model.InputRecord{}))
	assert.Equal(t, 1, l.Len())
}

func TestSweep(t *testing.T) {
	l := New()
	l.Open(model.NewAttempt("old2", "u1", "s1", t0.Add(-2*time.Hour)))
	l.Open(model.NewAttempt("old1", "u1", "s1", t0.Add(-3*time.Hour)))
	l.Open(model.NewAttempt("fresh", "u1", "s1", t0))

	expired := l.Sweep(t0.Add(-time.Hour))
	require.Len(t, expired, 2)
	assert.Equal(t, "old1", expired[0].AttemptID)
	assert.Equal(t, "old2", expired[1].AttemptID)
	assert.Equal(t, 1, l.Len())

	_, ok := l.Get("fresh")
	assert.True(t, ok)
}
