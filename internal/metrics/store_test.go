package metrics_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/streamgraph/engine/internal/metrics"
)

func TestRegisterProcessorIsIdempotent(t *testing.T) {
	store := metrics.NewStore(false)
	store.RegisterProcessor("p1", "uppercase")
	store.RegisterProcessor("p1", "uppercase")

	m := store.GetMetrics()
	require.Len(t, m, 1)
	assert.Equal(t, "uppercase", m["p1"].Type)
}

func TestCountersAccumulateRegardlessOfTracing(t *testing.T) {
	store := metrics.NewStore(false)
	store.RegisterProcessor("p1", "uppercase")
	store.IncLinesIn("p1")
	store.IncLinesIn("p1")
	store.IncLinesOut("p1")

	m := store.GetMetrics()
	assert.EqualValues(t, 2, m["p1"].LinesIn)
	assert.EqualValues(t, 1, m["p1"].LinesOut)
}

func TestAddTraceNoopWhenTracingDisabled(t *testing.T) {
	store := metrics.NewStore(false)
	store.AddTrace("line-1", "hello", "p1", metrics.StatusStart)
	assert.Empty(t, store.GetTraces(0))
}

func TestAddTraceMergesByLineID(t *testing.T) {
	store := metrics.NewStore(true)
	store.AddTrace("line-1", "hello", "p1", metrics.StatusStart)
	store.AddTrace("line-1", "hello", "p1", metrics.StatusEmit)
	store.AddTrace("line-2", "world", "p2", metrics.StatusStart)

	traces := store.GetTraces(0)
	require.Len(t, traces, 2)
	// Most recent first.
	assert.Equal(t, "line-2", traces[0].LineID)
	assert.Equal(t, "line-1", traces[1].LineID)
	assert.Len(t, traces[1].Path, 2)
}

func TestTraceEvictsOldestOnOverflow(t *testing.T) {
	store := metrics.NewStore(true)
	for i := 0; i < 1001; i++ {
		store.AddTrace(itoaLineID(i), "x", "p1", metrics.StatusStart)
	}
	traces := store.GetTraces(0)
	assert.Len(t, traces, 1000)
	// The very first line recorded should have been evicted.
	for _, tr := range traces {
		assert.NotEqual(t, itoaLineID(0), tr.LineID)
	}
}

func TestErrorsBoundedAt100(t *testing.T) {
	store := metrics.NewStore(false)
	store.RegisterProcessor("p1", "uppercase")
	for i := 0; i < 150; i++ {
		store.RecordError("p1", "boom")
	}
	assert.Len(t, store.GetErrors(0), 100)
	m := store.GetMetrics()
	assert.EqualValues(t, 150, m["p1"].ErrorCount)
}

func TestRecentFilesBoundedAt10(t *testing.T) {
	store := metrics.NewStore(false)
	for i := 0; i < 15; i++ {
		store.AddProcessedFile(itoaLineID(i))
	}
	state := store.GetFileState()
	assert.Len(t, state.RecentFiles, 10)
}

func itoaLineID(i int) string {
	const digits = "0123456789"
	if i == 0 {
		return "0"
	}
	var b []byte
	for i > 0 {
		b = append([]byte{digits[i%10]}, b...)
		i /= 10
	}
	return string(b)
}
