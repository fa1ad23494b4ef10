package streamproc_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/streamgraph/engine/internal/metrics"
	"github.com/streamgraph/engine/pkg/streamproc"
)

func TestProcessTracedPreservesLineIDOnSingleOutput(t *testing.T) {
	store := metrics.NewStore(true)
	tr := streamproc.NewTraced("p1", "uppercase", streamproc.AdaptLineFunc(func(s string) string { return s }), store, nil, nil)

	out, ids, err := tr.ProcessTraced(context.Background(), "line-1", streamproc.TaggedLine{Text: "hi"})
	require.NoError(t, err)
	require.Len(t, out, 1)
	require.Len(t, ids, 1)
	assert.Equal(t, "line-1", ids[0])
}

func TestProcessTracedMintsFreshIDsOnFanOut(t *testing.T) {
	store := metrics.NewStore(true)
	splitter := streamproc.AdaptLineSliceFunc(
		func(s string) []string { return []string{"a", "b"} },
		func(string) streamproc.Tag { return streamproc.End },
	)
	tr := streamproc.NewTraced("p1", "line_splitter", splitter, store, nil, nil)

	out, ids, err := tr.ProcessTraced(context.Background(), "line-1", streamproc.TaggedLine{Text: "a,b"})
	require.NoError(t, err)
	require.Len(t, out, 2)
	require.Len(t, ids, 2)
	assert.NotEqual(t, "line-1", ids[0])
	assert.NotEqual(t, "line-1", ids[1])
	assert.NotEqual(t, ids[0], ids[1])
}

func TestProcessTracedRecordsErrorAndReturnsNone(t *testing.T) {
	store := metrics.NewStore(false)
	boom := errors.New("boom")
	failing := streamproc.ProcessorFunc(func(ctx context.Context, in streamproc.TaggedLine) ([]streamproc.TaggedLine, error) {
		return nil, boom
	})
	tr := streamproc.NewTraced("p1", "filter", failing, store, nil, nil)

	out, ids, err := tr.ProcessTraced(context.Background(), "line-1", streamproc.TaggedLine{Text: "x"})
	assert.ErrorIs(t, err, boom)
	assert.Nil(t, out)
	assert.Nil(t, ids)

	m := store.GetMetrics()
	assert.EqualValues(t, 1, m["p1"].ErrorCount)
}

func TestProcessTracedGeneratesLineIDWhenEmpty(t *testing.T) {
	store := metrics.NewStore(false)
	tr := streamproc.NewTraced("p1", "uppercase", streamproc.AdaptLineFunc(func(s string) string { return s }), store, nil, nil)

	_, ids, err := tr.ProcessTraced(context.Background(), "", streamproc.TaggedLine{Text: "hi"})
	require.NoError(t, err)
	require.Len(t, ids, 1)
	assert.NotEmpty(t, ids[0])
}

type joinerStub struct{ buffered []streamproc.TaggedLine }

func (j *joinerStub) Process(ctx context.Context, in streamproc.TaggedLine) ([]streamproc.TaggedLine, error) {
	return nil, nil
}

func (j *joinerStub) Flush(ctx context.Context) []streamproc.TaggedLine {
	return j.buffered
}

func TestFlushTracedMintsFreshIDPerEmission(t *testing.T) {
	store := metrics.NewStore(true)
	stub := &joinerStub{buffered: []streamproc.TaggedLine{{Text: "left"}, {Text: "right"}}}
	tr := streamproc.NewTraced("p1", "line_joiner", stub, store, nil, nil)

	out, ids := tr.FlushTraced(context.Background())
	require.Len(t, out, 2)
	require.Len(t, ids, 2)
	assert.NotEqual(t, ids[0], ids[1])

	m := store.GetMetrics()
	assert.EqualValues(t, 2, m["p1"].LinesOut)
}
