package streamproc_test

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/streamgraph/engine/pkg/streamproc"
)

func TestAdaptLineFuncEmitsOneRetaggedLine(t *testing.T) {
	p := streamproc.AdaptLineFunc(strings.ToUpper)
	out, err := p.Process(context.Background(), streamproc.TaggedLine{Tag: streamproc.Start, Text: "hi"})
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, streamproc.End, out[0].Tag)
	assert.Equal(t, "HI", out[0].Text)
}

func TestAdaptLineFuncDropsOnEmptyString(t *testing.T) {
	p := streamproc.AdaptLineFunc(func(string) string { return "" })
	out, err := p.Process(context.Background(), streamproc.TaggedLine{Tag: streamproc.Start, Text: "anything"})
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestAdaptLineSliceFuncEmitsOnePerPart(t *testing.T) {
	p := streamproc.AdaptLineSliceFunc(
		func(s string) []string { return strings.Split(s, ",") },
		func(string) streamproc.Tag { return streamproc.End },
	)
	out, err := p.Process(context.Background(), streamproc.TaggedLine{Tag: streamproc.Start, Text: "a,b,c"})
	require.NoError(t, err)
	require.Len(t, out, 3)
	assert.Equal(t, []string{"a", "b", "c"}, []string{out[0].Text, out[1].Text, out[2].Text})
}

func TestAdaptLineSliceFuncTagForCanVaryPerOutput(t *testing.T) {
	p := streamproc.AdaptLineSliceFunc(
		func(s string) []string { return strings.Split(s, ",") },
		func(part string) streamproc.Tag {
			if part == "important" {
				return "priority"
			}
			return streamproc.End
		},
	)
	out, err := p.Process(context.Background(), streamproc.TaggedLine{Text: "important,normal"})
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, streamproc.Tag("priority"), out[0].Tag)
	assert.Equal(t, streamproc.End, out[1].Tag)
}
