package builder

import (
	"context"

	"github.com/google/uuid"

	"github.com/streamgraph/engine/pkg/streamproc"
)

// Run feeds lines through each stage in order, collecting every
// surviving output of stage i as the input to stage i+1, and flushing
// each stage's buffered state before moving to the next.
func (p *LinearPipeline) Run(ctx context.Context, lines []string) ([]string, error) {
	current := make([]streamproc.TaggedLine, len(lines))
	ids := make([]string, len(lines))
	for i, l := range lines {
		current[i] = streamproc.TaggedLine{Tag: streamproc.Start, Text: l}
		ids[i] = uuid.NewString()
	}

	for _, stage := range p.stages {
		var next []streamproc.TaggedLine
		var nextIDs []string

		for i, line := range current {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			outs, outIDs, err := stage.ProcessTraced(ctx, ids[i], line)
			if err != nil {
				return nil, err
			}
			next = append(next, outs...)
			nextIDs = append(nextIDs, outIDs...)
		}

		flushOuts, flushIDs := stage.FlushTraced(ctx)
		next = append(next, flushOuts...)
		nextIDs = append(nextIDs, flushIDs...)

		current = next
		ids = nextIDs
	}

	result := make([]string, len(current))
	for i, l := range current {
		result[i] = l.Text
	}
	return result, nil
}
