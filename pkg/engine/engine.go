// Package engine implements the tag-routing engine (§4.2): it drives
// a stream of TaggedLines through a routing table until every line
// reaches the terminal "end" tag, detecting cycles along the way.
package engine

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"

	apperrors "github.com/streamgraph/engine/pkg/errors"
	"github.com/streamgraph/engine/pkg/streamproc"
)

// maxRevisits bounds how many times the same (tag, text) pair may be
// requeued before the run is declared cyclic.
const maxRevisits = 1000

// RoutingTable maps a Tag to the traced processor that owns it.
type RoutingTable map[streamproc.Tag]*streamproc.Traced

// New validates a routing table and returns an Engine that can run
// files against it. It fails with a ConfigError if the table has no
// "start" entry — every run must have somewhere to seed lines.
func New(table RoutingTable) (*Engine, error) {
	if _, ok := table[streamproc.Start]; !ok {
		return nil, apperrors.Config("engine.New", "routing table has no \"start\" entry")
	}
	return &Engine{table: table}, nil
}

// Engine runs one file's lines to quiescence against a fixed routing
// table. An Engine is single-use: construct a fresh one (and a fresh
// set of processor instances) per file, per §4.5's concurrency budget.
type Engine struct {
	table RoutingTable
}

type workItem struct {
	line streamproc.TaggedLine
	id   string
}

type cycleKey struct {
	tag  streamproc.Tag
	text string
}

// Run seeds the work deque with lines tagged "start" and drains it to
// quiescence, returning the text of every line that reached "end", in
// the order it arrived there. It fails with a RoutingError if a tag
// has no registered processor, or if a (tag, text) pair is revisited
// more than maxRevisits times.
func (e *Engine) Run(ctx context.Context, lines []string) ([]string, error) {
	deque := make([]workItem, 0, len(lines))
	for _, l := range lines {
		deque = append(deque, workItem{
			line: streamproc.TaggedLine{Tag: streamproc.Start, Text: l},
			id:   uuid.NewString(),
		})
	}

	visits := make(map[cycleKey]int)
	var terminal []string

	drain := func() error {
		for len(deque) > 0 {
			if err := ctx.Err(); err != nil {
				return err
			}

			item := deque[0]
			deque = deque[1:]

			if item.line.Tag == streamproc.End {
				terminal = append(terminal, item.line.Text)
				continue
			}

			proc, ok := e.table[item.line.Tag]
			if !ok {
				return apperrors.Routing("engine.Run", fmt.Sprintf("no processor for tag %q", item.line.Tag))
			}

			key := cycleKey{tag: item.line.Tag, text: item.line.Text}
			visits[key]++
			if visits[key] > maxRevisits {
				return apperrors.Routing("engine.Run", fmt.Sprintf("cycle on tag %q", item.line.Tag))
			}

			outs, outIDs, err := proc.ProcessTraced(ctx, item.id, item.line)
			if err != nil {
				return apperrors.Routing("engine.Run", fmt.Sprintf("processor %q failed", proc.ProcessorID)).Wrap(err)
			}
			for i, o := range outs {
				deque = append(deque, workItem{line: o, id: outIDs[i]})
			}
		}
		return nil
	}

	if err := drain(); err != nil {
		return nil, err
	}

	// Every routed line has either reached "end" or been consumed;
	// give each processor in the table a chance to drain buffered
	// state (line_joiner's trailing partial pair) before the run is
	// considered finished, same as LinearPipeline does per stage.
	// Flush emissions can themselves need routing, so a second drain
	// pass follows.
	seen := make(map[*streamproc.Traced]bool, len(e.table))
	for _, tag := range sortedTags(e.table) {
		proc := e.table[tag]
		if seen[proc] {
			continue
		}
		seen[proc] = true
		outs, outIDs := proc.FlushTraced(ctx)
		for i, o := range outs {
			deque = append(deque, workItem{line: o, id: outIDs[i]})
		}
	}

	if err := drain(); err != nil {
		return nil, err
	}

	return terminal, nil
}

func sortedTags(table RoutingTable) []streamproc.Tag {
	tags := make([]streamproc.Tag, 0, len(table))
	for t := range table {
		tags = append(tags, t)
	}
	sort.Slice(tags, func(i, j int) bool { return tags[i] < tags[j] })
	return tags
}
