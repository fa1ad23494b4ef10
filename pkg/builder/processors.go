package builder

import (
	"context"
	"strconv"
	"strings"

	"github.com/streamgraph/engine/pkg/streamproc"
)

// lineCounter implements the "line_counter" type: a stateful counter
// prepended to each line per a format string containing "{count}" and
// "{line}" placeholders.
type lineCounter struct {
	format  string
	counter int
}

func newLineCounter(format string, startCount int) *lineCounter {
	return &lineCounter{format: format, counter: startCount}
}

func (c *lineCounter) Process(_ context.Context, in streamproc.TaggedLine) ([]streamproc.TaggedLine, error) {
	out := strings.NewReplacer(
		"{count}", strconv.Itoa(c.counter),
		"{line}", in.Text,
	).Replace(c.format)
	c.counter++
	return []streamproc.TaggedLine{{Tag: streamproc.End, Text: out}}, nil
}

// lineJoiner implements "line_joiner": buffers count lines and emits
// them joined by delimiter; any trailing partial buffer is flushed at
// end of stream.
type lineJoiner struct {
	delimiter string
	count     int
	buffer    []string
}

func newLineJoiner(delimiter string, count int) *lineJoiner {
	return &lineJoiner{delimiter: delimiter, count: count}
}

func (j *lineJoiner) Process(_ context.Context, in streamproc.TaggedLine) ([]streamproc.TaggedLine, error) {
	j.buffer = append(j.buffer, in.Text)
	if len(j.buffer) < j.count {
		return nil, nil
	}
	joined := strings.Join(j.buffer, j.delimiter)
	j.buffer = nil
	return []streamproc.TaggedLine{{Tag: streamproc.End, Text: joined}}, nil
}

func (j *lineJoiner) Flush(_ context.Context) []streamproc.TaggedLine {
	if len(j.buffer) == 0 {
		return nil
	}
	joined := strings.Join(j.buffer, j.delimiter)
	j.buffer = nil
	return []streamproc.TaggedLine{{Tag: streamproc.End, Text: joined}}
}

// newLineSplitter builds "line_splitter": one output per non-empty
// delimiter-separated part of the input, with surrounding whitespace
// trimmed from each part.
func newLineSplitter(delimiter string) streamproc.Processor {
	return streamproc.AdaptLineSliceFunc(func(line string) []string {
		raw := strings.Split(line, delimiter)
		out := make([]string, 0, len(raw))
		for _, p := range raw {
			trimmed := strings.TrimSpace(p)
			if trimmed == "" {
				continue
			}
			out = append(out, trimmed)
		}
		return out
	}, func(string) streamproc.Tag { return streamproc.End })
}

// newFilter builds "filter": passes lines satisfying a
// substring-containment pattern, a minimum length, or both (AND).
func newFilter(pattern string, hasPattern bool, minLength int, hasMinLength bool) streamproc.Processor {
	return streamproc.AdaptLineFunc(func(line string) string {
		if hasPattern && !strings.Contains(line, pattern) {
			return ""
		}
		if hasMinLength && len(line) < minLength {
			return ""
		}
		return line
	})
}

func newUppercase() streamproc.Processor {
	return streamproc.AdaptLineFunc(strings.ToUpper)
}

func newLowercase() streamproc.Processor {
	return streamproc.AdaptLineFunc(strings.ToLower)
}

// tagRouter implements "tag_router": splits the input on delimiter,
// uses the field at tagField as a route selector, and forwards to the
// matching sub-processor. A line whose selector has no route passes
// through unchanged, per §9's resolution of that open question.
type tagRouter struct {
	tagField  int
	delimiter string
	routes    map[string]streamproc.Processor
}

func newTagRouter(tagField int, delimiter string, routes map[string]streamproc.Processor) *tagRouter {
	return &tagRouter{tagField: tagField, delimiter: delimiter, routes: routes}
}

func (r *tagRouter) Process(ctx context.Context, in streamproc.TaggedLine) ([]streamproc.TaggedLine, error) {
	parts := strings.Split(in.Text, r.delimiter)
	var selector string
	if r.tagField >= 0 && r.tagField < len(parts) {
		selector = strings.TrimSpace(parts[r.tagField])
	}
	sub, ok := r.routes[selector]
	if !ok {
		return []streamproc.TaggedLine{in}, nil
	}
	return sub.Process(ctx, in)
}
