package streamproc

import "context"

// AdaptLineFunc builds the canonical "line-to-line" adapter from
// §4.1: for each incoming line it emits exactly one output, retagged
// to End, unless f returns the empty string, in which case the input
// is dropped.
func AdaptLineFunc(f func(string) string) Processor {
	return ProcessorFunc(func(_ context.Context, in TaggedLine) ([]TaggedLine, error) {
		out := f(in.Text)
		if out == "" {
			return nil, nil
		}
		return []TaggedLine{{Tag: End, Text: out}}, nil
	})
}

// AdaptLineSliceFunc builds the canonical "line-to-lines" adapter: one
// output TaggedLine per produced string, tagged per tagFor (which may
// inspect the produced text to pick a routing tag; the common case
// returns a constant tag).
func AdaptLineSliceFunc(f func(string) []string, tagFor func(string) Tag) Processor {
	return ProcessorFunc(func(_ context.Context, in TaggedLine) ([]TaggedLine, error) {
		parts := f(in.Text)
		out := make([]TaggedLine, 0, len(parts))
		for _, p := range parts {
			out = append(out, TaggedLine{Tag: tagFor(p), Text: p})
		}
		return out, nil
	})
}
