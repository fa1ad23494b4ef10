package streamproc

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"

	"github.com/streamgraph/engine/internal/metrics"
)

// Traced wraps a Processor so that every call updates the shared
// Store and, if tracing is enabled, records the line's trace path.
// It implements the telemetry wrapper from §4.3.
//
// LineId propagation: a LineId is assigned once, when a line is first
// read from its source file. As long as a call produces exactly one
// output, that output inherits the same LineId — the common case of a
// straight-line transform keeps one coherent path across every hop it
// passes through. A call that fans out (more than one output) or
// drops to zero breaks that continuity: each surviving output starts
// a fresh LineId, since there is no longer a single line to which the
// parent's identity unambiguously applies. This is stricter than
// strictly necessary but keeps every trace record a simple path
// rather than a branching tree.
type Traced struct {
	ProcessorID   string
	ProcessorType string
	Inner         Processor
	Store         *metrics.Store
	Bridge        *metrics.PrometheusBridge
	Tracer        trace.Tracer
}

// NewTraced constructs a Traced wrapper and registers the processor
// with the store so it shows up in /stats even before its first line.
func NewTraced(id, processorType string, inner Processor, store *metrics.Store, bridge *metrics.PrometheusBridge, tracer trace.Tracer) *Traced {
	store.RegisterProcessor(id, processorType)
	return &Traced{
		ProcessorID:   id,
		ProcessorType: processorType,
		Inner:         inner,
		Store:         store,
		Bridge:        bridge,
		Tracer:        tracer,
	}
}

// ProcessTraced runs one input through the wrapped processor,
// returning its emissions paired with the LineId each should carry
// onward.
func (t *Traced) ProcessTraced(ctx context.Context, lineID string, in TaggedLine) (outs []TaggedLine, outIDs []string, err error) {
	if lineID == "" {
		lineID = uuid.NewString()
	}

	if t.Tracer != nil {
		var span trace.Span
		ctx, span = t.Tracer.Start(ctx, "processor."+t.ProcessorID)
		defer span.End()
	}

	t.Store.IncLinesIn(t.ProcessorID)
	t.Store.AddTrace(lineID, in.Text, t.ProcessorID, metrics.StatusStart)
	if t.Bridge != nil {
		t.Bridge.ObserveLineIn(t.ProcessorID)
	}

	started := time.Now()
	outs, err = t.Inner.Process(ctx, in)
	elapsed := time.Since(started)
	t.Store.AddProcessingTime(t.ProcessorID, elapsed)
	if t.Bridge != nil {
		t.Bridge.ObserveDuration(t.ProcessorID, elapsed)
	}

	if err != nil {
		t.Store.RecordError(t.ProcessorID, err.Error())
		t.Store.AddTrace(lineID, in.Text, t.ProcessorID, metrics.StatusError)
		if t.Bridge != nil {
			t.Bridge.ObserveError(t.ProcessorID)
		}
		return nil, nil, err
	}

	if len(outs) == 0 {
		t.Store.AddTrace(lineID, in.Text, t.ProcessorID, metrics.StatusDrop)
		return nil, nil, nil
	}

	outIDs = make([]string, len(outs))
	for i := range outs {
		t.Store.IncLinesOut(t.ProcessorID)
		t.Store.AddTrace(lineID, in.Text, t.ProcessorID, metrics.StatusEmit)
		if t.Bridge != nil {
			t.Bridge.ObserveLineOut(t.ProcessorID)
		}
		if len(outs) == 1 {
			outIDs[i] = lineID
		} else {
			outIDs[i] = uuid.NewString()
		}
	}
	return outs, outIDs, nil
}

// FlushTraced drains a Flusher's end-of-stream emissions, each
// starting a fresh LineId since there is no single originating call.
func (t *Traced) FlushTraced(ctx context.Context) (outs []TaggedLine, outIDs []string) {
	fl, ok := t.Inner.(Flusher)
	if !ok {
		return nil, nil
	}
	outs = fl.Flush(ctx)
	outIDs = make([]string, len(outs))
	for i, o := range outs {
		id := uuid.NewString()
		outIDs[i] = id
		t.Store.IncLinesOut(t.ProcessorID)
		t.Store.AddTrace(id, o.Text, t.ProcessorID, metrics.StatusEmit)
		if t.Bridge != nil {
			t.Bridge.ObserveLineOut(t.ProcessorID)
		}
	}
	return outs, outIDs
}
