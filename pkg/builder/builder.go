// Package builder implements the pipeline builder (§4.4): it turns
// parsed ProcessorDescriptors into either a tag-routing table or an
// ordered linear pipeline, wrapping every processor with the
// telemetry wrapper so it participates in the metrics store.
package builder

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"

	"github.com/streamgraph/engine/internal/metrics"
	"github.com/streamgraph/engine/pkg/engine"
	apperrors "github.com/streamgraph/engine/pkg/errors"
	"github.com/streamgraph/engine/pkg/pipelineconfig"
	"github.com/streamgraph/engine/pkg/streamproc"
)

// recognizedTypes is the exact, closed set of processor types the
// registry knows how to construct (§4.4). Nothing outside this list
// is ever accepted, including the fully-qualified external symbols
// the router-mode document format allows for in principle — external
// resolution is left unimplemented per §9's "open design choice".
var recognizedTypes = map[string]bool{
	"line_counter":  true,
	"line_joiner":   true,
	"line_splitter": true,
	"filter":        true,
	"uppercase":     true,
	"lowercase":     true,
	"tag_router":    true,
}

// Builder constructs processor instances and wires them into routing
// tables or linear pipelines, registering each with a Store so it
// appears in telemetry immediately.
type Builder struct {
	Store  *metrics.Store
	Bridge *metrics.PrometheusBridge
	Tracer trace.Tracer
}

// New constructs a Builder. Bridge and Tracer may be nil.
func New(store *metrics.Store, bridge *metrics.PrometheusBridge, tracer trace.Tracer) *Builder {
	return &Builder{Store: store, Bridge: bridge, Tracer: tracer}
}

// BuildRoutingTable constructs a tag-routing table from a router-mode
// document (root key "nodes"). Every processor is wrapped with
// telemetry and registered under its (possibly auto-generated) id.
func (b *Builder) BuildRoutingTable(doc *pipelineconfig.Document) (engine.RoutingTable, error) {
	table := make(engine.RoutingTable, len(doc.Nodes))
	for _, node := range doc.Nodes {
		traced, err := b.buildTraced(node.Desc)
		if err != nil {
			return nil, err
		}
		table[streamproc.Tag(node.Tag)] = traced
	}
	return table, nil
}

// LinearPipeline runs a fixed ordered chain of traced processors over
// a whole file's lines, feeding stage i's output as stage i+1's input
// (§4.4's linear composition).
type LinearPipeline struct {
	stages []*streamproc.Traced
}

// BuildLinearPipeline constructs a LinearPipeline from a pipeline-mode
// document (root key "processors").
func (b *Builder) BuildLinearPipeline(doc *pipelineconfig.Document) (*LinearPipeline, error) {
	pipeline := &LinearPipeline{}
	for _, desc := range doc.Processors {
		traced, err := b.buildTraced(desc)
		if err != nil {
			return nil, err
		}
		pipeline.stages = append(pipeline.stages, traced)
	}
	return pipeline, nil
}

// Runner is satisfied by both *engine.Engine and *LinearPipeline: run
// one file's lines to completion and return the surviving text.
type Runner interface {
	Run(ctx context.Context, lines []string) ([]string, error)
}

// BuildRunner picks router mode or linear-pipeline mode based on
// which root key the document used, per §4.7.
func (b *Builder) BuildRunner(doc *pipelineconfig.Document) (Runner, error) {
	if len(doc.Nodes) > 0 {
		table, err := b.BuildRoutingTable(doc)
		if err != nil {
			return nil, err
		}
		return engine.New(table)
	}
	return b.BuildLinearPipeline(doc)
}

func (b *Builder) buildTraced(desc pipelineconfig.ProcessorDescriptor) (*streamproc.Traced, error) {
	raw, err := b.build(desc)
	if err != nil {
		return nil, err
	}
	id := desc.ID
	if id == "" {
		id = fmt.Sprintf("%s_%s", desc.Type, uuid.NewString()[:8])
	}
	return streamproc.NewTraced(id, desc.Type, raw, b.Store, b.Bridge, b.Tracer), nil
}

// build instantiates the raw (untraced) processor named by desc.Type.
// Unknown types fail with a ConfigError, per §4.4.
func (b *Builder) build(desc pipelineconfig.ProcessorDescriptor) (streamproc.Processor, error) {
	if !recognizedTypes[desc.Type] {
		return nil, apperrors.Config("builder.build", fmt.Sprintf("unknown processor type %q", desc.Type))
	}

	switch desc.Type {
	case "line_counter":
		format := optString(desc.Options, "format", "[{count}] {line}")
		start := optInt(desc.Options, "start_count", 1)
		return newLineCounter(format, start), nil

	case "line_joiner":
		delim := optString(desc.Options, "delimiter", " | ")
		count := optInt(desc.Options, "count", 2)
		if count < 1 {
			return nil, apperrors.Config("builder.build", "line_joiner count must be >= 1")
		}
		return newLineJoiner(delim, count), nil

	case "line_splitter":
		delim := optString(desc.Options, "delimiter", ",")
		return newLineSplitter(delim), nil

	case "filter":
		pattern, hasPattern := desc.Options["pattern"].(string)
		minLength, hasMinLength := 0, optHas(desc.Options, "min_length")
		if hasMinLength {
			minLength = optInt(desc.Options, "min_length", 0)
		}
		if !hasPattern && !hasMinLength {
			return nil, apperrors.Config("builder.build", "filter requires \"pattern\" or \"min_length\"")
		}
		return newFilter(pattern, hasPattern, minLength, hasMinLength), nil

	case "uppercase":
		return newUppercase(), nil

	case "lowercase":
		return newLowercase(), nil

	case "tag_router":
		tagField := optInt(desc.Options, "tag_field", 0)
		delim := optString(desc.Options, "delimiter", ",")
		routes := make(map[string]streamproc.Processor, len(desc.Routes))
		for tag, subDesc := range desc.Routes {
			sub, err := b.build(subDesc)
			if err != nil {
				return nil, err
			}
			routes[tag] = sub
		}
		return newTagRouter(tagField, delim, routes), nil

	default:
		// Unreachable: guarded by recognizedTypes above.
		return nil, apperrors.Config("builder.build", fmt.Sprintf("unknown processor type %q", desc.Type))
	}
}
