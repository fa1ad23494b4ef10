// Package pipelineconfig parses the declarative pipeline/router
// document (§4.7) into in-memory descriptors consumed by the pipeline
// builder. The document is JSON or YAML, distinguished by file
// extension, and its root is either a linear "processors" list or a
// tag-routed "nodes" list.
package pipelineconfig

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v2"

	apperrors "github.com/streamgraph/engine/pkg/errors"
)

// ProcessorDescriptor is one declared processor (§3). Options carries
// type-specific settings (format, delimiter, pattern, ...); Routes is
// populated only for routing processors such as tag_router.
type ProcessorDescriptor struct {
	Type    string                          `json:"type" yaml:"type"`
	ID      string                          `json:"id,omitempty" yaml:"id,omitempty"`
	Options map[string]interface{}          `json:"-" yaml:"-"`
	Routes  map[string]ProcessorDescriptor  `json:"routes,omitempty" yaml:"routes,omitempty"`
}

// Node is one entry of a router-mode document: a tag bound to the
// processor that owns it.
type Node struct {
	Tag  string               `yaml:"tag"`
	Type string               `yaml:"type"`
	Desc ProcessorDescriptor  `yaml:"-"`
}

// Document is the fully parsed configuration root. Exactly one of
// Processors or Nodes is populated, per §4.7's two root shapes.
type Document struct {
	Processors []ProcessorDescriptor
	Nodes      []Node
	// TracingEnabled, if present in the document, globally toggles the
	// metrics store's tracing flag per §4.7.
	TracingEnabled *bool
}

// rawDoc mirrors the document shape for generic decoding; Options and
// per-descriptor extra keys are captured via a map and reassembled
// after decoding so that arbitrary processor-specific fields (format,
// delimiter, pattern, min_length, ...) survive without a fixed schema.
type rawDescriptor map[string]interface{}

type rawDoc struct {
	Processors     []rawDescriptor `json:"processors,omitempty" yaml:"processors,omitempty"`
	Nodes          []rawDescriptor `json:"nodes,omitempty" yaml:"nodes,omitempty"`
	TracingEnabled *bool           `json:"tracing_enabled,omitempty" yaml:"tracing_enabled,omitempty"`
}

// Load reads and parses the document at path. The format (JSON or
// YAML) is chosen by file extension; anything else is a ConfigError.
func Load(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, apperrors.IO("pipelineconfig.Load", "cannot read config file").Wrap(err)
	}
	return Parse(data, filepath.Ext(path))
}

// Parse decodes raw document bytes given a file extension (".json",
// ".yml", or ".yaml"). Any other extension is a ConfigError.
func Parse(data []byte, ext string) (*Document, error) {
	var raw rawDoc
	switch strings.ToLower(ext) {
	case ".json":
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, apperrors.Config("pipelineconfig.Parse", "malformed JSON document").Wrap(err)
		}
	case ".yml", ".yaml":
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, apperrors.Config("pipelineconfig.Parse", "malformed YAML document").Wrap(err)
		}
	default:
		return nil, apperrors.Config("pipelineconfig.Parse", fmt.Sprintf("unsupported config file extension %q", ext))
	}

	if len(raw.Processors) == 0 && len(raw.Nodes) == 0 {
		return nil, apperrors.Config("pipelineconfig.Parse", "document has neither \"processors\" nor \"nodes\"")
	}
	if len(raw.Processors) > 0 && len(raw.Nodes) > 0 {
		return nil, apperrors.Config("pipelineconfig.Parse", "document has both \"processors\" and \"nodes\"")
	}

	doc := &Document{TracingEnabled: raw.TracingEnabled}

	for _, rd := range raw.Processors {
		desc, err := toDescriptor(rd)
		if err != nil {
			return nil, err
		}
		doc.Processors = append(doc.Processors, desc)
	}

	for _, rn := range raw.Nodes {
		tag, _ := rn["tag"].(string)
		typ, _ := rn["type"].(string)
		if tag == "" || typ == "" {
			return nil, apperrors.Config("pipelineconfig.Parse", "node entry missing \"tag\" or \"type\"")
		}
		desc, err := toDescriptor(rn)
		if err != nil {
			return nil, err
		}
		doc.Nodes = append(doc.Nodes, Node{Tag: tag, Type: typ, Desc: desc})
	}

	return doc, nil
}

func toDescriptor(raw rawDescriptor) (ProcessorDescriptor, error) {
	typ, _ := raw["type"].(string)
	if typ == "" {
		return ProcessorDescriptor{}, apperrors.Config("pipelineconfig.toDescriptor", "processor entry missing \"type\"")
	}
	desc := ProcessorDescriptor{
		Type:    typ,
		Options: make(map[string]interface{}),
	}
	if id, ok := raw["id"].(string); ok {
		desc.ID = id
	}
	if routesRaw, ok := raw["routes"]; ok {
		routes, err := toRoutes(routesRaw)
		if err != nil {
			return ProcessorDescriptor{}, err
		}
		desc.Routes = routes
	}
	for k, v := range raw {
		switch k {
		case "type", "id", "routes", "tag":
			continue
		default:
			desc.Options[k] = v
		}
	}
	return desc, nil
}

func toRoutes(v interface{}) (map[string]ProcessorDescriptor, error) {
	out := make(map[string]ProcessorDescriptor)
	m, ok := v.(map[interface{}]interface{})
	if ok {
		for k, val := range m {
			tag := fmt.Sprintf("%v", k)
			sub, ok := val.(map[interface{}]interface{})
			if !ok {
				return nil, apperrors.Config("pipelineconfig.toRoutes", fmt.Sprintf("route %q is not a processor descriptor", tag))
			}
			desc, err := toDescriptor(normalizeYAMLMap(sub))
			if err != nil {
				return nil, err
			}
			out[tag] = desc
		}
		return out, nil
	}
	mj, ok := v.(map[string]interface{})
	if ok {
		for tag, val := range mj {
			sub, ok := val.(map[string]interface{})
			if !ok {
				return nil, apperrors.Config("pipelineconfig.toRoutes", fmt.Sprintf("route %q is not a processor descriptor", tag))
			}
			desc, err := toDescriptor(rawDescriptor(sub))
			if err != nil {
				return nil, err
			}
			out[tag] = desc
		}
		return out, nil
	}
	return nil, apperrors.Config("pipelineconfig.toRoutes", "\"routes\" must be a mapping")
}

// normalizeYAMLMap converts the map[interface{}]interface{} shape
// produced by gopkg.in/yaml.v2 into a string-keyed map usable by
// toDescriptor.
func normalizeYAMLMap(m map[interface{}]interface{}) rawDescriptor {
	out := make(rawDescriptor, len(m))
	for k, v := range m {
		out[fmt.Sprintf("%v", k)] = v
	}
	return out
}
