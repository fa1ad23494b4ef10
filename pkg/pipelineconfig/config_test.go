package pipelineconfig_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/streamgraph/engine/pkg/errors"
	"github.com/streamgraph/engine/pkg/pipelineconfig"
)

func TestParseLinearPipelineJSON(t *testing.T) {
	doc, err := pipelineconfig.Parse([]byte(`{"processors": [
		{"type": "line_counter", "id": "c1", "format": "[{count}] {line}"},
		{"type": "filter", "id": "imp", "pattern": "ERROR"},
		{"type": "line_splitter", "delimiter": "|"}
	]}`), ".json")
	require.NoError(t, err)
	require.Len(t, doc.Processors, 3)
	assert.Equal(t, "line_counter", doc.Processors[0].Type)
	assert.Equal(t, "c1", doc.Processors[0].ID)
	assert.Equal(t, "ERROR", doc.Processors[1].Options["pattern"])
	assert.Equal(t, "|", doc.Processors[2].Options["delimiter"])
}

func TestParseRouterModeYAML(t *testing.T) {
	doc, err := pipelineconfig.Parse([]byte(`
nodes:
  - tag: start
    type: uppercase
  - tag: error
    type: lowercase
`), ".yaml")
	require.NoError(t, err)
	require.Len(t, doc.Nodes, 2)
	assert.Equal(t, "start", doc.Nodes[0].Tag)
	assert.Equal(t, "uppercase", doc.Nodes[0].Type)
}

func TestParseUnsupportedExtension(t *testing.T) {
	_, err := pipelineconfig.Parse([]byte(`{}`), ".txt")
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.CodeConfigInvalid))
}

func TestParseRejectsDocumentWithNeitherRootKey(t *testing.T) {
	_, err := pipelineconfig.Parse([]byte(`{"unrelated": true}`), ".json")
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.CodeConfigInvalid))
}

func TestParseTagRouterRoutesYAML(t *testing.T) {
	doc, err := pipelineconfig.Parse([]byte(`
processors:
  - type: tag_router
    tag_field: 0
    delimiter: ","
    routes:
      important:
        type: uppercase
`), ".yaml")
	require.NoError(t, err)
	require.Len(t, doc.Processors, 1)
	require.Contains(t, doc.Processors[0].Routes, "important")
	assert.Equal(t, "uppercase", doc.Processors[0].Routes["important"].Type)
}
