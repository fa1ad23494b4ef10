package confreload_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/streamgraph/engine/internal/confreload"
)

func silentLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(discard{})
	return l
}

type discard struct{}

func (discard) Write(p []byte) (int, error) { return len(p), nil }

func TestNewBuildsInitialValueSynchronously(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "pipeline.json")
	require.NoError(t, os.WriteFile(path, []byte("v1"), 0o644))

	r, err := confreload.New(path, func(p string) (interface{}, error) {
		data, err := os.ReadFile(p)
		return string(data), err
	}, silentLogger())
	require.NoError(t, err)
	assert.Equal(t, "v1", r.Current())
}

func TestNewFailsFatallyWhenInitialBuildErrors(t *testing.T) {
	_, err := confreload.New("/nonexistent/pipeline.json", func(p string) (interface{}, error) {
		return nil, errors.New("boom")
	}, silentLogger())
	require.Error(t, err)
}

func TestReloadSwapsCurrentOnWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "pipeline.json")
	require.NoError(t, os.WriteFile(path, []byte("v1"), 0o644))

	r, err := confreload.New(path, func(p string) (interface{}, error) {
		data, err := os.ReadFile(p)
		return string(data), err
	}, silentLogger())
	require.NoError(t, err)
	require.NoError(t, r.Start())
	defer r.Stop()

	require.NoError(t, os.WriteFile(path, []byte("v2"), 0o644))

	require.Eventually(t, func() bool {
		return r.Current() == "v2"
	}, 2*time.Second, 10*time.Millisecond)
}

func TestReloadKeepsPreviousValueOnBuildError(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "pipeline.json")
	require.NoError(t, os.WriteFile(path, []byte("v1"), 0o644))

	calls := 0
	r, err := confreload.New(path, func(p string) (interface{}, error) {
		calls++
		if calls == 1 {
			return "v1", nil
		}
		return nil, errors.New("rebuild failed")
	}, silentLogger())
	require.NoError(t, err)
	require.NoError(t, r.Start())
	defer r.Stop()

	require.NoError(t, os.WriteFile(path, []byte("v2-bad"), 0o644))

	require.Eventually(t, func() bool {
		return calls >= 2
	}, 2*time.Second, 10*time.Millisecond)

	assert.Equal(t, "v1", r.Current())
}
