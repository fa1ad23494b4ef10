// Package monitors implements the folder monitor (§4.5): it polls an
// ingress directory, atomically claims files into an in-flight
// directory, runs each through a fresh engine, and archives the
// result into a success or failure directory.
package monitors

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/streamgraph/engine/internal/metrics"
	apperrors "github.com/streamgraph/engine/pkg/errors"
)

const (
	defaultShutdownTimeout = 10 * time.Second
	defaultMaxConcurrent   = 4
)

const (
	dirUnprocessed = "unprocessed"
	dirUnderwork   = "underprocess"
	dirProcessed   = "processed"
	dirFailed      = "failed"
)

// Runner is satisfied by both *engine.Engine and *builder.LinearPipeline.
// The monitor depends only on this narrow interface so it never needs
// to import either concrete package.
type Runner interface {
	Run(ctx context.Context, lines []string) ([]string, error)
}

// RunnerFactory builds a fresh Runner for one file's run. A fresh
// Runner (and thus fresh processor instances) is built per file, per
// §4.5: "Processors are not shared between workers."
type RunnerFactory func() (Runner, error)

// FolderMonitor implements the directory state machine described in
// §4.5: unprocessed/ -> underprocess/ -> processed/ | failed/.
type FolderMonitor struct {
	baseDir      string
	outputDir    string
	pollInterval time.Duration
	maxInFlight  int

	buildRunner RunnerFactory
	store       *metrics.Store
	bridge      *metrics.PrometheusBridge
	logger      *logrus.Logger

	sem     chan struct{}
	wg      sync.WaitGroup
	cancel  context.CancelFunc
	running bool
	mu      sync.Mutex
}

// Config collects FolderMonitor's construction parameters.
type Config struct {
	BaseDir      string
	OutputDir    string // optional; empty disables processed-text egress
	PollInterval time.Duration
	MaxInFlight  int // optional; defaults to 4
}

// New constructs a FolderMonitor. bridge may be nil, in which case
// file-queue gauges are simply not mirrored to Prometheus. It does
// not create directories or start polling; call Start for that.
func New(cfg Config, buildRunner RunnerFactory, store *metrics.Store, bridge *metrics.PrometheusBridge, logger *logrus.Logger) *FolderMonitor {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = time.Second
	}
	if cfg.MaxInFlight <= 0 {
		cfg.MaxInFlight = defaultMaxConcurrent
	}
	return &FolderMonitor{
		baseDir:      cfg.BaseDir,
		outputDir:    cfg.OutputDir,
		pollInterval: cfg.PollInterval,
		maxInFlight:  cfg.MaxInFlight,
		buildRunner:  buildRunner,
		store:        store,
		bridge:       bridge,
		logger:       logger,
		sem:          make(chan struct{}, cfg.MaxInFlight),
	}
}

func (m *FolderMonitor) dir(name string) string {
	return filepath.Join(m.baseDir, name)
}

// Start creates the directory layout, recovers interrupted claims,
// and launches the polling loop in a background goroutine.
func (m *FolderMonitor) Start(ctx context.Context) error {
	for _, d := range []string{dirUnprocessed, dirUnderwork, dirProcessed, dirFailed} {
		if err := os.MkdirAll(m.dir(d), 0o755); err != nil {
			return apperrors.IO("FolderMonitor.Start", "cannot create directory "+d).Wrap(err)
		}
	}

	if err := m.recover(); err != nil {
		return err
	}
	m.updateFileCounts()

	runCtx, cancel := context.WithCancel(ctx)
	m.mu.Lock()
	m.cancel = cancel
	m.running = true
	m.mu.Unlock()

	m.wg.Add(1)
	go m.pollLoop(runCtx)

	return nil
}

// recover moves any file left in underprocess/ back to unprocessed/,
// per §4.5's startup recovery rule: anything found there was
// interrupted by a previous crash.
func (m *FolderMonitor) recover() error {
	entries, err := os.ReadDir(m.dir(dirUnderwork))
	if err != nil {
		return apperrors.IO("FolderMonitor.recover", "cannot list underprocess directory").Wrap(err)
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		src := filepath.Join(m.dir(dirUnderwork), e.Name())
		dst := filepath.Join(m.dir(dirUnprocessed), e.Name())
		if err := os.Rename(src, dst); err != nil {
			m.logger.WithFields(logrus.Fields{
				"component": "folder_monitor",
				"file":      e.Name(),
			}).WithError(err).Warn("failed to recover interrupted file")
			continue
		}
		m.logger.WithFields(logrus.Fields{
			"component": "folder_monitor",
			"file":      e.Name(),
		}).Info("recovered interrupted file")
	}
	return nil
}

func (m *FolderMonitor) isRunning() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

func (m *FolderMonitor) pollLoop(ctx context.Context) {
	defer m.wg.Done()
	ticker := time.NewTicker(m.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !m.isRunning() {
				return
			}
			m.claimAndDispatch(ctx)
		}
	}
}

// claimAndDispatch enumerates ingress files in deterministic sort
// order and spawns one worker per successful claim.
func (m *FolderMonitor) claimAndDispatch(ctx context.Context) {
	entries, err := os.ReadDir(m.dir(dirUnprocessed))
	if err != nil {
		m.logger.WithError(err).Error("failed to list unprocessed directory")
		return
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)

	for _, name := range names {
		src := filepath.Join(m.dir(dirUnprocessed), name)
		dst := filepath.Join(m.dir(dirUnderwork), name)
		if err := os.Rename(src, dst); err != nil {
			// Vanished or already claimed; ignore per §4.5 step 2.
			continue
		}
		m.updateFileCounts()
		m.wg.Add(1)
		go m.runWorker(ctx, name)
	}
}

func (m *FolderMonitor) runWorker(ctx context.Context, name string) {
	defer m.wg.Done()

	select {
	case m.sem <- struct{}{}:
		defer func() { <-m.sem }()
	case <-ctx.Done():
		return
	}

	m.store.SetCurrentFile(name)
	defer func() {
		m.store.SetCurrentFile("")
		m.updateFileCounts()
	}()

	log := m.logger.WithFields(logrus.Fields{"component": "folder_monitor", "file": name})

	underPath := filepath.Join(m.dir(dirUnderwork), name)
	lines, err := readLines(underPath)
	if err != nil {
		log.WithError(err).Error("failed to read claimed file")
		m.archive(name, dirFailed, log)
		return
	}

	runner, err := m.buildRunner()
	if err != nil {
		log.WithError(err).Error("failed to build runner")
		m.archive(name, dirFailed, log)
		return
	}

	outputs, err := runner.Run(ctx, lines)
	if err != nil {
		log.WithError(err).Warn("engine run failed")
		m.archive(name, dirFailed, log)
		return
	}

	if m.outputDir != "" {
		if err := m.writeOutput(name, outputs); err != nil {
			log.WithError(err).Error("failed to write processed output")
			m.archive(name, dirFailed, log)
			return
		}
	}

	m.archive(name, dirProcessed, log)
	m.store.AddProcessedFile(name)
}

func (m *FolderMonitor) archive(name, destDir string, log *logrus.Entry) {
	src := filepath.Join(m.dir(dirUnderwork), name)
	dst := filepath.Join(m.dir(destDir), name)
	if err := os.Rename(src, dst); err != nil {
		log.WithError(err).Error("failed to archive file")
	}
}

func (m *FolderMonitor) writeOutput(name string, lines []string) error {
	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)
	outPath := filepath.Join(m.outputDir, fmt.Sprintf("%s_processed%s", stem, ext))

	f, err := os.Create(outPath)
	if err != nil {
		return apperrors.IO("FolderMonitor.writeOutput", "cannot create output file").Wrap(err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	for _, l := range lines {
		if _, err := w.WriteString(l + "\n"); err != nil {
			return apperrors.IO("FolderMonitor.writeOutput", "cannot write output file").Wrap(err)
		}
	}
	return w.Flush()
}

func (m *FolderMonitor) updateFileCounts() {
	unprocessed := countFiles(m.dir(dirUnprocessed))
	inFlight := countFiles(m.dir(dirUnderwork))
	processed := countFiles(m.dir(dirProcessed))
	m.store.SetFileCounts(unprocessed, inFlight, processed)
	if m.bridge != nil {
		m.bridge.ObserveFileCounts(unprocessed, inFlight, processed)
	}
}

func countFiles(dir string) int {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0
	}
	n := 0
	for _, e := range entries {
		if !e.IsDir() {
			n++
		}
	}
	return n
}

func readLines(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, apperrors.IO("readLines", "cannot open file").Wrap(err)
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, apperrors.IO("readLines", "error scanning file").Wrap(err)
	}
	return lines, nil
}

// Stop sets the running flag false, cancels the poll loop, and waits
// (up to defaultShutdownTimeout) for in-flight workers to drain.
func (m *FolderMonitor) Stop() error {
	m.mu.Lock()
	m.running = false
	cancel := m.cancel
	m.mu.Unlock()

	if cancel != nil {
		cancel()
	}

	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-time.After(defaultShutdownTimeout):
		return apperrors.IO("FolderMonitor.Stop", "workers did not drain before shutdown timeout")
	}
}
