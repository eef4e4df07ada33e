// Package sweep runs a scheduled hygiene pass over the cache root's
// .temp staging area, removing directories left behind by a transcode
// attempt that never reached its own cleanup (OOM kill, host crash). It
// never touches a positive or negative cache entry.
package sweep

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/symcached/symcached/internal/logger"
	"github.com/symcached/symcached/internal/metrics"
	"github.com/symcached/symcached/internal/telemetry"
)

// Sweeper periodically removes orphaned staging directories under
// <cache-root>/.temp older than MaxAge.
type Sweeper struct {
	cacheRoot string
	maxAge    time.Duration
	metrics   *metrics.Metrics

	cron *cron.Cron
}

// New constructs a Sweeper for cacheRoot. metrics may be nil.
func New(cacheRoot string, maxAge time.Duration, m *metrics.Metrics) *Sweeper {
	return &Sweeper{cacheRoot: cacheRoot, maxAge: maxAge, metrics: m}
}

// Start schedules the sweep per schedule (a robfig/cron expression, e.g.
// "@hourly") and runs it in the background until Stop is called.
func (s *Sweeper) Start(schedule string) error {
	s.cron = cron.New()
	_, err := s.cron.AddFunc(schedule, s.runCycle)
	if err != nil {
		return err
	}
	s.cron.Start()
	return nil
}

// Stop halts the schedule, waiting for any in-flight cycle to finish.
func (s *Sweeper) Stop() {
	if s.cron == nil {
		return
	}
	ctx := s.cron.Stop()
	<-ctx.Done()
}

// RunOnce performs a single sweep cycle immediately; exported for tests.
func (s *Sweeper) RunOnce() {
	s.runCycle()
}

func (s *Sweeper) runCycle() {
	_, span := telemetry.StartSpan(context.Background(), telemetry.SpanSweepCycle)
	defer span.End()

	stagingRoot := filepath.Join(s.cacheRoot, ".temp")
	entries, err := os.ReadDir(stagingRoot)
	if err != nil {
		if !os.IsNotExist(err) {
			slog.Warn("sweep: listing staging root failed", logger.StagingDir(stagingRoot), logger.Err(err))
		}
		return
	}

	cutoff := time.Now().Add(-s.maxAge)
	removed := 0
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.ModTime().After(cutoff) {
			continue
		}

		dir := filepath.Join(stagingRoot, entry.Name())
		if err := os.RemoveAll(dir); err != nil {
			slog.Warn("sweep: removing orphaned staging directory failed", logger.StagingDir(dir), logger.Err(err))
			continue
		}
		removed++
		s.metrics.IncSweepOrphansRemoved()
		slog.Info("sweep: removed orphaned staging directory", logger.StagingDir(dir))
	}

	if removed > 0 {
		slog.Info("sweep: cycle complete", slog.Int("removed", removed))
	}
}
