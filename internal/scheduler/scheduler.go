// Package scheduler runs periodic retention cleanup and re-ingestion of
// watched queries on cron schedules.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/robfig/cron/v3"

	"github.com/valeevte/pricetrail/internal/prices"
)

// Jobs is the part of prices.Service the scheduler drives.
type Jobs interface {
	Ingest(ctx context.Context, query string) (prices.IngestResult, error)
	Cleanup(ctx context.Context) (int64, error)
}

// Scheduler wraps robfig/cron. Jobs registered with the same schedule never
// overlap themselves: a run still in progress causes the next tick to be skipped.
type Scheduler struct {
	cron *cron.Cron
	jobs Jobs
	log  *slog.Logger
	ctx  context.Context
	n    int
}

func New(jobs Jobs, log *slog.Logger) *Scheduler {
	if log == nil {
		log = slog.Default()
	}
	log = log.With("component", "scheduler")
	return &Scheduler{
		cron: cron.New(cron.WithChain(cron.SkipIfStillRunning(cronLogger{log}))),
		jobs: jobs,
		log:  log,
		ctx:  context.Background(),
	}
}

// Len is the number of registered jobs.
func (s *Scheduler) Len() int { return s.n }

// AddCleanup registers the retention cleanup. An empty spec is a no-op.
func (s *Scheduler) AddCleanup(spec string) error {
	if spec == "" {
		return nil
	}
	if _, err := s.cron.AddFunc(spec, s.runCleanup); err != nil {
		return fmt.Errorf("cleanup schedule %q: %w", spec, err)
	}
	s.n++
	s.log.Info("cleanup scheduled", "spec", spec)
	return nil
}

// AddWatch registers periodic ingestion of queries. Nothing is registered
// when spec or queries is empty.
func (s *Scheduler) AddWatch(spec string, queries []string) error {
	if spec == "" || len(queries) == 0 {
		return nil
	}
	qs := append([]string(nil), queries...)
	if _, err := s.cron.AddFunc(spec, func() { s.runWatch(qs) }); err != nil {
		return fmt.Errorf("watch schedule %q: %w", spec, err)
	}
	s.n++
	s.log.Info("watch scheduled", "spec", spec, "queries", qs)
	return nil
}

// Start runs the registered jobs until ctx is cancelled or Stop is called.
func (s *Scheduler) Start(ctx context.Context) {
	s.ctx = ctx
	s.cron.Start()
	s.log.Info("scheduler started", "jobs", s.n)
}

// Stop halts the cron and waits for running jobs to return.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.log.Info("scheduler stopped")
}

func (s *Scheduler) runCleanup() {
	n, err := s.jobs.Cleanup(s.ctx)
	if err != nil {
		s.log.Error("scheduled cleanup failed", "error", err)
		return
	}
	s.log.Info("scheduled cleanup done", "deleted", n)
}

func (s *Scheduler) runWatch(queries []string) {
	for _, q := range queries {
		// stop early on shutdown
		select {
		case <-s.ctx.Done():
			return
		default:
		}

		res, err := s.jobs.Ingest(s.ctx, q)
		if err != nil {
			s.log.Error("scheduled ingestion failed", "query", q, "error", err)
			continue
		}
		s.log.Info("scheduled ingestion done", "query", q, "inserted", len(res.Inserted))
	}
}

// cronLogger adapts slog to cron.Logger.
type cronLogger struct{ log *slog.Logger }

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debug(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Error(msg, append(keysAndValues, "error", err)...)
}
