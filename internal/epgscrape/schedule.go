package epgscrape

import (
	"context"
	"log/slog"

	"github.com/robfig/cron/v3"

	"github.com/opendvr/tvcore/internal/repository"
)

// Scheduler drives periodic EPG rescans on a cron expression, enqueuing
// every scrapable broadcast it finds. It is a thin wrapper so the
// worker's queue-driven model stays the single source of truth for
// concurrency; the scheduler only decides when to look for new work.
type Scheduler struct {
	cron   *cron.Cron
	worker *Worker
	repo   repository.BroadcastRepository
	logger *slog.Logger
}

// NewScheduler builds a Scheduler firing on expr (standard 6-field cron:
// seconds first, matching the rest of this repository's scheduling
// idiom).
func NewScheduler(expr string, worker *Worker, repo repository.BroadcastRepository, logger *slog.Logger) (*Scheduler, error) {
	if logger == nil {
		logger = slog.Default()
	}
	parser := cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	c := cron.New(cron.WithParser(parser), cron.WithChain(cron.Recover(cron.DefaultLogger)))

	s := &Scheduler{cron: c, worker: worker, repo: repo, logger: logger}
	if _, err := c.AddFunc(expr, s.rescan); err != nil {
		return nil, err
	}
	return s, nil
}

// Start launches the cron scheduler in the background.
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop blocks until any in-flight rescan completes.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

func (s *Scheduler) rescan() {
	ctx := context.Background()
	broadcasts, err := s.repo.GetScrapable(ctx, 0)
	if err != nil {
		s.logger.Warn("epg rescan: listing scrapable broadcasts failed", "error", err)
		return
	}
	for _, b := range broadcasts {
		if err := s.worker.Enqueue(ctx, b.ID); err != nil {
			s.logger.Warn("epg rescan: enqueue failed", "broadcast_id", b.ID, "error", err)
		}
	}
}
