// Package epgscrape implements the EPG scrape worker (§4.G): a single
// background consumer goroutine draining a FIFO queue, spawning a
// configured external program per broadcast, and merging its JSON
// output back into the EPG model under a process-wide lock.
package epgscrape

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/opendvr/tvcore/internal/models"
	"github.com/opendvr/tvcore/internal/repository"
)

// Item is the scrape I/O unit (§3 "Scrape I/O item"): it lives strictly
// from enqueue to after the external program's output has been merged.
type Item struct {
	BroadcastID models.ULID
	Input       map[string]any
	Output      map[string]any // nil until the program responds
	CreatedAt   time.Time
}

// Config configures the worker.
type Config struct {
	Enabled     bool
	Exec        string
	Timeout     time.Duration
	YieldAfter  time.Duration // sleep between consumer cycles
	QueueDepth  int

	Broadcasts repository.BroadcastRepository
	Brands     repository.BrandRepository
	Seasons    repository.SeasonRepository
	Episodes   repository.EpisodeRepository

	Logger *slog.Logger

	// OnEPGUpdated is invoked synchronously, from inside merge with the
	// data-model lock (modelLock) held, after a merge
	// actually changes a brand/season/episode/broadcast field for this
	// broadcast. May be nil. Mirrors settings.ScrapeStore's onChange
	// pattern for the config write path.
	OnEPGUpdated func(models.ULID)

	// runner defaults to runExternalScraper but is overridable in tests.
	runner func(ctx context.Context, exec string, timeout time.Duration, input map[string]any) (map[string]any, error)
}

// Worker owns the FIFO queue and its dedicated consumer goroutine.
type Worker struct {
	cfg Config

	// modelLock is the process-wide data-model lock (§5 layer 3):
	// acquired only for enqueue checks and merge, never while the
	// external program runs.
	modelLock *sync.Mutex

	queue chan *Item

	mu      sync.Mutex // guards cooldown + enabled, separate from modelLock
	enabled bool
	cooldown map[string]time.Time // broadcast ID -> time of last failed attempt; Enqueue does not consult it

	cancel context.CancelFunc
	done   chan struct{}
}

// New constructs a Worker. modelLock is the shared EPG data-model lock;
// pass the same *sync.Mutex used elsewhere for broadcast/channel/service
// mutation so the merge step is atomic w.r.t. readers.
func New(cfg Config, modelLock *sync.Mutex) *Worker {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.QueueDepth <= 0 {
		cfg.QueueDepth = 256
	}
	if cfg.YieldAfter <= 0 {
		cfg.YieldAfter = 100 * time.Millisecond
	}
	if cfg.runner == nil {
		cfg.runner = runExternalScraper
	}
	return &Worker{
		cfg:       cfg,
		modelLock: modelLock,
		enabled:   cfg.Enabled,
		queue:     make(chan *Item, cfg.QueueDepth),
		cooldown:  make(map[string]time.Time),
		done:      make(chan struct{}),
	}
}

// SetEnabled toggles the feature flag at runtime. The serve command does
// not call it: its ScrapeStore is built without an onChange callback.
func (w *Worker) SetEnabled(enabled bool) {
	w.mu.Lock()
	w.enabled = enabled
	w.mu.Unlock()
}

func (w *Worker) isEnabled() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.enabled
}

// Start launches the consumer goroutine.
func (w *Worker) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	w.cancel = cancel
	go w.consume(ctx)
}

// Stop signals the consumer to exit and waits for it to drain.
func (w *Worker) Stop() {
	if w.cancel != nil {
		w.cancel()
	}
	<-w.done
}

// Enqueue reads a broadcast under the global lock, serializes it into an
// input map, marks it in-progress, and pushes it onto the queue.
// Refuses when the feature is disabled or the broadcast is already
// in-progress/completed (invariant 8).
func (w *Worker) Enqueue(ctx context.Context, broadcastID models.ULID) error {
	if !w.isEnabled() {
		return nil
	}

	w.modelLock.Lock()
	broadcast, err := w.cfg.Broadcasts.GetByID(ctx, broadcastID)
	if err != nil || broadcast == nil {
		w.modelLock.Unlock()
		return err
	}
	if !broadcast.Scrapable() {
		w.modelLock.Unlock()
		return nil
	}
	broadcast.InProgress = true
	if err := w.cfg.Broadcasts.SetInProgress(ctx, broadcastID, true); err != nil {
		w.modelLock.Unlock()
		return err
	}
	item := &Item{
		BroadcastID: broadcastID,
		CreatedAt:   time.Now(),
		Input:       buildInput(broadcast),
	}
	w.modelLock.Unlock()

	select {
	case w.queue <- item:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func buildInput(b *models.Broadcast) map[string]any {
	in := map[string]any{
		"start":   b.Start.Unix(),
		"stop":    b.Stop.Unix(),
		"scraped": b.Scraped.Unix(),
		"updated": b.Updated.Unix(),
		"title":   b.Title,
	}
	if b.Description != "" {
		in["description"] = b.Description
	}
	if b.Summary != "" {
		in["summary"] = b.Summary
	}
	if b.ContentType != nil {
		in["content_type"] = *b.ContentType
	}
	return in
}

// consume is the worker's dedicated consumer goroutine (§5 layer 3).
func (w *Worker) consume(ctx context.Context) {
	defer close(w.done)
	for {
		select {
		case <-ctx.Done():
			return
		case item := <-w.queue:
			if !w.isEnabled() {
				w.clearInProgress(ctx, item.BroadcastID)
				continue
			}
			w.processItem(ctx, item)
			time.Sleep(w.cfg.YieldAfter)
		}
	}
}

// processItem spawns the external program, then merges its output back
// into the model. On ExternalProgramFailure it clears in_progress on
// every exit path and records a cooldown, per the redesigned lifecycle
// (§9 open question resolution, documented in DESIGN.md).
func (w *Worker) processItem(ctx context.Context, item *Item) {
	output, err := w.cfg.runner(ctx, w.cfg.Exec, w.cfg.Timeout, item.Input)
	if err != nil {
		w.cfg.Logger.Warn("epg scrape program failed", "broadcast_id", item.BroadcastID, "error", err)
		w.clearInProgress(ctx, item.BroadcastID)
		w.recordCooldown(item.BroadcastID)
		return
	}
	item.Output = output

	w.modelLock.Lock()
	changed, mergeErr := w.merge(ctx, item)
	w.modelLock.Unlock()

	if mergeErr != nil {
		w.cfg.Logger.Warn("epg scrape merge failed", "broadcast_id", item.BroadcastID, "error", mergeErr)
	}
	if changed {
		w.cfg.Logger.Debug("epg merge updated broadcast", "broadcast_id", item.BroadcastID)
	}
	w.clearInProgress(ctx, item.BroadcastID)
}

func (w *Worker) clearInProgress(ctx context.Context, id models.ULID) {
	if err := w.cfg.Broadcasts.SetInProgress(ctx, id, false); err != nil {
		w.cfg.Logger.Warn("failed clearing in_progress", "broadcast_id", id, "error", err)
	}
}

func (w *Worker) recordCooldown(id models.ULID) {
	w.mu.Lock()
	w.cooldown[id.String()] = time.Now()
	w.mu.Unlock()
}

// Cooldown reports the last failed-attempt time for a broadcast, if any.
func (w *Worker) Cooldown(id models.ULID) (time.Time, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	t, ok := w.cooldown[id.String()]
	return t, ok
}
