// Package batch runs a queue of images through upload and analysis. Each item
// fails on its own: an error is recorded on the item and the run moves on to
// the next one.
package batch

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/JaimeStill/lineage/internal/forensics"
	"github.com/JaimeStill/lineage/internal/history"
	"github.com/JaimeStill/lineage/internal/previews"
	"github.com/JaimeStill/lineage/internal/verdict"
)

// Recorder persists completed analyses.
type Recorder interface {
	Record(ctx context.Context, entry history.Entry) error
}

// Processor owns the queue.
type Processor struct {
	mu          sync.Mutex
	items       []*Item
	running     bool
	client      forensics.Client
	previews    previews.Store
	recorder    Recorder
	concurrency int
	logger      *slog.Logger
}

type Option func(*Processor)

// WithConcurrency processes up to n items at once. Values below 2 keep
// processing serial.
func WithConcurrency(n int) Option {
	return func(p *Processor) {
		p.concurrency = n
	}
}

func WithRecorder(r Recorder) Option {
	return func(p *Processor) {
		p.recorder = r
	}
}

// New creates an empty queue. store may be nil when previews are not kept.
func New(client forensics.Client, store previews.Store, logger *slog.Logger, opts ...Option) *Processor {
	p := &Processor{
		client:      client,
		previews:    store,
		concurrency: 1,
		logger:      logger.With("system", "batch"),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Enqueue appends every image in files as a queued item and returns the new
// items. Files that are not images are skipped; ErrNoImages is returned when
// none remain.
func (p *Processor) Enqueue(ctx context.Context, files []forensics.File) ([]Item, error) {
	var added []*Item
	for _, f := range files {
		if len(f.Data) == 0 || !f.IsImage() {
			p.logger.DebugContext(ctx, "skipping non-image file", "filename", f.Name)
			continue
		}

		f = f.Normalize()
		it := &Item{
			ID:       uuid.New(),
			Filename: f.Name,
			Status:   StatusQueued,
			file:     f,
		}

		if p.previews != nil {
			id, err := p.previews.Acquire(ctx, f)
			if err != nil {
				p.logger.WarnContext(ctx, "preview unavailable", "filename", f.Name, "error", err)
			} else {
				it.Preview = id
			}
		}
		added = append(added, it)
	}

	if len(added) == 0 {
		return nil, ErrNoImages
	}

	p.mu.Lock()
	p.items = append(p.items, added...)
	queueDepth.Set(float64(len(p.items)))
	p.mu.Unlock()

	p.logger.InfoContext(ctx, "items enqueued", "count", len(added))
	return copyItems(added), nil
}

// Items returns a copy of the queue in order.
func (p *Processor) Items() []Item {
	p.mu.Lock()
	defer p.mu.Unlock()
	return copyItems(p.items)
}

// Stats counts the queue by status.
func (p *Processor) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return statsOf(p.items)
}

// Running reports whether a run is in progress.
func (p *Processor) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

// RunAll processes every item that is not done, in queue order. Items added
// after the run starts wait for the next run. Failures are recorded on their
// items; RunAll itself only fails with ErrBusy.
func (p *Processor) RunAll(ctx context.Context) error {
	pending, err := p.claim()
	if err != nil {
		return err
	}
	defer p.finish()

	p.drain(ctx, pending)
	return nil
}

// Start claims a run like RunAll and processes it in the background. It
// returns ErrBusy without starting anything if a run is in progress.
func (p *Processor) Start(ctx context.Context) error {
	pending, err := p.claim()
	if err != nil {
		return err
	}

	go func() {
		defer p.finish()
		p.drain(ctx, pending)
	}()
	return nil
}

func (p *Processor) claim() ([]uuid.UUID, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.running {
		return nil, ErrBusy
	}
	var pending []uuid.UUID
	for _, it := range p.items {
		if it.Status != StatusDone {
			pending = append(pending, it.ID)
		}
	}
	p.running = true
	return pending, nil
}

func (p *Processor) drain(ctx context.Context, pending []uuid.UUID) {
	p.logger.InfoContext(ctx, "batch run started", "pending", len(pending), "concurrency", p.concurrency)

	if p.concurrency < 2 {
		for _, id := range pending {
			p.process(ctx, id)
		}
	} else {
		var g errgroup.Group
		g.SetLimit(p.concurrency)
		for _, id := range pending {
			g.Go(func() error {
				p.process(ctx, id)
				return nil
			})
		}
		g.Wait()
	}

	stats := p.Stats()
	p.logger.InfoContext(ctx, "batch run finished",
		"done", stats.Done,
		"errored", stats.Errored,
		"deepfakes", stats.Deepfakes,
	)
}

// RunItem processes a single queued or failed item. A done item is left as is.
func (p *Processor) RunItem(ctx context.Context, id uuid.UUID) error {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return ErrBusy
	}
	i := p.index(id)
	if i < 0 {
		p.mu.Unlock()
		return ErrNotFound
	}
	if p.items[i].Status == StatusDone {
		p.mu.Unlock()
		return nil
	}
	p.running = true
	p.mu.Unlock()

	defer p.finish()

	p.process(ctx, id)
	return nil
}

// RemoveAt removes the item at index and releases its preview.
func (p *Processor) RemoveAt(ctx context.Context, index int) error {
	p.mu.Lock()
	if index < 0 || index >= len(p.items) {
		p.mu.Unlock()
		return fmt.Errorf("%w: %d", ErrOutOfRange, index)
	}
	it := p.removeLocked(index)
	p.mu.Unlock()

	p.release(ctx, it)
	return nil
}

// Remove removes the item with id and releases its preview.
func (p *Processor) Remove(ctx context.Context, id uuid.UUID) error {
	p.mu.Lock()
	i := p.index(id)
	if i < 0 {
		p.mu.Unlock()
		return ErrNotFound
	}
	it := p.removeLocked(i)
	p.mu.Unlock()

	p.release(ctx, it)
	return nil
}

// ClearDone removes every done item, keeping the others in order, and
// returns how many were removed.
func (p *Processor) ClearDone(ctx context.Context) int {
	p.mu.Lock()
	var removed []*Item
	p.items = slices.DeleteFunc(p.items, func(it *Item) bool {
		if it.Status == StatusDone {
			removed = append(removed, it)
			return true
		}
		return false
	})
	queueDepth.Set(float64(len(p.items)))
	p.mu.Unlock()

	for _, it := range removed {
		p.release(ctx, it)
	}
	return len(removed)
}

// Close empties the queue and releases every preview.
func (p *Processor) Close(ctx context.Context) {
	p.mu.Lock()
	items := p.items
	p.items = nil
	queueDepth.Set(0)
	p.mu.Unlock()

	for _, it := range items {
		p.release(ctx, it)
	}
}

func (p *Processor) process(ctx context.Context, id uuid.UUID) {
	file, ok := p.update(id, func(it *Item) {
		it.Status = StatusUploading
		it.ImageID = ""
		it.Verdict = ""
		it.Score = nil
		it.Error = ""
	})
	if !ok {
		return
	}

	u, err := p.client.Upload(ctx, file)
	if err == nil {
		err = u.Validate()
	}
	if err != nil {
		p.fail(ctx, id, err, "Upload failed")
		return
	}

	if _, ok := p.update(id, func(it *Item) {
		it.Status = StatusAnalyzing
		it.ImageID = u.ImageID
	}); !ok {
		p.discard(ctx, id)
		return
	}

	a, err := p.client.Analyze(ctx, u.ImageID)
	if err != nil {
		p.fail(ctx, id, err, "Analysis failed")
		return
	}

	score := a.DeepfakeScore.OverallScore
	v := verdict.Classify(score, a.DeepfakeScore.IsDeepfake)
	if _, ok := p.update(id, func(it *Item) {
		it.Status = StatusDone
		it.Verdict = v
		it.Score = &score
	}); !ok {
		p.discard(ctx, id)
		return
	}

	itemsTotal.WithLabelValues(string(StatusDone)).Inc()
	p.record(ctx, history.Entry{
		ImageID:    u.ImageID,
		Filename:   file.Name,
		Score:      score,
		IsDeepfake: a.DeepfakeScore.IsDeepfake,
		Source:     history.SourceBatch,
	})
}

func (p *Processor) fail(ctx context.Context, id uuid.UUID, err error, fallback string) {
	msg := forensics.Message(err, fallback)
	if _, ok := p.update(id, func(it *Item) {
		it.Status = StatusError
		it.Error = msg
	}); !ok {
		p.discard(ctx, id)
		return
	}

	itemsTotal.WithLabelValues(string(StatusError)).Inc()
	p.logger.WarnContext(ctx, "item failed", "item", id, "message", msg, "error", err)
}

// discard notes a result for an item removed while it was in flight.
func (p *Processor) discard(ctx context.Context, id uuid.UUID) {
	itemsTotal.WithLabelValues("discarded").Inc()
	p.logger.InfoContext(ctx, "result for removed item discarded", "item", id)
}

// update applies fn to the item with id and returns the item's file. It
// reports false if the item is no longer queued.
func (p *Processor) update(id uuid.UUID, fn func(*Item)) (forensics.File, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	i := p.index(id)
	if i < 0 {
		return forensics.File{}, false
	}
	fn(p.items[i])
	return p.items[i].file, true
}

func (p *Processor) finish() {
	p.mu.Lock()
	p.running = false
	p.mu.Unlock()
}

func (p *Processor) record(ctx context.Context, e history.Entry) {
	if p.recorder == nil {
		return
	}
	if err := p.recorder.Record(ctx, e); err != nil {
		p.logger.WarnContext(ctx, "record analysis failed", "image_id", e.ImageID, "error", err)
	}
}

func (p *Processor) release(ctx context.Context, it *Item) {
	if it.Preview == "" || p.previews == nil {
		return
	}
	if err := p.previews.Release(ctx, it.Preview); err != nil {
		p.logger.WarnContext(ctx, "preview release failed", "preview", it.Preview, "error", err)
	}
}

// index must be called with p.mu held.
func (p *Processor) index(id uuid.UUID) int {
	return slices.IndexFunc(p.items, func(it *Item) bool { return it.ID == id })
}

// removeLocked must be called with p.mu held.
func (p *Processor) removeLocked(i int) *Item {
	it := p.items[i]
	p.items = slices.Delete(p.items, i, i+1)
	queueDepth.Set(float64(len(p.items)))
	return it
}

func copyItems(items []*Item) []Item {
	out := make([]Item, len(items))
	for i, it := range items {
		out[i] = *it
		if it.Score != nil {
			s := *it.Score
			out[i].Score = &s
		}
	}
	return out
}
