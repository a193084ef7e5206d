// Package orchestrator drives newly arrived inbox files through the two-stage
// classify/enrich pipeline: a cheap classification that may resolve a file
// immediately, and an expensive enrichment for the files classification defers
// on. It owns all per-item state, supports mid-flight cancellation at defined
// suspension points, and aggregates batch outcomes into a summary.
package orchestrator

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/relaydesk/inbox-pilot/constants"
	"github.com/relaydesk/inbox-pilot/internal/backend"
	"github.com/relaydesk/inbox-pilot/internal/common"
)

// Lister supplies the set of currently known inbox files.
type Lister interface {
	ListFiles(ctx context.Context) ([]string, error)
}

// Notifier receives state-change events for the presentation layer.
// Implementations must not block; the orchestrator calls them inline.
type Notifier interface {
	ItemUpdated(file string, state ItemState)
	BatchDone(summary Summary)
}

type noopNotifier struct{}

func (noopNotifier) ItemUpdated(string, ItemState) {}
func (noopNotifier) BatchDone(Summary)             {}

// Orchestrator is the facade the presentation layer talks to. All mutation of
// item state funnels through its pipelines; callers only read snapshots.
//
// A run mutex serializes pipeline runs so a single-item run can never
// interleave with a batch run, independent of caller discipline. CancelOne,
// CancelAll and Snapshot deliberately do not take it.
type Orchestrator struct {
	runMu   sync.Mutex
	store   *itemStore
	cancels *cancelSet

	router        backend.Router
	lister        Lister
	notifier      Notifier
	limiter       *rate.Limiter
	enrichTimeout time.Duration
	logger        *zap.Logger
}

type Option func(*Orchestrator)

// WithEnrichTimeout overrides the per-call enrichment deadline.
func WithEnrichTimeout(d time.Duration) Option {
	return func(o *Orchestrator) {
		if d > 0 {
			o.enrichTimeout = d
		}
	}
}

// WithEnrichRateLimit caps enrichment calls per minute. Enrichment is the
// expensive stage; at most one call is in flight at a time regardless.
func WithEnrichRateLimit(perMinute int) Option {
	return func(o *Orchestrator) {
		if perMinute > 0 {
			o.limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), 1)
		}
	}
}

// WithNotifier registers a listener for item and batch events.
func WithNotifier(n Notifier) Option {
	return func(o *Orchestrator) {
		if n != nil {
			o.notifier = n
		}
	}
}

func New(router backend.Router, lister Lister, logger *zap.Logger, opts ...Option) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	o := &Orchestrator{
		store:         newItemStore(),
		cancels:       newCancelSet(),
		router:        router,
		lister:        lister,
		notifier:      noopNotifier{},
		enrichTimeout: 180 * time.Second,
		logger:        logger,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Snapshot returns the status and last error of every known item: files the
// listing reports (implicitly NEW) overlaid with every record the store holds.
// Side-effect-free.
func (o *Orchestrator) Snapshot(ctx context.Context) map[string]ItemState {
	out := make(map[string]ItemState)
	if o.lister != nil {
		files, err := o.lister.ListFiles(ctx)
		if err != nil {
			o.logger.Warn("snapshot: listing failed, reporting store contents only", zap.Error(err))
		}
		for _, f := range files {
			out[f] = ItemState{Status: constants.ItemStatusNew}
		}
	}
	for f, st := range o.store.Snapshot() {
		out[f] = st
	}
	return out
}

// CancelOne requests cancellation for a file. Idempotent: on an item that is
// not PROCESSING it does nothing. On a PROCESSING item it marks the registry
// and optimistically returns the item to NEW at once; the pipeline's own
// suspension-point check is the authoritative confirmation that keeps a
// late-arriving result from overwriting the reset.
func (o *Orchestrator) CancelOne(file string) {
	if o.store.Get(file).Status != constants.ItemStatusProcessing {
		return
	}
	o.cancels.Request(file)
	st := o.store.SetNew(file)
	o.notifier.ItemUpdated(file, st)
	o.logger.Info("cancellation requested", zap.String("file", file))
}

// CancelAll requests cancellation for every currently PROCESSING item.
func (o *Orchestrator) CancelAll() {
	for file, st := range o.store.Snapshot() {
		if st.Status == constants.ItemStatusProcessing {
			o.CancelOne(file)
		}
	}
}

// ProcessOne runs a single file through the pipeline. The only error it
// returns is for an identifier unknown to both the listing and the store;
// pipeline failures surface as item state, never as a returned error.
func (o *Orchestrator) ProcessOne(ctx context.Context, file string) error {
	if !o.known(ctx, file) {
		return common.NewAppError("UNKNOWN_FILE", "file is not in the inbox", common.ErrNotFound)
	}

	o.runMu.Lock()
	defer o.runMu.Unlock()

	// A stale mark from an earlier run must not abort this one.
	o.cancels.Clear(file)
	o.transition(file, o.store.SetProcessing(file))
	o.runSingle(ctx, file)
	return nil
}

// runSingle is the single-item pipeline body. The item is already PROCESSING.
func (o *Orchestrator) runSingle(ctx context.Context, file string) {
	start := time.Now()

	outcome, err := o.router.Classify(ctx, file)
	if err != nil {
		o.fail(file, err.Error())
		return
	}
	if outcome.Decision == backend.ClassifyError {
		o.fail(file, outcome.Message)
		return
	}

	// First suspension point: after classify, before deciding to enrich.
	if o.cancels.Consume(file) {
		o.abandon(file)
		return
	}

	if outcome.Decision == backend.ClassifyRouted {
		o.succeed(file, start)
		return
	}

	o.waitEnrichSlot(ctx)
	enriched, err := o.enrichWithGuard(ctx, file)

	// Second suspension point: the enrich result, whatever it was, is
	// discarded if cancellation arrived while it was in flight.
	if o.cancels.Consume(file) {
		o.abandon(file)
		return
	}

	switch {
	case err != nil:
		o.fail(file, err.Error())
	case enriched.Decision == backend.EnrichError:
		o.fail(file, enriched.Message)
	default: // routed or archived
		o.succeed(file, start)
	}
}

func (o *Orchestrator) known(ctx context.Context, file string) bool {
	if o.store.Has(file) {
		return true
	}
	if o.lister == nil {
		return false
	}
	files, err := o.lister.ListFiles(ctx)
	if err != nil {
		o.logger.Warn("listing failed during lookup", zap.String("file", file), zap.Error(err))
		return false
	}
	for _, f := range files {
		if f == file {
			return true
		}
	}
	return false
}

func (o *Orchestrator) waitEnrichSlot(ctx context.Context) {
	if o.limiter == nil {
		return
	}
	if err := o.limiter.Wait(ctx); err != nil {
		o.logger.Warn("enrich rate limiter interrupted", zap.Error(err))
	}
}

func (o *Orchestrator) transition(file string, st ItemState) {
	o.notifier.ItemUpdated(file, st)
}

func (o *Orchestrator) succeed(file string, start time.Time) {
	o.transition(file, o.store.SetProcessed(file))
	o.logger.Info("item processed",
		zap.String("file", file),
		zap.Int64("elapsed_ms", time.Since(start).Milliseconds()),
	)
}

func (o *Orchestrator) fail(file, msg string) {
	o.transition(file, o.store.SetError(file, msg))
	o.logger.Warn("item failed", zap.String("file", file), zap.String("error", msg))
}

// abandon returns a cancelled item to NEW, discarding whatever was in flight.
// Cancellation is not an error.
func (o *Orchestrator) abandon(file string) {
	o.transition(file, o.store.SetNew(file))
	o.logger.Info("item cancelled", zap.String("file", file))
}
