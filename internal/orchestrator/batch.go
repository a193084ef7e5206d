package orchestrator

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/relaydesk/inbox-pilot/constants"
	"github.com/relaydesk/inbox-pilot/internal/backend"
	"github.com/relaydesk/inbox-pilot/internal/common"
)

// Summary aggregates one batch run. Cancelled items are not counted; they are
// back in NEW and visible through Snapshot.
type Summary struct {
	RoutedCount int `json:"routed_count"`
	ErrorCount  int `json:"error_count"`
}

// ProcessAll runs every not-yet-processed item through the batch pipeline: one
// batched classify round trip, then strictly sequential enrichment for the
// subset that needs it. Pipeline failures land in item state and the summary;
// the returned error is only for a failed input listing, before any item is
// touched.
func (o *Orchestrator) ProcessAll(ctx context.Context) (Summary, error) {
	o.runMu.Lock()
	defer o.runMu.Unlock()

	input, err := o.batchInput(ctx)
	if err != nil {
		return Summary{}, err
	}
	if len(input) == 0 {
		return Summary{}, nil
	}

	runID := uuid.New().String()
	ctx = common.WithRunID(ctx, runID)
	log := o.logger.With(zap.String("run_id", runID))
	start := time.Now()
	log.Info("batch started", zap.Int("items", len(input)))

	// A fresh batch run starts clean: no mark from before the run may abort it.
	o.cancels.Reset()

	// All inputs flip to PROCESSING up front so the presentation layer shows
	// the whole batch as busy, even though enrichment is sequential.
	inputSet := make(map[string]struct{}, len(input))
	for _, f := range input {
		inputSet[f] = struct{}{}
		o.transition(f, o.store.SetProcessing(f))
	}

	var sum Summary

	results, err := o.router.ClassifyAll(ctx)
	if err != nil {
		// Batch-level failure: no ambiguous partial state. Everything still
		// PROCESSING shares the failure message. Items already optimistically
		// reset by a racing cancel stay NEW.
		for _, f := range input {
			if o.store.Get(f).Status == constants.ItemStatusProcessing {
				o.fail(f, err.Error())
				sum.ErrorCount++
			}
		}
		log.Warn("batched classify failed", zap.Error(err), zap.Int("errors", sum.ErrorCount))
		o.notifier.BatchDone(sum)
		return sum, nil
	}

	var pending []string
	pendingSet := make(map[string]struct{})
	for _, r := range results {
		if _, ok := inputSet[r.File]; !ok {
			log.Warn("classify result for file outside this run", zap.String("file", r.File))
			continue
		}
		switch r.Outcome.Decision {
		case backend.ClassifyRouted:
			o.succeed(r.File, start)
			sum.RoutedCount++
		case backend.ClassifyError:
			o.fail(r.File, r.Outcome.Message)
			sum.ErrorCount++
		case backend.ClassifyNeedsEnrichment:
			pending = append(pending, r.File)
			pendingSet[r.File] = struct{}{}
		}
	}

	// Inputs the batched classify did not cover go back to NEW rather than
	// dangling in PROCESSING forever.
	for _, f := range input {
		if _, ok := pendingSet[f]; ok {
			continue
		}
		if o.store.Get(f).Status == constants.ItemStatusProcessing {
			log.Warn("item not covered by batched classify", zap.String("file", f))
			o.transition(f, o.store.SetNew(f))
		}
	}

	// Enrichment is the expensive, rate-limited stage: one call outstanding at
	// a time, in the order classify returned, no reordering, no skipping
	// except for cancellation.
	for _, f := range pending {
		if o.cancels.Consume(f) {
			o.abandon(f)
			continue
		}
		o.waitEnrichSlot(ctx)
		enriched, err := o.enrichWithGuard(ctx, f)
		if o.cancels.Consume(f) {
			// Cancelled while in flight: the result is discarded.
			o.abandon(f)
			continue
		}
		switch {
		case err != nil:
			o.fail(f, err.Error())
			sum.ErrorCount++
		case enriched.Decision == backend.EnrichError:
			o.fail(f, enriched.Message)
			sum.ErrorCount++
		default: // routed or archived
			o.succeed(f, start)
			sum.RoutedCount++
		}
	}

	log.Info("batch complete",
		zap.Int("routed", sum.RoutedCount),
		zap.Int("errors", sum.ErrorCount),
		zap.Int64("elapsed_ms", time.Since(start).Milliseconds()),
	)
	o.notifier.BatchDone(sum)
	return sum, nil
}

// batchInput is every known file not already PROCESSED: the current listing
// plus any store records the listing no longer carries, in listing order with
// store extras sorted after.
func (o *Orchestrator) batchInput(ctx context.Context) ([]string, error) {
	seen := make(map[string]struct{})
	var input []string

	if o.lister != nil {
		files, err := o.lister.ListFiles(ctx)
		if err != nil {
			return nil, err
		}
		for _, f := range files {
			if _, dup := seen[f]; dup {
				continue
			}
			seen[f] = struct{}{}
			if o.store.Get(f).Status != constants.ItemStatusProcessed {
				input = append(input, f)
			}
		}
	}

	var extras []string
	for f, st := range o.store.Snapshot() {
		if _, dup := seen[f]; dup {
			continue
		}
		if st.Status != constants.ItemStatusProcessed {
			extras = append(extras, f)
		}
	}
	sort.Strings(extras)
	return append(input, extras...), nil
}
