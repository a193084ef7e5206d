package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/relaydesk/inbox-pilot/internal/backend"
)

type enrichResult struct {
	outcome backend.EnrichOutcome
	err     error
}

// enrichWithGuard races the enrich call against the configured deadline.
// Classify is assumed cheap and is never guarded. On timeout the underlying
// call keeps running in its goroutine and its eventual result is dropped; only
// the orchestrator's wait is abandoned.
func (o *Orchestrator) enrichWithGuard(ctx context.Context, file string) (backend.EnrichOutcome, error) {
	ch := make(chan enrichResult, 1)
	go func() {
		out, err := o.router.Enrich(ctx, file)
		ch <- enrichResult{outcome: out, err: err}
	}()

	timer := time.NewTimer(o.enrichTimeout)
	defer timer.Stop()

	select {
	case r := <-ch:
		return r.outcome, r.err
	case <-timer.C:
		return backend.EnrichOutcome{}, fmt.Errorf("enrichment timed out after %s", o.enrichTimeout)
	}
}
