package backend

import "context"

// ClassifyDecision is the first-stage outcome reported by the routing backend.
type ClassifyDecision string

const (
	ClassifyRouted          ClassifyDecision = "routed"
	ClassifyNeedsEnrichment ClassifyDecision = "needs_enrichment"
	ClassifyError           ClassifyDecision = "error"
)

// EnrichDecision is the second-stage outcome reported by the routing backend.
type EnrichDecision string

const (
	EnrichRouted   EnrichDecision = "routed"
	EnrichArchived EnrichDecision = "archived"
	EnrichError    EnrichDecision = "error"
)

// ClassifyOutcome is one classification result. Message is set only for error.
type ClassifyOutcome struct {
	Decision ClassifyDecision `json:"decision"`
	Message  string           `json:"message,omitempty"`
}

// EnrichOutcome is one enrichment result. Message is set only for error.
type EnrichOutcome struct {
	Decision EnrichDecision `json:"decision"`
	Message  string         `json:"message,omitempty"`
}

// ClassifiedFile pairs a file identifier with its batch classification outcome.
type ClassifiedFile struct {
	File    string          `json:"file"`
	Outcome ClassifyOutcome `json:"outcome"`
}

// Router is the interface the orchestrator depends on.
//
// A structured error outcome (Decision == error) and a returned Go error are
// distinct failure channels: the former is the backend declining the file, the
// latter a transport or protocol failure. The orchestrator treats both as
// failures but surfaces their messages differently.
type Router interface {
	Classify(ctx context.Context, file string) (ClassifyOutcome, error)
	ClassifyAll(ctx context.Context) ([]ClassifiedFile, error)
	Enrich(ctx context.Context, file string) (EnrichOutcome, error)
}
