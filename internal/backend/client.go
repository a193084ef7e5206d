package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"
)

// Client is the HTTP implementation of Router against the remote routing service.
//
// Endpoints:
//
//	POST {base}/v1/classify      {"file": "..."}  -> {"decision": "...", "message": "..."}
//	POST {base}/v1/classify-all  {}               -> {"results": [{"file": "...", "decision": "...", "message": "..."}]}
//	POST {base}/v1/enrich        {"file": "..."}  -> {"decision": "...", "message": "..."}
//
// Responses are schema-validated before decoding; a schema-invalid payload is a
// transport failure, never silently coerced into an outcome.
type Client struct {
	baseURL string
	headers map[string]string
	http    *http.Client
	logger  *slog.Logger
}

func NewClient(baseURL, apiKey string, dialTimeout time.Duration, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	if dialTimeout <= 0 {
		dialTimeout = 10 * time.Second
	}
	headers := map[string]string{}
	if apiKey != "" {
		headers["Authorization"] = "Bearer " + apiKey
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		headers: headers,
		// No client-level timeout: the enrich deadline is owned by the
		// orchestrator's guard, and classify calls carry their own context.
		// Only the dial is bounded.
		http: &http.Client{
			Transport: &http.Transport{
				DialContext: (&net.Dialer{Timeout: dialTimeout}).DialContext,
			},
		},
		logger: logger,
	}
}

type fileRequest struct {
	File string `json:"file"`
}

type decisionResponse struct {
	Decision string `json:"decision"`
	Message  string `json:"message,omitempty"`
}

type classifyAllResponse struct {
	Results []struct {
		File     string `json:"file"`
		Decision string `json:"decision"`
		Message  string `json:"message,omitempty"`
	} `json:"results"`
}

func (c *Client) Classify(ctx context.Context, file string) (ClassifyOutcome, error) {
	raw, _, err := SendJSON(ctx, c.http, c.baseURL+"/v1/classify", fileRequest{File: file}, c.headers, c.logger)
	if err != nil {
		return ClassifyOutcome{}, fmt.Errorf("classify %s: %w", file, err)
	}
	if err := ValidateJSONAgainstSchema(BuildClassifySchema(), raw); err != nil {
		return ClassifyOutcome{}, fmt.Errorf("classify %s: %w", file, err)
	}
	var resp decisionResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return ClassifyOutcome{}, fmt.Errorf("classify %s: decode: %w", file, err)
	}
	return ClassifyOutcome{Decision: ClassifyDecision(resp.Decision), Message: resp.Message}, nil
}

func (c *Client) ClassifyAll(ctx context.Context) ([]ClassifiedFile, error) {
	raw, _, err := SendJSON(ctx, c.http, c.baseURL+"/v1/classify-all", struct{}{}, c.headers, c.logger)
	if err != nil {
		return nil, fmt.Errorf("classify-all: %w", err)
	}
	if err := ValidateJSONAgainstSchema(BuildClassifyAllSchema(), raw); err != nil {
		return nil, fmt.Errorf("classify-all: %w", err)
	}
	var resp classifyAllResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("classify-all: decode: %w", err)
	}
	out := make([]ClassifiedFile, 0, len(resp.Results))
	for _, r := range resp.Results {
		out = append(out, ClassifiedFile{
			File:    r.File,
			Outcome: ClassifyOutcome{Decision: ClassifyDecision(r.Decision), Message: r.Message},
		})
	}
	return out, nil
}

func (c *Client) Enrich(ctx context.Context, file string) (EnrichOutcome, error) {
	raw, _, err := SendJSON(ctx, c.http, c.baseURL+"/v1/enrich", fileRequest{File: file}, c.headers, c.logger)
	if err != nil {
		return EnrichOutcome{}, fmt.Errorf("enrich %s: %w", file, err)
	}
	if err := ValidateJSONAgainstSchema(BuildEnrichSchema(), raw); err != nil {
		return EnrichOutcome{}, fmt.Errorf("enrich %s: %w", file, err)
	}
	var resp decisionResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return EnrichOutcome{}, fmt.Errorf("enrich %s: decode: %w", file, err)
	}
	return EnrichOutcome{Decision: EnrichDecision(resp.Decision), Message: resp.Message}, nil
}

var _ Router = (*Client)(nil)
