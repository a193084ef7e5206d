package backend

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv
}

func TestClassifyRouted(t *testing.T) {
	var gotAuth string
	srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/classify", r.URL.Path)
		gotAuth = r.Header.Get("Authorization")

		var req map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "notes.md", req["file"])

		_ = json.NewEncoder(w).Encode(map[string]string{"decision": "routed"})
	})

	c := NewClient(srv.URL, "sekret", time.Second, nil)
	out, err := c.Classify(context.Background(), "notes.md")
	require.NoError(t, err)
	assert.Equal(t, ClassifyRouted, out.Decision)
	assert.Equal(t, "Bearer sekret", gotAuth)
}

func TestClassifyStructuredError(t *testing.T) {
	srv := newServer(t, func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{
			"decision": "error",
			"message":  "corrupt archive",
		})
	})

	c := NewClient(srv.URL, "", time.Second, nil)
	out, err := c.Classify(context.Background(), "a.zip")
	require.NoError(t, err, "a structured error outcome is not a transport failure")
	assert.Equal(t, ClassifyError, out.Decision)
	assert.Equal(t, "corrupt archive", out.Message)
}

func TestClassifyNon2xxIsTransportFailure(t *testing.T) {
	srv := newServer(t, func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "upstream exploded", http.StatusBadGateway)
	})

	c := NewClient(srv.URL, "", time.Second, nil)
	_, err := c.Classify(context.Background(), "a.md")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "non-2xx")
}

func TestClassifyRejectsSchemaInvalidPayload(t *testing.T) {
	srv := newServer(t, func(w http.ResponseWriter, _ *http.Request) {
		// "verdict" is not part of the contract.
		_ = json.NewEncoder(w).Encode(map[string]string{"verdict": "routed"})
	})

	c := NewClient(srv.URL, "", time.Second, nil)
	_, err := c.Classify(context.Background(), "a.md")
	require.Error(t, err)
}

func TestClassifyAll(t *testing.T) {
	srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/classify-all", r.URL.Path)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"results": []map[string]string{
				{"file": "a.md", "decision": "routed"},
				{"file": "b.pdf", "decision": "needs_enrichment"},
				{"file": "c.eml", "decision": "error", "message": "encrypted"},
			},
		})
	})

	c := NewClient(srv.URL, "", time.Second, nil)
	results, err := c.ClassifyAll(context.Background())
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, "a.md", results[0].File)
	assert.Equal(t, ClassifyRouted, results[0].Outcome.Decision)
	assert.Equal(t, ClassifyNeedsEnrichment, results[1].Outcome.Decision)
	assert.Equal(t, "encrypted", results[2].Outcome.Message)
}

func TestEnrichArchived(t *testing.T) {
	srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/enrich", r.URL.Path)
		_ = json.NewEncoder(w).Encode(map[string]string{"decision": "archived"})
	})

	c := NewClient(srv.URL, "", time.Second, nil)
	out, err := c.Enrich(context.Background(), "b.pdf")
	require.NoError(t, err)
	assert.Equal(t, EnrichArchived, out.Decision)
}

func TestEnrichHonorsContextCancellation(t *testing.T) {
	block := make(chan struct{})
	defer close(block)
	srv := newServer(t, func(http.ResponseWriter, *http.Request) {
		<-block
	})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	c := NewClient(srv.URL, "", time.Second, nil)
	_, err := c.Enrich(ctx, "b.pdf")
	require.Error(t, err)
}
