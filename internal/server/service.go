// Package server exposes the orchestrator facade to the desktop shell over a
// loopback HTTP surface plus a WebSocket event stream.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/relaydesk/inbox-pilot/constants"
	"github.com/relaydesk/inbox-pilot/internal/common"
	"github.com/relaydesk/inbox-pilot/internal/export"
	"github.com/relaydesk/inbox-pilot/internal/inbox"
	"github.com/relaydesk/inbox-pilot/internal/orchestrator"
)

// Service wires the orchestrator, catalog and exporter behind HTTP handlers.
// Failures inside a pipeline run never surface as HTTP errors; they arrive as
// item state in the response body and over the event stream.
type Service struct {
	orch         *orchestrator.Orchestrator
	catalog      *inbox.Catalog
	exporter     *export.Service
	hub          *Hub
	refreshDelay time.Duration
	previewBytes int
	logger       *zap.Logger
}

func NewService(
	orch *orchestrator.Orchestrator,
	catalog *inbox.Catalog,
	exporter *export.Service,
	hub *Hub,
	cfg common.ServerConfig,
	previewBytes int,
	logger *zap.Logger,
) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		orch:         orch,
		catalog:      catalog,
		exporter:     exporter,
		hub:          hub,
		refreshDelay: cfg.RefreshDelay,
		previewBytes: previewBytes,
		logger:       logger,
	}
}

// Routes returns the HTTP mux for the desktop shell.
func (s *Service) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/process", s.handleProcessOne)
	mux.HandleFunc("POST /api/process-all", s.handleProcessAll)
	mux.HandleFunc("POST /api/cancel", s.handleCancelOne)
	mux.HandleFunc("POST /api/cancel-all", s.handleCancelAll)
	mux.HandleFunc("GET /api/snapshot", s.handleSnapshot)
	mux.HandleFunc("GET /api/inbox", s.handleListing)
	mux.HandleFunc("GET /api/preview", s.handlePreview)
	mux.HandleFunc("GET /api/export", s.handleExport)
	if s.hub != nil {
		mux.HandleFunc("GET /ws", s.hub.handleWS)
	}
	return mux
}

type fileRequest struct {
	File string `json:"file"`
}

func (s *Service) handleProcessOne(w http.ResponseWriter, r *http.Request) {
	var req fileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.File == "" {
		writeError(w, http.StatusBadRequest, "file is required")
		return
	}

	ctx := common.WithRequestID(r.Context(), uuid.New().String())
	if err := s.orch.ProcessOne(ctx, req.File); err != nil {
		if errors.Is(err, common.ErrNotFound) {
			writeError(w, http.StatusNotFound, "unknown file: "+req.File)
			return
		}
		s.logger.Error("process failed before pipeline start", zap.String("file", req.File), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "process failed")
		return
	}

	st := s.orch.Snapshot(ctx)[req.File]
	if st.Status == constants.ItemStatusProcessed {
		s.scheduleListingRefresh()
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"file":       req.File,
		"status":     st.Status,
		"last_error": st.LastError,
	})
}

func (s *Service) handleProcessAll(w http.ResponseWriter, r *http.Request) {
	sum, err := s.orch.ProcessAll(r.Context())
	if err != nil {
		s.logger.Error("batch listing failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "inbox listing unavailable")
		return
	}
	if sum.RoutedCount > 0 {
		s.scheduleListingRefresh()
	}
	writeJSON(w, http.StatusOK, sum)
}

func (s *Service) handleCancelOne(w http.ResponseWriter, r *http.Request) {
	var req fileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.File == "" {
		writeError(w, http.StatusBadRequest, "file is required")
		return
	}
	s.orch.CancelOne(req.File)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Service) handleCancelAll(w http.ResponseWriter, r *http.Request) {
	s.orch.CancelAll()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Service) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"items": s.orch.Snapshot(r.Context()),
	})
}

type listingItem struct {
	inbox.FileInfo
	Title     string               `json:"title"`
	Status    constants.ItemStatus `json:"status"`
	LastError string               `json:"last_error,omitempty"`
}

// handleListing is the visible inbox: catalogued files overlaid with their
// processing state, PROCESSED items filtered out (conceptually deleted from
// the list; still reported by the snapshot).
func (s *Service) handleListing(w http.ResponseWriter, r *http.Request) {
	infos, err := s.catalog.List(r.Context())
	if err != nil {
		s.logger.Error("inbox listing failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "inbox listing unavailable")
		return
	}
	states := s.orch.Snapshot(r.Context())

	items := make([]listingItem, 0, len(infos))
	for _, fi := range infos {
		st := states[fi.File]
		if st.Status == constants.ItemStatusProcessed {
			continue
		}
		if st.Status == "" {
			st.Status = constants.ItemStatusNew
		}
		items = append(items, listingItem{
			FileInfo:  fi,
			Title:     inbox.HumanizeFilename(fi.File),
			Status:    st.Status,
			LastError: st.LastError,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (s *Service) handlePreview(w http.ResponseWriter, r *http.Request) {
	file := r.URL.Query().Get("file")
	if file == "" {
		writeError(w, http.StatusBadRequest, "file is required")
		return
	}
	text, err := s.catalog.Preview(r.Context(), file, s.previewBytes)
	if err != nil {
		writeError(w, http.StatusNotFound, "preview unavailable: "+file)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"file": file, "preview": text})
}

func (s *Service) handleExport(w http.ResponseWriter, r *http.Request) {
	raw, err := s.exporter.ExportSnapshotXLSX(r.Context())
	if err != nil {
		s.logger.Error("export failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "export failed")
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="inbox-snapshot.xlsx"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(raw)
}

// scheduleListingRefresh nudges clients after the backend's listing has had a
// moment to catch up. UX smoothing only; item state is already correct.
func (s *Service) scheduleListingRefresh() {
	if s.hub == nil {
		return
	}
	delay := s.refreshDelay
	if delay <= 0 {
		s.hub.ListingRefresh()
		return
	}
	time.AfterFunc(delay, s.hub.ListingRefresh)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// Run serves the mux until ctx is done, then shuts down gracefully.
func (s *Service) Run(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s.Routes()}
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
