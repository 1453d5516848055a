package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/JakeFAU/iata-code-fetcher/internal/codes"
	"github.com/JakeFAU/iata-code-fetcher/internal/store"
)

const progressTimeout = 3 * time.Second

// ProgressHandler exposes crawl status endpoints.
type ProgressHandler struct {
	repo    store.ProgressRepository
	timeout time.Duration
	logger  *zap.Logger
}

// NewProgressHandler wires the repository and logger.
func NewProgressHandler(repo store.ProgressRepository, logger *zap.Logger) *ProgressHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProgressHandler{
		repo:    repo,
		timeout: progressTimeout,
		logger:  logger,
	}
}

// Routes mounts the handler's endpoints on r.
func (h *ProgressHandler) Routes(r chi.Router) {
	r.Get("/api/crawls", h.ListCrawls)
	r.Get("/api/crawls/{kind}", h.GetCrawl)
}

// ListCrawls handles GET /api/crawls?status=. It returns {"crawls": [...]},
// 400 for an unknown status, or 503 when no repository is configured.
func (h *ProgressHandler) ListCrawls(w http.ResponseWriter, r *http.Request) {
	if h.repo == nil {
		h.writeError(w, http.StatusServiceUnavailable, "progress repository unavailable")
		return
	}
	var status *store.CrawlStatus
	if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
		parsed, err := parseStatus(raw)
		if err != nil {
			h.writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		status = &parsed
	}
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	runs, err := h.repo.ListCrawls(ctx, status)
	if err != nil {
		h.logger.Error("list crawls failed", zap.Error(err))
		h.writeError(w, http.StatusInternalServerError, "failed to list crawls")
		return
	}
	dtos := make([]crawlDTO, 0, len(runs))
	for _, run := range runs {
		dtos = append(dtos, toCrawlDTO(run))
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"crawls": dtos})
}

// GetCrawl handles GET /api/crawls/{kind}. It returns {"crawl": {...}}, 400
// for an unknown kind, or 404 when the kind has not been crawled yet.
func (h *ProgressHandler) GetCrawl(w http.ResponseWriter, r *http.Request) {
	if h.repo == nil {
		h.writeError(w, http.StatusServiceUnavailable, "progress repository unavailable")
		return
	}
	kind, err := codes.ParseKind(chi.URLParam(r, "kind"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid kind")
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	run, err := h.repo.GetCrawl(ctx, kind.String())
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			h.writeError(w, http.StatusNotFound, "crawl not found")
			return
		}
		h.logger.Error("get crawl failed", zap.Stringer("kind", kind), zap.Error(err))
		h.writeError(w, http.StatusInternalServerError, "failed to load crawl")
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"crawl": toCrawlDTO(run)})
}

func parseStatus(input string) (store.CrawlStatus, error) {
	switch strings.ToLower(input) {
	case "running":
		return store.RunRunning, nil
	case "success":
		return store.RunSuccess, nil
	case "error", "failed", "failure":
		return store.RunError, nil
	default:
		return "", errors.New("invalid status")
	}
}

type crawlDTO struct {
	RunID      string     `json:"run_id"`
	Kind       string     `json:"kind"`
	Status     string     `json:"status"`
	StartedAt  time.Time  `json:"started_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
	Error      *string    `json:"error,omitempty"`
	Note       string     `json:"note,omitempty"`
	Total      int64      `json:"total"`
	Processed  int64      `json:"processed"`
	Percent    float64    `json:"percent"`
	Found      int64      `json:"found"`
	Records    int64      `json:"records"`
	NotFound   int64      `json:"not_found"`
	Malformed  int64      `json:"malformed"`
	Failed     int64      `json:"failed"`
}

func toCrawlDTO(run store.CrawlRun) crawlDTO {
	dto := crawlDTO{
		RunID:      run.RunID.String(),
		Kind:       run.Kind,
		Status:     string(run.Status),
		StartedAt:  run.StartedAt,
		UpdatedAt:  run.UpdatedAt,
		FinishedAt: run.FinishedAt,
		Error:      run.ErrorMessage,
		Note:       run.Note,
		Total:      run.Total,
		Processed:  run.Processed,
		Found:      run.Found,
		Records:    run.Records,
		NotFound:   run.NotFound,
		Malformed:  run.Malformed,
		Failed:     run.Failed,
	}
	if run.Total > 0 {
		dto.Percent = float64(run.Processed) * 100 / float64(run.Total)
	}
	return dto
}

func (h *ProgressHandler) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Error("write JSON failed", zap.Error(err))
	}
}

func (h *ProgressHandler) writeError(w http.ResponseWriter, status int, msg string) {
	h.writeJSON(w, status, map[string]string{"error": msg})
}
