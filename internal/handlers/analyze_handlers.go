package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"climate-odds/internal/models"
	"climate-odds/internal/repository"
	"climate-odds/internal/services"
	"climate-odds/pkg/logging"
	"climate-odds/pkg/metrics"
)

// userIDHeader carries the authenticated owner identity, set by the external
// auth collaborator in front of this service.
const userIDHeader = "X-User-ID"

// AnalyzeHandler handles the analysis job API endpoints
type AnalyzeHandler struct {
	service *services.AnalyzeService
	logger  *logging.StructuredLogger
	metrics *metrics.Collector
}

// NewAnalyzeHandler creates a new analyze handler
func NewAnalyzeHandler(service *services.AnalyzeService, logger *logging.StructuredLogger, metricsCollector *metrics.Collector) *AnalyzeHandler {
	return &AnalyzeHandler{
		service: service,
		logger:  logger,
		metrics: metricsCollector,
	}
}

// ErrorResponse represents an API error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}

// SubmitResponse acknowledges a submitted analysis. The id is the only thing
// the response carries; the job runs detached.
type SubmitResponse struct {
	AnalysisID string `json:"analysis_id"`
	Status     string `json:"status"`
}

// HistoryItem is one row of a user's analysis history
type HistoryItem struct {
	ID        string           `json:"id"`
	Status    models.JobStatus `json:"status"`
	CreatedAt time.Time        `json:"created_at"`
}

// HistoryResponse is a paginated history listing
type HistoryResponse struct {
	Page     int           `json:"page"`
	PageSize int           `json:"page_size"`
	Total    int           `json:"total"`
	Items    []HistoryItem `json:"items"`
}

// SubmitAnalysis handles POST /api/analyze
func (h *AnalyzeHandler) SubmitAnalysis(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	startTime := time.Now()

	defer func() {
		duration := time.Since(startTime)
		h.metrics.APIRequestDuration.WithLabelValues("/api/analyze").Observe(duration.Seconds())
	}()

	userID := r.Header.Get(userIDHeader)
	if userID == "" {
		h.sendError(w, r, "missing user identity", http.StatusUnauthorized)
		return
	}

	req := models.DefaultAnalyzeRequest()
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.sendError(w, r, "invalid JSON body", http.StatusBadRequest)
		return
	}

	id, err := h.service.Submit(ctx, userID, &req)
	if err != nil {
		var vErr *models.ValidationError
		if errors.As(err, &vErr) {
			h.metrics.RecordAPIError("validation_error", "/api/analyze")
			h.sendError(w, r, vErr.Message, http.StatusUnprocessableEntity)
			return
		}

		h.logger.Error(ctx, "[API_SUBMIT_ERROR] Failed to submit analysis", logging.Fields{
			"user_id": userID,
		}, err)
		h.metrics.RecordAPIError("internal_error", "/api/analyze")
		h.sendError(w, r, "failed to submit analysis", http.StatusInternalServerError)
		return
	}

	h.metrics.RecordAPIRequest("/api/analyze", "POST", "200")
	h.sendJSON(w, SubmitResponse{
		AnalysisID: id,
		Status:     string(models.StatusRunning),
	}, http.StatusOK)
}

// GetAnalysis handles GET /api/analyze/{id}
func (h *AnalyzeHandler) GetAnalysis(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	startTime := time.Now()

	defer func() {
		duration := time.Since(startTime)
		h.metrics.APIRequestDuration.WithLabelValues("/api/analyze/{id}").Observe(duration.Seconds())
	}()

	userID := r.Header.Get(userIDHeader)
	if userID == "" {
		h.sendError(w, r, "missing user identity", http.StatusUnauthorized)
		return
	}

	id := mux.Vars(r)["id"]

	job, err := h.service.GetByID(ctx, userID, id)
	if err != nil {
		var nfErr *repository.NotFoundError
		if errors.As(err, &nfErr) {
			h.sendError(w, r, "analysis not found", http.StatusNotFound)
			return
		}

		h.logger.Error(ctx, "[API_GET_ANALYSIS_ERROR] Failed to get analysis", logging.Fields{
			"job_id":  id,
			"user_id": userID,
		}, err)
		h.metrics.RecordAPIError("internal_error", "/api/analyze/{id}")
		h.sendError(w, r, "failed to retrieve analysis", http.StatusInternalServerError)
		return
	}

	h.metrics.RecordAPIRequest("/api/analyze/{id}", "GET", "200")
	h.sendJSON(w, job, http.StatusOK)
}

// GetHistory handles GET /api/analyze/history
func (h *AnalyzeHandler) GetHistory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	startTime := time.Now()

	defer func() {
		duration := time.Since(startTime)
		h.metrics.APIRequestDuration.WithLabelValues("/api/analyze/history").Observe(duration.Seconds())
	}()

	userID := r.Header.Get(userIDHeader)
	if userID == "" {
		h.sendError(w, r, "missing user identity", http.StatusUnauthorized)
		return
	}

	// Default pagination
	page := 1
	pageSize := 20

	if pageStr := r.URL.Query().Get("page"); pageStr != "" {
		if p, err := strconv.Atoi(pageStr); err == nil && p > 0 {
			page = p
		}
	}

	if sizeStr := r.URL.Query().Get("page_size"); sizeStr != "" {
		if s, err := strconv.Atoi(sizeStr); err == nil && s > 0 && s <= 100 {
			pageSize = s
		}
	}

	jobs, total, err := h.service.ListByOwner(ctx, userID, page, pageSize)
	if err != nil {
		h.logger.Error(ctx, "[API_HISTORY_ERROR] Failed to list analyses", logging.Fields{
			"user_id": userID,
			"page":    page,
		}, err)
		h.metrics.RecordAPIError("internal_error", "/api/analyze/history")
		h.sendError(w, r, "failed to retrieve history", http.StatusInternalServerError)
		return
	}

	items := make([]HistoryItem, 0, len(jobs))
	for _, job := range jobs {
		items = append(items, HistoryItem{
			ID:        job.ID,
			Status:    job.Status,
			CreatedAt: job.CreatedAt,
		})
	}

	h.metrics.RecordAPIRequest("/api/analyze/history", "GET", "200")
	h.sendJSON(w, HistoryResponse{
		Page:     page,
		PageSize: pageSize,
		Total:    total,
		Items:    items,
	}, http.StatusOK)
}

// HealthCheck handles GET /health
func (h *AnalyzeHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	status := map[string]string{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}

	h.logger.Debug(ctx, "[HEALTH_CHECK] Health check requested", logging.Fields{})
	h.sendJSON(w, status, http.StatusOK)
}

// sendJSON sends a JSON response
func (h *AnalyzeHandler) sendJSON(w http.ResponseWriter, data interface{}, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

// sendError sends an error response
func (h *AnalyzeHandler) sendError(w http.ResponseWriter, r *http.Request, message string, statusCode int) {
	h.metrics.RecordAPIRequest(r.URL.Path, r.Method, strconv.Itoa(statusCode))

	response := ErrorResponse{
		Error:   http.StatusText(statusCode),
		Message: message,
		Code:    statusCode,
	}

	h.sendJSON(w, response, statusCode)
}

// RegisterRoutes registers all analysis API routes. The history route is
// registered before the id route so "history" never matches as an id.
func (h *AnalyzeHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/api/analyze", h.SubmitAnalysis).Methods("POST")
	router.HandleFunc("/api/analyze/history", h.GetHistory).Methods("GET")
	router.HandleFunc("/api/analyze/{id}", h.GetAnalysis).Methods("GET")
	router.HandleFunc("/health", h.HealthCheck).Methods("GET")
	router.HandleFunc("/api/docs/openapi.json", OpenAPISpec).Methods("GET")
	router.HandleFunc("/api/docs", SwaggerUI).Methods("GET")
}
