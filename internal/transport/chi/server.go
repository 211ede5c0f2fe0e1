package chi

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/yow-cloud/shoplens/internal/domain"
	"github.com/yow-cloud/shoplens/internal/domain/imports"
	domidx "github.com/yow-cloud/shoplens/internal/domain/index"
	"github.com/yow-cloud/shoplens/internal/domain/product"
	"github.com/yow-cloud/shoplens/internal/domain/search/query"
	"github.com/yow-cloud/shoplens/internal/domain/search/result"
	"github.com/yow-cloud/shoplens/internal/source"
	healthuc "github.com/yow-cloud/shoplens/internal/usecase/health"
	orchestratoruc "github.com/yow-cloud/shoplens/internal/usecase/orchestrator"
)

// Error kinds returned to clients.
const (
	kindBadRequest       = "bad_request"
	kindValidationFailed = "validation_failed"
	kindInvalidFilter    = "invalid_filter"
	kindImageUnavailable = "image_unavailable"
	kindBadImage         = "bad_image"
	kindRateLimited      = "rate_limited"
	kindUnavailable      = "backend_unavailable"
	kindNotFound         = "not_found"
	kindAlreadyExists    = "already_exists"
	kindInternal         = "internal_error"
)

// Query type labels on search responses, one per input modality.
const (
	queryTypeUpload = "image_upload"
	queryTypeURL    = "image_url"
	queryTypeInline = "image"
)

const defaultListLimit = 50

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Server exposes the visual product search API over chi.
type Server struct {
	orchestrator  *orchestratoruc.Service
	health        *healthuc.Service
	logger        *zap.Logger
	maxUpload     int64
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(orchestrator *orchestratoruc.Service, health *healthuc.Service, logger *zap.Logger, maxUpload int64) *Server {
	s := &Server{
		orchestrator: orchestrator,
		health:       health,
		logger:       logger,
		maxUpload:    maxUpload,
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrInvalidFilter, http.StatusBadRequest, kindInvalidFilter),
		sentinelHandler(domain.ErrBadImage, http.StatusBadRequest, kindBadImage),
		sentinelHandler(domain.ErrMissingField, http.StatusBadRequest, kindValidationFailed),
		sentinelHandler(domain.ErrImageUnavailable, http.StatusUnprocessableEntity, kindImageUnavailable),
		sentinelHandler(domain.ErrNotFound, http.StatusNotFound, kindNotFound),
		sentinelHandler(domain.ErrAlreadyExists, http.StatusConflict, kindAlreadyExists),
		sentinelHandler(domain.ErrRateLimited, http.StatusTooManyRequests, kindRateLimited),
		sentinelHandler(domain.ErrUnavailable, http.StatusServiceUnavailable, kindUnavailable),
	}
	return s
}

// Routes mounts all API routes on the given router.
func (s *Server) Routes(r chi.Router) {
	r.Post("/search/upload", s.SearchUpload)
	r.Post("/search/url", s.SearchURL)
	r.Post("/search/base64", s.SearchBase64)
	r.Get("/status", s.Status)
	r.Post("/import", s.Import)
	r.Get("/products", s.ListProducts)
	r.Delete("/products/{id}", s.DeleteProduct)
	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)
}

// SearchUpload handles POST /search/upload (multipart, file field "image").
func (s *Server) SearchUpload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(s.maxUpload); err != nil {
		writeError(w, http.StatusBadRequest, kindBadRequest, "invalid multipart body: "+err.Error())
		return
	}
	file, _, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, kindValidationFailed, `file field "file" is required`)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, s.maxUpload))
	if err != nil || len(data) == 0 {
		writeError(w, http.StatusBadRequest, kindBadImage, "image payload is empty or unreadable")
		return
	}

	maxResults, err := parseMaxResults(r.FormValue("max_results"))
	if err != nil {
		writeError(w, http.StatusBadRequest, kindValidationFailed, err.Error())
		return
	}

	q, err := query.NewUpload(data, r.FormValue("filter"), maxResults)
	if err != nil {
		writeError(w, http.StatusBadRequest, kindValidationFailed, err.Error())
		return
	}
	s.runSearch(w, r, q, queryTypeUpload)
}

type searchURLRequest struct {
	ImageURL   string `json:"image_url"`
	Filter     string `json:"filter"`
	MaxResults int    `json:"max_results"`
}

// SearchURL handles POST /search/url.
func (s *Server) SearchURL(w http.ResponseWriter, r *http.Request) {
	var req searchURLRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, kindBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.ImageURL == "" {
		writeError(w, http.StatusBadRequest, kindValidationFailed, "image_url is required")
		return
	}

	q, err := query.NewURL(req.ImageURL, req.Filter, req.MaxResults)
	if err != nil {
		writeError(w, http.StatusBadRequest, kindValidationFailed, err.Error())
		return
	}
	s.runSearch(w, r, q, queryTypeURL)
}

type searchBase64Request struct {
	ImageBase64 string `json:"image_base64"`
	Filter      string `json:"filter"`
	MaxResults  int    `json:"max_results"`
}

// SearchBase64 handles POST /search/base64.
func (s *Server) SearchBase64(w http.ResponseWriter, r *http.Request) {
	var req searchBase64Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, kindBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.ImageBase64 == "" {
		writeError(w, http.StatusBadRequest, kindValidationFailed, "image_base64 is required")
		return
	}

	q, err := query.NewInline(req.ImageBase64, req.Filter, req.MaxResults)
	if err != nil {
		writeError(w, http.StatusBadRequest, kindValidationFailed, err.Error())
		return
	}
	s.runSearch(w, r, q, queryTypeInline)
}

func (s *Server) runSearch(w http.ResponseWriter, r *http.Request, q query.Query, queryType string) {
	results, err := s.orchestrator.Search(r.Context(), q)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	items := make([]searchResultItem, len(results))
	for i := range results {
		items[i] = resultToItem(&results[i])
	}
	writeJSON(w, http.StatusOK, searchResponse{
		QueryType: queryType,
		Results:   items,
		Count:     len(items),
	})
}

// Status handles GET /status. Every call refreshes the snapshot from the
// remote backend; poll failures are damped inside the lifecycle service.
// ?cached=true returns the in-memory snapshot without a remote round trip,
// for callers polling tightly while an import converges.
func (s *Server) Status(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("cached") == "true" {
		writeJSON(w, http.StatusOK, stateToResponse(s.orchestrator.CachedStatus()))
		return
	}
	st := s.orchestrator.Status(r.Context())
	writeJSON(w, http.StatusOK, stateToResponse(st))
}

type importRequest struct {
	Records json.RawMessage `json:"records"`
}

// Import handles POST /import.
func (s *Server) Import(w http.ResponseWriter, r *http.Request) {
	var req importRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, kindBadRequest, "invalid request body: "+err.Error())
		return
	}
	if len(req.Records) == 0 {
		writeError(w, http.StatusBadRequest, kindValidationFailed, "records is required")
		return
	}

	records, err := source.ReadJSON(bytes.NewReader(req.Records))
	if err != nil {
		writeError(w, http.StatusBadRequest, kindValidationFailed, err.Error())
		return
	}
	if len(records) == 0 {
		writeError(w, http.StatusBadRequest, kindValidationFailed, "records must not be empty")
		return
	}

	report, err := s.orchestrator.Import(r.Context(), records)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, reportToResponse(report))
}

// ListProducts handles GET /products.
func (s *Server) ListProducts(w http.ResponseWriter, r *http.Request) {
	limit := defaultListLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			writeError(w, http.StatusBadRequest, kindValidationFailed, "limit must be a positive integer")
			return
		}
		limit = parsed
	}

	products, err := s.orchestrator.ListProducts(r.Context(), limit)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	items := make([]productItem, len(products))
	for i := range products {
		items[i] = productToItem(&products[i])
	}
	writeJSON(w, http.StatusOK, productListResponse{Items: items, Count: len(items)})
}

// DeleteProduct handles DELETE /products/{id}.
func (s *Server) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.orchestrator.DeleteProduct(r.Context(), id); err != nil {
		s.handleDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	httpStatus := http.StatusOK
	if report.Status != healthuc.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}
	writeJSON(w, httpStatus, healthResponse{
		Status: string(report.Status),
		Checks: checks,
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

// --- response DTOs ---

type searchResponse struct {
	QueryType string             `json:"query_type"`
	Results   []searchResultItem `json:"results"`
	Count     int                `json:"count"`
}

type searchResultItem struct {
	ProductID   string            `json:"product_id"`
	DisplayName string            `json:"display_name"`
	Score       float64           `json:"score"`
	ImageURI    string            `json:"image_uri,omitempty"`
	Labels      map[string]string `json:"labels,omitempty"`
}

type statusResponse struct {
	Status           string     `json:"status"`
	LastImportCount  int        `json:"last_import_count"`
	LastImportAt     *time.Time `json:"last_import_at,omitempty"`
	LastCheckedAt    *time.Time `json:"last_checked_at,omitempty"`
	EstimatedReadyAt *time.Time `json:"estimated_ready_at,omitempty"`
	IndexedAt        *time.Time `json:"indexed_at,omitempty"`
}

type importResponse struct {
	BatchID   string   `json:"batch_id"`
	Submitted int      `json:"submitted"`
	Succeeded int      `json:"succeeded"`
	Failed    int      `json:"failed"`
	FailedIDs []string `json:"failed_ids,omitempty"`
}

type productListResponse struct {
	Items []productItem `json:"items"`
	Count int           `json:"count"`
}

type productItem struct {
	ID          string            `json:"id"`
	DisplayName string            `json:"display_name"`
	Labels      map[string]string `json:"labels,omitempty"`
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

type errorResponse struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

func resultToItem(r *result.Result) searchResultItem {
	return searchResultItem{
		ProductID:   r.ProductID(),
		DisplayName: r.DisplayName(),
		Score:       r.Score(),
		ImageURI:    r.ImageURI(),
		Labels:      r.Labels(),
	}
}

func productToItem(p *product.Product) productItem {
	return productItem{
		ID:          p.ID(),
		DisplayName: p.DisplayName(),
		Labels:      p.Attributes(),
	}
}

func stateToResponse(st domidx.State) statusResponse {
	return statusResponse{
		Status:           string(st.Status()),
		LastImportCount:  st.LastImportCount(),
		LastImportAt:     millisPtr(st.LastImportAt()),
		LastCheckedAt:    millisPtr(st.LastCheckedAt()),
		EstimatedReadyAt: millisPtr(st.EstimatedReadyAt()),
		IndexedAt:        millisPtr(st.IndexedAt()),
	}
}

func reportToResponse(rep imports.Report) importResponse {
	return importResponse{
		BatchID:   rep.BatchID(),
		Submitted: rep.Submitted(),
		Succeeded: rep.Succeeded(),
		Failed:    rep.Failed(),
		FailedIDs: rep.FailedIDs(),
	}
}

func millisPtr(ms int64) *time.Time {
	if ms == 0 {
		return nil
	}
	t := time.UnixMilli(ms).UTC()
	return &t
}

func parseMaxResults(raw string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, errors.New("max_results must be an integer")
	}
	return v, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, kind, message string) {
	writeJSON(w, status, errorResponse{
		Kind:    kind,
		Message: message,
	})
}

// safeDomainMessage returns a sentinel error message for the client without exposing internals.
func safeDomainMessage(err error) string {
	sentinels := []error{
		domain.ErrInvalidFilter,
		domain.ErrUnknownAttribute,
		domain.ErrFilterParse,
		domain.ErrBadImage,
		domain.ErrMissingField,
		domain.ErrImageUnavailable,
		domain.ErrNotFound,
		domain.ErrAlreadyExists,
		domain.ErrRateLimited,
		domain.ErrUnavailable,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, kind string) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, kind, msg)
		return true
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, err error) {
	s.logger.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	s.logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, kindInternal, "internal error")
}
