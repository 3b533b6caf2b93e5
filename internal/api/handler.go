package api

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kartikeysoni19/application-tracker/internal/auth"
	"github.com/kartikeysoni19/application-tracker/internal/domain"
)

// Stats history defaults and limits.
const (
	DefaultHistoryLimit = 30
	MaxHistoryLimit     = 365
)

// maxRequestBodySize is the maximum allowed request body size (1MB).
const maxRequestBodySize = 1 << 20

type Store interface {
	CreateApplication(ctx context.Context, app domain.Application) error
	GetApplication(ctx context.Context, id uuid.UUID) (domain.Application, error)
	UpdateApplication(ctx context.Context, app domain.Application) error
	DeleteApplication(ctx context.Context, id uuid.UUID) error
	ListApplications(ctx context.Context, ownerID uuid.UUID, filter domain.Filter) ([]domain.Application, error)
	CountByStatus(ctx context.Context, ownerID uuid.UUID) (domain.StatusCounts, error)
	ListStatsSnapshots(ctx context.Context, ownerID uuid.UUID, limit int) ([]domain.StatsSnapshot, error)
}

// ActivityEmitter accepts activity events without blocking.
// TryEmit reports whether the event was accepted.
type ActivityEmitter interface {
	TryEmit(event domain.ActivityEvent) bool
}

// MetricsSink records API metrics. All methods are fire-and-forget.
type MetricsSink interface {
	RequestCompleted(method, route string, status int, duration time.Duration)
	AuthFailure()
	OwnershipDenied()
	ValidationFailure()
}

// HealthChecker provides database health status for the /health endpoint.
type HealthChecker interface {
	PingContext(ctx context.Context) error
}

type Handler struct {
	store    Store
	resolver auth.Resolver
	db       HealthChecker
	activity ActivityEmitter
	metrics  MetricsSink
	clock    func() time.Time
}

func NewHandler(store Store, resolver auth.Resolver) *Handler {
	return &Handler{store: store, resolver: resolver, clock: time.Now}
}

// WithHealthChecker sets the database health checker for verbose /health responses.
func (h *Handler) WithHealthChecker(db HealthChecker) *Handler {
	h.db = db
	return h
}

// WithActivity sets the activity event emitter.
func (h *Handler) WithActivity(emitter ActivityEmitter) *Handler {
	h.activity = emitter
	return h
}

// WithMetrics sets the metrics sink.
func (h *Handler) WithMetrics(sink MetricsSink) *Handler {
	h.metrics = sink
	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Path
	start := h.clock()
	rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

	var route string
	switch {
	case path == "/health" && r.Method == http.MethodGet:
		route = "/health"
		h.health(rec, r)

	case path == "/jobs" && r.Method == http.MethodGet:
		route = "/jobs"
		h.listJobs(rec, r)

	case path == "/jobs" && r.Method == http.MethodPost:
		route = "/jobs"
		h.createJob(rec, r)

	// Static paths must match before the dynamic /jobs/{id} route so
	// "stats" is never parsed as an identifier.
	case path == "/jobs/stats" && r.Method == http.MethodGet:
		route = "/jobs/stats"
		h.getStats(rec, r)

	case path == "/jobs/stats/history" && r.Method == http.MethodGet:
		route = "/jobs/stats/history"
		h.getStatsHistory(rec, r)

	case strings.HasPrefix(path, "/jobs/") && r.Method == http.MethodGet:
		route = "/jobs/{id}"
		h.getJob(rec, r)

	case strings.HasPrefix(path, "/jobs/") && r.Method == http.MethodPut:
		route = "/jobs/{id}"
		h.updateJob(rec, r)

	case strings.HasPrefix(path, "/jobs/") && r.Method == http.MethodDelete:
		route = "/jobs/{id}"
		h.deleteJob(rec, r)

	default:
		route = "unmatched"
		writeError(rec, http.StatusNotFound, "not found")
	}

	if h.metrics != nil {
		h.metrics.RequestCompleted(r.Method, route, rec.status, h.clock().Sub(start))
	}
}

// HealthResponse represents the /health endpoint response.
type HealthResponse struct {
	Status     string            `json:"status"`
	Components map[string]string `json:"components,omitempty"`
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	verbose := r.URL.Query().Get("verbose") == "true"

	if !verbose || h.db == nil {
		writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
		return
	}

	resp := HealthResponse{
		Status:     "ok",
		Components: make(map[string]string),
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	if err := h.db.PingContext(ctx); err != nil {
		resp.Status = "degraded"
		resp.Components["database"] = "unhealthy: " + err.Error()
	} else {
		resp.Components["database"] = "healthy"
	}

	statusCode := http.StatusOK
	if resp.Status == "degraded" {
		statusCode = http.StatusServiceUnavailable
	}

	writeJSON(w, statusCode, resp)
}

// authenticate resolves the caller's user id from the Authorization header.
// On failure it writes the response itself and returns ok=false.
func (h *Handler) authenticate(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	token, err := auth.BearerToken(r)
	if err == nil {
		var callerID uuid.UUID
		callerID, err = h.resolver.Resolve(r.Context(), token)
		if err == nil {
			return callerID, true
		}
	}

	if errors.Is(err, auth.ErrNoToken) || errors.Is(err, auth.ErrUnknownToken) {
		if h.metrics != nil {
			h.metrics.AuthFailure()
		}
		writeError(w, http.StatusUnauthorized, "not authorized")
		return uuid.Nil, false
	}

	log.Printf("api: resolve token error: %v", err)
	writeError(w, http.StatusInternalServerError, "authentication unavailable")
	return uuid.Nil, false
}

func (h *Handler) listJobs(w http.ResponseWriter, r *http.Request) {
	callerID, ok := h.authenticate(w, r)
	if !ok {
		return
	}

	filter := domain.Filter{
		Status: r.URL.Query().Get("status"),
		Search: r.URL.Query().Get("search"),
	}

	apps, err := h.store.ListApplications(r.Context(), callerID, filter)
	if err != nil {
		log.Printf("api: list jobs error: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to fetch jobs")
		return
	}

	resp := ListJobsResponse{Success: true, Count: len(apps), Jobs: make([]JobResponse, len(apps))}
	for i, app := range apps {
		resp.Jobs[i] = toJobResponse(app)
	}

	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) getJob(w http.ResponseWriter, r *http.Request) {
	callerID, ok := h.authenticate(w, r)
	if !ok {
		return
	}

	app, ok := h.fetchOwned(w, r, callerID)
	if !ok {
		return
	}

	writeJSON(w, http.StatusOK, JobEnvelope{Success: true, Job: toJobResponse(app)})
}

func (h *Handler) createJob(w http.ResponseWriter, r *http.Request) {
	callerID, ok := h.authenticate(w, r)
	if !ok {
		return
	}

	var req CreateJobRequest
	if !h.decodeBody(w, r, &req) {
		return
	}

	now := h.clock().UTC()
	app, err := buildApplication(req, now)
	if err != nil {
		if h.metrics != nil {
			h.metrics.ValidationFailure()
		}
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	// Ownership is assigned here and never settable by the request body.
	app.ID = uuid.New()
	app.OwnerID = callerID
	app.CreatedAt = now
	app.UpdatedAt = now

	if err := h.store.CreateApplication(r.Context(), app); err != nil {
		log.Printf("api: create job error: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to create job")
		return
	}

	h.emitActivity(app, domain.ActivityCreated)

	writeJSON(w, http.StatusCreated, JobEnvelope{Success: true, Job: toJobResponse(app)})
}

func (h *Handler) updateJob(w http.ResponseWriter, r *http.Request) {
	callerID, ok := h.authenticate(w, r)
	if !ok {
		return
	}

	app, ok := h.fetchOwned(w, r, callerID)
	if !ok {
		return
	}

	var req UpdateJobRequest
	if !h.decodeBody(w, r, &req) {
		return
	}

	updated, err := applyUpdate(app, req)
	if err != nil {
		if h.metrics != nil {
			h.metrics.ValidationFailure()
		}
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	updated.UpdatedAt = h.clock().UTC()

	if err := h.store.UpdateApplication(r.Context(), updated); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			writeError(w, http.StatusNotFound, "job not found")
			return
		}
		log.Printf("api: update job error: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to update job")
		return
	}

	h.emitActivity(updated, domain.ActivityUpdated)

	writeJSON(w, http.StatusOK, JobEnvelope{Success: true, Job: toJobResponse(updated)})
}

func (h *Handler) deleteJob(w http.ResponseWriter, r *http.Request) {
	callerID, ok := h.authenticate(w, r)
	if !ok {
		return
	}

	app, ok := h.fetchOwned(w, r, callerID)
	if !ok {
		return
	}

	if err := h.store.DeleteApplication(r.Context(), app.ID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			writeError(w, http.StatusNotFound, "job not found")
			return
		}
		log.Printf("api: delete job error: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to delete job")
		return
	}

	app.Status = ""
	h.emitActivity(app, domain.ActivityDeleted)

	writeJSON(w, http.StatusOK, MessageResponse{Success: true, Message: "job deleted successfully"})
}

func (h *Handler) getStats(w http.ResponseWriter, r *http.Request) {
	callerID, ok := h.authenticate(w, r)
	if !ok {
		return
	}

	counts, err := h.store.CountByStatus(r.Context(), callerID)
	if err != nil {
		log.Printf("api: get stats error: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to fetch statistics")
		return
	}

	writeJSON(w, http.StatusOK, StatsResponse{Success: true, Stats: counts})
}

func (h *Handler) getStatsHistory(w http.ResponseWriter, r *http.Request) {
	callerID, ok := h.authenticate(w, r)
	if !ok {
		return
	}

	limit, err := parseHistoryLimit(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	snapshots, err := h.store.ListStatsSnapshots(r.Context(), callerID, limit)
	if err != nil {
		log.Printf("api: stats history error: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to fetch statistics history")
		return
	}

	resp := StatsHistoryResponse{
		Success:   true,
		Count:     len(snapshots),
		Snapshots: make([]SnapshotResponse, len(snapshots)),
	}
	for i, snap := range snapshots {
		resp.Snapshots[i] = SnapshotResponse{
			Counts:     snap.Counts,
			CapturedAt: formatTime(snap.CapturedAt),
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

// fetchOwned loads the addressed record and enforces the ownership guard.
// NotFound is decided before Forbidden: a missing id yields 404 regardless
// of caller, and 403 only when the record exists under another owner.
// On failure it writes the response itself and returns ok=false.
func (h *Handler) fetchOwned(w http.ResponseWriter, r *http.Request, callerID uuid.UUID) (domain.Application, bool) {
	id, err := jobIDFromPath(r.URL.Path)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid job id")
		return domain.Application{}, false
	}

	app, err := h.store.GetApplication(r.Context(), id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			writeError(w, http.StatusNotFound, "job not found")
			return domain.Application{}, false
		}
		log.Printf("api: get job error: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to fetch job")
		return domain.Application{}, false
	}

	if app.OwnerID != callerID {
		if h.metrics != nil {
			h.metrics.OwnershipDenied()
		}
		writeError(w, http.StatusForbidden, "not authorized to access this job")
		return domain.Application{}, false
	}

	return app, true
}

// decodeBody decodes a size-limited JSON request body.
// On failure it writes the response itself and returns false.
func (h *Handler) decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)

	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		if err.Error() == "http: request body too large" {
			writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return false
		}
		writeError(w, http.StatusBadRequest, "invalid json")
		return false
	}
	return true
}

func (h *Handler) emitActivity(app domain.Application, action domain.ActivityAction) {
	if h.activity == nil {
		return
	}
	h.activity.TryEmit(domain.ActivityEvent{
		ID:            uuid.New(),
		OwnerID:       app.OwnerID,
		ApplicationID: app.ID,
		Action:        action,
		Status:        app.Status,
		OccurredAt:    h.clock().UTC(),
	})
}

// jobIDFromPath extracts the job id from /jobs/{id}.
func jobIDFromPath(path string) (uuid.UUID, error) {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	if len(parts) != 2 || parts[0] != "jobs" {
		return uuid.Nil, errInvalidPath
	}
	return uuid.Parse(parts[1])
}

var errInvalidPath = errors.New("invalid path")

// parseHistoryLimit extracts and validates the limit query parameter.
func parseHistoryLimit(r *http.Request) (int, error) {
	limit := DefaultHistoryLimit

	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		n, err := strconv.Atoi(limitStr)
		if err != nil {
			return 0, err
		}
		if n < 0 {
			return 0, strconv.ErrRange
		}
		if n > MaxHistoryLimit {
			return 0, &limitExceededError{max: MaxHistoryLimit}
		}
		if n > 0 {
			limit = n
		}
	}

	return limit, nil
}

type limitExceededError struct {
	max int
}

func (e *limitExceededError) Error() string {
	return "limit exceeds maximum of " + strconv.Itoa(e.max)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("api: json encode error: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, MessageResponse{Success: false, Message: msg})
}
