package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"flight-time-engine/internal/buffer"
	"flight-time-engine/internal/bulkedit"
	"flight-time-engine/internal/engine"
	"flight-time-engine/internal/metrics"
	"flight-time-engine/internal/model"
	"flight-time-engine/internal/window"
	"flight-time-engine/pkg/logger"
	"flight-time-engine/pkg/utils"
)

// SummaryCache stores logbook utilization results keyed by snapshot.
type SummaryCache interface {
	GetSummary(ctx context.Context, fleet model.FleetCategory, asOf time.Time, fingerprint string) (*engine.LogbookResult, error)
	SetSummary(ctx context.Context, fingerprint string, res engine.LogbookResult) error
}

// Server represents the HTTP API server
type Server struct {
	engine  *engine.Engine
	source  engine.RecordSource
	cache   SummaryCache
	limiter *RateLimiter
	recent  *buffer.RingBuffer[engine.FlightResult]
	logger  *slog.Logger
	metrics *metrics.Metrics
	now     func() time.Time
}

type Option func(*Server)

func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		s.logger = l
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Server) {
		s.metrics = m
	}
}

func WithSummaryCache(c SummaryCache) Option {
	return func(s *Server) {
		s.cache = c
	}
}

func WithRateLimiter(rl *RateLimiter) Option {
	return func(s *Server) {
		s.limiter = rl
	}
}

// WithRecentEvaluations keeps the last n single-flight evaluations for
// /evaluations/recent.
func WithRecentEvaluations(n int) Option {
	return func(s *Server) {
		s.recent = buffer.NewRingBuffer[engine.FlightResult](n)
	}
}

// WithClock overrides the source of "today" for requests without as_of.
func WithClock(now func() time.Time) Option {
	return func(s *Server) {
		s.now = now
	}
}

// NewServer creates a new HTTP server instance
func NewServer(eng *engine.Engine, source engine.RecordSource, opts ...Option) *Server {
	s := &Server{
		engine: eng,
		source: source,
		recent: buffer.NewRingBuffer[engine.FlightResult](100),
		logger: logger.Discard(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Router configures all HTTP routes
func (s *Server) Router() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.instrument)

	r.Get("/health", s.handleHealth)
	r.Handle("/metrics", s.metrics.Handler())
	r.Get("/metrics/snapshot", s.handleMetricsSnapshot)

	r.Group(func(r chi.Router) {
		if s.limiter != nil {
			r.Use(s.limiter.Middleware(s.metrics))
		}
		r.Get("/flights/{id}", s.handleFlight)
		r.Get("/evaluations/recent", s.handleRecent)
		r.Post("/flights/bulk-preview", s.handleBulkPreview)
		r.Get("/logbook/utilization", s.handleUtilization)
	})

	return r
}

// instrument records route, status and latency for every request.
func (s *Server) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		// Unmatched paths share one label so 404 scans cannot grow the series.
		route := "unmatched"
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			route = rc.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		s.metrics.ObserveRequest(route, status, time.Since(start))
		s.logger.Debug("request served", "method", r.Method, "route", route, "status", status, "duration", time.Since(start))
	})
}

// handleHealth returns the health status of the service
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	response := map[string]interface{}{
		"status":    "healthy",
		"timestamp": utils.GetCurrentUnixTimestamp(),
	}
	if s.metrics != nil {
		response["uptime"] = s.metrics.GetUptime().String()
	}
	writeJSON(w, http.StatusOK, response)
}

// handleMetricsSnapshot returns the JSON counter snapshot
func (s *Server) handleMetricsSnapshot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.metrics.GetSnapshot())
}

type flightResponse struct {
	Record model.FlightRecord  `json:"record"`
	Result engine.FlightResult `json:"result"`
}

// handleFlight evaluates a single stored flight
func (s *Server) handleFlight(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid flight id")
		return
	}

	rec, err := s.source.Record(r.Context(), id)
	if errors.Is(err, model.ErrNotFound) {
		writeError(w, http.StatusNotFound, "flight not found")
		return
	}
	if err != nil {
		s.logger.Error("failed to load flight", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load flight")
		return
	}

	res := roundFlight(s.engine.EvaluateFlight(rec))
	s.recent.Push(res)

	writeJSON(w, http.StatusOK, flightResponse{Record: rec, Result: res})
}

// handleRecent lists the latest flight evaluations, newest first
func (s *Server) handleRecent(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = n
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"capacity":    s.recent.Cap(),
		"evaluations": s.recent.Latest(limit),
	})
}

// handleUtilization returns rolling window totals and limit utilization
func (s *Server) handleUtilization(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	fleet := model.FleetCategory(strings.ToLower(strings.TrimSpace(q.Get("fleet"))))
	if !fleet.IsValid() {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown fleet %q", q.Get("fleet")))
		return
	}

	asOf := utils.DayStartUTC(s.now())
	if v := q.Get("as_of"); v != "" {
		d, err := utils.ParseCivilDate(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "as_of must be YYYY-MM-DD")
			return
		}
		asOf = d
	}

	records, err := s.source.Records(r.Context())
	if err != nil {
		s.logger.Error("failed to load logbook", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load logbook")
		return
	}
	fingerprint := engine.SnapshotFingerprint(records)

	if s.cache != nil {
		cached, err := s.cache.GetSummary(r.Context(), fleet, asOf, fingerprint)
		if err != nil {
			s.logger.Warn("summary cache read failed", "error", err)
		}
		if cached != nil {
			s.metrics.IncrementSummaryCache(true)
			writeJSON(w, http.StatusOK, cached)
			return
		}
		s.metrics.IncrementSummaryCache(false)
	}

	res := roundLogbook(s.engine.EvaluateLogbook(records, fleet, asOf))

	if s.cache != nil {
		if err := s.cache.SetSummary(r.Context(), fingerprint, res); err != nil {
			s.logger.Warn("summary cache write failed", "error", err)
		}
	}

	writeJSON(w, http.StatusOK, res)
}

type bulkPreviewRequest struct {
	IDs     []uuid.UUID      `json:"ids"`
	Changes bulkedit.Changes `json:"changes"`
}

type bulkPreviewResponse struct {
	Selection bulkedit.Changes      `json:"selection"`
	Results   []engine.FlightResult `json:"results"`
}

// handleBulkPreview shows the selection's current values and the derived
// results the change set would produce. Nothing is written.
func (s *Server) handleBulkPreview(w http.ResponseWriter, r *http.Request) {
	var req bulkPreviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.IDs) == 0 {
		writeError(w, http.StatusBadRequest, "ids must not be empty")
		return
	}

	records := make([]model.FlightRecord, 0, len(req.IDs))
	for _, id := range req.IDs {
		rec, err := s.source.Record(r.Context(), id)
		if errors.Is(err, model.ErrNotFound) {
			writeError(w, http.StatusNotFound, fmt.Sprintf("flight %s not found", id))
			return
		}
		if err != nil {
			s.logger.Error("failed to load flight", "id", id, "error", err)
			writeError(w, http.StatusInternalServerError, "failed to load flights")
			return
		}
		records = append(records, rec)
	}

	edited := req.Changes.ApplyAll(records)
	results := s.engine.EvaluateFlights(edited)
	for i := range results {
		results[i] = roundFlight(results[i])
	}

	writeJSON(w, http.StatusOK, bulkPreviewResponse{
		Selection: bulkedit.Summarize(records),
		Results:   results,
	})
}

func roundFlight(res engine.FlightResult) engine.FlightResult {
	res.NightTime = model.RoundHours(res.NightTime)
	res.P1 = model.RoundHours(res.P1)
	res.P1US = model.RoundHours(res.P1US)
	res.P2 = model.RoundHours(res.P2)
	res.Instrument = model.RoundHours(res.Instrument)
	if res.Night != nil {
		n := *res.Night
		n.NightTime = model.RoundHours(n.NightTime)
		res.Night = &n
	}
	return res
}

// roundLogbook rounds displayed hours. Bands come from the unrounded ratio,
// so the shown ratio is floored: rounding up could display a threshold value
// (0.9 critical, 0.8 warning) next to the lower band.
func roundLogbook(res engine.LogbookResult) engine.LogbookResult {
	windows := make([]window.Result, len(res.Windows))
	for i, w := range res.Windows {
		w.Hours = model.RoundHours(w.Hours)
		windows[i] = w
	}
	res.Windows = windows
	for i := range res.Utilizations {
		res.Utilizations[i].Hours = model.RoundHours(res.Utilizations[i].Hours)
		res.Utilizations[i].Ratio = floorRatio(res.Utilizations[i].Ratio)
	}
	return res
}

func floorRatio(r float64) float64 {
	return decimal.NewFromFloat(r).RoundFloor(2).InexactFloat64()
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
