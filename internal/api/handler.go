package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/opensource-finance/kestrel/internal/domain"
	"github.com/opensource-finance/kestrel/internal/fraud"
	"github.com/opensource-finance/kestrel/internal/monitor"
	"github.com/opensource-finance/kestrel/internal/patterns"
	"github.com/opensource-finance/kestrel/internal/rules"
	"github.com/opensource-finance/kestrel/internal/scoring"
)

// maxAnalysisHours bounds on-demand analysis windows to one week.
const maxAnalysisHours = 168

// Handler holds dependencies for API handlers.
type Handler struct {
	config     *domain.ConfigHolder
	store      domain.AuditStore
	cache      domain.Cache
	bus        domain.EventBus
	scorer     *scoring.Engine
	assessor   *fraud.Assessor
	monitor    *monitor.Monitor
	ruleEngine *rules.Engine
	analyzer   *patterns.Analyzer
	version    string
}

// NewHandler creates a new API handler.
func NewHandler(
	config *domain.ConfigHolder,
	store domain.AuditStore,
	cache domain.Cache,
	bus domain.EventBus,
	scorer *scoring.Engine,
	assessor *fraud.Assessor,
	mon *monitor.Monitor,
	ruleEngine *rules.Engine,
	version string,
) *Handler {
	return &Handler{
		config:     config,
		store:      store,
		cache:      cache,
		bus:        bus,
		scorer:     scorer,
		assessor:   assessor,
		monitor:    mon,
		ruleEngine: ruleEngine,
		analyzer:   patterns.New(slog.Default()),
		version:    version,
	}
}

// AnalyzeRequest is the request body for POST /analyze.
type AnalyzeRequest struct {
	Hours float64 `json:"hours"`
}

// Analyze handles POST /analyze: run anomaly detection over the trailing
// window and return the findings.
func (h *Handler) Analyze(w http.ResponseWriter, r *http.Request) {
	var req AnalyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid JSON request body",
		})
		return
	}

	if req.Hours <= 0 {
		req.Hours = 1
	}
	if req.Hours > maxAnalysisHours {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "hours must not exceed 168",
		})
		return
	}

	window := time.Duration(req.Hours * float64(time.Hour))
	findings, err := h.monitor.AnalyzeWindow(r.Context(), window)
	if err != nil {
		slog.Error("analysis failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "analysis failed",
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"windowHours": req.Hours,
		"findings":    findings,
		"count":       len(findings),
	})
}

// ScoreRequest is the request body for POST /score.
type ScoreRequest struct {
	Severity  string         `json:"severity"`
	EventType string         `json:"eventType"`
	Amount    float64        `json:"amount,omitempty"`
	EntityID  string         `json:"entityId,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// Score handles POST /score: compute the composite risk score for a
// compliance event.
func (h *Handler) Score(w http.ResponseWriter, r *http.Request) {
	var req ScoreRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid JSON request body",
		})
		return
	}

	if req.EventType == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "eventType is required",
		})
		return
	}

	result, err := h.scorer.Score(r.Context(), domain.Event{
		Severity:  domain.ParseSeverity(req.Severity),
		EventType: req.EventType,
		Amount:    req.Amount,
		EntityID:  req.EntityID,
		Metadata:  req.Metadata,
	})
	if err != nil {
		slog.Error("scoring failed", "event_type", req.EventType, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "scoring failed",
		})
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// AssessFraud handles POST /fraud/assess: run the fraud risk assessment
// over a transaction payload. Custom indicator rules contribute
// additional indicators.
func (h *Handler) AssessFraud(w http.ResponseWriter, r *http.Request) {
	// Negative means "not provided"; a decoded zero is a real value.
	tx := domain.TransactionPayload{
		RecentTransactionCount:   -1,
		TimeSinceLastTransaction: -1,
	}
	if err := json.NewDecoder(r.Body).Decode(&tx); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid JSON request body",
		})
		return
	}

	if tx.Amount <= 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "amount must be positive",
		})
		return
	}

	assessment := h.assessor.Assess(r.Context(), tx)

	if h.ruleEngine != nil {
		custom := h.ruleEngine.EvaluateAll(r.Context(), tx)
		assessment.Indicators = append(assessment.Indicators, custom...)
	}

	writeJSON(w, http.StatusOK, assessment)
}

// PatternsReportRequest is the request body for POST /patterns/report.
type PatternsReportRequest struct {
	Hours float64 `json:"hours"`
}

// PatternsReport handles POST /patterns/report: decision pattern and
// bias analysis over the trailing window.
func (h *Handler) PatternsReport(w http.ResponseWriter, r *http.Request) {
	var req PatternsReportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid JSON request body",
		})
		return
	}

	if req.Hours <= 0 {
		req.Hours = 24
	}
	if req.Hours > maxAnalysisHours {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "hours must not exceed 168",
		})
		return
	}

	end := time.Now()
	start := end.Add(-time.Duration(req.Hours * float64(time.Hour)))

	records, err := h.store.QueryWindow(r.Context(), start, end)
	if err != nil {
		slog.Error("pattern analysis query failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "pattern analysis failed",
		})
		return
	}

	writeJSON(w, http.StatusOK, h.analyzer.AnalyzeDecisions(records))
}

// GetReport handles GET /reports?start=...&end=... with RFC3339 bounds.
// Defaults to the trailing 24 hours.
func (h *Handler) GetReport(w http.ResponseWriter, r *http.Request) {
	end := time.Now()
	start := end.Add(-24 * time.Hour)

	if v := r.URL.Query().Get("start"); v != "" {
		parsed, err := time.Parse(time.RFC3339, v)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{
				"error": "start must be RFC3339",
			})
			return
		}
		start = parsed
	}
	if v := r.URL.Query().Get("end"); v != "" {
		parsed, err := time.Parse(time.RFC3339, v)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{
				"error": "end must be RFC3339",
			})
			return
		}
		end = parsed
	}

	if !end.After(start) {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "end must be after start",
		})
		return
	}

	report, err := h.monitor.GenerateReport(r.Context(), start, end)
	if err != nil {
		slog.Error("report generation failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "report generation failed",
		})
		return
	}

	writeJSON(w, http.StatusOK, report)
}

// GetConfig handles GET /config: the live engine tunables snapshot.
func (h *Handler) GetConfig(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.config.Load())
}

// UpdateConfig handles PUT /config: validate, swap the snapshot
// atomically and persist it.
func (h *Handler) UpdateConfig(w http.ResponseWriter, r *http.Request) {
	var cfg domain.EngineConfig
	if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid JSON request body",
		})
		return
	}

	if cfg.AnomalyThreshold < 0 || cfg.AnomalyThreshold > 1 {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "anomalyThreshold must be within [0, 1]",
		})
		return
	}
	if cfg.HistoricalWeight < 0 || cfg.ContextualWeight < 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "component weights must not be negative",
		})
		return
	}
	if cfg.AnalysisInterval <= 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "analysisInterval must be positive",
		})
		return
	}
	defaults := domain.DefaultEngineConfig()
	if cfg.SeverityWeights == nil {
		cfg.SeverityWeights = defaults.SeverityWeights
	}
	if cfg.VelocityModerate <= 0 {
		cfg.VelocityModerate = defaults.VelocityModerate
	}
	if cfg.VelocityHigh <= 0 {
		cfg.VelocityHigh = defaults.VelocityHigh
	}
	if cfg.VelocityExtreme <= 0 {
		cfg.VelocityExtreme = defaults.VelocityExtreme
	}
	if cfg.SlowProcessingMs <= 0 {
		cfg.SlowProcessingMs = defaults.SlowProcessingMs
	}
	if cfg.DayStartHour <= 0 && cfg.DayEndHour <= 0 {
		cfg.DayStartHour = defaults.DayStartHour
		cfg.DayEndHour = defaults.DayEndHour
	}

	h.config.Store(cfg)

	persisted := true
	if err := h.store.SaveEngineConfig(r.Context(), &cfg); err != nil {
		slog.Error("failed to persist engine config", "error", err)
		persisted = false
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"updated":   true,
		"persisted": persisted,
	})
}

// Status handles GET /status.
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	status := map[string]any{
		"version":               h.version,
		"monitoring":            h.monitor.Running(),
		"totalRecordsProcessed": h.monitor.TotalRecordsProcessed(),
	}
	if h.ruleEngine != nil {
		status["rulesLoaded"] = h.ruleEngine.RulesCount()
	}
	writeJSON(w, http.StatusOK, status)
}

// Health handles GET /health, reporting degraded when a backing service
// fails its ping.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	status := "healthy"

	if h.store != nil {
		if err := h.store.Ping(r.Context()); err != nil {
			status = "degraded"
		}
	}
	if h.cache != nil {
		if err := h.cache.Ping(r.Context()); err != nil {
			status = "degraded"
		}
	}
	if h.bus != nil {
		if err := h.bus.Ping(r.Context()); err != nil {
			status = "degraded"
		}
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"status":  status,
		"version": h.version,
	})
}

// Ready handles GET /ready.
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"ready": "true",
	})
}

// ListRules returns all loaded indicator rules from the engine.
func (h *Handler) ListRules(w http.ResponseWriter, r *http.Request) {
	loaded := h.ruleEngine.GetLoadedRules()

	writeJSON(w, http.StatusOK, map[string]any{
		"rules": loaded,
		"count": len(loaded),
	})
}

// GetRule retrieves an indicator rule by ID from the store.
func (h *Handler) GetRule(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "rule id is required",
		})
		return
	}

	rule, err := h.store.GetRule(r.Context(), id)
	if err != nil {
		writeJSON(w, http.StatusNotFound, map[string]string{
			"error": "rule not found",
		})
		return
	}

	writeJSON(w, http.StatusOK, rule)
}

// CreateRuleRequest is the request body for POST /rules.
type CreateRuleRequest struct {
	ID                string `json:"id,omitempty"`
	Name              string `json:"name"`
	Description       string `json:"description,omitempty"`
	Expression        string `json:"expression"`
	IndicatorType     string `json:"indicatorType"`
	IndicatorSeverity string `json:"indicatorSeverity,omitempty"`
	Enabled           *bool  `json:"enabled,omitempty"`
}

// CreateRule validates, persists and loads a new indicator rule.
func (h *Handler) CreateRule(w http.ResponseWriter, r *http.Request) {
	var req CreateRuleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid JSON request body",
		})
		return
	}

	if req.Expression == "" || req.IndicatorType == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "expression and indicatorType are required",
		})
		return
	}

	rule := &domain.RuleConfig{
		ID:                req.ID,
		Name:              req.Name,
		Description:       req.Description,
		Expression:        req.Expression,
		IndicatorType:     req.IndicatorType,
		IndicatorSeverity: req.IndicatorSeverity,
		Enabled:           true,
	}
	if rule.ID == "" {
		rule.ID = uuid.New().String()
	}
	if rule.IndicatorSeverity == "" {
		rule.IndicatorSeverity = "medium"
	}
	if req.Enabled != nil {
		rule.Enabled = *req.Enabled
	}

	if err := h.ruleEngine.ValidateRule(rule); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid rule: " + err.Error(),
		})
		return
	}

	if err := h.store.SaveRule(r.Context(), rule); err != nil {
		slog.Error("failed to save rule", "rule_id", rule.ID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to save rule",
		})
		return
	}

	if rule.Enabled {
		if err := h.ruleEngine.LoadRule(rule); err != nil {
			slog.Error("failed to load rule", "rule_id", rule.ID, "error", err)
		}
	}

	writeJSON(w, http.StatusCreated, rule)
}

// ReloadRules reloads all enabled rules from the store into the engine.
func (h *Handler) ReloadRules(w http.ResponseWriter, r *http.Request) {
	configs, err := h.store.ListRules(r.Context())
	if err != nil {
		slog.Error("failed to list rules", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to list rules",
		})
		return
	}

	if err := h.ruleEngine.ReloadRules(configs); err != nil {
		slog.Error("failed to reload rules", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to reload rules",
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"reloaded": true,
		"count":    h.ruleEngine.RulesCount(),
	})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
