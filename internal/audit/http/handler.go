// Package audithttp exposes the audit query API consumed by the
// administrative dashboard.
package audithttp

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/districthq/districthq/internal/audit"
	"github.com/districthq/districthq/internal/platform/httpx"
)

// QueryService is the business contract for audit reads.
type QueryService interface {
	HighRiskEvents(ctx context.Context, q audit.Query) (audit.Report, error)
	RecentEvents(ctx context.Context, filter audit.QueryFilter) ([]audit.Event, error)
}

// Handler serves audit query endpoints.
type Handler struct {
	logger   *slog.Logger
	service  QueryService
	validate *validator.Validate
}

// NewHandler constructs a Handler.
func NewHandler(logger *slog.Logger, service QueryService) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

// MountRoutes registers audit routes on the provided router. Access
// gating is applied by the caller when mounting.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/high-risk", h.handleHighRisk)
	r.Get("/events", h.handleEvents)
}

type highRiskParams struct {
	MinScore  int `validate:"gte=0,lte=100"`
	HoursBack int `validate:"gte=1,lte=720"`
	Limit     int `validate:"gte=1,lte=100"`
}

func (h *Handler) handleHighRisk(w http.ResponseWriter, r *http.Request) {
	params := highRiskParams{
		MinScore:  audit.DefaultMinScore,
		HoursBack: audit.DefaultHoursBack,
		Limit:     audit.DefaultLimit,
	}
	var parseErr error
	if raw := r.URL.Query().Get("min_score"); raw != "" {
		params.MinScore, parseErr = strconv.Atoi(raw)
	}
	if raw := r.URL.Query().Get("hours_back"); raw != "" && parseErr == nil {
		params.HoursBack, parseErr = strconv.Atoi(raw)
	}
	if raw := r.URL.Query().Get("limit"); raw != "" && parseErr == nil {
		params.Limit, parseErr = strconv.Atoi(raw)
	}
	if parseErr != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "query parameters must be integers")
		return
	}
	if err := h.validate.Struct(params); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	report, err := h.service.HighRiskEvents(r.Context(), audit.Query{
		MinScore:  params.MinScore,
		HoursBack: params.HoursBack,
		Limit:     params.Limit,
	})
	if err != nil {
		h.logger.Error("high risk query", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, report)
}

func (h *Handler) handleEvents(w http.ResponseWriter, r *http.Request) {
	filter := audit.QueryFilter{
		Category: audit.Category(r.URL.Query().Get("category")),
		Limit:    audit.DefaultLimit,
	}
	if raw := r.URL.Query().Get("actor_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "actor_id must be an integer")
			return
		}
		filter.ActorID = id
	}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "limit must be an integer")
			return
		}
		filter.Limit = n
	}

	events, err := h.service.RecentEvents(r.Context(), filter)
	if err != nil {
		h.logger.Error("recent events query", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"events": events})
}
