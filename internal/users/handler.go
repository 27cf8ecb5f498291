package users

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/districthq/districthq/internal/audit"
	"github.com/districthq/districthq/internal/authz"
	"github.com/districthq/districthq/internal/fieldacl"
	"github.com/districthq/districthq/internal/platform/httpx"
	"github.com/districthq/districthq/internal/shared"
)

// Fields whose mutation is treated as a security event rather than a
// data change.
var securityFields = map[string]struct{}{
	"is_system_admin":   {},
	"is_active":         {},
	"hashed_password":   {},
	"two_factor_secret": {},
	"backup_codes":      {},
}

// Handler serves the user profile endpoints.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	recorder *audit.Recorder
}

// NewHandler constructs a Handler.
func NewHandler(logger *slog.Logger, service *Service, recorder *audit.Recorder) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, recorder: recorder}
}

// MountRoutes registers user routes. The caller gates access before
// mounting; handlers assume an authenticated actor in context.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.handleList)
	r.Get("/{id}", h.handleGet)
	r.Patch("/{id}", h.handleUpdate)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	actor := authz.ActorFromContext(r.Context())
	page, size := shared.Page(
		queryInt(r, "page", 1),
		queryInt(r, "size", 25),
		25, 100,
	)
	records, err := h.service.List(r.Context(), actor, size, (page-1)*size)
	if err != nil {
		h.logger.Error("list users", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"users": records, "page": page, "size": size})
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "id must be an integer")
		return
	}
	actor := authz.ActorFromContext(r.Context())
	record, err := h.service.Get(r.Context(), actor, id)
	if err != nil {
		httpx.RespondError(w, mapStorageErr(err))
		return
	}
	httpx.JSON(w, http.StatusOK, record)
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "id must be an integer")
		return
	}
	var changes map[string]any
	if err := httpx.DecodeJSON(r, &changes); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "request body must be a JSON object")
		return
	}
	if len(changes) == 0 {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "no fields provided")
		return
	}

	actor := authz.ActorFromContext(r.Context())
	decision, err := h.service.Update(r.Context(), actor, id, changes)
	if err != nil {
		httpx.RespondError(w, mapStorageErr(err))
		return
	}
	if !decision.Valid {
		h.recordUpdate(r, id, changes, audit.OutcomeFailure, denialDetail(decision))
		httpx.JSON(w, http.StatusForbidden, map[string]any{
			"type":   "about:blank",
			"title":  "Forbidden",
			"status": http.StatusForbidden,
			"errors": decision.Errors,
		})
		return
	}

	h.recordUpdate(r, id, changes, audit.OutcomeSuccess, "")
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

func (h *Handler) recordUpdate(r *http.Request, targetID int64, changes map[string]any, outcome audit.Outcome, detail string) {
	if h.recorder == nil {
		return
	}
	category := audit.CategoryDataCritical
	action := "users.update"
	for field := range changes {
		if _, ok := securityFields[field]; ok {
			category = audit.CategorySecurity
			break
		}
	}
	if outcome == audit.OutcomeFailure {
		category = audit.CategoryPermission
		action = "users.update.denied"
	}

	in := audit.Input{
		Action:       action,
		Category:     category,
		Outcome:      outcome,
		TargetUserID: targetID,
		IP:           httpx.RemoteIP(r),
		UserAgent:    r.UserAgent(),
		Detail:       detail,
		Context:      map[string]any{"fields": fieldNames(changes)},
	}
	if actor := authz.ActorFromContext(r.Context()); actor != nil {
		in.ActorID = actor.UserID
		in.StaffID = actor.StaffID
	}
	if sess := shared.SessionFromContext(r.Context()); sess != nil {
		in.SessionID = sess.ID
	}
	h.recorder.Record(r.Context(), in)
}

func pathID(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
}

func queryInt(r *http.Request, key string, fallback int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return n
}

func mapStorageErr(err error) error {
	if errors.Is(err, shared.ErrNotFound) {
		return fmt.Errorf("%w: user", httpx.ErrNotFound)
	}
	return err
}

func denialDetail(decision fieldacl.WriteDecision) string {
	return fieldErrorSummary(decision.Errors)
}

func fieldErrorSummary(errs []fieldacl.FieldError) string {
	if len(errs) == 0 {
		return ""
	}
	out := errs[0].Field + ": " + errs[0].Reason
	for _, fe := range errs[1:] {
		out += "; " + fe.Field + ": " + fe.Reason
	}
	return out
}

func fieldNames(changes map[string]any) string {
	out := ""
	for field := range changes {
		if out != "" {
			out += ","
		}
		out += field
	}
	return out
}
