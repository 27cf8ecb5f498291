package rbac

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/districthq/districthq/internal/audit"
	"github.com/districthq/districthq/internal/platform/httpx"
	"github.com/districthq/districthq/internal/shared"
)

// Handler serves the role administration API. Routes are mounted behind
// an admin-tier gate; the handler itself records what admins change.
type Handler struct {
	logger   *slog.Logger
	registry *Registry
	store    RoleStore
	recorder *audit.Recorder
}

// NewHandler constructs a Handler.
func NewHandler(logger *slog.Logger, registry *Registry, store RoleStore, recorder *audit.Recorder) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, registry: registry, store: store, recorder: recorder}
}

// MountRoutes registers role administration routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.handleList)
	r.Put("/{key}/capabilities", h.handleReplaceGrants)
	r.Post("/reload", h.handleReload)
}

type roleView struct {
	Key          string   `json:"key"`
	Title        string   `json:"title"`
	Rank         int      `json:"rank"`
	IsLeadership bool     `json:"is_leadership"`
	Category     string   `json:"category"`
	Capabilities []string `json:"capabilities"`
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	snap := h.registry.Snapshot()
	roles := snap.Roles()
	out := make([]roleView, 0, len(roles))
	for _, role := range roles {
		caps := snap.CapabilitiesOf(role.Key)
		capStrings := make([]string, len(caps))
		for i, c := range caps {
			capStrings[i] = string(c)
		}
		out = append(out, roleView{
			Key:          string(role.Key),
			Title:        role.Title,
			Rank:         role.Rank,
			IsLeadership: role.IsLeadership,
			Category:     role.Category,
			Capabilities: capStrings,
		})
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"roles": out})
}

type replaceGrantsRequest struct {
	Capabilities []string `json:"capabilities"`
}

func (h *Handler) handleReplaceGrants(w http.ResponseWriter, r *http.Request) {
	key := RoleKey(chi.URLParam(r, "key"))
	snap := h.registry.Snapshot()
	if _, ok := snap.Role(key); !ok {
		httpx.Problem(w, http.StatusNotFound, "Not Found", "unknown role")
		return
	}

	var req replaceGrantsRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "request body must be valid JSON")
		return
	}

	known := make(map[Capability]struct{}, len(AllCapabilities()))
	for _, c := range AllCapabilities() {
		known[c] = struct{}{}
	}
	caps := make([]Capability, 0, len(req.Capabilities))
	for _, raw := range req.Capabilities {
		c := Capability(raw)
		if _, ok := known[c]; !ok {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "unknown capability "+raw)
			return
		}
		caps = append(caps, c)
	}

	if err := h.store.ReplaceGrants(r.Context(), key, caps); err != nil {
		h.logger.Error("replace grants", slog.String("role", string(key)), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	if err := h.registry.Reload(r.Context()); err != nil {
		// Storage holds the new grants but the running snapshot does
		// not. Surface the inconsistency instead of claiming success.
		h.logger.Error("registry reload", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "grants saved but snapshot reload failed")
		return
	}

	h.recordChange(r, "rbac.grants.replace", string(key))
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

func (h *Handler) handleReload(w http.ResponseWriter, r *http.Request) {
	if err := h.registry.Reload(r.Context()); err != nil {
		h.logger.Error("registry reload", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "snapshot reload failed")
		return
	}
	h.recordChange(r, "rbac.reload", "")
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "reloaded"})
}

func (h *Handler) recordChange(r *http.Request, action, roleKey string) {
	if h.recorder == nil {
		return
	}
	in := audit.Input{
		Action:    action,
		Category:  audit.CategoryPermission,
		Outcome:   audit.OutcomeSuccess,
		IP:        httpx.RemoteIP(r),
		UserAgent: r.UserAgent(),
	}
	if sess := shared.SessionFromContext(r.Context()); sess != nil {
		in.SessionID = sess.ID
		in.ActorID, _ = strconv.ParseInt(sess.User(), 10, 64)
	}
	if roleKey != "" {
		in.Context = map[string]any{"role": roleKey}
	}
	h.recorder.Record(r.Context(), in)
}
