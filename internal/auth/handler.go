package auth

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/districthq/districthq/internal/audit"
	"github.com/districthq/districthq/internal/platform/httpx"
	"github.com/districthq/districthq/internal/shared"
)

// Handler serves the session login endpoints.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	sessions *shared.SessionManager
	recorder *audit.Recorder
	validate *validator.Validate
}

// NewHandler constructs a Handler.
func NewHandler(logger *slog.Logger, service *Service, sessions *shared.SessionManager, recorder *audit.Recorder) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		logger:   logger,
		service:  service,
		sessions: sessions,
		recorder: recorder,
		validate: validator.New(),
	}
}

// MountRoutes registers login routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/login", h.handleLogin)
	r.Post("/logout", h.handleLogout)
}

type loginResponse struct {
	ID          int64  `json:"id"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
	RoleKey     string `json:"role_key,omitempty"`
	SystemAdmin bool   `json:"system_admin"`
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var creds Credentials
	if err := httpx.DecodeJSON(r, &creds); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "request body must be valid JSON")
		return
	}
	if err := h.validate.Struct(creds); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "email and password are required")
		return
	}

	acct, err := h.service.Login(r.Context(), creds)
	if err != nil {
		h.recordAttempt(r, acct.ID, audit.OutcomeFailure, failureDetail(err))
		switch {
		case errors.Is(err, shared.ErrInvalidCredentials), errors.Is(err, shared.ErrAccountDisabled):
			httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "invalid credentials")
		default:
			h.logger.Error("login", slog.Any("error", err))
			httpx.Problem(w, http.StatusInternalServerError, "Internal Server Error", "login failed")
		}
		return
	}

	if sess := shared.SessionFromContext(r.Context()); sess != nil {
		sess.SetUser(strconv.FormatInt(acct.ID, 10))
	}
	h.recordAttempt(r, acct.ID, audit.OutcomeSuccess, "")
	httpx.JSON(w, http.StatusOK, loginResponse{
		ID:          acct.ID,
		Email:       acct.Email,
		DisplayName: acct.DisplayName,
		RoleKey:     string(acct.RoleKey),
		SystemAdmin: acct.SystemAdmin,
	})
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	var actorID int64
	if sess != nil {
		actorID, _ = strconv.ParseInt(sess.User(), 10, 64)
		h.sessions.Destroy(sess)
	}
	h.recordLogout(r, actorID)
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "logged_out"})
}

func (h *Handler) recordAttempt(r *http.Request, actorID int64, outcome audit.Outcome, detail string) {
	if h.recorder == nil {
		return
	}
	in := audit.Input{
		ActorID:   actorID,
		Action:    "auth.login",
		Category:  audit.CategoryAuth,
		Outcome:   outcome,
		IP:        httpx.RemoteIP(r),
		UserAgent: r.UserAgent(),
		Detail:    detail,
	}
	if sess := shared.SessionFromContext(r.Context()); sess != nil {
		in.SessionID = sess.ID
	}
	h.recorder.Record(r.Context(), in)
}

func (h *Handler) recordLogout(r *http.Request, actorID int64) {
	if h.recorder == nil {
		return
	}
	in := audit.Input{
		ActorID:   actorID,
		Action:    "auth.logout",
		Category:  audit.CategoryAuth,
		Outcome:   audit.OutcomeSuccess,
		IP:        httpx.RemoteIP(r),
		UserAgent: r.UserAgent(),
	}
	if sess := shared.SessionFromContext(r.Context()); sess != nil {
		in.SessionID = sess.ID
	}
	h.recorder.Record(r.Context(), in)
}

func failureDetail(err error) string {
	switch {
	case errors.Is(err, shared.ErrInvalidCredentials):
		return "invalid credentials"
	case errors.Is(err, shared.ErrAccountDisabled):
		return "account disabled"
	default:
		return "login error"
	}
}
