// Package auth wires the session store to the portal's HTTP auth endpoints.
package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/brightpath-hq/brightpath/internal/api"
	"github.com/brightpath-hq/brightpath/internal/audit"
	"github.com/brightpath-hq/brightpath/internal/platform/httpx"
	"github.com/brightpath-hq/brightpath/internal/session"
)

// PasswordFlow is the slice of the upstream API used by the password reset
// endpoints; they never touch session state.
type PasswordFlow interface {
	ForgotPassword(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, token, password string) error
}

// Handler serves the auth endpoints.
type Handler struct {
	logger    *slog.Logger
	sessions  *session.Manager
	passwords PasswordFlow
	audit     *audit.Recorder
	validator *validator.Validate
	cookieTTL time.Duration
}

// NewHandler constructs a Handler.
func NewHandler(logger *slog.Logger, sessions *session.Manager, passwords PasswordFlow, recorder *audit.Recorder, cookieTTL time.Duration) *Handler {
	return &Handler{
		logger:    logger,
		sessions:  sessions,
		passwords: passwords,
		audit:     recorder,
		validator: validator.New(),
		cookieTTL: cookieTTL,
	}
}

// MountRoutes registers the auth routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/login", h.handleLogin)
	r.Post("/register", h.handleRegister)
	r.Post("/logout", h.handleLogout)
	r.Post("/forgot-password", h.handleForgotPassword)
	r.Post("/reset-password", h.handleResetPassword)
	r.Get("/verify-email", h.handleVerifyEmail)
	r.Post("/resend-verification", h.handleResendVerification)
	r.Get("/me", h.handleMe)
}

type loginForm struct {
	Email    string `validate:"required,email"`
	Password string `validate:"required"`
}

type registerForm struct {
	Name     string `validate:"required"`
	Email    string `validate:"required,email"`
	Password string `validate:"required,min=8"`
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "malformed form body")
		return
	}
	form := loginForm{
		Email:    r.PostFormValue("email"),
		Password: r.PostFormValue("password"),
	}
	if err := h.validator.Struct(form); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", fieldErrors(err))
		return
	}

	store := h.sessions.ForRequest(w, r)
	identity, err := store.Login(r.Context(), form.Email, form.Password)
	if err != nil {
		h.audit.Record(r.Context(), audit.Event{
			Action:    audit.ActionLoginFailed,
			IP:        r.RemoteAddr,
			UserAgent: r.UserAgent(),
			Meta:      map[string]any{"email": form.Email},
		})
		httpx.RespondError(w, err)
		return
	}

	h.audit.Record(r.Context(), audit.Event{
		ActorID:   identity.ID,
		Action:    audit.ActionLogin,
		IP:        r.RemoteAddr,
		UserAgent: r.UserAgent(),
		Meta:      map[string]any{"session_id": store.SessionID()},
	})
	h.audit.StartSession(r.Context(), store.SessionID(), identity.ID, store.Token(),
		time.Now().Add(h.cookieTTL), r.RemoteAddr, r.UserAgent())

	http.Redirect(w, r, h.postLoginTarget(r, identity.Role.LandingPath()), http.StatusSeeOther)
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "malformed form body")
		return
	}
	form := registerForm{
		Name:     r.PostFormValue("name"),
		Email:    r.PostFormValue("email"),
		Password: r.PostFormValue("password"),
	}
	if err := h.validator.Struct(form); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", fieldErrors(err))
		return
	}

	// Invitation links carry token/classId as query parameters; both pass
	// through to the upstream unvalidated.
	input := api.RegisterInput{
		Name:        form.Name,
		Email:       form.Email,
		Password:    form.Password,
		InviteToken: firstValue(r, "token"),
		ClassID:     firstValue(r, "classId"),
	}

	store := h.sessions.ForRequest(w, r)
	identity, err := store.Register(r.Context(), input)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}

	h.audit.Record(r.Context(), audit.Event{
		ActorID:   identity.ID,
		Action:    audit.ActionRegister,
		IP:        r.RemoteAddr,
		UserAgent: r.UserAgent(),
		Meta:      map[string]any{"session_id": store.SessionID(), "invited": input.InviteToken != ""},
	})
	h.audit.StartSession(r.Context(), store.SessionID(), identity.ID, store.Token(),
		time.Now().Add(h.cookieTTL), r.RemoteAddr, r.UserAgent())

	http.Redirect(w, r, identity.Role.LandingPath(), http.StatusSeeOther)
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	store := h.sessions.ForRequest(w, r)
	// Best-effort resolve so the audit trail can name the session being
	// closed; an expired token must not block the logout.
	_ = store.Rehydrate(r.Context())
	sessionID := store.SessionID()
	var actorID string
	if st := store.State(); st.User != nil {
		actorID = st.User.ID
	}

	store.Logout(r.Context())

	h.audit.EndSession(r.Context(), sessionID)
	h.audit.Record(r.Context(), audit.Event{
		ActorID:   actorID,
		Action:    audit.ActionLogout,
		IP:        r.RemoteAddr,
		UserAgent: r.UserAgent(),
	})
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

func (h *Handler) handleForgotPassword(w http.ResponseWriter, r *http.Request) {
	email := r.PostFormValue("email")
	if email == "" {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "email is required")
		return
	}
	if err := h.passwords.ForgotPassword(r.Context(), email); err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) handleResetPassword(w http.ResponseWriter, r *http.Request) {
	token := r.PostFormValue("token")
	password := r.PostFormValue("password")
	if token == "" || password == "" {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "token and password are required")
		return
	}
	if err := h.passwords.ResetPassword(r.Context(), token, password); err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) handleVerifyEmail(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "token is required")
		return
	}
	store := h.sessions.ForRequest(w, r)
	if err := store.VerifyEmail(r.Context(), token); err != nil {
		httpx.RespondError(w, err)
		return
	}
	h.audit.Record(r.Context(), audit.Event{
		Action:    audit.ActionVerifyEmail,
		IP:        r.RemoteAddr,
		UserAgent: r.UserAgent(),
	})
	http.Redirect(w, r, "/login?message=email_verified", http.StatusSeeOther)
}

func (h *Handler) handleResendVerification(w http.ResponseWriter, r *http.Request) {
	email := r.PostFormValue("email")
	if email == "" {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "email is required")
		return
	}
	store := h.sessions.ForRequest(w, r)
	if err := store.ResendVerification(r.Context(), email); err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	store := h.sessions.ForRequest(w, r)
	if err := store.Rehydrate(r.Context()); err != nil && h.logger != nil {
		h.logger.Debug("rehydrate", slog.Any("error", err))
	}
	st := store.State()
	if st.User == nil {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "no active session")
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"user": st.User})
}

// postLoginTarget honors callbackUrl when it is a safe local path.
func (h *Handler) postLoginTarget(r *http.Request, fallback string) string {
	callback := firstValue(r, "callbackUrl")
	if strings.HasPrefix(callback, "/") && !strings.HasPrefix(callback, "//") && !strings.Contains(callback, "\\") {
		return callback
	}
	return fallback
}

// firstValue reads a parameter from the form body, falling back to the
// query string.
func firstValue(r *http.Request, name string) string {
	if v := r.PostFormValue(name); v != "" {
		return v
	}
	return r.URL.Query().Get(name)
}

func fieldErrors(err error) string {
	var verr validator.ValidationErrors
	fields := make([]string, 0, 4)
	if errors.As(err, &verr) {
		for _, fe := range verr {
			fields = append(fields, strings.ToLower(fe.Field())+": "+fe.Tag())
		}
	}
	if len(fields) == 0 {
		return "invalid input"
	}
	return strings.Join(fields, "; ")
}
