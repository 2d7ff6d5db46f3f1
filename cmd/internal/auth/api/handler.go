package authapi

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"chitter/cmd/identity"
	"chitter/cmd/internal/auth/session"
	"chitter/cmd/internal/auth/verify"
)

// Handler wires HTTP auth endpoints to identity, verification, and session services.
type Handler struct {
	log *slog.Logger
	cfg Config

	users    identity.Store
	sessions *session.Service
	verifier *verify.Service

	emailSender EmailSender

	dummyHash string
}

// HandlerOption configures optional auth handler dependencies.
type HandlerOption func(*Handler)

// WithEmailSender overrides the default no-op email sender.
func WithEmailSender(sender EmailSender) HandlerOption {
	return func(h *Handler) {
		if h == nil || sender == nil {
			return
		}
		h.emailSender = sender
	}
}

// NewHandler constructs an auth Handler.
func NewHandler(log *slog.Logger, cfg Config, users identity.Store, sessions *session.Service, verifier *verify.Service, opts ...HandlerOption) *Handler {
	if log == nil {
		log = slog.Default()
	}

	h := &Handler{
		log:         log,
		cfg:         cfg,
		users:       users,
		sessions:    sessions,
		verifier:    verifier,
		emailSender: NoopEmailSender{},
	}

	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(h)
	}

	// Dummy hash for timing-resistant login checks.
	if hash, err := identity.HashPassword("dummy-password-for-timing-only"); err == nil {
		h.dummyHash = hash
	}

	return h
}

// Register wires auth routes onto the provided mux.
func (h *Handler) Register(mux *http.ServeMux) {
	if h == nil || mux == nil {
		return
	}
	mux.HandleFunc("POST /auth/register", h.handleRegister)
	mux.HandleFunc("POST /auth/verify", h.handleVerify)
	mux.HandleFunc("POST /auth/resend", h.handleResend)
	mux.HandleFunc("POST /auth/login", h.handleLogin)
	mux.HandleFunc("POST /auth/refresh", h.handleRefresh)
	mux.HandleFunc("POST /auth/logout", h.handleLogout)
}

// ---- handlers ----

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(w, r, h.cfg.MaxBodyBytes, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "invalid request body")
		return
	}

	username := strings.TrimSpace(req.Username)
	email := strings.TrimSpace(req.Email)
	if username == "" || email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "username, email and password are required")
		return
	}

	ctx := r.Context()
	now := time.Now().UTC()

	code, challenge, err := h.verifier.NewChallenge(now)
	if err != nil {
		h.log.Error("auth.register.challenge.fail", "err", err)
		writeError(w, http.StatusInternalServerError, "server_error", "internal error")
		return
	}

	user, err := h.users.CreateUser(ctx, identity.CreateUserInput{
		Username:  username,
		Email:     email,
		Password:  req.Password,
		Challenge: challenge,
		Now:       now,
	})
	if err != nil {
		var conflict identity.ConflictError
		switch {
		case errors.As(err, &conflict):
			writeError(w, http.StatusBadRequest, "duplicate_"+conflict.Field, conflict.Field+" already in use")
		case identity.IsInvalidInput(err):
			writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		default:
			h.log.Error("auth.register.fail", "err", err)
			writeError(w, http.StatusInternalServerError, "server_error", "internal error")
		}
		return
	}

	// Delivery failure must not fail registration; the challenge can be
	// resent later.
	if err := h.emailSender.SendVerificationCode(ctx, VerificationEmail{
		Username: user.Username,
		Email:    user.Email,
		Code:     code,
	}); err != nil {
		h.log.Error("auth.register.email.fail", "user_id", user.ID, "err", err)
	}

	resp := registerResponse{
		Message: "registered; check your email for a verification code",
		UserID:  user.ID,
	}
	if !h.cfg.Production {
		resp.DevVerificationCode = code
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (h *Handler) handleVerify(w http.ResponseWriter, r *http.Request) {
	var req verifyRequest
	if err := decodeJSON(w, r, h.cfg.MaxBodyBytes, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "invalid request body")
		return
	}

	email := strings.TrimSpace(req.Email)
	code := strings.TrimSpace(req.Code)
	if email == "" || code == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "email and code are required")
		return
	}

	err := h.verifier.Verify(r.Context(), email, code, time.Now().UTC())
	if err != nil {
		switch {
		case identity.IsNotFound(err):
			writeError(w, http.StatusNotFound, "not_found", "account not found")
		case errors.Is(err, verify.ErrAlreadyVerified):
			writeError(w, http.StatusBadRequest, "already_verified", "account already verified")
		case errors.Is(err, verify.ErrNoChallenge):
			writeError(w, http.StatusBadRequest, "no_challenge", "no pending verification")
		case errors.Is(err, verify.ErrCodeMismatch):
			writeError(w, http.StatusBadRequest, "code_mismatch", "incorrect verification code")
		case errors.Is(err, verify.ErrCodeExpired):
			writeError(w, http.StatusBadRequest, "code_expired", "verification code expired")
		default:
			h.log.Error("auth.verify.fail", "err", err)
			writeError(w, http.StatusInternalServerError, "server_error", "internal error")
		}
		return
	}

	writeJSON(w, http.StatusOK, messageResponse{Message: "account verified"})
}

func (h *Handler) handleResend(w http.ResponseWriter, r *http.Request) {
	var req resendRequest
	if err := decodeJSON(w, r, h.cfg.MaxBodyBytes, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "invalid request body")
		return
	}

	email := strings.TrimSpace(req.Email)
	if email == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "email is required")
		return
	}

	ctx := r.Context()
	code, err := h.verifier.Resend(ctx, email, time.Now().UTC())
	if err != nil {
		switch {
		case identity.IsNotFound(err):
			writeError(w, http.StatusNotFound, "not_found", "account not found")
		case errors.Is(err, verify.ErrAlreadyVerified):
			writeError(w, http.StatusBadRequest, "already_verified", "account already verified")
		case errors.Is(err, verify.ErrResendLimited):
			var limited verify.ResendLimitError
			errors.As(err, &limited)
			writeRateLimited(w, limited.RetryAfter, "rate_limited", "too many resend attempts")
		default:
			h.log.Error("auth.resend.fail", "err", err)
			writeError(w, http.StatusInternalServerError, "server_error", "internal error")
		}
		return
	}

	if err := h.emailSender.SendVerificationCode(ctx, VerificationEmail{Email: email, Code: code}); err != nil {
		h.log.Error("auth.resend.email.fail", "err", err)
	}

	resp := messageResponse{Message: "verification code resent"}
	if !h.cfg.Production {
		resp.DevVerificationCode = code
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, h.cfg.MaxBodyBytes, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "invalid request body")
		return
	}

	email := strings.TrimSpace(req.Email)
	if email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "email and password are required")
		return
	}

	ctx := r.Context()
	now := time.Now().UTC()

	user, err := h.users.GetUserByEmail(ctx, email)
	if err != nil {
		if identity.IsNotFound(err) {
			// Timing resistance: perform a dummy verify when the user is missing.
			if h.dummyHash != "" {
				_, _ = identity.VerifyPassword(req.Password, h.dummyHash)
			}
			writeError(w, http.StatusUnauthorized, "invalid_credentials", "invalid credentials")
			return
		}
		h.log.Error("auth.login.lookup.fail", "err", err)
		writeError(w, http.StatusInternalServerError, "server_error", "internal error")
		return
	}

	okPw, err := identity.VerifyPassword(req.Password, user.PasswordHash)
	if err != nil || !okPw {
		writeError(w, http.StatusUnauthorized, "invalid_credentials", "invalid credentials")
		return
	}

	// Checked after credentials so unverified accounts can be routed to
	// the verification screen instead of a login retry.
	if !user.Verified() {
		writeError(w, http.StatusForbidden, "email_not_verified", "email verification required")
		return
	}

	issued, err := h.sessions.Issue(ctx, now, user)
	if err != nil {
		h.log.Error("auth.login.issue.fail", "err", err)
		writeError(w, http.StatusInternalServerError, "server_error", "internal error")
		return
	}

	h.setRefreshCookie(w, issued.RefreshToken, now, issued.RefreshExp)
	writeJSON(w, http.StatusOK, tokenResponse{
		AccessToken: issued.AccessToken,
		User:        toUserResponse(user),
	})
}

func (h *Handler) handleRefresh(w http.ResponseWriter, r *http.Request) {
	// The refresh token is accepted from the cookie channel only.
	refreshToken, ok := h.refreshTokenFromCookie(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing_refresh", "refresh token cookie required")
		return
	}

	ctx := r.Context()
	now := time.Now().UTC()

	issued, user, err := h.sessions.Rotate(ctx, now, refreshToken)
	if err != nil {
		switch {
		case errors.Is(err, session.ErrReuseDetected):
			h.log.Warn("auth.refresh.reuse_detected")
			h.clearRefreshCookie(w)
			writeError(w, http.StatusUnauthorized, "refresh_reuse_detected", "refresh token reuse detected")
		case errors.Is(err, session.ErrTokenExpired):
			h.clearRefreshCookie(w)
			writeError(w, http.StatusUnauthorized, "refresh_expired", "refresh token expired")
		case errors.Is(err, session.ErrTokenNotFound),
			errors.Is(err, session.ErrTokenRevoked),
			identity.IsNotFound(err):
			h.clearRefreshCookie(w)
			writeError(w, http.StatusUnauthorized, "invalid_refresh", "invalid refresh token")
		default:
			h.log.Error("auth.refresh.fail", "err", err)
			writeError(w, http.StatusInternalServerError, "server_error", "internal error")
		}
		return
	}

	h.setRefreshCookie(w, issued.RefreshToken, now, issued.RefreshExp)
	writeJSON(w, http.StatusOK, tokenResponse{
		AccessToken: issued.AccessToken,
		User:        toUserResponse(user),
	})
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	now := time.Now().UTC()

	// Logout is idempotent: a missing or unknown cookie still succeeds.
	if refreshToken, ok := h.refreshTokenFromCookie(r); ok {
		if err := h.sessions.Revoke(ctx, now, refreshToken); err != nil {
			h.log.Error("auth.logout.fail", "err", err)
			writeError(w, http.StatusInternalServerError, "server_error", "internal error")
			return
		}
	}

	h.clearRefreshCookie(w)
	writeJSON(w, http.StatusOK, messageResponse{Message: "logged out"})
}
