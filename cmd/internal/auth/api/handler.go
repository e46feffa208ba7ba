package api

import (
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"rnbw/cmd/identity"
	"rnbw/cmd/internal/reset"
	"rnbw/cmd/security/password"
)

// Handler wires the credential and password-reset endpoints to their services.
type Handler struct {
	log    *slog.Logger
	cfg    Config
	users  *identity.Manager
	resets *reset.Service
	limits *limiterSet

	// dummyHash keeps login latency flat when the account does not exist.
	dummyHash string
	hashCfg   password.Config
}

// NewHandler constructs the auth Handler.
func NewHandler(log *slog.Logger, cfg Config, users *identity.Manager, resets *reset.Service, hashCfg password.Config) (*Handler, error) {
	if log == nil {
		log = slog.Default()
	}
	if users == nil {
		return nil, errors.New("auth: nil credential manager")
	}
	if resets == nil {
		return nil, errors.New("auth: nil reset service")
	}

	h := &Handler{
		log:     log,
		cfg:     cfg,
		users:   users,
		resets:  resets,
		limits:  newLimiterSet(cfg),
		hashCfg: hashCfg,
	}

	// Dummy hash for timing-resistant login checks.
	if hash, err := hashCfg.Hash("dummy-password-for-timing-only"); err == nil {
		h.dummyHash = hash
	}

	return h, nil
}

// Register wires auth routes onto the provided mux.
func (h *Handler) Register(mux *http.ServeMux) {
	if h == nil || mux == nil {
		return
	}
	mux.HandleFunc("/auth/register", h.withAPILimit(h.handleRegister))
	mux.HandleFunc("/auth/login", h.withAPILimit(h.handleLogin))
	mux.HandleFunc("/password-reset/request", h.withAPILimit(h.handleResetRequest))
	mux.HandleFunc("/password-reset/verify-token", h.withAPILimit(h.handleVerifyToken))
	mux.HandleFunc("/password-reset/reset", h.withAPILimit(h.handleResetComplete))
}

// withAPILimit applies the general per-IP budget in front of the tier-specific
// limits each handler enforces itself.
func (h *Handler) withAPILimit(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ip := clientIP(r, h.cfg.TrustProxy)
		if ok, retryAfter := h.limits.api.Allow(ipKey(ip), time.Now().UTC()); !ok {
			writeRateLimited(w, retryAfter, "Too many requests from this IP, please try again later.")
			return
		}
		next(w, r)
	}
}

// ---- handlers ----

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	now := time.Now().UTC()
	ip := clientIP(r, h.cfg.TrustProxy)
	if ok, retryAfter := h.limits.register.Allow(ipKey(ip), now); !ok {
		writeRateLimited(w, retryAfter, "Too many account creation attempts, please try again later.")
		return
	}

	var req registerRequest
	if err := decodeJSON(w, r, h.cfg.MaxBodyBytes, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if strings.TrimSpace(req.Username) == "" || strings.TrimSpace(req.Email) == "" ||
		strings.TrimSpace(req.DOB) == "" || req.Password == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{
			Error:    "Missing required fields",
			Required: []string{"username", "email", "dob", "password"},
		})
		return
	}

	u, err := h.users.Register(r.Context(), identity.RegisterInput{
		Username:    req.Username,
		Email:       req.Email,
		DateOfBirth: req.DOB,
		Password:    req.Password,
		Now:         now,
	})
	if err != nil {
		switch {
		case identity.IsWeakPassword(err):
			writeError(w, http.StatusBadRequest, "Password must be at least 6 characters long")
		case identity.IsConflict(err):
			writeError(w, http.StatusConflict, "User already exists")
		case identity.IsInvalidInput(err):
			writeJSON(w, http.StatusBadRequest, errorResponse{
				Error:    "Missing required fields",
				Required: []string{"username", "email", "dob", "password"},
			})
		default:
			h.log.Error("auth.register.fail", "err", err)
			writeError(w, http.StatusInternalServerError, "Failed to create user")
		}
		return
	}

	writeJSON(w, http.StatusCreated, registerResponse{
		Message: "User created successfully",
		User:    toUserResponse(u),
	})
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	now := time.Now().UTC()
	ip := clientIP(r, h.cfg.TrustProxy)
	key := ipKey(ip)
	if ok, retryAfter := h.limits.auth.Allow(key, now); !ok {
		writeRateLimited(w, retryAfter, "Too many authentication attempts, please try again later.")
		return
	}

	var req loginRequest
	if err := decodeJSON(w, r, h.cfg.MaxBodyBytes, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "Email and password are required")
		return
	}

	ctx := r.Context()
	u, exists, err := h.users.GetUser(ctx, req.Email)
	if err != nil {
		h.log.Error("auth.login.fail", "err", err)
		writeError(w, http.StatusInternalServerError, "Failed to login")
		return
	}
	if !exists {
		// Timing resistance: burn a verify against the dummy hash so the
		// unknown-account branch costs the same as a real password check.
		if h.dummyHash != "" {
			_, _ = h.hashCfg.Verify(h.dummyHash, req.Password)
		}
		writeError(w, http.StatusUnauthorized, "Invalid email or password")
		return
	}

	okPw, err := h.hashCfg.Verify(u.PasswordHash, req.Password)
	if err != nil {
		h.log.Error("auth.login.verify.fail", "err", err)
		writeError(w, http.StatusInternalServerError, "Failed to login")
		return
	}
	if !okPw {
		writeError(w, http.StatusUnauthorized, "Invalid email or password")
		return
	}

	// Successful logins do not count against the failure budget.
	h.limits.auth.Forgive(key, now)

	writeJSON(w, http.StatusOK, loginResponse{
		Message: "Login successful",
		User:    toUserResponse(u),
	})
}

func (h *Handler) handleResetRequest(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	now := time.Now().UTC()
	ip := clientIP(r, h.cfg.TrustProxy)
	if ok, retryAfter := h.limits.reset.Allow(ipKey(ip), now); !ok {
		writeRateLimited(w, retryAfter, "Too many password reset attempts, please try again later.")
		return
	}

	var req resetRequestRequest
	if err := decodeJSON(w, r, h.cfg.MaxBodyBytes, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if strings.TrimSpace(req.Email) == "" {
		writeError(w, http.StatusBadRequest, "Email is required")
		return
	}
	if strings.TrimSpace(req.RecaptchaToken) == "" {
		writeError(w, http.StatusBadRequest, "reCAPTCHA verification is required")
		return
	}

	err := h.resets.Request(r.Context(), reset.RequestInput{
		Email: req.Email,
		Proof: req.RecaptchaToken,
		IP:    ip,
	})
	if err != nil {
		h.writeResetError(w, err, "Failed to process password reset request")
		return
	}

	writeJSON(w, http.StatusOK, messageResponse{Message: reset.GenericRequestMessage})
}

func (h *Handler) handleVerifyToken(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var req verifyTokenRequest
	if err := decodeJSON(w, r, h.cfg.MaxBodyBytes, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if strings.TrimSpace(req.Token) == "" {
		writeError(w, http.StatusBadRequest, "Token is required")
		return
	}

	email, err := h.resets.VerifyToken(r.Context(), req.Token)
	if err != nil {
		if errors.Is(err, reset.ErrInvalidToken) {
			writeError(w, http.StatusBadRequest, "Invalid or expired reset token")
			return
		}
		h.log.Error("auth.reset.verify_token.fail", "err", err)
		writeError(w, http.StatusInternalServerError, "Failed to verify token")
		return
	}

	writeJSON(w, http.StatusOK, verifyTokenResponse{Valid: true, Email: email})
}

func (h *Handler) handleResetComplete(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	now := time.Now().UTC()
	ip := clientIP(r, h.cfg.TrustProxy)
	if ok, retryAfter := h.limits.reset.Allow(ipKey(ip), now); !ok {
		writeRateLimited(w, retryAfter, "Too many password reset attempts, please try again later.")
		return
	}

	var req resetCompleteRequest
	if err := decodeJSON(w, r, h.cfg.MaxBodyBytes, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if strings.TrimSpace(req.Token) == "" || req.NewPassword == "" {
		writeError(w, http.StatusBadRequest, "Token and new password are required")
		return
	}
	if strings.TrimSpace(req.RecaptchaToken) == "" {
		writeError(w, http.StatusBadRequest, "reCAPTCHA verification is required")
		return
	}

	err := h.resets.Complete(r.Context(), reset.CompleteInput{
		Token:       req.Token,
		NewPassword: req.NewPassword,
		Proof:       req.RecaptchaToken,
		IP:          ip,
	})
	if err != nil {
		if errors.Is(err, reset.ErrInvalidToken) {
			writeError(w, http.StatusBadRequest, "Invalid or expired reset token")
			return
		}
		h.writeResetError(w, err, "Failed to reset password")
		return
	}

	writeJSON(w, http.StatusOK, messageResponse{Message: "Password reset successful"})
}

// writeResetError maps reset service errors onto the wire. fallback covers
// anything unexpected.
func (h *Handler) writeResetError(w http.ResponseWriter, err error, fallback string) {
	var ve reset.VerificationError
	switch {
	case errors.As(err, &ve):
		writeJSON(w, http.StatusBadRequest, errorResponse{
			Error:   "reCAPTCHA verification failed",
			Details: ve.Codes,
		})
	case errors.Is(err, reset.ErrVerificationFailed):
		writeError(w, http.StatusBadRequest, "reCAPTCHA verification failed")
	case errors.Is(err, reset.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, strings.TrimPrefix(err.Error(), reset.ErrInvalidInput.Error()+": "))
	default:
		h.log.Error("auth.reset.fail", "err", err)
		writeError(w, http.StatusInternalServerError, fallback)
	}
}

// ---- helpers ----

func ipKey(ip net.IP) string {
	if ip == nil {
		return "unknown"
	}
	return ip.String()
}

func clientIP(r *http.Request, trustProxy bool) net.IP {
	if trustProxy {
		if ip := parseForwardedIP(r.Header.Get("X-Forwarded-For")); ip != nil {
			return ip
		}
		if ip := net.ParseIP(strings.TrimSpace(r.Header.Get("X-Real-IP"))); ip != nil {
			return ip
		}
	}
	host, _, err := net.SplitHostPort(strings.TrimSpace(r.RemoteAddr))
	if err == nil {
		if ip := net.ParseIP(host); ip != nil {
			return ip
		}
	}
	return nil
}

func parseForwardedIP(raw string) net.IP {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	for _, p := range parts {
		if ip := net.ParseIP(strings.TrimSpace(p)); ip != nil {
			return ip
		}
	}
	return nil
}
