package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"rnbw/cmd/internal/reset"
)

// DefaultRecaptchaEndpoint is Google's siteverify API.
const DefaultRecaptchaEndpoint = "https://www.google.com/recaptcha/api/siteverify"

// ErrRecaptchaNotConfigured is returned when the secret is missing outside of
// development. A misconfigured production deployment must fail closed.
var ErrRecaptchaNotConfigured = errors.New("recaptcha secret not configured")

// RecaptchaConfig controls the verifier.
type RecaptchaConfig struct {
	// Secret is the server-side key. When empty, verification is bypassed in
	// development and rejected everywhere else.
	Secret string

	// Environment gates the bypass; only "development" qualifies.
	Environment string

	// Endpoint defaults to DefaultRecaptchaEndpoint. Tests point it elsewhere.
	Endpoint string

	// Timeout bounds the HTTP call.
	Timeout time.Duration
}

// RecaptchaVerifier implements reset.CaptchaVerifier against the Google
// siteverify API.
type RecaptchaVerifier struct {
	cfg    RecaptchaConfig
	client *http.Client
}

// NewRecaptchaVerifier constructs the verifier.
func NewRecaptchaVerifier(cfg RecaptchaConfig) *RecaptchaVerifier {
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultRecaptchaEndpoint
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	return &RecaptchaVerifier{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}
}

type siteverifyResponse struct {
	Success    bool     `json:"success"`
	ErrorCodes []string `json:"error-codes"`
}

// Verify checks proof with the oracle. A rejected proof returns
// reset.VerificationError carrying the oracle's error codes.
func (v *RecaptchaVerifier) Verify(ctx context.Context, proof string, ip net.IP) error {
	if strings.TrimSpace(v.cfg.Secret) == "" {
		if strings.EqualFold(strings.TrimSpace(v.cfg.Environment), "development") {
			return nil
		}
		return ErrRecaptchaNotConfigured
	}

	form := url.Values{}
	form.Set("secret", v.cfg.Secret)
	form.Set("response", proof)
	if ip != nil {
		form.Set("remoteip", ip.String())
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.cfg.Endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("recaptcha: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := v.client.Do(req)
	if err != nil {
		return fmt.Errorf("recaptcha: verify call: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("recaptcha: verify call: unexpected status %d", resp.StatusCode)
	}

	var body siteverifyResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return fmt.Errorf("recaptcha: decode response: %w", err)
	}

	if !body.Success {
		codes := body.ErrorCodes
		if len(codes) == 0 {
			codes = []string{"verification-failed"}
		}
		return reset.VerificationError{Codes: codes}
	}
	return nil
}
