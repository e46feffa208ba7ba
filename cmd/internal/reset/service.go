package reset

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strings"
	"time"
	"unicode/utf8"

	"rnbw/cmd/identity"
	"rnbw/cmd/security/token"
)

// GenericRequestMessage is the uniform response to every reset request,
// whether or not the account exists. Byte-identical in both branches.
const GenericRequestMessage = "If an account exists with this email, a password reset link has been sent."

// CaptchaVerifier is the human-verification oracle consumed by the flows.
// Any non-nil error is a hard stop for the request.
type CaptchaVerifier interface {
	Verify(ctx context.Context, proof string, ip net.IP) error
}

// NoopCaptchaVerifier accepts every proof. Default for tests and dev.
type NoopCaptchaVerifier struct{}

// Verify is a no-op implementation.
func (NoopCaptchaVerifier) Verify(_ context.Context, _ string, _ net.IP) error { return nil }

// Sender is the notification channel. Delivery failure is always absorbed by
// the Service (logged, never propagated) to preserve the generic response.
type Sender interface {
	SendPasswordResetMessage(ctx context.Context, recipientEmail, tokenValue, displayName string) error
}

// NoopSender drops messages. Default for tests and dev.
type NoopSender struct{}

// SendPasswordResetMessage is a no-op implementation.
func (NoopSender) SendPasswordResetMessage(_ context.Context, _, _, _ string) error { return nil }

// Service orchestrates the reset flows. It holds no durable state of its own;
// everything goes through the token store and the credential manager.
type Service struct {
	cfg     Config
	users   *identity.Manager
	tokens  Store
	captcha CaptchaVerifier
	sender  Sender
	log     *slog.Logger

	// sleep is swapped out in tests to keep the enumeration-delay branch fast.
	sleep func(ctx context.Context, d time.Duration)
}

// ServiceOption configures optional Service dependencies.
type ServiceOption func(*Service)

// WithCaptchaVerifier overrides the default no-op verifier.
func WithCaptchaVerifier(v CaptchaVerifier) ServiceOption {
	return func(s *Service) {
		if s == nil || v == nil {
			return
		}
		s.captcha = v
	}
}

// WithSender overrides the default no-op sender.
func WithSender(snd Sender) ServiceOption {
	return func(s *Service) {
		if s == nil || snd == nil {
			return
		}
		s.sender = snd
	}
}

// NewService constructs the orchestrator. cfg is immutable for the process
// lifetime; TokenTTL is clamped defensively even if the caller skipped
// LoadConfigFromEnv.
func NewService(cfg Config, users *identity.Manager, tokens Store, log *slog.Logger, opts ...ServiceOption) (*Service, error) {
	if users == nil {
		return nil, fmt.Errorf("reset: %w: nil credential manager", ErrInvalidInput)
	}
	if tokens == nil {
		return nil, fmt.Errorf("reset: %w: nil token store", ErrInvalidInput)
	}
	if log == nil {
		log = slog.Default()
	}
	cfg.TokenTTL = ClampTTL(cfg.TokenTTL)
	if cfg.MinPasswordLen <= 0 {
		cfg.MinPasswordLen = 6
	}
	if cfg.ExternalTimeout <= 0 {
		cfg.ExternalTimeout = DefaultExternalTimeout
	}

	s := &Service{
		cfg:     cfg,
		users:   users,
		tokens:  tokens,
		captcha: NoopCaptchaVerifier{},
		sender:  NoopSender{},
		log:     log,
		sleep:   sleepCtx,
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(s)
	}
	return s, nil
}

// RequestInput carries one reset request.
type RequestInput struct {
	Email string
	Proof string
	IP    net.IP
}

// Request runs the request flow: Received -> Verified -> Issued|Suppressed.
//
// A nil return means the caller must answer with GenericRequestMessage — the
// response is identical whether a token was issued, suppressed for an unknown
// account, or the email could not be delivered.
func (s *Service) Request(ctx context.Context, in RequestInput) error {
	email := identity.NormalizeEmail(in.Email)
	if email == "" {
		return fmt.Errorf("%w: email is required", ErrInvalidInput)
	}
	if strings.TrimSpace(in.Proof) == "" {
		return fmt.Errorf("%w: verification proof is required", ErrInvalidInput)
	}

	if err := s.verifyProof(ctx, in.Proof, in.IP); err != nil {
		return err
	}

	user, exists, err := s.users.GetUser(ctx, email)
	if err != nil {
		return err
	}

	if !exists {
		// Simulate the cost of the issuance path so response latency does not
		// betray account existence.
		s.sleep(ctx, s.cfg.EnumDelay)
		s.log.Info("reset.request.suppressed")
		return nil
	}

	now := time.Now().UTC()
	value, err := token.New()
	if err != nil {
		return err
	}
	rec := Token{
		Email:     email,
		Token:     value,
		CreatedAt: now,
		ExpiresAt: now.Add(s.cfg.TokenTTL),
	}

	// Issue supersedes prior live tokens atomically; a concurrent completion
	// holding an older token loses the race cleanly.
	if err := s.tokens.Issue(ctx, rec); err != nil {
		return err
	}

	s.dispatch(ctx, user, value)
	s.log.Info("reset.request.issued", "expires_at", rec.ExpiresAt)
	return nil
}

// VerifyToken is the read-only check used to decide whether to show a reset
// form. It does not consume the token.
func (s *Service) VerifyToken(ctx context.Context, tokenValue string) (string, error) {
	tokenValue = strings.TrimSpace(tokenValue)
	if tokenValue == "" {
		return "", fmt.Errorf("%w: token is required", ErrInvalidInput)
	}

	t, ok, err := s.tokens.FindValid(ctx, tokenValue, time.Now().UTC())
	if err != nil {
		return "", err
	}
	if !ok {
		return "", ErrInvalidToken
	}
	return t.Email, nil
}

// CompleteInput carries one reset completion.
type CompleteInput struct {
	Token       string
	NewPassword string
	Proof       string
	IP          net.IP
}

// Complete runs the completion flow: Received -> Verified -> TokenChecked -> Completed.
//
// If the password update fails the token stays unused so the legitimate user
// can retry with the same link.
func (s *Service) Complete(ctx context.Context, in CompleteInput) error {
	tokenValue := strings.TrimSpace(in.Token)
	if tokenValue == "" || in.NewPassword == "" {
		return fmt.Errorf("%w: token and new password are required", ErrInvalidInput)
	}
	if utf8.RuneCountInString(in.NewPassword) < s.cfg.MinPasswordLen {
		return fmt.Errorf("%w: password must be at least %d characters long", ErrInvalidInput, s.cfg.MinPasswordLen)
	}
	if strings.TrimSpace(in.Proof) == "" {
		return fmt.Errorf("%w: verification proof is required", ErrInvalidInput)
	}

	if err := s.verifyProof(ctx, in.Proof, in.IP); err != nil {
		return err
	}

	t, ok, err := s.tokens.FindValid(ctx, tokenValue, time.Now().UTC())
	if err != nil {
		return err
	}
	if !ok {
		return ErrInvalidToken
	}

	if err := s.users.SetPassword(ctx, t.Email, in.NewPassword); err != nil {
		// Token stays unused on purpose.
		s.log.Error("reset.complete.update.fail", "err", err)
		return fmt.Errorf("%w: %v", ErrUpdateFailed, err)
	}

	if err := s.tokens.MarkUsed(ctx, tokenValue); err != nil {
		// Password already changed; the live token is the remaining liability.
		s.log.Error("reset.complete.mark_used.fail", "err", err)
		return err
	}

	s.log.Info("reset.complete.ok")
	return nil
}

// RunSweeper purges expired tokens on an interval until ctx is done.
// Pure housekeeping: FindValid checks expiry on every lookup regardless.
func (s *Service) RunSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.tokens.PurgeExpired(ctx, time.Now().UTC()); err != nil {
				s.log.Error("reset.sweep.fail", "err", err)
			}
		}
	}
}

func (s *Service) verifyProof(ctx context.Context, proof string, ip net.IP) error {
	vctx, cancel := context.WithTimeout(ctx, s.cfg.ExternalTimeout)
	defer cancel()

	if err := s.captcha.Verify(vctx, proof, ip); err != nil {
		var ve VerificationError
		if errors.As(err, &ve) {
			return ve
		}
		return fmt.Errorf("%w: %v", ErrVerificationFailed, err)
	}
	return nil
}

// dispatch sends the reset message with a bounded timeout. Failure is logged
// and swallowed: the caller's response never depends on delivery.
func (s *Service) dispatch(ctx context.Context, user identity.User, tokenValue string) {
	sctx, cancel := context.WithTimeout(ctx, s.cfg.ExternalTimeout)
	defer cancel()

	if err := s.sender.SendPasswordResetMessage(sctx, user.Email, tokenValue, user.Username); err != nil {
		s.log.Error("reset.request.send.fail", "err", err)
	}
}

func sleepCtx(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	select {
	case <-ctx.Done():
	case <-time.After(d):
	}
}
