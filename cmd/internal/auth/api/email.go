package api

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/smtp"
	"net/url"
	"strings"
	"time"
)

// SMTPConfig controls reset-email delivery.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string

	// FrontendURL is the base for the reset link, e.g. https://app.example.com.
	FrontendURL string

	// Timeout bounds the dial; the transaction itself is additionally bounded
	// by the caller's context through the connection deadline.
	Timeout time.Duration
}

// SMTPSender implements reset.Sender over plain SMTP with opportunistic
// STARTTLS. One connection per message; the volume here does not justify a
// pool.
type SMTPSender struct {
	cfg SMTPConfig
}

// NewSMTPSender constructs the sender.
func NewSMTPSender(cfg SMTPConfig) (*SMTPSender, error) {
	if strings.TrimSpace(cfg.Host) == "" {
		return nil, fmt.Errorf("smtp: host is required")
	}
	if cfg.Port <= 0 {
		cfg.Port = 587
	}
	if strings.TrimSpace(cfg.From) == "" {
		return nil, fmt.Errorf("smtp: from address is required")
	}
	if strings.TrimSpace(cfg.FrontendURL) == "" {
		cfg.FrontendURL = "http://localhost:3000"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &SMTPSender{cfg: cfg}, nil
}

// ResetURL builds the link embedded in the message.
func (s *SMTPSender) ResetURL(tokenValue string) string {
	base := strings.TrimRight(s.cfg.FrontendURL, "/")
	return base + "/reset-password?token=" + url.QueryEscape(tokenValue)
}

// SendPasswordResetMessage delivers the reset link to recipientEmail.
func (s *SMTPSender) SendPasswordResetMessage(ctx context.Context, recipientEmail, tokenValue, displayName string) error {
	if strings.TrimSpace(displayName) == "" {
		displayName = "User"
	}
	resetURL := s.ResetURL(tokenValue)

	body := fmt.Sprintf(`Hello %s,

We received a request to reset your password.

Click this link to reset your password:
%s

This link will expire soon for security reasons.

If you didn't request a password reset, you can safely ignore this email.
`, displayName, resetURL)

	msg := strings.Join([]string{
		"From: " + s.cfg.From,
		"To: " + recipientEmail,
		"Subject: Password Reset Request",
		"MIME-Version: 1.0",
		"Content-Type: text/plain; charset=utf-8",
		"",
		body,
	}, "\r\n")

	return s.send(ctx, recipientEmail, []byte(msg))
}

func (s *SMTPSender) send(ctx context.Context, recipient string, msg []byte) error {
	addr := net.JoinHostPort(s.cfg.Host, fmt.Sprintf("%d", s.cfg.Port))

	dialer := net.Dialer{Timeout: s.cfg.Timeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("smtp: dial %s: %w", addr, err)
	}

	// The whole transaction shares one deadline; the caller's context decides it.
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	} else {
		_ = conn.SetDeadline(time.Now().Add(s.cfg.Timeout))
	}

	client, err := smtp.NewClient(conn, s.cfg.Host)
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("smtp: handshake: %w", err)
	}
	defer func() { _ = client.Close() }()

	if ok, _ := client.Extension("STARTTLS"); ok {
		if err := client.StartTLS(&tls.Config{ServerName: s.cfg.Host}); err != nil {
			return fmt.Errorf("smtp: starttls: %w", err)
		}
	}

	if s.cfg.Username != "" {
		auth := smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)
		if err := client.Auth(auth); err != nil {
			return fmt.Errorf("smtp: auth: %w", err)
		}
	}

	if err := client.Mail(s.cfg.From); err != nil {
		return fmt.Errorf("smtp: mail from: %w", err)
	}
	if err := client.Rcpt(recipient); err != nil {
		return fmt.Errorf("smtp: rcpt to: %w", err)
	}

	wc, err := client.Data()
	if err != nil {
		return fmt.Errorf("smtp: data: %w", err)
	}
	if _, err := wc.Write(msg); err != nil {
		_ = wc.Close()
		return fmt.Errorf("smtp: write body: %w", err)
	}
	if err := wc.Close(); err != nil {
		return fmt.Errorf("smtp: close body: %w", err)
	}

	return client.Quit()
}
