package notifier

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net/smtp"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
)

// EmailConfig configures the Gmail XOAUTH2 notifier. The refresh token is
// obtained out of band (one-time consent flow); this code only exchanges
// it for access tokens.
type EmailConfig struct {
	To           string
	From         string
	SMTPHost     string
	SMTPPort     int
	ClientID     string
	ClientSecret string
	RefreshToken string
	TokenURL     string
}

// EmailNotifier sends the run report by email over SMTP with XOAUTH2.
type EmailNotifier struct {
	cfg    EmailConfig
	tokens oauth2.TokenSource
}

// NewEmailNotifier builds a notifier whose token source refreshes and
// caches access tokens from the configured refresh token.
func NewEmailNotifier(cfg EmailConfig) *EmailNotifier {
	oc := &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		Endpoint:     oauth2.Endpoint{TokenURL: cfg.TokenURL},
		Scopes:       []string{"https://mail.google.com/"},
	}
	ts := oc.TokenSource(context.Background(), &oauth2.Token{RefreshToken: cfg.RefreshToken})
	return &EmailNotifier{cfg: cfg, tokens: oauth2.ReuseTokenSource(nil, ts)}
}

// Notify formats the payload and sends it with bounded retry.
func (n *EmailNotifier) Notify(ctx context.Context, p *Payload) error {
	return n.sendWithRetry(ctx, FormatSubject(p), FormatBody(p), 3)
}

// sendWithRetry sends with exponential backoff between attempts.
func (n *EmailNotifier) sendWithRetry(ctx context.Context, subject, body string, maxRetries int) error {
	var lastErr error
	for i := 0; i <= maxRetries; i++ {
		if err := n.send(subject, body); err != nil {
			lastErr = err
			backoff := time.Duration(1<<uint(i)) * time.Second
			log.Warn().Err(err).Int("attempt", i+1).Dur("backoff", backoff).Msg("email send failed, retrying")
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
				continue
			}
		}
		return nil
	}
	return fmt.Errorf("all %d attempts exhausted: %w", maxRetries+1, lastErr)
}

func (n *EmailNotifier) send(subject, body string) error {
	tok, err := n.tokens.Token()
	if err != nil {
		return fmt.Errorf("refresh access token: %w", err)
	}

	addr := fmt.Sprintf("%s:%d", n.cfg.SMTPHost, n.cfg.SMTPPort)
	c, err := smtp.Dial(addr)
	if err != nil {
		return fmt.Errorf("dial smtp: %w", err)
	}
	defer c.Close()

	if err := c.Hello("localhost"); err != nil {
		return fmt.Errorf("ehlo: %w", err)
	}
	if ok, _ := c.Extension("STARTTLS"); ok {
		if err := c.StartTLS(&tls.Config{ServerName: n.cfg.SMTPHost}); err != nil {
			return fmt.Errorf("starttls: %w", err)
		}
	}
	if err := c.Auth(xoauth2Auth{user: n.cfg.From, token: tok.AccessToken}); err != nil {
		return fmt.Errorf("xoauth2 auth: %w", err)
	}
	if err := c.Mail(n.cfg.From); err != nil {
		return fmt.Errorf("mail from: %w", err)
	}
	if err := c.Rcpt(n.cfg.To); err != nil {
		return fmt.Errorf("rcpt to: %w", err)
	}
	w, err := c.Data()
	if err != nil {
		return fmt.Errorf("data: %w", err)
	}

	msg := strings.Join([]string{
		"From: " + n.cfg.From,
		"To: " + n.cfg.To,
		"Subject: " + subject,
		"MIME-Version: 1.0",
		"Content-Type: text/plain; charset=utf-8",
		"",
		body,
	}, "\r\n")
	if _, err := w.Write([]byte(msg)); err != nil {
		return fmt.Errorf("write message: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("close message: %w", err)
	}
	return c.Quit()
}

// xoauth2Auth implements the SASL XOAUTH2 mechanism for smtp.Client.Auth.
type xoauth2Auth struct {
	user  string
	token string
}

func (a xoauth2Auth) Start(*smtp.ServerInfo) (string, []byte, error) {
	resp := fmt.Sprintf("user=%s\x01auth=Bearer %s\x01\x01", a.user, a.token)
	return "XOAUTH2", []byte(resp), nil
}

func (a xoauth2Auth) Next(fromServer []byte, more bool) ([]byte, error) {
	if more {
		// The server sends a base64 error blob on failure; an empty
		// response makes it terminate the exchange with the real error.
		return []byte{}, nil
	}
	return nil, nil
}

var _ smtp.Auth = xoauth2Auth{}

// ErrNotConfigured is returned by test-email when notification is disabled.
var ErrNotConfigured = errors.New("email notification is not configured")
