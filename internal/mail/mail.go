// ABOUTME: Outbound delivery of login challenge codes via the SendGrid v3 API
// ABOUTME: Falls back to a debug sender that logs codes when no API key is set

package mail

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// defaultBaseURL is the SendGrid API endpoint
const defaultBaseURL = "https://api.sendgrid.com"

// Sender delivers a challenge code to a user out-of-band
type Sender interface {
	SendChallengeCode(ctx context.Context, email, code string) error
}

// NewSender returns a SendGrid sender when an API key is configured and
// the debug sender otherwise. Without a key the API still works, but
// codes are only visible in the server log.
func NewSender(apiKey, fromAddress string, logger *slog.Logger) Sender {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "mail")

	if apiKey == "" {
		logger.Warn("no sendgrid api key configured, login codes will be logged instead of emailed")
		return &DebugSender{logger: logger}
	}
	return NewSendGridSender(apiKey, fromAddress)
}

// DebugSender logs challenge codes instead of delivering them
type DebugSender struct {
	logger *slog.Logger
}

// SendChallengeCode logs the code for the given email address
func (d *DebugSender) SendChallengeCode(ctx context.Context, email, code string) error {
	d.logger.Info("login challenge code", "email", email, "code", code)
	return nil
}

// SendGridSender delivers challenge codes through the SendGrid v3 mail API
type SendGridSender struct {
	apiKey  string
	from    string
	baseURL string
	client  *http.Client
}

// NewSendGridSender creates a sender using the given API key and from address
func NewSendGridSender(apiKey, fromAddress string) *SendGridSender {
	return &SendGridSender{
		apiKey:  apiKey,
		from:    fromAddress,
		baseURL: defaultBaseURL,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

// sendRequest mirrors the SendGrid v3 /mail/send payload
type sendRequest struct {
	Personalizations []personalization `json:"personalizations"`
	From             emailAddress      `json:"from"`
	Subject          string            `json:"subject"`
	Content          []content         `json:"content"`
}

type personalization struct {
	To []emailAddress `json:"to"`
}

type emailAddress struct {
	Email string `json:"email"`
}

type content struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

// SendChallengeCode posts the login code to the SendGrid mail API
func (s *SendGridSender) SendChallengeCode(ctx context.Context, email, code string) error {
	payload := sendRequest{
		Personalizations: []personalization{{To: []emailAddress{{Email: email}}}},
		From:             emailAddress{Email: s.from},
		Subject:          "Login token for the modern backend API",
		Content: []content{{
			Type:  "text/plain",
			Value: fmt.Sprintf("The login token for the API is: %s", code),
		}},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encoding mail request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/v3/mail/send", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("building mail request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("sending mail: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("mail API returned %d: %s", resp.StatusCode, detail)
	}

	return nil
}
