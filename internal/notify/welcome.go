// Package notify dispatches best-effort side-channel notifications, currently
// the welcome email sent after a first sign-in. Dispatch happens outside the
// save/auth transaction: a failure here is logged and never propagates to the
// primary path.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/lexify-app/lexify-server/internal/logging"
	"github.com/sethvargo/go-retry"
)

// Mailer delivers a single welcome message.
type Mailer interface {
	SendWelcome(ctx context.Context, email, name string) error
}

// HTTPMailer posts messages to a Resend-compatible HTTP mail API.
type HTTPMailer struct {
	endpoint string
	apiKey   string
	from     string
	client   *http.Client
}

func NewHTTPMailer(endpoint, apiKey, from string) *HTTPMailer {
	return &HTTPMailer{
		endpoint: endpoint,
		apiKey:   apiKey,
		from:     from,
		client:   &http.Client{Timeout: 10 * time.Second},
	}
}

type mailRequest struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	Text    string   `json:"text"`
}

func (m *HTTPMailer) SendWelcome(ctx context.Context, email, name string) error {
	body, err := json.Marshal(mailRequest{
		From:    m.from,
		To:      []string{email},
		Subject: "Welcome to Lexify!",
		Text:    fmt.Sprintf("Hi %s, welcome to Lexify. Hover a subtitle word to start building your vocabulary.", name),
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+m.apiKey)

	resp, err := m.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("mail api returned status %d", resp.StatusCode)
	}
	return nil
}

// Dispatcher sends notifications asynchronously with bounded retries.
type Dispatcher struct {
	mailer  Mailer
	logger  logging.Logger
	timeout time.Duration
}

func NewDispatcher(mailer Mailer, logger logging.Logger) *Dispatcher {
	return &Dispatcher{
		mailer:  mailer,
		logger:  logger.With("module", "notify"),
		timeout: time.Minute,
	}
}

// WelcomeAsync dispatches a welcome email in the background. The returned
// channel closes when delivery finishes (used by tests and shutdown hooks);
// callers on the request path ignore it.
func (d *Dispatcher) WelcomeAsync(email, name string) <-chan struct{} {
	done := make(chan struct{})

	go func() {
		defer close(done)

		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		defer cancel()

		backoff := retry.WithMaxRetries(3, retry.NewExponential(time.Second))
		err := retry.Do(ctx, backoff, func(ctx context.Context) error {
			if err := d.mailer.SendWelcome(ctx, email, name); err != nil {
				return retry.RetryableError(err)
			}
			return nil
		})
		if err != nil {
			d.logger.Error(ctx, "welcome email delivery failed", "email", email, "error", err)
			return
		}
		d.logger.Info(ctx, "welcome email sent", "email", email)
	}()

	return done
}
