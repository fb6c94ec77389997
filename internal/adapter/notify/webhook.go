package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"account-transfer-service/internal/core/domain"

	"github.com/rs/zerolog"
)

const (
	// SignatureHeader carries the hex HMAC-SHA256 of the request body.
	SignatureHeader = "X-Signature"

	defaultRetryInterval = 250 * time.Millisecond
)

// HTTPClient interface for testability.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// WebhookPayload is the JSON body posted to the notification gateway.
type WebhookPayload struct {
	EventType string `json:"event_type"`
	Address   string `json:"address"`
	Timestamp int64  `json:"timestamp"`
}

// WebhookOptions tunes delivery.
type WebhookOptions struct {
	Timeout       time.Duration // per request; 0 leaves the client's own timeout
	MaxRetries    int           // extra attempts after the first
	RetryInterval time.Duration // linear: RetryInterval × retry number
	Signer        *Signer       // nil sends unsigned requests
}

// WebhookNotifier posts notifications to an operator-configured gateway.
type WebhookNotifier struct {
	url        string
	httpClient HTTPClient
	opts       WebhookOptions
	log        zerolog.Logger
	now        func() time.Time
}

// NewWebhookNotifier creates a notifier for url. A nil httpClient uses
// http.DefaultClient.
func NewWebhookNotifier(url string, httpClient HTTPClient, opts WebhookOptions, log zerolog.Logger) *WebhookNotifier {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if opts.RetryInterval <= 0 {
		opts.RetryInterval = defaultRetryInterval
	}
	if opts.MaxRetries < 0 {
		opts.MaxRetries = 0
	}
	return &WebhookNotifier{
		url:        url,
		httpClient: httpClient,
		opts:       opts,
		log:        log,
		now:        time.Now,
	}
}

func (n *WebhookNotifier) NotifyFundsLow(ctx context.Context, address string) error {
	return n.deliver(ctx, domain.NotificationFundsLow, address)
}

func (n *WebhookNotifier) NotifyApproachingPayInLimit(ctx context.Context, address string) error {
	return n.deliver(ctx, domain.NotificationApproachingPayInLimit, address)
}

// deliver posts the payload, retrying transport errors and non-2xx answers.
func (n *WebhookNotifier) deliver(ctx context.Context, kind domain.NotificationKind, address string) error {
	body, err := json.Marshal(WebhookPayload{
		EventType: string(kind),
		Address:   address,
		Timestamp: n.now().Unix(),
	})
	if err != nil {
		return fmt.Errorf("webhook: marshal payload: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt <= n.opts.MaxRetries; attempt++ {
		if attempt > 0 {
			if err := wait(ctx, n.opts.RetryInterval*time.Duration(attempt)); err != nil {
				return fmt.Errorf("webhook: %w (last error: %v)", err, lastErr)
			}
		}

		lastErr = n.post(ctx, body)
		if lastErr == nil {
			n.log.Debug().Str("kind", string(kind)).Int("attempt", attempt+1).Msg("webhook: delivered")
			return nil
		}
		n.log.Warn().Err(lastErr).Str("kind", string(kind)).Int("attempt", attempt+1).Msg("webhook: delivery failed")
	}

	return fmt.Errorf("webhook: %d attempts failed: %w", n.opts.MaxRetries+1, lastErr)
}

func (n *WebhookNotifier) post(ctx context.Context, body []byte) error {
	if n.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, n.opts.Timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if n.opts.Signer != nil {
		req.Header.Set(SignatureHeader, n.opts.Signer.Sign(body))
	}

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return nil
}

func wait(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
