package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/LaravelPlus/commander/internal/logging"
	"github.com/LaravelPlus/commander/pkg/types"
)

const (
	webhookInitialInterval = 500 * time.Millisecond
	webhookMaxInterval     = 10 * time.Second
)

// Webhook POSTs failures as JSON. 5xx responses and transport errors are
// retried with exponential backoff; 4xx responses are not.
type Webhook struct {
	url        string
	headers    map[string]string
	client     *http.Client
	maxRetries uint64
	interval   time.Duration
}

// NewWebhook creates a webhook channel from config.
func NewWebhook(cfg types.WebhookConfig) *Webhook {
	timeout := time.Duration(cfg.Timeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	retries := cfg.MaxRetries
	if retries < 0 {
		retries = 0
	}
	return &Webhook{
		url:        cfg.URL,
		headers:    cfg.Headers,
		client:     &http.Client{Timeout: timeout},
		maxRetries: uint64(retries),
		interval:   webhookInitialInterval,
	}
}

func (w *Webhook) Name() string { return ChannelWebhook }

func (w *Webhook) Notify(ctx context.Context, f Failure) error {
	body, err := json.Marshal(f)
	if err != nil {
		return fmt.Errorf("encode webhook payload: %w", err)
	}

	attempt := 0
	op := func() error {
		attempt++
		return w.post(ctx, body)
	}
	notify := func(err error, next time.Duration) {
		logging.Debug().Err(err).Int("attempt", attempt).Dur("retry_in", next).Msg("webhook delivery failed")
	}
	return backoff.RetryNotify(op, w.backoff(ctx), notify)
}

func (w *Webhook) backoff(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = w.interval
	b.MaxInterval = webhookMaxInterval
	b.MaxElapsedTime = 0
	b.RandomizationFactor = 0.5
	b.Reset()
	return backoff.WithContext(backoff.WithMaxRetries(b, w.maxRetries), ctx)
}

func (w *Webhook) post(ctx context.Context, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return backoff.Permanent(err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "commander-webhook")
	for k, v := range w.headers {
		req.Header.Set(k, v)
	}

	resp, err := w.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	switch {
	case resp.StatusCode >= 500:
		return fmt.Errorf("webhook returned %s", resp.Status)
	case resp.StatusCode >= 400:
		return backoff.Permanent(fmt.Errorf("webhook returned %s", resp.Status))
	}
	return nil
}
