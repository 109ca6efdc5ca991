// Package notify delivers turn alerts to a Discord-compatible webhook.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/awbwtools/turn-sentinel/internal/checker"
	"github.com/awbwtools/turn-sentinel/internal/metrics"
)

// Config controls message formatting and delivery.
type Config struct {
	WebhookURL string
	BaseURL    string
	PageURL    string
	MaxLinks   int
	Timeout    time.Duration
}

// Webhook posts a simple {content} JSON payload to a fixed URL. Any 2xx
// response counts as delivered; everything else is checker.ErrDeliveryFailed.
type Webhook struct {
	cfg    Config
	client *http.Client
	logger *zap.Logger
}

// NewWebhook constructs a Webhook notifier.
func NewWebhook(cfg Config, logger *zap.Logger) (*Webhook, error) {
	if cfg.WebhookURL == "" {
		return nil, fmt.Errorf("webhook URL is required")
	}
	if cfg.MaxLinks <= 0 {
		cfg.MaxLinks = 5
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	metrics.Init()
	return &Webhook{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		logger: logger,
	}, nil
}

// Notify formats and delivers the alert for the current snapshot.
func (w *Webhook) Notify(ctx context.Context, snap checker.Snapshot) error {
	payload, err := json.Marshal(map[string]string{
		"content": FormatMessage(snap, w.cfg.BaseURL, w.cfg.PageURL, w.cfg.MaxLinks),
	})
	if err != nil {
		return fmt.Errorf("%w: encode payload: %v", checker.ErrDeliveryFailed, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.cfg.WebhookURL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("%w: build request: %v", checker.ErrDeliveryFailed, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		metrics.ObserveNotification("failed")
		return fmt.Errorf("%w: %v", checker.ErrDeliveryFailed, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		metrics.ObserveNotification("rejected")
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%w: webhook returned %d: %s", checker.ErrDeliveryFailed, resp.StatusCode, strings.TrimSpace(string(detail)))
	}

	metrics.ObserveNotification("delivered")
	w.logger.Info("Notification delivered", zap.Int("count", snap.Count))
	return nil
}

// FormatMessage renders the human-readable alert: the pending count, a link
// to the full list, up to maxLinks individual game links, and a "+N more"
// suffix for the rest.
func FormatMessage(snap checker.Snapshot, baseURL, pageURL string, maxLinks int) string {
	if snap.Count == 0 && len(snap.GameIDs) == 0 {
		return "✅ **AWBW** → No pending turns"
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "\U0001F3AE **AWBW (%d)** → [All](%s)", snap.Count, pageURL)
	for i, id := range snap.GameIDs {
		if i == maxLinks {
			break
		}
		fmt.Fprintf(&sb, " • [%s](%sgame.php?games_id=%s)", id, baseURL, id)
	}
	if extra := len(snap.GameIDs) - maxLinks; extra > 0 {
		fmt.Fprintf(&sb, " • +%d more", extra)
	}
	return sb.String()
}
