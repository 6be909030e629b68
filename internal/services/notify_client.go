package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/spark-fund/backend/internal/events"
	"go.uber.org/zap"
)

// NotifyClient forwards campaign events to an external webhook.
type NotifyClient struct {
	webhookURL string
	httpClient *http.Client
	log        *zap.Logger
}

func NewNotifyClient(webhookURL string, log *zap.Logger) *NotifyClient {
	return &NotifyClient{
		webhookURL: strings.TrimSpace(webhookURL),
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
		log: log,
	}
}

func (c *NotifyClient) Enabled() bool {
	return c.webhookURL != ""
}

func (c *NotifyClient) Send(ctx context.Context, event events.Event) error {
	body, err := json.Marshal(event)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.webhookURL, strings.NewReader(string(body)))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Event-Type", event.Type)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("notify webhook unavailable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("notify webhook returned %d: %s", resp.StatusCode, string(b))
	}
	return nil
}
