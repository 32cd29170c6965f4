package notifications

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"beanstalker/config"
)

// Notification is the payload handed to the push transport. Delivery is
// best-effort everywhere in this codebase; callers log failures and move on.
type Notification struct {
	Title string         `json:"title"`
	Body  string         `json:"body"`
	Data  map[string]any `json:"data,omitempty"`
}

type Sender interface {
	Send(ctx context.Context, userID uint, n Notification) error
}

// PushSender posts notifications to the push gateway that owns the
// platform-specific delivery (APNs/FCM massaging happens there, not here).
type PushSender struct {
	cfg    config.PushConfig
	client *http.Client
}

func NewPushSender(cfg config.PushConfig) *PushSender {
	return &PushSender{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}
}

func (p *PushSender) Send(ctx context.Context, userID uint, n Notification) error {
	payload := map[string]any{
		"user_id":      userID,
		"notification": n,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.cfg.GatewayURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("push gateway request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("push gateway returned status %d", resp.StatusCode)
	}
	return nil
}
