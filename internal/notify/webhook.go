package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/spec-kit/ticketflow/internal/domain"
)

// Webhook posts each notification as JSON to a configured URL.
type Webhook struct {
	url    string
	client *http.Client
}

// NewWebhook returns nil when url is empty.
func NewWebhook(url string, timeout time.Duration) *Webhook {
	if url == "" {
		return nil
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Webhook{url: url, client: &http.Client{Timeout: timeout}}
}

type webhookPayload struct {
	ID          string    `json:"id"`
	RecipientID string    `json:"recipient_id"`
	Type        string    `json:"type"`
	TicketID    string    `json:"ticket_id"`
	Message     string    `json:"message"`
	CreatedAt   time.Time `json:"created_at"`
}

// Deliver implements Deliverer. Non-2xx responses are failures.
func (w *Webhook) Deliver(ctx context.Context, n *domain.Notification) error {
	body, err := json.Marshal(webhookPayload{
		ID:          n.ID,
		RecipientID: n.RecipientID,
		Type:        string(n.Type),
		TicketID:    n.TicketID,
		Message:     n.Message,
		CreatedAt:   n.CreatedAt,
	})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := w.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook responded %d", resp.StatusCode)
	}
	return nil
}
