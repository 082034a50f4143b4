package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"storecheckout/internal/domain"
)

type remoteRequest struct {
	OrderID       string            `json:"order_id"`
	TotalCents    int64             `json:"total_cents"`
	Currency      string            `json:"currency"`
	PaymentMethod string            `json:"payment_method"`
	PaymentData   map[string]string `json:"payment_data"`
}

type remoteResponse struct {
	Status          string `json:"status"`
	RedirectURL     string `json:"redirect_url"`
	Message         string `json:"message"`
	MessageUserSafe bool   `json:"message_user_safe"`
}

// RemoteGateway forwards payments to an external payment service over HTTP.
type RemoteGateway struct {
	id     string
	url    string
	client *http.Client
}

func NewRemoteGateway(id, url string, timeout time.Duration) *RemoteGateway {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &RemoteGateway{id: id, url: url, client: &http.Client{Timeout: timeout}}
}

func (g *RemoteGateway) ID() string { return g.id }
func (g *RemoteGateway) IsEnabled() bool { return g.url != "" }

func (g *RemoteGateway) ProcessPayment(ctx context.Context, pc domain.PaymentContext) (domain.PaymentResult, error) {
	body, err := json.Marshal(remoteRequest{
		OrderID:       pc.Order.ID,
		TotalCents:    pc.Order.TotalCents,
		Currency:      pc.Order.Currency,
		PaymentMethod: pc.PaymentMethodID,
		PaymentData:   pc.PaymentData,
	})
	if err != nil {
		return domain.PaymentResult{}, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.url, bytes.NewReader(body))
	if err != nil {
		return domain.PaymentResult{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	key := pc.IdempotencyKey
	if key == "" {
		key = pc.Order.ID
	}
	req.Header.Set("Idempotency-Key", key)

	resp, err := g.client.Do(req)
	if err != nil {
		return domain.PaymentResult{}, fmt.Errorf("payment service: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return domain.PaymentResult{}, fmt.Errorf("read payment response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return domain.PaymentResult{}, fmt.Errorf("payment service returned %d: %s", resp.StatusCode, bytes.TrimSpace(raw))
	}

	var out remoteResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return domain.PaymentResult{}, fmt.Errorf("decode payment response: %w", err)
	}
	result := domain.PaymentResult{
		Status:      domain.PaymentStatus(out.Status),
		RedirectURL: out.RedirectURL,
	}
	if out.MessageUserSafe {
		result.ErrorMessage = out.Message
	}
	return result, nil
}
