// Package payment implements the relay that moves funds from a buyer to an
// organizer during a purchase.
package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// HTTPRelay settles transfers against an external payment service. The
// engine treats any error here as a hard abort of the enclosing purchase.
type HTTPRelay struct {
	baseURL string
	token   string
	client  *http.Client
}

func NewHTTPRelay(baseURL, token string) *HTTPRelay {
	return &HTTPRelay{
		baseURL: baseURL,
		token:   token,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

type transferRequest struct {
	From      string `json:"from"`
	To        string `json:"to"`
	Amount    int64  `json:"amount"`
	Reference string `json:"reference"`
}

type transferResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

func (r *HTTPRelay) Transfer(ctx context.Context, from, to string, amount int64) error {
	payload, err := json.Marshal(transferRequest{
		From:      from,
		To:        to,
		Amount:    amount,
		Reference: uuid.NewString(),
	})
	if err != nil {
		return fmt.Errorf("encode transfer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+"/transfers", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build transfer request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if r.token != "" {
		req.Header.Set("Authorization", "Bearer "+r.token)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return fmt.Errorf("transfer request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("read transfer response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("transfer rejected: status %d", resp.StatusCode)
	}

	var tr transferResponse
	if err := json.Unmarshal(body, &tr); err != nil {
		return fmt.Errorf("decode transfer response: %w", err)
	}
	if tr.Status != "success" {
		return fmt.Errorf("transfer failed: %s", tr.Message)
	}
	return nil
}

// StaticRelay always answers the same way. With a nil error it approves every
// transfer, which is what local development and most tests want.
type StaticRelay struct {
	Err error
}

func NewStaticRelay() *StaticRelay {
	return &StaticRelay{}
}

func (r *StaticRelay) Transfer(ctx context.Context, from, to string, amount int64) error {
	return r.Err
}
