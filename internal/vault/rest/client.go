// Package rest implements the vault and token adapters against an external
// custody service speaking JSON over HTTP.
package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/shopspring/decimal"
)

type Client struct {
	host       string
	httpClient *http.Client
}

type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("vault API error (%d): %s", e.Status, e.Body)
}

func NewClient(httpClient *http.Client, host string) *Client {
	host = strings.TrimRight(host, "/")
	return &Client{
		host:       host,
		httpClient: httpClient,
	}
}

type amountRequest struct {
	Amount string `json:"amount"`
}

type transferRequest struct {
	From   string `json:"from,omitempty"`
	To     string `json:"to,omitempty"`
	Amount string `json:"amount"`
}

type amountResponse struct {
	Amount string `json:"amount"`
}

func (c *Client) doRequest(ctx context.Context, method, path string, payload any) ([]byte, error) {
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.host+path, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &APIError{Status: resp.StatusCode, Body: string(raw)}
	}
	return raw, nil
}

func parseAmount(raw []byte) (decimal.Decimal, error) {
	var out amountResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return decimal.Zero, fmt.Errorf("decode amount: %w", err)
	}
	amount, err := decimal.NewFromString(out.Amount)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse amount %q: %w", out.Amount, err)
	}
	return amount, nil
}

// --- Vault -------------------------------------------------------------

func (c *Client) Supply(ctx context.Context, amount decimal.Decimal) error {
	_, err := c.doRequest(ctx, http.MethodPost, "/vault/supply", amountRequest{Amount: amount.String()})
	return err
}

func (c *Client) Withdraw(ctx context.Context, amount decimal.Decimal) (decimal.Decimal, error) {
	raw, err := c.doRequest(ctx, http.MethodPost, "/vault/withdraw", amountRequest{Amount: amount.String()})
	if err != nil {
		return decimal.Zero, err
	}
	return parseAmount(raw)
}

func (c *Client) Balance(ctx context.Context) (decimal.Decimal, error) {
	raw, err := c.doRequest(ctx, http.MethodGet, "/vault/balance", nil)
	if err != nil {
		return decimal.Zero, err
	}
	return parseAmount(raw)
}

// --- Token -------------------------------------------------------------

func (c *Client) TransferFrom(ctx context.Context, from string, amount decimal.Decimal) error {
	if strings.TrimSpace(from) == "" {
		return fmt.Errorf("from is required")
	}
	_, err := c.doRequest(ctx, http.MethodPost, "/token/transfer-from", transferRequest{
		From:   from,
		Amount: amount.String(),
	})
	return err
}

func (c *Client) Transfer(ctx context.Context, to string, amount decimal.Decimal) error {
	if strings.TrimSpace(to) == "" {
		return fmt.Errorf("to is required")
	}
	_, err := c.doRequest(ctx, http.MethodPost, "/token/transfer", transferRequest{
		To:     to,
		Amount: amount.String(),
	})
	return err
}

func (c *Client) BalanceOf(ctx context.Context, holder string) (decimal.Decimal, error) {
	raw, err := c.doRequest(ctx, http.MethodGet, "/token/balance/"+holder, nil)
	if err != nil {
		return decimal.Zero, err
	}
	return parseAmount(raw)
}
