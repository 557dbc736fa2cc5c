package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/shopspring/decimal"
	"github.com/vasiliy-maslov/storefront-service/internal/config"
)

// Client talks to the payment gateway's REST API. It implements Gateway.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	apiSecret  string
}

func NewClient(cfg config.GatewayConfig) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		baseURL:    cfg.BaseURL,
		apiKey:     cfg.APIKey,
		apiSecret:  cfg.APISecret,
	}
}

type prepareRequest struct {
	MerchantUID string          `json:"merchant_uid"`
	Amount      decimal.Decimal `json:"amount"`
}

type cancelRequest struct {
	ImpUID string           `json:"imp_uid"`
	Full   bool             `json:"full"`
	Amount *decimal.Decimal `json:"amount,omitempty"`
}

type gatewayResponse struct {
	Code     int             `json:"code"`
	Message  string          `json:"message"`
	Response json.RawMessage `json:"response"`
}

func (c *Client) Prepare(ctx context.Context, merchantUID string, amount decimal.Decimal) error {
	resp, err := c.post(ctx, "/payments/prepare", prepareRequest{MerchantUID: merchantUID, Amount: amount})
	if err != nil {
		return err
	}
	if resp.Code != 0 {
		return fmt.Errorf("%w: %s", ErrPrepareFailed, resp.Message)
	}
	return nil
}

func (c *Client) PaymentByImpUID(ctx context.Context, impUID string) (*Payment, error) {
	resp, err := c.get(ctx, "/payments/"+url.PathEscape(impUID))
	if err != nil {
		return nil, err
	}
	if resp.Code != 0 {
		return nil, fmt.Errorf("gateway: payment lookup for %s rejected: %s", impUID, resp.Message)
	}

	var p Payment
	if err := json.Unmarshal(resp.Response, &p); err != nil {
		return nil, fmt.Errorf("gateway: failed to decode payment record for %s: %w", impUID, err)
	}
	return &p, nil
}

func (c *Client) CancelByImpUID(ctx context.Context, impUID string, full bool, refundAmount decimal.Decimal) error {
	req := cancelRequest{ImpUID: impUID, Full: full}
	if !full {
		if refundAmount.Sign() <= 0 {
			return fmt.Errorf("gateway: partial refund requires a positive amount, got %s", refundAmount)
		}
		req.Amount = &refundAmount
	}

	resp, err := c.post(ctx, "/payments/cancel", req)
	if err != nil {
		return err
	}
	if resp.Code != 0 {
		return fmt.Errorf("gateway: cancel for %s rejected: %s", impUID, resp.Message)
	}
	return nil
}

func (c *Client) post(ctx context.Context, path string, payload any) (*gatewayResponse, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("gateway: failed to marshal request for %s: %w", path, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("gateway: failed to build request for %s: %w", path, err)
	}
	req.Header.Set("Content-Type", "application/json")

	return c.do(req, path)
}

func (c *Client) get(ctx context.Context, path string) (*gatewayResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("gateway: failed to build request for %s: %w", path, err)
	}

	return c.do(req, path)
}

func (c *Client) do(req *http.Request, path string) (*gatewayResponse, error) {
	req.SetBasicAuth(c.apiKey, c.apiSecret)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("gateway: request to %s failed: %w", path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("gateway: failed to read response from %s: %w", path, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("gateway: %s returned status %d: %s", path, resp.StatusCode, string(data))
	}

	var gr gatewayResponse
	if err := json.Unmarshal(data, &gr); err != nil {
		return nil, fmt.Errorf("gateway: failed to decode response from %s: %w", path, err)
	}

	return &gr, nil
}
