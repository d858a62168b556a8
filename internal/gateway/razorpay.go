package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

const idempotencyHeader = "X-Idempotency-Key"

type RazorpayConfig struct {
	KeyID         string
	KeySecret     string
	WebhookSecret string
	BaseURL       string
	Timeout       time.Duration
}

// RazorpayClient calls the provider's REST API with basic auth. It never
// retries by itself; retry policy belongs to the dispatcher.
type RazorpayClient struct {
	client        *http.Client
	baseURL       string
	keyID         string
	keySecret     string
	webhookSecret string
	logger        *slog.Logger
}

func NewRazorpayClient(cfg RazorpayConfig, logger *slog.Logger) *RazorpayClient {
	return &RazorpayClient{
		client:        &http.Client{Timeout: cfg.Timeout},
		baseURL:       cfg.BaseURL,
		keyID:         cfg.KeyID,
		keySecret:     cfg.KeySecret,
		webhookSecret: cfg.WebhookSecret,
		logger:        logger,
	}
}

type apiErrorBody struct {
	Error struct {
		Code        string `json:"code"`
		Description string `json:"description"`
	} `json:"error"`
}

func (c *RazorpayClient) doRequest(ctx context.Context, method, path, idempotencyKey string, body interface{}, out interface{}) error {
	reqBody, err := json.Marshal(body)
	if err != nil {
		return &APIError{Err: fmt.Errorf("marshal request: %w", err)}
	}

	url := fmt.Sprintf("%s/%s", c.baseURL, path)
	httpReq, err := http.NewRequestWithContext(ctx, method, url, bytes.NewBuffer(reqBody))
	if err != nil {
		return &APIError{Err: fmt.Errorf("create request: %w", err)}
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.SetBasicAuth(c.keyID, c.keySecret)
	if idempotencyKey != "" {
		httpReq.Header.Set(idempotencyHeader, idempotencyKey)
	}

	c.logger.Info("sending gateway request",
		"method", method,
		"path", path,
		"idempotency_key", idempotencyKey)

	resp, err := c.client.Do(httpReq)
	if err != nil {
		c.logger.Error("gateway request failed", "error", err, "path", path)
		return &APIError{Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return &APIError{Err: fmt.Errorf("read response: %w", err)}
	}

	if resp.StatusCode >= 400 {
		var errBody apiErrorBody
		_ = json.Unmarshal(respBody, &errBody)

		c.logger.Error("gateway returned error",
			"status", resp.StatusCode,
			"code", errBody.Error.Code,
			"description", errBody.Error.Description,
			"path", path)

		return &APIError{
			StatusCode:  resp.StatusCode,
			Code:        errBody.Error.Code,
			Description: errBody.Error.Description,
		}
	}

	if out != nil {
		if err := json.Unmarshal(respBody, out); err != nil {
			return &APIError{Err: fmt.Errorf("unmarshal response: %w", err)}
		}
	}

	return nil
}

func (c *RazorpayClient) CreateCustomer(ctx context.Context, params CustomerParams) (string, error) {
	payload := map[string]interface{}{
		"name":    params.Name,
		"email":   params.Email,
		"contact": params.Contact,
	}
	if params.GSTIN != "" {
		payload["gstin"] = params.GSTIN
	}

	var resp struct {
		ID string `json:"id"`
	}
	if err := c.doRequest(ctx, http.MethodPost, "customers", "", payload, &resp); err != nil {
		return "", err
	}

	c.logger.Info("gateway customer created", "gateway_customer_id", resp.ID)
	return resp.ID, nil
}

func (c *RazorpayClient) CreateMandate(ctx context.Context, customerRef string, amountPaise int64, frequency, idempotencyKey string) (string, error) {
	payload := map[string]interface{}{
		"customer_id": customerRef,
		"amount":      amountPaise,
		"currency":    "INR",
		"method":      "emandate",
		"frequency":   frequency,
	}

	var resp struct {
		ID string `json:"id"`
	}
	if err := c.doRequest(ctx, http.MethodPost, "mandates", idempotencyKey, payload, &resp); err != nil {
		return "", err
	}

	c.logger.Info("gateway mandate created",
		"gateway_mandate_id", resp.ID,
		"customer_ref", customerRef)
	return resp.ID, nil
}

func (c *RazorpayClient) CreatePayment(ctx context.Context, mandateRef string, amountPaise int64, idempotencyKey string) (string, error) {
	payload := map[string]interface{}{
		"mandate_id": mandateRef,
		"amount":     amountPaise,
		"currency":   "INR",
		"recurring":  true,
	}

	var resp struct {
		ID string `json:"id"`
	}
	if err := c.doRequest(ctx, http.MethodPost, "payments", idempotencyKey, payload, &resp); err != nil {
		return "", err
	}

	c.logger.Info("gateway payment created",
		"gateway_payment_id", resp.ID,
		"mandate_ref", mandateRef)
	return resp.ID, nil
}

func (c *RazorpayClient) VerifySignature(payload []byte, signature string) bool {
	return VerifySignature(payload, signature, c.webhookSecret)
}
