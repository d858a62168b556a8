// Package gateway talks to the payment provider. The provider is treated as
// an opaque collaborator: callers only see the Client contract and a typed
// error that distinguishes transient failures from terminal rejections.
package gateway

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/mukeshbadgujar/emandate-service/internal"
)

// CustomerParams are the fields forwarded when registering a customer with
// the provider.
type CustomerParams struct {
	Name    string
	Email   string
	Contact string
	GSTIN   string
}

// Client is the provider capability surface. Every create call carries an
// idempotency key so at-least-once job execution cannot double-charge.
type Client interface {
	CreateCustomer(ctx context.Context, params CustomerParams) (gatewayCustomerID string, err error)
	CreateMandate(ctx context.Context, customerRef string, amountPaise int64, frequency, idempotencyKey string) (gatewayMandateID string, err error)
	CreatePayment(ctx context.Context, mandateRef string, amountPaise int64, idempotencyKey string) (gatewayPaymentID string, err error)
	VerifySignature(payload []byte, signature string) bool
}

// APIError is a failure reported by the provider. Status >= 500 and
// transport-level failures are transient and may be retried; 4xx responses
// are rejections and must not be retried.
type APIError struct {
	StatusCode  int
	Code        string
	Description string
	Err         error
}

func (e *APIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("gateway error: %v", e.Err)
	}
	return fmt.Sprintf("gateway error: status %d code %s: %s", e.StatusCode, e.Code, e.Description)
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// Transient reports whether the failure may succeed on retry.
func (e *APIError) Transient() bool {
	if e.Err != nil {
		return true
	}
	return e.StatusCode >= 500 || e.StatusCode == 429
}

// IsRejection reports whether err is a terminal provider rejection.
func IsRejection(err error) bool {
	if apiErr, ok := err.(*APIError); ok {
		return !apiErr.Transient()
	}
	return false
}

// IsTransient reports whether err is worth retrying against the provider.
func IsTransient(err error) bool {
	if apiErr, ok := err.(*APIError); ok {
		return apiErr.Transient()
	}
	return false
}

// NewFromConfig selects the real or mock client. Mock mode is an explicit
// construction-time decision, never consulted again afterwards.
func NewFromConfig(cfg internal.GatewayConfig, logger *slog.Logger) Client {
	if cfg.UseMock {
		logger.Info("payment gateway running in mock mode")
		return NewMockClient(cfg.WebhookSecret)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return NewRazorpayClient(RazorpayConfig{
		KeyID:         cfg.KeyID,
		KeySecret:     cfg.KeySecret,
		WebhookSecret: cfg.WebhookSecret,
		BaseURL:       cfg.BaseURL,
		Timeout:       timeout,
	}, logger)
}
