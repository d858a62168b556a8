package gateway

import (
	"context"
	"fmt"
	"sync"
)

// MockClient is an in-memory provider used for development and tests. It
// honors idempotency keys: repeating a create with the same key returns the
// id minted by the first call.
type MockClient struct {
	mu            sync.Mutex
	webhookSecret string
	customers     int
	mandates      int
	payments      int
	byKey         map[string]string
}

func NewMockClient(webhookSecret string) *MockClient {
	return &MockClient{
		webhookSecret: webhookSecret,
		byKey:         make(map[string]string),
	}
}

func (m *MockClient) CreateCustomer(_ context.Context, params CustomerParams) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.customers++
	return fmt.Sprintf("cust_mock_%d", m.customers), nil
}

func (m *MockClient) CreateMandate(_ context.Context, customerRef string, amountPaise int64, frequency, idempotencyKey string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if id, ok := m.byKey[idempotencyKey]; ok && idempotencyKey != "" {
		return id, nil
	}

	m.mandates++
	id := fmt.Sprintf("mandate_mock_%d", m.mandates)
	if idempotencyKey != "" {
		m.byKey[idempotencyKey] = id
	}
	return id, nil
}

func (m *MockClient) CreatePayment(_ context.Context, mandateRef string, amountPaise int64, idempotencyKey string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if id, ok := m.byKey[idempotencyKey]; ok && idempotencyKey != "" {
		return id, nil
	}

	m.payments++
	id := fmt.Sprintf("pay_mock_%d", m.payments)
	if idempotencyKey != "" {
		m.byKey[idempotencyKey] = id
	}
	return id, nil
}

func (m *MockClient) VerifySignature(payload []byte, signature string) bool {
	return VerifySignature(payload, signature, m.webhookSecret)
}
