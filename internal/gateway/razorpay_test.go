package gateway

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (*RazorpayClient, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client := NewRazorpayClient(RazorpayConfig{
		KeyID:         "rzp_test_key",
		KeySecret:     "rzp_test_secret",
		WebhookSecret: "whsec_test",
		BaseURL:       server.URL,
		Timeout:       5 * time.Second,
	}, slog.New(slog.NewTextHandler(io.Discard, nil)))

	return client, server
}

func TestCreateMandateSendsIdempotencyKeyAndAuth(t *testing.T) {
	var gotKey, gotUser, gotPass string
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("X-Idempotency-Key")
		gotUser, gotPass, _ = r.BasicAuth()
		w.Write([]byte(`{"id":"mandate_abc"}`))
	})

	id, err := client.CreateMandate(context.Background(), "cust_1", 49900, "monthly", "mandate-1")
	require.NoError(t, err)
	assert.Equal(t, "mandate_abc", id)
	assert.Equal(t, "mandate-1", gotKey)
	assert.Equal(t, "rzp_test_key", gotUser)
	assert.Equal(t, "rzp_test_secret", gotPass)
}

func TestCreatePaymentForwardsIdempotencyKey(t *testing.T) {
	var gotKey string
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("X-Idempotency-Key")
		w.Write([]byte(`{"id":"pay_abc"}`))
	})

	id, err := client.CreatePayment(context.Background(), "mandate_abc", 49900, "rcpt-1")
	require.NoError(t, err)
	assert.Equal(t, "pay_abc", id)
	assert.Equal(t, "rcpt-1", gotKey)
}

func TestCreateCustomerOmitsIdempotencyKey(t *testing.T) {
	var hasKey bool
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, hasKey = r.Header["X-Idempotency-Key"]
		w.Write([]byte(`{"id":"cust_abc"}`))
	})

	id, err := client.CreateCustomer(context.Background(), CustomerParams{Name: "Asha", Email: "asha@mail.com"})
	require.NoError(t, err)
	assert.Equal(t, "cust_abc", id)
	assert.False(t, hasKey)
}

func TestClientErrorIsRejection(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":{"code":"BAD_REQUEST_ERROR","description":"invalid amount"}}`))
	})

	_, err := client.CreateMandate(context.Background(), "cust_1", -1, "monthly", "mandate-1")
	require.Error(t, err)

	apiErr, ok := err.(*APIError)
	require.True(t, ok)
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.Equal(t, "BAD_REQUEST_ERROR", apiErr.Code)
	assert.True(t, IsRejection(err))
	assert.False(t, IsTransient(err))
}

func TestServerErrorIsTransient(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	_, err := client.CreatePayment(context.Background(), "mandate_abc", 49900, "rcpt-1")
	require.Error(t, err)
	assert.True(t, IsTransient(err))
	assert.False(t, IsRejection(err))
}

func TestRateLimitIsTransient(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	})

	_, err := client.CreatePayment(context.Background(), "mandate_abc", 49900, "rcpt-1")
	require.Error(t, err)
	assert.True(t, IsTransient(err))
}

func TestNetworkErrorIsTransient(t *testing.T) {
	client, server := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {})
	server.Close()

	_, err := client.CreateMandate(context.Background(), "cust_1", 49900, "monthly", "mandate-1")
	require.Error(t, err)
	assert.True(t, IsTransient(err))
}
