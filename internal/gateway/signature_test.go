package gateway

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVerifySignatureRoundTrip(t *testing.T) {
	payload := []byte(`{"event":"mandate.confirmed"}`)
	secret := "whsec_test"

	signature := SignPayload(payload, secret)
	assert.True(t, VerifySignature(payload, signature, secret))
}

func TestVerifySignatureRejectsTamperedPayload(t *testing.T) {
	secret := "whsec_test"
	signature := SignPayload([]byte(`{"event":"mandate.confirmed"}`), secret)

	assert.False(t, VerifySignature([]byte(`{"event":"mandate.cancelled"}`), signature, secret))
}

func TestVerifySignatureRejectsWrongSecret(t *testing.T) {
	payload := []byte(`{"event":"mandate.confirmed"}`)
	signature := SignPayload(payload, "whsec_test")

	assert.False(t, VerifySignature(payload, signature, "whsec_other"))
}

func TestVerifySignatureRejectsEmptyInputs(t *testing.T) {
	payload := []byte(`{}`)

	assert.False(t, VerifySignature(payload, "", "whsec_test"))
	assert.False(t, VerifySignature(payload, SignPayload(payload, "whsec_test"), ""))
}

func TestMockClientHonorsIdempotencyKeys(t *testing.T) {
	client := NewMockClient("whsec_test")
	ctx := context.Background()

	first, err := client.CreateMandate(ctx, "cust_1", 49900, "monthly", "mandate-1")
	require.NoError(t, err)

	second, err := client.CreateMandate(ctx, "cust_1", 49900, "monthly", "mandate-1")
	require.NoError(t, err)
	assert.Equal(t, first, second)

	third, err := client.CreateMandate(ctx, "cust_1", 49900, "monthly", "mandate-2")
	require.NoError(t, err)
	assert.NotEqual(t, first, third)
}

func TestMockClientVerifiesOwnSignatures(t *testing.T) {
	client := NewMockClient("whsec_test")
	payload := []byte(`{"event":"payment.captured"}`)

	assert.True(t, client.VerifySignature(payload, SignPayload(payload, "whsec_test")))
	assert.False(t, client.VerifySignature(payload, "bogus"))
}
