package service

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"commerce-service/internal/apperr"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequestCheckoutSuccess(t *testing.T) {
	var gotAuthUser string
	var gotBody checkoutRequest

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/checkouts", r.URL.Path)

		user, _, ok := r.BasicAuth()
		require.True(t, ok)
		gotAuthUser = user

		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))

		json.NewEncoder(w).Encode(checkoutResponse{
			Code:        0,
			CheckoutURL: "https://pay.example.com/checkout/abc",
			PayToken:    "tok_123",
		})
	}))
	defer srv.Close()

	gc := NewGatewayClient(srv.URL, "sk_test_secret", 5*time.Second)

	session, err := gc.RequestCheckout(context.Background(), "ORD-1", 10000, "Concert Ticket")
	require.NoError(t, err)

	assert.Equal(t, "sk_test_secret", gotAuthUser)
	assert.Equal(t, "ORD-1", gotBody.OrderNo)
	assert.Equal(t, int64(10000), gotBody.Amount)
	assert.Equal(t, "Concert Ticket", gotBody.OrderName)
	assert.Equal(t, "https://pay.example.com/checkout/abc", session.CheckoutURL)
	assert.Equal(t, "tok_123", session.PayToken)
}

func TestRequestCheckoutDeclined(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(checkoutResponse{
			Code:    3001,
			Message: "merchant limit exceeded",
		})
	}))
	defer srv.Close()

	gc := NewGatewayClient(srv.URL, "sk_test_secret", 5*time.Second)

	session, err := gc.RequestCheckout(context.Background(), "ORD-2", 5000, "Workshop")
	assert.Nil(t, session)
	assert.ErrorIs(t, err, apperr.ErrGatewayDeclined)
	assert.Contains(t, err.Error(), "3001")
}

func TestRequestCheckoutHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream down", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	gc := NewGatewayClient(srv.URL, "sk_test_secret", 5*time.Second)

	session, err := gc.RequestCheckout(context.Background(), "ORD-3", 5000, "Workshop")
	assert.Nil(t, session)
	assert.ErrorIs(t, err, apperr.ErrGatewayUnavailable)
}

func TestRequestCheckoutTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // connection refused from here on

	gc := NewGatewayClient(srv.URL, "sk_test_secret", time.Second)

	session, err := gc.RequestCheckout(context.Background(), "ORD-4", 5000, "Workshop")
	assert.Nil(t, session)
	assert.ErrorIs(t, err, apperr.ErrGatewayUnavailable)
}
