package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"commerce-service/internal/apperr"
	"commerce-service/internal/util"

	"go.uber.org/zap"
)

// GatewayClient calls the payment gateway's checkout API. The gateway
// is an external collaborator; a non-zero result code in a 2xx response
// is a request-level decline, distinct from a transport failure.
type GatewayClient struct {
	baseURL    string
	secretKey  string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewGatewayClient creates a new gateway client
func NewGatewayClient(baseURL, secretKey string, timeout time.Duration) *GatewayClient {
	return &GatewayClient{
		baseURL:   baseURL,
		secretKey: secretKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: util.GetLogger(),
	}
}

// CheckoutSession is what the client needs to complete payment
type CheckoutSession struct {
	CheckoutURL string `json:"checkout_url"`
	PayToken    string `json:"pay_token"`
}

type checkoutRequest struct {
	OrderNo   string `json:"order_no"`
	Amount    int64  `json:"amount"`
	OrderName string `json:"order_name"`
}

type checkoutResponse struct {
	Code        int    `json:"code"`
	Message     string `json:"message"`
	CheckoutURL string `json:"checkout_url"`
	PayToken    string `json:"pay_token"`
}

// RequestCheckout registers the order with the gateway and returns the
// checkout session the client is redirected to.
func (gc *GatewayClient) RequestCheckout(ctx context.Context, orderNo string, amount int64, orderName string) (*CheckoutSession, error) {
	ctx, span := util.StartSpan(ctx, "GatewayClient.RequestCheckout")
	defer span.End()

	start := time.Now()
	defer func() {
		util.GatewayRequestLatency.Observe(time.Since(start).Seconds())
	}()

	body, err := json.Marshal(checkoutRequest{
		OrderNo:   orderNo,
		Amount:    amount,
		OrderName: orderName,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal checkout request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		gc.baseURL+"/v1/checkouts", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build checkout request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(gc.secretKey, "")

	resp, err := gc.httpClient.Do(req)
	if err != nil {
		util.GatewayErrorsTotal.WithLabelValues("transport").Inc()
		return nil, fmt.Errorf("%w: %v", apperr.ErrGatewayUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		util.GatewayErrorsTotal.WithLabelValues("http_status").Inc()
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		gc.logger.Warn("Gateway returned non-2xx status",
			zap.Int("status", resp.StatusCode),
			zap.ByteString("body", respBody))
		return nil, fmt.Errorf("%w: status %d", apperr.ErrGatewayUnavailable, resp.StatusCode)
	}

	var checkout checkoutResponse
	if err := json.NewDecoder(resp.Body).Decode(&checkout); err != nil {
		util.GatewayErrorsTotal.WithLabelValues("decode").Inc()
		return nil, fmt.Errorf("%w: %v", apperr.ErrGatewayUnavailable, err)
	}

	if checkout.Code != 0 {
		util.GatewayErrorsTotal.WithLabelValues("declined").Inc()
		return nil, fmt.Errorf("%w: code=%d message=%s",
			apperr.ErrGatewayDeclined, checkout.Code, checkout.Message)
	}

	return &CheckoutSession{
		CheckoutURL: checkout.CheckoutURL,
		PayToken:    checkout.PayToken,
	}, nil
}
