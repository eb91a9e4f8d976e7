package api

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"commerce-service/internal/apperr"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestStatusFor(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{apperr.ErrProductNotFound, http.StatusNotFound},
		{apperr.ErrOrderNotFound, http.StatusNotFound},
		{apperr.ErrPaymentNotFound, http.StatusNotFound},
		{apperr.ErrInvalidQuantity, http.StatusBadRequest},
		{apperr.ErrAmountMismatch, http.StatusBadRequest},
		{apperr.ErrDuplicateOrder, http.StatusConflict},
		{apperr.ErrInsufficientStock, http.StatusConflict},
		{apperr.ErrOrderNotPayable, http.StatusConflict},
		{apperr.ErrNotRefundable, http.StatusConflict},
		{apperr.ErrNotOwner, http.StatusForbidden},
		{apperr.ErrWindowExpired, http.StatusUnprocessableEntity},
		{apperr.ErrGatewayDeclined, http.StatusBadGateway},
		{apperr.ErrGatewayUnavailable, http.StatusBadGateway},
		{assert.AnError, http.StatusInternalServerError},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.want, statusFor(tc.err), "error: %v", tc.err)
	}
}

func TestStatusForWrappedError(t *testing.T) {
	wrapped := fmt.Errorf("checkout failed: %w", apperr.ErrGatewayUnavailable)
	assert.Equal(t, http.StatusBadGateway, statusFor(wrapped))
}

func TestUserIDHeader(t *testing.T) {
	gin.SetMode(gin.TestMode)

	newCtx := func(header string) *gin.Context {
		c, _ := gin.CreateTestContext(httptest.NewRecorder())
		c.Request = httptest.NewRequest(http.MethodPost, "/api/v1/orders", nil)
		if header != "" {
			c.Request.Header.Set("X-User-ID", header)
		}
		return c
	}

	id, ok := userID(newCtx("42"))
	assert.True(t, ok)
	assert.Equal(t, int64(42), id)

	_, ok = userID(newCtx(""))
	assert.False(t, ok)

	_, ok = userID(newCtx("abc"))
	assert.False(t, ok)

	_, ok = userID(newCtx("-1"))
	assert.False(t, ok)

	_, ok = userID(newCtx("0"))
	assert.False(t, ok)
}
