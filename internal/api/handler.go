package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"commerce-service/internal/apperr"
	"commerce-service/internal/service"
	"commerce-service/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handler contains HTTP handlers
type Handler struct {
	orderService   *service.OrderService
	paymentService *service.PaymentService
	refundService  *service.RefundService
}

// NewHandler creates a new HTTP handler
func NewHandler(orderService *service.OrderService, paymentService *service.PaymentService, refundService *service.RefundService) *Handler {
	return &Handler{
		orderService:   orderService,
		paymentService: paymentService,
		refundService:  refundService,
	}
}

// SetupRoutes sets up HTTP routes
func (h *Handler) SetupRoutes(router *gin.Engine) {
	router.Use(gin.Recovery())
	router.Use(prometheusMiddleware())
	router.Use(gin.Logger())

	router.GET("/health", h.healthCheck)
	router.GET("/ready", h.readinessCheck)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1")
	{
		v1.GET("/products", h.listProducts)
		v1.GET("/products/:id", h.getProduct)
		v1.POST("/orders", h.createOrder)
		v1.GET("/orders", h.listOrders)
		v1.GET("/orders/:id", h.getOrder)
		v1.GET("/orders/:id/payment", h.getOrderPayment)
		v1.POST("/orders/:id/refund", h.requestRefund)
		v1.POST("/payments/callback", h.paymentCallback)
	}
}

// healthCheck handles health check requests
func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"time":   time.Now().Unix(),
	})
}

// readinessCheck handles readiness check requests
func (h *Handler) readinessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
		"time":   time.Now().Unix(),
	})
}

// userID reads the caller identity placed in the X-User-ID header by
// the session-auth collaborator in front of this service.
func userID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.GetHeader("X-User-ID"), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// createOrder handles order creation
func (h *Handler) createOrder(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Missing or invalid user identity"})
		return
	}

	var req service.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	resp, err := h.orderService.CreateOrder(c.Request.Context(), uid, &req)
	if err != nil {
		// Gateway failures after the transaction committed still
		// carry the created order back to the client.
		if resp != nil && (errors.Is(err, apperr.ErrGatewayUnavailable) || errors.Is(err, apperr.ErrGatewayDeclined)) {
			c.JSON(http.StatusBadGateway, gin.H{
				"error":    "Order created but checkout unavailable",
				"order_id": resp.OrderID,
				"order_no": resp.OrderNo,
				"details":  err.Error(),
			})
			return
		}
		c.JSON(statusFor(err), gin.H{
			"error":   "Failed to create order",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusCreated, resp)
}

// getOrder handles get order by ID
func (h *Handler) getOrder(c *gin.Context) {
	orderID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid order ID"})
		return
	}

	order, err := h.orderService.GetOrder(c.Request.Context(), orderID)
	if err != nil {
		c.JSON(statusFor(err), gin.H{
			"error":   "Order not found",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"order": order})
}

// listOrders handles order listing for the authenticated user
func (h *Handler) listOrders(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Missing or invalid user identity"})
		return
	}

	orders, err := h.orderService.ListOrders(c.Request.Context(), uid)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to list orders",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"orders": orders})
}

// getOrderPayment handles payment lookup for an order the caller owns
func (h *Handler) getOrderPayment(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Missing or invalid user identity"})
		return
	}

	orderID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid order ID"})
		return
	}

	order, err := h.orderService.GetOrder(c.Request.Context(), orderID)
	if err != nil {
		c.JSON(statusFor(err), gin.H{
			"error":   "Order not found",
			"details": err.Error(),
		})
		return
	}
	if order.UserID != uid {
		c.JSON(http.StatusForbidden, gin.H{"error": apperr.ErrNotOwner.Error()})
		return
	}

	payment, err := h.paymentService.GetPayment(c.Request.Context(), orderID)
	if err != nil {
		c.JSON(statusFor(err), gin.H{
			"error":   "Payment not found",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"payment": payment})
}

// listProducts handles product listing
func (h *Handler) listProducts(c *gin.Context) {
	products, err := h.orderService.GetProducts(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to list products",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"products": products})
}

// getProduct handles get product by ID
func (h *Handler) getProduct(c *gin.Context) {
	productID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid product ID"})
		return
	}

	product, err := h.orderService.GetProduct(c.Request.Context(), productID)
	if err != nil {
		c.JSON(statusFor(err), gin.H{
			"error":   "Product not found",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"product": product})
}

// requestRefundBody is the refund request payload
type requestRefundBody struct {
	Reason string `json:"reason" binding:"required"`
}

// requestRefund handles refund requests
func (h *Handler) requestRefund(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Missing or invalid user identity"})
		return
	}

	orderID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid order ID"})
		return
	}

	var body requestRefundBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	if err := h.refundService.RequestRefund(c.Request.Context(), orderID, uid, body.Reason, time.Now()); err != nil {
		c.JSON(statusFor(err), gin.H{
			"error":   "Refund request rejected",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"order_id": orderID, "status": "REFUND_REQUESTED"})
}

// paymentCallback handles the gateway's payment-completion callback.
// Accepted callbacks, including idempotent duplicates, answer 200; the
// gateway consumes nothing beyond the status code.
func (h *Handler) paymentCallback(c *gin.Context) {
	var payload service.CallbackPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid callback payload",
			"details": err.Error(),
		})
		return
	}

	if err := h.paymentService.ProcessApproval(c.Request.Context(), &payload); err != nil {
		c.JSON(statusFor(err), gin.H{
			"error":   "Callback rejected",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// statusFor maps service errors to HTTP statuses
func statusFor(err error) int {
	switch {
	case errors.Is(err, apperr.ErrProductNotFound),
		errors.Is(err, apperr.ErrOrderNotFound),
		errors.Is(err, apperr.ErrPaymentNotFound):
		return http.StatusNotFound
	case errors.Is(err, apperr.ErrInvalidQuantity),
		errors.Is(err, apperr.ErrAmountMismatch):
		return http.StatusBadRequest
	case errors.Is(err, apperr.ErrDuplicateOrder),
		errors.Is(err, apperr.ErrInsufficientStock),
		errors.Is(err, apperr.ErrOrderNotPayable),
		errors.Is(err, apperr.ErrNotRefundable):
		return http.StatusConflict
	case errors.Is(err, apperr.ErrNotOwner):
		return http.StatusForbidden
	case errors.Is(err, apperr.ErrWindowExpired):
		return http.StatusUnprocessableEntity
	case errors.Is(err, apperr.ErrGatewayDeclined),
		errors.Is(err, apperr.ErrGatewayUnavailable):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// prometheusMiddleware collects HTTP metrics
func prometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())

		util.HTTPRequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Observe(duration)

		util.HTTPRequestsTotal.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Inc()
	}
}
