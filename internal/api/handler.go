package api

import (
	"net/http"
	"strconv"
	"time"

	"checkout-service/internal/apperr"
	"checkout-service/internal/service"
	"checkout-service/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Handler contains HTTP handlers
type Handler struct {
	cartService     *service.CartService
	checkoutService *service.CheckoutService
	orderService    *service.OrderService
	jwtSecret       string
}

// NewHandler creates a new HTTP handler
func NewHandler(cartService *service.CartService, checkoutService *service.CheckoutService, orderService *service.OrderService, jwtSecret string) *Handler {
	return &Handler{
		cartService:     cartService,
		checkoutService: checkoutService,
		orderService:    orderService,
		jwtSecret:       jwtSecret,
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
	v1.Use(AuthRequired(h.jwtSecret))
	{
		v1.GET("/cart", h.getCart)
		v1.POST("/cart/items", h.addCartItem)
		v1.PATCH("/cart/items/:id", h.updateCartItem)
		v1.DELETE("/cart/items/:id", h.deleteCartItem)
		v1.DELETE("/cart", h.clearCart)

		v1.POST("/checkout", h.checkout)

		v1.GET("/orders", h.listOrders)
		v1.GET("/orders/:id", h.getOrder)

		admin := v1.Group("/admin")
		admin.Use(AdminRequired())
		{
			admin.PATCH("/orders/:id/status", h.updateOrderStatus)
		}
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

// getCart returns the user's cart joined with current product snapshots
func (h *Handler) getCart(c *gin.Context) {
	view, err := h.cartService.List(c.Request.Context(), userIDFrom(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

type addCartItemRequest struct {
	ProductID int64 `json:"product_id" binding:"required"`
	Quantity  int   `json:"quantity" binding:"required"`
}

// addCartItem adds a product to the cart or increments its quantity
func (h *Handler) addCartItem(c *gin.Context) {
	var req addCartItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	view, err := h.cartService.AddItem(c.Request.Context(), userIDFrom(c), req.ProductID, req.Quantity)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

type updateCartItemRequest struct {
	Quantity int `json:"quantity" binding:"required"`
}

// updateCartItem sets the quantity of a cart item
func (h *Handler) updateCartItem(c *gin.Context) {
	itemID, ok := pathID(c)
	if !ok {
		return
	}

	var req updateCartItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	view, err := h.cartService.SetQuantity(c.Request.Context(), userIDFrom(c), itemID, req.Quantity)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// deleteCartItem removes a cart item
func (h *Handler) deleteCartItem(c *gin.Context) {
	itemID, ok := pathID(c)
	if !ok {
		return
	}

	view, err := h.cartService.RemoveItem(c.Request.Context(), userIDFrom(c), itemID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// clearCart removes every item from the user's cart
func (h *Handler) clearCart(c *gin.Context) {
	if err := h.cartService.Clear(c.Request.Context(), userIDFrom(c)); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type checkoutRequest struct {
	Shipping       service.ShippingInfo         `json:"shipping" binding:"required"`
	PaymentMethod  string                       `json:"payment_method" binding:"required"`
	Confirmation   *service.PaymentConfirmation `json:"payment_confirmation,omitempty"`
	IdempotencyKey string                       `json:"idempotency_key,omitempty"`
}

// checkout converts the user's cart into an order
func (h *Handler) checkout(c *gin.Context) {
	var req checkoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	if req.IdempotencyKey == "" {
		req.IdempotencyKey = c.GetHeader("Idempotency-Key")
	}

	order, items, err := h.checkoutService.Checkout(c.Request.Context(), userIDFrom(c), service.CheckoutInput{
		Shipping:       req.Shipping,
		PaymentMethod:  req.PaymentMethod,
		Confirmation:   req.Confirmation,
		IdempotencyKey: req.IdempotencyKey,
	})
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"order": order, "items": items})
}

// listOrders returns the user's orders, newest first
func (h *Handler) listOrders(c *gin.Context) {
	orders, err := h.orderService.ListOrders(c.Request.Context(), userIDFrom(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"orders": orders})
}

// getOrder returns one of the user's orders with its items
func (h *Handler) getOrder(c *gin.Context) {
	orderID, ok := pathID(c)
	if !ok {
		return
	}

	order, items, err := h.orderService.GetOrder(c.Request.Context(), userIDFrom(c), orderID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"order": order, "items": items})
}

type updateOrderStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// updateOrderStatus performs an admin status transition
func (h *Handler) updateOrderStatus(c *gin.Context) {
	orderID, ok := pathID(c)
	if !ok {
		return
	}

	var req updateOrderStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	order, err := h.orderService.UpdateStatus(c.Request.Context(), orderID, req.Status)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"order": order})
}

// pathID parses the :id path parameter
func pathID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid id"})
		return 0, false
	}
	return id, true
}

// writeError maps the service error taxonomy to HTTP statuses
func writeError(c *gin.Context, err error) {
	switch apperr.KindOf(err) {
	case apperr.KindValidation:
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case apperr.KindNotFound:
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case apperr.KindConflict:
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		util.GetLogger().Error("Internal error", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
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
