package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"chainpos/internal/service"
	"chainpos/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handler contains HTTP handlers
type Handler struct {
	orderService *service.OrderService
	loyalty      *service.LoyaltyService
	inventory    *service.InventoryEngine
	rollup       *service.RollupService
}

// NewHandler creates a new HTTP handler
func NewHandler(
	orderService *service.OrderService,
	loyalty *service.LoyaltyService,
	inventory *service.InventoryEngine,
	rollup *service.RollupService,
) *Handler {
	return &Handler{
		orderService: orderService,
		loyalty:      loyalty,
		inventory:    inventory,
		rollup:       rollup,
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
		v1.POST("/orders", h.placeOrder)
		v1.GET("/orders/:id", h.getOrder)
		v1.POST("/orders/:id/transition", h.transitionOrder)
		v1.GET("/customers/:customerID/orders", h.getCustomerOrders)
		v1.GET("/inventory/:locationID/:ingredientID", h.getInventory)
		v1.POST("/loyalty/:customerID/redeem", h.redeemPoints)
		v1.GET("/loyalty/:customerID", h.getLoyalty)
		v1.POST("/rollups/:locationID/:date", h.recomputeRollup)
		v1.GET("/rollups/:locationID/:date", h.getRollup)
	}
}

// StatusForError maps the domain error taxonomy to HTTP status codes
func StatusForError(err error) int {
	var (
		validation   *service.ValidationError
		transition   *service.InvalidTransitionError
		stock        *service.InsufficientStockError
		points       *service.InsufficientPointsError
		persistFails *service.PersistenceError
	)
	switch {
	case errors.As(err, &validation):
		return http.StatusBadRequest
	case errors.As(err, &transition):
		return http.StatusConflict
	case errors.As(err, &stock), errors.As(err, &points):
		return http.StatusUnprocessableEntity
	case errors.Is(err, service.ErrConcurrencyConflict):
		return http.StatusConflict
	case errors.As(err, &persistFails):
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

func abortWithError(c *gin.Context, err error) {
	c.JSON(StatusForError(err), gin.H{"error": err.Error()})
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

// placeOrder handles order creation
func (h *Handler) placeOrder(c *gin.Context) {
	var req service.PlaceOrderRequest

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	if req.IdempotencyKey == "" {
		req.IdempotencyKey = c.GetHeader("Idempotency-Key")
	}

	resp, err := h.orderService.PlaceOrder(c.Request.Context(), &req)
	if err != nil {
		abortWithError(c, err)
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

	order, items, err := h.orderService.GetOrder(c.Request.Context(), orderID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"error":   "Order not found",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"order": order,
		"items": items,
	})
}

// transitionRequest carries the target status for a transition
type transitionRequest struct {
	Status string `json:"status" binding:"required"`
}

// transitionOrder drives an order to a target status
func (h *Handler) transitionOrder(c *gin.Context) {
	orderID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid order ID"})
		return
	}

	var req transitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	order, err := h.orderService.TransitionOrder(c.Request.Context(), orderID, req.Status)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, order)
}

// getCustomerOrders lists a customer's order history
func (h *Handler) getCustomerOrders(c *gin.Context) {
	customerID, err := strconv.ParseInt(c.Param("customerID"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid customer ID"})
		return
	}

	orders, err := h.orderService.GetCustomerOrders(c.Request.Context(), customerID)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"orders": orders})
}

// getInventory returns the lots for one ingredient at a location
func (h *Handler) getInventory(c *gin.Context) {
	locationID, err1 := strconv.ParseInt(c.Param("locationID"), 10, 64)
	ingredientID, err2 := strconv.ParseInt(c.Param("ingredientID"), 10, 64)
	if err1 != nil || err2 != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid location or ingredient ID"})
		return
	}

	lots, err := h.inventory.GetLots(c.Request.Context(), locationID, ingredientID)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"lots": lots})
}

// redeemRequest carries a loyalty redemption
type redeemRequest struct {
	Points  int64  `json:"points" binding:"required"`
	OrderID *int64 `json:"order_id,omitempty"`
}

// redeemPoints redeems loyalty points for a customer
func (h *Handler) redeemPoints(c *gin.Context) {
	customerID, err := strconv.ParseInt(c.Param("customerID"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid customer ID"})
		return
	}

	var req redeemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	if err := h.loyalty.Redeem(c.Request.Context(), customerID, req.Points, req.OrderID); err != nil {
		abortWithError(c, err)
		return
	}

	balance, err := h.loyalty.GetBalance(c.Request.Context(), customerID)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"balance": balance})
}

// getLoyalty returns a customer's balance and ledger
func (h *Handler) getLoyalty(c *gin.Context) {
	customerID, err := strconv.ParseInt(c.Param("customerID"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid customer ID"})
		return
	}

	balance, err := h.loyalty.GetBalance(c.Request.Context(), customerID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Customer not found"})
		return
	}

	ledger, err := h.loyalty.GetLedger(c.Request.Context(), customerID)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"balance":      balance,
		"transactions": ledger,
	})
}

// parseDate parses the business date path segment
func parseDate(s string) (time.Time, error) {
	return time.Parse("2006-01-02", s)
}

// recomputeRollup forces a summary recomputation
func (h *Handler) recomputeRollup(c *gin.Context) {
	locationID, err := strconv.ParseInt(c.Param("locationID"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid location ID"})
		return
	}

	date, err := parseDate(c.Param("date"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid date, expected YYYY-MM-DD"})
		return
	}

	summary, err := h.rollup.Recompute(c.Request.Context(), locationID, date)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, summary)
}

// getRollup returns a stored summary
func (h *Handler) getRollup(c *gin.Context) {
	locationID, err := strconv.ParseInt(c.Param("locationID"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid location ID"})
		return
	}

	date, err := parseDate(c.Param("date"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid date, expected YYYY-MM-DD"})
		return
	}

	summary, err := h.rollup.GetSummary(c.Request.Context(), locationID, date)
	if err != nil {
		abortWithError(c, err)
		return
	}
	if summary == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Summary not computed yet"})
		return
	}

	c.JSON(http.StatusOK, summary)
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
