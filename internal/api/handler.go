package api

import (
	"net/http"
	"strconv"
	"time"

	"backoffice-service/internal/apperrors"
	"backoffice-service/internal/models"
	"backoffice-service/internal/redisclient"
	"backoffice-service/internal/service"
	"backoffice-service/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handler contains HTTP handlers. It is a thin transport layer over the
// core services; authentication, rendering and access control live
// elsewhere.
type Handler struct {
	catalog    *service.CatalogService
	stock      *service.StockService
	orders     *service.OrderService
	reports    *service.ReportService
	redis      *redisclient.Client
	productTTL time.Duration
}

// NewHandler creates a new HTTP handler
func NewHandler(
	catalog *service.CatalogService,
	stock *service.StockService,
	orders *service.OrderService,
	reports *service.ReportService,
	redis *redisclient.Client,
	productTTL time.Duration,
) *Handler {
	return &Handler{
		catalog:    catalog,
		stock:      stock,
		orders:     orders,
		reports:    reports,
		redis:      redis,
		productTTL: productTTL,
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
		v1.POST("/categories", h.createCategory)
		v1.GET("/categories", h.listCategories)
		v1.DELETE("/categories/:id", h.deleteCategory)

		v1.POST("/products", h.createProduct)
		v1.GET("/products", h.listProducts)
		v1.GET("/products/low-stock", h.listLowStockProducts)
		v1.GET("/products/:id", h.getProduct)
		v1.PUT("/products/:id", h.updateProduct)
		v1.DELETE("/products/:id", h.deleteProduct)

		v1.POST("/orders", h.createOrder)
		v1.GET("/orders", h.listOrders)
		v1.GET("/orders/:id", h.getOrder)
		v1.DELETE("/orders/:id", h.deleteOrder)
		v1.PATCH("/orders/:id/status", h.updateOrderStatus)
		v1.POST("/orders/:id/lines", h.addOrderLine)
		v1.POST("/orders/:id/recompute-total", h.recomputeOrderTotal)
		v1.DELETE("/order-lines/:id", h.removeOrderLine)

		v1.POST("/stock/movements", h.recordMovement)
		v1.GET("/stock/movements", h.listMovements)
		v1.GET("/stock/alerts", h.listStockAlerts)

		v1.GET("/reports/sales-summary", h.salesSummary)
		v1.GET("/reports/daily-sales", h.dailySales)
		v1.GET("/reports/top-products", h.topProducts)
		v1.GET("/reports/order-counts", h.orderCounts)
		v1.GET("/reports/stock-dashboard", h.stockDashboard)
	}
}

// respondError maps the core error taxonomy onto HTTP status codes
func respondError(c *gin.Context, err error) {
	status := apperrors.HTTPStatus(err)
	payload := gin.H{"error": err.Error()}
	if fields := apperrors.ValidationFields(err); fields != nil {
		payload["fields"] = fields
	}
	c.JSON(status, payload)
}

func pathID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return 0, false
	}
	return id, true
}

func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"time":   time.Now().Unix(),
	})
}

func (h *Handler) readinessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
		"time":   time.Now().Unix(),
	})
}

func (h *Handler) createCategory(c *gin.Context) {
	var req service.CreateCategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}

	category, err := h.catalog.CreateCategory(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, category)
}

func (h *Handler) listCategories(c *gin.Context) {
	categories, err := h.catalog.ListCategories(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"categories": categories})
}

func (h *Handler) deleteCategory(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := h.catalog.DeleteCategory(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) createProduct(c *gin.Context) {
	var req service.CreateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}

	product, err := h.catalog.CreateProduct(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, product)
}

func (h *Handler) listProducts(c *gin.Context) {
	products, err := h.catalog.ListProducts(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"products": products})
}

func (h *Handler) listLowStockProducts(c *gin.Context) {
	products, err := h.catalog.ListLowStockProducts(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"products": products})
}

// getProduct serves product reads through the redis snapshot cache.
func (h *Handler) getProduct(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()

	if h.redis != nil {
		var cached models.Product
		if found, err := h.redis.GetProduct(ctx, id, &cached); err == nil && found {
			c.JSON(http.StatusOK, cached)
			return
		}
	}

	product, err := h.catalog.GetProduct(ctx, id)
	if err != nil {
		respondError(c, err)
		return
	}

	if h.redis != nil {
		_ = h.redis.SetProduct(ctx, id, product, h.productTTL)
	}
	c.JSON(http.StatusOK, product)
}

func (h *Handler) updateProduct(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	var req service.CreateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}

	product, err := h.catalog.UpdateProduct(c.Request.Context(), id, &req)
	if err != nil {
		respondError(c, err)
		return
	}

	if h.redis != nil {
		_ = h.redis.InvalidateProduct(c.Request.Context(), id)
	}
	c.JSON(http.StatusOK, product)
}

func (h *Handler) deleteProduct(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := h.catalog.DeleteProduct(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	if h.redis != nil {
		_ = h.redis.InvalidateProduct(c.Request.Context(), id)
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) createOrder(c *gin.Context) {
	var req service.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}

	order, err := h.orders.CreateOrder(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, order)
}

func (h *Handler) listOrders(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	orders, err := h.orders.ListOrders(c.Request.Context(), c.Query("status"), limit, offset)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"orders": orders})
}

func (h *Handler) getOrder(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	order, lines, err := h.orders.GetOrder(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"order": order, "lines": lines})
}

func (h *Handler) deleteOrder(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := h.orders.DeleteOrder(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) updateOrderStatus(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	var req struct {
		Status string `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}

	order, err := h.orders.UpdateStatus(c.Request.Context(), id, req.Status)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

func (h *Handler) addOrderLine(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	var req struct {
		ProductID int64 `json:"product_id" binding:"required"`
		Quantity  int   `json:"quantity" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}

	line, order, err := h.orders.AddLine(c.Request.Context(), id, req.ProductID, req.Quantity)
	if err != nil {
		respondError(c, err)
		return
	}

	// Line mutations change the product stock without a ledger event, so the
	// snapshot cache has to be dropped here.
	if h.redis != nil {
		_ = h.redis.InvalidateProduct(c.Request.Context(), req.ProductID)
	}
	c.JSON(http.StatusCreated, gin.H{"line": line, "order_total": order.Total})
}

func (h *Handler) removeOrderLine(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	line, order, err := h.orders.RemoveLine(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	if h.redis != nil {
		_ = h.redis.InvalidateProduct(c.Request.Context(), line.ProductID)
	}
	c.JSON(http.StatusOK, gin.H{"order_total": order.Total})
}

func (h *Handler) recomputeOrderTotal(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	total, err := h.orders.RecomputeTotal(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"order_id": id, "total": total})
}

func (h *Handler) recordMovement(c *gin.Context) {
	var req service.RecordMovementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}

	movement, product, err := h.stock.RecordMovement(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	if h.redis != nil {
		_ = h.redis.InvalidateProduct(c.Request.Context(), product.ID)
	}
	c.JSON(http.StatusCreated, gin.H{"movement": movement, "stock": product.Stock})
}

func (h *Handler) listMovements(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	var productID *int64
	if raw := c.Query("product_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid product_id"})
			return
		}
		productID = &id
	}

	movements, total, err := h.stock.ListMovements(
		c.Request.Context(), c.Query("type"), productID, limit, offset)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"movements": movements, "total": total})
}

func (h *Handler) listStockAlerts(c *gin.Context) {
	if h.redis == nil {
		c.JSON(http.StatusOK, gin.H{"product_ids": []int64{}})
		return
	}

	ids, err := h.redis.LowStockProductIDs(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"product_ids": ids})
}

// parseReportRange reads from/to dates (YYYY-MM-DD) and the optional status
// filter shared by the report endpoints.
func parseReportRange(c *gin.Context) (time.Time, time.Time, []string, bool) {
	from, err := time.Parse("2006-01-02", c.Query("from"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid or missing from date"})
		return time.Time{}, time.Time{}, nil, false
	}
	to, err := time.Parse("2006-01-02", c.Query("to"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid or missing to date"})
		return time.Time{}, time.Time{}, nil, false
	}
	return from, to, c.QueryArray("status"), true
}

func (h *Handler) salesSummary(c *gin.Context) {
	from, to, statuses, ok := parseReportRange(c)
	if !ok {
		return
	}

	summary, err := h.reports.SalesSummary(c.Request.Context(), from, to, statuses)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

func (h *Handler) dailySales(c *gin.Context) {
	from, to, statuses, ok := parseReportRange(c)
	if !ok {
		return
	}

	days, err := h.reports.DailySales(c.Request.Context(), from, to, statuses)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"days": days})
}

func (h *Handler) topProducts(c *gin.Context) {
	from, to, statuses, ok := parseReportRange(c)
	if !ok {
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))

	top, err := h.reports.TopProducts(c.Request.Context(), from, to, statuses, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"products": top})
}

func (h *Handler) orderCounts(c *gin.Context) {
	counts, err := h.reports.OrderCountsByStatus(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"counts": counts})
}

func (h *Handler) stockDashboard(c *gin.Context) {
	dashboard, err := h.reports.StockDashboard(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dashboard)
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
