package apihandlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/maneesh0001/Security-Thriftstore-backend/pkg/apihelpers"
	mw "github.com/maneesh0001/Security-Thriftstore-backend/pkg/apihelpers/middlewares"
	"github.com/maneesh0001/Security-Thriftstore-backend/pkg/audit"
	"github.com/maneesh0001/Security-Thriftstore-backend/pkg/payment"
	umTypes "github.com/maneesh0001/Security-Thriftstore-backend/pkg/user-management/types"
	"github.com/maneesh0001/Security-Thriftstore-backend/pkg/utils"
)

func (h *HttpEndpoints) AddOrdersAPI(rg *gin.RouterGroup) {
	ordersGroup := rg.Group("/orders")
	ordersGroup.Use(mw.SessionAuth(h.accountDBConn))
	ordersGroup.Use(mw.PasswordExpiryGate(h.accountDBConn))
	{
		ordersGroup.GET("", h.getOrders)
		ordersGroup.GET("/:orderID", h.getOrder)
		ordersGroup.POST("/:orderID/cancel", h.cancelOrder)
	}

	adminGroup := rg.Group("/admin/orders")
	adminGroup.Use(mw.SessionAuth(h.accountDBConn))
	adminGroup.Use(mw.RequireAdmin())
	adminGroup.Use(mw.PasswordExpiryGate(h.accountDBConn))
	{
		adminGroup.GET("", h.getAllOrders)
		adminGroup.GET("/stats", h.getOrderStats)
		adminGroup.PUT("/:orderID/status", mw.RequirePayload(), h.updateOrderStatus)
	}
}

func (h *HttpEndpoints) getOrders(c *gin.Context) {
	session, ok := mw.GetSessionFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "no active session"})
		return
	}

	query, err := apihelpers.ParsePaginatedQueryFromCtx(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid pagination parameters"})
		return
	}

	orders, total, err := h.commerceDBConn.GetOrdersForAccount(session.AccountID, query.Page, query.Limit)
	if err != nil {
		slog.Error("failed to load orders", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"orders": orders,
		"total":  total,
		"page":   query.Page,
	})
}

func (h *HttpEndpoints) getOrder(c *gin.Context) {
	session, ok := mw.GetSessionFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "no active session"})
		return
	}

	orderID, err := primitive.ObjectIDFromHex(c.Param("orderID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid order id"})
		return
	}

	order, err := h.commerceDBConn.GetOrderByID(orderID)
	if err != nil {
		if errors.Is(err, payment.ErrOrderNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "order not found"})
			return
		}
		slog.Error("failed to load order", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}
	if order.AccountID != session.AccountID && session.Role != umTypes.ROLE_ADMIN {
		// do not leak existence of other accounts' orders
		c.JSON(http.StatusNotFound, gin.H{"error": "order not found"})
		return
	}

	c.JSON(http.StatusOK, order)
}

// statuses an order can still be cancelled from; once shipped it is too late
var cancellableOrderStatuses = []string{
	payment.ORDER_STATUS_PENDING,
	payment.ORDER_STATUS_CONFIRMED,
	payment.ORDER_STATUS_PROCESSING,
}

func orderCancellable(status string) bool {
	return utils.ContainsString(cancellableOrderStatuses, status)
}

func (h *HttpEndpoints) cancelOrder(c *gin.Context) {
	session, ok := mw.GetSessionFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "no active session"})
		return
	}

	orderID, err := primitive.ObjectIDFromHex(c.Param("orderID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid order id"})
		return
	}

	order, err := h.commerceDBConn.GetOrderByID(orderID)
	if err != nil {
		if errors.Is(err, payment.ErrOrderNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "order not found"})
			return
		}
		slog.Error("failed to load order", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}
	if order.AccountID != session.AccountID {
		c.JSON(http.StatusNotFound, gin.H{"error": "order not found"})
		return
	}
	if !orderCancellable(order.Status) {
		c.JSON(http.StatusConflict, gin.H{"error": "order can no longer be cancelled"})
		return
	}

	// guarded by the status read above, a concurrent transition loses here
	updated, err := h.commerceDBConn.UpdateOrderStatus(orderID, order.Status, payment.ORDER_STATUS_CANCELLED)
	if err != nil {
		slog.Error("failed to cancel order", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}
	if !updated {
		c.JSON(http.StatusConflict, gin.H{"error": "order can no longer be cancelled"})
		return
	}

	h.recordAudit(c, audit.ACTION_ORDER_CANCELLED, session.AccountID, session.Email, map[string]string{
		"orderId": orderID.Hex(),
	})
	c.JSON(http.StatusOK, gin.H{"message": "order cancelled"})
}

func (h *HttpEndpoints) getAllOrders(c *gin.Context) {
	query, err := apihelpers.ParsePaginatedQueryFromCtx(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid pagination parameters"})
		return
	}

	status := c.Query("status")
	if status != "" && !utils.ContainsString(allowedOrderStatuses, status) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown order status"})
		return
	}

	orders, total, err := h.commerceDBConn.GetOrders(status, query.Page, query.Limit)
	if err != nil {
		slog.Error("failed to load orders", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"orders": orders,
		"total":  total,
		"page":   query.Page,
	})
}

func (h *HttpEndpoints) getOrderStats(c *gin.Context) {
	stats, err := h.commerceDBConn.GetOrderStats()
	if err != nil {
		slog.Error("failed to load order stats", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}
	c.JSON(http.StatusOK, stats)
}

type UpdateOrderStatusReq struct {
	FromStatus string `json:"fromStatus"`
	ToStatus   string `json:"toStatus"`
}

var allowedOrderStatuses = []string{
	payment.ORDER_STATUS_PENDING,
	payment.ORDER_STATUS_CONFIRMED,
	payment.ORDER_STATUS_PROCESSING,
	payment.ORDER_STATUS_SHIPPED,
	payment.ORDER_STATUS_DELIVERED,
	payment.ORDER_STATUS_CANCELLED,
}

func (h *HttpEndpoints) updateOrderStatus(c *gin.Context) {
	orderID, err := primitive.ObjectIDFromHex(c.Param("orderID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid order id"})
		return
	}

	var req UpdateOrderStatusReq
	if err := c.ShouldBindJSON(&req); err != nil {
		slog.Error("failed to bind request", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !utils.ContainsString(allowedOrderStatuses, req.ToStatus) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown order status"})
		return
	}

	updated, err := h.commerceDBConn.UpdateOrderStatus(orderID, req.FromStatus, req.ToStatus)
	if err != nil {
		slog.Error("failed to update order status", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}
	if !updated {
		c.JSON(http.StatusConflict, gin.H{"error": "order is not in the expected status"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "order status updated"})
}
