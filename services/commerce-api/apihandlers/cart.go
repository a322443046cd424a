package apihandlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	mw "github.com/maneesh0001/Security-Thriftstore-backend/pkg/apihelpers/middlewares"
	"github.com/maneesh0001/Security-Thriftstore-backend/pkg/payment"
)

func (h *HttpEndpoints) AddCartAPI(rg *gin.RouterGroup) {
	cartGroup := rg.Group("/cart")
	cartGroup.Use(mw.SessionAuth(h.accountDBConn))
	cartGroup.Use(mw.PasswordExpiryGate(h.accountDBConn))
	{
		cartGroup.GET("", h.getCart)
		cartGroup.POST("/items", mw.RequirePayload(), h.setCartItem)
		cartGroup.DELETE("/items/:productID", h.removeCartItem)
		cartGroup.DELETE("", h.clearCart)
	}
}

func (h *HttpEndpoints) getCart(c *gin.Context) {
	session, ok := mw.GetSessionFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "no active session"})
		return
	}

	cart, err := h.commerceDBConn.GetCartForAccount(session.AccountID)
	if err != nil {
		slog.Error("failed to load cart", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}
	c.JSON(http.StatusOK, cart)
}

type SetCartItemReq struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

func (h *HttpEndpoints) setCartItem(c *gin.Context) {
	session, ok := mw.GetSessionFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "no active session"})
		return
	}

	var req SetCartItemReq
	if err := c.ShouldBindJSON(&req); err != nil {
		slog.Error("failed to bind request", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.ProductID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "productId missing"})
		return
	}

	if req.Quantity > 0 {
		// reject items that do not exist in the catalog
		if _, err := h.commerceDBConn.GetProductByID(req.ProductID); err != nil {
			if errors.Is(err, payment.ErrProductNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "product not found"})
				return
			}
			slog.Error("failed to load product", slog.String("error", err.Error()))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
			return
		}
	}

	if err := h.commerceDBConn.SetCartItem(session.AccountID, req.ProductID, req.Quantity); err != nil {
		slog.Error("failed to update cart", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "cart updated"})
}

func (h *HttpEndpoints) removeCartItem(c *gin.Context) {
	session, ok := mw.GetSessionFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "no active session"})
		return
	}

	if err := h.commerceDBConn.RemoveCartItem(session.AccountID, c.Param("productID")); err != nil {
		slog.Error("failed to remove cart item", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "item removed"})
}

func (h *HttpEndpoints) clearCart(c *gin.Context) {
	session, ok := mw.GetSessionFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "no active session"})
		return
	}

	if err := h.commerceDBConn.ClearCart(session.AccountID); err != nil {
		slog.Error("failed to clear cart", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "cart cleared"})
}
