package apihandlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/maneesh0001/Security-Thriftstore-backend/pkg/apihelpers"
	mw "github.com/maneesh0001/Security-Thriftstore-backend/pkg/apihelpers/middlewares"
	"github.com/maneesh0001/Security-Thriftstore-backend/pkg/audit"
	commerceDB "github.com/maneesh0001/Security-Thriftstore-backend/pkg/db/commerce"
	"github.com/maneesh0001/Security-Thriftstore-backend/pkg/payment"
)

func (h *HttpEndpoints) AddProductsAPI(rg *gin.RouterGroup) {
	productsGroup := rg.Group("/products")
	{
		productsGroup.GET("", h.getProducts)
		productsGroup.GET("/:productID", h.getProduct)
	}

	adminGroup := rg.Group("/admin/products")
	adminGroup.Use(mw.SessionAuth(h.accountDBConn))
	adminGroup.Use(mw.RequireAdmin())
	adminGroup.Use(mw.PasswordExpiryGate(h.accountDBConn))
	{
		adminGroup.POST("", mw.RequirePayload(), h.createProduct)
		adminGroup.PUT("/:productID", mw.RequirePayload(), h.updateProduct)
		adminGroup.DELETE("/:productID", h.deleteProduct)
	}
}

func (h *HttpEndpoints) getProducts(c *gin.Context) {
	query, err := apihelpers.ParsePaginatedQueryFromCtx(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid pagination parameters"})
		return
	}

	products, total, err := h.commerceDBConn.GetProducts(c.Query("category"), query.Page, query.Limit)
	if err != nil {
		slog.Error("failed to load products", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"products": products,
		"total":    total,
		"page":     query.Page,
	})
}

func (h *HttpEndpoints) getProduct(c *gin.Context) {
	product, err := h.commerceDBConn.GetProductByID(c.Param("productID"))
	if err != nil {
		if errors.Is(err, payment.ErrProductNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "product not found"})
			return
		}
		slog.Error("failed to load product", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}
	c.JSON(http.StatusOK, product)
}

type ProductReq struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Category    string  `json:"category"`
	Price       float64 `json:"price"`
	RentalPrice float64 `json:"rentalPrice"`
	ImageURL    string  `json:"imageUrl"`
	Stock       int     `json:"stock"`
}

func (req ProductReq) toProduct() commerceDB.Product {
	return commerceDB.Product{
		Name:        req.Name,
		Description: req.Description,
		Category:    req.Category,
		Price:       req.Price,
		RentalPrice: req.RentalPrice,
		ImageURL:    req.ImageURL,
		Stock:       req.Stock,
	}
}

func (req ProductReq) validate() error {
	if req.Name == "" {
		return errors.New("product name missing")
	}
	if req.Price < 0 || req.RentalPrice < 0 {
		return errors.New("prices must not be negative")
	}
	if req.Price == 0 && req.RentalPrice == 0 {
		return errors.New("either price or rentalPrice must be set")
	}
	if req.Stock < 0 {
		return errors.New("stock must not be negative")
	}
	return nil
}

func (h *HttpEndpoints) createProduct(c *gin.Context) {
	session, _ := mw.GetSessionFromContext(c)

	var req ProductReq
	if err := c.ShouldBindJSON(&req); err != nil {
		slog.Error("failed to bind request", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := req.validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	product, err := h.commerceDBConn.CreateProduct(req.toProduct())
	if err != nil {
		slog.Error("failed to create product", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}

	h.recordAudit(c, audit.ACTION_PRODUCT_CREATED, session.AccountID, session.Email, map[string]string{
		"productId": product.ID.Hex(),
		"name":      product.Name,
	})
	c.JSON(http.StatusCreated, product)
}

func (h *HttpEndpoints) updateProduct(c *gin.Context) {
	var req ProductReq
	if err := c.ShouldBindJSON(&req); err != nil {
		slog.Error("failed to bind request", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := req.validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	err := h.commerceDBConn.UpdateProduct(c.Param("productID"), req.toProduct())
	if err != nil {
		if errors.Is(err, payment.ErrProductNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "product not found"})
			return
		}
		slog.Error("failed to update product", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "product updated"})
}

func (h *HttpEndpoints) deleteProduct(c *gin.Context) {
	session, _ := mw.GetSessionFromContext(c)

	productID := c.Param("productID")
	err := h.commerceDBConn.DeleteProduct(productID)
	if err != nil {
		if errors.Is(err, payment.ErrProductNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "product not found"})
			return
		}
		slog.Error("failed to delete product", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}

	h.recordAudit(c, audit.ACTION_PRODUCT_DELETED, session.AccountID, session.Email, map[string]string{
		"productId": productID,
	})
	c.JSON(http.StatusOK, gin.H{"message": "product deleted"})
}
