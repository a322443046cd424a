package apihandlers

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/maneesh0001/Security-Thriftstore-backend/pkg/apihelpers"
	mw "github.com/maneesh0001/Security-Thriftstore-backend/pkg/apihelpers/middlewares"
	"github.com/maneesh0001/Security-Thriftstore-backend/pkg/audit"
	"github.com/maneesh0001/Security-Thriftstore-backend/pkg/payment"
	"github.com/maneesh0001/Security-Thriftstore-backend/pkg/payment/khalti"
)

func (h *HttpEndpoints) AddPaymentAPI(rg *gin.RouterGroup) {
	paymentGroup := rg.Group("/payments")
	paymentGroup.Use(mw.SessionAuth(h.accountDBConn))
	paymentGroup.Use(mw.PasswordExpiryGate(h.accountDBConn))
	{
		paymentGroup.POST("/initiate", mw.RequirePayload(), h.initiatePayment)
		paymentGroup.POST("/verify", mw.RequirePayload(), h.verifyPayment)
		paymentGroup.GET("", h.getPaymentHistory)
	}
}

type InitiatePaymentReq struct {
	// amount in the base currency unit (rupees)
	Amount float64                `json:"amount"`
	Cart   *payment.CartSnapshot  `json:"cart"`
	Items  []payment.SnapshotItem `json:"items"`
}

func (h *HttpEndpoints) initiatePayment(c *gin.Context) {
	session, ok := mw.GetSessionFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "no active session"})
		return
	}

	var req InitiatePaymentReq
	if err := c.ShouldBindJSON(&req); err != nil {
		slog.Error("failed to bind request", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Amount <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "amount must be positive"})
		return
	}

	metadata := payment.Metadata{
		Cart:  req.Cart,
		Items: req.Items,
	}
	purchaseOrderName := "Thrift Store Purchase"
	if snapshot := metadata.SnapshotItems(); len(snapshot) > 0 && snapshot[0].Name != "" {
		purchaseOrderName = snapshot[0].Name
	}

	initResp, err := h.khaltiClient.Initiate(khalti.InitiateRequest{
		ReturnURL:         h.paymentConfig.ReturnURL,
		WebsiteURL:        h.paymentConfig.WebsiteURL,
		Amount:            int64(math.Round(req.Amount * 100)),
		PurchaseOrderID:   fmt.Sprintf("purchase-%s", session.AccountID),
		PurchaseOrderName: purchaseOrderName,
		CustomerInfo: khalti.CustomerInfo{
			Name:  purchaseOrderName,
			Email: session.Email,
		},
	})
	if err != nil {
		slog.Error("payment initiation failed", slog.String("error", err.Error()))
		c.JSON(http.StatusBadGateway, gin.H{"error": "could not reach the payment gateway"})
		return
	}

	p, err := h.commerceDBConn.CreatePayment(payment.Payment{
		AccountID:             session.AccountID,
		Amount:                req.Amount,
		ExternalTransactionID: initResp.Pidx,
		Status:                payment.PAYMENT_STATUS_PENDING,
		Metadata:              metadata,
	})
	if err != nil {
		slog.Error("failed to save payment", slog.String("pidx", initResp.Pidx), slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}

	h.recordAudit(c, audit.ACTION_PAYMENT_INITIATED, session.AccountID, session.Email, map[string]string{
		"pidx":   initResp.Pidx,
		"amount": fmt.Sprintf("%.2f", req.Amount),
	})

	c.JSON(http.StatusOK, gin.H{
		"paymentId":  p.ID.Hex(),
		"pidx":       initResp.Pidx,
		"paymentUrl": initResp.PaymentURL,
	})
}

type VerifyPaymentReq struct {
	Pidx string `json:"pidx"`
}

func (h *HttpEndpoints) verifyPayment(c *gin.Context) {
	session, ok := mw.GetSessionFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "no active session"})
		return
	}

	var req VerifyPaymentReq
	if err := c.ShouldBindJSON(&req); err != nil {
		slog.Error("failed to bind request", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Pidx == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "pidx missing"})
		return
	}

	result, err := h.reconciler.VerifyPayment(req.Pidx)
	if err != nil {
		if errors.Is(err, payment.ErrPaymentNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "payment not found"})
			return
		}
		slog.Error("payment verification failed", slog.String("pidx", req.Pidx), slog.String("error", err.Error()))
		c.JSON(http.StatusBadGateway, gin.H{"error": "could not verify payment with the gateway"})
		return
	}

	switch result.Payment.Status {
	case payment.PAYMENT_STATUS_COMPLETED:
		h.recordAudit(c, audit.ACTION_PAYMENT_COMPLETED, session.AccountID, session.Email, map[string]string{
			"pidx": req.Pidx,
		})
		resp := gin.H{
			"message": "payment verified",
			"payment": result.Payment,
		}
		if result.Order != nil {
			h.recordAudit(c, audit.ACTION_ORDER_CREATED, session.AccountID, session.Email, map[string]string{
				"orderNumber": result.Order.OrderNumber,
			})
			resp["order"] = result.Order
		}
		if result.OrderCreationFailed {
			resp["warning"] = "payment completed but the order could not be created yet"
		}
		c.JSON(http.StatusOK, resp)
	case payment.PAYMENT_STATUS_PENDING:
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "payment not completed yet",
			"status":  result.Payment.Status,
			"pending": true,
		})
	default:
		h.recordAudit(c, audit.ACTION_PAYMENT_FAILED, session.AccountID, session.Email, map[string]string{
			"pidx":   req.Pidx,
			"reason": result.Payment.FailureReason,
		})
		c.JSON(http.StatusBadRequest, gin.H{
			"error":  "payment was not successful",
			"status": result.Payment.Status,
			"reason": result.Payment.FailureReason,
		})
	}
}

func (h *HttpEndpoints) getPaymentHistory(c *gin.Context) {
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

	payments, total, err := h.commerceDBConn.GetPaymentsForAccount(session.AccountID, query.Page, query.Limit)
	if err != nil {
		slog.Error("failed to load payment history", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"payments": payments,
		"total":    total,
		"page":     query.Page,
	})
}
