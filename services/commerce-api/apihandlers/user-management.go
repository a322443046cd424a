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
	accountDB "github.com/maneesh0001/Security-Thriftstore-backend/pkg/db/account"
	umTypes "github.com/maneesh0001/Security-Thriftstore-backend/pkg/user-management/types"
	umUtils "github.com/maneesh0001/Security-Thriftstore-backend/pkg/user-management/utils"
)

func (h *HttpEndpoints) AddUserManagementAPI(rg *gin.RouterGroup) {
	adminGroup := rg.Group("/admin/users")
	adminGroup.Use(mw.SessionAuth(h.accountDBConn))
	adminGroup.Use(mw.RequireAdmin())
	adminGroup.Use(mw.PasswordExpiryGate(h.accountDBConn))
	{
		adminGroup.GET("", h.getAccounts)
		adminGroup.GET("/stats", h.getUserStats)
		adminGroup.PUT("/:accountID/role", mw.RequirePayload(), h.updateAccountRole)
		adminGroup.POST("/:accountID/unlock", h.unlockAccount)
		adminGroup.DELETE("/:accountID", h.deleteAccount)
		adminGroup.GET("/:accountID/audit-events", h.getAuditEvents)
	}
}

func (h *HttpEndpoints) getAccounts(c *gin.Context) {
	query, err := apihelpers.ParsePaginatedQueryFromCtx(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid pagination parameters"})
		return
	}

	accounts, total, err := h.accountDBConn.GetAccounts(query.Page, query.Limit)
	if err != nil {
		slog.Error("failed to load accounts", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"accounts": accounts,
		"total":    total,
		"page":     query.Page,
	})
}

func (h *HttpEndpoints) getUserStats(c *gin.Context) {
	stats, err := h.accountDBConn.GetAccountStats()
	if err != nil {
		slog.Error("failed to load account stats", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}
	c.JSON(http.StatusOK, stats)
}

type UpdateRoleReq struct {
	Role string `json:"role"`
}

func (h *HttpEndpoints) updateAccountRole(c *gin.Context) {
	session, _ := mw.GetSessionFromContext(c)

	accountID, err := primitive.ObjectIDFromHex(c.Param("accountID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid account id"})
		return
	}

	var req UpdateRoleReq
	if err := c.ShouldBindJSON(&req); err != nil {
		slog.Error("failed to bind request", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Role != umTypes.ROLE_USER && req.Role != umTypes.ROLE_ADMIN {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown role"})
		return
	}

	account, err := h.accountDBConn.GetAccountByID(accountID.Hex())
	if err != nil {
		if errors.Is(err, accountDB.ErrAccountNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "account not found"})
			return
		}
		slog.Error("failed to load account", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}

	// demoting the last admin would lock everyone out of the admin API
	if account.Role == umTypes.ROLE_ADMIN && req.Role != umTypes.ROLE_ADMIN {
		admins, err := h.accountDBConn.CountAdmins()
		if err != nil {
			slog.Error("failed to count admins", slog.String("error", err.Error()))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
			return
		}
		if admins <= 1 {
			c.JSON(http.StatusConflict, gin.H{"error": "cannot demote the last admin"})
			return
		}
	}

	if err := h.accountDBConn.UpdateAccountRole(accountID, req.Role); err != nil {
		slog.Error("failed to update role", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}

	h.recordAudit(c, audit.ACTION_ADMIN_ROLE_CHANGED, session.AccountID, session.Email, map[string]string{
		"targetAccountId": accountID.Hex(),
		"targetEmail":     umUtils.BlurEmailAddress(account.Email),
		"newRole":         req.Role,
	})
	c.JSON(http.StatusOK, gin.H{"message": "role updated"})
}

func (h *HttpEndpoints) unlockAccount(c *gin.Context) {
	session, _ := mw.GetSessionFromContext(c)

	accountID, err := primitive.ObjectIDFromHex(c.Param("accountID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid account id"})
		return
	}

	account, err := h.accountDBConn.GetAccountByID(accountID.Hex())
	if err != nil {
		if errors.Is(err, accountDB.ErrAccountNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "account not found"})
			return
		}
		slog.Error("failed to load account", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}

	if err := h.accountDBConn.ResetLockout(accountID); err != nil {
		slog.Error("failed to reset lockout", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}

	h.recordAudit(c, audit.ACTION_ADMIN_ACCOUNT_UNLOCKED, session.AccountID, session.Email, map[string]string{
		"targetAccountId": accountID.Hex(),
		"targetEmail":     umUtils.BlurEmailAddress(account.Email),
	})
	c.JSON(http.StatusOK, gin.H{"message": "account unlocked"})
}

func (h *HttpEndpoints) deleteAccount(c *gin.Context) {
	session, _ := mw.GetSessionFromContext(c)

	accountID, err := primitive.ObjectIDFromHex(c.Param("accountID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid account id"})
		return
	}

	account, err := h.accountDBConn.GetAccountByID(accountID.Hex())
	if err != nil {
		if errors.Is(err, accountDB.ErrAccountNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "account not found"})
			return
		}
		slog.Error("failed to load account", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}

	if account.Role == umTypes.ROLE_ADMIN {
		admins, err := h.accountDBConn.CountAdmins()
		if err != nil {
			slog.Error("failed to count admins", slog.String("error", err.Error()))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
			return
		}
		if admins <= 1 {
			c.JSON(http.StatusConflict, gin.H{"error": "cannot delete the last admin"})
			return
		}
	}

	if err := h.accountDBConn.DeleteAccount(accountID); err != nil {
		slog.Error("failed to delete account", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}
	if err := h.accountDBConn.DeleteSessionsForAccount(accountID.Hex()); err != nil {
		slog.Error("failed to delete sessions of removed account", slog.String("error", err.Error()))
	}

	h.recordAudit(c, audit.ACTION_ADMIN_USER_DELETED, session.AccountID, session.Email, map[string]string{
		"targetAccountId": accountID.Hex(),
		"targetEmail":     umUtils.BlurEmailAddress(account.Email),
	})
	c.JSON(http.StatusOK, gin.H{"message": "account deleted"})
}

func (h *HttpEndpoints) getAuditEvents(c *gin.Context) {
	query, err := apihelpers.ParsePaginatedQueryFromCtx(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid pagination parameters"})
		return
	}

	events, err := h.auditDBConn.GetEventsForAccount(c.Param("accountID"), query.Limit)
	if err != nil {
		slog.Error("failed to load audit events", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"events": events})
}
