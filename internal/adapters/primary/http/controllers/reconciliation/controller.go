package reconciliationController

import (
	"crypto/subtle"
	"log/slog"
	"net/http"
	"strings"

	"github.com/admin/tg-bots/premium-club/internal/domain"
	"github.com/admin/tg-bots/premium-club/internal/usecases/payment"
	"github.com/gin-gonic/gin"
)

// Controller операторская очередь ручной сверки платежей без идентичности
type Controller struct {
	PaymentService *payment.Service
	Secret         string
	Log            *slog.Logger
}

func New(paymentService *payment.Service, secret string, log *slog.Logger) *Controller {
	return &Controller{
		PaymentService: paymentService,
		Secret:         secret,
		Log:            log,
	}
}

func (c *Controller) RegisterRoutes(router *gin.Engine) {
	group := router.Group("/reconciliation", c.requireSecret)
	{
		group.GET("", c.listQueue)
		group.POST("/resolve", c.resolve)
	}
}

func (c *Controller) requireSecret(ctx *gin.Context) {
	secret := ctx.GetHeader("X-Cron-Secret")
	if secret == "" {
		if auth := ctx.GetHeader("Authorization"); strings.HasPrefix(auth, "Bearer ") {
			secret = strings.TrimPrefix(auth, "Bearer ")
		}
	}

	if subtle.ConstantTimeCompare([]byte(secret), []byte(c.Secret)) != 1 {
		c.Log.Warn("reconciliation request rejected, bad secret")
		ctx.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	ctx.Next()
}

func (c *Controller) listQueue(ctx *gin.Context) {
	entries, err := c.PaymentService.ListReconciliationQueue(ctx.Request.Context())
	if err != nil {
		c.Log.Error("failed to list reconciliation queue", "error", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list queue"})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"count":   len(entries),
		"entries": entries,
	})
}

// ResolveRequest привязка зависшего платежа к клиенту
type ResolveRequest struct {
	Provider     string `json:"provider" binding:"required"`
	ProviderTxID string `json:"provider_tx_id" binding:"required"`
	TelegramID   int64  `json:"telegram_id" binding:"required"`
}

func (c *Controller) resolve(ctx *gin.Context) {
	var req ResolveRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	prov := domain.Provider(req.Provider)
	if !prov.IsValid() {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "unknown provider"})
		return
	}

	sub, err := c.PaymentService.ResolveReconciliation(ctx.Request.Context(), prov, req.ProviderTxID, req.TelegramID)
	if err != nil {
		c.Log.Error("reconciliation resolve failed",
			"provider", req.Provider,
			"provider_tx_id", req.ProviderTxID,
			"error", err,
		)
		ctx.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"subscription_id": sub.ID,
		"telegram_id":     req.TelegramID,
		"tariff":          sub.Tariff,
		"expires_at":      sub.ExpiresAt,
	})
}
