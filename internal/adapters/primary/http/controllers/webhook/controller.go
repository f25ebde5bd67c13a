package webhookController

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/admin/tg-bots/premium-club/internal/domain"
	"github.com/admin/tg-bots/premium-club/internal/usecases/payment"
	"github.com/gin-gonic/gin"
)

const maxBodySize = 1 << 20 // 1MB

// slug в URL → провайдер ("lava.top" в пути не живёт из-за точки)
var providerSlugs = map[string]domain.Provider{
	"lava":         domain.ProviderLavaTop,
	"0xprocessing": domain.ProviderOxProcessing,
	"toolsy":       domain.ProviderToolsy,
}

type Controller struct {
	PaymentService *payment.Service
	Log            *slog.Logger
}

func New(paymentService *payment.Service, log *slog.Logger) *Controller {
	return &Controller{
		PaymentService: paymentService,
		Log:            log,
	}
}

func (c *Controller) RegisterRoutes(router *gin.Engine) {
	router.POST("/webhooks/:provider", c.handleWebhook)
}

func (c *Controller) handleWebhook(ctx *gin.Context) {
	slug := ctx.Param("provider")
	prov, ok := providerSlugs[slug]
	if !ok {
		c.Log.Warn("webhook for unknown provider", "provider", slug)
		ctx.JSON(http.StatusNotFound, gin.H{"error": "unknown provider"})
		return
	}

	body, err := io.ReadAll(io.LimitReader(ctx.Request.Body, maxBodySize))
	if err != nil {
		c.Log.Error("failed to read webhook body",
			"provider", prov,
			"error", err,
		)
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
		return
	}

	err = c.PaymentService.HandleWebhook(ctx.Request.Context(), prov, ctx.Request.Header, body)
	if err != nil {
		c.writeError(ctx, prov, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// writeError маппит ошибки пайплайна на HTTP-коды.
// 5xx отдаём только когда платёж НЕ записан — провайдер перешлёт вебхук.
func (c *Controller) writeError(ctx *gin.Context, prov domain.Provider, err error) {
	switch {
	case domain.IsAuthenticityError(err):
		c.Log.Warn("webhook authenticity check failed",
			"provider", prov,
			"error", err,
		)
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "verification failed"})
	case domain.IsAdapterError(err) || errors.Is(err, domain.ErrMissingTransactionID):
		c.Log.Warn("webhook payload rejected",
			"provider", prov,
			"error", err,
		)
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
	default:
		c.Log.Error("webhook processing failed",
			"provider", prov,
			"error", err,
		)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
