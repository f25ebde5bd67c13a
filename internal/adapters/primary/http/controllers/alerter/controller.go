package alerter

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/admin/tg-bots/premium-club/internal/ports/service"
	"github.com/gin-gonic/gin"
)

// Controller принимает внешние алерты (хостинг, внутренние скрипты)
// и пересылает их оператору. Регистрируется только при настроенном алертере.
type Controller struct {
	AlerterService service.IAlerterService
	Log            *slog.Logger
}

func New(alerterService service.IAlerterService, log *slog.Logger) *Controller {
	return &Controller{
		AlerterService: alerterService,
		Log:            log,
	}
}

func (c *Controller) RegisterRoutes(router *gin.Engine) {
	router.POST("/webhooks/railway", c.handleRailwayWebhook)
	router.POST("/webhooks/alert", c.handleGenericAlert)
}

func (c *Controller) handleRailwayWebhook(ctx *gin.Context) {
	var payload RailwayWebhookPayload

	if err := ctx.ShouldBindJSON(&payload); err != nil {
		c.Log.Warn("failed to bind railway webhook request", "error", err)
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	c.Log.Debug("received railway webhook",
		"type", payload.Type,
		"service", payload.Resource.Service.Name,
		"severity", payload.Severity,
	)

	c.forward(ctx, formatRailwayAlert(payload))
}

// handleGenericAlert свободная форма: внутренние cron-скрипты и мониторинг
func (c *Controller) handleGenericAlert(ctx *gin.Context) {
	var payload GenericAlertPayload

	if err := ctx.ShouldBindJSON(&payload); err != nil {
		c.Log.Warn("failed to bind generic alert request", "error", err)
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	if payload.Message == "" {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "message is required"})
		return
	}

	message := payload.Message
	if payload.Source != "" {
		message = fmt.Sprintf("🔔 Источник: %s\n\n%s", payload.Source, payload.Message)
	}

	c.forward(ctx, message)
}

// forward шлёт алерт оператору; отправителю всегда 200, чтобы он не ретраил
func (c *Controller) forward(ctx *gin.Context, message string) {
	if err := c.AlerterService.SendAlert(ctx.Request.Context(), message); err != nil {
		c.Log.Warn("failed to forward alert", "error", err)
		ctx.JSON(http.StatusOK, gin.H{"ok": false, "error": "failed to send alert"})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"ok": true})
}

func formatRailwayAlert(payload RailwayWebhookPayload) string {
	var b strings.Builder

	b.WriteString("🚨 ")
	b.WriteString(formatEventType(payload.Type))
	if payload.Severity != "" {
		fmt.Fprintf(&b, " [%s]", payload.Severity)
	}
	b.WriteString("\n\n📦 ")
	b.WriteString(payload.Resource.Project.Name)
	if payload.Resource.Service.Name != "" {
		b.WriteString(" / ")
		b.WriteString(payload.Resource.Service.Name)
	}
	b.WriteString("\n")

	if env := payload.Resource.Environment; env.Name != "" {
		fmt.Fprintf(&b, "🌍 Окружение: %s", env.Name)
		if env.IsEphemeral {
			b.WriteString(" (ephemeral)")
		}
		b.WriteString("\n")
	}

	if payload.Details.Status != "" {
		fmt.Fprintf(&b, "📊 Статус: %s\n", formatStatus(payload.Details.Status))
	}
	if payload.Details.Branch != "" {
		fmt.Fprintf(&b, "🌿 Ветка: %s\n", payload.Details.Branch)
	}

	if hash := payload.Details.CommitHash; hash != "" {
		if len(hash) > 7 {
			hash = hash[:7]
		}
		fmt.Fprintf(&b, "🔹 Коммит: %s", hash)
		if payload.Details.CommitAuthor != "" {
			fmt.Fprintf(&b, " (%s)", payload.Details.CommitAuthor)
		}
		b.WriteString("\n")
	}

	if msg := payload.Details.CommitMessage; msg != "" {
		if len(msg) > 100 {
			msg = msg[:100] + "..."
		}
		fmt.Fprintf(&b, "💬 %s\n", msg)
	}

	if payload.Timestamp != "" {
		if t, err := time.Parse(time.RFC3339, payload.Timestamp); err == nil {
			fmt.Fprintf(&b, "⏰ %s\n", t.Format("02.01.2006 15:04:05"))
		}
	}

	return b.String()
}

func formatEventType(eventType string) string {
	parts := strings.Split(eventType, ".")
	for i, part := range parts {
		if len(part) > 0 {
			parts[i] = strings.ToUpper(string(part[0])) + strings.ToLower(part[1:])
		}
	}
	return strings.Join(parts, " ")
}

func formatStatus(status string) string {
	switch strings.ToUpper(status) {
	case "SUCCESS":
		return "✅ SUCCESS"
	case "FAILED":
		return "❌ FAILED"
	case "BUILDING":
		return "🔨 BUILDING"
	case "DEPLOYING":
		return "🚀 DEPLOYING"
	case "INACTIVE":
		return "💤 INACTIVE"
	default:
		return status
	}
}
