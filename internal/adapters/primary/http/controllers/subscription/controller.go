package subscriptionController

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/admin/tg-bots/premium-club/internal/domain"
	"github.com/admin/tg-bots/premium-club/internal/ports/repository"
	"github.com/gin-gonic/gin"
)

type Controller struct {
	SubscriptionRepo repository.ISubscriptionRepo
	Log              *slog.Logger
}

func New(subscriptionRepo repository.ISubscriptionRepo, log *slog.Logger) *Controller {
	return &Controller{
		SubscriptionRepo: subscriptionRepo,
		Log:              log,
	}
}

func (c *Controller) RegisterRoutes(router *gin.Engine) {
	router.GET("/subscription/:telegram_id", c.getSubscription)
}

// SubscriptionResponse статус подписки для мини-аппа
type SubscriptionResponse struct {
	Active    bool       `json:"active"`
	Tariff    *string    `json:"tariff,omitempty"`
	State     *string    `json:"state,omitempty"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
	DaysLeft  *int       `json:"days_left,omitempty"`
}

func (c *Controller) getSubscription(ctx *gin.Context) {
	telegramID, err := strconv.ParseInt(ctx.Param("telegram_id"), 10, 64)
	if err != nil || telegramID <= 0 {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid telegram_id"})
		return
	}

	sub, err := c.SubscriptionRepo.GetByTelegramID(ctx.Request.Context(), telegramID)
	if err != nil {
		c.Log.Error("failed to get subscription",
			"telegram_id", telegramID,
			"error", err,
		)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	if sub == nil {
		ctx.JSON(http.StatusOK, SubscriptionResponse{Active: false})
		return
	}

	now := time.Now()
	tariff := string(sub.Tariff)
	state := string(sub.State)
	daysLeft := int(sub.ExpiresAt.Sub(now).Hours() / 24)
	if daysLeft < 0 {
		daysLeft = 0
	}

	// reinstated — это тоже действующий доступ, просто ещё не подтверждён свипом
	active := (sub.State == domain.MembershipActive || sub.State == domain.MembershipReinstated) && !sub.IsExpired(now)

	ctx.JSON(http.StatusOK, SubscriptionResponse{
		Active:    active,
		Tariff:    &tariff,
		State:     &state,
		ExpiresAt: &sub.ExpiresAt,
		DaysLeft:  &daysLeft,
	})
}
