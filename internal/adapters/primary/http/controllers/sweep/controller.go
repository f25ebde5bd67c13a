package sweepController

import (
	"crypto/subtle"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/admin/tg-bots/premium-club/internal/usecases/lifecycle"
	"github.com/gin-gonic/gin"
)

// Config защита ручного запуска свипов
type Config struct {
	CronSecret string `envconfig:"CRON_SECRET" required:"true"`
}

type Controller struct {
	LifecycleService *lifecycle.Service
	Cfg              Config
	Log              *slog.Logger
}

func New(lifecycleService *lifecycle.Service, cfg Config, log *slog.Logger) *Controller {
	return &Controller{
		LifecycleService: lifecycleService,
		Cfg:              cfg,
		Log:              log,
	}
}

func (c *Controller) RegisterRoutes(router *gin.Engine) {
	jobs := router.Group("/jobs", c.requireCronSecret)
	{
		jobs.POST("/sweep", c.runSweep)
	}
}

// requireCronSecret пускает только запросы с валидным shared-секретом
func (c *Controller) requireCronSecret(ctx *gin.Context) {
	secret := ctx.GetHeader("X-Cron-Secret")
	if secret == "" {
		if auth := ctx.GetHeader("Authorization"); strings.HasPrefix(auth, "Bearer ") {
			secret = strings.TrimPrefix(auth, "Bearer ")
		}
	}

	if subtle.ConstantTimeCompare([]byte(secret), []byte(c.Cfg.CronSecret)) != 1 {
		c.Log.Warn("sweep trigger rejected, bad cron secret")
		ctx.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	ctx.Next()
}

// SweepResponse результат ручного запуска свипа
type SweepResponse struct {
	Expire    string `json:"expire"`
	Retry     string `json:"retry"`
	Reminder  string `json:"reminder"`
	Reinstate string `json:"reinstate"`
	Grants    string `json:"grants"`
}

// runSweep прогоняет все свипы подряд, как ночная джоба
func (c *Controller) runSweep(ctx *gin.Context) {
	now := time.Now()
	reqCtx := ctx.Request.Context()

	expire, err := c.LifecycleService.ExpireSweep(reqCtx, now)
	if err != nil {
		c.sweepError(ctx, "expire", err)
		return
	}

	retry, err := c.LifecycleService.RetryRevokeSweep(reqCtx)
	if err != nil {
		c.sweepError(ctx, "retry", err)
		return
	}

	reminder, err := c.LifecycleService.ReminderSweep(reqCtx, now)
	if err != nil {
		c.sweepError(ctx, "reminder", err)
		return
	}

	reinstate, err := c.LifecycleService.ReinstateSweep(reqCtx, now)
	if err != nil {
		c.sweepError(ctx, "reinstate", err)
		return
	}

	grants, err := c.LifecycleService.RetryGrantSweep(reqCtx, now)
	if err != nil {
		c.sweepError(ctx, "grants", err)
		return
	}

	c.Log.Info("manual sweep finished",
		"kicked", expire.Kicked,
		"retried", retry.Kicked,
		"reminded", reminder.Reminded,
		"reinstated", reinstate.Reinstated,
		"granted", grants.Granted,
	)

	ctx.JSON(http.StatusOK, SweepResponse{
		Expire:    expire.String(),
		Retry:     retry.String(),
		Reminder:  reminder.String(),
		Reinstate: reinstate.String(),
		Grants:    grants.String(),
	})
}

func (c *Controller) sweepError(ctx *gin.Context, stage string, err error) {
	c.Log.Error("manual sweep failed", "stage", stage, "error", err)
	ctx.JSON(http.StatusInternalServerError, gin.H{
		"error": fmt.Sprintf("%s sweep failed", stage),
	})
}
