package app

import (
	"time"

	server "github.com/admin/tg-bots/premium-club/internal/adapters/primary/http"
	sweepController "github.com/admin/tg-bots/premium-club/internal/adapters/primary/http/controllers/sweep"
	alerterAdapter "github.com/admin/tg-bots/premium-club/internal/adapters/secondary/alerter"
	kafkaAdapter "github.com/admin/tg-bots/premium-club/internal/adapters/secondary/kafka"
	"github.com/admin/tg-bots/premium-club/internal/adapters/secondary/provider/lavatop"
	"github.com/admin/tg-bots/premium-club/internal/adapters/secondary/provider/oxprocessing"
	"github.com/admin/tg-bots/premium-club/internal/adapters/secondary/provider/toolsy"
	"github.com/admin/tg-bots/premium-club/internal/adapters/secondary/storage/pg"
	redisAdapter "github.com/admin/tg-bots/premium-club/internal/adapters/secondary/storage/redis"
	s3Adapter "github.com/admin/tg-bots/premium-club/internal/adapters/secondary/storage/s3"
	"github.com/admin/tg-bots/premium-club/internal/adapters/secondary/telegram"
	"github.com/admin/tg-bots/premium-club/internal/pkg/logger"
	"github.com/admin/tg-bots/premium-club/internal/services/notifier"
	"github.com/admin/tg-bots/premium-club/internal/usecases/membership"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Postgres *pg.Config             `envconfig:"POSTGRES"`
	Redis    *redisAdapter.Config   `envconfig:"REDIS"`
	S3       *s3Adapter.Config      `envconfig:"S3"`
	Log      *logger.Config         `envconfig:"LOG"`
	Server   *server.Config         `envconfig:"APISERVER"`
	Telegram *telegram.Config       `envconfig:"TELEGRAM"`
	Kafka    *kafkaAdapter.Config   `envconfig:"KAFKA"`
	Alerter  *alerterAdapter.Config `envconfig:"ALERTER"`

	Membership *membership.Config      `envconfig:"MEMBERSHIP"`
	Notifier   *notifier.Config        `envconfig:"NOTIFIER"`
	Sweep      *sweepController.Config `envconfig:"SWEEP"`
	Rates      RatesConfig             `envconfig:"RATES"`

	LavaTop      *lavatop.Config      `envconfig:"LAVA"`
	OxProcessing *oxprocessing.Config `envconfig:"OXPROCESSING"`
	Toolsy       *toolsy.Config       `envconfig:"TOOLSY"`
}

// RatesConfig настройки обновления таблицы курсов.
// Overrides задаются строкой вида "EUR:1.08,RUB:0.011".
type RatesConfig struct {
	RefreshInterval time.Duration     `envconfig:"REFRESH_INTERVAL" default:"12h"`
	Overrides       map[string]string `envconfig:"OVERRIDES"`
}

func NewEnvConfig(envPrefix string) (*Config, error) {
	cfg := &Config{}

	_ = godotenv.Load("deployments/local/.env")

	if err := envconfig.Process(envPrefix, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}
