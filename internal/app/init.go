package app

import (
	"context"
	"fmt"
	"net/http"

	server "github.com/admin/tg-bots/premium-club/internal/adapters/primary/http"
	alerterController "github.com/admin/tg-bots/premium-club/internal/adapters/primary/http/controllers/alerter"
	healthcheckController "github.com/admin/tg-bots/premium-club/internal/adapters/primary/http/controllers/healthcheck"
	reconciliationController "github.com/admin/tg-bots/premium-club/internal/adapters/primary/http/controllers/reconciliation"
	subscriptionController "github.com/admin/tg-bots/premium-club/internal/adapters/primary/http/controllers/subscription"
	sweepController "github.com/admin/tg-bots/premium-club/internal/adapters/primary/http/controllers/sweep"
	webhookController "github.com/admin/tg-bots/premium-club/internal/adapters/primary/http/controllers/webhook"
	alerterAdapter "github.com/admin/tg-bots/premium-club/internal/adapters/secondary/alerter"
	kafkaAdapter "github.com/admin/tg-bots/premium-club/internal/adapters/secondary/kafka"
	"github.com/admin/tg-bots/premium-club/internal/adapters/secondary/provider/lavatop"
	"github.com/admin/tg-bots/premium-club/internal/adapters/secondary/provider/oxprocessing"
	"github.com/admin/tg-bots/premium-club/internal/adapters/secondary/provider/toolsy"
	"github.com/admin/tg-bots/premium-club/internal/adapters/secondary/storage/inmemory"
	"github.com/admin/tg-bots/premium-club/internal/adapters/secondary/storage/pg"
	redisAdapter "github.com/admin/tg-bots/premium-club/internal/adapters/secondary/storage/redis"
	s3Adapter "github.com/admin/tg-bots/premium-club/internal/adapters/secondary/storage/s3"
	tgAdapter "github.com/admin/tg-bots/premium-club/internal/adapters/secondary/telegram"
	"github.com/admin/tg-bots/premium-club/internal/ports/cache"
	"github.com/admin/tg-bots/premium-club/internal/ports/events"
	providerPort "github.com/admin/tg-bots/premium-club/internal/ports/provider"
	"github.com/admin/tg-bots/premium-club/internal/ports/repository"
	"github.com/admin/tg-bots/premium-club/internal/ports/service"
	"github.com/admin/tg-bots/premium-club/internal/ports/storage"
	ledgerRepo "github.com/admin/tg-bots/premium-club/internal/repository/ledger"
	membershipRepo "github.com/admin/tg-bots/premium-club/internal/repository/membership"
	subscriptionRepo "github.com/admin/tg-bots/premium-club/internal/repository/subscription"
	alerterService "github.com/admin/tg-bots/premium-club/internal/services/alerter"
	jobScheduler "github.com/admin/tg-bots/premium-club/internal/services/jobs"
	"github.com/admin/tg-bots/premium-club/internal/services/notifier"
	"github.com/admin/tg-bots/premium-club/internal/usecases/lifecycle"
	"github.com/admin/tg-bots/premium-club/internal/usecases/membership"
	"github.com/admin/tg-bots/premium-club/internal/usecases/payment"
	"github.com/admin/tg-bots/premium-club/internal/usecases/rates"
	"github.com/jmoiron/sqlx"
)

type Dependencies struct {
	DB            *sqlx.DB
	HTTPServer    *http.Server
	KafkaProducer *kafkaAdapter.Producer
	Cache         cache.Cache
	JobScheduler  *jobScheduler.Scheduler
}

// initDependencies инициализирует все зависимости приложения
func (a *App) initDependencies(ctx context.Context) (*Dependencies, error) {
	db, err := a.initPostgres()
	if err != nil {
		return nil, fmt.Errorf("failed to init postgres: %w", err)
	}

	repos := a.initRepositories(db)
	external := a.initExternalServices()

	tgClient, err := a.initTelegram(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to init telegram: %w", err)
	}

	producer, err := a.initKafka()
	if err != nil {
		return nil, fmt.Errorf("failed to init kafka: %w", err)
	}

	if a.Cfg.Membership == nil {
		return nil, fmt.Errorf("membership configuration is required")
	}
	if a.Cfg.Notifier == nil {
		return nil, fmt.Errorf("notifier configuration is required")
	}

	ratesService := rates.New(external.Cache, a.Log)
	membershipService := membership.New(tgClient, repos.MembershipAction, external.Alerter, a.Cfg.Membership, a.Log)
	notifierService := notifier.New(tgClient, external.S3, *a.Cfg.Notifier, a.Log)

	var publisher events.IPaymentEventPublisher
	if producer != nil {
		publisher = producer
	}

	paymentService := payment.New(
		a.initProviders(),
		repos.Ledger,
		repos.Subscription,
		membershipService,
		notifierService,
		external.Alerter,
		publisher, // nil когда kafka выключена
		ratesService,
		a.Log,
	)

	lifecycleService := lifecycle.New(
		repos.Subscription,
		membershipService,
		notifierService,
		external.Alerter,
		a.Log,
	)

	httpServer := a.initHTTP(db, paymentService, lifecycleService, repos.Subscription, external.Alerter)
	scheduler := a.initJobScheduler(external.Alerter, external.Cache, lifecycleService, notifierService, ratesService)

	return &Dependencies{
		DB:            db,
		HTTPServer:    httpServer,
		KafkaProducer: producer,
		Cache:         external.Cache,
		JobScheduler:  scheduler,
	}, nil
}

// repositories содержит инициализированные репозитории
type repositories struct {
	Ledger           repository.ILedgerRepo
	Subscription     repository.ISubscriptionRepo
	MembershipAction repository.IMembershipActionRepo
}

// initRepositories инициализирует репозитории для работы с БД
func (a *App) initRepositories(db *sqlx.DB) *repositories {
	persistenceLayer := pg.NewDB(db)
	return &repositories{
		Ledger:           ledgerRepo.New(persistenceLayer, a.Log),
		Subscription:     subscriptionRepo.New(persistenceLayer, a.Log),
		MembershipAction: membershipRepo.New(persistenceLayer, a.Log),
	}
}

// externalServices содержит внешние сервисы (опциональные)
type externalServices struct {
	Alerter service.IAlerterService
	Cache   cache.Cache
	S3      storage.IS3Client
}

// initExternalServices инициализирует Alerter, Redis и S3
func (a *App) initExternalServices() *externalServices {
	services := &externalServices{}

	// Alerter - опциональный
	if a.Cfg.Alerter != nil {
		alerterClient := alerterAdapter.NewClient(a.Cfg.Alerter, a.Log)
		services.Alerter = alerterService.New(alerterClient)
	}

	// Redis Cache - опциональный, при недоступности работаем на in-memory фолбэке
	if a.Cfg.Redis != nil {
		redisClient, err := a.Cfg.Redis.NewConnection()
		if err != nil {
			a.Log.Warn("failed to init redis cache, falling back to in-memory", "error", err)
		} else {
			services.Cache = redisAdapter.NewClient(redisClient)
			a.Log.Info("redis cache connected successfully")
		}
	}
	if services.Cache == nil {
		services.Cache = inmemory.NewCache()
	}

	// S3 - опциональный, без него приветствия уходят без карточек тарифов
	if a.Cfg.S3 != nil {
		minioClient, err := a.Cfg.S3.NewClient()
		if err != nil {
			a.Log.Warn("failed to init s3 client, continuing without tariff cards", "error", err)
		} else {
			services.S3 = s3Adapter.NewClient(minioClient, a.Cfg.S3.Bucket, a.Log)
			a.Log.Info("s3 client connected successfully")
		}
	}

	return services
}

// initTelegram инициализирует Telegram клиент и проверяет токен
func (a *App) initTelegram(ctx context.Context) (*tgAdapter.Client, error) {
	if a.Cfg.Telegram == nil || a.Cfg.Telegram.BotToken == "" {
		return nil, fmt.Errorf("telegram bot token is required")
	}

	client := tgAdapter.NewClient(a.Cfg.Telegram.BotToken, a.Log)

	if err := client.GetMe(ctx); err != nil {
		return nil, fmt.Errorf("failed to verify bot token: %w", err)
	}

	return client, nil
}

// initKafka инициализирует Kafka producer для потока принятых платежей
func (a *App) initKafka() (*kafkaAdapter.Producer, error) {
	if a.Cfg.Kafka == nil || !a.Cfg.Kafka.Enabled {
		a.Log.Info("kafka disabled, payment events will not be published")
		return nil, nil
	}

	producer, err := kafkaAdapter.NewProducer(a.Cfg.Kafka, a.Log)
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka producer: %w", err)
	}

	a.Log.Info("kafka producer connected", "topic", a.Cfg.Kafka.Topic)
	return producer, nil
}

// initProviders собирает адаптеры платёжных провайдеров из конфигурации
func (a *App) initProviders() []providerPort.IProviderAdapter {
	var adapters []providerPort.IProviderAdapter

	if a.Cfg.LavaTop != nil {
		adapters = append(adapters, lavatop.NewAdapter(a.Cfg.LavaTop, a.Log))
	}
	if a.Cfg.OxProcessing != nil {
		adapters = append(adapters, oxprocessing.NewAdapter(a.Cfg.OxProcessing, a.Log))
	}
	if a.Cfg.Toolsy != nil {
		adapters = append(adapters, toolsy.NewAdapter(a.Cfg.Toolsy, a.Log))
	}

	for _, adapter := range adapters {
		a.Log.Info("payment provider enabled", "provider", adapter.Provider())
	}

	return adapters
}

// initHTTP инициализирует HTTP сервер и контроллеры
func (a *App) initHTTP(
	db *sqlx.DB,
	paymentService *payment.Service,
	lifecycleService *lifecycle.Service,
	subscriptions repository.ISubscriptionRepo,
	alerterSvc service.IAlerterService,
) *http.Server {
	controllers := []server.Controller{
		healthcheckController.New(db, a.Log),
		webhookController.New(paymentService, a.Log),
		subscriptionController.New(subscriptions, a.Log),
	}

	if a.Cfg.Sweep != nil && a.Cfg.Sweep.CronSecret != "" {
		controllers = append(controllers, sweepController.New(lifecycleService, *a.Cfg.Sweep, a.Log))
		controllers = append(controllers, reconciliationController.New(paymentService, a.Cfg.Sweep.CronSecret, a.Log))
	}

	if alerterSvc != nil {
		controllers = append(controllers, alerterController.New(alerterSvc, a.Log))
	}

	return server.NewHTTPServer(a.Cfg.Server, a.Log, controllers...)
}

// initJobScheduler инициализирует планировщик джоб
func (a *App) initJobScheduler(
	alerterSvc service.IAlerterService,
	cacheClient cache.Cache,
	lifecycleService *lifecycle.Service,
	notifierService service.INotifierService,
	ratesService *rates.Service,
) *jobScheduler.Scheduler {
	scheduler := jobScheduler.NewScheduler(a.Log, alerterSvc)

	scheduler.Register(jobScheduler.NewSubscriptionExpirerJob(a.Log, lifecycleService, notifierService))
	scheduler.Register(jobScheduler.NewRenewalReminderJob(a.Log, lifecycleService))
	scheduler.Register(jobScheduler.NewReinstaterJob(a.Log, lifecycleService))

	// Джоба курсов имеет смысл только при живом кэше
	if cacheClient != nil {
		scheduler.Register(jobScheduler.NewRatesUpdaterJob(a.Log, ratesService, a.Cfg.Rates.Overrides, a.Cfg.Rates.RefreshInterval))
	}

	return scheduler
}

// initPostgres инициализирует подключение к PostgreSQL и запускает миграции
func (a *App) initPostgres() (*sqlx.DB, error) {
	db, err := a.Cfg.Postgres.NewConnection()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}

	a.Log.Info("postgres connected successfully")

	if err := pg.RunMigrations(db, a.Log); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return db, nil
}
