package bootstrap

import (
	"context"
	"log"
	"time"

	"lifestory-be/internal/config"
	"lifestory-be/internal/controller"
	"lifestory-be/internal/handler"
	"lifestory-be/internal/pkg/logger"
	"lifestory-be/internal/pkg/serverutils"
	"lifestory-be/internal/pkg/storage"
	"lifestory-be/internal/repository/memory"
	"lifestory-be/internal/repository/unitofwork"
	"lifestory-be/internal/service"
	"lifestory-be/internal/websocket"
	"lifestory-be/pkg/correlator"
	"lifestory-be/pkg/events"
	pktNats "lifestory-be/pkg/nats"
	"lifestory-be/pkg/pipeline"
	"lifestory-be/pkg/webhook"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type Container struct {
	// Controllers
	SessionController   controller.ISessionController
	InterviewController controller.IInterviewController
	DraftController     controller.IDraftController
	LifeStoryController controller.ILifeStoryController
	WebhookController   controller.IWebhookController

	// Background workers (run by main.go)
	ConsumerService service.IConsumerService
	Correlator      *correlator.Correlator

	// Realtime
	RealtimeHandler *handler.RealtimeHandler
	WebSocketHub    *websocket.Hub

	Logger logger.ILogger

	closers []func()
}

// NewContainer wires every dependency. db may be nil when the memory store
// driver is configured.
func NewContainer(db *gorm.DB, cfg *config.Config) *Container {
	// 1. Core facades
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.IsProduction())

	var uowFactory unitofwork.RepositoryFactory
	if cfg.Database.Driver == "memory" || db == nil {
		log.Println("[WARN] Using in-memory store; data is lost on restart")
		uowFactory = memory.NewStore()
	} else {
		uowFactory = unitofwork.NewRepositoryFactory(db)
	}

	c := &Container{Logger: sysLogger}

	// 2. Infrastructure
	rdb := newRedis(cfg.App.RedisURL)

	var eventPublisher events.Publisher = events.Discard{}
	if cfg.App.NatsURL != "" {
		natsPub, err := pktNats.NewPublisher(cfg.App.NatsURL)
		if err != nil {
			log.Printf("[WARN] Failed to connect to NATS Publisher: %v", err)
		} else {
			eventPublisher = natsPub
			c.closers = append(c.closers, natsPub.Close)
		}
	}

	// Dispatch queue between request handlers and pipeline workers
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{OutputChannelBuffer: 64},
		watermill.NewStdLogger(false, false),
	)
	c.closers = append(c.closers, func() { _ = pubSub.Close() })

	var jobStore correlator.Store = correlator.NewMemoryStore()
	if cfg.Jobs.Store == "redis" {
		if rdb == nil {
			log.Fatal("[FATAL] JOB_STORE=redis requires REDIS_URL")
		}
		// Orphaned keys outlive the deadline so the sweeper still sees them.
		jobStore = correlator.NewRedisStore(rdb, "lifestory:jobs:", 2*cfg.Jobs.Timeout+time.Minute)
	}
	corr := correlator.New(jobStore,
		correlator.WithTimeout(cfg.Jobs.Timeout),
		correlator.WithSweepInterval(cfg.Jobs.SweepInterval),
		correlator.WithLogger(sysLogger),
	)

	files, err := storage.NewFileStore(cfg.Upload.Dir)
	if err != nil {
		log.Fatalf("[FATAL] Failed to prepare upload dir: %v", err)
	}

	pipelineClient := pipeline.NewHTTPClient(cfg.Pipeline.BaseURL, cfg.Pipeline.APIKey, cfg.Pipeline.HTTPTimeout)
	verifier := webhook.NewVerifier(cfg.Webhook.SigningSecret, cfg.Webhook.SharedSecret, cfg.Webhook.MaxSkew)

	// 3. Services
	wsLogger := logger.NewIsolatedLogger(cfg.App.RealtimeLogPath)
	var authorize websocket.RoomAuthorizer
	hub := websocket.NewHub(websocket.HubOptions{
		Redis:      rdb,
		Channel:    cfg.Realtime.Channel,
		InstanceID: cfg.App.InstanceID,
		Authorize: func(ctx context.Context, m websocket.Member, room websocket.Room) error {
			return authorize(ctx, m, room)
		},
	}, wsLogger)

	lifecycleService := service.NewLifecycleService(uowFactory, hub, eventPublisher, sysLogger)
	corr.OnExpire(lifecycleService.Expired)

	publisherService := service.NewPublisherService(cfg.Pipeline.DispatchTopic, pubSub)
	consumerService := service.NewConsumerService(
		pubSub,
		cfg.Pipeline.DispatchTopic,
		corr,
		pipelineClient,
		lifecycleService,
		service.RetryPolicy{MaxTries: cfg.Pipeline.DispatchTries},
		sysLogger,
	)

	runner := service.NewStageRunner(corr, pipelineClient, publisherService, lifecycleService, cfg.Pipeline.CallbackBaseURL, sysLogger)
	ingestService := service.NewIngestService(uowFactory, corr, runner, files, service.IngestLimits{
		MaxBytes:     cfg.Upload.MaxBytes,
		AllowedTypes: cfg.Upload.AllowedTypes,
	}, sysLogger)
	sessionService := service.NewSessionService(uowFactory, hub, eventPublisher, sysLogger)
	interviewService := service.NewInterviewService(uowFactory, corr, lifecycleService, hub, sysLogger)
	draftService := service.NewDraftService(uowFactory, corr, runner, hub, eventPublisher, sysLogger)
	lifeStoryService := service.NewLifeStoryService(uowFactory, corr, runner, hub, eventPublisher, sysLogger)
	reconcilerService := service.NewReconcilerService(uowFactory, corr, lifecycleService, sysLogger)

	authorize = sessionService.AuthorizeRoom

	// 4. Controllers
	auth := serverutils.NewJwtMiddleware(cfg.Auth.JWTSecret)

	c.SessionController = controller.NewSessionController(sessionService, auth)
	c.InterviewController = controller.NewInterviewController(interviewService, ingestService, draftService, auth)
	c.DraftController = controller.NewDraftController(draftService, auth)
	c.LifeStoryController = controller.NewLifeStoryController(lifeStoryService, auth)
	c.WebhookController = controller.NewWebhookController(reconcilerService, verifier)
	c.RealtimeHandler = handler.NewRealtimeHandler(hub, cfg.Auth.JWTSecret, wsLogger)
	c.WebSocketHub = hub
	c.ConsumerService = consumerService
	c.Correlator = corr
	return c
}

// Close releases broker connections after the workers have stopped.
func (c *Container) Close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		c.closers[i]()
	}
}

func newRedis(url string) *redis.Client {
	if url == "" {
		return nil
	}
	opt, err := redis.ParseURL(url)
	if err != nil {
		log.Printf("[WARN] Failed to parse Redis URL: %v. Using direct Addr", err)
		opt = &redis.Options{Addr: url}
	}
	rdb := redis.NewClient(opt)
	if _, err := rdb.Ping(context.Background()).Result(); err != nil {
		log.Printf("[WARN] Failed to connect to Redis: %v", err)
	}
	return rdb
}
