package apiapp

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/JPJPKIMJP/AMLWD/internal/config"
	"github.com/JPJPKIMJP/AMLWD/internal/infra/alert"
	"github.com/JPJPKIMJP/AMLWD/internal/infra/httpclient"
	"github.com/JPJPKIMJP/AMLWD/internal/infra/metrics"
	s3infra "github.com/JPJPKIMJP/AMLWD/internal/infra/s3"
	pgrepo "github.com/JPJPKIMJP/AMLWD/internal/repo/postgres"
	redrepo "github.com/JPJPKIMJP/AMLWD/internal/repo/redis"
	accesssvc "github.com/JPJPKIMJP/AMLWD/internal/services/access"
	auditsvc "github.com/JPJPKIMJP/AMLWD/internal/services/audit"
	authsvc "github.com/JPJPKIMJP/AMLWD/internal/services/auth"
	costssvc "github.com/JPJPKIMJP/AMLWD/internal/services/costs"
	generationsvc "github.com/JPJPKIMJP/AMLWD/internal/services/generation"
	imagessvc "github.com/JPJPKIMJP/AMLWD/internal/services/images"
	"github.com/JPJPKIMJP/AMLWD/internal/services/inference"
	modsvc "github.com/JPJPKIMJP/AMLWD/internal/services/moderation"
	quotasvc "github.com/JPJPKIMJP/AMLWD/internal/services/quota"
	ratesvc "github.com/JPJPKIMJP/AMLWD/internal/services/rate"
	userssvc "github.com/JPJPKIMJP/AMLWD/internal/services/users"
	"github.com/JPJPKIMJP/AMLWD/internal/services/validation"
	"github.com/JPJPKIMJP/AMLWD/internal/transport/http/dto"
)

type App struct {
	cfg        config.Config
	logger     *zap.Logger
	server     *http.Server
	postgres   *pgxpool.Pool
	redis      *goredis.Client
	notifier   *alert.Notifier
	httpRouter http.Handler
}

// New wires the API. Missing Postgres, Redis or S3 leave the process up in
// degraded mode; the affected operations fail with their own errors.
func New(ctx context.Context, cfg config.Config, log *zap.Logger) (*App, error) {
	if log == nil {
		return nil, fmt.Errorf("logger is nil")
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics.MustRegister(registry)

	r := chi.NewRouter()
	ApplyMiddlewares(r, cfg.HTTP.RequestTimeout, log)

	var pool *pgxpool.Pool
	if p, err := pgrepo.NewPool(ctx, cfg.Postgres.DSN, cfg.Postgres.MaxConns); err != nil {
		log.Warn("postgres init failed, continuing in degraded mode", zap.Error(err))
	} else {
		pool = p
	}

	redisClient := redrepo.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	redisReady := pingRedis(ctx, redisClient)
	if !redisReady {
		log.Warn("redis unreachable, burst limits and cost cache disabled", zap.String("addr", cfg.Redis.Addr))
	}

	notifier := alert.FromConfig(cfg.Alerts, httpclient.New(cfg.Alerts.Timeout), log)
	location := quotasvc.LoadLocation(cfg.Quota.Timezone)

	quotaRepo := pgrepo.NewQuotaRepo(pool, cfg.Quota.TxRetries)
	ipLimitRepo := pgrepo.NewIPLimitRepo(pool, cfg.Quota.TxRetries)
	attemptRepo := pgrepo.NewAttemptRepo(pool)
	imageRepo := pgrepo.NewImageRepo(pool)
	blockRepo := pgrepo.NewBlockRepo(pool)
	adminRepo := pgrepo.NewAdminRepo(pool)
	violationRepo := pgrepo.NewViolationRepo(pool)

	authService := authsvc.NewService(authsvc.NewJWTManager(cfg.Auth.JWTSecret))
	gate := accesssvc.NewGate(blockRepo, adminRepo, notifier, accesssvc.Config{
		RequireVerifiedEmail: cfg.Auth.RequireVerifiedEmail,
	}, log)

	var burst quotasvc.BurstLimiter
	rateLimiter := ratesvc.NewLimiter(redrepo.NewRateRepo(redisClient), cfg.Quota.BurstPerMinute, cfg.Quota.BurstPer10Seconds)
	if redisReady && rateLimiter.Enabled() {
		burst = rateLimiter
	}
	quotaService := quotasvc.NewService(quotaRepo, ipLimitRepo, burst, notifier, quotasvc.Config{
		DailyLimit:        cfg.Quota.DailyLimit,
		PremiumDailyLimit: cfg.Quota.PremiumDailyLimit,
		IPLimit:           cfg.Quota.IPLimit,
		IPWindow:          cfg.Quota.IPWindow,
		Location:          location,
	}, log)

	var classifier modsvc.Classifier
	if cfg.Moderation.AIEnabled && strings.TrimSpace(cfg.Moderation.OpenAIAPIKey) != "" {
		classifier = modsvc.NewOpenAIClassifier(cfg.Moderation.OpenAIAPIKey, cfg.Moderation.OpenAIBaseURL)
	}
	moderationService := modsvc.NewService(violationRepo, classifier, notifier, modsvc.Config{
		BlockedKeywords: cfg.Moderation.BlockedKeywords,
		AlertThreshold:  cfg.Moderation.ViolationAlertThreshold,
	}, log)

	var costCache costssvc.SnapshotCache
	if redisReady {
		costCache = redrepo.NewCacheRepo(redisClient)
	}
	costService := costssvc.NewService(attemptRepo, costCache, notifier, costssvc.Config{
		PerImage:        cfg.Costs.PerImage,
		DailyAlertUSD:   cfg.Costs.DailyAlertUSD,
		MonthlyAlertUSD: cfg.Costs.MonthlyAlertUSD,
		CacheTTL:        cfg.Costs.CacheTTL,
		Location:        location,
	}, log)

	inferenceClient := inference.NewClient(cfg.Inference, httpclient.New(cfg.Inference.RequestTimeout), log)
	if !inferenceClient.Configured() {
		log.Warn("inference endpoint is not configured, generation requests will fail")
	}
	generationService := generationsvc.NewService(generationsvc.Deps{
		Gate:      gate,
		Validator: validation.NewValidator(cfg.Generation),
		Moderator: moderationService,
		Limits:    quotaService,
		Generator: inferenceClient,
		Auditor:   auditsvc.NewRecorder(attemptRepo, log),
		Costs:     costService,
		Notifier:  notifier,
	}, cfg.Generation.SlowThreshold, log)

	var objectStorage imagessvc.ObjectStorage
	if c, err := s3infra.NewClient(s3infra.Config{
		Endpoint:  cfg.S3.Endpoint,
		AccessKey: cfg.S3.AccessKey,
		SecretKey: cfg.S3.SecretKey,
		Region:    cfg.S3.Region,
		UseSSL:    cfg.S3.UseSSL,
	}); err != nil {
		log.Warn("s3 init failed, continuing in degraded mode", zap.Error(err))
	} else {
		objectStorage = imagessvc.NewS3Storage(c, cfg.S3.Bucket, cfg.S3.PublicBaseURL)
	}
	imageService := imagessvc.NewService(imageRepo, attemptRepo, objectStorage, 0, log)

	userService := userssvc.NewService(blockRepo, quotaRepo, gate, notifier, log)

	dbReady := pool != nil
	RegisterRoutes(r, Dependencies{
		AuthService:       authService,
		Gate:              gate,
		GenerationService: generationService,
		ImageService:      imageService,
		QuotaService:      quotaService,
		UserService:       userService,
		CostService:       costService,
		Features: dto.HealthFeatures{
			Authentication:    true,
			RateLimiting:      burst != nil || dbReady,
			ContentModeration: len(cfg.Moderation.BlockedKeywords) > 0,
			IPTracking:        dbReady,
			CostMonitoring:    dbReady,
			UserBlocking:      dbReady,
			WebhookAlerts:     notifier.Enabled(),
			AIModeration:      moderationService.AIEnabled(),
		},
		Registry: registry,
		Logger:   log,
		Config:   cfg,
	})

	server := &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      r,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	return &App{
		cfg:        cfg,
		logger:     log,
		server:     server,
		postgres:   pool,
		redis:      redisClient,
		notifier:   notifier,
		httpRouter: r,
	}, nil
}

func pingRedis(ctx context.Context, client *goredis.Client) bool {
	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return client.Ping(pingCtx).Err() == nil
}

func (a *App) Run() error {
	a.logger.Info("api server started", zap.String("addr", a.cfg.HTTP.Addr))
	err := a.server.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (a *App) Shutdown(ctx context.Context) error {
	var shutdownErr error

	if err := a.server.Shutdown(ctx); err != nil {
		shutdownErr = err
	}
	a.notifier.Wait()
	if a.postgres != nil {
		a.postgres.Close()
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil && shutdownErr == nil {
			shutdownErr = err
		}
	}

	return shutdownErr
}

func (a *App) Handler() http.Handler {
	return a.httpRouter
}
