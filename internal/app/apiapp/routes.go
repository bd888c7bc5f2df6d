package apiapp

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/JPJPKIMJP/AMLWD/internal/config"
	accesssvc "github.com/JPJPKIMJP/AMLWD/internal/services/access"
	authsvc "github.com/JPJPKIMJP/AMLWD/internal/services/auth"
	costssvc "github.com/JPJPKIMJP/AMLWD/internal/services/costs"
	generationsvc "github.com/JPJPKIMJP/AMLWD/internal/services/generation"
	imagessvc "github.com/JPJPKIMJP/AMLWD/internal/services/images"
	quotasvc "github.com/JPJPKIMJP/AMLWD/internal/services/quota"
	userssvc "github.com/JPJPKIMJP/AMLWD/internal/services/users"
	"github.com/JPJPKIMJP/AMLWD/internal/transport/http/dto"
	"github.com/JPJPKIMJP/AMLWD/internal/transport/http/handlers"
)

type Dependencies struct {
	AuthService       *authsvc.Service
	Gate              *accesssvc.Gate
	GenerationService *generationsvc.Service
	ImageService      *imagessvc.Service
	QuotaService      *quotasvc.Service
	UserService       *userssvc.Service
	CostService       *costssvc.Service
	Features          dto.HealthFeatures
	Registry          prometheus.Gatherer
	Logger            *zap.Logger
	Config            config.Config
}

func RegisterRoutes(r chi.Router, deps Dependencies) {
	healthHandler := handlers.NewHealthHandler(deps.Config.Version, deps.Features, deps.GenerationService.InferenceConfigured)
	generateHandler := handlers.NewGenerateHandler(deps.GenerationService)
	imagesHandler := handlers.NewImagesHandler(deps.ImageService)
	quotaHandler := handlers.NewQuotaHandler(deps.QuotaService, deps.Gate)
	adminHandler := handlers.NewAdminHandler(deps.UserService, deps.CostService, deps.Gate, deps.Config.Costs)
	authMW := AuthMiddleware(deps.AuthService, deps.Logger)
	optionalAuthMW := OptionalAuthMiddleware(deps.AuthService, deps.Logger)

	r.Get("/healthz", healthHandler.Handle)
	if deps.Registry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(deps.Registry, promhttp.HandlerOpts{}))
	}

	r.Route("/v1", func(r chi.Router) {
		r.With(optionalAuthMW).Post("/images/generate", generateHandler.Handle)
		r.With(authMW).Post("/images", imagesHandler.Save)
		r.With(authMW).Get("/images", imagesHandler.List)
		r.With(authMW).Get("/quota", quotaHandler.Handle)

		r.Route("/admin", func(r chi.Router) {
			r.Use(authMW)
			r.Post("/users/manage", adminHandler.ManageUser)
			r.Post("/users/premium", adminHandler.SetPremium)
			r.Get("/costs", adminHandler.Costs)
		})
	})
}
