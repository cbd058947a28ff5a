package router

import (
	"context"
	"net/http"

	"epos-backend/internal/application/access"
	authsvc "epos-backend/internal/application/auth"
	"epos-backend/internal/application/drafts"
	"epos-backend/internal/application/gate"
	healthsvc "epos-backend/internal/application/health"
	"epos-backend/internal/application/onboarding"
	"epos-backend/internal/application/plans"
	profilesvc "epos-backend/internal/application/profile"
	"epos-backend/internal/config"
	"epos-backend/internal/infrastructure/appsync"
	"epos-backend/internal/infrastructure/cognito"
	"epos-backend/internal/infrastructure/database"
	"epos-backend/internal/infrastructure/metrics"
	"epos-backend/internal/infrastructure/planapi"
	accesshandler "epos-backend/internal/interfaces/handlers/access"
	authhandler "epos-backend/internal/interfaces/handlers/auth"
	drafthandler "epos-backend/internal/interfaces/handlers/drafts"
	healthhandler "epos-backend/internal/interfaces/handlers/health"
	onboardinghandler "epos-backend/internal/interfaces/handlers/onboarding"
	planhandler "epos-backend/internal/interfaces/handlers/plans"
	profilehandler "epos-backend/internal/interfaces/handlers/profile"
	"epos-backend/internal/middleware"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

type gormDBPinger struct {
	db *gorm.DB
}

func (g *gormDBPinger) Ping() error {
	if g == nil || g.db == nil {
		return nil
	}
	sqlDB, err := g.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}

// CreateApp wires every dependency and registers all routes. The returned
// DB and Redis client are owned by the caller.
func CreateApp(cfg *config.Config) (*fiber.App, *gorm.DB, *redis.Client, error) {
	app := fiber.New(fiber.Config{
		DisableStartupMessage:   true,
		ErrorHandler:            middleware.ErrorHandler,
		EnableTrustedProxyCheck: true,
	})

	app.Use(middleware.CORS(middleware.CORSConfig{
		AllowedSuffix: cfg.FrontendURLEndsWith,
		DevPassword:   cfg.DevPassword,
	}))

	sessionCfg := middleware.SessionConfig{
		Secret:            cfg.SessionSecret,
		RedisURL:          cfg.RedisURL,
		AllowCrossSiteDev: cfg.AllowCrossSiteDev,
		IsProduction:      cfg.Env == "production",
	}
	sessionHandler, rdb, err := middleware.Session(sessionCfg)
	if err != nil {
		return nil, nil, nil, errors.Wrap(err, "redis")
	}
	app.Use(sessionHandler)
	app.Use(middleware.HealthMarker(rdb))
	app.Use(middleware.Tracing())
	app.Use(middleware.RouteLogger())

	var db *gorm.DB
	if cfg.DatabaseURL != "" {
		db, err = database.Open(cfg.DatabaseURL)
		if err != nil {
			return nil, nil, nil, errors.Wrap(err, "database")
		}
		if err := database.AutoMigrate(db); err != nil {
			return nil, nil, nil, errors.Wrap(err, "migrate")
		}
	}

	identity, err := cognito.New(context.Background(), cfg.AWSRegion, cfg.UserPoolClientID)
	if err != nil {
		return nil, nil, nil, errors.Wrap(err, "cognito")
	}
	if cfg.UserPoolClientID == "" {
		log.Warn().Msg("no Cognito app client configured; sign-in will fail")
	}

	tracker := gate.NewTracker()
	profiles := profilesvc.NewService(
		&appsync.ProfileRepository{Client: &appsync.Client{Endpoint: cfg.GraphQLEndpoint}},
		identity,
		tracker.Observe,
		metrics.ObserveBackendStatus,
	)
	profiles.Record = metrics.GatedOperation

	draftStore := drafts.NewStore(rdb)
	guard := access.NewGuard(rdb, cfg.AccessPasswordHash)
	planAPI := &planapi.Client{BaseURL: cfg.PlanAPIURL}

	// Health
	sources := healthsvc.Sources{Redis: rdb, Backend: tracker, PlanAPI: planAPI}
	if db != nil {
		sources.DB = &gormDBPinger{db: db}
	}
	hh := &healthhandler.Handlers{Sources: sources, HealthAdminKey: cfg.HealthAdminKey}
	app.Get("/", hh.Dashboard)
	app.Get("/reset", hh.Reset)
	app.Get("/health/json", hh.JSON)
	app.Get("/health/errors", hh.Errors)
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	// Access password screen
	acch := &accesshandler.Handlers{Guard: guard, Config: sessionCfg}
	accg := app.Group("/api/v1/access")
	accg.Get("/status", acch.Status)
	accg.Post("/verify", acch.Verify)

	gated := middleware.RequireAccess(guard)
	signedIn := middleware.RequireAuth(middleware.AuthConfig{
		Refresher: identity,
		OnExpired: profiles.States.Close,
	})

	// Auth
	ah := &authhandler.Handlers{
		Service: authsvc.NewService(identity),
		States:  profiles.States,
		Rdb:     rdb,
		Config:  sessionCfg,
	}
	ag := app.Group("/api/v1/auth", gated)
	ag.Post("/sign-up", ah.SignUp)
	ag.Post("/confirm", ah.ConfirmSignUp)
	ag.Post("/resend-code", ah.ResendCode)
	ag.Post("/sign-in", ah.SignIn)
	ag.Get("/me", ah.Me)
	ag.Patch("/attributes", signedIn, ah.UpdateAttributes)
	ag.Post("/change-password", signedIn, ah.ChangePassword)
	ag.Delete("/sign-out", ah.SignOut)

	// Profile
	ph := &profilehandler.Handlers{Service: profiles}
	pg := app.Group("/api/v1/profile", gated, signedIn)
	pg.Get("/", ph.Get)
	pg.Get("/state", ph.State)
	pg.Get("/backend-status", ph.BackendStatus)
	pg.Post("/", ph.Create)
	pg.Patch("/:id", ph.Update)

	// Onboarding
	oh := &onboardinghandler.Handlers{Wizard: onboarding.NewWizard(profiles, draftStore)}
	og := app.Group("/api/v1/onboarding", gated, signedIn)
	og.Get("/steps", oh.Steps)
	og.Post("/steps/:kind/validate", oh.ValidateStep)
	og.Post("/complete", oh.Complete)
	og.Post("/skip", oh.Skip)

	// Drafts
	dh := &drafthandler.Handlers{Store: draftStore}
	dg := app.Group("/api/v1/drafts", gated, signedIn)
	dg.Get("/:kind", dh.Get)
	dg.Put("/:kind", dh.Save)
	dg.Delete("/:kind", dh.Clear)

	// Plans (history needs the database)
	if db != nil {
		plh := &planhandler.Handlers{Service: plans.NewService(planAPI, db, profiles, draftStore)}
		plg := app.Group("/api/v1/plans", gated, signedIn)
		plg.Get("/", plh.List)
		plg.Post("/generate", plh.Generate)
		plg.Get("/prefill", plh.Prefill)
		plg.Get("/tasks/:taskId", plh.TaskStatus)
		plg.Post("/download-pdf", plh.DownloadPDF)
		plg.Post("/email", plh.Email)
		plg.Get("/:id", plh.Get)
	} else {
		log.Warn().Msg("DATABASE_URL not set; plan routes disabled")
	}

	return app, db, rdb, nil
}

func Handler(app *fiber.App) http.Handler {
	return adaptor.FiberApp(app)
}
