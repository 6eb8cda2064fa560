package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	appsvc "story-endings/internal/app"
	"story-endings/internal/bootstrap"
	"story-endings/internal/cache"
	"story-endings/internal/platform/rabbitmq"
	"story-endings/internal/repository"
	"story-endings/internal/transport/http/handler"
	"story-endings/internal/transport/http/middleware"
	"story-endings/web"
)

func NewRouter(app *bootstrap.App) (*gin.Engine, error) {
	gin.SetMode(app.Config.App.GinMode)
	router := gin.New()

	templates, err := web.Templates()
	if err != nil {
		return nil, err
	}
	router.SetHTMLTemplate(templates)

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := middleware.NewMetrics(registry)

	userRepo := repository.NewUserRepository(app.DB)
	endingRepo := repository.NewEndingRepository(app.DB)
	taxonomyRepo := repository.NewTaxonomyRepository(app.DB)
	ratingRepo := repository.NewRatingRepository(app.DB)

	// Optional collaborators stay nil interfaces when their backend is disabled.
	var revocations appsvc.RevocationStore
	endingOpts := appsvc.EndingServiceOptions{}
	if app.Redis != nil {
		revocations = cache.NewRevocationStore(app.Redis)
		endingOpts.Highlights = cache.NewHighlightCache(app.Redis, time.Duration(app.Config.Redis.HighlightTTLSeconds)*time.Second)
	}
	if app.MQConn != nil {
		endingOpts.Events = rabbitmq.NewEventPublisher(app.MQConn, app.Config.RabbitMQ.EndingEventsQueue)
	}
	if app.Feed != nil {
		endingOpts.Feed = app.Feed
	}

	sessionTTL := time.Duration(app.Config.Session.TTLMinutes) * time.Minute
	authService := appsvc.NewAuthService(userRepo, app.Config.Session.BcryptCost)
	sessionService := appsvc.NewSessionService(authService, revocations, app.Config.Session.Secret, sessionTTL, app.Logger)
	endingService := appsvc.NewEndingService(endingRepo, taxonomyRepo, ratingRepo, app.Logger, endingOpts)

	cookie := middleware.SessionCookie{
		Name:   app.Config.Session.CookieName,
		Secure: app.Config.Session.Secure,
		TTL:    sessionTTL,
	}

	router.Use(
		gin.Recovery(),
		middleware.RequestLogger(app.Logger),
		metrics.Handler(),
		middleware.Session(sessionService, cookie),
		middleware.CSRF(middleware.CSRFConfig{AllowedOrigins: app.Config.HTTP.AllowedOrigins}),
	)

	healthHandler := handler.NewHealthHandler(app)
	authHandler := handler.NewAuthHandler(authService, sessionService, cookie, app.Logger)
	endingHandler := handler.NewEndingHandler(endingService, metrics, app.Logger)
	profileHandler := handler.NewProfileHandler(endingService, app.Logger)

	router.StaticFS("/static", http.FS(web.Static()))
	router.GET("/healthz", healthHandler.Check)
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))
	if app.Feed != nil {
		router.GET("/ws/feed", handler.NewFeedHandler(app.Feed).Subscribe)
	}

	router.GET("/", endingHandler.List)
	router.GET("/get_endings", endingHandler.List)
	router.GET("/ending/:id", endingHandler.Detail)

	router.GET("/register", authHandler.RegisterForm)
	router.POST("/register", authHandler.Register)
	router.GET("/login", authHandler.LoginForm)
	router.POST("/login", authHandler.Login)
	router.GET("/logout", authHandler.Logout)

	authed := router.Group("/", middleware.RequireAuth())
	authed.GET("/profile/:username", profileHandler.Show)
	authed.POST("/profile/:username", profileHandler.Show)
	authed.GET("/add_ending", endingHandler.AddForm)
	authed.POST("/add_ending", endingHandler.Add)
	authed.GET("/edit_ending/:id", endingHandler.EditForm)
	authed.POST("/edit_ending/:id", endingHandler.Edit)
	authed.GET("/delete_ending/:id", middleware.RejectCrossSite(), endingHandler.Delete)
	authed.POST("/delete_ending/:id", endingHandler.Delete)
	authed.POST("/rate_ending/:id", endingHandler.Rate)

	router.NoRoute(handler.NotFound)

	return router, nil
}
