package bootstrap

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"slices"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"story-endings/internal/config"
	"story-endings/internal/feed"
	"story-endings/internal/logging"
	"story-endings/internal/platform/database"
	rabbitmqClient "story-endings/internal/platform/rabbitmq"
	redisClient "story-endings/internal/platform/redis"
	"story-endings/internal/repository"
	"story-endings/internal/worker"
)

type App struct {
	Config      *config.Config
	Logger      logging.Logger
	DB          *gorm.DB
	Redis       *redis.Client
	MQConn      *amqp.Connection
	AuditWorker *worker.AuditWorker
	Feed        *feed.Hub

	StartedAt time.Time

	stopFeed context.CancelFunc
}

func New(ctx context.Context) (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config failed: %w", err)
	}
	logger := logging.New(os.Stdout, cfg.Log.Level, cfg.Log.Format).With("app", cfg.App.Name)

	app := &App{
		Config:    cfg,
		Logger:    logger,
		StartedAt: time.Now(),
	}
	if err := app.init(ctx); err != nil {
		_ = app.Close()
		return nil, err
	}
	return app, nil
}

func (a *App) init(ctx context.Context) error {
	cfg := a.Config

	db, err := database.New(ctx, cfg.Database.Driver, cfg.DatabaseDSN())
	if err != nil {
		return err
	}
	a.DB = db
	if err := database.Migrate(db); err != nil {
		return err
	}
	if err := repository.NewTaxonomyRepository(db).Seed(ctx, cfg.Catalog.Genres, cfg.Catalog.Types); err != nil {
		return err
	}

	a.Redis, err = redisClient.New(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	if a.Redis == nil {
		a.Logger.Info(ctx, "redis disabled, running without highlight cache and session revocation")
	}

	a.MQConn, err = rabbitmqClient.New(ctx, cfg.RabbitMQ.URL)
	if err != nil {
		return err
	}
	if a.MQConn != nil {
		a.AuditWorker = worker.NewAuditWorker(a.MQConn, repository.NewAuditRepository(db), cfg.RabbitMQ.EndingEventsQueue, a.Logger)
		if err := a.AuditWorker.Start(ctx); err != nil {
			return fmt.Errorf("start audit worker failed: %w", err)
		}
	} else {
		a.Logger.Info(ctx, "rabbitmq disabled, ending events will not be audited")
	}

	a.Feed = feed.NewHub(a.Logger, SameOriginCheck(cfg.HTTP.AllowedOrigins))
	feedCtx, cancel := context.WithCancel(context.Background())
	a.stopFeed = cancel
	go a.Feed.Run(feedCtx)

	return nil
}

// SameOriginCheck accepts requests without an Origin header, requests whose
// Origin host equals the request host, and the listed origins.
func SameOriginCheck(allowed []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		if slices.Contains(allowed, origin) {
			return true
		}
		u, err := url.Parse(origin)
		if err != nil {
			return false
		}
		return u.Host == r.Host
	}
}

func (a *App) Close() error {
	var closeErr error
	if a.stopFeed != nil {
		a.stopFeed()
	}
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			closeErr = err
		}
	}
	if a.AuditWorker != nil {
		a.AuditWorker.Close()
	}
	if a.MQConn != nil {
		if err := a.MQConn.Close(); err != nil {
			closeErr = err
		}
	}
	if a.DB != nil {
		sqlDB, err := a.DB.DB()
		if err == nil {
			if err := sqlDB.Close(); err != nil {
				closeErr = err
			}
		}
	}
	return closeErr
}
