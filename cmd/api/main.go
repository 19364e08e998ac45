package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jhoicas/bar-ledger/internal/application/ledger"
	"github.com/jhoicas/bar-ledger/internal/infrastructure/database"
	"github.com/jhoicas/bar-ledger/internal/infrastructure/metrics"
	"github.com/jhoicas/bar-ledger/internal/infrastructure/rabbitmq"
	infraredis "github.com/jhoicas/bar-ledger/internal/infrastructure/redis"
	httpRouter "github.com/jhoicas/bar-ledger/internal/interfaces/http"
	"github.com/jhoicas/bar-ledger/pkg/config"
	"github.com/jhoicas/bar-ledger/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:     cfg.App.Env,
		Level:   cfg.Log.Level,
		Service: cfg.App.Name,
	})
	log.Info().
		Str("env", cfg.App.Env).
		Str("app", cfg.App.Name).
		Str("db_driver", cfg.DB.Driver).
		Msg("iniciando aplicación")

	ctx := context.Background()
	store, err := database.Open(ctx, cfg, cfg.DB.AutoMigrate, log.Zerolog())
	if err != nil {
		log.Fatal().Err(err).Msg("base de datos")
	}
	defer store.Close()

	m := metrics.New()

	// Publicadores posteriores al commit: auditoría siempre; Redis y RabbitMQ si están configurados.
	publishers := ledger.Publishers{ledger.NewLogPublisher(log.Zerolog())}

	var cache ledger.LowStockCache
	if cfg.Redis.Enabled() {
		client, err := infraredis.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			log.Warn().Err(err).Msg("Redis no disponible, se continúa sin caché")
		} else {
			defer client.Close()
			lowStock := infraredis.NewLowStockCache(client, cfg.App.Name, cfg.Redis.TTL, m, log.Zerolog())
			cache = lowStock
			publishers = append(publishers, lowStock)
		}
	}

	if cfg.RabbitMQ.Enabled() {
		conn, ch, err := rabbitmq.SetupConn(cfg.RabbitMQ.URL, cfg.RabbitMQ.Exchange, 5, log.Zerolog())
		if err != nil {
			log.Fatal().Err(err).Msg("RabbitMQ")
		}
		defer conn.Close()
		defer ch.Close()
		publishers = append(publishers, rabbitmq.NewPublisher(ch, cfg.RabbitMQ.Exchange))
	}

	svc := ledger.NewService(store.TxRunner, publishers, m, log.Zerolog())
	queries := ledger.NewQueryService(store.TxRunner, cache)

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  time.Second * 10,
		WriteTimeout: time.Second * 10,
		IdleTimeout:  time.Second * 60,
	})
	app.Use(recover.New())

	// Swagger UI en local: http://localhost:<port>/docs
	app.Use(swagger.New(swagger.Config{
		BasePath: "/",
		FilePath: "./docs/swagger.json",
		Path:     "docs",
		Title:    "Bar Ledger API",
	}))

	httpRouter.Router(app, httpRouter.RouterDeps{
		Service:         svc,
		Queries:         queries,
		JWTSecret:       cfg.JWT.Secret,
		AppName:         cfg.App.Name,
		LowStockDefault: cfg.Ledger.LowStockDefault,
		RecentLimit:     cfg.Ledger.RecentDefaultLimit,
		ConflictRetries: cfg.Ledger.ConflictRetries,
		Metrics:         m,
		MetricsHandler:  m.Handler(),
		Log:             log.Zerolog(),
	})

	go func() {
		if err := app.Listen(cfg.HTTP.Addr()); err != nil {
			log.Error().Err(err).Msg("servidor HTTP finalizado")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("señal de apagado recibida, cerrando servidor...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("apagado del servidor")
	}

	log.Info().Msg("aplicación detenida")
}
