package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/gin-gonic/gin"
	"github.com/naztar0/TgPostsGuardian/internal/action"
	"github.com/naztar0/TgPostsGuardian/internal/config"
	"github.com/naztar0/TgPostsGuardian/internal/cycle"
	"github.com/naztar0/TgPostsGuardian/internal/middleware"
	"github.com/naztar0/TgPostsGuardian/internal/worker"
	protocol "github.com/naztar0/TgPostsGuardian/pkg/action"
	"github.com/naztar0/TgPostsGuardian/pkg/metrics"
	"github.com/naztar0/TgPostsGuardian/pkg/storage"
	log "github.com/sirupsen/logrus"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("[CONFIG] %v", err)
	}
	cfg.SetupLogging()

	if cfg.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{Dsn: cfg.SentryDSN}); err != nil {
			log.WithError(err).Warn("[SERVICE] Sentry не инициализирован")
		}
		defer sentry.Flush(2 * time.Second)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Инициализация подключения к БД
	db, err := storage.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("[DB] %v", err)
	}
	defer db.Conn.Close()
	if err := db.Migrate(ctx); err != nil {
		log.Fatalf("[DB] %v", err)
	}

	registry := protocol.NewRegistry()
	fleet := worker.NewFleet(db, registry, worker.Options{
		MaxSleep:  cfg.MaxSleep,
		Chunk:     cfg.ChannelsChunk,
		RPS:       cfg.TransportRPS,
		LeaseIdle: cfg.LeaseIdle,
	})

	// Настройка роутера
	srv := &http.Server{Addr: ":" + cfg.Port, Handler: setupRouter(cfg, registry, fleet)}
	go func() {
		log.Infof("[SERVICE] HTTP-сервер на порту %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("[SERVICE] сервер остановлен: %v", err)
		}
	}()

	if err := fleet.Run(ctx); err != nil {
		log.WithError(err).Error("[SERVICE] ошибка запуска сессий")
		sentry.CaptureException(err)
	}
	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("[SERVICE] ошибка остановки HTTP-сервера")
	}
	log.Info("[SERVICE] остановлен")
}

// Настройка маршрутов
func setupRouter(cfg config.Config, registry *protocol.Registry, fleet *worker.Fleet) *gin.Engine {
	r := gin.Default()

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	authorized := r.Group("/", middleware.AuthRequired(cfg.APIToken))

	// Команды ACTION в виде RPC
	action.SetupRoutes(authorized.Group("/action"), registry)

	// Внеплановый запуск циклов
	cycle.SetupRoutes(authorized.Group("/cycle"), fleet)

	log.Info("[ROUTER] маршруты: GET /health, GET /metrics, POST /action, GET|POST /cycle")
	return r
}
