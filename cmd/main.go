package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/JuruSysadmin/JuruConnect-sub003/internal/audit"
	"github.com/JuruSysadmin/JuruConnect-sub003/internal/cache"
	"github.com/JuruSysadmin/JuruConnect-sub003/internal/config"
	"github.com/JuruSysadmin/JuruConnect-sub003/internal/domain"
	"github.com/JuruSysadmin/JuruConnect-sub003/internal/handler"
	"github.com/JuruSysadmin/JuruConnect-sub003/internal/history"
	"github.com/JuruSysadmin/JuruConnect-sub003/internal/hub"
	"github.com/JuruSysadmin/JuruConnect-sub003/internal/identity"
	"github.com/JuruSysadmin/JuruConnect-sub003/internal/metadata"
	"github.com/JuruSysadmin/JuruConnect-sub003/internal/notify"
	"github.com/JuruSysadmin/JuruConnect-sub003/internal/pipeline"
	"github.com/JuruSysadmin/JuruConnect-sub003/internal/presence"
	"github.com/JuruSysadmin/JuruConnect-sub003/internal/repository"
	"github.com/JuruSysadmin/JuruConnect-sub003/internal/service"
	"github.com/JuruSysadmin/JuruConnect-sub003/internal/typing"
	"github.com/JuruSysadmin/JuruConnect-sub003/pkg/database"
	"github.com/JuruSysadmin/JuruConnect-sub003/pkg/log"
	"github.com/JuruSysadmin/JuruConnect-sub003/pkg/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log.Init(cfg.Log)
	l := log.L()

	// Message store
	var repo repository.MessageRepository
	if cfg.Cassandra.Enabled {
		repo, err = repository.NewCassandraMessageRepository(cfg.Cassandra)
		if err != nil {
			l.Fatal().Err(err).Msg("failed to connect to cassandra")
		}
	} else {
		l.Warn().Msg("cassandra disabled, messages held in memory only")
		repo = repository.NewMemoryMessageRepository()
	}
	defer repo.Close()

	// History page cache
	var pageCache cache.PageCache
	if cfg.Redis.Enabled {
		redisCache, err := cache.NewRedisPageCache(cfg.Redis)
		if err != nil {
			l.Fatal().Err(err).Msg("failed to connect to redis")
		}
		defer redisCache.Close()
		pageCache = redisCache
	}

	// Notification export bus
	var exporter notify.EventExporter = notify.NopExporter{}
	if cfg.Kafka.Enabled {
		confluent, err := notify.NewConfluentExporter(cfg.Kafka)
		if err != nil {
			l.Fatal().Err(err).Msg("failed to create kafka exporter")
		}
		defer confluent.Close()
		exporter = confluent
	}

	// Room metadata
	var metaProvider metadata.Provider = metadata.NopProvider{}
	if cfg.Database.Enabled {
		db, err := database.New(&database.Config{
			Driver:          cfg.Database.Driver,
			Host:            cfg.Database.Host,
			Port:            cfg.Database.Port,
			User:            cfg.Database.User,
			Password:        cfg.Database.Password,
			DBName:          cfg.Database.DBName,
			SSLMode:         cfg.Database.SSLMode,
			FilePath:        cfg.Database.FilePath,
			MaxIdleConns:    cfg.Database.MaxIdleConns,
			MaxOpenConns:    cfg.Database.MaxOpenConns,
			ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		})
		if err != nil {
			l.Fatal().Err(err).Msg("failed to connect to database")
		}
		metaProvider = metadata.NewGormProvider(db)
	}

	// Attachment storage
	var store storage.Storage
	switch cfg.Storage.Driver {
	case "s3":
		store, err = storage.NewS3Storage(context.Background(), cfg.Storage.S3)
	default:
		store, err = storage.NewLocalStorage(cfg.Storage.Local)
	}
	if err != nil {
		l.Fatal().Err(err).Msg("failed to initialise attachment storage")
	}

	// Core components
	h := hub.NewHub(cfg.WebSocket)
	go h.Run()

	registry := presence.NewRegistry(cfg.Presence.EntryTTL, cfg.Presence.HeartbeatInterval)

	typingCoord := typing.NewCoordinator(cfg.Typing.Debounce, cfg.Typing.TTL,
		func(roomID string, diff domain.TypingDiff) {
			h.BroadcastToRoom(roomID, &domain.TypingDiffEvent{
				Type: domain.EvtTypeTypingDiff,
				Diff: diff,
			}, "")
		})

	dispatcher := notify.NewDispatcher(h, exporter)
	pipe := pipeline.New(repo, h, registry, dispatcher, cfg.Chat)
	loader := history.NewLoader(repo, pageCache, cfg.Redis.CachePrefix, cfg.Chat, cfg.Redis.CacheTTL)
	resolver := identity.NewResolver(cfg.Auth)
	auditor := audit.NewRecorder()

	chatService := service.NewChatService(h, registry, typingCoord, pipe, loader, resolver, metaProvider, auditor, cfg.Presence, cfg.WebSocket)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := chatService.Start(ctx); err != nil {
		l.Fatal().Err(err).Msg("failed to start chat service")
	}
	defer chatService.Stop()

	// HTTP + WebSocket surface
	if cfg.Log.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(log.GinMiddleware(l))

	wsHandler := handler.NewWSHandler(h, chatService, cfg.WebSocket)
	router.GET("/ws", wsHandler.HandleWebSocket)

	httpHandler := handler.NewHTTPHandler(loader, registry, metaProvider, store)
	httpHandler.RegisterRoutes(router)

	if cfg.Storage.Driver == "local" || cfg.Storage.Driver == "" {
		router.Static(cfg.Storage.Local.PublicURL, cfg.Storage.Local.BasePath)
	}

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	go func() {
		l.Info().Str("addr", addr).Msg("starting chat core")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			l.Fatal().Err(err).Msg("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	l.Info().Msg("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		l.Error().Err(err).Msg("forced shutdown")
	}
	l.Info().Msg("server exited")
}
