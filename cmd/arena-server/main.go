package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"codearena/internal/common/cache"
	"codearena/internal/common/db"
	"codearena/internal/common/mq"
	"codearena/internal/judge"
	"codearena/internal/match/controller"
	"codearena/internal/match/problemsource"
	"codearena/internal/match/repository"
	"codearena/internal/match/service"
	"codearena/internal/realtime"
	"codearena/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const defaultConfigPath = "configs/arena.yaml"

func main() {
	configPath := flag.String("config", defaultConfigPath, "Path to config file")
	flag.Parse()

	appCfg, err := loadAppConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load app config failed: %v\n", err)
		return
	}

	if err := logger.Init(appCfg.Logger); err != nil {
		fmt.Fprintf(os.Stderr, "init logger failed: %v\n", err)
		return
	}
	defer func() { _ = logger.Sync() }()

	database, err := db.NewMySQLWithConfig(&appCfg.Database)
	if err != nil {
		logger.Error(context.Background(), "init mysql failed", zap.Error(err))
		return
	}
	defer func() { _ = database.Close() }()

	redisCache, err := cache.NewRedisCacheWithConfig(&appCfg.Redis)
	if err != nil {
		logger.Error(context.Background(), "init redis failed", zap.Error(err))
		return
	}
	defer func() { _ = redisCache.Close() }()

	var results service.ResultPublisher = service.NopResultPublisher{}
	if appCfg.Results.Enabled {
		producer, err := mq.NewKafkaProducer(appCfg.Kafka)
		if err != nil {
			logger.Error(context.Background(), "init kafka failed", zap.Error(err))
			return
		}
		defer func() { _ = producer.Close() }()
		results = service.NewKafkaResultPublisher(producer, appCfg.Results.Topic)
	}

	var source problemsource.Source
	if appCfg.ProblemGen.BaseURL != "" {
		source = problemsource.NewClient(appCfg.ProblemGen)
	}

	hub := realtime.NewHub()
	coordinator := service.NewCoordinator(service.Deps{
		Database:     database,
		Rooms:        repository.NewRoomRepository(database),
		Participants: repository.NewParticipantRepository(database),
		Submissions:  repository.NewSubmissionRepository(database),
		Profiles:     repository.NewProfileRepository(database, redisCache),
		Problems:     repository.NewProblemRepository(database),
		Source:       source,
		Judge:        judge.NewInterpreter(appCfg.Judge),
		Hub:          hub,
		Results:      results,
	}, appCfg.Match)

	identity := controller.NewIdentity(appCfg.Auth)
	httpServer := buildHTTPServer(appCfg, coordinator, hub, identity)

	listener, err := net.Listen("tcp", appCfg.Server.Addr)
	if err != nil {
		logger.Error(context.Background(), "init http listener failed", zap.Error(err))
		return
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info(context.Background(), "arena http server started", zap.String("addr", appCfg.Server.Addr))
		errCh <- httpServer.Serve(listener)
	}()

	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error(context.Background(), "http server stopped", zap.Error(err))
		}
	case <-shutdownCtx.Done():
		logger.Info(context.Background(), "shutdown signal received")
	}

	ctx, cancel := context.WithTimeout(context.Background(), defaultShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error(context.Background(), "http server shutdown failed", zap.Error(err))
	}
}

func buildHTTPServer(cfg *AppConfig, coordinator *service.Coordinator, hub *realtime.Hub, identity *controller.Identity) *http.Server {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(controller.TraceMiddleware())

	api := router.Group("/api/v1")
	controller.NewRoomController(coordinator, identity).RegisterRoutes(api)
	controller.NewProblemController(coordinator, identity).RegisterRoutes(api)
	controller.NewWSController(coordinator, hub, identity).RegisterRoutes(&router.RouterGroup)

	return &http.Server{
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}
}
