package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"communiconnect/internal/core/domain"
	"communiconnect/internal/core/ports"
	"communiconnect/internal/core/services"
	httphandlers "communiconnect/internal/handlers/http"
	chatinfra "communiconnect/internal/infrastructure/chat"
	"communiconnect/internal/infrastructure/distributed"
	"communiconnect/internal/infrastructure/media/sim"
	mediawebrtc "communiconnect/internal/infrastructure/media/webrtc"
	"communiconnect/internal/infrastructure/middleware"
	"communiconnect/internal/infrastructure/monitoring"
	"communiconnect/internal/infrastructure/playback"
	"communiconnect/internal/infrastructure/reliability"
	memoryrepo "communiconnect/internal/infrastructure/repositories/memory"
	redisrepo "communiconnect/internal/infrastructure/repositories/redis"
	"communiconnect/pkg/circuitbreaker"
	"communiconnect/pkg/config"
	"communiconnect/pkg/logger"
	"communiconnect/pkg/scheduler"
	"communiconnect/pkg/tracing"
	"communiconnect/pkg/utils"

	"github.com/gin-gonic/gin"
	"github.com/pion/webrtc/v3"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	goredis "github.com/redis/go-redis/v9"
)

func main() {
	configPath := os.Getenv("COMMUNICONNECT_CONFIG")
	if configPath == "" {
		configPath = "configs/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		// Cannot log structurally before the logger exists.
		panic(err)
	}

	zapLogger := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLogger.Sync()
	log := zapLogger.Sugar()

	instanceID := utils.GenerateID("instance")
	log.Infow("starting communiconnect session server",
		"instance_id", instanceID, "address", cfg.Server.Address)

	// Tracing.
	tracerProvider, err := tracing.Init(tracing.Config{
		Enabled:     cfg.Tracing.Enabled,
		ServiceName: cfg.Tracing.ServiceName,
		JaegerURL:   cfg.Tracing.JaegerURL,
		Environment: cfg.Tracing.Environment,
		SampleRate:  cfg.Tracing.SampleRate,
	})
	if err != nil {
		log.Fatalw("failed to initialize tracing", "error", err)
	}

	// Health checks.
	healthChecker := monitoring.NewHealthChecker(log)

	// Storage. Redis fronts chat history behind a circuit breaker; memory
	// serves everything when Redis is off.
	var redisClient *goredis.Client
	var chatRepo ports.ChatRepository = memoryrepo.NewChatRepository()
	if cfg.Redis.Enabled {
		redisClient, err = redisrepo.NewClient(
			cfg.Redis.Address, cfg.Redis.Password, cfg.Redis.DB, cfg.Redis.PoolSize, log)
		if err != nil {
			log.Fatalw("failed to connect to Redis", "error", err)
		}
		defer redisrepo.Close(redisClient)

		chatRepo = reliability.NewChatRepositoryWrapper(
			redisrepo.NewChatRepository(redisClient, log),
			memoryrepo.NewChatRepository(),
			circuitbreaker.DefaultConfig(),
			log,
		)
		healthChecker.Register("redis", func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		})
	}
	livestreamRepo := memoryrepo.NewLivestreamRepository()

	// Cross-instance chat fan-out, only meaningful with Redis.
	var chatBus *distributed.ChatBus
	var chatFeedPort ports.ChatFeed
	if redisClient != nil {
		chatBus = distributed.NewChatBus(redisClient, instanceID, log)
		chatFeedPort = chatBus
		defer chatBus.Close()
	}

	// Core services.
	chatService := services.NewChatService(services.ChatServiceConfig{
		HistoryLimit:      cfg.Chat.HistoryLimit,
		MaxMessageLength:  cfg.Chat.MaxMessageLength,
		MessagesPerSecond: cfg.Chat.MessagesPerSecond,
		Burst:             cfg.Chat.Burst,
	}, chatRepo, chatFeedPort, log)

	livestreamService := services.NewCachedLivestreamService(
		services.NewLivestreamService(livestreamRepo, log),
		30*time.Second,
	)

	authService := services.NewAuthService(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTL, log)

	collector := monitoring.NewPrometheusCollector()
	sched := scheduler.NewReal()
	gateway := sim.NewGateway(sim.Options{
		AcquireLatency: 50 * time.Millisecond,
		FrameInterval:  time.Second / time.Duration(cfg.Session.Camera.FrameRate),
	}, log)

	controllerCfg := services.ControllerConfig{
		AcquireTimeout:      cfg.Session.AcquireTimeout,
		RestartDelay:        cfg.Session.RestartDelay,
		SelfHealDelay:       cfg.Session.SelfHealDelay,
		ConsistencyInterval: cfg.Session.ConsistencyInterval,
		Camera: ports.CameraConstraints{
			Width:     cfg.Session.Camera.Width,
			Height:    cfg.Session.Camera.Height,
			FrameRate: cfg.Session.Camera.FrameRate,
			Audio:     true,
		},
	}

	sessionManager := services.NewSessionManager(
		func(id domain.SessionID, livestreamID domain.LivestreamID, author string) ports.SessionController {
			surface := playback.NewSurface(log)
			store := services.NewDeviceStateStore()
			binder := services.NewPlaybackBinder(surface, log)
			return services.NewSessionController(
				id, livestreamID, author,
				controllerCfg, gateway, binder, store, sched, collector, chatService, log,
			)
		},
		log,
	)

	// Broadcast uplink.
	var publisher *mediawebrtc.PublisherService
	var broadcastLock *distributed.BroadcastLock
	if cfg.Broadcast.Enabled {
		var iceServers []webrtc.ICEServer
		for _, s := range cfg.Broadcast.ICEServers {
			iceServers = append(iceServers, webrtc.ICEServer{
				URLs:       s.URLs,
				Username:   s.Username,
				Credential: s.Credential,
			})
		}
		if len(iceServers) == 0 {
			iceServers = []webrtc.ICEServer{
				{URLs: []string{"stun:stun.l.google.com:19302"}},
			}
		}

		webrtcCfg := mediawebrtc.Config{ICEServers: iceServers}
		webrtcCfg.PortRange.Min = cfg.Broadcast.PortRange.Min
		webrtcCfg.PortRange.Max = cfg.Broadcast.PortRange.Max
		publisher = mediawebrtc.NewPublisherService(webrtcCfg, log)
		defer publisher.StopAll()

		if redisClient != nil {
			broadcastLock = distributed.NewBroadcastLock(redisClient, instanceID, 30*time.Second, log)
		}
	}

	// Websocket chat surface.
	chatServer := chatinfra.NewServer(chatinfra.ServerConfig{
		PingInterval:   cfg.Chat.PingInterval,
		PongTimeout:    cfg.Chat.PongTimeout,
		WriteTimeout:   10 * time.Second,
		MaxMessageSize: cfg.Chat.MaxMessageSize,
	}, chatService, sessionManager, collector, log)

	if chatBus != nil {
		go func() {
			if err := chatBus.Subscribe(context.Background(), chatServer.HandleRemoteMessage); err != nil && err != context.Canceled {
				log.Warnw("chat bus subscription ended", "error", err)
			}
		}()
	}

	var feedControl httphandlers.ChatFeedControl
	if cfg.Chat.SimulatedFeed {
		simulatedFeed := chatinfra.NewSimulatedFeed(chatService, chatServer, cfg.Chat.FeedInterval, log)
		defer simulatedFeed.StopAll()
		feedControl = simulatedFeed
	}

	// HTTP surface.
	if cfg.Logging.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(middleware.RecoveryMiddleware(log))
	router.Use(middleware.ErrorHandlerMiddleware(log))
	router.Use(middleware.NewHTTPRateLimitMiddleware(cfg))
	if cfg.Tracing.Enabled {
		router.Use(middleware.TracingMiddleware())
	}

	httphandlers.NewAuthHandler(authService, cfg.Auth.AccessTokenTTL).SetupRoutes(router)
	httphandlers.NewHealthHandler(healthChecker).SetupRoutes(router)

	// Session and broadcast control require a token; the catalog and chat
	// history are open, with the identity resolved when a token is present.
	authed := router.Group("", middleware.AuthMiddleware(authService))
	httphandlers.NewSessionHandler(sessionManager).SetupRoutes(authed)
	if publisher != nil {
		httphandlers.NewBroadcastHandler(sessionManager, publisher, broadcastLock).SetupRoutes(authed)
	}

	open := router.Group("", middleware.OptionalAuthMiddleware(authService))
	httphandlers.NewLivestreamHandler(livestreamService, chatService, feedControl).SetupRoutes(open)

	router.GET("/ws/chat", gin.WrapF(chatServer.HandleWebSocket))

	if cfg.Monitoring.PrometheusEnabled {
		router.GET("/metrics", gin.WrapH(promhttp.Handler()))
		log.Info("Prometheus metrics enabled")
	}

	srv := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Infof("listening on %s", cfg.Server.Address)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErr:
		log.Fatalw("server failed", "error", err)
	case sig := <-sigChan:
		log.Infow("received shutdown signal", "signal", sig)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Errorw("error during server shutdown", "error", err)
		if closeErr := srv.Close(); closeErr != nil {
			log.Errorw("error force closing server", "error", closeErr)
		}
	}

	// Every open session releases its devices before we exit.
	sessionManager.CloseAll(shutdownCtx)

	if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
		log.Errorw("error shutting down tracer", "error", err)
	}

	log.Info("session server stopped")
}
