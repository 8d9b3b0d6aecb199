package main

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/LandoDApp/varbe-web-sub001/internal/cache"
	"github.com/LandoDApp/varbe-web-sub001/internal/client"
	"github.com/LandoDApp/varbe-web-sub001/internal/config"
	"github.com/LandoDApp/varbe-web-sub001/internal/database"
	"github.com/LandoDApp/varbe-web-sub001/internal/handler"
	"github.com/LandoDApp/varbe-web-sub001/internal/hub"
	"github.com/LandoDApp/varbe-web-sub001/internal/idgen"
	"github.com/LandoDApp/varbe-web-sub001/internal/middleware"
	"github.com/LandoDApp/varbe-web-sub001/internal/notify"
	"github.com/LandoDApp/varbe-web-sub001/internal/pubsub"
	"github.com/LandoDApp/varbe-web-sub001/internal/repository"
	"github.com/LandoDApp/varbe-web-sub001/internal/service"
	"github.com/LandoDApp/varbe-web-sub001/internal/store"
	pkgjwt "github.com/LandoDApp/varbe-web-sub001/pkg/jwt"
	pkglog "github.com/LandoDApp/varbe-web-sub001/pkg/log"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		pkglog.L().Fatal().Err(err).Msg("failed to load configuration")
	}

	cfg.Log.ServiceName = "chatroom-engine"
	pkglog.Init(cfg.Log)
	logger := pkglog.L()

	instanceID := cfg.Server.InstanceID
	if instanceID == "" {
		instanceID = uuid.New().String()
	}

	logger.Info().
		Str("instance_id", instanceID).
		Str("host", cfg.Server.Host).
		Int("port", cfg.Server.Port).
		Msg("starting chatroom-engine")

	db, err := database.New(&cfg.Database)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	if err := database.AutoMigrate(db,
		&repository.RoomModel{},
		&repository.MessageModel{},
		&repository.MembershipModel{},
	); err != nil {
		logger.Fatal().Err(err).Msg("failed to run migrations")
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Address,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()

	roomCache := cache.NewRedisRoomCache(redisClient, cfg.Cache.Prefix)

	var presenceStore store.PresenceStore
	switch cfg.Presence.Store {
	case "redis":
		presenceStore, err = store.NewRedisStore(redisClient)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to create redis presence store")
		}
	default:
		presenceStore = store.NewMemoryStore()
	}
	defer presenceStore.Close()

	// Second client for subscribing: a Redis connection in subscriber
	// mode cannot run other commands.
	redisSubClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Address,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisSubClient.Close()

	roomBus, err := pubsub.NewRedisPubSub(redisClient)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create redis pubsub")
	}
	busSub, err := pubsub.NewRedisPubSub(redisSubClient)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create redis pubsub subscriber")
	}

	// Notifications can ride Kafka when a broker is available; the
	// room-event bus stays on Redis either way.
	var notifyBus pubsub.Publisher = roomBus
	if cfg.Bus.Backend == "kafka" {
		kafkaPub, err := pubsub.NewKafkaPublisher(cfg.Bus.KafkaBrokers, cfg.Bus.KafkaTopic)
		if err != nil {
			logger.Warn().Err(err).Msg("failed to create kafka publisher, notifications stay on redis")
		} else {
			notifyBus = kafkaPub
			defer kafkaPub.Close()
		}
	}

	ids, err := idgen.NewSnowflake(machineID(instanceID), idgen.DefaultEpoch)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create id generator")
	}

	tokens, err := pkgjwt.NewManager(cfg.Auth.JWTSecret, "chatroom-engine", cfg.Auth.TokenDuration)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create token manager")
	}
	auth := middleware.NewAuthMiddleware(tokens)

	roomRepo := repository.NewGormRoomRepository(db)
	messageRepo := repository.NewGormMessageRepository(db)
	membershipRepo := repository.NewGormMembershipRepository(db)

	h := hub.NewHub(0)
	profiles := client.NewProfileClient(cfg.Profile.BaseURL, cfg.Profile.CacheTTL)

	directory := service.NewDirectoryService(roomRepo, roomCache, cfg.Cache.TTL)
	membership := service.NewMembershipService(membershipRepo, directory)
	notifier := notify.New(membershipRepo, notifyBus, instanceID)
	stream := service.NewStreamService(messageRepo, directory, membership, ids, h, roomBus, instanceID, notifier, cfg.Chat)
	presence := service.NewPresenceTracker(presenceStore, directory, h, roomBus, instanceID, cfg.Presence.TTL, cfg.Presence.SweepInterval)
	bridge := service.NewBridge(h, busSub, instanceID)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(pkglog.GinMiddleware(*logger))

	httpHandler := handler.NewHTTPHandler(directory, stream, presence, membership, auth)
	httpHandler.RegisterRoutes(router)
	wsHandler := handler.NewWSHandler(stream, presence, membership, profiles, auth)
	wsHandler.RegisterRoutes(router)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:        addr,
		Handler:     router,
		ReadTimeout: 15 * time.Second,
		IdleTimeout: 60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info().Str("addr", addr).Msg("chatroom-engine listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		if err := presence.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		if err := bridge.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info().Msg("shutting down chatroom-engine")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error().Err(err).Msg("chatroom-engine exited with error")
		os.Exit(1)
	}
	logger.Info().Msg("chatroom-engine stopped")
}

// machineID derives a stable snowflake machine id from the instance id.
func machineID(instanceID string) int64 {
	h := fnv.New32a()
	h.Write([]byte(instanceID))
	return int64(h.Sum32() % 1024)
}
