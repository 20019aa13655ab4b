package main

import (
	"chat-relay/fanout"
	"chat-relay/gateway"
	"chat-relay/graph"
	"chat-relay/observability"
	"chat-relay/pubsub"
	"chat-relay/repositories"
	"chat-relay/retry"
	"chat-relay/runtime/workers"
	"chat-relay/services"
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Netflix/go-env"
	"github.com/graphql-go/handler"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"
	"github.com/redis/go-redis/v9"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		os.Exit(1)
	}
}

// run initializes all components, manages the server lifecycle, and centralizes
// error reporting, so 'defer' cleanups execute before the process exits.
func run() error {
	// 1. Configuration & Logger
	_ = godotenv.Load()
	var config Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	log := logs.GetLoggerFromString(config.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. Event channel (broker)
	var channel pubsub.EventChannel
	var broker workers.Pinger
	switch config.Broker {
	case "redis":
		opts, err := redis.ParseURL(config.RedisURL)
		if err != nil {
			return fmt.Errorf("invalid REDIS_URL: %w", err)
		}
		rdb := redis.NewClient(opts)
		if err := rdb.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("redis unreachable: %w", err)
		}
		defer func() { _ = rdb.Close() }()
		redisChannel := pubsub.NewRedisChannel(rdb, log)
		channel = redisChannel
		broker = redisChannel
		log.Info("Connected to Redis", "url", config.RedisURL)
	case "memory":
		channel = pubsub.NewMemoryChannel()
		log.Info("Using in-process event channel")
	default:
		return fmt.Errorf("unknown BROKER %q (want redis or memory)", config.Broker)
	}

	// 3. Storage
	var messageRepository repositories.IMessageRepository
	var roomRepository repositories.IRoomRepository
	var userRepository repositories.IUserRepository
	switch config.Storage {
	case "postgres":
		db, err := repositories.OpenPostgres(ctx, config.DatabaseURL)
		if err != nil {
			return err
		}
		defer func() {
			log.Info("Closing Postgres...")
			_ = db.Close()
		}()
		if err := repositories.InitSchema(ctx, db); err != nil {
			return err
		}
		messageRepository = repositories.NewMessageRepository(db, log)
		roomRepository = repositories.NewRoomRepository(db, log)
		userRepository = repositories.NewUserRepository(db, log)
		log.Info("Connected to Postgres")
	case "memory":
		store := repositories.NewSeededMemoryStore()
		messageRepository = store
		roomRepository = store
		userRepository = store
		log.Info("Using in-memory storage")
	default:
		return fmt.Errorf("unknown STORAGE %q (want postgres or memory)", config.Storage)
	}

	// 4. Fan-out core & service facade
	registry := fanout.NewRegistry(log, channel, retry.DefaultStrategy())
	dispatcher := fanout.NewDispatcher(log, channel, messageRepository)
	endpoint := fanout.NewEndpoint(log, registry)
	chatService := services.NewChatService(dispatcher, endpoint, messageRepository, roomRepository, userRepository)

	// 5. GraphQL schema & HTTP surface
	schema, err := graph.New(chatService, log)
	if err != nil {
		return fmt.Errorf("schema build failed: %w", err)
	}
	hub := gateway.NewHub(log, chatService)

	mux := http.NewServeMux()
	mux.Handle("/graphql", handler.New(&handler.Config{
		Schema:   &schema,
		Pretty:   true,
		GraphiQL: true,
	}))
	mux.HandleFunc("/ws", hub.ServeWS)
	mux.Handle("/metrics", observability.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	// 6. Supervision
	sup := workers.NewSupervisor(log, config.RestartInterval)
	sup.Add(hub)
	if broker != nil {
		sup.Add(workers.NewBrokerHealthWorker(log, broker, config.BrokerPingInterval))
	}
	supDone := make(chan struct{})
	go func() {
		sup.Run(ctx)
		close(supDone)
	}()

	// 7. HTTP server
	address := fmt.Sprintf("%s:%d", config.Host, config.Port)
	server := &http.Server{Addr: address, Handler: mux}
	errChan := make(chan error, 1)
	go func() {
		log.Info("Starting HTTP server", "address", address, "at", time.Now().UTC())
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- fmt.Errorf("http server error: %w", err)
		}
	}()

	// 8. Wait for stop or error
	select {
	case <-ctx.Done():
		log.Info("Shutting down gracefully...")
	case err := <-errChan:
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), config.ShutdownTimeout)
	defer cancel()
	_ = server.Shutdown(shutdownCtx)
	sup.Stop()
	<-supDone
	log.Info("Program stopped cleanly")

	return nil
}
