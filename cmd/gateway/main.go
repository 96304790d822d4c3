package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"chat-gateway/auth"
	"chat-gateway/gateway"
	"chat-gateway/internal"
	"chat-gateway/moderation"
	"chat-gateway/repositories"
	"chat-gateway/runtime"
	"chat-gateway/runtime/workers"
	"chat-gateway/services"

	"github.com/Netflix/go-env"
	"github.com/dgraph-io/badger/v4"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		os.Exit(1)
	}
}

// run initializes all components, manages the server lifecycle, and centralizes error reporting.
// This pattern is preferred over calling os.Exit or panic directly because:
// 1. It ensures all 'defer' statements (like database cleanup) are executed before the program exits.
// 2. It improves testability by decoupling the initialization logic from the main entry point.
// 3. It provides a structured way to handle graceful shutdowns for the server and background workers.
func run() error {
	// 1. Configuration & Logger
	_ = godotenv.Load()
	var config Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	log := logs.GetLoggerFromString(config.LogLevel)

	mask, err := CharacterRune(config.CharReplacement)
	if err != nil {
		return err
	}

	// 2. Database (BadgerDB)
	db, err := badger.Open(badger.DefaultOptions(config.BadgerFilepath).
		WithLoggingLevel(badger.INFO))
	if err != nil {
		return fmt.Errorf("database opening failed: %w", err)
	}
	defer func() {
		log.Info("Closing BadgerDB...")
		_ = db.Close()
	}()

	// 3. Repositories, registry, moderation
	messageRepository := repositories.NewMessageRepository(db, log, config.LimitMessages)
	userRepository := repositories.NewUserRepository(db)
	registry := runtime.NewRegistry()

	words, err := moderation.LoadWordlist()
	if err != nil {
		return fmt.Errorf("wordlist loading failed: %w", err)
	}
	moderator, err := moderation.NewModerator(words, mask)
	if err != nil {
		return fmt.Errorf("moderator build failed: %w", err)
	}
	log.Info(fmt.Sprintf("%d censored words loaded", len(words)))

	// 4. Gateway wiring
	router := gateway.NewRouter(log, registry, messageRepository, userRepository,
		moderator, config.MaxContentLength)
	broadcaster := gateway.NewBroadcaster(log, registry, userRepository)
	gw := gateway.NewGateway(log, registry, userRepository, auth.JWTVerifier{},
		router, broadcaster, config.SendBufferSize, config.MaxFrameSize,
		config.HeartbeatInterval)
	authService := services.NewAuthService(userRepository, config.AuthTokenDuration)
	accounts := gateway.NewAccountHandler(log, authService)

	// 5. Supervision: the liveness sweep runs under the supervisor
	sup := workers.NewSupervisor(log, config.RestartInterval)
	sup.Add(workers.NewLivenessWorker(log, registry, config.HeartbeatInterval))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go sup.Run(ctx)

	// 6. Inspect dashboard (read-only)
	internal.StartInspectServer(db, config.InspectPort, internal.MessageMapper, func() map[string]any {
		return map[string]any{"OnlineConnections": registry.Count()}
	})

	// 7. HTTP server hosting the WebSocket endpoint
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", gw.ServeWS)
	mux.HandleFunc("/auth/register", accounts.Register)
	mux.HandleFunc("/auth/login", accounts.Login)

	address := fmt.Sprintf("%s:%d", config.Host, config.Port)
	server := &http.Server{Addr: address, Handler: mux}

	errChan := make(chan error, 1)
	go func() {
		log.Info("Starting gateway", "address", address, "at", time.Now().UTC())
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- fmt.Errorf("server error: %w", err)
		}
	}()

	// 8. Wait for Stop or Error
	select {
	case <-ctx.Done():
		log.Info("Shutting down gracefully...")
	case err := <-errChan:
		return err
	}

	// 9. Final Cleanup
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = server.Shutdown(shutdownCtx)
	sup.Stop()
	log.Info("Program stopped cleanly")

	return nil
}
