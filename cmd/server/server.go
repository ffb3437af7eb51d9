package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/KirkDiggler/combat-api/internal/content"
	"github.com/KirkDiggler/combat-api/internal/events"
	"github.com/KirkDiggler/combat-api/internal/handlers/ws"
	combatorch "github.com/KirkDiggler/combat-api/internal/orchestrators/combat"
	"github.com/KirkDiggler/combat-api/internal/pkg/clock"
	"github.com/KirkDiggler/combat-api/internal/pkg/idgen"
	"github.com/KirkDiggler/combat-api/internal/pkg/roller"
	"github.com/KirkDiggler/combat-api/internal/redis"
	combatrepo "github.com/KirkDiggler/combat-api/internal/repositories/combat"
)

var (
	httpPort    int
	redisAddr   string
	contentPath string
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start the combat server",
	Long:  `Start the combat engine with its WebSocket gateway.`,
	RunE:  runServer,
}

func init() {
	serverCmd.Flags().IntVar(&httpPort, "port", 8080, "HTTP listen port")
	serverCmd.Flags().StringVar(&redisAddr, "redis", "", "Redis address; empty runs the in-memory repository")
	serverCmd.Flags().StringVar(&contentPath, "content", "", "content tables YAML; empty uses the embedded defaults")
}

func runServer(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		slog.Info("received shutdown signal, gracefully stopping")
		cancel()
	}()

	tables, err := loadContent()
	if err != nil {
		return fmt.Errorf("failed to load content tables: %w", err)
	}

	repo, err := buildRepository()
	if err != nil {
		return fmt.Errorf("failed to build repository: %w", err)
	}

	bus := events.NewBus()
	defer func() { _ = bus.Close() }()

	orch, err := combatorch.NewOrchestrator(&combatorch.Config{
		Repository:  repo,
		Publisher:   bus,
		Content:     tables,
		IDGenerator: idgen.NewUUID("combat"),
		Roller:      roller.NewToolkit(),
		Clock:       clock.New(),
	})
	if err != nil {
		return fmt.Errorf("failed to build orchestrator: %w", err)
	}
	defer orch.Close()

	gateway, err := ws.NewHandler(&ws.HandlerConfig{
		Service:    orch,
		Subscriber: bus,
	})
	if err != nil {
		return fmt.Errorf("failed to build gateway: %w", err)
	}

	mux := http.NewServeMux()
	mux.Handle("/ws", gateway)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", httpPort),
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errChan := make(chan error, 1)
	go func() {
		slog.Info("combat server starting", "port", httpPort)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- fmt.Errorf("failed to serve: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		slog.Info("shutting down")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Warn("forced shutdown", "error", err)
			_ = srv.Close()
		}
		return nil
	case err := <-errChan:
		return err
	}
}

func loadContent() (*content.Content, error) {
	if contentPath == "" {
		return content.Default()
	}
	return content.Load(contentPath)
}

func buildRepository() (combatrepo.Repository, error) {
	if redisAddr == "" {
		slog.Info("no redis address configured, using in-memory repository")
		return combatrepo.NewInMemory(), nil
	}
	client, err := redis.NewClient(redisAddr, nil)
	if err != nil {
		return nil, err
	}
	return combatrepo.NewRedis(&combatrepo.RedisConfig{Client: client})
}
