package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/parleychat/parley/internal/server"
	"github.com/parleychat/parley/internal/store"
)

func main() {
	fmt.Println("Starting Parley relay...")

	// Optional .env for local development; real deployments set env vars.
	if err := godotenv.Load(); err == nil {
		log.Println("Loaded configuration from .env")
	}

	config := server.LoadConfig()
	server.SetConfig(config)

	st, err := openStore(config)
	if err != nil {
		log.Fatalf("Failed to open %s store: %v", config.Store.Backend, err)
	}
	log.Printf("Durable store: %s", config.Store.Backend)

	hub := server.NewHub(st)
	server.StartHub(hub)

	mux := server.SetupRoutes(hub, st)
	httpServer := server.CreateServer(config.Port, mux)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.StartServer(httpServer)
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Printf("Received signal %s, shutting down", sig)
	case err := <-errCh:
		log.Printf("HTTP server stopped: %v", err)
	}

	if err := server.ShutdownServer(httpServer, 10*time.Second); err != nil {
		log.Printf("HTTP shutdown error: %v", err)
	}
	if err := hub.Shutdown(5 * time.Second); err != nil {
		log.Printf("Hub shutdown error: %v", err)
	}
	if err := st.Close(); err != nil {
		log.Printf("Store close error: %v", err)
	}
}

// openStore builds the configured durable store backend. Redis is pinged
// up front so a bad address fails fast instead of on the first message.
func openStore(config *server.Config) (store.Store, error) {
	switch config.Store.Backend {
	case "sqlite":
		return store.OpenSQLite(config.Store.SQLitePath, config.History.Retention)
	case "redis":
		r := store.NewRedis(config.Store.RedisAddr, config.History.Retention)
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := r.Ping(ctx); err != nil {
			return nil, err
		}
		return r, nil
	default:
		return store.NewMemory(config.History.Retention), nil
	}
}
