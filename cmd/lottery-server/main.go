// Command lottery-server accepts campaign registrations over HTTP.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/logger"

	"campaignlottery/internal/artifact"
	"campaignlottery/internal/backend"
	"campaignlottery/internal/config"
	"campaignlottery/internal/handlers"
	"campaignlottery/internal/metrics"
	"campaignlottery/internal/services"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML config file")
	envFile := flag.String("env-file", ".env", "optional dotenv file loaded before the environment")
	flag.Parse()

	if err := run(*configPath, *envFile); err != nil {
		config.Exitf("Error: %v", err)
	}
}

// run serves until interrupted. Deferred cleanup finishes before main exits.
func run(configPath, envFile string) (err error) {
	defer logger.Init("lottery-server", true, false, io.Discard).Close()

	cfg, err := config.Load(configPath, envFile)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 1. Open the stores and initialize the Lottery Service
	b, err := backend.Open(ctx, cfg, false)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := b.Close(); closeErr != nil {
			logger.Errorf("close backends: %v", closeErr)
			err = errors.Join(err, closeErr)
		}
	}()
	lotteryService := services.NewLotteryService(b.Records, b.Identities, nil, artifact.FormatJSON)

	// 2. Initialize the HTTP Handler
	httpHandler := handlers.NewHTTPHandler(lotteryService, metrics.New())

	// 3. Set up the Gin router and register routes
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())
	httpHandler.RegisterRoutes(r)

	// 4. Run the server until interrupted
	srv := &http.Server{Addr: cfg.Server.Addr, Handler: r, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Errorf("shutdown: %v", err)
		}
	}()

	logger.Infof("Server starting on %s", cfg.Server.Addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("run server: %w", err)
	}
	logger.Info("Server stopped")
	return nil
}
