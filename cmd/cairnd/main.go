// cairnd runs a cairn swarm as a long-lived daemon: it loads cairn.yml,
// builds the coordinator, and drives heartbeat sweeps on a fixed interval
// until it receives SIGTERM/SIGINT.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/cairnlabs/cairn/internal/config"
	"github.com/cairnlabs/cairn/internal/coordinator"
	"github.com/cairnlabs/cairn/internal/instance"
	"github.com/cairnlabs/cairn/internal/observability"
)

const (
	defaultConfigPath    = "cairn.yml"
	defaultHealthAddr    = ":8080"
	defaultSweepInterval = time.Second
	heartbeatTaskType    = "heartbeat"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// 1. Resolve environment
	instanceName, err := instance.Resolve("")
	if err != nil {
		return err
	}

	configPath := os.Getenv("CAIRN_CONFIG")
	if configPath == "" {
		configPath = defaultConfigPath
	}

	sweepInterval := defaultSweepInterval
	if raw := os.Getenv("CAIRN_SWEEP_INTERVAL"); raw != "" {
		sweepInterval, err = time.ParseDuration(raw)
		if err != nil {
			return fmt.Errorf("invalid CAIRN_SWEEP_INTERVAL: %w", err)
		}
	}

	healthAddr := os.Getenv("CAIRN_HEALTH_ADDR")
	if healthAddr == "" {
		healthAddr = defaultHealthAddr
	}

	// 2. Load configuration
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load %s: %w", configPath, err)
	}

	// 3. Structured logger
	logger := observability.NewLogger(observability.LoggerConfig{
		Level:       cfg.Logging.Level,
		Format:      cfg.Logging.Format,
		ServiceName: "cairnd",
	})
	defer observability.Sync(logger)

	// 4. Build the swarm
	coord, store, err := coordinator.Build(cfg, coordinator.BuildOptions{
		InstanceName: instanceName,
		Logger:       logger,
	})
	if err != nil {
		return err
	}
	if store != nil {
		defer store.Close()
		pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err := store.Ping(pingCtx)
		cancel()
		if err != nil {
			return fmt.Errorf("redis not accessible: %w", err)
		}
	}

	logger.Info("cairnd starting",
		zap.String("instance", instanceName),
		zap.Int("agents", len(coord.AgentNames())),
		zap.Duration("sweep_interval", sweepInterval),
		zap.Bool("redis_mirror", store != nil))

	// 5. Health server
	health := coordinator.NewHealthServer(coord, healthAddr, logger)
	health.Start()
	defer health.Shutdown(context.Background())

	// 6. Sweep loop with graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("shutting down")
			return nil
		case <-ticker.C:
			if err := coord.Sweep(ctx, heartbeatTaskType); err != nil {
				if ctx.Err() != nil {
					logger.Info("shutting down")
					return nil
				}
				logger.Warn("sweep failed", zap.Error(err))
			}
		}
	}
}
