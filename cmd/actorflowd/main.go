// actorflowd hosts the durable actor runtime, pipeline orchestrator, and
// trigger manager described in SPEC_FULL.md. Unlike the teacher's
// cmd/tarsy, this process exposes no HTTP/WebSocket API — the REST
// admin/metrics surface is an explicit SPEC_FULL.md Non-goal; operators
// observe and act through cmd/actorctl, which talks to the same store
// backends directly.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/codeready-toolchain/actorflow/internal/storewire"
	"github.com/codeready-toolchain/actorflow/pkg/actorcore"
	"github.com/codeready-toolchain/actorflow/pkg/actortype"
	"github.com/codeready-toolchain/actorflow/pkg/config"
	"github.com/codeready-toolchain/actorflow/pkg/lock"
	"github.com/codeready-toolchain/actorflow/pkg/mqueue"
	"github.com/codeready-toolchain/actorflow/pkg/pipeline"
	"github.com/codeready-toolchain/actorflow/pkg/runtime"
	"github.com/codeready-toolchain/actorflow/pkg/telemetry"
	"github.com/codeready-toolchain/actorflow/pkg/trigger"
	"github.com/codeready-toolchain/actorflow/pkg/version"
)

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func main() {
	configDir := flag.String("config-dir", getEnv("CONFIG_DIR", "./deploy/config"), "Path to configuration directory")
	podID := flag.String("pod-id", getEnv("POD_ID", "actorflowd-local"), "Lease holder identity for this process")
	flag.Parse()

	envPath := filepath.Join(*configDir, ".env")
	if err := godotenv.Load(envPath); err != nil {
		slog.Warn("could not load .env file, continuing with existing environment", "path", envPath, "error", err)
	} else {
		slog.Info("loaded environment file", "path", envPath)
	}

	slog.Info("starting actorflowd", "version", version.Full(), "config_dir", *configDir, "pod_id", *podID)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Initialize(ctx, *configDir)
	if err != nil {
		slog.Error("failed to initialize configuration", "error", err)
		os.Exit(1)
	}
	stats := cfg.Stats()
	slog.Info("configuration loaded", "actor_types", stats.ActorTypes, "pipelines", stats.Pipelines)

	stores, err := storewire.Open(ctx, cfg.Store)
	if err != nil {
		slog.Error("failed to wire store backends", "error", err)
		os.Exit(1)
	}

	recorder := telemetry.NewSlogRecorder(slog.Default())
	defer func() {
		if err := recorder.Close(); err != nil {
			slog.Warn("telemetry recorder close failed", "error", err)
		}
	}()

	locks := lock.NewService(stores.Lock)
	queue := mqueue.NewQueue(stores.Queue, mqueue.RetryPolicy{
		MaxAttempts: cfg.Queue.MaxAttempts,
		BaseDelay:   cfg.Queue.BaseDelay,
		MaxDelay:    cfg.Queue.MaxDelay,
	})

	registry := actortype.NewRegistry()
	registry.Register("counter", actortype.NewCounterFactory())
	for name, at := range cfg.ActorTypeRegistry.GetAll() {
		if name == "counter" {
			continue
		}
		at := at
		registry.Register(name, func() actortype.Capabilities {
			return actortype.Capabilities{
				Telemetry:           at.Telemetry,
				CompactionThreshold: at.CompactionThreshold,
				Execute:             unimplementedExecute(at.Name),
			}
		})
	}

	activities := newActivityTable()
	invoker := func(ctx context.Context, activityID, name string, input any) (any, error) {
		return activities.invoke(ctx, name, input)
	}

	orch := pipeline.NewOrchestrator(stores.Pipeline, pipeline.Activity(func(ctx context.Context, name string, input any) (any, error) {
		return activities.invoke(ctx, name, input)
	}), secretResolver)
	registry.Register("stage-worker", actortype.NewStageWorkerFactory(orch))

	dispatch := func(ctx context.Context, childID, childType string, input any) error {
		return queue.Enqueue(ctx, mqueue.Message{
			Metadata: mqueue.Metadata{
				MessageID: fmt.Sprintf("%s-%d", childID, time.Now().UnixNano()),
				ActorID:   childID,
				ActorType: childType,
				Timestamp: time.Now(),
				Attempt:   1,
			},
			Payload: input,
		})
	}

	rt := runtime.New(stores.Journal, locks, registry, invoker, dispatch, *podID)

	triggers := trigger.NewManager(func(ctx context.Context, accepted trigger.Accepted) error {
		return queue.Enqueue(ctx, mqueue.Message{
			Metadata: mqueue.Metadata{
				MessageID: fmt.Sprintf("%s-%d", accepted.ActorID, time.Now().UnixNano()),
				ActorID:   accepted.ActorID,
				ActorType: accepted.ActorType,
				Timestamp: time.Now(),
				Attempt:   1,
			},
			Payload: accepted.Payload,
		})
	})

	handler := mqueue.Handler(func(ctx context.Context, msg mqueue.Message) error {
		_, err := rt.Activate(ctx, msg.ActorID, msg.ActorType, msg)
		return err
	})
	pool := mqueue.NewWorkerPool(*podID, queue, handler, cfg.Queue.WorkerCount, time.Second, cfg.Queue.VisibilityTimeout)

	if err := triggers.Start(ctx); err != nil {
		slog.Error("failed to start trigger adapters", "error", err)
		os.Exit(1)
	}
	if err := pool.Start(ctx); err != nil {
		slog.Error("failed to start worker pool", "error", err)
		os.Exit(1)
	}

	slog.Info("actorflowd ready", "worker_count", cfg.Queue.WorkerCount)

	<-ctx.Done()
	slog.Info("shutdown signal received, draining", "timeout", cfg.Queue.GracefulShutdownTimeout)

	if err := triggers.Stop(); err != nil {
		slog.Warn("error stopping trigger adapters", "error", err)
	}
	pool.Stop()
	slog.Info("actorflowd stopped")
}

func secretResolver(name string) (string, error) {
	if v := os.Getenv("ACTORFLOW_SECRET_" + name); v != "" {
		return v, nil
	}
	return "", fmt.Errorf("secret %q not configured", name)
}

func unimplementedExecute(actorTypeName string) actorcore.ExecuteFunc {
	return func(ctx context.Context, inst *actorcore.Instance, input any) (any, error) {
		return nil, errors.New("actorflowd: actor type " + actorTypeName + " has no code-registered factory; add one to main.go's registry wiring")
	}
}

type activityTable struct {
	activities map[string]func(ctx context.Context, input any) (any, error)
}

func newActivityTable() *activityTable {
	return &activityTable{activities: make(map[string]func(ctx context.Context, input any) (any, error))}
}

func (t *activityTable) invoke(ctx context.Context, name string, input any) (any, error) {
	fn, ok := t.activities[name]
	if !ok {
		return nil, fmt.Errorf("actorflowd: no activity registered for %q", name)
	}
	return fn(ctx, input)
}
