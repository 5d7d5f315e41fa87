// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/singleflight"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/AleutianAI/dingen/pkg/envcfg"
	"github.com/AleutianAI/dingen/services/planner/agent"
	"github.com/AleutianAI/dingen/services/planner/cleanup"
	"github.com/AleutianAI/dingen/services/planner/conversation"
	"github.com/AleutianAI/dingen/services/planner/handlers"
	"github.com/AleutianAI/dingen/services/planner/observability"
	"github.com/AleutianAI/dingen/services/planner/routes"
	"github.com/AleutianAI/dingen/services/planner/session"
	"github.com/AleutianAI/dingen/services/sheets"

	// --- OpenTelemetry imports ---
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"google.golang.org/grpc"
)

func initTracer() (func(context.Context), error) {
	ctx := context.Background()

	otelEndpoint := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")
	if otelEndpoint == "" {
		otelEndpoint = "aleutian-otel-collector:4317"
	}
	conn, err := grpc.NewClient(otelEndpoint,
		grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, err
	}
	traceExporter, err := otlptracegrpc.New(ctx, otlptracegrpc.WithGRPCConn(conn))
	if err != nil {
		return nil, err
	}
	res, err := resource.New(ctx,
		resource.WithAttributes(semconv.ServiceNameKey.String("planner-service")))
	if err != nil {
		return nil, err
	}
	bsp := sdktrace.NewBatchSpanProcessor(traceExporter)
	traceProvider := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
		sdktrace.WithResource(res),
		sdktrace.WithSpanProcessor(bsp))
	otel.SetTracerProvider(traceProvider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(propagation.
		TraceContext{}, propagation.Baggage{}))

	return func(ctx context.Context) {
		ctx, cancel := context.WithTimeout(ctx, time.Second*5)
		defer cancel()
		if err := traceExporter.Shutdown(ctx); err != nil {
			slog.Error("failed to shutdown OTLP exporter", "error", err)
		}
	}, nil
}

// datasetLoader fetches and caches the combined recipe and dinner
// history dataset. The first successful fetch is reused for the life of
// the process; concurrent first-fetches are coalesced so two sessions
// provisioning at once hit the spreadsheet API once.
type datasetLoader struct {
	client *sheets.Client
	group  singleflight.Group

	mu     sync.RWMutex
	cached sheets.Dataset
}

func (l *datasetLoader) load(ctx context.Context) (sheets.Dataset, error) {
	l.mu.RLock()
	cached := l.cached
	l.mu.RUnlock()
	if cached != nil {
		return cached, nil
	}

	v, err, _ := l.group.Do("dataset", func() (interface{}, error) {
		recipes, err := l.client.ReadRows(ctx, sheets.RecipesWorksheet, 0)
		if err != nil {
			return nil, err
		}
		history, err := l.client.ReadRows(ctx, sheets.DinnerHistoryWorksheet, sheets.DinnerHistoryLimit)
		if err != nil {
			return nil, err
		}
		dataset := sheets.Combine(
			sheets.Normalize(recipes, sheets.OriginRecipes),
			sheets.Normalize(history, sheets.OriginDinnerHistory),
		)
		slog.Info("Fetched planning dataset", "recipes", len(recipes), "history", len(history))

		l.mu.Lock()
		l.cached = dataset
		l.mu.Unlock()
		return dataset, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(sheets.Dataset), nil
}

func main() {
	port := os.Getenv("PLANNER_PORT")
	if port == "" {
		port = "12300"
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	if envcfg.IsLocal() {
		envcfg.LoadDotenv()
	}

	// --- Init the tracer ---
	shutdownTracer, err := initTracer()
	if err != nil {
		log.Fatalf("failed to setup the OTLP tracer: %v", err)
	}
	defer shutdownTracer(context.Background())

	observability.InitMetrics()

	sheetsClient, err := sheets.NewClient(context.Background())
	if err != nil {
		log.Fatalf("Failed to initialize the Sheets client: %v", err)
	}
	loader := &datasetLoader{client: sheetsClient}

	platform, err := agent.NewOpenAIPlatform()
	if err != nil {
		log.Fatalf("Failed to initialize the agent platform client: %v", err)
	}

	model := envcfg.Getenv("OPENAI_MODEL", "gpt-4o")
	emailAgentID := os.Getenv("EMAIL_AGENT_ID")
	if emailAgentID == "" {
		slog.Info("EMAIL_AGENT_ID not set, running without the email capability")
	}
	provisioner := agent.NewProvisioner(platform, model, emailAgentID)

	driver := conversation.NewDriver(platform, conversation.Config{
		PollInterval: envcfg.Duration("RUN_POLL_INTERVAL", 0),
		RunTimeout:   envcfg.Duration("RUN_TIMEOUT", 0),
	})

	store := session.NewStore()
	coordinator := cleanup.NewCoordinator(platform)
	monitor := cleanup.NewMonitor(coordinator,
		envcfg.Duration("SESSION_IDLE_THRESHOLD", cleanup.DefaultInactivityThreshold))

	scheduler := cleanup.NewScheduler(store, monitor, cleanup.SchedulerConfig{
		Interval: envcfg.Duration("CLEANUP_SWEEP_INTERVAL", 0),
	})
	if err := scheduler.Start(context.Background()); err != nil {
		log.Fatalf("Failed to start the cleanup scheduler: %v", err)
	}
	defer scheduler.Stop()

	chatDeps := handlers.ChatDeps{
		Store:       store,
		Provisioner: provisioner,
		Driver:      driver,
		Coordinator: coordinator,
		Dataset:     loader.load,
	}

	router := gin.Default()
	router.Use(otelgin.Middleware("planner-service"))

	routes.SetupRoutes(router, chatDeps, store, coordinator, monitor)

	log.Println("Starting the planner server on port ", port)
	if err := router.Run(":" + port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
