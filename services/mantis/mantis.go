// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package mantis assembles the roadmap synthesis service.
//
// It wires the completion client, the synthesis pipeline, the chat advisor,
// Prometheus metrics, OpenTelemetry tracing and the Gin router into a
// Service that can be run until its context is canceled.
//
// # Usage
//
//	cfg, _ := config.Load(config.Path())
//	svc, err := mantis.New(mantis.Options{Config: cfg})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
//	defer stop()
//	err = svc.Run(ctx)
package mantis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pratapaadiii/mantis/services/llm"
	"github.com/pratapaadiii/mantis/services/mantis/config"
	"github.com/pratapaadiii/mantis/services/mantis/handlers"
	"github.com/pratapaadiii/mantis/services/mantis/middleware"
	"github.com/pratapaadiii/mantis/services/mantis/observability"
	"github.com/pratapaadiii/mantis/services/mantis/pipeline"
	"github.com/pratapaadiii/mantis/services/mantis/routes"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// ServiceName identifies the service in traces and logs.
const ServiceName = "mantis"

// TracingStdout selects the stdout span exporter instead of OTLP.
const TracingStdout = "stdout"

// ShutdownTimeout bounds graceful shutdown of the HTTP server and tracer.
const ShutdownTimeout = 10 * time.Second

// =============================================================================
// Options
// =============================================================================

// Options configure New.
type Options struct {
	// Config is the loaded service configuration.
	Config config.MantisConfig

	// Logger receives service logs. Defaults to slog.Default().
	Logger *slog.Logger

	// Client overrides the completion client built from Config.Upstream.
	Client llm.CompletionClient

	// Registry receives the service metrics. Defaults to a new registry
	// with the Go and process collectors.
	Registry *prometheus.Registry
}

// =============================================================================
// Service
// =============================================================================

// Service is the assembled HTTP service.
//
// # Thread Safety
//
// Run must be called at most once. Router is safe to call at any time.
type Service struct {
	cfg      config.MantisConfig
	logger   *slog.Logger
	router   *gin.Engine
	registry *prometheus.Registry
	metrics  *observability.Metrics

	tracerShutdown func(context.Context) error
}

// New builds a Service.
//
// # Description
//
// Initializes tracing, metrics and the completion client, then registers
// every route. A missing API key is not an error here; it surfaces per
// request as a 401 from the upstream layer.
//
// # Outputs
//
//   - *Service: Ready to Run
//   - error: Non-nil if the tracer cannot be initialized
func New(opts Options) (*Service, error) {
	s := &Service{
		cfg:      opts.Config,
		logger:   opts.Logger,
		registry: opts.Registry,
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}

	shutdown, err := s.initTracer()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize tracer: %w", err)
	}
	s.tracerShutdown = shutdown

	if s.registry == nil {
		s.registry = prometheus.NewRegistry()
		s.registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}
	s.metrics = observability.NewMetrics(s.registry)

	client := opts.Client
	if client == nil {
		client = s.newCompletionClient()
	}

	s.initRouter(client)
	return s, nil
}

// Router returns the configured Gin engine. Used by tests.
func (s *Service) Router() *gin.Engine {
	return s.router
}

// Run serves HTTP until ctx is canceled, then shuts down gracefully.
//
// # Outputs
//
//   - error: Nil after a clean shutdown; the listen error otherwise
func (s *Service) Run(ctx context.Context) error {
	addr := net.JoinHostPort("", strconv.Itoa(s.cfg.Server.Port))
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve is Run on an existing listener. The listener is closed on return.
func (s *Service) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.logger.Info("Starting mantis server", "addr", ln.Addr().String())
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		s.logger.Info("Shutting down mantis server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	err := g.Wait()
	s.cleanup()
	return err
}

// =============================================================================
// Private Initialization Methods
// =============================================================================

// initTracer sets the global tracer provider.
//
// An empty endpoint leaves the no-op provider in place. TracingStdout
// pretty-prints spans to stderr. Anything else is an OTLP gRPC collector
// address, dialed without TLS.
func (s *Service) initTracer() (func(context.Context) error, error) {
	endpoint := s.cfg.Tracing.OTLPEndpoint
	if endpoint == "" {
		return nil, nil
	}
	ctx := context.Background()

	var exporter sdktrace.SpanExporter
	if endpoint == TracingStdout {
		exp, err := stdouttrace.New(stdouttrace.WithWriter(os.Stderr), stdouttrace.WithPrettyPrint())
		if err != nil {
			return nil, fmt.Errorf("failed to create stdout exporter: %w", err)
		}
		exporter = exp
	} else {
		conn, err := grpc.NewClient(endpoint,
			grpc.WithTransportCredentials(insecure.NewCredentials()))
		if err != nil {
			return nil, fmt.Errorf("failed to create gRPC connection: %w", err)
		}
		exp, err := otlptracegrpc.New(ctx, otlptracegrpc.WithGRPCConn(conn))
		if err != nil {
			return nil, fmt.Errorf("failed to create trace exporter: %w", err)
		}
		exporter = exp
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(semconv.ServiceNameKey.String(ServiceName)))
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	provider := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
		sdktrace.WithResource(res),
		sdktrace.WithBatcher(exporter))
	otel.SetTracerProvider(provider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{}, propagation.Baggage{}))

	s.logger.Info("Tracing enabled", "endpoint", endpoint)
	return provider.Shutdown, nil
}

func (s *Service) newCompletionClient() llm.CompletionClient {
	up := s.cfg.Upstream
	s.logger.Info("Using OpenAI-compatible upstream", "base_url", up.BaseURL, "model", up.Model)
	return llm.NewOpenAIClient(llm.OpenAIConfig{
		BaseURL: up.BaseURL,
		Model:   up.Model,
		Keys:    llm.EnvKeySource{EnvVar: up.APIKeyEnv, SecretPath: up.SecretPath},
	})
}

func (s *Service) initRouter(client llm.CompletionClient) {
	s.router = gin.New()
	s.router.Use(
		gin.Recovery(),
		otelgin.Middleware(ServiceName),
		middleware.RequestIDMiddleware(),
		middleware.AccessLogMiddleware(s.logger),
	)

	synth := pipeline.NewSynthesizer(client,
		pipeline.WithMetrics(s.metrics),
		pipeline.WithLogger(s.logger))
	advisor := pipeline.NewAdvisor(client,
		pipeline.WithMetrics(s.metrics),
		pipeline.WithLogger(s.logger))

	ws := handlers.DefaultWebSocketConfig()
	if s.cfg.Chat.MessagesPerMinute > 0 {
		ws.MessagesPerMinute = s.cfg.Chat.MessagesPerMinute
	}
	if s.cfg.Chat.Burst > 0 {
		ws.Burst = s.cfg.Chat.Burst
	}
	ws.AllowedOrigins = s.cfg.Server.AllowedOrigins

	routes.SetupRoutes(s.router, routes.Dependencies{
		Generator: synth,
		Advisor:   advisor,
		Metrics:   s.metrics,
		Gatherer:  s.registry,
		WebSocket: ws,
	})
}

// cleanup flushes the tracer. Called when Serve returns.
func (s *Service) cleanup() {
	if s.tracerShutdown == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()
	if err := s.tracerShutdown(ctx); err != nil {
		s.logger.Error("failed to shutdown tracer", "error", err)
	}
}
