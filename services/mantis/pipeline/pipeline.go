// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package pipeline turns a roadmap request into a validated roadmap.
//
// # Description
//
// A request flows through these stages:
//
//	ValidateRequest -> BuildPrompt -> upstream -> Sanitize -> ParseRoadmap
//	                                                   |
//	                          ParseError -> repair once -+
//	                                                   v
//	                                          ValidateRoadmap -> Roadmap
//
// Only a *ParseError triggers the repair call. Business-rule failures
// (timeline, structure, duration) are returned as-is, and the repaired
// output is held to the same rules as a first-try output.
//
// The package also hosts the chat Advisor, which shares the upstream
// client and prompt helpers but none of the validation stages.
//
// # Thread Safety
//
// Synthesizer and Advisor hold no per-request state and are safe for
// concurrent use.
package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/pratapaadiii/mantis/services/llm"
	"github.com/pratapaadiii/mantis/services/mantis/datatypes"
	"github.com/pratapaadiii/mantis/services/mantis/observability"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("mantis.pipeline")

// =============================================================================
// Configuration
// =============================================================================

// Config holds the generation parameters of the two upstream calls.
type Config struct {
	Primary llm.GenerationParams
	Repair  llm.GenerationParams
}

// DefaultConfig returns the production parameters.
func DefaultConfig() Config {
	return Config{
		Primary: llm.GenerationParams{
			Temperature: llm.Float32(0.7),
			TopP:        llm.Float32(0.9),
			MaxTokens:   llm.Int(2000),
			Timeout:     45 * time.Second,
			JSONObject:  true,
		},
		Repair: llm.GenerationParams{
			Temperature: llm.Float32(0.2),
			MaxTokens:   llm.Int(1500),
			Timeout:     20 * time.Second,
			JSONObject:  true,
		},
	}
}

// Option configures a Synthesizer or an Advisor.
type Option func(*options)

type options struct {
	config  Config
	chat    llm.GenerationParams
	metrics *observability.Metrics
	logger  *slog.Logger
}

// WithConfig overrides the generation parameters.
func WithConfig(cfg Config) Option {
	return func(o *options) { o.config = cfg }
}

// WithChatParams overrides the chat generation parameters.
func WithChatParams(p llm.GenerationParams) Option {
	return func(o *options) { o.chat = p }
}

// WithMetrics records pipeline metrics.
func WithMetrics(m *observability.Metrics) Option {
	return func(o *options) { o.metrics = m }
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

func buildOptions(opts []Option) options {
	o := options{
		config: DefaultConfig(),
		chat:   DefaultChatParams(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	return o
}

// =============================================================================
// Synthesizer
// =============================================================================

// Synthesizer generates validated roadmaps.
type Synthesizer struct {
	client    llm.CompletionClient
	sanitizer *Sanitizer
	config    Config
	metrics   *observability.Metrics
	logger    *slog.Logger
}

// NewSynthesizer builds a Synthesizer over client.
func NewSynthesizer(client llm.CompletionClient, opts ...Option) *Synthesizer {
	o := buildOptions(opts)
	return &Synthesizer{
		client:    client,
		sanitizer: NewSanitizer(nil, o.metrics.RecordSanitizerRule),
		config:    o.config,
		metrics:   o.metrics,
		logger:    o.logger,
	}
}

// Generate runs the full pipeline for one request.
//
// # Outputs
//
//   - *datatypes.Roadmap: The validated roadmap. Never modified afterwards.
//   - error: An Error from this package, an *llm.UpstreamError, or a
//     context error when ctx ends first.
//
// # Limitations
//
//   - At most two upstream calls are made: the primary call and one repair.
func (s *Synthesizer) Generate(ctx context.Context, req datatypes.RoadmapRequest) (*datatypes.Roadmap, error) {
	ctx, span := tracer.Start(ctx, "Synthesizer.Generate")
	defer span.End()
	span.SetAttributes(attribute.Int("roadmap.features", len(req.Features)))

	roadmap, err := s.generate(ctx, req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(attribute.Int("roadmap.phases", len(roadmap.Phases)))
	return roadmap, nil
}

func (s *Synthesizer) generate(ctx context.Context, req datatypes.RoadmapRequest) (*datatypes.Roadmap, error) {
	req, err := ValidateRequest(req)
	if err != nil {
		return nil, err
	}

	prompt, err := BuildPrompt(req)
	if err != nil {
		return nil, err
	}

	raw, err := s.complete(ctx, observability.CallPrimary, prompt.Messages(), s.config.Primary)
	if err != nil {
		return nil, err
	}

	roadmap, err := ParseRoadmap(s.sanitizer.Sanitize(raw))
	var parseErr *ParseError
	if errors.As(err, &parseErr) {
		s.logger.Warn("roadmap completion did not parse, attempting repair",
			"app_name", req.AppName,
			"reason", parseErr.Reason)
		roadmap, err = s.repair(ctx, raw, parseErr)
	}
	if err != nil {
		return nil, err
	}

	if err := ValidateRoadmap(roadmap); err != nil {
		s.logger.Warn("roadmap failed validation",
			"app_name", req.AppName,
			"error", err)
		return nil, err
	}

	s.logger.Info("roadmap generated",
		"app_name", req.AppName,
		"phases", len(roadmap.Phases))
	return roadmap, nil
}

// repair makes the single repair call. A repaired text that still does
// not parse ends in *RetryExhaustedError; upstream failures pass through.
func (s *Synthesizer) repair(ctx context.Context, raw string, cause *ParseError) (*datatypes.Roadmap, error) {
	ctx, span := tracer.Start(ctx, "Synthesizer.repair")
	defer span.End()

	prompt, err := BuildRepairPrompt(raw, cause)
	if err != nil {
		return nil, err
	}

	fixed, err := s.complete(ctx, observability.CallRepair, prompt.Messages(), s.config.Repair)
	if err != nil {
		s.metrics.RecordRepair(false)
		return nil, err
	}

	roadmap, err := ParseRoadmap(s.sanitizer.Sanitize(fixed))
	if err != nil {
		s.metrics.RecordRepair(false)
		var parseErr *ParseError
		if !errors.As(err, &parseErr) {
			parseErr = &ParseError{Reason: "invalid JSON", Err: err}
		}
		span.SetStatus(codes.Error, parseErr.Reason)
		return nil, &RetryExhaustedError{Last: parseErr}
	}

	s.metrics.RecordRepair(true)
	return roadmap, nil
}

func (s *Synthesizer) complete(ctx context.Context, call string, messages []llm.Message, params llm.GenerationParams) (string, error) {
	start := time.Now()
	text, err := s.client.Complete(ctx, messages, params)
	s.metrics.ObserveUpstream(call, time.Since(start).Seconds())
	return text, err
}
