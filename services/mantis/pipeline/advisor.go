// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/pratapaadiii/mantis/services/llm"
	"github.com/pratapaadiii/mantis/services/mantis/datatypes"
	"github.com/pratapaadiii/mantis/services/mantis/observability"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// DefaultChatParams returns the production chat parameters.
func DefaultChatParams() llm.GenerationParams {
	return llm.GenerationParams{
		Temperature: llm.Float32(0.5),
		TopP:        llm.Float32(0.9),
		MaxTokens:   llm.Int(1024),
		Timeout:     50 * time.Second,
	}
}

// Advisor answers follow-up questions about a saved roadmap.
type Advisor struct {
	client  llm.CompletionClient
	params  llm.GenerationParams
	metrics *observability.Metrics
	logger  *slog.Logger
}

// NewAdvisor builds an Advisor over client.
func NewAdvisor(client llm.CompletionClient, opts ...Option) *Advisor {
	o := buildOptions(opts)
	return &Advisor{
		client:  client,
		params:  o.chat,
		metrics: o.metrics,
		logger:  o.logger,
	}
}

// Reply returns the assistant's next message. The roadmap is embedded in
// the system prompt and the client's history follows it in order.
func (a *Advisor) Reply(ctx context.Context, req datatypes.ChatRequest) (string, error) {
	ctx, span := tracer.Start(ctx, "Advisor.Reply")
	defer span.End()
	span.SetAttributes(attribute.Int("chat.messages", len(req.Messages)))

	if err := req.Validate(); err != nil {
		span.SetStatus(codes.Error, "invalid chat request")
		return "", fmt.Errorf("invalid chat request: %w", err)
	}

	system, err := BuildChatSystemPrompt(req.Roadmap)
	if err != nil {
		return "", err
	}

	messages := make([]llm.Message, 0, len(req.Messages)+1)
	messages = append(messages, llm.Message{Role: llm.RoleSystem, Content: system})
	for _, m := range req.Messages {
		messages = append(messages, llm.Message{Role: m.Role, Content: m.Content})
	}

	start := time.Now()
	reply, err := a.client.Complete(ctx, messages, a.params)
	a.metrics.ObserveUpstream(observability.CallChat, time.Since(start).Seconds())
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		a.logger.Error("chat completion failed", "error", err)
		return "", err
	}
	return reply, nil
}
