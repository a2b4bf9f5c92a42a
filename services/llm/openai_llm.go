// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	DefaultBaseURL    = "https://api.deepseek.com/v1"
	DefaultModel      = "deepseek-chat"
	DefaultAPIKeyEnv  = "DEEPSEEK_API_KEY"
	DefaultSecretPath = "/run/secrets/deepseek_api_key"
)

var llmTracer = otel.Tracer("mantis.llm")

// OpenAIConfig configures an OpenAIClient.
type OpenAIConfig struct {
	// BaseURL of the OpenAI-compatible API, including the version prefix.
	BaseURL string

	// Model identifier sent with every request.
	Model string

	// Keys supplies the bearer token per call. Defaults to an EnvKeySource
	// over DEEPSEEK_API_KEY and the default secret path.
	Keys KeySource

	// HTTPClient is used for all calls. Defaults to a client without its
	// own timeout; per-call timeouts come from GenerationParams.
	HTTPClient *http.Client
}

// OpenAIClient is a CompletionClient for OpenAI-compatible endpoints.
type OpenAIClient struct {
	baseURL    string
	model      string
	keys       KeySource
	httpClient *http.Client
}

// NewOpenAIClient builds a client. It never fails: a missing key is
// reported per call as a 401 UpstreamError, not at startup.
func NewOpenAIClient(cfg OpenAIConfig) *OpenAIClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
		slog.Debug("upstream model not set, defaulting", "model", cfg.Model)
	}
	if cfg.Keys == nil {
		cfg.Keys = EnvKeySource{EnvVar: DefaultAPIKeyEnv, SecretPath: DefaultSecretPath}
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{}
	}
	return &OpenAIClient{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		model:      cfg.Model,
		keys:       cfg.Keys,
		httpClient: cfg.HTTPClient,
	}
}

// Model returns the configured model identifier.
func (o *OpenAIClient) Model() string {
	return o.model
}

// Complete implements CompletionClient.
func (o *OpenAIClient) Complete(ctx context.Context, messages []Message, params GenerationParams) (string, error) {
	ctx, span := llmTracer.Start(ctx, "OpenAIClient.Complete",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("llm.model", o.model),
			attribute.Int("llm.messages", len(messages)),
		),
	)
	defer span.End()

	key, err := o.keys.APIKey()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "api key lookup failed")
		return "", fmt.Errorf("resolve upstream api key: %w", err)
	}
	if key == "" {
		span.SetStatus(codes.Error, CodeMissingAPIKey)
		slog.Warn("upstream API key is not configured")
		return "", &UpstreamError{
			StatusCode: http.StatusUnauthorized,
			Code:       CodeMissingAPIKey,
			Message:    "upstream API key is not configured",
		}
	}

	if params.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, params.Timeout)
		defer cancel()
	}

	clientCfg := openai.DefaultConfig(key)
	clientCfg.BaseURL = o.baseURL
	clientCfg.HTTPClient = o.httpClient
	client := openai.NewClientWithConfig(clientCfg)

	req := o.buildRequest(messages, params)

	start := time.Now()
	resp, err := client.CreateChatCompletion(ctx, req)
	if err != nil {
		upstreamErr := classifyError(err)
		span.RecordError(upstreamErr)
		span.SetStatus(codes.Error, upstreamErr.Error())
		slog.Error("upstream completion failed",
			"model", o.model,
			"duration_ms", time.Since(start).Milliseconds(),
			"error", upstreamErr)
		return "", upstreamErr
	}

	if len(resp.Choices) == 0 {
		span.SetStatus(codes.Error, CodeEmptyCompletion)
		slog.Warn("upstream returned no choices", "model", o.model)
		return "", &UpstreamError{
			StatusCode: http.StatusBadGateway,
			Code:       CodeEmptyCompletion,
			Message:    "upstream returned no choices",
		}
	}

	content := resp.Choices[0].Message.Content
	span.SetAttributes(attribute.Int("llm.completion_chars", len(content)))
	slog.Debug("upstream completion received",
		"model", o.model,
		"finish_reason", resp.Choices[0].FinishReason,
		"duration_ms", time.Since(start).Milliseconds(),
		"completion_chars", len(content))
	return content, nil
}

func (o *OpenAIClient) buildRequest(messages []Message, params GenerationParams) openai.ChatCompletionRequest {
	req := openai.ChatCompletionRequest{
		Model:    o.model,
		Messages: make([]openai.ChatCompletionMessage, 0, len(messages)),
	}
	for _, m := range messages {
		req.Messages = append(req.Messages, openai.ChatCompletionMessage{Role: m.Role, Content: m.Content})
	}
	if params.Temperature != nil {
		req.Temperature = *params.Temperature
	}
	if params.TopP != nil {
		req.TopP = *params.TopP
	}
	if params.MaxTokens != nil {
		req.MaxTokens = *params.MaxTokens
	}
	if params.JSONObject {
		req.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}
	return req
}

// classifyError maps go-openai and transport failures onto UpstreamError.
// Cancellation by our own caller is not an upstream failure and is
// returned wrapped but unclassified.
func classifyError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		code := ""
		if apiErr.Code != nil {
			code = fmt.Sprint(apiErr.Code)
		}
		if code == "" {
			code = apiErr.Type
		}
		return &UpstreamError{
			StatusCode: apiErr.HTTPStatusCode,
			Code:       code,
			Message:    apiErr.Message,
			Err:        err,
		}
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		msg := http.StatusText(reqErr.HTTPStatusCode)
		if reqErr.Err != nil {
			msg = reqErr.Err.Error()
		}
		return &UpstreamError{
			StatusCode: reqErr.HTTPStatusCode,
			Code:       CodeHTTPError,
			Message:    msg,
			Err:        err,
		}
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return &UpstreamError{
			StatusCode: http.StatusGatewayTimeout,
			Code:       CodeTimeout,
			Message:    "upstream call timed out",
			Err:        err,
		}
	}

	if errors.Is(err, context.Canceled) {
		return fmt.Errorf("upstream call canceled: %w", err)
	}

	return &UpstreamError{
		StatusCode: http.StatusBadGateway,
		Code:       CodeNetworkError,
		Message:    "could not reach the upstream API",
		Err:        err,
	}
}

var _ CompletionClient = (*OpenAIClient)(nil)
