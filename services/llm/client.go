// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package llm talks to the upstream chat-completion API.
//
// The only production backend is an OpenAI-compatible endpoint (DeepSeek by
// default). Callers depend on CompletionClient so the roadmap pipeline and
// the chat advisor can be tested against fakes.
package llm

import (
	"context"
	"time"
)

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one entry of a chat-completion conversation.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// GenerationParams are the sampling and budget settings for one call.
// Nil pointers leave the upstream default in place.
type GenerationParams struct {
	Temperature *float32 `json:"temperature"`
	TopP        *float32 `json:"top_p"`
	MaxTokens   *int     `json:"max_tokens"`

	// Timeout bounds the whole call. Zero means only the caller's context applies.
	Timeout time.Duration `json:"-"`

	// JSONObject asks the upstream to constrain output to a JSON object.
	JSONObject bool `json:"-"`
}

// CompletionClient issues a single chat completion and returns the text of
// the first choice. Failures are reported as *UpstreamError where the
// upstream (or the transport to it) is at fault.
type CompletionClient interface {
	Complete(ctx context.Context, messages []Message, params GenerationParams) (string, error)
}

// Float32 returns a pointer to v, for GenerationParams literals.
func Float32(v float32) *float32 { return &v }

// Int returns a pointer to v, for GenerationParams literals.
func Int(v int) *int { return &v }
