// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package datatypes

import (
	"github.com/go-playground/validator/v10"
)

const (
	// MaxMessageContentBytes is the maximum size of a single chat message.
	MaxMessageContentBytes = 32 * 1024

	// MaxMessagesPerRequest caps the history a client may send.
	MaxMessagesPerRequest = 100
)

// Chat roles accepted from clients. System prompts are always ours.
const (
	ChatRoleUser      = "user"
	ChatRoleAssistant = "assistant"
)

// validateMaxBytes checks byte length, not rune count.
func validateMaxBytes(fl validator.FieldLevel) bool {
	return len(fl.Field().String()) <= MaxMessageContentBytes
}

// ChatMessage is one turn of the roadmap follow-up conversation.
type ChatMessage struct {
	Role      string `json:"role" validate:"required,oneof=user assistant"`
	Content   string `json:"content" validate:"required,maxbytes"`
	Timestamp string `json:"timestamp,omitempty"`
}

// ChatRequest is the body of POST /api/chat and of each WebSocket frame.
type ChatRequest struct {
	Roadmap  SavedRoadmap  `json:"roadmap"`
	Messages []ChatMessage `json:"messages" validate:"required,min=1,max=100,dive"`
}

// Validate checks the request against its struct tags.
func (r *ChatRequest) Validate() error {
	return validate.Struct(r)
}

// ChatResponse is the success body of the chat endpoints.
type ChatResponse struct {
	Message string `json:"message"`
}

// ChatErrorResponse is the failure body of the chat endpoints.
type ChatErrorResponse struct {
	Error string `json:"error"`
}
