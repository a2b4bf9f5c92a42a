// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/pratapaadiii/mantis/services/mantis/datatypes"
	"github.com/pratapaadiii/mantis/services/mantis/middleware"
	"github.com/pratapaadiii/mantis/services/mantis/observability"
	"go.opentelemetry.io/otel/codes"
)

// chatFailureMessage is the only error text chat clients ever see.
const chatFailureMessage = "Failed to process chat message"

// ChatReplier is satisfied by *pipeline.Advisor.
type ChatReplier interface {
	Reply(ctx context.Context, req datatypes.ChatRequest) (string, error)
}

// HandleChat serves POST /api/chat. Every failure, including a malformed
// body, is a 500 with the same generic message.
func HandleChat(advisor ChatReplier, metrics *observability.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := handlerTracer.Start(c.Request.Context(), "HandleChat")
		defer span.End()

		logger := slog.With("request_id", middleware.RequestID(c))

		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, MaxRequestBodyBytes)
		var req datatypes.ChatRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			logger.Warn("failed to decode chat request", "error", err)
			chatFailure(c, observability.EndpointChat, metrics, "malformed_body")
			return
		}

		reply, err := advisor.Reply(ctx, req)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			logger.Error("chat reply failed", "messages", len(req.Messages), "error", err)
			chatFailure(c, observability.EndpointChat, metrics, chatErrorKind(err))
			return
		}

		metrics.RecordRequest(observability.EndpointChat, true)
		c.JSON(http.StatusOK, datatypes.ChatResponse{Message: reply})
	}
}

func chatFailure(c *gin.Context, endpoint observability.Endpoint, metrics *observability.Metrics, kind string) {
	metrics.RecordRequest(endpoint, false)
	metrics.RecordError(endpoint, kind)
	c.JSON(http.StatusInternalServerError, datatypes.ChatErrorResponse{Error: chatFailureMessage})
}

// chatErrorKind labels a chat failure for metrics only.
func chatErrorKind(err error) string {
	_, _, kind := errorResponse(err)
	return kind
}
