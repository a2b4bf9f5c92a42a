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
	"encoding/json"
	"log/slog"
	"net/http"
	"slices"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/pratapaadiii/mantis/services/mantis/datatypes"
	"github.com/pratapaadiii/mantis/services/mantis/middleware"
	"github.com/pratapaadiii/mantis/services/mantis/observability"
	"golang.org/x/time/rate"
)

const (
	wsWriteTimeout     = 10 * time.Second
	rateLimitedMessage = "Too many messages, please slow down"
)

// WebSocketConfig tunes the chat WebSocket endpoint.
type WebSocketConfig struct {
	// MessagesPerMinute is the sustained per-connection message rate.
	MessagesPerMinute float64

	// Burst is the number of messages allowed back to back.
	Burst int

	// AllowedOrigins restricts the Origin header. Empty allows any origin.
	AllowedOrigins []string
}

// DefaultWebSocketConfig returns the production limits.
func DefaultWebSocketConfig() WebSocketConfig {
	return WebSocketConfig{MessagesPerMinute: 20, Burst: 5}
}

func newUpgrader(origins []string) *websocket.Upgrader {
	return &websocket.Upgrader{
		ReadBufferSize:  16 * 1024,
		WriteBufferSize: 16 * 1024,
		CheckOrigin: func(r *http.Request) bool {
			if len(origins) == 0 {
				return true
			}
			return slices.Contains(origins, r.Header.Get("Origin"))
		},
	}
}

// HandleChatWebSocket serves GET /api/chat/ws.
//
// # Description
//
// Each text frame in is one ChatRequest; each frame out is a ChatResponse
// or a ChatErrorResponse. Frames are handled one at a time. Messages over
// the per-connection rate get an error frame without reaching the
// upstream. The connection stays open after an error frame.
//
// # Limitations
//
//   - Frames larger than MaxRequestBodyBytes close the connection.
func HandleChatWebSocket(advisor ChatReplier, metrics *observability.Metrics, cfg WebSocketConfig) gin.HandlerFunc {
	upgrader := newUpgrader(cfg.AllowedOrigins)
	perSecond := rate.Limit(cfg.MessagesPerMinute / 60)
	if cfg.MessagesPerMinute <= 0 {
		perSecond = rate.Inf
	}
	burst := max(cfg.Burst, 1)

	return func(c *gin.Context) {
		logger := slog.With("request_id", middleware.RequestID(c))

		ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			logger.Warn("failed to upgrade chat websocket", "error", err)
			return
		}
		defer ws.Close()
		ws.SetReadLimit(MaxRequestBodyBytes)

		metrics.ChatSessionOpened()
		defer metrics.ChatSessionClosed()
		logger.Info("chat websocket connected")

		limiter := rate.NewLimiter(perSecond, burst)
		ctx := c.Request.Context()

		for {
			_, frame, err := ws.ReadMessage()
			if err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					logger.Warn("chat websocket closed unexpectedly", "error", err)
				} else {
					logger.Info("chat websocket disconnected")
				}
				return
			}

			if !limiter.Allow() {
				metrics.RecordRequest(observability.EndpointChatWS, false)
				metrics.RecordError(observability.EndpointChatWS, "rate_limited")
				if writeFrame(ws, datatypes.ChatErrorResponse{Error: rateLimitedMessage}) != nil {
					return
				}
				continue
			}

			var req datatypes.ChatRequest
			if err := json.Unmarshal(frame, &req); err != nil {
				logger.Warn("failed to decode chat frame", "error", err)
				metrics.RecordRequest(observability.EndpointChatWS, false)
				metrics.RecordError(observability.EndpointChatWS, "malformed_body")
				if writeFrame(ws, datatypes.ChatErrorResponse{Error: chatFailureMessage}) != nil {
					return
				}
				continue
			}

			reply, err := advisor.Reply(ctx, req)
			if err != nil {
				logger.Error("chat reply failed", "messages", len(req.Messages), "error", err)
				metrics.RecordRequest(observability.EndpointChatWS, false)
				metrics.RecordError(observability.EndpointChatWS, chatErrorKind(err))
				if writeFrame(ws, datatypes.ChatErrorResponse{Error: chatFailureMessage}) != nil {
					return
				}
				continue
			}

			metrics.RecordRequest(observability.EndpointChatWS, true)
			if writeFrame(ws, datatypes.ChatResponse{Message: reply}) != nil {
				return
			}
		}
	}
}

func writeFrame(ws *websocket.Conn, v any) error {
	_ = ws.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	err := ws.WriteJSON(v)
	if err != nil {
		slog.Warn("failed to write websocket frame", "error", err)
	}
	return err
}
