// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package middleware provides HTTP middleware for the Mantis service.
//
// # Request Flow
//
//	Request
//	   │
//	   ▼
//	RequestIDMiddleware ─► reuse X-Request-ID or mint a UUID
//	   │
//	   ▼
//	AccessLogMiddleware ─► one structured log line per request
//	   │
//	   ▼
//	Handler (retrieves the ID via RequestID)
package middleware

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// HeaderRequestID carries the request ID in both directions.
const HeaderRequestID = "X-Request-ID"

// requestIDKey is the gin context key for the request ID.
const requestIDKey = "mantis_request_id"

// maxRequestIDLen bounds IDs accepted from clients.
const maxRequestIDLen = 128

// RequestIDMiddleware assigns every request an ID.
//
// # Description
//
// A client-supplied X-Request-ID is kept if it is non-empty and at most
// 128 bytes; otherwise a random UUID is generated. The ID is stored in the
// gin context and echoed in the response header.
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(HeaderRequestID)
		if id == "" || len(id) > maxRequestIDLen {
			id = uuid.NewString()
		}
		c.Set(requestIDKey, id)
		c.Header(HeaderRequestID, id)
		c.Next()
	}
}

// RequestID returns the ID set by RequestIDMiddleware, or "" if the
// middleware did not run.
func RequestID(c *gin.Context) string {
	return c.GetString(requestIDKey)
}

// AccessLogMiddleware logs method, route, status and latency after each
// request.
func AccessLogMiddleware(logger *slog.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = slog.Default()
	}
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}
		logger.Info("request completed",
			"request_id", RequestID(c),
			"method", c.Request.Method,
			"route", route,
			"status", c.Writer.Status(),
			"latency_ms", time.Since(start).Milliseconds())
	}
}
