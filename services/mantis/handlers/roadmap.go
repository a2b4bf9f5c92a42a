// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package handlers contains the gin handlers of the Mantis HTTP API.
package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/pratapaadiii/mantis/services/mantis/datatypes"
	"github.com/pratapaadiii/mantis/services/mantis/middleware"
	"github.com/pratapaadiii/mantis/services/mantis/observability"
	"github.com/pratapaadiii/mantis/services/mantis/pipeline"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
)

var handlerTracer = otel.Tracer("mantis.handlers")

// MaxRequestBodyBytes bounds every JSON request body.
const MaxRequestBodyBytes = 64 * 1024

// RoadmapGenerator is satisfied by *pipeline.Synthesizer.
type RoadmapGenerator interface {
	Generate(ctx context.Context, req datatypes.RoadmapRequest) (*datatypes.Roadmap, error)
}

// HandleGenerateRoadmap serves POST /api/roadmap.
//
// # Description
//
// Decodes the request and runs the synthesis pipeline under the request
// context, so a client that disconnects cancels the upstream call.
// Failures go through errorResponse.
func HandleGenerateRoadmap(gen RoadmapGenerator, metrics *observability.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := handlerTracer.Start(c.Request.Context(), "HandleGenerateRoadmap")
		defer span.End()

		logger := slog.With("request_id", middleware.RequestID(c))

		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, MaxRequestBodyBytes)
		var req datatypes.RoadmapRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			logger.Warn("failed to decode roadmap request", "error", err)
			respondError(c, observability.EndpointRoadmap, metrics, pipeline.NewMalformedBodyError(err))
			return
		}

		roadmap, err := gen.Generate(ctx, req)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			logger.Error("roadmap generation failed",
				"app_name", req.AppName,
				"features", len(req.Features),
				"error", err)
			respondError(c, observability.EndpointRoadmap, metrics, err)
			return
		}

		metrics.RecordRequest(observability.EndpointRoadmap, true)
		c.JSON(http.StatusOK, roadmap)
	}
}

// respondError writes the mapped error response and records metrics.
func respondError(c *gin.Context, endpoint observability.Endpoint, metrics *observability.Metrics, err error) {
	status, body, kind := errorResponse(err)
	if kind == kindUnclassified {
		slog.Error("unclassified failure",
			"request_id", middleware.RequestID(c),
			"incident_id", body["incidentId"],
			"error", err)
	}
	metrics.RecordRequest(endpoint, false)
	metrics.RecordError(endpoint, kind)
	c.JSON(status, body)
}
