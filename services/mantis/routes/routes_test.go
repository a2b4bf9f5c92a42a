// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package routes

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/pratapaadiii/mantis/services/mantis/datatypes"
	"github.com/pratapaadiii/mantis/services/mantis/handlers"
	"github.com/pratapaadiii/mantis/services/mantis/observability"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ============================================================================
// Test Setup
// ============================================================================

func init() {
	gin.SetMode(gin.TestMode)
}

type stubGenerator struct{}

func (stubGenerator) Generate(context.Context, datatypes.RoadmapRequest) (*datatypes.Roadmap, error) {
	return &datatypes.Roadmap{}, nil
}

type stubAdvisor struct{}

func (stubAdvisor) Reply(context.Context, datatypes.ChatRequest) (string, error) {
	return "stub", nil
}

func newDeps(reg *prometheus.Registry) Dependencies {
	deps := Dependencies{
		Generator: stubGenerator{},
		Advisor:   stubAdvisor{},
		WebSocket: handlers.DefaultWebSocketConfig(),
	}
	if reg != nil {
		deps.Metrics = observability.NewMetrics(reg)
		deps.Gatherer = reg
	}
	return deps
}

// ============================================================================
// SetupRoutes Tests
// ============================================================================

func TestSetupRoutes_RegistersAll(t *testing.T) {
	router := gin.New()
	SetupRoutes(router, newDeps(prometheus.NewRegistry()))

	expected := []struct {
		method string
		path   string
	}{
		{"GET", "/health"},
		{"GET", "/metrics"},
		{"POST", "/api/roadmap"},
		{"POST", "/api/chat"},
		{"GET", "/api/chat/ws"},
	}

	routes := router.Routes()
	for _, want := range expected {
		found := false
		for _, r := range routes {
			if r.Method == want.method && r.Path == want.path {
				found = true
				break
			}
		}
		assert.True(t, found, "route %s %s not registered", want.method, want.path)
	}
}

func TestSetupRoutes_WithoutGatherer(t *testing.T) {
	router := gin.New()
	SetupRoutes(router, newDeps(nil))

	for _, r := range router.Routes() {
		assert.NotEqual(t, "/metrics", r.Path)
	}
}

func TestSetupRoutes_MetricsEndpoint(t *testing.T) {
	reg := prometheus.NewRegistry()
	router := gin.New()
	SetupRoutes(router, newDeps(reg))

	req := httptest.NewRequest(http.MethodPost, "/api/roadmap", strings.NewReader(`{}`))
	router.ServeHTTP(httptest.NewRecorder(), req)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `mantis_requests_total{endpoint="roadmap",status="success"} 1`)
}
