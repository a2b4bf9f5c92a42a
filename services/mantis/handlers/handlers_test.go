// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/pratapaadiii/mantis/services/llm"
	"github.com/pratapaadiii/mantis/services/mantis/datatypes"
	"github.com/pratapaadiii/mantis/services/mantis/middleware"
	"github.com/stretchr/testify/require"
)

// ============================================================================
// Test Setup
// ============================================================================

func init() {
	gin.SetMode(gin.TestMode)
}

// scriptedLLM replays completions in order and counts calls.
type scriptedLLM struct {
	mu      sync.Mutex
	replies []scriptedReply
	calls   int
}

type scriptedReply struct {
	text string
	err  error
}

func newScriptedLLM(replies ...scriptedReply) *scriptedLLM {
	return &scriptedLLM{replies: replies}
}

func (s *scriptedLLM) Complete(ctx context.Context, _ []llm.Message, _ llm.GenerationParams) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if len(s.replies) == 0 {
		return "", errors.New("scriptedLLM: unexpected call")
	}
	r := s.replies[0]
	s.replies = s.replies[1:]
	return r.text, r.err
}

func (s *scriptedLLM) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

// fakeReplier is a ChatReplier with a fixed answer or error.
type fakeReplier struct {
	reply string
	err   error

	mu   sync.Mutex
	seen []datatypes.ChatRequest
}

func (f *fakeReplier) Reply(_ context.Context, req datatypes.ChatRequest) (string, error) {
	f.mu.Lock()
	f.seen = append(f.seen, req)
	f.mu.Unlock()
	return f.reply, f.err
}

func createTestRouter(method, path string, handler gin.HandlerFunc) *gin.Engine {
	router := gin.New()
	router.Use(middleware.RequestIDMiddleware())
	router.Handle(method, path, handler)
	return router
}

func performRequest(t *testing.T, router *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	switch b := body.(type) {
	case string:
		buf.WriteString(b)
	case nil:
	default:
		require.NoError(t, json.NewEncoder(&buf).Encode(b))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body), "body: %s", w.Body.String())
	return body
}

const validRoadmapJSON = `{"phases":[
 {"name":"Discovery","timeline":"2 weeks","tasks":["Interview users","Map competitors","Write brief"],"milestones":["Publish brief","Approve scope"]},
 {"name":"Build","timeline":"3-5 weeks","tasks":["Build logging","Build planner","Build charts"],"milestones":["Ship alpha","Freeze features"]}
]}`

func validRequestBody() datatypes.RoadmapRequest {
	return datatypes.RoadmapRequest{
		AppName:  "Fitness Tracker",
		Purpose:  "Create a fitness app that tracks workouts and provides personalized recommendations",
		Features: []string{"Workout Tracking", "Meal Planner", "Progress Analytics"},
	}
}

// generatorFunc adapts a function to RoadmapGenerator.
type generatorFunc func() (*datatypes.Roadmap, error)

func (f generatorFunc) Generate(context.Context, datatypes.RoadmapRequest) (*datatypes.Roadmap, error) {
	return f()
}

func (f *fakeReplier) seenCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.seen)
}
