// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/pratapaadiii/mantis/pkg/ux"
	"github.com/pratapaadiii/mantis/services/mantis/client"
	"github.com/pratapaadiii/mantis/services/mantis/datatypes"
	"github.com/pratapaadiii/mantis/services/mantis/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// Test Harness
// =============================================================================

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// fakeAPI records requests and answers with canned responses.
type fakeAPI struct {
	mu       sync.Mutex
	roadmaps []datatypes.RoadmapRequest
	chats    []datatypes.ChatRequest

	roadmapStatus int
	roadmapBody   any
	chatStatus    int
	chatBody      any
}

func (f *fakeAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var status int
	var body any
	switch r.URL.Path {
	case "/api/roadmap":
		var req datatypes.RoadmapRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		f.roadmaps = append(f.roadmaps, req)
		status, body = f.roadmapStatus, f.roadmapBody
	case "/api/chat":
		var req datatypes.ChatRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		f.chats = append(f.chats, req)
		status, body = f.chatStatus, f.chatBody
	default:
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

type harness struct {
	t       *testing.T
	app     *app
	api     *fakeAPI
	out     *bytes.Buffer
	errOut  *bytes.Buffer
	cfgPath string
	persist *store.MemoryPersistence
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "mantis.yaml")
	cfg := "logging:\n  dir: \"\"\n  level: info\nstorage:\n  dir: " + filepath.Join(dir, "data") + "\n"
	require.NoError(t, os.WriteFile(cfgPath, []byte(cfg), 0644))

	api := &fakeAPI{
		roadmapStatus: http.StatusOK,
		roadmapBody:   sampleRoadmap(),
		chatStatus:    http.StatusOK,
		chatBody:      datatypes.ChatResponse{Message: "Start with **Discovery**."},
	}
	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)

	h := &harness{
		t:       t,
		api:     api,
		out:     &bytes.Buffer{},
		errOut:  &bytes.Buffer{},
		cfgPath: cfgPath,
		persist: store.NewMemoryPersistence(),
	}
	h.app = &app{
		in:          strings.NewReader(""),
		interactive: func() bool { return false },
		printer:     &ux.Printer{Out: h.out, Err: h.errOut, Level: ux.PersonalityMachine},
		openStore: func(ctx context.Context) (*store.Store, io.Closer, error) {
			s, err := store.Open(ctx, h.persist)
			return s, nopCloser{}, err
		},
		newClient: func() *client.Client { return client.New(srv.URL, srv.Client()) },
	}
	return h
}

func (h *harness) run(args ...string) error {
	h.t.Helper()
	h.out.Reset()
	h.errOut.Reset()
	root := newRootCmd(h.app)
	root.SetArgs(append([]string{"--config", h.cfgPath}, args...))
	root.SetOut(h.out)
	root.SetErr(h.errOut)
	return root.ExecuteContext(context.Background())
}

func (h *harness) store() *store.Store {
	h.t.Helper()
	s, err := store.Open(context.Background(), h.persist)
	require.NoError(h.t, err)
	return s
}

func sampleRoadmap() datatypes.Roadmap {
	return datatypes.Roadmap{Phases: []datatypes.Phase{
		{
			Name:       "Discovery",
			Timeline:   "2 weeks",
			Tasks:      []string{"Interview users", "Map competitors", "Write brief"},
			Milestones: []string{"Publish brief", "Approve scope"},
		},
		{
			Name:       "Build",
			Timeline:   "3-5 weeks",
			Tasks:      []string{"Build logging", "Build planner", "Build charts"},
			Milestones: []string{"Ship alpha", "Freeze features"},
		},
	}}
}

var generateArgs = []string{
	"generate",
	"--name", "Coffee Tracker Pro",
	"--purpose", "Create a fitness app that tracks workouts and provides personalized recommendations",
	"--feature", "Workout Tracking",
	"--feature", "Meal Planner",
	"--feature", "Progress Analytics",
}

// =============================================================================
// generate
// =============================================================================

func TestGenerate_SavesRoadmap(t *testing.T) {
	h := newHarness(t)

	require.NoError(t, h.run(append(generateArgs, "--timeline", "aggressive")...))

	require.Len(t, h.api.roadmaps, 1)
	sent := h.api.roadmaps[0]
	assert.Equal(t, "Coffee Tracker Pro", sent.AppName)
	assert.Equal(t, []string{"Workout Tracking", "Meal Planner", "Progress Analytics"}, sent.Features)
	require.NotNil(t, sent.Preferences)
	assert.Equal(t, datatypes.TimelineAggressive, sent.Preferences.Timeline)

	list := h.store().List()
	require.Len(t, list, 1)
	assert.Equal(t, "Coffee Tracker Pro", list[0].AppName)
	assert.Len(t, list[0].Phases, 2)

	out := h.out.String()
	assert.Contains(t, out, "phase\t1\tDiscovery\t2 weeks")
	assert.Contains(t, out, "total_weeks\t7")
	assert.Contains(t, out, "OK: Saved as "+list[0].ID)
}

func TestGenerate_JSON(t *testing.T) {
	h := newHarness(t)

	require.NoError(t, h.run(append(generateArgs, "--json")...))

	var saved datatypes.SavedRoadmap
	require.NoError(t, json.Unmarshal(h.out.Bytes(), &saved))
	assert.NotEmpty(t, saved.ID)
	assert.Equal(t, "Coffee Tracker Pro", saved.AppName)
	assert.Nil(t, h.api.roadmaps[0].Preferences)
}

func TestGenerate_APIErrorIsNotSaved(t *testing.T) {
	h := newHarness(t)
	h.api.roadmapStatus = http.StatusBadRequest
	h.api.roadmapBody = map[string]any{
		"error":    "Provide between 3 and 5 features.",
		"field":    "features",
		"reason":   "min",
		"expected": "3 to 5 non-empty feature names",
	}

	err := h.run("generate", "--name", "Coffee Tracker Pro", "--feature", "Only one")

	var apiErr *client.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.Empty(t, h.store().List())

	h.app.report(err)
	assert.Contains(t, h.errOut.String(), "ERROR: Provide between 3 and 5 features.")
	assert.Contains(t, h.errOut.String(), "Field: features")
}

// =============================================================================
// roadmaps
// =============================================================================

func TestRoadmaps_ListShowDelete(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.run(generateArgs...))
	id := h.store().List()[0].ID

	require.NoError(t, h.run("roadmaps", "list"))
	assert.True(t, strings.HasPrefix(h.out.String(), id+"\tCoffee Tracker Pro\t2\t"))

	require.NoError(t, h.run("roadmaps", "show"))
	assert.Contains(t, h.out.String(), "roadmap\t"+id+"\tCoffee Tracker Pro")

	require.NoError(t, h.run("roadmaps", "delete", id))
	assert.Empty(t, h.store().List())

	err := h.run("roadmaps", "delete", id)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestRoadmaps_ShowEmpty(t *testing.T) {
	h := newHarness(t)
	assert.Error(t, h.run("roadmaps", "show"))
}

func TestRoadmaps_ClearRequiresConfirmation(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.run(generateArgs...))

	assert.Error(t, h.run("roadmaps", "clear"))
	assert.Len(t, h.store().List(), 1)

	require.NoError(t, h.run("roadmaps", "clear", "--yes"))
	assert.Empty(t, h.store().List())
}

// =============================================================================
// chat
// =============================================================================

func TestChat_SingleMessage(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.run(generateArgs...))
	id := h.store().List()[0].ID

	require.NoError(t, h.run("chat", "-m", "Where do I start?"))

	require.Len(t, h.api.chats, 1)
	sent := h.api.chats[0]
	assert.Equal(t, id, sent.Roadmap.ID)
	require.Len(t, sent.Messages, 1)
	assert.Equal(t, "Where do I start?", sent.Messages[0].Content)

	history := h.store().History(id)
	require.Len(t, history, 2)
	assert.Equal(t, datatypes.ChatRoleUser, history[0].Role)
	assert.Equal(t, datatypes.ChatRoleAssistant, history[1].Role)
	assert.Equal(t, "Start with **Discovery**.", history[1].Content)
	assert.Contains(t, h.out.String(), "assistant: Start with **Discovery**.")

	require.NoError(t, h.run("chat", id, "-m", "And then?"))
	require.Len(t, h.api.chats, 2)
	assert.Len(t, h.api.chats[1].Messages, 3, "history is sent with each question")
}

func TestChat_LoopKeepsGoingAfterFailure(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.run(generateArgs...))
	id := h.store().List()[0].ID

	h.api.chatStatus = http.StatusInternalServerError
	h.api.chatBody = datatypes.ChatErrorResponse{Error: "Failed to process chat message"}
	h.app.in = strings.NewReader("first question\n\nsecond question\nexit\nnever sent\n")

	require.NoError(t, h.run("chat"))

	assert.Len(t, h.api.chats, 2)
	assert.Empty(t, h.store().History(id), "failed turns are not saved")
	assert.Equal(t, 2, strings.Count(h.errOut.String(), "Failed to process chat message"))
}

func TestChat_LoopSkipsOversizedQuestion(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.run(generateArgs...))
	id := h.store().List()[0].ID

	huge := strings.Repeat("a", datatypes.MaxMessageContentBytes+8*1024)
	h.app.in = strings.NewReader(huge + "\nsecond question\nexit\n")

	require.NoError(t, h.run("chat"))

	require.Len(t, h.api.chats, 1)
	assert.Equal(t, "second question", h.api.chats[0].Messages[0].Content)
	assert.Contains(t, h.errOut.String(), "was not sent")
	assert.Len(t, h.store().History(id), 2)
}

func TestChat_OversizedMessageFlag(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.run(generateArgs...))

	err := h.run("chat", "-m", strings.Repeat("a", datatypes.MaxMessageContentBytes+1))

	assert.ErrorIs(t, err, errQuestionTooLong)
	assert.Empty(t, h.api.chats)
}

func TestReadQuestion(t *testing.T) {
	r := bufio.NewReaderSize(strings.NewReader("  short  \n"+strings.Repeat("x", 100)+"\nlast"), 16)

	line, tooLong, err := readQuestion(r, 50)
	require.NoError(t, err)
	assert.False(t, tooLong)
	assert.Equal(t, "short", line)

	_, tooLong, err = readQuestion(r, 50)
	require.NoError(t, err)
	assert.True(t, tooLong)

	line, tooLong, err = readQuestion(r, 50)
	require.NoError(t, err)
	assert.False(t, tooLong)
	assert.Equal(t, "last", line)

	_, _, err = readQuestion(r, 50)
	assert.ErrorIs(t, err, io.EOF)
}

func TestChat_TrimsHistoryToRequestLimit(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.run(generateArgs...))
	s := h.store()
	id := s.List()[0].ID

	var msgs []datatypes.ChatMessage
	for i := 0; i < datatypes.MaxMessagesPerRequest; i++ {
		msgs = append(msgs, datatypes.ChatMessage{Role: datatypes.ChatRoleUser, Content: "q"})
	}
	require.NoError(t, s.AppendMessages(context.Background(), id, msgs...))

	require.NoError(t, h.run("chat", "-m", "latest"))

	sent := h.api.chats[0].Messages
	require.Len(t, sent, datatypes.MaxMessagesPerRequest)
	assert.Equal(t, "latest", sent[len(sent)-1].Content)
}

// =============================================================================
// Setup
// =============================================================================

func TestSetup_PersonalityFlag(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.run("--personality", "minimal", "roadmaps", "list"))
	assert.Equal(t, ux.PersonalityMinimal, h.app.printer.Level)
}

func TestSetup_ServerFromEnv(t *testing.T) {
	t.Setenv(EnvServer, "http://example.invalid:9999")
	h := newHarness(t)
	require.NoError(t, h.run("roadmaps", "list"))
	assert.Equal(t, "http://example.invalid:9999", h.app.serverURL)
}

func TestNeedsInput(t *testing.T) {
	assert.True(t, needsInput(datatypes.RoadmapRequest{}))
	assert.True(t, needsInput(datatypes.RoadmapRequest{AppName: "App", Purpose: "p", Features: []string{"a", "b"}}))
	assert.False(t, needsInput(datatypes.RoadmapRequest{AppName: "App", Purpose: "p", Features: []string{"a", "b", "c"}}))
}
