// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package handlers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pratapaadiii/mantis/services/mantis/datatypes"
	"github.com/pratapaadiii/mantis/services/mantis/observability"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dialChat(t *testing.T, replier ChatReplier, metrics *observability.Metrics, cfg WebSocketConfig) *websocket.Conn {
	t.Helper()
	router := createTestRouter(http.MethodGet, "/api/chat/ws", HandleChatWebSocket(replier, metrics, cfg))
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/chat/ws"
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	_ = resp.Body.Close()
	t.Cleanup(func() { _ = conn.Close() })
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	return conn
}

func TestHandleChatWebSocket_RoundTrip(t *testing.T) {
	replier := &fakeReplier{reply: "Start with discovery."}
	conn := dialChat(t, replier, nil, DefaultWebSocketConfig())

	require.NoError(t, conn.WriteJSON(chatBody()))

	var resp datatypes.ChatResponse
	require.NoError(t, conn.ReadJSON(&resp))
	assert.Equal(t, "Start with discovery.", resp.Message)
}

func TestHandleChatWebSocket_MalformedFrameKeepsConnection(t *testing.T) {
	replier := &fakeReplier{reply: "ok"}
	conn := dialChat(t, replier, nil, DefaultWebSocketConfig())

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("{not json")))
	var errResp datatypes.ChatErrorResponse
	require.NoError(t, conn.ReadJSON(&errResp))
	assert.Equal(t, chatFailureMessage, errResp.Error)

	require.NoError(t, conn.WriteJSON(chatBody()))
	var resp datatypes.ChatResponse
	require.NoError(t, conn.ReadJSON(&resp))
	assert.Equal(t, "ok", resp.Message)
}

func TestHandleChatWebSocket_RateLimited(t *testing.T) {
	replier := &fakeReplier{reply: "ok"}
	metrics := observability.NewMetrics(prometheus.NewRegistry())
	conn := dialChat(t, replier, metrics, WebSocketConfig{MessagesPerMinute: 1, Burst: 1})

	require.NoError(t, conn.WriteJSON(chatBody()))
	var first datatypes.ChatResponse
	require.NoError(t, conn.ReadJSON(&first))
	assert.Equal(t, "ok", first.Message)

	require.NoError(t, conn.WriteJSON(chatBody()))
	var second datatypes.ChatErrorResponse
	require.NoError(t, conn.ReadJSON(&second))
	assert.Equal(t, rateLimitedMessage, second.Error)

	assert.Equal(t, 1, replier.seenCount())
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.ErrorsTotal.WithLabelValues("chat_ws", "rate_limited")))
}

func TestHandleChatWebSocket_RejectsUnknownOrigin(t *testing.T) {
	router := createTestRouter(http.MethodGet, "/api/chat/ws",
		HandleChatWebSocket(&fakeReplier{}, nil, WebSocketConfig{AllowedOrigins: []string{"https://mantis.example"}}))
	srv := httptest.NewServer(router)
	defer srv.Close()

	header := http.Header{"Origin": []string{"https://evil.example"}}
	_, resp, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/api/chat/ws", header)

	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	_ = resp.Body.Close()
}
