// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package client is the HTTP client for the Mantis API, used by the CLI.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/pratapaadiii/mantis/services/mantis/datatypes"
)

const (
	// DefaultBaseURL is the address of a locally running `mantis serve`.
	DefaultBaseURL = "http://localhost:8080"

	// DefaultTimeout covers a primary completion plus a repair on the
	// server side, with headroom.
	DefaultTimeout = 90 * time.Second

	// maxResponseBytes caps how much of a response body is read.
	maxResponseBytes = 1 << 20
)

// Client calls the roadmap and chat endpoints.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New returns a Client for baseURL. A nil httpClient uses one with
// DefaultTimeout.
func New(baseURL string, httpClient *http.Client) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: DefaultTimeout}
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
	}
}

// GenerateRoadmap calls POST /api/roadmap.
//
// # Outputs
//
//   - *datatypes.Roadmap: On 200
//   - error: *APIError for any other status; a transport error otherwise
func (c *Client) GenerateRoadmap(ctx context.Context, req datatypes.RoadmapRequest) (*datatypes.Roadmap, error) {
	var roadmap datatypes.Roadmap
	if err := c.post(ctx, "/api/roadmap", req, &roadmap); err != nil {
		return nil, err
	}
	return &roadmap, nil
}

// Chat calls POST /api/chat and returns the assistant message.
func (c *Client) Chat(ctx context.Context, req datatypes.ChatRequest) (string, error) {
	var resp datatypes.ChatResponse
	if err := c.post(ctx, "/api/chat", req, &resp); err != nil {
		return "", err
	}
	return resp.Message, nil
}

// Health calls GET /health.
func (c *Client) Health(ctx context.Context) error {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return fmt.Errorf("build health request: %w", err)
	}
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("reach mantis at %s: %w", c.baseURL, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return decodeAPIError(resp)
	}
	return nil
}

func (c *Client) post(ctx context.Context, path string, body, into any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("reach mantis at %s: %w", c.baseURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return decodeAPIError(resp)
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(into); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// =============================================================================
// API Errors
// =============================================================================

// APIError is a non-200 response from the service. Fields are filled from
// whichever guidance the error body carries.
type APIError struct {
	StatusCode int `json:"-"`

	Message string `json:"error"`

	// Input validation
	Field    string `json:"field,omitempty"`
	Reason   string `json:"reason,omitempty"`
	Expected string `json:"expected,omitempty"`
	Example  any    `json:"example,omitempty"`

	// Business rules
	Phase       string   `json:"phase,omitempty"`
	Rule        string   `json:"rule,omitempty"`
	Value       string   `json:"value,omitempty"`
	Examples    []string `json:"examples,omitempty"`
	TotalWeeks  int      `json:"totalWeeks,omitempty"`
	MaxWeeks    int      `json:"maxWeeks,omitempty"`
	Suggestions []string `json:"suggestions,omitempty"`
	Tips        []string `json:"tips,omitempty"`

	// Upstream
	Code string `json:"code,omitempty"`
	Docs string `json:"docs,omitempty"`

	// Unclassified
	Support    string `json:"support,omitempty"`
	IncidentID int64  `json:"incidentId,omitempty"`
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("mantis returned %d %s", e.StatusCode, http.StatusText(e.StatusCode))
	}
	return fmt.Sprintf("mantis returned %d: %s", e.StatusCode, e.Message)
}

// Details returns the guidance lines worth showing to a user, in the order
// the body carries them.
func (e *APIError) Details() []string {
	var lines []string
	if e.Field != "" {
		lines = append(lines, "Field: "+e.Field)
	}
	if e.Expected != "" {
		lines = append(lines, "Expected: "+e.Expected)
	}
	if e.Example != nil {
		if ex, err := json.Marshal(e.Example); err == nil {
			lines = append(lines, "Example: "+string(ex))
		}
	}
	if e.Phase != "" {
		lines = append(lines, "Phase: "+e.Phase)
	}
	if e.Value != "" {
		lines = append(lines, fmt.Sprintf("Value: %q", e.Value))
	}
	if len(e.Examples) > 0 {
		lines = append(lines, "Valid examples: "+strings.Join(e.Examples, ", "))
	}
	if e.MaxWeeks > 0 {
		lines = append(lines, fmt.Sprintf("Total: %d weeks (max %d)", e.TotalWeeks, e.MaxWeeks))
	}
	lines = append(lines, e.Suggestions...)
	lines = append(lines, e.Tips...)
	if e.Docs != "" {
		lines = append(lines, "Docs: "+e.Docs)
	}
	if e.Support != "" {
		lines = append(lines, fmt.Sprintf("Support: %s (incident %d)", e.Support, e.IncidentID))
	}
	return lines
}

func decodeAPIError(resp *http.Response) error {
	apiErr := &APIError{StatusCode: resp.StatusCode}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return apiErr
	}
	if json.Unmarshal(data, apiErr) != nil {
		apiErr.Message = strings.TrimSpace(string(data))
	}
	apiErr.StatusCode = resp.StatusCode
	return apiErr
}
