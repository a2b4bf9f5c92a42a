// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package llm

import (
	"fmt"
	"net/http"
)

// UpstreamErrorDocsURL is the upstream provider's error-code reference.
// DocsURL appends the status code as a fragment.
const UpstreamErrorDocsURL = "https://api-docs.deepseek.com/quick_start/error_codes"

// Codes assigned locally when the upstream gave us nothing better.
const (
	CodeMissingAPIKey   = "missing_api_key"
	CodeTimeout         = "timeout"
	CodeNetworkError    = "network_error"
	CodeHTTPError       = "http_error"
	CodeEmptyCompletion = "empty_completion"
)

// statusHints maps common upstream statuses to remediation text shown to
// end users. Statuses not listed fall back to the upstream message.
var statusHints = map[int]string{
	http.StatusBadRequest:          "The AI service rejected the request format. Please simplify your input and try again.",
	http.StatusUnauthorized:        "Authentication with the AI service failed. Check that the API key is configured and valid.",
	http.StatusPaymentRequired:     "The AI service account has insufficient balance. Top up the account and try again.",
	http.StatusForbidden:           "Access to the AI service was denied. Verify the API key permissions.",
	http.StatusNotFound:            "The requested AI model or endpoint was not found. Check the model configuration.",
	http.StatusTooManyRequests:     "Too many requests to the AI service. Please wait a moment and try again.",
	http.StatusInternalServerError: "The AI service encountered an internal error. Please try again shortly.",
	http.StatusServiceUnavailable:  "The AI service is temporarily overloaded or under maintenance. Please try again later.",
	http.StatusGatewayTimeout:      "The AI service took too long to respond. Please try again with a shorter description.",
}

// UpstreamError is a failed call to the completion API: an HTTP error
// status, a transport failure, a timeout, or an unusable 2xx body.
type UpstreamError struct {
	// StatusCode is the HTTP status to surface to our own caller.
	StatusCode int

	// Code is the upstream-provided error code, or one of the local Code* values.
	Code string

	// Message is the upstream-provided message. Not shown to users when a
	// hint exists for StatusCode.
	Message string

	Err error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream error (status %d, code %s): %s", e.StatusCode, e.Code, e.Message)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// Hint returns the remediation text for the status, or the upstream
// message verbatim when the status is not in the table.
func (e *UpstreamError) Hint() string {
	if hint, ok := statusHints[e.StatusCode]; ok {
		return hint
	}
	if e.Message != "" {
		return e.Message
	}
	return http.StatusText(e.StatusCode)
}

// DocsURL returns the documentation reference for this failure.
func (e *UpstreamError) DocsURL() string {
	return fmt.Sprintf("%s#%d", UpstreamErrorDocsURL, e.StatusCode)
}

// HTTPStatus returns the status to reply with. Anything outside the
// 4xx/5xx range becomes 502 so a broken upstream never looks like success.
func (e *UpstreamError) HTTPStatus() int {
	if e.StatusCode < 400 || e.StatusCode > 599 {
		return http.StatusBadGateway
	}
	return e.StatusCode
}
