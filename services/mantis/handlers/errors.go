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
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pratapaadiii/mantis/services/llm"
	"github.com/pratapaadiii/mantis/services/mantis/pipeline"
)

// =============================================================================
// Error Responder
// =============================================================================

const (
	unclassifiedMessage = "Failed to generate roadmap. Contact support if billing is active."
	supportMessage      = "If this keeps happening, contact support and include the incident ID."

	// kindUnclassified and kindUpstream label errors that have no pipeline Kind.
	kindUnclassified = "unclassified"
	kindUpstream     = "upstream"
)

var (
	parseTips = []string{
		"Simplify the purpose to one or two plain sentences.",
		"Shorten feature names and avoid special characters such as quotes or braces.",
		"Try again; model output varies between attempts.",
	}

	timelineSuggestions = []string{
		`Express every phase as "N weeks" or "N-M weeks".`,
		"Make sure the lower bound of a range is not larger than the upper bound.",
	}

	structureSuggestions = map[string][]string{
		pipeline.RuleMinTasks: {
			"Describe each feature in more detail so every phase has at least 3 tasks.",
		},
		pipeline.RuleMinMilestones: {
			"Try again with fewer features so each phase has room for 2 milestones.",
		},
		pipeline.RuleMilestoneCapitalized: {
			"Try again; milestones must start with a capitalized action verb such as \"Launch\".",
		},
	}

	durationSuggestions = []string{
		"Choose the aggressive timeline preference.",
		"Reduce the number of features.",
		"Choose the simple complexity preference.",
	}
)

// errorResponse maps a terminal pipeline failure to a status code and body.
//
// # Description
//
// Classified failures are matched by kind, upstream failures by type. No
// internal detail is copied into the body: prompt text, completion text,
// keys and wrapped transport errors stay in the logs.
//
// # Outputs
//
//   - int: HTTP status.
//   - gin.H: Response body. Always has an "error" string.
//   - string: Metric label for the failure kind.
func errorResponse(err error) (int, gin.H, string) {
	var upErr *llm.UpstreamError
	if errors.As(err, &upErr) {
		return upErr.HTTPStatus(), gin.H{
			"error": upErr.Hint(),
			"code":  upErr.Code,
			"docs":  upErr.DocsURL(),
		}, kindUpstream
	}

	kind, ok := pipeline.KindOf(err)
	if !ok {
		return unclassified()
	}

	switch kind {
	case pipeline.KindInputValidation:
		var e *pipeline.InputValidationError
		if errors.As(err, &e) {
			return http.StatusBadRequest, gin.H{
				"error":    e.Message,
				"field":    e.Field,
				"reason":   e.Reason,
				"expected": e.Expected,
				"example":  e.Example,
			}, string(kind)
		}

	case pipeline.KindTimelineFormat:
		var e *pipeline.TimelineFormatError
		if errors.As(err, &e) {
			return http.StatusUnprocessableEntity, gin.H{
				"error":       "Generated roadmap has an invalid timeline: " + e.Reason,
				"phase":       e.Phase,
				"value":       e.Value,
				"examples":    pipeline.TimelineExamples,
				"suggestions": timelineSuggestions,
			}, string(kind)
		}

	case pipeline.KindStructure:
		var e *pipeline.StructureError
		if errors.As(err, &e) {
			return http.StatusUnprocessableEntity, gin.H{
				"error":       "Generated roadmap is incomplete: " + e.Message,
				"phase":       e.Phase,
				"rule":        e.Rule,
				"suggestions": structureSuggestions[e.Rule],
			}, string(kind)
		}

	case pipeline.KindDurationExceeded:
		var e *pipeline.DurationExceededError
		if errors.As(err, &e) {
			return http.StatusUnprocessableEntity, gin.H{
				"error":       e.Error(),
				"totalWeeks":  e.TotalWeeks,
				"maxWeeks":    e.MaxWeeks,
				"suggestions": durationSuggestions,
			}, string(kind)
		}

	case pipeline.KindParse, pipeline.KindRetryExhausted:
		return http.StatusUnprocessableEntity, gin.H{
			"error": "The model returned a roadmap that could not be read.",
			"tips":  parseTips,
		}, string(kind)
	}

	return unclassified()
}

func unclassified() (int, gin.H, string) {
	return http.StatusInternalServerError, gin.H{
		"error":      unclassifiedMessage,
		"support":    supportMessage,
		"incidentId": time.Now().UnixMilli(),
	}, kindUnclassified
}
