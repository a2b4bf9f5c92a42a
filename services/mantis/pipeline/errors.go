// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package pipeline

import (
	"errors"
	"fmt"
)

// =============================================================================
// Error Kinds
// =============================================================================

// Kind classifies a pipeline failure. Upstream failures are not a Kind;
// they are reported as *llm.UpstreamError.
type Kind string

const (
	KindInputValidation  Kind = "input_validation"
	KindTimelineFormat   Kind = "timeline_format"
	KindStructure        Kind = "structure"
	KindDurationExceeded Kind = "duration_exceeded"
	KindParse            Kind = "parse"
	KindRetryExhausted   Kind = "retry_exhausted"
)

// Error is implemented by every classified pipeline failure.
type Error interface {
	error
	Kind() Kind
}

// KindOf returns the Kind of the outermost classified error in err's chain.
func KindOf(err error) (Kind, bool) {
	var pe Error
	if errors.As(err, &pe) {
		return pe.Kind(), true
	}
	return "", false
}

// TimelineExamples are accepted timeline strings shown to clients.
var TimelineExamples = []string{"2 weeks", "3-4 weeks", "6-8 weeks"}

// =============================================================================
// Error Types
// =============================================================================

// InputValidationError reports a request that failed a field rule.
type InputValidationError struct {
	// Field is the JSON path of the offending field, e.g. "features[1]".
	Field string

	// Reason is the failed rule, e.g. "min", "notblank", "malformed_body".
	Reason string

	// Param is the rule parameter, e.g. "20" for min=20. May be empty.
	Param string

	// Message is a human-readable description of the failure.
	Message string

	// Expected describes the accepted format.
	Expected string

	// Example is a valid value for Field.
	Example any
}

func (e *InputValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

func (e *InputValidationError) Kind() Kind { return KindInputValidation }

// TimelineFormatError reports a phase timeline that does not match
// "N weeks" or "N-M weeks", or whose range is inverted.
type TimelineFormatError struct {
	PhaseIndex int
	Phase      string
	Value      string
	Reason     string
}

func (e *TimelineFormatError) Error() string {
	return fmt.Sprintf("phase %d (%q): timeline %q: %s", e.PhaseIndex+1, e.Phase, e.Value, e.Reason)
}

func (e *TimelineFormatError) Kind() Kind { return KindTimelineFormat }

// Structure rule names.
const (
	RuleMinTasks             = "min_tasks"
	RuleMinMilestones        = "min_milestones"
	RuleMilestoneCapitalized = "milestone_capitalized"
)

// StructureError reports a phase that breaks a content rule.
type StructureError struct {
	PhaseIndex int
	Phase      string
	Rule       string
	Message    string
}

func (e *StructureError) Error() string {
	return fmt.Sprintf("phase %d (%q): %s", e.PhaseIndex+1, e.Phase, e.Message)
}

func (e *StructureError) Kind() Kind { return KindStructure }

// DurationExceededError reports a roadmap whose summed upper bounds are
// longer than MaxTotalWeeks.
type DurationExceededError struct {
	TotalWeeks int
	MaxWeeks   int
}

func (e *DurationExceededError) Error() string {
	return fmt.Sprintf("roadmap spans %d weeks, limit is %d", e.TotalWeeks, e.MaxWeeks)
}

func (e *DurationExceededError) Kind() Kind { return KindDurationExceeded }

// ParseError reports completion text that is not a roadmap object after
// sanitizing.
type ParseError struct {
	Reason string
	Err    error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("parse roadmap: %s: %v", e.Reason, e.Err)
	}
	return "parse roadmap: " + e.Reason
}

func (e *ParseError) Unwrap() error { return e.Err }

func (e *ParseError) Kind() Kind { return KindParse }

// RetryExhaustedError reports that the repair attempt also failed to parse.
type RetryExhaustedError struct {
	Last *ParseError
}

func (e *RetryExhaustedError) Error() string {
	return "repair attempt failed: " + e.Last.Error()
}

func (e *RetryExhaustedError) Unwrap() error { return e.Last }

func (e *RetryExhaustedError) Kind() Kind { return KindRetryExhausted }
