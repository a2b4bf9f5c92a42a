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
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/pratapaadiii/mantis/services/mantis/datatypes"
)

// fieldHelp is the expected format and a valid example per request field.
type fieldHelp struct {
	expected string
	example  any
}

var requestFieldHelp = map[string]fieldHelp{
	"appName": {
		expected: fmt.Sprintf("%d-%d characters", datatypes.MinAppNameChars, datatypes.MaxAppNameChars),
		example:  "Fitness Tracker",
	},
	"purpose": {
		expected: fmt.Sprintf("at least %d characters describing the problem and the audience", datatypes.MinPurposeChars),
		example:  "Help busy professionals plan short home workouts and track their progress",
	},
	"features": {
		expected: fmt.Sprintf("%d-%d non-blank feature names", datatypes.MinFeatures, datatypes.MaxFeatures),
		example:  []string{"Workout Tracking", "Meal Planner", "Progress Analytics"},
	},
	"preferences.timeline": {
		expected: "one of aggressive, moderate, relaxed",
		example:  datatypes.TimelineModerate,
	},
	"preferences.complexity": {
		expected: "one of simple, standard, complex",
		example:  datatypes.ComplexityStandard,
	},
	"preferences.teamSize": {
		expected: fmt.Sprintf("a whole number from 0 to %d", datatypes.MaxTeamSize),
		example:  4,
	},
}

// exampleRequest is shown when the body could not be decoded at all.
var exampleRequest = datatypes.RoadmapRequest{
	AppName:  "Fitness Tracker",
	Purpose:  "Help busy professionals plan short home workouts and track their progress",
	Features: []string{"Workout Tracking", "Meal Planner", "Progress Analytics"},
}

// ValidateRequest checks req against the request rules.
//
// # Description
//
// On success the request is returned unchanged. On failure the first
// failing field is reported as an *InputValidationError carrying the
// rule, the expected format and a valid example.
func ValidateRequest(req datatypes.RoadmapRequest) (datatypes.RoadmapRequest, error) {
	err := req.Validate()
	if err == nil {
		return req, nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return req, &InputValidationError{
			Field:   "body",
			Reason:  "invalid",
			Message: err.Error(),
			Example: exampleRequest,
		}
	}
	return req, fromFieldError(verrs[0])
}

// NewMalformedBodyError reports a body that is not a JSON request object.
func NewMalformedBodyError(err error) *InputValidationError {
	msg := "request body must be a JSON object with appName, purpose and features"
	if err != nil {
		msg = fmt.Sprintf("%s (%v)", msg, err)
	}
	return &InputValidationError{
		Field:    "body",
		Reason:   "malformed_body",
		Message:  msg,
		Expected: "application/json",
		Example:  exampleRequest,
	}
}

// fromFieldError converts one validator failure into an InputValidationError.
func fromFieldError(fe validator.FieldError) *InputValidationError {
	field := fieldPath(fe.Namespace())
	help := requestFieldHelp[helpKey(field)]

	return &InputValidationError{
		Field:    field,
		Reason:   fe.Tag(),
		Param:    fe.Param(),
		Message:  describe(field, fe),
		Expected: help.expected,
		Example:  help.example,
	}
}

// fieldPath drops the struct name from a namespace like
// "RoadmapRequest.preferences.timeline".
func fieldPath(namespace string) string {
	if _, rest, ok := strings.Cut(namespace, "."); ok {
		return rest
	}
	return namespace
}

// helpKey maps "features[2]" to "features".
func helpKey(field string) string {
	if i := strings.IndexByte(field, '['); i >= 0 {
		return field[:i]
	}
	return field
}

func describe(field string, fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "notblank":
		return field + " must not be blank"
	case "min":
		if helpKey(field) == "features" {
			return fmt.Sprintf("at least %s features are required", fe.Param())
		}
		return fmt.Sprintf("%s must be at least %s characters", field, fe.Param())
	case "max":
		if helpKey(field) == "features" {
			return fmt.Sprintf("at most %s features are allowed", fe.Param())
		}
		return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, strings.ReplaceAll(fe.Param(), " ", ", "))
	case "gte", "lte":
		return fmt.Sprintf("%s must be between 0 and %d", field, datatypes.MaxTeamSize)
	default:
		return fmt.Sprintf("%s failed rule %q", field, fe.Tag())
	}
}
