// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package pipeline

import (
	"errors"
	"testing"

	"github.com/pratapaadiii/mantis/services/mantis/datatypes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateRequest_ValidIsUnchanged(t *testing.T) {
	req := validRoadmapRequest()
	req.Preferences = &datatypes.Preferences{Timeline: datatypes.TimelineRelaxed, TeamSize: 3}

	got, err := ValidateRequest(req)

	require.NoError(t, err)
	assert.Equal(t, req, got)
}

func TestValidateRequest_Failures(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(r *datatypes.RoadmapRequest)
		wantField   string
		wantReason  string
		wantParam   string
		wantExample any
	}{
		{
			name:        "short purpose",
			mutate:      func(r *datatypes.RoadmapRequest) { r.Purpose = "A tracker" },
			wantField:   "purpose",
			wantReason:  "min",
			wantParam:   "20",
			wantExample: requestFieldHelp["purpose"].example,
		},
		{
			name:        "missing app name",
			mutate:      func(r *datatypes.RoadmapRequest) { r.AppName = "" },
			wantField:   "appName",
			wantReason:  "required",
			wantExample: "Fitness Tracker",
		},
		{
			name:        "blank feature",
			mutate:      func(r *datatypes.RoadmapRequest) { r.Features[1] = "   " },
			wantField:   "features[1]",
			wantReason:  "notblank",
			wantExample: []string{"Workout Tracking", "Meal Planner", "Progress Analytics"},
		},
		{
			name:        "too many features",
			mutate:      func(r *datatypes.RoadmapRequest) { r.Features = append(r.Features, "d4", "e5", "f6") },
			wantField:   "features",
			wantReason:  "max",
			wantParam:   "5",
			wantExample: []string{"Workout Tracking", "Meal Planner", "Progress Analytics"},
		},
		{
			name: "unknown timeline",
			mutate: func(r *datatypes.RoadmapRequest) {
				r.Preferences = &datatypes.Preferences{Timeline: "asap"}
			},
			wantField:   "preferences.timeline",
			wantReason:  "oneof",
			wantParam:   "aggressive moderate relaxed",
			wantExample: datatypes.TimelineModerate,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validRoadmapRequest()
			tt.mutate(&req)

			_, err := ValidateRequest(req)

			var ivErr *InputValidationError
			require.ErrorAs(t, err, &ivErr)
			assert.Equal(t, tt.wantField, ivErr.Field)
			assert.Equal(t, tt.wantReason, ivErr.Reason)
			assert.Equal(t, tt.wantParam, ivErr.Param)
			assert.Equal(t, tt.wantExample, ivErr.Example)
			assert.NotEmpty(t, ivErr.Message)
			assert.NotEmpty(t, ivErr.Expected)
			assert.Equal(t, KindInputValidation, ivErr.Kind())
		})
	}
}

func TestValidateRequest_OneOfMessageListsValues(t *testing.T) {
	req := validRoadmapRequest()
	req.Preferences = &datatypes.Preferences{Complexity: "huge"}

	_, err := ValidateRequest(req)

	var ivErr *InputValidationError
	require.ErrorAs(t, err, &ivErr)
	assert.Equal(t, "preferences.complexity must be one of: simple, standard, complex", ivErr.Message)
}

func TestNewMalformedBodyError(t *testing.T) {
	err := NewMalformedBodyError(errors.New("unexpected EOF"))

	assert.Equal(t, "body", err.Field)
	assert.Equal(t, "malformed_body", err.Reason)
	assert.Contains(t, err.Message, "unexpected EOF")
	assert.IsType(t, datatypes.RoadmapRequest{}, err.Example)
}
