// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package datatypes provides the request, response and record types shared
// by the Mantis service, its pipeline, the client-side store and the CLI.
//
// This file holds the roadmap types. Chat types live in chat.go.
package datatypes

import (
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// =============================================================================
// Limits
// =============================================================================

const (
	// MinAppNameChars and MaxAppNameChars bound RoadmapRequest.AppName.
	MinAppNameChars = 3
	MaxAppNameChars = 50

	// MinPurposeChars is the shortest purpose that gives the model enough to work with.
	MinPurposeChars = 20

	// MinFeatures and MaxFeatures bound the feature list.
	MinFeatures = 3
	MaxFeatures = 5

	// MaxTeamSize bounds Preferences.TeamSize.
	MaxTeamSize = 100
)

// Preference values understood by the prompt builder.
const (
	TimelineAggressive = "aggressive"
	TimelineModerate   = "moderate"
	TimelineRelaxed    = "relaxed"

	ComplexitySimple   = "simple"
	ComplexityStandard = "standard"
	ComplexityComplex  = "complex"
)

// =============================================================================
// Shared Validator Instance
// =============================================================================

// validate is shared by every type in this package. Field names in errors
// are the JSON names so they can be returned to clients as-is.
var validate *validator.Validate

func init() {
	validate = validator.New(validator.WithRequiredStructEnabled())

	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	_ = validate.RegisterValidation("notblank", validateNotBlank)
	_ = validate.RegisterValidation("maxbytes", validateMaxBytes)
}

// validateNotBlank rejects strings that are empty after trimming whitespace.
func validateNotBlank(fl validator.FieldLevel) bool {
	return strings.TrimSpace(fl.Field().String()) != ""
}

// =============================================================================
// Roadmap Request
// =============================================================================

// Preferences tune the generated plan. All fields are optional; the prompt
// builder fills in "moderate" and "standard" when they are empty.
type Preferences struct {
	Timeline   string `json:"timeline,omitempty" validate:"omitempty,oneof=aggressive moderate relaxed"`
	Complexity string `json:"complexity,omitempty" validate:"omitempty,oneof=simple standard complex"`
	TeamSize   int    `json:"teamSize,omitempty" validate:"gte=0,lte=100"`
}

// RoadmapRequest is the body of POST /api/roadmap.
//
// # Validation
//
//   - appName: required, not blank, 3-50 characters
//   - purpose: required, not blank, at least 20 characters
//   - features: 3-5 entries, each not blank
//   - preferences: optional, see Preferences
//
// Validation never rewrites the request; a request that passes is used
// exactly as received.
type RoadmapRequest struct {
	AppName     string       `json:"appName" validate:"required,notblank,min=3,max=50"`
	Purpose     string       `json:"purpose" validate:"required,notblank,min=20"`
	Features    []string     `json:"features" validate:"required,min=3,max=5,dive,required,notblank"`
	Preferences *Preferences `json:"preferences,omitempty"`
}

// Validate checks the request against its struct tags. The returned error
// is a validator.ValidationErrors on rule failures.
func (r *RoadmapRequest) Validate() error {
	return validate.Struct(r)
}

// =============================================================================
// Roadmap
// =============================================================================

// Phase is one stage of a roadmap.
type Phase struct {
	Name       string   `json:"name"`
	Timeline   string   `json:"timeline"`
	Tasks      []string `json:"tasks"`
	Milestones []string `json:"milestones"`
}

// Roadmap is the body of a successful POST /api/roadmap response. Once
// returned by the pipeline it is not modified.
type Roadmap struct {
	Phases []Phase `json:"phases"`
}

// SavedRoadmap is the client-side record of a generated roadmap: the
// request that produced it, the phases, and its identity in the store.
type SavedRoadmap struct {
	ID        string   `json:"id,omitempty"`
	AppName   string   `json:"appName,omitempty"`
	Purpose   string   `json:"purpose,omitempty"`
	Features  []string `json:"features,omitempty"`
	Phases    []Phase  `json:"phases" validate:"required,min=1"`
	Timestamp string   `json:"timestamp,omitempty"`
}
