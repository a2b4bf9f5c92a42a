// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/charmbracelet/huh"
	"github.com/pratapaadiii/mantis/services/mantis/datatypes"
)

// runRequestForm asks for the fields missing from req. Values already set
// by flags are shown as defaults.
func runRequestForm(req *datatypes.RoadmapRequest) error {
	features := strings.Join(req.Features, "\n")

	prefs := datatypes.Preferences{Timeline: datatypes.TimelineModerate, Complexity: datatypes.ComplexityStandard}
	if req.Preferences != nil {
		prefs = *req.Preferences
	}
	teamSize := ""
	if prefs.TeamSize > 0 {
		teamSize = strconv.Itoa(prefs.TeamSize)
	}

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("App name").
				Placeholder("Coffee Tracker Pro").
				Value(&req.AppName).
				Validate(validateAppName),
			huh.NewText().
				Title("What should it do?").
				Description(fmt.Sprintf("At least %d characters.", datatypes.MinPurposeChars)).
				Value(&req.Purpose).
				Validate(validatePurpose),
			huh.NewText().
				Title("Key features").
				Description(fmt.Sprintf("One per line, %d to %d.", datatypes.MinFeatures, datatypes.MaxFeatures)).
				Value(&features).
				Validate(func(s string) error { return validateFeatures(parseFeatures(s)) }),
		),
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Timeline").
				Options(
					huh.NewOption("Aggressive", datatypes.TimelineAggressive),
					huh.NewOption("Moderate", datatypes.TimelineModerate),
					huh.NewOption("Relaxed", datatypes.TimelineRelaxed),
				).
				Value(&prefs.Timeline),
			huh.NewSelect[string]().
				Title("Complexity").
				Options(
					huh.NewOption("Simple", datatypes.ComplexitySimple),
					huh.NewOption("Standard", datatypes.ComplexityStandard),
					huh.NewOption("Complex", datatypes.ComplexityComplex),
				).
				Value(&prefs.Complexity),
			huh.NewInput().
				Title("Team size").
				Description("Optional.").
				Value(&teamSize).
				Validate(validateTeamSize),
		),
	)

	if err := form.Run(); err != nil {
		return err
	}

	req.Features = parseFeatures(features)
	prefs.TeamSize, _ = strconv.Atoi(strings.TrimSpace(teamSize))
	req.Preferences = &prefs
	return nil
}

// parseFeatures splits one feature per line, dropping blank lines.
func parseFeatures(s string) []string {
	var out []string
	for _, line := range strings.Split(s, "\n") {
		if f := strings.TrimSpace(line); f != "" {
			out = append(out, f)
		}
	}
	return out
}

func validateAppName(s string) error {
	n := utf8.RuneCountInString(strings.TrimSpace(s))
	if n < datatypes.MinAppNameChars || n > datatypes.MaxAppNameChars {
		return fmt.Errorf("must be %d to %d characters", datatypes.MinAppNameChars, datatypes.MaxAppNameChars)
	}
	return nil
}

func validatePurpose(s string) error {
	if utf8.RuneCountInString(strings.TrimSpace(s)) < datatypes.MinPurposeChars {
		return fmt.Errorf("must be at least %d characters", datatypes.MinPurposeChars)
	}
	return nil
}

func validateFeatures(features []string) error {
	if len(features) < datatypes.MinFeatures || len(features) > datatypes.MaxFeatures {
		return fmt.Errorf("list %d to %d features", datatypes.MinFeatures, datatypes.MaxFeatures)
	}
	return nil
}

func validateTeamSize(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 || n > datatypes.MaxTeamSize {
		return fmt.Errorf("enter a whole number up to %d", datatypes.MaxTeamSize)
	}
	return nil
}
