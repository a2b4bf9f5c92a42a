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
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"regexp"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/pratapaadiii/mantis/services/mantis/datatypes"
)

const (
	// MaxTotalWeeks bounds the sum of every phase's upper timeline bound.
	MaxTotalWeeks = 52

	// MinTasksPerPhase and MinMilestonesPerPhase bound phase content.
	MinTasksPerPhase      = 3
	MinMilestonesPerPhase = 2
)

var timelinePattern = regexp.MustCompile(`^(\d+)(?:-(\d+))?\s+weeks?$`)

// ParseRoadmap decodes sanitized completion text into a Roadmap.
//
// # Description
//
// The text must be exactly one JSON object with a non-empty "phases"
// array. Anything else is a *ParseError, which is the only failure that
// makes the pipeline attempt a repair.
func ParseRoadmap(text string) (*datatypes.Roadmap, error) {
	dec := json.NewDecoder(strings.NewReader(text))

	var roadmap datatypes.Roadmap
	if err := dec.Decode(&roadmap); err != nil {
		return nil, &ParseError{Reason: "invalid JSON", Err: err}
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, &ParseError{Reason: "unexpected data after the JSON object"}
	}
	if len(roadmap.Phases) == 0 {
		return nil, &ParseError{Reason: `"phases" is missing or empty`}
	}
	return &roadmap, nil
}

// ValidateRoadmap checks the business rules of a parsed roadmap.
//
// # Description
//
// Phases are checked in order and the first failure is returned. Within a
// phase the timeline must parse (*TimelineFormatError), then the phase
// needs enough tasks and milestones, each milestone starting with an
// uppercase letter (*StructureError). Once every phase passes, the upper
// bounds must add up to MaxTotalWeeks or less (*DurationExceededError).
func ValidateRoadmap(r *datatypes.Roadmap) error {
	total := 0
	for i, phase := range r.Phases {
		upper, err := TimelineUpperBound(phase.Timeline)
		if err != nil {
			return &TimelineFormatError{PhaseIndex: i, Phase: phase.Name, Value: phase.Timeline, Reason: err.Error()}
		}
		if err := checkPhase(i, phase); err != nil {
			return err
		}
		total = addWeeks(total, upper)
	}

	if total > MaxTotalWeeks {
		return &DurationExceededError{TotalWeeks: total, MaxWeeks: MaxTotalWeeks}
	}
	return nil
}

// TimelineUpperBound returns M for "N-M weeks" and N for "N weeks".
func TimelineUpperBound(timeline string) (int, error) {
	m := timelinePattern.FindStringSubmatch(strings.TrimSpace(timeline))
	if m == nil {
		return 0, errors.New(`expected "N weeks" or "N-M weeks"`)
	}
	lower, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, fmt.Errorf("week count out of range: %w", err)
	}
	if m[2] == "" {
		return lower, nil
	}
	upper, err := strconv.Atoi(m[2])
	if err != nil {
		return 0, fmt.Errorf("week count out of range: %w", err)
	}
	if lower > upper {
		return 0, fmt.Errorf("range %d-%d is inverted", lower, upper)
	}
	return upper, nil
}

func checkPhase(i int, phase datatypes.Phase) error {
	if len(phase.Tasks) < MinTasksPerPhase {
		return &StructureError{
			PhaseIndex: i,
			Phase:      phase.Name,
			Rule:       RuleMinTasks,
			Message:    fmt.Sprintf("has %d tasks, needs at least %d", len(phase.Tasks), MinTasksPerPhase),
		}
	}
	if len(phase.Milestones) < MinMilestonesPerPhase {
		return &StructureError{
			PhaseIndex: i,
			Phase:      phase.Name,
			Rule:       RuleMinMilestones,
			Message:    fmt.Sprintf("has %d milestones, needs at least %d", len(phase.Milestones), MinMilestonesPerPhase),
		}
	}
	for _, milestone := range phase.Milestones {
		first, _ := utf8.DecodeRuneInString(strings.TrimSpace(milestone))
		if !unicode.IsUpper(first) {
			return &StructureError{
				PhaseIndex: i,
				Phase:      phase.Name,
				Rule:       RuleMilestoneCapitalized,
				Message:    fmt.Sprintf("milestone %q must start with a capitalized verb", milestone),
			}
		}
	}
	return nil
}

// addWeeks saturates at math.MaxInt instead of wrapping.
func addWeeks(total, weeks int) int {
	if weeks > math.MaxInt-total {
		return math.MaxInt
	}
	return total + weeks
}
