// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"bytes"
	"testing"

	"github.com/pratapaadiii/mantis/pkg/ux"
	"github.com/pratapaadiii/mantis/services/mantis/datatypes"
	"github.com/stretchr/testify/assert"
)

func testPrinter(level ux.PersonalityLevel) (*ux.Printer, *bytes.Buffer) {
	var out bytes.Buffer
	return &ux.Printer{Out: &out, Err: &out, Level: level, Width: 70}, &out
}

func savedSample() datatypes.SavedRoadmap {
	return datatypes.SavedRoadmap{
		ID:        "3f1c",
		AppName:   "Coffee Tracker Pro",
		Purpose:   "Track every cup",
		Features:  []string{"Cup logging", "Charts", "Reminders"},
		Phases:    sampleRoadmap().Phases,
		Timestamp: "2025-03-01T09:30:00.000Z",
	}
}

func TestTotalWeeks(t *testing.T) {
	phases := []datatypes.Phase{
		{Timeline: "2 weeks"},
		{Timeline: "3-5 weeks"},
		{Timeline: "1 week"},
		{Timeline: "soon"},
	}
	assert.Equal(t, 8, totalWeeks(phases))
	assert.Equal(t, 0, totalWeeks(nil))
}

func TestRenderRoadmap_Full(t *testing.T) {
	p, out := testPrinter(ux.PersonalityFull)

	renderRoadmap(p, savedSample())

	s := out.String()
	for _, want := range []string{
		"Coffee Tracker Pro", "Phase 1", "Discovery", "2 weeks",
		"Phase 2", "3-5 weeks", "Interview users", "Freeze features",
		"Estimated total: 7 weeks",
	} {
		assert.Contains(t, s, want)
	}
}

func TestRenderRoadmap_Machine(t *testing.T) {
	p, out := testPrinter(ux.PersonalityMachine)

	renderRoadmap(p, savedSample())

	assert.Equal(t, `roadmap	3f1c	Coffee Tracker Pro
phase	1	Discovery	2 weeks
task	1	Interview users
task	1	Map competitors
task	1	Write brief
milestone	1	Publish brief
milestone	1	Approve scope
phase	2	Build	3-5 weeks
task	2	Build logging
task	2	Build planner
task	2	Build charts
milestone	2	Ship alpha
milestone	2	Freeze features
total_weeks	7
`, out.String())
}

func TestRenderRoadmapList(t *testing.T) {
	p, out := testPrinter(ux.PersonalityMachine)
	renderRoadmapList(p, nil)
	assert.Empty(t, out.String())

	renderRoadmapList(p, []datatypes.SavedRoadmap{savedSample()})
	assert.Equal(t, "3f1c\tCoffee Tracker Pro\t2\t2025-03-01T09:30:00.000Z\n", out.String())

	p, out = testPrinter(ux.PersonalityFull)
	renderRoadmapList(p, nil)
	assert.Contains(t, out.String(), "No saved roadmaps")
}

func TestHumanTime(t *testing.T) {
	assert.Equal(t, "not a time", humanTime("not a time"))
	assert.Len(t, humanTime("2025-03-01T09:30:00.000Z"), len("2006-01-02 15:04"))
}

func TestRenderChatTurn(t *testing.T) {
	p, out := testPrinter(ux.PersonalityMachine)
	renderChatTurn(p, datatypes.ChatMessage{Role: datatypes.ChatRoleUser, Content: "hi"})
	renderChatTurn(p, datatypes.ChatMessage{Role: datatypes.ChatRoleAssistant, Content: "**hello**"})
	assert.Equal(t, "user: hi\nassistant: **hello**\n", out.String())

	p, out = testPrinter(ux.PersonalityFull)
	renderChatTurn(p, datatypes.ChatMessage{Role: datatypes.ChatRoleAssistant, Content: "Start with **Discovery**."})
	assert.Contains(t, out.String(), "Advisor:")
	assert.Contains(t, out.String(), "Discovery")
}

func TestFormValidators(t *testing.T) {
	assert.NoError(t, validateAppName("Coffee Tracker Pro"))
	assert.Error(t, validateAppName(" ab "))
	assert.NoError(t, validatePurpose("Create a fitness app that tracks workouts"))
	assert.Error(t, validatePurpose("Too short"))
	assert.NoError(t, validateTeamSize(""))
	assert.NoError(t, validateTeamSize("4"))
	assert.Error(t, validateTeamSize("many"))
	assert.Error(t, validateTeamSize("101"))

	features := parseFeatures("Cup logging\n\n  Charts  \nReminders\n")
	assert.Equal(t, []string{"Cup logging", "Charts", "Reminders"}, features)
	assert.NoError(t, validateFeatures(features))
	assert.Error(t, validateFeatures(features[:2]))
}
