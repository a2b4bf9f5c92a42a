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
	"fmt"
	"strings"
	"text/template"

	"github.com/pratapaadiii/mantis/services/llm"
	"github.com/pratapaadiii/mantis/services/mantis/datatypes"
)

// =============================================================================
// Prompt Templates
// =============================================================================

const roadmapSystemPrompt = `You are a senior product manager who writes MVP roadmaps for small software teams.
Respond with a single JSON object and nothing else. Do not wrap it in markdown code fences.
The object must have exactly this shape:
{"phases":[{"name":"string","timeline":"string","tasks":["string"],"milestones":["string"]}]}
Rules:
- "timeline" is either "<number> weeks" or "<number>-<number> weeks", for example "2 weeks" or "3-4 weeks".
- The upper bounds of all phase timelines must add up to 52 weeks or less.
- Every phase has at least 3 tasks and at least 2 milestones.
- Every milestone starts with a capitalized action verb, for example "Launch beta to 50 users".
- Use double quotes for every key and string. Escape double quotes inside strings. No trailing commas. No comments.`

var roadmapUserTemplate = template.Must(template.New("roadmap").Parse(
	`Create an MVP roadmap for an app called "{{.AppName}}".
Purpose: {{.Purpose}}
Core features:
{{range .Features}}- {{.}}
{{end}}Timeline preference: {{.Timeline}}
Complexity: {{.Complexity}}
{{if .TeamSize}}Team size: {{.TeamSize}} people
{{end}}
Order the phases from discovery to launch. Keep tasks concrete and small enough for one person to finish in a few days.
Use clear and simple language.`))

const repairSystemPrompt = `You fix malformed JSON. Return only the corrected JSON object with no explanation and no markdown fences.`

var repairUserTemplate = template.Must(template.New("repair").Parse(
	`The text below should be a JSON object of the shape
{"phases":[{"name":"string","timeline":"string","tasks":["string"],"milestones":["string"]}]}
but it does not parse ({{.Reason}}). Fix the syntax without changing the content and return only the JSON.

{{.Text}}`))

const chatSystemPrompt = `You are a helpful assistant that gives guidance on MVP roadmaps.
The user has generated the following roadmap:
%s

Answer questions and give advice based on this roadmap. Keep answers short and practical.`

// =============================================================================
// Prompt
// =============================================================================

// Prompt is a system instruction plus a user message.
type Prompt struct {
	System string
	User   string
}

// Messages returns the prompt as an upstream message list.
func (p Prompt) Messages() []llm.Message {
	return []llm.Message{
		{Role: llm.RoleSystem, Content: p.System},
		{Role: llm.RoleUser, Content: p.User},
	}
}

type roadmapPromptData struct {
	AppName    string
	Purpose    string
	Features   []string
	Timeline   string
	Complexity string
	TeamSize   int
}

// BuildPrompt renders the generation prompt for a validated request.
// Missing preferences default to a moderate timeline and standard
// complexity; a zero team size is left out.
func BuildPrompt(req datatypes.RoadmapRequest) (Prompt, error) {
	data := roadmapPromptData{
		AppName:    req.AppName,
		Purpose:    req.Purpose,
		Features:   req.Features,
		Timeline:   datatypes.TimelineModerate,
		Complexity: datatypes.ComplexityStandard,
	}
	if p := req.Preferences; p != nil {
		if p.Timeline != "" {
			data.Timeline = p.Timeline
		}
		if p.Complexity != "" {
			data.Complexity = p.Complexity
		}
		data.TeamSize = p.TeamSize
	}

	var b strings.Builder
	if err := roadmapUserTemplate.Execute(&b, data); err != nil {
		return Prompt{}, fmt.Errorf("render roadmap prompt: %w", err)
	}
	return Prompt{System: roadmapSystemPrompt, User: b.String()}, nil
}

// BuildRepairPrompt asks the model to fix text that failed to parse.
func BuildRepairPrompt(text string, cause *ParseError) (Prompt, error) {
	reason := "invalid JSON"
	if cause != nil {
		reason = cause.Reason
	}
	var b strings.Builder
	err := repairUserTemplate.Execute(&b, struct{ Reason, Text string }{reason, text})
	if err != nil {
		return Prompt{}, fmt.Errorf("render repair prompt: %w", err)
	}
	return Prompt{System: repairSystemPrompt, User: b.String()}, nil
}

// BuildChatSystemPrompt embeds the roadmap as indented JSON.
func BuildChatSystemPrompt(roadmap datatypes.SavedRoadmap) (string, error) {
	body, err := json.MarshalIndent(roadmap, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode roadmap for chat: %w", err)
	}
	return fmt.Sprintf(chatSystemPrompt, body), nil
}
