// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/pratapaadiii/mantis/pkg/ux"
	"github.com/pratapaadiii/mantis/services/mantis/datatypes"
	"github.com/pratapaadiii/mantis/services/mantis/pipeline"
	"github.com/pratapaadiii/mantis/services/mantis/store"
)

var (
	phaseNumberStyle = lipgloss.NewStyle().Bold(true).Foreground(ux.ColorLeafBright)
	timelineStyle    = lipgloss.NewStyle().Italic(true).Foreground(ux.ColorLeaf)
	sectionStyle     = lipgloss.NewStyle().Bold(true).Underline(true)
)

// totalWeeks sums the upper bound of every phase timeline. Unreadable
// timelines count as zero.
func totalWeeks(phases []datatypes.Phase) int {
	total := 0
	for _, p := range phases {
		if weeks, err := pipeline.TimelineUpperBound(p.Timeline); err == nil {
			total += weeks
		}
	}
	return total
}

// renderRoadmap prints a saved roadmap. Machine mode prints one fact per
// line so the output can be grepped.
func renderRoadmap(p *ux.Printer, r datatypes.SavedRoadmap) {
	if p.Level == ux.PersonalityMachine {
		fmt.Fprintf(p.Out, "roadmap\t%s\t%s\n", r.ID, r.AppName)
		for i, ph := range r.Phases {
			fmt.Fprintf(p.Out, "phase\t%d\t%s\t%s\n", i+1, ph.Name, ph.Timeline)
			for _, t := range ph.Tasks {
				fmt.Fprintf(p.Out, "task\t%d\t%s\n", i+1, t)
			}
			for _, m := range ph.Milestones {
				fmt.Fprintf(p.Out, "milestone\t%d\t%s\n", i+1, m)
			}
		}
		fmt.Fprintf(p.Out, "total_weeks\t%d\n", totalWeeks(r.Phases))
		return
	}

	p.Title(r.AppName)
	if r.Purpose != "" {
		p.Muted(r.Purpose)
	}
	if len(r.Features) > 0 {
		p.Info("Features: " + strings.Join(r.Features, ", "))
	}
	fmt.Fprintln(p.Out)

	for i, ph := range r.Phases {
		title := fmt.Sprintf("%s %s  %s",
			phaseNumberStyle.Render(fmt.Sprintf("Phase %d", i+1)),
			ph.Name,
			timelineStyle.Render(ph.Timeline))
		p.Box(title, phaseBody(ph))
	}
	p.Info(fmt.Sprintf("Estimated total: %d weeks", totalWeeks(r.Phases)))
}

func phaseBody(ph datatypes.Phase) string {
	var b strings.Builder
	b.WriteString(sectionStyle.Render("Tasks"))
	for _, t := range ph.Tasks {
		fmt.Fprintf(&b, "\n%s %s", ux.IconBullet, t)
	}
	b.WriteString("\n" + sectionStyle.Render("Milestones"))
	for _, m := range ph.Milestones {
		fmt.Fprintf(&b, "\n%s %s", ux.IconFlag, m)
	}
	return b.String()
}

// renderRoadmapList prints one line per saved roadmap, newest first.
func renderRoadmapList(p *ux.Printer, roadmaps []datatypes.SavedRoadmap) {
	if len(roadmaps) == 0 {
		if p.Level != ux.PersonalityMachine {
			p.Muted("No saved roadmaps. Run `mantis generate` to create one.")
		}
		return
	}

	if p.Level == ux.PersonalityMachine {
		for _, r := range roadmaps {
			fmt.Fprintf(p.Out, "%s\t%s\t%d\t%s\n", r.ID, r.AppName, len(r.Phases), r.Timestamp)
		}
		return
	}

	p.Title("Saved roadmaps")
	for _, r := range roadmaps {
		fmt.Fprintf(p.Out, "%s %s  %s  %s\n",
			ux.IconArrow,
			ux.Styles.Bold.Render(r.AppName),
			ux.Styles.Muted.Render(fmt.Sprintf("%d phases, %s", len(r.Phases), humanTime(r.Timestamp))),
			ux.Styles.Muted.Render(r.ID))
	}
}

// humanTime shortens a store timestamp to local date and time.
func humanTime(ts string) string {
	t, err := time.Parse(store.TimestampLayout, ts)
	if err != nil {
		return ts
	}
	return t.Local().Format("2006-01-02 15:04")
}

// renderChatTurn prints one chat message. Assistant replies are markdown.
func renderChatTurn(p *ux.Printer, m datatypes.ChatMessage) {
	if p.Level == ux.PersonalityMachine {
		fmt.Fprintf(p.Out, "%s: %s\n", m.Role, m.Content)
		return
	}
	if m.Role == datatypes.ChatRoleUser {
		fmt.Fprintf(p.Out, "%s %s\n", ux.Styles.Highlight.Render("You:"), m.Content)
		return
	}
	fmt.Fprintln(p.Out, ux.Styles.Subtitle.Render("Advisor:"))
	p.Markdown(m.Content)
}
