// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package ux provides terminal output styling for the Mantis CLI.
package ux

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
)

// Mantis palette: leaf greens with amber and red for warnings and errors.
var (
	ColorLeafBright = lipgloss.Color("#7BD88F") // highlights, success
	ColorLeaf       = lipgloss.Color("#4CAF6A") // primary brand color
	ColorMoss       = lipgloss.Color("#2E7D4F") // borders, accents
	ColorBark       = lipgloss.Color("#5B6B61") // muted text

	ColorWarning = lipgloss.Color("#F4D03F")
	ColorError   = lipgloss.Color("#E74C3C")
)

// Styles provides pre-configured lipgloss styles.
var Styles = struct {
	Title     lipgloss.Style
	Subtitle  lipgloss.Style
	Bold      lipgloss.Style
	Muted     lipgloss.Style
	Success   lipgloss.Style
	Warning   lipgloss.Style
	Error     lipgloss.Style
	Highlight lipgloss.Style

	Box      lipgloss.Style
	ErrorBox lipgloss.Style
}{
	Title:     lipgloss.NewStyle().Bold(true).Foreground(ColorLeafBright),
	Subtitle:  lipgloss.NewStyle().Foreground(ColorLeaf),
	Bold:      lipgloss.NewStyle().Bold(true),
	Muted:     lipgloss.NewStyle().Foreground(ColorBark),
	Success:   lipgloss.NewStyle().Foreground(ColorLeafBright),
	Warning:   lipgloss.NewStyle().Foreground(ColorWarning),
	Error:     lipgloss.NewStyle().Foreground(ColorError),
	Highlight: lipgloss.NewStyle().Foreground(ColorLeafBright).Bold(true),

	Box: lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ColorMoss).
		Padding(0, 1),
	ErrorBox: lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ColorError).
		Padding(0, 1),
}

// Icon provides themed status icons.
type Icon string

const (
	IconSuccess Icon = "✓"
	IconWarning Icon = "⚠"
	IconError   Icon = "✗"
	IconArrow   Icon = "→"
	IconBullet  Icon = "•"
	IconFlag    Icon = "⚑"
)

// Render returns the icon with its styling.
func (i Icon) Render() string {
	switch i {
	case IconSuccess:
		return Styles.Success.Render(string(i))
	case IconWarning:
		return Styles.Warning.Render(string(i))
	case IconError:
		return Styles.Error.Render(string(i))
	default:
		return string(i)
	}
}

// =============================================================================
// Printer
// =============================================================================

// Printer writes styled output at a fixed personality level.
//
// # Thread Safety
//
// A Printer has no mutable state; concurrent calls interleave at the
// writer's granularity.
type Printer struct {
	Out   io.Writer
	Err   io.Writer
	Level PersonalityLevel

	// Width wraps boxes and markdown. Zero uses 80.
	Width int
}

// NewPrinter returns a Printer on stdout/stderr at the detected level.
func NewPrinter() *Printer {
	return &Printer{Out: os.Stdout, Err: os.Stderr, Level: DetectPersonality()}
}

func (p *Printer) width() int {
	if p.Width > 0 {
		return p.Width
	}
	return 80
}

func (p *Printer) machine() bool {
	return p.Level == PersonalityMachine
}

// Title prints a styled title. Suppressed in machine mode.
func (p *Printer) Title(text string) {
	if p.machine() {
		return
	}
	fmt.Fprintln(p.Out, Styles.Title.Render(text))
}

// Success prints a success message with a checkmark.
func (p *Printer) Success(text string) {
	switch p.Level {
	case PersonalityMachine:
		fmt.Fprintf(p.Out, "OK: %s\n", text)
	case PersonalityMinimal:
		fmt.Fprintf(p.Out, "%s %s\n", IconSuccess.Render(), text)
	default:
		fmt.Fprintf(p.Out, "%s %s\n", IconSuccess.Render(), Styles.Success.Render(text))
	}
}

// Warning prints a warning to the error stream.
func (p *Printer) Warning(text string) {
	switch p.Level {
	case PersonalityMachine:
		fmt.Fprintf(p.Err, "WARN: %s\n", text)
	default:
		fmt.Fprintf(p.Err, "%s %s\n", IconWarning.Render(), Styles.Warning.Render(text))
	}
}

// Error prints an error to the error stream.
func (p *Printer) Error(text string) {
	switch p.Level {
	case PersonalityMachine:
		fmt.Fprintf(p.Err, "ERROR: %s\n", text)
	default:
		fmt.Fprintf(p.Err, "%s %s\n", IconError.Render(), Styles.Error.Render(text))
	}
}

// Info prints an informational line.
func (p *Printer) Info(text string) {
	if p.machine() {
		fmt.Fprintln(p.Out, text)
		return
	}
	fmt.Fprintf(p.Out, "%s %s\n", Styles.Muted.Render("│"), text)
}

// Muted prints secondary text. Suppressed in machine mode.
func (p *Printer) Muted(text string) {
	if p.machine() {
		return
	}
	fmt.Fprintln(p.Out, Styles.Muted.Render(text))
}

// Box prints content in a rounded box under a title. Machine and minimal
// modes print "title: content" lines instead.
func (p *Printer) Box(title, content string) {
	if p.Level != PersonalityFull {
		fmt.Fprintf(p.Out, "%s: %s\n", title, content)
		return
	}
	box := Styles.Box.Width(p.width() - 2)
	fmt.Fprintln(p.Out, box.Render(Styles.Title.Render(title)+"\n"+content))
}

// ErrorBox prints a failure with its details in a red box.
func (p *Printer) ErrorBox(title string, details []string) {
	if p.Level != PersonalityFull {
		fmt.Fprintf(p.Err, "ERROR: %s\n", title)
		for _, d := range details {
			fmt.Fprintf(p.Err, "  %s\n", d)
		}
		return
	}
	lines := []string{Styles.Error.Bold(true).Render(title)}
	for _, d := range details {
		lines = append(lines, fmt.Sprintf("%s %s", IconBullet, d))
	}
	box := Styles.ErrorBox.Width(p.width() - 2)
	fmt.Fprintln(p.Err, box.Render(strings.Join(lines, "\n")))
}

// Markdown renders md with glamour in full mode and prints it raw
// otherwise. Rendering failures fall back to the raw text.
func (p *Printer) Markdown(md string) {
	if p.Level != PersonalityFull {
		fmt.Fprintln(p.Out, strings.TrimSpace(md))
		return
	}
	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(p.width()),
	)
	if err != nil {
		fmt.Fprintln(p.Out, strings.TrimSpace(md))
		return
	}
	out, err := renderer.Render(md)
	if err != nil {
		fmt.Fprintln(p.Out, strings.TrimSpace(md))
		return
	}
	fmt.Fprint(p.Out, out)
}
