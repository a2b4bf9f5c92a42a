// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package ux

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

func newTestPrinter(level PersonalityLevel) (*Printer, *bytes.Buffer, *bytes.Buffer) {
	var out, errOut bytes.Buffer
	return &Printer{Out: &out, Err: &errOut, Level: level, Width: 60}, &out, &errOut
}

// =============================================================================
// Icon.Render Tests
// =============================================================================

func TestIcon_Render(t *testing.T) {
	for _, icon := range []Icon{IconSuccess, IconWarning, IconError, IconArrow} {
		if !strings.Contains(icon.Render(), string(icon)) {
			t.Errorf("Render(%q) lost the icon", icon)
		}
	}
}

// =============================================================================
// Printer Tests
// =============================================================================

func TestPrinter_MachineMode(t *testing.T) {
	p, out, errOut := newTestPrinter(PersonalityMachine)

	p.Title("Roadmaps")
	p.Muted("secondary")
	p.Success("saved")
	p.Info("3 phases")
	p.Warning("careful")
	p.Error("failed")

	if got, want := out.String(), "OK: saved\n3 phases\n"; got != want {
		t.Errorf("stdout = %q, want %q", got, want)
	}
	if got, want := errOut.String(), "WARN: careful\nERROR: failed\n"; got != want {
		t.Errorf("stderr = %q, want %q", got, want)
	}
}

func TestPrinter_FullMode(t *testing.T) {
	p, out, errOut := newTestPrinter(PersonalityFull)

	p.Title("Roadmaps")
	p.Success("saved")
	p.Error("failed")

	if !strings.Contains(out.String(), "Roadmaps") {
		t.Errorf("title missing: %q", out.String())
	}
	if !strings.Contains(out.String(), string(IconSuccess)) {
		t.Errorf("success icon missing: %q", out.String())
	}
	if !strings.Contains(errOut.String(), "failed") {
		t.Errorf("error missing: %q", errOut.String())
	}
}

func TestPrinter_Box(t *testing.T) {
	p, out, _ := newTestPrinter(PersonalityFull)
	p.Box("Discovery", "2 weeks")
	if !strings.Contains(out.String(), "Discovery") || !strings.Contains(out.String(), "2 weeks") {
		t.Errorf("box content missing: %q", out.String())
	}

	p, out, _ = newTestPrinter(PersonalityMinimal)
	p.Box("Discovery", "2 weeks")
	if got, want := out.String(), "Discovery: 2 weeks\n"; got != want {
		t.Errorf("minimal box = %q, want %q", got, want)
	}
}

func TestPrinter_ErrorBox_Plain(t *testing.T) {
	p, _, errOut := newTestPrinter(PersonalityMachine)
	p.ErrorBox("Roadmap rejected", []string{"Phase 2 has 1 task", "Add more tasks"})

	want := "ERROR: Roadmap rejected\n  Phase 2 has 1 task\n  Add more tasks\n"
	if got := errOut.String(); got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestPrinter_Markdown(t *testing.T) {
	p, out, _ := newTestPrinter(PersonalityMachine)
	p.Markdown("  **Start** with discovery.\n")
	if got, want := out.String(), "**Start** with discovery.\n"; got != want {
		t.Errorf("plain markdown = %q, want %q", got, want)
	}

	p, out, _ = newTestPrinter(PersonalityFull)
	p.Markdown("**Start** with discovery.")
	if !strings.Contains(out.String(), "Start") {
		t.Errorf("rendered markdown lost text: %q", out.String())
	}
}

// =============================================================================
// Spinner Tests
// =============================================================================

func TestSpinner_MachineMode(t *testing.T) {
	p, out, _ := newTestPrinter(PersonalityMachine)

	err := p.WithSpinner("Generating roadmap", func() error { return nil })
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got, want := out.String(), "PROGRESS: Generating roadmap\n"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestSpinner_PropagatesError(t *testing.T) {
	p, _, _ := newTestPrinter(PersonalityFull)
	want := errors.New("boom")

	if err := p.WithSpinner("Working", func() error { return want }); !errors.Is(err, want) {
		t.Errorf("got %v, want %v", err, want)
	}
}

func TestSpinner_StopIsIdempotent(t *testing.T) {
	p, out, _ := newTestPrinter(PersonalityFull)
	spin := p.Spinner("Working")
	spin.Stop()
	spin.Start()
	spin.Stop()
	spin.Stop()

	if !strings.HasSuffix(out.String(), "\r\033[K") {
		t.Errorf("spinner line not cleared: %q", out.String())
	}
}
