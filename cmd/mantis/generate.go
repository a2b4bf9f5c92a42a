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
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/pratapaadiii/mantis/services/mantis/datatypes"
	"github.com/pratapaadiii/mantis/services/mantis/store"
	"github.com/spf13/cobra"
)

func newGenerateCmd(a *app) *cobra.Command {
	var (
		req        datatypes.RoadmapRequest
		timeline   string
		complexity string
		teamSize   int
		asJSON     bool
	)

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate and save a roadmap",
		Long: `Generate sends the app description to the Mantis API and saves the
resulting roadmap locally. Missing fields are asked for with a form when
running in a terminal; otherwise the API reports what is missing.`,
		Example: `  mantis generate --name "Coffee Tracker Pro" \
    --purpose "Track every cup and suggest healthier habits over time" \
    --feature "Cup logging" --feature "Caffeine charts" --feature "Reminders"`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			if timeline != "" || complexity != "" || teamSize > 0 {
				req.Preferences = &datatypes.Preferences{
					Timeline:   timeline,
					Complexity: complexity,
					TeamSize:   teamSize,
				}
			}

			if !asJSON && needsInput(req) && a.interactive() {
				if err := runRequestForm(&req); err != nil {
					return err
				}
			}

			var roadmap *datatypes.Roadmap
			generate := func() error {
				var err error
				roadmap, err = a.newClient().GenerateRoadmap(ctx, req)
				return err
			}
			var err error
			if asJSON {
				err = generate()
			} else {
				err = a.printer.WithSpinner("Generating roadmap", generate)
			}
			if err != nil {
				return err
			}

			var saved datatypes.SavedRoadmap
			err = a.withStore(ctx, func(s *store.Store) error {
				var err error
				saved, err = s.Add(ctx, req, *roadmap)
				return err
			})
			if err != nil {
				return fmt.Errorf("save roadmap: %w", err)
			}
			slog.Info("roadmap saved", "id", saved.ID, "phases", len(saved.Phases))

			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(saved)
			}
			renderRoadmap(a.printer, saved)
			a.printer.Success("Saved as " + saved.ID)
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVarP(&req.AppName, "name", "n", "", "app name (3-50 characters)")
	f.StringVarP(&req.Purpose, "purpose", "d", "", "what the app should do (at least 20 characters)")
	f.StringArrayVarP(&req.Features, "feature", "f", nil, "key feature, repeat 3-5 times")
	f.StringVar(&timeline, "timeline", "", "aggressive, moderate or relaxed")
	f.StringVar(&complexity, "complexity", "", "simple, standard or complex")
	f.IntVar(&teamSize, "team-size", 0, "number of people building the app")
	f.BoolVar(&asJSON, "json", false, "print the saved roadmap as JSON")
	return cmd
}

// needsInput reports whether the form has anything to ask for.
func needsInput(req datatypes.RoadmapRequest) bool {
	return req.AppName == "" || req.Purpose == "" || len(req.Features) < datatypes.MinFeatures
}
