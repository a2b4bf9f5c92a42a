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
	"errors"

	"github.com/charmbracelet/huh"
	"github.com/pratapaadiii/mantis/services/mantis/datatypes"
	"github.com/pratapaadiii/mantis/services/mantis/store"
	"github.com/spf13/cobra"
)

func newRoadmapsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "roadmaps",
		Aliases: []string{"rm"},
		Short:   "Manage saved roadmaps",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List saved roadmaps, newest first",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return a.withStore(cmd.Context(), func(s *store.Store) error {
					renderRoadmapList(a.printer, s.List())
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "show [id]",
			Short: "Show a roadmap (default: the newest)",
			Args:  cobra.MaximumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return a.withStore(cmd.Context(), func(s *store.Store) error {
					r, err := resolveRoadmap(s, args)
					if err != nil {
						return err
					}
					renderRoadmap(a.printer, r)
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "delete <id>",
			Short: "Delete a roadmap and its chat history",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return a.withStore(cmd.Context(), func(s *store.Store) error {
					if err := s.Delete(cmd.Context(), args[0]); err != nil {
						return err
					}
					a.printer.Success("Deleted " + args[0])
					return nil
				})
			},
		},
		newClearCmd(a),
	)
	return cmd
}

func newClearCmd(a *app) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete every saved roadmap and chat history",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				if !a.interactive() {
					return errors.New("refusing to clear without --yes")
				}
				err := huh.NewConfirm().
					Title("Delete all saved roadmaps?").
					Description("Chat histories are deleted too.").
					Value(&yes).
					Run()
				if err != nil {
					return err
				}
				if !yes {
					a.printer.Muted("Nothing deleted.")
					return nil
				}
			}
			return a.withStore(cmd.Context(), func(s *store.Store) error {
				if err := s.ClearAll(cmd.Context()); err != nil {
					return err
				}
				a.printer.Success("All roadmaps deleted")
				return nil
			})
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip the confirmation")
	return cmd
}

// resolveRoadmap returns the roadmap named by args[0], or the newest one.
// The result becomes the store's active roadmap.
func resolveRoadmap(s *store.Store, args []string) (datatypes.SavedRoadmap, error) {
	var (
		r   datatypes.SavedRoadmap
		err error
	)
	if len(args) > 0 {
		r, err = s.Get(args[0])
	} else {
		list := s.List()
		if len(list) == 0 {
			return r, errors.New("no saved roadmaps, run `mantis generate` first")
		}
		r = list[0]
	}
	if err != nil {
		return r, err
	}
	return r, s.SetActive(r.ID)
}
