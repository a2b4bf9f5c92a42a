// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Command mantis runs the roadmap service and talks to it from a terminal.
//
//	mantis serve                 start the HTTP API
//	mantis generate              build a roadmap (interactive form on a TTY)
//	mantis roadmaps list|show|delete|clear
//	mantis chat [id]             ask follow-up questions about a roadmap
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/pratapaadiii/mantis/pkg/logging"
	"github.com/pratapaadiii/mantis/pkg/ux"
	"github.com/pratapaadiii/mantis/services/mantis/client"
	"github.com/pratapaadiii/mantis/services/mantis/config"
	"github.com/pratapaadiii/mantis/services/mantis/store"
	"github.com/spf13/cobra"
)

// EnvServer overrides the API address used by client commands.
const EnvServer = "MANTIS_SERVER"

func main() {
	a := newApp()
	if err := newRootCmd(a).Execute(); err != nil {
		a.report(err)
		os.Exit(1)
	}
}

// app carries what every command needs. Fields set in tests replace the
// real terminal, store and server.
type app struct {
	configPath  string
	serverURL   string
	personality string

	cfg     config.MantisConfig
	logger  *logging.Logger
	printer *ux.Printer

	in          io.Reader
	interactive func() bool
	openStore   func(ctx context.Context) (*store.Store, io.Closer, error)
	newClient   func() *client.Client
}

func newApp() *app {
	a := &app{
		in:          os.Stdin,
		interactive: func() bool { return ux.IsTerminal(os.Stdin) && ux.IsTerminal(os.Stdout) },
	}
	a.openStore = a.openBadgerStore
	a.newClient = func() *client.Client { return client.New(a.serverURL, nil) }
	return a
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "mantis",
		Short:         "Turn an app idea into a phased MVP roadmap",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.logger != nil {
				_ = a.logger.Close()
			}
		},
	}

	root.PersistentFlags().StringVar(&a.configPath, "config", "", "config file (default $MANTIS_CONFIG or ~/.mantis/mantis.yaml)")
	root.PersistentFlags().StringVar(&a.serverURL, "server", "", "Mantis API address (default $MANTIS_SERVER or "+client.DefaultBaseURL+")")
	root.PersistentFlags().StringVar(&a.personality, "personality", "", "output style: full, minimal or machine")

	root.AddCommand(
		newServeCmd(a),
		newGenerateCmd(a),
		newRoadmapsCmd(a),
		newChatCmd(a),
	)
	return root
}

// setup loads the config and installs the logger and printer.
//
// Only serve logs to the console. Other commands log to the file, or print
// warnings and errors when file logging is off.
func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	a.cfg = cfg

	level, err := logging.ParseLevel(cfg.Logging.Level)
	if err != nil {
		slog.Warn("invalid log level, using info", "level", cfg.Logging.Level)
	}
	logCfg := logging.Config{
		Level:   level,
		LogDir:  cfg.Logging.Dir,
		Service: "mantis",
		JSON:    cfg.Logging.JSON,
	}
	if cmd.Name() != "serve" {
		if logCfg.LogDir != "" {
			logCfg.Quiet = true
		} else if logCfg.Level < logging.LevelWarn {
			logCfg.Level = logging.LevelWarn
		}
	}
	a.logger = logging.New(logCfg)
	slog.SetDefault(a.logger.Slog())

	if a.serverURL == "" {
		a.serverURL = os.Getenv(EnvServer)
	}

	if a.printer == nil {
		a.printer = &ux.Printer{Out: cmd.OutOrStdout(), Err: cmd.ErrOrStderr(), Level: ux.DetectPersonality()}
	}
	if a.personality != "" {
		a.printer.Level = ux.ParsePersonalityLevel(a.personality)
	}
	return nil
}

func (a *app) openBadgerStore(ctx context.Context) (*store.Store, io.Closer, error) {
	p, err := store.OpenBadger(store.BadgerConfig{
		Path:   a.cfg.Storage.Dir,
		Logger: a.logger.Slog(),
	})
	if err != nil {
		return nil, nil, err
	}
	s, err := store.Open(ctx, p)
	if err != nil {
		_ = p.Close()
		return nil, nil, err
	}
	return s, p, nil
}

// report prints a command failure. API errors keep their guidance.
func (a *app) report(err error) {
	if a.printer == nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return
	}
	var apiErr *client.APIError
	if errors.As(err, &apiErr) {
		a.printer.ErrorBox(apiErr.Message, apiErr.Details())
		return
	}
	a.printer.Error(err.Error())
}

// withStore opens the store for the duration of fn.
func (a *app) withStore(ctx context.Context, fn func(*store.Store) error) error {
	s, closer, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	defer closer.Close()
	return fn(s)
}
