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
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/pratapaadiii/mantis/pkg/ux"
	"github.com/pratapaadiii/mantis/services/mantis/datatypes"
	"github.com/pratapaadiii/mantis/services/mantis/store"
	"github.com/spf13/cobra"
)

var errQuestionTooLong = fmt.Errorf("question is longer than %d bytes and was not sent", datatypes.MaxMessageContentBytes)

func newChatCmd(a *app) *cobra.Command {
	var message string

	cmd := &cobra.Command{
		Use:   "chat [id]",
		Short: "Ask follow-up questions about a saved roadmap",
		Long: `Chat sends your question, the roadmap and the conversation so far to the
Mantis API. The conversation is saved with the roadmap. Without --message,
questions are read one per line until "exit" or end of input.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			return a.withStore(ctx, func(s *store.Store) error {
				r, err := resolveRoadmap(s, args)
				if err != nil {
					return err
				}
				if message != "" {
					return a.chatTurn(ctx, s, r, message)
				}
				return a.chatLoop(ctx, s, r)
			})
		},
	}

	cmd.Flags().StringVarP(&message, "message", "m", "", "ask a single question and exit")
	return cmd
}

// chatLoop replays the saved history, then reads questions from a.in. A
// failed turn is reported and the loop continues, so the question can be
// asked again.
func (a *app) chatLoop(ctx context.Context, s *store.Store, r datatypes.SavedRoadmap) error {
	p := a.printer
	p.Title("Chatting about " + r.AppName)
	p.Muted(`Type "exit" to leave.`)
	for _, m := range s.History(r.ID) {
		renderChatTurn(p, m)
	}

	reader := bufio.NewReader(a.in)
	for {
		if p.Level != ux.PersonalityMachine {
			fmt.Fprint(p.Out, ux.Styles.Highlight.Render("> "))
		}
		line, tooLong, err := readQuestion(reader, datatypes.MaxMessageContentBytes)
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		if tooLong {
			a.report(errQuestionTooLong)
			continue
		}
		switch line {
		case "":
			continue
		case "exit", "quit":
			return nil
		}
		if err := a.chatTurn(ctx, s, r, line); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			a.report(err)
		}
	}
}

// readQuestion reads one trimmed line. Bytes past limit are discarded and
// reported through tooLong so the rest of the input stays usable.
func readQuestion(r *bufio.Reader, limit int) (string, bool, error) {
	var (
		line    []byte
		tooLong bool
	)
	for {
		chunk, more, err := r.ReadLine()
		if err != nil {
			return "", false, err
		}
		if len(line)+len(chunk) > limit {
			tooLong = true
		} else {
			line = append(line, chunk...)
		}
		if !more {
			return strings.TrimSpace(string(line)), tooLong, nil
		}
	}
}

// chatTurn sends one question with the saved history and stores both
// sides of the exchange once the reply arrives.
func (a *app) chatTurn(ctx context.Context, s *store.Store, r datatypes.SavedRoadmap, question string) error {
	if len(question) > datatypes.MaxMessageContentBytes {
		return errQuestionTooLong
	}
	user := datatypes.ChatMessage{Role: datatypes.ChatRoleUser, Content: question}

	messages := append(s.History(r.ID), user)
	if len(messages) > datatypes.MaxMessagesPerRequest {
		messages = messages[len(messages)-datatypes.MaxMessagesPerRequest:]
	}

	var reply string
	err := a.printer.WithSpinner("Thinking", func() error {
		var err error
		reply, err = a.newClient().Chat(ctx, datatypes.ChatRequest{Roadmap: r, Messages: messages})
		return err
	})
	if err != nil {
		return err
	}

	assistant := datatypes.ChatMessage{Role: datatypes.ChatRoleAssistant, Content: reply}
	if err := s.AppendMessages(ctx, r.ID, user, assistant); err != nil {
		return fmt.Errorf("save chat history: %w", err)
	}
	slog.Debug("chat turn saved", "roadmap_id", r.ID, "history", len(messages)+1)

	renderChatTurn(a.printer, assistant)
	return nil
}
