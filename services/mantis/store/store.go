// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package store keeps the client-side list of generated roadmaps and the
// chat history of each one.
//
// # Description
//
// State lives in memory and is written through a Persistence port as two
// JSON entries, "roadmaps" and "chatHistories". Open loads both; every
// mutation writes both before it becomes visible. There is no schema
// versioning: entries are plain JSON arrays and objects.
//
// # Thread Safety
//
// Store is safe for concurrent use.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pratapaadiii/mantis/services/mantis/datatypes"
)

// Entry names in the Persistence port.
const (
	KeyRoadmaps      = "roadmaps"
	KeyChatHistories = "chatHistories"
)

// TimestampLayout is UTC with milliseconds, e.g. 2025-03-01T09:30:00.000Z.
const TimestampLayout = "2006-01-02T15:04:05.000Z07:00"

// ErrNotFound is returned for an unknown roadmap ID.
var ErrNotFound = errors.New("roadmap not found")

// Store is the roadmap and chat-history store.
type Store struct {
	mu        sync.RWMutex
	p         Persistence
	roadmaps  []datatypes.SavedRoadmap
	histories map[string][]datatypes.ChatMessage
	active    string

	now   func() time.Time
	newID func() string
}

// Open loads both entries from p. Missing entries start empty.
func Open(ctx context.Context, p Persistence) (*Store, error) {
	s := &Store{
		p:         p,
		histories: make(map[string][]datatypes.ChatMessage),
		now:       time.Now,
		newID:     uuid.NewString,
	}
	if err := load(ctx, p, KeyRoadmaps, &s.roadmaps); err != nil {
		return nil, err
	}
	if err := load(ctx, p, KeyChatHistories, &s.histories); err != nil {
		return nil, err
	}
	if s.histories == nil {
		s.histories = make(map[string][]datatypes.ChatMessage)
	}
	return s, nil
}

func load(ctx context.Context, p Persistence, key string, into any) error {
	data, found, err := p.Load(ctx, key)
	if err != nil {
		return fmt.Errorf("load %s: %w", key, err)
	}
	if !found {
		return nil
	}
	if err := json.Unmarshal(data, into); err != nil {
		return fmt.Errorf("decode %s: %w", key, err)
	}
	return nil
}

// List returns every roadmap, newest first.
func (s *Store) List() []datatypes.SavedRoadmap {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.roadmaps)
}

// Get returns the roadmap with the given ID.
func (s *Store) Get(id string) (datatypes.SavedRoadmap, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i := s.indexOf(id)
	if i < 0 {
		return datatypes.SavedRoadmap{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return s.roadmaps[i], nil
}

// Add saves a generated roadmap with a new ID and timestamp, gives it an
// empty chat history and makes it the active roadmap.
func (s *Store) Add(ctx context.Context, req datatypes.RoadmapRequest, roadmap datatypes.Roadmap) (datatypes.SavedRoadmap, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	saved := datatypes.SavedRoadmap{
		ID:        s.newID(),
		AppName:   req.AppName,
		Purpose:   req.Purpose,
		Features:  slices.Clone(req.Features),
		Phases:    roadmap.Phases,
		Timestamp: s.now().UTC().Format(TimestampLayout),
	}

	roadmaps := append([]datatypes.SavedRoadmap{saved}, s.roadmaps...)
	histories := maps.Clone(s.histories)
	histories[saved.ID] = []datatypes.ChatMessage{}

	if err := s.commit(ctx, roadmaps, histories); err != nil {
		return datatypes.SavedRoadmap{}, err
	}
	s.active = saved.ID
	return saved, nil
}

// Delete removes a roadmap and its history. Deleting the active roadmap
// clears the active selection.
func (s *Store) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	roadmaps := slices.Delete(slices.Clone(s.roadmaps), i, i+1)
	histories := maps.Clone(s.histories)
	delete(histories, id)

	if err := s.commit(ctx, roadmaps, histories); err != nil {
		return err
	}
	if s.active == id {
		s.active = ""
	}
	return nil
}

// ClearAll removes every roadmap and history.
func (s *Store) ClearAll(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.commit(ctx, []datatypes.SavedRoadmap{}, map[string][]datatypes.ChatMessage{}); err != nil {
		return err
	}
	s.active = ""
	return nil
}

// Active returns the active roadmap, if any.
func (s *Store) Active() (datatypes.SavedRoadmap, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i := s.indexOf(s.active)
	if i < 0 {
		return datatypes.SavedRoadmap{}, false
	}
	return s.roadmaps[i], true
}

// SetActive selects a roadmap. An empty id clears the selection.
func (s *Store) SetActive(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id != "" && s.indexOf(id) < 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	s.active = id
	return nil
}

// History returns the chat history of a roadmap, oldest first.
func (s *Store) History(id string) []datatypes.ChatMessage {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.histories[id])
}

// AppendMessages adds messages to a roadmap's history. Messages without a
// timestamp are stamped with the current time.
func (s *Store) AppendMessages(ctx context.Context, id string, msgs ...datatypes.ChatMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.indexOf(id) < 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	stamp := s.now().UTC().Format(TimestampLayout)
	history := slices.Clone(s.histories[id])
	for _, m := range msgs {
		if m.Timestamp == "" {
			m.Timestamp = stamp
		}
		history = append(history, m)
	}

	histories := maps.Clone(s.histories)
	histories[id] = history
	return s.commit(ctx, s.roadmaps, histories)
}

// commit persists both entries, then swaps them in. Callers hold s.mu.
func (s *Store) commit(ctx context.Context, roadmaps []datatypes.SavedRoadmap, histories map[string][]datatypes.ChatMessage) error {
	roadmapData, err := json.Marshal(roadmaps)
	if err != nil {
		return fmt.Errorf("encode %s: %w", KeyRoadmaps, err)
	}
	historyData, err := json.Marshal(histories)
	if err != nil {
		return fmt.Errorf("encode %s: %w", KeyChatHistories, err)
	}
	if err := s.p.Save(ctx, KeyRoadmaps, roadmapData); err != nil {
		return fmt.Errorf("save %s: %w", KeyRoadmaps, err)
	}
	if err := s.p.Save(ctx, KeyChatHistories, historyData); err != nil {
		return fmt.Errorf("save %s: %w", KeyChatHistories, err)
	}
	s.roadmaps = roadmaps
	s.histories = histories
	return nil
}

func (s *Store) indexOf(id string) int {
	if id == "" {
		return -1
	}
	return slices.IndexFunc(s.roadmaps, func(r datatypes.SavedRoadmap) bool { return r.ID == id })
}
