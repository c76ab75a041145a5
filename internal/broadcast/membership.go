// Stockroom - Inventory and Order Management Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stockroom

package broadcast

import (
	"sort"
	"sync"
)

// MembershipStore records which connections belong to which rooms.
// Implementations must be safe for concurrent use; the Hub layers per-room
// serialization on top.
type MembershipStore interface {
	// Add inserts connID into room. It reports false if already a member.
	Add(room, connID string) bool
	// Remove deletes connID from room, dropping the room when it empties.
	// It reports false if connID was not a member.
	Remove(room, connID string) bool
	// Members returns the members of room sorted by connection ID.
	Members(room string) []string
	// RoomsOf returns the rooms connID belongs to, sorted by name.
	RoomsOf(connID string) []string
	// Counts returns the member count of every tracked room.
	Counts() map[string]int
}

// MemoryStore is the default in-process MembershipStore.
type MemoryStore struct {
	mu    sync.RWMutex
	rooms map[string]map[string]struct{}
	conns map[string]map[string]struct{}
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		rooms: make(map[string]map[string]struct{}),
		conns: make(map[string]map[string]struct{}),
	}
}

// Add implements MembershipStore.
func (s *MemoryStore) Add(room, connID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	members, ok := s.rooms[room]
	if !ok {
		members = make(map[string]struct{})
		s.rooms[room] = members
	}
	if _, exists := members[connID]; exists {
		return false
	}
	members[connID] = struct{}{}

	joined, ok := s.conns[connID]
	if !ok {
		joined = make(map[string]struct{})
		s.conns[connID] = joined
	}
	joined[room] = struct{}{}
	return true
}

// Remove implements MembershipStore.
func (s *MemoryStore) Remove(room, connID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	members, ok := s.rooms[room]
	if !ok {
		return false
	}
	if _, exists := members[connID]; !exists {
		return false
	}
	delete(members, connID)
	if len(members) == 0 {
		delete(s.rooms, room)
	}

	if joined, ok := s.conns[connID]; ok {
		delete(joined, room)
		if len(joined) == 0 {
			delete(s.conns, connID)
		}
	}
	return true
}

// Members implements MembershipStore.
func (s *MemoryStore) Members(room string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return sortedKeys(s.rooms[room])
}

// RoomsOf implements MembershipStore.
func (s *MemoryStore) RoomsOf(connID string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return sortedKeys(s.conns[connID])
}

// Counts implements MembershipStore.
func (s *MemoryStore) Counts() map[string]int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := make(map[string]int, len(s.rooms))
	for room, members := range s.rooms {
		counts[room] = len(members)
	}
	return counts
}

func sortedKeys(set map[string]struct{}) []string {
	if len(set) == 0 {
		return nil
	}
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
