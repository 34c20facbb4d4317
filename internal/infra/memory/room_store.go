package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"quizroom-service/internal/app"
)

// RoomStore is an in-memory implementation of app.RoomStore.
type RoomStore struct {
	mu    sync.RWMutex
	rooms map[string]*app.Room
}

func NewRoomStore() *RoomStore {
	return &RoomStore{
		rooms: make(map[string]*app.Room),
	}
}

func (s *RoomStore) Insert(_ context.Context, room *app.Room) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rooms[room.Key()]; ok {
		return false, nil
	}
	s.rooms[room.Key()] = room
	return true, nil
}

func (s *RoomStore) Get(key string) (*app.Room, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	room, ok := s.rooms[key]
	return room, ok
}

func (s *RoomStore) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]string, 0, len(s.rooms))
	for key := range s.rooms {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

func (s *RoomStore) DeleteIfIdle(_ context.Context, key string, cutoff time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	room, ok := s.rooms[key]
	if !ok {
		return false
	}
	if !room.CloseIfIdle(cutoff) {
		return false
	}
	delete(s.rooms, key)
	return true
}
