package redis

import (
	"context"
	"sort"
	"sync"
	"time"

	"quizroom-service/internal/app"

	"github.com/redis/go-redis/v9"
)

// RoomStore is a Redis-aware implementation of app.RoomStore.
// Rooms themselves stay in process; Redis holds one marker per room key so
// that keys are reserved with SETNX and visible to other tooling.
type RoomStore struct {
	client *redis.Client
	ttl    time.Duration
	mu     sync.RWMutex
	rooms  map[string]*app.Room
}

func NewRoomStore(client *redis.Client, ttl time.Duration) *RoomStore {
	return &RoomStore{
		client: client,
		ttl:    ttl,
		rooms:  make(map[string]*app.Room),
	}
}

func (s *RoomStore) Insert(ctx context.Context, room *app.Room) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rooms[room.Key()]; ok {
		return false, nil
	}
	reserved, err := s.client.SetNX(ctx, s.key(room.Key()), time.Now().UTC().Format(time.RFC3339), s.ttl).Result()
	if err != nil {
		return false, err
	}
	if !reserved {
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

func (s *RoomStore) DeleteIfIdle(ctx context.Context, key string, cutoff time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	room, ok := s.rooms[key]
	if !ok || !room.CloseIfIdle(cutoff) {
		return false
	}
	delete(s.rooms, key)
	// best-effort; an orphaned marker only blocks reuse of the key until it expires
	_ = s.client.Del(ctx, s.key(key)).Err()
	return true
}

func (s *RoomStore) key(roomKey string) string {
	return "quiz:room:" + roomKey
}
