package memory

import (
	"context"
	"testing"
	"time"

	"quizroom-service/internal/app"
)

func TestRoomStoreLifecycle(t *testing.T) {
	ctx := context.Background()
	store := NewRoomStore()
	room := newRoom(t, "abcd1234")

	ok, err := store.Insert(ctx, room)
	if err != nil || !ok {
		t.Fatalf("expected insert, got ok=%v err=%v", ok, err)
	}
	if ok, _ := store.Insert(ctx, newRoom(t, "abcd1234")); ok {
		t.Fatalf("expected duplicate key to be rejected")
	}
	if got, ok := store.Get("abcd1234"); !ok || got != room {
		t.Fatalf("expected stored room")
	}
	if keys := store.Keys(); len(keys) != 1 || keys[0] != "abcd1234" {
		t.Fatalf("unexpected keys %v", keys)
	}

	if !store.DeleteIfIdle(ctx, "abcd1234", time.Now().Add(time.Hour)) {
		t.Fatalf("expected idle empty room to be removed")
	}
	if _, ok := store.Get("abcd1234"); ok {
		t.Fatalf("expected room removed")
	}
	if store.DeleteIfIdle(ctx, "abcd1234", time.Now()) {
		t.Fatalf("deleting a missing room must report false")
	}
}

func newRoom(t *testing.T, key string) *app.Room {
	t.Helper()
	room, err := app.NewRoom(key, sampleQuiz(), app.RoomOptions{})
	if err != nil {
		t.Fatalf("new room: %v", err)
	}
	return room
}
