package app

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"quizroom-service/internal/domain"
	"quizroom-service/internal/metrics"
)

// RoomStore abstracts where rooms are kept (in-memory, Redis-backed, etc).
// Implementations own the locking of the key space.
type RoomStore interface {
	// Insert stores room unless its key is already taken.
	Insert(ctx context.Context, room *Room) (bool, error)
	Get(key string) (*Room, bool)
	Keys() []string
	// DeleteIfIdle removes the room under key if it is empty and has been
	// inactive since before cutoff.
	DeleteIfIdle(ctx context.Context, key string, cutoff time.Time) bool
}

// QuizRepository loads question sets.
type QuizRepository interface {
	GetQuiz(ctx context.Context, quizID string) (domain.Quiz, error)
}

// Registry maps room keys to rooms. It is created once at startup and
// handed to whatever accepts connections.
type Registry struct {
	rooms       RoomStore
	quizzes     QuizRepository
	newKey      func() (string, error)
	roomOpts    RoomOptions
	idleTimeout time.Duration
	metrics     *metrics.Collector
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithKeyGenerator replaces the random room key source.
func WithKeyGenerator(fn func() (string, error)) RegistryOption {
	return func(r *Registry) { r.newKey = fn }
}

// WithRoomOptions sets the options every new room is created with.
func WithRoomOptions(opts RoomOptions) RegistryOption {
	return func(r *Registry) { r.roomOpts = opts }
}

// WithIdleTimeout enables reaping of empty rooms idle for longer than d.
func WithIdleTimeout(d time.Duration) RegistryOption {
	return func(r *Registry) { r.idleTimeout = d }
}

// WithMetrics attaches a collector to the registry and its rooms.
func WithMetrics(c *metrics.Collector) RegistryOption {
	return func(r *Registry) { r.metrics = c }
}

func NewRegistry(rooms RoomStore, quizzes QuizRepository, opts ...RegistryOption) *Registry {
	r := &Registry{
		rooms:   rooms,
		quizzes: quizzes,
		newKey:  randomKey,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.roomOpts.Metrics == nil {
		r.roomOpts.Metrics = r.metrics
	}
	return r
}

// CreateRoom registers a new room playing quizID under a fresh key.
func (r *Registry) CreateRoom(ctx context.Context, quizID string) (*Room, error) {
	quiz, err := r.quizzes.GetQuiz(ctx, quizID)
	if err != nil {
		return nil, fmt.Errorf("load quiz %q: %w", quizID, err)
	}
	if err := quiz.Validate(); err != nil {
		return nil, err
	}

	for {
		key, err := r.newKey()
		if err != nil {
			return nil, fmt.Errorf("generate room key: %w", err)
		}
		room, err := NewRoom(key, quiz, r.roomOpts)
		if err != nil {
			return nil, err
		}
		ok, err := r.rooms.Insert(ctx, room)
		if err != nil {
			return nil, fmt.Errorf("store room: %w", err)
		}
		if ok {
			r.metrics.RoomCreated()
			return room, nil
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
	}
}

// FindRoom returns the room registered under key.
func (r *Registry) FindRoom(key string) (*Room, bool) {
	return r.rooms.Get(key)
}

// Reap drops empty rooms that have been idle longer than the idle timeout
// and returns how many were removed. It does nothing when no timeout is set.
func (r *Registry) Reap(ctx context.Context, now time.Time) int {
	if r.idleTimeout <= 0 {
		return 0
	}
	cutoff := now.Add(-r.idleTimeout)
	removed := 0
	for _, key := range r.rooms.Keys() {
		if r.rooms.DeleteIfIdle(ctx, key, cutoff) {
			removed++
		}
	}
	r.metrics.RoomsReaped(removed)
	return removed
}

// IdleTimeout reports the configured reaping threshold.
func (r *Registry) IdleTimeout() time.Duration {
	return r.idleTimeout
}

// randomKey returns 8 hex characters from crypto/rand.
func randomKey() (string, error) {
	buf := make([]byte, 4)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
