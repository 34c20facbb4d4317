package app_test

import (
	"context"
	"sync"
	"time"

	"quizroom-service/internal/app"
	"quizroom-service/internal/domain"
	"quizroom-service/internal/infra/memory"
)

type recorder struct {
	mu   sync.Mutex
	msgs []domain.Response
}

func (r *recorder) Publish(resp domain.Response) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, resp)
}

func (r *recorder) messages() []domain.Response {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.Response, len(r.msgs))
	copy(out, r.msgs)
	return out
}

func (r *recorder) kinds() []domain.ResponseKind {
	msgs := r.messages()
	out := make([]domain.ResponseKind, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, m.Kind)
	}
	return out
}

func (r *recorder) count(kind domain.ResponseKind) int {
	n := 0
	for _, m := range r.messages() {
		if m.Kind == kind {
			n++
		}
	}
	return n
}

func (r *recorder) last(kind domain.ResponseKind) (domain.Response, bool) {
	msgs := r.messages()
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Kind == kind {
			return msgs[i], true
		}
	}
	return domain.Response{}, false
}

func (r *recorder) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = nil
}

func sampleQuiz() domain.Quiz {
	return domain.Quiz{
		ID: "default",
		Items: []domain.QuizItem{
			{Question: "What is your name?", Answers: []string{"a", "b", "c", "d"}, CorrectAnswer: "b"},
			{Question: "Is this the next question?", Answers: []string{"yes", "no", "maybe", "what's it to you?"}, CorrectAnswer: "yes"},
		},
	}
}

func newTestRoom(opts app.RoomOptions) *app.Room {
	room, err := app.NewRoom("room-1", sampleQuiz(), opts)
	if err != nil {
		panic(err)
	}
	return room
}

func newTestRegistry(opts ...app.RegistryOption) *app.Registry {
	quizzes := memory.NewQuizRepository(memory.NewStaticQuizLoader(map[string]domain.Quiz{
		"default": sampleQuiz(),
		"empty":   {ID: "empty"},
	}), 5*time.Minute)
	return app.NewRegistry(memory.NewRoomStore(), quizzes, opts...)
}

func mustCreateRoom(registry *app.Registry) *app.Room {
	room, err := registry.CreateRoom(context.Background(), "default")
	if err != nil {
		panic(err)
	}
	return room
}
