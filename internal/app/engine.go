package app

import (
	"quizroom-service/internal/cursor"
	"quizroom-service/internal/domain"
)

// Engine walks a room through its question set.
type Engine struct {
	questions *cursor.Cursor[domain.QuizItem]
}

// NewEngine seeds an engine with items, which must not be empty.
func NewEngine(items []domain.QuizItem) (*Engine, error) {
	if len(items) == 0 {
		return nil, domain.ErrEmptyQuiz
	}
	return &Engine{questions: cursor.New(items[0], items[1:])}, nil
}

// CurrentItem returns the question the room is answering.
func (e *Engine) CurrentItem() domain.QuizItem {
	return e.questions.Current()
}

// Advance moves to the next question. Past the last question it is a no-op.
func (e *Engine) Advance() {
	e.questions.Next()
}

// Size is the number of questions in the set.
func (e *Engine) Size() int {
	return e.questions.Size()
}

// Index is the position of the current question.
func (e *Engine) Index() int {
	return e.questions.CurrentIndex()
}
