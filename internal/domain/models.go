package domain

import (
	"fmt"
	"time"
)

// QuizItem is a single question with its candidate answers.
type QuizItem struct {
	Question      string   `json:"question" yaml:"question"`
	Answers       []string `json:"answers" yaml:"answers"`
	CorrectAnswer string   `json:"correct_answer" yaml:"correct_answer"`
}

// IsCorrect reports whether answer matches the correct answer exactly.
func (q QuizItem) IsCorrect(answer string) bool {
	return answer == q.CorrectAnswer
}

// Quiz is an ordered question set.
type Quiz struct {
	ID    string     `json:"id" yaml:"id"`
	Items []QuizItem `json:"items" yaml:"items"`
}

// Validate checks the quiz can seed a question engine.
func (q Quiz) Validate() error {
	if len(q.Items) == 0 {
		return fmt.Errorf("quiz %q: %w", q.ID, ErrEmptyQuiz)
	}
	return nil
}

// ParticipantSnapshot is a read-only view of one connected participant.
type ParticipantSnapshot struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Answered bool   `json:"answered"`
	Score    int    `json:"score"`
}

// RoomSnapshot captures the observable state of a room.
type RoomSnapshot struct {
	Key          string                `json:"key"`
	QuizID       string                `json:"quizId"`
	Participants []ParticipantSnapshot `json:"participants"`
	Amount       int                   `json:"amount"`
	Index        int                   `json:"index"`
	CreatedAt    time.Time             `json:"createdAt"`
	LastActive   time.Time             `json:"lastActive"`
}
