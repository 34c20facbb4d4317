package memory

import (
	"context"
	"errors"

	"quizroom-service/internal/domain"
)

// ChainLoader asks each loader in turn and returns the first quiz found.
type ChainLoader struct {
	loaders []QuizLoader
}

func NewChainLoader(loaders ...QuizLoader) *ChainLoader {
	return &ChainLoader{loaders: loaders}
}

func (l *ChainLoader) LoadQuiz(ctx context.Context, quizID string) (domain.Quiz, error) {
	for _, loader := range l.loaders {
		quiz, err := loader.LoadQuiz(ctx, quizID)
		if errors.Is(err, domain.ErrQuizNotFound) {
			continue
		}
		return quiz, err
	}
	return domain.Quiz{}, domain.ErrQuizNotFound
}
