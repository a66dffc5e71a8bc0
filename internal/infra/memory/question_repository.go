package memory

import (
	"context"
	"sync"

	"flags-challenge/internal/domain"
)

// QuestionRepository is an in-memory implementation of app.QuestionRepository.
type QuestionRepository struct {
	mu        sync.RWMutex
	questions []domain.Question
}

func NewQuestionRepository(seed ...domain.Question) *QuestionRepository {
	return &QuestionRepository{questions: cloneQuestions(seed)}
}

func (r *QuestionRepository) Load(_ context.Context) ([]domain.Question, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return cloneQuestions(r.questions), nil
}

func (r *QuestionRepository) ReplaceAll(_ context.Context, questions []domain.Question) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.questions = cloneQuestions(questions)
	return nil
}

func cloneQuestions(in []domain.Question) []domain.Question {
	out := make([]domain.Question, len(in))
	for i, q := range in {
		q.Options = append([]string(nil), q.Options...)
		out[i] = q
	}
	return out
}
