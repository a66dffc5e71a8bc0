package app

import (
	"context"
	"errors"
	"fmt"

	"flags-challenge/internal/domain"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// QuestionRepository persists the ordered question catalog (in-memory, Redis, Postgres).
type QuestionRepository interface {
	Load(ctx context.Context) ([]domain.Question, error)
	// ReplaceAll deletes every stored question and inserts the given ones in order.
	ReplaceAll(ctx context.Context, questions []domain.Question) error
}

// Catalog is the bundled fallback used when the repository is empty.
type Catalog interface {
	Questions() ([]domain.Question, error)
}

// QuestionSource loads questions from the repository, seeding it from the
// fallback catalog on first use so question order is stable across runs.
type QuestionSource struct {
	repo     QuestionRepository
	fallback Catalog
	logger   *zap.Logger
	sf       singleflight.Group
}

func NewQuestionSource(repo QuestionRepository, fallback Catalog, logger *zap.Logger) *QuestionSource {
	return &QuestionSource{repo: repo, fallback: fallback, logger: logger}
}

// Load returns the persisted questions, or the fallback catalog (persisting it) when none are stored.
func (s *QuestionSource) Load(ctx context.Context) ([]domain.Question, error) {
	result, err, _ := s.sf.Do("load", func() (interface{}, error) {
		stored, err := s.repo.Load(ctx)
		if err != nil {
			s.logger.Warn("load persisted questions", zap.Error(err))
		}
		if len(stored) > 0 {
			return domain.ValidQuestions(stored), nil
		}
		return s.seed(ctx)
	})
	if err != nil {
		return nil, err
	}
	return result.([]domain.Question), nil
}

// Reload discards the persisted catalog and re-seeds it from the fallback.
func (s *QuestionSource) Reload(ctx context.Context) ([]domain.Question, error) {
	result, err, _ := s.sf.Do("reload", func() (interface{}, error) {
		if err := s.repo.ReplaceAll(ctx, nil); err != nil {
			s.logger.Warn("clear persisted questions", zap.Error(err))
		}
		return s.seed(ctx)
	})
	if err != nil {
		return nil, err
	}
	return result.([]domain.Question), nil
}

func (s *QuestionSource) seed(ctx context.Context) ([]domain.Question, error) {
	questions, err := s.fallback.Questions()
	if err != nil {
		if !errors.Is(err, domain.ErrDataUnavailable) {
			err = fmt.Errorf("%w: %v", domain.ErrDataUnavailable, err)
		}
		return nil, err
	}
	questions = domain.ValidQuestions(questions)
	if err := s.repo.ReplaceAll(ctx, questions); err != nil {
		// The quiz can still run from memory; the next start re-seeds.
		s.logger.Warn("persist fallback questions", zap.Error(err))
	} else {
		s.logger.Info("seeded question catalog", zap.Int("count", len(questions)))
	}
	return questions, nil
}
