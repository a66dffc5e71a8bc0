package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"flags-challenge/internal/domain"
	"github.com/redis/go-redis/v9"
)

// QuestionRepository stores the ordered catalog as a Redis list of JSON records:
//
//	RPUSH {namespace}:questions {question json} ...
//
// ReplaceAll rewrites the list inside MULTI so readers never see a partial catalog.
type QuestionRepository struct {
	client    *redis.Client
	namespace string
}

func NewQuestionRepository(client *redis.Client, namespace string) *QuestionRepository {
	return &QuestionRepository{client: client, namespace: namespace}
}

func (r *QuestionRepository) Load(ctx context.Context) ([]domain.Question, error) {
	raw, err := r.client.LRange(ctx, r.key(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("load questions: %w", err)
	}
	questions := make([]domain.Question, 0, len(raw))
	for _, item := range raw {
		var q domain.Question
		if err := json.Unmarshal([]byte(item), &q); err != nil {
			return nil, fmt.Errorf("unmarshal question: %w", err)
		}
		questions = append(questions, q)
	}
	return questions, nil
}

func (r *QuestionRepository) ReplaceAll(ctx context.Context, questions []domain.Question) error {
	values := make([]interface{}, 0, len(questions))
	for _, q := range questions {
		data, err := json.Marshal(q)
		if err != nil {
			return fmt.Errorf("marshal question %d: %w", q.ID, err)
		}
		values = append(values, data)
	}

	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, r.key())
		if len(values) > 0 {
			pipe.RPush(ctx, r.key(), values...)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("replace questions: %w", err)
	}
	return nil
}

func (r *QuestionRepository) key() string {
	return r.namespace + ":questions"
}
