package app_test

import (
	"context"
	"errors"
	"testing"

	"flags-challenge/internal/app"
	"flags-challenge/internal/catalog"
	"flags-challenge/internal/domain"
	"flags-challenge/internal/infra/memory"
	"go.uber.org/zap"
)

func TestQuestionSourcePrefersPersisted(t *testing.T) {
	ctx := context.Background()
	repo := &countingRepository{QuestionRepository: memory.NewQuestionRepository(twoQuestions()...)}
	source := app.NewQuestionSource(repo, catalog.Bundled(), zap.NewNop())

	questions, err := source.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(questions) != 2 {
		t.Fatalf("expected persisted questions, got %d", len(questions))
	}
	if repo.replaced != 0 {
		t.Fatalf("expected no re-seed, got %d writes", repo.replaced)
	}
}

func TestQuestionSourceSeedsFromFallback(t *testing.T) {
	ctx := context.Background()
	repo := &countingRepository{QuestionRepository: memory.NewQuestionRepository()}
	source := app.NewQuestionSource(repo, catalog.Bundled(), zap.NewNop())

	first, err := source.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(first) != 15 || repo.replaced != 1 {
		t.Fatalf("expected 15 questions persisted once, got %d (writes=%d)", len(first), repo.replaced)
	}

	second, err := source.Load(ctx)
	if err != nil {
		t.Fatalf("load 2: %v", err)
	}
	if repo.replaced != 1 {
		t.Fatalf("expected second load served from repository, writes=%d", repo.replaced)
	}
	for i := range first {
		if first[i].ID != second[i].ID {
			t.Fatalf("expected stable order, position %d: %d vs %d", i, first[i].ID, second[i].ID)
		}
	}
}

func TestQuestionSourceDropsInvalidPersisted(t *testing.T) {
	stored := append(twoQuestions(), domain.Question{ID: 99, Options: []string{"x", "y"}, CorrectOptionIndex: 4})
	source := app.NewQuestionSource(memory.NewQuestionRepository(stored...), catalog.Bundled(), zap.NewNop())

	questions, err := source.Load(context.Background())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(questions) != 2 {
		t.Fatalf("expected invalid question dropped, got %+v", questions)
	}
}

func TestQuestionSourceCatalogFailure(t *testing.T) {
	source := app.NewQuestionSource(memory.NewQuestionRepository(), catalog.FromBytes([]byte("not json")), zap.NewNop())

	_, err := source.Load(context.Background())
	if !errors.Is(err, domain.ErrDataUnavailable) {
		t.Fatalf("expected ErrDataUnavailable, got %v", err)
	}

	other := app.NewQuestionSource(memory.NewQuestionRepository(), staticCatalog{err: errors.New("boom")}, zap.NewNop())
	if _, err := other.Load(context.Background()); !errors.Is(err, domain.ErrDataUnavailable) {
		t.Fatalf("expected wrapped ErrDataUnavailable, got %v", err)
	}
}

func TestQuestionSourceRepositoryErrorFallsBack(t *testing.T) {
	repo := &brokenRepository{err: errors.New("connection refused")}
	source := app.NewQuestionSource(repo, staticCatalog{questions: twoQuestions()}, zap.NewNop())

	questions, err := source.Load(context.Background())
	if err != nil {
		t.Fatalf("expected fallback despite repository error, got %v", err)
	}
	if len(questions) != 2 {
		t.Fatalf("expected fallback questions, got %d", len(questions))
	}
}

func TestEngineWithUnavailableCatalogFinishes(t *testing.T) {
	source := app.NewQuestionSource(memory.NewQuestionRepository(), catalog.FromBytes([]byte("{")), zap.NewNop())
	e := app.NewEngine(context.Background(), app.EngineConfig{Source: source, Store: memory.NewSnapshotStore()})
	t.Cleanup(e.Close)

	e.ScheduleAfter(0)
	if st := e.State(); st.Phase != domain.PhaseFinished {
		t.Fatalf("expected finished with no questions, got %+v", st)
	}
}

type countingRepository struct {
	app.QuestionRepository
	replaced int
}

func (r *countingRepository) ReplaceAll(ctx context.Context, questions []domain.Question) error {
	r.replaced++
	return r.QuestionRepository.ReplaceAll(ctx, questions)
}

type brokenRepository struct {
	err error
}

func (r *brokenRepository) Load(context.Context) ([]domain.Question, error) { return nil, r.err }

func (r *brokenRepository) ReplaceAll(context.Context, []domain.Question) error { return r.err }
