package inmemdb

import (
	"time"

	"github.com/trezcool/michezo/core/content"
	"github.com/trezcool/michezo/core/evaluation"
)

type evaluationRepository struct {
	db *evaluationTable
}

func NewEvaluationRepository(db *DB) evaluation.Repository {
	return &evaluationRepository{db: db.evaluation}
}

func (repo *evaluationRepository) CreateEvaluation(ev evaluation.Evaluation) (evaluation.Evaluation, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	repo.db.table[ev.ID] = &ev
	return ev, nil
}

func (repo *evaluationRepository) GetEvaluationByID(id string) (evaluation.Evaluation, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if ev, ok := repo.db.table[id]; ok {
		return *ev, nil
	}
	return evaluation.Evaluation{}, evaluation.ErrNotFound
}

func (repo *evaluationRepository) UpdateEvaluationContent(
	id string,
	questions []content.Question,
	meta evaluation.ContentMeta,
) (evaluation.Evaluation, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	ev, ok := repo.db.table[id]
	if !ok {
		return evaluation.Evaluation{}, evaluation.ErrNotFound
	}
	ev.Questions = questions
	ev.Meta = meta
	ev.UpdatedAt = time.Now().UTC()
	return *ev, nil
}
