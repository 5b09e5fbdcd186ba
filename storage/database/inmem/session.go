package inmemdb

import (
	"sort"

	"github.com/trezcool/michezo/core"
	"github.com/trezcool/michezo/core/session"
)

type sessionRepository struct {
	db *sessionTable
}

func NewSessionRepository(db *DB) session.Repository {
	return &sessionRepository{db: db.session}
}

func (repo *sessionRepository) query() []session.GameSession {
	sessions := make([]session.GameSession, 0, len(repo.db.table))
	for _, gs := range repo.db.table {
		sessions = append(sessions, gs.Clone())
	}
	return sessions
}

func (repo *sessionRepository) CreateSession(gs session.GameSession) (session.GameSession, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	cp := gs.Clone()
	repo.db.table[gs.ID] = &cp
	return gs, nil
}

func (repo *sessionRepository) GetSessionByID(id string) (session.GameSession, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if gs, ok := repo.db.table[id]; ok {
		return gs.Clone(), nil
	}
	return session.GameSession{}, session.ErrNotFound
}

func (repo *sessionRepository) GetSessionByJoinCode(code string) (session.GameSession, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, gs := range repo.db.table {
		if gs.JoinCode == code && gs.Status != session.StatusEnded {
			return gs.Clone(), nil
		}
	}
	return session.GameSession{}, session.ErrNotFound
}

func (repo *sessionRepository) UpdateSession(gs session.GameSession) (session.GameSession, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.table[gs.ID]; !ok {
		return session.GameSession{}, session.ErrNotFound
	}
	cp := gs.Clone()
	repo.db.table[gs.ID] = &cp
	return gs, nil
}

func (repo *sessionRepository) QuerySessionsByEvaluation(evaluationID string) ([]session.GameSession, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	var sessions []session.GameSession
	for _, gs := range repo.db.table {
		if gs.EvaluationID == evaluationID {
			sessions = append(sessions, gs.Clone())
		}
	}
	return sessions, nil
}

func (repo *sessionRepository) QueryAllSessions(ordering ...core.DBOrdering) ([]session.GameSession, error) {
	repo.db.RLock()
	sessions := repo.query()
	repo.db.RUnlock()

	for i := len(ordering) - 1; i >= 0; i-- {
		ord := ordering[i]
		var less func(a, b session.GameSession) bool
		switch ord.Field {
		case "join_code":
			less = func(a, b session.GameSession) bool { return a.JoinCode < b.JoinCode }
		case "status":
			less = func(a, b session.GameSession) bool { return a.Status < b.Status }
		case "created_at":
			less = func(a, b session.GameSession) bool { return a.CreatedAt.Before(b.CreatedAt) }
		default: // unknown fields are not sortable
			continue
		}
		sort.SliceStable(sessions, func(i, j int) bool {
			if ord.Ascending {
				return less(sessions[i], sessions[j])
			}
			return less(sessions[j], sessions[i])
		})
	}
	return sessions, nil
}
