package inmemdb

import (
	"sync"

	"github.com/trezcool/michezo/core/evaluation"
	"github.com/trezcool/michezo/core/session"
)

type (
	DB struct {
		evaluation *evaluationTable
		session    *sessionTable
	}

	evaluationTable struct {
		sync.RWMutex
		table map[string]*evaluation.Evaluation
	}

	sessionTable struct {
		sync.RWMutex
		table map[string]*session.GameSession
	}
)

func Open() (*DB, error) {
	db := &DB{
		evaluation: &evaluationTable{table: make(map[string]*evaluation.Evaluation)},
		session:    &sessionTable{table: make(map[string]*session.GameSession)},
	}
	return db, nil
}
