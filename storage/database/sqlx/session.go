package sqlxrepos

import (
	"database/sql"
	"encoding/json"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"
	"github.com/pkg/errors"

	"github.com/trezcool/michezo/core"
	"github.com/trezcool/michezo/core/session"
)

type (
	sessionRow struct {
		ID               string         `db:"id"`
		EvaluationID     string         `db:"evaluation_id"`
		JoinCode         string         `db:"join_code"`
		Status           string         `db:"status"`
		SkinTheme        string         `db:"skin_theme"`
		SkinOutcome      types.JSONText `db:"skin_outcome"`
		TimeLimitMinutes int            `db:"time_limit_minutes"`
		Questions        types.JSONText `db:"questions"`
		CreatedAt        time.Time      `db:"created_at"`
		StartedAt        sql.NullTime   `db:"started_at"`
		EndedAt          sql.NullTime   `db:"ended_at"`
	}

	participantRow struct {
		ID          string    `db:"id"`
		SessionID   string    `db:"session_id"`
		DisplayName string    `db:"display_name"`
		Score       int       `db:"score"`
		JoinedAt    time.Time `db:"joined_at"`
	}

	answerRow struct {
		ParticipantID string    `db:"participant_id"`
		QuestionID    string    `db:"question_id"`
		Value         string    `db:"value"`
		Correct       bool      `db:"correct"`
		Points        int       `db:"points"`
		SubmittedAt   time.Time `db:"submitted_at"`
	}
)

func newSessionRow(gs session.GameSession) (sessionRow, error) {
	questions, err := json.Marshal(gs.Questions)
	if err != nil {
		return sessionRow{}, errors.Wrap(err, "marshalling questions")
	}
	outcome, err := json.Marshal(gs.Skin)
	if err != nil {
		return sessionRow{}, errors.Wrap(err, "marshalling skin outcome")
	}
	row := sessionRow{
		ID:               gs.ID,
		EvaluationID:     gs.EvaluationID,
		JoinCode:         gs.JoinCode,
		Status:           string(gs.Status),
		SkinTheme:        gs.SkinTheme,
		SkinOutcome:      types.JSONText(outcome),
		TimeLimitMinutes: gs.TimeLimitMinutes,
		Questions:        types.JSONText(questions),
		CreatedAt:        gs.CreatedAt,
	}
	if !gs.StartedAt.IsZero() {
		row.StartedAt = sql.NullTime{Time: gs.StartedAt, Valid: true}
	}
	if !gs.EndedAt.IsZero() {
		row.EndedAt = sql.NullTime{Time: gs.EndedAt, Valid: true}
	}
	return row, nil
}

func (row sessionRow) session() (session.GameSession, error) {
	gs := session.GameSession{
		ID:               row.ID,
		EvaluationID:     row.EvaluationID,
		JoinCode:         row.JoinCode,
		Status:           session.Status(row.Status),
		SkinTheme:        row.SkinTheme,
		TimeLimitMinutes: row.TimeLimitMinutes,
		Participants:     []session.Participant{},
		CreatedAt:        row.CreatedAt,
	}
	if row.StartedAt.Valid {
		gs.StartedAt = row.StartedAt.Time
	}
	if row.EndedAt.Valid {
		gs.EndedAt = row.EndedAt.Time
	}
	if err := row.Questions.Unmarshal(&gs.Questions); err != nil {
		return session.GameSession{}, errors.Wrap(err, "unmarshalling questions")
	}
	if err := row.SkinOutcome.Unmarshal(&gs.Skin); err != nil {
		return session.GameSession{}, errors.Wrap(err, "unmarshalling skin outcome")
	}
	return gs, nil
}

type sessionRepository struct {
	db *sqlx.DB
}

func NewSessionRepository(db *sqlx.DB) session.Repository {
	return &sessionRepository{db: db}
}

func (repo *sessionRepository) CreateSession(gs session.GameSession) (session.GameSession, error) {
	row, err := newSessionRow(gs)
	if err != nil {
		return session.GameSession{}, err
	}
	_, err = repo.db.NamedExec(`
		INSERT INTO game_session (id, evaluation_id, join_code, status, skin_theme, skin_outcome,
		                          time_limit_minutes, questions, created_at, started_at, ended_at)
		VALUES (:id, :evaluation_id, :join_code, :status, :skin_theme, :skin_outcome,
		        :time_limit_minutes, :questions, :created_at, :started_at, :ended_at)`,
		row,
	)
	if err != nil {
		return session.GameSession{}, errors.Wrap(err, "inserting game session")
	}
	return gs, nil
}

func (repo *sessionRepository) GetSessionByID(id string) (session.GameSession, error) {
	var row sessionRow
	if err := repo.db.Get(&row, `SELECT * FROM game_session WHERE id = $1`, id); err != nil {
		if err == sql.ErrNoRows {
			return session.GameSession{}, session.ErrNotFound
		}
		return session.GameSession{}, errors.Wrap(err, "getting game session")
	}
	return repo.load(row)
}

func (repo *sessionRepository) GetSessionByJoinCode(code string) (session.GameSession, error) {
	var row sessionRow
	err := repo.db.Get(&row, `SELECT * FROM game_session WHERE join_code = $1 AND status <> $2`, code, session.StatusEnded)
	if err != nil {
		if err == sql.ErrNoRows {
			return session.GameSession{}, session.ErrNotFound
		}
		return session.GameSession{}, errors.Wrap(err, "getting game session by join code")
	}
	return repo.load(row)
}

// load attaches a session's participants and their answers.
func (repo *sessionRepository) load(row sessionRow) (session.GameSession, error) {
	gs, err := row.session()
	if err != nil {
		return session.GameSession{}, err
	}

	var pRows []participantRow
	err = repo.db.Select(&pRows, `SELECT * FROM game_participant WHERE session_id = $1 ORDER BY joined_at`, gs.ID)
	if err != nil {
		return session.GameSession{}, errors.Wrap(err, "selecting participants")
	}

	var aRows []answerRow
	err = repo.db.Select(&aRows, `
		SELECT a.* FROM game_answer a
		JOIN game_participant p ON p.id = a.participant_id
		WHERE p.session_id = $1
		ORDER BY a.submitted_at`, gs.ID)
	if err != nil {
		return session.GameSession{}, errors.Wrap(err, "selecting answers")
	}
	answers := make(map[string][]session.Answer, len(pRows))
	for _, a := range aRows {
		answers[a.ParticipantID] = append(answers[a.ParticipantID], session.Answer{
			QuestionID:  a.QuestionID,
			Value:       a.Value,
			Correct:     a.Correct,
			Points:      a.Points,
			SubmittedAt: a.SubmittedAt,
		})
	}

	for _, p := range pRows {
		ans := answers[p.ID]
		if ans == nil {
			ans = []session.Answer{}
		}
		gs.Participants = append(gs.Participants, session.Participant{
			ID:          p.ID,
			SessionID:   p.SessionID,
			DisplayName: p.DisplayName,
			Answers:     ans,
			Score:       p.Score,
			JoinedAt:    p.JoinedAt,
		})
	}
	return gs, nil
}

// UpdateSession persists the whole aggregate. Participants are upserted and
// answers inserted append-only: ON CONFLICT DO NOTHING keeps the first
// accepted submission authoritative.
func (repo *sessionRepository) UpdateSession(gs session.GameSession) (session.GameSession, error) {
	row, err := newSessionRow(gs)
	if err != nil {
		return session.GameSession{}, err
	}

	tx, err := repo.db.Beginx()
	if err != nil {
		return session.GameSession{}, errors.Wrap(err, "beginning transaction")
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.NamedExec(`
		UPDATE game_session
		SET status = :status, skin_theme = :skin_theme, skin_outcome = :skin_outcome,
		    questions = :questions, started_at = :started_at, ended_at = :ended_at
		WHERE id = :id`,
		row,
	)
	if err != nil {
		return session.GameSession{}, errors.Wrap(err, "updating game session")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return session.GameSession{}, session.ErrNotFound
	}

	for _, p := range gs.Participants {
		_, err = tx.NamedExec(`
			INSERT INTO game_participant (id, session_id, display_name, score, joined_at)
			VALUES (:id, :session_id, :display_name, :score, :joined_at)
			ON CONFLICT (id) DO UPDATE SET score = EXCLUDED.score`,
			participantRow{ID: p.ID, SessionID: p.SessionID, DisplayName: p.DisplayName, Score: p.Score, JoinedAt: p.JoinedAt},
		)
		if err != nil {
			return session.GameSession{}, errors.Wrap(err, "upserting participant")
		}
		for _, a := range p.Answers {
			_, err = tx.NamedExec(`
				INSERT INTO game_answer (participant_id, question_id, value, correct, points, submitted_at)
				VALUES (:participant_id, :question_id, :value, :correct, :points, :submitted_at)
				ON CONFLICT (participant_id, question_id) DO NOTHING`,
				answerRow{ParticipantID: p.ID, QuestionID: a.QuestionID, Value: a.Value, Correct: a.Correct, Points: a.Points, SubmittedAt: a.SubmittedAt},
			)
			if err != nil {
				return session.GameSession{}, errors.Wrap(err, "inserting answer")
			}
		}
	}

	if err = tx.Commit(); err != nil {
		return session.GameSession{}, errors.Wrap(err, "committing transaction")
	}
	return gs, nil
}

func (repo *sessionRepository) QuerySessionsByEvaluation(evaluationID string) ([]session.GameSession, error) {
	var rows []sessionRow
	err := repo.db.Select(&rows, `SELECT * FROM game_session WHERE evaluation_id = $1`, evaluationID)
	if err != nil {
		return nil, errors.Wrap(err, "selecting game sessions")
	}
	sessions := make([]session.GameSession, 0, len(rows))
	for _, row := range rows {
		gs, err := repo.load(row)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, gs)
	}
	return sessions, nil
}

// sortable columns for QueryAllSessions; client-supplied field names never
// reach the query unless listed here.
var sessionSortColumns = map[string]bool{
	"join_code":  true,
	"status":     true,
	"created_at": true,
}

func sessionOrderClause(ordering []core.DBOrdering) string {
	var cols []string
	for _, ord := range ordering {
		if sessionSortColumns[ord.Field] {
			cols = append(cols, ord.String())
		}
	}
	if len(cols) == 0 {
		return ""
	}
	return ` ORDER BY ` + strings.Join(cols, `, `)
}

func (repo *sessionRepository) QueryAllSessions(ordering ...core.DBOrdering) ([]session.GameSession, error) {
	query := `SELECT * FROM game_session` + sessionOrderClause(ordering)

	var rows []sessionRow
	if err := repo.db.Select(&rows, query); err != nil {
		return nil, errors.Wrap(err, "selecting game sessions")
	}
	sessions := make([]session.GameSession, 0, len(rows))
	for _, row := range rows {
		gs, err := repo.load(row)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, gs)
	}
	return sessions, nil
}
