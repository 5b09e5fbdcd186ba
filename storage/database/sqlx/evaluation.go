package sqlxrepos

import (
	"database/sql"
	"encoding/json"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/trezcool/michezo/core/content"
	"github.com/trezcool/michezo/core/evaluation"
)

type evaluationRow struct {
	ID               string         `db:"id"`
	ClassID          string         `db:"class_id"`
	TeacherID        string         `db:"teacher_id"`
	Title            string         `db:"title"`
	Description      string         `db:"description"`
	ObjectiveCodes   pq.StringArray `db:"objective_codes"`
	Difficulty       string         `db:"difficulty"`
	QuestionCount    int            `db:"question_count"`
	EngineID         string         `db:"engine_id"`
	SkinTheme        string         `db:"skin_theme"`
	TimeLimitMinutes int            `db:"time_limit_minutes"`
	Questions        types.JSONText `db:"questions"`
	Meta             types.JSONText `db:"meta"`
	CreatedAt        time.Time      `db:"created_at"`
	UpdatedAt        time.Time      `db:"updated_at"`
}

func newEvaluationRow(ev evaluation.Evaluation) (evaluationRow, error) {
	questions, err := json.Marshal(ev.Questions)
	if err != nil {
		return evaluationRow{}, errors.Wrap(err, "marshalling questions")
	}
	meta, err := json.Marshal(ev.Meta)
	if err != nil {
		return evaluationRow{}, errors.Wrap(err, "marshalling metadata")
	}
	return evaluationRow{
		ID:               ev.ID,
		ClassID:          ev.ClassID,
		TeacherID:        ev.TeacherID,
		Title:            ev.Title,
		Description:      ev.Description,
		ObjectiveCodes:   pq.StringArray(ev.ObjectiveCodes),
		Difficulty:       ev.Difficulty,
		QuestionCount:    ev.QuestionCount,
		EngineID:         ev.EngineID,
		SkinTheme:        ev.SkinTheme,
		TimeLimitMinutes: ev.TimeLimitMinutes,
		Questions:        types.JSONText(questions),
		Meta:             types.JSONText(meta),
		CreatedAt:        ev.CreatedAt,
		UpdatedAt:        ev.UpdatedAt,
	}, nil
}

func (row evaluationRow) evaluation() (evaluation.Evaluation, error) {
	ev := evaluation.Evaluation{
		ID:               row.ID,
		ClassID:          row.ClassID,
		TeacherID:        row.TeacherID,
		Title:            row.Title,
		Description:      row.Description,
		ObjectiveCodes:   []string(row.ObjectiveCodes),
		Difficulty:       row.Difficulty,
		QuestionCount:    row.QuestionCount,
		EngineID:         row.EngineID,
		SkinTheme:        row.SkinTheme,
		TimeLimitMinutes: row.TimeLimitMinutes,
		CreatedAt:        row.CreatedAt,
		UpdatedAt:        row.UpdatedAt,
	}
	if err := row.Questions.Unmarshal(&ev.Questions); err != nil {
		return evaluation.Evaluation{}, errors.Wrap(err, "unmarshalling questions")
	}
	if err := row.Meta.Unmarshal(&ev.Meta); err != nil {
		return evaluation.Evaluation{}, errors.Wrap(err, "unmarshalling metadata")
	}
	return ev, nil
}

type evaluationRepository struct {
	db *sqlx.DB
}

func NewEvaluationRepository(db *sqlx.DB) evaluation.Repository {
	return &evaluationRepository{db: db}
}

func (repo *evaluationRepository) CreateEvaluation(ev evaluation.Evaluation) (evaluation.Evaluation, error) {
	row, err := newEvaluationRow(ev)
	if err != nil {
		return evaluation.Evaluation{}, err
	}
	_, err = repo.db.NamedExec(`
		INSERT INTO evaluation (id, class_id, teacher_id, title, description, objective_codes, difficulty,
		                        question_count, engine_id, skin_theme, time_limit_minutes, questions, meta,
		                        created_at, updated_at)
		VALUES (:id, :class_id, :teacher_id, :title, :description, :objective_codes, :difficulty,
		        :question_count, :engine_id, :skin_theme, :time_limit_minutes, :questions, :meta,
		        :created_at, :updated_at)`,
		row,
	)
	if err != nil {
		return evaluation.Evaluation{}, errors.Wrap(err, "inserting evaluation")
	}
	return ev, nil
}

func (repo *evaluationRepository) GetEvaluationByID(id string) (evaluation.Evaluation, error) {
	var row evaluationRow
	if err := repo.db.Get(&row, `SELECT * FROM evaluation WHERE id = $1`, id); err != nil {
		if err == sql.ErrNoRows {
			return evaluation.Evaluation{}, evaluation.ErrNotFound
		}
		return evaluation.Evaluation{}, errors.Wrap(err, "getting evaluation")
	}
	return row.evaluation()
}

func (repo *evaluationRepository) UpdateEvaluationContent(
	id string,
	questions []content.Question,
	meta evaluation.ContentMeta,
) (evaluation.Evaluation, error) {
	questionsJSON, err := json.Marshal(questions)
	if err != nil {
		return evaluation.Evaluation{}, errors.Wrap(err, "marshalling questions")
	}
	metaJSON, err := json.Marshal(meta)
	if err != nil {
		return evaluation.Evaluation{}, errors.Wrap(err, "marshalling metadata")
	}

	res, err := repo.db.Exec(`
		UPDATE evaluation SET questions = $2, meta = $3, updated_at = $4 WHERE id = $1`,
		id, types.JSONText(questionsJSON), types.JSONText(metaJSON), time.Now().UTC(),
	)
	if err != nil {
		return evaluation.Evaluation{}, errors.Wrap(err, "updating evaluation content")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return evaluation.Evaluation{}, evaluation.ErrNotFound
	}
	return repo.GetEvaluationByID(id)
}
