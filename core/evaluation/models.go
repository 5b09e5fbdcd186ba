package evaluation

import (
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/michezo/core"
	"github.com/trezcool/michezo/core/catalog"
	"github.com/trezcool/michezo/core/content"
)

// ContentMeta records how an evaluation's game content was produced.
// Field names mirror the authoring API response contract.
type ContentMeta struct {
	EngineUsed    string               `json:"engineUsed"`
	SkinApplied   string               `json:"skinApplied"`
	SkinAppliedOK bool                 `json:"skin_applied_successfully"`
	SkinReason    string               `json:"skin_reason,omitempty"`
	RangeUsed     content.NumericRange `json:"range_used"`
	RangeWidened  bool                 `json:"range_widened"`
	GeneratedAt   time.Time            `json:"generated_at"`
}

// Evaluation is a teacher-authored gamified evaluation. Its generated
// questions are cached on first synthesis; the record is effectively
// immutable once a session has started from it.
type Evaluation struct {
	ID               string             `json:"evaluation_id"`
	ClassID          string             `json:"class_id"`
	TeacherID        string             `json:"teacher_id"`
	Title            string             `json:"title"`
	Description      string             `json:"description"`
	ObjectiveCodes   []string           `json:"oa_codes"`
	Difficulty       string             `json:"difficulty"`
	QuestionCount    int                `json:"question_count"`
	EngineID         string             `json:"engine_id"`
	SkinTheme        string             `json:"skin_theme,omitempty"`
	TimeLimitMinutes int                `json:"time_limit_minutes"`
	Questions        []content.Question `json:"-"` // cached game content
	Meta             ContentMeta        `json:"metadata"`
	CreatedAt        time.Time          `json:"created_at"` // UTC
	UpdatedAt        time.Time          `json:"updated_at"` // UTC
}

// NewEvaluation contains information needed to create a new Evaluation.
type NewEvaluation struct {
	ClassID          string   `json:"class_id" validate:"required"`
	Title            string   `json:"title" validate:"required"`
	Description      string   `json:"description"`
	ObjectiveCodes   []string `json:"oa_codes" validate:"required,min=1,dive,oacode"`
	Difficulty       string   `json:"difficulty" validate:"omitempty,oneof=easy medium hard"`
	QuestionCount    int      `json:"question_count" validate:"omitempty,min=1,max=50"`
	EngineID         string   `json:"engine_id" validate:"required"`
	SkinTheme        string   `json:"skin_theme"`
	TimeLimitMinutes int      `json:"time_limit_minutes" validate:"omitempty,min=1"`
}

// Validate cleans and validates the fields, then checks the engine and the
// explicit skin (when given) against the catalog. Nothing is created when
// any of these fail.
func (ne *NewEvaluation) Validate(validate *validator.Validate, reg *catalog.Registry) error {
	ne.ClassID = core.CleanString(ne.ClassID)
	ne.Title = core.CleanString(ne.Title)
	ne.Description = core.CleanString(ne.Description)
	ne.EngineID = strings.ToUpper(core.CleanString(ne.EngineID))
	ne.SkinTheme = core.CleanString(ne.SkinTheme, true /* lower */)
	for i, code := range ne.ObjectiveCodes {
		ne.ObjectiveCodes[i] = core.CleanString(code)
	}

	if err := validate.Struct(ne); err != nil {
		return err
	}
	if _, err := reg.Engine(ne.EngineID); err != nil {
		return core.NewValidationError(err, core.FieldError{Field: "engine_id", Error: err.Error()})
	}
	if ne.SkinTheme != "" {
		if _, err := reg.Skin(ne.SkinTheme, ne.EngineID); err != nil {
			return core.NewValidationError(err, core.FieldError{Field: "skin_theme", Error: err.Error()})
		}
	}
	return nil
}
