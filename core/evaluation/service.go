package evaluation

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/michezo/core"
	"github.com/trezcool/michezo/core/catalog"
	"github.com/trezcool/michezo/core/content"
)

var (
	// errors
	ErrNotFound = errors.New("evaluation not found")
	ErrInUse    = errors.New("evaluation already has a played session")
)

type (
	Repository interface {
		CreateEvaluation(ev Evaluation) (Evaluation, error)
		GetEvaluationByID(id string) (Evaluation, error)
		// UpdateEvaluationContent replaces the cached question set and metadata.
		UpdateEvaluationContent(id string, questions []content.Question, meta ContentMeta) (Evaluation, error)
	}

	// Locker reports whether an evaluation's content is frozen because a
	// session with participants exists. Implemented by the session service.
	Locker interface {
		EvaluationInUse(evaluationID string) (bool, error)
	}

	ServiceInterface interface {
		Create(teacherID string, ne NewEvaluation) (CreateResult, error)
		Regenerate(id string) (CreateResult, error)
		GetByID(id string) (Evaluation, error)
	}

	Service struct {
		repo     Repository
		registry *catalog.Registry
		synth    *content.Synthesizer
		locker   Locker
		conf     *core.Config
		logger   core.Logger
	}
)

var _ ServiceInterface = (*Service)(nil)

func NewService(
	repo Repository,
	reg *catalog.Registry,
	synth *content.Synthesizer,
	locker Locker,
	conf *core.Config,
	logger core.Logger,
) *Service {
	return &Service{
		repo:     repo,
		registry: reg,
		synth:    synth,
		locker:   locker,
		conf:     conf,
		logger:   logger,
	}
}

// CreateResult is the authoring response: the created evaluation, its game
// content and the content metadata (including the best-effort skin outcome).
type CreateResult struct {
	Evaluation Evaluation         `json:"evaluation"`
	Questions  []content.Question `json:"questions"`
	Meta       ContentMeta        `json:"metadata"`
}

// Create validates nothing here (callers run NewEvaluation.Validate first),
// synthesizes the game content and caches it on the evaluation. Content is
// synthesized exactly once per evaluation; sessions reuse the cache.
func (svc *Service) Create(teacherID string, ne NewEvaluation) (CreateResult, error) {
	now := time.Now().UTC()
	ev := Evaluation{
		ID:               uuid.New().String(),
		ClassID:          ne.ClassID,
		TeacherID:        teacherID,
		Title:            ne.Title,
		Description:      ne.Description,
		ObjectiveCodes:   ne.ObjectiveCodes,
		Difficulty:       ne.Difficulty,
		QuestionCount:    ne.QuestionCount,
		EngineID:         ne.EngineID,
		SkinTheme:        ne.SkinTheme,
		TimeLimitMinutes: ne.TimeLimitMinutes,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if ev.Difficulty == "" {
		ev.Difficulty = content.DifficultyMedium
	}
	if ev.QuestionCount == 0 {
		ev.QuestionCount = svc.conf.Game.DefaultQuestionCount
	}
	if max := svc.conf.Game.MaxQuestionCount; max > 0 && ev.QuestionCount > max {
		ev.QuestionCount = max
	}

	questions, meta, err := svc.synthesizeContent(ev)
	if err != nil {
		return CreateResult{}, err
	}
	ev.Questions = questions
	ev.Meta = meta

	ev, err = svc.repo.CreateEvaluation(ev)
	if err != nil {
		return CreateResult{}, errors.Wrap(err, "creating evaluation")
	}
	return CreateResult{Evaluation: ev, Questions: ev.Questions, Meta: ev.Meta}, nil
}

// Regenerate is the explicit "new attempt": it replaces the cached content
// with a fresh synthesis. Rejected with ErrInUse once any session of this
// evaluation has participants, to keep played content immutable.
func (svc *Service) Regenerate(id string) (CreateResult, error) {
	ev, err := svc.repo.GetEvaluationByID(id)
	if err != nil {
		return CreateResult{}, err
	}
	if svc.locker != nil {
		inUse, err := svc.locker.EvaluationInUse(ev.ID)
		if err != nil {
			return CreateResult{}, errors.Wrap(err, "checking evaluation sessions")
		}
		if inUse {
			return CreateResult{}, ErrInUse
		}
	}

	questions, meta, err := svc.synthesizeContent(ev)
	if err != nil {
		return CreateResult{}, err
	}
	ev, err = svc.repo.UpdateEvaluationContent(ev.ID, questions, meta)
	if err != nil {
		return CreateResult{}, errors.Wrap(err, "updating evaluation content")
	}
	return CreateResult{Evaluation: ev, Questions: ev.Questions, Meta: ev.Meta}, nil
}

func (svc *Service) GetByID(id string) (Evaluation, error) {
	return svc.repo.GetEvaluationByID(id)
}

func (svc *Service) synthesizeContent(ev Evaluation) ([]content.Question, ContentMeta, error) {
	return SynthesizeContent(svc.registry, svc.synth, svc.logger, ev)
}

// SynthesizeContent runs the title intent parser and the content synthesizer
// for an evaluation. Skin application is best-effort: an unresolvable theme
// degrades to the neutral skin and is flagged in the metadata, it never
// fails the request. The session manager uses this too when an evaluation
// carries no cached content.
func SynthesizeContent(
	reg *catalog.Registry,
	synth *content.Synthesizer,
	logger core.Logger,
	ev Evaluation,
) ([]content.Question, ContentMeta, error) {
	eng, err := reg.Engine(ev.EngineID)
	if err != nil {
		return nil, ContentMeta{}, errors.Wrapf(err, "engine %q", ev.EngineID)
	}

	intent := content.ParseTitle(ev.Title, reg.Skins())
	if intent.Range == nil || intent.Theme == "" {
		// the description may carry what the title does not
		descIntent := content.ParseTitle(ev.Description, reg.Skins())
		if intent.Range == nil {
			intent.Range = descIntent.Range
		}
		if intent.Theme == "" {
			intent.Theme = descIntent.Theme
		}
	}

	rng := content.DefaultRange(ev.Difficulty)
	if intent.Range != nil {
		rng = *intent.Range
	} else if logger != nil {
		logger.Info(fmt.Sprintf("evaluation %q: no numeric intent in title, using %s default range %d-%d",
			ev.ID, ev.Difficulty, rng.Min, rng.Max))
	}

	skin, outcome := resolveSkin(reg, logger, ev, intent.Theme)

	questions, meta, err := synth.Synthesize(content.Params{
		Engine:         eng,
		Skin:           skin,
		Range:          rng,
		ObjectiveCodes: ev.ObjectiveCodes,
		Difficulty:     ev.Difficulty,
		Count:          ev.QuestionCount,
	})
	if err != nil {
		return nil, ContentMeta{}, errors.Wrap(err, "synthesizing content")
	}

	return questions, ContentMeta{
		EngineUsed:    eng.ID,
		SkinApplied:   skin.Theme,
		SkinAppliedOK: outcome.ok,
		SkinReason:    outcome.reason,
		RangeUsed:     meta.RangeUsed,
		RangeWidened:  meta.RangeWidened,
		GeneratedAt:   meta.GeneratedAt,
	}, nil
}

type skinOutcome struct {
	ok     bool
	reason string
}

// resolveSkin picks the skin: explicit theme first, then the parsed theme
// hint, then the neutral default. A usable session outranks a decorated one:
// any failure degrades to the neutral skin instead of erroring.
func resolveSkin(reg *catalog.Registry, logger core.Logger, ev Evaluation, parsedTheme string) (catalog.SkinDescriptor, skinOutcome) {
	theme := ev.SkinTheme
	if theme == "" {
		theme = parsedTheme
	}
	if theme == "" {
		theme = catalog.DefaultTheme
	}

	skin, err := reg.Skin(theme, ev.EngineID)
	if err == nil {
		return skin, skinOutcome{ok: true}
	}
	if logger != nil {
		logger.Warn(fmt.Sprintf("evaluation %q: skin %q not applied to engine %s: %v; rendering unskinned",
			ev.ID, theme, ev.EngineID, err))
	}
	neutral, nErr := reg.Skin(catalog.DefaultTheme, ev.EngineID)
	if nErr != nil {
		// neutral applies to every engine; fall back to any compatible skin
		if skins := reg.SkinsFor(ev.EngineID); len(skins) > 0 {
			neutral = skins[0]
		}
	}
	return neutral, skinOutcome{ok: false, reason: err.Error()}
}
