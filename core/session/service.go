package session

import (
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/michezo/core"
	"github.com/trezcool/michezo/core/catalog"
	"github.com/trezcool/michezo/core/content"
	"github.com/trezcool/michezo/core/evaluation"
)

var (
	// errors
	ErrNotFound            = errors.New("game session not found")
	ErrParticipantNotFound = errors.New("participant not found")
	ErrQuestionNotFound    = errors.New("question not found")
	ErrSessionClosed       = errors.New("game session has already finished")
	ErrSessionNotActive    = errors.New("game session is not active")
	ErrDuplicateAnswer     = errors.New("question already answered")
	ErrInvalidTransition   = errors.New("operation invalid for current session status")
	ErrJoinCodeExhausted   = errors.New("could not allocate a unique join code")
)

type (
	Repository interface {
		CreateSession(gs GameSession) (GameSession, error)
		GetSessionByID(id string) (GameSession, error)
		// GetSessionByJoinCode resolves a code against currently non-ended
		// sessions only; codes of ended sessions are reusable.
		GetSessionByJoinCode(code string) (GameSession, error)
		UpdateSession(gs GameSession) (GameSession, error)
		QuerySessionsByEvaluation(evaluationID string) ([]GameSession, error)
		// QueryAllSessions applies the orderings on session columns.
		QueryAllSessions(ordering ...core.DBOrdering) ([]GameSession, error)
	}

	ServiceInterface interface {
		CreateFromEvaluation(ev evaluation.Evaluation) (GameSession, error)
		GetByID(rawID string) (GameSession, error)
		GetByJoinCode(code string) (GameSession, error)
		QueryAll(ordering ...core.DBOrdering) ([]GameSession, error)
		Join(rawID, displayName string) (Participant, error)
		JoinByCode(code, displayName string) (Participant, error)
		Start(rawID string) (GameSession, error)
		Pause(rawID string) (GameSession, error)
		Resume(rawID string) (GameSession, error)
		End(rawID string) (GameSession, error)
		SubmitAnswer(rawID, participantID, questionID, value string) (AnswerResult, error)
		Resolve(rawID string, role Role) (View, error)
		Leaderboard(rawID string) ([]Rank, error)
		EvaluationInUse(evaluationID string) (bool, error)
	}

	Service struct {
		repo     Repository
		registry *catalog.Registry
		synth    *content.Synthesizer
		conf     *core.Config
		logger   core.Logger

		// join-code allocation is the one cross-session critical section
		codeMu  sync.Mutex
		codeRng *rand.Rand

		// single-writer-per-session discipline
		locksMu sync.Mutex
		locks   map[string]*sync.Mutex
	}
)

var _ ServiceInterface = (*Service)(nil)
var _ evaluation.Locker = (*Service)(nil)

func NewService(
	repo Repository,
	reg *catalog.Registry,
	synth *content.Synthesizer,
	conf *core.Config,
	logger core.Logger,
) *Service {
	return &Service{
		repo:     repo,
		registry: reg,
		synth:    synth,
		conf:     conf,
		logger:   logger,
		codeRng:  rand.New(rand.NewSource(time.Now().UnixNano())),
		locks:    make(map[string]*sync.Mutex),
	}
}

func (svc *Service) sessionLock(id string) *sync.Mutex {
	svc.locksMu.Lock()
	defer svc.locksMu.Unlock()
	mu, ok := svc.locks[id]
	if !ok {
		mu = &sync.Mutex{}
		svc.locks[id] = mu
	}
	return mu
}

// CreateFromEvaluation wraps an evaluation's content into a new waiting
// session. Cached content is reused; content is synthesized here only when
// the evaluation carries none. Skin application is best-effort and never
// blocks creation.
func (svc *Service) CreateFromEvaluation(ev evaluation.Evaluation) (GameSession, error) {
	questions := ev.Questions
	meta := ev.Meta
	if len(questions) == 0 {
		var err error
		questions, meta, err = evaluation.SynthesizeContent(svc.registry, svc.synth, svc.logger, ev)
		if err != nil {
			return GameSession{}, errors.Wrap(err, "synthesizing session content")
		}
	}

	skin := SkinOutcome{OK: meta.SkinAppliedOK, Reason: meta.SkinReason}
	theme := meta.SkinApplied
	if !skin.OK && svc.logger != nil {
		svc.logger.Warn(fmt.Sprintf("session for evaluation %q: skin degraded: %s", ev.ID, skin.Reason))
	}

	code, err := svc.allocateJoinCode()
	if err != nil {
		return GameSession{}, err
	}

	gs := GameSession{
		ID:               uuid.New().String(),
		EvaluationID:     ev.ID,
		JoinCode:         code,
		Status:           StatusWaiting,
		SkinTheme:        theme,
		Skin:             skin,
		TimeLimitMinutes: ev.TimeLimitMinutes,
		Questions:        questions,
		Participants:     []Participant{},
		CreatedAt:        time.Now().UTC(),
	}
	gs, err = svc.repo.CreateSession(gs)
	if err != nil {
		return GameSession{}, errors.Wrap(err, "creating game session")
	}
	return gs, nil
}

const joinCodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// allocateJoinCode issues a short shareable code, unique among non-ended
// sessions. Serialized globally so concurrent session creations cannot
// collide.
func (svc *Service) allocateJoinCode() (string, error) {
	svc.codeMu.Lock()
	defer svc.codeMu.Unlock()

	n := svc.conf.Game.JoinCodeLength
	if n <= 0 {
		n = 6
	}
	for attempt := 0; attempt < 100; attempt++ {
		buf := make([]byte, n)
		for i := range buf {
			buf[i] = joinCodeAlphabet[svc.codeRng.Intn(len(joinCodeAlphabet))]
		}
		code := string(buf)
		if _, err := svc.repo.GetSessionByJoinCode(code); err != nil {
			if errors.Cause(err) == ErrNotFound {
				return code, nil
			}
			return "", errors.Wrap(err, "checking join code")
		}
	}
	return "", ErrJoinCodeExhausted
}

func (svc *Service) GetByID(rawID string) (GameSession, error) {
	return svc.repo.GetSessionByID(CanonicalID(rawID))
}

func (svc *Service) GetByJoinCode(code string) (GameSession, error) {
	return svc.repo.GetSessionByJoinCode(strings.ToUpper(core.CleanString(code)))
}

func (svc *Service) QueryAll(ordering ...core.DBOrdering) ([]GameSession, error) {
	return svc.repo.QueryAllSessions(ordering...)
}

// Join creates a Participant. Late join while active is allowed (by
// configuration); an ended session is closed to everyone.
func (svc *Service) Join(rawID, displayName string) (Participant, error) {
	id := CanonicalID(rawID)
	mu := svc.sessionLock(id)
	mu.Lock()
	defer mu.Unlock()

	gs, err := svc.repo.GetSessionByID(id)
	if err != nil {
		return Participant{}, err
	}
	if gs.Status == StatusEnded {
		return Participant{}, ErrSessionClosed
	}
	if gs.Status != StatusWaiting && !svc.conf.Game.AllowLateJoin {
		return Participant{}, ErrSessionClosed
	}

	p := Participant{
		ID:          uuid.New().String(),
		SessionID:   gs.ID,
		DisplayName: core.CleanString(displayName),
		Answers:     []Answer{},
		JoinedAt:    time.Now().UTC(),
	}
	gs.Participants = append(gs.Participants, p)
	if _, err = svc.repo.UpdateSession(gs); err != nil {
		return Participant{}, errors.Wrap(err, "adding participant")
	}
	return p, nil
}

func (svc *Service) JoinByCode(code, displayName string) (Participant, error) {
	gs, err := svc.GetByJoinCode(code)
	if err != nil {
		return Participant{}, err
	}
	return svc.Join(gs.ID, displayName)
}

func (svc *Service) Start(rawID string) (GameSession, error) {
	return svc.transition(rawID, StatusActive, func(gs *GameSession) {
		if gs.StartedAt.IsZero() {
			gs.StartedAt = time.Now().UTC()
		}
	})
}

func (svc *Service) Pause(rawID string) (GameSession, error) {
	return svc.transition(rawID, StatusPaused, nil)
}

func (svc *Service) Resume(rawID string) (GameSession, error) {
	gs, err := svc.GetByID(rawID)
	if err != nil {
		return GameSession{}, err
	}
	if gs.Status != StatusPaused {
		return GameSession{}, ErrInvalidTransition
	}
	return svc.transition(rawID, StatusActive, nil)
}

// End transitions to ended and freezes final scores; no further mutation is
// permitted, whatever answers exist (or not) at this instant are final.
func (svc *Service) End(rawID string) (GameSession, error) {
	return svc.transition(rawID, StatusEnded, func(gs *GameSession) {
		gs.EndedAt = time.Now().UTC()
	})
}

func (svc *Service) transition(rawID string, to Status, apply func(*GameSession)) (GameSession, error) {
	id := CanonicalID(rawID)
	mu := svc.sessionLock(id)
	mu.Lock()
	defer mu.Unlock()

	gs, err := svc.repo.GetSessionByID(id)
	if err != nil {
		return GameSession{}, err
	}
	if !gs.Status.CanTransition(to) {
		return GameSession{}, ErrInvalidTransition
	}
	gs.Status = to
	if apply != nil {
		apply(&gs)
	}
	gs, err = svc.repo.UpdateSession(gs)
	if err != nil {
		return GameSession{}, errors.Wrapf(err, "transitioning session to %s", to)
	}
	return gs, nil
}

// AnswerResult is the synchronous feedback for one accepted submission.
type AnswerResult struct {
	Correct      bool `json:"correct"`
	RunningScore int  `json:"running_score"`
}

// SubmitAnswer validates, appends and scores one submission. Duplicates are
// rejected, not overwritten, preserving audit integrity. Serialized per
// session so no update is lost.
func (svc *Service) SubmitAnswer(rawID, participantID, questionID, value string) (AnswerResult, error) {
	id := CanonicalID(rawID)
	mu := svc.sessionLock(id)
	mu.Lock()
	defer mu.Unlock()

	gs, err := svc.repo.GetSessionByID(id)
	if err != nil {
		return AnswerResult{}, err
	}
	if gs.Status != StatusActive {
		return AnswerResult{}, ErrSessionNotActive
	}
	p := gs.participant(participantID)
	if p == nil {
		return AnswerResult{}, ErrParticipantNotFound
	}
	q := gs.question(questionID)
	if q == nil {
		return AnswerResult{}, ErrQuestionNotFound
	}
	if p.HasAnswered(questionID) {
		return AnswerResult{}, ErrDuplicateAnswer
	}

	ans := Answer{
		QuestionID:  questionID,
		Value:       core.CleanString(value),
		Correct:     q.IsCorrect(value),
		SubmittedAt: time.Now().UTC(),
	}
	if ans.Correct {
		ans.Points = q.Points
		p.Score += q.Points
	}
	p.Answers = append(p.Answers, ans)

	if _, err = svc.repo.UpdateSession(gs); err != nil {
		return AnswerResult{}, errors.Wrap(err, "recording answer")
	}
	return AnswerResult{Correct: ans.Correct, RunningScore: p.Score}, nil
}

// EvaluationInUse reports whether any session of the evaluation has
// participants; such evaluations have frozen content.
func (svc *Service) EvaluationInUse(evaluationID string) (bool, error) {
	sessions, err := svc.repo.QuerySessionsByEvaluation(evaluationID)
	if err != nil {
		return false, err
	}
	for _, gs := range sessions {
		if gs.HasParticipants() {
			return true, nil
		}
	}
	return false, nil
}
