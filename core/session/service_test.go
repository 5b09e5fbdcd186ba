package session_test

import (
	"encoding/json"
	"fmt"
	"strconv"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/michezo/core"
	"github.com/trezcool/michezo/core/catalog"
	"github.com/trezcool/michezo/core/content"
	"github.com/trezcool/michezo/core/evaluation"
	"github.com/trezcool/michezo/core/session"
	inmemdb "github.com/trezcool/michezo/storage/database/inmem"
)

func setup(t *testing.T) (*session.Service, *evaluation.Service) {
	db, err := inmemdb.Open()
	require.NoError(t, err)

	conf := &core.Config{
		TestMode: true,
		Game:     core.GameConfig{JoinCodeLength: 6, DefaultQuestionCount: 10, MaxQuestionCount: 50, AllowLateJoin: true},
	}
	reg := catalog.Default()
	synth := content.NewSynthesizer(42)

	sessionSvc := session.NewService(inmemdb.NewSessionRepository(db), reg, synth, conf, nil)
	evalSvc := evaluation.NewService(inmemdb.NewEvaluationRepository(db), reg, synth, sessionSvc, conf, nil)
	return sessionSvc, evalSvc
}

func createEvaluation(t *testing.T, evalSvc *evaluation.Service) evaluation.Evaluation {
	t.Helper()
	res, err := evalSvc.Create("teacher-1", evaluation.NewEvaluation{
		ClassID:        "class-1b",
		Title:          "Granja: cuenta del 1 al 10",
		ObjectiveCodes: []string{"MA01OA04"},
		Difficulty:     content.DifficultyEasy,
		QuestionCount:  5,
		EngineID:       catalog.EngineCounting,
	})
	require.NoError(t, err)
	return res.Evaluation
}

func createSession(t *testing.T, svc *session.Service, evalSvc *evaluation.Service) session.GameSession {
	t.Helper()
	gs, err := svc.CreateFromEvaluation(createEvaluation(t, evalSvc))
	require.NoError(t, err)
	return gs
}

func TestService_CreateFromEvaluation(t *testing.T) {
	svc, evalSvc := setup(t)
	ev := createEvaluation(t, evalSvc)

	gs, err := svc.CreateFromEvaluation(ev)
	require.NoError(t, err)

	assert.Equal(t, session.StatusWaiting, gs.Status)
	assert.Equal(t, ev.ID, gs.EvaluationID)
	assert.Len(t, gs.JoinCode, 6)
	assert.True(t, gs.Skin.OK)
	assert.Equal(t, "granja", gs.SkinTheme)
	require.Len(t, gs.Questions, 5)

	// cached evaluation content is reused, not re-synthesized
	assert.Equal(t, ev.Questions[0].ID, gs.Questions[0].ID)
}

func TestService_CreateFromEvaluation_uniqueJoinCodes(t *testing.T) {
	svc, evalSvc := setup(t)
	ev := createEvaluation(t, evalSvc)

	codes := make(map[string]bool)
	for i := 0; i < 20; i++ {
		gs, err := svc.CreateFromEvaluation(ev)
		require.NoError(t, err)
		assert.Falsef(t, codes[gs.JoinCode], "join code %q reissued while session live", gs.JoinCode)
		codes[gs.JoinCode] = true
	}
}

func TestService_Join(t *testing.T) {
	svc, evalSvc := setup(t)
	gs := createSession(t, svc, evalSvc)

	p, err := svc.JoinByCode(gs.JoinCode, "Ana")
	require.NoError(t, err)
	assert.NotEmpty(t, p.ID)
	assert.Equal(t, gs.ID, p.SessionID)
	assert.Equal(t, "Ana", p.DisplayName)
	assert.Zero(t, p.Score)

	// legacy id aliases resolve to the same session
	p2, err := svc.Join("game_"+gs.ID, "Beto")
	require.NoError(t, err)
	assert.Equal(t, gs.ID, p2.SessionID)

	got, err := svc.GetByID(gs.ID)
	require.NoError(t, err)
	assert.Len(t, got.Participants, 2)
}

func TestService_Join_closed(t *testing.T) {
	svc, evalSvc := setup(t)
	gs := createSession(t, svc, evalSvc)

	_, err := svc.End(gs.ID)
	require.NoError(t, err)

	_, err = svc.Join(gs.ID, "Tarde")
	assert.Equal(t, session.ErrSessionClosed, err)

	// the ended session's code no longer resolves
	_, err = svc.JoinByCode(gs.JoinCode, "Tarde")
	assert.Equal(t, session.ErrNotFound, err)
}

func TestService_lifecycle(t *testing.T) {
	svc, evalSvc := setup(t)
	gs := createSession(t, svc, evalSvc)

	gs, err := svc.Start(gs.ID)
	require.NoError(t, err)
	assert.Equal(t, session.StatusActive, gs.Status)
	assert.False(t, gs.StartedAt.IsZero())

	gs, err = svc.Pause(gs.ID)
	require.NoError(t, err)
	assert.Equal(t, session.StatusPaused, gs.Status)

	gs, err = svc.Resume(gs.ID)
	require.NoError(t, err)
	assert.Equal(t, session.StatusActive, gs.Status)

	gs, err = svc.End(gs.ID)
	require.NoError(t, err)
	assert.Equal(t, session.StatusEnded, gs.Status)
	assert.False(t, gs.EndedAt.IsZero())

	// ended is terminal
	for name, op := range map[string]func(string) (session.GameSession, error){
		"start": svc.Start, "pause": svc.Pause, "resume": svc.Resume, "end": svc.End,
	} {
		_, err = op(gs.ID)
		assert.Equalf(t, session.ErrInvalidTransition, err, "%s after end", name)
	}
}

func TestService_lifecycle_invalidSteps(t *testing.T) {
	svc, evalSvc := setup(t)
	gs := createSession(t, svc, evalSvc)

	// cannot pause or resume a waiting session
	_, err := svc.Pause(gs.ID)
	assert.Equal(t, session.ErrInvalidTransition, err)
	_, err = svc.Resume(gs.ID)
	assert.Equal(t, session.ErrInvalidTransition, err)

	// ending without ever starting is a cancel, and freezes the session
	gs2, err := svc.End(gs.ID)
	require.NoError(t, err)
	assert.Equal(t, session.StatusEnded, gs2.Status)
	assert.True(t, gs2.StartedAt.IsZero())
}

func TestService_SubmitAnswer(t *testing.T) {
	svc, evalSvc := setup(t)
	gs := createSession(t, svc, evalSvc)
	p, err := svc.Join(gs.ID, "Ana")
	require.NoError(t, err)

	q := gs.Questions[0]

	// waiting session rejects submissions
	_, err = svc.SubmitAnswer(gs.ID, p.ID, q.ID, q.CorrectAnswer)
	assert.Equal(t, session.ErrSessionNotActive, err)

	_, err = svc.Start(gs.ID)
	require.NoError(t, err)

	res, err := svc.SubmitAnswer(gs.ID, p.ID, q.ID, q.CorrectAnswer)
	require.NoError(t, err)
	assert.True(t, res.Correct)
	assert.Equal(t, q.Points, res.RunningScore)

	// resubmission of the same question is rejected, score unchanged
	_, err = svc.SubmitAnswer(gs.ID, p.ID, q.ID, q.CorrectAnswer)
	assert.Equal(t, session.ErrDuplicateAnswer, err)

	// a wrong answer records but scores nothing
	q2 := gs.Questions[1]
	wrong := strconv.Itoa(mustAtoi(t, q2.CorrectAnswer) + 1)
	res, err = svc.SubmitAnswer(gs.ID, p.ID, q2.ID, wrong)
	require.NoError(t, err)
	assert.False(t, res.Correct)
	assert.Equal(t, q.Points, res.RunningScore)

	_, err = svc.SubmitAnswer(gs.ID, "nobody", q.ID, "1")
	assert.Equal(t, session.ErrParticipantNotFound, err)
	_, err = svc.SubmitAnswer(gs.ID, p.ID, "nothing", "1")
	assert.Equal(t, session.ErrQuestionNotFound, err)

	// pause blocks submissions
	_, err = svc.Pause(gs.ID)
	require.NoError(t, err)
	_, err = svc.SubmitAnswer(gs.ID, p.ID, gs.Questions[2].ID, "1")
	assert.Equal(t, session.ErrSessionNotActive, err)

	// end freezes scores for good
	_, err = svc.Resume(gs.ID)
	require.NoError(t, err)
	_, err = svc.End(gs.ID)
	require.NoError(t, err)
	_, err = svc.SubmitAnswer(gs.ID, p.ID, gs.Questions[2].ID, "1")
	assert.Equal(t, session.ErrSessionNotActive, err)

	got, err := svc.GetByID(gs.ID)
	require.NoError(t, err)
	require.Len(t, got.Participants, 1)
	assert.Equal(t, q.Points, got.Participants[0].Score)
	assert.Len(t, got.Participants[0].Answers, 2)
}

// concurrent submissions from many participants must all be recorded; no
// lost updates, no double-counted duplicates.
func TestService_SubmitAnswer_concurrent(t *testing.T) {
	svc, evalSvc := setup(t)
	gs := createSession(t, svc, evalSvc)

	const participants = 8
	ps := make([]session.Participant, participants)
	for i := range ps {
		p, err := svc.Join(gs.ID, fmt.Sprintf("Niño %d", i))
		require.NoError(t, err)
		ps[i] = p
	}
	_, err := svc.Start(gs.ID)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for _, p := range ps {
		for _, q := range gs.Questions {
			wg.Add(2)
			// duplicate submissions race on purpose; exactly one must win
			for i := 0; i < 2; i++ {
				go func(pID, qID, ans string) {
					defer wg.Done()
					_, _ = svc.SubmitAnswer(gs.ID, pID, qID, ans)
				}(p.ID, q.ID, q.CorrectAnswer)
			}
		}
	}
	wg.Wait()

	got, err := svc.GetByID(gs.ID)
	require.NoError(t, err)
	require.Len(t, got.Participants, participants)

	wantScore := len(gs.Questions) * gs.Questions[0].Points
	for _, p := range got.Participants {
		assert.Lenf(t, p.Answers, len(gs.Questions), "participant %s", p.DisplayName)
		assert.Equalf(t, wantScore, p.Score, "participant %s", p.DisplayName)
	}
}

func TestService_Leaderboard(t *testing.T) {
	svc, evalSvc := setup(t)
	gs := createSession(t, svc, evalSvc)

	ana, err := svc.Join(gs.ID, "Ana")
	require.NoError(t, err)
	beto, err := svc.Join(gs.ID, "Beto")
	require.NoError(t, err)
	cami, err := svc.Join(gs.ID, "Cami")
	require.NoError(t, err)

	_, err = svc.Start(gs.ID)
	require.NoError(t, err)

	// Beto 2 correct, Ana 1 correct; Cami ties Ana but joined later
	for _, sub := range []struct {
		p session.Participant
		q int
	}{
		{beto, 0}, {beto, 1}, {ana, 0}, {cami, 1},
	} {
		q := gs.Questions[sub.q]
		_, err = svc.SubmitAnswer(gs.ID, sub.p.ID, q.ID, q.CorrectAnswer)
		require.NoError(t, err)
	}

	ranks, err := svc.Leaderboard(gs.ID)
	require.NoError(t, err)
	require.Len(t, ranks, 3)

	assert.Equal(t, []string{"Beto", "Ana", "Cami"}, []string{ranks[0].DisplayName, ranks[1].DisplayName, ranks[2].DisplayName})
	for i, r := range ranks {
		assert.Equal(t, i+1, r.Position)
	}
}

func TestService_Resolve(t *testing.T) {
	svc, evalSvc := setup(t)
	gs := createSession(t, svc, evalSvc)
	_, err := svc.Join(gs.ID, "Ana")
	require.NoError(t, err)

	host, err := svc.Resolve(gs.ID, session.RoleHost)
	require.NoError(t, err)
	assert.Equal(t, gs.JoinCode, host.JoinCode)
	assert.Len(t, host.Questions, 5)
	assert.Len(t, host.Participants, 1)
	require.NotNil(t, host.SkinOutcome)
	assert.True(t, host.SkinOutcome.OK)

	// participants get sanitized questions and no join code
	part, err := svc.Resolve("game_"+gs.ID, session.RoleParticipant)
	require.NoError(t, err)
	assert.Empty(t, part.JoinCode)
	assert.Empty(t, part.Questions)
	require.Len(t, part.PlayQuestions, 5)
	assert.Equal(t, 1, part.ParticipantCount)
	for _, pq := range part.PlayQuestions {
		assert.Len(t, pq.Options, 4)
		assert.NotEmpty(t, pq.Stem)
	}
	assert.Equal(t, "granja", part.Skin.Theme)
	assert.NotEmpty(t, part.Skin.Icons)

	_, err = svc.Resolve("game_nope", session.RoleHost)
	assert.Equal(t, session.ErrNotFound, err)
}

// A participant projection must never reveal the answer key: no counting
// target, no result term in an operation visual, no serialized answer fields.
func TestService_Resolve_participantViewHidesAnswers(t *testing.T) {
	svc, evalSvc := setup(t)

	counting := createEvaluation(t, evalSvc)
	opsRes, err := evalSvc.Create("teacher-1", evaluation.NewEvaluation{
		ClassID:        "class-1b",
		Title:          "Espacio: sumas del 2 al 20",
		ObjectiveCodes: []string{"MA01OA09"},
		Difficulty:     content.DifficultyHard,
		QuestionCount:  5,
		EngineID:       catalog.EngineOperations,
	})
	require.NoError(t, err)

	for _, ev := range []evaluation.Evaluation{counting, opsRes.Evaluation} {
		gs, err := svc.CreateFromEvaluation(ev)
		require.NoError(t, err)

		part, err := svc.Resolve(gs.ID, session.RoleParticipant)
		require.NoError(t, err)
		require.Len(t, part.PlayQuestions, len(gs.Questions))

		for i, pq := range part.PlayQuestions {
			answer := gs.Questions[i].CorrectAnswer
			switch pq.VisualAid.Type {
			case content.VisualEmojiGroup:
				// icons only, capped; the group never prints the count
				assert.LessOrEqualf(t, len(pq.VisualAid.Items), 10, "q%d", i)
				for _, item := range pq.VisualAid.Items {
					assert.NotRegexpf(t, `[0-9]`, item, "q%d", i)
				}
			case content.VisualNumberLine:
				for _, item := range pq.VisualAid.Items {
					assert.NotEqualf(t, answer, item, "q%d visual states the answer", i)
					assert.NotContainsf(t, item, "=", "q%d visual spells the equation", i)
				}
			}
			if pq.Counting != nil {
				assert.NotEmpty(t, pq.Counting.Noun)
				assert.NotEmpty(t, pq.Counting.Icon)
			}
		}

		raw, err := json.Marshal(part)
		require.NoError(t, err)
		for _, key := range []string{"correct_answer", "counting_target", "explanation"} {
			assert.NotContainsf(t, string(raw), `"`+key+`"`, "engine %s", ev.EngineID)
		}
	}
}

func TestService_EvaluationInUse(t *testing.T) {
	svc, evalSvc := setup(t)
	ev := createEvaluation(t, evalSvc)
	gs, err := svc.CreateFromEvaluation(ev)
	require.NoError(t, err)

	inUse, err := svc.EvaluationInUse(ev.ID)
	require.NoError(t, err)
	assert.False(t, inUse)

	// regeneration still allowed before anyone joins
	_, err = evalSvc.Regenerate(ev.ID)
	require.NoError(t, err)

	_, err = svc.Join(gs.ID, "Ana")
	require.NoError(t, err)

	inUse, err = svc.EvaluationInUse(ev.ID)
	require.NoError(t, err)
	assert.True(t, inUse)

	_, err = evalSvc.Regenerate(ev.ID)
	assert.Equal(t, evaluation.ErrInUse, err)
}

func TestCanonicalID(t *testing.T) {
	assert.Equal(t, "abc-123", session.CanonicalID("abc-123"))
	assert.Equal(t, "abc-123", session.CanonicalID("game_abc-123"))
	assert.Equal(t, "abc-123", session.CanonicalID("  game_abc-123 "))
}

func mustAtoi(t *testing.T, s string) int {
	t.Helper()
	n, err := strconv.Atoi(s)
	require.NoError(t, err)
	return n
}
