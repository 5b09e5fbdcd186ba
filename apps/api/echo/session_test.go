package echoapi

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/michezo/core/session"
)

func Test_sessionApi_authRequired(t *testing.T) {
	env := setup(t)
	participantToken := env.participantToken(t, session.Participant{ID: "p1", SessionID: "s1", DisplayName: "Ana"})

	tests := []httpTest{
		{
			name:     "create: no token fails",
			method:   http.MethodPost,
			path:     "/v1/games",
			body:     marchallObj(t, map[string]string{"evaluation_id": "abc"}),
			wantCode: http.StatusUnauthorized,
			wantData: marchallObj(t, errMissingToken),
		},
		{
			name:     "create: participant token fails",
			method:   http.MethodPost,
			path:     "/v1/games",
			body:     marchallObj(t, map[string]string{"evaluation_id": "abc"}),
			token:    participantToken,
			wantCode: http.StatusForbidden,
			wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		},
		{
			name:     "query: participant token fails",
			method:   http.MethodGet,
			path:     "/v1/games",
			token:    participantToken,
			wantCode: http.StatusForbidden,
			wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		},
		{
			name:     "start: participant token fails",
			method:   http.MethodPost,
			path:     "/v1/games/s1/start",
			token:    participantToken,
			wantCode: http.StatusForbidden,
			wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		},
		{
			name:     "results: participant token fails",
			method:   http.MethodGet,
			path:     "/v1/games/s1/results",
			token:    participantToken,
			wantCode: http.StatusForbidden,
			wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			env.server.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_sessionApi_create(t *testing.T) {
	env := setup(t)
	token := env.hostToken(t)
	ev := env.createEvaluation(t)

	req, rec := newAuthRequest(http.MethodPost, "/v1/games", token,
		marchallObj(t, map[string]string{"evaluation_id": ev.ID}))
	env.server.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var gs session.GameSession
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &gs))
	assert.NotEmpty(t, gs.ID)
	assert.Equal(t, ev.ID, gs.EvaluationID)
	assert.Equal(t, session.StatusWaiting, gs.Status)
	assert.Len(t, gs.JoinCode, 6)

	t.Run("unknown evaluation fails", func(t *testing.T) {
		tt := httpTest{
			wantCode: http.StatusNotFound,
			wantData: marchallObj(t, httpErr{Error: "evaluation not found"}),
		}
		req, rec := newAuthRequest(http.MethodPost, "/v1/games", token,
			marchallObj(t, map[string]string{"evaluation_id": "nope"}))
		env.server.ServeHTTP(rec, req)
		checkCodeAndData(t, tt, rec)
	})

	t.Run("missing evaluation_id fails", func(t *testing.T) {
		tt := httpTest{
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"evaluation_id": "this field is required"}),
		}
		req, rec := newAuthRequest(http.MethodPost, "/v1/games", token, marchallObj(t, map[string]string{}))
		env.server.ServeHTTP(rec, req)
		checkCodeAndData(t, tt, rec)
	})
}

func Test_sessionApi_join(t *testing.T) {
	env := setup(t)
	gs := env.createSession(t)

	// joining needs no token; a scoped participant token is minted
	req, rec := newRequest(http.MethodPost, "/v1/games/join",
		marchallObj(t, map[string]string{"join_code": gs.JoinCode, "display_name": "Ana"}))
	env.server.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp joinResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, gs.ID, resp.Participant.SessionID)
	assert.Equal(t, "Ana", resp.Participant.DisplayName)
	assert.NotEmpty(t, resp.Token)

	t.Run("by session id", func(t *testing.T) {
		req, rec := newRequest(http.MethodPost, "/v1/games/join",
			marchallObj(t, map[string]string{"session_id": "game_" + gs.ID, "display_name": "Beto"}))
		env.server.ServeHTTP(rec, req)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	})

	t.Run("unknown code fails", func(t *testing.T) {
		tt := httpTest{
			wantCode: http.StatusNotFound,
			wantData: marchallObj(t, httpErr{Error: "game session not found"}),
		}
		req, rec := newRequest(http.MethodPost, "/v1/games/join",
			marchallObj(t, map[string]string{"join_code": "ZZZZZZ", "display_name": "Cami"}))
		env.server.ServeHTTP(rec, req)
		checkCodeAndData(t, tt, rec)
	})

	t.Run("missing fields fail", func(t *testing.T) {
		tt := httpTest{
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{
				"join_code":    "this field is required",
				"display_name": "this field is required",
			}),
		}
		req, rec := newRequest(http.MethodPost, "/v1/games/join", marchallObj(t, map[string]string{}))
		env.server.ServeHTTP(rec, req)
		checkCodeAndData(t, tt, rec)
	})
}

func Test_sessionApi_retrieve(t *testing.T) {
	env := setup(t)
	gs := env.createSession(t)
	p, err := env.sessionSvc.Join(gs.ID, "Ana")
	require.NoError(t, err)

	t.Run("host sees the full session", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/games/game_"+gs.ID, env.hostToken(t))
		env.server.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var view map[string]interface{}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))
		assert.Equal(t, gs.JoinCode, view["join_code"])
		assert.Contains(t, view, "questions")
		assert.NotContains(t, view, "play_questions")
	})

	t.Run("participant sees a sanitized view", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/games/"+gs.ID, env.participantToken(t, p))
		env.server.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var view map[string]interface{}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))
		assert.NotContains(t, view, "join_code")
		assert.NotContains(t, view, "questions")
		require.Contains(t, view, "play_questions")
		first := view["play_questions"].([]interface{})[0].(map[string]interface{})
		assert.NotContains(t, first, "correct_answer")
		for _, key := range []string{"correct_answer", "counting_target", "explanation"} {
			assert.NotContains(t, rec.Body.String(), `"`+key+`"`)
		}
	})

	t.Run("unknown session fails", func(t *testing.T) {
		tt := httpTest{
			wantCode: http.StatusNotFound,
			wantData: marchallObj(t, httpErr{Error: "game session not found"}),
		}
		req, rec := newAuthRequest(http.MethodGet, "/v1/games/nope", env.hostToken(t))
		env.server.ServeHTTP(rec, req)
		checkCodeAndData(t, tt, rec)
	})
}

func Test_sessionApi_answers(t *testing.T) {
	env := setup(t)
	token := env.hostToken(t)
	gs := env.createSession(t)
	p, err := env.sessionSvc.Join(gs.ID, "Ana")
	require.NoError(t, err)
	pToken := env.participantToken(t, p)
	q := gs.Questions[0]

	answerBody := marchallObj(t, map[string]string{"question_id": q.ID, "value": q.CorrectAnswer})
	answersPath := "/v1/games/" + gs.ID + "/answers"

	t.Run("waiting session rejects answers", func(t *testing.T) {
		tt := httpTest{
			wantCode: http.StatusConflict,
			wantData: marchallObj(t, httpErr{Error: "game session is not active"}),
		}
		req, rec := newAuthRequest(http.MethodPost, answersPath, pToken, answerBody)
		env.server.ServeHTTP(rec, req)
		checkCodeAndData(t, tt, rec)
	})

	req, rec := newAuthRequest(http.MethodPost, "/v1/games/"+gs.ID+"/start", token)
	env.server.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	t.Run("scored answer", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, answersPath, pToken, answerBody)
		env.server.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var res session.AnswerResult
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
		assert.True(t, res.Correct)
		assert.Equal(t, q.Points, res.RunningScore)
	})

	t.Run("duplicate answer fails", func(t *testing.T) {
		tt := httpTest{
			wantCode: http.StatusConflict,
			wantData: marchallObj(t, httpErr{Error: "question already answered"}),
		}
		req, rec := newAuthRequest(http.MethodPost, answersPath, pToken, answerBody)
		env.server.ServeHTTP(rec, req)
		checkCodeAndData(t, tt, rec)
	})

	t.Run("host token fails", func(t *testing.T) {
		tt := httpTest{
			wantCode: http.StatusForbidden,
			wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		}
		req, rec := newAuthRequest(http.MethodPost, answersPath, token, answerBody)
		env.server.ServeHTTP(rec, req)
		checkCodeAndData(t, tt, rec)
	})

	t.Run("token scoped to another session fails", func(t *testing.T) {
		other := env.createSession(t)
		op, err := env.sessionSvc.Join(other.ID, "Beto")
		require.NoError(t, err)

		tt := httpTest{
			wantCode: http.StatusForbidden,
			wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		}
		req, rec := newAuthRequest(http.MethodPost, answersPath, env.participantToken(t, op), answerBody)
		env.server.ServeHTTP(rec, req)
		checkCodeAndData(t, tt, rec)
	})

	t.Run("unknown question fails", func(t *testing.T) {
		tt := httpTest{
			wantCode: http.StatusNotFound,
			wantData: marchallObj(t, httpErr{Error: "question not found"}),
		}
		body := marchallObj(t, map[string]string{"question_id": "nope", "value": "1"})
		req, rec := newAuthRequest(http.MethodPost, answersPath, pToken, body)
		env.server.ServeHTTP(rec, req)
		checkCodeAndData(t, tt, rec)
	})
}

func Test_sessionApi_lifecycle(t *testing.T) {
	env := setup(t)
	token := env.hostToken(t)
	gs := env.createSession(t)
	base := "/v1/games/" + gs.ID

	do := func(t *testing.T, path string, wantStatus session.Status) {
		t.Helper()
		req, rec := newAuthRequest(http.MethodPost, path, token)
		env.server.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var got session.GameSession
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
		assert.Equal(t, wantStatus, got.Status)
	}

	do(t, base+"/start", session.StatusActive)
	do(t, base+"/pause", session.StatusPaused)
	do(t, base+"/resume", session.StatusActive)
	do(t, base+"/end", session.StatusEnded)

	t.Run("ended session rejects transitions", func(t *testing.T) {
		tt := httpTest{
			wantCode: http.StatusConflict,
			wantData: marchallObj(t, httpErr{Error: "operation invalid for current session status"}),
		}
		req, rec := newAuthRequest(http.MethodPost, base+"/start", token)
		env.server.ServeHTTP(rec, req)
		checkCodeAndData(t, tt, rec)
	})
}

func Test_sessionApi_results(t *testing.T) {
	env := setup(t)
	token := env.hostToken(t)
	gs := env.createSession(t)

	ana, err := env.sessionSvc.Join(gs.ID, "Ana")
	require.NoError(t, err)
	_, err = env.sessionSvc.Join(gs.ID, "Beto")
	require.NoError(t, err)
	_, err = env.sessionSvc.Start(gs.ID)
	require.NoError(t, err)
	q := gs.Questions[0]
	_, err = env.sessionSvc.SubmitAnswer(gs.ID, ana.ID, q.ID, q.CorrectAnswer)
	require.NoError(t, err)
	_, err = env.sessionSvc.End(gs.ID)
	require.NoError(t, err)

	req, rec := newAuthRequest(http.MethodGet, "/v1/games/"+gs.ID+"/results", token)
	env.server.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var ranks []session.Rank
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &ranks))
	require.Len(t, ranks, 2)
	assert.Equal(t, 1, ranks[0].Position)
	assert.Equal(t, "Ana", ranks[0].DisplayName)
	assert.Equal(t, q.Points, ranks[0].Score)
	assert.Equal(t, "Beto", ranks[1].DisplayName)
	assert.Zero(t, ranks[1].Score)
}
