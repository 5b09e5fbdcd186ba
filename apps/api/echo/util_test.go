package echoapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"
	"time"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/michezo/core"
	"github.com/trezcool/michezo/core/catalog"
	"github.com/trezcool/michezo/core/content"
	"github.com/trezcool/michezo/core/evaluation"
	"github.com/trezcool/michezo/core/session"
	inmemdb "github.com/trezcool/michezo/storage/database/inmem"
)

var errMissingToken = httpErr{Error: "missing or malformed jwt"}

type httpErr struct {
	Error string `json:"error"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	token    string
	wantCode int
	wantData []byte
	extra    interface{}
}

type testEnv struct {
	conf       *core.Config
	server     *Server
	evalSvc    *evaluation.Service
	sessionSvc *session.Service
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...interface{}) {}
func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Warn(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}
func (nopLogger) Fatal(string, ...interface{}) {}

func setup(t *testing.T) *testEnv {
	db, err := inmemdb.Open()
	require.NoError(t, err)

	conf := &core.Config{
		AppName:   "michezo",
		TestMode:  true,
		SecretKey: "secret",
		Server:    core.ServerConfig{JWTExpirationDelta: 10 * time.Minute},
		Game:      core.GameConfig{JoinCodeLength: 6, DefaultQuestionCount: 10, MaxQuestionCount: 50, AllowLateJoin: true},
	}
	reg := catalog.Default()
	synth := content.NewSynthesizer(42)
	logger := nopLogger{}

	sessionSvc := session.NewService(inmemdb.NewSessionRepository(db), reg, synth, conf, logger)
	evalSvc := evaluation.NewService(inmemdb.NewEvaluationRepository(db), reg, synth, sessionSvc, conf, logger)

	validate := validator.New()
	translator := newTestTranslator()
	core.InitValidators(validate, translator)

	server := NewServer(ServerDeps{
		Conf:       conf,
		Logger:     logger,
		EvalSvc:    evalSvc,
		SessionSvc: sessionSvc,
		Registry:   reg,
		Validate:   validate,
		Translator: translator,
	})
	return &testEnv{conf: conf, server: server, evalSvc: evalSvc, sessionSvc: sessionSvc}
}

func newTestTranslator() ut.Translator {
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")
	return translator
}

func (env *testEnv) hostToken(t *testing.T) string {
	t.Helper()
	token, err := GenerateToken(env.conf, GetHostClaims(env.conf, "teacher-1"))
	require.NoError(t, err)
	return token
}

func (env *testEnv) participantToken(t *testing.T, p session.Participant) string {
	t.Helper()
	token, err := GenerateToken(env.conf, GetParticipantClaims(env.conf, p))
	require.NoError(t, err)
	return token
}

func newAuthRequest(method, path, token string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	return req, rec
}

func newRequest(method, path string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	return newAuthRequest(method, path, "", data...)
}

func marchallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marchallObj() failed: %v", err)
	}
	return data
}

func jsonBytesEqual(t *testing.T, b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	if reflect.DeepEqual(j1, j2) {
		return true, nil
	}
	if j1 == nil || j2 == nil {
		return false, nil
	}
	return assert.ElementsMatch(t, j1, j2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
	}
	ok, err := jsonBytesEqual(t, rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}

// newEvaluationBody is a well-formed authoring payload.
func newEvaluationBody(t *testing.T, mutate ...func(map[string]interface{})) []byte {
	data := map[string]interface{}{
		"class_id":       "class-1b",
		"title":          "Granja: cuenta del 1 al 10",
		"oa_codes":       []string{"MA01OA04"},
		"difficulty":     "easy",
		"question_count": 5,
		"engine_id":      "ENG01",
	}
	for _, m := range mutate {
		m(data)
	}
	return marchallObj(t, data)
}

func (env *testEnv) createEvaluation(t *testing.T) evaluation.Evaluation {
	t.Helper()
	res, err := env.evalSvc.Create("teacher-1", evaluation.NewEvaluation{
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

func (env *testEnv) createSession(t *testing.T) session.GameSession {
	t.Helper()
	gs, err := env.sessionSvc.CreateFromEvaluation(env.createEvaluation(t))
	require.NoError(t, err)
	return gs
}
