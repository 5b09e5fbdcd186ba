package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/michezo/core"
	"github.com/trezcool/michezo/core/evaluation"
	"github.com/trezcool/michezo/core/session"
)

type sessionApi struct {
	conf     *core.Config
	svc      session.ServiceInterface
	evalSvc  evaluation.ServiceInterface
	validate *validator.Validate
}

func registerSessionAPI(
	g *echo.Group,
	jwt echo.MiddlewareFunc,
	conf *core.Config,
	svc session.ServiceInterface,
	evalSvc evaluation.ServiceInterface,
	validate *validator.Validate,
) {
	api := sessionApi{
		conf:     conf,
		svc:      svc,
		evalSvc:  evalSvc,
		validate: validate,
	}

	gg := g.Group("/games")

	// un-authed endpoint: participants hold no token before joining
	gg.POST("/join", api.join)

	// authed endpoints
	ag := gg.Group("", jwt)
	ag.POST("", api.create, hostMiddleware())
	ag.GET("", api.query, hostMiddleware())

	// detail endpoints; ids may carry the legacy "game_" prefix
	dg := ag.Group("/:id")
	dg.GET("", api.retrieve)
	dg.POST("/start", api.start, hostMiddleware())
	dg.POST("/pause", api.pause, hostMiddleware())
	dg.POST("/resume", api.resume, hostMiddleware())
	dg.POST("/end", api.end, hostMiddleware())
	dg.POST("/answers", api.submitAnswer)
	dg.GET("/results", api.results, hostMiddleware())
}

type (
	newSession struct {
		EvaluationID string `json:"evaluation_id" validate:"required"`
	}

	joinRequest struct {
		JoinCode    string `json:"join_code" validate:"required_without=SessionID"`
		SessionID   string `json:"session_id"`
		DisplayName string `json:"display_name" validate:"required"`
	}

	joinResponse struct {
		Participant session.Participant `json:"participant"`
		Token       string              `json:"token"`
	}

	newAnswer struct {
		QuestionID string `json:"question_id" validate:"required"`
		Value      string `json:"value" validate:"required"`
	}
)

// Handlers

func (api *sessionApi) create(ctx echo.Context) error {
	var data newSession
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to newSession")
	}
	if err := api.validate.Struct(&data); err != nil {
		return err
	}

	ev, err := api.evalSvc.GetByID(data.EvaluationID)
	if err != nil {
		return errors.Wrap(err, "getting evaluation")
	}
	gs, err := api.svc.CreateFromEvaluation(ev)
	if err != nil {
		return errors.Wrap(err, "creating game session")
	}
	return ctx.JSON(http.StatusCreated, gs)
}

func (api *sessionApi) query(ctx echo.Context) error {
	var ordering Ordering
	ordering.Bind(ctx)

	sessions, err := api.svc.QueryAll(ordering.Orderings...)
	if err != nil {
		return errors.Wrap(err, "querying game sessions")
	}
	return ctx.JSON(http.StatusOK, sessions)
}

func (api *sessionApi) join(ctx echo.Context) error {
	var data joinRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to joinRequest")
	}
	if err := api.validate.Struct(&data); err != nil {
		return err
	}

	var p session.Participant
	var err error
	if data.JoinCode != "" {
		p, err = api.svc.JoinByCode(data.JoinCode, data.DisplayName)
	} else {
		p, err = api.svc.Join(data.SessionID, data.DisplayName)
	}
	if err != nil {
		return errors.Wrap(err, "joining game session")
	}

	token, err := GenerateToken(api.conf, GetParticipantClaims(api.conf, p))
	if err != nil {
		return errors.Wrap(err, "generating participant token")
	}
	return ctx.JSON(http.StatusCreated, joinResponse{Participant: p, Token: token})
}

func (api *sessionApi) retrieve(ctx echo.Context) error {
	view, err := api.svc.Resolve(ctx.Param("id"), contextRole(ctx))
	if err != nil {
		return errors.Wrap(err, "resolving game session")
	}
	return ctx.JSON(http.StatusOK, view)
}

func (api *sessionApi) start(ctx echo.Context) error {
	return api.transition(ctx, api.svc.Start)
}

func (api *sessionApi) pause(ctx echo.Context) error {
	return api.transition(ctx, api.svc.Pause)
}

func (api *sessionApi) resume(ctx echo.Context) error {
	return api.transition(ctx, api.svc.Resume)
}

func (api *sessionApi) end(ctx echo.Context) error {
	return api.transition(ctx, api.svc.End)
}

func (api *sessionApi) transition(ctx echo.Context, op func(string) (session.GameSession, error)) error {
	gs, err := op(ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "transitioning game session")
	}
	return ctx.JSON(http.StatusOK, gs)
}

func (api *sessionApi) submitAnswer(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	// participant tokens are scoped to the session they joined
	if claims.IsHost() || claims.SessionID != session.CanonicalID(ctx.Param("id")) {
		return errHttpForbidden
	}

	var data newAnswer
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to newAnswer")
	}
	if err = api.validate.Struct(&data); err != nil {
		return err
	}

	res, err := api.svc.SubmitAnswer(ctx.Param("id"), claims.Subject, data.QuestionID, data.Value)
	if err != nil {
		return errors.Wrap(err, "submitting answer")
	}
	return ctx.JSON(http.StatusOK, res)
}

func (api *sessionApi) results(ctx echo.Context) error {
	ranks, err := api.svc.Leaderboard(ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "building leaderboard")
	}
	return ctx.JSON(http.StatusOK, ranks)
}
