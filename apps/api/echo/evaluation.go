package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/michezo/core/catalog"
	"github.com/trezcool/michezo/core/content"
	"github.com/trezcool/michezo/core/evaluation"
)

type evaluationApi struct {
	svc      evaluation.ServiceInterface
	registry *catalog.Registry
	validate *validator.Validate
}

func registerEvaluationAPI(
	g *echo.Group,
	jwt echo.MiddlewareFunc,
	svc evaluation.ServiceInterface,
	reg *catalog.Registry,
	validate *validator.Validate,
) {
	api := evaluationApi{
		svc:      svc,
		registry: reg,
		validate: validate,
	}

	// authoring endpoints, teachers only
	eg := g.Group("/evaluations", jwt, hostMiddleware())
	eg.POST("/gamified", api.create)
	eg.GET("/:id", api.retrieve)
	eg.POST("/:id/regenerate", api.regenerate)
}

// createResponse mirrors the authoring contract: the evaluation record, the
// playable content and the synthesis metadata.
type createResponse struct {
	Evaluation  evaluation.Evaluation  `json:"evaluation"`
	GameContent gameContent            `json:"gameContent"`
	Metadata    evaluation.ContentMeta `json:"metadata"`
}

type gameContent struct {
	Questions []content.Question `json:"questions"`
}

func newCreateResponse(res evaluation.CreateResult) createResponse {
	return createResponse{
		Evaluation:  res.Evaluation,
		GameContent: gameContent{Questions: res.Questions},
		Metadata:    res.Meta,
	}
}

// Handlers

func (api *evaluationApi) create(ctx echo.Context) error {
	var data evaluation.NewEvaluation
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewEvaluation")
	}
	if err := data.Validate(api.validate, api.registry); err != nil {
		return err
	}

	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	res, err := api.svc.Create(claims.Subject, data)
	if err != nil {
		return errors.Wrap(err, "creating evaluation")
	}
	return ctx.JSON(http.StatusCreated, newCreateResponse(res))
}

func (api *evaluationApi) retrieve(ctx echo.Context) error {
	ev, err := api.svc.GetByID(ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting evaluation")
	}
	return ctx.JSON(http.StatusOK, newCreateResponse(evaluation.CreateResult{
		Evaluation: ev,
		Questions:  ev.Questions,
		Meta:       ev.Meta,
	}))
}

func (api *evaluationApi) regenerate(ctx echo.Context) error {
	res, err := api.svc.Regenerate(ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "regenerating evaluation content")
	}
	return ctx.JSON(http.StatusOK, newCreateResponse(res))
}
