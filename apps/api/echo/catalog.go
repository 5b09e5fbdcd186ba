package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/michezo/core/catalog"
)

type catalogApi struct {
	registry *catalog.Registry
}

func registerCatalogAPI(g *echo.Group, reg *catalog.Registry) {
	api := catalogApi{registry: reg}

	// catalog endpoints are read-only and public
	g.GET("/engines", api.queryEngines)
	g.GET("/skins", api.querySkins)
}

// Handlers

func (api *catalogApi) queryEngines(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, api.registry.Engines())
}

func (api *catalogApi) querySkins(ctx echo.Context) error {
	if engineID := ctx.QueryParam("engine"); engineID != "" {
		if _, err := api.registry.Engine(engineID); err != nil {
			return errors.Wrapf(err, "engine %q", engineID)
		}
		return ctx.JSON(http.StatusOK, api.registry.SkinsFor(engineID))
	}
	return ctx.JSON(http.StatusOK, api.registry.Skins())
}
