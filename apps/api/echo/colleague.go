package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/24vibes/vibes/core/colleague"
)

type colleagueApi struct {
	svc *colleague.Service
}

func registerColleagueAPI(g *echo.Group, s *Server, authed []echo.MiddlewareFunc) {
	api := colleagueApi{svc: s.deps.ColleagueSvc}

	cg := g.Group("/colleagues", authed...)
	cg.GET("", api.query)
	cg.GET("/lookup", api.lookup)
	cg.POST("/reseed", api.reseed, s.adminMiddleware)
}

func (api *colleagueApi) query(ctx echo.Context) error {
	colleagues, err := api.svc.List(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "listing colleagues")
	}
	if colleagues == nil {
		colleagues = []colleague.Colleague{}
	}
	return ctx.JSON(http.StatusOK, colleagues)
}

func (api *colleagueApi) lookup(ctx echo.Context) error {
	c, err := api.svc.GetByEmail(ctx.Request().Context(), ctx.QueryParam("email"))
	if err != nil {
		return errors.Wrap(err, "finding colleague by email")
	}
	return ctx.JSON(http.StatusOK, c)
}

func (api *colleagueApi) reseed(ctx echo.Context) error {
	count, err := api.svc.Reseed(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "reseeding colleagues")
	}
	return ctx.JSON(http.StatusOK, ReseedResponse{Count: count})
}

type ReseedResponse struct {
	Count int `json:"count"`
}
