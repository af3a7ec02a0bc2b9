package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/24vibes/vibes/core/leaderboard"
	"github.com/24vibes/vibes/core/user"
)

type leaderboardApi struct {
	svc     *leaderboard.Service
	userSvc *user.Service
}

func registerLeaderboardAPI(g *echo.Group, s *Server, authed []echo.MiddlewareFunc) {
	api := leaderboardApi{svc: s.deps.LeaderboardSvc, userSvc: s.deps.UserSvc}

	lg := g.Group("/leaderboard", authed...)
	lg.GET("", api.retrieve)
	lg.GET("/me", api.mine)
}

func (api *leaderboardApi) retrieve(ctx echo.Context) error {
	q, err := bindLeaderboardQuery(ctx)
	if err != nil {
		return err
	}
	board, err := api.svc.Get(ctx.Request().Context(), q)
	if err != nil {
		return errors.Wrap(err, "computing leaderboard")
	}
	return ctx.JSON(http.StatusOK, board)
}

func (api *leaderboardApi) mine(ctx echo.Context) error {
	q, err := bindLeaderboardQuery(ctx)
	if err != nil {
		return err
	}
	usr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	entry, err := api.svc.Mine(ctx.Request().Context(), q, usr.Email)
	if err != nil {
		return errors.Wrap(err, "finding leaderboard entry")
	}
	return ctx.JSON(http.StatusOK, entry)
}
