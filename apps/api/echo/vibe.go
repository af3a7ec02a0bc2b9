package echoapi

import (
	"net/http"
	"net/url"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/24vibes/vibes/core/leaderboard"
	"github.com/24vibes/vibes/core/user"
	"github.com/24vibes/vibes/core/vibe"
)

type vibeApi struct {
	svc     *vibe.Service
	userSvc *user.Service
}

func registerVibeAPI(g *echo.Group, s *Server, authed []echo.MiddlewareFunc) {
	api := vibeApi{svc: s.deps.VibeSvc, userSvc: s.deps.UserSvc}

	vg := g.Group("/vibes", authed...)
	vg.POST("", api.create)
	vg.GET("", api.query)
	vg.GET("/received", api.received)
	vg.GET("/sent", api.sent)
	vg.GET("/:id", api.retrieve)
	vg.POST("/:id/reactions", api.react)
	vg.DELETE("/:id/reactions/:emoji", api.removeReaction)

	// reference data
	rg := g.Group("", authed...)
	rg.GET("/templates", api.templates)
	rg.GET("/categories", api.categories)
	rg.GET("/levels", api.levels)
}

func (api *vibeApi) create(ctx echo.Context) error {
	var data vibe.NewVibe
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewVibe")
	}
	usr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	v, err := api.svc.Create(ctx.Request().Context(), usr.Email, data)
	if err != nil {
		return errors.Wrap(err, "creating vibe")
	}
	return ctx.JSON(http.StatusCreated, v)
}

func (api *vibeApi) query(ctx echo.Context) error {
	filter, err := bindVibeFilter(ctx)
	if err != nil {
		return err
	}
	vibes, err := api.svc.Query(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "querying vibes")
	}
	return ctx.JSON(http.StatusOK, vibes)
}

func (api *vibeApi) received(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	vibes, err := api.svc.Received(ctx.Request().Context(), usr.Email)
	if err != nil {
		return errors.Wrap(err, "querying received vibes")
	}
	return ctx.JSON(http.StatusOK, vibes)
}

func (api *vibeApi) sent(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	vibes, err := api.svc.Sent(ctx.Request().Context(), usr.Email)
	if err != nil {
		return errors.Wrap(err, "querying sent vibes")
	}
	return ctx.JSON(http.StatusOK, vibes)
}

func (api *vibeApi) retrieve(ctx echo.Context) error {
	v, err := api.svc.Get(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding vibe")
	}
	return ctx.JSON(http.StatusOK, v)
}

func (api *vibeApi) react(ctx echo.Context) error {
	var data ReactionRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ReactionRequest")
	}
	usr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	v, err := api.svc.React(ctx.Request().Context(), ctx.Param("id"), vibe.Reactor{UserID: usr.ID, Email: usr.Email}, data.Emoji)
	if err != nil {
		return errors.Wrap(err, "reacting to vibe")
	}
	return ctx.JSON(http.StatusOK, v)
}

func (api *vibeApi) removeReaction(ctx echo.Context) error {
	emoji, err := url.PathUnescape(ctx.Param("emoji"))
	if err != nil {
		return errHttpNotFound
	}
	usr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	v, err := api.svc.RemoveReaction(ctx.Request().Context(), ctx.Param("id"), usr.ID, emoji)
	if err != nil {
		return errors.Wrap(err, "removing reaction")
	}
	return ctx.JSON(http.StatusOK, v)
}

func (api *vibeApi) templates(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, api.svc.Templates())
}

func (api *vibeApi) categories(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, vibe.Categories)
}

func (api *vibeApi) levels(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, leaderboard.Levels)
}

type ReactionRequest struct {
	Emoji string `json:"emoji"`
}
