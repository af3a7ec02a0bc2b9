package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/24vibes/vibes/core/messenger"
)

var errMessageNotSent = echo.NewHTTPError(http.StatusInternalServerError, "Failed to send message")

type slackApi struct {
	svc *messenger.Service
}

func registerSlackAPI(g *echo.Group, s *Server, authed []echo.MiddlewareFunc) {
	api := slackApi{svc: s.deps.MessengerSvc}

	sg := g.Group("/slack", authed...)
	sg.POST("/messages", api.broadcast, s.adminMiddleware)
	sg.POST("/notifications", api.notify)
}

func (api *slackApi) broadcast(ctx echo.Context) error {
	var data messenger.Broadcast
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to Broadcast")
	}

	sent, err := api.svc.Broadcast(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "broadcasting message")
	}
	if !sent {
		return errMessageNotSent
	}
	return ctx.JSON(http.StatusOK, MessageResponse{Message: "Message sent successfully"})
}

func (api *slackApi) notify(ctx echo.Context) error {
	var data messenger.VibeNotification
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to VibeNotification")
	}

	if err := api.svc.NotifyVibe(ctx.Request().Context(), data); err != nil {
		return errors.Wrap(err, "notifying vibe recipient")
	}
	return ctx.JSON(http.StatusOK, MessageResponse{Message: "Notification sent successfully"})
}

type MessageResponse struct {
	Message string `json:"message"`
}
