package echoapi

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/24vibes/vibes/core/upload"
)

type uploadApi struct {
	svc *upload.Service
}

func registerUploadAPI(g *echo.Group, s *Server, authed []echo.MiddlewareFunc) {
	api := uploadApi{svc: s.deps.UploadSvc}

	maxSize := s.deps.Conf.Storage.MaxUploadSize
	if maxSize <= 0 {
		maxSize = upload.DefaultMaxBytes
	}
	// base64 inflates the payload by a third, keep some room for the JSON envelope
	bodyLimit := middleware.BodyLimit(fmt.Sprintf("%dK", maxSize*4/3/1024+64))

	ug := g.Group("/uploads", authed...)
	ug.POST("/images", api.uploadImage, bodyLimit)
}

func (api *uploadApi) uploadImage(ctx echo.Context) error {
	var data upload.ImageUpload
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ImageUpload")
	}

	res, err := api.svc.Upload(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "uploading image")
	}
	return ctx.JSON(http.StatusOK, res)
}
