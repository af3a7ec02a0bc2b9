package echoapi

import (
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
)

// userMiddleware loads the signed in user into the context. Deactivated accounts are turned away.
func (s *Server) userMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		usr, err := getContextUser(ctx, s.deps.UserSvc)
		if err != nil {
			return errors.Wrap(err, "getting context user")
		}
		if !usr.IsActive {
			return errAccountDeactivated
		}
		return next(ctx)
	}
}

// adminMiddleware checks the stored admin flag, so revoked rights apply before the token expires.
func (s *Server) adminMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		usr, err := getContextUser(ctx, s.deps.UserSvc)
		if err != nil {
			return errors.Wrap(err, "getting context user")
		}
		if usr.IsAdmin {
			return next(ctx)
		}
		return errHttpForbidden
	}
}
