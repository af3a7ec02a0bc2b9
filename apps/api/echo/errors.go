package echoapi

import (
	"net/http"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/24vibes/vibes/core"
	"github.com/24vibes/vibes/core/colleague"
	"github.com/24vibes/vibes/core/leaderboard"
	"github.com/24vibes/vibes/core/messenger"
	"github.com/24vibes/vibes/core/user"
	"github.com/24vibes/vibes/core/vibe"
)

var (
	errUnauthorized         = echo.NewHTTPError(http.StatusUnauthorized, "user not authenticated")
	errAuthenticationFailed = echo.NewHTTPError(http.StatusBadRequest, "authentication failed")
	errEmailNotAllowed      = echo.NewHTTPError(http.StatusForbidden, "email domain not allowed")
	errAccountDeactivated   = echo.NewHTTPError(http.StatusForbidden, "account deactivated")
	errRefreshExpired       = echo.NewHTTPError(http.StatusForbidden, "refresh has expired")
	errHttpForbidden        = echo.NewHTTPError(http.StatusForbidden, "permission denied")
	errHttpNotFound         = echo.NewHTTPError(http.StatusNotFound, "not found")
	errChatDisabled         = echo.NewHTTPError(http.StatusInternalServerError, "Slack token is not configured")

	// domainErrors maps the domain sentinel errors to their HTTP counterpart.
	domainErrors = []struct {
		err  error
		herr *echo.HTTPError
	}{
		{user.ErrNotFound, echo.NewHTTPError(http.StatusNotFound, user.ErrNotFound.Error())},
		{colleague.ErrNotFound, echo.NewHTTPError(http.StatusNotFound, colleague.ErrNotFound.Error())},
		{vibe.ErrNotFound, echo.NewHTTPError(http.StatusNotFound, "Vibe not found")},
		{vibe.ErrTemplateNotFound, echo.NewHTTPError(http.StatusNotFound, vibe.ErrTemplateNotFound.Error())},
		{leaderboard.ErrNotRanked, echo.NewHTTPError(http.StatusNotFound, leaderboard.ErrNotRanked.Error())},
		{core.ErrChatUserNotFound, echo.NewHTTPError(http.StatusNotFound, "Slack user not found")},
		{core.ErrForbidden, errHttpForbidden},
		{messenger.ErrChatDisabled, errChatDisabled},
	}
)

// newAppHTTPErrorHandler returns a custom echo.HTTPErrorHandler that knows how to handle our errors.
// signalShutdown is called in order to gracefully shutdown the Server whenever a core.shutdown error is caught.
func newAppHTTPErrorHandler(logger core.Logger, translator ut.Translator, signalShutdown func()) echo.HTTPErrorHandler {
	return func(err error, ctx echo.Context) {
		var code int
		var message interface{}

		cause := errors.Cause(err)
		if herr := domainHTTPError(err); herr != nil {
			cause = herr
		}

		switch origErr := cause.(type) {
		case *echo.HTTPError:
			if origErr == middleware.ErrJWTMissing {
				code = http.StatusUnauthorized
				message = origErr.Message
				break
			}
			if origErr.Internal != nil {
				if herr, ok := origErr.Internal.(*echo.HTTPError); ok {
					origErr = herr
				}
			}
			code = origErr.Code
			message = origErr.Message
		case validator.ValidationErrors:
			code = http.StatusBadRequest
			message = core.TranslateValidationErrors(origErr, translator)
		case *core.ValidationError:
			if origErr.Fields != nil {
				fldErrs := make(map[string]string, len(origErr.Fields))
				for _, fErr := range origErr.Fields {
					fldErrs[fErr.Field] = fErr.Error
				}
				message = fldErrs
			} else {
				message = origErr.Error()
			}
			code = http.StatusBadRequest
		default: // any other error is a server error
			code = http.StatusInternalServerError
			msg := http.StatusText(http.StatusInternalServerError)
			message = msg

			var usr user.User
			if claims, cErr := getContextClaims(ctx); cErr == nil {
				usr.ID = claims.Subject
				usr.Email = claims.Email
			}
			logger.Error(msg, errors.Wrap(err, msg), usr)

			// shutting down...
			if core.IsShutdown(err) {
				signalShutdown()
			}
		}

		if ctx.Echo().Debug && code == http.StatusInternalServerError {
			message = err.Error()
		}
		if m, ok := message.(string); ok {
			message = echo.Map{"error": m}
		}

		// Send response
		if !ctx.Response().Committed {
			if ctx.Request().Method == http.MethodHead { // Issue #608
				err = ctx.NoContent(code)
			} else {
				err = ctx.JSON(code, message)
			}
			if err != nil {
				ctx.Echo().Logger.Error(err)
			}
		}
	}
}

// domainHTTPError returns the HTTP error registered for the domain sentinel err wraps, or nil.
func domainHTTPError(err error) *echo.HTTPError {
	for _, de := range domainErrors {
		if errors.Is(err, de.err) {
			return de.herr
		}
	}
	return nil
}
