package echoapi

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"

	"github.com/24vibes/vibes/core"
	"github.com/24vibes/vibes/core/leaderboard"
	"github.com/24vibes/vibes/core/messenger"
	"github.com/24vibes/vibes/core/vibe"
)

type sampleRequest struct {
	Message string `json:"message" validate:"notblank"`
	Emoji   string `json:"emoji" validate:"required"`
}

func TestAppHTTPErrorHandler(t *testing.T) {
	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	fieldErrs := validate.Struct(sampleRequest{Emoji: "x"})

	tests := []struct {
		name         string
		err          error
		wantCode     int
		wantBody     string
		wantShutdown bool
	}{
		{
			name:     "vibe not found",
			err:      errors.Wrap(vibe.ErrNotFound, "finding vibe"),
			wantCode: http.StatusNotFound,
			wantBody: `{"error": "Vibe not found"}`,
		},
		{
			name:     "not ranked",
			err:      errors.Wrap(leaderboard.ErrNotRanked, "finding entry"),
			wantCode: http.StatusNotFound,
			wantBody: `{"error": "no vibes on this leaderboard yet"}`,
		},
		{
			name:     "forbidden",
			err:      errors.Wrap(core.ErrForbidden, "reacting"),
			wantCode: http.StatusForbidden,
			wantBody: `{"error": "permission denied"}`,
		},
		{
			name:     "slack disabled",
			err:      messenger.ErrChatDisabled,
			wantCode: http.StatusInternalServerError,
			wantBody: `{"error": "Slack token is not configured"}`,
		},
		{
			name:     "struct validation errors",
			err:      errors.Wrap(fieldErrs, "validating request"),
			wantCode: http.StatusBadRequest,
			wantBody: `{"message": "this field is required"}`,
		},
		{
			name:     "validation error with fields",
			err:      core.NewValidationError(nil, core.FieldError{Field: "emoji", Error: "invalid"}),
			wantCode: http.StatusBadRequest,
			wantBody: `{"emoji": "invalid"}`,
		},
		{
			name:     "validation error without fields",
			err:      errors.Wrap(core.NewValidationError(errors.New("bad payload")), "binding"),
			wantCode: http.StatusBadRequest,
			wantBody: `{"error": "bad payload"}`,
		},
		{
			name:     "unexpected error",
			err:      errors.New("connection refused"),
			wantCode: http.StatusInternalServerError,
			wantBody: `{"error": "Internal Server Error"}`,
		},
		{
			name:         "shutdown error",
			err:          errors.Wrap(core.NewShutdownError("integrity issue"), "saving"),
			wantCode:     http.StatusInternalServerError,
			wantBody:     `{"error": "Internal Server Error"}`,
			wantShutdown: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var shutdown bool
			e := echo.New()
			handler := newAppHTTPErrorHandler(core.NopLogger{}, translator, func() { shutdown = true })

			rec := httptest.NewRecorder()
			ctx := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)
			handler(tt.err, ctx)

			assert.Equal(t, tt.wantCode, rec.Code)
			assert.JSONEq(t, tt.wantBody, rec.Body.String())
			assert.Equal(t, tt.wantShutdown, shutdown)
		})
	}
}
