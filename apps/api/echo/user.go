package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/24vibes/vibes/core"
	"github.com/24vibes/vibes/core/colleague"
	"github.com/24vibes/vibes/core/user"
)

var errCannotDeactivateSelf = "you cannot deactivate your own account"

type userApi struct {
	conf     *core.Config
	deps     ServerDeps
	svc      *user.Service
	validate *validator.Validate
}

func registerUserAPI(g *echo.Group, s *Server, authed []echo.MiddlewareFunc) {
	api := userApi{
		conf:     s.deps.Conf,
		deps:     s.deps,
		svc:      s.deps.UserSvc,
		validate: s.deps.Validate,
	}

	// un-authed endpoints
	g.POST("/auth/google", api.login)

	// authed endpoints
	ag := g.Group("", authed...)
	ag.POST("/auth/token-refresh", api.refreshToken)
	ag.GET("/me", api.me)
	ag.PUT("/me/profile", api.updateProfile)
	ag.POST("/me/onboarding", api.onboard)

	// admin endpoints
	ug := ag.Group("/users", s.adminMiddleware)
	ug.GET("", api.query)
	ug.PUT("/:id/admin", api.setAdmin)
	ug.PUT("/:id/active", api.setActive)
}

// Handlers

func (api *userApi) login(ctx echo.Context) error {
	var data LoginRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to LoginRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	acc, err := authenticate(ctx.Request().Context(), data.IDToken, api.deps)
	if err != nil {
		return errors.Wrap(err, "authenticating")
	}
	token, err := GenerateToken(api.conf, GetUserClaims(api.conf, acc.User))
	if err != nil {
		return errors.Wrap(err, "generating token")
	}

	return ctx.JSON(http.StatusOK, LoginResponse{Token: token, Account: newAccountResponse(acc)})
}

func (api *userApi) refreshToken(ctx echo.Context) error {
	token, err := refreshToken(ctx, api.conf, api.svc)
	if err != nil {
		return errors.Wrap(err, "refreshing token")
	}
	return ctx.JSON(http.StatusOK, TokenResponse{Token: token})
}

func (api *userApi) me(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.svc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	acc, err := api.svc.GetWithColleague(ctx.Request().Context(), usr.ID)
	if err != nil {
		return errors.Wrap(err, "loading account")
	}
	return ctx.JSON(http.StatusOK, newAccountResponse(acc))
}

func (api *userApi) updateProfile(ctx echo.Context) error {
	var data colleague.ProfileUpdate
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ProfileUpdate")
	}
	usr, err := getContextUser(ctx, api.svc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	acc, err := api.svc.UpdateProfile(ctx.Request().Context(), usr.ID, data)
	if err != nil {
		return errors.Wrap(err, "updating profile")
	}
	return ctx.JSON(http.StatusOK, newAccountResponse(acc))
}

func (api *userApi) onboard(ctx echo.Context) error {
	var data colleague.Onboarding
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to Onboarding")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}
	usr, err := getContextUser(ctx, api.svc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	acc, err := api.svc.UpdateProfile(ctx.Request().Context(), usr.ID, data.ProfileUpdate())
	if err != nil {
		return errors.Wrap(err, "completing onboarding")
	}
	return ctx.JSON(http.StatusOK, newAccountResponse(acc))
}

func (api *userApi) query(ctx echo.Context) error {
	accounts, err := api.svc.ListAccounts(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "listing accounts")
	}
	res := make([]AccountResponse, 0, len(accounts))
	for _, acc := range accounts {
		res = append(res, newAccountResponse(acc))
	}
	return ctx.JSON(http.StatusOK, res)
}

func (api *userApi) setAdmin(ctx echo.Context) error {
	var data SetAdminRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to SetAdminRequest")
	}
	if err := api.validate.Struct(&data); err != nil {
		return err
	}
	actor, err := getContextUser(ctx, api.svc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	usr, err := api.svc.SetAdmin(ctx.Request().Context(), actor.ID, ctx.Param("id"), *data.IsAdmin)
	if err != nil {
		return errors.Wrap(err, "setting admin flag")
	}
	return ctx.JSON(http.StatusOK, usr)
}

func (api *userApi) setActive(ctx echo.Context) error {
	var data SetActiveRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to SetActiveRequest")
	}
	if err := api.validate.Struct(&data); err != nil {
		return err
	}
	actor, err := getContextUser(ctx, api.svc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	if actor.ID == ctx.Param("id") && !*data.IsActive {
		return core.NewValidationError(nil, core.FieldError{Field: "is_active", Error: errCannotDeactivateSelf})
	}

	usr, err := api.svc.SetActive(ctx.Request().Context(), ctx.Param("id"), *data.IsActive)
	if err != nil {
		return errors.Wrap(err, "setting active flag")
	}
	return ctx.JSON(http.StatusOK, usr)
}

type (
	LoginRequest struct {
		IDToken string `json:"id_token" validate:"required"`
	}

	TokenResponse struct {
		Token string `json:"token"`
	}

	LoginResponse struct {
		Token   string          `json:"token"`
		Account AccountResponse `json:"account"`
	}

	AccountResponse struct {
		user.Account
		Name                string `json:"name"`
		OnboardingCompleted bool   `json:"onboarding_completed"`
	}

	SetAdminRequest struct {
		IsAdmin *bool `json:"is_admin" validate:"required"`
	}

	SetActiveRequest struct {
		IsActive *bool `json:"is_active" validate:"required"`
	}
)

func (lr *LoginRequest) Validate(validate *validator.Validate) error {
	lr.IDToken = core.CleanString(lr.IDToken)
	return validate.Struct(lr)
}

func newAccountResponse(acc user.Account) AccountResponse {
	return AccountResponse{
		Account:             acc,
		Name:                acc.Name(),
		OnboardingCompleted: acc.OnboardingCompleted(),
	}
}
