package echoapi

import (
	"context"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"
	"google.golang.org/api/idtoken"

	"github.com/24vibes/vibes/core"
	"github.com/24vibes/vibes/core/user"
)

const (
	contextTokenKey = "userToken"
	contextUserKey  = "user"
)

// Claims represents the authorization claims transmitted via a JWT.
type Claims struct {
	jwt.StandardClaims
	OrigIssuedAt int64  `json:"oriat,omitempty"`
	Email        string `json:"email,omitempty"`
	IsAdmin      bool   `json:"is_admin,omitempty"`
}

// IDTokenVerifier checks an identity-provider ID token and returns the identity it proves.
type IDTokenVerifier func(ctx context.Context, token string) (user.Identity, error)

func newJWTConfig(conf *core.Config) middleware.JWTConfig {
	return middleware.JWTConfig{
		SigningKey:    []byte(conf.SecretKey),
		SigningMethod: middleware.AlgorithmHS256,
		ContextKey:    contextTokenKey,
		Claims:        new(Claims),
	}
}

func GetUserClaims(conf *core.Config, usr user.User, origIat ...int64) *Claims {
	now := time.Now()
	nownix := now.Unix()

	var oriat int64
	if len(origIat) > 0 {
		oriat = origIat[0]
	} else {
		oriat = nownix
	}

	return &Claims{
		StandardClaims: jwt.StandardClaims{
			Issuer:    conf.AppName,
			Subject:   usr.ID,
			Audience:  conf.FrontendBaseURL,
			ExpiresAt: now.Add(conf.Server.JWTExpirationDelta).Unix(),
			IssuedAt:  nownix,
		},
		OrigIssuedAt: oriat,
		Email:        usr.Email,
		IsAdmin:      usr.IsAdmin,
	}
}

// GenerateToken generates a signed JWT token string representing the user Claims.
func GenerateToken(conf *core.Config, claims *Claims) (string, error) {
	jwtConf := newJWTConfig(conf)
	method := jwt.GetSigningMethod(jwtConf.SigningMethod)
	token := jwt.NewWithClaims(method, claims)

	ss, err := token.SignedString(jwtConf.SigningKey)
	if err != nil {
		return "", errors.Wrap(err, "signing token")
	}
	return ss, nil
}

// googleIDTokenVerifier verifies Google ID tokens issued for clientID.
func googleIDTokenVerifier(clientID string) IDTokenVerifier {
	return func(ctx context.Context, token string) (user.Identity, error) {
		payload, err := idtoken.Validate(ctx, token, clientID)
		if err != nil {
			return user.Identity{}, authenticationFailed(err)
		}
		if verified, ok := payload.Claims["email_verified"].(bool); ok && !verified {
			return user.Identity{}, errAuthenticationFailed
		}
		ident := user.Identity{Subject: payload.Subject}
		ident.Email, _ = payload.Claims["email"].(string)
		ident.Name, _ = payload.Claims["name"].(string)
		ident.PhotoURL, _ = payload.Claims["picture"].(string)
		return ident, nil
	}
}

func authenticationFailed(err error) *echo.HTTPError {
	return echo.NewHTTPError(errAuthenticationFailed.Code, errAuthenticationFailed.Message).SetInternal(err)
}

// authenticate links the identity proven by idToken and returns the signed in account.
func authenticate(ctx context.Context, idToken string, deps ServerDeps) (user.Account, error) {
	ident, err := deps.VerifyIDToken(ctx, idToken)
	if err != nil {
		if _, ok := errors.Cause(err).(*echo.HTTPError); ok {
			return user.Account{}, err
		}
		return user.Account{}, authenticationFailed(err)
	}
	if !deps.Conf.IsAllowedEmail(ident.Email) {
		return user.Account{}, errEmailNotAllowed
	}

	acc, err := deps.UserSvc.Link(ctx, ident)
	if err != nil {
		return user.Account{}, errors.Wrap(err, "linking identity")
	}
	if !acc.IsActive {
		return user.Account{}, errAccountDeactivated
	}
	return acc, nil
}

func getContextClaims(ctx echo.Context) (Claims, error) {
	if token, ok := ctx.Get(contextTokenKey).(*jwt.Token); ok {
		if claims, ok := token.Claims.(*Claims); ok {
			return *claims, nil
		}
	}
	return Claims{}, errUnauthorized
}

func getContextUser(ctx echo.Context, svc *user.Service, clms ...Claims) (user.User, error) {
	if usr, ok := ctx.Get(contextUserKey).(user.User); ok {
		return usr, nil
	}

	var claims Claims
	var err error
	if len(clms) > 0 {
		claims = clms[0]
	} else {
		claims, err = getContextClaims(ctx)
		if err != nil {
			return user.User{}, errors.Wrap(err, "getting context claims")
		}
	}

	usr, err := svc.GetByID(ctx.Request().Context(), claims.Subject)
	if err != nil {
		if errors.Cause(err) == user.ErrNotFound {
			return user.User{}, errUnauthorized
		}
		return user.User{}, errors.Wrap(err, "finding user by ID")
	}
	ctx.Set(contextUserKey, usr)
	return usr, nil
}

func refreshToken(ctx echo.Context, conf *core.Config, svc *user.Service) (string, error) {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return "", errors.Wrap(err, "getting context claims")
	}

	usr, err := getContextUser(ctx, svc, claims)
	if err != nil {
		return "", errors.Wrap(err, "getting context user")
	}

	// check if user is still active
	if !usr.IsActive {
		return "", errAccountDeactivated
	}

	// check if refresh has not expired
	expTime := time.Unix(claims.OrigIssuedAt, 0).Add(conf.Server.JWTRefreshExpirationDelta)
	if time.Now().After(expTime) {
		return "", errRefreshExpired
	}

	newClaims := GetUserClaims(conf, usr, claims.OrigIssuedAt)
	token, err := GenerateToken(conf, newClaims)
	return token, errors.Wrap(err, "generating token")
}
