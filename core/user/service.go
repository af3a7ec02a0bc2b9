package user

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/24vibes/vibes/core"
	"github.com/24vibes/vibes/core/colleague"
)

var (
	// errors
	ErrNotFound         = errors.New("user not found")
	ErrCannotRevokeSelf = errors.New("admins cannot revoke their own admin rights")
)

type (
	Repository interface {
		Create(ctx context.Context, usr User) (User, error)
		Update(ctx context.Context, usr User) (User, error)
		GetByID(ctx context.Context, id string) (User, error)
		// GetByEmail does a case-insensitive match and returns the most recently linked user.
		GetByEmail(ctx context.Context, email string) (User, error)
		QueryAll(ctx context.Context) ([]User, error)
		ColleagueIDForUser(ctx context.Context, userID string) (string, error)
	}

	Service struct {
		repo       Repository
		colleagues *colleague.Service
		validate   *validator.Validate
		logger     core.Logger
	}
)

func NewService(repo Repository, colleagues *colleague.Service, validate *validator.Validate, logger core.Logger) *Service {
	return &Service{
		repo:       repo,
		colleagues: colleagues,
		validate:   validate,
		logger:     logger,
	}
}

// Link reconciles a signed in identity with the roster:
// it finds (or creates) the colleague for the identity's email, then creates or updates the user mapping.
func (svc *Service) Link(ctx context.Context, ident Identity) (Account, error) {
	if err := ident.Validate(svc.validate); err != nil {
		return Account{}, err
	}

	col, err := svc.colleagues.Create(ctx, colleague.NewColleague{
		Email:       ident.Email,
		DisplayName: ident.Name,
		PhotoURL:    ident.PhotoURL,
	})
	if err != nil {
		return Account{}, errors.Wrap(err, "finding or creating colleague")
	}

	now := time.Now().UTC()
	usr, err := svc.repo.GetByID(ctx, ident.Subject)
	switch {
	case errors.Cause(err) == ErrNotFound:
		usr, err = svc.repo.Create(ctx, User{
			ID:          ident.Subject,
			Email:       ident.Email,
			ColleagueID: col.ID,
			IsAdmin:     false,
			IsActive:    true,
			LinkedAt:    now,
			LastLogin:   null.TimeFrom(now),
		})
		if err != nil {
			return Account{}, errors.Wrap(err, "creating user")
		}
	case err != nil:
		return Account{}, errors.Wrap(err, "finding user by ID")
	default:
		if usr.ColleagueID != col.ID || usr.Email != ident.Email {
			if usr.ColleagueID != col.ID {
				svc.logger.Info(fmt.Sprintf("re-linking user %s to colleague %s", usr.ID, col.ID),
					map[string]interface{}{"previous_colleague_id": usr.ColleagueID})
			}
			usr.ColleagueID = col.ID
			usr.Email = ident.Email
			usr.UpdatedAt = null.TimeFrom(now)
		}
		usr.LastLogin = null.TimeFrom(now)
		if usr, err = svc.repo.Update(ctx, usr); err != nil {
			return Account{}, errors.Wrap(err, "updating user")
		}
	}

	return Account{User: usr, Colleague: &col}, nil
}

func (svc *Service) GetByID(ctx context.Context, id string) (User, error) {
	usr, err := svc.repo.GetByID(ctx, id)
	return usr, errors.Wrap(err, "finding user by ID")
}

func (svc *Service) GetWithColleague(ctx context.Context, id string) (Account, error) {
	usr, err := svc.GetByID(ctx, id)
	if err != nil {
		return Account{}, err
	}
	return svc.account(ctx, usr), nil
}

func (svc *Service) account(ctx context.Context, usr User) Account {
	acc := Account{User: usr}
	if usr.ColleagueID == "" {
		return acc
	}
	col, err := svc.colleagues.Get(ctx, usr.ColleagueID)
	if err != nil {
		if errors.Cause(err) != colleague.ErrNotFound {
			svc.logger.Error(fmt.Sprintf("loading colleague of user %s: %v", usr.ID, err), err)
		}
		return acc
	}
	acc.Colleague = &col
	return acc
}

// IsAdmin reports whether the user is an admin. Unknown users are not.
func (svc *Service) IsAdmin(ctx context.Context, id string) (bool, error) {
	usr, err := svc.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return false, nil
		}
		return false, errors.Wrap(err, "finding user by ID")
	}
	return usr.IsAdmin, nil
}

// ListAccounts returns every user with their colleague.
// A broken link leaves Account.Colleague nil instead of failing the whole list.
func (svc *Service) ListAccounts(ctx context.Context) ([]Account, error) {
	users, err := svc.repo.QueryAll(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "querying users")
	}
	colleagues, err := svc.colleagues.List(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "listing colleagues")
	}
	byID := make(map[string]colleague.Colleague, len(colleagues))
	for _, c := range colleagues {
		byID[c.ID] = c
	}

	accounts := make([]Account, 0, len(users))
	for _, usr := range users {
		acc := Account{User: usr}
		if col, ok := byID[usr.ColleagueID]; ok {
			acc.Colleague = &col
		} else if usr.ColleagueID != "" {
			svc.logger.Warn(fmt.Sprintf("user %s is linked to missing colleague %s", usr.ID, usr.ColleagueID))
		}
		accounts = append(accounts, acc)
	}
	return accounts, nil
}

// SetAdmin grants or revokes admin rights. Only admins can do it, and never to revoke their own rights.
func (svc *Service) SetAdmin(ctx context.Context, actorID, userID string, isAdmin bool) (User, error) {
	actorIsAdmin, err := svc.IsAdmin(ctx, actorID)
	if err != nil {
		return User{}, err
	}
	if !actorIsAdmin {
		return User{}, core.ErrForbidden
	}
	if actorID == userID && !isAdmin {
		return User{}, core.NewValidationError(ErrCannotRevokeSelf,
			core.FieldError{Field: "is_admin", Error: ErrCannotRevokeSelf.Error()})
	}
	return svc.setAdmin(ctx, userID, isAdmin)
}

func (svc *Service) setAdmin(ctx context.Context, userID string, isAdmin bool) (User, error) {
	usr, err := svc.GetByID(ctx, userID)
	if err != nil {
		return User{}, err
	}
	if usr.IsAdmin == isAdmin {
		return usr, nil
	}
	usr.IsAdmin = isAdmin
	usr.UpdatedAt = null.TimeFrom(time.Now().UTC())
	usr, err = svc.repo.Update(ctx, usr)
	return usr, errors.Wrap(err, "updating user")
}

// SetActive activates or deactivates an account. Deactivated accounts can neither sign in nor refresh tokens.
func (svc *Service) SetActive(ctx context.Context, userID string, active bool) (User, error) {
	usr, err := svc.GetByID(ctx, userID)
	if err != nil {
		return User{}, err
	}
	if usr.IsActive == active {
		return usr, nil
	}
	usr.IsActive = active
	usr.UpdatedAt = null.TimeFrom(time.Now().UTC())
	usr, err = svc.repo.Update(ctx, usr)
	return usr, errors.Wrap(err, "updating user")
}

// BootstrapAdmin flags the account signed in with email as admin (or revokes it).
// Meant for the admin CLI, where there is no acting admin yet.
func (svc *Service) BootstrapAdmin(ctx context.Context, email string, isAdmin bool) (User, error) {
	email = core.CleanString(email, true /* lower */)
	if !strings.Contains(email, "@") {
		return User{}, core.NewValidationError(nil, core.FieldError{Field: "email", Error: "email must be a valid email address"})
	}
	usr, err := svc.repo.GetByEmail(ctx, email)
	if err != nil {
		return User{}, errors.Wrap(err, "finding user by email")
	}
	return svc.setAdmin(ctx, usr.ID, isAdmin)
}

// UpdateProfile updates the colleague profile linked to the user.
func (svc *Service) UpdateProfile(ctx context.Context, userID string, upd colleague.ProfileUpdate) (Account, error) {
	usr, err := svc.GetByID(ctx, userID)
	if err != nil {
		return Account{}, err
	}
	col, err := svc.colleagues.UpdateProfile(ctx, userID, upd)
	if err != nil {
		return Account{}, err
	}
	return Account{User: usr, Colleague: &col}, nil
}
