package colleague

import (
	"context"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/24vibes/vibes/core"
)

var (
	// errors
	ErrNotFound = errors.New("colleague not found")
)

type (
	Repository interface {
		QueryAll(ctx context.Context) ([]Colleague, error)
		Count(ctx context.Context) (int, error)
		GetByID(ctx context.Context, id string) (Colleague, error)
		// FindByEmail returns the colleagues matching email, oldest first.
		// The match is exact unless caseInsensitive is set.
		FindByEmail(ctx context.Context, email string, caseInsensitive bool) ([]Colleague, error)
		Create(ctx context.Context, c Colleague) (Colleague, error)
		Update(ctx context.Context, c Colleague) (Colleague, error)
		// ReplaceAll deletes every colleague and inserts roster in a single transaction.
		ReplaceAll(ctx context.Context, roster []Colleague) error
	}

	// Mappings resolves the colleague linked to a signed in user.
	Mappings interface {
		ColleagueIDForUser(ctx context.Context, userID string) (string, error)
	}

	// Listener is told when saved colleague details change.
	Listener interface {
		ColleaguesChanged(ctx context.Context)
	}

	Service struct {
		repo      Repository
		mappings  Mappings
		roster    []Colleague
		listeners []Listener
		validate  *validator.Validate
		logger    core.Logger
	}
)

func NewService(repo Repository, mappings Mappings, roster []Colleague, validate *validator.Validate, logger core.Logger) *Service {
	return &Service{
		repo:     repo,
		mappings: mappings,
		roster:   roster,
		validate: validate,
		logger:   logger,
	}
}

// Subscribe registers listeners that are notified after colleagues are created, updated or reseeded.
func (svc *Service) Subscribe(listeners ...Listener) {
	svc.listeners = append(svc.listeners, listeners...)
}

func (svc *Service) notify(ctx context.Context) {
	for _, l := range svc.listeners {
		l.ColleaguesChanged(ctx)
	}
}

// List returns all colleagues. The roster fixture is returned (not saved) when the store is empty.
func (svc *Service) List(ctx context.Context) ([]Colleague, error) {
	colleagues, err := svc.repo.QueryAll(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "querying colleagues")
	}
	if len(colleagues) == 0 {
		return svc.Roster(), nil
	}
	return colleagues, nil
}

// Roster returns a copy of the roster fixture.
func (svc *Service) Roster() []Colleague {
	roster := make([]Colleague, len(svc.roster))
	copy(roster, svc.roster)
	return roster
}

func (svc *Service) Get(ctx context.Context, id string) (Colleague, error) {
	c, err := svc.repo.GetByID(ctx, id)
	return c, errors.Wrap(err, "finding colleague by ID")
}

func (svc *Service) findStored(ctx context.Context, email string) (Colleague, error) {
	matches, err := svc.repo.FindByEmail(ctx, email, false)
	if err != nil {
		return Colleague{}, errors.Wrap(err, "finding colleague by email")
	}
	if len(matches) == 0 {
		if matches, err = svc.repo.FindByEmail(ctx, email, true); err != nil {
			return Colleague{}, errors.Wrap(err, "finding colleague by email (case-insensitive)")
		}
	}
	if len(matches) == 0 {
		return Colleague{}, ErrNotFound
	}
	if len(matches) > 1 {
		svc.logger.Warn("duplicate colleagues for one email, keeping the oldest",
			map[string]interface{}{"email": email, "colleague_id": matches[0].ID, "count": len(matches)})
	}
	return matches[0], nil
}

func (svc *Service) findInRoster(email string) (Colleague, bool) {
	for _, c := range svc.roster {
		if strings.EqualFold(c.Email, email) {
			return c, true
		}
	}
	return Colleague{}, false
}

// GetByEmail looks for an exact match first, then a case-insensitive one.
// While the store is empty, the roster fixture is searched instead.
func (svc *Service) GetByEmail(ctx context.Context, email string) (Colleague, error) {
	email = core.CleanString(email)
	if email == "" {
		return Colleague{}, core.NewValidationError(nil, core.FieldError{Field: "email", Error: "this field is required"})
	}

	c, err := svc.findStored(ctx, email)
	if err == nil || errors.Cause(err) != ErrNotFound {
		return c, err
	}

	count, err := svc.repo.Count(ctx)
	if err != nil {
		return Colleague{}, errors.Wrap(err, "counting colleagues")
	}
	if count == 0 {
		if c, ok := svc.findInRoster(email); ok {
			return c, nil
		}
	}
	return Colleague{}, ErrNotFound
}

// Create returns the colleague already registered with the email, if any (back-filling its avatar).
// Otherwise it saves the matching roster record, or a brand new colleague.
func (svc *Service) Create(ctx context.Context, nc NewColleague) (Colleague, error) {
	if err := nc.Validate(svc.validate); err != nil {
		return Colleague{}, err
	}
	now := time.Now().UTC()

	existing, err := svc.findStored(ctx, nc.Email)
	switch {
	case err == nil:
		if nc.PhotoURL != "" && existing.Avatar == "" {
			existing.Avatar = nc.PhotoURL
			existing.UpdatedAt = null.TimeFrom(now)
			if existing, err = svc.repo.Update(ctx, existing); err != nil {
				return Colleague{}, errors.Wrap(err, "updating colleague avatar")
			}
			svc.notify(ctx)
		}
		return existing, nil
	case errors.Cause(err) != ErrNotFound:
		return Colleague{}, err
	}

	c, ok := svc.findInRoster(nc.Email)
	if !ok {
		name := core.FirstNonEmpty(nc.DisplayName, core.EmailLocalPart(nc.Email))
		c = Colleague{
			ID:          uuid.New().String(),
			Email:       nc.Email,
			Name:        name,
			DisplayName: name,
			Department:  "New User",
			Position:    "Team Member",
			Joined:      null.TimeFrom(now),
		}
	}
	if c.Avatar == "" {
		c.Avatar = nc.PhotoURL
	}
	c.CreatedAt = now

	if c, err = svc.repo.Create(ctx, c); err != nil {
		return Colleague{}, errors.Wrap(err, "creating colleague")
	}
	svc.notify(ctx)
	return c, nil
}

// UpdateProfile merges upd into the colleague linked to userID.
func (svc *Service) UpdateProfile(ctx context.Context, userID string, upd ProfileUpdate) (Colleague, error) {
	if err := upd.Validate(svc.validate); err != nil {
		return Colleague{}, err
	}

	colleagueID, err := svc.mappings.ColleagueIDForUser(ctx, userID)
	if err != nil {
		return Colleague{}, errors.Wrap(err, "resolving user colleague")
	}
	c, err := svc.repo.GetByID(ctx, colleagueID)
	if err != nil {
		return Colleague{}, errors.Wrap(err, "finding colleague by ID")
	}

	upd.apply(&c)
	if upd.OnboardingCompleted != nil && *upd.OnboardingCompleted {
		if err = checkOnboarded(c); err != nil {
			return Colleague{}, err
		}
	}
	c.UpdatedAt = null.TimeFrom(time.Now().UTC())

	if c, err = svc.repo.Update(ctx, c); err != nil {
		return Colleague{}, errors.Wrap(err, "updating colleague")
	}
	svc.notify(ctx)
	return c, nil
}

// Reseed replaces the whole roster with the fixture and returns the number of colleagues saved.
func (svc *Service) Reseed(ctx context.Context) (int, error) {
	roster := svc.Roster()
	now := time.Now().UTC()
	for i := range roster {
		roster[i].CreatedAt = now
	}
	if err := svc.repo.ReplaceAll(ctx, roster); err != nil {
		return 0, errors.Wrap(err, "replacing colleagues")
	}
	svc.notify(ctx)
	return len(roster), nil
}

// checkOnboarded fails when a profile field onboarding requires is still empty.
func checkOnboarded(c Colleague) error {
	var flds []core.FieldError
	for _, f := range []struct{ name, value string }{
		{"name", c.Name},
		{"department", c.Department},
		{"position", c.Position},
		{"location", string(c.Location)},
	} {
		if strings.TrimSpace(f.value) == "" {
			flds = append(flds, core.FieldError{Field: f.name, Error: "this field is required"})
		}
	}
	if len(flds) > 0 {
		return core.NewValidationError(nil, flds...)
	}
	return nil
}
