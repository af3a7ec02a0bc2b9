package user

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/volatiletech/null/v8"

	"github.com/24vibes/vibes/core"
	"github.com/24vibes/vibes/core/colleague"
)

// User links an identity-provider account to a colleague of the roster.
type User struct {
	ID          string    `json:"id" db:"id"` // identity-provider subject
	Email       string    `json:"email" db:"email"`
	ColleagueID string    `json:"colleague_id" db:"colleague_id"`
	IsAdmin     bool      `json:"is_admin" db:"is_admin"`
	IsActive    bool      `json:"is_active" db:"is_active"`
	LinkedAt    time.Time `json:"linked_at" db:"linked_at"`
	UpdatedAt   null.Time `json:"updated_at" db:"updated_at"`
	LastLogin   null.Time `json:"last_login" db:"last_login"`
}

// Account is a User along with their colleague profile (nil when the colleague is missing).
type Account struct {
	User
	Colleague *colleague.Colleague `json:"colleague"`
}

func (a Account) OnboardingCompleted() bool {
	return a.Colleague != nil && a.Colleague.OnboardingCompleted
}

func (a Account) Name() string {
	if a.Colleague != nil {
		return a.Colleague.DisplayLabel()
	}
	return core.EmailLocalPart(a.Email)
}

// Identity is what the identity provider tells us about a signed in person.
type Identity struct {
	Subject  string `json:"sub" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Name     string `json:"name"`
	PhotoURL string `json:"picture"`
}

func (id *Identity) Validate(validate *validator.Validate) error {
	id.Subject = core.CleanString(id.Subject)
	id.Email = core.CleanString(id.Email, true /* lower */)
	id.Name = core.CleanString(id.Name)
	id.PhotoURL = core.CleanString(id.PhotoURL)
	return validate.Struct(id)
}
