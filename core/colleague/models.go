package colleague

import (
	"encoding/json"
	"io/fs"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/24vibes/vibes/core"
)

const rosterFixture = "assets/colleagues.json"

type Location string

const (
	Malang     Location = "Malang"
	Lima       Location = "Lima"
	Kyiv       Location = "Kyiv"
	Copenhagen Location = "Copenhagen"
)

var Locations = []Location{Malang, Lima, Kyiv, Copenhagen}

func IsLocation(s string) bool {
	for _, loc := range Locations {
		if string(loc) == s {
			return true
		}
	}
	return false
}

type Colleague struct {
	ID                  string    `json:"id" db:"id"`
	Email               string    `json:"email" db:"email"`
	Name                string    `json:"name" db:"name"`
	DisplayName         string    `json:"display_name" db:"display_name"`
	Department          string    `json:"department" db:"department"`
	Position            string    `json:"position" db:"position"`
	Location            Location  `json:"location" db:"location"`
	Avatar              string    `json:"avatar" db:"avatar"`
	OnboardingCompleted bool      `json:"onboarding_completed" db:"onboarding_completed"`
	Joined              null.Time `json:"joined" db:"joined"`
	CreatedAt           time.Time `json:"created_at" db:"created_at"`
	UpdatedAt           null.Time `json:"updated_at" db:"updated_at"`
}

// DisplayLabel is the name shown for the colleague across the app.
func (c Colleague) DisplayLabel() string {
	if label := core.FirstNonEmpty(c.Name, c.DisplayName); label != "" {
		return label
	}
	return core.EmailLocalPart(c.Email)
}

type (
	NewColleague struct {
		Email       string `json:"email" validate:"required,email"`
		DisplayName string `json:"display_name"`
		PhotoURL    string `json:"photo_url"`
	}

	ProfileUpdate struct {
		Name        *string   `json:"name" validate:"omitempty,notblank"`
		DisplayName *string   `json:"display_name"`
		Department  *string   `json:"department" validate:"omitempty,notblank"`
		Position    *string   `json:"position" validate:"omitempty,notblank"`
		Location    *Location `json:"location" validate:"omitempty,location"`
		Avatar      *string   `json:"avatar" validate:"omitempty,url"`
		// set by Onboarding only
		OnboardingCompleted *bool `json:"-"`
	}

	// Onboarding is the profile every colleague fills in on first sign in.
	Onboarding struct {
		Name        string   `json:"name" validate:"notblank"`
		DisplayName string   `json:"display_name"`
		Department  string   `json:"department" validate:"notblank"`
		Position    string   `json:"position" validate:"notblank"`
		Location    Location `json:"location" validate:"required,location"`
		Avatar      string   `json:"avatar" validate:"omitempty,url"`
	}
)

func (nc *NewColleague) Validate(validate *validator.Validate) error {
	nc.Email = core.CleanString(nc.Email, true /* lower */)
	nc.DisplayName = core.CleanString(nc.DisplayName)
	nc.PhotoURL = core.CleanString(nc.PhotoURL)
	return validate.Struct(nc)
}

func (pu *ProfileUpdate) Validate(validate *validator.Validate) error {
	for _, s := range []*string{pu.Name, pu.DisplayName, pu.Department, pu.Position, pu.Avatar} {
		if s != nil {
			*s = core.CleanString(*s)
		}
	}
	return validate.Struct(pu)
}

func (pu ProfileUpdate) apply(c *Colleague) {
	if pu.Name != nil {
		c.Name = *pu.Name
	}
	if pu.DisplayName != nil {
		c.DisplayName = *pu.DisplayName
	}
	if pu.Department != nil {
		c.Department = *pu.Department
	}
	if pu.Position != nil {
		c.Position = *pu.Position
	}
	if pu.Location != nil {
		c.Location = *pu.Location
	}
	if pu.Avatar != nil {
		c.Avatar = *pu.Avatar
	}
	if pu.OnboardingCompleted != nil {
		c.OnboardingCompleted = *pu.OnboardingCompleted
	}
}

func (ob *Onboarding) Validate(validate *validator.Validate) error {
	ob.Name = core.CleanString(ob.Name)
	ob.DisplayName = core.CleanString(ob.DisplayName)
	ob.Department = core.CleanString(ob.Department)
	ob.Position = core.CleanString(ob.Position)
	ob.Avatar = core.CleanString(ob.Avatar)
	return validate.Struct(ob)
}

// ProfileUpdate converts the onboarding form to a ProfileUpdate that completes the onboarding.
func (ob Onboarding) ProfileUpdate() ProfileUpdate {
	completed := true
	upd := ProfileUpdate{
		Name:                &ob.Name,
		Department:          &ob.Department,
		Position:            &ob.Position,
		Location:            &ob.Location,
		OnboardingCompleted: &completed,
	}
	if ob.DisplayName != "" {
		upd.DisplayName = &ob.DisplayName
	}
	if ob.Avatar != "" {
		upd.Avatar = &ob.Avatar
	}
	return upd
}

// rosterRecord is the shape of the roster fixture.
type rosterRecord struct {
	ID           string `json:"id"`
	Email        string `json:"email"`
	Name         string `json:"name"`
	DisplayName  string `json:"display name"`
	DisplayName2 string `json:"Display name"`
	Department   string `json:"department"`
	Position     string `json:"position"`
	Location     string `json:"location"`
	Avatar       string `json:"avatar"`
	Joined       string `json:"joined"`
}

// LoadRoster reads the colleague roster fixture from fsys.
// Records without an id get a fresh UUID.
func LoadRoster(fsys fs.FS) ([]Colleague, error) {
	data, err := fs.ReadFile(fsys, rosterFixture)
	if err != nil {
		return nil, errors.Wrap(err, "reading roster fixture")
	}
	var records []rosterRecord
	if err = json.Unmarshal(data, &records); err != nil {
		return nil, errors.Wrap(err, "decoding roster fixture")
	}

	now := time.Now().UTC()
	roster := make([]Colleague, 0, len(records))
	for _, r := range records {
		c := Colleague{
			ID:          r.ID,
			Email:       core.CleanString(r.Email, true /* lower */),
			Name:        core.CleanString(r.Name),
			DisplayName: core.CleanString(core.FirstNonEmpty(r.DisplayName, r.DisplayName2)),
			Department:  core.CleanString(r.Department),
			Position:    core.CleanString(r.Position),
			Avatar:      core.CleanString(r.Avatar),
			CreatedAt:   now,
		}
		if c.ID == "" {
			c.ID = uuid.New().String()
		}
		if IsLocation(r.Location) {
			c.Location = Location(r.Location)
		}
		if joined, err := time.Parse(time.RFC3339, r.Joined); err == nil {
			c.Joined = null.TimeFrom(joined.UTC())
		}
		roster = append(roster, c)
	}
	return roster, nil
}

var (
	locationTag  = "location"
	locationText = "{0} must be one of Malang, Lima, Kyiv or Copenhagen"
)

// InitValidators registers the colleague validation tags.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(locationTag, locationValidation)
	core.RegisterCustomTranslation(validate, translator, locationTag, locationText)
}

// locationValidation accepts an empty location or one of Locations.
func locationValidation(fl validator.FieldLevel) bool {
	loc := fl.Field().String()
	return loc == "" || IsLocation(loc)
}
