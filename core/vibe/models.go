package vibe

import (
	"encoding/json"
	"io/fs"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/24vibes/vibes/core"
)

const templatesFixture = "assets/card_templates.json"

type Category string

const (
	Excellence Category = "Excellence"
	Leadership Category = "Leadership"
	Positivity Category = "Positivity"
	ShowingUp  Category = "Showing up"
	TeamPlayer Category = "Team Player"
	Custom     Category = "Custom"
)

// Categories lists the categories a vibe can be sent with. Templates only exist for the first five.
var Categories = []Category{Excellence, Leadership, Positivity, ShowingUp, TeamPlayer, Custom}

func IsCategory(s string) bool {
	for _, cat := range Categories {
		if string(cat) == s {
			return true
		}
	}
	return false
}

// Emojis are the allowed reactions.
var Emojis = []string{"❤️", "😍", "🙏", "🤩", "😂"}

func IsEmoji(s string) bool {
	for _, e := range Emojis {
		if e == s {
			return true
		}
	}
	return false
}

type (
	Vibe struct {
		ID                  string      `json:"id" db:"id"`
		Message             string      `json:"message" db:"message"`
		Sender              string      `json:"sender" db:"sender"`
		Recipient           string      `json:"recipient" db:"recipient"`
		Category            Category    `json:"category" db:"category"`
		PersonalMessage     string      `json:"personal_message" db:"personal_message"`
		TemplateID          null.String `json:"template_id" db:"template_id"`
		SenderName          null.String `json:"sender_name" db:"sender_name"`
		SenderDepartment    null.String `json:"sender_department" db:"sender_department"`
		SenderAvatar        null.String `json:"sender_avatar" db:"sender_avatar"`
		RecipientName       null.String `json:"recipient_name" db:"recipient_name"`
		RecipientDepartment null.String `json:"recipient_department" db:"recipient_department"`
		RecipientAvatar     null.String `json:"recipient_avatar" db:"recipient_avatar"`
		CreatedAt           time.Time   `json:"created_at" db:"created_at"`
		Reactions           []Reaction  `json:"reactions" db:"-"`
	}

	Reaction struct {
		VibeID    string    `json:"-" db:"vibe_id"`
		Emoji     string    `json:"emoji" db:"emoji"`
		UserID    string    `json:"user_id" db:"user_id"`
		CreatedAt time.Time `json:"created_at" db:"created_at"`
	}

	NewVibe struct {
		Message         string   `json:"message" validate:"notblank"`
		Recipient       string   `json:"recipient" validate:"required,email"`
		Category        Category `json:"category" validate:"omitempty,category"`
		PersonalMessage string   `json:"personal_message"`
		TemplateID      string   `json:"template_id"`
	}

	// Reactor is the signed in person reacting to a vibe.
	Reactor struct {
		UserID string
		Email  string
	}

	// QueryFilter applies AND operation on its set fields. From and To are inclusive.
	QueryFilter struct {
		Sender    string
		Recipient string
		Category  Category
		From      time.Time
		To        time.Time
	}
)

func (nv *NewVibe) Validate(validate *validator.Validate) error {
	nv.Message = core.CleanString(nv.Message)
	nv.Recipient = core.CleanString(nv.Recipient, true /* lower */)
	nv.PersonalMessage = core.CleanString(nv.PersonalMessage)
	nv.TemplateID = core.CleanString(nv.TemplateID)
	return validate.Struct(nv)
}

func (qf *QueryFilter) Clean() {
	qf.Sender = core.CleanString(qf.Sender, true /* lower */)
	qf.Recipient = core.CleanString(qf.Recipient, true /* lower */)
	if !IsCategory(string(qf.Category)) {
		qf.Category = ""
	}
}

// Match reports whether v satisfies the filter.
func (qf QueryFilter) Match(v Vibe) bool {
	if qf.Sender != "" && v.Sender != qf.Sender {
		return false
	}
	if qf.Recipient != "" && v.Recipient != qf.Recipient {
		return false
	}
	if qf.Category != "" && v.Category != qf.Category {
		return false
	}
	if !qf.From.IsZero() && v.CreatedAt.Before(qf.From) {
		return false
	}
	if !qf.To.IsZero() && v.CreatedAt.After(qf.To) {
		return false
	}
	return true
}

// ReactionOf returns the reaction left by userID, if any.
func (v Vibe) ReactionOf(userID string) (Reaction, bool) {
	for _, r := range v.Reactions {
		if r.UserID == userID {
			return r, true
		}
	}
	return Reaction{}, false
}

// CardTemplate holds one suggested message per category.
type CardTemplate struct {
	ID       string
	Messages map[Category]string
}

func (t CardTemplate) MarshalJSON() ([]byte, error) {
	m := make(map[string]string, len(t.Messages)+1)
	for cat, msg := range t.Messages {
		m[string(cat)] = msg
	}
	m["id"] = t.ID
	return json.Marshal(m)
}

func (t *CardTemplate) UnmarshalJSON(data []byte) error {
	var m map[string]string
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}
	t.ID = m["id"]
	t.Messages = make(map[Category]string, len(m))
	for key, msg := range m {
		if key != "id" && IsCategory(key) {
			t.Messages[Category(key)] = msg
		}
	}
	return nil
}

// LoadTemplates reads the card templates fixture from fsys.
func LoadTemplates(fsys fs.FS) ([]CardTemplate, error) {
	data, err := fs.ReadFile(fsys, templatesFixture)
	if err != nil {
		return nil, errors.Wrap(err, "reading card templates fixture")
	}
	var templates []CardTemplate
	if err = json.Unmarshal(data, &templates); err != nil {
		return nil, errors.Wrap(err, "decoding card templates fixture")
	}
	return templates, nil
}

var (
	categoryTag  = "category"
	categoryText = "{0} must be one of Excellence, Leadership, Positivity, Showing up, Team Player or Custom"

	emojiTag  = "emoji"
	emojiText = "{0} must be one of the allowed reactions"
)

// InitValidators registers the vibe validation tags.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(categoryTag, func(fl validator.FieldLevel) bool {
		return IsCategory(fl.Field().String())
	})
	core.RegisterCustomTranslation(validate, translator, categoryTag, categoryText)

	_ = validate.RegisterValidation(emojiTag, func(fl validator.FieldLevel) bool {
		return IsEmoji(fl.Field().String())
	})
	core.RegisterCustomTranslation(validate, translator, emojiTag, emojiText)
}
