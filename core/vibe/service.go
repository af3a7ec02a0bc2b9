package vibe

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/24vibes/vibes/core"
	"github.com/24vibes/vibes/core/colleague"
)

var (
	// errors
	ErrNotFound         = errors.New("vibe not found")
	ErrTemplateNotFound = errors.New("card template not found")
	ErrSelfVibe         = errors.New("you cannot send a vibe to yourself")
)

type (
	Repository interface {
		Create(ctx context.Context, v Vibe) (Vibe, error)
		// Get returns the vibe with its reactions.
		Get(ctx context.Context, id string) (Vibe, error)
		// Query returns the vibes matching filter with their reactions, newest first.
		Query(ctx context.Context, filter QueryFilter) ([]Vibe, error)
		// SetReaction creates or replaces the reaction of r.UserID on r.VibeID.
		SetReaction(ctx context.Context, r Reaction) error
		DeleteReaction(ctx context.Context, vibeID, userID string) error
	}

	// Roster finds colleagues by email.
	Roster interface {
		GetByEmail(ctx context.Context, email string) (colleague.Colleague, error)
	}

	// Listener is told about every new vibe once it is saved.
	Listener interface {
		VibeCreated(ctx context.Context, v Vibe)
	}

	Service struct {
		repo      Repository
		roster    Roster
		templates []CardTemplate
		listeners []Listener
		validate  *validator.Validate
		logger    core.Logger
	}
)

func NewService(repo Repository, roster Roster, templates []CardTemplate, validate *validator.Validate, logger core.Logger) *Service {
	return &Service{
		repo:      repo,
		roster:    roster,
		templates: templates,
		validate:  validate,
		logger:    logger,
	}
}

// Subscribe registers listeners that are notified after each vibe creation.
func (svc *Service) Subscribe(listeners ...Listener) {
	svc.listeners = append(svc.listeners, listeners...)
}

// person returns the roster details of email (name falls back to the email local part).
func (svc *Service) person(ctx context.Context, email string) (name, department, avatar null.String) {
	name = null.StringFrom(core.EmailLocalPart(email))
	col, err := svc.roster.GetByEmail(ctx, email)
	if err != nil {
		if errors.Cause(err) != colleague.ErrNotFound {
			svc.logger.Warn(fmt.Sprintf("looking up colleague %s: %v", email, err), err)
		}
		return name, department, avatar
	}
	name = null.StringFrom(col.DisplayLabel())
	department = null.NewString(col.Department, col.Department != "")
	avatar = null.NewString(col.Avatar, col.Avatar != "")
	return name, department, avatar
}

// Create saves a vibe sent by sender, denormalising both sides' roster details.
func (svc *Service) Create(ctx context.Context, sender string, nv NewVibe) (Vibe, error) {
	if err := nv.Validate(svc.validate); err != nil {
		return Vibe{}, err
	}
	sender = core.CleanString(sender, true /* lower */)
	if sender == "" {
		return Vibe{}, core.NewValidationError(nil, core.FieldError{Field: "sender", Error: "this field is required"})
	}
	if sender == nv.Recipient {
		return Vibe{}, core.NewValidationError(ErrSelfVibe, core.FieldError{Field: "recipient", Error: ErrSelfVibe.Error()})
	}
	if nv.Category == "" {
		nv.Category = Custom
	}
	if nv.TemplateID != "" {
		if _, err := svc.Template(nv.TemplateID); err != nil {
			return Vibe{}, core.NewValidationError(err, core.FieldError{Field: "template_id", Error: err.Error()})
		}
	}

	v := Vibe{
		ID:              uuid.New().String(),
		Message:         nv.Message,
		Sender:          sender,
		Recipient:       nv.Recipient,
		Category:        nv.Category,
		PersonalMessage: nv.PersonalMessage,
		TemplateID:      null.NewString(nv.TemplateID, nv.TemplateID != ""),
		CreatedAt:       time.Now().UTC(),
		Reactions:       []Reaction{},
	}
	v.SenderName, v.SenderDepartment, v.SenderAvatar = svc.person(ctx, sender)
	v.RecipientName, v.RecipientDepartment, v.RecipientAvatar = svc.person(ctx, nv.Recipient)

	v, err := svc.repo.Create(ctx, v)
	if err != nil {
		return Vibe{}, errors.Wrap(err, "creating vibe")
	}

	for _, l := range svc.listeners {
		l.VibeCreated(ctx, v)
	}
	return v, nil
}

func (svc *Service) Get(ctx context.Context, id string) (Vibe, error) {
	v, err := svc.repo.Get(ctx, id)
	return v, errors.Wrap(err, "finding vibe by ID")
}

// Received returns the vibes sent to email, newest first.
func (svc *Service) Received(ctx context.Context, email string) ([]Vibe, error) {
	email = core.CleanString(email, true /* lower */)
	if email == "" {
		return []Vibe{}, nil
	}
	return svc.Query(ctx, QueryFilter{Recipient: email})
}

// Sent returns the vibes sent by email, newest first.
func (svc *Service) Sent(ctx context.Context, email string) ([]Vibe, error) {
	email = core.CleanString(email, true /* lower */)
	if email == "" {
		return []Vibe{}, nil
	}
	return svc.Query(ctx, QueryFilter{Sender: email})
}

func (svc *Service) Query(ctx context.Context, filter QueryFilter) ([]Vibe, error) {
	filter.Clean()
	vibes, err := svc.repo.Query(ctx, filter)
	if err != nil {
		return nil, errors.Wrap(err, "querying vibes")
	}
	if vibes == nil {
		vibes = []Vibe{}
	}
	return vibes, nil
}

// React toggles the reaction of the recipient on a vibe:
// the same emoji again removes it and another emoji replaces it.
func (svc *Service) React(ctx context.Context, vibeID string, reactor Reactor, emoji string) (Vibe, error) {
	if !IsEmoji(emoji) {
		return Vibe{}, core.NewValidationError(nil, core.FieldError{Field: "emoji", Error: "emoji must be one of the allowed reactions"})
	}
	v, err := svc.Get(ctx, vibeID)
	if err != nil {
		return Vibe{}, err
	}
	if v.Recipient != core.CleanString(reactor.Email, true /* lower */) {
		return Vibe{}, core.ErrForbidden
	}

	if r, ok := v.ReactionOf(reactor.UserID); ok && r.Emoji == emoji {
		err = svc.repo.DeleteReaction(ctx, v.ID, reactor.UserID)
	} else {
		err = svc.repo.SetReaction(ctx, Reaction{
			VibeID:    v.ID,
			Emoji:     emoji,
			UserID:    reactor.UserID,
			CreatedAt: time.Now().UTC(),
		})
	}
	if err != nil {
		return Vibe{}, errors.Wrap(err, "saving reaction")
	}
	return svc.Get(ctx, v.ID)
}

// RemoveReaction removes the user's reaction if it is emoji. Other reactions are left untouched.
func (svc *Service) RemoveReaction(ctx context.Context, vibeID, userID, emoji string) (Vibe, error) {
	v, err := svc.Get(ctx, vibeID)
	if err != nil {
		return Vibe{}, err
	}
	if r, ok := v.ReactionOf(userID); ok && r.Emoji == emoji {
		if err = svc.repo.DeleteReaction(ctx, v.ID, userID); err != nil {
			return Vibe{}, errors.Wrap(err, "deleting reaction")
		}
		return svc.Get(ctx, v.ID)
	}
	return v, nil
}

func (svc *Service) Templates() []CardTemplate {
	templates := make([]CardTemplate, len(svc.templates))
	copy(templates, svc.templates)
	return templates
}

func (svc *Service) Template(id string) (CardTemplate, error) {
	for _, t := range svc.templates {
		if t.ID == id {
			return t, nil
		}
	}
	return CardTemplate{}, ErrTemplateNotFound
}
