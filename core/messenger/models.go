package messenger

import (
	"github.com/go-playground/validator/v10"

	"github.com/24vibes/vibes/core"
)

type BroadcastType string

const (
	ChannelBroadcast BroadcastType = "channel"
	DMBroadcast      BroadcastType = "dm"
)

type (
	// Broadcast is a message posted to a channel or sent as DMs to a list of people.
	Broadcast struct {
		Type    BroadcastType    `json:"type" validate:"required,oneof=channel dm"`
		Channel string           `json:"channel" validate:"required_if=Type channel"`
		Emails  []string         `json:"emails" validate:"required_if=Type dm,dive,email"`
		Blocks  []core.TextBlock `json:"blocks" validate:"required,min=1,dive"`
		Button  *core.Button     `json:"button"`
	}

	VibeNotification struct {
		VibeID         string `json:"vibeId" validate:"required"`
		RecipientEmail string `json:"recipientEmail" validate:"required,email"`
	}

	// vibeMailData feeds the vibe_received email template.
	vibeMailData struct {
		RecipientName   string
		SenderName      string
		Message         string
		PersonalMessage string
		Category        string
		Date            string
	}
)

func (b *Broadcast) Validate(validate *validator.Validate) error {
	b.Channel = core.CleanString(b.Channel)
	emails := make([]string, 0, len(b.Emails))
	for _, email := range b.Emails {
		if email = core.CleanString(email, true /* lower */); email != "" {
			emails = append(emails, email)
		}
	}
	b.Emails = emails
	for i := range b.Blocks {
		if b.Blocks[i].Size == "" {
			b.Blocks[i].Size = core.TextSizeNormal
		}
	}
	if err := validate.Struct(b); err != nil {
		return err
	}
	// required only rejects a nil slice
	if b.Type == DMBroadcast && len(b.Emails) == 0 {
		return core.NewValidationError(nil, core.FieldError{Field: "emails", Error: "this field is required"})
	}
	return nil
}

func (n *VibeNotification) Validate(validate *validator.Validate) error {
	n.VibeID = core.CleanString(n.VibeID)
	n.RecipientEmail = core.CleanString(n.RecipientEmail, true /* lower */)
	return validate.Struct(n)
}

func (b Broadcast) message() core.ChatMessage {
	msg := core.ChatMessage{Blocks: b.Blocks}
	if b.Button != nil && b.Button.Text != "" && b.Button.URL != "" {
		btn := *b.Button
		msg.Button = &btn
	}
	return msg
}
