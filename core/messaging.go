package core

import (
	"context"

	"github.com/pkg/errors"
)

var ErrChatUserNotFound = errors.New("chat user not found")

type TextSize string

const (
	TextSizeHeader TextSize = "header"
	TextSizeLarge  TextSize = "large"
	TextSizeNormal TextSize = "normal"
)

type (
	TextBlock struct {
		Text string   `json:"text" validate:"notblank"`
		Size TextSize `json:"size" validate:"omitempty,oneof=header large normal"`
	}

	Button struct {
		Text        string `json:"text"`
		URL         string `json:"url" validate:"omitempty,url"`
		Description string `json:"description"`
	}

	// ChatMessage is a free-form message made of text blocks and an optional trailing button.
	ChatMessage struct {
		Blocks []TextBlock
		Button *Button
	}

	// VibeCard is what a recipient sees when they get a new vibe.
	VibeCard struct {
		SenderName      string
		Message         string
		PersonalMessage string
		Category        string
		Date            string
		ButtonText      string
		ButtonURL       string
	}

	ChatService interface {
		// LookupUserByEmail returns the chat user ID for email, or ErrChatUserNotFound.
		LookupUserByEmail(ctx context.Context, email string) (string, error)
		PostMessage(ctx context.Context, channel string, msg ChatMessage) error
		PostVibeCard(ctx context.Context, channel string, card VibeCard) error
	}
)

// FallbackText is shown by chat clients that cannot render blocks.
func (m ChatMessage) FallbackText() string {
	var text string
	for i, b := range m.Blocks {
		if i > 0 {
			text += "\n\n"
		}
		text += b.Text
	}
	return text
}
