package slacksvc

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
	"github.com/slack-go/slack"

	"github.com/24vibes/vibes/core"
)

const (
	defaultButtonDescription = "View more details on the 24Vibes platform:"
	vibeCardHeader           = "🎉 You received a new vibe card!"
	vibeCardButtonText       = "View all your vibes on the 24Vibes platform:"
	buttonActionID           = "button-action"
)

// Client is a core.ChatService backed by the Slack Web API.
type Client struct {
	api    *slack.Client
	logger core.Logger
}

var _ core.ChatService = (*Client)(nil)

// NewClient returns a Slack client. apiURL overrides the Slack API base URL (tests); it must end with a slash.
func NewClient(token string, logger core.Logger, apiURL ...string) *Client {
	var opts []slack.Option
	if len(apiURL) > 0 && apiURL[0] != "" {
		opts = append(opts, slack.OptionAPIURL(apiURL[0]))
	}
	return &Client{
		api:    slack.New(token, opts...),
		logger: logger,
	}
}

func (c *Client) LookupUserByEmail(ctx context.Context, email string) (string, error) {
	usr, err := c.api.GetUserByEmailContext(ctx, email)
	if err != nil {
		switch err.Error() {
		case "users_not_found", "user_not_found":
			return "", core.ErrChatUserNotFound
		}
		return "", errors.Wrap(err, "looking up slack user by email")
	}
	if usr == nil || usr.ID == "" {
		return "", core.ErrChatUserNotFound
	}
	return usr.ID, nil
}

func (c *Client) PostMessage(ctx context.Context, channel string, msg core.ChatMessage) error {
	return c.post(ctx, channel, msg.FallbackText(), MessageBlocks(msg))
}

func (c *Client) PostVibeCard(ctx context.Context, channel string, card core.VibeCard) error {
	text := fmt.Sprintf("%s sent you a vibe card! \"%s\"", card.SenderName, card.Message)
	return c.post(ctx, channel, text, VibeCardBlocks(card))
}

func (c *Client) post(ctx context.Context, channel, text string, blocks []slack.Block) error {
	_, _, err := c.api.PostMessageContext(ctx, channel,
		slack.MsgOptionText(text, false),
		slack.MsgOptionBlocks(blocks...),
	)
	return errors.Wrapf(err, "posting slack message to %s", channel)
}

func plainText(text string) *slack.TextBlockObject {
	return slack.NewTextBlockObject(slack.PlainTextType, text, true, false)
}

func markdown(text string) *slack.TextBlockObject {
	return slack.NewTextBlockObject(slack.MarkdownType, text, false, false)
}

func buttonSection(description, text, url string) *slack.SectionBlock {
	btn := slack.NewButtonBlockElement(buttonActionID, "", plainText(text))
	btn.URL = url
	return slack.NewSectionBlock(markdown(description), nil, slack.NewAccessory(btn))
}

// MessageBlocks formats text blocks: headers become header blocks, large text is bolded,
// blocks are separated by dividers and the optional button closes the message.
func MessageBlocks(msg core.ChatMessage) []slack.Block {
	blocks := make([]slack.Block, 0, len(msg.Blocks)*2+1)
	for i, b := range msg.Blocks {
		switch b.Size {
		case core.TextSizeHeader:
			blocks = append(blocks, slack.NewHeaderBlock(plainText(b.Text)))
		case core.TextSizeLarge:
			blocks = append(blocks, slack.NewSectionBlock(markdown("*"+b.Text+"*"), nil, nil))
		default:
			blocks = append(blocks, slack.NewSectionBlock(markdown(b.Text), nil, nil))
		}
		if i < len(msg.Blocks)-1 {
			blocks = append(blocks, slack.NewDividerBlock())
		}
	}

	if btn := msg.Button; btn != nil && btn.Text != "" && btn.URL != "" {
		description := btn.Description
		if description == "" {
			description = defaultButtonDescription
		}
		blocks = append(blocks, buttonSection(description, btn.Text, btn.URL))
	}
	return blocks
}

// VibeCardBlocks formats the DM sent to the recipient of a vibe.
func VibeCardBlocks(card core.VibeCard) []slack.Block {
	blocks := []slack.Block{
		slack.NewHeaderBlock(plainText(vibeCardHeader)),
		slack.NewSectionBlock(markdown("*From:* "+card.SenderName), nil, nil),
		slack.NewSectionBlock(markdown("*"+card.Message+"*"), nil, nil),
	}
	if card.PersonalMessage != "" {
		blocks = append(blocks, slack.NewSectionBlock(markdown(`"`+card.PersonalMessage+`"`), nil, nil))
	}
	blocks = append(blocks,
		slack.NewContextBlock("", markdown(fmt.Sprintf("*Category:* %s | *Date:* %s", card.Category, card.Date))),
		slack.NewDividerBlock(),
		buttonSection(vibeCardButtonText, card.ButtonText, card.ButtonURL),
	)
	return blocks
}
