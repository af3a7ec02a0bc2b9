package messenger

import (
	"context"
	"fmt"
	"net/mail"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/24vibes/vibes/core"
	"github.com/24vibes/vibes/core/colleague"
	"github.com/24vibes/vibes/core/leaderboard"
	"github.com/24vibes/vibes/core/vibe"
)

const (
	slackUserKeyPrefix = "slack:user:"
	notifyTimeout      = 30 * time.Second
	digestSize         = 5
	dmConcurrency      = 8
	cardDateLayout     = "Jan 2, 2006"
)

var (
	// errors
	ErrChatDisabled = errors.New("slack is not configured")
)

type (
	VibeSource interface {
		Get(ctx context.Context, id string) (vibe.Vibe, error)
	}

	Roster interface {
		GetByEmail(ctx context.Context, email string) (colleague.Colleague, error)
	}

	Boards interface {
		Get(ctx context.Context, q leaderboard.Query) (leaderboard.Leaderboard, error)
	}

	Service struct {
		chat     core.ChatService // nil when slack is not configured
		vibes    VibeSource
		roster   Roster
		boards   Boards
		mailSvc  core.EmailService
		cache    core.Cache
		conf     *core.Config
		validate *validator.Validate
		logger   core.Logger

		wg sync.WaitGroup
	}
)

var _ vibe.Listener = (*Service)(nil)

type Deps struct {
	Chat     core.ChatService
	Vibes    VibeSource
	Roster   Roster
	Boards   Boards
	MailSvc  core.EmailService
	Cache    core.Cache
	Conf     *core.Config
	Validate *validator.Validate
	Logger   core.Logger
}

func NewService(deps Deps) *Service {
	return &Service{
		chat:     deps.Chat,
		vibes:    deps.Vibes,
		roster:   deps.Roster,
		boards:   deps.Boards,
		mailSvc:  deps.MailSvc,
		cache:    deps.Cache,
		conf:     deps.Conf,
		validate: deps.Validate,
		logger:   deps.Logger,
	}
}

func (svc *Service) Enabled() bool { return svc.chat != nil }

// lookupUser resolves email to a Slack user ID. Hits are cached.
func (svc *Service) lookupUser(ctx context.Context, email string) (string, error) {
	if svc.chat == nil {
		return "", ErrChatDisabled
	}
	key := slackUserKeyPrefix + strings.ToLower(email)

	var userID string
	if found, err := svc.cache.Get(ctx, key, &userID); err != nil {
		svc.logger.Warn(fmt.Sprintf("reading cached slack user: %v", err), err)
	} else if found && userID != "" {
		return userID, nil
	}

	userID, err := svc.chat.LookupUserByEmail(ctx, email)
	if err != nil {
		return "", err
	}
	if err = svc.cache.Set(ctx, key, userID, svc.conf.Redis.SlackUserTTL); err != nil {
		svc.logger.Warn(fmt.Sprintf("caching slack user: %v", err), err)
	}
	return userID, nil
}

// Broadcast posts b to a channel or DMs every listed person.
// It reports whether at least one message went through. Slack failures are logged, never retried.
func (svc *Service) Broadcast(ctx context.Context, b Broadcast) (bool, error) {
	if err := b.Validate(svc.validate); err != nil {
		return false, err
	}
	if svc.chat == nil {
		return false, ErrChatDisabled
	}
	msg := b.message()

	if b.Type == ChannelBroadcast {
		channel := "#" + strings.TrimPrefix(b.Channel, "#")
		if err := svc.chat.PostMessage(ctx, channel, msg); err != nil {
			svc.logger.Error(fmt.Sprintf("posting slack message to %s: %v", channel, err), err)
			return false, nil
		}
		return true, nil
	}

	var sent int32
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(dmConcurrency)
	for _, email := range b.Emails {
		email := email
		g.Go(func() error {
			userID, err := svc.lookupUser(gctx, email)
			if err != nil {
				svc.logger.Warn(fmt.Sprintf("slack user not found for %s: %v", email, err), err)
				return nil
			}
			if err = svc.chat.PostMessage(gctx, userID, msg); err != nil {
				svc.logger.Error(fmt.Sprintf("sending slack DM to %s: %v", email, err), err)
				return nil
			}
			atomic.AddInt32(&sent, 1)
			return nil
		})
	}
	_ = g.Wait()
	return atomic.LoadInt32(&sent) > 0, nil
}

func (svc *Service) card(v vibe.Vibe) core.VibeCard {
	return core.VibeCard{
		SenderName:      core.FirstNonEmpty(v.SenderName.String, core.EmailLocalPart(v.Sender)),
		Message:         core.FirstNonEmpty(v.Message, "Someone sent you a vibe!"),
		PersonalMessage: v.PersonalMessage,
		Category:        core.FirstNonEmpty(string(v.Category), string(vibe.Custom)),
		Date:            v.CreatedAt.Format(cardDateLayout),
		ButtonText:      "Open " + svc.conf.AppName,
		ButtonURL:       svc.conf.FrontendBaseURL,
	}
}

// NotifyVibe DMs the vibe card to recipientEmail.
// It fails with vibe.ErrNotFound or core.ErrChatUserNotFound when either is missing.
func (svc *Service) NotifyVibe(ctx context.Context, n VibeNotification) error {
	if err := n.Validate(svc.validate); err != nil {
		return err
	}
	if svc.chat == nil {
		return ErrChatDisabled
	}
	v, err := svc.vibes.Get(ctx, n.VibeID)
	if err != nil {
		return errors.Wrap(err, "finding vibe")
	}
	userID, err := svc.lookupUser(ctx, n.RecipientEmail)
	if err != nil {
		return errors.Wrap(err, "finding slack user")
	}
	return errors.Wrap(svc.chat.PostVibeCard(ctx, userID, svc.card(v)), "posting vibe card")
}

// VibeCreated notifies the recipient in the background.
func (svc *Service) VibeCreated(_ context.Context, v vibe.Vibe) {
	svc.NotifyVibeAsync(v)
}

// NotifyVibeAsync DMs the vibe card to its recipient in the background,
// falling back to an email when the recipient has no Slack account.
func (svc *Service) NotifyVibeAsync(v vibe.Vibe) {
	svc.wg.Add(1)
	go func() {
		defer svc.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
		defer cancel()
		svc.notify(ctx, v)
	}()
}

// Wait blocks until every background notification is done.
func (svc *Service) Wait() {
	svc.wg.Wait()
}

func (svc *Service) notify(ctx context.Context, v vibe.Vibe) {
	card := svc.card(v)

	userID, err := svc.lookupUser(ctx, v.Recipient)
	if err == nil {
		if err = svc.chat.PostVibeCard(ctx, userID, card); err != nil {
			svc.logger.Error(fmt.Sprintf("sending vibe %s to slack: %v", v.ID, err), err)
		}
		return
	}
	if cause := errors.Cause(err); cause != core.ErrChatUserNotFound && cause != ErrChatDisabled {
		svc.logger.Error(fmt.Sprintf("looking up slack user %s: %v", v.Recipient, err), err)
		return
	}
	svc.mailVibe(ctx, v, card)
}

func (svc *Service) mailVibe(ctx context.Context, v vibe.Vibe, card core.VibeCard) {
	if svc.mailSvc == nil {
		return
	}
	recipientName := core.FirstNonEmpty(v.RecipientName.String, core.EmailLocalPart(v.Recipient))
	if col, err := svc.roster.GetByEmail(ctx, v.Recipient); err == nil {
		recipientName = col.DisplayLabel()
	}
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: recipientName, Address: v.Recipient}},
		Subject:      card.SenderName + " sent you a vibe card!",
		TemplateName: "vibe_received",
		TemplateData: vibeMailData{
			RecipientName:   recipientName,
			SenderName:      card.SenderName,
			Message:         card.Message,
			PersonalMessage: card.PersonalMessage,
			Category:        card.Category,
			Date:            card.Date,
		},
	})
}

// PostDigest posts this month's top vibe makers and catchers to the digest channel.
func (svc *Service) PostDigest(ctx context.Context) error {
	channel := strings.TrimPrefix(svc.conf.Slack.DigestChannel, "#")
	if svc.chat == nil || channel == "" {
		svc.logger.Info("leaderboard digest skipped: no slack digest channel configured")
		return nil
	}

	now := time.Now().UTC()
	filter := leaderboard.TimeFilter{Type: leaderboard.Month, Month: int(now.Month()), Year: now.Year()}
	makers, err := svc.boards.Get(ctx, leaderboard.Query{Board: leaderboard.Makers, Filter: filter})
	if err != nil {
		return errors.Wrap(err, "computing makers leaderboard")
	}
	catchers, err := svc.boards.Get(ctx, leaderboard.Query{Board: leaderboard.Catchers, Filter: filter})
	if err != nil {
		return errors.Wrap(err, "computing catchers leaderboard")
	}

	msg := core.ChatMessage{
		Blocks: []core.TextBlock{
			{Text: fmt.Sprintf("🏆 %s of %s", svc.conf.AppName, now.Format("January 2006")), Size: core.TextSizeHeader},
			{Text: "Top Vibe Makers", Size: core.TextSizeLarge},
			{Text: digestLines(makers.Entries), Size: core.TextSizeNormal},
			{Text: "Top Vibe Catchers", Size: core.TextSizeLarge},
			{Text: digestLines(catchers.Entries), Size: core.TextSizeNormal},
		},
		Button: &core.Button{Text: "Open " + svc.conf.AppName, URL: svc.conf.FrontendBaseURL},
	}
	return errors.Wrap(svc.chat.PostMessage(ctx, "#"+channel, msg), "posting digest")
}

func digestLines(entries []leaderboard.Entry) string {
	if len(entries) == 0 {
		return "No vibes yet this month. Be the first!"
	}
	var b strings.Builder
	for i, e := range entries {
		if i == digestSize {
			break
		}
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "%d. %s (%d) %s", e.Rank, e.Name, e.Count, e.Level.Name)
	}
	return b.String()
}
