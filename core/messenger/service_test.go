package messenger

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/volatiletech/null/v8"

	"github.com/24vibes/vibes/core"
	"github.com/24vibes/vibes/core/colleague"
	"github.com/24vibes/vibes/core/leaderboard"
	"github.com/24vibes/vibes/core/vibe"
	appfs "github.com/24vibes/vibes/fs"
	emailsvc "github.com/24vibes/vibes/services/email"
	"github.com/24vibes/vibes/storage/cache"
	"github.com/24vibes/vibes/testutil"
)

type post struct {
	channel string
	msg     core.ChatMessage
	card    core.VibeCard
}

type fakeChat struct {
	mu      sync.Mutex
	users   map[string]string // {email: slack user ID}
	lookups int
	posts   []post
	failOn  string
}

func (f *fakeChat) LookupUserByEmail(_ context.Context, email string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lookups++
	if id, ok := f.users[email]; ok {
		return id, nil
	}
	return "", core.ErrChatUserNotFound
}

func (f *fakeChat) PostMessage(_ context.Context, channel string, msg core.ChatMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if channel == f.failOn {
		return errors.New("channel_not_found")
	}
	f.posts = append(f.posts, post{channel: channel, msg: msg})
	return nil
}

func (f *fakeChat) PostVibeCard(_ context.Context, channel string, card core.VibeCard) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.posts = append(f.posts, post{channel: channel, card: card})
	return nil
}

type fakeVibes map[string]vibe.Vibe

func (f fakeVibes) Get(_ context.Context, id string) (vibe.Vibe, error) {
	if v, ok := f[id]; ok {
		return v, nil
	}
	return vibe.Vibe{}, vibe.ErrNotFound
}

type fakeRoster map[string]colleague.Colleague

func (f fakeRoster) GetByEmail(_ context.Context, email string) (colleague.Colleague, error) {
	if c, ok := f[strings.ToLower(email)]; ok {
		return c, nil
	}
	return colleague.Colleague{}, colleague.ErrNotFound
}

type fakeBoards struct {
	queries []leaderboard.Query
}

func (f *fakeBoards) Get(_ context.Context, q leaderboard.Query) (leaderboard.Leaderboard, error) {
	f.queries = append(f.queries, q)
	if q.Board == leaderboard.Catchers {
		return leaderboard.Leaderboard{Query: q}, nil
	}
	entries := make([]leaderboard.Entry, 0, 7)
	for i := 1; i <= 7; i++ {
		entries = append(entries, leaderboard.Entry{Rank: i, Name: "Person " + string(rune('A'+i-1)), Count: 10 - i, Level: leaderboard.Levels[1]})
	}
	return leaderboard.Leaderboard{Query: q, Entries: entries}, nil
}

var testVibe = vibe.Vibe{
	ID:              "vibe-1",
	Message:         "You made the launch a success",
	Sender:          "ayu.lestari@24slides.com",
	Recipient:       "mette.jensen@24slides.com",
	Category:        vibe.Excellence,
	PersonalMessage: "Drinks on me!",
	SenderName:      null.StringFrom("Ayu Lestari"),
	RecipientName:   null.StringFrom("Mette Jensen"),
	CreatedAt:       time.Date(2024, time.March, 5, 10, 0, 0, 0, time.UTC),
}

type messengerTest struct {
	chat   *fakeChat
	boards *fakeBoards
	mail   *emailsvc.ConsoleServiceMock
	svc    *Service
}

func newMessengerTest(t *testing.T, withChat bool) messengerTest {
	t.Helper()
	conf := testutil.NewConfig()
	conf.Slack.DigestChannel = "#general"
	core.ParseEmailTemplates(appfs.FS, conf, core.NopLogger{})
	validate, _ := testutil.NewValidator()

	mr := miniredis.RunT(t)
	rc := cache.NewRedisCache(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rc.Close() })

	tt := messengerTest{
		chat: &fakeChat{users: map[string]string{
			"mette.jensen@24slides.com": "U-METTE",
			"budi.santoso@24slides.com": "U-BUDI",
		}},
		boards: new(fakeBoards),
		mail:   emailsvc.NewConsoleServiceMock(conf),
	}
	deps := Deps{
		Vibes:    fakeVibes{testVibe.ID: testVibe},
		Roster:   fakeRoster{"oksana@24slides.com": {Email: "oksana@24slides.com", Name: "Oksana K."}},
		Boards:   tt.boards,
		MailSvc:  tt.mail,
		Cache:    rc,
		Conf:     conf,
		Validate: validate,
		Logger:   core.NopLogger{},
	}
	if withChat {
		deps.Chat = tt.chat
	}
	tt.svc = NewService(deps)
	return tt
}

func TestService_BroadcastChannel(t *testing.T) {
	tt := newMessengerTest(t, true)

	ok, err := tt.svc.Broadcast(context.Background(), Broadcast{
		Type:    ChannelBroadcast,
		Channel: "general",
		Blocks:  []core.TextBlock{{Text: "Town hall at 3pm"}},
		Button:  &core.Button{Text: "Agenda"}, // no URL: dropped
	})
	require.NoError(t, err)
	assert.True(t, ok)
	require.Len(t, tt.chat.posts, 1)
	assert.Equal(t, "#general", tt.chat.posts[0].channel)
	assert.Equal(t, core.TextSizeNormal, tt.chat.posts[0].msg.Blocks[0].Size)
	assert.Nil(t, tt.chat.posts[0].msg.Button)

	tt.chat.failOn = "#random"
	ok, err = tt.svc.Broadcast(context.Background(), Broadcast{
		Type:    ChannelBroadcast,
		Channel: "#random",
		Blocks:  []core.TextBlock{{Text: "hello"}},
	})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestService_BroadcastDM(t *testing.T) {
	tt := newMessengerTest(t, true)
	b := Broadcast{
		Type:   DMBroadcast,
		Emails: []string{"Mette.Jensen@24slides.com", "ghost@24slides.com", " budi.santoso@24slides.com "},
		Blocks: []core.TextBlock{{Text: "Reminder", Size: core.TextSizeHeader}},
		Button: &core.Button{Text: "Open", URL: "https://vibes.test"},
	}

	ok, err := tt.svc.Broadcast(context.Background(), b)
	require.NoError(t, err)
	assert.True(t, ok)
	channels := make([]string, 0, len(tt.chat.posts))
	for _, p := range tt.chat.posts {
		channels = append(channels, p.channel)
		require.NotNil(t, p.msg.Button)
	}
	assert.ElementsMatch(t, []string{"U-METTE", "U-BUDI"}, channels)
	assert.Equal(t, 3, tt.chat.lookups)

	// slack user IDs are cached
	_, err = tt.svc.Broadcast(context.Background(), b)
	require.NoError(t, err)
	assert.Equal(t, 4, tt.chat.lookups, "only the unknown user is looked up again")

	ok, err = tt.svc.Broadcast(context.Background(), Broadcast{
		Type:   DMBroadcast,
		Emails: []string{"ghost@24slides.com"},
		Blocks: []core.TextBlock{{Text: "hello"}},
	})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestService_BroadcastInvalid(t *testing.T) {
	tt := newMessengerTest(t, true)
	tests := []struct {
		name string
		b    Broadcast
	}{
		{"no type", Broadcast{Blocks: []core.TextBlock{{Text: "hi"}}}},
		{"channel missing", Broadcast{Type: ChannelBroadcast, Blocks: []core.TextBlock{{Text: "hi"}}}},
		{"emails missing", Broadcast{Type: DMBroadcast, Blocks: []core.TextBlock{{Text: "hi"}}}},
		{"blank emails", Broadcast{Type: DMBroadcast, Emails: []string{" ", ""}, Blocks: []core.TextBlock{{Text: "hi"}}}},
		{"bad email", Broadcast{Type: DMBroadcast, Emails: []string{"nope"}, Blocks: []core.TextBlock{{Text: "hi"}}}},
		{"no blocks", Broadcast{Type: ChannelBroadcast, Channel: "general"}},
		{"blank block", Broadcast{Type: ChannelBroadcast, Channel: "general", Blocks: []core.TextBlock{{Text: "  "}}}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := tt.svc.Broadcast(context.Background(), tc.b)
			assert.Error(t, err)
		})
	}
	assert.Empty(t, tt.chat.posts)
}

func TestService_ChatDisabled(t *testing.T) {
	tt := newMessengerTest(t, false)
	assert.False(t, tt.svc.Enabled())

	_, err := tt.svc.Broadcast(context.Background(), Broadcast{Type: ChannelBroadcast, Channel: "general", Blocks: []core.TextBlock{{Text: "hi"}}})
	assert.Equal(t, ErrChatDisabled, err)

	err = tt.svc.NotifyVibe(context.Background(), VibeNotification{VibeID: "vibe-1", RecipientEmail: "mette.jensen@24slides.com"})
	assert.Equal(t, ErrChatDisabled, err)

	assert.NoError(t, tt.svc.PostDigest(context.Background()), "digest is skipped")
	assert.Empty(t, tt.boards.queries)
}

func TestService_NotifyVibe(t *testing.T) {
	tt := newMessengerTest(t, true)
	ctx := context.Background()

	require.NoError(t, tt.svc.NotifyVibe(ctx, VibeNotification{VibeID: "vibe-1", RecipientEmail: "Mette.Jensen@24slides.com"}))
	require.Len(t, tt.chat.posts, 1)
	p := tt.chat.posts[0]
	assert.Equal(t, "U-METTE", p.channel)
	assert.Equal(t, core.VibeCard{
		SenderName:      "Ayu Lestari",
		Message:         "You made the launch a success",
		PersonalMessage: "Drinks on me!",
		Category:        "Excellence",
		Date:            "Mar 5, 2024",
		ButtonText:      "Open 24Vibes",
		ButtonURL:       "https://vibes.test",
	}, p.card)

	err := tt.svc.NotifyVibe(ctx, VibeNotification{VibeID: "missing", RecipientEmail: "mette.jensen@24slides.com"})
	assert.Equal(t, vibe.ErrNotFound, errors.Cause(err))

	err = tt.svc.NotifyVibe(ctx, VibeNotification{VibeID: "vibe-1", RecipientEmail: "ghost@24slides.com"})
	assert.Equal(t, core.ErrChatUserNotFound, errors.Cause(err))

	err = tt.svc.NotifyVibe(ctx, VibeNotification{VibeID: "vibe-1", RecipientEmail: "not-an-email"})
	assert.Error(t, err)
}

func TestService_VibeCreated(t *testing.T) {
	t.Run("slack", func(t *testing.T) {
		tt := newMessengerTest(t, true)
		tt.svc.VibeCreated(context.Background(), testVibe)
		tt.svc.Wait()

		require.Len(t, tt.chat.posts, 1)
		assert.Equal(t, "U-METTE", tt.chat.posts[0].channel)
		assert.Empty(t, tt.mail.Sent())
	})

	t.Run("email fallback for people without slack", func(t *testing.T) {
		tt := newMessengerTest(t, true)
		v := testVibe
		v.Recipient = "oksana@24slides.com"
		tt.svc.VibeCreated(context.Background(), v)
		tt.svc.Wait()

		assert.Empty(t, tt.chat.posts)
		sent := tt.mail.Sent()
		require.Len(t, sent, 1)
		assert.Equal(t, "oksana@24slides.com", sent[0].To[0].Address)
		assert.Equal(t, "Oksana K.", sent[0].To[0].Name)
		assert.Equal(t, "Ayu Lestari sent you a vibe card!", sent[0].Subject)
		assert.Contains(t, sent[0].TextContent, "Drinks on me!")
	})

	t.Run("email fallback without slack", func(t *testing.T) {
		tt := newMessengerTest(t, false)
		tt.svc.VibeCreated(context.Background(), testVibe)
		tt.svc.Wait()

		sent := tt.mail.Sent()
		require.Len(t, sent, 1)
		assert.Equal(t, "Mette Jensen", sent[0].To[0].Name)
	})
}

func TestService_PostDigest(t *testing.T) {
	tt := newMessengerTest(t, true)

	require.NoError(t, tt.svc.PostDigest(context.Background()))
	require.Len(t, tt.boards.queries, 2)
	assert.Equal(t, leaderboard.Makers, tt.boards.queries[0].Board)
	assert.Equal(t, leaderboard.Month, tt.boards.queries[0].Filter.Type)
	assert.Equal(t, leaderboard.Catchers, tt.boards.queries[1].Board)

	require.Len(t, tt.chat.posts, 1)
	msg := tt.chat.posts[0].msg
	assert.Equal(t, "#general", tt.chat.posts[0].channel)
	require.Len(t, msg.Blocks, 5)
	assert.Equal(t, core.TextSizeHeader, msg.Blocks[0].Size)
	makers := strings.Split(msg.Blocks[2].Text, "\n")
	assert.Len(t, makers, 5, "top 5 only")
	assert.Equal(t, "1. Person A (9) Vibe Contender", makers[0])
	assert.Equal(t, "No vibes yet this month. Be the first!", msg.Blocks[4].Text)
}
