package slacksvc

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/slack-go/slack"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/24vibes/vibes/core"
)

func TestMessageBlocks(t *testing.T) {
	msg := core.ChatMessage{
		Blocks: []core.TextBlock{
			{Text: "Big news", Size: core.TextSizeHeader},
			{Text: "Important", Size: core.TextSizeLarge},
			{Text: "details", Size: core.TextSizeNormal},
		},
		Button: &core.Button{Text: "Open", URL: "https://24vibes.netlify.app"},
	}

	blocks := MessageBlocks(msg)
	require.Len(t, blocks, 6) // 3 blocks + 2 dividers + button

	header, ok := blocks[0].(*slack.HeaderBlock)
	require.True(t, ok)
	assert.Equal(t, "Big news", header.Text.Text)
	assert.Equal(t, slack.PlainTextType, header.Text.Type)

	_, ok = blocks[1].(*slack.DividerBlock)
	assert.True(t, ok)

	large, ok := blocks[2].(*slack.SectionBlock)
	require.True(t, ok)
	assert.Equal(t, "*Important*", large.Text.Text)

	normal, ok := blocks[4].(*slack.SectionBlock)
	require.True(t, ok)
	assert.Equal(t, "details", normal.Text.Text)
	assert.Equal(t, slack.MarkdownType, normal.Text.Type)

	btn, ok := blocks[5].(*slack.SectionBlock)
	require.True(t, ok)
	assert.Equal(t, defaultButtonDescription, btn.Text.Text)
	require.NotNil(t, btn.Accessory)
	require.NotNil(t, btn.Accessory.ButtonElement)
	assert.Equal(t, "https://24vibes.netlify.app", btn.Accessory.ButtonElement.URL)

	assert.Equal(t, "Big news\n\nImportant\n\ndetails", msg.FallbackText())
}

func TestMessageBlocks_IncompleteButtonIsDropped(t *testing.T) {
	blocks := MessageBlocks(core.ChatMessage{
		Blocks: []core.TextBlock{{Text: "hello"}},
		Button: &core.Button{Text: "Open"},
	})
	require.Len(t, blocks, 1)
	_, ok := blocks[0].(*slack.SectionBlock)
	assert.True(t, ok)
}

func TestVibeCardBlocks(t *testing.T) {
	card := core.VibeCard{
		SenderName: "Ayu",
		Message:    "You nailed it!",
		Category:   "Excellence",
		Date:       "Mar 4, 2025",
		ButtonText: "Open 24Vibes",
		ButtonURL:  "https://24vibes.netlify.app",
	}

	blocks := VibeCardBlocks(card)
	require.Len(t, blocks, 6)
	assert.Equal(t, vibeCardHeader, blocks[0].(*slack.HeaderBlock).Text.Text)
	assert.Equal(t, "*From:* Ayu", blocks[1].(*slack.SectionBlock).Text.Text)
	assert.Equal(t, "*You nailed it!*", blocks[2].(*slack.SectionBlock).Text.Text)
	_, ok := blocks[3].(*slack.ContextBlock)
	assert.True(t, ok)

	card.PersonalMessage = "Thanks!"
	blocks = VibeCardBlocks(card)
	require.Len(t, blocks, 7)
	assert.Equal(t, `"Thanks!"`, blocks[3].(*slack.SectionBlock).Text.Text)
}

type fakeSlack struct {
	mu    sync.Mutex
	posts []map[string]string
}

func (f *fakeSlack) handler(t *testing.T) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/users.lookupByEmail", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		w.Header().Set("Content-Type", "application/json")
		if r.Form.Get("email") == "ayu.lestari@24slides.com" {
			_ = json.NewEncoder(w).Encode(map[string]interface{}{"ok": true, "user": map[string]string{"id": "U123"}})
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"ok": false, "error": "users_not_found"})
	})
	mux.HandleFunc("/chat.postMessage", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		f.mu.Lock()
		f.posts = append(f.posts, map[string]string{
			"channel": r.Form.Get("channel"),
			"text":    r.Form.Get("text"),
			"blocks":  r.Form.Get("blocks"),
		})
		f.mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"ok": true, "channel": r.Form.Get("channel"), "ts": "1"})
	})
	return mux
}

func TestClient(t *testing.T) {
	fake := new(fakeSlack)
	srv := httptest.NewServer(fake.handler(t))
	defer srv.Close()

	client := NewClient("xoxb-test", core.NopLogger{}, srv.URL+"/")
	ctx := context.Background()

	id, err := client.LookupUserByEmail(ctx, "ayu.lestari@24slides.com")
	require.NoError(t, err)
	assert.Equal(t, "U123", id)

	_, err = client.LookupUserByEmail(ctx, "nobody@24slides.com")
	assert.Equal(t, core.ErrChatUserNotFound, err)

	err = client.PostMessage(ctx, "#general", core.ChatMessage{Blocks: []core.TextBlock{{Text: "hi", Size: core.TextSizeHeader}}})
	require.NoError(t, err)
	err = client.PostVibeCard(ctx, "U123", core.VibeCard{SenderName: "Budi", Message: "Thanks"})
	require.NoError(t, err)

	require.Len(t, fake.posts, 2)
	assert.Equal(t, "#general", fake.posts[0]["channel"])
	assert.Equal(t, "hi", fake.posts[0]["text"])
	assert.Contains(t, fake.posts[0]["blocks"], `"header"`)
	assert.Equal(t, "U123", fake.posts[1]["channel"])
	assert.Equal(t, `Budi sent you a vibe card! "Thanks"`, fake.posts[1]["text"])
}
