package emailsvc

import (
	"net/mail"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/24vibes/vibes/core"
	appfs "github.com/24vibes/vibes/fs"
)

type vibeData struct {
	RecipientName, SenderName, Message, PersonalMessage, Category, Date string
}

func testConf() *core.Config {
	return &core.Config{AppName: "24Vibes", FrontendBaseURL: "https://vibes.test", TestMode: true}
}

func vibeMessage() *core.EmailMessage {
	return &core.EmailMessage{
		To:           []mail.Address{{Name: "Oksana", Address: "oksana.kovalenko@24slides.com"}},
		Subject:      "You received a new vibe card!",
		TemplateName: "vibe_received",
		TemplateData: vibeData{
			RecipientName: "Oksana",
			SenderName:    "Ayu",
			Message:       "You made the launch a success",
			Category:      "Excellence",
			Date:          "Oct 18, 2026",
		},
	}
}

func TestConsoleServiceMock_SendMessages(t *testing.T) {
	conf := testConf()
	core.ParseEmailTemplates(appfs.FS, conf, core.NopLogger{})
	svc := NewConsoleServiceMock(conf)

	svc.SendMessages(vibeMessage(), &core.EmailMessage{Subject: "no recipients", BodyStr: "hello"})

	sent := svc.Sent()
	require.Len(t, sent, 1)
	assert.Contains(t, sent[0].TextContent, "Ayu sent you a vibe card!")
	assert.Contains(t, sent[0].TextContent, "https://vibes.test")
	assert.Contains(t, sent[0].HTMLContent, "<strong>Ayu</strong>")

	svc.Reset()
	assert.Empty(t, svc.Sent())
}

func TestConsoleService_Build(t *testing.T) {
	conf := testConf()
	core.ParseEmailTemplates(appfs.FS, conf, core.NopLogger{})
	svc := NewConsoleServiceMock(conf)

	msg := vibeMessage()
	require.NoError(t, msg.Render())
	require.NoError(t, msg.Attach(strings.NewReader("hello"), "hello.txt", "text/plain"))

	body, err := svc.build(*msg)
	require.NoError(t, err)
	assert.Contains(t, body, "Subject: [24Vibes] You received a new vibe card!")
	assert.Contains(t, body, "multipart/mixed")
	assert.Contains(t, body, "filename=hello.txt")
	assert.NotContains(t, body, "CC:")
}

func TestSendgridService_Prepare(t *testing.T) {
	conf := testConf()
	core.ParseEmailTemplates(appfs.FS, conf, core.NopLogger{})
	svc := NewSendgridService(conf, core.NopLogger{}).(*sendgridService)

	msg := vibeMessage()
	require.NoError(t, msg.Render())
	m := svc.prepare(*msg)

	require.Len(t, m.Personalizations, 1)
	assert.Equal(t, "[24Vibes] You received a new vibe card!", m.Personalizations[0].Subject)
	assert.Equal(t, "oksana.kovalenko@24slides.com", m.Personalizations[0].To[0].Address)
	assert.Equal(t, "24Vibes", m.From.Name)
	require.Len(t, m.Content, 2)
	assert.Equal(t, "text/plain", m.Content[0].Type)
	assert.Equal(t, "text/html", m.Content[1].Type)
	assert.Equal(t, []string{"24vibes", "vibe_received"}, m.Categories)
	assert.Equal(t, "vibe_received", m.Personalizations[0].CustomArgs["template"])

	plain := svc.prepare(core.EmailMessage{To: msg.To, Subject: "hello", TextContent: "hi"})
	assert.Equal(t, []string{"24vibes"}, plain.Categories)
	assert.Empty(t, plain.Personalizations[0].CustomArgs)
}
