package core

import (
	"strings"
	"testing"
	"testing/fstest"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfig(t *testing.T) {
	t.Setenv("ENV", "test")
	t.Setenv("TEST_ALLOWEDEMAILDOMAINS", "24slides.com, example.org")
	t.Setenv("TEST_REDISLEADERBOARDTTL", "90s")
	t.Setenv("TEST_FRONTENDBASEURL", "https://vibes.test/")

	conf := NewConfig()
	assert.Equal(t, "TEST", conf.Env)
	assert.True(t, conf.TestMode)
	assert.Equal(t, "24Vibes", conf.AppName)
	assert.Equal(t, []string{"24slides.com", "example.org"}, conf.AllowedEmailDomains)
	assert.Equal(t, 90*time.Second, conf.Redis.LeaderboardTTL)
	assert.Equal(t, "https://vibes.test", conf.FrontendBaseURL)
	assert.Equal(t, 24*time.Hour, conf.Server.JWTExpirationDelta)
	assert.Equal(t, int64(5*1024*1024), conf.Storage.MaxUploadSize)
	assert.Equal(t, ":8000", conf.Server.Address())
}

func TestConfig_IsAllowedEmail(t *testing.T) {
	conf := &Config{AllowedEmailDomains: []string{"24slides.com"}}
	assert.True(t, conf.IsAllowedEmail("Ayu.Lestari@24SLIDES.com"))
	assert.False(t, conf.IsAllowedEmail("ayu@gmail.com"))
	assert.False(t, conf.IsAllowedEmail("ayu@not24slides.com"))

	assert.True(t, (&Config{}).IsAllowedEmail("anyone@anywhere.io"))
}

func TestConfig_DefaultFromEmail(t *testing.T) {
	conf := &Config{AppName: "24Vibes", defaultFromEmail: "vibes@24slides.com"}
	from := conf.DefaultFromEmail()
	assert.Equal(t, `"24Vibes" <vibes@24slides.com>`, from.String())

	conf.defaultFromEmail = "not an address"
	assert.Equal(t, "noreply@localhost", conf.DefaultFromEmail().Address)
}

func TestStringHelpers(t *testing.T) {
	assert.Equal(t, "Ayu", CleanString("  Ayu \n"))
	assert.Equal(t, "ayu@24slides.com", CleanString(" Ayu@24slides.com ", true))
	assert.Equal(t, "ayu", EmailLocalPart("ayu@24slides.com"))
	assert.Equal(t, "ayu", EmailLocalPart("ayu"))
	assert.Equal(t, "b", FirstNonEmpty("", "  ", "b", "c"))
	assert.Empty(t, FirstNonEmpty())
}

func TestValidators(t *testing.T) {
	validate := validator.New()
	translator := NewTranslator()
	InitValidators(validate, translator)

	type form struct {
		Name   string `json:"name" validate:"notblank"`
		Email  string `json:"email" validate:"required,email"`
		Hidden string `json:"-" validate:"omitempty"`
	}
	err := validate.Struct(form{Name: "   "})
	require.Error(t, err)
	errs := TranslateValidationErrors(err.(validator.ValidationErrors), translator)
	assert.Equal(t, map[string]string{
		"name":  "this field is required",
		"email": "this field is required",
	}, errs)

	assert.NoError(t, validate.Struct(form{Name: "Ayu", Email: "ayu@24slides.com"}))
}

func TestValidationError(t *testing.T) {
	err := NewValidationError(nil, FieldError{Field: "email", Error: "this field is required"})
	assert.Equal(t, "email: this field is required", err.Error())
	assert.Equal(t, ErrForbidden.Error(), NewValidationError(ErrForbidden).Error())

	assert.True(t, IsShutdown(NewShutdownError("bye")))
	assert.False(t, IsShutdown(ErrForbidden))
}

func TestChatMessage_FallbackText(t *testing.T) {
	msg := ChatMessage{Blocks: []TextBlock{{Text: "Title", Size: TextSizeHeader}, {Text: "Body"}}}
	assert.Equal(t, "Title\n\nBody", msg.FallbackText())
}

func TestEmailMessage_Render(t *testing.T) {
	fsys := fstest.MapFS{
		"assets/templates/email/_base.txt":    {Data: []byte(`{{define "base"}}{{template "content" .}} -- {{.AppName}}{{end}}{{template "base" .}}`)},
		"assets/templates/email/_base.gohtml": {Data: []byte(`{{define "base"}}<p>{{template "content" .}}</p>{{end}}{{template "base" .}}`)},
		"assets/templates/email/hello.txt":    {Data: []byte(`{{define "content"}}Hi {{.Data.Name}}{{end}}`)},
		"assets/templates/email/hello.gohtml": {Data: []byte(`{{define "content"}}Hi <b>{{.Data.Name}}</b>{{end}}`)},
		"assets/templates/email/README.md":    {Data: []byte(`ignored`)},
	}
	ParseEmailTemplates(fsys, &Config{AppName: "24Vibes", TestMode: true}, NopLogger{})

	msg := &EmailMessage{TemplateName: "hello", TemplateData: map[string]string{"Name": "<Ayu>"}}
	require.NoError(t, msg.Render())
	assert.Equal(t, "Hi <Ayu> -- 24Vibes", msg.TextContent)
	assert.Equal(t, "<p>Hi <b>&lt;Ayu&gt;</b></p>", msg.HTMLContent)

	plain := &EmailMessage{BodyStr: "plain body"}
	require.NoError(t, plain.Render())
	assert.Equal(t, "plain body", plain.TextContent)
	assert.Empty(t, plain.HTMLContent)

	require.NoError(t, plain.Attach(strings.NewReader("hello"), "hello.txt"))
	require.Len(t, plain.Attachments, 1)
	assert.Equal(t, "aGVsbG8=", plain.Attachments[0].Content.String())
	assert.Equal(t, "text/plain; charset=utf-8", plain.Attachments[0].ContentType)
}
