package emailsvc

import (
	"net/http"
	"net/mail"
	"testing"

	"github.com/sendgrid/rest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hien-pd-dac/tutorfinder/core"
)

func TestSendgridService_prepare(t *testing.T) {
	conf := core.NewTestConfig()
	svc := newSendgridService(conf, nil)

	m := svc.prepare(core.EmailMessage{
		To:           []mail.Address{{Name: "Kid", Address: "kid@test.test"}, {Address: "prof@test.test"}},
		Subject:      "Activate your account",
		TemplateName: "activate_account",
		TextContent:  "hi",
		HTMLContent:  "<p>hi</p>",
	})

	assert.Equal(t, "[Tutorfinder] Activate your account", m.Subject)
	assert.Equal(t, "noreply@localhost", m.From.Address)
	require.Len(t, m.Personalizations, 2)
	assert.Equal(t, "kid@test.test", m.Personalizations[0].To[0].Address)
	assert.Equal(t, "prof@test.test", m.Personalizations[1].To[0].Address)
	require.Len(t, m.Content, 2)
	assert.Equal(t, "text/plain", m.Content[0].Type)
	assert.Equal(t, []string{"activate_account"}, m.Categories)
	require.NotNil(t, m.MailSettings)
	assert.True(t, *m.MailSettings.SandboxMode.Enable)

	svc.sandbox = false
	m = svc.prepare(core.EmailMessage{To: []mail.Address{{Address: "kid@test.test"}}, TextContent: "hi"})
	require.Len(t, m.Content, 1)
	assert.Equal(t, []string{defaultCategory}, m.Categories)
	assert.Nil(t, m.MailSettings)
}

func TestCheckResponse(t *testing.T) {
	assert.NoError(t, checkResponse(&rest.Response{StatusCode: http.StatusAccepted}, nil))
	assert.EqualError(t, checkResponse(&rest.Response{StatusCode: http.StatusUnauthorized, Body: "bad key"}, nil), "status 401: bad key")
}

func TestConsoleServiceMock(t *testing.T) {
	svc := NewConsoleServiceMock(core.NewTestConfig(), nil)
	svc.SendMessages(
		&core.EmailMessage{To: []mail.Address{{Address: "kid@test.test"}}, Subject: "hello", BodyStr: "body"},
		&core.EmailMessage{Subject: "nobody", BodyStr: "body"},
	)

	sent := svc.SentMessages()
	require.Len(t, sent, 1)
	assert.Equal(t, "body", sent[0].TextContent)

	svc.Reset()
	assert.Empty(t, svc.SentMessages())
}
