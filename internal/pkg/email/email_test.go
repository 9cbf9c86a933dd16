package email

import (
	"errors"
	"net/smtp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/transcriptflow/server/config"
)

type sentMail struct {
	addr string
	from string
	to   []string
	msg  string
}

func newTestService(cfg *config.EmailConfig) (*Service, *[]sentMail) {
	var sent []sentMail
	s := NewService(cfg)
	s.send = func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		sent = append(sent, sentMail{addr: addr, from: from, to: to, msg: string(msg)})
		return nil
	}
	return s, &sent
}

func testConfig() *config.EmailConfig {
	return &config.EmailConfig{
		SMTPHost: "smtp.example.com",
		SMTPPort: 587,
		Username: "bot",
		Password: "secret",
		From:     "noreply@example.com",
	}
}

func TestSendPasswordReset(t *testing.T) {
	s, sent := newTestService(testConfig())

	err := s.SendPasswordReset("alice@example.com", "alice", "http://localhost/reset?token=abc", 60)
	require.NoError(t, err)
	require.Len(t, *sent, 1)

	mail := (*sent)[0]
	assert.Equal(t, "smtp.example.com:587", mail.addr)
	assert.Equal(t, "noreply@example.com", mail.from)
	assert.Equal(t, []string{"alice@example.com"}, mail.to)
	assert.Contains(t, mail.msg, "To: alice@example.com\r\n")
	assert.Contains(t, mail.msg, "Content-Type: text/html; charset=UTF-8\r\n")
	assert.Contains(t, mail.msg, "http://localhost/reset?token=abc")
	assert.Contains(t, mail.msg, "60 分钟")
}

func TestSendWelcome_EscapesName(t *testing.T) {
	s, sent := newTestService(testConfig())

	err := s.SendWelcome("bob@example.com", "<bob>")
	require.NoError(t, err)
	require.Len(t, *sent, 1)
	assert.Contains(t, (*sent)[0].msg, "&lt;bob&gt;")
	assert.NotContains(t, (*sent)[0].msg, "<bob>")
}

func TestSend_NotConfigured(t *testing.T) {
	s, sent := newTestService(&config.EmailConfig{})

	assert.False(t, s.Configured())
	err := s.SendWelcome("bob@example.com", "bob")
	assert.Error(t, err)
	assert.Empty(t, *sent)
}

func TestSend_PropagatesSMTPError(t *testing.T) {
	s := NewService(testConfig())
	s.send = func(string, smtp.Auth, string, []string, []byte) error {
		return errors.New("connection refused")
	}

	err := s.SendWelcome("bob@example.com", "bob")
	assert.EqualError(t, err, "connection refused")
}
