package email

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/gomail.v2"

	"github.com/qs3c/visionflow_server/config"
)

func newCapturingService(t *testing.T) (*Service, *[]*gomail.Message) {
	t.Helper()

	sent := []*gomail.Message{}
	s := NewService(&config.EmailConfig{
		SMTPHost: "smtp.example.com",
		SMTPPort: 587,
		From:     "noreply@visionflow.ai",
	})
	s.send = func(m *gomail.Message) error {
		sent = append(sent, m)
		return nil
	}
	return s, &sent
}

func render(t *testing.T, m *gomail.Message) string {
	t.Helper()

	var buf bytes.Buffer
	_, err := m.WriteTo(&buf)
	require.NoError(t, err)
	return buf.String()
}

func TestSendOrderApproved(t *testing.T) {
	s, sent := newCapturingService(t)

	endAt := time.Date(2026, 11, 14, 9, 30, 0, 0, time.UTC)
	require.NoError(t, s.SendOrderApproved("rahim@example.com", "Rahim", "Pro", endAt))

	require.Len(t, *sent, 1)
	m := (*sent)[0]
	assert.Equal(t, []string{"rahim@example.com"}, m.GetHeader("To"))
	assert.Equal(t, []string{"noreply@visionflow.ai"}, m.GetHeader("From"))
	assert.Contains(t, render(t, m), "2026-11-14 09:30")
}

func TestSendOrderRejected_EscapesNote(t *testing.T) {
	s, sent := newCapturingService(t)

	require.NoError(t, s.SendOrderRejected("a@example.com", "A", "Basic", "<b>wrong TrxID</b>"))

	require.Len(t, *sent, 1)
	body := render(t, (*sent)[0])
	assert.NotContains(t, body, "<b>wrong TrxID</b>")
}

func TestSend_WrapsError(t *testing.T) {
	s, _ := newCapturingService(t)
	s.send = func(*gomail.Message) error { return errors.New("dial tcp: refused") }

	err := s.SendOrderRejected("a@example.com", "A", "Basic", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "a@example.com")
}

func TestEnabled(t *testing.T) {
	assert.False(t, NewService(&config.EmailConfig{}).Enabled())

	s, _ := newCapturingService(t)
	assert.True(t, s.Enabled())

	var nilService *Service
	assert.False(t, nilService.Enabled())
}
