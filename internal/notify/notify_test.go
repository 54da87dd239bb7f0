package notify

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/wneessen/go-mail"
)

type mockMailClient struct {
	mock.Mock
}

func (m *mockMailClient) DialAndSendWithContext(ctx context.Context, messages ...*mail.Msg) error {
	args := m.Called(ctx, messages)
	return args.Error(0)
}

func TestSMTPMailer_Send(t *testing.T) {
	client := &mockMailClient{}
	m := &SMTPMailer{from: "noreply@example.com", timeout: time.Second, client: client}

	var sent string
	client.On("DialAndSendWithContext", mock.MatchedBy(func(ctx context.Context) bool {
		_, ok := ctx.Deadline()
		return ok
	}), mock.Anything).Run(func(args mock.Arguments) {
		msgs := args.Get(1).([]*mail.Msg)
		require.Len(t, msgs, 1)
		var buf bytes.Buffer
		_, err := msgs[0].WriteTo(&buf)
		require.NoError(t, err)
		sent = buf.String()
	}).Return(nil).Once()

	err := m.Send(context.Background(), Message{To: "bob@example.com", Subject: "Your code\r\nBcc: x", Body: "123456"})
	require.NoError(t, err)
	client.AssertExpectations(t)
	assert.Contains(t, sent, "bob@example.com")
	assert.Contains(t, sent, "Your code  Bcc: x")
	assert.NotContains(t, sent, "\r\nBcc: x")
	assert.Contains(t, sent, "123456")
}

func TestSMTPMailer_Errors(t *testing.T) {
	client := &mockMailClient{}
	client.On("DialAndSendWithContext", mock.Anything, mock.Anything).Return(errors.New("refused"))
	m := &SMTPMailer{from: "noreply@example.com", timeout: time.Second, client: client}

	assert.Error(t, m.Send(context.Background(), Message{}))
	assert.Error(t, m.Send(context.Background(), Message{To: "not an address"}))
	assert.ErrorContains(t, m.Send(context.Background(), Message{To: "a@b.c"}), "refused")
	client.AssertNumberOfCalls(t, "DialAndSendWithContext", 1)
}

func TestNewSMTPMailer(t *testing.T) {
	m, err := NewSMTPMailer("mail.example.com", 587, "user", "secret", "noreply@example.com", 0)
	require.NoError(t, err)
	assert.Equal(t, DefaultSMTPTimeout, m.timeout)
}

type mockSender struct {
	mock.Mock
}

func (m *mockSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	args := m.Called(c)
	return tgbotapi.Message{}, args.Error(0)
}

func TestTelegram_Post(t *testing.T) {
	s := &mockSender{}
	s.On("Send", mock.MatchedBy(func(c tgbotapi.Chattable) bool {
		msg, ok := c.(tgbotapi.MessageConfig)
		return ok && msg.ChatID == 42 && msg.Text == "booking 1 created"
	})).Return(nil).Once()

	tg := &Telegram{api: s, chatID: 42}
	require.NoError(t, tg.Post(context.Background(), "booking 1 created"))
	s.AssertExpectations(t)
}
