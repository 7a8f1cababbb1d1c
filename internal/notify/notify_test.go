package notify

import (
	"testing"

	"gridee/internal/config"
	"gridee/internal/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type captureSender struct {
	sent []tgbotapi.MessageConfig
}

func (c *captureSender) Send(m tgbotapi.Chattable) (tgbotapi.Message, error) {
	if msg, ok := m.(tgbotapi.MessageConfig); ok {
		c.sent = append(c.sent, msg)
	}
	return tgbotapi.Message{}, nil
}

func TestDisabledNotifierIsNoOp(t *testing.T) {
	logger := zerolog.Nop()
	n, err := New(config.NotifyConfig{}, &logger)
	require.NoError(t, err)

	assert.NotPanics(t, func() {
		n.PaymentFailed("u1", "order_123", 500, "card declined")
		n.GateRefused(models.Booking{ID: "b1"}, "not pending")
		n.ExportReady("u1", "/tmp/out.xlsx")
	})
}

func TestMessagesCarryContext(t *testing.T) {
	logger := zerolog.Nop()
	capture := &captureSender{}
	n := &Notifier{bot: capture, chatID: 42, logger: &logger}

	n.PaymentFailed("u1", "order_123", 500, "card declined")
	n.GateRefused(models.Booking{ID: "b1", Status: models.StatusCompleted}, "terminal status")

	require.Len(t, capture.sent, 2)
	assert.Equal(t, int64(42), capture.sent[0].ChatID)
	assert.Contains(t, capture.sent[0].Text, "order_123")
	assert.Contains(t, capture.sent[0].Text, "card declined")
	assert.Contains(t, capture.sent[1].Text, "b1")
	assert.Contains(t, capture.sent[1].Text, models.StatusCompleted)
}
