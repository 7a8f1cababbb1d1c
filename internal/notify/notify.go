// Package notify pushes operator alerts to a Telegram chat: failed
// settlements, gate refusals, export completions. Disabled unless a
// token and chat id are configured; every method is then a no-op.
package notify

import (
	"fmt"

	"gridee/internal/config"
	"gridee/internal/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
)

// sender is the slice of the bot API the notifier uses.
type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

type Notifier struct {
	bot    sender
	chatID int64
	logger *zerolog.Logger
}

// New connects to Telegram. Returns a disabled notifier when the
// config carries no credentials.
func New(cfg config.NotifyConfig, logger *zerolog.Logger) (*Notifier, error) {
	if !cfg.Enabled() {
		logger.Info().Msg("operator notifications disabled")
		return &Notifier{logger: logger}, nil
	}
	botAPI, err := tgbotapi.NewBotAPI(cfg.TelegramToken)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to telegram: %w", err)
	}
	return &Notifier{bot: botAPI, chatID: cfg.ChatID, logger: logger}, nil
}

func (n *Notifier) send(text string) {
	if n.bot == nil {
		return
	}
	msg := tgbotapi.NewMessage(n.chatID, text)
	if _, err := n.bot.Send(msg); err != nil {
		n.logger.Error().Err(err).Msg("failed to send operator notification")
	}
}

// PaymentFailed reports a settlement that did not go through.
func (n *Notifier) PaymentFailed(userID, orderID string, amount float64, reason string) {
	n.send(fmt.Sprintf("⚠️ Payment failed\nUser: %s\nOrder: %s\nAmount: %.2f\nReason: %s",
		userID, orderID, amount, reason))
}

// GatePassed reports a successful check-in or check-out.
func (n *Notifier) GatePassed(booking models.Booking, action string) {
	n.send(fmt.Sprintf("✅ %s: booking %s is now %s", action, booking.ID, booking.Status))
}

// GateRefused reports a scan the gate rejected.
func (n *Notifier) GateRefused(booking models.Booking, reason string) {
	n.send(fmt.Sprintf("🚧 Gate refused booking %s (status %s)\nReason: %s",
		booking.ID, booking.Status, reason))
}

// ExportReady reports a finished history export.
func (n *Notifier) ExportReady(userID, path string) {
	n.send(fmt.Sprintf("📄 Export ready for user %s\n%s", userID, path))
}
