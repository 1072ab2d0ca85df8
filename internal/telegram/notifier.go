package telegram

import (
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/camuig/rus-portfolio/internal/alerts"
	"github.com/camuig/rus-portfolio/internal/config"
	"github.com/camuig/rus-portfolio/internal/logger"
	"github.com/camuig/rus-portfolio/internal/performance"
	"github.com/camuig/rus-portfolio/internal/storage"
)

type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

type Notifier struct {
	bot     sender
	chatID  int64
	enabled bool
	logger  *logger.Logger
}

func NewNotifier(cfg *config.Config, log *logger.Logger) *Notifier {
	if !cfg.Telegram.Enabled {
		return &Notifier{enabled: false, logger: log}
	}

	bot, err := tgbotapi.NewBotAPI(cfg.Telegram.BotToken)
	if err != nil {
		log.Error("failed to create telegram bot", "error", err)
		return &Notifier{enabled: false, logger: log}
	}

	log.Info("telegram bot connected", "username", bot.Self.UserName)

	return &Notifier{
		bot:     bot,
		chatID:  cfg.Telegram.ChatID,
		enabled: true,
		logger:  log,
	}
}

func (n *Notifier) NotifyAlert(f alerts.Firing) {
	var msg string
	switch f.Kind {
	case alerts.KindPercentage:
		emoji := "📈"
		if f.ChangePct.IsNegative() {
			emoji = "📉"
		}
		msg = fmt.Sprintf("%s *%s* изменилась на %s%%\nЦена: %s ₽ (база %s ₽)\nПорог: %s%%",
			emoji, f.Ticker, f.ChangePct.StringFixed(2), f.Price, f.Baseline, f.Threshold)
	default:
		word := "выше"
		if f.Direction == storage.DirectionBelow {
			word = "ниже"
		}
		msg = fmt.Sprintf("🔔 *%s* %s %s ₽\nЦена: %s ₽", f.Ticker, word, f.Threshold, f.Price)
	}
	n.send(msg)
}

// NotifyTracked reports the daily portfolio value with any skipped tickers.
func (n *Notifier) NotifyTracked(r performance.Result) {
	msg := fmt.Sprintf("💼 Стоимость портфеля на %s: %s ₽", r.Sample.Date, r.Sample.TotalValue.StringFixed(2))
	if len(r.Warnings) > 0 {
		skipped := make([]string, len(r.Warnings))
		for i, w := range r.Warnings {
			skipped[i] = w.Ticker
		}
		msg += "\nБез котировок: " + strings.Join(skipped, ", ")
	}
	n.send(msg)
}

func (n *Notifier) NotifyError(context string, err error) {
	msg := fmt.Sprintf("⚠️ *Ошибка* [%s]\n%v", context, err)
	n.send(msg)
}

func (n *Notifier) NotifyStatus(message string) {
	n.send(message)
}

func (n *Notifier) send(text string) {
	if !n.enabled {
		return
	}

	msg := tgbotapi.NewMessage(n.chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown

	if _, err := n.bot.Send(msg); err != nil {
		n.logger.Error("send telegram message", "error", err)
	}
}
