package alert

import (
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/JPJPKIMJP/AMLWD/internal/config"
	tginfra "github.com/JPJPKIMJP/AMLWD/internal/infra/telegram"
)

// FromConfig builds a Notifier with a webhook sender and, when a token
// and chat are configured, a Telegram sender. A Telegram init failure
// only disables that sink.
func FromConfig(cfg config.AlertsConfig, client *http.Client, logger *zap.Logger) *Notifier {
	if logger == nil {
		logger = zap.NewNop()
	}

	var senders []Sender
	if strings.TrimSpace(cfg.WebhookURL) != "" {
		senders = append(senders, NewWebhookSender(cfg.WebhookURL, client))
	}
	if strings.TrimSpace(cfg.TelegramToken) != "" && cfg.TelegramChatID != 0 {
		bot, err := tginfra.NewBot(cfg.TelegramToken)
		if err != nil {
			logger.Warn("telegram alerts disabled", zap.Error(err))
		} else {
			senders = append(senders, NewTelegramSender(bot, cfg.TelegramChatID))
		}
	}

	return NewNotifier(cfg.Project, cfg.Timeout, logger, senders...)
}

func (n *Notifier) Enabled() bool {
	return n != nil && len(n.senders) > 0
}
