// Package alert delivers operational alerts to a webhook and optionally a
// Telegram chat. Delivery is best-effort and never blocks the caller.
package alert

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/JPJPKIMJP/AMLWD/internal/domain/enums"
)

type Alert struct {
	Title     string              `json:"title"`
	Message   string              `json:"message"`
	Severity  enums.AlertSeverity `json:"severity"`
	Timestamp time.Time           `json:"timestamp"`
	Project   string              `json:"project"`
}

type Sender interface {
	Send(ctx context.Context, a Alert) error
}

type WebhookSender struct {
	url    string
	client *http.Client
}

func NewWebhookSender(url string, client *http.Client) *WebhookSender {
	if client == nil {
		client = http.DefaultClient
	}
	return &WebhookSender{url: strings.TrimSpace(url), client: client}
}

func (s *WebhookSender) Send(ctx context.Context, a Alert) error {
	body, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("marshal alert: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build alert request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("post alert webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("alert webhook returned status %d", resp.StatusCode)
	}
	return nil
}

type textSender interface {
	SendText(ctx context.Context, chatID int64, text string) error
}

type TelegramSender struct {
	bot    textSender
	chatID int64
}

func NewTelegramSender(bot textSender, chatID int64) *TelegramSender {
	return &TelegramSender{bot: bot, chatID: chatID}
}

func (s *TelegramSender) Send(ctx context.Context, a Alert) error {
	text := fmt.Sprintf("[%s] %s\n%s\n%s · %s",
		strings.ToUpper(string(a.Severity)),
		a.Title,
		a.Message,
		a.Project,
		a.Timestamp.UTC().Format(time.RFC3339),
	)
	return s.bot.SendText(ctx, s.chatID, text)
}

// Notifier fans an alert out to every sender on a background goroutine
// bounded by timeout.
type Notifier struct {
	senders []Sender
	project string
	timeout time.Duration
	now     func() time.Time
	logger  *zap.Logger
	wg      sync.WaitGroup
}

func NewNotifier(project string, timeout time.Duration, logger *zap.Logger, senders ...Sender) *Notifier {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	active := make([]Sender, 0, len(senders))
	for _, s := range senders {
		if s != nil {
			active = append(active, s)
		}
	}
	return &Notifier{
		senders: active,
		project: project,
		timeout: timeout,
		now:     time.Now,
		logger:  logger,
	}
}

func (n *Notifier) Notify(ctx context.Context, title, message string, severity enums.AlertSeverity) {
	if n == nil {
		return
	}

	a := Alert{
		Title:     title,
		Message:   message,
		Severity:  severity,
		Timestamp: n.now().UTC(),
		Project:   n.project,
	}
	n.logger.Info("alert",
		zap.String("title", title),
		zap.String("severity", string(severity)),
		zap.String("message", message),
	)
	if len(n.senders) == 0 {
		return
	}

	detached := context.WithoutCancel(ctx)
	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		sendCtx, cancel := context.WithTimeout(detached, n.timeout)
		defer cancel()
		for _, s := range n.senders {
			if err := s.Send(sendCtx, a); err != nil {
				n.logger.Warn("alert delivery failed", zap.Error(err), zap.String("title", title))
			}
		}
	}()
}

// Wait blocks until in-flight deliveries finish.
func (n *Notifier) Wait() {
	if n == nil {
		return
	}
	n.wg.Wait()
}
