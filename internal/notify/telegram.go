package notify

import (
	"fmt"
	"strings"
	"time"

	"deposit-sweeper-go/internal/config"
	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

const telegramAPIBase = "https://api.telegram.org"

// Message is a notification payload: either plain text or an ordered set of
// key/value fields. Both render to a timestamped Telegram HTML message.
type Message interface {
	render(t time.Time) string
}

// Text is a free-text message.
type Text string

func (m Text) render(t time.Time) string {
	return fmt.Sprintf("<i>%s</i><pre>\n%s</pre>", t.Format("2006-01-02 15:04:05"), string(m))
}

// Field is a single key/value entry of a structured message.
type Field struct {
	Key   string
	Value string
}

// Fields is a structured message rendered one key/value block per line.
type Fields []Field

func (m Fields) render(t time.Time) string {
	var b strings.Builder
	fmt.Fprintf(&b, "<i>%s</i>", t.Format("2006-01-02 15:04:05"))
	for _, f := range m {
		fmt.Fprintf(&b, "<pre>\n%s: <strong>%s</strong></pre>", f.Key, f.Value)
	}
	return b.String()
}

// Notifier delivers human-readable notifications. Delivery is best-effort;
// implementations must never fail the caller.
type Notifier interface {
	Send(msg Message)
}

// Nop is a Notifier that discards everything.
type Nop struct{}

func (Nop) Send(Message) {}

// Telegram sends messages to a Telegram chat via the bot API.
type Telegram struct {
	client *resty.Client
	token  string
	chatID string
	logger *zap.Logger
}

// NewTelegram creates a Notifier from the Telegram configuration.
// An empty bot token disables delivery and returns a no-op sink.
func NewTelegram(cfg *config.Telegram, logger *zap.Logger) Notifier {
	if cfg.Token == "" {
		logger.Info("Telegram token not configured, notifications disabled")
		return Nop{}
	}

	return &Telegram{
		client: resty.New().SetBaseURL(telegramAPIBase),
		token:  cfg.Token,
		chatID: cfg.ChatID,
		logger: logger.Named("telegram"),
	}
}

// Send delivers a message to the configured chat. Failures are logged and
// swallowed; notification delivery is never load-bearing.
func (t *Telegram) Send(msg Message) {
	resp, err := t.client.R().
		SetFormData(map[string]string{
			"chat_id":    t.chatID,
			"text":       msg.render(time.Now().UTC()),
			"parse_mode": "HTML",
		}).
		Post(fmt.Sprintf("/bot%s/sendMessage", t.token))

	if err != nil {
		t.logger.Warn("Failed to deliver notification", zap.Error(err))
		return
	}
	if resp.IsError() {
		t.logger.Warn("Telegram rejected notification",
			zap.Int("status", resp.StatusCode()),
			zap.String("body", resp.String()),
		)
	}
}
