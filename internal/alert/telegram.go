package alert

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"html"
	"net/http"
	"sort"
	"strings"
	"time"
)

// TelegramChannel delivers alerts through the Bot API sendMessage call.
// Messages are rendered as HTML so field values never need Markdown
// escaping. Missing credentials make Send a no-op.
type TelegramChannel struct {
	botToken string
	chatID   string
	client   *http.Client
}

func NewTelegramChannel(botToken, chatID string) *TelegramChannel {
	return &TelegramChannel{
		botToken: botToken,
		chatID:   chatID,
		client:   &http.Client{Timeout: 5 * time.Second},
	}
}

func (t *TelegramChannel) Name() string {
	return "telegram"
}

type telegramMessage struct {
	ChatID             string `json:"chat_id"`
	Text               string `json:"text"`
	ParseMode          string `json:"parse_mode"`
	DisableLinkPreview bool   `json:"disable_web_page_preview"`
}

func levelIcon(level AlertLevel) string {
	switch level {
	case Warning:
		return "⚠️"
	case Error:
		return "❌"
	case Critical:
		return "🚨"
	default:
		return "ℹ️"
	}
}

func renderTelegramText(alert AlertPayload) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s <b>[%s] %s</b>\n\n%s",
		levelIcon(alert.Level), alert.Level,
		html.EscapeString(alert.Title), html.EscapeString(alert.Message))

	if alert.Account != "" {
		fmt.Fprintf(&b, "\n\n• <b>account</b>: %s", html.EscapeString(alert.Account))
	}
	keys := make([]string, 0, len(alert.Fields))
	for k := range alert.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, "\n• <b>%s</b>: %s", html.EscapeString(k), html.EscapeString(alert.Fields[k]))
	}
	return b.String()
}

func (t *TelegramChannel) Send(ctx context.Context, alert AlertPayload) error {
	if t.botToken == "" || t.chatID == "" {
		return nil
	}

	msg := telegramMessage{
		ChatID:             t.chatID,
		Text:               renderTelegramText(alert),
		ParseMode:          "HTML",
		DisableLinkPreview: true,
	}
	body, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	url := fmt.Sprintf("https://api.telegram.org/bot%s/sendMessage", t.botToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("telegram api failed with status: %d", resp.StatusCode)
	}
	return nil
}
