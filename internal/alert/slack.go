package alert

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"time"
)

// SlackChannel posts alerts to an incoming webhook as a single colored
// attachment. An empty webhook URL turns the channel into a no-op so it
// can stay registered regardless of configuration.
type SlackChannel struct {
	webhookURL string
	client     *http.Client
}

func NewSlackChannel(webhookURL string) *SlackChannel {
	return &SlackChannel{
		webhookURL: webhookURL,
		client:     &http.Client{Timeout: 5 * time.Second},
	}
}

func (s *SlackChannel) Name() string {
	return "slack"
}

type slackField struct {
	Title string `json:"title"`
	Value string `json:"value"`
	Short bool   `json:"short"`
}

type slackAttachment struct {
	Color   string       `json:"color"`
	Pretext string       `json:"pretext"`
	Text    string       `json:"text"`
	Fields  []slackField `json:"fields,omitempty"`
	Footer  string       `json:"footer"`
	Ts      int64        `json:"ts"`
}

func levelColor(level AlertLevel) string {
	switch level {
	case Warning:
		return "#ffcc00"
	case Error:
		return "#ff0000"
	case Critical:
		return "#8b0000"
	default:
		return "#36a64f"
	}
}

func (s *SlackChannel) Send(ctx context.Context, alert AlertPayload) error {
	if s.webhookURL == "" {
		return nil
	}

	att := slackAttachment{
		Color:   levelColor(alert.Level),
		Pretext: fmt.Sprintf("[%s] %s", alert.Level, alert.Title),
		Text:    alert.Message,
		Footer:  fmt.Sprintf("botfarm %s", alert.ID),
		Ts:      alert.Timestamp.Unix(),
	}
	if alert.Account != "" {
		att.Fields = append(att.Fields, slackField{Title: "account", Value: alert.Account, Short: true})
	}
	// Deterministic field order keeps repeated alerts diffable in the channel.
	keys := make([]string, 0, len(alert.Fields))
	for k := range alert.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		att.Fields = append(att.Fields, slackField{Title: k, Value: alert.Fields[k], Short: true})
	}

	body, err := json.Marshal(map[string][]slackAttachment{"attachments": {att}})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.webhookURL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("slack webhook failed with status: %d", resp.StatusCode)
	}
	return nil
}
