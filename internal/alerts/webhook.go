package alerts

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"sort"
	"time"

	json "github.com/goccy/go-json"
	"go.uber.org/zap"
)

const (
	defaultWebhookTimeout = 10 * time.Second

	footerText = "Kalshi Arbitrage Bot"
)

// SlackSink posts alerts to a Slack incoming webhook.
type SlackSink struct {
	url    string
	client *http.Client
	logger *zap.Logger
}

// NewSlackSink creates a Slack webhook sink.
func NewSlackSink(url string, timeout time.Duration, logger *zap.Logger) *SlackSink {
	if timeout <= 0 {
		timeout = defaultWebhookTimeout
	}
	return &SlackSink{
		url:    url,
		client: &http.Client{Timeout: timeout},
		logger: logger,
	}
}

// Name implements Sink.
func (s *SlackSink) Name() string { return "slack" }

type slackField struct {
	Title string `json:"title"`
	Value string `json:"value"`
	Short bool   `json:"short"`
}

type slackAttachment struct {
	Color  string       `json:"color"`
	Title  string       `json:"title"`
	Text   string       `json:"text"`
	Ts     int64        `json:"ts"`
	Footer string       `json:"footer"`
	Fields []slackField `json:"fields,omitempty"`
}

type slackPayload struct {
	Attachments []slackAttachment `json:"attachments"`
}

// Send implements Sink.
func (s *SlackSink) Send(ctx context.Context, alert Alert) error {
	attachment := slackAttachment{
		Color:  slackColor(alert.Level),
		Title:  levelEmoji(alert.Level) + " " + alert.Title,
		Text:   alert.Message,
		Ts:     alert.Timestamp.Unix(),
		Footer: footerText,
	}
	for _, d := range sortedDetails(alert.Details) {
		attachment.Fields = append(attachment.Fields, slackField{
			Title: d.name,
			Value: d.value,
			Short: true,
		})
	}

	return postJSON(ctx, s.client, s.url, slackPayload{
		Attachments: []slackAttachment{attachment},
	}, func(status int) bool { return status == http.StatusOK })
}

// DiscordSink posts alerts to a Discord webhook.
type DiscordSink struct {
	url    string
	client *http.Client
	logger *zap.Logger
}

// NewDiscordSink creates a Discord webhook sink.
func NewDiscordSink(url string, timeout time.Duration, logger *zap.Logger) *DiscordSink {
	if timeout <= 0 {
		timeout = defaultWebhookTimeout
	}
	return &DiscordSink{
		url:    url,
		client: &http.Client{Timeout: timeout},
		logger: logger,
	}
}

// Name implements Sink.
func (d *DiscordSink) Name() string { return "discord" }

type discordField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline"`
}

type discordFooter struct {
	Text string `json:"text"`
}

type discordEmbed struct {
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Color       int            `json:"color"`
	Timestamp   string         `json:"timestamp"`
	Footer      discordFooter  `json:"footer"`
	Fields      []discordField `json:"fields,omitempty"`
}

type discordPayload struct {
	Embeds []discordEmbed `json:"embeds"`
}

// Send implements Sink.
func (d *DiscordSink) Send(ctx context.Context, alert Alert) error {
	embed := discordEmbed{
		Title:       levelEmoji(alert.Level) + " " + alert.Title,
		Description: alert.Message,
		Color:       discordColor(alert.Level),
		Timestamp:   alert.Timestamp.UTC().Format(time.RFC3339),
		Footer:      discordFooter{Text: footerText},
	}
	for _, det := range sortedDetails(alert.Details) {
		embed.Fields = append(embed.Fields, discordField{
			Name:   det.name,
			Value:  det.value,
			Inline: true,
		})
	}

	return postJSON(ctx, d.client, d.url, discordPayload{
		Embeds: []discordEmbed{embed},
	}, func(status int) bool { return status == http.StatusOK || status == http.StatusNoContent })
}

func postJSON(ctx context.Context, client *http.Client, url string, payload any, accept func(int) bool) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("post webhook: %w", err)
	}
	defer resp.Body.Close()

	if !accept(resp.StatusCode) {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}

type detail struct{ name, value string }

// sortedDetails renders detail fields in a stable order.
func sortedDetails(details map[string]string) []detail {
	names := make([]string, 0, len(details))
	for name := range details {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]detail, len(names))
	for i, name := range names {
		out[i] = detail{name: name, value: details[name]}
	}
	return out
}

func slackColor(level Level) string {
	switch level {
	case LevelWarning:
		return "#ff9800"
	case LevelError:
		return "#f44336"
	case LevelCritical:
		return "#9c27b0"
	default:
		return "#36a64f"
	}
}

func discordColor(level Level) int {
	switch level {
	case LevelWarning:
		return 16750848
	case LevelError:
		return 15930932
	case LevelCritical:
		return 10233904
	default:
		return 3592283
	}
}

func levelEmoji(level Level) string {
	switch level {
	case LevelWarning:
		return ":warning:"
	case LevelError:
		return ":x:"
	case LevelCritical:
		return ":rotating_light:"
	default:
		return ":information_source:"
	}
}
