package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
	"unicode/utf8"
)

const (
	discordTitleLimit       = 256
	discordDescriptionLimit = 4096
	discordUsername         = "sportsedge"
	discordColor            = 0x2ecc71
)

type discordEmbed struct {
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Color       int    `json:"color"`
	Timestamp   string `json:"timestamp"`
}

type discordPayload struct {
	Username string         `json:"username"`
	Embeds   []discordEmbed `json:"embeds"`
}

// DiscordSender posts embeds to a Discord webhook.
type DiscordSender struct {
	webhookURL string
	client     *http.Client
	now        func() time.Time
}

// NewDiscordSender creates a DiscordSender with a 10 second timeout.
func NewDiscordSender(webhookURL string) *DiscordSender {
	return &DiscordSender{
		webhookURL: webhookURL,
		client:     &http.Client{Timeout: 10 * time.Second},
		now:        time.Now,
	}
}

// Send posts one embed. Title and message are cut to Discord's field limits.
func (d *DiscordSender) Send(ctx context.Context, title, message string) error {
	body, err := json.Marshal(discordPayload{
		Username: discordUsername,
		Embeds: []discordEmbed{{
			Title:       truncateRunes(title, discordTitleLimit),
			Description: truncateRunes(message, discordDescriptionLimit),
			Color:       discordColor,
			Timestamp:   d.now().UTC().Format(time.RFC3339),
		}},
	})
	if err != nil {
		return fmt.Errorf("discord: encode embed: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("discord: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("discord: post webhook: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return fmt.Errorf("discord: rate limited, retry after %ss", resp.Header.Get("Retry-After"))
	case resp.StatusCode/100 != 2:
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("discord: status %d: %s", resp.StatusCode, bytes.TrimSpace(snippet))
	}
	return nil
}

// Name returns "discord".
func (d *DiscordSender) Name() string { return "discord" }

// truncateRunes shortens s to at most limit runes, marking the cut with "...".
func truncateRunes(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	r := []rune(s)
	return string(r[:limit-3]) + "..."
}
