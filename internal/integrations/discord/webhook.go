package discord

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"hostreport/internal/models"
	"hostreport/internal/utils"

	cache "github.com/patrickmn/go-cache"
)

const (
	ColorWarning = 0xF0B232
	ColorDanger  = 0xDA373C
)

// Embed represents a minimal Discord embed payload.
// See: https://discord.com/developers/docs/resources/channel#embed-object-embed-structure
type Embed struct {
	Title       string       `json:"title,omitempty"`
	Description string       `json:"description,omitempty"`
	Color       int          `json:"color,omitempty"`
	Timestamp   string       `json:"timestamp,omitempty"`
	Footer      *EmbedFooter `json:"footer,omitempty"`
	Fields      []EmbedField `json:"fields,omitempty"`
}

type EmbedFooter struct {
	Text string `json:"text,omitempty"`
}

type EmbedField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline"`
}

// WebhookPayload is the JSON body for Discord webhooks.
type WebhookPayload struct {
	Content string  `json:"content,omitempty"`
	Embeds  []Embed `json:"embeds,omitempty"`
}

var defaultClient = &http.Client{Timeout: 8 * time.Second}

// Post sends a JSON webhook to the provided URL. Returns the HTTP status code and any error.
func Post(ctx context.Context, webhookURL string, payload WebhookPayload) (int, error) {
	if webhookURL == "" {
		return 0, nil
	}
	b, err := json.Marshal(payload)
	if err != nil {
		return 0, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, webhookURL, bytes.NewReader(b))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := defaultClient.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	return resp.StatusCode, nil
}

// NewEmbed creates an embed with timestamp set to now in RFC3339 format.
func NewEmbed(title, description string, color int, footer string) Embed {
	return Embed{
		Title:       title,
		Description: description,
		Color:       color,
		Timestamp:   time.Now().UTC().Format(time.RFC3339),
		Footer:      &EmbedFooter{Text: footer},
	}
}

// Notifier posts an alert when a snapshot lands in the filtered view. At most
// one alert per label is sent within the cooldown window.
type Notifier struct {
	webhookURL string
	cooldown   time.Duration
	logger     *utils.Logger
	sent       *cache.Cache // label -> time of the last alert
}

func NewNotifier(webhookURL string, cooldown time.Duration, logger *utils.Logger) *Notifier {
	cleanup := cooldown
	if cleanup <= 0 {
		cleanup = time.Minute
	}
	return &Notifier{
		webhookURL: webhookURL,
		cooldown:   cooldown,
		logger:     logger,
		sent:       cache.New(cooldown, cleanup),
	}
}

// Enabled reports whether a webhook URL is configured.
func (n *Notifier) Enabled() bool {
	return n != nil && n.webhookURL != ""
}

// AllocationAlert posts s when its allocation percent exceeds threshold. It
// returns true when a message was delivered.
func (n *Notifier) AllocationAlert(ctx context.Context, s *models.SystemSnapshot, threshold float64) (bool, error) {
	if !n.Enabled() || s == nil || !(s.AllocationPercent > threshold) {
		return false, nil
	}
	if !n.reserve(s.ServerName) {
		return false, nil
	}

	status, err := Post(ctx, n.webhookURL, WebhookPayload{Embeds: []Embed{allocationEmbed(s, threshold)}})
	if err == nil && (status < 200 || status >= 300) {
		err = fmt.Errorf("discord webhook returned status %d", status)
	}
	if err != nil {
		n.release(s.ServerName)
		if n.logger != nil {
			n.logger.Writef("Discord alert for %q failed: %v", s.ServerName, err)
		}
		return false, err
	}
	if n.logger != nil {
		n.logger.Writef("Discord alert sent for %q (allocation %.2f%%)", s.ServerName, s.AllocationPercent)
	}
	return true, nil
}

// reserve claims the label's slot so concurrent collections send one alert.
// Add fails while an unexpired entry exists.
func (n *Notifier) reserve(label string) bool {
	if n.cooldown <= 0 {
		return true
	}
	return n.sent.Add(label, time.Now(), n.cooldown) == nil
}

func (n *Notifier) release(label string) {
	n.sent.Delete(label)
}

func allocationEmbed(s *models.SystemSnapshot, threshold float64) Embed {
	color := ColorWarning
	if s.AllocationPercent >= 90 {
		color = ColorDanger
	}
	embed := NewEmbed(
		"High virtual memory allocation",
		fmt.Sprintf("**%s** is above the %s%% allocation threshold.", s.ServerName, fmtFloat(threshold)),
		color,
		"hostreport",
	)
	embed.Fields = []EmbedField{
		{Name: "Allocation", Value: fmtFloat(s.AllocationPercent) + "%", Inline: true},
		{Name: "Allocated / Total", Value: fmtFloat(s.AllocatedVirtualGB) + " / " + fmtFloat(s.TotalVirtualGB) + " GB", Inline: true},
		{Name: "Memory", Value: fmtFloat(s.UsedMemoryPercent) + "%", Inline: true},
		{Name: "Swap", Value: fmtFloat(s.UsedSwapPercent) + "%", Inline: true},
		{Name: "Uptime", Value: s.Uptime, Inline: false},
	}
	return embed
}

func fmtFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}
