package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

const (
	TelegramMaxLength = 4096
	DiscordMaxLength  = 2000
	PushPlusMaxLength = 20000

	DefaultTelegramAPI = "https://api.telegram.org"
	DefaultPushPlusURL = "https://www.pushplus.plus/send"

	discordUsername = "Rewards Farmer"
)

// Telegram sends messages through the Bot API.
type Telegram struct {
	apiBase string
	token   string
	chatID  string
	client  *resty.Client
}

// NewTelegram creates a Telegram channel. An empty apiBase uses the public Bot API.
func NewTelegram(apiBase, token, chatID string, timeout time.Duration) *Telegram {
	if apiBase == "" {
		apiBase = DefaultTelegramAPI
	}
	return &Telegram{
		apiBase: strings.TrimRight(apiBase, "/"),
		token:   token,
		chatID:  chatID,
		client:  newRestyClient(timeout),
	}
}

func (t *Telegram) Name() string   { return "telegram" }
func (t *Telegram) MaxLength() int { return TelegramMaxLength }

func (t *Telegram) Send(ctx context.Context, title, text string) error {
	resp, err := t.client.R().
		SetContext(ctx).
		SetFormData(map[string]string{
			"chat_id": t.chatID,
			"text":    withTitle(title, text),
		}).
		Post(fmt.Sprintf("%s/bot%s/sendMessage", t.apiBase, t.token))
	if err != nil {
		return fmt.Errorf("telegram request failed: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return fmt.Errorf("telegram returned status %d", resp.StatusCode())
	}
	return nil
}

// Discord posts messages to a webhook.
type Discord struct {
	webhookURL string
	client     *resty.Client
}

// NewDiscord creates a Discord webhook channel.
func NewDiscord(webhookURL string, timeout time.Duration) *Discord {
	return &Discord{webhookURL: webhookURL, client: newRestyClient(timeout)}
}

func (d *Discord) Name() string   { return "discord" }
func (d *Discord) MaxLength() int { return DiscordMaxLength }

func (d *Discord) Send(ctx context.Context, title, text string) error {
	resp, err := d.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(map[string]string{
			"username": discordUsername,
			"content":  withTitle(title, text),
		}).
		Post(d.webhookURL)
	if err != nil {
		return fmt.Errorf("discord request failed: %w", err)
	}
	// Webhooks answer 204 No Content on success.
	if resp.StatusCode() != http.StatusOK && resp.StatusCode() != http.StatusNoContent {
		return fmt.Errorf("discord returned status %d", resp.StatusCode())
	}
	return nil
}

// PushPlus sends messages to WeChat through pushplus.
type PushPlus struct {
	url    string
	token  string
	client *resty.Client
}

// NewPushPlus creates a PushPlus channel. An empty url uses the public endpoint.
func NewPushPlus(url, token string, timeout time.Duration) *PushPlus {
	if url == "" {
		url = DefaultPushPlusURL
	}
	return &PushPlus{url: url, token: token, client: newRestyClient(timeout)}
}

func (p *PushPlus) Name() string   { return "pushplus" }
func (p *PushPlus) MaxLength() int { return PushPlusMaxLength }

func (p *PushPlus) Send(ctx context.Context, title, text string) error {
	resp, err := p.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"token":    p.token,
			"title":    title,
			"content":  strings.ReplaceAll(text, "\n", "<br>"),
			"template": "html",
		}).
		Get(p.url)
	if err != nil {
		return fmt.Errorf("pushplus request failed: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return fmt.Errorf("pushplus returned status %d", resp.StatusCode())
	}

	var body struct {
		Code int    `json:"code"`
		Msg  string `json:"msg"`
	}
	if err := json.Unmarshal(resp.Body(), &body); err == nil && body.Code != 0 && body.Code != http.StatusOK {
		return fmt.Errorf("pushplus rejected message: %d %s", body.Code, body.Msg)
	}
	return nil
}

var (
	_ Channel = (*Telegram)(nil)
	_ Channel = (*Discord)(nil)
	_ Channel = (*PushPlus)(nil)
)
