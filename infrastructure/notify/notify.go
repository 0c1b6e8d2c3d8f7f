// Package notify delivers run summaries to chat channels.
package notify

import (
	"context"
	"log/slog"
	"time"

	"github.com/go-resty/resty/v2"
)

// Channel is one notification destination.
type Channel interface {
	// Name identifies the channel in logs.
	Name() string

	// MaxLength is the longest message, in characters, the channel accepts.
	MaxLength() int

	// Send delivers one message. text plus the title heading fits MaxLength.
	Send(ctx context.Context, title, text string) error
}

// Notifier fans a message out to every configured channel.
// Delivery failures are logged and never retried.
type Notifier struct {
	channels []Channel
	logger   *slog.Logger
}

// New creates a notifier over the given channels.
func New(logger *slog.Logger, channels ...Channel) *Notifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Notifier{
		channels: channels,
		logger:   logger.With("component", "notify"),
	}
}

// Enabled reports whether at least one channel is configured.
func (n *Notifier) Enabled() bool {
	return len(n.channels) > 0
}

// Send delivers message to every channel, split into chunks the channel accepts.
func (n *Notifier) Send(ctx context.Context, title, message string) {
	for _, ch := range n.channels {
		for i, chunk := range Chunk(message, bodyLimit(ch.MaxLength(), title)) {
			if err := ch.Send(ctx, title, chunk); err != nil {
				n.logger.Warn("Notification failed", "channel", ch.Name(), "chunk", i, "error", err)
				break
			}
		}
	}
}

// Chunk splits s into pieces of at most limit characters. limit <= 0 disables splitting.
func Chunk(s string, limit int) []string {
	runes := []rune(s)
	if limit <= 0 || len(runes) <= limit {
		return []string{s}
	}

	chunks := make([]string, 0, (len(runes)+limit-1)/limit)
	for start := 0; start < len(runes); start += limit {
		end := min(start+limit, len(runes))
		chunks = append(chunks, string(runes[start:end]))
	}
	return chunks
}

// withTitle puts title on its own line above text.
func withTitle(title, text string) string {
	if title == "" {
		return text
	}
	return title + "\n\n" + text
}

// bodyLimit leaves room in limit for the title heading added by withTitle.
func bodyLimit(limit int, title string) int {
	if limit <= 0 || title == "" {
		return limit
	}
	overhead := len([]rune(title)) + 2
	if overhead >= limit {
		return limit
	}
	return limit - overhead
}

// newRestyClient is shared by the channel implementations.
func newRestyClient(timeout time.Duration) *resty.Client {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return resty.New().SetTimeout(timeout)
}
