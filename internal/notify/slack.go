package notify

import (
	"context"
	"log/slog"
	"strings"

	"github.com/slack-go/slack"
)

// SlackNotifier posts notices to a Slack channel. Delivery is
// best-effort; a failed post is logged, never propagated, so a broken
// notifier can't take the sync session down with it.
type SlackNotifier struct {
	api     *slack.Client
	channel string
}

// NewSlackNotifier creates a notifier for the given bot token and channel
// id. apiBase overrides the Slack API base URL; leave empty for
// production.
func NewSlackNotifier(token, channel, apiBase string) *SlackNotifier {
	opts := []slack.Option{}
	if base := strings.TrimSpace(apiBase); base != "" {
		opts = append(opts, slack.OptionAPIURL(strings.TrimRight(base, "/")+"/"))
	}
	return &SlackNotifier{
		api:     slack.New(token, opts...),
		channel: channel,
	}
}

// Notify posts the notice as a channel message.
func (n *SlackNotifier) Notify(ctx context.Context, level Level, msg string) {
	text := msg
	if level == LevelError {
		text = ":warning: " + msg
	}
	_, _, err := n.api.PostMessageContext(ctx, n.channel, slack.MsgOptionText(text, false))
	if err != nil {
		slog.Warn("Slack notice failed", "channel", n.channel, "error", err)
	}
}
