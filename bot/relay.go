package bot

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/subculture-collective/masquerade/telemetry"
)

// sayWithIdentity resolves the user's identity for keyword and relays text through it.
// A missing identity is a normal negative outcome: the user gets a notice and relayed
// comes back false. On success the relayed message id is recorded as provenance.
func (b *Bot) sayWithIdentity(ctx context.Context, channelID string, userID uint64, keyword, text string) (messageID uint64, relayed bool, err error) {
	ident, ok, err := b.store.Identity(ctx, userID, keyword)
	if err != nil {
		return 0, false, err
	}
	if !ok {
		if err := b.transport.Say(ctx, channelID, fmt.Sprintf("Nickname %s does not exist for you!", keyword)); err != nil {
			return 0, false, err
		}
		return 0, false, nil
	}

	name, err := b.transport.DisplayName(ctx, userID)
	if err != nil {
		return 0, false, fmt.Errorf("resolve author name: %w", err)
	}
	audit := fmt.Sprintf("User %s (id: %d) speaks with nick %s", name, userID, ident.Nick)

	messageID, err = b.relay(ctx, channelID, ident.Nick, ident.Avatar, text, audit)
	if err != nil {
		return 0, false, err
	}

	b.store.RecordRelayedMessage(ctx, messageID, userID)
	return messageID, true, nil
}

// relay creates an impersonation webhook in the channel, posts exactly one message
// through it, and tears the webhook down again on every exit path. Creation, post, and
// teardown errors all propagate; a teardown failure never masks an earlier post error.
func (b *Bot) relay(ctx context.Context, channelID, nick, avatarURL, content, auditReason string) (messageID uint64, err error) {
	start := time.Now()
	defer func() {
		telemetry.ObserveRelay(time.Since(start), err == nil)
	}()

	hook, err := b.transport.CreateWebhook(ctx, channelID, b.webhookName, auditReason)
	if err != nil {
		return 0, fmt.Errorf("create webhook: %w", err)
	}
	defer func() {
		derr := hook.Delete(ctx)
		if derr == nil {
			return
		}
		if err == nil {
			err = fmt.Errorf("delete webhook: %w", derr)
			return
		}
		// The post error wins; still surface the leaked webhook.
		slog.Warn("webhook teardown failed after relay error",
			slog.String("channel_id", channelID),
			slog.Any("error", derr))
	}()

	messageID, err = hook.Post(ctx, nick, avatarURL, content)
	if err != nil {
		return 0, fmt.Errorf("execute webhook: %w", err)
	}
	return messageID, nil
}
