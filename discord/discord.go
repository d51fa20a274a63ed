// Package discord wraps the Discord gateway and REST API behind the bot.Transport
// interface: channel sends, impersonation webhooks, message deletion, and user lookup.
package discord

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/bwmarrin/discordgo"

	"github.com/subculture-collective/masquerade/bot"
)

// Client owns the discordgo session. One Client serves the whole process.
type Client struct {
	session *discordgo.Session
}

// New builds a gateway session for the bot token with the intents this bot needs:
// guild messages, direct messages, and message content.
func New(token string) (*Client, error) {
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("create discord session: %w", err)
	}
	session.Identify.Intents = discordgo.IntentsGuildMessages |
		discordgo.IntentsDirectMessages |
		discordgo.IntentMessageContent
	return &Client{session: session}, nil
}

// Run opens the gateway connection and dispatches every inbound message to handler in
// its own goroutine. It blocks until ctx is cancelled, then closes the session.
// Handler errors are logged here; they never cross between messages.
func (c *Client) Run(ctx context.Context, handler func(ctx context.Context, msg bot.Message) error) error {
	c.session.AddHandler(func(_ *discordgo.Session, r *discordgo.Ready) {
		slog.Info("discord gateway connected", slog.String("user", r.User.Username), slog.String("component", "discord"))
	})
	c.session.AddHandler(func(_ *discordgo.Session, m *discordgo.MessageCreate) {
		msg, err := toMessage(m)
		if err != nil {
			slog.Error("dropping message with malformed ids", slog.Any("err", err), slog.String("component", "discord"))
			return
		}
		go func() {
			if err := handler(ctx, msg); err != nil {
				slog.Error("error processing message",
					slog.Any("err", err),
					slog.Uint64("message_id", msg.ID),
					slog.String("component", "discord"))
			}
		}()
	})

	if err := c.session.Open(); err != nil {
		return fmt.Errorf("open discord gateway: %w", err)
	}
	<-ctx.Done()
	if err := c.session.Close(); err != nil {
		return fmt.Errorf("close discord gateway: %w", err)
	}
	return nil
}

// toMessage reduces a gateway message event to the dispatcher's view of it.
func toMessage(m *discordgo.MessageCreate) (bot.Message, error) {
	id, err := strconv.ParseUint(m.ID, 10, 64)
	if err != nil {
		return bot.Message{}, fmt.Errorf("parse message id %q: %w", m.ID, err)
	}
	authorID, err := strconv.ParseUint(m.Author.ID, 10, 64)
	if err != nil {
		return bot.Message{}, fmt.Errorf("parse author id %q: %w", m.Author.ID, err)
	}
	var attachments []string
	for _, a := range m.Attachments {
		attachments = append(attachments, a.URL)
	}
	return bot.Message{
		ID:              id,
		ChannelID:       m.ChannelID,
		AuthorID:        authorID,
		AuthorBot:       m.Author.Bot,
		AuthorAvatarURL: AvatarURL(m.Author.ID, m.Author.Avatar),
		Content:         m.Content,
		Attachments:     attachments,
	}, nil
}

// AvatarURL renders the CDN URL for a user's avatar hash, or "" when the user has no
// custom avatar.
func AvatarURL(userID, hash string) string {
	if hash == "" {
		return ""
	}
	return "https://cdn.discordapp.com/avatars/" + userID + "/" + hash + ".png"
}

// Say posts a plain text message to the channel.
func (c *Client) Say(ctx context.Context, channelID, content string) error {
	if _, err := c.session.ChannelMessageSend(channelID, content, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	return nil
}

// CreateWebhook creates an impersonation webhook in the channel. The audit reason ends
// up in the guild's audit log so moderators can see who is behind a relay.
func (c *Client) CreateWebhook(ctx context.Context, channelID, name, auditReason string) (bot.Webhook, error) {
	wh, err := c.session.WebhookCreate(channelID, name, "",
		discordgo.WithContext(ctx), discordgo.WithAuditLogReason(auditReason))
	if err != nil {
		return nil, fmt.Errorf("webhook create: %w", err)
	}
	return &webhook{session: c.session, id: wh.ID, token: wh.Token}, nil
}

// DeleteMessage removes a message from the channel.
func (c *Client) DeleteMessage(ctx context.Context, channelID string, messageID uint64) error {
	return c.session.ChannelMessageDelete(channelID, strconv.FormatUint(messageID, 10), discordgo.WithContext(ctx))
}

// DisplayName resolves a user id to their username.
func (c *Client) DisplayName(ctx context.Context, userID uint64) (string, error) {
	u, err := c.session.User(strconv.FormatUint(userID, 10), discordgo.WithContext(ctx))
	if err != nil {
		return "", fmt.Errorf("fetch user: %w", err)
	}
	return u.Username, nil
}

// webhook is a live impersonation endpoint; Delete must always be called after use.
type webhook struct {
	session *discordgo.Session
	id      string
	token   string
}

// Post executes the webhook with wait=true so Discord returns the created message and
// its id can be recorded as provenance.
func (w *webhook) Post(ctx context.Context, nick, avatarURL, content string) (uint64, error) {
	params := &discordgo.WebhookParams{
		Username:  nick,
		AvatarURL: avatarURL,
		Content:   content,
	}
	msg, err := w.session.WebhookExecute(w.id, w.token, true, params, discordgo.WithContext(ctx))
	if err != nil {
		return 0, fmt.Errorf("webhook execute: %w", err)
	}
	id, err := strconv.ParseUint(msg.ID, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse relayed message id %q: %w", msg.ID, err)
	}
	return id, nil
}

func (w *webhook) Delete(ctx context.Context) error {
	if err := w.session.WebhookDelete(w.id, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("webhook delete: %w", err)
	}
	return nil
}
