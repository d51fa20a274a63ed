package bot

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/subculture-collective/masquerade/config"
	"github.com/subculture-collective/masquerade/db"
	"github.com/subculture-collective/masquerade/telemetry"
)

// Store is the persistence surface the dispatcher consumes; *db.Store satisfies it.
// Reads that drive dispatch (ActiveSwitch, Identity) return errors; writes are
// best-effort and report failures only to the operational log.
type Store interface {
	ActiveSwitch(ctx context.Context, userID uint64) (string, bool, error)
	SetActiveSwitch(ctx context.Context, userID uint64, keyword string)
	ClearActiveSwitch(ctx context.Context, userID uint64)
	RecordRelayedMessage(ctx context.Context, messageID, userID uint64)
	Identities(ctx context.Context, userID uint64) []db.Identity
	Identity(ctx context.Context, userID uint64, keyword string) (db.Identity, bool, error)
	AddIdentity(ctx context.Context, userID uint64, keyword, nick, avatar string)
	RemoveIdentity(ctx context.Context, userID uint64, keyword string)
}

// Webhook is a short-lived impersonation endpoint bound to one channel.
type Webhook interface {
	// Post sends one message as nick (with optional avatar URL) and returns the id
	// of the message it created.
	Post(ctx context.Context, nick, avatarURL, content string) (uint64, error)
	Delete(ctx context.Context) error
}

// Transport abstracts the chat platform operations the dispatcher needs.
type Transport interface {
	Say(ctx context.Context, channelID, content string) error
	CreateWebhook(ctx context.Context, channelID, name, auditReason string) (Webhook, error)
	DeleteMessage(ctx context.Context, channelID string, messageID uint64) error
	DisplayName(ctx context.Context, userID uint64) (string, error)
}

// Message is one inbound chat message, already reduced to what the dispatcher needs.
// AuthorAvatarURL is derived by the transport from the author's avatar hash and is
// empty when the author has none.
type Message struct {
	ID              uint64
	ChannelID       string
	AuthorID        uint64
	AuthorBot       bool
	AuthorAvatarURL string
	Content         string
	Attachments     []string
}

// Bot routes inbound messages to command handlers or the passive relay path.
type Bot struct {
	store         Store
	transport     Transport
	prefix        string
	webhookName   string
	defaultAvatar string
}

// New builds the dispatcher from its dependencies.
func New(store Store, transport Transport, cfg *config.Config) *Bot {
	return &Bot{
		store:         store,
		transport:     transport,
		prefix:        cfg.CommandPrefix,
		webhookName:   cfg.WebhookName,
		defaultAvatar: cfg.DefaultAvatarURL,
	}
}

// HandleMessage processes one inbound message. It is invoked concurrently, one
// goroutine per message; the returned error is logged by the caller and never affects
// any other message.
func (b *Bot) HandleMessage(ctx context.Context, msg Message) error {
	// Relayed messages come back through the gateway with a bot author; processing
	// them again would loop.
	if msg.AuthorBot {
		return nil
	}

	ctx = telemetry.WithCorrelation(ctx, uuid.New().String())
	ctx, span := telemetry.StartSpan(ctx, "bot", "process-message")
	defer span.End()
	telemetry.IncMessagesSeen()

	if strings.HasPrefix(msg.Content, b.prefix) {
		cmd, ok := Classify(b.prefix, msg.Content)
		if !ok {
			// Prefix-only or whitespace noise; not a reportable error.
			return nil
		}
		telemetry.IncCommand(cmd.Kind.String())
		err := b.handleCommand(ctx, msg, cmd)
		if err != nil {
			telemetry.RecordError(span, err)
		}
		return err
	}

	keyword, ok, err := b.store.ActiveSwitch(ctx, msg.AuthorID)
	if err != nil {
		telemetry.RecordError(span, err)
		return err
	}
	if !ok {
		return nil
	}
	if err := b.relayAndRemove(ctx, msg, keyword, msg.Content); err != nil {
		telemetry.RecordError(span, err)
		return err
	}
	return nil
}

func (b *Bot) handleCommand(ctx context.Context, msg Message, cmd Command) error {
	if cmd.Malformed {
		return b.transport.Say(ctx, msg.ChannelID, fmt.Sprintf("Malformed %s command!", cmd.Kind))
	}

	switch cmd.Kind {
	case KindHelp:
		return b.handleHelp(ctx, msg)
	case KindList:
		return b.handleList(ctx, msg)
	case KindRegister:
		return b.handleRegister(ctx, msg, cmd)
	case KindForget:
		return b.handleForget(ctx, msg, cmd)
	case KindSwitch:
		return b.handleSwitch(ctx, msg, cmd)
	case KindStop:
		return b.handleStop(ctx, msg)
	case KindSpeak:
		return b.relayAndRemove(ctx, msg, cmd.Keyword, cmd.Body)
	}
	return nil
}

func (b *Bot) handleHelp(ctx context.Context, msg Message) error {
	p := b.prefix
	help := fmt.Sprintf("Command list:\n```\n"+
		"| display this message                  | %shelp                                                      |\n"+
		"| list all your identities              | %slist                                                      |\n"+
		"| add a new identity                    | %sregister <keyword> <nickname> [attached image for avatar] |\n"+
		"| remove identity                       | %sforget <keyword>                                          |\n"+
		"| talk through to identity automaticaly | %sswitch <keyword>                                          |\n"+
		"| stop speaking through identity        | %sstop                                                      |\n\n"+
		"Any other command will be interpreted as a keyword for a personality```",
		p, p, p, p, p, p)
	return b.transport.Say(ctx, msg.ChannelID, help)
}

func (b *Bot) handleList(ctx context.Context, msg Message) error {
	identities := b.store.Identities(ctx, msg.AuthorID)
	if len(identities) == 0 {
		return b.transport.Say(ctx, msg.ChannelID, "You have no registered identities")
	}
	var sb strings.Builder
	sb.WriteString("Your registered identities:```")
	for _, ident := range identities {
		sb.WriteString("\n")
		sb.WriteString(ident.Keyword)
		sb.WriteString(" | ")
		sb.WriteString(ident.Nick)
	}
	sb.WriteString("```")
	return b.transport.Say(ctx, msg.ChannelID, sb.String())
}

func (b *Bot) handleRegister(ctx context.Context, msg Message, cmd Command) error {
	avatar := b.defaultAvatar
	if len(msg.Attachments) > 0 {
		avatar = msg.Attachments[0]
	} else if msg.AuthorAvatarURL != "" {
		avatar = msg.AuthorAvatarURL
	}

	b.store.AddIdentity(ctx, msg.AuthorID, cmd.Keyword, cmd.Nick, avatar)
	slog.Info("identity registered",
		slog.Uint64("user_id", msg.AuthorID),
		slog.String("keyword", cmd.Keyword),
		slog.String("component", "bot"))

	// Confirm through the freshly registered identity so the user sees it in action.
	_, _, err := b.sayWithIdentity(ctx, msg.ChannelID, msg.AuthorID, cmd.Keyword, "Identity registered.")
	return err
}

func (b *Bot) handleForget(ctx context.Context, msg Message, cmd Command) error {
	b.store.RemoveIdentity(ctx, msg.AuthorID, cmd.Keyword)
	return b.transport.Say(ctx, msg.ChannelID, fmt.Sprintf("Removed identity '%s'", cmd.Keyword))
}

func (b *Bot) handleSwitch(ctx context.Context, msg Message, cmd Command) error {
	ident, ok, err := b.store.Identity(ctx, msg.AuthorID, cmd.Keyword)
	if err != nil {
		return err
	}
	if !ok {
		return b.transport.Say(ctx, msg.ChannelID, fmt.Sprintf("No identity '%s' for this user", cmd.Keyword))
	}
	b.store.SetActiveSwitch(ctx, msg.AuthorID, cmd.Keyword)
	return b.transport.Say(ctx, msg.ChannelID, fmt.Sprintf("User now speaks as '%s'", ident.Nick))
}

func (b *Bot) handleStop(ctx context.Context, msg Message) error {
	b.store.ClearActiveSwitch(ctx, msg.AuthorID)
	return b.transport.Say(ctx, msg.ChannelID, "User unswitched")
}

// relayAndRemove relays text under the given identity keyword and, if the relay went
// out, deletes the triggering original message. A missing identity stops here with the
// user notice already sent; the original stays put.
func (b *Bot) relayAndRemove(ctx context.Context, msg Message, keyword, text string) error {
	_, relayed, err := b.sayWithIdentity(ctx, msg.ChannelID, msg.AuthorID, keyword, text)
	if err != nil {
		return err
	}
	if !relayed {
		return nil
	}
	if err := b.transport.DeleteMessage(ctx, msg.ChannelID, msg.ID); err != nil {
		return fmt.Errorf("delete original message: %w", err)
	}
	telemetry.IncOriginalsDeleted()
	return nil
}
