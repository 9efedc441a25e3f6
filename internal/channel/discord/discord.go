// Package discord implements the Discord channel and messenger on top of
// discordgo.
package discord

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/bwmarrin/discordgo"
	"github.com/soyeahso/gork/internal/domain"
	"github.com/soyeahso/gork/internal/hooks"
	"github.com/soyeahso/gork/internal/logging"
)

const channelID = "discord"

// Intents requested on identify. MessageContent is privileged and must be
// enabled for the application in the developer portal.
const Intents = discordgo.IntentsGuilds |
	discordgo.IntentsGuildMessages |
	discordgo.IntentsDirectMessages |
	discordgo.IntentsMessageContent

// restSession is the subset of *discordgo.Session used for REST calls.
type restSession interface {
	Channel(channelID string, options ...discordgo.RequestOption) (*discordgo.Channel, error)
	ChannelMessage(channelID, messageID string, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelMessages(channelID string, limit int, beforeID, afterID, aroundID string, options ...discordgo.RequestOption) ([]*discordgo.Message, error)
	ChannelMessageSendComplex(channelID string, data *discordgo.MessageSend, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelMessageEdit(channelID, messageID, content string, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelMessageDelete(channelID, messageID string, options ...discordgo.RequestOption) error
	MessageThreadStartComplex(channelID, messageID string, data *discordgo.ThreadStart, options ...discordgo.RequestOption) (*discordgo.Channel, error)
	ChannelTyping(channelID string, options ...discordgo.RequestOption) error
}

// ErrNotConnected is returned by operations that need an open gateway session.
var ErrNotConnected = errors.New("discord: not connected")

// Channel implements domain.Channel and domain.Messenger for Discord.
type Channel struct {
	token string
	hooks *hooks.Manager
	log   *logging.Logger

	session *discordgo.Session
	api     restSession

	mu        sync.RWMutex
	handler   func(msg domain.InboundMessage)
	botID     string
	running   bool
	connected bool
	lastErr   string
	removers  []func()
	cancel    context.CancelFunc

	channels *channelCache
	pending  *deleteQueue
}

// New creates a Discord channel for the given bot token. hooksMgr may be nil.
func New(token string, hooksMgr *hooks.Manager, log *logging.Logger) (*Channel, error) {
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("discord session: %w", err)
	}
	session.Identify.Intents = Intents

	c := newChannel(session, hooksMgr, log)
	c.token = token
	c.session = session
	return c, nil
}

func newChannel(api restSession, hooksMgr *hooks.Manager, log *logging.Logger) *Channel {
	c := &Channel{
		hooks:   hooksMgr,
		log:     log.Sub("discord"),
		api:     api,
		pending: newDeleteQueue(),
	}
	c.channels = newChannelCache(api)
	return c
}

func (c *Channel) ID() string { return channelID }

func (c *Channel) OnMessage(handler func(msg domain.InboundMessage)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handler = handler
}

// Status returns the current runtime status.
func (c *Channel) Status() domain.ChannelStatus {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return domain.ChannelStatus{
		ChannelID: channelID,
		BotID:     c.botID,
		Connected: c.connected,
		Running:   c.running,
		LastError: c.lastErr,
	}
}

// BotID returns the bot's user id once the gateway reported ready.
func (c *Channel) BotID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.botID
}

// Start opens the gateway connection. It returns once the session is open;
// events are delivered on discordgo's goroutines until Stop.
func (c *Channel) Start(ctx context.Context) error {
	if c.session == nil {
		return ErrNotConnected
	}
	ctx, cancel := context.WithCancel(ctx)

	c.mu.Lock()
	c.cancel = cancel
	c.removers = append(c.removers,
		c.session.AddHandler(func(s *discordgo.Session, r *discordgo.Ready) { c.onReady(ctx, r) }),
		c.session.AddHandler(func(s *discordgo.Session, _ *discordgo.Disconnect) { c.onDisconnect(ctx) }),
		c.session.AddHandler(func(s *discordgo.Session, _ *discordgo.Resumed) { c.setConnected(ctx, true) }),
		c.session.AddHandler(func(s *discordgo.Session, m *discordgo.MessageCreate) { c.onMessageCreate(ctx, m) }),
	)
	c.running = true
	c.lastErr = ""
	c.mu.Unlock()

	c.log.Info().Msg("connecting to Discord")
	if err := c.session.Open(); err != nil {
		cancel()
		c.mu.Lock()
		c.running = false
		c.lastErr = err.Error()
		c.mu.Unlock()
		return fmt.Errorf("discord connect: %w", err)
	}
	return nil
}

// Stop closes the gateway connection and deletes pending ephemeral notices.
func (c *Channel) Stop(ctx context.Context) error {
	c.mu.Lock()
	removers := c.removers
	c.removers = nil
	cancel := c.cancel
	wasRunning := c.running
	c.running = false
	c.connected = false
	c.mu.Unlock()

	for _, remove := range removers {
		remove()
	}
	if cancel != nil {
		cancel()
	}
	c.pending.flush(ctx, c.api)

	if !wasRunning || c.session == nil {
		return nil
	}
	c.log.Info().Msg("disconnecting from Discord")
	if err := c.session.Close(); err != nil {
		return fmt.Errorf("discord close: %w", err)
	}
	c.emit(ctx, hooks.EventChannelDisconnected, nil)
	return nil
}

// SetPresence sets the bot's custom status line.
func (c *Channel) SetPresence(text string) error {
	if c.session == nil || !c.Status().Connected {
		return ErrNotConnected
	}
	if err := c.session.UpdateCustomStatus(text); err != nil {
		return fmt.Errorf("update status: %w", err)
	}
	return nil
}

func (c *Channel) onReady(ctx context.Context, r *discordgo.Ready) {
	if r.User != nil {
		c.mu.Lock()
		c.botID = r.User.ID
		c.mu.Unlock()
		c.log.Info().Str("user", r.User.Username).Str("bot_id", r.User.ID).Int("guilds", len(r.Guilds)).Msg("connected to Discord")
	}
	c.setConnected(ctx, true)
}

func (c *Channel) onDisconnect(ctx context.Context) {
	c.log.Warn().Msg("Discord gateway disconnected")
	c.setConnected(ctx, false)
}

func (c *Channel) setConnected(ctx context.Context, connected bool) {
	c.mu.Lock()
	changed := c.connected != connected
	c.connected = connected
	c.mu.Unlock()
	if !changed {
		return
	}
	if connected {
		c.emit(ctx, hooks.EventChannelConnected, nil)
	} else {
		c.emit(ctx, hooks.EventChannelDisconnected, nil)
	}
}

func (c *Channel) onMessageCreate(ctx context.Context, m *discordgo.MessageCreate) {
	if m == nil || m.Message == nil || m.Author == nil || ctx.Err() != nil {
		return
	}
	c.mu.RLock()
	handler := c.handler
	c.mu.RUnlock()
	if handler == nil {
		return
	}

	ch, err := c.channels.get(ctx, m.ChannelID)
	if err != nil {
		c.log.Warn().Err(err).Str("channel", m.ChannelID).Str("msg_id", m.ID).Msg("failed to resolve channel")
	}
	handler(toInbound(m.Message, ch))
}

func (c *Channel) emit(ctx context.Context, event string, data map[string]any) {
	if c.hooks == nil {
		return
	}
	if data == nil {
		data = map[string]any{}
	}
	data["channel"] = channelID
	c.hooks.EmitAsync(ctx, event, data)
}
