package discord

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/soyeahso/gork/internal/domain"
)

// maxHistoryPage is the largest page the messages endpoint returns.
const maxHistoryPage = 100

// FetchMessage loads a single message, used to resolve reply references.
func (c *Channel) FetchMessage(ctx context.Context, channelID, messageID string) (domain.InboundMessage, error) {
	m, err := c.api.ChannelMessage(channelID, messageID, discordgo.WithContext(ctx))
	if err != nil {
		return domain.InboundMessage{}, fmt.Errorf("fetch message %s: %w", messageID, err)
	}
	if m.ChannelID == "" {
		m.ChannelID = channelID
	}
	ch, err := c.channels.get(ctx, channelID)
	if err != nil {
		c.log.Debug().Err(err).Str("channel", channelID).Msg("failed to resolve channel for fetched message")
	}
	return toInbound(m, ch), nil
}

// FetchHistory returns up to limit messages posted before beforeID,
// oldest first.
func (c *Channel) FetchHistory(ctx context.Context, channelID string, limit int, beforeID string) ([]domain.InboundMessage, error) {
	if limit <= 0 {
		return nil, nil
	}
	ch, err := c.channels.get(ctx, channelID)
	if err != nil {
		c.log.Debug().Err(err).Str("channel", channelID).Msg("failed to resolve channel for history")
	}

	var out []domain.InboundMessage
	before := beforeID
	for len(out) < limit {
		page := min(limit-len(out), maxHistoryPage)
		msgs, err := c.api.ChannelMessages(channelID, page, before, "", "", discordgo.WithContext(ctx))
		if err != nil {
			return nil, fmt.Errorf("fetch history %s: %w", channelID, err)
		}
		for _, m := range msgs {
			if m.ChannelID == "" {
				m.ChannelID = channelID
			}
			out = append(out, toInbound(m, ch))
		}
		if len(msgs) < page {
			break
		}
		before = msgs[len(msgs)-1].ID
	}
	// The endpoint pages newest first.
	slices.Reverse(out)
	return out, nil
}

func (c *Channel) Send(ctx context.Context, channelID, text string) (string, error) {
	m, err := c.api.ChannelMessageSendComplex(channelID, &discordgo.MessageSend{
		Content: domain.Truncate(text),
	}, discordgo.WithContext(ctx))
	if err != nil {
		return "", fmt.Errorf("send to %s: %w", channelID, err)
	}
	return m.ID, nil
}

func (c *Channel) Reply(ctx context.Context, channelID, replyToID, text string) (string, error) {
	m, err := c.api.ChannelMessageSendComplex(channelID, &discordgo.MessageSend{
		Content:   domain.Truncate(text),
		Reference: replyReference(channelID, replyToID),
	}, discordgo.WithContext(ctx))
	if err != nil {
		return "", fmt.Errorf("reply in %s: %w", channelID, err)
	}
	return m.ID, nil
}

func (c *Channel) Edit(ctx context.Context, channelID, messageID, text string) error {
	if _, err := c.api.ChannelMessageEdit(channelID, messageID, domain.Truncate(text), discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("edit %s: %w", messageID, err)
	}
	return nil
}

// CreateThread starts a public thread on messageID and returns its id.
func (c *Channel) CreateThread(ctx context.Context, channelID, messageID, name string, archiveMinutes int) (string, error) {
	th, err := c.api.MessageThreadStartComplex(channelID, messageID, &discordgo.ThreadStart{
		Name:                threadName(name),
		AutoArchiveDuration: archiveMinutes,
		Type:                discordgo.ChannelTypeGuildPublicThread,
	}, discordgo.WithContext(ctx))
	if err != nil {
		return "", fmt.Errorf("create thread on %s: %w", messageID, err)
	}
	c.channels.put(th)
	return th.ID, nil
}

func (c *Channel) Typing(ctx context.Context, channelID string) error {
	return c.api.ChannelTyping(channelID, discordgo.WithContext(ctx))
}

// SendEphemeral posts a silent reply and deletes it after ttl. Regular
// messages cannot be ephemeral, so the notice removes itself instead.
func (c *Channel) SendEphemeral(ctx context.Context, channelID, replyToID, text string, ttl time.Duration) error {
	send := &discordgo.MessageSend{
		Content: domain.Truncate(text),
		Flags:   discordgo.MessageFlagsSuppressNotifications,
	}
	if replyToID != "" {
		send.Reference = replyReference(channelID, replyToID)
	}
	m, err := c.api.ChannelMessageSendComplex(channelID, send, discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("send notice to %s: %w", channelID, err)
	}
	c.pending.schedule(c.api, channelID, m.ID, ttl, func(err error) {
		c.log.Debug().Err(err).Str("channel", channelID).Str("msg_id", m.ID).Msg("failed to delete notice")
	})
	return nil
}

func replyReference(channelID, messageID string) *discordgo.MessageReference {
	fail := false
	return &discordgo.MessageReference{
		MessageID:       messageID,
		ChannelID:       channelID,
		FailIfNotExists: &fail,
	}
}

// threadName clamps name to the platform's 100 character limit.
func threadName(name string) string {
	runes := []rune(name)
	if len(runes) <= 100 {
		return name
	}
	return string(runes[:100])
}

// channelCache remembers channel metadata so every inbound message does not
// cost a REST lookup. Thread ownership never changes, so entries live for
// the life of the process.
type channelCache struct {
	api restSession

	mu       sync.RWMutex
	channels map[string]*discordgo.Channel
}

func newChannelCache(api restSession) *channelCache {
	return &channelCache{api: api, channels: make(map[string]*discordgo.Channel)}
}

func (cc *channelCache) get(ctx context.Context, id string) (*discordgo.Channel, error) {
	cc.mu.RLock()
	ch, ok := cc.channels[id]
	cc.mu.RUnlock()
	if ok {
		return ch, nil
	}
	ch, err := cc.api.Channel(id, discordgo.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("lookup channel %s: %w", id, err)
	}
	cc.put(ch)
	return ch, nil
}

func (cc *channelCache) put(ch *discordgo.Channel) {
	if ch == nil || ch.ID == "" {
		return
	}
	cc.mu.Lock()
	cc.channels[ch.ID] = ch
	cc.mu.Unlock()
}

// deleteQueue tracks notices waiting for deletion.
type deleteQueue struct {
	mu     sync.Mutex
	timers map[string]*pendingDelete
}

type pendingDelete struct {
	channelID string
	timer     *time.Timer
}

func newDeleteQueue() *deleteQueue {
	return &deleteQueue{timers: make(map[string]*pendingDelete)}
}

func (q *deleteQueue) schedule(api restSession, channelID, messageID string, ttl time.Duration, onErr func(error)) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.timers[messageID] = &pendingDelete{
		channelID: channelID,
		timer: time.AfterFunc(ttl, func() {
			if !q.take(messageID) {
				return
			}
			if err := api.ChannelMessageDelete(channelID, messageID); err != nil {
				onErr(err)
			}
		}),
	}
}

// take removes messageID from the queue and reports whether it was present.
func (q *deleteQueue) take(messageID string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	_, ok := q.timers[messageID]
	delete(q.timers, messageID)
	return ok
}

func (q *deleteQueue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.timers)
}

// flush deletes every pending notice now.
func (q *deleteQueue) flush(ctx context.Context, api restSession) {
	q.mu.Lock()
	pending := q.timers
	q.timers = make(map[string]*pendingDelete)
	q.mu.Unlock()

	for id, p := range pending {
		p.timer.Stop()
		_ = api.ChannelMessageDelete(p.channelID, id, discordgo.WithContext(ctx))
	}
}
