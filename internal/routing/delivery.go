package routing

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/soyeahso/gork/internal/domain"
	"github.com/soyeahso/gork/internal/hooks"
)

// typingInterval re-sends the typing indicator before the platform expires it.
const typingInterval = 8 * time.Second

// delivery posts the first message of a reply according to a decision.
// It creates the follow-up thread on first use.
type delivery struct {
	router   *Router
	msg      domain.InboundMessage
	decision domain.DeliveryDecision
}

// Post sends text as a new message and returns where it landed.
func (d *delivery) Post(ctx context.Context, text string) (string, string, error) {
	m := d.router.messenger
	switch d.decision.Kind {
	case domain.ReplyToMessage:
		id, err := m.Reply(ctx, d.msg.ChannelID, d.msg.ID, text)
		return d.msg.ChannelID, id, err

	case domain.SendToChannel:
		id, err := m.Send(ctx, d.msg.ChannelID, text)
		return d.msg.ChannelID, id, err

	case domain.SendToThread:
		target := d.msg.ChannelID
		if d.decision.CreatesThread() {
			threadID, err := m.CreateThread(ctx, d.msg.ChannelID, d.msg.ID, d.decision.NewThreadName, domain.ThreadArchiveMinutes)
			if err != nil {
				d.router.log.Warn().Err(err).Str("channel", d.msg.ChannelID).Str("msg_id", d.msg.ID).Msg("thread creation failed, replying instead")
				d.decision = domain.DeliveryDecision{Kind: domain.ReplyToMessage}
				id, err := m.Reply(ctx, d.msg.ChannelID, d.msg.ID, text)
				return d.msg.ChannelID, id, err
			}
			data := hooks.MessageData(d.msg)
			data["thread"] = threadID
			data["name"] = d.decision.NewThreadName
			d.router.hooks.Emit(ctx, hooks.EventThreadCreated, data)
			target = threadID
		}
		id, err := m.Send(ctx, target, text)
		return target, id, err

	default:
		return "", "", fmt.Errorf("unknown delivery kind %q", d.decision.Kind)
	}
}

// Edit replaces the text of a posted message.
func (d *delivery) Edit(ctx context.Context, channelID, messageID, text string) error {
	return d.router.messenger.Edit(ctx, channelID, messageID, text)
}

// startTyping shows the typing indicator in channelID until the returned
// stop function is called. stop waits for the indicator goroutine to exit.
func (r *Router) startTyping(ctx context.Context, channelID string) (stop func()) {
	tctx, cancel := context.WithCancel(ctx)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		ticker := time.NewTicker(typingInterval)
		defer ticker.Stop()
		for {
			if err := r.messenger.Typing(tctx, channelID); err != nil && tctx.Err() == nil {
				r.log.Debug().Err(err).Str("channel", channelID).Msg("typing indicator failed")
			}
			select {
			case <-tctx.Done():
				return
			case <-ticker.C:
			}
		}
	}()
	return func() {
		cancel()
		wg.Wait()
	}
}
