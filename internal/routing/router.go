// Package routing gates inbound messages, gathers their conversation,
// and delivers generated replies back to the platform.
package routing

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/soyeahso/gork/internal/agent"
	"github.com/soyeahso/gork/internal/config"
	"github.com/soyeahso/gork/internal/domain"
	"github.com/soyeahso/gork/internal/hooks"
	"github.com/soyeahso/gork/internal/llm"
	"github.com/soyeahso/gork/internal/logging"
	"github.com/soyeahso/gork/internal/normalize"
	"github.com/soyeahso/gork/internal/ratelimit"
)

// User-facing notices.
const (
	FailureNotice     = "Sorry, something went wrong generating a response. Please try again later."
	DMRateLimitNotice = "You have exceeded the allowed number of messages. Please try again later."

	// RateLimitNoticeTTL is how long the channel rate-limit notice stays up.
	RateLimitNoticeTTL = 60 * time.Second
)

// Runner generates replies for an exchange.
type Runner interface {
	Run(ctx context.Context, ex agent.Exchange) (*agent.RunResult, error)
	RunStream(ctx context.Context, ex agent.Exchange, cb agent.StreamCallback) (*agent.RunResult, error)
}

// Router routes inbound messages to the agent and replies to the platform.
type Router struct {
	cfg        config.BotConfig
	messenger  domain.Messenger
	normalizer *normalize.Normalizer
	limiter    *ratelimit.Limiter
	runner     Runner
	hooks      *hooks.Manager
	log        *logging.Logger

	now      func() time.Time
	inflight sync.WaitGroup
}

// NewRouter creates a message router.
func NewRouter(
	cfg config.BotConfig,
	messenger domain.Messenger,
	normalizer *normalize.Normalizer,
	limiter *ratelimit.Limiter,
	runner Runner,
	hooksMgr *hooks.Manager,
	log *logging.Logger,
) *Router {
	return &Router{
		cfg:        cfg,
		messenger:  messenger,
		normalizer: normalizer,
		limiter:    limiter,
		runner:     runner,
		hooks:      hooksMgr,
		log:        log.Sub("routing"),
		now:        time.Now,
	}
}

// Wire registers the router as ch's message handler. Each message is
// handled on its own goroutine.
func (r *Router) Wire(ctx context.Context, ch domain.Channel) {
	ch.OnMessage(func(msg domain.InboundMessage) {
		r.Dispatch(ctx, msg)
	})
	r.log.Debug().Str("channel", ch.ID()).Msg("wired message handler")
}

// Dispatch handles msg on a new goroutine.
func (r *Router) Dispatch(ctx context.Context, msg domain.InboundMessage) {
	r.inflight.Add(1)
	go func() {
		defer r.inflight.Done()
		r.Handle(ctx, msg)
	}()
}

// Wait blocks until every dispatched message has been handled.
func (r *Router) Wait() {
	r.inflight.Wait()
}

// Handle processes one inbound message end to end. Failures are logged and
// reported to the user; they never propagate to other messages.
func (r *Router) Handle(ctx context.Context, msg domain.InboundMessage) {
	// engaged is set once the message is admitted; only then does a panic
	// owe the user a notice.
	engaged := false
	defer func() {
		if p := recover(); p != nil {
			r.log.Error().
				Str("panic", fmt.Sprint(p)).
				Str("channel", msg.ChannelID).
				Str("msg_id", msg.ID).
				Msg("recovered panic while handling message")
			if engaged {
				r.failSafely(ctx, msg, fmt.Errorf("panic: %v", p))
			}
		}
	}()

	botID := r.messenger.BotID()
	if reason, ok := r.gate(msg, botID); !ok {
		if reason != "" {
			data := hooks.MessageData(msg)
			data["reason"] = reason
			r.hooks.Emit(ctx, hooks.EventMessageIgnored, data)
		}
		return
	}

	r.log.Info().
		Str("channel", msg.ChannelID).
		Str("user", msg.Author.ID).
		Str("msg_id", msg.ID).
		Str("kind", string(msg.Kind)).
		Msg("routing inbound message")
	r.hooks.Emit(ctx, hooks.EventMessageReceived, hooks.MessageData(msg))

	if !r.admit(ctx, msg) {
		return
	}
	engaged = true

	stopTyping := r.startTyping(ctx, msg.ChannelID)
	defer stopTyping()

	history, err := r.history(ctx, msg, botID)
	if err != nil {
		var unsupported *domain.UnsupportedChannelError
		if errors.As(err, &unsupported) {
			r.log.Debug().Err(err).Str("msg_id", msg.ID).Msg("dropping message")
			return
		}
		r.fail(ctx, msg, err)
		return
	}

	decision, err := Decide(msg.Kind, history)
	if err != nil {
		r.log.Debug().Err(err).Str("msg_id", msg.ID).Msg("dropping message")
		return
	}

	ex := agent.Exchange{
		History:     history,
		Location:    msg.Kind,
		RequestorID: msg.Author.ID,
		Augment:     true,
	}
	d := &delivery{router: r, msg: msg, decision: decision}

	r.hooks.Emit(ctx, hooks.EventGenerationStarted, hooks.MessageData(msg))
	if r.cfg.StreamOutput {
		r.respondStream(ctx, msg, ex, d)
	} else {
		r.respond(ctx, msg, ex, d)
	}
}

// gate decides whether the bot answers msg at all. A non-empty reason is
// reported for messages that were addressed to the bot but refused.
func (r *Router) gate(msg domain.InboundMessage, botID string) (string, bool) {
	if botID == "" || msg.Author.ID == botID {
		return "", false
	}

	switch msg.Kind {
	case domain.KindChannel:
		if !msg.Mentioned(botID) {
			return "", false
		}
		if !r.cfg.ChannelAllowed(msg.ChannelID) {
			return "channel not allowed", false
		}
	case domain.KindDirectMessage:
		if !r.cfg.CanRespondToDM {
			return "direct messages disabled", false
		}
	case domain.KindThread:
		if msg.ThreadOwnerID != botID {
			return "", false
		}
	default:
		r.log.Debug().Str("kind", string(msg.Kind)).Str("msg_id", msg.ID).Msg("unsupported channel kind")
		return "", false
	}
	return "", true
}

// admit applies the rate limit and sends the notice on denial. A failing
// state store admits the message.
func (r *Router) admit(ctx context.Context, msg domain.InboundMessage) bool {
	ok, err := r.limiter.Admit(ctx, msg.Author.ID, r.cfg.IsAdmin(msg.Author.ID), r.now())
	if err != nil {
		r.log.Error().Err(err).Str("user", msg.Author.ID).Msg("rate limit state unavailable, admitting")
		return true
	}
	if ok {
		return true
	}

	rlErr := r.limiter.Exceeded(msg.Author.ID)
	r.log.Info().Err(rlErr).Str("channel", msg.ChannelID).Msg("rate limited")
	r.hooks.Emit(ctx, hooks.EventRateLimited, hooks.MessageData(msg))

	if msg.Kind == domain.KindDirectMessage {
		if _, err := r.messenger.Send(ctx, msg.ChannelID, DMRateLimitNotice); err != nil {
			r.log.Warn().Err(err).Str("channel", msg.ChannelID).Msg("failed to send rate limit notice")
		}
		return false
	}

	notice := rateLimitNotice(msg.Author, rlErr)
	if err := r.messenger.SendEphemeral(ctx, msg.ChannelID, msg.ID, notice, RateLimitNoticeTTL); err != nil {
		r.log.Warn().Err(err).Str("channel", msg.ChannelID).Msg("failed to send rate limit notice")
	}
	return false
}

func rateLimitNotice(author domain.Author, e *domain.RateLimitError) string {
	return fmt.Sprintf("Slow down, %s! You can only send %d messages every %d minute(s).",
		author.Mention(), e.Allowed, int(e.Interval/time.Minute))
}

// history builds the conversation context ending with msg.
func (r *Router) history(ctx context.Context, msg domain.InboundMessage, botID string) (domain.ConversationContext, error) {
	trigger, err := r.normalizer.Normalize(ctx, msg, botID)
	if err != nil {
		return nil, err
	}

	var earlier []domain.InboundMessage
	switch msg.Kind {
	case domain.KindChannel:
		if msg.ReplyToID != "" {
			ref, err := r.messenger.FetchMessage(ctx, msg.ChannelID, msg.ReplyToID)
			if err != nil {
				r.log.Warn().Err(err).Str("msg_id", msg.ReplyToID).Msg("failed to fetch referenced message")
			} else {
				earlier = append(earlier, ref)
			}
		}
	case domain.KindThread, domain.KindDirectMessage:
		if limit := r.cfg.ThreadHistoryLimit - 1; limit > 0 {
			fetched, err := r.messenger.FetchHistory(ctx, msg.ChannelID, limit, msg.ID)
			if err != nil {
				r.log.Warn().Err(err).Str("channel", msg.ChannelID).Msg("failed to fetch history")
			} else {
				earlier = fetched
			}
		}
	}

	history := make(domain.ConversationContext, 0, len(earlier)+1)
	for _, m := range earlier {
		n, err := r.normalizer.Normalize(ctx, m, botID)
		if err != nil {
			r.log.Debug().Err(err).Str("msg_id", m.ID).Msg("skipping history message")
			continue
		}
		history = append(history, n)
	}
	return append(history, trigger), nil
}

func (r *Router) respond(ctx context.Context, msg domain.InboundMessage, ex agent.Exchange, d *delivery) {
	result, err := r.runner.Run(ctx, ex)
	if err != nil {
		r.fail(ctx, msg, err)
		return
	}

	text := domain.Truncate(result.Response.Content())
	if text == "" {
		r.log.Warn().Str("msg_id", msg.ID).Msg("empty response, nothing to send")
		return
	}

	channelID, messageID, err := d.Post(ctx, text)
	if err != nil {
		r.log.Error().Err(err).Str("channel", msg.ChannelID).Msg("failed to send reply")
		return
	}
	r.sent(ctx, msg, d, result, channelID, messageID, false)
}

func (r *Router) respondStream(ctx context.Context, msg domain.InboundMessage, ex agent.Exchange, d *delivery) {
	rec := NewStreamReconciler(ctx, r.cfg.StreamEditInterval(), d, r.log)
	defer func() {
		if p := recover(); p != nil {
			r.streamFailed(ctx, msg, d, rec, fmt.Errorf("panic: %v", p))
		}
		// Finalize is idempotent; this only guarantees the reconciler exits.
		rec.Finalize("")
	}()

	result, err := r.runner.RunStream(ctx, ex, func(evt llm.StreamEvent) {
		rec.OnDelta(evt.Content)
	})
	if err != nil {
		r.streamFailed(ctx, msg, d, rec, err)
		return
	}

	channelID, messageID, err := rec.Finalize(result.Response.Content())
	if err != nil {
		r.log.Error().Err(err).Str("channel", msg.ChannelID).Msg("failed to deliver streamed reply")
		return
	}
	if messageID == "" {
		r.log.Warn().Str("msg_id", msg.ID).Msg("empty response, nothing to send")
		return
	}
	r.sent(ctx, msg, d, result, channelID, messageID, true)
}

// streamFailed stops rec and reports err. A partial reply already on screen
// is replaced by the notice; otherwise the notice is posted normally.
func (r *Router) streamFailed(ctx context.Context, msg domain.InboundMessage, d *delivery, rec *StreamReconciler, err error) {
	channelID, messageID, _ := rec.Finalize("")
	if messageID == "" {
		r.fail(ctx, msg, err)
		return
	}
	r.logFailure(ctx, msg, err)
	if ferr := d.Edit(ctx, channelID, messageID, FailureNotice); ferr != nil {
		r.log.Warn().Err(ferr).Str("channel", channelID).Msg("failed to send failure notice")
	}
}

func (r *Router) sent(ctx context.Context, msg domain.InboundMessage, d *delivery, result *agent.RunResult, channelID, messageID string, streamed bool) {
	r.log.Info().
		Str("channel", channelID).
		Str("user", msg.Author.ID).
		Str("msg_id", messageID).
		Str("delivery", string(d.decision.Kind)).
		Str("model", result.Model).
		Dur("duration", result.Duration).
		Bool("streamed", streamed).
		Bool("media", result.Response.MediaURL != "").
		Msg("reply sent")

	data := hooks.MessageData(msg)
	data["reply_channel"] = channelID
	data["reply_id"] = messageID
	data["delivery"] = string(d.decision.Kind)
	data["model"] = result.Model
	r.hooks.Emit(ctx, hooks.EventReplySent, data)
}

// fail logs err and posts the generic failure notice. Channel messages get
// a reply; threads and DMs get a plain message.
func (r *Router) fail(ctx context.Context, msg domain.InboundMessage, err error) {
	r.logFailure(ctx, msg, err)
	d := &delivery{router: r, msg: msg, decision: domain.DeliveryDecision{Kind: domain.SendToChannel}}
	if msg.Kind == domain.KindChannel {
		d.decision.Kind = domain.ReplyToMessage
	}
	if _, _, serr := d.Post(ctx, FailureNotice); serr != nil {
		r.log.Warn().Err(serr).Str("channel", msg.ChannelID).Msg("failed to send failure notice")
	}
}

// failSafely is fail for use inside a recover; a panicking messenger is
// logged instead of escaping the handler.
func (r *Router) failSafely(ctx context.Context, msg domain.InboundMessage, err error) {
	defer func() {
		if p := recover(); p != nil {
			r.log.Error().Str("panic", fmt.Sprint(p)).Str("msg_id", msg.ID).Msg("panic while sending failure notice")
		}
	}()
	r.fail(ctx, msg, err)
}

func (r *Router) logFailure(ctx context.Context, msg domain.InboundMessage, err error) {
	evt := r.log.Error().Err(err).Str("channel", msg.ChannelID).Str("user", msg.Author.ID).Str("msg_id", msg.ID)
	var ge *domain.GenerationError
	var ce *domain.ConfigurationError
	switch {
	case errors.As(err, &ge):
		evt.Str("provider", ge.Provider).Str("model", ge.Model).Msg("generation failed")
	case errors.As(err, &ce):
		evt.Str("field", ce.Field).Msg("invalid configuration")
	default:
		evt.Msg("agent run failed")
	}

	data := hooks.MessageData(msg)
	data["error"] = err.Error()
	r.hooks.Emit(ctx, hooks.EventGenerationFailed, data)
}
