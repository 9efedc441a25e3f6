package routing

import (
	"github.com/soyeahso/gork/internal/domain"
)

// Decide picks how the reply to the last message of history is delivered.
//
//   - thread: post in the thread
//   - DM: post in the DM channel
//   - channel reply to one of the bot's messages: open a follow-up thread
//   - otherwise: reply to the triggering message
func Decide(kind domain.ChannelKind, history domain.ConversationContext) (domain.DeliveryDecision, error) {
	switch kind {
	case domain.KindThread:
		return domain.DeliveryDecision{Kind: domain.SendToThread}, nil
	case domain.KindDirectMessage:
		return domain.DeliveryDecision{Kind: domain.SendToChannel}, nil
	case domain.KindChannel:
		if n := len(history); n > 1 && history[n-2].IsFromBot {
			return domain.DeliveryDecision{
				Kind:          domain.SendToThread,
				NewThreadName: "Follow-up Discussion with " + history[n-1].Author,
			}, nil
		}
		return domain.DeliveryDecision{Kind: domain.ReplyToMessage}, nil
	default:
		return domain.DeliveryDecision{}, &domain.UnsupportedChannelError{Kind: string(kind)}
	}
}
