package domain

// DeliveryKind selects how a response is posted.
type DeliveryKind string

const (
	ReplyToMessage DeliveryKind = "reply"
	SendToThread   DeliveryKind = "thread"
	SendToChannel  DeliveryKind = "channel"
)

// ThreadArchiveMinutes is the auto-archive duration for threads the bot creates.
const ThreadArchiveMinutes = 60

// DeliveryDecision is the router's verdict for one response.
type DeliveryDecision struct {
	Kind DeliveryKind `json:"kind"`

	// NewThreadName is set when a thread must be created from the triggering message.
	NewThreadName string `json:"newThreadName,omitempty"`
}

// CreatesThread reports whether delivery starts a new thread.
func (d DeliveryDecision) CreatesThread() bool {
	return d.Kind == SendToThread && d.NewThreadName != ""
}

// MaxMessageLength is the platform's per-message character limit.
const MaxMessageLength = 2000

// Truncate cuts text to MaxMessageLength characters.
func Truncate(text string) string {
	return truncateRunes(text, MaxMessageLength)
}

func truncateRunes(text string, n int) string {
	if n <= 0 {
		return ""
	}
	if len(text) <= n {
		return text
	}
	runes := []rune(text)
	if len(runes) <= n {
		return text
	}
	return string(runes[:n])
}
