package routing

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/soyeahso/gork/internal/domain"
	"github.com/soyeahso/gork/internal/logging"
	"github.com/soyeahso/gork/internal/media"
	"golang.org/x/time/rate"
)

// Poster creates and edits the message a stream is rendered into.
type Poster interface {
	Post(ctx context.Context, text string) (channelID, messageID string, err error)
	Edit(ctx context.Context, channelID, messageID, text string) error
}

// finalGrace bounds how long a reconciler outlives its context without
// being finalized.
var finalGrace = 5 * time.Second

type reconcilerState int

const (
	stateAccumulating reconcilerState = iota
	stateFinalized
	stateAborted
)

// StreamReconciler renders streamed deltas into a single platform message.
// The first visible text posts the message; later deltas edit it at most
// once per interval. Finalize always writes the authoritative text.
// All platform calls happen on one goroutine, so edits are strictly ordered.
type StreamReconciler struct {
	ctx      context.Context
	poster   Poster
	throttle *rate.Limiter
	log      *logging.Logger
	grace    time.Duration

	// waitCtx is cancelled by Finalize to cut a throttled wait short.
	waitCtx    context.Context
	cancelWait context.CancelFunc

	mu        sync.Mutex
	state     reconcilerState
	raw       strings.Builder
	channelID string
	messageID string
	sent      string
	err       error

	wake      chan struct{}
	final     chan string
	finalOnce sync.Once
	done      chan struct{}
}

// NewStreamReconciler starts a reconciler. A non-positive interval edits
// on every delta.
func NewStreamReconciler(ctx context.Context, interval time.Duration, poster Poster, log *logging.Logger) *StreamReconciler {
	limit := rate.Inf
	if interval > 0 {
		limit = rate.Every(interval)
	}
	waitCtx, cancel := context.WithCancel(ctx)
	r := &StreamReconciler{
		ctx:        ctx,
		poster:     poster,
		throttle:   rate.NewLimiter(limit, 1),
		log:        log,
		grace:      finalGrace,
		waitCtx:    waitCtx,
		cancelWait: cancel,
		wake:       make(chan struct{}, 1),
		final:      make(chan string, 1),
		done:       make(chan struct{}),
	}
	go r.run()
	return r
}

// OnDelta appends a delta. Deltas after Finalize are ignored.
func (r *StreamReconciler) OnDelta(text string) {
	r.mu.Lock()
	if r.state != stateAccumulating {
		r.mu.Unlock()
		return
	}
	r.raw.WriteString(text)
	r.mu.Unlock()

	select {
	case r.wake <- struct{}{}:
	default:
	}
}

// Finalize writes text as the final content, bypassing the throttle, and
// waits for the reconciler to stop. It returns where the message landed.
// Calling Finalize again only waits.
func (r *StreamReconciler) Finalize(text string) (channelID, messageID string, err error) {
	r.finalOnce.Do(func() {
		r.mu.Lock()
		if r.state == stateAccumulating {
			r.state = stateFinalized
		}
		r.mu.Unlock()
		r.cancelWait()
		r.final <- text
	})
	<-r.done

	r.mu.Lock()
	defer r.mu.Unlock()
	return r.channelID, r.messageID, r.err
}

// Posted reports whether a message has been created.
func (r *StreamReconciler) Posted() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.messageID != ""
}

func (r *StreamReconciler) run() {
	defer close(r.done)
	defer r.cancelWait()
	for {
		select {
		case text := <-r.final:
			r.write(domain.Truncate(strings.TrimSpace(text)))
			return
		case <-r.ctx.Done():
			// Wait briefly for a Finalize already on its way, then give up.
			t := time.NewTimer(r.grace)
			defer t.Stop()
			select {
			case text := <-r.final:
				r.write(domain.Truncate(strings.TrimSpace(text)))
			case <-t.C:
				r.log.Debug().Msg("stream abandoned without finalize")
			}
			return
		case <-r.wake:
			if err := r.throttle.Wait(r.waitCtx); err != nil {
				continue
			}
			r.mu.Lock()
			snapshot := media.StripPartial(r.raw.String())
			r.mu.Unlock()
			r.write(domain.Truncate(snapshot))
		}
	}
}

// write posts or edits the message unless it already shows text.
func (r *StreamReconciler) write(text string) {
	r.mu.Lock()
	if r.state == stateAborted || text == "" || text == r.sent {
		r.mu.Unlock()
		return
	}
	channelID, messageID := r.channelID, r.messageID
	r.mu.Unlock()

	var err error
	if messageID == "" {
		channelID, messageID, err = r.poster.Post(r.ctx, text)
	} else {
		err = r.poster.Edit(r.ctx, channelID, messageID, text)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if err != nil {
		r.log.Warn().Err(err).Str("channel", channelID).Str("msg_id", messageID).Msg("stream update failed, aborting stream")
		r.state = stateAborted
		r.err = err
		return
	}
	r.channelID, r.messageID, r.sent = channelID, messageID, text
}
