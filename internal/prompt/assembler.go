package prompt

import (
	"context"
	"math/rand/v2"
	"net/http"
	"time"

	"github.com/soyeahso/gork/internal/domain"
	"github.com/soyeahso/gork/internal/llm"
	"github.com/soyeahso/gork/internal/logging"
	"golang.org/x/sync/errgroup"
)

// maxConcurrentFetches bounds image downloads per message.
const maxConcurrentFetches = 4

// Options configures an Assembler. Zero values select defaults.
type Options struct {
	HTTPClient   *http.Client
	Augmentation Augmentation
	Random       Random
	MaxImageEdge int
}

// Assembler builds generation input from a conversation context.
type Assembler struct {
	client  *http.Client
	aug     Augmentation
	rnd     Random
	maxEdge int
	log     *logging.Logger
}

// NewAssembler creates an Assembler.
func NewAssembler(opts Options, log *logging.Logger) *Assembler {
	a := &Assembler{
		client:  opts.HTTPClient,
		aug:     opts.Augmentation,
		rnd:     opts.Random,
		maxEdge: opts.MaxImageEdge,
		log:     log.Sub("prompt"),
	}
	if a.client == nil {
		a.client = &http.Client{Timeout: 30 * time.Second}
	}
	if a.rnd == nil {
		a.rnd = globalRandom{}
	}
	if a.maxEdge <= 0 {
		a.maxEdge = MaxImageEdge
	}
	return a
}

// Assemble returns the ordered input list: the persona entry, one entry
// per message in history, then any augmentation entries when augment is set.
func (a *Assembler) Assemble(ctx context.Context, ins Instructions, history domain.ConversationContext, augment bool) ([]llm.InputItem, error) {
	if ins.Instructions == "" {
		return nil, &domain.ConfigurationError{Field: "ai.instructions", Message: "instructions are required"}
	}

	items := make([]llm.InputItem, 0, len(history)+3)
	items = append(items, developer(ins.Text()))

	for _, msg := range history {
		item := a.messageItem(ctx, msg)
		if len(item.Content) == 0 {
			continue
		}
		items = append(items, item)
	}

	if augment && len(history) > 0 {
		for _, text := range a.aug.pick(a.rnd) {
			items = append(items, developer(text))
		}
	}
	return items, nil
}

func (a *Assembler) messageItem(ctx context.Context, msg domain.NormalizedMessage) llm.InputItem {
	if msg.IsFromBot {
		item := llm.InputItem{Role: llm.RoleAssistant}
		if msg.PromptText != "" {
			item.Content = append(item.Content, llm.ContentPart{Type: llm.ContentOutputText, Text: msg.PromptText})
		}
		return item
	}

	item := llm.InputItem{Role: llm.RoleUser}
	if msg.PromptText != "" {
		item.Content = append(item.Content, llm.ContentPart{
			Type: llm.ContentInputText,
			Text: msg.Author + ": " + msg.PromptText,
		})
	}
	for _, url := range a.images(ctx, msg.ImageURLs) {
		item.Content = append(item.Content, llm.ContentPart{Type: llm.ContentInputImage, ImageURL: url})
	}
	return item
}

// images fetches urls concurrently, keeping order and skipping failures.
func (a *Assembler) images(ctx context.Context, urls []string) []string {
	if len(urls) == 0 {
		return nil
	}

	encoded := make([]string, len(urls))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentFetches)
	for i, url := range urls {
		g.Go(func() error {
			data, err := a.fetchImage(gctx, url)
			if err != nil {
				a.log.Warn().Err(err).Str("url", url).Msg("skipping image")
				return nil
			}
			encoded[i] = data
			return nil
		})
	}
	_ = g.Wait()

	out := encoded[:0]
	for _, e := range encoded {
		if e != "" {
			out = append(out, e)
		}
	}
	return out
}

func developer(text string) llm.InputItem {
	return llm.InputItem{
		Role:    llm.RoleDeveloper,
		Content: []llm.ContentPart{{Type: llm.ContentInputText, Text: text}},
	}
}

// globalRandom draws from the goroutine-safe top-level math/rand/v2 source.
type globalRandom struct{}

func (globalRandom) Float64() float64 { return rand.Float64() }
func (globalRandom) IntN(n int) int   { return rand.IntN(n) }
