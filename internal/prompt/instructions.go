// Package prompt turns a conversation context into the ordered input list
// sent to the generation provider.
package prompt

import (
	"fmt"
	"strings"
)

// Instructions is the persona sent as the first developer entry.
type Instructions struct {
	Identity     string
	Instructions string
}

// Text renders the identity and instructions as one markdown block.
func (i Instructions) Text() string {
	return fmt.Sprintf("# Identity\n\n%s\n# Instructions\n\n%s",
		strings.TrimSpace(i.Identity), strings.TrimSpace(i.Instructions))
}

// MediaHint advertises one media source to the model.
type MediaHint struct {
	Instructions string
	Tags         []string
	Chance       float64
}

// Text renders the hint. Sources without tags (keyword search) send only
// their instructions.
func (h MediaHint) Text() string {
	ins := strings.TrimSpace(h.Instructions)
	if len(h.Tags) == 0 {
		return ins
	}
	return fmt.Sprintf("%s: [%s].", ins, strings.Join(h.Tags, ", "))
}

// Augmentation holds the randomized extras applied to the newest message.
type Augmentation struct {
	// MediaHints are tried in order with cumulative chances; at most one
	// is chosen per request.
	MediaHints []MediaHint

	Additions      []string
	AdditionChance float64
}

// Random is the randomness the assembler draws from. *rand.Rand from
// math/rand/v2 satisfies it.
type Random interface {
	Float64() float64
	IntN(n int) int
}

// pick applies the augmentation rolls and returns the developer texts to
// append, media hint first.
func (a Augmentation) pick(r Random) []string {
	var out []string

	if len(a.MediaHints) > 0 {
		roll := r.Float64()
		cumulative := 0.0
		for _, h := range a.MediaHints {
			cumulative += h.Chance
			if roll < cumulative {
				if text := h.Text(); text != "" {
					out = append(out, text)
				}
				break
			}
		}
	}

	if len(a.Additions) > 0 && r.Float64() < a.AdditionChance {
		if text := strings.TrimSpace(a.Additions[r.IntN(len(a.Additions))]); text != "" {
			out = append(out, text)
		}
	}
	return out
}
