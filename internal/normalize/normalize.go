// Package normalize converts platform messages into the author-agnostic
// form used for prompt assembly.
package normalize

import (
	"context"
	"path"
	"regexp"
	"strings"

	"github.com/soyeahso/gork/internal/domain"
	"github.com/soyeahso/gork/internal/logging"
)

var (
	mentionToken = regexp.MustCompile(`<@!?(\d+)>`)
	imageFile    = regexp.MustCompile(`(?i)\.(jpg|jpeg|png|webp)$`)
	spaceRun     = regexp.MustCompile(`[ \t]{2,}`)
)

// VideoInfo describes a YouTube video resolved by id.
type VideoInfo struct {
	Title   string
	Channel string
}

// TitleLookup resolves YouTube ids the platform has not embedded yet.
type TitleLookup interface {
	Videos(ctx context.Context, ids []string) (map[string]VideoInfo, error)
}

// Normalizer builds NormalizedMessages.
type Normalizer struct {
	titles TitleLookup
	log    *logging.Logger
}

// New creates a Normalizer. titles may be nil.
func New(titles TitleLookup, log *logging.Logger) *Normalizer {
	return &Normalizer{titles: titles, log: log.Sub("normalize")}
}

// Normalize converts msg. It fails only for unsupported channel kinds.
func (n *Normalizer) Normalize(ctx context.Context, msg domain.InboundMessage, botID string) (domain.NormalizedMessage, error) {
	out := domain.NormalizedMessage{
		Author:      msg.Author.DisplayName,
		IsFromBot:   botID != "" && msg.Author.ID == botID,
		ChannelKind: msg.Kind,
	}

	switch msg.Kind {
	case domain.KindChannel, domain.KindDirectMessage:
	case domain.KindThread:
		out.ThreadRef = msg.ChannelID
	default:
		return domain.NormalizedMessage{}, &domain.UnsupportedChannelError{Kind: string(msg.Kind)}
	}

	text := embeddedLink.ReplaceAllString(strings.TrimSpace(msg.Body), "")
	text = ReplaceMentions(text, msg.Mentions)
	text = strings.TrimSpace(spaceRun.ReplaceAllString(text, " "))

	for _, summary := range n.summaries(ctx, msg) {
		if text == "" {
			text = "(" + summary + ")"
		} else {
			text += " (" + summary + ")"
		}
	}
	out.PromptText = text
	out.ImageURLs = ImageURLs(msg.Attachments)
	return out, nil
}

// summaries returns embed annotations, falling back to TitleLookup for
// YouTube links whose preview has not arrived.
func (n *Normalizer) summaries(ctx context.Context, msg domain.InboundMessage) []string {
	var out []string
	embedded := map[string]bool{}
	for _, e := range msg.Embeds {
		s := summarizeEmbed(e)
		if s == "" {
			continue
		}
		out = append(out, s)
		if id := videoID(e.URL); id != "" {
			embedded[id] = true
		}
	}

	if n.titles == nil {
		return out
	}
	var missing []string
	for _, id := range videoIDs(msg.Body) {
		if !embedded[id] {
			missing = append(missing, id)
		}
	}
	if len(missing) == 0 {
		return out
	}

	videos, err := n.titles.Videos(ctx, missing)
	if err != nil {
		n.log.Debug().Err(err).Str("msg_id", msg.ID).Msg("video lookup failed")
		return out
	}
	for _, id := range missing {
		v, ok := videos[id]
		if !ok {
			continue
		}
		out = append(out, summarizeEmbed(domain.Embed{
			Author: v.Channel,
			Title:  v.Title,
			URL:    "https://youtu.be/" + id,
		}))
	}
	return out
}

// ReplaceMentions rewrites <@id> tokens as @name. Unknown ids are left untouched.
func ReplaceMentions(text string, names map[string]string) string {
	if len(names) == 0 {
		return text
	}
	return mentionToken.ReplaceAllStringFunc(text, func(tok string) string {
		id := mentionToken.FindStringSubmatch(tok)[1]
		if name, ok := names[id]; ok {
			return "@" + name
		}
		return tok
	})
}

// ImageURLs returns the URLs of image attachments in order.
func ImageURLs(attachments []domain.Attachment) []string {
	var urls []string
	for _, a := range attachments {
		name := a.Filename
		if name == "" {
			name = path.Base(strings.SplitN(a.URL, "?", 2)[0])
		}
		if imageFile.MatchString(name) {
			urls = append(urls, a.URL)
		}
	}
	return urls
}
