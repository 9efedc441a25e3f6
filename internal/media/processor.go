package media

import (
	"context"

	"github.com/soyeahso/gork/internal/domain"
	"github.com/soyeahso/gork/internal/logging"
)

// PostProcessor turns raw generated text into a GeneratedResponse.
type PostProcessor struct {
	resolvers []Resolver
	enabled   bool
	log       *logging.Logger
}

// NewPostProcessor creates a PostProcessor. Resolvers are tried in order
// for each directive; when enabled is false directives are only stripped.
func NewPostProcessor(resolvers []Resolver, enabled bool, log *logging.Logger) *PostProcessor {
	return &PostProcessor{
		resolvers: resolvers,
		enabled:   enabled,
		log:       log.Sub("media"),
	}
}

// Process strips directives from raw and resolves the first directive
// that any resolver can serve. Resolution failures never surface as errors.
func (p *PostProcessor) Process(ctx context.Context, raw string) domain.GeneratedResponse {
	resp := domain.GeneratedResponse{
		RawText:     raw,
		DisplayText: StripDirectives(raw),
	}
	if !p.enabled {
		return resp
	}

	for _, keyword := range ScanDirectives(raw) {
		if url := p.resolve(ctx, keyword); url != "" {
			resp.MediaURL = url
			break
		}
	}
	return resp
}

func (p *PostProcessor) resolve(ctx context.Context, keyword string) string {
	for _, r := range p.resolvers {
		url, err := r.Resolve(ctx, keyword)
		if err != nil {
			err = &domain.MediaResolutionError{Keyword: keyword, Err: err}
			p.log.Debug().Err(err).Str("resolver", r.Name()).Msg("media resolution failed")
			continue
		}
		if url != "" {
			p.log.Debug().Str("resolver", r.Name()).Str("keyword", keyword).Msg("resolved media")
			return url
		}
	}
	return ""
}
