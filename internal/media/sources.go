package media

import (
	"github.com/soyeahso/gork/internal/config"
	"github.com/soyeahso/gork/internal/logging"
	"github.com/soyeahso/gork/internal/prompt"
)

// Sources holds the media backends enabled by configuration.
type Sources struct {
	cfg     config.MediaConfig
	Default *TagIndex
	Custom  *TagIndex
	Search  *TenorSearcher
}

// LoadSources opens the enabled catalogs and search backend. resolve maps
// configured paths onto the gork home directory.
func LoadSources(cfg config.MediaConfig, resolve func(string) string) (*Sources, error) {
	s := &Sources{cfg: cfg}
	var err error
	if cfg.Default.Enabled {
		if s.Default, err = LoadTagIndex("default", resolve(cfg.Default.Path)); err != nil {
			return nil, err
		}
	}
	if cfg.Custom.Enabled {
		if s.Custom, err = LoadTagIndex("custom", resolve(cfg.Custom.Path)); err != nil {
			return nil, err
		}
	}
	if cfg.Internet.Enabled && cfg.Internet.APIKey != "" {
		in := cfg.Internet
		s.Search = NewTenorSearcher(in.APIKey, in.ClientKey, in.BaseURL, in.Limit)
	}
	return s, nil
}

// Resolvers returns the local-first resolver chain.
func (s *Sources) Resolvers() []Resolver {
	var out []Resolver
	if s.Default != nil {
		out = append(out, s.Default)
	}
	if s.Custom != nil {
		out = append(out, s.Custom)
	}
	if s.Search != nil {
		out = append(out, s.Search)
	}
	return out
}

// Hints returns the prompt hints for the loaded sources. No hints are
// produced when media posting is off.
func (s *Sources) Hints() []prompt.MediaHint {
	if !s.cfg.PostMedia {
		return nil
	}
	var out []prompt.MediaHint
	if s.Default != nil && s.Default.Len() > 0 {
		out = append(out, prompt.MediaHint{
			Instructions: s.cfg.Default.Instructions,
			Tags:         s.Default.Tags(),
			Chance:       s.cfg.Default.Chance,
		})
	}
	if s.Custom != nil && s.Custom.Len() > 0 {
		out = append(out, prompt.MediaHint{
			Instructions: s.cfg.Custom.Instructions,
			Tags:         s.Custom.Tags(),
			Chance:       s.cfg.Custom.Chance,
		})
	}
	if s.Search != nil && s.cfg.Internet.Instructions != "" {
		out = append(out, prompt.MediaHint{
			Instructions: s.cfg.Internet.Instructions,
			Chance:       s.cfg.Internet.Chance,
		})
	}
	return out
}

// PostProcessor builds the post-processor over the resolver chain.
func (s *Sources) PostProcessor(log *logging.Logger) *PostProcessor {
	return NewPostProcessor(s.Resolvers(), s.cfg.PostMedia, log)
}
