package cli

import (
	"context"
	"fmt"

	"github.com/soyeahso/gork/internal/agent"
	"github.com/soyeahso/gork/internal/config"
	"github.com/soyeahso/gork/internal/llm"
	"github.com/soyeahso/gork/internal/media"
	"github.com/soyeahso/gork/internal/prompt"
)

// newRunner builds the generation pipeline from cfg: provider registry,
// media sources, prompt assembler and runner.
func newRunner(ctx context.Context, cfg config.Config) (*agent.Runner, error) {
	registry, err := llm.NewRegistryFromConfig(ctx, cfg.AI, log)
	if err != nil {
		return nil, err
	}

	sources, err := media.LoadSources(cfg.Media, paths.Resolve)
	if err != nil {
		return nil, fmt.Errorf("load media: %w", err)
	}

	assembler := prompt.NewAssembler(prompt.Options{
		Augmentation: prompt.Augmentation{
			MediaHints:     sources.Hints(),
			Additions:      cfg.AI.PotentialAdditions,
			AdditionChance: cfg.AI.AdditionChance,
		},
	}, log)

	temperature := cfg.AI.Temperature
	return agent.NewRunner(agent.RunnerConfig{
		Model:       cfg.AI.Model,
		Fallbacks:   cfg.AI.FallbackModels,
		MaxTokens:   cfg.AI.MaxTokens,
		Temperature: &temperature,
		Instructions: prompt.Instructions{
			Identity:     cfg.AI.Identity,
			Instructions: cfg.AI.Instructions,
		},
		TestingMode:     cfg.AI.TestingMode,
		TestingResponse: cfg.AI.TestingResponse,
	}, registry, assembler, sources.PostProcessor(log), log), nil
}
