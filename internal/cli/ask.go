package cli

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/soyeahso/gork/internal/agent"
	"github.com/soyeahso/gork/internal/domain"
	"github.com/soyeahso/gork/internal/llm"
	"github.com/soyeahso/gork/internal/media"
	"github.com/spf13/cobra"
)

func newAskCmd() *cobra.Command {
	var (
		author  string
		stream  bool
		augment bool
		verbose bool
	)

	cmd := &cobra.Command{
		Use:   "ask <prompt...>",
		Short: "Send one prompt through the persona and print the reply",
		Long: "ask runs a single exchange without connecting to Discord. It uses the\n" +
			"configured identity, instructions, models and media sources.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(false)
			if err != nil {
				return err
			}
			runner, err := newRunner(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			ex := askExchange(author, strings.Join(args, " "), augment)
			out := cmd.OutOrStdout()

			var res *agent.RunResult
			if stream {
				sp := &streamPrinter{w: out}
				res, err = runner.RunStream(cmd.Context(), ex, func(ev llm.StreamEvent) {
					if ev.Type == llm.EventDelta {
						sp.delta(ev.Content)
					}
				})
				if err == nil {
					sp.finish(res.Response)
				}
			} else {
				res, err = runner.Run(cmd.Context(), ex)
				if err == nil {
					fmt.Fprintln(out, res.Response.Content())
				}
			}
			if err != nil {
				return err
			}

			if verbose {
				fmt.Fprintf(os.Stderr, "model=%s input_tokens=%d output_tokens=%d duration=%s\n",
					res.Model, res.Usage.InputTokens, res.Usage.OutputTokens, res.Duration.Round(time.Millisecond))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&author, "author", "user", "display name the prompt is attributed to")
	cmd.Flags().BoolVar(&stream, "stream", false, "print the reply as it is generated")
	cmd.Flags().BoolVar(&augment, "augment", true, "allow media hints and random additions")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "print model and token usage to stderr")

	return cmd
}

// askExchange wraps a command-line prompt as a one-message DM exchange.
func askExchange(author, text string, augment bool) agent.Exchange {
	return agent.Exchange{
		History: domain.ConversationContext{{
			Author:      author,
			PromptText:  text,
			ChannelKind: domain.KindDirectMessage,
		}},
		Location: domain.KindDirectMessage,
		Augment:  augment,
	}
}

// streamPrinter writes a streamed reply with media directives removed.
// Only text past what is already on screen is printed.
type streamPrinter struct {
	w       io.Writer
	raw     strings.Builder
	printed string
}

func (p *streamPrinter) delta(text string) {
	p.raw.WriteString(text)
	p.show(media.StripPartial(p.raw.String()))
}

func (p *streamPrinter) show(text string) {
	rest, ok := strings.CutPrefix(text, p.printed)
	if !ok || rest == "" {
		return
	}
	fmt.Fprint(p.w, rest)
	p.printed = text
}

// finish prints whatever the final text adds, then the media URL.
func (p *streamPrinter) finish(resp domain.GeneratedResponse) {
	p.show(resp.DisplayText)
	fmt.Fprintln(p.w)
	if resp.MediaURL != "" {
		fmt.Fprintln(p.w, resp.MediaURL)
	}
}
