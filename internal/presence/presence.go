// Package presence rotates the bot's custom status through a list of lines.
package presence

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand/v2"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/soyeahso/gork/internal/channel"
	"github.com/soyeahso/gork/internal/logging"
)

// Load reads a JSON array of status lines. Blank lines are dropped.
func Load(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read presence lines: %w", err)
	}
	var raw []string
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse presence lines %s: %w", path, err)
	}
	lines := make([]string, 0, len(raw))
	for _, l := range raw {
		if l = strings.TrimSpace(l); l != "" {
			lines = append(lines, l)
		}
	}
	return lines, nil
}

// Rotator sets a random line as the status of every target on a fixed
// interval.
type Rotator struct {
	lines    []string
	interval time.Duration
	targets  []channel.PresenceSetter
	intn     func(n int) int
	cron     *cron.Cron
	log      *logging.Logger

	mu      sync.Mutex
	current int
}

// NewRotator creates a Rotator. An interval below one minute is raised to
// one minute.
func NewRotator(lines []string, interval time.Duration, targets []channel.PresenceSetter, log *logging.Logger) *Rotator {
	log = log.Sub("presence")
	interval = max(interval, time.Minute)
	return &Rotator{
		lines:    lines,
		interval: interval,
		targets:  targets,
		intn:     rand.IntN,
		cron: cron.New(cron.WithChain(
			cron.Recover(cronLogger{log}),
			cron.SkipIfStillRunning(cronLogger{log}),
		)),
		log:     log,
		current: -1,
	}
}

// Start schedules the rotation. It is a no-op without lines or targets.
func (r *Rotator) Start() {
	if len(r.lines) == 0 || len(r.targets) == 0 {
		r.log.Debug().Msg("presence rotation disabled")
		return
	}
	r.cron.Schedule(cron.Every(r.interval), cron.FuncJob(r.Rotate))
	r.cron.Start()
	r.log.Info().Int("lines", len(r.lines)).Dur("interval", r.interval).Msg("presence rotation started")
}

// Stop halts the schedule and waits for a running rotation to finish.
func (r *Rotator) Stop(ctx context.Context) {
	select {
	case <-r.cron.Stop().Done():
	case <-ctx.Done():
	}
}

// Rotate applies the next line immediately.
func (r *Rotator) Rotate() {
	line, ok := r.next()
	if !ok {
		return
	}
	for _, t := range r.targets {
		if err := t.SetPresence(line); err != nil {
			r.log.Warn().Err(err).Msg("failed to set presence")
		}
	}
	r.log.Debug().Str("status", line).Msg("presence updated")
}

// Current returns the line most recently applied.
func (r *Rotator) Current() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.current < 0 {
		return ""
	}
	return r.lines[r.current]
}

// next picks a random line, avoiding an immediate repeat.
func (r *Rotator) next() (string, bool) {
	if len(r.lines) == 0 {
		return "", false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	i := r.intn(len(r.lines))
	if i == r.current && len(r.lines) > 1 {
		i = (i + 1) % len(r.lines)
	}
	r.current = i
	return r.lines[i], true
}

// cronLogger adapts Logger to cron.Logger.
type cronLogger struct {
	log *logging.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.log.Debug().Fields(keysAndValues).Msg(msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.log.Error().Err(err).Fields(keysAndValues).Msg(msg)
}
