package session

import (
	"context"
	"sync"
	"time"
)

// Defaults applied when corresponding GovernorConfig fields are unset.
// Ceiling and keep form a hysteresis band: trimming fires only past the
// ceiling and cuts down to keep, so appends near the boundary do not trigger
// work on every message.
const (
	DefaultCeiling       = 200
	DefaultKeep          = 150
	DefaultSweepInterval = 30 * time.Second
)

// GovernorConfig holds the governor's tunables, explicit so tests can run the
// sweep at accelerated time.
type GovernorConfig struct {
	// Ceiling is the hard message count above which a trim fires.
	Ceiling int
	// Keep is the message count retained after a trim. Must be < Ceiling.
	Keep int
	// SweepInterval is the periodic tick for trim + orphan sweep.
	SweepInterval time.Duration
	// OnCleanup observes each sweep that removed something. Optional.
	OnCleanup func(trimmedMessages, sweptNotes int)
}

// Governor bounds the conversation log and its thread store. It is the only
// component allowed to truncate the log.
type Governor struct {
	log      *Log
	threads  *ThreadStore
	ceiling  int
	keep     int
	interval time.Duration
	onClean  func(int, int)

	mu           sync.Mutex
	trimmedTotal int
	sweptTotal   int
}

// NewGovernor wires a governor to a log and thread store, applying defaults
// for unset config fields.
func NewGovernor(log *Log, threads *ThreadStore, cfg GovernorConfig) *Governor {
	g := &Governor{
		log:      log,
		threads:  threads,
		ceiling:  cfg.Ceiling,
		keep:     cfg.Keep,
		interval: cfg.SweepInterval,
		onClean:  cfg.OnCleanup,
	}
	if g.ceiling <= 0 {
		g.ceiling = DefaultCeiling
	}
	if g.keep <= 0 || g.keep >= g.ceiling {
		g.keep = g.ceiling * 3 / 4
	}
	// Never trim away the most recent exchange.
	if g.keep < 2 {
		g.keep = 2
	}
	if g.interval <= 0 {
		g.interval = DefaultSweepInterval
	}
	return g
}

// Run sweeps on the configured interval until ctx is done. Call from a
// dedicated goroutine.
func (g *Governor) Run(ctx context.Context) {
	ticker := time.NewTicker(g.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			g.Sweep()
		case <-ctx.Done():
			return
		}
	}
}

// NotifyAppend runs a synchronous check after an append, so a burst of
// messages cannot outrun the periodic sweep. Cheap no-op below the ceiling.
func (g *Governor) NotifyAppend() {
	if g.log.Len() > g.ceiling {
		g.Sweep()
	}
}

// Sweep trims the log if it exceeds the ceiling, then drops thread
// annotations orphaned by any trim. Returns what was removed.
func (g *Governor) Sweep() (trimmed, swept int) {
	if g.log.Len() > g.ceiling {
		trimmed = len(g.log.replaceTail(g.keep))
	}

	live := make(map[string]struct{})
	for _, m := range g.log.Messages() {
		live[m.ID] = struct{}{}
	}
	swept = g.threads.sweep(live)

	if trimmed > 0 || swept > 0 {
		g.mu.Lock()
		g.trimmedTotal += trimmed
		g.sweptTotal += swept
		g.mu.Unlock()
		if g.onClean != nil {
			g.onClean(trimmed, swept)
		}
	}
	return trimmed, swept
}

// Totals reports cumulative removals since startup.
func (g *Governor) Totals() (trimmedMessages, sweptNotes int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.trimmedTotal, g.sweptTotal
}
