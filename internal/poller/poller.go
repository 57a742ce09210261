// Package poller implements the Background Poller (C8): a per-session
// loop that drains a Scheduler Handler's ongoing multi-step tool
// streams and pushes their completions onto the session's Event Queue.
// It is the sole producer of SyncUpdate/AsyncUpdate events; this
// single-writer rule eliminates ordering races between the Completion
// Runner's own inline polling during an active turn and polling that
// must continue between turns while a multi-step tool keeps running.
package poller

import (
	"context"
	"time"

	"github.com/agentcore/core/internal/eventqueue"
	"github.com/agentcore/core/internal/scheduler"
)

// Config bounds the poller's sleep intervals, mirroring the option
// table in spec.md §6.
type Config struct {
	// IdleInterval is how long to sleep after a poll produced nothing
	// and no ongoing stream remains.
	IdleInterval time.Duration
	// ActiveInterval is how long to sleep otherwise (a stream is still
	// running, or this poll just produced a completion).
	ActiveInterval time.Duration
}

// DefaultConfig returns the spec's documented defaults (50ms idle,
// 10ms active).
func DefaultConfig() Config {
	return Config{
		IdleInterval:   50 * time.Millisecond,
		ActiveInterval: 10 * time.Millisecond,
	}
}

// Poller owns one session's background polling goroutine.
type Poller struct {
	handler *scheduler.Handler
	queue   *eventqueue.Queue
	cfg     Config

	cancel context.CancelFunc
	done   chan struct{}
}

// Start spawns the polling loop bound to handler and queue and returns
// the running Poller. Stop (or cancelling ctx) ends the loop; the
// session handle being dropped (ctx.Done) is the normal exit path.
func Start(ctx context.Context, handler *scheduler.Handler, queue *eventqueue.Queue, cfg Config) *Poller {
	if cfg.IdleInterval <= 0 {
		cfg = DefaultConfig()
	}
	if cfg.ActiveInterval <= 0 {
		cfg.ActiveInterval = DefaultConfig().ActiveInterval
	}

	loopCtx, cancel := context.WithCancel(ctx)
	p := &Poller{
		handler: handler,
		queue:   queue,
		cfg:     cfg,
		cancel:  cancel,
		done:    make(chan struct{}),
	}
	go p.run(loopCtx)
	return p
}

func (p *Poller) run(ctx context.Context) {
	defer close(p.done)

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		p.handler.PollStreamsOnce()
		completions := p.handler.TakeCompletedCalls()
		for _, c := range completions {
			p.queue.PushToolUpdate(c)
		}

		interval := p.cfg.ActiveInterval
		if len(completions) == 0 && !p.handler.HasOngoingStreams() {
			interval = p.cfg.IdleInterval
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(interval):
		}
	}
}

// Stop cancels the polling loop and blocks until its goroutine exits.
func (p *Poller) Stop() {
	p.cancel()
	<-p.done
}
