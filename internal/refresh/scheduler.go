// Package refresh drives version checks from a timer or a push stream and
// reports which categories moved.
package refresh

import (
	"context"
	"sync"
	"time"

	"github.com/grachmannico95/bankline/internal/datasync"
	"github.com/grachmannico95/bankline/internal/domain"
	"github.com/grachmannico95/bankline/pkg/logger"
)

const DefaultInterval = 30 * time.Second

// Checker is satisfied by *datasync.Syncer.
type Checker interface {
	CheckForChanges(ctx context.Context, token string, categories []domain.Category) datasync.ChangeSet
}

// ChangeHandler receives every ChangeSet that reports changes.
type ChangeHandler func(ctx context.Context, changes datasync.ChangeSet)

type Options struct {
	Token        string
	Categories   []domain.Category
	Interval     time.Duration
	OnDataChange ChangeHandler
}

// SmartRefresh runs a version check on every tick while started.
//
// Start and Stop are idempotent. At most one ticker exists at a time and no
// OnDataChange call begins after Stop returns.
type SmartRefresh struct {
	checker Checker
	opts    Options
	logger  *logger.Logger

	mu        sync.Mutex
	idle      *sync.Cond
	running   bool
	ticker    *time.Ticker
	cancel    context.CancelFunc
	done      chan struct{}
	callbacks int
}

// callbackMark is attached to the context handed to OnDataChange.
type callbackMark struct {
	owner *SmartRefresh
	loop  bool
}

type callbackKey struct{}

func NewSmartRefresh(checker Checker, opts Options, log *logger.Logger) *SmartRefresh {
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	if log == nil {
		log = logger.NewNop()
	}
	s := &SmartRefresh{
		checker: checker,
		opts:    opts,
		logger:  log,
	}
	s.idle = sync.NewCond(&s.mu)
	return s
}

func (s *SmartRefresh) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return
	}

	runCtx, cancel := context.WithCancel(ctx)
	s.ticker = time.NewTicker(s.opts.Interval)
	s.cancel = cancel
	s.done = make(chan struct{})
	s.running = true

	go s.loop(runCtx, s.ticker, s.done)

	s.logger.Debug(ctx, "Smart refresh started", "interval", s.opts.Interval.String())
}

// Stop cancels any in-flight check, then waits for running OnDataChange calls
// and the loop to finish. It must not be called from inside OnDataChange; use
// StopFromCallback there.
func (s *SmartRefresh) Stop() {
	s.stop(nil)
}

// StopFromCallback stops the scheduler from inside OnDataChange, passing the
// context the callback received. It waits for every other callback but not
// for the one it is called from. With any other context it behaves like Stop.
func (s *SmartRefresh) StopFromCallback(ctx context.Context) {
	mark, _ := ctx.Value(callbackKey{}).(*callbackMark)
	if mark != nil && mark.owner != s {
		mark = nil
	}
	s.stop(mark)
}

func (s *SmartRefresh) stop(self *callbackMark) {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	s.ticker.Stop()
	s.cancel()
	done := s.done

	own := 0
	if self != nil {
		own = 1
	}
	// no delivery can begin once running is false
	for s.callbacks > own {
		s.idle.Wait()
	}
	s.mu.Unlock()

	if self == nil || !self.loop {
		<-done
	}
}

func (s *SmartRefresh) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// TriggerRefresh runs one check now. OnDataChange is only invoked while started.
func (s *SmartRefresh) TriggerRefresh(ctx context.Context) datasync.ChangeSet {
	cs := s.checker.CheckForChanges(ctx, s.opts.Token, s.opts.Categories)
	s.deliver(ctx, cs, true)
	return cs
}

func (s *SmartRefresh) loop(ctx context.Context, ticker *time.Ticker, done chan struct{}) {
	defer close(done)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			cs := s.checker.CheckForChanges(ctx, s.opts.Token, s.opts.Categories)
			s.deliver(ctx, cs, false)
		}
	}
}

func (s *SmartRefresh) deliver(ctx context.Context, cs datasync.ChangeSet, manual bool) {
	if !cs.HasChanges || s.opts.OnDataChange == nil {
		return
	}

	s.mu.Lock()
	if !s.running || (!manual && ctx.Err() != nil) {
		s.mu.Unlock()
		return
	}
	s.callbacks++
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.callbacks--
		s.idle.Broadcast()
		s.mu.Unlock()
	}()

	s.opts.OnDataChange(context.WithValue(ctx, callbackKey{}, &callbackMark{owner: s, loop: !manual}), cs)
}
