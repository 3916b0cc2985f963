package refresh

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/multierr"

	"github.com/grachmannico95/bankline/internal/datasync"
	"github.com/grachmannico95/bankline/internal/domain"
	"github.com/grachmannico95/bankline/internal/eventbus"
	"github.com/grachmannico95/bankline/pkg/logger"
	"github.com/grachmannico95/bankline/pkg/retry"
)

type Mode string

const (
	ModePoll      Mode = "poll"
	ModeSSE       Mode = "sse"
	ModeWebSocket Mode = "websocket"
)

func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModePoll, ModeSSE, ModeWebSocket:
		return Mode(s), nil
	case "":
		return ModePoll, nil
	default:
		return "", fmt.Errorf("unknown refresh mode %q", s)
	}
}

type WatcherOptions struct {
	Mode       Mode
	BaseURL    string
	Interval   time.Duration
	Categories []domain.Category
	// OnDataChange, when set, is called in addition to publishing on Bus.
	OnDataChange ChangeHandler
	Bus          eventbus.EventBus
	// Reconnect tunes push source reconnect backoff.
	Reconnect []retry.Option
}

// Watcher ties a SmartRefresh and an optional push source to a signed-in
// session. In push modes the timer keeps running as a fallback and every push
// signal triggers an immediate check.
type Watcher struct {
	checker Checker
	opts    WatcherOptions
	logger  *logger.Logger

	mu       sync.Mutex
	mounted  bool
	refresh  *SmartRefresh
	push     PushSource
	cancel   context.CancelFunc
	pumpDone chan struct{}
}

func NewWatcher(checker Checker, opts WatcherOptions, log *logger.Logger) *Watcher {
	if opts.Mode == "" {
		opts.Mode = ModePoll
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &Watcher{
		checker: checker,
		opts:    opts,
		logger:  log,
	}
}

// Mount starts watching for token. Mounting a mounted watcher is a no-op.
func (w *Watcher) Mount(ctx context.Context, token string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.mounted {
		return nil
	}

	var push PushSource
	if w.opts.Mode != ModePoll {
		streamURL, err := StreamURL(w.opts.BaseURL, w.opts.Mode, w.opts.Categories)
		if err != nil {
			return err
		}
		switch w.opts.Mode {
		case ModeSSE:
			push = NewSSESource(streamURL, w.logger, w.opts.Reconnect...)
		case ModeWebSocket:
			push = NewWebSocketSource(streamURL, w.logger, w.opts.Reconnect...)
		default:
			return fmt.Errorf("unknown refresh mode %q", w.opts.Mode)
		}
	}

	mountCtx, cancel := context.WithCancel(ctx)
	w.refresh = NewSmartRefresh(w.checker, Options{
		Token:        token,
		Categories:   w.opts.Categories,
		Interval:     w.opts.Interval,
		OnDataChange: w.dispatch,
	}, w.logger)
	w.refresh.Start(mountCtx)

	w.cancel = cancel
	w.push = push
	w.pumpDone = nil
	w.mounted = true

	if push != nil {
		signals := make(chan domain.ChangeSignal, 1)
		w.pumpDone = make(chan struct{})
		go w.pump(mountCtx, w.refresh, signals, w.pumpDone)
		go func() {
			err := push.Run(mountCtx, token, func(sig domain.ChangeSignal) {
				if !w.relevant(sig) {
					return
				}
				select {
				case signals <- sig:
				default:
				}
			})
			if err != nil {
				w.logger.Warn(mountCtx, "Change stream gave up, polling only",
					"mode", string(w.opts.Mode),
					"error", err,
				)
			}
		}()
	}

	w.logger.Info(ctx, "Watcher mounted",
		"mode", string(w.opts.Mode),
		"categories", w.opts.Categories,
	)
	return nil
}

// Unmount stops the timer and releases the push handle. It is safe to call
// on an unmounted watcher.
func (w *Watcher) Unmount() error {
	w.mu.Lock()
	if !w.mounted {
		w.mu.Unlock()
		return nil
	}
	w.mounted = false
	refresh, push, cancel, pumpDone := w.refresh, w.push, w.cancel, w.pumpDone
	w.mu.Unlock()

	refresh.Stop()
	cancel()

	var errs error
	if push != nil {
		errs = multierr.Append(errs, push.Close())
	}
	if pumpDone != nil {
		<-pumpDone
	}
	return errs
}

// TriggerRefresh runs a check now, outside the timer.
func (w *Watcher) TriggerRefresh(ctx context.Context) (datasync.ChangeSet, error) {
	w.mu.Lock()
	refresh := w.refresh
	mounted := w.mounted
	w.mu.Unlock()

	if !mounted {
		return datasync.ChangeSet{}, fmt.Errorf("watcher is not mounted")
	}
	return refresh.TriggerRefresh(ctx), nil
}

func (w *Watcher) Mounted() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.mounted
}

func (w *Watcher) pump(ctx context.Context, refresh *SmartRefresh, signals <-chan domain.ChangeSignal, done chan struct{}) {
	defer close(done)
	for {
		select {
		case <-ctx.Done():
			return
		case <-signals:
			refresh.TriggerRefresh(ctx)
		}
	}
}

// relevant drops signals that name none of the watched categories.
func (w *Watcher) relevant(sig domain.ChangeSignal) bool {
	if len(sig.Categories) == 0 || len(w.opts.Categories) == 0 {
		return true
	}
	for _, got := range sig.Categories {
		for _, want := range w.opts.Categories {
			if got == want {
				return true
			}
		}
	}
	return false
}

func (w *Watcher) dispatch(ctx context.Context, cs datasync.ChangeSet) {
	changed := cs.Categories()
	w.logger.Debug(ctx, "Data changed", "categories", changed)

	if w.opts.Bus != nil {
		event := eventbus.NewEvent(eventbus.EventTypeDataChanged, eventbus.DataChangedEvent{
			Categories: changed,
			All:        len(cs.Changed) == 0,
		})
		if err := w.opts.Bus.Publish(ctx, event); err != nil {
			w.logger.Warn(ctx, "Failed to publish data change", "error", err)
		}
	}
	if w.opts.OnDataChange != nil {
		w.opts.OnDataChange(ctx, cs)
	}
}
