package apiclient

import "sync"

// LoadingCounter counts tracked requests in flight. It never goes below zero.
// Subscribers see values in transition order and must not call Inc, Dec or
// Reset themselves.
type LoadingCounter struct {
	mu sync.Mutex
	// notifyMu is taken before mu is released so deliveries keep transition order.
	notifyMu    sync.Mutex
	count       int
	nextID      int
	subscribers map[int]func(int)
}

func NewLoadingCounter() *LoadingCounter {
	return &LoadingCounter{subscribers: make(map[int]func(int))}
}

// Subscribe registers fn to receive the counter value after every transition.
// The returned func removes the subscription.
func (l *LoadingCounter) Subscribe(fn func(count int)) func() {
	l.mu.Lock()
	defer l.mu.Unlock()

	id := l.nextID
	l.nextID++
	l.subscribers[id] = fn

	return func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		delete(l.subscribers, id)
	}
}

func (l *LoadingCounter) Inc() {
	l.transition(1)
}

func (l *LoadingCounter) Dec() {
	l.transition(-1)
}

func (l *LoadingCounter) transition(delta int) {
	l.mu.Lock()
	next := l.count + delta
	if next < 0 {
		l.mu.Unlock()
		return
	}
	l.count = next
	l.notify(next)
}

func (l *LoadingCounter) Count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.count
}

func (l *LoadingCounter) Busy() bool {
	return l.Count() > 0
}

// Reset zeroes the counter and notifies subscribers if it was non-zero.
func (l *LoadingCounter) Reset() {
	l.mu.Lock()
	if l.count == 0 {
		l.mu.Unlock()
		return
	}
	l.count = 0
	l.notify(0)
}

// notify is called with mu held and releases it.
func (l *LoadingCounter) notify(value int) {
	subs := make([]func(int), 0, len(l.subscribers))
	for _, fn := range l.subscribers {
		subs = append(subs, fn)
	}
	l.notifyMu.Lock()
	l.mu.Unlock()
	defer l.notifyMu.Unlock()

	for _, fn := range subs {
		fn(value)
	}
}
