package eventbus

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/multierr"

	"github.com/grachmannico95/bankline/internal/domain"
	"github.com/grachmannico95/bankline/pkg/logger"
)

// Fetcher reloads the data a view shows for one category.
type Fetcher func(ctx context.Context) error

// RefetchConsumer runs the fetchers registered for the categories named in a
// DataChangedEvent, and nothing else.
type RefetchConsumer struct {
	mu       sync.RWMutex
	fetchers map[domain.Category][]Fetcher
	logger   *logger.Logger
}

func NewRefetchConsumer(log *logger.Logger) *RefetchConsumer {
	if log == nil {
		log = logger.NewNop()
	}
	return &RefetchConsumer{
		fetchers: make(map[domain.Category][]Fetcher),
		logger:   log,
	}
}

func (rc *RefetchConsumer) Register(category domain.Category, fetch Fetcher) {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	rc.fetchers[category] = append(rc.fetchers[category], fetch)
}

func (rc *RefetchConsumer) Consume(ctx context.Context, event Event) error {
	payload, ok := event.Payload.(DataChangedEvent)
	if !ok {
		return fmt.Errorf("invalid payload type %T for %s", event.Payload, event.Type)
	}

	categories := payload.Categories
	if payload.All {
		categories = domain.AllCategories
	}

	rc.mu.RLock()
	var targets []Fetcher
	for _, c := range categories {
		targets = append(targets, rc.fetchers[c]...)
	}
	rc.mu.RUnlock()

	rc.logger.Debug(ctx, "Refetching changed categories",
		"categories", categories,
		"fetchers", len(targets),
	)

	var errs error
	for _, fetch := range targets {
		errs = multierr.Append(errs, fetch(ctx))
	}
	return errs
}

// GetWorkerCount is one so refetches for consecutive changes stay ordered.
func (rc *RefetchConsumer) GetWorkerCount() int {
	return 1
}
