// Package datasync keeps a per-category version vector in step with the
// backend and skips fetches for categories that have not moved.
package datasync

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"sync"

	"github.com/grachmannico95/bankline/internal/apiclient"
	"github.com/grachmannico95/bankline/internal/domain"
	"github.com/grachmannico95/bankline/pkg/logger"
	"github.com/grachmannico95/bankline/pkg/metrics"
)

const (
	versionsPath = "/api/data/versions"
	summaryPath  = "/api/data/summary"
)

// ChangeSet is the outcome of one version check.
//
// A failed check reports HasChanges with an empty Changed map: callers should
// refetch rather than trust possibly stale data.
type ChangeSet struct {
	HasChanges bool
	Changed    map[domain.Category]bool
}

// Has reports whether c needs a refetch.
func (cs ChangeSet) Has(c domain.Category) bool {
	if changed, ok := cs.Changed[c]; ok {
		return changed
	}
	return cs.HasChanges && len(cs.Changed) == 0
}

// Categories lists the changed categories in AllCategories order.
func (cs ChangeSet) Categories() []domain.Category {
	var out []domain.Category
	for _, c := range domain.AllCategories {
		if cs.Changed[c] {
			out = append(out, c)
		}
	}
	return out
}

func failedOpen() ChangeSet {
	return ChangeSet{HasChanges: true, Changed: map[domain.Category]bool{}}
}

// Result wraps a value returned by FetchIfChanged.
type Result[T any] struct {
	Data      T
	FromCache bool
}

type Syncer struct {
	client *apiclient.Client
	logger *logger.Logger

	mu       sync.Mutex
	versions map[domain.Category]int64
	last     map[domain.Category]any
}

func New(client *apiclient.Client, log *logger.Logger) *Syncer {
	if log == nil {
		log = logger.NewNop()
	}
	return &Syncer{
		client:   client,
		logger:   log,
		versions: make(map[domain.Category]int64),
		last:     make(map[domain.Category]any),
	}
}

// CheckForChanges sends the known version of every category and records the
// versions the backend answers with. It never fails; see ChangeSet.
func (s *Syncer) CheckForChanges(ctx context.Context, token string, categories []domain.Category) ChangeSet {
	if len(categories) == 0 {
		categories = domain.AllCategories
	}

	query := make(url.Values, len(categories))
	s.mu.Lock()
	for _, c := range categories {
		query.Set(c.QueryParam(), strconv.FormatInt(s.versions[c], 10))
	}
	s.mu.Unlock()

	var check domain.VersionCheck
	_, err := s.client.DoJSON(ctx, apiclient.Request{
		Method:    http.MethodGet,
		Path:      versionsPath,
		Token:     token,
		Query:     query,
		NoCache:   true,
		Untracked: true,
	}, &check)
	if err != nil {
		metrics.VersionChecks.WithLabelValues("failed_open").Inc()
		s.logger.Warn(ctx, "Version check failed, assuming changes",
			"kind", apiclient.KindOf(err).String(),
			"status", apiclient.StatusOf(err),
			"error", err,
		)
		return failedOpen()
	}

	s.mu.Lock()
	for c, v := range check.Versions {
		s.versions[c] = v
	}
	s.mu.Unlock()

	cs := ChangeSet{
		HasChanges: check.HasChanges,
		Changed:    make(map[domain.Category]bool, len(categories)),
	}
	for _, c := range categories {
		cs.Changed[c] = check.Changed[c]
		if cs.Changed[c] {
			cs.HasChanges = true
		}
	}

	if cs.HasChanges {
		metrics.VersionChecks.WithLabelValues("changed").Inc()
		s.logger.Debug(ctx, "Version check reported changes", "changed", cs.Categories())
	} else {
		metrics.VersionChecks.WithLabelValues("unchanged").Inc()
	}
	return cs
}

// FetchIfChanged runs fetch only when category moved or nothing is held for it
// yet; otherwise the previous value is returned with FromCache set.
func FetchIfChanged[T any](ctx context.Context, s *Syncer, token string, category domain.Category, fetch func(context.Context) (T, error)) (Result[T], error) {
	cs := s.CheckForChanges(ctx, token, []domain.Category{category})

	if !cs.Has(category) {
		if cached, ok := s.lastValue(category).(T); ok {
			return Result[T]{Data: cached, FromCache: true}, nil
		}
	}

	data, err := fetch(ctx)
	if err != nil {
		var zero T
		return Result[T]{Data: zero}, err
	}

	s.mu.Lock()
	s.last[category] = data
	s.mu.Unlock()

	return Result[T]{Data: data}, nil
}

func (s *Syncer) lastValue(category domain.Category) any {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last[category]
}

// FetchDataSummary returns per-category counts and versions.
func (s *Syncer) FetchDataSummary(ctx context.Context, token string) (*domain.DataSummary, error) {
	var summary domain.DataSummary
	if err := s.client.Get(ctx, apiclient.Request{
		Path:    summaryPath,
		Token:   token,
		NoCache: true,
	}, &summary); err != nil {
		return nil, err
	}
	return &summary, nil
}

// Versions returns a copy of the local version vector.
func (s *Syncer) Versions() map[domain.Category]int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[domain.Category]int64, len(s.versions))
	for c, v := range s.versions {
		out[c] = v
	}
	return out
}

// Forget drops the value held for category so the next FetchIfChanged refetches.
func (s *Syncer) Forget(category domain.Category) {
	s.mu.Lock()
	delete(s.last, category)
	s.mu.Unlock()
}

// Reset clears the vector and held values, e.g. on logout.
func (s *Syncer) Reset() {
	s.mu.Lock()
	s.versions = make(map[domain.Category]int64)
	s.last = make(map[domain.Category]any)
	s.mu.Unlock()
}
