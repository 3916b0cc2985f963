package datasync

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grachmannico95/bankline/internal/apiclient"
	"github.com/grachmannico95/bankline/internal/domain"
	"github.com/grachmannico95/bankline/pkg/logger"
)

// versionServer answers the versions endpoint from a mutable server-side vector.
type versionServer struct {
	mu       sync.Mutex
	versions map[domain.Category]int64
	calls    int
	fail     bool
}

func (v *versionServer) bump(c domain.Category) {
	v.mu.Lock()
	v.versions[c]++
	v.mu.Unlock()
}

func (v *versionServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.calls++

	if v.fail {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	switch r.URL.Path {
	case versionsPath:
		check := domain.VersionCheck{
			Changed:  map[domain.Category]bool{},
			Versions: map[domain.Category]int64{},
		}
		for _, c := range domain.AllCategories {
			raw := r.URL.Query().Get(c.QueryParam())
			if raw == "" {
				continue
			}
			known, _ := strconv.ParseInt(raw, 10, 64)
			current := v.versions[c]
			check.Versions[c] = current
			check.Changed[c] = known != current
			if check.Changed[c] {
				check.HasChanges = true
			}
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(check)
	case summaryPath:
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"categories":{"loans":{"count":2,"version":5}},"serverTime":"2026-01-02T03:04:05Z"}`))
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func newTestSyncer(t *testing.T, vs *versionServer) *Syncer {
	t.Helper()
	srv := httptest.NewServer(vs)
	t.Cleanup(srv.Close)

	client, err := apiclient.New(apiclient.Options{BaseURL: srv.URL}, logger.NewNop())
	require.NoError(t, err)
	return New(client, logger.NewNop())
}

func TestCheckForChanges_UpdatesVector(t *testing.T) {
	vs := &versionServer{versions: map[domain.Category]int64{
		domain.CategoryTransactions: 3,
		domain.CategoryLoans:        1,
	}}
	s := newTestSyncer(t, vs)
	ctx := context.Background()
	cats := []domain.Category{domain.CategoryTransactions, domain.CategoryLoans}

	cs := s.CheckForChanges(ctx, "tok", cats)

	assert.True(t, cs.HasChanges)
	assert.True(t, cs.Changed[domain.CategoryTransactions])
	assert.True(t, cs.Changed[domain.CategoryLoans])
	assert.Equal(t, int64(3), s.Versions()[domain.CategoryTransactions])
	assert.Equal(t, int64(1), s.Versions()[domain.CategoryLoans])
}

func TestCheckForChanges_UnchangedOnRepeat(t *testing.T) {
	vs := &versionServer{versions: map[domain.Category]int64{domain.CategoryDeposits: 7}}
	s := newTestSyncer(t, vs)
	ctx := context.Background()
	cats := []domain.Category{domain.CategoryDeposits}

	first := s.CheckForChanges(ctx, "tok", cats)
	require.True(t, first.Changed[domain.CategoryDeposits])

	second := s.CheckForChanges(ctx, "tok", cats)
	assert.False(t, second.HasChanges)
	assert.False(t, second.Changed[domain.CategoryDeposits])

	vs.bump(domain.CategoryDeposits)
	third := s.CheckForChanges(ctx, "tok", cats)
	assert.True(t, third.Changed[domain.CategoryDeposits])
	assert.Equal(t, []domain.Category{domain.CategoryDeposits}, third.Categories())
}

func TestCheckForChanges_DefaultsToAllCategories(t *testing.T) {
	vs := &versionServer{versions: map[domain.Category]int64{}}
	s := newTestSyncer(t, vs)

	cs := s.CheckForChanges(context.Background(), "tok", nil)

	assert.False(t, cs.HasChanges)
	assert.Len(t, cs.Changed, len(domain.AllCategories))
}

func TestCheckForChanges_FailsOpenOnHTTPError(t *testing.T) {
	vs := &versionServer{versions: map[domain.Category]int64{}, fail: true}
	s := newTestSyncer(t, vs)

	cs := s.CheckForChanges(context.Background(), "tok", []domain.Category{domain.CategoryLoans})

	assert.True(t, cs.HasChanges)
	assert.Empty(t, cs.Changed)
	assert.True(t, cs.Has(domain.CategoryLoans))
}

type failingTransport struct{}

func (failingTransport) RoundTrip(*http.Request) (*http.Response, error) {
	return nil, errors.New("network unreachable")
}

func TestCheckForChanges_FailsOpenOnNetworkError(t *testing.T) {
	client, err := apiclient.New(apiclient.Options{
		BaseURL:   "http://bank.invalid",
		Transport: failingTransport{},
	}, logger.NewNop())
	require.NoError(t, err)
	s := New(client, logger.NewNop())

	cs := s.CheckForChanges(context.Background(), "tok", []domain.Category{domain.CategoryAccounts})

	assert.Equal(t, ChangeSet{HasChanges: true, Changed: map[domain.Category]bool{}}, cs)
	assert.Empty(t, s.Versions())
}

func TestCheckForChanges_DoesNotTouchLoadingCounter(t *testing.T) {
	vs := &versionServer{versions: map[domain.Category]int64{}}
	srv := httptest.NewServer(vs)
	defer srv.Close()

	client, err := apiclient.New(apiclient.Options{BaseURL: srv.URL}, logger.NewNop())
	require.NoError(t, err)

	transitions := 0
	client.Loading().Subscribe(func(int) { transitions++ })

	New(client, nil).CheckForChanges(context.Background(), "tok", nil)
	assert.Equal(t, 0, transitions)
}

func TestFetchIfChanged(t *testing.T) {
	vs := &versionServer{versions: map[domain.Category]int64{domain.CategoryNotifications: 1}}
	s := newTestSyncer(t, vs)
	ctx := context.Background()

	fetches := 0
	fetch := func(context.Context) ([]string, error) {
		fetches++
		return []string{"n" + strconv.Itoa(fetches)}, nil
	}

	first, err := FetchIfChanged(ctx, s, "tok", domain.CategoryNotifications, fetch)
	require.NoError(t, err)
	assert.False(t, first.FromCache)
	assert.Equal(t, []string{"n1"}, first.Data)

	second, err := FetchIfChanged(ctx, s, "tok", domain.CategoryNotifications, fetch)
	require.NoError(t, err)
	assert.True(t, second.FromCache)
	assert.Equal(t, []string{"n1"}, second.Data)
	assert.Equal(t, 1, fetches)

	vs.bump(domain.CategoryNotifications)
	third, err := FetchIfChanged(ctx, s, "tok", domain.CategoryNotifications, fetch)
	require.NoError(t, err)
	assert.False(t, third.FromCache)
	assert.Equal(t, []string{"n2"}, third.Data)
}

func TestFetchIfChanged_FetchesWhenNothingHeld(t *testing.T) {
	vs := &versionServer{versions: map[domain.Category]int64{}}
	s := newTestSyncer(t, vs)
	ctx := context.Background()

	// Versions already agree (both zero), but nothing has been fetched yet.
	res, err := FetchIfChanged(ctx, s, "tok", domain.CategoryLoans, func(context.Context) (int, error) {
		return 42, nil
	})

	require.NoError(t, err)
	assert.False(t, res.FromCache)
	assert.Equal(t, 42, res.Data)
}

func TestFetchIfChanged_PropagatesFetchError(t *testing.T) {
	vs := &versionServer{versions: map[domain.Category]int64{}}
	s := newTestSyncer(t, vs)

	_, err := FetchIfChanged(context.Background(), s, "tok", domain.CategoryLoans, func(context.Context) (int, error) {
		return 0, assert.AnError
	})

	assert.ErrorIs(t, err, assert.AnError)
}

func TestFetchIfChanged_FailOpenRefetches(t *testing.T) {
	vs := &versionServer{versions: map[domain.Category]int64{}}
	s := newTestSyncer(t, vs)
	ctx := context.Background()

	fetches := 0
	fetch := func(context.Context) (int, error) {
		fetches++
		return fetches, nil
	}

	_, err := FetchIfChanged(ctx, s, "tok", domain.CategoryAccounts, fetch)
	require.NoError(t, err)

	vs.mu.Lock()
	vs.fail = true
	vs.mu.Unlock()

	res, err := FetchIfChanged(ctx, s, "tok", domain.CategoryAccounts, fetch)
	require.NoError(t, err)
	assert.False(t, res.FromCache)
	assert.Equal(t, 2, fetches)
}

func TestFetchDataSummary(t *testing.T) {
	s := newTestSyncer(t, &versionServer{versions: map[domain.Category]int64{}})

	summary, err := s.FetchDataSummary(context.Background(), "tok")

	require.NoError(t, err)
	assert.Equal(t, 2, summary.Categories[domain.CategoryLoans].Count)
	assert.Equal(t, int64(5), summary.Categories[domain.CategoryLoans].Version)
}

func TestReset(t *testing.T) {
	vs := &versionServer{versions: map[domain.Category]int64{domain.CategoryLoans: 4}}
	s := newTestSyncer(t, vs)
	ctx := context.Background()

	_, err := FetchIfChanged(ctx, s, "tok", domain.CategoryLoans, func(context.Context) (int, error) { return 1, nil })
	require.NoError(t, err)
	require.NotEmpty(t, s.Versions())

	s.Reset()

	assert.Empty(t, s.Versions())
	assert.Nil(t, s.lastValue(domain.CategoryLoans))
}

func TestChangeSetHas(t *testing.T) {
	tests := []struct {
		name string
		cs   ChangeSet
		want bool
	}{
		{"explicit change", ChangeSet{HasChanges: true, Changed: map[domain.Category]bool{domain.CategoryLoans: true}}, true},
		{"explicit no change", ChangeSet{HasChanges: true, Changed: map[domain.Category]bool{domain.CategoryLoans: false, domain.CategoryDeposits: true}}, false},
		{"failed open", failedOpen(), true},
		{"nothing changed", ChangeSet{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.cs.Has(domain.CategoryLoans))
		})
	}
}
