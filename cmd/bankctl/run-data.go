package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/urfave/cli"
	"go.uber.org/multierr"

	"github.com/grachmannico95/bankline/internal/cache"
	"github.com/grachmannico95/bankline/internal/domain"
	"github.com/grachmannico95/bankline/internal/eventbus"
	"github.com/grachmannico95/bankline/internal/refresh"
)

func runSummary(c *cli.Context) error {
	m := c.App.Metadata["config"].(*metadata)
	ctx := context.Background()

	user, err := signedIn(ctx, m)
	if err != nil {
		return err
	}

	summary, err := m.syncer.FetchDataSummary(ctx, user.Token)
	if err != nil {
		return guarded(ctx, m, err)
	}

	printJson(m.w, summary)
	return nil
}

type versionsReply struct {
	HasChanges bool                      `json:"hasChanges"`
	Changed    []domain.Category         `json:"changed"`
	Unknown    bool                      `json:"unknown,omitempty"`
	Versions   map[domain.Category]int64 `json:"versions"`
}

func runVersions(c *cli.Context) error {
	m := c.App.Metadata["config"].(*metadata)
	ctx := context.Background()

	categories, err := domain.ParseCategories(c.String("categories"))
	if err != nil {
		return err
	}

	user, err := signedIn(ctx, m)
	if err != nil {
		return err
	}

	cs := m.syncer.CheckForChanges(ctx, user.Token, categories)
	printJson(m.w, versionsReply{
		HasChanges: cs.HasChanges,
		Changed:    cs.Categories(),
		Unknown:    cs.HasChanges && len(cs.Changed) == 0,
		Versions:   m.syncer.Versions(),
	})
	return nil
}

type watchUpdate struct {
	Category domain.Category `json:"category"`
	At       time.Time       `json:"at"`
	Data     interface{}     `json:"data"`
}

func runWatch(c *cli.Context) error {
	m := c.App.Metadata["config"].(*metadata)
	cfg := m.cfg

	mode := refresh.Mode(cfg.Refresh.Mode)
	if s := c.String("mode"); s != "" {
		parsed, err := refresh.ParseMode(s)
		if err != nil {
			return err
		}
		mode = parsed
	}
	interval := cfg.Refresh.Interval
	if d := c.Duration("interval"); d > 0 {
		interval = d
	}
	categories := cfg.Refresh.Categories
	if s := c.String("categories"); s != "" {
		parsed, err := domain.ParseCategories(s)
		if err != nil {
			return err
		}
		categories = parsed
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	user, err := signedIn(ctx, m)
	if err != nil {
		return err
	}

	refetch := eventbus.NewRefetchConsumer(m.log)
	registerFetchers(refetch, m, user.Token)

	bus := eventbus.New(m.log, &eventbus.Config{
		ChannelBuffer: cfg.EventBus.ChannelBufferSize,
	})
	if err := bus.Subscribe(eventbus.EventTypeDataChanged, refetch); err != nil {
		return err
	}
	if err := bus.Start(ctx); err != nil {
		return err
	}

	var metricsServer *echo.Echo
	if cfg.Metrics.Addr != "" {
		metricsServer = echo.New()
		metricsServer.HideBanner = true
		metricsServer.HidePort = true
		metricsServer.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
		go func() {
			if err := metricsServer.Start(cfg.Metrics.Addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
				m.log.Error(ctx, "Metrics server stopped", "error", err)
			}
		}()
	}

	watcher := refresh.NewWatcher(m.syncer, refresh.WatcherOptions{
		Mode:       mode,
		BaseURL:    cfg.API.BaseURL,
		Interval:   interval,
		Categories: categories,
		Bus:        bus,
	}, m.log)
	if err := watcher.Mount(ctx, user.Token); err != nil {
		_ = bus.Shutdown(context.Background())
		return err
	}
	if m.verbose {
		fmt.Fprintf(m.e, "watching %s every %s\n", mode, interval)
	}

	// prime the vector, then print every watched category once
	m.syncer.CheckForChanges(ctx, user.Token, categories)
	initial := eventbus.NewEvent(eventbus.EventTypeDataChanged, eventbus.DataChangedEvent{
		Categories: categories,
		All:        len(categories) == 0,
	})
	if err := bus.Publish(ctx, initial); err != nil {
		m.log.Warn(ctx, "Initial refetch not queued", "error", err)
	}

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var errs error
	errs = multierr.Append(errs, watcher.Unmount())
	errs = multierr.Append(errs, bus.Shutdown(shutdownCtx))
	if metricsServer != nil {
		errs = multierr.Append(errs, metricsServer.Shutdown(shutdownCtx))
	}
	return errs
}

// registerFetchers prints fresh data for each category. The cache entries for
// a category are dropped first since the change came from elsewhere.
func registerFetchers(rc *eventbus.RefetchConsumer, m *metadata, token string) {
	watch := func(category domain.Category, d cache.Domain, fetch func(ctx context.Context) (interface{}, error)) {
		rc.Register(category, func(ctx context.Context) error {
			m.client.Invalidate(ctx, d)
			data, err := fetch(ctx)
			if err != nil {
				return guarded(ctx, m, err)
			}
			printJson(m.w, watchUpdate{Category: category, At: time.Now(), Data: data})
			return nil
		})
	}

	watch(domain.CategoryAccounts, cache.DomainAccount, func(ctx context.Context) (interface{}, error) {
		return m.services.Accounts.Get(ctx, token)
	})
	watch(domain.CategoryTransactions, cache.DomainTransaction, func(ctx context.Context) (interface{}, error) {
		return m.services.Transactions.List(ctx, token, domain.TransactionFilter{Page: 1, PerPage: 5})
	})
	watch(domain.CategoryNotifications, cache.DomainNotification, func(ctx context.Context) (interface{}, error) {
		return m.services.Notifications.List(ctx, token)
	})
	watch(domain.CategoryDeposits, cache.DomainDeposit, func(ctx context.Context) (interface{}, error) {
		return m.services.Deposits.List(ctx, token, "")
	})
	watch(domain.CategoryLoans, cache.DomainLoan, func(ctx context.Context) (interface{}, error) {
		return m.services.Loans.List(ctx, token)
	})
}
