package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/urfave/cli"

	"github.com/grachmannico95/bankline/internal/apiclient"
	"github.com/grachmannico95/bankline/internal/config"
	"github.com/grachmannico95/bankline/internal/datasync"
	"github.com/grachmannico95/bankline/internal/domain"
	"github.com/grachmannico95/bankline/internal/service"
	"github.com/grachmannico95/bankline/internal/session"
	"github.com/grachmannico95/bankline/pkg/logger"
)

var (
	ErrMissingArgument = errors.New("missing argument")
	ErrAmountInvalid   = errors.New("amount must be a positive decimal")
)

func setup(c *cli.Context) error {
	e := c.App.ErrWriter
	w := c.App.Writer
	verbose := c.GlobalBool("verbose")

	cfg := config.Load()
	if api := c.GlobalString("api"); api != "" {
		cfg.API.BaseURL = api
	}
	if file := c.GlobalString("session"); file != "" {
		cfg.Session.File = file
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	level := "warn"
	if verbose {
		level = "debug"
	}
	log := logger.New(level)

	client, err := apiclient.New(apiclient.Options{
		BaseURL:     cfg.API.BaseURL,
		Timeout:     cfg.API.Timeout,
		CacheMaxAge: cfg.API.CacheMaxAge,
	}, log)
	if err != nil {
		return err
	}

	path := cfg.Session.File
	if path == "" {
		path = session.DefaultPath()
	}
	if verbose {
		fmt.Fprintf(e, "api: %q\n", cfg.API.BaseURL)
		fmt.Fprintf(e, "session: %q\n", path)
	}

	c.App.Metadata["config"] = &metadata{
		cfg:      cfg,
		log:      log,
		store:    session.NewFileStore(path),
		client:   client,
		services: service.NewSet(client, log),
		syncer:   datasync.New(client, log),
		verbose:  verbose,
		e:        e,
		w:        w,
	}
	return nil
}

func teardown(c *cli.Context) error {
	m, ok := c.App.Metadata["config"].(*metadata)
	if !ok {
		return nil
	}
	_ = m.log.Sync()
	return m.client.Close()
}

// signedIn loads the stored user or explains how to get one.
func signedIn(ctx context.Context, m *metadata) (*domain.User, error) {
	user, err := m.store.Load(ctx)
	if errors.Is(err, session.ErrNoSession) {
		return nil, fmt.Errorf("%w: run \"bankctl login\" first", err)
	}
	return user, err
}

// guarded drops the stored session when the backend rejected its token.
func guarded(ctx context.Context, m *metadata, err error) error {
	return session.Guard(ctx, m.store, err)
}
