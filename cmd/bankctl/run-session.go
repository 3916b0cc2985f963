package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli"

	"github.com/grachmannico95/bankline/internal/domain"
	"github.com/grachmannico95/bankline/internal/session"
)

type sessionView struct {
	Email   string         `json:"email"`
	Role    domain.Role    `json:"role"`
	Balance string         `json:"balance"`
	Profile domain.Profile `json:"profile"`
}

func viewOf(user *domain.User) sessionView {
	return sessionView{
		Email:   user.Email,
		Role:    user.Role,
		Balance: user.Balance.StringFixed(2),
		Profile: user.Profile,
	}
}

func runLogin(c *cli.Context) error {
	m := c.App.Metadata["config"].(*metadata)
	ctx := context.Background()

	email := c.String("email")
	if email == "" {
		return fmt.Errorf("%w: --email", ErrMissingArgument)
	}
	password := c.String("password")
	if password == "" {
		return fmt.Errorf("%w: --password", ErrMissingArgument)
	}

	user, err := m.services.Auth.Login(ctx, domain.LoginRequest{
		Email:    email,
		Password: password,
	})
	if err != nil {
		return err
	}
	if err := m.store.Save(ctx, user); err != nil {
		return err
	}

	printJson(m.w, viewOf(user))
	return nil
}

func runRegister(c *cli.Context) error {
	m := c.App.Metadata["config"].(*metadata)
	ctx := context.Background()

	req := domain.RegisterRequest{
		Email:     c.String("email"),
		Password:  c.String("password"),
		Name:      c.String("name"),
		Phone:     c.String("phone"),
		Role:      domain.Role(c.String("role")),
		AdminCode: c.String("admin-code"),
	}
	if req.Email == "" || req.Password == "" || req.Name == "" {
		return fmt.Errorf("%w: --email, --password and --name are required", ErrMissingArgument)
	}

	user, err := m.services.Auth.Register(ctx, req)
	if err != nil {
		return err
	}
	if err := m.store.Save(ctx, user); err != nil {
		return err
	}

	printJson(m.w, viewOf(user))
	return nil
}

func runLogout(c *cli.Context) error {
	m := c.App.Metadata["config"].(*metadata)

	if err := session.Logout(context.Background(), m.store, m.client, m.syncer); err != nil {
		return err
	}
	if m.verbose {
		fmt.Fprintf(m.e, "session cleared\n")
	}
	return nil
}

func runWhoami(c *cli.Context) error {
	m := c.App.Metadata["config"].(*metadata)

	user, err := signedIn(context.Background(), m)
	if err != nil {
		return err
	}

	printJson(m.w, viewOf(user))
	return nil
}
