package main

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/urfave/cli"

	"github.com/grachmannico95/bankline/internal/apiclient"
	"github.com/grachmannico95/bankline/internal/domain"
)

func runBalance(c *cli.Context) error {
	m := c.App.Metadata["config"].(*metadata)
	ctx := context.Background()

	user, err := signedIn(ctx, m)
	if err != nil {
		return err
	}

	account, err := m.services.Accounts.Get(ctx, user.Token)
	if err != nil {
		return guarded(ctx, m, err)
	}

	printJson(m.w, account)
	return nil
}

func runTransactions(c *cli.Context) error {
	m := c.App.Metadata["config"].(*metadata)
	ctx := context.Background()

	user, err := signedIn(ctx, m)
	if err != nil {
		return err
	}

	page, err := m.services.Transactions.List(ctx, user.Token, domain.TransactionFilter{
		Page:    c.Int("page"),
		PerPage: c.Int("per-page"),
		Type:    domain.TransactionType(c.String("type")),
		Status:  domain.TransactionStatus(c.String("status")),
	})
	if err != nil {
		return guarded(ctx, m, err)
	}

	printJson(m.w, page)
	return nil
}

func runTransfer(c *cli.Context) error {
	m := c.App.Metadata["config"].(*metadata)
	ctx := context.Background()

	if c.NArg() != 2 {
		return fmt.Errorf("%w: ACCOUNT-NUMBER AMOUNT", ErrMissingArgument)
	}
	amount, err := parseAmount(c.Args().Get(1))
	if err != nil {
		return err
	}

	user, err := signedIn(ctx, m)
	if err != nil {
		return err
	}

	intent := apiclient.IntentWithKey(c.String("key"))
	if m.verbose {
		fmt.Fprintf(m.e, "idempotency key: %s\n", intent.Key())
	}

	tx, err := m.services.Transactions.Transfer(ctx, user.Token, domain.TransferRequest{
		ToAccount:   c.Args().Get(0),
		Amount:      amount,
		Description: c.String("description"),
	}, intent)
	if err != nil {
		if apiclient.IsNetwork(err) {
			fmt.Fprintf(m.e, "outcome unknown, retry with --key %s\n", intent.Key())
		}
		return guarded(ctx, m, err)
	}

	printJson(m.w, tx)
	return nil
}

func runLoans(c *cli.Context) error {
	m := c.App.Metadata["config"].(*metadata)
	ctx := context.Background()

	user, err := signedIn(ctx, m)
	if err != nil {
		return err
	}

	loans, err := m.services.Loans.List(ctx, user.Token)
	if err != nil {
		return guarded(ctx, m, err)
	}

	printJson(m.w, loans)
	return nil
}

func runNotifications(c *cli.Context) error {
	m := c.App.Metadata["config"].(*metadata)
	ctx := context.Background()

	user, err := signedIn(ctx, m)
	if err != nil {
		return err
	}

	if c.Bool("read-all") {
		if err := m.services.Notifications.MarkAllRead(ctx, user.Token); err != nil {
			return guarded(ctx, m, err)
		}
	}

	notifications, err := m.services.Notifications.List(ctx, user.Token)
	if err != nil {
		return guarded(ctx, m, err)
	}

	printJson(m.w, notifications)
	return nil
}

func parseAmount(s string) (decimal.Decimal, error) {
	amount, err := decimal.NewFromString(s)
	if err != nil || !amount.IsPositive() {
		return decimal.Decimal{}, fmt.Errorf("%w: %q", ErrAmountInvalid, s)
	}
	return amount, nil
}
