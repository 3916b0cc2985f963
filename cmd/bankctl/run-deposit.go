package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/urfave/cli"

	"github.com/grachmannico95/bankline/internal/apiclient"
	"github.com/grachmannico95/bankline/internal/domain"
)

func runDepositRequest(c *cli.Context) error {
	m := c.App.Metadata["config"].(*metadata)
	ctx := context.Background()

	if c.NArg() != 1 {
		return fmt.Errorf("%w: AMOUNT", ErrMissingArgument)
	}
	amount, err := parseAmount(c.Args().First())
	if err != nil {
		return err
	}

	user, err := signedIn(ctx, m)
	if err != nil {
		return err
	}

	intent := apiclient.IntentWithKey(c.String("key"))
	deposit, err := m.services.Deposits.Request(ctx, user.Token, domain.DepositCreate{
		Amount: amount,
		Method: c.String("method"),
	}, intent)
	if err != nil {
		if apiclient.IsNetwork(err) {
			fmt.Fprintf(m.e, "outcome unknown, retry with --key %s\n", intent.Key())
		}
		return guarded(ctx, m, err)
	}

	printJson(m.w, deposit)
	return nil
}

func runDepositList(c *cli.Context) error {
	m := c.App.Metadata["config"].(*metadata)
	ctx := context.Background()

	user, err := signedIn(ctx, m)
	if err != nil {
		return err
	}

	deposits, err := m.services.Deposits.List(ctx, user.Token, domain.DepositStatus(c.String("status")))
	if err != nil {
		return guarded(ctx, m, err)
	}

	printJson(m.w, deposits)
	return nil
}

func runDepositDecision(action domain.DepositAction) func(*cli.Context) error {
	return func(c *cli.Context) error {
		m := c.App.Metadata["config"].(*metadata)
		ctx := context.Background()

		if c.NArg() != 1 {
			return fmt.Errorf("%w: ID", ErrMissingArgument)
		}
		id, err := strconv.ParseInt(c.Args().First(), 10, 64)
		if err != nil {
			return fmt.Errorf("invalid deposit id %q", c.Args().First())
		}

		user, err := signedIn(ctx, m)
		if err != nil {
			return err
		}

		intent := apiclient.IntentWithKey(c.String("key"))
		deposit, err := m.services.Deposits.Action(ctx, user.Token, domain.DepositDecision{
			Action:           action,
			DepositRequestID: id,
		}, intent)
		if err != nil {
			if apiclient.IsNetwork(err) {
				fmt.Fprintf(m.e, "outcome unknown, retry with --key %s\n", intent.Key())
			}
			return guarded(ctx, m, err)
		}

		printJson(m.w, deposit)
		return nil
	}
}
