package main

import (
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli"

	"github.com/grachmannico95/bankline/internal/apiclient"
	"github.com/grachmannico95/bankline/internal/config"
	"github.com/grachmannico95/bankline/internal/datasync"
	"github.com/grachmannico95/bankline/internal/domain"
	"github.com/grachmannico95/bankline/internal/service"
	"github.com/grachmannico95/bankline/internal/session"
	"github.com/grachmannico95/bankline/pkg/logger"
)

type metadata struct {
	cfg      *config.Config
	log      *logger.Logger
	store    session.Store
	client   *apiclient.Client
	services *service.Set
	syncer   *datasync.Syncer
	verbose  bool
	e        io.Writer
	w        io.Writer
}

var version = "dev"

func main() {
	app := newApp()
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(app.ErrWriter, "terminated with error: %s\n", err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	app := cli.NewApp()
	app.Name = "bankctl"
	app.Usage = "command line client for the bankline API"
	app.Version = version
	app.HideVersion = true
	app.Writer = os.Stdout
	app.ErrWriter = os.Stderr

	app.Flags = []cli.Flag{
		cli.BoolFlag{
			Name:  "verbose, v",
			Usage: " verbose result",
		},
		cli.StringFlag{
			Name:  "api, a",
			Value: "",
			Usage: "backend base `URL`, overrides API_BASE_URL",
		},
		cli.StringFlag{
			Name:  "session, s",
			Value: "",
			Usage: "session `FILE`, overrides SESSION_FILE",
		},
	}

	app.Commands = []cli.Command{
		{
			Name:  "login",
			Usage: "sign in and store the session",
			Flags: []cli.Flag{
				cli.StringFlag{
					Name:  "email, e",
					Value: "",
					Usage: "*account `EMAIL`",
				},
				cli.StringFlag{
					Name:  "password, p",
					Value: "",
					Usage: "*account `PASSWORD`",
				},
			},
			Action: runLogin,
		},
		{
			Name:  "register",
			Usage: "create an account and store the session",
			Flags: []cli.Flag{
				cli.StringFlag{Name: "email, e", Usage: "*account `EMAIL`"},
				cli.StringFlag{Name: "password, p", Usage: "*account `PASSWORD`"},
				cli.StringFlag{Name: "name, n", Usage: "*display `NAME`"},
				cli.StringFlag{Name: "phone", Usage: " contact `PHONE`"},
				cli.StringFlag{Name: "role, r", Usage: " CUSTOMER, ADMIN or DEVELOPER"},
				cli.StringFlag{Name: "admin-code", Usage: " code required for privileged roles"},
			},
			Action: runRegister,
		},
		{
			Name:   "logout",
			Usage:  "forget the stored session",
			Action: runLogout,
		},
		{
			Name:   "whoami",
			Usage:  "show the stored session",
			Action: runWhoami,
		},
		{
			Name:   "balance",
			Usage:  "show the account and its balance",
			Action: runBalance,
		},
		{
			Name:  "transactions",
			Usage: "list transaction history",
			Flags: []cli.Flag{
				cli.IntFlag{Name: "page", Value: 1, Usage: " page `NUMBER`"},
				cli.IntFlag{Name: "per-page", Value: 10, Usage: " page `SIZE`"},
				cli.StringFlag{Name: "type, t", Usage: " CREDIT or DEBIT"},
				cli.StringFlag{Name: "status", Usage: " SUCCESS, FAILED or PENDING"},
			},
			Action: runTransactions,
		},
		{
			Name:      "transfer",
			Usage:     "send money to another account",
			ArgsUsage: "ACCOUNT-NUMBER AMOUNT",
			Flags: []cli.Flag{
				cli.StringFlag{Name: "description, d", Usage: " transfer `NOTE`"},
				cli.StringFlag{Name: "key, k", Usage: " reuse an idempotency `KEY` from an earlier attempt"},
			},
			Action: runTransfer,
		},
		{
			Name:  "deposit",
			Usage: "request and review deposits",
			Subcommands: []cli.Command{
				{
					Name:      "request",
					Usage:     "ask for a deposit",
					ArgsUsage: "AMOUNT",
					Flags: []cli.Flag{
						cli.StringFlag{Name: "method, m", Usage: " payment `METHOD`"},
						cli.StringFlag{Name: "key, k", Usage: " reuse an idempotency `KEY`"},
					},
					Action: runDepositRequest,
				},
				{
					Name:  "list",
					Usage: "list deposit requests",
					Flags: []cli.Flag{
						cli.StringFlag{Name: "status", Usage: " PENDING, APPROVED or REJECTED"},
					},
					Action: runDepositList,
				},
				{
					Name:      "approve",
					Usage:     "approve a pending deposit (admin)",
					ArgsUsage: "ID",
					Flags: []cli.Flag{
						cli.StringFlag{Name: "key, k", Usage: " reuse an idempotency `KEY`"},
					},
					Action: runDepositDecision(domain.DepositActionApprove),
				},
				{
					Name:      "reject",
					Usage:     "reject a pending deposit (admin)",
					ArgsUsage: "ID",
					Flags: []cli.Flag{
						cli.StringFlag{Name: "key, k", Usage: " reuse an idempotency `KEY`"},
					},
					Action: runDepositDecision(domain.DepositActionReject),
				},
			},
		},
		{
			Name:  "notifications",
			Usage: "list notifications",
			Flags: []cli.Flag{
				cli.BoolFlag{Name: "read-all", Usage: " mark every notification read first"},
			},
			Action: runNotifications,
		},
		{
			Name:   "loans",
			Usage:  "list loans",
			Action: runLoans,
		},
		{
			Name:   "summary",
			Usage:  "show per category counts and versions",
			Action: runSummary,
		},
		{
			Name:  "versions",
			Usage: "run one version check",
			Flags: []cli.Flag{
				cli.StringFlag{Name: "categories, c", Usage: " comma separated `LIST`, default all"},
			},
			Action: runVersions,
		},
		{
			Name:  "watch",
			Usage: "print data as it changes",
			Flags: []cli.Flag{
				cli.StringFlag{Name: "mode, m", Usage: " poll, sse or websocket, overrides REFRESH_MODE"},
				cli.DurationFlag{Name: "interval, i", Usage: " poll `INTERVAL`, overrides REFRESH_INTERVAL"},
				cli.StringFlag{Name: "categories, c", Usage: " comma separated `LIST`, overrides REFRESH_CATEGORIES"},
			},
			Action: runWatch,
		},
	}

	app.Before = setup
	app.After = teardown

	return app
}
