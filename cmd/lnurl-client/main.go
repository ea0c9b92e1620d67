package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/btcsuite/btclog"
	"github.com/ellemouton/lnurl"
	"github.com/lightninglabs/lndclient"
	"github.com/urfave/cli/v2"
)

func main() {
	app := cli.NewApp()

	app.Name = "lnurl-client"
	app.Usage = "Cli for LNURL pay, withdraw, auth and channel flows"
	app.Flags = []cli.Flag{
		&cli.StringFlag{
			Name:    "host",
			Value:   "localhost:10009",
			Usage:   "lnd instance rpc address",
			EnvVars: []string{"LNURL_LND_HOST"},
		},
		&cli.StringFlag{
			Name:    "network",
			Value:   "mainnet",
			Usage:   "the network",
			EnvVars: []string{"LNURL_NETWORK"},
		},
		&cli.StringFlag{
			Name:    "macpath",
			Usage:   "Path to lnd's mac dir",
			EnvVars: []string{"LNURL_LND_MACAROON_DIR"},
		},
		&cli.StringFlag{
			Name:    "tlspath",
			Usage:   "Path to lnd's tls cert",
			EnvVars: []string{"LNURL_LND_TLS_PATH"},
		},
		&cli.DurationFlag{
			Name:  "timeout",
			Value: lnurl.DefaultTimeout,
			Usage: "timeout of a single LNURL request",
		},
		&cli.StringFlag{
			Name:    "torproxy",
			Usage:   "host:port of the SOCKS5 proxy used for onion services",
			EnvVars: []string{"LNURL_TOR_PROXY"},
		},
		&cli.BoolFlag{
			Name:  "async",
			Usage: "use the async transport",
		},
		&cli.StringFlag{
			Name:  "debuglevel",
			Value: "info",
			Usage: "logging level: trace, debug, info, warn, error",
		},
	}
	app.Before = setupLogging
	app.Commands = append(app.Commands,
		decodeCommand,
		encodeCommand,
		payCommand,
		withdrawCommand,
		authCommand,
		channelCommand,
	)

	err := app.Run(os.Args)
	if err != nil {
		fatal(err)
	}
}

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "[lnurl-client] %v\n", err)
	os.Exit(1)
}

func setupLogging(ctx *cli.Context) error {
	level, ok := btclog.LevelFromString(ctx.String("debuglevel"))
	if !ok {
		return fmt.Errorf("invalid debuglevel: %s",
			ctx.String("debuglevel"))
	}

	logger := btclog.NewBackend(os.Stderr).Logger(lnurl.Subsystem)
	logger.SetLevel(level)
	lnurl.UseLogger(logger)

	return nil
}

func getClient(ctx *cli.Context) (*lnurl.Client, error) {
	mode := lnurl.ModeBlocking
	if ctx.Bool("async") {
		mode = lnurl.ModeAsync
	}

	return lnurl.NewClient(&lnurl.Config{
		Network:  ctx.String("network"),
		Mode:     mode,
		Timeout:  ctx.Duration("timeout"),
		TorProxy: ctx.String("torproxy"),
	})
}

// fetch resolves identifier and makes the first LNURL request.
func fetch(ctx *cli.Context, identifier string) (*lnurl.Client,
	*lnurl.ResolvedRequest, lnurl.Response, error) {

	if identifier == "" {
		return nil, nil, nil, fmt.Errorf("missing '--lnurl' flag")
	}

	client, err := getClient(ctx)
	if err != nil {
		return nil, nil, nil, err
	}

	req, resp, err := client.Fetch(ctx.Context, identifier)
	if err != nil {
		return nil, nil, nil, err
	}

	return client, req, resp, nil
}

func getLND(ctx *cli.Context) (*lndclient.GrpcLndServices, error) {
	return lndclient.NewLndServices(&lndclient.LndServicesConfig{
		LndAddress:  ctx.String("host"),
		Network:     lndclient.Network(ctx.String("network")),
		MacaroonDir: ctx.String("macpath"),
		TLSPath:     ctx.String("tlspath"),
	})
}

func rpcContext(ctx *cli.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx.Context, time.Minute)
}
