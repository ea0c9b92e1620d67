package main

import (
	"encoding/hex"
	"fmt"

	"github.com/ellemouton/lnurl"
	"github.com/urfave/cli/v2"
)

var channelCommand = &cli.Command{
	Name:        "channel",
	Usage:       "Request a channel from an LNURL-channel service",
	Description: `Connect lnd to the service's node and ask it to open a channel`,
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:  "lnurl",
			Usage: "The LNURL-channel code.",
		},
		&cli.BoolFlag{
			Name:  "private",
			Usage: "request a private channel",
		},
		&cli.BoolFlag{
			Name:  "cancel",
			Usage: "decline the channel instead of requesting it",
		},
	},
	Action: channelFromLNURL,
}

func channelFromLNURL(ctx *cli.Context) error {
	client, _, resp, err := fetch(ctx, ctx.String("lnurl"))
	if err != nil {
		return err
	}

	switch r := resp.(type) {
	case *lnurl.HostedChannelResponse:
		uri, err := lnurl.HostedChannelURI(r)
		if err != nil {
			return err
		}

		fmt.Printf("Connect to %s to request a hosted channel\n", uri)
		return nil

	case *lnurl.ChannelResponse:
		return requestChannel(ctx, client, r)

	default:
		return fmt.Errorf("expected a channel request, got %s",
			resp.Tag())
	}
}

func requestChannel(ctx *cli.Context, client *lnurl.Client,
	ch *lnurl.ChannelResponse) error {

	lndClient, err := getLND(ctx)
	if err != nil {
		return fmt.Errorf("could not connect to LND: %w", err)
	}
	defer lndClient.Close()

	rpcCtx, cancel := rpcContext(ctx)
	defer cancel()

	info, err := lndClient.Client.GetInfo(rpcCtx)
	if err != nil {
		return err
	}
	nodeID := hex.EncodeToString(info.IdentityPubkey[:])

	if ctx.Bool("cancel") {
		return client.CancelChannel(ctx.Context, ch, nodeID)
	}

	fmt.Printf("Connect %s (alias %s) to %s, then the service opens "+
		"the channel\n", nodeID, info.Alias, ch.URI)

	return client.OpenChannel(ctx.Context, ch, nodeID, ctx.Bool("private"))
}
