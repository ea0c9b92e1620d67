package main

import (
	"fmt"

	"github.com/ellemouton/lnurl"
	"github.com/lightningnetwork/lnd/lnrpc/invoicesrpc"
	"github.com/lightningnetwork/lnd/lnwire"
	"github.com/urfave/cli/v2"
)

var withdrawCommand = &cli.Command{
	Name:        "withdraw",
	Usage:       "Withdraw from an LNURL",
	Description: `Create an invoice with lnd and submit it to an LNURL-withdraw service`,
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:  "lnurl",
			Usage: "The LNURL to withdraw from.",
		},
		&cli.Uint64Flag{
			Name:  "amt",
			Usage: "The amt of millisats to withdraw, defaults to the max",
		},
	},
	Action: withdrawFromLNURL,
}

func withdrawFromLNURL(ctx *cli.Context) error {
	client, _, resp, err := fetch(ctx, ctx.String("lnurl"))
	if err != nil {
		return err
	}

	w, ok := resp.(*lnurl.WithdrawResponse)
	if !ok {
		return fmt.Errorf("expected a withdraw request, got %s",
			resp.Tag())
	}

	amt := w.MaxWithdrawable
	if ctx.IsSet("amt") {
		amt = lnwire.MilliSatoshi(ctx.Uint64("amt"))
	}

	lndClient, err := getLND(ctx)
	if err != nil {
		return fmt.Errorf("could not connect to LND: %w", err)
	}
	defer lndClient.Close()

	rpcCtx, cancel := rpcContext(ctx)
	defer cancel()

	hash, invoice, err := lndClient.Client.AddInvoice(
		rpcCtx, &invoicesrpc.AddInvoiceData{
			Memo:  w.DefaultDescription,
			Value: amt,
		},
	)
	if err != nil {
		return fmt.Errorf("could not create invoice: %w", err)
	}

	if err := client.Withdraw(ctx.Context, w, invoice, amt); err != nil {
		return err
	}

	fmt.Printf("Withdrawal requested, invoice hash: %s\n", hash)

	return nil
}
