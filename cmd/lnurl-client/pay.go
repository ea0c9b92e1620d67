package main

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/btcsuite/btcutil"
	"github.com/ellemouton/lnurl"
	"github.com/lightningnetwork/lnd/lnwire"
	"github.com/urfave/cli/v2"
)

var payCommand = &cli.Command{
	Name:        "pay",
	Usage:       "Pay to LNURL",
	Description: `Pay to an LNURL-pay code or a lightning address`,
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:  "lnurl",
			Usage: "The LNURL or lightning address to pay to.",
		},
		&cli.Uint64Flag{
			Name:  "amt",
			Usage: "The amt of millisats to pay",
		},
		&cli.StringFlag{
			Name:  "comment",
			Usage: "optional comment for the recipient",
		},
		&cli.Int64Flag{
			Name:  "maxfee",
			Usage: "max fee to pay for this payment (in sats)",
			Value: 1000,
		},
	},
	Action: payToLNURL,
}

func payToLNURL(ctx *cli.Context) error {
	client, _, resp, err := fetch(ctx, ctx.String("lnurl"))
	if err != nil {
		return err
	}

	payResp, ok := resp.(*lnurl.PayResponse)
	if !ok {
		return fmt.Errorf("expected a pay request, got %s", resp.Tag())
	}

	desc, err := payResp.Description()
	if err != nil {
		return err
	}
	fmt.Printf("Paying to: %s\n", desc)

	millisats, err := readAmount(
		lnwire.MilliSatoshi(ctx.Uint64("amt")), payResp.MinSendable,
		payResp.MaxSendable,
	)
	if err != nil {
		return err
	}

	res, err := client.GetInvoice(
		ctx.Context, payResp, millisats, ctx.String("comment"),
	)
	if err != nil {
		return err
	}

	lndClient, err := getLND(ctx)
	if err != nil {
		return fmt.Errorf("could not connect to LND: %w", err)
	}
	defer lndClient.Close()

	payment := <-lndClient.Client.PayInvoice(
		ctx.Context, res.Invoice, btcutil.Amount(ctx.Int64("maxfee")),
		nil,
	)
	if payment.Err != nil {
		return fmt.Errorf("could not pay invoice: %w", payment.Err)
	}

	fmt.Printf("Successful payment! Preimage: %s\n", payment.Preimage)

	if res.SuccessAction != nil {
		printSuccessAction(res.SuccessAction, payment.Preimage)
	}

	return nil
}

// readAmount asks for an amount on the console until one within the bounds
// is entered. The amount given on the command line is used if it fits.
func readAmount(millisats, minAmt, maxAmt lnwire.MilliSatoshi) (
	lnwire.MilliSatoshi, error) {

	reader := bufio.NewReader(os.Stdin)
	for millisats < minAmt || millisats > maxAmt {
		fmt.Printf("Enter an amount (in millisatoshis) between "+
			"%d and %d\n", uint64(minAmt), uint64(maxAmt))

		userInput, err := reader.ReadString('\n')
		if err != nil {
			return 0, fmt.Errorf("could not read from console: %w",
				err)
		}
		userInput = strings.TrimSpace(userInput)

		amt, err := strconv.ParseUint(userInput, 10, 64)
		if err != nil {
			fmt.Printf("error parsing input: %v\n", err)
			continue
		}
		millisats = lnwire.MilliSatoshi(amt)

		if millisats < minAmt || millisats > maxAmt {
			fmt.Printf("Invalid amount. Expected an amount "+
				"between %d and %d, got %d\n", uint64(minAmt),
				uint64(maxAmt), uint64(millisats))
		}
	}

	return millisats, nil
}

func printSuccessAction(sa *lnurl.SuccessAction, preimage [32]byte) {
	switch {
	case !sa.Known():
		fmt.Printf("Unsupported success action: %s\n", sa.Tag)

	case sa.Tag == lnurl.SuccessActionMessage:
		fmt.Println(sa.Message)

	case sa.Tag == lnurl.SuccessActionURL:
		fmt.Printf("%s: %s\n", sa.Description, sa.URL)

	case sa.Tag == lnurl.SuccessActionAES:
		msg, err := sa.Decrypt(preimage)
		if err != nil {
			fmt.Printf("could not decrypt success action: %v\n",
				err)
			return
		}
		fmt.Printf("%s: %s\n", sa.Description, msg)
	}
}
