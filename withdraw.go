package lnurl

import (
	"context"
	"net/url"

	"github.com/lightningnetwork/lnd/lnwire"
)

// Withdraw submits invoice to the withdraw callback. amount must lie within
// the advertised bounds and match the invoice amount when it has one.
//
// The k1 of a WithdrawResponse is single use on the service side. A failed
// attempt should start over with a fresh Fetch rather than reuse w.
func (c *Client) Withdraw(ctx context.Context, w *WithdrawResponse,
	invoice string, amount lnwire.MilliSatoshi) error {

	if amount < w.MinWithdrawable || amount > w.MaxWithdrawable {
		return invalid(ErrAmountOutOfRange, "%v not in [%v, %v]",
			amount, w.MinWithdrawable, w.MaxWithdrawable)
	}

	inv, err := c.invoices.DecodeInvoice(invoice)
	if err != nil {
		return invalid(ErrInvalidInvoice, "%v", err)
	}

	if inv.AmountMsat != nil && *inv.AmountMsat != amount {
		return invalid(ErrAmountOutOfRange, "invoice is for %v, "+
			"withdrawing %v", *inv.AmountMsat, amount)
	}

	u, err := callbackURL(w.Callback, url.Values{
		"k1": {w.K1},
		"pr": {invoice},
	})
	if err != nil {
		return err
	}

	body, err := c.get(ctx, u)
	if err != nil {
		return err
	}

	if err := checkStatus(body); err != nil {
		return err
	}

	log.Infof("Withdrawal of %v accepted by %s", amount, redact(u))

	return nil
}
