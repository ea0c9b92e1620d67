package lnurl

import (
	"bytes"
	"context"
	"encoding/json"
	"net/url"
	"strconv"
	"unicode/utf8"

	"github.com/lightningnetwork/lnd/lnwire"
)

// PayResult is a validated invoice returned by an lnurl-pay callback.
type PayResult struct {
	// Invoice is the bolt11 payment request.
	Invoice string

	// SuccessAction is shown to the user once the invoice is paid. It
	// is nil when the service sent none.
	SuccessAction *SuccessAction

	Decoded *DecodedInvoice
}

// GetInvoice requests an invoice for amount from the pay callback and
// checks it against the request and the metadata commitment. An empty
// comment is not sent.
func (c *Client) GetInvoice(ctx context.Context, pay *PayResponse,
	amount lnwire.MilliSatoshi, comment string) (*PayResult, error) {

	if amount < pay.MinSendable || amount > pay.MaxSendable {
		return nil, invalid(ErrAmountOutOfRange, "%v not in [%v, %v]",
			amount, pay.MinSendable, pay.MaxSendable)
	}

	if n := utf8.RuneCountInString(comment); uint64(n) > pay.CommentAllowed {
		return nil, invalid(ErrCommentTooLong, "%d characters, %d "+
			"allowed", n, pay.CommentAllowed)
	}

	params := url.Values{
		"amount": {strconv.FormatUint(uint64(amount), 10)},
	}
	if comment != "" {
		params.Set("comment", comment)
	}

	u, err := callbackURL(pay.Callback, params)
	if err != nil {
		return nil, err
	}

	body, err := c.get(ctx, u)
	if err != nil {
		return nil, err
	}

	res, err := parsePayReply(body)
	if err != nil {
		return nil, err
	}

	res.Decoded, err = c.invoices.DecodeInvoice(res.Invoice)
	if err != nil {
		return nil, invalid(ErrInvalidInvoice, "%v", err)
	}

	if err := verifyInvoice(pay, amount, res.Decoded); err != nil {
		return nil, err
	}

	log.Debugf("Got invoice for %v from %s", amount, redact(u))

	return res, nil
}

func parsePayReply(body []byte) (*PayResult, error) {
	f, err := parseObject(body)
	if err != nil {
		return nil, err
	}

	if reason, ok := f.errorReason(); ok {
		return nil, &ProtocolError{Reason: reason}
	}

	pr, err := f.requireString("pr")
	if err != nil {
		return nil, err
	}

	res := &PayResult{Invoice: pr}
	if f.present("successAction") {
		var sa SuccessAction
		if err := json.Unmarshal(f["successAction"], &sa); err != nil {
			return nil, malformed("successAction")
		}
		res.SuccessAction = &sa
	}

	return res, nil
}

// verifyInvoice checks that the invoice is for exactly the requested amount
// and, if it commits to a description hash, that the hash is the one of
// the raw metadata.
func verifyInvoice(pay *PayResponse, amount lnwire.MilliSatoshi,
	inv *DecodedInvoice) error {

	if inv.AmountMsat == nil {
		return invalid(ErrAmountMismatch, "requested %v, invoice has "+
			"no amount", amount)
	}

	if *inv.AmountMsat != amount {
		return invalid(ErrAmountMismatch, "requested %v, invoice is "+
			"for %v", amount, *inv.AmountMsat)
	}

	if inv.DescriptionHash != nil {
		hash := pay.MetadataHash()
		if !bytes.Equal(inv.DescriptionHash[:], hash[:]) {
			return invalid(ErrMetadataHashMismatch, "%x", hash)
		}
	}

	return nil
}
