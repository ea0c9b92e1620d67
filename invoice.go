package lnurl

import (
	"strings"

	"github.com/btcsuite/btcd/chaincfg"
	"github.com/lightningnetwork/lnd/lnwire"
	"github.com/lightningnetwork/lnd/zpay32"
)

// DecodedInvoice holds the bolt11 fields the flows validate.
type DecodedInvoice struct {
	// AmountMsat is nil for invoices without an amount.
	AmountMsat *lnwire.MilliSatoshi

	// DescriptionHash is nil when the invoice carries a literal
	// description.
	DescriptionHash *[32]byte

	PaymentHash *[32]byte
}

// InvoiceDecoder parses bolt11 payment requests.
type InvoiceDecoder interface {
	DecodeInvoice(invoice string) (*DecodedInvoice, error)
}

// ZpayDecoder decodes invoices with lnd's zpay32 for a single chain.
type ZpayDecoder struct {
	Params *chaincfg.Params
}

// DecodeInvoice decodes and signature checks a bolt11 invoice.
func (d *ZpayDecoder) DecodeInvoice(invoice string) (*DecodedInvoice, error) {
	invoice = strings.TrimSpace(invoice)
	if strings.HasPrefix(strings.ToLower(invoice), lightningPrefix) {
		invoice = invoice[len(lightningPrefix):]
	}

	inv, err := zpay32.Decode(invoice, d.Params)
	if err != nil {
		return nil, err
	}

	return &DecodedInvoice{
		AmountMsat:      inv.MilliSat,
		DescriptionHash: inv.DescriptionHash,
		PaymentHash:     inv.PaymentHash,
	}, nil
}
