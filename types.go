package lnurl

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"

	"github.com/lightningnetwork/lnd/lnwire"
)

// Tag is the discriminant an LNURL service puts in its first reply.
type Tag string

const (
	TagPayRequest           Tag = "payRequest"
	TagWithdrawRequest      Tag = "withdrawRequest"
	TagChannelRequest       Tag = "channelRequest"
	TagHostedChannelRequest Tag = "hostedChannelRequest"

	// TagLogin is carried in the query of lnurl-auth URLs. Auth
	// challenges fetched over HTTP usually have no tag at all.
	TagLogin Tag = "login"
)

// Response is one of the LNURL response kinds. The set of implementations is
// closed: *PayResponse, *WithdrawResponse, *ChannelResponse,
// *HostedChannelResponse, *AuthResponse and *ErrorResponse.
type Response interface {
	// Tag returns the discriminant of the response. ErrorResponse has
	// none and returns the empty tag.
	Tag() Tag

	isResponse()
}

// PayResponse is the first reply of an lnurl-pay exchange.
type PayResponse struct {
	// Callback is the URL from LN SERVICE which will accept the pay
	// request parameters.
	Callback string

	// MinSendable is the min amount LN SERVICE is willing to receive, can
	// not be less than 1 or more than MaxSendable.
	MinSendable lnwire.MilliSatoshi

	// MaxSendable is the max amount LN SERVICE is willing to receive.
	MaxSendable lnwire.MilliSatoshi

	// Metadata is the metadata JSON exactly as received. The invoice
	// description hash commits to these bytes, so it must never be
	// re-serialized.
	Metadata string

	// CommentAllowed is the max length of a LUD-12 comment. Zero means
	// comments are not accepted.
	CommentAllowed uint64

	// PayerDataRequested is set when the service asked for LUD-18 payer
	// identity data.
	PayerDataRequested bool
}

func (*PayResponse) Tag() Tag { return TagPayRequest }
func (*PayResponse) isResponse() {}

// MetadataHash returns the SHA-256 digest of the raw metadata string.
func (p *PayResponse) MetadataHash() [32]byte {
	return sha256.Sum256([]byte(p.Metadata))
}

// MetadataEntries parses the metadata into its [mime-type, content] pairs.
func (p *PayResponse) MetadataEntries() ([][2]string, error) {
	var entries [][2]string
	if err := json.Unmarshal([]byte(p.Metadata), &entries); err != nil {
		return nil, fmt.Errorf("could not parse metadata: %w", err)
	}

	return entries, nil
}

// Description returns the mandatory text/plain entry of the metadata.
func (p *PayResponse) Description() (string, error) {
	entries, err := p.MetadataEntries()
	if err != nil {
		return "", err
	}

	for _, d := range entries {
		if d[0] == "text/plain" {
			return d[1], nil
		}
	}

	return "", fmt.Errorf("metadata does not contain the required " +
		"'text/plain' field")
}

// WithdrawResponse is the first reply of an lnurl-withdraw exchange.
type WithdrawResponse struct {
	// Callback is a second-level URL which accepts a withdrawal invoice.
	Callback string

	// K1 is an ephemeral secret which allows the wallet to withdraw
	// funds. Services treat it as single use.
	K1 string

	// MinWithdrawable defaults to 1 msat when the service omits it.
	MinWithdrawable lnwire.MilliSatoshi

	MaxWithdrawable lnwire.MilliSatoshi

	DefaultDescription string
}

func (*WithdrawResponse) Tag() Tag { return TagWithdrawRequest }
func (*WithdrawResponse) isResponse() {}

// AuthResponse is an lnurl-auth challenge.
type AuthResponse struct {
	Callback string

	// K1 is the hex encoded 32 byte challenge to sign.
	K1 string

	// Action is one of register, login, link or auth. It is optional and
	// only informs what the wallet should display.
	Action string
}

func (*AuthResponse) Tag() Tag { return TagLogin }
func (*AuthResponse) isResponse() {}

// ChannelResponse is the first reply of an lnurl-channel exchange.
type ChannelResponse struct {
	// URI is the remote node address of the form
	// node_key@ip_address:port_number.
	URI string

	// Callback is a second-level URL which initiates an OpenChannel
	// message from the service's node.
	Callback string

	K1 string
}

func (*ChannelResponse) Tag() Tag { return TagChannelRequest }
func (*ChannelResponse) isResponse() {}

// HostedChannelResponse asks the wallet to connect to URI and request a
// hosted channel out of band.
type HostedChannelResponse struct {
	URI   string
	K1    string
	Alias string
}

func (*HostedChannelResponse) Tag() Tag { return TagHostedChannelRequest }
func (*HostedChannelResponse) isResponse() {}

// ErrorResponse is a {"status":"ERROR","reason":...} reply.
type ErrorResponse struct {
	Reason string
}

func (*ErrorResponse) Tag() Tag { return "" }
func (*ErrorResponse) isResponse() {}
