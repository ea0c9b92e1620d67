package lnurl

import (
	"context"
	"encoding/hex"
	"fmt"
	"net"
	"net/url"
	"strings"

	"github.com/btcsuite/btcd/btcec"
)

// NodeURI is a lightning node address of the form pubkey@host:port. Host
// is empty when only the public key is known.
type NodeURI struct {
	PubKey *btcec.PublicKey
	Host   string
}

// ParseNodeURI parses pubkey@host:port or a bare hex public key.
func ParseNodeURI(s string) (*NodeURI, error) {
	pubHex, host := s, ""
	if i := strings.Index(s, "@"); i != -1 {
		pubHex, host = s[:i], s[i+1:]

		if _, _, err := net.SplitHostPort(host); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidNodeURI, err)
		}
	}

	b, err := hex.DecodeString(pubHex)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidNodeURI, err)
	}

	pub, err := btcec.ParsePubKey(b, btcec.S256())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidNodeURI, err)
	}

	return &NodeURI{PubKey: pub, Host: host}, nil
}

func (n *NodeURI) String() string {
	pub := hex.EncodeToString(n.PubKey.SerializeCompressed())
	if n.Host == "" {
		return pub
	}

	return pub + "@" + n.Host
}

// OpenChannel asks the service to open a channel to the local node.
func (c *Client) OpenChannel(ctx context.Context, ch *ChannelResponse,
	localNodeURI string, private bool) error {

	if _, err := ParseNodeURI(localNodeURI); err != nil {
		return invalid(err, "remoteid")
	}

	privateFlag := "0"
	if private {
		privateFlag = "1"
	}

	return c.channelCallback(ctx, ch, url.Values{
		"k1":       {ch.K1},
		"remoteid": {localNodeURI},
		"private":  {privateFlag},
	})
}

// CancelChannel tells the service the wallet will not take the channel.
func (c *Client) CancelChannel(ctx context.Context, ch *ChannelResponse,
	localNodeURI string) error {

	if _, err := ParseNodeURI(localNodeURI); err != nil {
		return invalid(err, "remoteid")
	}

	return c.channelCallback(ctx, ch, url.Values{
		"k1":       {ch.K1},
		"remoteid": {localNodeURI},
		"cancel":   {"1"},
	})
}

func (c *Client) channelCallback(ctx context.Context, ch *ChannelResponse,
	params url.Values) error {

	u, err := callbackURL(ch.Callback, params)
	if err != nil {
		return err
	}

	body, err := c.get(ctx, u)
	if err != nil {
		return err
	}

	return checkStatus(body)
}

// HostedChannelURI returns the node the wallet must connect to in order to
// request a hosted channel. The wallet does so out of band.
func HostedChannelURI(h *HostedChannelResponse) (*NodeURI, error) {
	n, err := ParseNodeURI(h.URI)
	if err != nil {
		return nil, err
	}

	if n.Host == "" {
		return nil, fmt.Errorf("%w: hosted channel URI has no host",
			ErrInvalidNodeURI)
	}

	return n, nil
}
