package lnurl

import (
	"fmt"
	"net/http"
	"time"

	"github.com/btcsuite/btcd/chaincfg"
)

// Config holds the settings of a Client.
type Config struct {
	// Network is the chain invoices must be for: mainnet, testnet,
	// regtest, simnet or signet.
	Network string

	// Mode selects the blocking or the async transport.
	Mode TransportMode

	// Timeout bounds each round trip.
	Timeout time.Duration

	// TorProxy is the host:port of the SOCKS5 proxy for onion services.
	TorProxy string

	// HTTPClient overrides the clearnet HTTP client.
	HTTPClient *http.Client

	// Transport overrides the transport entirely. Mode, Timeout, TorProxy
	// and HTTPClient are ignored when it is set.
	Transport Transport

	// InvoiceDecoder overrides the zpay32 decoder for Network.
	InvoiceDecoder InvoiceDecoder
}

// DefaultConfig returns a mainnet config using the blocking transport.
func DefaultConfig() *Config {
	return &Config{
		Network: "mainnet",
		Mode:    ModeBlocking,
		Timeout: DefaultTimeout,
	}
}

// ChainParams maps a network name onto its chain parameters.
func ChainParams(network string) (*chaincfg.Params, error) {
	switch network {
	case "mainnet", "":
		return &chaincfg.MainNetParams, nil

	case "testnet", "testnet3":
		return &chaincfg.TestNet3Params, nil

	case "regtest":
		return &chaincfg.RegressionNetParams, nil

	case "simnet":
		return &chaincfg.SimNetParams, nil

	case "signet":
		return &chaincfg.SigNetParams, nil

	default:
		return nil, fmt.Errorf("unknown network: %s", network)
	}
}
