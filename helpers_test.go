package lnurl

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/btcsuite/btcd/chaincfg"
	"github.com/ellemouton/lnurl/internal/lnurltest"
	"github.com/lightningnetwork/lnd/lnwire"
	"github.com/stretchr/testify/require"
)

// mockTransport records requests and answers them with reply.
type mockTransport struct {
	mu       sync.Mutex
	requests []*Request
	reply    func(req *Request) (*Reply, error)
}

func (m *mockTransport) Do(_ context.Context, req *Request) (*Reply, error) {
	m.mu.Lock()
	m.requests = append(m.requests, req)
	m.mu.Unlock()

	if m.reply == nil {
		return nil, errors.New("unexpected request")
	}

	return m.reply(req)
}

func (m *mockTransport) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return len(m.requests)
}

func replyWith(body string) func(*Request) (*Reply, error) {
	return func(*Request) (*Reply, error) {
		return &Reply{StatusCode: 200, Body: []byte(body)}, nil
	}
}

// mockDecoder returns a fixed decoded invoice for every payment request.
type mockDecoder struct {
	inv *DecodedInvoice
	err error
}

func (m *mockDecoder) DecodeInvoice(string) (*DecodedInvoice, error) {
	return m.inv, m.err
}

func msat(v uint64) *lnwire.MilliSatoshi {
	m := lnwire.MilliSatoshi(v)
	return &m
}

func newMockClient(t *testing.T, transport Transport,
	decoder InvoiceDecoder) *Client {

	t.Helper()

	c, err := NewClient(&Config{
		Network:        "regtest",
		Transport:      transport,
		InvoiceDecoder: decoder,
	})
	require.NoError(t, err)

	return c
}

// newServiceClient starts an lnurltest service and a client talking to it
// over real HTTP.
func newServiceClient(t *testing.T, mode TransportMode) (*Client,
	*lnurltest.Service) {

	t.Helper()

	svc := lnurltest.New(&chaincfg.RegressionNetParams)
	t.Cleanup(svc.Close)

	c, err := NewClient(&Config{
		Network:    "regtest",
		Mode:       mode,
		HTTPClient: svc.Client(),
	})
	require.NoError(t, err)

	return c, svc
}

func encodeURL(t *testing.T, url string) string {
	t.Helper()

	encoded, err := EncodeURL(url)
	require.NoError(t, err)

	return encoded
}

var modes = []TransportMode{ModeBlocking, ModeAsync}
