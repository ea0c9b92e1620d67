package lnurl

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
)

// Client runs LNURL exchanges. It holds no per-exchange state and is safe
// for concurrent use.
type Client struct {
	cfg       *Config
	transport Transport
	invoices  InvoiceDecoder
}

// NewClient builds a Client from cfg. A nil cfg uses DefaultConfig.
func NewClient(cfg *Config) (*Client, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	c := &Client{
		cfg:       cfg,
		transport: cfg.Transport,
		invoices:  cfg.InvoiceDecoder,
	}

	if c.invoices == nil {
		params, err := ChainParams(cfg.Network)
		if err != nil {
			return nil, err
		}
		c.invoices = &ZpayDecoder{Params: params}
	}

	if c.transport == nil {
		t, err := NewTransport(cfg.Mode, &TransportConfig{
			Timeout:    cfg.Timeout,
			TorProxy:   cfg.TorProxy,
			HTTPClient: cfg.HTTPClient,
		})
		if err != nil {
			return nil, err
		}
		c.transport = t
	}

	return c, nil
}

// Fetch decodes identifier, requests the URL it resolves to and classifies
// the reply. An error reply is returned as a *ProtocolError. lnurl-auth
// URLs are classified from their query without a request.
func (c *Client) Fetch(ctx context.Context, identifier string) (
	*ResolvedRequest, Response, error) {

	req, err := Decode(identifier)
	if err != nil {
		return nil, nil, err
	}

	if auth, ok := authFromURL(req.URL); ok {
		return req, auth, nil
	}

	body, err := c.get(ctx, req.URL)
	if err != nil {
		return nil, nil, err
	}

	resp, err := Classify(body)
	if err != nil {
		return nil, nil, err
	}

	if e, ok := resp.(*ErrorResponse); ok {
		return nil, nil, &ProtocolError{Reason: e.Reason}
	}

	if err := checkCallback(req, resp); err != nil {
		return nil, nil, err
	}

	log.Debugf("Classified %s as %T", redact(req.URL), resp)

	return req, resp, nil
}

// checkCallback refuses a plain http callback on a clearnet host when the
// LNURL itself was served over https.
func checkCallback(req *ResolvedRequest, resp Response) error {
	var callback string
	switch r := resp.(type) {
	case *PayResponse:
		callback = r.Callback
	case *WithdrawResponse:
		callback = r.Callback
	case *AuthResponse:
		callback = r.Callback
	case *ChannelResponse:
		callback = r.Callback
	default:
		return nil
	}

	if req.URL.Scheme != "https" {
		return nil
	}

	cb, err := url.Parse(callback)
	if err != nil {
		return invalid(ErrInsecureCallback, "invalid callback: %v", err)
	}
	if cb.Scheme != "https" && !isOnionHost(cb.Hostname()) {
		return invalid(ErrInsecureCallback, "%s", redact(cb))
	}

	return nil
}

// get performs a GET round trip. Non-2xx replies are surfaced as the
// service's error reason when the body carries one.
func (c *Client) get(ctx context.Context, u *url.URL) ([]byte, error) {
	req := &Request{
		Method: http.MethodGet,
		URL:    u,
		Onion:  isOnionHost(u.Hostname()),
	}

	reply, err := c.transport.Do(ctx, req)
	if err != nil {
		return nil, err
	}

	if reply.StatusCode < 200 || reply.StatusCode >= 300 {
		if f, err := parseObject(reply.Body); err == nil {
			if reason, ok := f.errorReason(); ok {
				return nil, &ProtocolError{Reason: reason}
			}
		}

		return nil, &TransportError{
			URL:        redact(u),
			StatusCode: reply.StatusCode,
			Err:        ErrUnexpectedStatus,
		}
	}

	return reply.Body, nil
}

// callbackURL merges params into the query of a service callback, keeping
// the parameters the service put there itself.
func callbackURL(callback string, params url.Values) (*url.URL, error) {
	u, err := url.Parse(callback)
	if err != nil {
		return nil, fmt.Errorf("invalid callback: %w", err)
	}

	q := u.Query()
	for k, v := range params {
		q[k] = v
	}
	u.RawQuery = q.Encode()

	return u, nil
}
