package lnurl

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/ioutil"
	"net"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/net/proxy"
)

const (
	// DefaultTimeout bounds a single request/response round trip.
	DefaultTimeout = 30 * time.Second

	// maxBodySize caps how much of a reply body is read.
	maxBodySize = 1 << 20

	// maxRedirects matches the net/http default.
	maxRedirects = 10
)

// TransportMode selects how a Transport schedules its round trips.
type TransportMode uint8

const (
	// ModeBlocking performs each round trip on the calling goroutine.
	ModeBlocking TransportMode = iota

	// ModeAsync issues each round trip on its own goroutine and suspends
	// the caller until the reply, a cancellation or the timeout.
	ModeAsync
)

func (m TransportMode) String() string {
	switch m {
	case ModeBlocking:
		return "blocking"
	case ModeAsync:
		return "async"
	default:
		return fmt.Sprintf("mode(%d)", uint8(m))
	}
}

// Request is a single LNURL HTTP request.
type Request struct {
	Method string
	URL    *url.URL

	// Body is sent as JSON when set.
	Body []byte

	// Onion must be set exactly when URL points at an onion service.
	Onion bool
}

// Reply is the raw result of a round trip.
type Reply struct {
	StatusCode int
	Body       []byte
}

// Transport performs one request/response cycle per call and never retries.
type Transport interface {
	Do(ctx context.Context, req *Request) (*Reply, error)
}

// TransportConfig holds the settings shared by both transport modes.
type TransportConfig struct {
	// Timeout bounds each round trip. DefaultTimeout is used when zero.
	Timeout time.Duration

	// TorProxy is the host:port of a SOCKS5 proxy used for onion
	// services. Onion requests are refused when it is empty.
	TorProxy string

	// HTTPClient is used for clearnet requests. A fresh client is built
	// when nil.
	HTTPClient *http.Client
}

// NewTransport builds the transport realization for the given mode. A nil
// cfg uses the defaults.
func NewTransport(mode TransportMode, cfg *TransportConfig) (Transport, error) {
	if cfg == nil {
		cfg = &TransportConfig{}
	}

	rt, err := newRoundTripper(cfg)
	if err != nil {
		return nil, err
	}

	switch mode {
	case ModeBlocking:
		return &BlockingTransport{rt: rt}, nil

	case ModeAsync:
		return &AsyncTransport{rt: rt}, nil

	default:
		return nil, fmt.Errorf("unknown transport mode: %v", mode)
	}
}

// BlockingTransport occupies the calling goroutine for the whole round trip.
type BlockingTransport struct {
	rt *roundTripper
}

// Do performs the request on the calling goroutine.
func (t *BlockingTransport) Do(ctx context.Context, req *Request) (*Reply,
	error) {

	return t.rt.roundTrip(ctx, req)
}

// Result is delivered by AsyncTransport.Go once a round trip completes.
type Result struct {
	Reply *Reply
	Err   error
}

// AsyncTransport hands every round trip to a separate goroutine.
type AsyncTransport struct {
	rt *roundTripper
}

// Go starts the round trip and returns a channel that receives exactly one
// Result. The channel is buffered so the goroutine never blocks on an
// abandoned result.
func (t *AsyncTransport) Go(ctx context.Context, req *Request) <-chan Result {
	res := make(chan Result, 1)
	go func() {
		reply, err := t.rt.roundTrip(ctx, req)
		res <- Result{Reply: reply, Err: err}
	}()

	return res
}

// Do suspends the caller until the round trip started by Go completes or
// the context is done.
func (t *AsyncTransport) Do(ctx context.Context, req *Request) (*Reply, error) {
	select {
	case res := <-t.Go(ctx, req):
		return res.Reply, res.Err

	case <-ctx.Done():
		return nil, transportErr(req, ctx.Err())
	}
}

// roundTripper holds the HTTP clients and implements the path selection
// both transports share.
type roundTripper struct {
	timeout  time.Duration
	clearnet *http.Client

	// onion is nil when no Tor proxy is configured.
	onion *http.Client
}

func newRoundTripper(cfg *TransportConfig) (*roundTripper, error) {
	rt := &roundTripper{
		timeout: cfg.Timeout,
	}
	if rt.timeout == 0 {
		rt.timeout = DefaultTimeout
	}

	// Copy the caller's client before installing the redirect check.
	clearnet := &http.Client{}
	if cfg.HTTPClient != nil {
		c := *cfg.HTTPClient
		clearnet = &c
	}
	clearnet.CheckRedirect = checkRedirect(false, clearnet.CheckRedirect)
	rt.clearnet = clearnet

	if cfg.TorProxy == "" {
		return rt, nil
	}

	dialer, err := proxy.SOCKS5("tcp", cfg.TorProxy, nil, proxy.Direct)
	if err != nil {
		return nil, fmt.Errorf("could not create SOCKS5 dialer: %w", err)
	}

	// The proxy resolves the onion address, the host name must reach it
	// unresolved.
	dialContext := func(ctx context.Context, network,
		addr string) (net.Conn, error) {

		return dialer.Dial(network, addr)
	}
	if cd, ok := dialer.(proxy.ContextDialer); ok {
		dialContext = cd.DialContext
	}

	rt.onion = &http.Client{
		Transport: &http.Transport{
			DialContext: dialContext,
		},
		CheckRedirect: checkRedirect(true, nil),
	}

	return rt, nil
}

// checkRedirect keeps redirects on the network the request started on. A
// redirect between clearnet and an onion service, or from https to http,
// is refused before it is dialed. next, when set, runs after the checks.
func checkRedirect(onion bool, next func(*http.Request,
	[]*http.Request) error) func(*http.Request, []*http.Request) error {

	return func(req *http.Request, via []*http.Request) error {
		if isOnionHost(req.URL.Hostname()) != onion {
			return fmt.Errorf("%w: redirect to %s crosses between "+
				"clearnet and onion", ErrTransportMisconfigured,
				req.URL.Hostname())
		}

		prev := via[len(via)-1].URL
		if prev.Scheme == "https" && req.URL.Scheme != "https" {
			return fmt.Errorf("%w: redirect from https to %s",
				ErrTransportMisconfigured, req.URL.Scheme)
		}

		if next != nil {
			return next(req, via)
		}

		if len(via) >= maxRedirects {
			return fmt.Errorf("stopped after %d redirects",
				maxRedirects)
		}

		return nil
	}
}

// client picks the HTTP client for a request and rejects requests whose
// onion hint does not fit the host or the configuration.
func (r *roundTripper) client(req *Request) (*http.Client, error) {
	hostIsOnion := isOnionHost(req.URL.Hostname())

	switch {
	case req.Onion != hostIsOnion:
		return nil, fmt.Errorf("%w: onion=%v for host %s",
			ErrTransportMisconfigured, req.Onion,
			req.URL.Hostname())

	case req.Onion && r.onion == nil:
		return nil, fmt.Errorf("%w: no Tor proxy for onion host %s",
			ErrTransportMisconfigured, req.URL.Hostname())

	case req.Onion:
		return r.onion, nil

	default:
		return r.clearnet, nil
	}
}

func (r *roundTripper) roundTrip(ctx context.Context, req *Request) (*Reply,
	error) {

	client, err := r.client(req)
	if err != nil {
		return nil, &TransportError{URL: redact(req.URL), Err: err}
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	var body io.Reader
	if req.Body != nil {
		body = bytes.NewReader(req.Body)
	}

	httpReq, err := http.NewRequestWithContext(
		ctx, req.Method, req.URL.String(), body,
	)
	if err != nil {
		return nil, transportErr(req, err)
	}
	httpReq.Header.Set("Accept", "application/json")
	if req.Body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}

	log.Debugf("%s %s (onion=%v)", req.Method, redact(req.URL), req.Onion)

	resp, err := client.Do(httpReq)
	if err != nil {
		return nil, transportErr(req, err)
	}
	defer resp.Body.Close()

	b, err := ioutil.ReadAll(io.LimitReader(resp.Body, maxBodySize+1))
	if err != nil {
		return nil, transportErr(req, fmt.Errorf("could not read "+
			"response body: %w", err))
	}
	if len(b) > maxBodySize {
		return nil, &TransportError{
			URL:        redact(req.URL),
			StatusCode: resp.StatusCode,
			Err:        ErrResponseTooLarge,
		}
	}

	log.Tracef("%s %s replied %d: %s", req.Method, redact(req.URL),
		resp.StatusCode, b)

	return &Reply{
		StatusCode: resp.StatusCode,
		Body:       b,
	}, nil
}

func transportErr(req *Request, err error) error {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) ||
		(errors.As(err, &netErr) && netErr.Timeout()) {

		err = ErrTransportTimeout
	}

	return &TransportError{URL: redact(req.URL), Err: err}
}
