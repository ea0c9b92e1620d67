package lnurl

import (
	"context"
	"io/ioutil"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newTestTransport(t *testing.T, mode TransportMode,
	cfg *TransportConfig) Transport {

	t.Helper()

	transport, err := NewTransport(mode, cfg)
	require.NoError(t, err)

	return transport
}

func getRequest(t *testing.T, rawURL string) *Request {
	t.Helper()

	u, err := url.Parse(rawURL)
	require.NoError(t, err)

	return &Request{
		Method: http.MethodGet,
		URL:    u,
		Onion:  isOnionHost(u.Hostname()),
	}
}

func TestTransportModesAgree(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(
		func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTeapot)
			_, _ = w.Write([]byte(`{"q":"` + r.URL.RawQuery +
				`","accept":"` + r.Header.Get("Accept") + `"}`))
		},
	))
	defer srv.Close()

	var replies []*Reply
	for _, mode := range modes {
		transport := newTestTransport(t, mode, &TransportConfig{})

		reply, err := transport.Do(
			context.Background(), getRequest(t, srv.URL+"/x?a=1"),
		)
		require.NoError(t, err)
		replies = append(replies, reply)
	}

	require.Equal(t, http.StatusTeapot, replies[0].StatusCode)
	require.Equal(t, `{"q":"a=1","accept":"application/json"}`,
		string(replies[0].Body))
	require.Equal(t, replies[0], replies[1])
}

func TestTransportPostBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(
		func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost ||
				r.Header.Get("Content-Type") != "application/json" {

				w.WriteHeader(http.StatusBadRequest)
				return
			}

			b, _ := ioutil.ReadAll(r.Body)
			_, _ = w.Write(b)
		},
	))
	defer srv.Close()

	req := getRequest(t, srv.URL)
	req.Method = http.MethodPost
	req.Body = []byte(`{"hello":"world"}`)

	transport := newTestTransport(t, ModeBlocking, &TransportConfig{})
	reply, err := transport.Do(context.Background(), req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, reply.StatusCode)
	require.Equal(t, req.Body, reply.Body)
}

func TestTransportOnionRouting(t *testing.T) {
	tests := []struct {
		name     string
		torProxy string
		url      string
		onion    bool
	}{
		{
			name:  "onion host without proxy",
			url:   "http://abcdefghijklmnop.onion/pay",
			onion: true,
		},
		{
			name:     "onion host without hint",
			torProxy: "127.0.0.1:9050",
			url:      "http://abcdefghijklmnop.onion/pay",
			onion:    false,
		},
		{
			name:     "clearnet host with onion hint",
			torProxy: "127.0.0.1:9050",
			url:      "https://service.example/pay",
			onion:    true,
		},
	}

	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			for _, mode := range modes {
				transport := newTestTransport(
					t, mode, &TransportConfig{
						TorProxy: test.torProxy,
					},
				)

				req := getRequest(t, test.url)
				req.Onion = test.onion

				_, err := transport.Do(context.Background(), req)
				require.ErrorIs(t, err, ErrTransportMisconfigured)

				var transportErr *TransportError
				require.ErrorAs(t, err, &transportErr)
				require.Zero(t, transportErr.StatusCode)
			}
		})
	}
}

func TestTransportOnionClient(t *testing.T) {
	rt, err := newRoundTripper(&TransportConfig{TorProxy: "127.0.0.1:9050"})
	require.NoError(t, err)
	require.NotNil(t, rt.onion)
	require.NotSame(t, rt.clearnet, rt.onion)

	client, err := rt.client(
		getRequest(t, "http://abcdefghijklmnop.onion/pay"),
	)
	require.NoError(t, err)
	require.Same(t, rt.onion, client)

	client, err = rt.client(getRequest(t, "https://service.example/pay"))
	require.NoError(t, err)
	require.Same(t, rt.clearnet, client)
}

func TestTransportTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(
		func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-r.Context().Done():
			case <-time.After(2 * time.Second):
			}
		},
	))
	defer srv.Close()

	for _, mode := range modes {
		mode := mode
		t.Run(mode.String(), func(t *testing.T) {
			transport := newTestTransport(t, mode, &TransportConfig{
				Timeout: 50 * time.Millisecond,
			})

			start := time.Now()
			_, err := transport.Do(
				context.Background(), getRequest(t, srv.URL),
			)
			require.ErrorIs(t, err, ErrTransportTimeout)
			require.Less(t, int64(time.Since(start)), int64(time.Second))
		})
	}
}

func TestAsyncTransportCancel(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(
		func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-r.Context().Done():
			case <-release:
			}
		},
	))
	defer srv.Close()
	defer close(release)

	transport := newTestTransport(t, ModeAsync, &TransportConfig{})

	ctx, cancel := context.WithCancel(context.Background())
	errChan := make(chan error, 1)
	go func() {
		_, err := transport.Do(ctx, getRequest(t, srv.URL))
		errChan <- err
	}()

	cancel()

	select {
	case err := <-errChan:
		require.ErrorIs(t, err, context.Canceled)

	case <-time.After(time.Second):
		t.Fatal("cancelled request did not return")
	}
}

func TestAsyncTransportGo(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(
		func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{}`))
		},
	))
	defer srv.Close()

	transport := newTestTransport(t, ModeAsync, &TransportConfig{})
	async, ok := transport.(*AsyncTransport)
	require.True(t, ok)

	results := make([]<-chan Result, 5)
	for i := range results {
		results[i] = async.Go(context.Background(), getRequest(t, srv.URL))
	}

	for _, res := range results {
		r := <-res
		require.NoError(t, r.Err)
		require.Equal(t, http.StatusOK, r.Reply.StatusCode)
	}
}

func TestNewTransportUnknownMode(t *testing.T) {
	_, err := NewTransport(TransportMode(7), &TransportConfig{})
	require.Error(t, err)
	require.Equal(t, "mode(7)", TransportMode(7).String())
}

func TestTransportRedirectToOnion(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(
		func(w http.ResponseWriter, r *http.Request) {
			http.Redirect(
				w, r, "http://abcdefghijklmnop.onion/pay",
				http.StatusFound,
			)
		},
	))
	defer srv.Close()

	for _, torProxy := range []string{"", "127.0.0.1:9050"} {
		for _, mode := range modes {
			transport := newTestTransport(t, mode, &TransportConfig{
				TorProxy: torProxy,
			})

			_, err := transport.Do(
				context.Background(), getRequest(t, srv.URL),
			)
			require.ErrorIs(t, err, ErrTransportMisconfigured)

			var transportErr *TransportError
			require.ErrorAs(t, err, &transportErr)
		}
	}
}

func TestCheckRedirect(t *testing.T) {
	redirect := func(from, to string) (*http.Request, []*http.Request) {
		prev, err := http.NewRequest(http.MethodGet, from, nil)
		require.NoError(t, err)

		next, err := http.NewRequest(http.MethodGet, to, nil)
		require.NoError(t, err)

		return next, []*http.Request{prev}
	}

	tests := []struct {
		name  string
		onion bool
		from  string
		to    string
		ok    bool
	}{
		{
			name: "clearnet to clearnet",
			from: "https://service.example/a",
			to:   "https://other.example/b",
			ok:   true,
		},
		{
			name: "clearnet to onion",
			from: "https://service.example/a",
			to:   "http://abcdefghijklmnop.onion/b",
		},
		{
			name:  "onion to clearnet",
			onion: true,
			from:  "http://abcdefghijklmnop.onion/a",
			to:    "http://service.example/b",
		},
		{
			name:  "onion to onion",
			onion: true,
			from:  "http://abcdefghijklmnop.onion/a",
			to:    "http://qrstuvwxyzabcdef.onion/b",
			ok:    true,
		},
		{
			name: "https to http",
			from: "https://service.example/a",
			to:   "http://service.example/b",
		},
	}

	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			req, via := redirect(test.from, test.to)

			err := checkRedirect(test.onion, nil)(req, via)
			if test.ok {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, ErrTransportMisconfigured)
		})
	}
}

func TestTransportKeepsCallerClient(t *testing.T) {
	client := &http.Client{}

	_, err := NewTransport(ModeBlocking, &TransportConfig{
		HTTPClient: client,
	})
	require.NoError(t, err)
	require.Nil(t, client.CheckRedirect)
}

func TestTransportBodyTooLarge(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(
		func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write(make([]byte, 2*maxBodySize))
		},
	))
	defer srv.Close()

	for _, mode := range modes {
		transport := newTestTransport(t, mode, &TransportConfig{})

		_, err := transport.Do(
			context.Background(), getRequest(t, srv.URL),
		)
		require.ErrorIs(t, err, ErrResponseTooLarge)

		var transportErr *TransportError
		require.ErrorAs(t, err, &transportErr)
		require.Equal(t, http.StatusOK, transportErr.StatusCode)
	}
}

func TestNewTransportNilConfig(t *testing.T) {
	transport, err := NewTransport(ModeAsync, nil)
	require.NoError(t, err)
	require.IsType(t, &AsyncTransport{}, transport)
}
