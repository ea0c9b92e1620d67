package lnurl

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/btcsuite/btcutil/bech32"
)

const (
	humanReadablePart = "lnurl"

	// lightningPrefix is the URI scheme wallets prepend to QR encoded
	// LNURLs.
	lightningPrefix = "lightning:"

	onionSuffix = ".onion"
)

// lud17Schemes are the LUD-17 scheme prefixes that stand in for https.
var lud17Schemes = map[string]struct{}{
	"lnurlc":  {},
	"lnurlw":  {},
	"lnurlp":  {},
	"keyauth": {},
}

// ResolvedRequest is the first request URL of an LNURL exchange together
// with a hint for the transport.
type ResolvedRequest struct {
	URL *url.URL

	// IsOnion is set when the URL host is a Tor onion service. Such
	// requests must be routed through a SOCKS proxy.
	IsOnion bool
}

// Domain returns the lowercased host of the request URL without a port.
func (r *ResolvedRequest) Domain() string {
	return strings.ToLower(r.URL.Hostname())
}

// Decode turns a bech32 LNURL, a LUD-17 URL or a lightning address into the
// URL that starts the exchange.
func Decode(identifier string) (*ResolvedRequest, error) {
	s := strings.TrimSpace(identifier)
	if len(s) > len(lightningPrefix) &&
		strings.EqualFold(s[:len(lightningPrefix)], lightningPrefix) {

		s = s[len(lightningPrefix):]
	}

	var (
		u   *url.URL
		err error
	)
	switch {
	// A bech32 string can never contain an '@', so anything that does is
	// treated as a lightning address.
	case strings.Contains(s, "@"):
		var addr LightningAddress
		addr, err = ParseLightningAddress(s)
		if err == nil {
			u, err = addr.url()
		}

	case strings.HasPrefix(strings.ToLower(s), humanReadablePart+"1"):
		var raw string
		raw, err = DecodeURL(s)
		if err == nil {
			u, err = parseHTTPURL(raw)
		}

	case strings.Contains(s, "://"):
		u, err = parseLUD17(s)

	default:
		err = ErrInvalidEncoding
	}
	if err != nil {
		return nil, &DecodeError{Identifier: identifier, Err: err}
	}

	onion := isOnionHost(u.Hostname())
	if onion {
		u.Scheme = "http"
	}

	log.Debugf("Resolved LNURL to %s (onion=%v)", redact(u), onion)

	return &ResolvedRequest{
		URL:     u,
		IsOnion: onion,
	}, nil
}

// DecodeURL decodes a bech32 LNURL into the raw URL string it encodes.
// LNURLs regularly exceed the 90 character limit of BIP-173, so no length
// limit is enforced.
func DecodeURL(lnurl string) (string, error) {
	hrp, data, err := bech32.DecodeNoLimit(lnurl)
	if err != nil {
		var checksumErr bech32.ErrInvalidChecksum
		if errors.As(err, &checksumErr) {
			return "", fmt.Errorf("%w: %v", ErrInvalidChecksum, err)
		}

		return "", fmt.Errorf("%w: %v", ErrInvalidEncoding, err)
	}

	if hrp != humanReadablePart {
		return "", fmt.Errorf("%w: incorrect hrp for LNURL. Expected "+
			"'%s', got '%s'", ErrInvalidEncoding, humanReadablePart,
			hrp)
	}

	data, err = bech32.ConvertBits(data, 5, 8, false)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidEncoding, err)
	}

	if !utf8.Valid(data) {
		return "", fmt.Errorf("%w: URL is not valid UTF-8",
			ErrInvalidEncoding)
	}

	return string(data), nil
}

// EncodeURL encodes a URL as an upper case bech32 LNURL, the form that
// yields the most compact QR codes.
func EncodeURL(url string) (string, error) {
	converted, err := bech32.ConvertBits([]byte(url), 8, 5, true)
	if err != nil {
		return "", err
	}

	str, err := bech32.Encode(humanReadablePart, converted)
	if err != nil {
		return "", err
	}

	return strings.ToUpper(str), nil
}

func parseHTTPURL(raw string) (*url.URL, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidEncoding, err)
	}

	if u.Scheme != "https" && u.Scheme != "http" {
		return nil, fmt.Errorf("%w: unsupported scheme %q",
			ErrInvalidEncoding, u.Scheme)
	}

	if u.Hostname() == "" {
		return nil, fmt.Errorf("%w: missing host", ErrInvalidEncoding)
	}

	return u, nil
}

func parseLUD17(raw string) (*url.URL, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidEncoding, err)
	}

	if _, ok := lud17Schemes[strings.ToLower(u.Scheme)]; !ok {
		return nil, fmt.Errorf("%w: unsupported scheme %q",
			ErrInvalidEncoding, u.Scheme)
	}

	if u.Hostname() == "" {
		return nil, fmt.Errorf("%w: missing host", ErrInvalidEncoding)
	}

	u.Scheme = "https"

	return u, nil
}

func isOnionHost(host string) bool {
	return strings.HasSuffix(strings.ToLower(host), onionSuffix)
}

// redact strips the query of a URL so that k1 values and signatures stay
// out of the logs.
func redact(u *url.URL) string {
	return u.Scheme + "://" + u.Host + u.Path
}
