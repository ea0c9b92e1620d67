package lnurl

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

var (
	addressUserRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+$`)

	// addressDomainRegex accepts a host name with an optional port.
	addressDomainRegex = regexp.MustCompile(
		`^[a-zA-Z0-9]([a-zA-Z0-9.\-]*[a-zA-Z0-9])?(:[0-9]{1,5})?$`,
	)
)

// LightningAddress is a `user@domain.tld` internet identifier which
// allows senders to request lightning invoices by contacting `domain.tld`,
// who issues invoices on behalf of the `user`.
type LightningAddress struct {
	Username string
	Domain   string
}

// String returns the user@domain.tld format of the address.
func (a LightningAddress) String() string {
	return a.Username + "@" + a.Domain
}

// URL returns the LUD-16 pay request URL of the address. Onion domains are
// served over plain http.
func (a LightningAddress) URL() string {
	scheme := "https"
	if isOnionHost(a.host()) {
		scheme = "http"
	}

	return fmt.Sprintf("%s://%s/.well-known/lnurlp/%s", scheme, a.Domain,
		a.Username)
}

func (a LightningAddress) url() (*url.URL, error) {
	u, err := url.Parse(a.URL())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidAddress, err)
	}

	return u, nil
}

func (a LightningAddress) host() string {
	if i := strings.LastIndex(a.Domain, ":"); i != -1 {
		return a.Domain[:i]
	}

	return a.Domain
}

// ParseLightningAddress parses a LightningAddress from a string, returning
// ErrInvalidAddress if the address is not a valid identifier.
func ParseLightningAddress(lnAddress string) (LightningAddress, error) {
	parts := strings.Split(lnAddress, "@")
	if len(parts) != 2 {
		return LightningAddress{}, fmt.Errorf("%w: expected the form "+
			"<username>@<domain>", ErrInvalidAddress)
	}

	username, domain := parts[0], parts[1]
	if !addressUserRegex.MatchString(username) {
		return LightningAddress{}, fmt.Errorf("%w: invalid username %q",
			ErrInvalidAddress, username)
	}

	if !addressDomainRegex.MatchString(domain) {
		return LightningAddress{}, fmt.Errorf("%w: invalid domain %q",
			ErrInvalidAddress, domain)
	}

	return LightningAddress{
		Username: username,
		Domain:   domain,
	}, nil
}
