package lnurl

import (
	"context"
	"encoding/hex"
	"net/url"
	"strings"
)

const challengeLen = 32

// Authenticate signs the k1 challenge with the linking key for the domain
// of req and submits it to the auth callback. req must be the request the
// challenge was obtained from: a callback on any other domain is refused so
// that a redirect can not harvest the linking key of another service.
func (c *Client) Authenticate(ctx context.Context, req *ResolvedRequest,
	auth *AuthResponse, key *MasterKey) error {

	domain := req.Domain()

	cb, err := url.Parse(auth.Callback)
	if err != nil {
		return invalid(ErrDomainMismatch, "invalid callback: %v", err)
	}
	if !strings.EqualFold(cb.Hostname(), domain) {
		return invalid(ErrDomainMismatch, "%s != %s", cb.Hostname(),
			domain)
	}

	k1, err := hex.DecodeString(auth.K1)
	if err != nil {
		return invalid(ErrChallengeLengthMismatch, "k1 is not hex: %v",
			err)
	}
	if len(k1) != challengeLen {
		return invalid(ErrChallengeLengthMismatch, "got %d bytes",
			len(k1))
	}

	pub, sig, err := key.sign(domain, k1)
	if err != nil {
		return err
	}

	u, err := callbackURL(auth.Callback, url.Values{
		"k1":  {auth.K1},
		"sig": {hex.EncodeToString(sig)},
		"key": {hex.EncodeToString(pub)},
	})
	if err != nil {
		return err
	}

	body, err := c.get(ctx, u)
	if err != nil {
		return err
	}

	if err := checkStatus(body); err != nil {
		return err
	}

	log.Infof("Authenticated to %s", domain)

	return nil
}
