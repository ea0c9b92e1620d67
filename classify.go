package lnurl

import (
	"bytes"
	"encoding/json"
	"net/url"
	"strconv"
	"strings"

	"github.com/lightningnetwork/lnd/lnwire"
)

const statusError = "ERROR"

// fields is a JSON object whose values are decoded lazily so that a bad
// value can be reported by field name.
type fields map[string]json.RawMessage

func parseObject(body []byte) (fields, error) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 || body[0] != '{' {
		return nil, &ClassifyError{Err: ErrMalformedJSON}
	}

	var f fields
	if err := json.Unmarshal(body, &f); err != nil {
		return nil, &ClassifyError{Err: ErrMalformedJSON}
	}

	return f, nil
}

// present reports whether name is set to something other than null.
func (f fields) present(name string) bool {
	raw, ok := f[name]
	return ok && !bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

func (f fields) optString(name string) (string, error) {
	if !f.present(name) {
		return "", nil
	}

	var s string
	if err := json.Unmarshal(f[name], &s); err != nil {
		return "", malformed(name)
	}

	return s, nil
}

func (f fields) requireString(name string) (string, error) {
	s, err := f.optString(name)
	if err != nil {
		return "", err
	}
	if s == "" {
		return "", malformed(name)
	}

	return s, nil
}

// requireURL checks that the field holds an absolute http(s) URL.
func (f fields) requireURL(name string) (string, error) {
	s, err := f.requireString(name)
	if err != nil {
		return "", err
	}

	u, err := url.Parse(s)
	if err != nil || (u.Scheme != "https" && u.Scheme != "http") ||
		u.Hostname() == "" {

		return "", malformed(name)
	}

	return s, nil
}

// optUint decodes a non-negative integer. Some services send amounts as
// strings, so quoted numbers are accepted too.
func (f fields) optUint(name string, def uint64) (uint64, error) {
	if !f.present(name) {
		return def, nil
	}

	s := string(bytes.TrimSpace(f[name]))
	if strings.HasPrefix(s, `"`) {
		if err := json.Unmarshal(f[name], &s); err != nil {
			return 0, malformed(name)
		}
	}

	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, malformed(name)
	}

	return v, nil
}

func (f fields) requireUint(name string) (uint64, error) {
	if !f.present(name) {
		return 0, malformed(name)
	}

	return f.optUint(name, 0)
}

// errorReason returns the reason of an error reply. The status comparison is
// case-insensitive since services are lax about it.
func (f fields) errorReason() (string, bool) {
	status, err := f.optString("status")
	if err != nil || !strings.EqualFold(status, statusError) {
		return "", false
	}

	// A reason of the wrong type still marks an error reply.
	reason, _ := f.optString("reason")

	return reason, true
}

// Classify parses the body of an LNURL reply into one of the Response kinds.
// An error status takes priority over any tag.
func Classify(body []byte) (Response, error) {
	f, err := parseObject(body)
	if err != nil {
		return nil, err
	}

	if reason, ok := f.errorReason(); ok {
		return &ErrorResponse{Reason: reason}, nil
	}

	tag, err := f.optString("tag")
	if err != nil {
		return nil, err
	}

	switch Tag(tag) {
	case TagPayRequest:
		return classifyPay(f)

	case TagWithdrawRequest:
		return classifyWithdraw(f)

	case TagChannelRequest:
		return classifyChannel(f)

	case TagHostedChannelRequest:
		return classifyHostedChannel(f)

	case TagLogin:
		return classifyAuth(f)

	case "":
		if f.present("k1") && f.present("callback") {
			return classifyAuth(f)
		}
	}

	return nil, &ClassifyError{Err: ErrUnrecognizedResponse}
}

func classifyPay(f fields) (Response, error) {
	var (
		p   PayResponse
		err error
	)
	if p.Callback, err = f.requireURL("callback"); err != nil {
		return nil, err
	}

	minSendable, err := f.requireUint("minSendable")
	if err != nil {
		return nil, err
	}
	maxSendable, err := f.requireUint("maxSendable")
	if err != nil {
		return nil, err
	}
	if minSendable < 1 || minSendable > maxSendable {
		return nil, malformed("minSendable")
	}
	p.MinSendable = lnwire.MilliSatoshi(minSendable)
	p.MaxSendable = lnwire.MilliSatoshi(maxSendable)

	if p.Metadata, err = f.requireString("metadata"); err != nil {
		return nil, err
	}
	if p.CommentAllowed, err = f.optUint("commentAllowed", 0); err != nil {
		return nil, err
	}
	p.PayerDataRequested = f.present("payerData")

	return &p, nil
}

func classifyWithdraw(f fields) (Response, error) {
	var (
		w   WithdrawResponse
		err error
	)
	if w.Callback, err = f.requireURL("callback"); err != nil {
		return nil, err
	}
	if w.K1, err = f.requireString("k1"); err != nil {
		return nil, err
	}

	minWithdrawable, err := f.optUint("minWithdrawable", 1)
	if err != nil {
		return nil, err
	}
	maxWithdrawable, err := f.requireUint("maxWithdrawable")
	if err != nil {
		return nil, err
	}
	if minWithdrawable > maxWithdrawable {
		return nil, malformed("minWithdrawable")
	}
	w.MinWithdrawable = lnwire.MilliSatoshi(minWithdrawable)
	w.MaxWithdrawable = lnwire.MilliSatoshi(maxWithdrawable)

	if w.DefaultDescription, err = f.optString("defaultDescription"); err != nil {
		return nil, err
	}

	return &w, nil
}

func classifyAuth(f fields) (Response, error) {
	var (
		a   AuthResponse
		err error
	)
	if a.Callback, err = f.requireURL("callback"); err != nil {
		return nil, err
	}
	if a.K1, err = f.requireString("k1"); err != nil {
		return nil, err
	}
	if a.Action, err = f.optString("action"); err != nil {
		return nil, err
	}

	return &a, nil
}

func classifyChannel(f fields) (Response, error) {
	var (
		c   ChannelResponse
		err error
	)
	if c.URI, err = f.requireString("uri"); err != nil {
		return nil, err
	}
	if c.Callback, err = f.requireURL("callback"); err != nil {
		return nil, err
	}
	if c.K1, err = f.requireString("k1"); err != nil {
		return nil, err
	}

	return &c, nil
}

func classifyHostedChannel(f fields) (Response, error) {
	var (
		h   HostedChannelResponse
		err error
	)
	if h.URI, err = f.requireString("uri"); err != nil {
		return nil, err
	}
	if h.K1, err = f.requireString("k1"); err != nil {
		return nil, err
	}
	if h.Alias, err = f.optString("alias"); err != nil {
		return nil, err
	}

	return &h, nil
}

// authFromURL builds the challenge of an lnurl-auth URL, which carries
// tag=login and k1 in its own query and is never fetched.
func authFromURL(u *url.URL) (*AuthResponse, bool) {
	q := u.Query()
	if Tag(q.Get("tag")) != TagLogin || q.Get("k1") == "" {
		return nil, false
	}

	return &AuthResponse{
		Callback: u.String(),
		K1:       q.Get("k1"),
		Action:   q.Get("action"),
	}, true
}

// checkStatus interprets the {"status":"OK"} style acknowledgement of a
// second round trip.
func checkStatus(body []byte) error {
	f, err := parseObject(body)
	if err != nil {
		return err
	}

	if reason, ok := f.errorReason(); ok {
		return &ProtocolError{Reason: reason}
	}

	return nil
}
