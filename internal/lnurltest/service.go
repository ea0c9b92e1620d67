// Package lnurltest provides an in-process LNURL service for exercising
// LNURL clients against real HTTP round trips and real bolt11 invoices.
package lnurltest

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/btcsuite/btcd/btcec"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/lightningnetwork/lnd/lntypes"
	"github.com/lightningnetwork/lnd/lnwire"
	"github.com/lightningnetwork/lnd/zpay32"
)

// Service is a fake LN SERVICE. The exported fields may be changed between
// requests to steer its behavior.
type Service struct {
	*httptest.Server

	Params *chaincfg.Params

	MinSendable    uint64
	MaxSendable    uint64
	Metadata       string
	CommentAllowed uint64

	MinWithdrawable uint64
	MaxWithdrawable uint64

	// NodeURI is advertised in channel requests.
	NodeURI string

	// InvoiceAmount maps the requested amount onto the amount of the
	// issued invoice. Nil issues exactly what was requested.
	InvoiceAmount func(msat uint64) uint64

	// DescriptionHash overrides the description hash of issued invoices.
	DescriptionHash *[32]byte

	// AESMessage, when set, is returned as an aes success action
	// encrypted with the invoice preimage.
	AESMessage string

	// Fail makes every endpoint reply with this error reason.
	Fail string

	nodeKey *btcec.PrivateKey

	mu          sync.Mutex
	requests    []*url.URL
	k1s         map[string]bool
	preimages   map[string]lntypes.Preimage
	comments    []string
	linkingKeys map[string]string
	withdrawn   []string
	channels    []url.Values
}

// New starts a plain http Service.
func New(params *chaincfg.Params) *Service {
	s := newService(params)
	s.Server = httptest.NewServer(s.routes())

	return s
}

// NewTLS starts an https Service. Clients must use its Client() to trust
// the certificate.
func NewTLS(params *chaincfg.Params) *Service {
	s := newService(params)
	s.Server = httptest.NewTLSServer(s.routes())

	return s
}

func newService(params *chaincfg.Params) *Service {
	nodeKey, err := btcec.NewPrivateKey(btcec.S256())
	if err != nil {
		panic(err)
	}

	return &Service{
		Params:          params,
		MinSendable:     1000,
		MaxSendable:     1000000,
		Metadata:        `[["text/plain","hi"]]`,
		MinWithdrawable: 1000,
		MaxWithdrawable: 100000,
		NodeURI: hex.EncodeToString(
			nodeKey.PubKey().SerializeCompressed(),
		) + "@127.0.0.1:9735",
		nodeKey:     nodeKey,
		k1s:         make(map[string]bool),
		preimages:   make(map[string]lntypes.Preimage),
		linkingKeys: make(map[string]string),
	}
}

func (s *Service) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/pay", s.pay)
	mux.HandleFunc("/.well-known/lnurlp/", s.pay)
	mux.HandleFunc("/invoice", s.invoice)
	mux.HandleFunc("/withdraw", s.withdraw)
	mux.HandleFunc("/withdraw/callback", s.withdrawCallback)
	mux.HandleFunc("/auth", s.auth)
	mux.HandleFunc("/auth/callback", s.authCallback)
	mux.HandleFunc("/channel", s.channel)
	mux.HandleFunc("/channel/callback", s.channelCallback)
	mux.HandleFunc("/hosted", s.hosted)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		u := *r.URL
		s.requests = append(s.requests, &u)
		fail := s.Fail
		s.mu.Unlock()

		if fail != "" {
			writeError(w, fail)
			return
		}

		mux.ServeHTTP(w, r)
	})
}

// Requests returns the URLs requested so far.
func (s *Service) Requests() []*url.URL {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]*url.URL(nil), s.requests...)
}

// Preimage returns the preimage of an invoice issued by the service.
func (s *Service) Preimage(invoice string) (lntypes.Preimage, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.preimages[invoice]
	return p, ok
}

// Comments returns the pay comments received so far.
func (s *Service) Comments() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]string(nil), s.comments...)
}

// LinkingKey returns the hex linking key that signed k1, if any.
func (s *Service) LinkingKey(k1 string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key, ok := s.linkingKeys[k1]
	return key, ok
}

// Withdrawn returns the invoices accepted by the withdraw callback.
func (s *Service) Withdrawn() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]string(nil), s.withdrawn...)
}

// Channels returns the query parameters of channel callbacks.
func (s *Service) Channels() []url.Values {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]url.Values(nil), s.channels...)
}

// NewK1 issues a fresh single use k1.
func (s *Service) NewK1() string {
	var k1 [32]byte
	if _, err := rand.Read(k1[:]); err != nil {
		panic(err)
	}
	h := hex.EncodeToString(k1[:])

	s.mu.Lock()
	s.k1s[h] = false
	s.mu.Unlock()

	return h
}

// useK1 marks k1 as spent, failing for unknown or spent values.
func (s *Service) useK1(k1 string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	used, ok := s.k1s[k1]
	if !ok || used {
		return false
	}
	s.k1s[k1] = true

	return true
}

// AuthURL returns an lnurl-auth URL carrying a fresh challenge.
func (s *Service) AuthURL() string {
	return fmt.Sprintf("%s/auth/callback?tag=login&k1=%s&action=login",
		s.URL, s.NewK1())
}

// Invoice creates a signed invoice for msat with the given description
// hash. msat zero yields an invoice without amount.
func (s *Service) Invoice(msat uint64, descHash [32]byte) (string,
	lntypes.Preimage, error) {

	var preimage lntypes.Preimage
	if _, err := rand.Read(preimage[:]); err != nil {
		return "", preimage, err
	}

	opts := []func(*zpay32.Invoice){zpay32.DescriptionHash(descHash)}
	if msat != 0 {
		opts = append(opts, zpay32.Amount(lnwire.MilliSatoshi(msat)))
	}

	inv, err := zpay32.NewInvoice(
		s.Params, [32]byte(preimage.Hash()), time.Now(), opts...,
	)
	if err != nil {
		return "", preimage, err
	}

	pr, err := inv.Encode(zpay32.MessageSigner{
		SignCompact: func(msg []byte) ([]byte, error) {
			return btcec.SignCompact(
				btcec.S256(), s.nodeKey, chainhash.HashB(msg),
				true,
			)
		},
	})
	if err != nil {
		return "", preimage, err
	}

	s.mu.Lock()
	s.preimages[pr] = preimage
	s.mu.Unlock()

	return pr, preimage, nil
}

func (s *Service) pay(w http.ResponseWriter, r *http.Request) {
	id := s.NewK1()[:20]

	writeJSON(w, map[string]interface{}{
		"tag":            "payRequest",
		"callback":       fmt.Sprintf("%s/invoice?id=%s", s.URL, id),
		"minSendable":    s.MinSendable,
		"maxSendable":    s.MaxSendable,
		"metadata":       s.Metadata,
		"commentAllowed": s.CommentAllowed,
	})
}

func (s *Service) invoice(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if r.Form.Get("id") == "" {
		http.Error(w, "expected 'id' field", http.StatusBadRequest)
		return
	}

	msat, err := strconv.ParseUint(r.Form.Get("amount"), 10, 64)
	if err != nil {
		writeError(w, "expected 'amount' field")
		return
	}
	if msat < s.MinSendable || msat > s.MaxSendable {
		writeError(w, "amount out of range")
		return
	}

	if comment := r.Form.Get("comment"); comment != "" {
		s.mu.Lock()
		s.comments = append(s.comments, comment)
		s.mu.Unlock()
	}

	if s.InvoiceAmount != nil {
		msat = s.InvoiceAmount(msat)
	}

	descHash := sha256.Sum256([]byte(s.Metadata))
	if s.DescriptionHash != nil {
		descHash = *s.DescriptionHash
	}

	pr, preimage, err := s.Invoice(msat, descHash)
	if err != nil {
		http.Error(w, "invoice error", http.StatusInternalServerError)
		return
	}

	resp := map[string]interface{}{
		"pr":     pr,
		"routes": []string{},
	}
	if s.AESMessage != "" {
		action, err := aesSuccessAction(s.AESMessage, preimage)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		resp["successAction"] = action
	}

	writeJSON(w, resp)
}

func (s *Service) withdraw(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]interface{}{
		"tag":                "withdrawRequest",
		"callback":           s.URL + "/withdraw/callback",
		"k1":                 s.NewK1(),
		"minWithdrawable":    s.MinWithdrawable,
		"maxWithdrawable":    s.MaxWithdrawable,
		"defaultDescription": "withdrawal",
	})
}

func (s *Service) withdrawCallback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if !s.useK1(q.Get("k1")) {
		writeError(w, "unknown or used k1")
		return
	}

	inv, err := zpay32.Decode(q.Get("pr"), s.Params)
	if err != nil {
		writeError(w, "invalid invoice")
		return
	}
	if inv.MilliSat != nil && (uint64(*inv.MilliSat) < s.MinWithdrawable ||
		uint64(*inv.MilliSat) > s.MaxWithdrawable) {

		writeError(w, "amount out of range")
		return
	}

	s.mu.Lock()
	s.withdrawn = append(s.withdrawn, q.Get("pr"))
	s.mu.Unlock()

	writeOK(w)
}

func (s *Service) auth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]interface{}{
		"k1":       s.NewK1(),
		"callback": s.URL + "/auth/callback",
		"action":   "login",
	})
}

func (s *Service) authCallback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	k1, err := hex.DecodeString(q.Get("k1"))
	if err != nil {
		writeError(w, "invalid k1")
		return
	}

	keyBytes, err := hex.DecodeString(q.Get("key"))
	if err != nil {
		writeError(w, "invalid key")
		return
	}
	pub, err := btcec.ParsePubKey(keyBytes, btcec.S256())
	if err != nil {
		writeError(w, "invalid key")
		return
	}

	sigBytes, err := hex.DecodeString(q.Get("sig"))
	if err != nil {
		writeError(w, "invalid sig")
		return
	}
	sig, err := btcec.ParseDERSignature(sigBytes, btcec.S256())
	if err != nil {
		writeError(w, "invalid sig")
		return
	}

	if !sig.Verify(k1, pub) {
		writeError(w, "signature verification failed")
		return
	}

	if !s.useK1(q.Get("k1")) {
		writeError(w, "unknown or used k1")
		return
	}

	s.mu.Lock()
	s.linkingKeys[q.Get("k1")] = q.Get("key")
	s.mu.Unlock()

	writeOK(w)
}

func (s *Service) channel(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]interface{}{
		"tag":      "channelRequest",
		"uri":      s.NodeURI,
		"callback": s.URL + "/channel/callback",
		"k1":       s.NewK1(),
	})
}

func (s *Service) channelCallback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if !s.useK1(q.Get("k1")) {
		writeError(w, "unknown or used k1")
		return
	}

	s.mu.Lock()
	s.channels = append(s.channels, q)
	s.mu.Unlock()

	writeOK(w)
}

func (s *Service) hosted(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]interface{}{
		"tag":   "hostedChannelRequest",
		"uri":   s.NodeURI,
		"k1":    s.NewK1(),
		"alias": "lnurltest",
	})
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func writeOK(w http.ResponseWriter) {
	writeJSON(w, map[string]string{"status": "OK"})
}

func writeError(w http.ResponseWriter, reason string) {
	writeJSON(w, map[string]string{
		"status": "ERROR",
		"reason": reason,
	})
}
