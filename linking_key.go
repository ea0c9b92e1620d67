package lnurl

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/binary"
	"net/url"
	"strings"

	"github.com/btcsuite/btcd/btcec"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcutil/hdkeychain"
)

const (
	// linkingPurpose is the LUD-05 purpose index, m/138'.
	linkingPurpose = hdkeychain.HardenedKeyStart + 138

	// MasterKeyLen is the size of the seed a MasterKey is built from.
	MasterKeyLen = 32
)

// MasterKey is the wallet secret that lnurl-auth linking keys are derived
// from. The same MasterKey always yields the same linking key for a given
// domain.
type MasterKey struct {
	root *hdkeychain.ExtendedKey
}

// NewMasterKey builds a MasterKey from a 32 byte seed.
func NewMasterKey(seed []byte) (*MasterKey, error) {
	if len(seed) != MasterKeyLen {
		return nil, invalid(ErrInvalidMasterKey, "seed is %d bytes, "+
			"expected %d", len(seed), MasterKeyLen)
	}

	// The chain only sets the serialization version of the extended
	// key, it has no effect on derivation.
	root, err := hdkeychain.NewMaster(seed, &chaincfg.MainNetParams)
	if err != nil {
		return nil, invalid(ErrInvalidMasterKey, "%v", err)
	}

	return &MasterKey{root: root}, nil
}

// DerivationPath returns the four child indexes of the linking key for
// domain, given the hashing key at m/138'/0:
// hmacSha256(hashingKey, domain) split into big-endian uint32s.
func DerivationPath(hashingKey [32]byte, domain string) [4]uint32 {
	mac := hmac.New(sha256.New, hashingKey[:])
	mac.Write([]byte(domain))
	sum := mac.Sum(nil)

	var path [4]uint32
	for i := range path {
		path[i] = binary.BigEndian.Uint32(sum[i*4:])
	}

	return path
}

// LinkingPubKey returns the public linking key for domain. domain may be a
// bare host or a URL.
func (m *MasterKey) LinkingPubKey(domain string) (*btcec.PublicKey, error) {
	priv, err := m.linkingKey(NormalizeDomain(domain))
	if err != nil {
		return nil, err
	}
	defer zero(priv)

	return priv.PubKey(), nil
}

func (m *MasterKey) hashingKey() ([32]byte, error) {
	var hk [32]byte

	purpose, err := m.root.Derive(linkingPurpose)
	if err != nil {
		return hk, err
	}

	k, err := purpose.Derive(0)
	if err != nil {
		return hk, err
	}

	priv, err := k.ECPrivKey()
	if err != nil {
		return hk, err
	}
	defer zero(priv)

	copy(hk[:], priv.Serialize())

	return hk, nil
}

// linkingKey derives m/138'/<l1>/<l2>/<l3>/<l4> for domain. The caller owns
// the returned key and must zero it once done.
func (m *MasterKey) linkingKey(domain string) (*btcec.PrivateKey, error) {
	hk, err := m.hashingKey()
	if err != nil {
		return nil, invalid(ErrInvalidMasterKey, "%v", err)
	}

	k, err := m.root.Derive(linkingPurpose)
	if err != nil {
		return nil, invalid(ErrInvalidMasterKey, "%v", err)
	}

	for _, i := range DerivationPath(hk, domain) {
		k, err = k.Derive(i)
		if err != nil {
			return nil, invalid(ErrInvalidMasterKey, "%v", err)
		}
	}

	priv, err := k.ECPrivKey()
	if err != nil {
		return nil, invalid(ErrInvalidMasterKey, "%v", err)
	}

	return priv, nil
}

// sign signs msg with the linking key of domain and returns the compressed
// public key and the DER encoded low-S signature. Signing is RFC6979
// deterministic.
func (m *MasterKey) sign(domain string, msg []byte) ([]byte, []byte, error) {
	priv, err := m.linkingKey(domain)
	if err != nil {
		return nil, nil, err
	}
	defer zero(priv)

	sig, err := priv.Sign(msg)
	if err != nil {
		return nil, nil, err
	}

	return priv.PubKey().SerializeCompressed(), sig.Serialize(), nil
}

// NormalizeDomain reduces a host or URL to the lowercased host name that
// linking keys are bound to.
func NormalizeDomain(domain string) string {
	domain = strings.TrimSpace(domain)
	if strings.Contains(domain, "://") {
		if u, err := url.Parse(domain); err == nil {
			return strings.ToLower(u.Hostname())
		}
	}

	if u, err := url.Parse("//" + domain); err == nil {
		return strings.ToLower(u.Hostname())
	}

	return strings.ToLower(domain)
}

func zero(priv *btcec.PrivateKey) {
	priv.D.SetUint64(0)
}
