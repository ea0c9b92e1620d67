package lnurl

import (
	"encoding/hex"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/require"
)

func TestDerivationPath(t *testing.T) {
	hashingKey, err := hex.DecodeString(
		"7d417a6a5e9a6a4a879aeaba11a11838764c8fa2b959c242d43dea682b3e409b",
	)
	require.NoError(t, err)

	var hk [32]byte
	copy(hk[:], hashingKey)

	require.Equal(t, [4]uint32{
		1588488367, 2659270754, 38110259, 4136336762,
	}, DerivationPath(hk, "site.com"))
}

func TestNewMasterKey(t *testing.T) {
	_, err := NewMasterKey(make([]byte, 16))
	require.ErrorIs(t, err, ErrInvalidMasterKey)

	var validationErr *ValidationError
	require.ErrorAs(t, err, &validationErr)

	_, err = NewMasterKey(make([]byte, 32))
	require.NoError(t, err)
}

func TestNormalizeDomain(t *testing.T) {
	tests := map[string]string{
		"site.com":                  "site.com",
		"SITE.com":                  "site.com",
		"site.com:8080":             "site.com",
		"https://Site.com:443/path": "site.com",
		"http://x.onion/auth?k1=00": "x.onion",
	}

	for in, exp := range tests {
		require.Equal(t, exp, NormalizeDomain(in), in)
	}
}

func TestLinkingKeyDomainForms(t *testing.T) {
	key, err := NewMasterKey(make([]byte, 32))
	require.NoError(t, err)

	a, err := key.LinkingPubKey("site.com")
	require.NoError(t, err)

	b, err := key.LinkingPubKey("https://SITE.com/login")
	require.NoError(t, err)

	require.True(t, a.IsEqual(b))
}

func TestLinkingKeyProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 25
	properties := gopter.NewProperties(parameters)

	properties.Property("deterministic per domain", prop.ForAll(
		func(seed []byte, domain string) bool {
			key, err := NewMasterKey(seed)
			if err != nil {
				return false
			}

			a, err := key.LinkingPubKey(domain)
			if err != nil {
				return false
			}

			// A fresh MasterKey from the same seed must agree.
			key, err = NewMasterKey(seed)
			if err != nil {
				return false
			}

			b, err := key.LinkingPubKey(domain)
			if err != nil {
				return false
			}

			return a.IsEqual(b)
		},
		gen.SliceOfN(32, gen.UInt8()), gen.Identifier(),
	))

	properties.Property("distinct per domain", prop.ForAll(
		func(seed []byte, domain string) bool {
			key, err := NewMasterKey(seed)
			if err != nil {
				return false
			}

			a, err := key.LinkingPubKey(domain + ".com")
			if err != nil {
				return false
			}

			b, err := key.LinkingPubKey(domain + ".org")
			if err != nil {
				return false
			}

			return !a.IsEqual(b)
		},
		gen.SliceOfN(32, gen.UInt8()), gen.Identifier(),
	))

	properties.TestingRun(t)
}
