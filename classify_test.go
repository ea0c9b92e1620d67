package lnurl

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		expected Response
		expErr   error
		expField string
	}{
		{
			name: "pay request",
			body: `{"tag":"payRequest","callback":"https://svc.example/cb","minSendable":1000,"maxSendable":1000000,"metadata":"[[\"text/plain\",\"hi\"]]","commentAllowed":32,"payerData":{"name":{"mandatory":false}}}`,
			expected: &PayResponse{
				Callback:           "https://svc.example/cb",
				MinSendable:        1000,
				MaxSendable:        1000000,
				Metadata:           `[["text/plain","hi"]]`,
				CommentAllowed:     32,
				PayerDataRequested: true,
			},
		},
		{
			name: "pay request with string amounts",
			body: `{"tag":"payRequest","callback":"https://svc.example/cb","minSendable":"1","maxSendable":"2","metadata":"[]"}`,
			expected: &PayResponse{
				Callback:    "https://svc.example/cb",
				MinSendable: 1,
				MaxSendable: 2,
				Metadata:    "[]",
			},
		},
		{
			name:     "pay request negative amount",
			body:     `{"tag":"payRequest","callback":"https://svc.example/cb","minSendable":-1,"maxSendable":2,"metadata":"[]"}`,
			expErr:   ErrMalformedField,
			expField: "minSendable",
		},
		{
			name:     "pay request min above max",
			body:     `{"tag":"payRequest","callback":"https://svc.example/cb","minSendable":3,"maxSendable":2,"metadata":"[]"}`,
			expErr:   ErrMalformedField,
			expField: "minSendable",
		},
		{
			name:     "pay request zero min",
			body:     `{"tag":"payRequest","callback":"https://svc.example/cb","minSendable":0,"maxSendable":2,"metadata":"[]"}`,
			expErr:   ErrMalformedField,
			expField: "minSendable",
		},
		{
			name:     "pay request raw metadata array",
			body:     `{"tag":"payRequest","callback":"https://svc.example/cb","minSendable":1,"maxSendable":2,"metadata":[["text/plain","hi"]]}`,
			expErr:   ErrMalformedField,
			expField: "metadata",
		},
		{
			name:     "pay request bad callback",
			body:     `{"tag":"payRequest","callback":"ftp://svc.example/cb","minSendable":1,"maxSendable":2,"metadata":"[]"}`,
			expErr:   ErrMalformedField,
			expField: "callback",
		},
		{
			name:     "pay request missing max",
			body:     `{"tag":"payRequest","callback":"https://svc.example/cb","minSendable":1,"metadata":"[]"}`,
			expErr:   ErrMalformedField,
			expField: "maxSendable",
		},
		{
			name: "withdraw request defaults min",
			body: `{"tag":"withdrawRequest","callback":"https://svc.example/w","k1":"abc","maxWithdrawable":5000,"defaultDescription":"sats"}`,
			expected: &WithdrawResponse{
				Callback:           "https://svc.example/w",
				K1:                 "abc",
				MinWithdrawable:    1,
				MaxWithdrawable:    5000,
				DefaultDescription: "sats",
			},
		},
		{
			name:     "withdraw request without k1",
			body:     `{"tag":"withdrawRequest","callback":"https://svc.example/w","maxWithdrawable":5000}`,
			expErr:   ErrMalformedField,
			expField: "k1",
		},
		{
			name: "tagless auth challenge",
			body: `{"k1":"00","callback":"https://svc.example/auth","action":"login"}`,
			expected: &AuthResponse{
				Callback: "https://svc.example/auth",
				K1:       "00",
				Action:   "login",
			},
		},
		{
			name: "channel request",
			body: `{"tag":"channelRequest","uri":"02aa@1.2.3.4:9735","callback":"https://svc.example/c","k1":"ff"}`,
			expected: &ChannelResponse{
				URI:      "02aa@1.2.3.4:9735",
				Callback: "https://svc.example/c",
				K1:       "ff",
			},
		},
		{
			name: "hosted channel request",
			body: `{"tag":"hostedChannelRequest","uri":"02aa@1.2.3.4:9735","k1":"ff","alias":"hc"}`,
			expected: &HostedChannelResponse{
				URI:   "02aa@1.2.3.4:9735",
				K1:    "ff",
				Alias: "hc",
			},
		},
		{
			name:     "error takes priority over tag",
			body:     `{"status":"ERROR","reason":"invoice expired","tag":"payRequest","callback":"https://svc.example/cb"}`,
			expected: &ErrorResponse{Reason: "invoice expired"},
		},
		{
			name:     "lower case error status",
			body:     `{"status":"error","reason":"nope"}`,
			expected: &ErrorResponse{Reason: "nope"},
		},
		{
			name:   "unknown tag",
			body:   `{"tag":"nostrRequest","k1":"00","callback":"https://svc.example/auth"}`,
			expErr: ErrUnrecognizedResponse,
		},
		{
			name:   "ok status only",
			body:   `{"status":"OK"}`,
			expErr: ErrUnrecognizedResponse,
		},
		{
			name:   "array body",
			body:   `[1,2]`,
			expErr: ErrMalformedJSON,
		},
		{
			name:   "truncated body",
			body:   `{"tag":"payRequest"`,
			expErr: ErrMalformedJSON,
		},
	}

	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			resp, err := Classify([]byte(test.body))
			if test.expErr != nil {
				require.ErrorIs(t, err, test.expErr)
				require.Nil(t, resp)

				var classifyErr *ClassifyError
				require.ErrorAs(t, err, &classifyErr)
				require.Equal(t, test.expField, classifyErr.Field)
				return
			}

			require.NoError(t, err)
			require.Equal(t, test.expected, resp)
		})
	}
}

func TestPayResponseMetadata(t *testing.T) {
	pay := &PayResponse{
		Metadata: `[["text/plain","hi"],["text/identifier","ben@opreturnbot.com"]]`,
	}

	desc, err := pay.Description()
	require.NoError(t, err)
	require.Equal(t, "hi", desc)

	entries, err := pay.MetadataEntries()
	require.NoError(t, err)
	require.Len(t, entries, 2)

	pay.Metadata = `[["image/png;base64","iVBO"]]`
	_, err = pay.Description()
	require.Error(t, err)
}

func TestAuthFromURL(t *testing.T) {
	req, err := Decode("keyauth://svc.example/login?tag=login&k1=aa&action=register")
	require.NoError(t, err)

	auth, ok := authFromURL(req.URL)
	require.True(t, ok)
	require.Equal(t, &AuthResponse{
		Callback: "https://svc.example/login?tag=login&k1=aa&action=register",
		K1:       "aa",
		Action:   "register",
	}, auth)

	req, err = Decode("lnurlp://svc.example/pay")
	require.NoError(t, err)

	_, ok = authFromURL(req.URL)
	require.False(t, ok)
}

func TestCheckStatus(t *testing.T) {
	require.NoError(t, checkStatus([]byte(`{"status":"OK"}`)))

	err := checkStatus([]byte(`{"status":"ERROR","reason":"k1 used"}`))
	var protoErr *ProtocolError
	require.ErrorAs(t, err, &protoErr)
	require.Equal(t, "k1 used", protoErr.Reason)

	require.ErrorIs(t, checkStatus([]byte("ok")), ErrMalformedJSON)
}
