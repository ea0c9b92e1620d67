package lnurl

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidChecksum is returned when a bech32 LNURL fails its
	// checksum.
	ErrInvalidChecksum = errors.New("invalid bech32 checksum")

	// ErrInvalidEncoding is returned for any other malformed LNURL.
	ErrInvalidEncoding = errors.New("invalid LNURL encoding")

	// ErrInvalidAddress is returned for a malformed lightning address.
	ErrInvalidAddress = errors.New("invalid lightning address")
)

var (
	// ErrTransportTimeout is returned when a round trip does not complete
	// within the configured timeout.
	ErrTransportTimeout = errors.New("transport timeout")

	// ErrTransportMisconfigured is returned when a request asks for a
	// network path the transport can not or must not use.
	ErrTransportMisconfigured = errors.New("transport misconfigured")

	// ErrUnexpectedStatus is returned when the server replies with a
	// non-2xx status and no LNURL error body.
	ErrUnexpectedStatus = errors.New("unexpected HTTP status")

	// ErrResponseTooLarge is returned when a reply body exceeds the read
	// limit.
	ErrResponseTooLarge = errors.New("response body too large")
)

var (
	// ErrMalformedJSON is returned when a body is not a JSON object.
	ErrMalformedJSON = errors.New("malformed JSON body")

	// ErrMalformedField is returned when a required field is missing or
	// carries an invalid value.
	ErrMalformedField = errors.New("malformed field")

	// ErrUnrecognizedResponse is returned when a body does not match any
	// known LNURL response shape.
	ErrUnrecognizedResponse = errors.New("unrecognized LNURL response")
)

var (
	ErrAmountOutOfRange        = errors.New("amount out of range")
	ErrAmountMismatch          = errors.New("invoice amount mismatch")
	ErrMetadataHashMismatch    = errors.New("invoice description hash does not match metadata")
	ErrCommentTooLong          = errors.New("comment too long")
	ErrChallengeLengthMismatch = errors.New("k1 challenge must be 32 bytes")
	ErrDomainMismatch          = errors.New("callback domain does not match LNURL domain")
	ErrInvalidMasterKey        = errors.New("invalid master key")
	ErrInvalidInvoice          = errors.New("invalid invoice")
	ErrInvalidNodeURI          = errors.New("invalid node URI")
	ErrInsecureCallback        = errors.New("callback downgrades https to http")
)

// DecodeError is returned when an identifier can not be decoded into a
// request URL.
type DecodeError struct {
	Identifier string
	Err        error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %q: %v", e.Identifier, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// TransportError wraps network, proxy and HTTP level failures.
type TransportError struct {
	URL string

	// StatusCode is the HTTP status of the reply, zero if no reply was
	// received.
	StatusCode int

	Err error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("request %s: %v (%d)", e.URL, e.Err,
			e.StatusCode)
	}

	return fmt.Sprintf("request %s: %v", e.URL, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// ClassifyError is returned when a server body can not be mapped onto an
// LNURL response.
type ClassifyError struct {
	// Field is the offending JSON field, empty if the error concerns the
	// body as a whole.
	Field string
	Err   error
}

func (e *ClassifyError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%v: %s", e.Err, e.Field)
	}

	return e.Err.Error()
}

func (e *ClassifyError) Unwrap() error {
	return e.Err
}

// ValidationError is returned when a local protocol check fails. No request
// is made, or no result surfaced, after a validation error.
type ValidationError struct {
	Err    error
	Detail string
}

func (e *ValidationError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%v: %s", e.Err, e.Detail)
	}

	return e.Err.Error()
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// ProtocolError carries the reason of a {"status":"ERROR"} reply verbatim.
type ProtocolError struct {
	Reason string
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("LNURL service error: %s", e.Reason)
}

func malformed(field string) error {
	return &ClassifyError{Field: field, Err: ErrMalformedField}
}

func invalid(err error, format string, args ...interface{}) error {
	return &ValidationError{Err: err, Detail: fmt.Sprintf(format, args...)}
}
