// Package wallet is the signing capability the mint flow consumes.
package wallet

import (
	"context"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrUserRejected marks a signature request the user declined.
	ErrUserRejected = errors.New("transaction cancelled by user")
	// ErrEmptySignResult is returned when the provider reply carries nothing usable.
	ErrEmptySignResult = errors.New("wallet returned no signed transaction")
)

// Signed is the normalised result of a signing request. Transaction holds
// the serialized signed transaction; Signature is set instead when the
// provider broadcast the transaction itself.
type Signed struct {
	Transaction []byte
	Signature   string
}

// Empty reports whether neither field is set.
func (s Signed) Empty() bool {
	return len(s.Transaction) == 0 && s.Signature == ""
}

// Wallet is a connected signing provider.
type Wallet interface {
	Address() string
	Connected() bool
	SignTransaction(ctx context.Context, unsigned []byte) (Signed, error)
}

// Broadcaster submits signed transactions through a client-owned RPC
// connection and returns the transaction signature.
type Broadcaster interface {
	Broadcast(ctx context.Context, signed Signed) (string, error)
}

// keys providers use for the signed payload, in preference order
var payloadKeys = []string{
	"signedTransaction",
	"signedPsbt",
	"signedPsbtBase64",
	"psbt",
	"transaction",
}

// NormalizeSignResult collapses the shapes providers return from a sign
// call: a bare encoded string, or an object keyed by one of several names.
func NormalizeSignResult(raw json.RawMessage) (Signed, error) {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return decodePayload(s)
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		return Signed{}, fmt.Errorf("unrecognised sign result: %w", err)
	}
	for _, key := range payloadKeys {
		v, ok := obj[key]
		if !ok {
			continue
		}
		if err := json.Unmarshal(v, &s); err != nil || s == "" {
			continue
		}
		return decodePayload(s)
	}
	if v, ok := obj["signature"]; ok {
		if err := json.Unmarshal(v, &s); err == nil && s != "" {
			return Signed{Signature: s}, nil
		}
	}
	return Signed{}, ErrEmptySignResult
}

func decodePayload(s string) (Signed, error) {
	if s == "" {
		return Signed{}, ErrEmptySignResult
	}
	// PSBT providers hand back hex
	if len(s)%2 == 0 && strings.Trim(s, "0123456789abcdefABCDEF") == "" {
		if b, err := hex.DecodeString(s); err == nil {
			return Signed{Transaction: b}, nil
		}
	}
	if b, err := base64.StdEncoding.DecodeString(s); err == nil {
		return Signed{Transaction: b}, nil
	}
	if b, err := base64.RawStdEncoding.DecodeString(s); err == nil {
		return Signed{Transaction: b}, nil
	}
	return Signed{}, fmt.Errorf("sign result is neither base64 nor hex")
}

var rejectionMarkers = []string{
	"user rejected",
	"rejected",
	"cancel",
	"denied",
	"declined",
	"4001",
}

// IsUserRejection reports whether err is the provider telling us the user
// declined to sign.
func IsUserRejection(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrUserRejected) {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, m := range rejectionMarkers {
		if strings.Contains(msg, m) {
			return true
		}
	}
	return false
}
