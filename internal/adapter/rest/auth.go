// auth.go signs outbound requests with an HMAC-SHA256 API-key/secret
// credential pair, the common L2-style authentication scheme across
// CEX-style REST APIs.
//
// Grounded on the teacher's internal/exchange/auth.go: only its L2/HMAC
// half is kept. The teacher's L1 path signs EIP-712 typed data with an
// Ethereum wallet key to bootstrap L2 credentials from on-chain identity
// — meaningless for a centralized exchange's plain API-key auth, and no
// component in this engine touches on-chain signing, so go-ethereum and
// its signing machinery are dropped entirely; see DESIGN.md.
package rest

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"strconv"
	"time"
)

// Credentials is the API key/secret/passphrase triplet used to sign
// trading requests.
type Credentials struct {
	APIKey     string
	Secret     string
	Passphrase string
}

// Auth signs requests with HMAC-SHA256 over "timestamp + method + path
// [+ body]", the pattern shared by most CEX REST APIs.
type Auth struct {
	creds Credentials
}

// NewAuth constructs an Auth from a credential triplet.
func NewAuth(creds Credentials) *Auth {
	return &Auth{creds: creds}
}

// Headers returns the signed headers for a request at the given method,
// path, and (possibly empty) JSON body.
func (a *Auth) Headers(method, path, body string) (map[string]string, error) {
	timestamp := strconv.FormatInt(time.Now().Unix(), 10)

	sig, err := a.sign(timestamp, method, path, body)
	if err != nil {
		return nil, err
	}

	return map[string]string{
		"API-KEY":        a.creds.APIKey,
		"API-SIGNATURE":  sig,
		"API-TIMESTAMP":  timestamp,
		"API-PASSPHRASE": a.creds.Passphrase,
	}, nil
}

func (a *Auth) sign(timestamp, method, path, body string) (string, error) {
	secretBytes, err := decodeSecret(a.creds.Secret)
	if err != nil {
		return "", err
	}

	message := timestamp + method + path + body

	mac := hmac.New(sha256.New, secretBytes)
	mac.Write([]byte(message))
	return base64.URLEncoding.EncodeToString(mac.Sum(nil)), nil
}

// decodeSecret tries every base64 variant commonly used by exchanges for
// the API secret, matching the teacher's forgiving multi-decoder
// approach.
func decodeSecret(secret string) ([]byte, error) {
	decoders := []*base64.Encoding{
		base64.URLEncoding,
		base64.RawURLEncoding,
		base64.StdEncoding,
		base64.RawStdEncoding,
	}

	var lastErr error
	for _, dec := range decoders {
		b, err := dec.DecodeString(secret)
		if err == nil {
			return b, nil
		}
		lastErr = err
	}
	return nil, lastErr
}
