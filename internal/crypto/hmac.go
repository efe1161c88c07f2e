package crypto

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"strconv"
	"time"
)

// Credentials are the Polymarket API credentials for L2 (HMAC) requests.
// Signature and Timestamp hold a pre-computed L1 signature when one is
// supplied out of band instead of a private key.
type Credentials struct {
	Address    string
	APIKey     string
	Secret     string // base64-encoded
	Passphrase string
	Signature  string
	Timestamp  string
}

// HasL2 reports whether the HMAC credentials are complete.
func (c Credentials) HasL2() bool {
	return c.Address != "" && c.APIKey != "" && c.Secret != "" && c.Passphrase != ""
}

// L2Headers returns the POLY_* headers for an HMAC-authenticated request
// at the current time.
func (c Credentials) L2Headers(method, path, body string) map[string]string {
	return c.L2HeadersAt(method, path, body, time.Now().Unix())
}

// L2HeadersAt is L2Headers at a fixed Unix timestamp. The signature is
// base64(HMAC-SHA256(secret, timestamp+method+path+body)).
func (c Credentials) L2HeadersAt(method, path, body string, unixTS int64) map[string]string {
	ts := strconv.FormatInt(unixTS, 10)

	key, err := base64.URLEncoding.DecodeString(c.Secret)
	if err != nil {
		key, err = base64.StdEncoding.DecodeString(c.Secret)
		if err != nil {
			key = []byte(c.Secret)
		}
	}

	mac := hmac.New(sha256.New, key)
	mac.Write([]byte(ts + method + path + body))
	sig := base64.URLEncoding.EncodeToString(mac.Sum(nil))

	return map[string]string{
		"POLY_ADDRESS":    c.Address,
		"POLY_API_KEY":    c.APIKey,
		"POLY_TIMESTAMP":  ts,
		"POLY_PASSPHRASE": c.Passphrase,
		"POLY_SIGNATURE":  sig,
	}
}

// StaticL1Headers returns the pre-computed L1 headers, or nil when no
// signature was supplied.
func (c Credentials) StaticL1Headers() map[string]string {
	if c.Signature == "" || c.Address == "" {
		return nil
	}
	return map[string]string{
		"POLY_ADDRESS":   c.Address,
		"POLY_SIGNATURE": c.Signature,
		"POLY_TIMESTAMP": c.Timestamp,
		"POLY_NONCE":     "0",
	}
}

// String returns a redacted representation suitable for logging.
func (c Credentials) String() string {
	redact := func(s string) string {
		if len(s) <= 4 {
			return "****"
		}
		return s[:4] + "****"
	}
	return fmt.Sprintf("Credentials{address=%s, key=%s, secret=%s}", c.Address, redact(c.APIKey), redact(c.Secret))
}
