package polymarket

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/alanyoungcy/sportsedge/internal/crypto"
)

// ClobClient turns a wallet key into L2 API credentials through the CLOB
// auth endpoint. Orders themselves go through the external executor.
type ClobClient struct {
	rest    rest
	address string
	l1      func(now time.Time) (map[string]string, error)
	now     func() time.Time
}

// NewClobClient creates a CLOB auth client rooted at baseURL, e.g.
// "https://clob.polymarket.com", that signs ClobAuth with signer.
func NewClobClient(baseURL string, signer *crypto.Signer) *ClobClient {
	return &ClobClient{
		rest:    newREST(baseURL, 0),
		address: signer.Address(),
		l1: func(now time.Time) (map[string]string, error) {
			return signer.L1Headers(now.Unix(), 0)
		},
		now: time.Now,
	}
}

// NewStaticClobClient creates a CLOB auth client that presents the
// pre-computed L1 signature carried by creds instead of signing.
func NewStaticClobClient(baseURL string, creds crypto.Credentials) *ClobClient {
	return &ClobClient{
		rest:    newREST(baseURL, 0),
		address: creds.Address,
		l1: func(time.Time) (map[string]string, error) {
			h := creds.StaticL1Headers()
			if h == nil {
				return nil, errors.New("no pre-computed signature")
			}
			return h, nil
		},
		now: time.Now,
	}
}

type derivedKey struct {
	APIKey     string `json:"apiKey"`
	Secret     string `json:"secret"`
	Passphrase string `json:"passphrase"`
}

// DeriveAPIKey presents a ClobAuth signature (nonce 0) at
// GET /auth/derive-api-key and returns the wallet's existing L2 credentials.
func (c *ClobClient) DeriveAPIKey(ctx context.Context) (crypto.Credentials, error) {
	l1, err := c.l1(c.now())
	if err != nil {
		return crypto.Credentials{}, fmt.Errorf("polymarket/clob: sign auth: %w", err)
	}

	var key derivedKey
	err = c.rest.do(ctx, call{
		method: http.MethodGet,
		path:   "/auth/derive-api-key",
		header: headerOf(l1),
	}, &key)
	if err != nil {
		return crypto.Credentials{}, fmt.Errorf("polymarket/clob: derive api key: %w", err)
	}

	return crypto.Credentials{
		Address:    c.address,
		APIKey:     key.APIKey,
		Secret:     key.Secret,
		Passphrase: key.Passphrase,
		Signature:  l1["POLY_SIGNATURE"],
		Timestamp:  l1["POLY_TIMESTAMP"],
	}, nil
}
