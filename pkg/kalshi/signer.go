package kalshi

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Header names required by the Kalshi trade API on every authenticated request.
const (
	HeaderAccessKey       = "KALSHI-ACCESS-KEY"
	HeaderAccessTimestamp = "KALSHI-ACCESS-TIMESTAMP"
	HeaderAccessSignature = "KALSHI-ACCESS-SIGNATURE"
)

// Signer produces the authentication headers for the Kalshi trade API.
// Each request is signed with RSA-PSS (SHA-256, maximum salt length) over
// the string "{timestamp_ms}{METHOD}{path}". The path excludes any query
// string, so two requests to the same endpoint with different query
// parameters sign the same payload.
type Signer struct {
	apiKeyID string
	key      *rsa.PrivateKey
}

// NewSigner loads an RSA private key from a PEM file and returns a signer
// bound to the given API key ID.
func NewSigner(apiKeyID, privateKeyPath string) (*Signer, error) {
	raw, err := os.ReadFile(privateKeyPath)
	if err != nil {
		return nil, fmt.Errorf("read private key: %w", err)
	}
	key, err := parseRSAPrivateKey(raw)
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}
	return &Signer{apiKeyID: apiKeyID, key: key}, nil
}

// NewSignerFromKey wraps an already-parsed RSA key.
func NewSignerFromKey(apiKeyID string, key *rsa.PrivateKey) *Signer {
	return &Signer{apiKeyID: apiKeyID, key: key}
}

// APIKeyID returns the API key ID this signer is bound to.
func (s *Signer) APIKeyID() string {
	return s.apiKeyID
}

// Sign returns the base64-encoded signature over the canonical payload for
// the given timestamp, HTTP method and request path.
func (s *Signer) Sign(timestampMS int64, method, rawPath string) (string, error) {
	payload := strconv.FormatInt(timestampMS, 10) + strings.ToUpper(method) + stripQuery(rawPath)
	digest := sha256.Sum256([]byte(payload))
	sig, err := rsa.SignPSS(rand.Reader, s.key, crypto.SHA256, digest[:], &rsa.PSSOptions{
		SaltLength: rsa.PSSSaltLengthAuto,
		Hash:       crypto.SHA256,
	})
	if err != nil {
		return "", fmt.Errorf("sign request: %w", err)
	}
	return base64.StdEncoding.EncodeToString(sig), nil
}

// Headers returns the three authentication headers for a request issued
// now. A fresh timestamp and signature are generated on every call, so
// retried requests must call Headers again rather than reuse old values.
func (s *Signer) Headers(method, rawPath string) (map[string]string, error) {
	ts := time.Now().UnixMilli()
	sig, err := s.Sign(ts, method, rawPath)
	if err != nil {
		return nil, err
	}
	return map[string]string{
		HeaderAccessKey:       s.apiKeyID,
		HeaderAccessTimestamp: strconv.FormatInt(ts, 10),
		HeaderAccessSignature: sig,
	}, nil
}

// parseRSAPrivateKey accepts PKCS#1 ("RSA PRIVATE KEY") and PKCS#8
// ("PRIVATE KEY") encodings. Kalshi issues PKCS#8 keys but older exports
// use PKCS#1.
func parseRSAPrivateKey(raw []byte) (*rsa.PrivateKey, error) {
	block, _ := pem.Decode(raw)
	if block == nil {
		return nil, fmt.Errorf("no PEM block found")
	}
	if key, err := x509.ParsePKCS1PrivateKey(block.Bytes); err == nil {
		return key, nil
	}
	parsed, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, err
	}
	key, ok := parsed.(*rsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("private key is not RSA")
	}
	return key, nil
}

func stripQuery(p string) string {
	if i := strings.IndexByte(p, '?'); i >= 0 {
		return p[:i]
	}
	return p
}
