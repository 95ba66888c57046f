package testutil

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/mselser95/kalshi-arb/pkg/kalshi"
	"github.com/mselser95/kalshi-arb/pkg/types"
)

// CreateTestMarket creates an open test market under the given event.
func CreateTestMarket(ticker, eventTicker string) *types.Market {
	return &types.Market{
		Ticker:      ticker,
		EventTicker: eventTicker,
		Title:       "Test market " + ticker,
		Status:      "active",
	}
}

// CreateExpiringMarket creates an open test market with an expiration
// time, for temporal-strategy scenarios.
func CreateExpiringMarket(ticker, eventTicker string, expiration time.Time) *types.Market {
	m := CreateTestMarket(ticker, eventTicker)
	m.ExpirationTime = &expiration
	return m
}

// Ladder builds one side of an order book from [price, quantity] pairs.
func Ladder(levels ...[2]int) []types.Level {
	out := make([]types.Level, 0, len(levels))
	for _, l := range levels {
		out = append(out, types.Level{Price: l[0], Quantity: l[1]})
	}
	return out
}

// BookData assembles ladder data for both sides.
func BookData(yes, no []types.Level) types.OrderbookData {
	return types.OrderbookData{Yes: yes, No: no}
}

// SnapshotMessage builds an orderbook_snapshot stream message.
func SnapshotMessage(ticker string, data types.OrderbookData) *types.StreamMessage {
	return &types.StreamMessage{
		Type: types.MsgTypeOrderbookSnapshot,
		Snapshot: &types.OrderbookSnapshotMsg{
			MarketTicker: ticker,
			Yes:          data.Yes,
			No:           data.No,
		},
	}
}

// DeltaMessage builds an orderbook_delta stream message. Quantity is
// absolute: zero removes the level.
func DeltaMessage(ticker string, side types.Side, price, quantity int) *types.StreamMessage {
	return &types.StreamMessage{
		Type: types.MsgTypeOrderbookDelta,
		Delta: &types.OrderbookDeltaMsg{
			MarketTicker: ticker,
			Side:         side,
			Price:        price,
			Delta:        quantity,
		},
	}
}

// NewTestSigner builds a signer over a freshly generated RSA key.
func NewTestSigner(t *testing.T) *kalshi.Signer {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate RSA key: %v", err)
	}
	return kalshi.NewSignerFromKey("test-api-key", key)
}

// WriteTestKey writes a freshly generated PKCS#1 PEM key under the
// test's temp dir and returns its path.
func WriteTestKey(t *testing.T) string {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate RSA key: %v", err)
	}

	block := &pem.Block{
		Type:  "RSA PRIVATE KEY",
		Bytes: x509.MarshalPKCS1PrivateKey(key),
	}

	path := filepath.Join(t.TempDir(), "test-key.pem")
	if err := os.WriteFile(path, pem.EncodeToMemory(block), 0o600); err != nil {
		t.Fatalf("write key: %v", err)
	}
	return path
}
