package orderbook

import (
	"context"
	"sync"

	"github.com/mselser95/kalshi-arb/pkg/types"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

const defaultUpdateBuffer = 1000

// Store maintains live order books for all subscribed markets. Snapshots
// replace a book wholesale; deltas mutate a single price level. A delta
// for a ticker with no installed snapshot is dropped: deltas can race the
// snapshot on subscribe, and the next snapshot is authoritative.
type Store struct {
	books      map[string]*Book
	mu         sync.RWMutex
	logger     *zap.Logger
	msgChan    <-chan *types.StreamMessage
	updateChan chan string
	ctx        context.Context
	wg         sync.WaitGroup
}

// Config holds book store configuration.
type Config struct {
	Logger *zap.Logger
	// MessageChannel feeds decoded stream messages; may be nil when the
	// store is driven directly (REST seeding, tests).
	MessageChannel <-chan *types.StreamMessage
	// UpdateBufferSize bounds the change-notification channel.
	UpdateBufferSize int
}

// New creates a new book store.
func New(cfg *Config) *Store {
	buffer := cfg.UpdateBufferSize
	if buffer <= 0 {
		buffer = defaultUpdateBuffer
	}
	return &Store{
		books:      make(map[string]*Book),
		logger:     cfg.Logger,
		msgChan:    cfg.MessageChannel,
		updateChan: make(chan string, buffer),
	}
}

// Start begins consuming the stream message channel, if configured.
func (s *Store) Start(ctx context.Context) error {
	s.ctx = ctx
	if s.msgChan == nil {
		return nil
	}

	s.logger.Info("book-store-starting")
	s.wg.Add(1)
	go s.processMessages()
	return nil
}

func (s *Store) processMessages() {
	defer s.wg.Done()

	for {
		select {
		case <-s.ctx.Done():
			s.logger.Info("book-store-stopping")
			return
		case msg, ok := <-s.msgChan:
			if !ok {
				s.logger.Info("stream-channel-closed")
				return
			}
			s.handleMessage(msg)
		}
	}
}

func (s *Store) handleMessage(msg *types.StreamMessage) {
	timer := prometheus.NewTimer(UpdateProcessingDuration)
	defer timer.ObserveDuration()

	UpdatesTotal.WithLabelValues(msg.Type).Inc()

	switch msg.Type {
	case types.MsgTypeOrderbookSnapshot:
		if msg.Snapshot == nil {
			return
		}
		s.InstallSnapshot(msg.Snapshot.MarketTicker, NewBook(msg.Snapshot.MarketTicker, types.OrderbookData{
			Yes: msg.Snapshot.Yes,
			No:  msg.Snapshot.No,
		}))
	case types.MsgTypeOrderbookDelta:
		if msg.Delta == nil {
			return
		}
		s.ApplyDelta(msg.Delta.MarketTicker, msg.Delta.Side, msg.Delta.Price, msg.Delta.Delta)
	case types.MsgTypeTrade:
		if msg.Trade != nil {
			s.logger.Debug("trade",
				zap.String("ticker", msg.Trade.MarketTicker),
				zap.Int("yes-price", msg.Trade.YesPrice),
				zap.Int("count", msg.Trade.Count))
		}
	case types.MsgTypeSubscribed, types.MsgTypeUnsubscribed:
		// Acknowledged by the websocket manager; nothing to store.
	case types.MsgTypeError:
		if msg.Err != nil {
			s.logger.Warn("stream-error",
				zap.Int("code", msg.Err.Code),
				zap.String("msg", msg.Err.Msg))
		}
	}
}

// InstallSnapshot atomically replaces the book for a ticker and fires a
// change notification.
func (s *Store) InstallSnapshot(ticker string, book *Book) {
	s.mu.Lock()
	s.books[ticker] = book
	SnapshotsTracked.Set(float64(len(s.books)))
	s.mu.Unlock()

	s.logger.Debug("book-snapshot-installed",
		zap.String("ticker", ticker),
		zap.Int("yes-levels", len(book.YesBids)),
		zap.Int("no-levels", len(book.NoBids)))

	s.notify(ticker)
}

// ApplyDelta sets the absolute quantity at one price level. Deltas for
// unknown tickers are dropped with a warning.
func (s *Store) ApplyDelta(ticker string, side types.Side, price, quantity int) {
	s.mu.Lock()
	book, ok := s.books[ticker]
	if !ok {
		s.mu.Unlock()
		s.logger.Warn("delta-for-unknown-book", zap.String("ticker", ticker))
		DeltasDroppedTotal.Inc()
		return
	}
	book.applyDelta(side, price, quantity)
	s.mu.Unlock()

	s.notify(ticker)
}

// Remove drops the book for a ticker, if present.
func (s *Store) Remove(ticker string) {
	s.mu.Lock()
	delete(s.books, ticker)
	SnapshotsTracked.Set(float64(len(s.books)))
	s.mu.Unlock()
}

// Get returns a copy of the book for a ticker.
func (s *Store) Get(ticker string) (*Book, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	book, ok := s.books[ticker]
	if !ok {
		return nil, false
	}
	return book.Clone(), true
}

// All returns copies of every book keyed by ticker.
func (s *Store) All() map[string]*Book {
	s.mu.RLock()
	defer s.mu.RUnlock()

	books := make(map[string]*Book, len(s.books))
	for ticker, book := range s.books {
		books[ticker] = book.Clone()
	}
	return books
}

// Tickers returns the tickers with an installed book.
func (s *Store) Tickers() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tickers := make([]string, 0, len(s.books))
	for ticker := range s.books {
		tickers = append(tickers, ticker)
	}
	return tickers
}

// Updates returns the change-notification channel. Each element is the
// ticker whose book changed.
func (s *Store) Updates() <-chan string {
	return s.updateChan
}

// notify fires a non-blocking change notification. Scans read the full
// store each tick, so a dropped notification loses no data.
func (s *Store) notify(ticker string) {
	select {
	case s.updateChan <- ticker:
	default:
		NotificationsDroppedTotal.Inc()
	}
}

// Close waits for the consumer goroutine and closes the update channel.
func (s *Store) Close() error {
	s.logger.Info("closing-book-store")
	s.wg.Wait()
	close(s.updateChan)
	s.logger.Info("book-store-closed")
	return nil
}
