package websocket

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	json "github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/mselser95/kalshi-arb/pkg/types"
)

const (
	channelOrderbookDelta = "orderbook_delta"

	cmdSubscribe   = "subscribe"
	cmdUnsubscribe = "unsubscribe"

	defaultDialTimeout   = 10 * time.Second
	defaultPingInterval  = 30 * time.Second
	defaultPongTimeout   = 10 * time.Second
	defaultMessageBuffer = 1000
)

// Signer produces the authentication headers for the upgrade request.
// The venue REST signer satisfies it.
type Signer interface {
	Headers(method, rawPath string) (map[string]string, error)
}

// Config holds WebSocket manager configuration.
type Config struct {
	URL                   string
	Signer                Signer
	DialTimeout           time.Duration
	PingInterval          time.Duration
	PongTimeout           time.Duration
	ReconnectInitialDelay time.Duration
	ReconnectMaxDelay     time.Duration
	ReconnectBackoffMult  float64
	MessageBufferSize     int
	Logger                *zap.Logger
}

// Manager maintains one authenticated stream connection to the venue.
// Decoded messages flow out on MessageChan; the book store consumes
// them. Disconnects are repaired by the reconnect loop, which
// resubscribes the full ticker set the manager held.
type Manager struct {
	url             string
	signPath        string
	signer          Signer
	conn            *websocket.Conn
	logger          *zap.Logger
	reconnectMgr    *ReconnectManager
	config          Config
	messageChan     chan *types.StreamMessage
	ctx             context.Context
	cancel          context.CancelFunc
	wg              sync.WaitGroup
	mu              sync.RWMutex
	closeOnce       sync.Once
	subscribed      map[string]bool
	cmdID           atomic.Int64
	connected       atomic.Bool
	lastPongTime    atomic.Int64
	connectionStart atomic.Int64
}

// New creates a new WebSocket manager.
func New(cfg Config) *Manager {
	if cfg.DialTimeout <= 0 {
		cfg.DialTimeout = defaultDialTimeout
	}
	if cfg.PingInterval <= 0 {
		cfg.PingInterval = defaultPingInterval
	}
	if cfg.PongTimeout <= 0 {
		cfg.PongTimeout = defaultPongTimeout
	}
	if cfg.MessageBufferSize <= 0 {
		cfg.MessageBufferSize = defaultMessageBuffer
	}

	// The upgrade request is signed over the URL's path, like any REST
	// call.
	signPath := "/ws"
	if u, err := url.Parse(cfg.URL); err == nil && u.Path != "" {
		signPath = u.Path
	}

	ctx, cancel := context.WithCancel(context.Background())

	reconnectCfg := ReconnectConfig{
		InitialDelay: cfg.ReconnectInitialDelay,
		MaxDelay:     cfg.ReconnectMaxDelay,
		Multiplier:   cfg.ReconnectBackoffMult,
	}

	return &Manager{
		url:          cfg.URL,
		signPath:     signPath,
		signer:       cfg.Signer,
		logger:       cfg.Logger,
		reconnectMgr: NewReconnectManager(reconnectCfg, cfg.Logger),
		config:       cfg,
		messageChan:  make(chan *types.StreamMessage, cfg.MessageBufferSize),
		ctx:          ctx,
		cancel:       cancel,
		subscribed:   make(map[string]bool),
	}
}

// Start connects and launches the read, ping and reconnect loops.
func (m *Manager) Start() error {
	m.logger.Info("websocket-manager-starting", zap.String("url", m.url))

	err := m.connect(m.ctx)
	if err != nil {
		return fmt.Errorf("initial connection: %w", err)
	}

	m.wg.Add(3)
	go m.readLoop()
	go m.pingLoop()
	go m.reconnectLoop()

	return nil
}

// connect establishes an authenticated WebSocket connection.
func (m *Manager) connect(ctx context.Context) error {
	header := http.Header{}
	if m.signer != nil {
		auth, err := m.signer.Headers(http.MethodGet, m.signPath)
		if err != nil {
			return fmt.Errorf("sign upgrade request: %w", err)
		}
		for k, v := range auth {
			header.Set(k, v)
		}
	}

	dialer := websocket.Dialer{
		HandshakeTimeout: m.config.DialTimeout,
	}

	m.logger.Info("connecting-to-websocket", zap.String("url", m.url))

	conn, _, err := dialer.DialContext(ctx, m.url, header)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}

	// A missed pong surfaces as a read deadline error, which tears the
	// connection down through the read loop.
	pongWait := m.config.PingInterval + m.config.PongTimeout
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		m.lastPongTime.Store(time.Now().Unix())
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	m.mu.Lock()
	m.conn = conn
	m.mu.Unlock()

	now := time.Now()
	m.connected.Store(true)
	m.lastPongTime.Store(now.Unix())
	m.connectionStart.Store(now.Unix())
	ActiveConnections.Set(1)

	m.logger.Info("websocket-connected")

	return nil
}

// Subscribe opens the orderbook delta channel for tickers not already
// subscribed. State rolls back if the write fails so a reconnect does
// not resubscribe tickers the venue never accepted.
func (m *Manager) Subscribe(ctx context.Context, tickers []string) error {
	if len(tickers) == 0 {
		return nil
	}

	conn := m.connection()
	if conn == nil {
		return fmt.Errorf("websocket not connected")
	}

	m.mu.Lock()
	newTickers := make([]string, 0, len(tickers))
	for _, ticker := range tickers {
		if !m.subscribed[ticker] {
			newTickers = append(newTickers, ticker)
			m.subscribed[ticker] = true
		}
	}
	total := len(m.subscribed)
	m.mu.Unlock()

	if len(newTickers) == 0 {
		m.logger.Debug("all-tickers-already-subscribed")
		return nil
	}

	err := conn.WriteJSON(m.newCommand(cmdSubscribe, newTickers))
	if err != nil {
		m.mu.Lock()
		for _, ticker := range newTickers {
			delete(m.subscribed, ticker)
		}
		total = len(m.subscribed)
		m.mu.Unlock()

		SubscriptionCount.Set(float64(total))
		return fmt.Errorf("write subscribe command: %w", err)
	}

	SubscriptionCount.Set(float64(total))

	m.logger.Info("subscribed-to-orderbooks",
		zap.Int("new-count", len(newTickers)),
		zap.Int("total-count", total))

	return nil
}

// Unsubscribe drops tickers from the stream. A disconnected manager
// only shrinks the tracked set: there is no socket to notify, and the
// next reconnect subscribes what remains.
func (m *Manager) Unsubscribe(ctx context.Context, tickers []string) error {
	if len(tickers) == 0 {
		return nil
	}

	m.mu.Lock()
	removed := make([]string, 0, len(tickers))
	for _, ticker := range tickers {
		if m.subscribed[ticker] {
			removed = append(removed, ticker)
			delete(m.subscribed, ticker)
		}
	}
	total := len(m.subscribed)
	m.mu.Unlock()

	if len(removed) == 0 {
		m.logger.Debug("no-tickers-to-unsubscribe")
		return nil
	}

	SubscriptionCount.Set(float64(total))

	conn := m.connection()
	if conn == nil {
		m.logger.Debug("unsubscribe-while-disconnected", zap.Int("count", len(removed)))
		return nil
	}

	err := conn.WriteJSON(m.newCommand(cmdUnsubscribe, removed))
	if err != nil {
		m.mu.Lock()
		for _, ticker := range removed {
			m.subscribed[ticker] = true
		}
		total = len(m.subscribed)
		m.mu.Unlock()

		SubscriptionCount.Set(float64(total))
		return fmt.Errorf("write unsubscribe command: %w", err)
	}

	UnsubscriptionsTotal.Inc()

	m.logger.Info("unsubscribed-from-orderbooks",
		zap.Int("count", len(removed)),
		zap.Int("remaining-count", total))

	return nil
}

// newCommand builds a stream command with the next sequence id.
func (m *Manager) newCommand(cmd string, tickers []string) *types.StreamCommand {
	return &types.StreamCommand{
		ID:  int(m.cmdID.Add(1)),
		Cmd: cmd,
		Params: types.StreamCommandParams{
			Channels:      []string{channelOrderbookDelta},
			MarketTickers: tickers,
		},
	}
}

// connection returns the live conn, or nil when disconnected.
func (m *Manager) connection() *websocket.Conn {
	if !m.connected.Load() {
		return nil
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.conn
}

// readLoop reads and decodes stream frames until the connection drops.
func (m *Manager) readLoop() {
	defer m.wg.Done()

	for {
		select {
		case <-m.ctx.Done():
			return
		default:
		}

		conn := m.connection()
		if conn == nil {
			time.Sleep(100 * time.Millisecond)
			continue
		}

		_, raw, err := conn.ReadMessage()
		if err != nil {
			m.logger.Warn("read-error", zap.Error(err))

			startTime := m.connectionStart.Load()
			if startTime > 0 {
				ConnectionDuration.Observe(time.Since(time.Unix(startTime, 0)).Seconds())
			}

			m.connected.Store(false)
			ActiveConnections.Set(0)
			return
		}

		start := time.Now()

		msg, err := decodeStreamMessage(raw)
		if err != nil {
			preview := raw
			if len(preview) > 100 {
				preview = preview[:100]
			}
			m.logger.Debug("websocket-unparseable-message",
				zap.Error(err),
				zap.Int("bytes", len(raw)),
				zap.ByteString("preview", preview))
			MessagesDroppedTotal.WithLabelValues("decode_error").Inc()
			continue
		}
		if msg == nil {
			m.logger.Debug("websocket-unhandled-message-type", zap.Int("bytes", len(raw)))
			continue
		}

		MessagesReceivedTotal.WithLabelValues(msg.Type).Inc()

		select {
		case m.messageChan <- msg:
		default:
			m.logger.Warn("message-channel-full", zap.String("type", msg.Type))
			MessagesDroppedTotal.WithLabelValues("channel_full").Inc()
		}

		MessageLatencySeconds.Observe(time.Since(start).Seconds())
	}
}

// decodeStreamMessage parses one stream frame into a typed message.
// Unknown types return (nil, nil) so callers can skip them.
func decodeStreamMessage(raw []byte) (*types.StreamMessage, error) {
	var env types.StreamEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("decode stream envelope: %w", err)
	}

	msg := &types.StreamMessage{Type: env.Type, Seq: env.Seq}

	switch env.Type {
	case types.MsgTypeOrderbookSnapshot:
		msg.Snapshot = &types.OrderbookSnapshotMsg{}
		if err := json.Unmarshal(env.Msg, msg.Snapshot); err != nil {
			return nil, fmt.Errorf("decode snapshot: %w", err)
		}
	case types.MsgTypeOrderbookDelta:
		msg.Delta = &types.OrderbookDeltaMsg{}
		if err := json.Unmarshal(env.Msg, msg.Delta); err != nil {
			return nil, fmt.Errorf("decode delta: %w", err)
		}
	case types.MsgTypeTrade:
		msg.Trade = &types.TradeMsg{}
		if err := json.Unmarshal(env.Msg, msg.Trade); err != nil {
			return nil, fmt.Errorf("decode trade: %w", err)
		}
	case types.MsgTypeSubscribed, types.MsgTypeUnsubscribed:
		if len(env.Msg) > 0 {
			msg.Subscribed = &types.SubscribedMsg{}
			if err := json.Unmarshal(env.Msg, msg.Subscribed); err != nil {
				return nil, fmt.Errorf("decode subscription ack: %w", err)
			}
		}
	case types.MsgTypeError:
		if len(env.Msg) > 0 {
			msg.Err = &types.StreamErrorMsg{}
			if err := json.Unmarshal(env.Msg, msg.Err); err != nil {
				return nil, fmt.Errorf("decode stream error: %w", err)
			}
		}
	default:
		return nil, nil
	}

	return msg, nil
}

// pingLoop sends periodic PING frames.
func (m *Manager) pingLoop() {
	defer m.wg.Done()

	ticker := time.NewTicker(m.config.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-m.ctx.Done():
			return
		case <-ticker.C:
			conn := m.connection()
			if conn == nil {
				continue
			}

			err := conn.WriteControl(websocket.PingMessage, []byte{}, time.Now().Add(time.Second))
			if err != nil {
				m.logger.Warn("ping-error", zap.Error(err))
			}
		}
	}
}

// reconnectLoop repairs dropped connections and resubscribes.
func (m *Manager) reconnectLoop() {
	defer m.wg.Done()

	for {
		select {
		case <-m.ctx.Done():
			return
		default:
		}

		if m.connected.Load() {
			time.Sleep(time.Second)
			continue
		}

		m.logger.Warn("connection-lost-initiating-reconnect")

		err := m.reconnectMgr.Reconnect(m.ctx, m.connect)
		if err != nil {
			if err == context.Canceled {
				return
			}
			m.logger.Error("reconnection-failed", zap.Error(err))
			continue
		}

		err = m.resubscribeAll(m.ctx)
		if err != nil {
			m.logger.Error("resubscribe-failed", zap.Error(err))
			m.connected.Store(false)
			continue
		}

		m.logger.Info("reconnection-complete-restarting-read-loop")

		m.wg.Add(1)
		go m.readLoop()
	}
}

// resubscribeAll re-opens the delta channel for every tracked ticker.
func (m *Manager) resubscribeAll(ctx context.Context) error {
	m.mu.RLock()
	tickers := make([]string, 0, len(m.subscribed))
	for ticker := range m.subscribed {
		tickers = append(tickers, ticker)
	}
	m.mu.RUnlock()

	if len(tickers) == 0 {
		return nil
	}

	sort.Strings(tickers)

	conn := m.connection()
	if conn == nil {
		return fmt.Errorf("websocket not connected")
	}

	err := conn.WriteJSON(m.newCommand(cmdSubscribe, tickers))
	if err != nil {
		return fmt.Errorf("write resubscribe command: %w", err)
	}

	m.logger.Info("resubscribed-to-all-orderbooks", zap.Int("count", len(tickers)))

	return nil
}

// MessageChan returns the channel of decoded stream messages.
func (m *Manager) MessageChan() <-chan *types.StreamMessage {
	return m.messageChan
}

// Connected reports whether the stream connection is up.
func (m *Manager) Connected() bool {
	return m.connected.Load()
}

// SubscribedTickers returns a sorted copy of the tracked ticker set.
func (m *Manager) SubscribedTickers() []string {
	m.mu.RLock()
	tickers := make([]string, 0, len(m.subscribed))
	for ticker := range m.subscribed {
		tickers = append(tickers, ticker)
	}
	m.mu.RUnlock()

	sort.Strings(tickers)
	return tickers
}

// Close gracefully shuts the manager down. Safe to call more than
// once; calls after the first are no-ops.
func (m *Manager) Close() error {
	m.closeOnce.Do(func() {
		m.logger.Info("closing-websocket-manager")

		m.cancel()

		m.mu.RLock()
		if m.conn != nil {
			m.conn.Close()
		}
		m.mu.RUnlock()

		m.wg.Wait()

		close(m.messageChan)

		m.connected.Store(false)
		ActiveConnections.Set(0)

		m.logger.Info("websocket-manager-closed")
	})

	return nil
}
