// ws.go implements a reconnecting WebSocket feed for both the market
// (public book) channel and the account (authenticated order/balance)
// channel.
//
// Grounded on the teacher's internal/exchange/ws.go: exponential
// backoff reconnect (1s to 30s cap), a read deadline forcing reconnect
// on silent failures, a ping keepalive loop, and event-type dispatch
// into typed per-kind channels.
package rest

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	pingInterval     = 30 * time.Second
	readTimeout      = 90 * time.Second
	maxReconnectWait = 30 * time.Second
	writeTimeout     = 10 * time.Second
	eventBufferSize  = 256
)

// channelKind distinguishes the public market feed from the
// authenticated account feed.
type channelKind int

const (
	marketChannel channelKind = iota
	accountChannel
)

// WSFeed manages one WebSocket connection with auto-reconnect.
type WSFeed struct {
	url     string
	kind    channelKind
	auth    *Auth

	connMu sync.Mutex
	conn   *websocket.Conn

	subscribedMu sync.RWMutex
	subscribed   map[string]bool

	bookCh        chan WSBookEvent
	priceChangeCh chan WSPriceChangeEvent
	orderCh       chan WSOrderEvent
	balanceCh     chan WSBalanceEvent

	logger *slog.Logger
}

// NewMarketFeed builds the public book-stream feed.
func NewMarketFeed(wsURL string, logger *slog.Logger) *WSFeed {
	return newFeed(wsURL, marketChannel, nil, logger.With("component", "ws_market"))
}

// NewAccountFeed builds the authenticated order/balance-stream feed.
func NewAccountFeed(wsURL string, auth *Auth, logger *slog.Logger) *WSFeed {
	return newFeed(wsURL, accountChannel, auth, logger.With("component", "ws_account"))
}

func newFeed(wsURL string, kind channelKind, auth *Auth, logger *slog.Logger) *WSFeed {
	return &WSFeed{
		url:           wsURL,
		kind:          kind,
		auth:          auth,
		subscribed:    make(map[string]bool),
		bookCh:        make(chan WSBookEvent, eventBufferSize),
		priceChangeCh: make(chan WSPriceChangeEvent, eventBufferSize),
		orderCh:       make(chan WSOrderEvent, eventBufferSize),
		balanceCh:     make(chan WSBalanceEvent, eventBufferSize),
		logger:        logger,
	}
}

func (f *WSFeed) BookEvents() <-chan WSBookEvent                 { return f.bookCh }
func (f *WSFeed) PriceChangeEvents() <-chan WSPriceChangeEvent   { return f.priceChangeCh }
func (f *WSFeed) OrderEvents() <-chan WSOrderEvent               { return f.orderCh }
func (f *WSFeed) BalanceEvents() <-chan WSBalanceEvent           { return f.balanceCh }

// Subscribe adds symbols to the set sent in the subscription message on
// every (re)connect. It records them for either channel kind; the
// account channel's message additionally carries the API key.
func (f *WSFeed) Subscribe(symbols []string) {
	f.subscribedMu.Lock()
	for _, s := range symbols {
		f.subscribed[s] = true
	}
	f.subscribedMu.Unlock()
}

// Run connects and maintains the connection, reconnecting with
// exponential backoff, until ctx is cancelled.
func (f *WSFeed) Run(ctx context.Context) error {
	backoff := time.Second

	for {
		err := f.connectAndRead(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}

		f.logger.Warn("websocket disconnected, reconnecting", "error", err, "backoff", backoff)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}

		backoff *= 2
		if backoff > maxReconnectWait {
			backoff = maxReconnectWait
		}
	}
}

// Close closes the active connection, if any.
func (f *WSFeed) Close() error {
	f.connMu.Lock()
	defer f.connMu.Unlock()
	if f.conn != nil {
		return f.conn.Close()
	}
	return nil
}

func (f *WSFeed) connectAndRead(ctx context.Context) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, f.url, nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}

	f.connMu.Lock()
	f.conn = conn
	f.connMu.Unlock()

	defer func() {
		f.connMu.Lock()
		conn.Close()
		f.conn = nil
		f.connMu.Unlock()
	}()

	if err := f.sendSubscription(); err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}

	f.logger.Info("websocket connected")

	pingCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go f.pingLoop(pingCtx)

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		conn.SetReadDeadline(time.Now().Add(readTimeout))
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("read: %w", err)
		}
		f.dispatch(msg)
	}
}

func (f *WSFeed) sendSubscription() error {
	f.subscribedMu.RLock()
	symbols := make([]string, 0, len(f.subscribed))
	for s := range f.subscribed {
		symbols = append(symbols, s)
	}
	f.subscribedMu.RUnlock()

	msg := map[string]interface{}{"operation": "subscribe", "symbols": symbols}
	if f.kind == accountChannel && f.auth != nil {
		msg["api_key"] = f.auth.creds.APIKey
	}
	return f.writeJSON(msg)
}

func (f *WSFeed) dispatch(data []byte) {
	var envelope struct {
		EventType string `json:"event_type"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		f.logger.Debug("ignoring non-json ws message")
		return
	}

	switch envelope.EventType {
	case "book":
		var evt WSBookEvent
		if err := json.Unmarshal(data, &evt); err != nil {
			f.logger.Error("unmarshal book event", "error", err)
			return
		}
		select {
		case f.bookCh <- evt:
		default:
			f.logger.Warn("book channel full, dropping event", "symbol", evt.Symbol)
		}

	case "price_change":
		var evt WSPriceChangeEvent
		if err := json.Unmarshal(data, &evt); err != nil {
			f.logger.Error("unmarshal price_change event", "error", err)
			return
		}
		select {
		case f.priceChangeCh <- evt:
		default:
			f.logger.Warn("price_change channel full, dropping event")
		}

	case "order":
		var evt WSOrderEvent
		if err := json.Unmarshal(data, &evt); err != nil {
			f.logger.Error("unmarshal order event", "error", err)
			return
		}
		select {
		case f.orderCh <- evt:
		default:
			f.logger.Warn("order channel full, dropping event")
		}

	case "balance":
		var evt WSBalanceEvent
		if err := json.Unmarshal(data, &evt); err != nil {
			f.logger.Error("unmarshal balance event", "error", err)
			return
		}
		select {
		case f.balanceCh <- evt:
		default:
			f.logger.Warn("balance channel full, dropping event")
		}

	default:
		f.logger.Debug("unknown ws event type", "type", envelope.EventType)
	}
}

func (f *WSFeed) pingLoop(ctx context.Context) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := f.writeMessage(websocket.PingMessage, nil); err != nil {
				f.logger.Warn("ping failed", "error", err)
				return
			}
		}
	}
}

func (f *WSFeed) writeJSON(v interface{}) error {
	f.connMu.Lock()
	defer f.connMu.Unlock()
	if f.conn == nil {
		return fmt.Errorf("websocket not connected")
	}
	f.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return f.conn.WriteJSON(v)
}

func (f *WSFeed) writeMessage(msgType int, data []byte) error {
	f.connMu.Lock()
	defer f.connMu.Unlock()
	if f.conn == nil {
		return fmt.Errorf("websocket not connected")
	}
	f.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return f.conn.WriteMessage(msgType, data)
}
