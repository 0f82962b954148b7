package feeds

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// ═══════════════════════════════════════════════════════════════════════════════
// PRICE STREAM - Binance trade WebSocket feeding the sample buffers
// ═══════════════════════════════════════════════════════════════════════════════

const defaultStreamURL = "wss://stream.binance.com:9443/ws"

// tradeEvent is the subset of the Binance trade stream payload we consume.
type tradeEvent struct {
	EventType string `json:"e"`
	Symbol    string `json:"s"`
	Price     string `json:"p"`
	Quantity  string `json:"q"`
	TradeTime int64  `json:"T"`
}

// PriceStream subscribes to a symbol's trade stream and fans each traded
// price out to registered sinks (ring buffers, EMA trackers, callbacks).
type PriceStream struct {
	url    string
	symbol string

	mu       sync.RWMutex
	conn     *websocket.Conn
	last     decimal.Decimal
	buffers  []*RingBuffer
	trackers []*EMATracker
	onPrice  func(decimal.Decimal)

	running bool
	stopCh  chan struct{}
}

// NewPriceStream creates a stream for symbol (e.g. "BTCUSDT").
func NewPriceStream(symbol string) *PriceStream {
	return &PriceStream{
		url:    defaultStreamURL,
		symbol: strings.ToUpper(symbol),
		stopCh: make(chan struct{}),
	}
}

// AttachBuffer registers a ring buffer to receive every traded price.
func (s *PriceStream) AttachBuffer(rb *RingBuffer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.buffers = append(s.buffers, rb)
}

// AttachTracker registers an EMA tracker to receive every traded price.
func (s *PriceStream) AttachTracker(t *EMATracker) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.trackers = append(s.trackers, t)
}

// SetPriceCallback sets a callback invoked on each traded price.
func (s *PriceStream) SetPriceCallback(cb func(decimal.Decimal)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onPrice = cb
}

// Start connects and begins streaming. Reconnects with a fixed backoff
// until Stop is called.
func (s *PriceStream) Start() error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = true
	s.mu.Unlock()

	if err := s.connect(); err != nil {
		return err
	}
	go s.readLoop()

	log.Info().Str("symbol", s.symbol).Msg("📈 Price stream started")
	return nil
}

// Stop closes the stream.
func (s *PriceStream) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return
	}
	s.running = false
	close(s.stopCh)
	if s.conn != nil {
		s.conn.Close()
	}
}

// LastPrice returns the most recently streamed price.
func (s *PriceStream) LastPrice() (decimal.Decimal, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.last.IsZero() {
		return decimal.Zero, false
	}
	return s.last, true
}

func (s *PriceStream) connect() error {
	endpoint := fmt.Sprintf("%s/%s@trade", s.url, strings.ToLower(s.symbol))
	conn, _, err := websocket.DefaultDialer.Dial(endpoint, nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", endpoint, err)
	}
	s.mu.Lock()
	s.conn = conn
	s.mu.Unlock()
	return nil
}

func (s *PriceStream) readLoop() {
	for {
		select {
		case <-s.stopCh:
			return
		default:
		}

		s.mu.RLock()
		conn := s.conn
		s.mu.RUnlock()

		_, msg, err := conn.ReadMessage()
		if err != nil {
			s.mu.RLock()
			running := s.running
			s.mu.RUnlock()
			if !running {
				return
			}
			log.Warn().Err(err).Msg("⚠️ Price stream read failed, reconnecting")
			time.Sleep(2 * time.Second)
			if err := s.connect(); err != nil {
				log.Error().Err(err).Msg("Price stream reconnect failed")
			}
			continue
		}

		var ev tradeEvent
		if err := json.Unmarshal(msg, &ev); err != nil || ev.EventType != "trade" {
			continue
		}
		price, err := decimal.NewFromString(ev.Price)
		if err != nil {
			continue
		}
		s.publish(price)
	}
}

func (s *PriceStream) publish(price decimal.Decimal) {
	s.mu.Lock()
	s.last = price
	buffers := s.buffers
	trackers := s.trackers
	cb := s.onPrice
	s.mu.Unlock()

	for _, rb := range buffers {
		rb.Add(price)
	}
	for _, t := range trackers {
		t.Update(price)
	}
	if cb != nil {
		cb(price)
	}
}
