package market

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

const exchangeTimeLayout = "2006-01-02T15:04:05.000Z"

// TradeEvent is one executed trade as reported by the feed. LocalID and
// IsNew are assigned at ingest: LocalID is the stable local identity,
// IsNew is display metadata only (drives a transient highlight) and is
// never part of equality.
type TradeEvent struct {
	LocalID uuid.UUID `json:"-"`
	IsNew   bool      `json:"-"`

	Timestamp       string  `json:"timestamp"`
	Symbol          string  `json:"symbol"`
	Side            string  `json:"side"`
	Size            int64   `json:"size"`
	Price           float64 `json:"price"`
	TickDirection   string  `json:"tickDirection"`
	TrdMatchID      string  `json:"trdMatchID"`
	GrossValue      int64   `json:"grossValue"`
	HomeNotional    float64 `json:"homeNotional"`
	ForeignNotional float64 `json:"foreignNotional"`
	TrdType         string  `json:"trdType"`
}

func (t TradeEvent) IsBuy() bool {
	return t.Side == SideBuy
}

// TradeTime parses the exchange timestamp (ISO-8601 with milliseconds, UTC).
func (t TradeEvent) TradeTime() (time.Time, error) {
	return time.Parse(exchangeTimeLayout, t.Timestamp)
}

// TradeFilter narrows a trade subscription to one symbol.
type TradeFilter struct {
	Symbol string `json:"symbol"`
}

// TradeDelta is a decoded trade message. Keys/Types/Filter only appear on
// the initial partial and are carried for completeness.
type TradeDelta struct {
	Table  string            `json:"table"`
	Action Action            `json:"action"`
	Keys   []string          `json:"keys,omitempty"`
	Types  map[string]string `json:"types,omitempty"`
	Filter *TradeFilter      `json:"filter,omitempty"`
	Data   []TradeEvent      `json:"data"`
}

// DefaultMaxTrades 滚动成交缓冲的默认长度。
const DefaultMaxTrades = 30

// TradeFeed keeps a bounded, newest-first buffer of recent trades.
// 头部插入，尾部静默丢弃。
type TradeFeed struct {
	mu     sync.Mutex
	max    int
	trades []TradeEvent
}

func NewTradeFeed(max int) *TradeFeed {
	if max <= 0 {
		max = DefaultMaxTrades
	}
	return &TradeFeed{max: max}
}

// Apply prepends the delta's trades (in received order) and truncates to the
// buffer cap. Every newly ingested trade gets a fresh LocalID and starts
// highlighted. Returns the resulting snapshot copy.
func (f *TradeFeed) Apply(d *TradeDelta) []TradeEvent {
	f.mu.Lock()
	defer f.mu.Unlock()

	next := make([]TradeEvent, 0, len(d.Data)+len(f.trades))
	for _, tr := range d.Data {
		tr.LocalID = uuid.New()
		tr.IsNew = true
		next = append(next, tr)
	}
	next = append(next, f.trades...)
	if len(next) > f.max {
		next = next[:f.max]
	}
	f.trades = next
	return f.snapshotLocked()
}

// ClearNew drops the highlight flag on every buffered trade. The second
// return reports whether anything actually changed, so callers can skip a
// redundant publication. A cleared flag never comes back.
func (f *TradeFeed) ClearNew() ([]TradeEvent, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	changed := false
	for i := range f.trades {
		if f.trades[i].IsNew {
			f.trades[i].IsNew = false
			changed = true
		}
	}
	return f.snapshotLocked(), changed
}

// Snapshot returns a copy of the current buffer, newest first.
func (f *TradeFeed) Snapshot() []TradeEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.snapshotLocked()
}

func (f *TradeFeed) snapshotLocked() []TradeEvent {
	return append([]TradeEvent(nil), f.trades...)
}
