package market

import (
	"sync"
	"time"
)

// DefaultBookPublishInterval bounds how often book snapshots reach readers.
const DefaultBookPublishInterval = 500 * time.Millisecond

const subBuffer = 64

// Publisher 向订阅者广播不可变快照。
//
// Book publications are coalesced: at most one delivery per interval, and
// when several snapshots arrive inside one window only the latest survives.
// Trade publications are never coalesced — every trade must be observable.
// Sends never block the engine loop; a reader that stops draining its
// channel loses deliveries, not the engine.
type Publisher struct {
	mu        sync.Mutex
	interval  time.Duration
	bookSubs  map[int]chan BookSnapshot
	tradeSubs map[int]chan []TradeEvent
	nextID    int

	pending      *BookSnapshot
	timer        *time.Timer
	lastBook     time.Time
	coalesced    func() // hook for the coalesced-publication metric
	tradeDropped func() // hook for the dropped-trade-delivery metric
}

func NewPublisher(interval time.Duration) *Publisher {
	if interval <= 0 {
		interval = DefaultBookPublishInterval
	}
	return &Publisher{
		interval:  interval,
		bookSubs:  make(map[int]chan BookSnapshot),
		tradeSubs: make(map[int]chan []TradeEvent),
	}
}

// OnCoalesced registers a hook invoked whenever an intermediate book
// snapshot is discarded in favour of a newer one.
func (p *Publisher) OnCoalesced(fn func()) {
	p.mu.Lock()
	p.coalesced = fn
	p.mu.Unlock()
}

// SubscribeBook returns a snapshot channel and its cancel func. Cancelling
// tears down only this subscription; the publisher and transport live on.
func (p *Publisher) SubscribeBook() (<-chan BookSnapshot, func()) {
	p.mu.Lock()
	defer p.mu.Unlock()
	id := p.nextID
	p.nextID++
	ch := make(chan BookSnapshot, subBuffer)
	p.bookSubs[id] = ch
	return ch, func() {
		p.mu.Lock()
		delete(p.bookSubs, id)
		p.mu.Unlock()
	}
}

func (p *Publisher) SubscribeTrades() (<-chan []TradeEvent, func()) {
	p.mu.Lock()
	defer p.mu.Unlock()
	id := p.nextID
	p.nextID++
	ch := make(chan []TradeEvent, subBuffer)
	p.tradeSubs[id] = ch
	return ch, func() {
		p.mu.Lock()
		delete(p.tradeSubs, id)
		p.mu.Unlock()
	}
}

// PublishBook hands a book snapshot to subscribers, rate-limited to one
// delivery per interval with latest-wins semantics.
func (p *Publisher) PublishBook(s BookSnapshot) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.pending != nil {
		// a delivery is already scheduled; replace its payload
		p.pending = &s
		if p.coalesced != nil {
			p.coalesced()
		}
		return
	}
	if wait := p.interval - time.Since(p.lastBook); wait > 0 {
		p.pending = &s
		p.timer = time.AfterFunc(wait, p.flushPending)
		return
	}
	p.deliverBookLocked(s)
}

func (p *Publisher) flushPending() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.pending == nil {
		return
	}
	s := *p.pending
	p.pending = nil
	p.deliverBookLocked(s)
}

func (p *Publisher) deliverBookLocked(s BookSnapshot) {
	p.lastBook = time.Now()
	for _, ch := range p.bookSubs {
		select {
		case ch <- s:
		default:
		}
	}
}

// OnTradeDropped registers a hook invoked whenever a trade delivery is
// dropped because a subscriber's buffer is full.
func (p *Publisher) OnTradeDropped(fn func()) {
	p.mu.Lock()
	p.tradeDropped = fn
	p.mu.Unlock()
}

// PublishTrades delivers immediately to every trade subscriber. Deliveries
// are never coalesced, but a subscriber that has stopped draining its buffer
// (subBuffer deep) loses this delivery rather than stalling the engine; the
// drop is reported through the OnTradeDropped hook.
func (p *Publisher) PublishTrades(t []TradeEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, ch := range p.tradeSubs {
		select {
		case ch <- t:
		default:
			if p.tradeDropped != nil {
				p.tradeDropped()
			}
		}
	}
}

// Close stops any pending coalescing timer.
func (p *Publisher) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.timer != nil {
		p.timer.Stop()
	}
	p.pending = nil
}
