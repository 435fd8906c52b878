package market

import (
	"sync"
	"time"

	"github.com/gammazero/deque"
)

// DefaultHighlightDelay is how long a freshly ingested trade stays flagged.
const DefaultHighlightDelay = 200 * time.Millisecond

// Service 单写者引擎循环：入站 delta 先进队列，由唯一的 apply goroutine
// 严格按接收顺序折叠进 Book / TradeFeed，再经 Publisher 发布。
//
// It implements the gateway handler interface, so the connection manager's
// read loop never touches engine state directly.
type Service struct {
	book   *Book
	trades *TradeFeed
	pub    *Publisher

	highlight time.Duration

	mu    sync.Mutex
	queue deque.Deque[queued]
	wake  chan struct{}
	done  chan struct{}
	once  sync.Once
}

type queued struct {
	order *OrderDelta
	trade *TradeDelta
}

func NewService(book *Book, trades *TradeFeed, pub *Publisher, highlight time.Duration) *Service {
	if highlight <= 0 {
		highlight = DefaultHighlightDelay
	}
	return &Service{
		book:      book,
		trades:    trades,
		pub:       pub,
		highlight: highlight,
		wake:      make(chan struct{}, 1),
		done:      make(chan struct{}),
	}
}

// Start launches the single writer goroutine.
func (s *Service) Start() {
	go s.run()
}

// Stop terminates the writer loop. Queued deltas are dropped; the next
// subscription's partial reseeds everything anyway.
func (s *Service) Stop() {
	s.once.Do(func() { close(s.done) })
}

// OnOrderBook queues an order delta for in-order application.
func (s *Service) OnOrderBook(d *OrderDelta) {
	s.push(queued{order: d})
}

// OnTrades queues a trade delta for in-order application.
func (s *Service) OnTrades(d *TradeDelta) {
	s.push(queued{trade: d})
}

func (s *Service) push(q queued) {
	s.mu.Lock()
	s.queue.PushBack(q)
	s.mu.Unlock()
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *Service) run() {
	for {
		select {
		case <-s.done:
			return
		case <-s.wake:
		}
		for {
			s.mu.Lock()
			if s.queue.Len() == 0 {
				s.mu.Unlock()
				break
			}
			q := s.queue.PopFront()
			s.mu.Unlock()
			s.apply(q)
		}
	}
}

func (s *Service) apply(q queued) {
	switch {
	case q.order != nil:
		snap := s.book.Apply(q.order)
		s.pub.PublishBook(snap)
	case q.trade != nil:
		snap := s.trades.Apply(q.trade)
		s.pub.PublishTrades(snap)
		// clear the highlight flags shortly after publication; runs off
		// the writer loop so it never blocks ingestion
		time.AfterFunc(s.highlight, s.expireHighlights)
	}
}

func (s *Service) expireHighlights() {
	select {
	case <-s.done:
		return
	default:
	}
	if snap, changed := s.trades.ClearNew(); changed {
		s.pub.PublishTrades(snap)
	}
}

// Book exposes the book engine for direct snapshot reads.
func (s *Service) Book() *Book { return s.book }

// Trades exposes the trade feed for direct snapshot reads.
func (s *Service) Trades() *TradeFeed { return s.trades }
