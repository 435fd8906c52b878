package gateway

import (
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"market-mirror-go/market"
	"market-mirror-go/metrics"
)

// FeedEndpoint is the default production realtime endpoint.
const FeedEndpoint = "wss://www.bitmex.com/realtime"

// DefaultMaxConsecutiveErrors 连续接收失败超过该值后断开并退避重连。
const DefaultMaxConsecutiveErrors = 2

// Handler receives decoded feed messages from the read loop. Implementations
// must not block; the engine side queues internally.
type Handler interface {
	OnOrderBook(*market.OrderDelta)
	OnTrades(*market.TradeDelta)
}

// State is the connection lifecycle state.
type State int32

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
	StateSubscribed
	StateReconnecting
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateSubscribed:
		return "subscribed"
	case StateReconnecting:
		return "reconnecting"
	default:
		return "disconnected"
	}
}

// BackoffDelay returns the reconnect delay for a consecutive-error count:
// unit * 2^errorCount. With the production unit of one second that is 8s
// after the third consecutive failure, doubling from there.
func BackoffDelay(errorCount int, unit time.Duration) time.Duration {
	if errorCount < 0 {
		errorCount = 0
	}
	if errorCount > 30 {
		errorCount = 30
	}
	return unit * time.Duration(int64(1)<<uint(errorCount))
}

// FeedClient owns the streaming transport and its subscription state.
//
// 生命周期：Disconnected → Connecting → Connected → Subscribed；任一在连状态
// 下传输失败进入 Reconnecting。同一时刻只跟踪一条订阅，切换 instrument 或
// 视图时先退订再订阅。重连成功后按原样重放订阅，引擎把随后的 partial 当作
// 基线重建（这是对上游 feed 的契约要求，客户端不在本地强制）。
type FeedClient struct {
	endpoint       string
	dialer         *websocket.Dialer
	handler        Handler
	log            *zap.Logger
	maxConsecutive int
	backoffUnit    time.Duration

	mu         sync.Mutex
	conn       *websocket.Conn
	state      State
	gen        uint64 // connection generation; stale read loops exit silently
	errorCount int

	lastArg    string
	lastTopic  Topic
	lastSymbol string

	onConnect    func()
	onDisconnect func(error)
	onReconnect  func() // replaces the default unsubscribe+subscribe replay
}

func NewFeedClient(endpoint string, handler Handler, log *zap.Logger) *FeedClient {
	if endpoint == "" {
		endpoint = FeedEndpoint
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &FeedClient{
		endpoint:       endpoint,
		dialer:         websocket.DefaultDialer,
		handler:        handler,
		log:            log,
		maxConsecutive: DefaultMaxConsecutiveErrors,
		backoffUnit:    time.Second,
	}
}

// SetMaxConsecutiveErrors overrides the failure threshold (config-driven).
func (c *FeedClient) SetMaxConsecutiveErrors(n int) {
	if n > 0 {
		c.maxConsecutive = n
	}
}

// SetBackoffUnit overrides the backoff base unit. Production keeps the
// one-second default; tests shrink it.
func (c *FeedClient) SetBackoffUnit(d time.Duration) {
	if d > 0 {
		c.backoffUnit = d
	}
}

// OnConnect registers a hook invoked after every successful dial.
func (c *FeedClient) OnConnect(fn func()) { c.onConnect = fn }

// OnDisconnect registers a hook invoked when the transport is torn down by
// receive failures.
func (c *FeedClient) OnDisconnect(fn func(error)) { c.onDisconnect = fn }

// OnReconnect registers the observer invoked after the transport has been
// re-established. The observer is expected to re-issue unsubscribe+subscribe
// against the fresh connection; when none is registered the client replays
// its recorded subscription itself.
func (c *FeedClient) OnReconnect(fn func()) { c.onReconnect = fn }

// State returns the current lifecycle state.
func (c *FeedClient) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// ConsecutiveErrors returns the current consecutive receive failure count.
func (c *FeedClient) ConsecutiveErrors() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.errorCount
}

// Connect dials the endpoint and starts the read loop. Idempotent while a
// connection is live.
func (c *FeedClient) Connect() error {
	c.mu.Lock()
	if c.conn != nil {
		c.mu.Unlock()
		return nil
	}
	c.state = StateConnecting
	c.mu.Unlock()

	conn, _, err := c.dialer.Dial(c.endpoint, nil)
	if err != nil {
		c.mu.Lock()
		c.state = StateDisconnected
		c.mu.Unlock()
		return fmt.Errorf("dial %s: %w", c.endpoint, err)
	}

	c.mu.Lock()
	c.conn = conn
	c.state = StateConnected
	c.gen++
	gen := c.gen
	c.mu.Unlock()

	metrics.WSConnects.Inc()
	c.log.Info("ws_connect", zap.String("endpoint", c.endpoint))
	if c.onConnect != nil {
		c.onConnect()
	}
	go c.readLoop(conn, gen)
	return nil
}

// Disconnect closes the transport with a normal-closure frame. The recorded
// subscription survives so a later Connect can replay it.
func (c *FeedClient) Disconnect() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closeConnLocked()
	c.state = StateDisconnected
}

// closeConnLocked tears down the socket and bumps the generation so the
// associated read loop exits without treating the close as a failure.
func (c *FeedClient) closeConnLocked() {
	if c.conn == nil {
		return
	}
	_ = c.conn.WriteMessage(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseGoingAway, ""),
	)
	_ = c.conn.Close()
	c.conn = nil
	c.gen++
}

// Subscribe records topic:quoteSymbol as the single tracked subscription and
// sends the subscribe frame. Switching streams is the caller's
// Unsubscribe-then-Subscribe pair, never overlapping calls.
func (c *FeedClient) Subscribe(topic Topic, quoteSymbol string) error {
	frame, arg, err := EncodeSubscribe(topic, quoteSymbol)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return fmt.Errorf("subscribe %s: not connected", arg)
	}
	c.lastArg = arg
	c.lastTopic = topic
	c.lastSymbol = quoteSymbol
	if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
		return fmt.Errorf("subscribe %s: %w", arg, err)
	}
	c.state = StateSubscribed
	c.log.Info("subscribe", zap.String("arg", arg))
	return nil
}

// SubscribeTrades subscribes the live trade stream for quoteSymbol.
func (c *FeedClient) SubscribeTrades(quoteSymbol string) error {
	return c.Subscribe(TopicTrade, quoteSymbol)
}

// Unsubscribe sends an unsubscribe frame for the last recorded subscription.
// No-op when nothing was ever subscribed.
func (c *FeedClient) Unsubscribe() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.lastArg == "" {
		return nil
	}
	frame, err := EncodeUnsubscribe(c.lastArg)
	if err != nil {
		return err
	}
	if c.conn == nil {
		return fmt.Errorf("unsubscribe %s: not connected", c.lastArg)
	}
	if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
		return fmt.Errorf("unsubscribe %s: %w", c.lastArg, err)
	}
	c.log.Info("unsubscribe", zap.String("arg", c.lastArg))
	return nil
}

// readLoop pulls frames until the connection dies or is superseded. Each
// decoded message is routed to the handler; decode failures are logged and
// dropped, never fatal to the loop.
func (c *FeedClient) readLoop(conn *websocket.Conn, gen uint64) {
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			c.mu.Lock()
			if gen != c.gen {
				// superseded by Disconnect or a newer Connect
				c.mu.Unlock()
				return
			}
			c.errorCount++
			n := c.errorCount
			c.mu.Unlock()

			metrics.WSConsecutiveErrors.Set(float64(n))
			c.log.Warn("ws_receive_error", zap.Error(err), zap.Int("consecutive", n))
			if n > c.maxConsecutive {
				c.beginReconnect(err)
				return
			}
			continue
		}

		c.mu.Lock()
		c.errorCount = 0
		c.mu.Unlock()
		metrics.WSConsecutiveErrors.Set(0)
		metrics.FramesReceived.Inc()
		c.dispatch(raw)
	}
}

func (c *FeedClient) dispatch(raw []byte) {
	msg, err := Decode(raw)
	if err != nil {
		metrics.DecodeFailures.Inc()
		c.log.Warn("decode_error", zap.Error(err))
		return
	}
	switch msg.Kind {
	case KindOrderDelta:
		metrics.BookDeltasApplied.WithLabelValues(string(msg.OrderDelta.Action)).Inc()
		c.handler.OnOrderBook(msg.OrderDelta)
	case KindTradeDelta:
		metrics.TradesIngested.Add(float64(len(msg.TradeDelta.Data)))
		c.handler.OnTrades(msg.TradeDelta)
	default:
		// bare arrays carry no action and are not routable
		c.log.Debug("unroutable_frame", zap.Int("kind", int(msg.Kind)))
	}
}

// beginReconnect tears the connection down and schedules a redial after the
// exponential backoff for the current error count. The counter is NOT reset
// here — only a successful receive resets it — so consecutive failed
// reconnects keep doubling the delay.
func (c *FeedClient) beginReconnect(cause error) {
	c.mu.Lock()
	c.closeConnLocked()
	c.state = StateReconnecting
	n := c.errorCount
	c.mu.Unlock()

	metrics.WSDisconnects.Inc()
	if c.onDisconnect != nil {
		c.onDisconnect(cause)
	}

	delay := BackoffDelay(n, c.backoffUnit)
	c.log.Warn("ws_reconnect_scheduled",
		zap.Error(cause),
		zap.Int("consecutive", n),
		zap.Duration("delay", delay),
	)
	time.AfterFunc(delay, c.reconnect)
}

func (c *FeedClient) reconnect() {
	metrics.WSReconnects.Inc()
	if err := c.Connect(); err != nil {
		c.mu.Lock()
		c.errorCount++
		c.mu.Unlock()
		c.beginReconnect(err)
		return
	}
	if c.onReconnect != nil {
		c.onReconnect()
		return
	}
	c.replaySubscription()
}

// replaySubscription re-issues unsubscribe+subscribe for the subscription
// that was active before the failure, as a sequential pair.
func (c *FeedClient) replaySubscription() {
	c.mu.Lock()
	topic, symbol := c.lastTopic, c.lastSymbol
	c.mu.Unlock()
	if symbol == "" {
		return
	}
	if err := c.Unsubscribe(); err != nil {
		c.log.Warn("resubscribe_unsubscribe_failed", zap.Error(err))
	}
	if err := c.Subscribe(topic, symbol); err != nil {
		c.log.Warn("resubscribe_failed", zap.Error(err))
		return
	}
	c.log.Info("resubscribe", zap.String("topic", string(topic)), zap.String("symbol", symbol))
}
