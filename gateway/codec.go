package gateway

import (
	"encoding/json"
	"fmt"

	"market-mirror-go/market"
)

// wireRequest 对应出站控制帧 {"op": ..., "args": [...]}。
type wireRequest struct {
	Op   string   `json:"op"`
	Args []string `json:"args"`
}

// EncodeSubscribe builds a subscribe frame for topic:quoteSymbol and returns
// the frame plus the subscription arg, which the caller records for the
// matching unsubscribe.
func EncodeSubscribe(topic Topic, quoteSymbol string) (frame []byte, arg string, err error) {
	arg = fmt.Sprintf("%s:%s", topic, quoteSymbol)
	frame, err = json.Marshal(wireRequest{Op: "subscribe", Args: []string{arg}})
	if err != nil {
		return nil, "", fmt.Errorf("encode subscribe: %w", err)
	}
	return frame, arg, nil
}

// EncodeUnsubscribe builds an unsubscribe frame for a previously recorded
// subscription arg.
func EncodeUnsubscribe(arg string) ([]byte, error) {
	frame, err := json.Marshal(wireRequest{Op: "unsubscribe", Args: []string{arg}})
	if err != nil {
		return nil, fmt.Errorf("encode unsubscribe: %w", err)
	}
	return frame, nil
}

// MessageKind discriminates the shapes the feed multiplexes on one channel.
type MessageKind int

const (
	KindOrderLevels MessageKind = iota // bare array of book levels
	KindOrderDelta                     // order delta envelope
	KindTradeItems                     // bare array of trades
	KindTradeDelta                     // trade delta envelope
)

// Message is the decoded form of one inbound frame: a kind tag plus exactly
// one populated payload field.
type Message struct {
	Kind       MessageKind
	Levels     []market.BookLevel
	OrderDelta *market.OrderDelta
	Trades     []market.TradeEvent
	TradeDelta *market.TradeDelta
}

// MalformedMessageError reports a frame that matched none of the known
// shapes. Raw carries the original payload for diagnostics.
type MalformedMessageError struct {
	Raw []byte
}

func (e *MalformedMessageError) Error() string {
	return fmt.Sprintf("malformed feed message: %s", truncate(e.Raw, 256))
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}

// Decode tries the candidate shapes in a fixed precedence order — plain
// order-level array, order delta envelope, plain trade array, trade delta
// envelope — and returns the first that validates. The feed carries no
// explicit discriminator for every case, so each shape is validated by its
// required fields: order rows need a nonzero id and a side, trade rows need
// a timestamp and a match id. That keeps the upstream tie-break behaviour
// while making the precedence explicit.
func Decode(raw []byte) (*Message, error) {
	var levels []market.BookLevel
	if err := json.Unmarshal(raw, &levels); err == nil && validOrderRows(levels) {
		return &Message{Kind: KindOrderLevels, Levels: levels}, nil
	}

	var od market.OrderDelta
	if err := json.Unmarshal(raw, &od); err == nil && validOrderEnvelope(&od) {
		return &Message{Kind: KindOrderDelta, OrderDelta: &od}, nil
	}

	var trades []market.TradeEvent
	if err := json.Unmarshal(raw, &trades); err == nil && validTradeRows(trades) {
		return &Message{Kind: KindTradeItems, Trades: trades}, nil
	}

	var td market.TradeDelta
	if err := json.Unmarshal(raw, &td); err == nil && validTradeEnvelope(&td) {
		return &Message{Kind: KindTradeDelta, TradeDelta: &td}, nil
	}

	return nil, &MalformedMessageError{Raw: raw}
}

func validOrderRows(rows []market.BookLevel) bool {
	for _, r := range rows {
		if r.ID == 0 || r.Symbol == "" || (r.Side != market.SideBuy && r.Side != market.SideSell) {
			return false
		}
	}
	return true
}

// An empty data list validates as an order envelope: that matches the
// precedence the original feed consumers relied on.
func validOrderEnvelope(d *market.OrderDelta) bool {
	return d.Table != "" && d.Action.Valid() && validOrderRows(d.Data)
}

func validTradeRows(rows []market.TradeEvent) bool {
	for _, r := range rows {
		if r.Timestamp == "" || r.TrdMatchID == "" {
			return false
		}
	}
	return true
}

// validTradeEnvelope requires at least one row: an envelope with no rows is
// already claimed by the order shape.
func validTradeEnvelope(d *market.TradeDelta) bool {
	return d.Table != "" && d.Action.Valid() && len(d.Data) > 0 && validTradeRows(d.Data)
}
