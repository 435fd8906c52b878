package gateway

import (
	"errors"
	"testing"

	"market-mirror-go/market"
)

func TestEncodeSubscribe(t *testing.T) {
	frame, arg, err := EncodeSubscribe(TopicOrderBookL2_25, "XBTUSD")
	if err != nil {
		t.Fatalf("EncodeSubscribe failed: %v", err)
	}
	if arg != "orderBookL2_25:XBTUSD" {
		t.Errorf("arg = %s", arg)
	}
	want := `{"op":"subscribe","args":["orderBookL2_25:XBTUSD"]}`
	if string(frame) != want {
		t.Errorf("frame = %s, want %s", frame, want)
	}
}

func TestEncodeUnsubscribe(t *testing.T) {
	frame, err := EncodeUnsubscribe("trade:XBTUSD")
	if err != nil {
		t.Fatalf("EncodeUnsubscribe failed: %v", err)
	}
	want := `{"op":"unsubscribe","args":["trade:XBTUSD"]}`
	if string(frame) != want {
		t.Errorf("frame = %s, want %s", frame, want)
	}
}

func TestDecodeOrderDeltaEnvelope(t *testing.T) {
	raw := []byte(`{
		"table": "orderBookL2_25",
		"action": "update",
		"data": [
			{"symbol": "XBTUSD", "id": 8799023950, "side": "Sell", "size": 5137}
		]
	}`)
	msg, err := Decode(raw)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if msg.Kind != KindOrderDelta {
		t.Fatalf("kind = %d, want KindOrderDelta", msg.Kind)
	}
	d := msg.OrderDelta
	if d.Action != market.ActionUpdate {
		t.Errorf("action = %s", d.Action)
	}
	if len(d.Data) != 1 || d.Data[0].ID != 8799023950 {
		t.Errorf("data = %+v", d.Data)
	}
	if d.Data[0].Price != nil {
		t.Error("absent price should stay nil")
	}
}

func TestDecodeTradeDeltaEnvelope(t *testing.T) {
	raw := []byte(`{
		"table": "trade",
		"action": "insert",
		"data": [
			{"timestamp": "2024-03-01T12:00:00.000Z", "symbol": "XBTUSD",
			 "side": "Buy", "size": 100, "price": 62001.5,
			 "tickDirection": "PlusTick", "trdMatchID": "m-1",
			 "grossValue": 161290, "homeNotional": 0.0016, "foreignNotional": 100}
		]
	}`)
	msg, err := Decode(raw)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if msg.Kind != KindTradeDelta {
		t.Fatalf("kind = %d, want KindTradeDelta", msg.Kind)
	}
	tr := msg.TradeDelta.Data[0]
	if tr.TrdMatchID != "m-1" || tr.Price != 62001.5 {
		t.Errorf("trade = %+v", tr)
	}
}

func TestDecodeBareOrderArray(t *testing.T) {
	raw := []byte(`[{"symbol":"XBTUSD","id":1,"side":"Buy","size":10,"price":100.5}]`)
	msg, err := Decode(raw)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if msg.Kind != KindOrderLevels || len(msg.Levels) != 1 {
		t.Fatalf("kind = %d levels = %+v", msg.Kind, msg.Levels)
	}
}

func TestDecodeBareTradeArray(t *testing.T) {
	raw := []byte(`[{"timestamp":"2024-03-01T12:00:00.000Z","symbol":"XBTUSD","side":"Sell","size":5,"price":100,"trdMatchID":"m-2"}]`)
	msg, err := Decode(raw)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if msg.Kind != KindTradeItems || len(msg.Trades) != 1 {
		t.Fatalf("kind = %d trades = %+v", msg.Kind, msg.Trades)
	}
}

// 空 data 的信封按形状优先级归为订单 delta。
func TestDecodeEmptyEnvelopeClaimedByOrderShape(t *testing.T) {
	raw := []byte(`{"table":"trade","action":"partial","data":[]}`)
	msg, err := Decode(raw)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if msg.Kind != KindOrderDelta {
		t.Fatalf("kind = %d, want KindOrderDelta", msg.Kind)
	}
}

func TestDecodeMalformed(t *testing.T) {
	cases := [][]byte{
		[]byte(`{"info":"Welcome to the realtime API"}`),
		[]byte(`{"success":true,"subscribe":"trade:XBTUSD"}`),
		[]byte(`not json at all`),
		[]byte(`{"table":"orderBookL2_25","action":"resync","data":[]}`),
		[]byte(`[{"symbol":"XBTUSD","id":0,"side":"Buy"}]`),
	}
	for _, raw := range cases {
		_, err := Decode(raw)
		if err == nil {
			t.Errorf("Decode(%s) should fail", raw)
			continue
		}
		var malformed *MalformedMessageError
		if !errors.As(err, &malformed) {
			t.Errorf("error type = %T, want MalformedMessageError", err)
		}
	}
}

func TestMalformedErrorTruncatesPayload(t *testing.T) {
	raw := make([]byte, 1024)
	for i := range raw {
		raw[i] = 'x'
	}
	e := &MalformedMessageError{Raw: raw}
	if len(e.Error()) > 320 {
		t.Errorf("error message too long: %d bytes", len(e.Error()))
	}
}
