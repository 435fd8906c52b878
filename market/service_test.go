package market

import (
	"testing"
	"time"
)

func newTestService(highlight time.Duration) (*Service, *Publisher) {
	pub := NewPublisher(time.Millisecond)
	svc := NewService(NewBook(20), NewTradeFeed(30), pub, highlight)
	svc.Start()
	return svc, pub
}

func TestServiceAppliesDeltasInOrder(t *testing.T) {
	svc, pub := newTestService(time.Hour)
	defer svc.Stop()
	defer pub.Close()

	ch, cancel := pub.SubscribeBook()
	defer cancel()

	svc.OnOrderBook(&OrderDelta{Action: ActionPartial, Data: []BookLevel{lvl(1, SideBuy, 10, 100)}})
	recvBook(t, ch, time.Second)

	svc.OnOrderBook(&OrderDelta{Action: ActionUpdate, Data: []BookLevel{
		{Symbol: "XBTUSD", ID: 1, Side: SideBuy, Size: i64(20)},
	}})
	svc.OnOrderBook(&OrderDelta{Action: ActionDelete, Data: []BookLevel{{ID: 1}}})

	// 等队列排空后直接读引擎状态
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if len(svc.Book().Snapshot().Levels) == 0 {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("delete applied out of order: %+v", svc.Book().Snapshot().Levels)
}

func TestServiceRoutesTrades(t *testing.T) {
	svc, pub := newTestService(time.Hour)
	defer svc.Stop()
	defer pub.Close()

	ch, cancel := pub.SubscribeTrades()
	defer cancel()

	svc.OnTrades(&TradeDelta{Action: ActionInsert, Data: []TradeEvent{trade("a", SideBuy, 100)}})

	select {
	case snap := <-ch:
		if len(snap) != 1 || snap[0].TrdMatchID != "a" {
			t.Fatalf("unexpected trade snapshot: %+v", snap)
		}
		if !snap[0].IsNew {
			t.Error("fresh trade should be highlighted on first publication")
		}
	case <-time.After(time.Second):
		t.Fatal("trade snapshot never published")
	}
}

func TestServiceRepublishesAfterHighlightExpiry(t *testing.T) {
	svc, pub := newTestService(30 * time.Millisecond)
	defer svc.Stop()
	defer pub.Close()

	ch, cancel := pub.SubscribeTrades()
	defer cancel()

	svc.OnTrades(&TradeDelta{Action: ActionInsert, Data: []TradeEvent{trade("a", SideBuy, 100)}})

	// 第一次发布：高亮
	select {
	case snap := <-ch:
		if !snap[0].IsNew {
			t.Fatal("first publication should carry the highlight")
		}
	case <-time.After(time.Second):
		t.Fatal("first publication never arrived")
	}

	// 高亮到期后的第二次发布：不再高亮
	select {
	case snap := <-ch:
		if snap[0].IsNew {
			t.Fatal("highlight should be cleared on the follow-up publication")
		}
	case <-time.After(time.Second):
		t.Fatal("follow-up publication never arrived")
	}
}
