package market

import (
	"sort"
	"sync"
)

// Action is the reconciliation action carried by a feed delta.
type Action string

const (
	ActionPartial Action = "partial"
	ActionInsert  Action = "insert"
	ActionUpdate  Action = "update"
	ActionDelete  Action = "delete"
)

// Valid reports whether a is one of the four known actions.
func (a Action) Valid() bool {
	switch a {
	case ActionPartial, ActionInsert, ActionUpdate, ActionDelete:
		return true
	}
	return false
}

// OrderDelta is a decoded order book message: an action plus the affected
// levels, in feed order.
type OrderDelta struct {
	Table  string      `json:"table"`
	Action Action      `json:"action"`
	Data   []BookLevel `json:"data"`
}

// BookSnapshot is an immutable copy of the book state published to readers.
// Bids are sorted descending by price, asks ascending; a missing price sorts
// as zero on both sides.
type BookSnapshot struct {
	Levels []BookLevel
	Bids   []BookLevel
	Asks   []BookLevel
}

// Book folds order deltas into a bounded two-sided view.
//
// 全量档位照单收下；买卖两侧各维持一个按插入顺序排列的工作缓冲，
// 超出深度上限时从头部淘汰（按插入先后而非价格，与上游行为一致）。
// 排序只发生在发布快照时。
type Book struct {
	mu       sync.Mutex
	depthCap int

	levels []BookLevel // all levels, feed order
	buys   []BookLevel // insertion-ordered working buffer
	sells  []BookLevel
}

// DefaultDepthCap is the per-side level cap used when none is configured.
const DefaultDepthCap = 20

func NewBook(depthCap int) *Book {
	if depthCap <= 0 {
		depthCap = DefaultDepthCap
	}
	return &Book{depthCap: depthCap}
}

// Apply folds one delta into the book and returns the resulting snapshot.
// The whole step runs under a single mutex: only one reconciliation is in
// flight at a time and readers only ever see the returned copies.
//
// A partial replaces the entire book. The feed sends one after every
// (re)subscribe, so the first message after a reconnect reseeds the
// baseline; that is a contract on the upstream feed, not enforced here.
func (b *Book) Apply(d *OrderDelta) BookSnapshot {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch d.Action {
	case ActionPartial:
		b.applyPartial(d.Data)
	case ActionInsert:
		b.applyInsert(d.Data)
	case ActionUpdate:
		b.applyUpdate(d.Data)
	case ActionDelete:
		b.applyDelete(d.Data)
	}

	return b.snapshotLocked()
}

// Snapshot returns the current published view without applying anything.
func (b *Book) Snapshot() BookSnapshot {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.snapshotLocked()
}

func (b *Book) applyPartial(data []BookLevel) {
	b.levels = append(b.levels[:0:0], data...)
	b.buys = b.buys[:0]
	b.sells = b.sells[:0]
	for _, lv := range b.levels {
		if lv.IsBuy() {
			b.buys = append(b.buys, lv)
		} else {
			b.sells = append(b.sells, lv)
		}
	}
	// keep the last depthCap entries per side, mirroring upstream's
	// suffix-before-sort resync behaviour
	if n := len(b.buys) - b.depthCap; n > 0 {
		b.buys = append([]BookLevel(nil), b.buys[n:]...)
	}
	if n := len(b.sells) - b.depthCap; n > 0 {
		b.sells = append([]BookLevel(nil), b.sells[n:]...)
	}
}

func (b *Book) applyInsert(data []BookLevel) {
	ids := make(map[int64]struct{}, len(b.levels))
	for _, lv := range b.levels {
		ids[lv.ID] = struct{}{}
	}
	for _, lv := range data {
		if _, dup := ids[lv.ID]; dup {
			continue // idempotent insert
		}
		ids[lv.ID] = struct{}{}
		b.levels = append(b.levels, lv)
		if lv.IsBuy() {
			b.buys = appendCapped(b.buys, lv, b.depthCap)
		} else {
			b.sells = appendCapped(b.sells, lv, b.depthCap)
		}
	}
}

// appendCapped appends and, on overflow, evicts the earliest-inserted entry.
func appendCapped(buf []BookLevel, lv BookLevel, cap int) []BookLevel {
	buf = append(buf, lv)
	if len(buf) > cap {
		buf = append(buf[:0:0], buf[1:]...)
	}
	return buf
}

// applyUpdate replaces the matched record wholesale with the delta row.
// 整条记录替换：update 行没带 price 时旧价被抹掉，该档位按 0 参与排序。
func (b *Book) applyUpdate(data []BookLevel) {
	for _, lv := range data {
		// matched by id alone; misses are silently ignored
		if i := indexByID(b.levels, lv.ID); i >= 0 {
			b.levels[i] = lv
		}
		side := b.sells
		if lv.IsBuy() {
			side = b.buys
		}
		if i := indexByID(side, lv.ID); i >= 0 {
			side[i] = lv
		}
	}
}

func (b *Book) applyDelete(data []BookLevel) {
	gone := make(map[int64]struct{}, len(data))
	for _, lv := range data {
		gone[lv.ID] = struct{}{}
	}
	// the declared side on a delete row is ignored: the id is removed from
	// the all-levels set and from both side buffers
	b.levels = dropIDs(b.levels, gone)
	b.buys = dropIDs(b.buys, gone)
	b.sells = dropIDs(b.sells, gone)
}

func dropIDs(buf []BookLevel, gone map[int64]struct{}) []BookLevel {
	out := buf[:0]
	for _, lv := range buf {
		if _, ok := gone[lv.ID]; !ok {
			out = append(out, lv)
		}
	}
	return out
}

func indexByID(buf []BookLevel, id int64) int {
	for i := range buf {
		if buf[i].ID == id {
			return i
		}
	}
	return -1
}

func (b *Book) snapshotLocked() BookSnapshot {
	snap := BookSnapshot{
		Levels: append([]BookLevel(nil), b.levels...),
		Bids:   append([]BookLevel(nil), b.buys...),
		Asks:   append([]BookLevel(nil), b.sells...),
	}
	sort.SliceStable(snap.Bids, func(i, j int) bool {
		return snap.Bids[i].PriceOrZero() > snap.Bids[j].PriceOrZero()
	})
	sort.SliceStable(snap.Asks, func(i, j int) bool {
		return snap.Asks[i].PriceOrZero() < snap.Asks[j].PriceOrZero()
	})
	return snap
}
