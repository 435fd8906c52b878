package market

// Side values as sent by the feed.
const (
	SideBuy  = "Buy"
	SideSell = "Sell"
)

// BookLevel is one price level of the level-2 book. Size and Price are
// pointers because the feed omits them on some actions (a delete carries
// neither, an update usually carries only size).
type BookLevel struct {
	Symbol string   `json:"symbol"`
	ID     int64    `json:"id"`
	Side   string   `json:"side"`
	Size   *int64   `json:"size,omitempty"`
	Price  *float64 `json:"price,omitempty"`
}

func (l BookLevel) IsBuy() bool {
	return l.Side == SideBuy
}

// PriceOrZero 返回价格；缺省价按 0 参与排序。
func (l BookLevel) PriceOrZero() float64 {
	if l.Price == nil {
		return 0
	}
	return *l.Price
}

// Equal compares all fields, including the optional ones.
func (l BookLevel) Equal(o BookLevel) bool {
	if l.Symbol != o.Symbol || l.ID != o.ID || l.Side != o.Side {
		return false
	}
	if (l.Size == nil) != (o.Size == nil) || (l.Price == nil) != (o.Price == nil) {
		return false
	}
	if l.Size != nil && *l.Size != *o.Size {
		return false
	}
	if l.Price != nil && *l.Price != *o.Price {
		return false
	}
	return true
}
