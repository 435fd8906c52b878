package market

import "sort"

// Instrument is one tradable pair, identified by its root symbol.
type Instrument struct {
	RootSymbol string `json:"rootSymbol"`
}

// Quote derives the subscribable quote symbol, e.g. "XBT" + "USD" -> "XBTUSD".
func (i Instrument) Quote(settlement string) string {
	return i.RootSymbol + settlement
}

// DedupeInstruments 按 rootSymbol 去重并升序排序，用于展示与订阅宇宙。
func DedupeInstruments(in []Instrument) []Instrument {
	seen := make(map[string]struct{}, len(in))
	out := make([]Instrument, 0, len(in))
	for _, ins := range in {
		if _, ok := seen[ins.RootSymbol]; ok {
			continue
		}
		seen[ins.RootSymbol] = struct{}{}
		out = append(out, ins)
	}
	sort.Slice(out, func(a, b int) bool {
		return out[a].RootSymbol < out[b].RootSymbol
	})
	return out
}
