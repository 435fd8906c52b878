package main

import (
	"testing"

	"market-mirror-go/market"
)

func TestResolveRoot(t *testing.T) {
	catalog := []market.Instrument{{RootSymbol: "ETH"}, {RootSymbol: "XBT"}}

	cases := []struct {
		name        string
		flagRoot    string
		instruments []market.Instrument
		want        string
	}{
		{"flag wins", "SOL", catalog, "SOL"},
		{"first catalog entry", "", catalog, "ETH"},
		{"empty catalog falls back", "", nil, "XBT"},
		{"empty non-nil catalog falls back", "", []market.Instrument{}, "XBT"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := resolveRoot(tc.flagRoot, tc.instruments, "XBT"); got != tc.want {
				t.Errorf("resolveRoot = %s, want %s", got, tc.want)
			}
		})
	}
}
