package market

import "testing"

func TestInstrumentQuote(t *testing.T) {
	inst := Instrument{RootSymbol: "XBT"}
	if got := inst.Quote("USD"); got != "XBTUSD" {
		t.Errorf("Quote = %s, want XBTUSD", got)
	}
}

func TestDedupeInstruments(t *testing.T) {
	in := []Instrument{
		{RootSymbol: "XBT"},
		{RootSymbol: "ETH"},
		{RootSymbol: "XBT"},
	}
	out := DedupeInstruments(in)

	if len(out) != 2 {
		t.Fatalf("expected 2 instruments, got %d", len(out))
	}
	if out[0].RootSymbol != "ETH" || out[1].RootSymbol != "XBT" {
		t.Errorf("expected sorted [ETH XBT], got %v", out)
	}
}

func TestDedupeInstrumentsEmpty(t *testing.T) {
	if out := DedupeInstruments(nil); len(out) != 0 {
		t.Errorf("expected empty result, got %v", out)
	}
}
