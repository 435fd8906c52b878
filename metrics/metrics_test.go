package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestUpdateBookDepth(t *testing.T) {
	UpdateBookDepth(12, 7)

	if got := testutil.ToFloat64(BookDepth.WithLabelValues("bids")); got != 12 {
		t.Errorf("bids depth = %v, want 12", got)
	}
	if got := testutil.ToFloat64(BookDepth.WithLabelValues("asks")); got != 7 {
		t.Errorf("asks depth = %v, want 7", got)
	}

	UpdateBookDepth(0, 0)
	if got := testutil.ToFloat64(BookDepth.WithLabelValues("bids")); got != 0 {
		t.Errorf("bids depth after reset = %v, want 0", got)
	}
}

func TestCountersAreRegistered(t *testing.T) {
	before := testutil.ToFloat64(FramesReceived)
	FramesReceived.Inc()
	if got := testutil.ToFloat64(FramesReceived); got != before+1 {
		t.Errorf("frames counter = %v, want %v", got, before+1)
	}

	BookDeltasApplied.WithLabelValues("partial").Inc()
	if got := testutil.ToFloat64(BookDeltasApplied.WithLabelValues("partial")); got < 1 {
		t.Errorf("book deltas counter = %v, want >= 1", got)
	}
}

func TestStartMetricsServerEmptyAddr(t *testing.T) {
	// 空地址表示关闭指标服务器，不应 panic
	StartMetricsServer("")
}
