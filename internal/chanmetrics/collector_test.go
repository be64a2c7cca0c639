package chanmetrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/orizon-lang/coopchan"
	"github.com/orizon-lang/coopchan/internal/inspect"
)

func TestCollector_EmitsPerChannelSeries(t *testing.T) {
	reg := inspect.NewRegistry()
	ch := coopchan.NewChannel[int](4)
	ch.TrySend(1)
	ch.TrySend(2)
	reg.Track("events", ch)

	c := NewCollector(reg)
	preg := prometheus.NewPedanticRegistry()
	if err := preg.Register(c); err != nil {
		t.Fatalf("register: %v", err)
	}
	families, err := preg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	got := map[string]float64{}
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			switch {
			case m.GetGauge() != nil:
				got[mf.GetName()] = m.GetGauge().GetValue()
			case m.GetCounter() != nil:
				got[mf.GetName()] = m.GetCounter().GetValue()
			}
		}
	}
	if got["coopchan_channel_capacity"] != 4 {
		t.Fatalf("capacity: %v", got)
	}
	if got["coopchan_channel_buffered"] != 2 {
		t.Fatalf("buffered: %v", got)
	}
	if got["coopchan_channel_sent_total"] != 2 {
		t.Fatalf("sent: %v", got)
	}
}
