// Package chanmetrics exposes an inspect registry as prometheus metrics.
package chanmetrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/orizon-lang/coopchan/internal/inspect"
)

// Collector implements prometheus.Collector over a registry snapshot.
type Collector struct {
	reg *inspect.Registry

	capacity    *prometheus.Desc
	buffered    *prometheus.Desc
	concurrency *prometheus.Desc
	sent        *prometheus.Desc
	received    *prometheus.Desc
}

// NewCollector builds a collector over reg.
func NewCollector(reg *inspect.Registry) *Collector {
	labels := []string{"channel", "id"}
	return &Collector{
		reg: reg,
		capacity: prometheus.NewDesc(
			"coopchan_channel_capacity",
			"Configured buffer capacity of the channel.",
			labels, nil),
		buffered: prometheus.NewDesc(
			"coopchan_channel_buffered",
			"Values currently held in the channel buffer.",
			labels, nil),
		concurrency: prometheus.NewDesc(
			"coopchan_channel_concurrency",
			"Pending senders minus pending receivers.",
			labels, nil),
		sent: prometheus.NewDesc(
			"coopchan_channel_sent_total",
			"Values accepted by the channel (delivered or buffered).",
			labels, nil),
		received: prometheus.NewDesc(
			"coopchan_channel_received_total",
			"Values observed by receivers.",
			labels, nil),
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.capacity
	ch <- c.buffered
	ch <- c.concurrency
	ch <- c.sent
	ch <- c.received
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	for _, s := range c.reg.Snapshot() {
		ch <- prometheus.MustNewConstMetric(c.capacity, prometheus.GaugeValue,
			float64(s.Capacity), s.Name, s.ID)
		ch <- prometheus.MustNewConstMetric(c.buffered, prometheus.GaugeValue,
			float64(s.Buffered), s.Name, s.ID)
		ch <- prometheus.MustNewConstMetric(c.concurrency, prometheus.GaugeValue,
			float64(s.Concurrency), s.Name, s.ID)
		ch <- prometheus.MustNewConstMetric(c.sent, prometheus.CounterValue,
			float64(s.Sent), s.Name, s.ID)
		ch <- prometheus.MustNewConstMetric(c.received, prometheus.CounterValue,
			float64(s.Received), s.Name, s.ID)
	}
}
