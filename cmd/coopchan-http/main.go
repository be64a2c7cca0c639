// Command coopchan-http streams a broadcast event feed over HTTP/3 (with a
// TCP fallback). Every connected client gets its own buffered channel; a
// hub fans events out with TrySend so one slow client never blocks the
// rest. Channel health is visible on /metrics (prometheus) and
// /debug/channels (inspect registry JSON).
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/orizon-lang/coopchan"
	"github.com/orizon-lang/coopchan/internal/chanmetrics"
	"github.com/orizon-lang/coopchan/internal/inspect"
)

const subscriberBacklog = 16

// hub fans published events out to every subscriber channel.
type hub struct {
	mu      sync.Mutex
	nextID  int
	subs    map[int]*coopchan.Channel[string]
	tracked map[int]string
	reg     *inspect.Registry
	dropped prometheus.Counter
}

func newHub(reg *inspect.Registry, dropped prometheus.Counter) *hub {
	return &hub{
		subs:    make(map[int]*coopchan.Channel[string]),
		tracked: make(map[int]string),
		reg:     reg,
		dropped: dropped,
	}
}

func (h *hub) subscribe() (int, *coopchan.Channel[string]) {
	ch := coopchan.NewChannel[string](subscriberBacklog)
	h.mu.Lock()
	id := h.nextID
	h.nextID++
	h.subs[id] = ch
	h.tracked[id] = h.reg.Track(fmt.Sprintf("subscriber-%d", id), ch)
	h.mu.Unlock()
	return id, ch
}

func (h *hub) unsubscribe(id int) {
	h.mu.Lock()
	ch := h.subs[id]
	delete(h.subs, id)
	trackID := h.tracked[id]
	delete(h.tracked, id)
	h.mu.Unlock()
	if ch != nil {
		_ = ch.Close()
		h.reg.Forget(trackID)
	}
}

func (h *hub) publish(event string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, ch := range h.subs {
		if ok, err := ch.TrySend(event); !ok || err != nil {
			h.dropped.Inc()
		}
	}
}

func main() {
	addr := flag.String("addr", "localhost:8443", "listen address (UDP for HTTP/3, TCP fallback)")
	interval := flag.Duration("interval", time.Second, "event publish interval")
	flag.Parse()

	log := zerolog.New(zerolog.NewConsoleWriter()).With().Timestamp().Logger()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	promReg := prometheus.NewRegistry()
	dropped := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "coopchan_http_events_dropped_total",
		Help: "Events dropped because a subscriber's backlog was full.",
	})
	promReg.MustRegister(dropped)
	promReg.MustRegister(chanmetrics.NewCollector(inspect.Default))

	h := newHub(inspect.Default, dropped)
	go func() {
		seq := 0
		t := time.NewTicker(*interval)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-t.C:
				seq++
				h.publish(fmt.Sprintf("event %d at %s", seq, now.Format(time.RFC3339Nano)))
			}
		}
	}()

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(promReg, promhttp.HandlerOpts{}))
	mux.Handle("/debug/channels", http.StripPrefix("/debug", inspect.Default.Handler()))
	mux.HandleFunc("/events", func(w http.ResponseWriter, r *http.Request) {
		id, sub := h.subscribe()
		defer h.unsubscribe(id)
		log.Info().Int("subscriber", id).Msg("client connected")

		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		flusher, _ := w.(http.Flusher)
		for {
			event, ok, err := sub.Receive(r.Context())
			if err != nil || !ok {
				log.Info().Int("subscriber", id).Err(err).Msg("client done")
				return
			}
			if _, err := fmt.Fprintln(w, event); err != nil {
				return
			}
			if flusher != nil {
				flusher.Flush()
			}
		}
	})

	tlsCfg, err := selfSignedTLS()
	if err != nil {
		log.Fatal().Err(err).Msg("tls setup")
	}
	h3 := newHTTP3Server(*addr, tlsCfg, mux)
	fallback := &http.Server{
		Addr:              *addr,
		Handler:           mux,
		TLSConfig:         tlsCfg,
		ReadHeaderTimeout: 3 * time.Second,
	}

	go func() {
		log.Info().Str("addr", *addr).Msg("http/3 listening")
		if err := h3.ListenAndServe(); err != nil {
			log.Error().Err(err).Msg("http/3 server")
		}
	}()
	go func() {
		log.Info().Str("addr", *addr).Msg("tcp fallback listening")
		if err := fallback.ListenAndServeTLS("", ""); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("fallback server")
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = fallback.Shutdown(shutdownCtx)
	_ = h3.Close()
	log.Info().Msg("bye")
}
