package inspect

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"time"
)

// Handler exposes the registry as JSON:
//
//	GET /channels           -> array of ChannelSnapshot
//	GET /channels?name=<n>  -> snapshots filtered by exact name
func (r *Registry) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/channels", func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		snaps := r.Snapshot()
		if name := req.URL.Query().Get("name"); name != "" {
			filtered := snaps[:0]
			for _, s := range snaps {
				if s.Name == name {
					filtered = append(filtered, s)
				}
			}
			snaps = filtered
		}
		enc := json.NewEncoder(w)
		enc.SetEscapeHTML(false)
		_ = enc.Encode(snaps)
	})
	return mux
}

// StartDebugHTTP serves the registry's handler on addr. It returns the bound
// address (which may differ if port 0 was used) and a shutdown function
// compatible with http.Server.Shutdown.
func StartDebugHTTP(r *Registry, addr string) (string, func(ctx context.Context) error, error) {
	srv := &http.Server{Handler: r.Handler(), ReadHeaderTimeout: 3 * time.Second}
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return "", nil, err
	}
	go func() {
		_ = srv.Serve(ln)
	}()
	return ln.Addr().String(), srv.Shutdown, nil
}
