package daemon

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/Umpriel/atlas/internal/metrics"
	"github.com/Umpriel/atlas/internal/store"
	"github.com/Umpriel/atlas/internal/types"
)

// webUIAddr is the fixed local address the job-inspection UI and metrics
// endpoint bind to. It is not meant to be reachable beyond the machine
// running the daemon.
const webUIAddr = "localhost:3003"

type jobCounts struct {
	Pending int `json:"pending"`
	Running int `json:"running"`
	Done    int `json:"done"`
	Failed  int `json:"failed"`
}

// newMux builds the daemon's HTTP surface: a small /api/v1 queue
// inspection API, a Prometheus scrape endpoint, and a static-asset
// fallback for whatever build of the job-inspection frontend is present
// (that frontend's own build pipeline is out of scope here; the daemon
// only needs to serve it if present).
func newMux(tileJobs *store.Store[types.TileJob], machineJobs *store.Store[types.NewMachineJob], staticDir string) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/api/v1/tiles", func(w http.ResponseWriter, r *http.Request) {
		rows, err := tileJobs.FetchAllByType(r.Context())
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		writeCounts(w, rows)
	})

	mux.HandleFunc("/api/v1/machines", func(w http.ResponseWriter, r *http.Request) {
		rows, err := machineJobs.FetchAllByType(r.Context())
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		writeCounts(w, rows)
	})

	mux.Handle("/metrics", metrics.Handler())

	if staticDir != "" {
		mux.Handle("/", http.FileServer(http.Dir(staticDir)))
	}

	return mux
}

func writeCounts[T any](w http.ResponseWriter, rows []store.Row[T]) {
	var counts jobCounts
	for _, row := range rows {
		switch row.Status {
		case store.StatusPending:
			counts.Pending++
		case store.StatusRunning:
			counts.Running++
		case store.StatusDone:
			counts.Done++
		case store.StatusFailed:
			counts.Failed++
		}
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(counts)
}

// serveWebUI runs the HTTP server until ctx is cancelled. Failures here
// are the caller's to log and shrug off: a broken inspection UI must
// never bring down the new-machine worker loop alongside it.
func serveWebUI(ctx context.Context, tileJobs *store.Store[types.TileJob], machineJobs *store.Store[types.NewMachineJob], staticDir string) error {
	srv := &http.Server{Addr: webUIAddr, Handler: newMux(tileJobs, machineJobs, staticDir)}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}
