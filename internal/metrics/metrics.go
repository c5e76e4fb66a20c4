// Package metrics collects the counters and stage timings the host
// benchmark harness scrapes: capture/send durations plus frame, packet
// and command totals. Everything is atomic so both dispatch loops can
// record without contention.
package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/camstack/camd/internal/api"
	"github.com/camstack/camd/internal/app"
	"github.com/rs/zerolog"
)

func Init() {
	log = app.GetLogger("metrics")

	api.HandleFunc("api/metrics", apiMetrics)
}

var log zerolog.Logger

var (
	mu       sync.Mutex
	counters = map[string]uint64{}
	timings  = map[string]*timing{}
)

type timing struct {
	Count uint64        `json:"count"`
	Total time.Duration `json:"total_ms"`
	Last  time.Duration `json:"last_ms"`
}

// Count adds n to a named counter.
func Count(name string, n uint64) {
	mu.Lock()
	counters[name] += n
	mu.Unlock()
}

// Time records one stage duration. Use with defer:
//
//	defer metrics.Time("frame_capture")()
func Time(name string) func() {
	start := time.Now()
	return func() {
		d := time.Since(start)

		mu.Lock()
		t := timings[name]
		if t == nil {
			t = new(timing)
			timings[name] = t
		}
		t.Count++
		t.Total += d
		t.Last = d
		mu.Unlock()

		log.Trace().Dur("ms", d).Msg("[metrics] " + name)
	}
}

func apiMetrics(w http.ResponseWriter, r *http.Request) {
	mu.Lock()

	snapshot := struct {
		Counters map[string]uint64 `json:"counters"`
		Timings  map[string]any    `json:"timings"`
	}{
		Counters: map[string]uint64{},
		Timings:  map[string]any{},
	}
	for k, v := range counters {
		snapshot.Counters[k] = v
	}
	for k, t := range timings {
		avg := time.Duration(0)
		if t.Count > 0 {
			avg = t.Total / time.Duration(t.Count)
		}
		snapshot.Timings[k] = map[string]any{
			"count":   t.Count,
			"last_ms": float64(t.Last) / float64(time.Millisecond),
			"avg_ms":  float64(avg) / float64(time.Millisecond),
		}
	}

	mu.Unlock()

	api.ResponseJSON(w, snapshot)
}
