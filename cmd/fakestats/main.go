package main

import (
	"flag"
	"log"
	"math/rand"
	"net/http"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/valyala/fastjson"
	"golang.org/x/time/rate"
)

// build metadata reported by a real TrafficServer
var versionStats = map[string]string{
	"proxy.process.version.server.short":         "9.2.3",
	"proxy.process.version.server.long":          "Apache Traffic Server - traffic_server - 9.2.3 - (build # 100712 on Oct  7 2023 at 12:00:00)",
	"proxy.process.version.server.build_number":  "100712",
	"proxy.process.version.server.build_time":    "12:00:00",
	"proxy.process.version.server.build_date":    "Oct  7 2023",
	"proxy.process.version.server.build_machine": "builder",
	"proxy.process.version.server.build_person":  "root",
}

var counterNames = []string{
	"proxy.process.http.completed_requests",
	"proxy.process.http.incoming_requests",
	"proxy.process.http.outgoing_requests",
	"proxy.process.http.total_client_connections",
	"proxy.process.http.total_server_connections",
	"proxy.process.http.cache_hit_fresh",
	"proxy.process.http.cache_miss_cold",
	"proxy.process.cache_total_hits",
	"proxy.process.cache_total_misses",
	"proxy.process.user_agent_total_bytes",
	"proxy.process.origin_server_total_bytes",
}

func main() {
	listen := flag.String("listen", "127.0.0.1:8080", "listen address")
	reqPerSec := flag.Int("req-per-sec", 10, "accepted requests per second, others get 503")
	flag.Parse()

	s := newStats()
	limiter := rate.NewLimiter(rate.Limit(*reqPerSec), 1)

	http.HandleFunc("/_stats", func(w http.ResponseWriter, r *http.Request) {
		if !limiter.Allow() {
			http.Error(w, "too many requests", http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		if _, err := w.Write(s.JSON()); err != nil {
			log.Println(err)
		}
	})
	log.Printf("serving fake TrafficServer stats on http://%s/_stats", *listen)
	log.Fatal(http.ListenAndServe(*listen, nil))
}

type stats struct {
	mu       sync.Mutex
	started  time.Time
	counters map[string]int64
}

func newStats() *stats {
	s := &stats{
		started:  time.Now(),
		counters: make(map[string]int64, len(counterNames)),
	}
	for _, name := range counterNames {
		s.counters[name] = rand.Int63n(1000)
	}
	return s
}

// JSON advances every counter and renders a _stats document. TrafficServer
// reports every value as a string.
func (s *stats) JSON() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()

	var a fastjson.Arena
	global := a.NewObject()
	for _, name := range sortedKeys(versionStats) {
		global.Set(name, a.NewString(versionStats[name]))
	}
	for _, name := range counterNames {
		s.counters[name] += rand.Int63n(100)
		global.Set(name, a.NewString(strconv.FormatInt(s.counters[name], 10)))
	}
	global.Set("proxy.node.proxy_running", a.NewString("1"))
	global.Set("proxy.node.restarts.proxy.start_time", a.NewString(strconv.FormatInt(s.started.Unix(), 10)))
	global.Set("proxy.process.http.avg_transactions_per_client_connection",
		a.NewString(strconv.FormatFloat(1+rand.Float64(), 'f', 6, 64)))

	doc := a.NewObject()
	doc.Set("global", global)
	return append(doc.MarshalTo(nil), '\n')
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
