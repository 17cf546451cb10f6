package observability

import (
	"sort"
	"strconv"
	"sync"
	"time"
)

// Metrics provides basic in-memory counters.
type Metrics struct {
	mu            sync.Mutex
	requestCount  map[string]int64
	requestMillis map[string]int64
	errorCount    map[string]int64
	decisionCount map[string]int64
}

// Counter is one labelled counter value.
type Counter struct {
	Key   string `json:"key"`
	Value int64  `json:"value"`
}

// Snapshot is a point-in-time copy of every counter, sorted by key.
type Snapshot struct {
	Requests       []Counter `json:"requests"`
	RequestLatency []Counter `json:"request_latency_ms"`
	Errors         []Counter `json:"errors"`
	Decisions      []Counter `json:"decisions"`
}

// NewMetrics initializes metrics storage.
func NewMetrics() *Metrics {
	return &Metrics{
		requestCount:  make(map[string]int64),
		requestMillis: make(map[string]int64),
		errorCount:    make(map[string]int64),
		decisionCount: make(map[string]int64),
	}
}

// RecordRequest increments counters for requests.
func (m *Metrics) RecordRequest(path, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	key := pathKey(path, method, status)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requestCount[key]++
	m.requestMillis[key] += duration.Milliseconds()
}

// RecordError increments error counters.
func (m *Metrics) RecordError(path, method, code string) {
	if m == nil {
		return
	}
	key := path + "|" + method + "|" + code
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errorCount[key]++
}

// RecordDecision counts decide requests by action and outcome code.
func (m *Metrics) RecordDecision(action, outcome string) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.decisionCount[action+"|"+outcome]++
}

// Snapshot copies the current counters.
func (m *Metrics) Snapshot() Snapshot {
	if m == nil {
		return Snapshot{}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return Snapshot{
		Requests:       counters(m.requestCount),
		RequestLatency: counters(m.requestMillis),
		Errors:         counters(m.errorCount),
		Decisions:      counters(m.decisionCount),
	}
}

func counters(src map[string]int64) []Counter {
	out := make([]Counter, 0, len(src))
	for k, v := range src {
		out = append(out, Counter{Key: k, Value: v})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

func pathKey(path, method string, status int) string {
	return path + "|" + method + "|" + strconv.Itoa(status)
}
