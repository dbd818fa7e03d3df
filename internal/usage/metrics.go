package usage

import (
	"fmt"
	"net/http"
	"sort"
	"strings"
	"sync"
)

// labelKey canonicalizes a label set into a stable map key so repeated
// observations with the same labels accumulate on the same series.
func labelKey(labels map[string]string) string {
	if len(labels) == 0 {
		return ""
	}
	keys := make([]string, 0, len(labels))
	for k := range labels {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var b strings.Builder
	for i, k := range keys {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(labels[k])
	}
	return b.String()
}

type series struct {
	name   string
	labels map[string]string
	value  float64
}

// Registry is an in-process metrics registry exposing the spec §6
// text format "name{label=value,...} N" rather than full Prometheus
// exposition — this process is scraped by nothing but the operator's
// own dashboarding, so the TYPE/HELP preamble the teacher's registry
// emits is dropped.
type Registry struct {
	mu    sync.Mutex
	gauge map[string]*series
}

// NewRegistry constructs an empty registry.
func NewRegistry() *Registry {
	return &Registry{gauge: make(map[string]*series)}
}

func (r *Registry) key(name string, labels map[string]string) string {
	return name + "{" + labelKey(labels) + "}"
}

// Set assigns a metric's current value, replacing any prior value for
// the same name+labels.
func (r *Registry) Set(name string, labels map[string]string, value float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.gauge[r.key(name, labels)] = &series{name: name, labels: labels, value: value}
}

// Add increments a metric's current value, creating it at 0 first if
// it does not yet exist.
func (r *Registry) Add(name string, labels map[string]string, delta float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := r.key(name, labels)
	s, ok := r.gauge[key]
	if !ok {
		s = &series{name: name, labels: labels}
		r.gauge[key] = s
	}
	s.value += delta
}

// Text renders every series as one "name{label=value,...} N" line per
// series, sorted by name then label key for a stable diff-friendly
// exposition.
func (r *Registry) Text() string {
	r.mu.Lock()
	snap := make([]*series, 0, len(r.gauge))
	for _, s := range r.gauge {
		snap = append(snap, s)
	}
	r.mu.Unlock()

	sort.Slice(snap, func(i, j int) bool {
		if snap[i].name != snap[j].name {
			return snap[i].name < snap[j].name
		}
		return labelKey(snap[i].labels) < labelKey(snap[j].labels)
	})

	var b strings.Builder
	for _, s := range snap {
		if len(s.labels) == 0 {
			fmt.Fprintf(&b, "%s %v\n", s.name, formatValue(s.value))
			continue
		}
		fmt.Fprintf(&b, "%s{%s} %v\n", s.name, labelKey(s.labels), formatValue(s.value))
	}
	return b.String()
}

func formatValue(v float64) string {
	if v == float64(int64(v)) {
		return fmt.Sprintf("%d", int64(v))
	}
	return fmt.Sprintf("%g", v)
}

// Handler exposes the registry over HTTP for a scraper or manual curl
// (spec §6 "Metrics output").
func (r *Registry) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4")
		_, _ = w.Write([]byte(r.Text()))
	})
}
