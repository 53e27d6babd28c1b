package metrics

import (
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Each metrics file enqueues its collectors from init(); the composition
// root calls MustRegister once after all inits have run.
var (
	registerOnce sync.Once
	pending      []prometheus.Collector
)

func register(cs ...prometheus.Collector) {
	pending = append(pending, cs...)
}

func MustRegister() {
	registerOnce.Do(func() {
		for _, c := range pending {
			prometheus.MustRegister(c)
		}
		pending = nil
	})
}

// norm keeps label cardinality sane regardless of caller casing.
func norm(s string) string { return strings.ToLower(strings.TrimSpace(s)) }
