package transport_test

import (
	"strconv"

	. "github.com/onsi/gomega"
	"github.com/prometheus/client_golang/prometheus"
)

func mustAtoi(s string) int {
	n, err := strconv.Atoi(s)
	Expect(err).To(Succeed())
	return n
}

// gather sums every sample of the named metric family.
func gather(registry *prometheus.Registry, name string) float64 {
	families, err := registry.Gather()
	Expect(err).To(Succeed())

	var total float64
	for _, family := range families {
		if family.GetName() != name {
			continue
		}

		for _, m := range family.GetMetric() {
			switch {
			case m.GetCounter() != nil:
				total += m.GetCounter().GetValue()
			case m.GetGauge() != nil:
				total += m.GetGauge().GetValue()
			}
		}
	}

	return total
}
