package device

import (
	"math/rand"
	"sync"
	"time"
)

// Celsius is the only unit the thermometer reports in.
const Celsius = "C"

// Reading is a single simulated temperature. It is never stored.
type Reading struct {
	Value float64
	Unit  string
}

// Source simulates the environment a thermometer measures.
type Source interface {
	Sample() float64
}

// RandomSource yields uniformly distributed temperatures in [Min, Max).
type RandomSource struct {
	min, max float64

	mu  sync.Mutex
	rng *rand.Rand
}

func NewRandomSource(min, max float64, seed int64) *RandomSource {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	return &RandomSource{
		min: min,
		max: max,
		rng: rand.New(rand.NewSource(seed)),
	}
}

func (r *RandomSource) Sample() float64 {
	r.mu.Lock()
	f := r.rng.Float64()
	r.mu.Unlock()

	return r.min + f*(r.max-r.min)
}

// Thermometer reports a fresh reading from its source on every Read.
type Thermometer struct {
	Name   string
	source Source
}

func NewThermometer(name string, source Source) *Thermometer {
	return &Thermometer{
		Name:   name,
		source: source,
	}
}

func (t *Thermometer) Read() Reading {
	return Reading{
		Value: t.source.Sample(),
		Unit:  Celsius,
	}
}
