package query_test

import (
	"sync"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/luma/homelink/device"
	"github.com/luma/homelink/protocol"
	"github.com/luma/homelink/query"
)

type sequence struct {
	mu     sync.Mutex
	values []float64
}

func (s *sequence) Sample() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	v := s.values[0]
	s.values = s.values[1:]
	return v
}

const readingPattern = `^Temperature: -?\d+\.\d C$`

var _ = Describe("query / Engine", func() {
	It("answers a query with a formatted reading", func() {
		engine := query.NewEngine(
			device.NewThermometer("Kitchen Thermometer", &sequence{values: []float64{21.44}}),
			zap.NewNop())

		resp := engine.Respond([]byte("temp"))
		Expect(resp.IsErr()).To(BeFalse())
		Expect(resp.Text).To(Equal("Temperature: 21.4 C"))
	})

	It("takes a fresh reading for every datagram", func() {
		engine := query.NewEngine(
			device.NewThermometer("Kitchen Thermometer", &sequence{values: []float64{18, 25.26}}),
			zap.NewNop())

		Expect(engine.Respond([]byte("a")).Text).To(Equal("Temperature: 18.0 C"))
		Expect(engine.Respond([]byte("a")).Text).To(Equal("Temperature: 25.3 C"))
	})

	It("replies with an error to malformed datagrams", func() {
		engine := query.NewEngine(
			device.NewThermometer("Kitchen Thermometer", device.NewRandomSource(15, 30, 1)),
			zap.NewNop())

		for _, datagram := range [][]byte{nil, []byte(""), []byte("  "), {0xff, 0xfe}} {
			resp := engine.Respond(datagram)
			Expect(resp.IsErr()).To(BeTrue())
			Expect(resp.Text).To(Equal("Error: malformed query"))
		}
	})

	It("produces readings matching the wire pattern", func() {
		engine := query.NewEngine(
			device.NewThermometer("Kitchen Thermometer", device.NewRandomSource(15, 30, 0)),
			zap.NewNop())

		for i := 0; i < 100; i++ {
			text := protocol.Format(engine.Respond([]byte("temp")))
			Expect(text).To(MatchRegexp(readingPattern))

			value, unit, err := protocol.ParseTemperature(text)
			Expect(err).To(Succeed())
			Expect(unit).To(Equal("C"))
			Expect(value).To(BeNumerically(">=", 15.0))
			Expect(value).To(BeNumerically("<=", 30.0))
		}
	})
})
