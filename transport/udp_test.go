package transport_test

import (
	"context"
	"errors"
	"net"
	"sync"
	"time"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/luma/homelink/device"
	"github.com/luma/homelink/query"
	"github.com/luma/homelink/transport"
)

const readingPattern = `^Temperature: -?\d+\.\d C$`

var _ = Describe("transport", func() {
	Describe("UDP", func() {
		var udp *transport.UDP

		BeforeEach(func() {
			udp = makeUDPServer(transport.Options{})
		})

		AfterEach(func() {
			Expect(udp.Close()).To(Succeed())
		})

		It("replies to a query with a reading", func() {
			conn := dialUDP(udp)
			defer conn.Close()

			Expect(exchange(conn, "temp")).To(MatchRegexp(readingPattern))
		})

		It("replies to the sender's address", func() {
			conn, err := net.ListenPacket("udp", "127.0.0.1:0")
			Expect(err).To(Succeed())
			defer conn.Close()

			_, err = conn.WriteTo([]byte("temp"), udp.Addr())
			Expect(err).To(Succeed())

			Expect(conn.SetReadDeadline(time.Now().Add(5 * time.Second))).To(Succeed())
			buf := make([]byte, 256)
			n, from, err := conn.ReadFrom(buf)
			Expect(err).To(Succeed())
			Expect(from.String()).To(Equal(udp.Addr().String()))
			Expect(string(buf[:n])).To(MatchRegexp(readingPattern))
		})

		It("replies to malformed datagrams with an error", func() {
			conn := dialUDP(udp)
			defer conn.Close()

			Expect(exchange(conn, "")).To(Equal("Error: malformed query"))
			Expect(exchange(conn, "\xff\xfe")).To(Equal("Error: malformed query"))

			// and keeps answering afterwards
			Expect(exchange(conn, "temp")).To(MatchRegexp(readingPattern))
		})

		It("answers every datagram exactly once", func() {
			conn := dialUDP(udp)
			defer conn.Close()

			const count = 20
			for i := 0; i < count; i++ {
				_, err := conn.Write([]byte("temp"))
				Expect(err).To(Succeed())
			}

			buf := make([]byte, 256)
			for i := 0; i < count; i++ {
				Expect(conn.SetReadDeadline(time.Now().Add(5 * time.Second))).To(Succeed())
				n, err := conn.Read(buf)
				Expect(err).To(Succeed())
				Expect(string(buf[:n])).To(MatchRegexp(readingPattern))
			}

			// no extra replies
			Expect(conn.SetReadDeadline(time.Now().Add(200 * time.Millisecond))).To(Succeed())
			_, err := conn.Read(buf)
			var netErr net.Error
			Expect(errors.As(err, &netErr)).To(BeTrue())
			Expect(netErr.Timeout()).To(BeTrue())
		})

		It("serves several clients concurrently", func() {
			var wg sync.WaitGroup

			for n := 0; n < 8; n++ {
				wg.Add(1)
				go func() {
					defer GinkgoRecover()
					defer wg.Done()

					conn := dialUDP(udp)
					defer conn.Close()

					for i := 0; i < 5; i++ {
						Expect(exchange(conn, "temp")).To(MatchRegexp(readingPattern))
					}
				}()
			}

			wg.Wait()
		})
	})

	Describe("UDP bind failures", func() {
		It("returns a BindError when the port is taken", func() {
			first := makeUDPServer(transport.Options{})
			defer first.Close()

			_, port, err := net.SplitHostPort(first.Addr().String())
			Expect(err).To(Succeed())

			second := transport.NewUDP(transport.Options{
				Host: "127.0.0.1",
				Port: mustAtoi(port),
			}, newEngine())

			err = second.Start(context.Background())

			var bindErr *transport.BindError
			Expect(errors.As(err, &bindErr)).To(BeTrue())
			Expect(bindErr.Network).To(Equal("udp"))
			Expect(second.Close()).To(Succeed())
		})
	})

	Describe("UDP with reuseport", func() {
		It("answers on a shared port", func() {
			udp := makeUDPServer(transport.Options{Reuseport: true, NumListeners: 2})
			defer udp.Close()

			for i := 0; i < 4; i++ {
				conn := dialUDP(udp)
				Expect(exchange(conn, "temp")).To(MatchRegexp(readingPattern))
				conn.Close()
			}
		})
	})

	Describe("UDP metrics", func() {
		It("counts datagrams and replies", func() {
			registry := prometheus.NewRegistry()
			metrics, err := transport.NewMetrics(registry)
			Expect(err).To(Succeed())

			udp := makeUDPServer(transport.Options{Metrics: metrics})
			defer udp.Close()

			conn := dialUDP(udp)
			defer conn.Close()

			exchange(conn, "temp")
			exchange(conn, "")

			Expect(gather(registry, "homelink_thermometer_datagrams_total")).To(Equal(2.0))
			Eventually(func() float64 {
				return gather(registry, "homelink_thermometer_replies_total")
			}).Should(Equal(2.0))
		})

		It("refuses to register twice", func() {
			registry := prometheus.NewRegistry()

			_, err := transport.NewMetrics(registry)
			Expect(err).To(Succeed())

			_, err = transport.NewMetrics(registry)
			Expect(err).To(HaveOccurred())
		})

		It("is disabled without a registry", func() {
			metrics, err := transport.NewMetrics(nil)
			Expect(err).To(Succeed())
			Expect(metrics).To(BeNil())
		})
	})
})

func newEngine() *query.Engine {
	return query.NewEngine(
		device.NewThermometer("Kitchen Thermometer", device.NewRandomSource(15, 30, 0)),
		zap.NewNop())
}

func makeUDPServer(options transport.Options) *transport.UDP {
	options.Host = "127.0.0.1"
	options.Port = 0
	options.Log = zap.NewNop()

	udp := transport.NewUDP(options, newEngine())

	Expect(udp.Start(context.Background())).To(Succeed())
	Expect(udp.Addr()).NotTo(BeNil())

	return udp
}

func dialUDP(udp *transport.UDP) net.Conn {
	conn, err := net.Dial("udp", udp.Addr().String())
	Expect(err).To(Succeed())
	return conn
}

func exchange(conn net.Conn, payload string) string {
	_, err := conn.Write([]byte(payload))
	Expect(err).To(Succeed())

	Expect(conn.SetReadDeadline(time.Now().Add(5 * time.Second))).To(Succeed())

	buf := make([]byte, 256)
	n, err := conn.Read(buf)
	Expect(err).To(Succeed())

	return string(buf[:n])
}
