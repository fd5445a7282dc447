package client_test

import (
	"context"
	"errors"
	"net"
	"time"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/luma/homelink/client"
	"github.com/luma/homelink/device"
	"github.com/luma/homelink/query"
	"github.com/luma/homelink/transport"
)

var _ = Describe("client / Thermometer", func() {
	var (
		ctx    context.Context
		server *transport.UDP
		therm  *client.Thermometer
	)

	BeforeEach(func() {
		ctx = context.Background()

		engine := query.NewEngine(
			device.NewThermometer("Kitchen Thermometer", device.NewRandomSource(15, 30, 0)),
			zap.NewNop())

		server = transport.NewUDP(transport.Options{Host: "127.0.0.1", Log: zap.NewNop()}, engine)
		Expect(server.Start(ctx)).To(Succeed())

		var err error
		therm, err = client.DialThermometer(ctx, server.Addr().String(), client.Options{})
		Expect(err).To(Succeed())
	})

	AfterEach(func() {
		Expect(therm.Close()).To(Succeed())
		Expect(server.Close()).To(Succeed())
	})

	It("reads a temperature", func() {
		value, unit, err := therm.Read(ctx)
		Expect(err).To(Succeed())
		Expect(unit).To(Equal("C"))
		Expect(value).To(BeNumerically(">=", 15.0))
		Expect(value).To(BeNumerically("<=", 30.0))
	})

	It("gets an error reply for an empty query", func() {
		resp, err := therm.Query(ctx, "")
		Expect(err).To(Succeed())
		Expect(resp.IsErr()).To(BeTrue())
	})

	It("times out when nobody answers", func() {
		// a bound socket that never replies
		silent, err := net.ListenPacket("udp", "127.0.0.1:0")
		Expect(err).To(Succeed())
		defer silent.Close()

		quiet, err := client.DialThermometer(ctx, silent.LocalAddr().String(),
			client.Options{Timeout: 100 * time.Millisecond})
		Expect(err).To(Succeed())
		defer quiet.Close()

		_, err = quiet.Query(ctx, "temperature")
		Expect(err).To(HaveOccurred())

		var netErr net.Error
		Expect(errors.As(err, &netErr)).To(BeTrue())
		Expect(netErr.Timeout()).To(BeTrue())
	})

	It("does not mistake a late reply for the answer to the next query", func() {
		slow, err := net.ListenPacket("udp", "127.0.0.1:0")
		Expect(err).To(Succeed())
		defer slow.Close()

		go func() {
			defer GinkgoRecover()

			buf := make([]byte, 64)
			for i, reply := range []string{"Temperature: 1.0 C", "Temperature: 2.0 C"} {
				_, addr, err := slow.ReadFrom(buf)
				if err != nil {
					return
				}

				// only the first reply misses the client's timeout
				if i == 0 {
					time.Sleep(200 * time.Millisecond)
				}

				_, _ = slow.WriteTo([]byte(reply), addr)
			}
		}()

		lagging, err := client.DialThermometer(ctx, slow.LocalAddr().String(),
			client.Options{Timeout: 100 * time.Millisecond})
		Expect(err).To(Succeed())
		defer lagging.Close()

		_, err = lagging.Query(ctx, "temperature")
		Expect(err).To(HaveOccurred())

		// let the late reply land in the socket buffer
		time.Sleep(250 * time.Millisecond)

		readCtx, cancel := context.WithTimeout(ctx, time.Second)
		defer cancel()

		value, _, err := lagging.Read(readCtx)
		Expect(err).To(Succeed())
		Expect(value).To(Equal(2.0))
	})
})
